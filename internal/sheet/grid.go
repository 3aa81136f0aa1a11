package sheet

import (
	"image"
	"image/color"
	"image/draw"
)

// DefaultMaxColumns bounds the grid width of a contact sheet. A bound of
// zero (or negative) means unbounded: all thumbnails land in a single row.
const DefaultMaxColumns = 40

// GridLayout is the column/row pair derived from a thumbnail count and a
// maximum-columns bound. columns*rows >= count always holds.
type GridLayout struct {
	Columns int
	Rows    int
}

// LayoutFor computes columns = min(n, maxColumns) and rows = ceil(n/columns).
func LayoutFor(n, maxColumns int) GridLayout {
	if n <= 0 {
		return GridLayout{}
	}
	columns := n
	if maxColumns > 0 && columns > maxColumns {
		columns = maxColumns
	}
	rows := (n + columns - 1) / columns
	return GridLayout{Columns: columns, Rows: rows}
}

// AssembleGrid composites the ordered thumbnails onto a single canvas.
// Thumbnail i lands at cell (i mod columns, i div columns); cells past the
// last thumbnail in the final row keep the fill color, which defaults to
// solid black. All thumbnails must share the dimensions of the first one,
// which NormalizeFrame guarantees for a single video.
func AssembleGrid(thumbs []*image.RGBA, maxColumns int, fill color.Color) (*image.RGBA, GridLayout, error) {
	if len(thumbs) == 0 {
		return nil, GridLayout{}, ErrNoFramesCaptured
	}
	if fill == nil {
		fill = color.Black
	}

	cell := thumbs[0].Bounds().Size()
	layout := LayoutFor(len(thumbs), maxColumns)

	canvas := image.NewRGBA(image.Rect(0, 0, layout.Columns*cell.X, layout.Rows*cell.Y))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(fill), image.Point{}, draw.Src)

	for i, thumb := range thumbs {
		x := (i % layout.Columns) * cell.X
		y := (i / layout.Columns) * cell.Y
		rect := image.Rect(x, y, x+cell.X, y+cell.Y)
		draw.Draw(canvas, rect, thumb, thumb.Bounds().Min, draw.Src)
	}

	return canvas, layout, nil
}
