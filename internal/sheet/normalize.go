package sheet

import (
	"image"
	"math"

	xdraw "golang.org/x/image/draw"
)

// DefaultThumbnailWidth is the fixed width every thumbnail is scaled to.
const DefaultThumbnailWidth = 240

// NormalizeFrame converts one raw BGR frame into a width-normalized RGBA
// thumbnail. Height is round(h/w*targetWidth), so the source aspect ratio
// survives within one pixel of rounding. Scaling uses Catmull-Rom
// resampling; nearest-neighbor aliases badly in densely packed grids.
func NormalizeFrame(frame *RawFrame, targetWidth int) (*image.RGBA, error) {
	if frame == nil || frame.Width <= 0 || frame.Height <= 0 || targetWidth <= 0 {
		return nil, ErrInvalidFrame
	}
	if len(frame.BGR) < frame.Width*frame.Height*3 {
		return nil, ErrInvalidFrame
	}

	src := image.NewRGBA(image.Rect(0, 0, frame.Width, frame.Height))
	for y := 0; y < frame.Height; y++ {
		srcRow := frame.BGR[y*frame.Width*3:]
		dstRow := src.Pix[y*src.Stride:]
		for x := 0; x < frame.Width; x++ {
			// BGR -> RGBA, lossless for 8-bit channels.
			dstRow[x*4+0] = srcRow[x*3+2]
			dstRow[x*4+1] = srcRow[x*3+1]
			dstRow[x*4+2] = srcRow[x*3+0]
			dstRow[x*4+3] = 0xff
		}
	}

	height := int(math.Round(float64(frame.Height) / float64(frame.Width) * float64(targetWidth)))
	if height < 1 {
		height = 1
	}

	thumb := image.NewRGBA(image.Rect(0, 0, targetWidth, height))
	xdraw.CatmullRom.Scale(thumb, thumb.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return thumb, nil
}
