// Package sheet implements the contact-sheet pipeline: sample frames from a
// decoded video at a fixed temporal rate, normalize them into fixed-width
// thumbnails, and tile the thumbnails into one composite grid image.
package sheet

import (
	"context"
	"fmt"
	"image"
	"image/color"
)

// Options configures the pipeline. Zero values pick the documented
// defaults: 240px thumbnails, a 40-column grid, black trailing-cell fill.
type Options struct {
	ThumbnailWidth int
	// MaxColumns bounds the grid width. Negative means unbounded (one row);
	// zero means DefaultMaxColumns.
	MaxColumns int
	Fill       color.Color
}

// Stats reports what one pipeline run did.
type Stats struct {
	FramesDecoded int
	FramesSampled int
	Layout        GridLayout
}

// Pipeline runs open -> sample -> normalize -> assemble strictly in
// sequence for one video. The decode handle is never shared and is closed
// unconditionally, on success and on every failure path.
type Pipeline struct {
	opener   VideoOpener
	progress ProgressSink
	opts     Options
}

func NewPipeline(opener VideoOpener, progress ProgressSink, opts Options) *Pipeline {
	if progress == nil {
		progress = NopProgress{}
	}
	if opts.ThumbnailWidth <= 0 {
		opts.ThumbnailWidth = DefaultThumbnailWidth
	}
	if opts.MaxColumns == 0 {
		opts.MaxColumns = DefaultMaxColumns
	}
	if opts.Fill == nil {
		opts.Fill = color.Black
	}
	return &Pipeline{opener: opener, progress: progress, opts: opts}
}

// Run produces the contact sheet for one video file. Failures are
// all-or-nothing: a mid-stream decode error discards every thumbnail
// sampled before it, and an empty sample yields ErrNoFramesCaptured
// instead of an empty canvas.
func (p *Pipeline) Run(ctx context.Context, videoPath string, sampleRate int) (*image.RGBA, Stats, error) {
	stream, err := p.opener.Open(ctx, videoPath)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("open video: %w", err)
	}
	defer stream.Close()

	var thumbs []*image.RGBA
	decoded, err := SampleFrames(ctx, stream, sampleRate, p.progress, func(frame *RawFrame) error {
		thumb, err := NormalizeFrame(frame, p.opts.ThumbnailWidth)
		if err != nil {
			return err
		}
		thumbs = append(thumbs, thumb)
		return nil
	})
	stats := Stats{FramesDecoded: decoded, FramesSampled: len(thumbs)}
	if err != nil {
		return nil, stats, err
	}

	canvas, layout, err := AssembleGrid(thumbs, p.opts.MaxColumns, p.opts.Fill)
	if err != nil {
		return nil, stats, err
	}
	stats.Layout = layout
	return canvas, stats, nil
}
