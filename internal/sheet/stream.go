package sheet

import "context"

// StreamMeta describes an opened video stream. FrameCount may be zero when
// the container does not expose it; FrameRate of zero is a fatal condition
// for sampling.
type StreamMeta struct {
	FrameRate  float64
	FrameCount int
	Width      int
	Height     int
}

// RawFrame is one decoded frame. BGR holds Width*Height*3 bytes, row-major,
// 8 bits per channel, in the channel order raw video decoders emit. Frames
// are transient: a RawFrame must not be retained past the emit callback.
type RawFrame struct {
	Index  int
	Width  int
	Height int
	BGR    []byte
}

// VideoStream is an opened handle to a decodable video source. ReadFrame
// returns frames in decode order and io.EOF at end of stream. The sequence
// is not restartable. Close is safe to call more than once.
type VideoStream interface {
	Meta() StreamMeta
	ReadFrame() (*RawFrame, error)
	Close() error
}

// VideoOpener opens a local video file for decoding.
type VideoOpener interface {
	Open(ctx context.Context, path string) (VideoStream, error)
}

// ProgressSink receives fractional completion in [0,1] plus a display
// label. Purely observational: implementations must not fail and callers
// must tolerate a no-op sink.
type ProgressSink interface {
	Report(fraction float64, label string)
}

// NopProgress discards all progress reports.
type NopProgress struct{}

func (NopProgress) Report(float64, string) {}
