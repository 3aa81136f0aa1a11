package sheet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
)

// Sample rate bounds accepted from callers, in samples per second.
const (
	MinSampleRate     = 1
	MaxSampleRate     = 30
	DefaultSampleRate = 2
)

const samplingLabel = "sampling frames"

// SampleInterval derives the number of decoded frames between two captures:
// floor(frameRate/sampleRate), clamped to a minimum of 1 so a sample rate
// above the native frame rate captures every frame.
func SampleInterval(frameRate float64, sampleRate int) int {
	interval := int(math.Floor(frameRate / float64(sampleRate)))
	if interval < 1 {
		interval = 1
	}
	return interval
}

// SampleFrames reads the stream to end-of-stream, emitting the closing
// frame of every full interval in decode order: one capture per interval,
// and none at all when the stream is shorter than a single interval.
// Frames that are not emitted are discarded without further work. After
// each decoded frame the sink
// receives (index+1)/frameCount; when the container does not report a
// frame count no progress is emitted at all.
//
// Returns the number of frames decoded. The caller owns the stream handle
// and must close it on every path.
func SampleFrames(ctx context.Context, stream VideoStream, sampleRate int, progress ProgressSink, emit func(*RawFrame) error) (int, error) {
	if sampleRate < MinSampleRate || sampleRate > MaxSampleRate {
		return 0, fmt.Errorf("sample rate %d out of range [%d,%d]", sampleRate, MinSampleRate, MaxSampleRate)
	}
	if progress == nil {
		progress = NopProgress{}
	}

	meta := stream.Meta()
	if meta.FrameRate <= 0 {
		return 0, ErrFrameRateUnavailable
	}
	interval := SampleInterval(meta.FrameRate, sampleRate)

	decoded := 0
	for index := 0; ; index++ {
		select {
		case <-ctx.Done():
			return decoded, ctx.Err()
		default:
		}

		frame, err := stream.ReadFrame()
		if errors.Is(err, io.EOF) {
			return decoded, nil
		}
		if err != nil {
			return decoded, fmt.Errorf("%w: frame %d: %v", ErrDecode, index, err)
		}
		decoded++

		if (index+1)%interval == 0 {
			if err := emit(frame); err != nil {
				return decoded, err
			}
		}

		if meta.FrameCount > 0 {
			progress.Report(float64(index+1)/float64(meta.FrameCount), samplingLabel)
		}
	}
}
