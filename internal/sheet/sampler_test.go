package sheet_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidsheet/vidsheet-processing-service/internal/sheet"
)

// fakeStream serves synthetic BGR frames. Pixel (0,0) of frame i carries the
// value i in its blue channel so tests can tell frames apart.
type fakeStream struct {
	meta   sheet.StreamMeta
	total  int
	failAt int // decode index that fails; -1 for never
	next   int
	closed int
}

func newFakeStream(frameRate float64, total, width, height int) *fakeStream {
	return &fakeStream{
		meta:   sheet.StreamMeta{FrameRate: frameRate, FrameCount: total, Width: width, Height: height},
		total:  total,
		failAt: -1,
	}
}

func (s *fakeStream) Meta() sheet.StreamMeta { return s.meta }

func (s *fakeStream) ReadFrame() (*sheet.RawFrame, error) {
	if s.failAt >= 0 && s.next == s.failAt {
		return nil, fmt.Errorf("bitstream corrupt at frame %d", s.next)
	}
	if s.next >= s.total {
		return nil, io.EOF
	}
	bgr := make([]byte, s.meta.Width*s.meta.Height*3)
	bgr[0] = byte(s.next)
	frame := &sheet.RawFrame{Index: s.next, Width: s.meta.Width, Height: s.meta.Height, BGR: bgr}
	s.next++
	return frame, nil
}

func (s *fakeStream) Close() error {
	s.closed++
	return nil
}

type progressRecorder struct {
	fractions []float64
	labels    []string
}

func (p *progressRecorder) Report(fraction float64, label string) {
	p.fractions = append(p.fractions, fraction)
	p.labels = append(p.labels, label)
}

func collectFrames(t *testing.T, stream sheet.VideoStream, rate int, progress sheet.ProgressSink) ([]int, int, error) {
	t.Helper()
	var indices []int
	decoded, err := sheet.SampleFrames(context.Background(), stream, rate, progress, func(f *sheet.RawFrame) error {
		indices = append(indices, f.Index)
		return nil
	})
	return indices, decoded, err
}

func TestSampleInterval(t *testing.T) {
	assert.Equal(t, 15, sheet.SampleInterval(30, 2))
	assert.Equal(t, 1, sheet.SampleInterval(10, 30), "interval clamps to 1 when rate exceeds frame rate")
	assert.Equal(t, 1, sheet.SampleInterval(29.97, 30))
	assert.Equal(t, 14, sheet.SampleInterval(29.97, 2))
	assert.Equal(t, 30, sheet.SampleInterval(30, 1))
}

func TestSampleFramesTenSecondVideo(t *testing.T) {
	// 10s at 30fps sampled at 2/s: interval 15, frames 14,29,...,299.
	stream := newFakeStream(30, 300, 8, 6)

	indices, decoded, err := collectFrames(t, stream, 2, nil)
	require.NoError(t, err)

	assert.Equal(t, 300, decoded)
	require.Len(t, indices, 20)
	for i, idx := range indices {
		assert.Equal(t, i*15+14, idx)
	}
}

func TestSampleFramesShorterThanInterval(t *testing.T) {
	// interval 15, only 10 frames: no interval ever completes, so nothing
	// is captured. The caller turns the empty sample into NoFramesCaptured.
	stream := newFakeStream(30, 10, 8, 6)

	indices, decoded, err := collectFrames(t, stream, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, 10, decoded)
	assert.Empty(t, indices)
}

func TestSampleFramesEmptyStream(t *testing.T) {
	stream := newFakeStream(30, 0, 8, 6)

	indices, decoded, err := collectFrames(t, stream, 2, nil)
	require.NoError(t, err)
	assert.Zero(t, decoded)
	assert.Empty(t, indices)
}

func TestSampleFramesZeroFrameRate(t *testing.T) {
	stream := newFakeStream(0, 300, 8, 6)

	_, decoded, err := collectFrames(t, stream, 2, nil)
	assert.ErrorIs(t, err, sheet.ErrFrameRateUnavailable)
	assert.Zero(t, decoded, "no frame may be decoded without an interval")
}

func TestSampleFramesDecodeErrorMidStream(t *testing.T) {
	stream := newFakeStream(30, 300, 8, 6)
	stream.failAt = 100

	_, decoded, err := collectFrames(t, stream, 2, nil)
	assert.ErrorIs(t, err, sheet.ErrDecode)
	assert.Contains(t, err.Error(), "frame 100")
	assert.Equal(t, 100, decoded)
}

func TestSampleFramesRejectsOutOfRangeRate(t *testing.T) {
	for _, rate := range []int{0, -1, 31} {
		stream := newFakeStream(30, 10, 8, 6)
		_, _, err := collectFrames(t, stream, rate, nil)
		assert.Error(t, err, "rate %d", rate)
	}
}

func TestSampleFramesProgress(t *testing.T) {
	stream := newFakeStream(10, 5, 8, 6)
	rec := &progressRecorder{}

	_, _, err := collectFrames(t, stream, 2, rec)
	require.NoError(t, err)

	require.Len(t, rec.fractions, 5, "one report per decoded frame, emitted or not")
	assert.InDelta(t, 0.2, rec.fractions[0], 1e-9)
	assert.InDelta(t, 1.0, rec.fractions[4], 1e-9)
	for _, label := range rec.labels {
		assert.NotEmpty(t, label)
	}
}

func TestSampleFramesProgressSkippedWhenCountUnknown(t *testing.T) {
	stream := newFakeStream(10, 5, 8, 6)
	stream.meta.FrameCount = 0
	stream.total = 5
	rec := &progressRecorder{}

	_, decoded, err := collectFrames(t, stream, 2, rec)
	require.NoError(t, err)
	assert.Equal(t, 5, decoded)
	assert.Empty(t, rec.fractions)
}

func TestSampleFramesEmitErrorStopsDecoding(t *testing.T) {
	stream := newFakeStream(30, 300, 8, 6)
	wantErr := errors.New("downstream full")

	decoded, err := sheet.SampleFrames(context.Background(), stream, 2, nil, func(*sheet.RawFrame) error {
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 15, decoded, "decoding stops at the first emitted frame")
}

func TestSampleFramesHonorsCancellation(t *testing.T) {
	stream := newFakeStream(30, 300, 8, 6)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sheet.SampleFrames(ctx, stream, 2, nil, func(*sheet.RawFrame) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
