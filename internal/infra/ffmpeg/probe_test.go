package ffmpeg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRational(t *testing.T) {
	assert.InDelta(t, 30.0, parseRational("30/1"), 1e-9)
	assert.InDelta(t, 29.97002997, parseRational("30000/1001"), 1e-6)
	assert.InDelta(t, 25.0, parseRational("25"), 1e-9)
	assert.Zero(t, parseRational("0/0"))
	assert.Zero(t, parseRational(""))
	assert.Zero(t, parseRational("abc"))
	assert.Zero(t, parseRational("30/"))
}

func TestParseProbe(t *testing.T) {
	raw := `{
		"streams": [
			{"codec_type": "audio", "sample_rate": "44100"},
			{"codec_type": "video", "width": 1080, "height": 1920,
			 "r_frame_rate": "30000/1001", "nb_frames": "300"}
		]
	}`

	meta, err := parseProbe(raw)
	require.NoError(t, err)

	assert.Equal(t, 1080, meta.Width)
	assert.Equal(t, 1920, meta.Height)
	assert.InDelta(t, 29.97, meta.FrameRate, 0.01)
	assert.Equal(t, 300, meta.FrameCount)
}

func TestParseProbeMissingFrameCount(t *testing.T) {
	// Some containers never expose nb_frames; the count stays zero and
	// progress reporting is skipped downstream.
	raw := `{"streams": [{"codec_type": "video", "width": 640, "height": 480, "r_frame_rate": "25/1"}]}`

	meta, err := parseProbe(raw)
	require.NoError(t, err)
	assert.Zero(t, meta.FrameCount)
	assert.InDelta(t, 25.0, meta.FrameRate, 1e-9)
}

func TestParseProbeZeroFrameRate(t *testing.T) {
	raw := `{"streams": [{"codec_type": "video", "width": 640, "height": 480, "r_frame_rate": "0/0", "nb_frames": "100"}]}`

	meta, err := parseProbe(raw)
	require.NoError(t, err, "a zero frame rate is surfaced by the pipeline, not the prober")
	assert.Zero(t, meta.FrameRate)
}

func TestParseProbeNoVideoStream(t *testing.T) {
	_, err := parseProbe(`{"streams": [{"codec_type": "audio"}]}`)
	assert.Error(t, err)

	_, err = parseProbe(`not json`)
	assert.Error(t, err)
}
