package sheet_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidsheet/vidsheet-processing-service/internal/sheet"
)

func solidFrame(width, height int, b, g, r byte) *sheet.RawFrame {
	bgr := make([]byte, width*height*3)
	for i := 0; i < len(bgr); i += 3 {
		bgr[i] = b
		bgr[i+1] = g
		bgr[i+2] = r
	}
	return &sheet.RawFrame{Width: width, Height: height, BGR: bgr}
}

func TestNormalizeFramePreservesAspectRatio(t *testing.T) {
	cases := []struct {
		w, h, target int
	}{
		{1920, 1080, 240},
		{1080, 1920, 240}, // portrait, the common short-video shape
		{640, 480, 240},
		{100, 33, 240},
		{7, 5, 240},
	}
	for _, tc := range cases {
		thumb, err := sheet.NormalizeFrame(solidFrame(tc.w, tc.h, 1, 2, 3), tc.target)
		require.NoError(t, err)

		want := int(math.Round(float64(tc.h) / float64(tc.w) * float64(tc.target)))
		assert.Equal(t, tc.target, thumb.Bounds().Dx())
		assert.InDelta(t, want, thumb.Bounds().Dy(), 1, "%dx%d", tc.w, tc.h)
	}
}

func TestNormalizeFrameChannelOrder(t *testing.T) {
	// A pure-blue BGR frame must come out pure blue in RGBA, proving the
	// conversion swaps rather than copies channels.
	thumb, err := sheet.NormalizeFrame(solidFrame(480, 270, 255, 0, 0), 240)
	require.NoError(t, err)

	c := thumb.RGBAAt(120, 60)
	assert.EqualValues(t, 0, c.R)
	assert.EqualValues(t, 0, c.G)
	assert.EqualValues(t, 255, c.B)
	assert.EqualValues(t, 255, c.A)
}

func TestNormalizeFrameLosslessForSolidColor(t *testing.T) {
	thumb, err := sheet.NormalizeFrame(solidFrame(480, 270, 10, 200, 30), 240)
	require.NoError(t, err)

	// Resampling a constant image must not disturb channel values.
	for _, pt := range []struct{ x, y int }{{0, 0}, {239, 0}, {120, 67}, {239, 134}} {
		c := thumb.RGBAAt(pt.x, pt.y)
		assert.EqualValues(t, 30, c.R, "at %d,%d", pt.x, pt.y)
		assert.EqualValues(t, 200, c.G, "at %d,%d", pt.x, pt.y)
		assert.EqualValues(t, 10, c.B, "at %d,%d", pt.x, pt.y)
	}
}

func TestNormalizeFrameInvalidInput(t *testing.T) {
	_, err := sheet.NormalizeFrame(nil, 240)
	assert.ErrorIs(t, err, sheet.ErrInvalidFrame)

	_, err = sheet.NormalizeFrame(&sheet.RawFrame{Width: 0, Height: 10}, 240)
	assert.ErrorIs(t, err, sheet.ErrInvalidFrame)

	_, err = sheet.NormalizeFrame(&sheet.RawFrame{Width: 10, Height: 0}, 240)
	assert.ErrorIs(t, err, sheet.ErrInvalidFrame)

	// Truncated pixel data is a decoder contract violation, not a panic.
	_, err = sheet.NormalizeFrame(&sheet.RawFrame{Width: 10, Height: 10, BGR: make([]byte, 5)}, 240)
	assert.ErrorIs(t, err, sheet.ErrInvalidFrame)

	_, err = sheet.NormalizeFrame(solidFrame(10, 10, 0, 0, 0), 0)
	assert.ErrorIs(t, err, sheet.ErrInvalidFrame)
}
