package ffmpeg

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	ffmpeggo "github.com/u2takey/ffmpeg-go"

	"github.com/vidsheet/vidsheet-processing-service/internal/sheet"
)

type probeStream struct {
	CodecType  string `json:"codec_type"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	RFrameRate string `json:"r_frame_rate"`
	NbFrames   string `json:"nb_frames"`
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
}

// probeMeta runs ffprobe against the file and maps the first video stream
// onto StreamMeta. A missing or zero frame rate comes back as FrameRate 0;
// the pipeline decides what that means.
func probeMeta(videoPath string) (sheet.StreamMeta, error) {
	raw, err := ffmpeggo.Probe(videoPath)
	if err != nil {
		return sheet.StreamMeta{}, fmt.Errorf("probe %s: %w", videoPath, err)
	}
	return parseProbe(raw)
}

func parseProbe(raw string) (sheet.StreamMeta, error) {
	var out probeOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return sheet.StreamMeta{}, fmt.Errorf("parse probe output: %w", err)
	}

	for _, s := range out.Streams {
		if s.CodecType != "video" {
			continue
		}
		meta := sheet.StreamMeta{
			FrameRate: parseRational(s.RFrameRate),
			Width:     s.Width,
			Height:    s.Height,
		}
		// nb_frames is a string field and absent for some containers.
		if n, err := strconv.Atoi(s.NbFrames); err == nil && n > 0 {
			meta.FrameCount = n
		}
		return meta, nil
	}

	return sheet.StreamMeta{}, fmt.Errorf("no video stream found")
}

// parseRational converts ffprobe's "num/den" frame-rate notation (e.g.
// "30000/1001") to a float. Malformed or zero-denominator input yields 0.
func parseRational(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0
		}
		return f
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
	if err != nil {
		return 0
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(den), 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}
