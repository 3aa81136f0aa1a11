// Package ffmpeg decodes video files into raw frames by piping ffmpeg's
// rawvideo output, and probes stream metadata through ffprobe.
package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/vidsheet/vidsheet-processing-service/internal/sheet"
)

// Decoder opens video files as lazily decoded BGR24 frame streams. It
// implements sheet.VideoOpener.
type Decoder struct {
	logger *zap.Logger
}

func NewDecoder(logger *zap.Logger) *Decoder {
	return &Decoder{logger: logger}
}

func (d *Decoder) Open(ctx context.Context, path string) (sheet.VideoStream, error) {
	meta, err := probeMeta(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sheet.ErrSourceUnreadable, err)
	}
	if meta.Width <= 0 || meta.Height <= 0 {
		return nil, fmt.Errorf("%w: stream reports %dx%d", sheet.ErrSourceUnreadable, meta.Width, meta.Height)
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-v", "error",
		"-i", path,
		"-f", "rawvideo",
		"-pix_fmt", "bgr24",
		"pipe:1",
	)

	var errBuf bytes.Buffer
	cmd.Stderr = &errBuf

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: start ffmpeg: %v", sheet.ErrSourceUnreadable, err)
	}

	d.logger.Debug("decoder opened",
		zap.String("path", path),
		zap.Float64("frame_rate", meta.FrameRate),
		zap.Int("frame_count", meta.FrameCount),
		zap.Int("width", meta.Width),
		zap.Int("height", meta.Height),
	)

	return &frameStream{
		meta:   meta,
		cmd:    cmd,
		out:    bufio.NewReaderSize(stdout, meta.Width*3*16),
		errBuf: &errBuf,
	}, nil
}

// frameStream reads fixed-size BGR24 frames off a running ffmpeg process.
// Not safe for concurrent use; the pipeline is strictly sequential.
type frameStream struct {
	meta   sheet.StreamMeta
	cmd    *exec.Cmd
	out    *bufio.Reader
	errBuf *bytes.Buffer

	next     int
	closed   bool
	waitOnce sync.Once
	waitErr  error
}

func (s *frameStream) Meta() sheet.StreamMeta { return s.meta }

func (s *frameStream) ReadFrame() (*sheet.RawFrame, error) {
	frameSize := s.meta.Width * s.meta.Height * 3
	buf := make([]byte, frameSize)

	_, err := io.ReadFull(s.out, buf)
	if errors.Is(err, io.EOF) {
		// ffmpeg may exit nonzero after writing its last full frame; that
		// is a decode failure, not a clean end of stream.
		if werr := s.reap(); werr != nil {
			return nil, fmt.Errorf("ffmpeg: %v: %s", werr, s.stderr())
		}
		return nil, io.EOF
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		_ = s.reap()
		return nil, fmt.Errorf("truncated frame %d: %s", s.next, s.stderr())
	}
	if err != nil {
		return nil, fmt.Errorf("read frame %d: %w", s.next, err)
	}

	frame := &sheet.RawFrame{
		Index:  s.next,
		Width:  s.meta.Width,
		Height: s.meta.Height,
		BGR:    buf,
	}
	s.next++
	return frame, nil
}

func (s *frameStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.reap()
	return nil
}

func (s *frameStream) reap() error {
	s.waitOnce.Do(func() {
		s.waitErr = s.cmd.Wait()
	})
	if s.closed {
		// Kill-induced exit status is expected on Close.
		return nil
	}
	return s.waitErr
}

func (s *frameStream) stderr() string {
	msg := strings.TrimSpace(s.errBuf.String())
	if msg == "" {
		return "no diagnostic output"
	}
	return msg
}
