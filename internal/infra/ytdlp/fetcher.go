// Package ytdlp downloads remote videos through the yt-dlp binary.
package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/vidsheet/vidsheet-processing-service/internal/domain/port"
)

// formatSelector prefers a standalone mp4, falling back to whatever the
// source offers, so the decoder gets a single local file.
const formatSelector = "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"

type Fetcher struct {
	binary string
	logger *zap.Logger
}

func NewFetcher(binary string, logger *zap.Logger) *Fetcher {
	if binary == "" {
		binary = "yt-dlp"
	}
	return &Fetcher{binary: binary, logger: logger}
}

// Fetch downloads sourceURL into destDir, named {video id}.{ext}, and
// returns the local path plus the id. destDir is owned by the caller;
// nothing outside it is written.
func (f *Fetcher) Fetch(ctx context.Context, sourceURL, destDir string) (*port.AcquiredVideo, error) {
	cmd := exec.CommandContext(ctx, f.binary,
		"--no-playlist",
		"--restrict-filenames",
		"-f", formatSelector,
		"-o", filepath.Join(destDir, "%(id)s.%(ext)s"),
		"--no-simulate",
		"--print", "after_move:filepath",
		sourceURL,
	)

	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, classifyError(string(exitErr.Stderr))
		}
		return nil, fmt.Errorf("%w: run %s: %v", port.ErrAcquisitionFailed, f.binary, err)
	}

	localPath := strings.TrimSpace(string(out))
	if localPath == "" {
		return nil, fmt.Errorf("%w: downloader reported no output file", port.ErrAcquisitionFailed)
	}
	if _, err := os.Stat(localPath); err != nil {
		return nil, fmt.Errorf("%w: downloaded file missing: %v", port.ErrAcquisitionFailed, err)
	}

	videoID := strings.TrimSuffix(filepath.Base(localPath), filepath.Ext(localPath))
	f.logger.Info("video acquired",
		zap.String("video_id", videoID),
		zap.String("path", localPath),
	)

	return &port.AcquiredVideo{Path: localPath, VideoID: videoID}, nil
}

// classifyError maps yt-dlp stderr onto the acquisition error taxonomy.
func classifyError(stderr string) error {
	msg := strings.TrimSpace(stderr)
	lower := strings.ToLower(msg)

	for _, marker := range []string{
		"unsupported url",
		"private video",
		"video unavailable",
		"this video is unavailable",
		"sign in to confirm",
	} {
		if strings.Contains(lower, marker) {
			return fmt.Errorf("%w: %s", port.ErrUnsupportedOrPrivateSource, firstLine(msg))
		}
	}
	if msg == "" {
		return port.ErrAcquisitionFailed
	}
	return fmt.Errorf("%w: %s", port.ErrAcquisitionFailed, firstLine(msg))
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
