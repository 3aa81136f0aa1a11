package port

import (
	"context"
	"errors"
)

var (
	// ErrUnsupportedOrPrivateSource means the locator points at a source
	// the downloader cannot serve: unsupported site, private or removed
	// video. Retrying will not help.
	ErrUnsupportedOrPrivateSource = errors.New("unsupported or private video source")

	// ErrAcquisitionFailed covers every other download failure.
	ErrAcquisitionFailed = errors.New("video acquisition failed")
)

// AcquiredVideo is a downloaded source: a local file path inside the
// caller-owned scratch directory plus the source's stable identifier.
type AcquiredVideo struct {
	Path    string
	VideoID string
}

// VideoAcquirer fetches a remote source locator into destDir. The pipeline
// is never invoked when acquisition fails, so a missing or partial file is
// never decoded.
type VideoAcquirer interface {
	Fetch(ctx context.Context, sourceURL, destDir string) (*AcquiredVideo, error)
}
