package port

import (
	"context"
	"io"
	"time"
)

type SheetStorage interface {
	UploadSheet(ctx context.Context, objectKey string, reader io.Reader, size int64) error
	PresignedSheetURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error)
}
