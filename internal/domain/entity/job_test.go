package entity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidsheet/vidsheet-processing-service/internal/domain/entity"
)

func TestNewJobDefaults(t *testing.T) {
	job := entity.NewJob("user-1", "https://example.com/v/abc", 2, 5)

	assert.Equal(t, entity.JobStatusPending, job.Status)
	assert.Equal(t, 2, job.SampleRate)
	assert.Equal(t, 0, job.Attempt)
	assert.Equal(t, 5, job.MaxAttempts)
	assert.Nil(t, job.CompletedAt)
	assert.True(t, job.CanRetry())
}

func TestJobRetryBookkeeping(t *testing.T) {
	job := entity.NewJob("user-1", "https://example.com/v/abc", 2, 2)

	job.MarkProcessing()
	assert.Equal(t, entity.JobStatusProcessing, job.Status)
	assert.Equal(t, 1, job.Attempt)
	assert.True(t, job.CanRetry())

	job.MarkFailed("decode failed")
	assert.Equal(t, entity.JobStatusFailed, job.Status)
	assert.Equal(t, "decode failed", job.ErrorMessage)

	job.MarkProcessing()
	assert.Equal(t, 2, job.Attempt)
	assert.False(t, job.CanRetry(), "attempts exhausted")
}

func TestJobMarkCompleted(t *testing.T) {
	job := entity.NewJob("user-1", "https://example.com/v/abc", 2, 5)
	job.MarkProcessing()
	job.MarkFailed("transient")
	job.MarkProcessing()

	job.MarkCompleted("user-1/contact_sheet_abc_2fps.jpg", 20, 20, 1)

	assert.Equal(t, entity.JobStatusCompleted, job.Status)
	assert.Equal(t, "user-1/contact_sheet_abc_2fps.jpg", job.SheetKey)
	assert.Equal(t, 20, job.FrameCount)
	assert.Equal(t, 20, job.GridColumns)
	assert.Equal(t, 1, job.GridRows)
	assert.Empty(t, job.ErrorMessage, "a completed job carries no stale error")
	require.NotNil(t, job.CompletedAt)
}

func TestJobMarkNoFrames(t *testing.T) {
	job := entity.NewJob("user-1", "https://example.com/v/abc", 2, 5)
	job.MarkProcessing()

	job.MarkNoFrames("sample interval exceeds stream length")

	assert.Equal(t, entity.JobStatusNoFrames, job.Status)
	assert.NotEmpty(t, job.ErrorMessage)
	require.NotNil(t, job.CompletedAt, "NO_FRAMES is terminal")
}
