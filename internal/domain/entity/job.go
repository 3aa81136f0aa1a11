package entity

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	// JobStatusNoFrames is a terminal warning outcome: the video decoded
	// cleanly but zero frames survived sampling, so no sheet exists.
	JobStatusNoFrames JobStatus = "NO_FRAMES"
	JobStatusFailed   JobStatus = "FAILED"
)

type Job struct {
	ID           uuid.UUID
	UserID       string
	SourceURL    string
	VideoID      string
	SheetKey     string
	Status       JobStatus
	SampleRate   int
	FrameCount   int
	GridColumns  int
	GridRows     int
	Attempt      int
	MaxAttempts  int
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}

func NewJob(userID, sourceURL string, sampleRate, maxAttempts int) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:          uuid.New(),
		UserID:      userID,
		SourceURL:   sourceURL,
		Status:      JobStatusPending,
		SampleRate:  sampleRate,
		Attempt:     0,
		MaxAttempts: maxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (j *Job) MarkProcessing() {
	j.Status = JobStatusProcessing
	j.Attempt++
	j.UpdatedAt = time.Now().UTC()
}

func (j *Job) MarkCompleted(sheetKey string, frameCount, gridColumns, gridRows int) {
	now := time.Now().UTC()
	j.Status = JobStatusCompleted
	j.SheetKey = sheetKey
	j.FrameCount = frameCount
	j.GridColumns = gridColumns
	j.GridRows = gridRows
	j.ErrorMessage = ""
	j.UpdatedAt = now
	j.CompletedAt = &now
}

func (j *Job) MarkNoFrames(reason string) {
	now := time.Now().UTC()
	j.Status = JobStatusNoFrames
	j.ErrorMessage = reason
	j.UpdatedAt = now
	j.CompletedAt = &now
}

func (j *Job) MarkFailed(errMsg string) {
	j.Status = JobStatusFailed
	j.ErrorMessage = errMsg
	j.UpdatedAt = time.Now().UTC()
}

func (j *Job) CanRetry() bool {
	return j.Attempt < j.MaxAttempts
}
