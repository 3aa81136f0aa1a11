package entity

import "github.com/google/uuid"

// SheetRequestMessage is the inbound message from the sheet.requests queue.
type SheetRequestMessage struct {
	JobID      uuid.UUID `json:"job_id"`
	UserID     string    `json:"user_id"`
	SourceURL  string    `json:"source_url"`
	SampleRate int       `json:"sample_rate"`
	UserEmail  string    `json:"user_email"`
}

// SheetStatusMessage is the outbound message published to the sheet.status
// queue, both for terminal outcomes and for in-flight progress updates.
type SheetStatusMessage struct {
	JobID        uuid.UUID `json:"job_id"`
	UserID       string    `json:"user_id"`
	Status       JobStatus `json:"status"`
	SourceURL    string    `json:"source_url"`
	VideoID      string    `json:"video_id,omitempty"`
	SheetKey     string    `json:"sheet_key,omitempty"`
	FrameCount   int       `json:"frame_count,omitempty"`
	GridColumns  int       `json:"grid_columns,omitempty"`
	GridRows     int       `json:"grid_rows,omitempty"`
	Progress     float64   `json:"progress,omitempty"`
	Stage        string    `json:"stage,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Attempt      int       `json:"attempt"`
	MaxAttempts  int       `json:"max_attempts"`
}
