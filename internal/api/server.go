// Package api exposes the HTTP gateway: it accepts contact-sheet requests,
// hands them to the worker pool through the broker, and serves job status
// and sheet downloads.
package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vidsheet/vidsheet-processing-service/internal/domain/entity"
	"github.com/vidsheet/vidsheet-processing-service/internal/domain/port"
	"github.com/vidsheet/vidsheet-processing-service/internal/sheet"
)

const downloadURLExpiry = 15 * time.Minute

type Server struct {
	repo              port.JobRepository
	publisher         port.RequestPublisher
	storage           port.SheetStorage
	logger            *zap.Logger
	defaultSampleRate int
	maxRetries        int
}

type ServerConfig struct {
	DefaultSampleRate int
	MaxRetries        int
}

func NewServer(repo port.JobRepository, publisher port.RequestPublisher, storage port.SheetStorage, logger *zap.Logger, cfg ServerConfig) *Server {
	if cfg.DefaultSampleRate <= 0 {
		cfg.DefaultSampleRate = sheet.DefaultSampleRate
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	return &Server{
		repo:              repo,
		publisher:         publisher,
		storage:           storage,
		logger:            logger,
		defaultSampleRate: cfg.DefaultSampleRate,
		maxRetries:        cfg.MaxRetries,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Route("/api/sheets", func(r chi.Router) {
		r.Post("/", s.handleCreateSheet)
		r.Get("/{jobID}", s.handleGetSheet)
		r.Get("/{jobID}/download", s.handleDownloadSheet)
	})

	return r
}

type createSheetRequest struct {
	SourceURL  string `json:"source_url"`
	SampleRate int    `json:"sample_rate"`
	UserID     string `json:"user_id"`
	UserEmail  string `json:"user_email"`
}

type jobResponse struct {
	JobID       uuid.UUID        `json:"job_id"`
	Status      entity.JobStatus `json:"status"`
	SourceURL   string           `json:"source_url"`
	SampleRate  int              `json:"sample_rate"`
	VideoID     string           `json:"video_id,omitempty"`
	SheetKey    string           `json:"sheet_key,omitempty"`
	FrameCount  int              `json:"frame_count,omitempty"`
	GridColumns int              `json:"grid_columns,omitempty"`
	GridRows    int              `json:"grid_rows,omitempty"`
	Error       string           `json:"error,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

func toJobResponse(job *entity.Job) jobResponse {
	return jobResponse{
		JobID:       job.ID,
		Status:      job.Status,
		SourceURL:   job.SourceURL,
		SampleRate:  job.SampleRate,
		VideoID:     job.VideoID,
		SheetKey:    job.SheetKey,
		FrameCount:  job.FrameCount,
		GridColumns: job.GridColumns,
		GridRows:    job.GridRows,
		Error:       job.ErrorMessage,
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
	}
}

func (s *Server) handleCreateSheet(w http.ResponseWriter, r *http.Request) {
	var req createSheetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req.SourceURL = strings.TrimSpace(req.SourceURL)
	if req.SourceURL == "" {
		writeError(w, http.StatusBadRequest, "source_url is required")
		return
	}
	if req.SampleRate == 0 {
		req.SampleRate = s.defaultSampleRate
	}
	if req.SampleRate < sheet.MinSampleRate || req.SampleRate > sheet.MaxSampleRate {
		writeError(w, http.StatusBadRequest, "sample_rate must be between 1 and 30")
		return
	}
	if req.UserID == "" {
		req.UserID = "anonymous"
	}

	job := entity.NewJob(req.UserID, req.SourceURL, req.SampleRate, s.maxRetries)
	if err := s.repo.Create(r.Context(), job); err != nil {
		s.logger.Error("failed to create job", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	msg := entity.SheetRequestMessage{
		JobID:      job.ID,
		UserID:     job.UserID,
		SourceURL:  job.SourceURL,
		SampleRate: job.SampleRate,
		UserEmail:  req.UserEmail,
	}
	data, _ := json.Marshal(msg)
	if err := s.publisher.PublishRequest(r.Context(), data); err != nil {
		s.logger.Error("failed to publish request", zap.Error(err), zap.String("job_id", job.ID.String()))
		job.MarkFailed("enqueue failed: " + err.Error())
		_ = s.repo.Update(r.Context(), job)
		writeError(w, http.StatusServiceUnavailable, "failed to enqueue job")
		return
	}

	s.logger.Info("sheet job accepted",
		zap.String("job_id", job.ID.String()),
		zap.Int("sample_rate", job.SampleRate),
	)
	writeJSON(w, http.StatusAccepted, toJobResponse(job))
}

func (s *Server) handleGetSheet(w http.ResponseWriter, r *http.Request) {
	job, ok := s.findJob(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toJobResponse(job))
}

func (s *Server) handleDownloadSheet(w http.ResponseWriter, r *http.Request) {
	job, ok := s.findJob(w, r)
	if !ok {
		return
	}
	if job.Status != entity.JobStatusCompleted || job.SheetKey == "" {
		writeError(w, http.StatusConflict, "sheet is not ready")
		return
	}

	url, err := s.storage.PresignedSheetURL(r.Context(), job.SheetKey, downloadURLExpiry)
	if err != nil {
		s.logger.Error("failed to presign sheet url", zap.Error(err), zap.String("job_id", job.ID.String()))
		writeError(w, http.StatusInternalServerError, "failed to generate download link")
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

func (s *Server) findJob(w http.ResponseWriter, r *http.Request) (*entity.Job, bool) {
	jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return nil, false
	}
	job, err := s.repo.FindByID(r.Context(), jobID)
	if err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return nil, false
	}
	return job, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
