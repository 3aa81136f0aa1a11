package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/vidsheet/vidsheet-processing-service/internal/domain/entity"
	"github.com/vidsheet/vidsheet-processing-service/internal/domain/port"
	"github.com/vidsheet/vidsheet-processing-service/internal/infra/metrics"
	"github.com/vidsheet/vidsheet-processing-service/internal/sheet"
)

// CreateSheetUseCase turns one sheet request message into an uploaded
// contact-sheet JPEG: acquire the video into a scratch dir, run the
// sampling/assembly pipeline, encode, upload, record the outcome.
type CreateSheetUseCase struct {
	repo      port.JobRepository
	storage   port.SheetStorage
	acquirer  port.VideoAcquirer
	opener    sheet.VideoOpener
	publisher port.StatusPublisher
	dlq       port.DLQPublisher
	notifier  port.FailureNotifier
	logger    *zap.Logger
	cfg       CreateSheetConfig
}

type CreateSheetConfig struct {
	TempDir           string
	MaxRetries        int
	ThumbnailWidth    int
	MaxColumns        int
	JPEGQuality       int
	DefaultSampleRate int
	// ProgressInterval throttles in-flight status publishes. Zero means
	// the 500ms default.
	ProgressInterval time.Duration
}

func NewCreateSheetUseCase(
	repo port.JobRepository,
	storage port.SheetStorage,
	acquirer port.VideoAcquirer,
	opener sheet.VideoOpener,
	publisher port.StatusPublisher,
	dlq port.DLQPublisher,
	notifier port.FailureNotifier,
	logger *zap.Logger,
	cfg CreateSheetConfig,
) *CreateSheetUseCase {
	if cfg.ThumbnailWidth <= 0 {
		cfg.ThumbnailWidth = sheet.DefaultThumbnailWidth
	}
	if cfg.MaxColumns == 0 {
		cfg.MaxColumns = sheet.DefaultMaxColumns
	}
	if cfg.JPEGQuality <= 0 {
		cfg.JPEGQuality = 95
	}
	if cfg.DefaultSampleRate <= 0 {
		cfg.DefaultSampleRate = sheet.DefaultSampleRate
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = 500 * time.Millisecond
	}
	return &CreateSheetUseCase{
		repo:      repo,
		storage:   storage,
		acquirer:  acquirer,
		opener:    opener,
		publisher: publisher,
		dlq:       dlq,
		notifier:  notifier,
		logger:    logger,
		cfg:       cfg,
	}
}

func (uc *CreateSheetUseCase) Execute(ctx context.Context, rawMsg []byte) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "CreateSheetUseCase.Execute")
	defer span.End()

	totalTimer := time.Now()

	var msg entity.SheetRequestMessage
	if err := json.Unmarshal(rawMsg, &msg); err != nil {
		uc.logger.Error("failed to unmarshal message", zap.Error(err), zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "unmarshal_error: "+err.Error())
		return nil
	}

	span.SetAttributes(
		attribute.String("job.id", msg.JobID.String()),
		attribute.String("job.source_url", msg.SourceURL),
	)

	log := uc.logger.With(zap.String("job_id", msg.JobID.String()), zap.String("source_url", msg.SourceURL))

	sampleRate := msg.SampleRate
	if sampleRate == 0 {
		sampleRate = uc.cfg.DefaultSampleRate
	}

	job, err := uc.repo.FindByID(ctx, msg.JobID)
	if err != nil {
		job = entity.NewJob(msg.UserID, msg.SourceURL, sampleRate, uc.cfg.MaxRetries)
		job.ID = msg.JobID
		if err := uc.repo.Create(ctx, job); err != nil {
			log.Error("failed to create job record", zap.Error(err))
			return fmt.Errorf("create job: %w", err)
		}
	}

	if sampleRate < sheet.MinSampleRate || sampleRate > sheet.MaxSampleRate {
		log.Warn("sample rate out of range, sending to DLQ", zap.Int("sample_rate", sampleRate))
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg,
			fmt.Sprintf("sample rate %d out of range [%d,%d]", sampleRate, sheet.MinSampleRate, sheet.MaxSampleRate))
	}

	if !job.CanRetry() {
		log.Warn("job exhausted retries, sending to DLQ")
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, "max retries exceeded")
	}

	job.MarkProcessing()
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to PROCESSING", zap.Error(err))
		return fmt.Errorf("update job: %w", err)
	}

	metrics.ActiveWorkers.Inc()
	defer metrics.ActiveWorkers.Dec()

	outcome, err := uc.buildSheet(ctx, job, msg, rawMsg, sampleRate, log)
	if err != nil {
		return err
	}

	if outcome != "" {
		metrics.JobsProcessedTotal.WithLabelValues(outcome).Inc()
	}
	metrics.JobStageDuration.WithLabelValues("total").Observe(time.Since(totalTimer).Seconds())
	return nil
}

// buildSheet runs the per-job pipeline. The returned outcome labels the
// jobs-processed metric; a non-nil error means the message will be
// redelivered for another attempt.
func (uc *CreateSheetUseCase) buildSheet(
	ctx context.Context,
	job *entity.Job,
	msg entity.SheetRequestMessage,
	rawMsg []byte,
	sampleRate int,
	log *zap.Logger,
) (string, error) {
	tracer := otel.Tracer("usecase")

	workDir := filepath.Join(uc.cfg.TempDir, job.ID.String())
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return "", fmt.Errorf("create workdir: %w", err)
	}
	// Scratch dir holds exactly one downloaded video per run and is
	// removed on every path.
	defer os.RemoveAll(workDir)

	// Acquire the source video
	dlStart := time.Now()
	dlCtx, dlSpan := tracer.Start(ctx, "acquire_video")
	acquired, err := uc.acquirer.Fetch(dlCtx, msg.SourceURL, workDir)
	dlSpan.End()
	if err != nil {
		log.Error("video acquisition failed", zap.Error(err))
		if errors.Is(err, port.ErrUnsupportedOrPrivateSource) {
			// The source will not become supported by retrying.
			return "", uc.handlePermanentFailure(ctx, job, msg, rawMsg, "acquire_video: "+err.Error())
		}
		return "", uc.handleRetryableFailure(ctx, job, msg, rawMsg, "acquire_video: "+err.Error(), log)
	}
	metrics.JobStageDuration.WithLabelValues("download").Observe(time.Since(dlStart).Seconds())

	job.VideoID = acquired.VideoID
	log = log.With(zap.String("video_id", acquired.VideoID))

	// Sample, normalize and assemble
	buildStart := time.Now()
	buildCtx, buildSpan := tracer.Start(ctx, "build_sheet")
	progress := &statusProgress{uc: uc, ctx: ctx, job: job, minInterval: uc.cfg.ProgressInterval}
	pipeline := sheet.NewPipeline(uc.opener, progress, sheet.Options{
		ThumbnailWidth: uc.cfg.ThumbnailWidth,
		MaxColumns:     uc.cfg.MaxColumns,
	})
	img, stats, err := pipeline.Run(buildCtx, acquired.Path, sampleRate)
	buildSpan.End()
	if err != nil {
		switch {
		case errors.Is(err, sheet.ErrNoFramesCaptured):
			// Terminal warning, not a failure: nothing to retry, nothing
			// to park on the DLQ.
			log.Warn("no frames captured", zap.Int("frames_decoded", stats.FramesDecoded))
			job.MarkNoFrames("no frames survived sampling")
			if uerr := uc.repo.Update(ctx, job); uerr != nil {
				log.Error("failed to update job to NO_FRAMES", zap.Error(uerr))
			}
			uc.publishStatus(ctx, job, log)
			return "no_frames", nil
		case errors.Is(err, sheet.ErrSourceUnreadable), errors.Is(err, sheet.ErrFrameRateUnavailable):
			// Deterministic properties of the file; retrying re-downloads
			// the same bytes.
			log.Error("video not processable", zap.Error(err))
			return "", uc.handlePermanentFailure(ctx, job, msg, rawMsg, "build_sheet: "+err.Error())
		default:
			log.Error("sheet pipeline failed", zap.Error(err))
			return "", uc.handleRetryableFailure(ctx, job, msg, rawMsg, "build_sheet: "+err.Error(), log)
		}
	}
	metrics.JobStageDuration.WithLabelValues("build").Observe(time.Since(buildStart).Seconds())
	metrics.FramesSampledTotal.Add(float64(stats.FramesSampled))

	// Encode and upload
	upStart := time.Now()
	upCtx, upSpan := tracer.Start(ctx, "upload_sheet")
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: uc.cfg.JPEGQuality}); err != nil {
		upSpan.End()
		return "", uc.handleRetryableFailure(ctx, job, msg, rawMsg, "encode_sheet: "+err.Error(), log)
	}
	sheetKey := fmt.Sprintf("%s/contact_sheet_%s_%dfps.jpg", msg.UserID, acquired.VideoID, sampleRate)
	if err := uc.storage.UploadSheet(upCtx, sheetKey, bytes.NewReader(buf.Bytes()), int64(buf.Len())); err != nil {
		upSpan.End()
		log.Error("sheet upload failed", zap.Error(err))
		return "", uc.handleRetryableFailure(ctx, job, msg, rawMsg, "upload_sheet: "+err.Error(), log)
	}
	upSpan.End()
	metrics.JobStageDuration.WithLabelValues("upload").Observe(time.Since(upStart).Seconds())
	metrics.SheetsBuiltTotal.Inc()

	job.MarkCompleted(sheetKey, stats.FramesSampled, stats.Layout.Columns, stats.Layout.Rows)
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to COMPLETED", zap.Error(err))
		return "", fmt.Errorf("update job completed: %w", err)
	}

	uc.publishStatus(ctx, job, log)

	log.Info("sheet completed",
		zap.Int("frames_sampled", stats.FramesSampled),
		zap.Int("grid_columns", stats.Layout.Columns),
		zap.Int("grid_rows", stats.Layout.Rows),
		zap.String("sheet_key", sheetKey),
	)
	return "completed", nil
}

func (uc *CreateSheetUseCase) handleRetryableFailure(
	ctx context.Context,
	job *entity.Job,
	msg entity.SheetRequestMessage,
	rawMsg []byte,
	errMsg string,
	log *zap.Logger,
) error {
	job.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, job)

	if !job.CanRetry() {
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, errMsg)
	}

	metrics.RetryTotal.WithLabelValues(strconv.Itoa(job.Attempt)).Inc()
	uc.publishStatus(ctx, job, log)

	return fmt.Errorf("retryable failure (attempt %d/%d): %s", job.Attempt, job.MaxAttempts, errMsg)
}

func (uc *CreateSheetUseCase) handlePermanentFailure(
	ctx context.Context,
	job *entity.Job,
	msg entity.SheetRequestMessage,
	rawMsg []byte,
	errMsg string,
) error {
	job.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, job)

	_ = uc.dlq.PublishToDLQ(ctx, rawMsg, errMsg)

	uc.publishStatus(ctx, job, uc.logger)
	metrics.JobsProcessedTotal.WithLabelValues("dlq").Inc()

	if msg.UserEmail != "" {
		_ = uc.notifier.NotifyFailure(ctx, msg.UserEmail, job.ID.String(), msg.SourceURL, errMsg)
	}

	return nil
}

func (uc *CreateSheetUseCase) publishStatus(ctx context.Context, job *entity.Job, log *zap.Logger) {
	statusMsg := entity.SheetStatusMessage{
		JobID:        job.ID,
		UserID:       job.UserID,
		Status:       job.Status,
		SourceURL:    job.SourceURL,
		VideoID:      job.VideoID,
		SheetKey:     job.SheetKey,
		FrameCount:   job.FrameCount,
		GridColumns:  job.GridColumns,
		GridRows:     job.GridRows,
		ErrorMessage: job.ErrorMessage,
		Attempt:      job.Attempt,
		MaxAttempts:  job.MaxAttempts,
	}
	if job.Status == entity.JobStatusCompleted {
		statusMsg.Progress = 1
	}
	data, _ := json.Marshal(statusMsg)
	if err := uc.publisher.PublishStatus(ctx, data); err != nil {
		log.Error("failed to publish status", zap.Error(err))
	}
}

// statusProgress forwards pipeline progress to the status queue, throttled
// so a long decode does not flood the broker. Publish failures are
// swallowed: progress is observational only.
type statusProgress struct {
	uc          *CreateSheetUseCase
	ctx         context.Context
	job         *entity.Job
	minInterval time.Duration
	last        time.Time
}

func (p *statusProgress) Report(fraction float64, label string) {
	if fraction < 1 && time.Since(p.last) < p.minInterval {
		return
	}
	p.last = time.Now()

	statusMsg := entity.SheetStatusMessage{
		JobID:       p.job.ID,
		UserID:      p.job.UserID,
		Status:      entity.JobStatusProcessing,
		SourceURL:   p.job.SourceURL,
		VideoID:     p.job.VideoID,
		Progress:    fraction,
		Stage:       label,
		Attempt:     p.job.Attempt,
		MaxAttempts: p.job.MaxAttempts,
	}
	data, _ := json.Marshal(statusMsg)
	if err := p.uc.publisher.PublishStatus(p.ctx, data); err != nil {
		p.uc.logger.Debug("progress publish failed", zap.Error(err))
	}
}
