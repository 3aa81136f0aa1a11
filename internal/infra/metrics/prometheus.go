package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidsheet_jobs_processed_total",
		Help: "Total number of sheet jobs processed, by outcome",
	}, []string{"outcome"})

	JobStageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vidsheet_job_stage_duration_seconds",
		Help:    "Duration of each contact-sheet pipeline stage",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})

	FramesSampledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vidsheet_frames_sampled_total",
		Help: "Total number of frames sampled into thumbnails across all jobs",
	})

	SheetsBuiltTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vidsheet_sheets_built_total",
		Help: "Total number of contact sheets assembled and uploaded",
	})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vidsheet_active_workers",
		Help: "Number of currently active workers building sheets",
	})

	RetryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidsheet_retry_total",
		Help: "Total number of retries",
	}, []string{"attempt"})
)
