package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timecards_jobs_submitted_total",
		Help: "Total number of timecard jobs submitted",
	})

	JobsCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timecards_jobs_completed_total",
		Help: "Total number of jobs completed successfully",
	})

	JobsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timecards_jobs_failed_total",
		Help: "Total number of jobs that ended in failure",
	})

	JobsCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timecards_jobs_cancelled_total",
		Help: "Total number of jobs cancelled before or during processing",
	})

	JobsRoutedToReview = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timecards_jobs_review_total",
		Help: "Total number of jobs parked for human review",
	})

	ExtractionRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timecards_extraction_retries_total",
		Help: "Total number of retried extraction attempts",
	})

	StaleJobsReclaimed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timecards_stale_jobs_reclaimed_total",
		Help: "Total number of stuck processing jobs reset to pending",
	})

	JobProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "timecards_job_processing_duration_seconds",
		Help:    "Time taken to run a job through the pipeline in seconds",
		Buckets: prometheus.DefBuckets,
	})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "timecards_active_workers",
		Help: "Current number of jobs being processed concurrently",
	})

	PendingJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "timecards_pending_jobs",
		Help: "Current number of pending jobs",
	})
)
