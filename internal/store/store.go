// Package store is the durable record of job state and the single source
// of truth every component reads and writes through. The SQL implementation
// runs against either the embedded sqlite driver or Postgres; it relies on
// nothing beyond atomic conditional updates and transactional
// read-modify-write.
package store

import (
	"time"

	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/jobs"
)

// Filter narrows ListJobs. A zero filter lists everything, newest first.
type Filter struct {
	Statuses []jobs.Status
	Limit    int
}

// Patch is a partial update applied to a job. Nil fields are untouched.
type Patch struct {
	Status        *jobs.Status
	Progress      *int
	Result        *jobs.Result
	Error         *string
	RetryCount    *int
	ReviewComment *string
}

// Stats summarizes the queue for the control surface.
type Stats struct {
	Counts               map[jobs.Status]int `json:"counts"`
	Total                int                 `json:"total"`
	ReviewQueueDepth     int                 `json:"review_queue_depth"`
	AvgProcessingSeconds float64             `json:"avg_processing_seconds"`
	SuccessRate          float64             `json:"success_rate"`
}

// JobStore defines the persistence operations the engine needs.
type JobStore interface {
	// CreateJob inserts a new pending job.
	CreateJob(job *jobs.Job) error

	// GetJob returns the job or jobs.ErrNotFound.
	GetJob(id string) (*jobs.Job, error)

	// ListJobs returns jobs matching the filter, newest first.
	ListJobs(f Filter) ([]*jobs.Job, error)

	// UpdateJob applies a partial update. It fails with jobs.ErrNotFound
	// for an unknown id and jobs.ErrInvalidState once the job has reached
	// a terminal status.
	UpdateJob(id string, p Patch) (*jobs.Job, error)

	// ClaimNextEligible atomically transitions the highest-priority,
	// oldest pending job to processing and returns it exclusively to the
	// caller. It returns (nil, nil) when no eligible job exists. Under
	// concurrent claimers each pending job is handed to at most one.
	ClaimNextEligible(workerID string) (*jobs.Job, error)

	// CancelPending cancels a job only while it is still pending; a job
	// in any other state fails with jobs.ErrInvalidState.
	CancelPending(id string) (*jobs.Job, error)

	// DeleteJob removes a job; only terminal jobs may be deleted.
	DeleteJob(id string) error

	// ListAwaitingReview returns parked jobs oldest first. Review is a
	// human-throughput-bound queue, so original priority does not apply.
	ListAwaitingReview() ([]*jobs.Job, error)

	// Stats returns per-status counts and derived queue metrics.
	Stats() (*Stats, error)

	// ReclaimStale resets processing jobs older than the threshold back
	// to pending and increments their retry count. It covers workers that
	// died mid-execution; the pipeline tolerates re-execution.
	ReclaimStale(olderThan time.Duration) (int, error)

	// PurgeTerminal deletes terminal jobs whose completion is older than
	// the retention window.
	PurgeTerminal(olderThan time.Duration) (int, error)

	// Settings persistence with JSON-encoded values.
	GetSetting(key string) (string, bool, error)
	SetSetting(key, value string) error
	AllSettings() (map[string]string, error)
}
