// Package intake creates jobs from the control surfaces that accept
// submissions, whether HTTP uploads or messaging.
package intake

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/jobs"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/logger"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/metrics"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/store"
)

// Waker nudges the scheduler after a new job lands.
type Waker interface {
	Wake()
}

// Intake persists new jobs and wakes the worker pool.
type Intake struct {
	store  store.JobStore
	waker  Waker
	notify func(*jobs.Job)
}

func New(st store.JobStore, waker Waker) *Intake {
	return &Intake{store: st, waker: waker}
}

// SetNotifier installs a callback invoked after each accepted submission.
func (in *Intake) SetNotifier(fn func(*jobs.Job)) {
	in.notify = fn
}

// Submit records a pending job and wakes the pool. The payload itself must
// already be stored; payloadRef points at it.
func (in *Intake) Submit(jobType, fileName string, fileSize int64, payloadRef string, priority jobs.Priority) (*jobs.Job, error) {
	if !priority.Valid() {
		return nil, fmt.Errorf("%w: priority %d", jobs.ErrInvalidState, priority)
	}
	if jobType == "" {
		jobType = jobs.TypeTimecardProcessing
	}
	now := time.Now().UTC()
	job := &jobs.Job{
		ID:         uuid.New().String(),
		Type:       jobType,
		Status:     jobs.StatusPending,
		Priority:   priority,
		FileName:   fileName,
		FileSize:   fileSize,
		PayloadRef: payloadRef,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := in.store.CreateJob(job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	metrics.JobsSubmittedTotal.Inc()
	logger.WithJobID(job.ID).Info().
		Str("file_name", fileName).
		Str("priority", priority.String()).
		Msg("Job submitted")
	if in.waker != nil {
		in.waker.Wake()
	}
	if in.notify != nil {
		in.notify(job)
	}
	return job, nil
}
