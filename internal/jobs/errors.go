package jobs

import "errors"

var (
	// ErrNotFound is returned when a job id does not exist in the store.
	ErrNotFound = errors.New("job not found")

	// ErrInvalidState is returned when an operation is illegal for the
	// job's current status, e.g. deleting a job that is still processing.
	ErrInvalidState = errors.New("operation not valid for job state")

	// ErrStopRequested is the cancellation cause for a targeted stop of a
	// processing job. It distinguishes an operator's stop, which lands the
	// job in cancelled, from process shutdown, which leaves the job
	// processing for stale reclaim.
	ErrStopRequested = errors.New("job stop requested")
)
