// Package review exposes the human decision surface over jobs parked in
// the awaiting-review state. Decide is the only legal mutator of a parked
// job.
package review

import (
	"fmt"

	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/jobs"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/logger"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/metrics"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/store"
)

type Gateway struct {
	store  store.JobStore
	notify func(*jobs.Job)
}

func NewGateway(st store.JobStore) *Gateway {
	return &Gateway{store: st}
}

// SetNotifier installs the optional push hook fired after each decision.
func (g *Gateway) SetNotifier(n func(*jobs.Job)) { g.notify = n }

// ListPending returns the review queue oldest first. Review throughput is
// human-bound, so the original job priority does not reorder it.
func (g *Gateway) ListPending() ([]*jobs.Job, error) {
	return g.store.ListAwaitingReview()
}

// Decide resolves one parked job: approval completes it, rejection fails
// it with the reviewer's comment as the failure reason.
func (g *Gateway) Decide(jobID string, approve bool, comment string) (*jobs.Job, error) {
	job, err := g.store.GetJob(jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != jobs.StatusAwaitingReview {
		return nil, fmt.Errorf("%w: job %s is %s, not awaiting review",
			jobs.ErrInvalidState, jobID, job.Status)
	}

	patch := store.Patch{ReviewComment: &comment}
	if approve {
		status := jobs.StatusCompleted
		progress := 100
		patch.Status = &status
		patch.Progress = &progress
	} else {
		status := jobs.StatusFailed
		reason := comment
		if reason == "" {
			reason = "rejected by reviewer"
		}
		patch.Status = &status
		patch.Error = &reason
	}

	updated, err := g.store.UpdateJob(jobID, patch)
	if err != nil {
		return nil, err
	}

	if approve {
		metrics.JobsCompletedTotal.Inc()
	} else {
		metrics.JobsFailedTotal.Inc()
	}
	logger.WithJobID(jobID).Info().
		Bool("approved", approve).
		Msg("Review decision recorded")

	if g.notify != nil {
		g.notify(updated)
	}
	return updated, nil
}

// BulkOutcome reports the per-item result of a bulk decision.
type BulkOutcome struct {
	Succeeded []string          `json:"succeeded"`
	Failed    map[string]string `json:"failed,omitempty"`
}

// BulkDecide applies Decide to each id, collecting partial failures
// instead of aborting the batch.
func (g *Gateway) BulkDecide(jobIDs []string, approve bool, comment string) BulkOutcome {
	out := BulkOutcome{Failed: map[string]string{}}
	for _, id := range jobIDs {
		if _, err := g.Decide(id, approve, comment); err != nil {
			out.Failed[id] = err.Error()
			continue
		}
		out.Succeeded = append(out.Succeeded, id)
	}
	if len(out.Failed) == 0 {
		out.Failed = nil
	}
	return out
}
