// Package pipeline drives one claimed job through the processing stages:
// extract, validate, optionally remediate, then decide. Every failure is
// trapped into the failed transition here; the scheduler above only ever
// observes a normal status change.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/document"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/extract"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/jobs"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/logger"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/metrics"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/rules"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/store"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/wage"
)

// Progress milestones per stage.
const (
	progressDocumentRead = 10
	progressExtracted    = 50
	progressValidated    = 80
	progressDone         = 100
)

type Config struct {
	Rules              rules.Config
	ExtractTimeout     time.Duration
	MaxExtractAttempts int
	RetryBackoffBase   time.Duration
}

// Notifier receives the job after every externally visible status change.
// It backs the push hooks (websocket, NATS) so integrators are not forced
// into polling.
type Notifier func(*jobs.Job)

type Pipeline struct {
	store     store.JobStore
	source    document.TextSource
	extractor extract.Extractor
	cfg       Config
	notify    Notifier
}

func New(st store.JobStore, source document.TextSource, extractor extract.Extractor, cfg Config) *Pipeline {
	return &Pipeline{store: st, source: source, extractor: extractor, cfg: cfg}
}

// SetNotifier installs the optional push hook. Must be called before Run.
func (p *Pipeline) SetNotifier(n Notifier) { p.notify = n }

// Run executes the state machine for one claimed job. It never returns an
// error: every outcome, including internal faults, lands as a store
// transition. The context is the cooperative cancellation flag; it is
// checked between stages, never mid-stage, so a cancelled job's result is
// never partially written.
func (p *Pipeline) Run(ctx context.Context, job *jobs.Job) {
	log := logger.WithJobID(job.ID)

	// Malformed compliance configuration fails fast; there is nothing to
	// retry.
	if err := p.cfg.Rules.Validate(); err != nil {
		p.fail(job, err)
		return
	}

	// Extracting.
	text, err := p.source.Text(ctx, job.PayloadRef)
	if err != nil {
		// A stage cut short by cancellation is a cancel, not a failure.
		if !p.checkpoint(ctx, job) {
			return
		}
		p.fail(job, err)
		return
	}
	if !p.advance(ctx, job, progressDocumentRead) {
		return
	}

	ex, retries, err := p.extractDocument(ctx, text)
	job.RetryCount += retries
	if err != nil {
		if !p.checkpoint(ctx, job) {
			return
		}
		p.fail(job, err)
		return
	}
	log.Debug().Int("records", len(ex.Records)).Int("retries", retries).Msg("Extraction complete")
	if !p.advance(ctx, job, progressExtracted) {
		return
	}

	// Validating.
	report, err := rules.Evaluate(*ex, p.cfg.Rules)
	if err != nil {
		p.fail(job, err)
		return
	}
	if !p.checkpoint(ctx, job) {
		return
	}

	// Remediating: at most one automatic pass, and only when every
	// finding is unambiguously correctable.
	remediated := false
	if report.Verdict != wage.VerdictValid && rules.CanRemediate(report) {
		fixed := rules.Remediate(*ex)
		second, err := rules.Evaluate(fixed, p.cfg.Rules)
		if err != nil {
			p.fail(job, err)
			return
		}
		ex = &fixed
		report = second
		remediated = true
		log.Info().Str("verdict", string(report.Verdict)).Msg("Automatic remediation applied")
	}
	if !p.advance(ctx, job, progressValidated) {
		return
	}

	// Deciding.
	result := &jobs.Result{Extraction: *ex, Report: report, Remediated: remediated}
	if report.Verdict == wage.VerdictValid {
		p.complete(job, result)
		return
	}
	p.park(job, result)
}

// extractDocument calls the adapter with a per-attempt wall-clock timeout
// and bounded exponential backoff around transient failures. It returns the
// number of retried attempts alongside the result.
func (p *Pipeline) extractDocument(ctx context.Context, text string) (*wage.Extraction, int, error) {
	backoff := retry.WithMaxRetries(uint64(p.cfg.MaxExtractAttempts-1),
		retry.NewExponential(p.cfg.RetryBackoffBase))

	var ex *wage.Extraction
	attempts := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, p.cfg.ExtractTimeout)
		defer cancel()

		res, err := p.extractor.Extract(attemptCtx, text)
		if err != nil {
			if extract.IsTransient(err) && ctx.Err() == nil {
				metrics.ExtractionRetriesTotal.Inc()
				return retry.RetryableError(err)
			}
			return err
		}
		ex = res
		return nil
	})
	retries := attempts - 1
	if err != nil {
		return nil, retries, err
	}
	return ex, retries, nil
}

// checkpoint is the cooperative cancellation gate between stages. A
// targeted stop transitions the job to cancelled; any other cancellation is
// process shutdown, and the job stays processing so the stale reclaim can
// return it to pending after restart.
func (p *Pipeline) checkpoint(ctx context.Context, job *jobs.Job) bool {
	if ctx.Err() == nil {
		return true
	}
	if !errors.Is(context.Cause(ctx), jobs.ErrStopRequested) {
		logger.WithJobID(job.ID).Info().Msg("Shutdown interrupted job, leaving it for reclaim")
		return false
	}
	p.transition(job, store.Patch{Status: statusPtr(jobs.StatusCancelled)})
	metrics.JobsCancelledTotal.Inc()
	logger.WithJobID(job.ID).Info().Msg("Job cancelled at stage checkpoint")
	return false
}

// advance combines a checkpoint with a progress write. Progress is
// monotonically non-decreasing while processing.
func (p *Pipeline) advance(ctx context.Context, job *jobs.Job, progress int) bool {
	if !p.checkpoint(ctx, job) {
		return false
	}
	retryCount := job.RetryCount
	return p.transition(job, store.Patch{Progress: &progress, RetryCount: &retryCount})
}

func (p *Pipeline) complete(job *jobs.Job, result *jobs.Result) {
	progress := progressDone
	if p.transition(job, store.Patch{
		Status:   statusPtr(jobs.StatusCompleted),
		Progress: &progress,
		Result:   result,
	}) {
		metrics.JobsCompletedTotal.Inc()
		logger.WithJobID(job.ID).Info().Msg("Job completed")
	}
}

// park holds the job for human review with its verdict and issues
// attached. Progress stays where validation left it.
func (p *Pipeline) park(job *jobs.Job, result *jobs.Result) {
	if p.transition(job, store.Patch{
		Status: statusPtr(jobs.StatusAwaitingReview),
		Result: result,
	}) {
		metrics.JobsRoutedToReview.Inc()
		logger.WithJobID(job.ID).Info().
			Str("verdict", string(result.Report.Verdict)).
			Int("issues", len(result.Report.Issues)).
			Msg("Job parked for human review")
	}
}

func (p *Pipeline) fail(job *jobs.Job, cause error) {
	msg := cause.Error()
	retryCount := job.RetryCount
	if p.transition(job, store.Patch{
		Status:     statusPtr(jobs.StatusFailed),
		Error:      &msg,
		RetryCount: &retryCount,
	}) {
		metrics.JobsFailedTotal.Inc()
		logger.WithJobID(job.ID).Error().Err(cause).Msg("Job failed")
	}
}

// transition applies a patch and refreshes the in-memory copy. A job that
// reached a terminal state through another path (an external stop) shows up
// here as ErrInvalidState; that ends the run quietly rather than fighting
// the store.
func (p *Pipeline) transition(job *jobs.Job, patch store.Patch) bool {
	updated, err := p.store.UpdateJob(job.ID, patch)
	if err != nil {
		if errors.Is(err, jobs.ErrInvalidState) || errors.Is(err, jobs.ErrNotFound) {
			logger.WithJobID(job.ID).Warn().Err(err).Msg("Job left pipeline control, abandoning run")
			return false
		}
		logger.WithJobID(job.ID).Error().Err(err).Msg("Failed to persist job transition")
		return false
	}
	*job = *updated
	if p.notify != nil {
		p.notify(job)
	}
	return true
}

func statusPtr(s jobs.Status) *jobs.Status { return &s }
