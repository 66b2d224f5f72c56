// Package worker schedules claimed jobs onto a bounded pool of pipeline
// executions. The store's atomic claim is the only mutation point for
// pending work; the pool just keeps up to its cap of claims in flight and
// refills as slots free.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/jobs"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/logger"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/metrics"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/store"
)

// Runner executes one claimed job to a terminal or parked state. The
// pipeline implements this; tests substitute fakes.
type Runner interface {
	Run(ctx context.Context, job *jobs.Job)
}

type Config struct {
	// MaxConcurrentJobs bounds simultaneous pipeline executions, 1-10.
	MaxConcurrentJobs int

	// PollInterval paces the claim loop when no wake signal arrives.
	PollInterval time.Duration

	// StaleAfter is the processing age beyond which the janitor assumes
	// the owning worker died and resets the job to pending.
	StaleAfter time.Duration

	// Retention and AutoCleanup control the janitor's purge of old
	// terminal jobs. Zero retention disables purging.
	Retention   time.Duration
	AutoCleanup bool
}

// Pool claims and dispatches pending jobs under a concurrency cap.
type Pool struct {
	id     string
	store  store.JobStore
	runner Runner
	cfg    Config

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	wake   chan struct{}

	mu     sync.Mutex
	active map[string]context.CancelCauseFunc
}

func NewPool(st store.JobStore, runner Runner, cfg Config) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		id:     "worker-" + uuid.New().String()[:8],
		store:  st,
		runner: runner,
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
		wake:   make(chan struct{}, 1),
		active: map[string]context.CancelCauseFunc{},
	}
}

// Start launches the dispatcher and janitor goroutines.
func (p *Pool) Start() {
	logger.Logger.Info().
		Int("max_concurrent_jobs", p.cfg.MaxConcurrentJobs).
		Dur("poll_interval", p.cfg.PollInterval).
		Msg("Starting scheduler")

	p.wg.Add(1)
	go p.dispatch()

	p.wg.Add(1)
	go p.janitor()
}

// Stop interrupts every in-flight pipeline at its next checkpoint and waits
// for the goroutines to drain. Interrupted jobs keep their processing
// status; after a restart the stale reclaim returns them to pending with
// retry_count incremented, so a deploy never discards claimed work.
func (p *Pool) Stop() {
	logger.Logger.Info().Msg("Stopping scheduler")
	p.cancel()
	p.wg.Wait()
	metrics.ActiveWorkers.Set(0)
	logger.Logger.Info().Msg("Scheduler stopped")
}

// Wake nudges the dispatcher to claim immediately instead of waiting for
// the next poll tick. Safe to call from any goroutine; a full signal
// buffer means a wake is already pending.
func (p *Pool) Wake() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// StopJob requests cooperative cancellation of a processing job owned by
// this pool. The pipeline observes the cancelled context at its next stage
// checkpoint; there is no forced preemption.
func (p *Pool) StopJob(id string) error {
	p.mu.Lock()
	cancel, ok := p.active[id]
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: job %s is not processing on this instance", jobs.ErrInvalidState, id)
	}
	cancel(jobs.ErrStopRequested)
	logger.WithJobID(id).Info().Msg("Cooperative stop requested")
	return nil
}

// ActiveCount returns the number of jobs currently executing.
func (p *Pool) ActiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.active)
}

func (p *Pool) dispatch() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		p.fill()
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
		case <-p.wake:
		}
	}
}

// fill claims pending jobs until the pool is at capacity or the queue is
// empty. Claim order is priority descending, oldest first; the store
// enforces it.
func (p *Pool) fill() {
	for p.ActiveCount() < p.cfg.MaxConcurrentJobs {
		if p.ctx.Err() != nil {
			return
		}
		job, err := p.store.ClaimNextEligible(p.id)
		if err != nil {
			logger.Logger.Error().Err(err).Msg("Claim failed")
			return
		}
		if job == nil {
			return
		}
		p.launch(job)
	}
}

func (p *Pool) launch(job *jobs.Job) {
	jobCtx, cancel := context.WithCancelCause(p.ctx)

	p.mu.Lock()
	p.active[job.ID] = cancel
	metrics.ActiveWorkers.Set(float64(len(p.active)))
	p.mu.Unlock()

	logger.WithJobID(job.ID).Info().
		Str("priority", job.Priority.String()).
		Int("retry_count", job.RetryCount).
		Msg("Job dispatched")

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		start := time.Now()

		p.runner.Run(jobCtx, job)

		metrics.JobProcessingDuration.Observe(time.Since(start).Seconds())

		p.mu.Lock()
		delete(p.active, job.ID)
		metrics.ActiveWorkers.Set(float64(len(p.active)))
		p.mu.Unlock()
		cancel(nil)

		// A slot just freed; try to claim again right away.
		p.Wake()
	}()
}
