package worker

import (
	"time"

	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/logger"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/metrics"
)

// janitor reclaims jobs stuck in processing after a worker crash and
// purges old terminal jobs past the retention window. Reclaimed jobs go
// back to pending with an incremented retry count; the pipeline's
// re-execution is idempotent, so at-least-once is safe here.
func (p *Pool) janitor() {
	defer p.wg.Done()

	interval := p.cfg.StaleAfter / 2
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
		}

		if p.cfg.StaleAfter > 0 {
			n, err := p.store.ReclaimStale(p.cfg.StaleAfter)
			if err != nil {
				logger.Logger.Error().Err(err).Msg("Stale job reclaim failed")
			} else if n > 0 {
				metrics.StaleJobsReclaimed.Add(float64(n))
				logger.Logger.Warn().Int("count", n).Msg("Reclaimed stale processing jobs")
				p.Wake()
			}
		}

		if p.cfg.AutoCleanup && p.cfg.Retention > 0 {
			n, err := p.store.PurgeTerminal(p.cfg.Retention)
			if err != nil {
				logger.Logger.Error().Err(err).Msg("Old job purge failed")
			} else if n > 0 {
				logger.Logger.Info().Int("count", n).Msg("Purged old terminal jobs")
			}
		}
	}
}
