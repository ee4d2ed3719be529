package queue

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"renderq/internal/domain"
)

// GC keeps the jobs table bounded. Terminal records are evicted outside their
// retention windows (completed jobs sooner than failed ones, plus a per-status
// count bound), stale local claims from dead workers are returned to the
// queue, and non-terminal records eventually age out entirely. Callers must
// not assume job history is permanent.
type GC struct {
	jobs    domain.JobRepository
	batches domain.BatchRepository
	logger  zerolog.Logger

	completedRetention time.Duration
	failedRetention    time.Duration
	keepPerStatus      int
	staleClaimAfter    time.Duration
	abandonedRetention time.Duration
}

type GCOptions struct {
	Jobs               domain.JobRepository
	Batches            domain.BatchRepository
	Logger             zerolog.Logger
	CompletedRetention time.Duration
	FailedRetention    time.Duration
	KeepPerStatus      int

	// StaleClaimAfter bounds how long a claimed local job may sit in
	// processing before the sweep assumes its worker died and requeues it.
	// Must exceed the longest plausible encode.
	StaleClaimAfter time.Duration

	// AbandonedRetention bounds the lifetime of jobs that never reach a
	// terminal state.
	AbandonedRetention time.Duration
}

func NewGC(opts GCOptions) *GC {
	completed := opts.CompletedRetention
	if completed <= 0 {
		completed = 24 * time.Hour
	}
	failed := opts.FailedRetention
	if failed <= 0 {
		failed = 72 * time.Hour
	}
	keep := opts.KeepPerStatus
	if keep <= 0 {
		keep = 1000
	}
	stale := opts.StaleClaimAfter
	if stale <= 0 {
		stale = 30 * time.Minute
	}
	abandoned := opts.AbandonedRetention
	if abandoned <= 0 {
		abandoned = 7 * 24 * time.Hour
	}
	return &GC{
		jobs:               opts.Jobs,
		batches:            opts.Batches,
		logger:             opts.Logger,
		completedRetention: completed,
		failedRetention:    failed,
		keepPerStatus:      keep,
		staleClaimAfter:    stale,
		abandonedRetention: abandoned,
	}
}

// Sweep runs one pass: recover stale claims first so recoverable work is
// requeued before the age-out deletions run.
func (g *GC) Sweep(ctx context.Context) {
	now := time.Now()

	requeued, err := g.jobs.RequeueStale(ctx, now.Add(-g.staleClaimAfter))
	if err != nil {
		g.logger.Error().Err(err).Msg("gc: requeue stale claims failed")
	} else if requeued > 0 {
		g.logger.Warn().Int64("requeued", requeued).Msg("gc: requeued stale local claims")
	}

	purged, err := g.jobs.PurgeTerminal(ctx, now.Add(-g.completedRetention), now.Add(-g.failedRetention), g.keepPerStatus)
	if err != nil {
		g.logger.Error().Err(err).Msg("gc: purge jobs failed")
	} else if purged > 0 {
		g.logger.Info().Int64("purged", purged).Msg("gc: evicted terminal jobs")
	}

	purged, err = g.jobs.PurgeAbandoned(ctx, now.Add(-g.abandonedRetention))
	if err != nil {
		g.logger.Error().Err(err).Msg("gc: purge abandoned jobs failed")
	} else if purged > 0 {
		g.logger.Warn().Int64("purged", purged).Msg("gc: evicted abandoned jobs")
	}

	purged, err = g.batches.PurgeBefore(ctx, now.Add(-g.failedRetention))
	if err != nil {
		g.logger.Error().Err(err).Msg("gc: purge batches failed")
	} else if purged > 0 {
		g.logger.Info().Int64("purged", purged).Msg("gc: evicted batches")
	}
}

// Schedule registers the sweep on the given cron using a standard cron expression.
func (g *GC) Schedule(c *cron.Cron, expr string) error {
	_, err := c.AddFunc(expr, func() {
		g.Sweep(context.Background())
	})
	return err
}
