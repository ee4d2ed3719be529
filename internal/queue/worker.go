package queue

import (
	"context"
	"errors"
	"os"
	"path"
	"time"

	"github.com/rs/zerolog"

	"renderq/internal/domain"
	"renderq/internal/reconcile"
	"renderq/internal/uploadcache"
)

// Worker drains the durable queue for local-provider jobs. Any number of
// workers across any number of processes can run concurrently: the claim is
// an atomic skip-locked update, and finalization goes through the same
// conditional write every other finalizer uses.
type Worker struct {
	jobs       domain.JobRepository
	encoder    Encoder
	uploads    *uploadcache.Cache
	reconciler *reconcile.Service
	logger     zerolog.Logger

	maxAttempts  int
	backoffBase  time.Duration
	pollInterval time.Duration
}

type WorkerOptions struct {
	Jobs         domain.JobRepository
	Encoder      Encoder
	Uploads      *uploadcache.Cache
	Reconciler   *reconcile.Service
	Logger       zerolog.Logger
	MaxAttempts  int
	BackoffBase  time.Duration
	PollInterval time.Duration
}

func NewWorker(opts WorkerOptions) *Worker {
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	backoff := opts.BackoffBase
	if backoff <= 0 {
		backoff = 5 * time.Second
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Worker{
		jobs:         opts.Jobs,
		encoder:      opts.Encoder,
		uploads:      opts.Uploads,
		reconciler:   opts.Reconciler,
		logger:       opts.Logger,
		maxAttempts:  maxAttempts,
		backoffBase:  backoff,
		pollInterval: interval,
	}
}

// Run claims and executes jobs until the context is cancelled. Cancellation
// aborts an in-flight encode; the aborted job is released for a later
// attempt, or recovered by the stale-claim sweep when the release itself
// cannot reach the store.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info().Msg("worker: started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		job, err := w.jobs.ClaimLocal(ctx)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				w.logger.Error().Err(err).Msg("worker: failed to claim job")
			}
			select {
			case <-time.After(w.pollInterval):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		w.Handle(ctx, job)
	}
}

// Handle executes one claimed job to a retry, release, or terminal state.
func (w *Worker) Handle(ctx context.Context, job *domain.Job) {
	w.logger.Info().
		Str("job_id", job.ID).
		Str("kind", string(job.Kind)).
		Int("attempt", job.Attempts).
		Msg("worker: picked job")

	start := time.Now()
	out, err := w.encoder.Encode(ctx, job, func(progress int) {
		if uerr := w.jobs.UpdateProgress(ctx, job.ID, progress); uerr != nil {
			w.logger.Warn().Err(uerr).Str("job_id", job.ID).Msg("worker: progress update failed")
		}
	})
	if err != nil {
		w.handleFailure(ctx, job, err)
		return
	}
	defer func() {
		if out.FilePath != "" {
			_ = os.Remove(out.FilePath)
		}
	}()

	info, err := os.Stat(out.FilePath)
	if err != nil {
		w.handleFailure(ctx, job, err)
		return
	}
	url, err := w.uploads.GetOrUpload(ctx, out.FilePath, out.ContentType, path.Base(out.FilePath))
	if err != nil {
		w.handleFailure(ctx, job, err)
		return
	}

	result := domain.JobResult{
		URL:              url,
		ContentType:      out.ContentType,
		FileSizeBytes:    info.Size(),
		DurationMs:       out.DurationMs,
		Width:            out.Width,
		Height:           out.Height,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}
	if err := w.reconciler.Complete(ctx, job, result); err != nil {
		w.logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: finalize completed failed")
	}
}

// handleFailure releases the job for another attempt with exponential
// backoff, or finalizes it as failed once the attempt cap is exhausted.
func (w *Worker) handleFailure(ctx context.Context, job *domain.Job, cause error) {
	if job.Attempts >= w.maxAttempts {
		w.logger.Error().Err(cause).
			Str("job_id", job.ID).
			Int("attempts", job.Attempts).
			Msg("worker: job failed, attempts exhausted")
		if err := w.reconciler.Fail(ctx, job, cause.Error()); err != nil {
			w.logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: finalize failed job failed")
		}
		return
	}

	delay := Backoff(w.backoffBase, job.Attempts)
	w.logger.Warn().Err(cause).
		Str("job_id", job.ID).
		Int("attempt", job.Attempts).
		Dur("retry_in", delay).
		Msg("worker: job failed, retrying")
	if err := w.jobs.Release(ctx, job.ID, time.Now().Add(delay)); err != nil {
		w.logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: release job failed")
	}
}
