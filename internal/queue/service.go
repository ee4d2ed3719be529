// Package queue owns job submission into the durable store, the local worker
// pool that drains it, and the retention sweeper that evicts old records.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"renderq/internal/domain"
	"renderq/internal/infra"
	"renderq/internal/providers"
	"renderq/internal/reconcile"
)

// Service performs the submission path: provider selection, durable job
// creation, and the retried handoff to the chosen backend.
type Service struct {
	jobs       domain.JobRepository
	policy     *providers.Policy
	reconciler *reconcile.Service
	logger     zerolog.Logger
	metrics    *infra.Metrics

	maxAttempts int
	backoffBase time.Duration
}

type ServiceOptions struct {
	Jobs        domain.JobRepository
	Policy      *providers.Policy
	Reconciler  *reconcile.Service
	Logger      zerolog.Logger
	Metrics     *infra.Metrics
	MaxAttempts int
	BackoffBase time.Duration
}

func NewService(opts ServiceOptions) *Service {
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	backoff := opts.BackoffBase
	if backoff <= 0 {
		backoff = time.Second
	}
	return &Service{
		jobs:        opts.Jobs,
		policy:      opts.Policy,
		reconciler:  opts.Reconciler,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		maxAttempts: maxAttempts,
		backoffBase: backoff,
	}
}

// Submit selects a backend, persists the job, and hands it to the backend.
//
// Provider selection happens before any record exists, so an unconfigured
// kind fails synchronously with no job created. The local id is assigned
// first and the backend id attached after, so status can be polled even
// while the vendor submission is still racing. Submission to the backend is
// retried with exponential backoff up to the attempt cap; once the cap is
// exhausted the job is finalized as failed rather than left dangling.
func (s *Service) Submit(ctx context.Context, kind domain.JobKind, payload domain.JobPayload, pinned domain.Provider, webhookURL string) (*domain.Job, error) {
	client, err := s.policy.Choose(kind, pinned, payload)
	if err != nil {
		return nil, err
	}

	job := &domain.Job{
		ID:         uuid.NewString(),
		Kind:       kind,
		Provider:   client.Name(),
		Payload:    payload,
		WebhookURL: webhookURL,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	providerJobID, err := s.submitWithRetry(ctx, client, kind, payload)
	if err != nil {
		s.logger.Error().Err(err).
			Str("job_id", job.ID).
			Str("provider", string(job.Provider)).
			Msg("queue: submission failed after retries")
		if ferr := s.reconciler.Fail(ctx, job, err.Error()); ferr != nil {
			s.logger.Error().Err(ferr).Str("job_id", job.ID).Msg("queue: finalize rejected job failed")
		}
		return nil, err
	}
	if providerJobID != "" {
		if err := s.jobs.AttachProviderJob(ctx, job.ID, providerJobID); err != nil {
			return nil, fmt.Errorf("attach provider job: %w", err)
		}
		job.ProviderJobID = providerJobID
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Str("kind", string(kind)).
		Str("provider", string(job.Provider)).
		Msg("queue: job submitted")
	if s.metrics != nil {
		s.metrics.JobsSubmitted.WithLabelValues(string(kind), string(job.Provider)).Inc()
	}
	return job, nil
}

func (s *Service) submitWithRetry(ctx context.Context, client providers.Client, kind domain.JobKind, payload domain.JobPayload) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		providerJobID, err := client.Submit(ctx, kind, payload)
		if err == nil {
			return providerJobID, nil
		}
		lastErr = err
		if errors.Is(err, domain.ErrProviderUnavailable) {
			// Configuration will not change between attempts.
			break
		}
		if attempt == s.maxAttempts {
			break
		}
		delay := Backoff(s.backoffBase, attempt)
		s.logger.Warn().Err(err).
			Str("provider", string(client.Name())).
			Int("attempt", attempt).
			Dur("retry_in", delay).
			Msg("queue: submit attempt failed")
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", lastErr
}

// Backoff returns the exponential delay before the next attempt: base doubles
// per completed attempt.
func Backoff(base time.Duration, attempt int) time.Duration {
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	return delay
}
