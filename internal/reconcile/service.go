// Package reconcile owns the job status state machine: it polls the backend
// that owns a job, normalizes the native status into the unified contract,
// and performs each terminal side effect (result materialization, webhook
// dispatch) exactly once per job.
package reconcile

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"renderq/internal/domain"
	"renderq/internal/infra"
	"renderq/internal/providers"
	"renderq/internal/storage"
	"renderq/internal/webhook"
)

type Service struct {
	jobs    domain.JobRepository
	policy  *providers.Policy
	objects storage.ObjectStore
	hooks   *webhook.Dispatcher
	logger  zerolog.Logger
	metrics *infra.Metrics
}

type Options struct {
	Jobs    domain.JobRepository
	Policy  *providers.Policy
	Objects storage.ObjectStore
	Hooks   *webhook.Dispatcher
	Logger  zerolog.Logger
	Metrics *infra.Metrics
}

func NewService(opts Options) *Service {
	return &Service{
		jobs:    opts.Jobs,
		policy:  opts.Policy,
		objects: opts.Objects,
		hooks:   opts.Hooks,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
}

// Status reconciles a job and returns its unified status.
//
// A job already finalized returns its stored snapshot without touching the
// provider; that short-circuit is the idempotence guarantee preventing
// duplicate side effects. A provider communication failure surfaces as
// domain.ErrTransientPoll and leaves the job non-terminal for the next poll.
func (s *Service) Status(ctx context.Context, jobID string) (*StatusView, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Terminal() {
		return snapshotView(job)
	}

	client, ok := s.policy.Client(job.Provider)
	if !ok {
		return nil, fmt.Errorf("job %s: unknown provider %s", job.ID, job.Provider)
	}

	providerJobID := job.ProviderJobID
	if providerJobID == "" {
		if job.Provider != domain.ProviderLocal {
			// Submission to the vendor is still racing; the job exists but is
			// not yet addressable in the backend.
			return transientView(job, domain.JobStatusQueued, 0), nil
		}
		providerJobID = job.ID
	}

	poll, err := client.Poll(ctx, job.Kind, providerJobID)
	if err != nil {
		return nil, fmt.Errorf("poll %s/%s: %w: %v", job.Provider, providerJobID, domain.ErrTransientPoll, err)
	}

	status := Normalize(job.Provider, poll.NativeStatus)
	if status == domain.JobStatusCompleted && poll.Output == nil && poll.ErrorMessage != "" {
		// Some backends report inference failures in-band on a completed envelope.
		status = domain.JobStatusFailed
	}

	if !status.Terminal() {
		return transientView(job, status, poll.Progress), nil
	}

	if status == domain.JobStatusFailed {
		errMsg := poll.ErrorMessage
		if errMsg == "" {
			errMsg = fmt.Sprintf("provider reported %s", poll.NativeStatus)
		}
		return s.finalize(ctx, job, domain.JobStatusFailed, nil, errMsg)
	}

	result, err := s.materialize(ctx, job, poll.Output)
	if err != nil {
		// Materialization failure is transient: the backend result is still
		// there, the next poll retries the upload.
		return nil, fmt.Errorf("materialize job %s: %w: %v", job.ID, domain.ErrTransientPoll, err)
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return s.finalize(ctx, job, domain.JobStatusCompleted, raw, "")
}

// finalize performs the conditional terminal write. Only the winner of the
// write dispatches the webhook; a concurrent caller that loses the race
// re-reads the stored terminal fields and skips duplicate work.
func (s *Service) finalize(ctx context.Context, job *domain.Job, status domain.JobStatus, result json.RawMessage, errMsg string) (*StatusView, error) {
	won, err := s.jobs.Finalize(ctx, job.ID, status, result, errMsg)
	if err != nil {
		return nil, err
	}
	if won {
		s.logger.Info().
			Str("job_id", job.ID).
			Str("provider", string(job.Provider)).
			Str("status", string(status)).
			Msg("reconcile: job finalized")
		s.countTerminal(job.Provider, status)
		s.notify(ctx, job, status, result, errMsg)
	}

	final, err := s.jobs.GetByID(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	return snapshotView(final)
}

// Complete finalizes a locally executed job as completed. Used by the worker
// pool, which observed the terminal transition itself instead of polling.
func (s *Service) Complete(ctx context.Context, job *domain.Job, result domain.JobResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	_, err = s.finalize(ctx, job, domain.JobStatusCompleted, raw, "")
	return err
}

// Fail finalizes a job as failed with the given error message.
func (s *Service) Fail(ctx context.Context, job *domain.Job, errMsg string) error {
	_, err := s.finalize(ctx, job, domain.JobStatusFailed, nil, errMsg)
	return err
}

// materialize turns a backend output into the unified result. Embedded
// base64 payloads are decoded and uploaded to object storage once; the
// resulting URL is recorded fill-once on the job so repeated polls racing
// the terminal transition never repeat the decode or the upload.
func (s *Service) materialize(ctx context.Context, job *domain.Job, output *providers.Output) (*domain.JobResult, error) {
	if output == nil {
		return nil, fmt.Errorf("provider returned no output")
	}

	result := &domain.JobResult{
		URL:              output.URL,
		ContentType:      output.ContentType,
		FileSizeBytes:    output.FileSizeBytes,
		DurationMs:       output.DurationMs,
		Width:            output.Width,
		Height:           output.Height,
		ProcessingTimeMs: output.ProcessingTimeMs,
	}
	if result.ContentType == "" {
		result.ContentType = "application/octet-stream"
	}

	if output.Base64Data == "" {
		if result.URL == "" {
			return nil, fmt.Errorf("provider output has neither url nor payload")
		}
		return result, nil
	}

	if job.CachedResultURL != "" {
		result.URL = job.CachedResultURL
		return result, nil
	}

	data, err := base64.StdEncoding.DecodeString(output.Base64Data)
	if err != nil {
		return nil, fmt.Errorf("decode embedded payload: %w", err)
	}
	key := fmt.Sprintf("outputs/%s/output%s", job.ID, extensionForMIME(result.ContentType))
	url, err := s.objects.Upload(ctx, key, data, result.ContentType)
	if err != nil {
		return nil, fmt.Errorf("upload materialized result: %w", err)
	}

	stored, err := s.jobs.SetCachedResultURL(ctx, job.ID, url)
	if err != nil {
		return nil, err
	}
	result.URL = stored
	if result.FileSizeBytes == 0 {
		result.FileSizeBytes = int64(len(data))
	}
	return result, nil
}

func (s *Service) notify(ctx context.Context, job *domain.Job, status domain.JobStatus, result json.RawMessage, errMsg string) {
	if job.WebhookURL == "" {
		return
	}
	s.hooks.Send(ctx, job.WebhookURL, webhook.JobPayload{
		JobID:     job.ID,
		Status:    string(status),
		Result:    result,
		Error:     errMsg,
		Timestamp: time.Now().UTC(),
	})
}

func (s *Service) countTerminal(provider domain.Provider, status domain.JobStatus) {
	if s.metrics == nil {
		return
	}
	if status == domain.JobStatusCompleted {
		s.metrics.JobsCompleted.WithLabelValues(string(provider)).Inc()
	} else {
		s.metrics.JobsFailed.WithLabelValues(string(provider)).Inc()
	}
}

func extensionForMIME(mime string) string {
	switch mime {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	case "audio/mpeg":
		return ".mp3"
	default:
		return ".bin"
	}
}
