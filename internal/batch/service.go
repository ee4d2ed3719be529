// Package batch aggregates fixed sets of jobs submitted together into one
// trackable unit with a single completion webhook.
package batch

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"renderq/internal/domain"
	"renderq/internal/reconcile"
	"renderq/internal/webhook"
)

// JobView is one member's contribution to a batch status read.
type JobView struct {
	JobID  string            `json:"jobId"`
	Status domain.JobStatus  `json:"status"`
	Result *domain.JobResult `json:"result,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// View is the aggregate batch status contract.
type View struct {
	BatchID       string             `json:"batchId"`
	Status        domain.BatchStatus `json:"status"`
	TotalJobs     int                `json:"totalJobs"`
	CompletedJobs int                `json:"completedJobs"`
	FailedJobs    int                `json:"failedJobs"`
	Jobs          []JobView          `json:"jobs"`
	CreatedAt     time.Time          `json:"createdAt"`
	CompletedAt   *time.Time         `json:"completedAt,omitempty"`
}

type Service struct {
	batches    domain.BatchRepository
	reconciler *reconcile.Service
	hooks      *webhook.Dispatcher
	logger     zerolog.Logger
}

func NewService(batches domain.BatchRepository, reconciler *reconcile.Service, hooks *webhook.Dispatcher, logger zerolog.Logger) *Service {
	return &Service{
		batches:    batches,
		reconciler: reconciler,
		hooks:      hooks,
		logger:     logger,
	}
}

// Create persists a batch over already-created jobs. The member set is fixed
// at creation and never mutated.
func (s *Service) Create(ctx context.Context, jobIDs []string, webhookURL string) (*domain.Batch, error) {
	batch := &domain.Batch{
		ID:         uuid.NewString(),
		JobIDs:     append([]string(nil), jobIDs...),
		TotalJobs:  len(jobIDs),
		WebhookURL: webhookURL,
	}
	if err := s.batches.Create(ctx, batch); err != nil {
		return nil, err
	}
	return batch, nil
}

// Status reconciles every member job and derives the aggregate. A member
// whose provider poll fails transiently counts as still processing, so one
// flaky vendor degrades the aggregate to non-terminal instead of failing the
// whole read. When the aggregate first turns terminal, the completion time,
// final status and counts are frozen onto the batch row and the batch
// webhook dispatched, guarded by a conditional write on webhook_sent so
// concurrent pollers produce at most one delivery. Reads of an already
// terminal batch report the frozen aggregate, so member rows aging out of
// retention never change it.
func (s *Service) Status(ctx context.Context, batchID string) (*View, error) {
	batch, err := s.batches.GetByID(ctx, batchID)
	if err != nil {
		return nil, err
	}

	view := &View{
		BatchID:     batch.ID,
		TotalJobs:   batch.TotalJobs,
		Jobs:        make([]JobView, 0, len(batch.JobIDs)),
		CreatedAt:   batch.CreatedAt,
		CompletedAt: batch.CompletedAt,
	}

	var completed, failed int
	for _, jobID := range batch.JobIDs {
		member := JobView{JobID: jobID, Status: domain.JobStatusProcessing}
		status, err := s.reconciler.Status(ctx, jobID)
		switch {
		case errors.Is(err, domain.ErrTransientPoll):
			s.logger.Warn().Err(err).Str("batch_id", batch.ID).Str("job_id", jobID).Msg("batch: member poll transient failure")
		case errors.Is(err, domain.ErrNotFound):
			// Member evicted by retention; count it as failed rather than
			// leaving the batch permanently non-terminal.
			member.Status = domain.JobStatusFailed
			member.Error = "job record evicted"
			failed++
		case err != nil:
			return nil, err
		default:
			member.Status = status.Status
			member.Result = status.Result
			member.Error = status.Error
			if status.Status == domain.JobStatusCompleted {
				completed++
			} else if status.Status == domain.JobStatusFailed {
				failed++
			}
		}
		view.Jobs = append(view.Jobs, member)
	}

	if batch.CompletedAt != nil && batch.FinalStatus != "" {
		// Already frozen: evicted members must not regress the aggregate.
		view.Status = batch.FinalStatus
		view.CompletedJobs = batch.CompletedJobs
		view.FailedJobs = batch.FailedJobs
	} else {
		view.CompletedJobs = completed
		view.FailedJobs = failed
		view.Status = domain.AggregateStatus(batch.TotalJobs, completed+failed, failed)
		if view.Status.Terminal() {
			if err := s.batches.SetCompleted(ctx, batch.ID, view.Status, completed, failed); err != nil {
				s.logger.Error().Err(err).Str("batch_id", batch.ID).Msg("batch: freeze terminal aggregate failed")
			}
		}
	}

	if view.Status.Terminal() {
		s.maybeNotify(ctx, batch, view)
	}
	return view, nil
}

func (s *Service) maybeNotify(ctx context.Context, batch *domain.Batch, view *View) {
	if batch.WebhookURL == "" || batch.WebhookSent {
		return
	}
	won, err := s.batches.MarkWebhookSent(ctx, batch.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("batch_id", batch.ID).Msg("batch: webhook guard failed")
		return
	}
	if !won {
		return
	}

	results := make([]json.RawMessage, 0, len(view.Jobs))
	for _, member := range view.Jobs {
		raw, err := json.Marshal(member)
		if err != nil {
			continue
		}
		results = append(results, raw)
	}
	s.hooks.Send(ctx, batch.WebhookURL, webhook.BatchPayload{
		BatchID:        batch.ID,
		Status:         string(view.Status),
		TotalJobs:      view.TotalJobs,
		SuccessfulJobs: view.CompletedJobs,
		FailedJobs:     view.FailedJobs,
		Results:        results,
		Timestamp:      time.Now().UTC(),
	})
}
