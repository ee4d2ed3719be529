// Package memory provides in-process implementations of the repository
// interfaces. They mirror the conditional-write semantics of the Postgres
// repositories and back the service test suites; nothing here is durable.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"renderq/internal/domain"
)

type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*domain.Job
}

func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*domain.Job)}
}

func (s *JobStore) Create(ctx context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	cp := *job
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	s.jobs[cp.ID] = &cp
	job.CreatedAt = cp.CreatedAt
	job.UpdatedAt = cp.UpdatedAt
	return nil
}

func (s *JobStore) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (s *JobStore) AttachProviderJob(ctx context.Context, jobID, providerJobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	if job.ProviderJobID == "" {
		job.ProviderJobID = providerJobID
		job.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (s *JobStore) SetCachedResultURL(ctx context.Context, jobID, url string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return "", domain.ErrNotFound
	}
	if job.CachedResultURL == "" {
		job.CachedResultURL = url
		job.UpdatedAt = time.Now().UTC()
	}
	return job.CachedResultURL, nil
}

func (s *JobStore) Finalize(ctx context.Context, jobID string, status domain.JobStatus, result json.RawMessage, errMsg string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if job.TerminalAt != nil {
		return false, nil
	}
	now := time.Now().UTC()
	job.Status = status
	job.Result = append(json.RawMessage(nil), result...)
	job.ErrorMessage = errMsg
	job.TerminalAt = &now
	job.UpdatedAt = now
	if status == domain.JobStatusCompleted {
		job.Progress = 100
	}
	return true, nil
}

func (s *JobStore) UpdateProgress(ctx context.Context, jobID string, progress int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	if job.TerminalAt == nil {
		job.Progress = progress
		job.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (s *JobStore) ClaimLocal(ctx context.Context) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	var candidates []*domain.Job
	for _, job := range s.jobs {
		if job.Provider == domain.ProviderLocal && job.Status == domain.JobStatusQueued && !job.NextRetryAt.After(now) {
			candidates = append(candidates, job)
		}
	}
	if len(candidates) == 0 {
		return nil, domain.ErrNotFound
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})
	job := candidates[0]
	job.Status = domain.JobStatusProcessing
	job.Attempts++
	job.UpdatedAt = now
	cp := *job
	return &cp, nil
}

func (s *JobStore) Release(ctx context.Context, jobID string, nextRetryAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	if job.TerminalAt == nil {
		job.Status = domain.JobStatusQueued
		job.NextRetryAt = nextRetryAt
		job.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (s *JobStore) RequeueStale(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	var requeued int64
	for _, job := range s.jobs {
		if job.Provider == domain.ProviderLocal && job.Status == domain.JobStatusProcessing &&
			job.TerminalAt == nil && job.UpdatedAt.Before(before) {
			job.Status = domain.JobStatusQueued
			job.NextRetryAt = now
			job.UpdatedAt = now
			requeued++
		}
	}
	return requeued, nil
}

func (s *JobStore) PurgeTerminal(ctx context.Context, completedBefore, failedBefore time.Time, keepPerStatus int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var purged int64
	for id, job := range s.jobs {
		if job.TerminalAt == nil {
			continue
		}
		cutoff := completedBefore
		if job.Status == domain.JobStatusFailed {
			cutoff = failedBefore
		}
		if job.TerminalAt.Before(cutoff) {
			delete(s.jobs, id)
			purged++
		}
	}
	return purged, nil
}

func (s *JobStore) PurgeAbandoned(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var purged int64
	for id, job := range s.jobs {
		if job.TerminalAt == nil && job.CreatedAt.Before(before) {
			delete(s.jobs, id)
			purged++
		}
	}
	return purged, nil
}

var _ domain.JobRepository = (*JobStore)(nil)

type BatchStore struct {
	mu      sync.Mutex
	batches map[string]*domain.Batch
}

func NewBatchStore() *BatchStore {
	return &BatchStore{batches: make(map[string]*domain.Batch)}
}

func (s *BatchStore) Create(ctx context.Context, batch *domain.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *batch
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	s.batches[cp.ID] = &cp
	batch.CreatedAt = cp.CreatedAt
	return nil
}

func (s *BatchStore) GetByID(ctx context.Context, batchID string) (*domain.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch, ok := s.batches[batchID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *batch
	cp.JobIDs = append([]string(nil), batch.JobIDs...)
	return &cp, nil
}

func (s *BatchStore) MarkWebhookSent(ctx context.Context, batchID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch, ok := s.batches[batchID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if batch.WebhookSent {
		return false, nil
	}
	batch.WebhookSent = true
	return true, nil
}

func (s *BatchStore) SetCompleted(ctx context.Context, batchID string, status domain.BatchStatus, completed, failed int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch, ok := s.batches[batchID]
	if !ok {
		return domain.ErrNotFound
	}
	if batch.CompletedAt == nil {
		now := time.Now().UTC()
		batch.CompletedAt = &now
		batch.FinalStatus = status
		batch.CompletedJobs = completed
		batch.FailedJobs = failed
	}
	return nil
}

func (s *BatchStore) PurgeBefore(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var purged int64
	for id, batch := range s.batches {
		if batch.CompletedAt != nil && batch.CompletedAt.Before(before) {
			delete(s.batches, id)
			purged++
		}
	}
	return purged, nil
}

var _ domain.BatchRepository = (*BatchStore)(nil)
