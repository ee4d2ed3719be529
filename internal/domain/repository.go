package domain

import (
	"context"
	"encoding/json"
	"time"
)

// JobRepository defines persistence for job entities. All mutations are safe
// to call concurrently from multiple processes sharing the same store; the
// conditional writes (Finalize, SetCachedResultURL, AttachProviderJob) report
// whether this caller performed the write.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	GetByID(ctx context.Context, jobID string) (*Job, error)

	// AttachProviderJob records the backend identifier after an async vendor
	// submission succeeds. It is a no-op if one is already attached.
	AttachProviderJob(ctx context.Context, jobID, providerJobID string) error

	// SetCachedResultURL fills the materialization cache once and returns the
	// winning value, which may differ from url if another caller raced ahead.
	SetCachedResultURL(ctx context.Context, jobID, url string) (string, error)

	// Finalize sets the terminal fields if and only if the job is not already
	// terminal, reporting whether this caller won the transition.
	Finalize(ctx context.Context, jobID string, status JobStatus, result json.RawMessage, errMsg string) (bool, error)

	UpdateProgress(ctx context.Context, jobID string, progress int) error

	// ClaimLocal atomically claims the next runnable local-provider job,
	// moving it to processing and bumping its attempt counter.
	ClaimLocal(ctx context.Context) (*Job, error)

	// Release returns a claimed job to the queue for a later retry attempt.
	Release(ctx context.Context, jobID string, nextRetryAt time.Time) error

	// RequeueStale returns local jobs stuck in processing since before the
	// cutoff to the queue. A claim whose worker died never finalizes on its
	// own and would otherwise be lost.
	RequeueStale(ctx context.Context, before time.Time) (int64, error)

	// PurgeTerminal evicts terminal jobs outside the retention windows, plus
	// anything beyond the per-status count bound.
	PurgeTerminal(ctx context.Context, completedBefore, failedBefore time.Time, keepPerStatus int) (int64, error)

	// PurgeAbandoned evicts non-terminal jobs created before the cutoff, so
	// jobs that never reach a terminal state still age out.
	PurgeAbandoned(ctx context.Context, before time.Time) (int64, error)
}

// BatchRepository defines persistence for batch entities.
type BatchRepository interface {
	Create(ctx context.Context, batch *Batch) error
	GetByID(ctx context.Context, batchID string) (*Batch, error)

	// MarkWebhookSent flips the single-delivery guard, reporting whether this
	// caller won and should dispatch the webhook.
	MarkWebhookSent(ctx context.Context, batchID string) (bool, error)

	// SetCompleted stamps the aggregate-terminal time once, freezing the
	// final status and member counts alongside it. Later reads report the
	// frozen aggregate even after member job rows are evicted.
	SetCompleted(ctx context.Context, batchID string, status BatchStatus, completed, failed int) error

	PurgeBefore(ctx context.Context, before time.Time) (int64, error)
}
