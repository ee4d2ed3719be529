package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"renderq/internal/domain"
	"renderq/internal/infra"
	"renderq/internal/sqlinline"
)

// JobRepositoryPG implements domain.JobRepository on PostgreSQL. Every
// mutation is a single conditional statement so concurrent callers from
// other processes can never double-apply a terminal transition.
type JobRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewJobRepository(sql infra.SQLExecutor) *JobRepositoryPG {
	return &JobRepositoryPG{sql: sql}
}

func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	payload, err := json.Marshal(job.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	row := r.sql.QueryRow(ctx, sqlinline.QInsertJob, job.ID, job.Kind, job.Provider, payload, job.WebhookURL)
	if err := row.Scan(&job.CreatedAt, &job.UpdatedAt); err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	job.Status = domain.JobStatusQueued
	return nil
}

func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectJob, jobID)
	job, err := scanJob(row)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

func (r *JobRepositoryPG) AttachProviderJob(ctx context.Context, jobID, providerJobID string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QAttachProviderJob, jobID, providerJobID)
	return err
}

func (r *JobRepositoryPG) SetCachedResultURL(ctx context.Context, jobID, url string) (string, error) {
	if _, err := r.sql.Exec(ctx, sqlinline.QSetCachedResultURL, jobID, url); err != nil {
		return "", err
	}
	row := r.sql.QueryRow(ctx, sqlinline.QSelectCachedResultURL, jobID)
	var stored string
	if err := row.Scan(&stored); err != nil {
		if infra.IsNoRows(err) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	return stored, nil
}

func (r *JobRepositoryPG) Finalize(ctx context.Context, jobID string, status domain.JobStatus, result json.RawMessage, errMsg string) (bool, error) {
	if !status.Terminal() {
		return false, fmt.Errorf("finalize with non-terminal status %q", status)
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QFinalizeJob, jobID, status, nullableJSON(result), errMsg)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *JobRepositoryPG) UpdateProgress(ctx context.Context, jobID string, progress int) error {
	_, err := r.sql.Exec(ctx, sqlinline.QUpdateJobProgress, jobID, progress)
	return err
}

func (r *JobRepositoryPG) ClaimLocal(ctx context.Context) (*domain.Job, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QClaimLocalJob)
	job, err := scanJob(row)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

func (r *JobRepositoryPG) Release(ctx context.Context, jobID string, nextRetryAt time.Time) error {
	_, err := r.sql.Exec(ctx, sqlinline.QReleaseLocalJob, jobID, nextRetryAt)
	return err
}

func (r *JobRepositoryPG) RequeueStale(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QRequeueStaleLocalJobs, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *JobRepositoryPG) PurgeTerminal(ctx context.Context, completedBefore, failedBefore time.Time, keepPerStatus int) (int64, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QPurgeTerminalJobs, completedBefore, failedBefore, keepPerStatus)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *JobRepositoryPG) PurgeAbandoned(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QPurgeAbandonedJobs, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var (
		job       domain.Job
		payload   []byte
		cachedURL *string
		result    []byte
	)
	if err := row.Scan(
		&job.ID,
		&job.Kind,
		&job.Provider,
		&job.ProviderJobID,
		&job.Status,
		&payload,
		&job.Progress,
		&job.Attempts,
		&job.NextRetryAt,
		&job.WebhookURL,
		&cachedURL,
		&result,
		&job.ErrorMessage,
		&job.TerminalAt,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &job.Payload); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
	}
	if cachedURL != nil {
		job.CachedResultURL = *cachedURL
	}
	if len(result) > 0 {
		job.Result = append(json.RawMessage(nil), result...)
	}
	return &job, nil
}

func nullableJSON(b json.RawMessage) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
