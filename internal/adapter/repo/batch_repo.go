package repo

import (
	"context"
	"time"

	"renderq/internal/domain"
	"renderq/internal/infra"
	"renderq/internal/sqlinline"
)

// BatchRepositoryPG implements domain.BatchRepository on PostgreSQL.
type BatchRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewBatchRepository(sql infra.SQLExecutor) *BatchRepositoryPG {
	return &BatchRepositoryPG{sql: sql}
}

func (r *BatchRepositoryPG) Create(ctx context.Context, batch *domain.Batch) error {
	row := r.sql.QueryRow(ctx, sqlinline.QInsertBatch, batch.ID, batch.JobIDs, batch.TotalJobs, batch.WebhookURL)
	return row.Scan(&batch.CreatedAt)
}

func (r *BatchRepositoryPG) GetByID(ctx context.Context, batchID string) (*domain.Batch, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectBatch, batchID)
	var batch domain.Batch
	if err := row.Scan(
		&batch.ID,
		&batch.JobIDs,
		&batch.TotalJobs,
		&batch.WebhookURL,
		&batch.WebhookSent,
		&batch.FinalStatus,
		&batch.CompletedJobs,
		&batch.FailedJobs,
		&batch.CreatedAt,
		&batch.CompletedAt,
	); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &batch, nil
}

func (r *BatchRepositoryPG) MarkWebhookSent(ctx context.Context, batchID string) (bool, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QMarkBatchWebhookSent, batchID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *BatchRepositoryPG) SetCompleted(ctx context.Context, batchID string, status domain.BatchStatus, completed, failed int) error {
	_, err := r.sql.Exec(ctx, sqlinline.QSetBatchCompleted, batchID, status, completed, failed)
	return err
}

func (r *BatchRepositoryPG) PurgeBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QPurgeOldBatches, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var _ domain.BatchRepository = (*BatchRepositoryPG)(nil)
