// Package local adapts the Postgres-backed worker queue to the provider
// capability surface. Submission is implicit: the job record itself is the
// queue entry claimed by the worker pool, so Submit has nothing to send.
package local

import (
	"context"

	"renderq/internal/domain"
	"renderq/internal/providers"
)

type Client struct {
	jobs domain.JobRepository
}

func NewClient(jobs domain.JobRepository) *Client {
	return &Client{jobs: jobs}
}

func (c *Client) Name() domain.Provider {
	return domain.ProviderLocal
}

// IsConfigured is true for the kinds the local encoder can execute.
func (c *Client) IsConfigured(kind domain.JobKind) bool {
	return kind == domain.JobKindConvert
}

// Submit returns an empty backend id: local jobs are addressed by their own
// job id and picked up from the shared queue by the worker pool.
func (c *Client) Submit(ctx context.Context, kind domain.JobKind, payload domain.JobPayload) (string, error) {
	return "", nil
}

// Poll reads the job row the worker pool mutates. The native vocabulary of
// the local backend is already the unified one.
func (c *Client) Poll(ctx context.Context, kind domain.JobKind, providerJobID string) (*providers.PollResult, error) {
	job, err := c.jobs.GetByID(ctx, providerJobID)
	if err != nil {
		return nil, err
	}
	res := &providers.PollResult{
		NativeStatus: string(job.Status),
		Progress:     job.Progress,
		ErrorMessage: job.ErrorMessage,
	}
	return res, nil
}

var _ providers.Client = (*Client)(nil)
