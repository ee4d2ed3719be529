// Package providers defines the capability surface shared by all execution
// backends and the policy that picks one at submission time.
package providers

import (
	"context"

	"renderq/internal/domain"
)

// Output is the backend-reported result of a finished job. Exactly one of
// URL and Base64Data is set: some backends return a retrievable URL, others
// embed the binary payload and require materialization.
type Output struct {
	URL              string
	Base64Data       string
	ContentType      string
	FileSizeBytes    int64
	Width            int
	Height           int
	DurationMs       int64
	ProcessingTimeMs int64
}

// PollResult carries a backend's native view of a job. NativeStatus is in
// the backend's own vocabulary; the reconciler normalizes it.
type PollResult struct {
	NativeStatus string
	Progress     int
	Output       *Output
	ErrorMessage string
}

// Client is the capability surface implemented once per backend.
//
// Submit returns domain.ErrProviderUnavailable when the backend is not
// configured and domain.ErrProviderRejected when it refuses the job. Errors
// from Poll are always transient: a failed poll never finalizes a job.
type Client interface {
	Name() domain.Provider
	IsConfigured(kind domain.JobKind) bool
	Submit(ctx context.Context, kind domain.JobKind, payload domain.JobPayload) (string, error)
	Poll(ctx context.Context, kind domain.JobKind, providerJobID string) (*PollResult, error)
}
