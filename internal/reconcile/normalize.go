package reconcile

import "renderq/internal/domain"

// Native provider vocabularies are not congruent: runpod distinguishes
// cancellation and timeout, fal has no cancelled state at all, and the local
// backend already speaks the unified vocabulary. Each backend therefore gets
// its own explicit mapping table; an unknown native status is treated as
// processing so a vendor adding states never strands a job in a fake
// terminal state.

var runpodStatuses = map[string]domain.JobStatus{
	"IN_QUEUE":    domain.JobStatusQueued,
	"IN_PROGRESS": domain.JobStatusProcessing,
	"COMPLETED":   domain.JobStatusCompleted,
	"FAILED":      domain.JobStatusFailed,
	"CANCELLED":   domain.JobStatusFailed,
	"TIMED_OUT":   domain.JobStatusFailed,
}

var falStatuses = map[string]domain.JobStatus{
	"pending":    domain.JobStatusQueued,
	"processing": domain.JobStatusProcessing,
	"completed":  domain.JobStatusCompleted,
	"failed":     domain.JobStatusFailed,
}

var localStatuses = map[string]domain.JobStatus{
	"queued":     domain.JobStatusQueued,
	"processing": domain.JobStatusProcessing,
	"completed":  domain.JobStatusCompleted,
	"failed":     domain.JobStatusFailed,
}

// Normalize maps a provider-native status string into the unified vocabulary.
func Normalize(provider domain.Provider, native string) domain.JobStatus {
	var table map[string]domain.JobStatus
	switch provider {
	case domain.ProviderRunpod:
		table = runpodStatuses
	case domain.ProviderFal:
		table = falStatuses
	case domain.ProviderLocal:
		table = localStatuses
	}
	if status, ok := table[native]; ok {
		return status
	}
	return domain.JobStatusProcessing
}
