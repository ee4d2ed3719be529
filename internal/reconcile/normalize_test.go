package reconcile

import (
	"testing"

	"renderq/internal/domain"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		provider domain.Provider
		native   string
		want     domain.JobStatus
	}{
		{"runpod in_queue", domain.ProviderRunpod, "IN_QUEUE", domain.JobStatusQueued},
		{"runpod in_progress", domain.ProviderRunpod, "IN_PROGRESS", domain.JobStatusProcessing},
		{"runpod completed", domain.ProviderRunpod, "COMPLETED", domain.JobStatusCompleted},
		{"runpod failed", domain.ProviderRunpod, "FAILED", domain.JobStatusFailed},
		{"runpod cancelled", domain.ProviderRunpod, "CANCELLED", domain.JobStatusFailed},
		{"runpod timed_out", domain.ProviderRunpod, "TIMED_OUT", domain.JobStatusFailed},
		{"runpod unknown", domain.ProviderRunpod, "PAUSED", domain.JobStatusProcessing},
		{"fal pending", domain.ProviderFal, "pending", domain.JobStatusQueued},
		{"fal processing", domain.ProviderFal, "processing", domain.JobStatusProcessing},
		{"fal completed", domain.ProviderFal, "completed", domain.JobStatusCompleted},
		{"fal failed", domain.ProviderFal, "failed", domain.JobStatusFailed},
		{"fal unknown", domain.ProviderFal, "queued_elsewhere", domain.JobStatusProcessing},
		{"local queued", domain.ProviderLocal, "queued", domain.JobStatusQueued},
		{"local completed", domain.ProviderLocal, "completed", domain.JobStatusCompleted},
		{"unknown provider", domain.Provider("other"), "COMPLETED", domain.JobStatusProcessing},
		{"empty status", domain.ProviderRunpod, "", domain.JobStatusProcessing},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.provider, tc.native); got != tc.want {
				t.Fatalf("Normalize(%s, %q) = %s, want %s", tc.provider, tc.native, got, tc.want)
			}
		})
	}
}
