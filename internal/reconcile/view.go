package reconcile

import (
	"time"

	"renderq/internal/domain"
)

// StatusView is the unified status contract returned to clients regardless
// of which backend performed the work.
type StatusView struct {
	JobID     string            `json:"jobId"`
	Status    domain.JobStatus  `json:"status"`
	CreatedAt time.Time         `json:"createdAt"`
	Progress  *int              `json:"progress,omitempty"`
	StartedAt *time.Time        `json:"startedAt,omitempty"`
	Result    *domain.JobResult `json:"result,omitempty"`
	Error     string            `json:"error,omitempty"`
	FailedAt  *time.Time        `json:"failedAt,omitempty"`
}

// snapshotView renders a terminal job from its stored fields only, so every
// poll after finalization returns an identical payload.
func snapshotView(job *domain.Job) (*StatusView, error) {
	view := &StatusView{
		JobID:     job.ID,
		Status:    job.Status,
		CreatedAt: job.CreatedAt,
	}
	switch job.Status {
	case domain.JobStatusCompleted:
		result, err := job.UnifiedResult()
		if err != nil {
			return nil, err
		}
		view.Result = result
	case domain.JobStatusFailed:
		view.Error = job.ErrorMessage
		view.FailedAt = job.TerminalAt
	}
	return view, nil
}

// transientView renders a non-terminal observation. Progress numbers are
// informational only and never persisted as the job's permanent state.
func transientView(job *domain.Job, status domain.JobStatus, progress int) *StatusView {
	view := &StatusView{
		JobID:     job.ID,
		Status:    status,
		CreatedAt: job.CreatedAt,
	}
	if status == domain.JobStatusProcessing {
		view.Progress = &progress
		started := job.UpdatedAt
		view.StartedAt = &started
	}
	return view
}
