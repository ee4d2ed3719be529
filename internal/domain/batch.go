package domain

import "time"

// BatchStatus enumerates the aggregate states of a batch. It is computed
// from the member jobs at read time until the aggregate turns terminal, at
// which point it is frozen onto the batch row.
type BatchStatus string

const (
	BatchStatusPending        BatchStatus = "pending"
	BatchStatusProcessing     BatchStatus = "processing"
	BatchStatusCompleted      BatchStatus = "completed"
	BatchStatusPartialFailure BatchStatus = "partial_failure"
)

// Terminal reports whether the aggregate status is terminal.
func (s BatchStatus) Terminal() bool {
	return s == BatchStatusCompleted || s == BatchStatusPartialFailure
}

// Batch aggregates a fixed set of jobs submitted together. JobIDs is set at
// creation and never mutated; WebhookSent guards single delivery of the
// batch-completion webhook. FinalStatus and the member counts are frozen when
// CompletedAt is stamped, so the aggregate stays stable after member job rows
// age out of retention.
type Batch struct {
	ID            string
	JobIDs        []string
	TotalJobs     int
	WebhookURL    string
	WebhookSent   bool
	FinalStatus   BatchStatus
	CompletedJobs int
	FailedJobs    int
	CreatedAt     time.Time
	CompletedAt   *time.Time
}

// AggregateStatus derives the batch status from member job counts.
func AggregateStatus(total, finished, failed int) BatchStatus {
	switch {
	case finished == 0:
		return BatchStatusPending
	case finished < total:
		return BatchStatusProcessing
	case failed > 0:
		return BatchStatusPartialFailure
	default:
		return BatchStatusCompleted
	}
}
