package domain

import "testing"

func TestAggregateStatus(t *testing.T) {
	tests := []struct {
		name                    string
		total, finished, failed int
		want                    BatchStatus
	}{
		{"nothing finished", 3, 0, 0, BatchStatusPending},
		{"some finished", 3, 1, 0, BatchStatusProcessing},
		{"some finished with failure", 3, 2, 1, BatchStatusProcessing},
		{"all completed", 3, 3, 0, BatchStatusCompleted},
		{"all finished one failed", 3, 3, 1, BatchStatusPartialFailure},
		{"all failed", 3, 3, 3, BatchStatusPartialFailure},
		{"single job completed", 1, 1, 0, BatchStatusCompleted},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := AggregateStatus(tc.total, tc.finished, tc.failed); got != tc.want {
				t.Fatalf("AggregateStatus(%d, %d, %d) = %s, want %s", tc.total, tc.finished, tc.failed, got, tc.want)
			}
		})
	}
}

func TestBatchStatusTerminal(t *testing.T) {
	if BatchStatusPending.Terminal() || BatchStatusProcessing.Terminal() {
		t.Fatal("non-terminal statuses reported terminal")
	}
	if !BatchStatusCompleted.Terminal() || !BatchStatusPartialFailure.Terminal() {
		t.Fatal("terminal statuses reported non-terminal")
	}
}
