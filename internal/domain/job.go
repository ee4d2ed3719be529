package domain

import (
	"encoding/json"
	"time"
)

// JobKind enumerates supported generation job categories.
type JobKind string

const (
	JobKindConvert     JobKind = "convert"
	JobKindLipSync     JobKind = "lipsync"
	JobKindTextToImage JobKind = "text_to_image"
	JobKindAvatarVideo JobKind = "avatar_video"
)

// Valid reports whether the kind is one of the supported categories.
func (k JobKind) Valid() bool {
	switch k {
	case JobKindConvert, JobKindLipSync, JobKindTextToImage, JobKindAvatarVideo:
		return true
	}
	return false
}

// Provider identifies the execution backend that owns a job. It is chosen
// once at creation time by the failover policy and never changes afterwards;
// Provider plus ProviderJobID addresses the job in exactly one backend.
type Provider string

const (
	ProviderLocal  Provider = "local"
	ProviderRunpod Provider = "runpod"
	ProviderFal    Provider = "fal"
)

// JobStatus enumerates the unified lifecycle states exposed to clients.
// Provider-native vocabularies are normalized into this set by the reconciler.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status is a terminal state.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// JobPayload carries the kind-specific input parameters. Write-once at
// creation; only bookkeeping fields on the Job itself mutate later.
type JobPayload struct {
	Prompt      string  `json:"prompt,omitempty"`
	InputURL    string  `json:"input_url,omitempty"`
	ImageURL    string  `json:"image_url,omitempty"`
	VideoURL    string  `json:"video_url,omitempty"`
	AudioURL    string  `json:"audio_url,omitempty"`
	Format      string  `json:"format,omitempty"`
	Width       int     `json:"width,omitempty"`
	Height      int     `json:"height,omitempty"`
	DurationSec float64 `json:"duration_sec,omitempty"`
	Seed        *int    `json:"seed,omitempty"`
}

// JobResult is the unified completed-result contract.
type JobResult struct {
	URL              string `json:"url"`
	ContentType      string `json:"contentType"`
	FileSizeBytes    int64  `json:"fileSizeBytes"`
	DurationMs       int64  `json:"durationMs,omitempty"`
	Width            int    `json:"width"`
	Height           int    `json:"height"`
	ProcessingTimeMs int64  `json:"processingTimeMs"`
}

// Job encapsulates the lifecycle of a single generation request.
//
// Terminal fields (Status, Result, ErrorMessage, TerminalAt) are set exactly
// once via a conditional write. CachedResultURL is a fill-once cache for
// results that need out-of-band materialization.
type Job struct {
	ID              string
	Kind            JobKind
	Provider        Provider
	ProviderJobID   string
	Status          JobStatus
	Payload         JobPayload
	Progress        int
	Attempts        int
	NextRetryAt     time.Time
	WebhookURL      string
	CachedResultURL string
	Result          json.RawMessage
	ErrorMessage    string
	TerminalAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Terminal reports whether the job has been finalized.
func (j *Job) Terminal() bool {
	return j.TerminalAt != nil
}

// UnifiedResult decodes the stored terminal result, if any.
func (j *Job) UnifiedResult() (*JobResult, error) {
	if len(j.Result) == 0 {
		return nil, nil
	}
	var res JobResult
	if err := json.Unmarshal(j.Result, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
