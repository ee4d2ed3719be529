// Package webhook delivers completion notifications to caller-supplied URLs.
// Delivery is best-effort: failures are logged, never surfaced, and never
// block the request that triggered them.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"renderq/internal/infra"
)

// SecretHeader carries the shared secret on outbound and inbound webhooks.
const SecretHeader = "X-Webhook-Secret"

// JobPayload is the body POSTed for a single job's terminal transition.
type JobPayload struct {
	JobID     string          `json:"jobId"`
	Status    string          `json:"status"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// BatchPayload is the body POSTed once a batch's aggregate status turns terminal.
type BatchPayload struct {
	BatchID        string            `json:"batchId"`
	Status         string            `json:"status"`
	TotalJobs      int               `json:"totalJobs"`
	SuccessfulJobs int               `json:"successfulJobs"`
	FailedJobs     int               `json:"failedJobs"`
	Results        []json.RawMessage `json:"results"`
	Timestamp      time.Time         `json:"timestamp"`
}

type Dispatcher struct {
	httpClient *http.Client
	secret     string
	logger     zerolog.Logger
	metrics    *infra.Metrics
}

type Options struct {
	Secret     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     zerolog.Logger
	Metrics    *infra.Metrics
}

func NewDispatcher(opts Options) *Dispatcher {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Dispatcher{
		httpClient: client,
		secret:     opts.Secret,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
	}
}

// Send POSTs the payload as JSON. It returns whether delivery succeeded so
// callers that keep their own single-delivery guard can log the outcome, but
// it never returns an error: webhook failure must not fail a status read.
func (d *Dispatcher) Send(ctx context.Context, url string, payload any) bool {
	if url == "" {
		return false
	}
	body, err := json.Marshal(payload)
	if err != nil {
		d.logger.Error().Err(err).Str("url", url).Msg("webhook: encode payload failed")
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		d.logger.Error().Err(err).Str("url", url).Msg("webhook: build request failed")
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	if d.secret != "" {
		req.Header.Set(SecretHeader, d.secret)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		d.logger.Error().Err(err).Str("url", url).Msg("webhook: delivery failed")
		d.count("error")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		d.logger.Error().Int("status", resp.StatusCode).Str("url", url).Msg("webhook: non-2xx response")
		d.count("rejected")
		return false
	}
	d.logger.Info().Str("url", url).Msg("webhook: delivered")
	d.count("delivered")
	return true
}

func (d *Dispatcher) count(outcome string) {
	if d.metrics != nil {
		d.metrics.WebhookDeliveries.WithLabelValues(outcome).Inc()
	}
}
