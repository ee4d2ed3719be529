// Package runpod implements the provider client for RunPod serverless
// endpoints. Each job kind maps to a deployment-configured endpoint id.
package runpod

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"renderq/internal/domain"
	"renderq/internal/providers"
)

type Options struct {
	BaseURL    string
	APIKey     string
	Endpoints  map[string]string
	HTTPClient *http.Client
	Timeout    time.Duration
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	endpoints  map[string]string
}

func NewClient(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://api.runpod.ai"
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	endpoints := opts.Endpoints
	if endpoints == nil {
		endpoints = map[string]string{}
	}
	return &Client{
		httpClient: client,
		baseURL:    base,
		token:      strings.TrimSpace(opts.APIKey),
		endpoints:  endpoints,
	}
}

func (c *Client) Name() domain.Provider {
	return domain.ProviderRunpod
}

func (c *Client) IsConfigured(kind domain.JobKind) bool {
	return c.token != "" && c.endpoints[string(kind)] != ""
}

type runInput struct {
	Prompt   string `json:"prompt,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
	AudioURL string `json:"audioUrl,omitempty"`
	VideoURL string `json:"videoUrl,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	Seed     *int   `json:"seed,omitempty"`
}

type runRequest struct {
	Input runInput `json:"input"`
}

type runResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error"`
}

// statusOutput mirrors the fields of the serverless handler result this
// service consumes. A handler may return a retrievable url or embed the
// artifact as base64; it may also report an in-band error on a COMPLETED
// envelope.
type statusOutput struct {
	URL              string `json:"url"`
	Base64           string `json:"base64"`
	ContentType      string `json:"contentType"`
	FileSizeBytes    int64  `json:"fileSizeBytes"`
	Width            int    `json:"width"`
	Height           int    `json:"height"`
	DurationMs       int64  `json:"durationMs"`
	ProcessingTimeMs int64  `json:"processingTimeMs"`
	Error            string `json:"error"`
}

type statusResponse struct {
	ID     string        `json:"id"`
	Status string        `json:"status"`
	Output *statusOutput `json:"output"`
	Error  string        `json:"error"`
}

func (c *Client) Submit(ctx context.Context, kind domain.JobKind, payload domain.JobPayload) (string, error) {
	endpoint, ok := c.endpoints[string(kind)]
	if !ok || c.token == "" {
		return "", fmt.Errorf("runpod kind %s: %w", kind, domain.ErrProviderUnavailable)
	}
	body, err := json.Marshal(runRequest{Input: runInput{
		Prompt:   payload.Prompt,
		ImageURL: payload.ImageURL,
		AudioURL: payload.AudioURL,
		VideoURL: payload.VideoURL,
		Width:    payload.Width,
		Height:   payload.Height,
		Seed:     payload.Seed,
	}})
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("%s/v2/%s/run", c.baseURL, endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("runpod submit: %w", err)
	}
	defer resp.Body.Close()

	var out runResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return "", fmt.Errorf("runpod: http %d: %w", resp.StatusCode, domain.ErrProviderRejected)
		}
		return "", err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		if out.Error != "" {
			return "", fmt.Errorf("runpod: %s: %w", out.Error, domain.ErrProviderRejected)
		}
		return "", fmt.Errorf("runpod: http %d: %w", resp.StatusCode, domain.ErrProviderRejected)
	}
	if out.ID == "" {
		return "", fmt.Errorf("runpod: missing job id: %w", domain.ErrProviderRejected)
	}
	return out.ID, nil
}

func (c *Client) Poll(ctx context.Context, kind domain.JobKind, providerJobID string) (*providers.PollResult, error) {
	endpoint, ok := c.endpoints[string(kind)]
	if !ok || c.token == "" {
		return nil, fmt.Errorf("runpod kind %s: %w", kind, domain.ErrProviderUnavailable)
	}
	url := fmt.Sprintf("%s/v2/%s/status/%s", c.baseURL, endpoint, providerJobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("runpod poll: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("runpod poll: http %d", resp.StatusCode)
	}

	var out statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("runpod poll: decode: %w", err)
	}

	res := &providers.PollResult{
		NativeStatus: out.Status,
		ErrorMessage: out.Error,
	}
	if out.Output != nil {
		if out.Output.Error != "" {
			// Handlers report inference failures in-band on a COMPLETED envelope.
			res.ErrorMessage = out.Output.Error
		} else {
			res.Output = &providers.Output{
				URL:              out.Output.URL,
				Base64Data:       out.Output.Base64,
				ContentType:      out.Output.ContentType,
				FileSizeBytes:    out.Output.FileSizeBytes,
				Width:            out.Output.Width,
				Height:           out.Output.Height,
				DurationMs:       out.Output.DurationMs,
				ProcessingTimeMs: out.Output.ProcessingTimeMs,
			}
		}
	}
	return res, nil
}

var _ providers.Client = (*Client)(nil)
