// Package fal implements the provider client for the fal.ai request queue.
package fal

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

// kindRoutes maps job kinds onto fal queue model routes.
var kindRoutes = map[domain.JobKind]string{
	domain.JobKindLipSync:     "fal-ai/sync-lipsync",
	domain.JobKindTextToImage: "fal-ai/flux/schnell",
	domain.JobKindAvatarVideo: "fal-ai/sadtalker",
}

type Options struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

func NewClient(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://queue.fal.run"
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{
		httpClient: client,
		baseURL:    base,
		token:      strings.TrimSpace(opts.APIKey),
	}
}

func (c *Client) Name() domain.Provider {
	return domain.ProviderFal
}

func (c *Client) IsConfigured(kind domain.JobKind) bool {
	_, ok := kindRoutes[kind]
	return c.token != "" && ok
}

type submitRequest struct {
	Prompt   string `json:"prompt,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	AudioURL string `json:"audio_url,omitempty"`
	VideoURL string `json:"video_url,omitempty"`
	Seed     *int   `json:"seed,omitempty"`
}

type submitResponse struct {
	RequestID string `json:"request_id"`
	Detail    string `json:"detail"`
}

type statusResponse struct {
	Status string `json:"status"`
	Output *struct {
		URL         string `json:"url"`
		ContentType string `json:"content_type"`
		FileSize    int64  `json:"file_size"`
		Width       int    `json:"width"`
		Height      int    `json:"height"`
		DurationMs  int64  `json:"duration_ms"`
	} `json:"output"`
	Error string `json:"error"`
}

func (c *Client) Submit(ctx context.Context, kind domain.JobKind, payload domain.JobPayload) (string, error) {
	route, ok := kindRoutes[kind]
	if !ok || c.token == "" {
		return "", fmt.Errorf("fal kind %s: %w", kind, domain.ErrProviderUnavailable)
	}
	body, err := json.Marshal(submitRequest{
		Prompt:   payload.Prompt,
		ImageURL: payload.ImageURL,
		AudioURL: payload.AudioURL,
		VideoURL: payload.VideoURL,
		Seed:     payload.Seed,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+route, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Key "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fal submit: %w", err)
	}
	defer resp.Body.Close()

	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return "", fmt.Errorf("fal: http %d: %w", resp.StatusCode, domain.ErrProviderRejected)
		}
		return "", err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		if out.Detail != "" {
			return "", fmt.Errorf("fal: %s: %w", out.Detail, domain.ErrProviderRejected)
		}
		return "", fmt.Errorf("fal: http %d: %w", resp.StatusCode, domain.ErrProviderRejected)
	}
	if out.RequestID == "" {
		return "", fmt.Errorf("fal: missing request id: %w", domain.ErrProviderRejected)
	}
	return out.RequestID, nil
}

func (c *Client) Poll(ctx context.Context, kind domain.JobKind, providerJobID string) (*providers.PollResult, error) {
	route, ok := kindRoutes[kind]
	if !ok || c.token == "" {
		return nil, fmt.Errorf("fal kind %s: %w", kind, domain.ErrProviderUnavailable)
	}
	url := fmt.Sprintf("%s/%s/requests/%s/status", c.baseURL, route, providerJobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Key "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fal poll: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("fal poll: http %d", resp.StatusCode)
	}

	var out statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("fal poll: decode: %w", err)
	}

	res := &providers.PollResult{
		NativeStatus: out.Status,
		ErrorMessage: out.Error,
	}
	if out.Output != nil {
		res.Output = &providers.Output{
			URL:           out.Output.URL,
			ContentType:   out.Output.ContentType,
			FileSizeBytes: out.Output.FileSize,
			Width:         out.Output.Width,
			Height:        out.Output.Height,
			DurationMs:    out.Output.DurationMs,
		}
	}
	return res, nil
}

var _ providers.Client = (*Client)(nil)
