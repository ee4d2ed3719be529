package runpod

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"renderq/internal/domain"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Options{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Endpoints: map[string]string{
			"text_to_image": "ep-t2i",
			"lipsync":       "ep-lips",
		},
	})
}

func TestSubmit(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "run-123", "status": "IN_QUEUE"})
	})

	id, err := c.Submit(context.Background(), domain.JobKindTextToImage, domain.JobPayload{
		Prompt: "a red fox",
		Width:  512,
		Height: 512,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if id != "run-123" {
		t.Fatalf("id = %q", id)
	}
	if gotPath != "/v2/ep-t2i/run" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("auth = %q", gotAuth)
	}
	input, ok := gotBody["input"].(map[string]any)
	if !ok {
		t.Fatalf("body missing input envelope: %v", gotBody)
	}
	if input["prompt"] != "a red fox" {
		t.Fatalf("prompt = %v", input["prompt"])
	}
}

func TestSubmitRejected(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid input"})
	})

	_, err := c.Submit(context.Background(), domain.JobKindTextToImage, domain.JobPayload{})
	if !errors.Is(err, domain.ErrProviderRejected) {
		t.Fatalf("err = %v, want ErrProviderRejected", err)
	}
}

func TestSubmitUnconfiguredKind(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := c.Submit(context.Background(), domain.JobKindAvatarVideo, domain.JobPayload{})
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("err = %v, want ErrProviderUnavailable", err)
	}
}

func TestPollCompleted(t *testing.T) {
	var gotPath string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "run-123",
			"status": "COMPLETED",
			"output": map[string]any{
				"url":           "https://r2.example.com/out.png",
				"contentType":   "image/png",
				"fileSizeBytes": 2048,
				"width":         512,
				"height":        512,
			},
		})
	})

	res, err := c.Poll(context.Background(), domain.JobKindTextToImage, "run-123")
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if gotPath != "/v2/ep-t2i/status/run-123" {
		t.Fatalf("path = %q", gotPath)
	}
	if res.NativeStatus != "COMPLETED" {
		t.Fatalf("status = %q", res.NativeStatus)
	}
	if res.Output == nil || res.Output.URL != "https://r2.example.com/out.png" {
		t.Fatalf("output = %+v", res.Output)
	}
	if res.Output.FileSizeBytes != 2048 {
		t.Fatalf("size = %d", res.Output.FileSizeBytes)
	}
}

func TestPollInBandError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "run-123",
			"status": "COMPLETED",
			"output": map[string]any{"error": "CUDA out of memory"},
		})
	})

	res, err := c.Poll(context.Background(), domain.JobKindTextToImage, "run-123")
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if res.Output != nil {
		t.Fatalf("in-band error must not surface an output")
	}
	if res.ErrorMessage != "CUDA out of memory" {
		t.Fatalf("error = %q", res.ErrorMessage)
	}
}

func TestPollHTTPError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	if _, err := c.Poll(context.Background(), domain.JobKindTextToImage, "run-123"); err == nil {
		t.Fatal("expected error on http 502")
	}
}
