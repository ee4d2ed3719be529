package fal

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
	return NewClient(Options{BaseURL: srv.URL, APIKey: "fal-key"})
}

func TestSubmit(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]string{"request_id": "req-9"})
	})

	id, err := c.Submit(context.Background(), domain.JobKindLipSync, domain.JobPayload{
		VideoURL: "https://example.com/in.mp4",
		AudioURL: "https://example.com/voice.mp3",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if id != "req-9" {
		t.Fatalf("id = %q", id)
	}
	if gotPath != "/fal-ai/sync-lipsync" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotAuth != "Key fal-key" {
		t.Fatalf("auth = %q", gotAuth)
	}
	if gotBody["video_url"] != "https://example.com/in.mp4" {
		t.Fatalf("video_url = %v", gotBody["video_url"])
	}
}

func TestSubmitRejected(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "audio_url is required"})
	})

	_, err := c.Submit(context.Background(), domain.JobKindLipSync, domain.JobPayload{})
	if !errors.Is(err, domain.ErrProviderRejected) {
		t.Fatalf("err = %v, want ErrProviderRejected", err)
	}
}

func TestSubmitUnsupportedKind(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	// The local conversion kind has no fal route.
	_, err := c.Submit(context.Background(), domain.JobKindConvert, domain.JobPayload{})
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("err = %v, want ErrProviderUnavailable", err)
	}
}

func TestIsConfigured(t *testing.T) {
	withKey := NewClient(Options{APIKey: "k"})
	if !withKey.IsConfigured(domain.JobKindTextToImage) {
		t.Fatal("text_to_image should be configured with an api key")
	}
	if withKey.IsConfigured(domain.JobKindConvert) {
		t.Fatal("convert has no fal route")
	}
	withoutKey := NewClient(Options{})
	if withoutKey.IsConfigured(domain.JobKindTextToImage) {
		t.Fatal("no api key means not configured")
	}
}

func TestPollCompleted(t *testing.T) {
	var gotPath string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "completed",
			"output": map[string]any{
				"url":          "https://fal.media/out.mp4",
				"content_type": "video/mp4",
				"file_size":    1024,
				"duration_ms":  4200,
			},
		})
	})

	res, err := c.Poll(context.Background(), domain.JobKindLipSync, "req-9")
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if gotPath != "/fal-ai/sync-lipsync/requests/req-9/status" {
		t.Fatalf("path = %q", gotPath)
	}
	if res.NativeStatus != "completed" {
		t.Fatalf("status = %q", res.NativeStatus)
	}
	if res.Output == nil || res.Output.URL != "https://fal.media/out.mp4" {
		t.Fatalf("output = %+v", res.Output)
	}
	if res.Output.DurationMs != 4200 {
		t.Fatalf("duration = %d", res.Output.DurationMs)
	}
}

func TestPollFailed(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "failed",
			"error":  "model crashed",
		})
	})

	res, err := c.Poll(context.Background(), domain.JobKindTextToImage, "req-9")
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if res.NativeStatus != "failed" || res.ErrorMessage != "model crashed" {
		t.Fatalf("res = %+v", res)
	}
}
