package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"renderq/internal/adapter/repo/memory"
	"renderq/internal/batch"
	"renderq/internal/domain"
	"renderq/internal/providers"
	"renderq/internal/queue"
	"renderq/internal/reconcile"
	"renderq/internal/webhook"
)

type fakeBackend struct {
	name   domain.Provider
	status string
	output *providers.Output
}

func (b *fakeBackend) Name() domain.Provider            { return b.name }
func (b *fakeBackend) IsConfigured(domain.JobKind) bool { return true }

func (b *fakeBackend) Submit(context.Context, domain.JobKind, domain.JobPayload) (string, error) {
	return "native-1", nil
}

func (b *fakeBackend) Poll(context.Context, domain.JobKind, string) (*providers.PollResult, error) {
	return &providers.PollResult{NativeStatus: b.status, Output: b.output}, nil
}

type discardStore struct{}

func (discardStore) Upload(_ context.Context, key string, _ []byte, _ string) (string, error) {
	return "https://cdn.example.com/" + key, nil
}

func newTestApp(t *testing.T) (*App, *fakeBackend) {
	t.Helper()
	jobs := memory.NewJobStore()
	batches := memory.NewBatchStore()
	backend := &fakeBackend{name: domain.ProviderRunpod, status: "IN_QUEUE"}
	policy := providers.NewPolicy([]providers.Client{backend}, nil)
	hooks := webhook.NewDispatcher(webhook.Options{Secret: "s", Logger: zerolog.Nop()})
	reconciler := reconcile.NewService(reconcile.Options{
		Jobs:    jobs,
		Policy:  policy,
		Objects: discardStore{},
		Hooks:   hooks,
		Logger:  zerolog.Nop(),
	})
	submitter := queue.NewService(queue.ServiceOptions{
		Jobs:        jobs,
		Policy:      policy,
		Reconciler:  reconciler,
		Logger:      zerolog.Nop(),
		MaxAttempts: 1,
		BackoffBase: time.Millisecond,
	})
	batchSvc := batch.NewService(batches, reconciler, hooks, zerolog.Nop())
	return NewApp(submitter, reconciler, batchSvc, zerolog.Nop()), backend
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	handler(rec, req)
	return rec
}

func getWithParam(handler http.HandlerFunc, path, param, value string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(param, value)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	handler(rec, req)
	return rec
}

func TestJobsCreateAccepted(t *testing.T) {
	app, _ := newTestApp(t)

	rec := postJSON(t, app.JobsCreate, "/v1/jobs", map[string]any{
		"kind":    "text_to_image",
		"payload": map[string]any{"prompt": "a red fox"},
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("code = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp jobCreateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.JobID == "" || resp.Status != "queued" {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Provider != "runpod" {
		t.Fatalf("provider = %q", resp.Provider)
	}
}

func TestJobsCreateRejectsBadRequests(t *testing.T) {
	app, _ := newTestApp(t)

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"missing kind", map[string]any{"payload": map[string]any{}}, http.StatusBadRequest},
		{"unknown kind", map[string]any{"kind": "teleport"}, http.StatusBadRequest},
		{"bad webhook url", map[string]any{"kind": "text_to_image", "webhookUrl": "not a url"}, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(t, app.JobsCreate, "/v1/jobs", tc.body)
			if rec.Code != tc.want {
				t.Fatalf("code = %d, want %d, body = %s", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestJobsCreateNoProviderIs503(t *testing.T) {
	app, _ := newTestApp(t)

	// Convert is local-only and the test app registers no local backend.
	rec := postJSON(t, app.JobsCreate, "/v1/jobs", map[string]any{
		"kind":    "convert",
		"payload": map[string]any{"input_url": "https://example.com/in.webm"},
	})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("code = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestJobStatusLifecycle(t *testing.T) {
	app, backend := newTestApp(t)

	rec := postJSON(t, app.JobsCreate, "/v1/jobs", map[string]any{
		"kind":    "text_to_image",
		"payload": map[string]any{"prompt": "x"},
	})
	var created jobCreateResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &created)

	rec = getWithParam(app.JobStatus, "/v1/jobs/"+created.JobID, "job_id", created.JobID)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	var view map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &view)
	if view["status"] != "queued" {
		t.Fatalf("status = %v", view["status"])
	}

	backend.status = "COMPLETED"
	backend.output = &providers.Output{URL: "https://vendor.example.com/out.png", ContentType: "image/png"}
	rec = getWithParam(app.JobStatus, "/v1/jobs/"+created.JobID, "job_id", created.JobID)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	view = nil
	_ = json.Unmarshal(rec.Body.Bytes(), &view)
	if view["status"] != "completed" {
		t.Fatalf("status = %v", view["status"])
	}
	if view["result"] == nil {
		t.Fatalf("missing result: %s", rec.Body.String())
	}
}

func TestJobStatusNotFound(t *testing.T) {
	app, _ := newTestApp(t)
	rec := getWithParam(app.JobStatus, "/v1/jobs/nope", "job_id", "nope")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("code = %d", rec.Code)
	}
}
