package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"renderq/internal/providers"
)

func TestBatchesCreateAndStatus(t *testing.T) {
	app, backend := newTestApp(t)

	rec := postJSON(t, app.BatchesCreate, "/v1/batches", map[string]any{
		"jobs": []map[string]any{
			{"kind": "text_to_image", "payload": map[string]any{"prompt": "a"}},
			{"kind": "text_to_image", "payload": map[string]any{"prompt": "b"}},
		},
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("code = %d, body = %s", rec.Code, rec.Body.String())
	}
	var created batchCreateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.TotalJobs != 2 || len(created.JobIDs) != 2 {
		t.Fatalf("resp = %+v", created)
	}

	backend.status = "COMPLETED"
	backend.output = &providers.Output{URL: "https://vendor.example.com/out.png", ContentType: "image/png"}

	rec = getWithParam(app.BatchStatus, "/v1/batches/"+created.BatchID, "batch_id", created.BatchID)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, body = %s", rec.Code, rec.Body.String())
	}
	var view map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &view)
	if view["status"] != "completed" {
		t.Fatalf("status = %v", view["status"])
	}
	if view["completedJobs"] != float64(2) {
		t.Fatalf("completedJobs = %v", view["completedJobs"])
	}
}

func TestBatchesCreateValidates(t *testing.T) {
	app, _ := newTestApp(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"empty jobs", map[string]any{"jobs": []map[string]any{}}},
		{"missing jobs", map[string]any{}},
		{"bad member kind", map[string]any{"jobs": []map[string]any{{"kind": "teleport"}}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(t, app.BatchesCreate, "/v1/batches", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("code = %d, body = %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestBatchStatusNotFound(t *testing.T) {
	app, _ := newTestApp(t)
	rec := getWithParam(app.BatchStatus, "/v1/batches/nope", "batch_id", "nope")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("code = %d", rec.Code)
	}
}

func TestWebhookJobUpdateForcesReconcile(t *testing.T) {
	app, backend := newTestApp(t)

	rec := postJSON(t, app.JobsCreate, "/v1/jobs", map[string]any{
		"kind":    "text_to_image",
		"payload": map[string]any{"prompt": "x"},
	})
	var created jobCreateResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &created)

	backend.status = "COMPLETED"
	backend.output = &providers.Output{URL: "https://vendor.example.com/out.png", ContentType: "image/png"}

	rec = postJSON(t, app.WebhookJobUpdate, "/v1/webhooks/jobs", map[string]any{"jobId": created.JobID})
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["status"] != "completed" {
		t.Fatalf("status = %q", resp["status"])
	}

	rec = postJSON(t, app.WebhookJobUpdate, "/v1/webhooks/jobs", map[string]any{"jobId": "missing"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("code = %d", rec.Code)
	}
}
