package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"renderq/internal/domain"
)

type jobCreateRequest struct {
	Kind       string            `json:"kind" validate:"required"`
	Provider   string            `json:"provider"`
	WebhookURL string            `json:"webhookUrl" validate:"omitempty,url"`
	Payload    domain.JobPayload `json:"payload"`
}

type jobCreateResponse struct {
	JobID    string `json:"jobId"`
	Status   string `json:"status"`
	Provider string `json:"provider"`
}

func (a *App) JobsCreate(w http.ResponseWriter, r *http.Request) {
	var req jobCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := a.Validate.Struct(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	kind := domain.JobKind(req.Kind)
	if !kind.Valid() {
		a.error(w, http.StatusBadRequest, "bad_request", "unsupported kind")
		return
	}

	job, err := a.Jobs.Submit(r.Context(), kind, req.Payload, domain.Provider(req.Provider), req.WebhookURL)
	switch {
	case errors.Is(err, domain.ErrValidation):
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	case errors.Is(err, domain.ErrProviderUnavailable):
		a.error(w, http.StatusServiceUnavailable, "provider_unavailable", "no configured provider can run this job")
		return
	case errors.Is(err, domain.ErrProviderRejected):
		a.error(w, http.StatusBadGateway, "provider_rejected", "provider rejected the submission")
		return
	case err != nil:
		a.error(w, http.StatusInternalServerError, "internal", "failed to queue job")
		return
	}
	a.json(w, http.StatusAccepted, jobCreateResponse{
		JobID:    job.ID,
		Status:   string(job.Status),
		Provider: string(job.Provider),
	})
}

func (a *App) JobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}
	view, err := a.Reconciler.Status(r.Context(), jobID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "job not found")
		return
	case errors.Is(err, domain.ErrTransientPoll):
		a.error(w, http.StatusBadGateway, "provider_poll_failed", "provider status check failed, retry later")
		return
	case err != nil:
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job status")
		return
	}
	a.json(w, http.StatusOK, view)
}
