package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"renderq/internal/domain"
)

type batchCreateRequest struct {
	Jobs       []jobCreateRequest `json:"jobs" validate:"required,min=1,max=50,dive"`
	WebhookURL string             `json:"webhookUrl" validate:"omitempty,url"`
}

type batchCreateResponse struct {
	BatchID   string   `json:"batchId"`
	JobIDs    []string `json:"jobIds"`
	TotalJobs int      `json:"totalJobs"`
}

// BatchesCreate submits every member job first, then records the batch over
// the IDs that were accepted. A member whose submission fails synchronously
// fails the whole request before the batch row exists.
func (a *App) BatchesCreate(w http.ResponseWriter, r *http.Request) {
	var req batchCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := a.Validate.Struct(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	for i := range req.Jobs {
		if !domain.JobKind(req.Jobs[i].Kind).Valid() {
			a.error(w, http.StatusBadRequest, "bad_request", "unsupported kind")
			return
		}
	}

	jobIDs := make([]string, 0, len(req.Jobs))
	for _, item := range req.Jobs {
		job, err := a.Jobs.Submit(r.Context(), domain.JobKind(item.Kind), item.Payload, domain.Provider(item.Provider), item.WebhookURL)
		switch {
		case errors.Is(err, domain.ErrValidation):
			a.error(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		case errors.Is(err, domain.ErrProviderUnavailable):
			a.error(w, http.StatusServiceUnavailable, "provider_unavailable", "no configured provider can run this job")
			return
		case err != nil:
			a.error(w, http.StatusBadGateway, "provider_rejected", "member submission failed")
			return
		}
		jobIDs = append(jobIDs, job.ID)
	}

	created, err := a.Batches.Create(r.Context(), jobIDs, req.WebhookURL)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to record batch")
		return
	}
	a.json(w, http.StatusAccepted, batchCreateResponse{
		BatchID:   created.ID,
		JobIDs:    created.JobIDs,
		TotalJobs: created.TotalJobs,
	})
}

func (a *App) BatchStatus(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batch_id")
	if batchID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "batch_id required")
		return
	}
	view, err := a.Batches.Status(r.Context(), batchID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "batch not found")
		return
	case err != nil:
		a.error(w, http.StatusInternalServerError, "internal", "failed to load batch status")
		return
	}
	a.json(w, http.StatusOK, view)
}
