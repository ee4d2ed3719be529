package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"renderq/internal/domain"
)

type vendorCallbackRequest struct {
	JobID string `json:"jobId" validate:"required"`
}

// WebhookJobUpdate receives vendor completion callbacks. The body is only a
// hint that the job moved: the authoritative state still comes from polling
// the provider, so the handler just forces a reconcile of the named job.
func (a *App) WebhookJobUpdate(w http.ResponseWriter, r *http.Request) {
	var req vendorCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := a.Validate.Struct(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	view, err := a.Reconciler.Status(r.Context(), req.JobID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "job not found")
		return
	case errors.Is(err, domain.ErrTransientPoll):
		// Vendor will retry the callback; acknowledge nothing happened yet.
		a.error(w, http.StatusBadGateway, "provider_poll_failed", "provider status check failed")
		return
	case err != nil:
		a.error(w, http.StatusInternalServerError, "internal", "failed to reconcile job")
		return
	}
	a.json(w, http.StatusOK, map[string]string{"jobId": view.JobID, "status": string(view.Status)})
}
