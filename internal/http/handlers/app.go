package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"renderq/internal/batch"
	"renderq/internal/infra"
	"renderq/internal/queue"
	"renderq/internal/reconcile"
)

type App struct {
	Jobs       *queue.Service
	Reconciler *reconcile.Service
	Batches    *batch.Service
	Validate   *validator.Validate
	Logger     infra.Logger
}

func NewApp(jobs *queue.Service, reconciler *reconcile.Service, batches *batch.Service, logger infra.Logger) *App {
	return &App{
		Jobs:       jobs,
		Reconciler: reconciler,
		Batches:    batches,
		Validate:   validator.New(validator.WithRequiredStructEnabled()),
		Logger:     logger,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, slug, msg string) {
	a.json(w, code, map[string]string{"error": slug, "message": msg})
}
