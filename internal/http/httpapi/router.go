package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"renderq/internal/http/handlers"
	"renderq/internal/infra"
	"renderq/internal/middleware"
)

func NewRouter(app *handlers.App, cfg *infra.Config, logger infra.Logger) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(logger),
	)
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(cfg.AllowedOrigins))
	}

	r.Get("/v1/healthz", app.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1/jobs", func(r chi.Router) {
		r.With(middleware.RateLimit(cfg.RateLimitPerMin, time.Minute)).Post("/", app.JobsCreate)
		r.Get("/{job_id}", app.JobStatus)
	})

	r.Route("/v1/batches", func(r chi.Router) {
		r.With(middleware.RateLimit(cfg.RateLimitPerMin, time.Minute)).Post("/", app.BatchesCreate)
		r.Get("/{batch_id}", app.BatchStatus)
	})

	r.Route("/v1/webhooks", func(r chi.Router) {
		r.Use(middleware.WebhookSecret(cfg.WebhookSecret))
		r.Post("/jobs", app.WebhookJobUpdate)
	})

	// Local store outputs are served straight off disk. With R2 configured
	// this route simply never matches anything the API hands out.
	if cfg.StoragePath != "" {
		fs := stdhttp.StripPrefix("/static/", stdhttp.FileServer(stdhttp.Dir(cfg.StoragePath)))
		r.Get("/static/*", fs.ServeHTTP)
	}

	return r
}
