package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"renderq/internal/adapter/repo"
	"renderq/internal/batch"
	"renderq/internal/http/handlers"
	httpapi "renderq/internal/http/httpapi"
	"renderq/internal/infra"
	"renderq/internal/providers"
	"renderq/internal/providers/fal"
	"renderq/internal/providers/local"
	"renderq/internal/providers/runpod"
	"renderq/internal/queue"
	"renderq/internal/reconcile"
	"renderq/internal/storage"
	"renderq/internal/webhook"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)
	if err := repo.EnsureSchema(ctx, runner); err != nil {
		logger.Fatal().Err(err).Msg("failed to apply schema")
	}

	jobs := repo.NewJobRepository(runner)
	batches := repo.NewBatchRepository(runner)
	metrics := infra.NewMetrics()

	objects, err := newObjectStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure object storage")
	}

	clients := []providers.Client{
		local.NewClient(jobs),
		runpod.NewClient(runpod.Options{
			BaseURL:   cfg.RunpodBaseURL,
			APIKey:    cfg.RunpodAPIKey,
			Endpoints: cfg.RunpodEndpoints,
		}),
		fal.NewClient(fal.Options{
			BaseURL: cfg.FalBaseURL,
			APIKey:  cfg.FalAPIKey,
		}),
	}
	policy := providers.NewPolicy(clients, nil)

	hooks := webhook.NewDispatcher(webhook.Options{
		Secret:  cfg.WebhookSecret,
		Timeout: cfg.WebhookTimeout,
		Logger:  logger,
		Metrics: metrics,
	})

	reconciler := reconcile.NewService(reconcile.Options{
		Jobs:    jobs,
		Policy:  policy,
		Objects: objects,
		Hooks:   hooks,
		Logger:  logger,
		Metrics: metrics,
	})
	submitter := queue.NewService(queue.ServiceOptions{
		Jobs:        jobs,
		Policy:      policy,
		Reconciler:  reconciler,
		Logger:      logger,
		Metrics:     metrics,
		MaxAttempts: cfg.SubmitMaxAttempts,
		BackoffBase: cfg.RetryBackoffBase,
	})
	batchSvc := batch.NewService(batches, reconciler, hooks, logger)

	app := handlers.NewApp(submitter, reconciler, batchSvc, logger)
	router := httpapi.NewRouter(app, cfg, logger)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on %s", server.Addr())
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

func newObjectStore(ctx context.Context, cfg *infra.Config) (storage.ObjectStore, error) {
	if cfg.UseR2() {
		return storage.NewR2Store(ctx, storage.R2Options{
			Endpoint:  cfg.R2Endpoint,
			AccessKey: cfg.R2AccessKey,
			SecretKey: cfg.R2SecretKey,
			Bucket:    cfg.R2Bucket,
			PublicURL: cfg.R2PublicURL,
		})
	}
	return storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
}
