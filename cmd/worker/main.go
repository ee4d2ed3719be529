package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"renderq/internal/adapter/repo"
	"renderq/internal/infra"
	"renderq/internal/providers"
	"renderq/internal/providers/fal"
	"renderq/internal/providers/local"
	"renderq/internal/providers/runpod"
	"renderq/internal/queue"
	"renderq/internal/reconcile"
	"renderq/internal/storage"
	"renderq/internal/uploadcache"
	"renderq/internal/webhook"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)
	if err := repo.EnsureSchema(ctx, runner); err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to apply schema")
	}

	jobs := repo.NewJobRepository(runner)
	batches := repo.NewBatchRepository(runner)
	metrics := infra.NewMetrics()

	objects, err := newObjectStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: invalid redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	uploads := uploadcache.New(uploadcache.Options{
		Store:   uploadcache.NewRedisStore(redisClient),
		Objects: objects,
		TTL:     cfg.UploadCacheTTL,
		Logger:  logger,
		Metrics: metrics,
	})

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

	encoder, err := queue.NewFFmpegEncoder("", os.TempDir())
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure encoder")
	}

	gc := queue.NewGC(queue.GCOptions{
		Jobs:               jobs,
		Batches:            batches,
		Logger:             logger,
		CompletedRetention: cfg.CompletedRetention,
		FailedRetention:    cfg.FailedRetention,
		KeepPerStatus:      cfg.RetainedPerStatus,
		StaleClaimAfter:    cfg.StaleClaimAfter,
		AbandonedRetention: cfg.AbandonedRetention,
	})
	scheduler := cron.New()
	if err := gc.Schedule(scheduler, cfg.GCSchedule); err != nil {
		logger.Fatal().Err(err).Msg("worker: invalid gc schedule")
	}
	scheduler.Start()
	defer scheduler.Stop()

	workerCount := cfg.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
	}
	logger.Info().Int("workers", workerCount).Msg("worker: starting")

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		w := queue.NewWorker(queue.WorkerOptions{
			Jobs:        jobs,
			Encoder:     encoder,
			Uploads:     uploads,
			Reconciler:  reconciler,
			Logger:      logger.With().Int("worker", i).Logger(),
			MaxAttempts: cfg.JobMaxAttempts,
			BackoffBase: cfg.RetryBackoffBase,
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Msg("worker: loop stopped")
			}
		}()
	}

	<-ctx.Done()
	wg.Wait()
	logger.Info().Msg("worker: stopped")
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
