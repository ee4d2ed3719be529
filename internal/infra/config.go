package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	RedisURL       string
	UploadCacheTTL time.Duration

	StoragePath    string
	StorageBaseURL string
	R2Endpoint     string
	R2AccessKey    string
	R2SecretKey    string
	R2Bucket       string
	R2PublicURL    string

	RunpodAPIKey    string
	RunpodBaseURL   string
	RunpodEndpoints map[string]string
	FalAPIKey       string
	FalBaseURL      string

	WebhookSecret  string
	WebhookTimeout time.Duration

	WorkerCount        int
	SubmitMaxAttempts  int
	JobMaxAttempts     int
	RetryBackoffBase   time.Duration
	CompletedRetention time.Duration
	FailedRetention    time.Duration
	RetainedPerStatus  int
	StaleClaimAfter    time.Duration
	AbandonedRetention time.Duration
	GCSchedule         string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	AllowedOrigins   []string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379"),
		UploadCacheTTL: time.Hour * time.Duration(getEnvInt("UPLOAD_CACHE_TTL_HOURS", 24)),

		StoragePath:    getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL: getEnv("STORAGE_BASE_URL", "http://localhost:8080/static"),
		R2Endpoint:     os.Getenv("R2_ENDPOINT"),
		R2AccessKey:    os.Getenv("R2_ACCESS_KEY"),
		R2SecretKey:    os.Getenv("R2_SECRET_KEY"),
		R2Bucket:       getEnv("R2_BUCKET", "renderq-output"),
		R2PublicURL:    os.Getenv("R2_PUBLIC_URL"),

		RunpodAPIKey:    os.Getenv("RUNPOD_API_KEY"),
		RunpodBaseURL:   getEnv("RUNPOD_BASE_URL", "https://api.runpod.ai"),
		RunpodEndpoints: parseEndpointMap(os.Getenv("RUNPOD_ENDPOINTS")),
		FalAPIKey:       os.Getenv("FAL_API_KEY"),
		FalBaseURL:      getEnv("FAL_BASE_URL", "https://queue.fal.run"),

		WebhookSecret:  os.Getenv("WEBHOOK_SECRET"),
		WebhookTimeout: time.Second * time.Duration(getEnvInt("WEBHOOK_TIMEOUT_SECONDS", 10)),

		WorkerCount:        getEnvInt("WORKER_COUNT", 2),
		SubmitMaxAttempts:  getEnvInt("SUBMIT_MAX_ATTEMPTS", 3),
		JobMaxAttempts:     getEnvInt("JOB_MAX_ATTEMPTS", 3),
		RetryBackoffBase:   time.Second * time.Duration(getEnvInt("RETRY_BACKOFF_BASE_SECONDS", 5)),
		CompletedRetention: time.Hour * time.Duration(getEnvInt("COMPLETED_RETENTION_HOURS", 24)),
		FailedRetention:    time.Hour * time.Duration(getEnvInt("FAILED_RETENTION_HOURS", 72)),
		RetainedPerStatus:  getEnvInt("RETAINED_PER_STATUS", 1000),
		StaleClaimAfter:    time.Minute * time.Duration(getEnvInt("STALE_CLAIM_MINUTES", 30)),
		AbandonedRetention: time.Hour * time.Duration(getEnvInt("ABANDONED_RETENTION_HOURS", 168)),
		GCSchedule:         getEnv("GC_SCHEDULE", "@every 10m"),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		AllowedOrigins:   splitCSV(os.Getenv("CORS_ALLOWED_ORIGINS")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("WEBHOOK_SECRET is required")
	}

	return cfg, nil
}

// UseR2 reports whether object storage should target R2 instead of the local
// filesystem fallback.
func (c *Config) UseR2() bool {
	return c.R2Endpoint != "" && c.R2AccessKey != "" && c.R2SecretKey != ""
}

// parseEndpointMap parses "kind=endpointID,kind=endpointID" pairs.
func parseEndpointMap(raw string) map[string]string {
	out := map[string]string{}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		kind := strings.TrimSpace(parts[0])
		id := strings.TrimSpace(parts[1])
		if kind != "" && id != "" {
			out[kind] = id
		}
	}
	return out
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
