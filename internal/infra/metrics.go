package infra

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics aggregates the service's Prometheus collectors.
type Metrics struct {
	JobsSubmitted     *prometheus.CounterVec
	JobsCompleted     *prometheus.CounterVec
	JobsFailed        *prometheus.CounterVec
	WebhookDeliveries *prometheus.CounterVec
	UploadCacheHits   prometheus.Counter
	UploadCacheMisses prometheus.Counter
}

// NewMetrics registers and returns the service collectors on the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		JobsSubmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "renderq_jobs_submitted_total",
			Help: "Jobs accepted for execution, labelled by kind and provider.",
		}, []string{"kind", "provider"}),
		JobsCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "renderq_jobs_completed_total",
			Help: "Jobs finalized as completed, labelled by provider.",
		}, []string{"provider"}),
		JobsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "renderq_jobs_failed_total",
			Help: "Jobs finalized as failed, labelled by provider.",
		}, []string{"provider"}),
		WebhookDeliveries: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "renderq_webhook_deliveries_total",
			Help: "Webhook delivery attempts, labelled by outcome.",
		}, []string{"outcome"}),
		UploadCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "renderq_upload_cache_hits_total",
			Help: "Upload cache lookups answered without an object-storage write.",
		}),
		UploadCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "renderq_upload_cache_misses_total",
			Help: "Upload cache lookups that required a fresh upload.",
		}),
	}
}
