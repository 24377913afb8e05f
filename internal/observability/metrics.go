package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialhub_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// StoreCallLatency records store call latency by store and operation.
	StoreCallLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "socialhub_store_call_latency_seconds",
		Help:    "Store call latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"store", "operation"})

	// StoreRetries counts retried store calls after a transient failure.
	StoreRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialhub_store_retries_total",
		Help: "Store calls retried after a transient failure",
	}, []string{"operation"})

	// StoreErrors counts store call failures by error code.
	StoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialhub_store_errors_total",
		Help: "Store call failures by error code",
	}, []string{"operation", "code"})

	// EngagementEvents counts accepted engagement mutations.
	EngagementEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialhub_engagement_events_total",
		Help: "Engagement mutations by kind",
	}, []string{"kind"})

	// NotificationOutcomes counts fan-out results: emitted, skipped_self or failed.
	NotificationOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialhub_notification_outcomes_total",
		Help: "Notification fan-out outcomes by kind",
	}, []string{"kind", "outcome"})

	// NotificationDeliveries counts realtime deliveries by channel and result.
	NotificationDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialhub_notification_deliveries_total",
		Help: "Realtime notification deliveries by channel",
	}, []string{"channel", "result"})

	// FeedItemsSkipped counts posts omitted from feeds, by reason.
	FeedItemsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialhub_feed_items_skipped_total",
		Help: "Posts omitted while assembling feeds",
	}, []string{"reason"})

	// StoriesSwept counts expired stories removed by the sweeper.
	StoriesSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "socialhub_stories_swept_total",
		Help: "Expired stories removed",
	})

	// EdgesRepaired counts follow edge repairs by action: mirror_inserted or orphan_removed.
	EdgesRepaired = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialhub_edges_repaired_total",
		Help: "Follow graph repairs by action",
	}, []string{"action"})

	// WebSocketBackpressureDrops counts live pushes dropped at a client buffer.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialhub_websocket_backpressure_drops_total",
		Help: "Live pushes dropped because a client buffer was full or closed",
	}, []string{"hub", "reason"})

	// JobRuns counts background job executions by job and result.
	JobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialhub_job_runs_total",
		Help: "Background job runs by result",
	}, []string{"job", "result"})
)

// TrackStoreCall returns a function that records call latency when called (e.g. defer).
func TrackStoreCall(store, operation string) func() {
	start := time.Now()
	return func() {
		StoreCallLatency.WithLabelValues(store, operation).Observe(time.Since(start).Seconds())
	}
}
