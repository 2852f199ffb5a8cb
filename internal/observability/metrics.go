package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "opc_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "opc_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// WebSocketConnectionsTotal is the gauge of total WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "opc_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "opc_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})

	// NotificationsCreated counts notification rows written by fan-out, by type.
	NotificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "opc_notifications_created_total",
		Help: "Total number of notifications created by fan-out",
	}, []string{"type"})

	// NotificationFailures counts fan-out attempts that gave up, by event kind.
	NotificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "opc_notification_failures_total",
		Help: "Total number of notification fan-out failures",
	}, []string{"event"})

	// NotificationDrops counts events dropped because the dispatch queue was full.
	NotificationDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "opc_notification_drops_total",
		Help: "Total number of notification events dropped by the dispatcher",
	}, []string{"event"})

	// ContentMutations counts successful content writes by target type and action.
	ContentMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "opc_content_mutations_total",
		Help: "Total number of content mutations",
	}, []string{"target", "action"})

	// CounterDriftRows is the number of rows whose stored counter disagrees with its source rows.
	CounterDriftRows = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "opc_counter_drift_rows",
		Help: "Rows whose denormalized counter drifted from the recomputed value",
	}, []string{"counter"})

	// OrphanFiles is the number of unreferenced media files past the grace period.
	OrphanFiles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "opc_orphan_files",
		Help: "Media files with no current attachment older than the grace period",
	})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
