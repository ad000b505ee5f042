package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RelationshipOperations counts service operations by name and outcome
	// (the error code, or "ok").
	RelationshipOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "habitpal_relationship_operations_total",
		Help: "Relationship service operations by outcome",
	}, []string{"operation", "outcome"})

	// RelationshipOperationLatency records operation latency in seconds.
	RelationshipOperationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "habitpal_relationship_operation_latency_seconds",
		Help:    "Relationship service operation latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// StoreErrors counts classified store failures.
	StoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "habitpal_store_errors_total",
		Help: "Store errors by classification",
	}, []string{"class"})

	// ConversationsProvisioned counts private conversations created on accept.
	ConversationsProvisioned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "habitpal_conversations_provisioned_total",
		Help: "Private conversations provisioned for accepted relationships",
	})

	// RealtimeEventsPublished counts realtime events by type and result.
	RealtimeEventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "habitpal_realtime_events_total",
		Help: "Realtime relationship events published",
	}, []string{"event_type", "result"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "habitpal_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"reason"})

	// NotificationsPurged counts notifications removed by the retention job.
	NotificationsPurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "habitpal_notifications_purged_total",
		Help: "Read notifications removed by the retention job",
	})
)

// TrackOperation returns a function that records latency and outcome when
// called with the operation's error (e.g. via defer).
func TrackOperation(operation string, outcome func(error) string) func(error) {
	start := time.Now()
	return func(err error) {
		RelationshipOperationLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
		RelationshipOperations.WithLabelValues(operation, outcome(err)).Inc()
	}
}
