package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

// Metrics holds all prometheus instruments for the service.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestsTotal   *prometheus.CounterVec

	BoardsCreated    prometheus.Counter
	BoardsDeleted    prometheus.Counter
	CommentsCreated  prometheus.Counter
	EventsBroadcast  *prometheus.CounterVec
	OpenConnections  prometheus.Gauge
	SnapshotCacheHit *prometheus.CounterVec

	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// New creates a Metrics set on its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method, path and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, path and status",
		}, []string{"method", "path", "status"}),
		BoardsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "retro_boards_created_total",
			Help: "Total retrospective boards created",
		}),
		BoardsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "retro_boards_deleted_total",
			Help: "Total retrospective boards deleted (ended or swept)",
		}),
		CommentsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "retro_comments_created_total",
			Help: "Total comments posted",
		}),
		EventsBroadcast: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "retro_events_broadcast_total",
			Help: "Total room events broadcast by event name",
		}, []string{"event"}),
		OpenConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "retro_websocket_connections",
			Help: "Currently open websocket connections",
		}),
		SnapshotCacheHit: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "retro_snapshot_cache_requests_total",
			Help: "Snapshot cache lookups by result (hit/miss)",
		}, []string{"result"}),
		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "retro_db_query_duration_seconds",
			Help:    "Database query latency by operation and table",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation", "table"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "retro_db_query_errors_total",
			Help: "Database query errors by operation and table",
		}, []string{"operation", "table"}),
	}
}

// Registry exposes the registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// IncrementBoardCreated counts a created board.
func (m *Metrics) IncrementBoardCreated() {
	if m != nil {
		m.BoardsCreated.Inc()
	}
}

// IncrementBoardDeleted counts a deleted board.
func (m *Metrics) IncrementBoardDeleted() {
	if m != nil {
		m.BoardsDeleted.Inc()
	}
}

// IncrementCommentCreated counts a posted comment.
func (m *Metrics) IncrementCommentCreated() {
	if m != nil {
		m.CommentsCreated.Inc()
	}
}

// RecordBroadcast counts one room broadcast.
func (m *Metrics) RecordBroadcast(eventName string) {
	if m != nil {
		m.EventsBroadcast.WithLabelValues(eventName).Inc()
	}
}

// RecordCacheLookup counts a snapshot cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.SnapshotCacheHit.WithLabelValues(result).Inc()
}

// RecordDBQuery records one database query. Record-not-found is an
// expected lookup outcome, not an error.
func (m *Metrics) RecordDBQuery(operation, table string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		m.DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// ConnectionOpened tracks a websocket connect.
func (m *Metrics) ConnectionOpened() {
	if m != nil {
		m.OpenConnections.Inc()
	}
}

// ConnectionClosed tracks a websocket disconnect.
func (m *Metrics) ConnectionClosed() {
	if m != nil {
		m.OpenConnections.Dec()
	}
}
