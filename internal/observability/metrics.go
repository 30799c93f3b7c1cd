package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes prometheus collectors for the ticket lifecycle and the
// real-time fan-out path.
type Metrics struct {
	EventsPublished      *prometheus.CounterVec
	NotificationsCreated *prometheus.CounterVec
	DeliveriesPushed     prometheus.Counter
	DeliveriesDropped    *prometheus.CounterVec
	LiveConnections      prometheus.Gauge
	GroupJoins           prometheus.Counter
	StatsRecomputes      prometheus.Counter
	RequestErrors        *prometheus.CounterVec
}

// RecordError counts a failed HTTP request by route and error code.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.RequestErrors.WithLabelValues(path, method, code).Inc()
}

// NewMetrics registers collectors on the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "helpdesk",
			Name:      "events_published_total",
			Help:      "Ticket events emitted by the state machine.",
		}, []string{"type"}),
		NotificationsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "helpdesk",
			Name:      "notifications_created_total",
			Help:      "Durable notifications persisted per event type.",
		}, []string{"type"}),
		DeliveriesPushed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "helpdesk",
			Name:      "deliveries_pushed_total",
			Help:      "Live payloads pushed to connected clients.",
		}),
		DeliveriesDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "helpdesk",
			Name:      "deliveries_dropped_total",
			Help:      "Live payloads dropped before reaching a client.",
		}, []string{"reason"}),
		LiveConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "helpdesk",
			Name:      "live_connections",
			Help:      "Currently registered live-channel connections.",
		}),
		GroupJoins: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "helpdesk",
			Name:      "group_joins_total",
			Help:      "Group join operations, including idempotent re-joins.",
		}),
		StatsRecomputes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "helpdesk",
			Name:      "stats_recomputes_total",
			Help:      "Dashboard stats recomputations.",
		}),
		RequestErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "helpdesk",
			Name:      "request_errors_total",
			Help:      "Failed HTTP requests by route and error code.",
		}, []string{"path", "method", "code"}),
	}
}
