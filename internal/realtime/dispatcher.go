package realtime

import (
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/observability"
)

// Delivery targets one channel group with one payload.
type Delivery struct {
	Channel string
	Message LiveMessage
}

// Dispatcher pushes delivery lists to matching live connections. No retry
// and no queueing for offline recipients: the durable notification row is
// the fallback read path. Dispatch is synchronous and deliveries are pushed
// in list order into each connection's single ordered queue, so events for
// one (recipient, ticket) pair are never reordered.
type Dispatcher struct {
	registry *Registry
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewDispatcher builds a dispatcher over the registry.
func NewDispatcher(registry *Registry, logger *zap.Logger, metrics *observability.Metrics) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{registry: registry, logger: logger, metrics: metrics}
}

// Dispatch fans every delivery out to the live members of its channel.
// Unreachable or saturated connections are skipped; dispatch never returns
// an error to the mutating caller.
func (d *Dispatcher) Dispatch(deliveries []Delivery) {
	for _, delivery := range deliveries {
		members := d.registry.Members(delivery.Channel)
		if len(members) == 0 {
			continue
		}
		for _, conn := range members {
			if err := conn.Enqueue(delivery.Message); err != nil {
				if d.metrics != nil {
					d.metrics.DeliveriesDropped.WithLabelValues("queue_full").Inc()
				}
				d.logger.Warn("delivery dropped",
					zap.String("channel", delivery.Channel),
					zap.String("conn_id", conn.ID),
					zap.String("event_id", delivery.Message.EventID),
					zap.Error(err))
				continue
			}
			if d.metrics != nil {
				d.metrics.DeliveriesPushed.Inc()
			}
		}
	}
}
