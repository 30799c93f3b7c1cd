package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/realtime"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// NotificationRouter is the sole consumer of ticket events. For each event
// it derives the recipient set, persists one durable notification per
// recipient key, and pushes live deliveries: every subscriber of the
// ticket's room plus each recipient's personal channel. Stat-affecting
// events additionally push a refreshed dashboard snapshot to the admin
// dashboard group. Router failures are logged and swallowed; they never
// propagate back into the mutating call.
type NotificationRouter struct {
	notifications repository.NotificationRepository
	stats         *StatsService
	live          *realtime.Dispatcher
	logger        *zap.Logger
	metrics       *observability.Metrics
}

// NewNotificationRouter constructs the router.
func NewNotificationRouter(
	notifications repository.NotificationRepository,
	stats *StatsService,
	live *realtime.Dispatcher,
	logger *zap.Logger,
	metrics *observability.Metrics,
) *NotificationRouter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationRouter{
		notifications: notifications,
		stats:         stats,
		live:          live,
		logger:        logger,
		metrics:       metrics,
	}
}

// Register subscribes the router to every event kind on the dispatcher.
func (r *NotificationRouter) Register(dispatcher events.Dispatcher) {
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventCommentAdded,
		events.EventTicketStatusChanged,
		events.EventTicketAssigned,
		events.EventTicketPriorityChanged,
		events.EventTicketResolved,
	} {
		dispatcher.Subscribe(eventType, r.HandleEvent)
	}
}

// HandleEvent routes a single ticket event.
func (r *NotificationRouter) HandleEvent(ctx context.Context, event events.Event) error {
	recipients := r.recipients(event)
	title, message := describeEvent(event)
	notificationType := notificationTypeFor(event.Type)

	for _, key := range recipients {
		notification := &domain.Notification{
			RecipientKey: key,
			Type:         notificationType,
			Title:        title,
			Message:      message,
			TicketID:     &event.TicketID,
		}
		if err := r.notifications.Create(ctx, notification); err != nil {
			r.logger.Error("failed to persist notification",
				zap.String("event_id", event.ID),
				zap.String("recipient", key),
				zap.Error(err))
			continue
		}
		if r.metrics != nil {
			r.metrics.NotificationsCreated.WithLabelValues(string(event.Type)).Inc()
		}
	}

	deliveries := make([]realtime.Delivery, 0, len(recipients)+2)
	liveMsg := realtime.LiveMessage{
		Kind:      string(event.Type),
		EventID:   event.ID,
		TicketID:  event.TicketID,
		Timestamp: event.Timestamp,
		Data:      event.Payload,
	}
	// Room subscribers always see the raw event, on top of any personal
	// notification channel they may also be in.
	deliveries = append(deliveries, realtime.Delivery{
		Channel: realtime.TicketRoom(event.TicketID),
		Message: liveMsg,
	})
	for _, key := range recipients {
		deliveries = append(deliveries, realtime.Delivery{Channel: key, Message: liveMsg})
	}
	if statAffecting(event.Type) {
		if snapshot, err := r.stats.Recompute(ctx); err != nil {
			r.logger.Warn("dashboard stats recompute failed",
				zap.String("event_id", event.ID), zap.Error(err))
		} else {
			deliveries = append(deliveries, realtime.Delivery{
				Channel: realtime.AdminDashboard,
				Message: realtime.LiveMessage{
					Kind:      "dashboard_stats",
					EventID:   event.ID,
					Timestamp: event.Timestamp,
					Data:      snapshot,
				},
			})
		}
	}
	if r.live != nil {
		r.live.Dispatch(deliveries)
	}
	return nil
}

// recipients derives the personal notification channels for an event. The
// ticket room is handled separately and is not part of this set.
func (r *NotificationRouter) recipients(event events.Event) []string {
	switch event.Type {
	case events.EventTicketCreated:
		return []string{realtime.NotifyAdmins}
	case events.EventCommentAdded:
		payload, ok := event.Payload.(events.CommentAddedPayload)
		if !ok {
			return nil
		}
		if payload.IsStaffReply {
			return []string{realtime.NotifyTenant(event.TenantID)}
		}
		keys := []string{realtime.NotifyAdmins}
		if event.AssigneeID != nil {
			keys = append(keys, realtime.NotifyStaff(*event.AssigneeID))
		}
		return keys
	case events.EventTicketStatusChanged:
		keys := []string{realtime.NotifyTenant(event.TenantID)}
		if payload, ok := event.Payload.(events.StatusChangedPayload); ok {
			if payload.NewStatus == domain.TicketStatusResolved || payload.NewStatus == domain.TicketStatusClosed {
				keys = append(keys, realtime.NotifyAdmins)
			}
		}
		return keys
	case events.EventTicketAssigned:
		if payload, ok := event.Payload.(events.AssignedPayload); ok {
			return []string{realtime.NotifyStaff(payload.AssigneeID)}
		}
		return nil
	case events.EventTicketPriorityChanged:
		return []string{realtime.NotifyAdmins}
	case events.EventTicketResolved:
		return []string{realtime.NotifyTenant(event.TenantID)}
	default:
		r.logger.Warn("unroutable event type", zap.String("event_type", string(event.Type)))
		return nil
	}
}

func statAffecting(eventType events.EventType) bool {
	switch eventType {
	case events.EventTicketCreated, events.EventTicketStatusChanged, events.EventTicketResolved:
		return true
	default:
		return false
	}
}

func notificationTypeFor(eventType events.EventType) domain.NotificationType {
	switch eventType {
	case events.EventTicketCreated:
		return domain.NotificationTicketCreated
	case events.EventCommentAdded:
		return domain.NotificationCommentAdded
	case events.EventTicketStatusChanged:
		return domain.NotificationStatusChanged
	case events.EventTicketAssigned:
		return domain.NotificationTicketAssigned
	case events.EventTicketPriorityChanged:
		return domain.NotificationPriorityChanged
	default:
		return domain.NotificationTicketResolved
	}
}

func describeEvent(event events.Event) (title, message string) {
	switch payload := event.Payload.(type) {
	case events.TicketCreatedPayload:
		return "New ticket", fmt.Sprintf("%s opened %q (%s priority)", event.Actor.Name, payload.Title, payload.Priority)
	case events.CommentAddedPayload:
		return "New comment", fmt.Sprintf("%s commented: %s", payload.AuthorName, payload.BodyPreview)
	case events.StatusChangedPayload:
		return "Status updated", fmt.Sprintf("ticket moved from %s to %s by %s", payload.OldStatus, payload.NewStatus, event.Actor.Name)
	case events.AssignedPayload:
		return "Ticket assigned", fmt.Sprintf("ticket assigned to %s", payload.AssigneeName)
	case events.PriorityChangedPayload:
		return "Priority updated", fmt.Sprintf("priority changed from %s to %s by %s", payload.OldPriority, payload.NewPriority, event.Actor.Name)
	case events.ResolvedPayload:
		return "Ticket resolved", fmt.Sprintf("%s resolved the ticket", payload.ResolvedBy)
	default:
		return "Ticket update", fmt.Sprintf("ticket updated by %s", event.Actor.Name)
	}
}
