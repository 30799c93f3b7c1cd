package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/realtime"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// captureSocket records live pushes for one registered connection.
type captureSocket struct {
	mu     sync.Mutex
	writes []realtime.LiveMessage
}

func (c *captureSocket) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if msg, ok := v.(realtime.LiveMessage); ok {
		c.writes = append(c.writes, msg)
	}
	return nil
}

func (c *captureSocket) Close() error { return nil }

func (c *captureSocket) messages() []realtime.LiveMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]realtime.LiveMessage, len(c.writes))
	copy(out, c.writes)
	return out
}

type NotificationRouterSuite struct {
	suite.Suite
	ctx      context.Context
	store    *repository.Memory
	registry *realtime.Registry
	router   *NotificationRouter
}

func TestNotificationRouterSuite(t *testing.T) {
	suite.Run(t, new(NotificationRouterSuite))
}

func (s *NotificationRouterSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = repository.NewMemory()
	s.registry = realtime.NewRegistry(16, nil, nil)
	stats := NewStatsService(s.store.Stats(), 5, nil)
	live := realtime.NewDispatcher(s.registry, nil, nil)
	s.router = NewNotificationRouter(s.store.Notifications(), stats, live, nil, nil)
}

func (s *NotificationRouterSuite) event(eventType events.EventType, payload interface{}) events.Event {
	return events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  "ticket-1",
		TenantID:  "tenant-1",
		Actor:     events.Actor{Type: domain.SubjectTypeStaff, ID: "staff-1", Name: "Sam Agent"},
		Timestamp: time.Now(),
		Payload:   payload,
	}
}

func (s *NotificationRouterSuite) notificationsFor(key string) []domain.Notification {
	items, err := s.store.Notifications().ListRecent(s.ctx, []string{key}, 50)
	s.Require().NoError(err)
	return items
}

func (s *NotificationRouterSuite) TestTicketCreatedNotifiesAdmins() {
	event := s.event(events.EventTicketCreated, events.TicketCreatedPayload{
		Title: "Printer on fire", Priority: domain.TicketPriorityHigh,
	})
	event.Actor = events.Actor{Type: domain.SubjectTypeTenant, ID: "tenant-1", Name: "Acme Corp"}

	s.Require().NoError(s.router.HandleEvent(s.ctx, event))

	admins := s.notificationsFor(realtime.NotifyAdmins)
	s.Require().Len(admins, 1)
	s.Equal(domain.NotificationTicketCreated, admins[0].Type)
	s.Require().NotNil(admins[0].TicketID)
	s.Equal("ticket-1", *admins[0].TicketID)

	s.Empty(s.notificationsFor(realtime.NotifyTenant("tenant-1")))
}

func (s *NotificationRouterSuite) TestStaffCommentNotifiesTenant() {
	event := s.event(events.EventCommentAdded, events.CommentAddedPayload{
		CommentID: "c1", AuthorName: "Sam Agent", IsStaffReply: true, BodyPreview: "On it",
	})

	s.Require().NoError(s.router.HandleEvent(s.ctx, event))

	s.Len(s.notificationsFor(realtime.NotifyTenant("tenant-1")), 1)
	s.Empty(s.notificationsFor(realtime.NotifyAdmins))
}

func (s *NotificationRouterSuite) TestCustomerCommentNotifiesAdminsAndAssignee() {
	assignee := "staff-9"
	event := s.event(events.EventCommentAdded, events.CommentAddedPayload{
		CommentID: "c1", AuthorName: "Acme Corp", IsStaffReply: false, BodyPreview: "Still broken",
	})
	event.Actor = events.Actor{Type: domain.SubjectTypeTenant, ID: "tenant-1", Name: "Acme Corp"}
	event.AssigneeID = &assignee

	s.Require().NoError(s.router.HandleEvent(s.ctx, event))

	s.Len(s.notificationsFor(realtime.NotifyAdmins), 1)
	s.Len(s.notificationsFor(realtime.NotifyStaff(assignee)), 1)
	s.Empty(s.notificationsFor(realtime.NotifyTenant("tenant-1")))
}

func (s *NotificationRouterSuite) TestCustomerCommentWithoutAssignee() {
	event := s.event(events.EventCommentAdded, events.CommentAddedPayload{
		CommentID: "c1", AuthorName: "Acme Corp", IsStaffReply: false, BodyPreview: "Still broken",
	})

	s.Require().NoError(s.router.HandleEvent(s.ctx, event))

	s.Len(s.notificationsFor(realtime.NotifyAdmins), 1)
}

func (s *NotificationRouterSuite) TestStatusChangedRouting() {
	s.Run("plain status change notifies the tenant only", func() {
		event := s.event(events.EventTicketStatusChanged, events.StatusChangedPayload{
			OldStatus: domain.TicketStatusOpen, NewStatus: domain.TicketStatusProcessing,
		})
		s.Require().NoError(s.router.HandleEvent(s.ctx, event))

		s.Len(s.notificationsFor(realtime.NotifyTenant("tenant-1")), 1)
		s.Empty(s.notificationsFor(realtime.NotifyAdmins))
	})

	s.Run("terminal statuses also notify admins", func() {
		event := s.event(events.EventTicketStatusChanged, events.StatusChangedPayload{
			OldStatus: domain.TicketStatusProcessing, NewStatus: domain.TicketStatusClosed,
		})
		s.Require().NoError(s.router.HandleEvent(s.ctx, event))

		s.Len(s.notificationsFor(realtime.NotifyAdmins), 1)
	})
}

func (s *NotificationRouterSuite) TestAssignedNotifiesAssigneeOnly() {
	event := s.event(events.EventTicketAssigned, events.AssignedPayload{
		AssigneeID: "staff-9", AssigneeName: "Olga Agent",
	})

	s.Require().NoError(s.router.HandleEvent(s.ctx, event))

	s.Len(s.notificationsFor(realtime.NotifyStaff("staff-9")), 1)
	s.Empty(s.notificationsFor(realtime.NotifyAdmins))
	s.Empty(s.notificationsFor(realtime.NotifyTenant("tenant-1")))
}

func (s *NotificationRouterSuite) TestPriorityChangedNotifiesAdmins() {
	event := s.event(events.EventTicketPriorityChanged, events.PriorityChangedPayload{
		OldPriority: domain.TicketPriorityLow, NewPriority: domain.TicketPriorityCritical,
	})

	s.Require().NoError(s.router.HandleEvent(s.ctx, event))

	s.Len(s.notificationsFor(realtime.NotifyAdmins), 1)
	s.Empty(s.notificationsFor(realtime.NotifyTenant("tenant-1")))
}

func (s *NotificationRouterSuite) TestResolvedNotifiesTenant() {
	event := s.event(events.EventTicketResolved, events.ResolvedPayload{
		Solution: "Replaced the fuser unit", ResolvedBy: "Sam Agent",
	})

	s.Require().NoError(s.router.HandleEvent(s.ctx, event))

	tenant := s.notificationsFor(realtime.NotifyTenant("tenant-1"))
	s.Require().Len(tenant, 1)
	s.Equal(domain.NotificationTicketResolved, tenant[0].Type)
}

// Room subscribers receive the raw event even when they are not in the
// recipient set.
func (s *NotificationRouterSuite) TestRoomSubscribersAlwaysReceiveEvents() {
	socket := &captureSocket{}
	conn := s.registry.Register(socket, realtime.Identity{
		SubjectType: domain.SubjectTypeTenant, SubjectID: "tenant-2", Name: "Bystander",
	})
	defer s.registry.Unregister(conn)
	s.registry.Join(conn, realtime.TicketRoom("ticket-1"))

	event := s.event(events.EventTicketPriorityChanged, events.PriorityChangedPayload{
		OldPriority: domain.TicketPriorityLow, NewPriority: domain.TicketPriorityHigh,
	})
	s.Require().NoError(s.router.HandleEvent(s.ctx, event))

	s.Eventually(func() bool {
		msgs := socket.messages()
		return len(msgs) == 1 && msgs[0].EventID == event.ID
	}, time.Second, 5*time.Millisecond)
}

// Stat-affecting events push a refreshed snapshot to the admin dashboard
// group alongside the per-recipient notifications.
func (s *NotificationRouterSuite) TestDashboardPushOnStatAffectingEvents() {
	socket := &captureSocket{}
	conn := s.registry.Register(socket, realtime.Identity{
		SubjectType: domain.SubjectTypeStaff, SubjectID: "staff-1", Name: "Ada Admin",
		Role: domain.StaffRoleAdmin,
	})
	defer s.registry.Unregister(conn)

	created := s.event(events.EventTicketCreated, events.TicketCreatedPayload{
		Title: "Printer on fire", Priority: domain.TicketPriorityHigh,
	})
	s.Require().NoError(s.router.HandleEvent(s.ctx, created))

	s.Eventually(func() bool {
		for _, msg := range socket.messages() {
			if msg.Kind == "dashboard_stats" {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	// a non-stat-affecting event must not push another snapshot
	assigned := s.event(events.EventTicketAssigned, events.AssignedPayload{
		AssigneeID: "staff-9", AssigneeName: "Olga Agent",
	})
	s.Require().NoError(s.router.HandleEvent(s.ctx, assigned))

	time.Sleep(50 * time.Millisecond)
	var snapshots int
	for _, msg := range socket.messages() {
		if msg.Kind == "dashboard_stats" {
			snapshots++
		}
	}
	s.Equal(1, snapshots)
}
