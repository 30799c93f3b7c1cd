package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/spec-kit/helpdesk/internal/domain"
)

type MemoryStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *Memory
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewMemory()
}

func (s *MemoryStoreSuite) newTicket(tenantID string, status domain.TicketStatus) *domain.Ticket {
	ticket := &domain.Ticket{
		TenantID:    tenantID,
		Title:       "Broken thing",
		Description: "It broke",
		Status:      status,
		Priority:    domain.TicketPriorityLow,
	}
	s.Require().NoError(s.store.Tickets().Create(s.ctx, ticket))
	return ticket
}

func (s *MemoryStoreSuite) TestTicketLifecycle() {
	s.Run("create assigns id and timestamps", func() {
		ticket := s.newTicket("tenant-1", domain.TicketStatusOpen)
		s.NotEmpty(ticket.ID)
		s.False(ticket.CreatedAt.IsZero())
	})

	s.Run("update rewrites the stored row", func() {
		ticket := s.newTicket("tenant-1", domain.TicketStatusOpen)
		ticket.Status = domain.TicketStatusProcessing
		s.Require().NoError(s.store.Tickets().Update(s.ctx, ticket))

		stored, err := s.store.Tickets().GetByID(s.ctx, ticket.ID)
		s.Require().NoError(err)
		s.Equal(domain.TicketStatusProcessing, stored.Status)
	})

	s.Run("unknown ids return ErrNotFound", func() {
		_, err := s.store.Tickets().GetByID(s.ctx, "missing")
		s.Require().ErrorIs(err, ErrNotFound)

		err = s.store.Tickets().Update(s.ctx, &domain.Ticket{ID: "missing"})
		s.Require().ErrorIs(err, ErrNotFound)
	})

	s.Run("soft-deleted tickets vanish from reads", func() {
		ticket := s.newTicket("tenant-1", domain.TicketStatusOpen)
		s.Require().NoError(s.store.Tickets().SoftDelete(s.ctx, ticket.ID))

		_, err := s.store.Tickets().GetByID(s.ctx, ticket.ID)
		s.Require().ErrorIs(err, ErrNotFound)
		s.Require().ErrorIs(s.store.Tickets().SoftDelete(s.ctx, ticket.ID), ErrNotFound)
	})
}

func (s *MemoryStoreSuite) TestTicketFilter() {
	s.newTicket("tenant-1", domain.TicketStatusOpen)
	s.newTicket("tenant-1", domain.TicketStatusClosed)
	s.newTicket("tenant-2", domain.TicketStatusOpen)

	tenantID := "tenant-1"
	open := []domain.TicketStatus{domain.TicketStatusOpen}

	tickets, err := s.store.Tickets().ListWithFilter(s.ctx, TicketFilter{TenantID: &tenantID})
	s.Require().NoError(err)
	s.Len(tickets, 2)

	tickets, err = s.store.Tickets().ListWithFilter(s.ctx, TicketFilter{TenantID: &tenantID, Statuses: open})
	s.Require().NoError(err)
	s.Len(tickets, 1)

	term := "broken"
	tickets, err = s.store.Tickets().ListWithFilter(s.ctx, TicketFilter{SearchTerm: &term})
	s.Require().NoError(err)
	s.Len(tickets, 3)
}

func (s *MemoryStoreSuite) TestNotificationScoping() {
	notifications := s.store.Notifications()

	mine := &domain.Notification{RecipientKey: "notify:tenant:t1", Type: domain.NotificationTicketCreated, Title: "hi"}
	theirs := &domain.Notification{RecipientKey: "notify:tenant:t2", Type: domain.NotificationTicketCreated, Title: "hi"}
	s.Require().NoError(notifications.Create(s.ctx, mine))
	s.Require().NoError(notifications.Create(s.ctx, theirs))

	s.Run("list only returns the caller's keys", func() {
		listed, err := notifications.ListRecent(s.ctx, []string{"notify:tenant:t1"}, 10)
		s.Require().NoError(err)
		s.Require().Len(listed, 1)
		s.Equal(mine.ID, listed[0].ID)
	})

	s.Run("mark read refuses foreign notifications", func() {
		err := notifications.MarkRead(s.ctx, theirs.ID, []string{"notify:tenant:t1"})
		s.Require().ErrorIs(err, ErrNotFound)

		s.Require().NoError(notifications.MarkRead(s.ctx, mine.ID, []string{"notify:tenant:t1"}))
		listed, err := notifications.ListRecent(s.ctx, []string{"notify:tenant:t1"}, 10)
		s.Require().NoError(err)
		s.True(listed[0].Read)
	})

	s.Run("delete refuses foreign notifications", func() {
		err := notifications.Delete(s.ctx, theirs.ID, []string{"notify:tenant:t1"})
		s.Require().ErrorIs(err, ErrNotFound)

		s.Require().NoError(notifications.Delete(s.ctx, mine.ID, []string{"notify:tenant:t1"}))
		listed, err := notifications.ListRecent(s.ctx, []string{"notify:tenant:t1"}, 10)
		s.Require().NoError(err)
		s.Empty(listed)
	})
}

func (s *MemoryStoreSuite) TestHistoryOrdering() {
	history := s.store.History()
	for _, action := range []string{"first", "second", "third"} {
		s.Require().NoError(history.Create(s.ctx, &domain.HistoryEntry{TicketID: "ticket-1", Action: action, ActorName: "x"}))
	}

	entries, err := history.ListByTicket(s.ctx, "ticket-1", 10, 0)
	s.Require().NoError(err)
	s.Require().Len(entries, 3)
	s.Equal("first", entries[0].Action)
	s.Equal("third", entries[2].Action)
}

func (s *MemoryStoreSuite) TestAssetCatalogue() {
	assets := s.store.Assets()

	printer := &domain.Asset{Name: "Printer", Tag: "PRN-01"}
	s.Require().NoError(assets.Create(s.ctx, printer))
	s.NotEmpty(printer.ID)
	s.False(printer.CreatedAt.IsZero())

	s.Require().NoError(assets.Create(s.ctx, &domain.Asset{Name: "Router", Tag: "RTR-01"}))

	s.Run("list returns every asset", func() {
		listed, err := assets.List(s.ctx, 10, 0)
		s.Require().NoError(err)
		s.Len(listed, 2)
	})

	s.Run("pagination bounds the result", func() {
		listed, err := assets.List(s.ctx, 1, 0)
		s.Require().NoError(err)
		s.Len(listed, 1)
	})
}

func (s *MemoryStoreSuite) TestListAdmins() {
	staff := s.store.Staff()
	s.Require().NoError(staff.Create(s.ctx, &domain.StaffMember{
		Name: "Ann Admin", Email: "ann@example.com", Role: domain.StaffRoleAdmin, Active: true,
	}))
	s.Require().NoError(staff.Create(s.ctx, &domain.StaffMember{
		Name: "Gone Admin", Email: "gone@example.com", Role: domain.StaffRoleAdmin, Active: false,
	}))
	s.Require().NoError(staff.Create(s.ctx, &domain.StaffMember{
		Name: "Sam Agent", Email: "sam@example.com", Role: domain.StaffRoleAgent, Active: true,
	}))

	admins, err := staff.ListAdmins(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(admins, 1)
	s.Equal("Ann Admin", admins[0].Name)
}
