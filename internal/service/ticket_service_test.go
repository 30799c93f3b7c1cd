package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// recordingDispatcher captures published events for assertions.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) published() []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.Event, len(d.events))
	copy(out, d.events)
	return out
}

type TicketServiceSuite struct {
	suite.Suite
	ctx        context.Context
	store      *repository.Memory
	dispatcher *recordingDispatcher
	service    *TicketService
	tenant     *domain.Tenant
	agent      *domain.StaffMember
}

func TestTicketServiceSuite(t *testing.T) {
	suite.Run(t, new(TicketServiceSuite))
}

func (s *TicketServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = repository.NewMemory()
	s.dispatcher = &recordingDispatcher{}
	s.service = s.newService(config.TicketConfig{})

	s.tenant = &domain.Tenant{Name: "Acme Corp", Email: "acme@example.com", Status: domain.TenantStatusActive}
	s.Require().NoError(s.store.Tenants().Create(s.ctx, s.tenant))

	s.agent = &domain.StaffMember{Name: "Sam Agent", Email: "sam@example.com", Role: domain.StaffRoleAgent, Active: true}
	s.Require().NoError(s.store.Staff().Create(s.ctx, s.agent))
}

func (s *TicketServiceSuite) newService(cfg config.TicketConfig) *TicketService {
	return NewTicketService(cfg, TicketDependencies{
		TicketRepo:  s.store.Tickets(),
		CommentRepo: s.store.Comments(),
		HistoryRepo: s.store.History(),
		StaffRepo:   s.store.Staff(),
		AssetRepo:   s.store.Assets(),
		Dispatcher:  s.dispatcher,
	})
}

func (s *TicketServiceSuite) createTicket() *domain.Ticket {
	ticket, err := s.service.Create(s.ctx, s.tenant, TicketCreateInput{
		Title:       "Printer on fire",
		Description: "The office printer is literally on fire.",
	})
	s.Require().NoError(err)
	return ticket
}

func (s *TicketServiceSuite) TestCreate() {
	s.Run("new tickets enter OPEN with default priority", func() {
		ticket := s.createTicket()

		s.Equal(domain.TicketStatusOpen, ticket.Status)
		s.Equal(domain.TicketPriorityLow, ticket.Priority)
		s.Nil(ticket.AssigneeID)
		s.True(strings.HasPrefix(ticket.ExternalKey, "TCK-"))

		history, err := s.service.ListHistory(s.ctx, ticket.ID, 10, 0)
		s.Require().NoError(err)
		s.Require().Len(history, 1)
		s.Contains(history[0].Action, "created")
		s.Equal(s.tenant.Name, history[0].ActorName)

		published := s.dispatcher.published()
		s.Require().Len(published, 1)
		s.Equal(events.EventTicketCreated, published[0].Type)
		s.Equal(ticket.TenantID, published[0].TenantID)
	})

	s.Run("rejects an unknown priority", func() {
		_, err := s.service.Create(s.ctx, s.tenant, TicketCreateInput{
			Title:       "Broken keyboard",
			Description: "Keys missing.",
			Priority:    domain.TicketPriority("URGENT"),
		})
		s.Require().Error(err)
		s.Equal("VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
	})

	s.Run("rejects an unknown asset reference", func() {
		assetID := "missing"
		_, err := s.service.Create(s.ctx, s.tenant, TicketCreateInput{
			Title:       "Laptop broken",
			Description: "Will not boot.",
			AssetID:     &assetID,
		})
		s.Require().Error(err)
		s.Equal("NOT_FOUND", apperrors.ToDomainError(err).Code)
	})
}

func (s *TicketServiceSuite) TestChangeStatus() {
	s.Run("any enum status may move to any other by default", func() {
		ticket := s.createTicket()

		updated, err := s.service.ChangeStatus(s.ctx, StaffActor(s.agent), ticket.ID, domain.TicketStatusClosed)
		s.Require().NoError(err)
		s.Equal(domain.TicketStatusClosed, updated.Status)

		reopened, err := s.service.ChangeStatus(s.ctx, StaffActor(s.agent), ticket.ID, domain.TicketStatusProcessing)
		s.Require().NoError(err)
		s.Equal(domain.TicketStatusProcessing, reopened.Status)
	})

	s.Run("rejects a status outside the enum", func() {
		ticket := s.createTicket()
		_, err := s.service.ChangeStatus(s.ctx, StaffActor(s.agent), ticket.ID, domain.TicketStatus("ARCHIVED"))
		s.Require().Error(err)
		s.Equal("VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
	})

	s.Run("unknown ticket aborts without side effects", func() {
		before := len(s.dispatcher.published())
		_, err := s.service.ChangeStatus(s.ctx, StaffActor(s.agent), "missing", domain.TicketStatusClosed)
		s.Require().Error(err)
		s.Equal("NOT_FOUND", apperrors.ToDomainError(err).Code)
		s.Len(s.dispatcher.published(), before)
	})

	s.Run("writes one history entry and one event per change", func() {
		ticket := s.createTicket()
		_, err := s.service.ChangeStatus(s.ctx, StaffActor(s.agent), ticket.ID, domain.TicketStatusProcessing)
		s.Require().NoError(err)

		history, err := s.service.ListHistory(s.ctx, ticket.ID, 10, 0)
		s.Require().NoError(err)
		s.Require().Len(history, 2)
		s.Contains(history[1].Action, "OPEN")
		s.Contains(history[1].Action, "PROCESSING")

		published := s.dispatcher.published()
		last := published[len(published)-1]
		s.Equal(events.EventTicketStatusChanged, last.Type)
		payload, ok := last.Payload.(events.StatusChangedPayload)
		s.Require().True(ok)
		s.Equal(domain.TicketStatusOpen, payload.OldStatus)
		s.Equal(domain.TicketStatusProcessing, payload.NewStatus)
	})
}

func (s *TicketServiceSuite) TestStrictTransitions() {
	strict := s.newService(config.TicketConfig{StrictTransitions: true})
	ticket := s.createTicket()

	_, err := strict.ChangeStatus(s.ctx, StaffActor(s.agent), ticket.ID, domain.TicketStatusResolved)
	s.Require().Error(err)
	s.Equal("CONFLICT", apperrors.ToDomainError(err).Code)

	updated, err := strict.ChangeStatus(s.ctx, StaffActor(s.agent), ticket.ID, domain.TicketStatusProcessing)
	s.Require().NoError(err)
	s.Equal(domain.TicketStatusProcessing, updated.Status)
}

func (s *TicketServiceSuite) TestAssign() {
	s.Run("assigns by overwrite, last writer wins", func() {
		ticket := s.createTicket()

		other := &domain.StaffMember{Name: "Olga Agent", Email: "olga@example.com", Role: domain.StaffRoleAgent, Active: true}
		s.Require().NoError(s.store.Staff().Create(s.ctx, other))

		first, err := s.service.Assign(s.ctx, StaffActor(s.agent), ticket.ID, s.agent.ID)
		s.Require().NoError(err)
		s.Equal(s.agent.ID, *first.AssigneeID)

		second, err := s.service.Assign(s.ctx, StaffActor(other), ticket.ID, other.ID)
		s.Require().NoError(err)
		s.Equal(other.ID, *second.AssigneeID)
	})

	s.Run("unknown staff member aborts", func() {
		ticket := s.createTicket()
		_, err := s.service.Assign(s.ctx, StaffActor(s.agent), ticket.ID, "missing")
		s.Require().Error(err)
		s.Equal("NOT_FOUND", apperrors.ToDomainError(err).Code)
	})
}

func (s *TicketServiceSuite) TestAddComment() {
	ticket := s.createTicket()

	comment, err := s.service.AddComment(s.ctx, StaffActor(s.agent), ticket.ID, "Looking into it", true)
	s.Require().NoError(err)
	s.True(comment.IsStaffReply)

	stored, err := s.service.Get(s.ctx, ticket.ID)
	s.Require().NoError(err)
	s.Equal(domain.TicketStatusOpen, stored.Status)

	_, err = s.service.AddComment(s.ctx, StaffActor(s.agent), ticket.ID, "   ", true)
	s.Require().Error(err)
	s.Equal("VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}

func (s *TicketServiceSuite) TestResolve() {
	s.Run("requires a non-empty solution note", func() {
		ticket := s.createTicket()
		_, err := s.service.Resolve(s.ctx, StaffActor(s.agent), ticket.ID, "  ")
		s.Require().Error(err)
		s.Equal("VALIDATION_FAILED", apperrors.ToDomainError(err).Code)

		stored, err := s.service.Get(s.ctx, ticket.ID)
		s.Require().NoError(err)
		s.Equal(domain.TicketStatusOpen, stored.Status)
	})

	s.Run("records the solution as a staff comment", func() {
		ticket := s.createTicket()
		resolved, err := s.service.Resolve(s.ctx, StaffActor(s.agent), ticket.ID, "Replaced the fuser unit")
		s.Require().NoError(err)
		s.Equal(domain.TicketStatusResolved, resolved.Status)
		s.Require().NotNil(resolved.Solution)
		s.Equal("Replaced the fuser unit", *resolved.Solution)

		comments, err := s.service.ListComments(s.ctx, ticket.ID, 10, 0)
		s.Require().NoError(err)
		s.Require().Len(comments, 1)
		s.True(comments[0].IsStaffReply)
		s.Equal("Replaced the fuser unit", comments[0].Body)

		published := s.dispatcher.published()
		last := published[len(published)-1]
		s.Equal(events.EventTicketResolved, last.Type)
	})
}

func (s *TicketServiceSuite) TestSoftDelete() {
	ticket := s.createTicket()
	s.Require().NoError(s.service.SoftDelete(s.ctx, StaffActor(s.agent), ticket.ID))

	_, err := s.service.Get(s.ctx, ticket.ID)
	s.Require().Error(err)
	s.Equal("NOT_FOUND", apperrors.ToDomainError(err).Code)

	tickets, err := s.service.ListForTenant(s.ctx, s.tenant.ID, repository.TicketFilter{})
	s.Require().NoError(err)
	s.Empty(tickets)
}

func (s *TicketServiceSuite) TestTenantScoping() {
	ticket := s.createTicket()

	other := &domain.Tenant{Name: "Rival Inc", Email: "rival@example.com", Status: domain.TenantStatusActive}
	s.Require().NoError(s.store.Tenants().Create(s.ctx, other))

	_, err := s.service.GetForTenant(s.ctx, other.ID, ticket.ID)
	s.Require().Error(err)
	s.Equal("FORBIDDEN", apperrors.ToDomainError(err).Code)
}

// Concurrent status changes on the same ticket serialize: the final status
// is one of the two requested, and both mutations leave a history entry.
func (s *TicketServiceSuite) TestConcurrentStatusChanges() {
	ticket := s.createTicket()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := s.service.ChangeStatus(s.ctx, StaffActor(s.agent), ticket.ID, domain.TicketStatusProcessing)
		s.NoError(err)
	}()
	go func() {
		defer wg.Done()
		_, err := s.service.ChangeStatus(s.ctx, StaffActor(s.agent), ticket.ID, domain.TicketStatusWaitingForCustomer)
		s.NoError(err)
	}()
	wg.Wait()

	stored, err := s.service.Get(s.ctx, ticket.ID)
	s.Require().NoError(err)
	s.Contains([]domain.TicketStatus{
		domain.TicketStatusProcessing,
		domain.TicketStatusWaitingForCustomer,
	}, stored.Status)

	history, err := s.service.ListHistory(s.ctx, ticket.ID, 10, 0)
	s.Require().NoError(err)
	s.Len(history, 3) // creation plus both status changes

	s.Len(s.dispatcher.published(), 3)
}
