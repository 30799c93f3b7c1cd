package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// TicketService owns the ticket lifecycle state machine. It is the only
// component allowed to mutate ticket state. Every accepted mutation does
// three things in order: mutate the ticket row, append exactly one history
// entry, and publish one TicketEvent. An unknown ticket id aborts before
// any side effect; a failure downstream of the mutation (router, live
// dispatch) is never rolled back and never surfaced to the caller.
type TicketService struct {
	tickets  repository.TicketRepository
	comments repository.CommentRepository
	history  repository.HistoryRepository
	staff    repository.StaffRepository
	assets   repository.AssetRepository

	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	cfg        config.TicketConfig

	// locks serializes mutations per ticket id so two concurrent staff
	// updates can interleave but never lose each other's write.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// TicketDependencies bundles repositories for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	CommentRepo repository.CommentRepository
	HistoryRepo repository.HistoryRepository
	StaffRepo   repository.StaffRepository
	AssetRepo   repository.AssetRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Metrics     *observability.Metrics
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    domain.TicketPriority
	AssetID     *string
}

// NewTicketService constructs the service.
func NewTicketService(cfg config.TicketConfig, deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		comments:   deps.CommentRepo,
		history:    deps.HistoryRepo,
		staff:      deps.StaffRepo,
		assets:     deps.AssetRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		metrics:    deps.Metrics,
		cfg:        cfg,
		locks:      make(map[string]*sync.Mutex),
	}
}

// Create files a new ticket for a tenant. Tickets always enter OPEN with
// the submitted priority (default LOW) and no assignee.
func (s *TicketService) Create(ctx context.Context, tenant *domain.Tenant, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, apperrors.NewValidationError("title and description required", nil)
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityLow
	}
	if !domain.ValidPriority(priority) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": priority})
	}
	if input.AssetID != nil {
		if _, err := s.assets.GetByID(ctx, *input.AssetID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperrors.NewNotFound("asset", map[string]any{"asset_id": *input.AssetID})
			}
			return nil, apperrors.MapError(err)
		}
	}

	ticket := &domain.Ticket{
		ExternalKey: generateTicketKey(),
		TenantID:    tenant.ID,
		AssetID:     input.AssetID,
		Title:       title,
		Description: description,
		Status:      domain.TicketStatusOpen,
		Priority:    priority,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.appendHistory(ctx, ticket.ID, fmt.Sprintf("ticket created by %s", tenant.Name), tenant.Name)
	s.publishEvent(ctx, ticket, events.EventTicketCreated, tenantActor(tenant), events.TicketCreatedPayload{
		Title:    ticket.Title,
		Priority: ticket.Priority,
	})
	return ticket, nil
}

// ChangeStatus moves a ticket to a new status. Any enumerated status may
// move to any other unless strict transitions are enabled.
func (s *TicketService) ChangeStatus(ctx context.Context, actor events.Actor, ticketID string, newStatus domain.TicketStatus) (*domain.Ticket, error) {
	if !domain.ValidStatus(newStatus) {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": newStatus})
	}

	unlock := s.lockTicket(ticketID)
	defer unlock()

	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	oldStatus := ticket.Status
	if s.cfg.StrictTransitions && !isValidTransition(oldStatus, newStatus) {
		return nil, apperrors.NewConflict("status transition not allowed", map[string]any{
			"from": oldStatus,
			"to":   newStatus,
		})
	}
	ticket.Status = newStatus
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, mapRepoError(err, ticketID)
	}
	s.appendHistory(ctx, ticket.ID,
		fmt.Sprintf("status changed from %s to %s by %s", oldStatus, newStatus, actor.Name), actor.Name)
	s.publishEvent(ctx, ticket, events.EventTicketStatusChanged, actor, events.StatusChangedPayload{
		OldStatus: oldStatus,
		NewStatus: newStatus,
	})
	return ticket, nil
}

// ChangePriority sets a new priority, validated only against the enum.
func (s *TicketService) ChangePriority(ctx context.Context, actor events.Actor, ticketID string, newPriority domain.TicketPriority) (*domain.Ticket, error) {
	if !domain.ValidPriority(newPriority) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": newPriority})
	}

	unlock := s.lockTicket(ticketID)
	defer unlock()

	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	oldPriority := ticket.Priority
	ticket.Priority = newPriority
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, mapRepoError(err, ticketID)
	}
	s.appendHistory(ctx, ticket.ID,
		fmt.Sprintf("priority changed from %s to %s by %s", oldPriority, newPriority, actor.Name), actor.Name)
	s.publishEvent(ctx, ticket, events.EventTicketPriorityChanged, actor, events.PriorityChangedPayload{
		OldPriority: oldPriority,
		NewPriority: newPriority,
	})
	return ticket, nil
}

// Assign claims the ticket for the given staff member, replacing any prior
// assignee. Claim-by-overwrite: the last assign wins.
func (s *TicketService) Assign(ctx context.Context, actor events.Actor, ticketID, staffID string) (*domain.Ticket, error) {
	assignee, err := s.staff.GetByID(ctx, staffID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("staff", map[string]any{"staff_id": staffID})
		}
		return nil, apperrors.MapError(err)
	}
	if !assignee.Active {
		return nil, apperrors.NewConflict("assignee inactive", map[string]any{"staff_id": staffID})
	}

	unlock := s.lockTicket(ticketID)
	defer unlock()

	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	ticket.AssigneeID = &assignee.ID
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, mapRepoError(err, ticketID)
	}
	s.appendHistory(ctx, ticket.ID, fmt.Sprintf("assigned to %s", assignee.Name), actor.Name)
	s.publishEvent(ctx, ticket, events.EventTicketAssigned, actor, events.AssignedPayload{
		AssigneeID:   assignee.ID,
		AssigneeName: assignee.Name,
	})
	return ticket, nil
}

// AddComment appends a comment to the discussion thread. Status never
// changes implicitly, but a history entry is always written.
func (s *TicketService) AddComment(ctx context.Context, actor events.Actor, ticketID, body string, isStaffReply bool) (*domain.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("comment body required", nil)
	}

	unlock := s.lockTicket(ticketID)
	defer unlock()

	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	comment := &domain.Comment{
		TicketID:     ticket.ID,
		AuthorName:   actor.Name,
		IsStaffReply: isStaffReply,
		Body:         body,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.appendHistory(ctx, ticket.ID, fmt.Sprintf("comment added by %s", actor.Name), actor.Name)
	s.publishEvent(ctx, ticket, events.EventCommentAdded, actor, events.CommentAddedPayload{
		CommentID:    comment.ID,
		AuthorName:   comment.AuthorName,
		IsStaffReply: comment.IsStaffReply,
		BodyPreview:  stringPreview(comment.Body, 120),
	})
	return comment, nil
}

// Resolve transitions the ticket to RESOLVED and records the solution note
// as a staff comment. The only operation requiring a non-empty note.
func (s *TicketService) Resolve(ctx context.Context, actor events.Actor, ticketID, solution string) (*domain.Ticket, error) {
	solution = strings.TrimSpace(solution)
	if solution == "" {
		return nil, apperrors.NewValidationError("solution note required", nil)
	}

	unlock := s.lockTicket(ticketID)
	defer unlock()

	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	ticket.Status = domain.TicketStatusResolved
	ticket.Solution = &solution
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, mapRepoError(err, ticketID)
	}
	comment := &domain.Comment{
		TicketID:     ticket.ID,
		AuthorName:   actor.Name,
		IsStaffReply: true,
		Body:         solution,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		s.logger.Warn("failed to record solution comment", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
	s.appendHistory(ctx, ticket.ID, fmt.Sprintf("resolved by %s", actor.Name), actor.Name)
	s.publishEvent(ctx, ticket, events.EventTicketResolved, actor, events.ResolvedPayload{
		Solution:   solution,
		ResolvedBy: actor.Name,
	})
	return ticket, nil
}

// SoftDelete hides a ticket from all listings. Rows are never physically
// removed.
func (s *TicketService) SoftDelete(ctx context.Context, actor events.Actor, ticketID string) error {
	unlock := s.lockTicket(ticketID)
	defer unlock()

	if err := s.tickets.SoftDelete(ctx, ticketID); err != nil {
		return mapRepoError(err, ticketID)
	}
	s.appendHistory(ctx, ticketID, fmt.Sprintf("ticket deleted by %s", actor.Name), actor.Name)
	return nil
}

// GetForTenant fetches a ticket ensuring ownership.
func (s *TicketService) GetForTenant(ctx context.Context, tenantID, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.TenantID != tenantID {
		return nil, apperrors.NewForbidden("access denied")
	}
	return ticket, nil
}

// Get fetches a ticket for staff access.
func (s *TicketService) Get(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	return s.getTicket(ctx, ticketID)
}

// ListForTenant returns a tenant's tickets, newest-updated first.
func (s *TicketService) ListForTenant(ctx context.Context, tenantID string, filter repository.TicketFilter) ([]domain.Ticket, error) {
	filter.TenantID = &tenantID
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ListForStaff returns tickets matching staff filters.
func (s *TicketService) ListForStaff(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ListHistory returns the audit trail, oldest first.
func (s *TicketService) ListHistory(ctx context.Context, ticketID string, limit, offset int) ([]domain.HistoryEntry, error) {
	if _, err := s.getTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	entries, err := s.history.ListByTicket(ctx, ticketID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// ListComments returns the discussion thread, oldest first.
func (s *TicketService) ListComments(ctx context.Context, ticketID string, limit, offset int) ([]domain.Comment, error) {
	if _, err := s.getTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByTicket(ctx, ticketID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return comments, nil
}

func (s *TicketService) getTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapRepoError(err, ticketID)
	}
	return ticket, nil
}

// lockTicket acquires the per-id mutex, creating it on first use.
func (s *TicketService) lockTicket(ticketID string) func() {
	s.locksMu.Lock()
	lock, ok := s.locks[ticketID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[ticketID] = lock
	}
	s.locksMu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// appendHistory writes the audit entry for an already-accepted mutation.
// A history write failure is logged loudly but cannot un-accept the
// mutation at this point.
func (s *TicketService) appendHistory(ctx context.Context, ticketID, action, actorName string) {
	entry := &domain.HistoryEntry{
		TicketID:  ticketID,
		Action:    action,
		ActorName: actorName,
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Error("failed to append history entry",
			zap.String("ticket_id", ticketID),
			zap.String("action", action),
			zap.Error(err))
	}
}

// publishEvent hands the constructed event to the router via the
// dispatcher. Best-effort: state mutation is authoritative.
func (s *TicketService) publishEvent(ctx context.Context, ticket *domain.Ticket, eventType events.EventType, actor events.Actor, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		TicketID:   ticket.ID,
		TenantID:   ticket.TenantID,
		AssigneeID: ticket.AssigneeID,
		Actor:      actor,
		Timestamp:  time.Now(),
		Payload:    payload,
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed",
			zap.String("ticket_id", ticket.ID),
			zap.String("event_type", string(eventType)),
			zap.Error(err))
		return
	}
	if s.metrics != nil {
		s.metrics.EventsPublished.WithLabelValues(string(eventType)).Inc()
	}
}

func mapRepoError(err error, ticketID string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	return apperrors.MapError(err)
}

func generateTicketKey() string {
	return "TCK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func tenantActor(tenant *domain.Tenant) events.Actor {
	return events.Actor{Type: domain.SubjectTypeTenant, ID: tenant.ID, Name: tenant.Name}
}

// StaffActor builds the event actor for a staff member.
func StaffActor(staff *domain.StaffMember) events.Actor {
	return events.Actor{Type: domain.SubjectTypeStaff, ID: staff.ID, Name: staff.Name}
}

// TenantActor builds the event actor for a tenant.
func TenantActor(tenant *domain.Tenant) events.Actor {
	return tenantActor(tenant)
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}

// allowedTransitions is the optional strict guard graph. Only consulted
// when TICKET_STRICT_TRANSITIONS is enabled.
var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:               {domain.TicketStatusProcessing, domain.TicketStatusClosed},
	domain.TicketStatusProcessing:         {domain.TicketStatusWaitingForCustomer, domain.TicketStatusResolved},
	domain.TicketStatusWaitingForCustomer: {domain.TicketStatusProcessing, domain.TicketStatusResolved},
	domain.TicketStatusResolved:           {domain.TicketStatusClosed, domain.TicketStatusProcessing},
	domain.TicketStatusClosed:             {},
}

func isValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}
