package events

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventCommentAdded          EventType = "comment_added"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketAssigned        EventType = "ticket_assigned"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
	EventTicketResolved        EventType = "ticket_resolved"
)

// Actor describes who triggered an event.
type Actor struct {
	Type domain.SubjectType `json:"type"`
	ID   string             `json:"id"`
	Name string             `json:"name"`
}

// Event is the transient envelope produced once per accepted mutation and
// consumed exactly once by the notification router. TenantID and AssigneeID
// snapshot the ticket's ownership at mutation time so the router never has
// to re-read the ticket.
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	TicketID   string      `json:"ticket_id"`
	TenantID   string      `json:"tenant_id"`
	AssigneeID *string     `json:"assignee_id,omitempty"`
	Actor      Actor       `json:"actor"`
	Timestamp  time.Time   `json:"timestamp"`
	Payload    interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title    string                `json:"title"`
	Priority domain.TicketPriority `json:"priority"`
}

// CommentAddedPayload payload.
type CommentAddedPayload struct {
	CommentID    string `json:"comment_id"`
	AuthorName   string `json:"author_name"`
	IsStaffReply bool   `json:"is_staff_reply"`
	BodyPreview  string `json:"body_preview"`
}

// StatusChangedPayload payload.
type StatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// AssignedPayload payload.
type AssignedPayload struct {
	AssigneeID   string `json:"assignee_id"`
	AssigneeName string `json:"assignee_name"`
}

// PriorityChangedPayload payload.
type PriorityChangedPayload struct {
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
}

// ResolvedPayload payload.
type ResolvedPayload struct {
	Solution   string `json:"solution"`
	ResolvedBy string `json:"resolved_by"`
}
