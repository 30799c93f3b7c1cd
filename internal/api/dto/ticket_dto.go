package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
	AssetID     *string               `json:"asset_id"`
}

// ChangeStatusRequest payload.
type ChangeStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// ChangePriorityRequest payload.
type ChangePriorityRequest struct {
	Priority domain.TicketPriority `json:"priority"`
}

// AssignRequest payload.
type AssignRequest struct {
	StaffID string `json:"staff_id"`
}

// ResolveRequest payload.
type ResolveRequest struct {
	Solution string `json:"solution"`
}

// TicketSummary response.
type TicketSummary struct {
	ID          string                `json:"id"`
	ExternalKey string                `json:"external_key"`
	TenantID    string                `json:"tenant_id"`
	AssetID     *string               `json:"asset_id"`
	AssigneeID  *string               `json:"assignee_id"`
	Title       string                `json:"title"`
	Status      domain.TicketStatus   `json:"status"`
	Priority    domain.TicketPriority `json:"priority"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	Description string            `json:"description"`
	Solution    *string           `json:"solution"`
	Comments    []CommentResponse `json:"comments"`
	History     []HistoryResponse `json:"history"`
}

// CommentResponse represents one thread entry.
type CommentResponse struct {
	ID           string    `json:"id"`
	AuthorName   string    `json:"author_name"`
	IsStaffReply bool      `json:"is_staff_reply"`
	Body         string    `json:"body"`
	CreatedAt    time.Time `json:"created_at"`
}

// HistoryResponse represents one audit trail entry.
type HistoryResponse struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	ActorName string    `json:"actor_name"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Body string `json:"body"`
}
