package repository

import (
	"errors"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// ErrNotFound is returned when a row does not exist. Postgres-backed
// implementations translate pgx.ErrNoRows into it so services have one
// sentinel to check regardless of the backing store.
var ErrNotFound = errors.New("record not found")

// TicketFilter captures list/search parameters. Soft-deleted tickets are
// always excluded.
type TicketFilter struct {
	TenantID    *string
	AssigneeID  *string
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}
