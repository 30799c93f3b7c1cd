package domain

import "time"

// Comment is one message in a ticket's discussion thread. Append-only;
// IsStaffReply distinguishes staff/admin replies from customer replies.
type Comment struct {
	ID           string
	TicketID     string
	AuthorName   string
	IsStaffReply bool
	Body         string
	CreatedAt    time.Time
}
