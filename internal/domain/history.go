package domain

import "time"

// HistoryEntry is an immutable audit line describing one accepted mutation.
// Entries are append-only and ordered by CreatedAt ascending.
type HistoryEntry struct {
	ID        string
	TicketID  string
	Action    string
	ActorName string
	CreatedAt time.Time
}
