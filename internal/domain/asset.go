package domain

import "time"

// Asset is a piece of tracked equipment a ticket may reference. Assets feed
// the dashboard's per-asset ticket counters.
type Asset struct {
	ID        string
	Name      string
	Tag       string
	CreatedAt time.Time
}
