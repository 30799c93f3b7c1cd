package domain

import "time"

// AssetTicketCount ranks an asset by how many tickets reference it.
type AssetTicketCount struct {
	AssetID     string `json:"asset_id"`
	AssetName   string `json:"asset_name"`
	TicketCount int64  `json:"ticket_count"`
}

// DashboardStats holds the aggregate counters shown on the admin dashboard.
// Always recomputed from scratch rather than incrementally patched, so a
// missed event can never leave the counters drifted.
type DashboardStats struct {
	TotalTickets      int64              `json:"total_tickets"`
	OpenTickets       int64              `json:"open_tickets"`
	ProcessingTickets int64              `json:"processing_tickets"`
	ResolvedTickets   int64              `json:"resolved_tickets"`
	CriticalTickets   int64              `json:"critical_tickets"`
	TotalTenants      int64              `json:"total_tenants"`
	TotalAssets       int64              `json:"total_assets"`
	TopAssets         []AssetTicketCount `json:"top_assets"`
	GeneratedAt       time.Time          `json:"generated_at"`
}
