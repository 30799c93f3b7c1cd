package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

func TestStatsSnapshotCounts(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemory()
	stats := NewStatsService(store.Stats(), 2, nil)

	tenant := &domain.Tenant{Name: "Acme", Email: "acme@example.com", Status: domain.TenantStatusActive}
	require.NoError(t, store.Tenants().Create(ctx, tenant))

	assetA := &domain.Asset{Name: "Printer", Tag: "PRN-1"}
	assetB := &domain.Asset{Name: "Router", Tag: "RTR-1"}
	assetC := &domain.Asset{Name: "Switch", Tag: "SWT-1"}
	for _, asset := range []*domain.Asset{assetA, assetB, assetC} {
		require.NoError(t, store.Assets().Create(ctx, asset))
	}

	addTicket := func(status domain.TicketStatus, priority domain.TicketPriority, assetID *string) {
		t.Helper()
		require.NoError(t, store.Tickets().Create(ctx, &domain.Ticket{
			TenantID: tenant.ID,
			AssetID:  assetID,
			Title:    "ticket",
			Status:   status,
			Priority: priority,
		}))
	}

	addTicket(domain.TicketStatusOpen, domain.TicketPriorityLow, &assetA.ID)
	addTicket(domain.TicketStatusOpen, domain.TicketPriorityCritical, &assetA.ID)
	addTicket(domain.TicketStatusProcessing, domain.TicketPriorityMedium, &assetB.ID)
	addTicket(domain.TicketStatusResolved, domain.TicketPriorityHigh, &assetC.ID)
	addTicket(domain.TicketStatusClosed, domain.TicketPriorityLow, nil)

	snapshot, err := stats.Recompute(ctx)
	require.NoError(t, err)

	require.EqualValues(t, 5, snapshot.TotalTickets)
	require.EqualValues(t, 2, snapshot.OpenTickets)
	require.EqualValues(t, 1, snapshot.ProcessingTickets)
	require.EqualValues(t, 1, snapshot.ResolvedTickets)
	require.EqualValues(t, 1, snapshot.CriticalTickets)
	require.EqualValues(t, 1, snapshot.TotalTenants)
	require.EqualValues(t, 3, snapshot.TotalAssets)

	// leaderboard is bounded by topN and sorted by ticket count
	require.Len(t, snapshot.TopAssets, 2)
	require.Equal(t, assetA.ID, snapshot.TopAssets[0].AssetID)
	require.EqualValues(t, 2, snapshot.TopAssets[0].TicketCount)
	require.False(t, snapshot.GeneratedAt.IsZero())
}

func TestStatsSnapshotExcludesSoftDeleted(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemory()
	stats := NewStatsService(store.Stats(), 5, nil)

	ticket := &domain.Ticket{TenantID: "tenant-1", Title: "gone", Status: domain.TicketStatusOpen, Priority: domain.TicketPriorityLow}
	require.NoError(t, store.Tickets().Create(ctx, ticket))
	require.NoError(t, store.Tickets().SoftDelete(ctx, ticket.ID))

	snapshot, err := stats.Recompute(ctx)
	require.NoError(t, err)
	require.Zero(t, snapshot.TotalTickets)
	require.Zero(t, snapshot.OpenTickets)
}
