package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// StatsRepository computes dashboard aggregates. Snapshot reads the current
// state in one query pass rather than maintaining incremental counters.
type StatsRepository interface {
	Snapshot(ctx context.Context, topAssets int) (*domain.DashboardStats, error)
}

type statsRepository struct {
	pool *pgxpool.Pool
}

// NewStatsRepository returns a Postgres-backed implementation.
func NewStatsRepository(pool *pgxpool.Pool) StatsRepository {
	return &statsRepository{pool: pool}
}

func (r *statsRepository) Snapshot(ctx context.Context, topAssets int) (*domain.DashboardStats, error) {
	if topAssets <= 0 {
		topAssets = 5
	}
	stats := &domain.DashboardStats{GeneratedAt: time.Now()}

	const ticketQuery = `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE status='OPEN'),
               COUNT(*) FILTER (WHERE status='PROCESSING'),
               COUNT(*) FILTER (WHERE status='RESOLVED'),
               COUNT(*) FILTER (WHERE priority='CRITICAL')
        FROM tickets WHERE deleted_at IS NULL`
	if err := r.pool.QueryRow(ctx, ticketQuery).Scan(
		&stats.TotalTickets,
		&stats.OpenTickets,
		&stats.ProcessingTickets,
		&stats.ResolvedTickets,
		&stats.CriticalTickets,
	); err != nil {
		return nil, err
	}

	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tenants`).Scan(&stats.TotalTenants); err != nil {
		return nil, err
	}
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM assets`).Scan(&stats.TotalAssets); err != nil {
		return nil, err
	}

	const topQuery = `
        SELECT a.id, a.name, COUNT(t.id) AS ticket_count
        FROM assets a
        JOIN tickets t ON t.asset_id = a.id AND t.deleted_at IS NULL
        GROUP BY a.id, a.name
        ORDER BY ticket_count DESC, a.name ASC
        LIMIT $1`
	rows, err := r.pool.Query(ctx, topQuery, topAssets)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var entry domain.AssetTicketCount
		if err := rows.Scan(&entry.AssetID, &entry.AssetName, &entry.TicketCount); err != nil {
			return nil, err
		}
		stats.TopAssets = append(stats.TopAssets, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stats, nil
}
