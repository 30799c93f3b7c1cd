package service

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// StatsService computes dashboard snapshots by full recount over current
// state. Concurrent recomputes collapse into a single underlying query via
// singleflight; a burst of stat-affecting events costs one scan.
type StatsService struct {
	repo    repository.StatsRepository
	topN    int
	group   singleflight.Group
	metrics *observability.Metrics
}

// NewStatsService constructs the service. topN bounds the per-asset ticket
// leaderboard.
func NewStatsService(repo repository.StatsRepository, topN int, metrics *observability.Metrics) *StatsService {
	if topN <= 0 {
		topN = 5
	}
	return &StatsService{repo: repo, topN: topN, metrics: metrics}
}

// Recompute returns a fresh dashboard snapshot.
func (s *StatsService) Recompute(ctx context.Context) (*domain.DashboardStats, error) {
	result, err, _ := s.group.Do("dashboard", func() (interface{}, error) {
		if s.metrics != nil {
			s.metrics.StatsRecomputes.Inc()
		}
		return s.repo.Snapshot(ctx, s.topN)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result.(*domain.DashboardStats), nil
}
