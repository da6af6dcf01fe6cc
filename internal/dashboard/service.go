package dashboard

import (
	"context"

	"github.com/facturo/facturo/internal/shared"
)

// Service answers dashboard queries through the cache. Aggregates are staff
// only; the client role has no dashboard capability.
type Service struct {
	repo  RepositoryPort
	cache *Cache
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// Totals returns the headline figures plus the per-client breakdown.
func (s *Service) Totals(ctx context.Context, scope shared.Scope) (*TotalsReport, error) {
	if err := scope.Authorize(shared.CapDashboardRead); err != nil {
		return nil, err
	}
	key, err := s.cache.BuildKey(ctx, "dashboard", "totals")
	if err != nil {
		return s.repo.Totals(ctx)
	}
	var report TotalsReport
	err = s.cache.FetchJSON(ctx, key, &report, func(ctx context.Context) (any, error) {
		return s.repo.Totals(ctx)
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// Monthly returns invoiced revenue grouped by calendar month.
func (s *Service) Monthly(ctx context.Context, scope shared.Scope) ([]MonthlyRevenue, error) {
	if err := scope.Authorize(shared.CapDashboardRead); err != nil {
		return nil, err
	}
	key, err := s.cache.BuildKey(ctx, "dashboard", "monthly")
	if err != nil {
		return s.repo.Monthly(ctx)
	}
	var out []MonthlyRevenue
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		return s.repo.Monthly(ctx)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// StatusBreakdown returns invoice counts and amounts per status.
func (s *Service) StatusBreakdown(ctx context.Context, scope shared.Scope) ([]StatusBreakdown, error) {
	if err := scope.Authorize(shared.CapDashboardRead); err != nil {
		return nil, err
	}
	key, err := s.cache.BuildKey(ctx, "dashboard", "status")
	if err != nil {
		return s.repo.StatusBreakdown(ctx)
	}
	var out []StatusBreakdown
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		return s.repo.StatusBreakdown(ctx)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// TopClients returns the ten clients with the highest paid amounts.
func (s *Service) TopClients(ctx context.Context, scope shared.Scope) ([]TopClient, error) {
	if err := scope.Authorize(shared.CapDashboardRead); err != nil {
		return nil, err
	}
	key, err := s.cache.BuildKey(ctx, "dashboard", "top_clients")
	if err != nil {
		return s.repo.TopClients(ctx, 10)
	}
	var out []TopClient
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		return s.repo.TopClients(ctx, 10)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
