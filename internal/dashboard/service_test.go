package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/facturo/facturo/internal/shared"
)

type mockRepo struct {
	totals       *TotalsReport
	totalsErr    error
	totalsCalls  int
	monthly      []MonthlyRevenue
	monthlyCalls int
	statuses     []StatusBreakdown
	statusCalls  int
	top          []TopClient
	topCalls     int
	topLimit     int
}

func (m *mockRepo) Totals(ctx context.Context) (*TotalsReport, error) {
	m.totalsCalls++
	return m.totals, m.totalsErr
}

func (m *mockRepo) Monthly(ctx context.Context) ([]MonthlyRevenue, error) {
	m.monthlyCalls++
	return m.monthly, nil
}

func (m *mockRepo) StatusBreakdown(ctx context.Context) ([]StatusBreakdown, error) {
	m.statusCalls++
	return m.statuses, nil
}

func (m *mockRepo) TopClients(ctx context.Context, limit int) ([]TopClient, error) {
	m.topCalls++
	m.topLimit = limit
	return m.top, nil
}

func newTestService(t *testing.T, repo RepositoryPort) (*Service, func()) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(client, time.Minute)
	svc := NewService(repo, cache)
	return svc, func() {
		_ = client.Close()
		mr.Close()
	}
}

func staffScope() shared.Scope {
	return shared.Scope{UserID: 3, Email: "books@facturo.local", Role: shared.RoleAccountant}
}

func TestTotalsCaches(t *testing.T) {
	repo := &mockRepo{
		totals: &TotalsReport{
			TotalInvoiced: 4800,
			TotalPaid:     3100,
			TotalDue:      1700,
			ByClient: []ClientTotals{
				{Client: "Acme SARL", Invoiced: 4800, Paid: 3100},
			},
		},
	}
	svc, cleanup := newTestService(t, repo)
	defer cleanup()

	ctx := context.Background()
	report, err := svc.Totals(ctx, staffScope())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.TotalDue != 1700 {
		t.Fatalf("expected total due 1700 got %.2f", report.TotalDue)
	}
	if repo.totalsCalls != 1 {
		t.Fatalf("expected 1 repo call, got %d", repo.totalsCalls)
	}

	// Second call should hit cache.
	if _, err := svc.Totals(ctx, staffScope()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.totalsCalls != 1 {
		t.Fatalf("expected cached result, repo called %d times", repo.totalsCalls)
	}

	// Bumping the version should trigger a reload.
	if err := svc.cache.Bump(ctx); err != nil {
		t.Fatalf("bump failed: %v", err)
	}
	repo.totals.TotalPaid = 4800
	repo.totals.TotalDue = 0
	report, err = svc.Totals(ctx, staffScope())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.TotalDue != 0 {
		t.Fatalf("expected refreshed total due 0 got %.2f", report.TotalDue)
	}
	if repo.totalsCalls != 2 {
		t.Fatalf("expected repo to refresh, calls %d", repo.totalsCalls)
	}
}

func TestLedgerChangedInvalidates(t *testing.T) {
	repo := &mockRepo{
		monthly: []MonthlyRevenue{{Month: "2026-07", Revenue: 900}},
	}
	svc, cleanup := newTestService(t, repo)
	defer cleanup()

	ctx := context.Background()
	if _, err := svc.Monthly(ctx, staffScope()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Monthly(ctx, staffScope()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.monthlyCalls != 1 {
		t.Fatalf("expected cached result, repo called %d times", repo.monthlyCalls)
	}

	svc.cache.LedgerChanged(ctx)

	if _, err := svc.Monthly(ctx, staffScope()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.monthlyCalls != 2 {
		t.Fatalf("expected reload after invalidation, calls %d", repo.monthlyCalls)
	}
}

func TestTopClientsUsesDefaultLimit(t *testing.T) {
	repo := &mockRepo{top: []TopClient{{Client: "Acme SARL", Paid: 3100}}}
	svc, cleanup := newTestService(t, repo)
	defer cleanup()

	top, err := svc.TopClients(context.Background(), staffScope())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(top) != 1 || top[0].Client != "Acme SARL" {
		t.Fatalf("unexpected top clients: %+v", top)
	}
	if repo.topLimit != 10 {
		t.Fatalf("expected limit 10, got %d", repo.topLimit)
	}
}

func TestDashboardRequiresStaffRole(t *testing.T) {
	svc, cleanup := newTestService(t, &mockRepo{})
	defer cleanup()

	client := shared.Scope{UserID: 9, Email: "client@facturo.local", Role: shared.RoleClient}
	if _, err := svc.Totals(context.Background(), client); !errors.Is(err, shared.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := svc.StatusBreakdown(context.Background(), shared.Scope{}); !errors.Is(err, shared.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
}

func TestNilCacheFallsThroughToRepository(t *testing.T) {
	repo := &mockRepo{statuses: []StatusBreakdown{{Status: "unpaid", Count: 2, Total: 400}}}
	svc := NewService(repo, nil)

	for i := 0; i < 2; i++ {
		out, err := svc.StatusBreakdown(context.Background(), staffScope())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(out) != 1 || out[0].Count != 2 {
			t.Fatalf("unexpected breakdown: %+v", out)
		}
	}
	if repo.statusCalls != 2 {
		t.Fatalf("expected repo call per request without cache, got %d", repo.statusCalls)
	}
}
