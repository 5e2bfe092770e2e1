package services

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"bilancio/internal/cache"
	"bilancio/internal/classify"
	"bilancio/internal/core"
	"bilancio/internal/hierarchy"
	"bilancio/internal/projection"
	"bilancio/internal/rollup"
)

// Repository is the data-access surface the dashboard needs. Implemented
// by storage.SQLiteRepository.
type Repository interface {
	ListBudgetHeads(ctx context.Context) ([]core.BudgetHead, error)
	ListDepartments(ctx context.Context) ([]core.Department, error)
	GetBudgetCycle(ctx context.Context, id int64) (core.BudgetCycle, error)
	ListAllocations(ctx context.Context, cycleID int64, limit int) ([]core.Allocation, error)
	SnapshotVersion(ctx context.Context, cycleID int64) (int64, error)
}

// ProjectionSet bundles everything one dashboard render needs: the four
// projections plus the department status summary, all derived from the
// same immutable snapshot.
type ProjectionSet struct {
	CycleID         int64                      `json:"cycle_id"`
	FiscalYear      string                     `json:"fiscal_year"`
	Department      int64                      `json:"department,omitempty"`
	SnapshotVersion int64                      `json:"snapshot_version"`
	Overview        projection.OverviewTotals  `json:"overview"`
	Periods         []projection.PeriodEntry   `json:"periods"`
	HeadWise        projection.HeadWiseTotals  `json:"head_wise"`
	Grid            projection.Grid            `json:"grid"`
	StatusSummary   classify.Summary           `json:"status_summary"`
	Departments     []core.Department          `json:"departments"`
	Buckets         map[int64]classify.Bucket  `json:"-"`
}

// DashboardService recomputes projections over a bounded snapshot of one
// cycle's allocations. Computed sets are cached per (cycle, snapshot
// version, department filter); any write to the cycle changes the version
// and naturally misses the cache.
type DashboardService struct {
	repo           Repository
	cache          *cache.LRUCache[*ProjectionSet]
	maxAllocations int
}

func NewDashboardService(repo Repository, c *cache.LRUCache[*ProjectionSet], maxAllocations int) *DashboardService {
	return &DashboardService{
		repo:           repo,
		cache:          c,
		maxAllocations: maxAllocations,
	}
}

// Projections returns the projection set for a cycle under a department
// filter. cycleID 0 selects the active cycle; department
// rollup.AllDepartments disables the filter.
func (s *DashboardService) Projections(ctx context.Context, cycleID, department int64) (*ProjectionSet, error) {
	cycle, err := s.repo.GetBudgetCycle(ctx, cycleID)
	if err != nil {
		return nil, fmt.Errorf("resolve cycle: %w", err)
	}

	version, err := s.repo.SnapshotVersion(ctx, cycle.ID)
	if err != nil {
		return nil, fmt.Errorf("snapshot version: %w", err)
	}

	key := fmt.Sprintf("%d:%d:%d", cycle.ID, version, department)
	if s.cache != nil {
		if set, ok := s.cache.Get(key); ok {
			return set, nil
		}
	}

	set, err := s.recompute(ctx, cycle, version, department)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(key, set)
	}
	return set, nil
}

// Invalidate drops every cached projection set. Called when an
// allocation-change event arrives.
func (s *DashboardService) Invalidate() {
	if s.cache == nil {
		return
	}
	dropped := s.cache.Purge()
	slog.Info("Projection cache invalidated", "dropped", dropped)
}

func (s *DashboardService) recompute(ctx context.Context, cycle core.BudgetCycle, version, department int64) (*ProjectionSet, error) {
	var (
		heads       []core.BudgetHead
		departments []core.Department
		allocations []core.Allocation
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		heads, err = s.repo.ListBudgetHeads(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		departments, err = s.repo.ListDepartments(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		allocations, err = s.repo.ListAllocations(gctx, cycle.ID, s.maxAllocations)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	index := hierarchy.Build(heads)
	if orphans := index.Orphans(); len(orphans) > 0 {
		ids := make([]int64, len(orphans))
		for i, o := range orphans {
			ids[i] = o.ID
		}
		// Data-integrity condition, not fatal: orphans are excluded from
		// every projection rather than blanking the dashboard.
		slog.WarnContext(ctx, "Orphan subheads excluded from rollup",
			"cycle_id", cycle.ID,
			"orphan_count", len(orphans),
			"head_ids", ids)
	}

	engine := rollup.New(index, cycle, allocations, department)
	projector := projection.New(index, engine, cycle)
	summary, buckets := classify.Summarize(allocations)

	return &ProjectionSet{
		CycleID:         cycle.ID,
		FiscalYear:      cycle.FiscalYear,
		Department:      department,
		SnapshotVersion: version,
		Overview:        projector.Overview(),
		Periods:         projector.PeriodBreakdown(),
		HeadWise:        projector.HeadWiseTotals(),
		Grid:            projector.DetailedGrid(),
		StatusSummary:   summary,
		Departments:     departments,
		Buckets:         buckets,
	}, nil
}
