package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"bilancio/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ListBudgetHeads returns all active heads in display order.
func (r *SQLiteRepository) ListBudgetHeads(ctx context.Context) ([]core.BudgetHead, error) {
	rows, err := r.queries.ListBudgetHeads(ctx)
	if err != nil {
		return nil, fmt.Errorf("list budget heads: %w", err)
	}

	heads := make([]core.BudgetHead, len(rows))
	for i, h := range rows {
		heads[i] = core.BudgetHead{
			ID:           h.ID,
			Code:         h.Code,
			Name:         h.Name,
			Type:         core.HeadType(h.HeadType),
			ParentID:     h.ParentID.Int64, // zero when NULL: top-level
			DisplayOrder: int(h.DisplayOrder),
		}
	}
	return heads, nil
}

// ListDepartments returns all active departments.
func (r *SQLiteRepository) ListDepartments(ctx context.Context) ([]core.Department, error) {
	rows, err := r.queries.ListDepartments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}

	departments := make([]core.Department, len(rows))
	for i, d := range rows {
		departments[i] = core.Department{ID: d.ID, Name: d.Name}
	}
	return departments, nil
}

// GetBudgetCycle loads one cycle by id, or the latest active cycle when
// id is zero.
func (r *SQLiteRepository) GetBudgetCycle(ctx context.Context, id int64) (core.BudgetCycle, error) {
	var (
		row BudgetCycle
		err error
	)
	if id == 0 {
		row, err = r.queries.GetActiveBudgetCycle(ctx)
	} else {
		row, err = r.queries.GetBudgetCycle(ctx, id)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return core.BudgetCycle{}, core.ErrUnknownCycle
	}
	if err != nil {
		return core.BudgetCycle{}, fmt.Errorf("get budget cycle: %w", err)
	}

	return core.BudgetCycle{
		ID:         row.ID,
		FiscalYear: row.FiscalYear,
		PeriodType: core.PeriodType(row.PeriodType),
		Status:     row.Status,
	}, nil
}

// ListAllocations returns the cycle's allocations, bounded at limit.
func (r *SQLiteRepository) ListAllocations(ctx context.Context, cycleID int64, limit int) ([]core.Allocation, error) {
	rows, err := r.queries.ListAllocationsByCycle(ctx, cycleID, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list allocations: %w", err)
	}

	allocations := make([]core.Allocation, len(rows))
	for i, a := range rows {
		allocations[i] = toCoreAllocation(a)
	}
	return allocations, nil
}

// CreateAllocation inserts a draft allocation and returns it.
func (r *SQLiteRepository) CreateAllocation(ctx context.Context, a core.Allocation) (core.Allocation, error) {
	row, err := r.queries.CreateAllocation(ctx, CreateAllocationParams{
		CycleID:        a.CycleID,
		HeadID:         a.HeadID,
		DepartmentID:   a.DepartmentID,
		PeriodNumber:   int64(a.Period),
		AllocatedCents: a.Allocated.Cents,
	})
	if err != nil {
		return core.Allocation{}, fmt.Errorf("create allocation: %w", err)
	}

	slog.InfoContext(ctx, "Allocation saved",
		"allocation_id", row.ID,
		"cycle_id", row.CycleID,
		"head_id", row.HeadID,
		"department_id", row.DepartmentID,
		"period", row.PeriodNumber,
		"amount_cents", row.AllocatedCents)

	return toCoreAllocation(row), nil
}

// UpdateAllocationStatus is the external approval workflow's write path:
// it moves one allocation to a new status and records the approved amount
// (nil clears it).
func (r *SQLiteRepository) UpdateAllocationStatus(ctx context.Context, id int64, status core.AllocationStatus, approved *core.Money) error {
	var approvedCents sql.NullInt64
	if approved != nil {
		approvedCents = sql.NullInt64{Int64: approved.Cents, Valid: true}
	}

	err := r.queries.UpdateAllocationStatus(ctx, UpdateAllocationStatusParams{
		ID:            id,
		Status:        string(status),
		ApprovedCents: approvedCents,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("allocation %d: %w", id, sql.ErrNoRows)
	}
	if err != nil {
		return fmt.Errorf("update allocation status: %w", err)
	}

	slog.InfoContext(ctx, "Allocation status updated",
		"allocation_id", id,
		"status", status)
	return nil
}

// GetAllocation retrieves a single allocation by id.
func (r *SQLiteRepository) GetAllocation(ctx context.Context, id int64) (core.Allocation, error) {
	row, err := r.queries.GetAllocation(ctx, id)
	if err != nil {
		return core.Allocation{}, fmt.Errorf("get allocation: %w", err)
	}
	return toCoreAllocation(row), nil
}

// SnapshotVersion changes whenever any allocation in the cycle changes.
func (r *SQLiteRepository) SnapshotVersion(ctx context.Context, cycleID int64) (int64, error) {
	v, err := r.queries.GetSnapshotVersion(ctx, cycleID)
	if err != nil {
		return 0, fmt.Errorf("snapshot version: %w", err)
	}
	return v, nil
}

func toCoreAllocation(a Allocation) core.Allocation {
	out := core.Allocation{
		ID:           a.ID,
		CycleID:      a.CycleID,
		HeadID:       a.HeadID,
		DepartmentID: a.DepartmentID,
		Period:       int(a.PeriodNumber),
		Allocated:    core.Money{Cents: a.AllocatedCents},
		Status:       core.AllocationStatus(a.Status),
	}
	if a.ApprovedCents.Valid {
		out.Approved = &core.Money{Cents: a.ApprovedCents.Int64}
	}
	return out
}
