package storage

import (
	"context"
	"database/sql"
)

// DBTX is the subset of *sql.DB / *sql.Tx the queries need.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

// Row types mirror the table shapes; the repository maps them to core types.
type (
	BudgetHead struct {
		ID           int64
		Code         string
		Name         string
		HeadType     string
		ParentID     sql.NullInt64
		DisplayOrder int64
	}

	Department struct {
		ID   int64
		Name string
	}

	BudgetCycle struct {
		ID         int64
		FiscalYear string
		PeriodType string
		Status     string
	}

	Allocation struct {
		ID             int64
		CycleID        int64
		HeadID         int64
		DepartmentID   int64
		PeriodNumber   int64
		AllocatedCents int64
		ApprovedCents  sql.NullInt64
		Status         string
		Version        int64
		CreatedAt      sql.NullTime
		UpdatedAt      sql.NullTime
	}
)

const listBudgetHeads = `
SELECT id, code, name, head_type, parent_id, display_order
FROM budget_heads
WHERE is_active = 1
ORDER BY display_order, id
`

func (q *Queries) ListBudgetHeads(ctx context.Context) ([]BudgetHead, error) {
	rows, err := q.db.QueryContext(ctx, listBudgetHeads)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BudgetHead
	for rows.Next() {
		var h BudgetHead
		if err := rows.Scan(&h.ID, &h.Code, &h.Name, &h.HeadType, &h.ParentID, &h.DisplayOrder); err != nil {
			return nil, err
		}
		items = append(items, h)
	}
	return items, rows.Err()
}

const listDepartments = `
SELECT id, name
FROM departments
WHERE is_active = 1
ORDER BY name, id
`

func (q *Queries) ListDepartments(ctx context.Context) ([]Department, error) {
	rows, err := q.db.QueryContext(ctx, listDepartments)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Department
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

const getBudgetCycle = `
SELECT id, fiscal_year, period_type, status
FROM budget_cycles
WHERE id = ?
`

func (q *Queries) GetBudgetCycle(ctx context.Context, id int64) (BudgetCycle, error) {
	var c BudgetCycle
	err := q.db.QueryRowContext(ctx, getBudgetCycle, id).
		Scan(&c.ID, &c.FiscalYear, &c.PeriodType, &c.Status)
	return c, err
}

const getActiveBudgetCycle = `
SELECT id, fiscal_year, period_type, status
FROM budget_cycles
WHERE status = 'active'
ORDER BY id DESC
LIMIT 1
`

func (q *Queries) GetActiveBudgetCycle(ctx context.Context) (BudgetCycle, error) {
	var c BudgetCycle
	err := q.db.QueryRowContext(ctx, getActiveBudgetCycle).
		Scan(&c.ID, &c.FiscalYear, &c.PeriodType, &c.Status)
	return c, err
}

const listAllocationsByCycle = `
SELECT id, cycle_id, head_id, department_id, period_number,
       allocated_cents, approved_cents, status, version, created_at, updated_at
FROM allocations
WHERE cycle_id = ?
ORDER BY id
LIMIT ?
`

func (q *Queries) ListAllocationsByCycle(ctx context.Context, cycleID int64, limit int64) ([]Allocation, error) {
	rows, err := q.db.QueryContext(ctx, listAllocationsByCycle, cycleID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Allocation
	for rows.Next() {
		var a Allocation
		if err := rows.Scan(
			&a.ID, &a.CycleID, &a.HeadID, &a.DepartmentID, &a.PeriodNumber,
			&a.AllocatedCents, &a.ApprovedCents, &a.Status, &a.Version, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

const getAllocation = `
SELECT id, cycle_id, head_id, department_id, period_number,
       allocated_cents, approved_cents, status, version, created_at, updated_at
FROM allocations
WHERE id = ?
`

func (q *Queries) GetAllocation(ctx context.Context, id int64) (Allocation, error) {
	var a Allocation
	err := q.db.QueryRowContext(ctx, getAllocation, id).Scan(
		&a.ID, &a.CycleID, &a.HeadID, &a.DepartmentID, &a.PeriodNumber,
		&a.AllocatedCents, &a.ApprovedCents, &a.Status, &a.Version, &a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}

const createAllocation = `
INSERT INTO allocations (cycle_id, head_id, department_id, period_number, allocated_cents, status)
VALUES (?, ?, ?, ?, ?, 'draft')
RETURNING id, cycle_id, head_id, department_id, period_number,
          allocated_cents, approved_cents, status, version, created_at, updated_at
`

type CreateAllocationParams struct {
	CycleID        int64
	HeadID         int64
	DepartmentID   int64
	PeriodNumber   int64
	AllocatedCents int64
}

func (q *Queries) CreateAllocation(ctx context.Context, arg CreateAllocationParams) (Allocation, error) {
	var a Allocation
	err := q.db.QueryRowContext(ctx, createAllocation,
		arg.CycleID, arg.HeadID, arg.DepartmentID, arg.PeriodNumber, arg.AllocatedCents,
	).Scan(
		&a.ID, &a.CycleID, &a.HeadID, &a.DepartmentID, &a.PeriodNumber,
		&a.AllocatedCents, &a.ApprovedCents, &a.Status, &a.Version, &a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}

const updateAllocationStatus = `
UPDATE allocations
SET status = ?, approved_cents = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`

type UpdateAllocationStatusParams struct {
	ID            int64
	Status        string
	ApprovedCents sql.NullInt64
}

func (q *Queries) UpdateAllocationStatus(ctx context.Context, arg UpdateAllocationStatusParams) error {
	res, err := q.db.ExecContext(ctx, updateAllocationStatus, arg.Status, arg.ApprovedCents, arg.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

const getSnapshotVersion = `
SELECT COALESCE(SUM(version), 0) + COUNT(*)
FROM allocations
WHERE cycle_id = ?
`

// GetSnapshotVersion returns a value that changes whenever any allocation
// in the cycle is created or updated; it keys the projection cache.
func (q *Queries) GetSnapshotVersion(ctx context.Context, cycleID int64) (int64, error) {
	var v int64
	err := q.db.QueryRowContext(ctx, getSnapshotVersion, cycleID).Scan(&v)
	return v, err
}
