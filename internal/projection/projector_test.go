package projection

import (
	"reflect"
	"testing"

	"bilancio/internal/core"
	"bilancio/internal/hierarchy"
	"bilancio/internal/rollup"
)

func cents(v int64) core.Money { return core.Money{Cents: v} }

func scenarioIndex() *hierarchy.Index {
	return hierarchy.Build([]core.BudgetHead{
		{ID: 1, Code: "A", Name: "Grants", Type: core.Income, DisplayOrder: 1},
		{ID: 2, Code: "A1", Name: "Federal", Type: core.Income, ParentID: 1, DisplayOrder: 1},
		{ID: 3, Code: "B", Name: "Travel", Type: core.Expenditure, DisplayOrder: 2},
	})
}

// The canonical scenario: monthly cycle, two departments, top head A
// (income) with subhead A1; dept1/A/period1 = 100.00, dept1/A1/period1 =
// 50.00 allocated.
func scenarioProjector(department int64) *Projector {
	idx := scenarioIndex()
	cycle := core.BudgetCycle{ID: 1, FiscalYear: "2025-26", PeriodType: core.Monthly, Status: "active"}
	allocs := []core.Allocation{
		{ID: 1, CycleID: 1, HeadID: 1, DepartmentID: 1, Period: 1, Allocated: cents(10000), Status: core.StatusDraft},
		{ID: 2, CycleID: 1, HeadID: 2, DepartmentID: 1, Period: 1, Allocated: cents(5000), Status: core.StatusDraft},
	}
	engine := rollup.New(idx, cycle, allocs, department)
	return New(idx, engine, cycle)
}

func TestEndToEndScenario(t *testing.T) {
	p := scenarioProjector(rollup.AllDepartments)

	overview := p.Overview()
	if overview.Income != 15000 {
		t.Fatalf("Overview().Income = %d, want 15000", overview.Income)
	}
	if overview.Expense != 0 || overview.ApprovedIncome != 0 || overview.ApprovedExpense != 0 {
		t.Fatalf("unexpected overview: %+v", overview)
	}

	breakdown := p.PeriodBreakdown()
	if len(breakdown) != 12 {
		t.Fatalf("PeriodBreakdown() len = %d, want 12", len(breakdown))
	}
	if breakdown[0].PeriodLabel != "Jan" || breakdown[0].Income != 15000 {
		t.Fatalf("breakdown[0] = %+v, want Jan/15000", breakdown[0])
	}
	for i := 1; i < 12; i++ {
		if breakdown[i].Income != 0 || breakdown[i].Expense != 0 {
			t.Fatalf("breakdown[%d] = %+v, want zeros", i, breakdown[i])
		}
	}

	heads := p.HeadWiseTotals()
	if len(heads.Income) != 1 {
		t.Fatalf("HeadWiseTotals().Income len = %d, want 1", len(heads.Income))
	}
	group := heads.Income[0]
	if group.Head.ID != 1 || group.Total != 15000 {
		t.Fatalf("income group = %+v, want head 1 total 15000", group)
	}
	if len(group.Subheads) != 1 || group.Subheads[0].Total != 5000 {
		t.Fatalf("subheads = %+v, want A1 total 5000", group.Subheads)
	}
	// Travel has no allocations: hidden
	if len(heads.Expenditure) != 0 {
		t.Fatalf("HeadWiseTotals().Expenditure = %+v, want empty", heads.Expenditure)
	}
}

func TestFilterScenario(t *testing.T) {
	// Department 2 has no allocations: every total is zero and head A is
	// omitted entirely.
	p := scenarioProjector(2)

	overview := p.Overview()
	if overview != (OverviewTotals{}) {
		t.Fatalf("Overview() = %+v, want zeros", overview)
	}

	heads := p.HeadWiseTotals()
	if len(heads.Income) != 0 || len(heads.Expenditure) != 0 {
		t.Fatalf("HeadWiseTotals() = %+v, want both empty", heads)
	}

	grid := p.DetailedGrid()
	if len(grid.Income) != 0 || len(grid.Expenditure) != 0 {
		t.Fatalf("DetailedGrid() rows = %+v, want none", grid)
	}
}

func TestNetBudgetIdentity(t *testing.T) {
	idx := scenarioIndex()
	cycle := core.BudgetCycle{ID: 1, FiscalYear: "2025-26", PeriodType: core.Monthly, Status: "active"}
	allocs := []core.Allocation{
		{ID: 1, CycleID: 1, HeadID: 1, DepartmentID: 1, Period: 1, Allocated: cents(10000), Status: core.StatusDraft},
		{ID: 2, CycleID: 1, HeadID: 3, DepartmentID: 1, Period: 2, Allocated: cents(4000), Status: core.StatusDraft},
	}
	engine := rollup.New(idx, cycle, allocs, rollup.AllDepartments)
	p := New(idx, engine, cycle)

	overview := p.Overview()
	net := overview.Income - overview.Expense
	want := engine.TypeAggregate(core.Income, rollup.Budgeted) - engine.TypeAggregate(core.Expenditure, rollup.Budgeted)
	if net != want {
		t.Fatalf("net budget = %d, want %d", net, want)
	}
}

func TestIdempotence(t *testing.T) {
	p := scenarioProjector(rollup.AllDepartments)

	if !reflect.DeepEqual(p.Overview(), p.Overview()) {
		t.Error("Overview() not idempotent")
	}
	if !reflect.DeepEqual(p.PeriodBreakdown(), p.PeriodBreakdown()) {
		t.Error("PeriodBreakdown() not idempotent")
	}
	if !reflect.DeepEqual(p.HeadWiseTotals(), p.HeadWiseTotals()) {
		t.Error("HeadWiseTotals() not idempotent")
	}
	if !reflect.DeepEqual(p.DetailedGrid(), p.DetailedGrid()) {
		t.Error("DetailedGrid() not idempotent")
	}
}

func TestDetailedGridCells(t *testing.T) {
	idx := scenarioIndex()
	cycle := core.BudgetCycle{ID: 1, FiscalYear: "2025-26", PeriodType: core.Quarterly, Status: "active"}
	allocs := []core.Allocation{
		{ID: 1, CycleID: 1, HeadID: 1, DepartmentID: 1, Period: 1, Allocated: cents(10000), Status: core.StatusDraft},
		// a real stored zero in Q2: cell must be present with 0 cents
		{ID: 2, CycleID: 1, HeadID: 1, DepartmentID: 1, Period: 2, Allocated: cents(0), Status: core.StatusDraft},
		{ID: 3, CycleID: 1, HeadID: 2, DepartmentID: 1, Period: 3, Allocated: cents(2500), Status: core.StatusDraft},
	}
	engine := rollup.New(idx, cycle, allocs, rollup.AllDepartments)
	p := New(idx, engine, cycle)

	grid := p.DetailedGrid()
	if !reflect.DeepEqual(grid.PeriodLabels, []string{"Q1", "Q2", "Q3", "Q4"}) {
		t.Fatalf("PeriodLabels = %v", grid.PeriodLabels)
	}
	if len(grid.Income) != 2 {
		t.Fatalf("income rows = %d, want 2 (head A + subhead A1)", len(grid.Income))
	}

	top := grid.Income[0]
	if top.Subhead {
		t.Fatal("first row should be the top-level head")
	}
	wantCells := []Cell{
		{Cents: 10000, Present: true},
		{Cents: 0, Present: true}, // stored zero, not an empty dash
		{Cents: 0, Present: false},
		{Cents: 0, Present: false},
	}
	if !reflect.DeepEqual(top.Cells, wantCells) {
		t.Fatalf("top row cells = %+v, want %+v", top.Cells, wantCells)
	}
	if top.Total.Cents != 12500 || !top.Total.Present {
		t.Fatalf("top row total = %+v, want 12500/present", top.Total)
	}

	sub := grid.Income[1]
	if !sub.Subhead || sub.Head.ID != 2 {
		t.Fatalf("second row = %+v, want subhead A1", sub.Head)
	}
	if sub.Cells[2].Cents != 2500 || !sub.Cells[2].Present {
		t.Fatalf("subhead Q3 cell = %+v", sub.Cells[2])
	}
	if sub.Total.Cents != 2500 || !sub.Total.Present {
		t.Fatalf("subhead total = %+v", sub.Total)
	}
}
