// Package rollup computes the hierarchical budget aggregates one cycle's
// allocations feed into the dashboard projections.
package rollup

import (
	"bilancio/internal/core"
	"bilancio/internal/hierarchy"
)

// AllDepartments disables the department filter.
const AllDepartments int64 = 0

// AmountSelector picks which amount an allocation contributes to a sum:
// Budgeted takes the allocated amount, ApprovedOnly takes the approved
// amount counted only while the allocation's status is approved.
type AmountSelector int

const (
	Budgeted AmountSelector = iota
	ApprovedOnly
)

type headTotals struct {
	direct       int64
	approved     int64
	perPeriod    []int64
	perPeriodHas []bool
	hasAnyEntry  bool
}

// Engine holds the precomputed totals for one immutable snapshot of a
// cycle's allocations under one department filter. Construction is a
// single O(n) pass; every query after that is a map lookup. The engine
// never mutates its inputs and is safe for concurrent reads.
type Engine struct {
	index       *hierarchy.Index
	periodCount int
	totals      map[int64]*headTotals
}

// New builds an engine over allocations for one cycle. Pass AllDepartments
// as department to aggregate across every department.
//
// Malformed allocations (missing head id, out-of-range period, negative
// amounts) contribute zero instead of failing: one bad row must not blank
// a dashboard. Allocations pointing at heads missing from the index (for
// example orphaned subheads) are skipped the same way, since they have no
// display row to land on.
func New(index *hierarchy.Index, cycle core.BudgetCycle, allocations []core.Allocation, department int64) *Engine {
	e := &Engine{
		index:       index,
		periodCount: cycle.PeriodType.PeriodCount(),
		totals:      make(map[int64]*headTotals),
	}

	for _, a := range allocations {
		if a.HeadID == 0 {
			continue
		}
		if department != AllDepartments && a.DepartmentID != department {
			continue
		}
		if a.Period < 1 || a.Period > e.periodCount {
			continue
		}
		if _, ok := index.Head(a.HeadID); !ok {
			continue
		}

		t := e.totals[a.HeadID]
		if t == nil {
			t = &headTotals{
				perPeriod:    make([]int64, e.periodCount),
				perPeriodHas: make([]bool, e.periodCount),
			}
			e.totals[a.HeadID] = t
		}
		amount := a.AllocatedCents()
		t.direct += amount
		t.perPeriod[a.Period-1] += amount
		t.perPeriodHas[a.Period-1] = true
		t.approved += a.ApprovedCents()
		t.hasAnyEntry = true
	}

	return e
}

// PeriodCount returns the number of period buckets in the cycle.
func (e *Engine) PeriodCount() int {
	return e.periodCount
}

// HeadDirectTotal sums allocated amounts recorded directly against the
// head, subheads excluded. Zero for heads with no matching allocations.
func (e *Engine) HeadDirectTotal(headID int64) int64 {
	if t := e.totals[headID]; t != nil {
		return t.direct
	}
	return 0
}

// HeadPeriodTotal is HeadDirectTotal restricted to one period bucket.
func (e *Engine) HeadPeriodTotal(headID int64, period int) int64 {
	t := e.totals[headID]
	if t == nil || period < 1 || period > e.periodCount {
		return 0
	}
	return t.perPeriod[period-1]
}

// HierarchicalTotal is the head's rollup: its direct total plus the direct
// totals of all its subheads.
func (e *Engine) HierarchicalTotal(topHeadID int64) int64 {
	sum := e.HeadDirectTotal(topHeadID)
	for _, sub := range e.index.Children(topHeadID) {
		sum += e.HeadDirectTotal(sub.ID)
	}
	return sum
}

// PeriodMatrixRow returns the head's direct total per period bucket. The
// row always has PeriodCount entries and sums to HeadDirectTotal.
func (e *Engine) PeriodMatrixRow(headID int64) []int64 {
	row := make([]int64, e.periodCount)
	if t := e.totals[headID]; t != nil {
		copy(row, t.perPeriod)
	}
	return row
}

// CombinedPeriodRow returns the top-level head's per-period rollup (direct
// plus subheads). The row sums to HierarchicalTotal.
func (e *Engine) CombinedPeriodRow(topHeadID int64) []int64 {
	row := e.PeriodMatrixRow(topHeadID)
	for _, sub := range e.index.Children(topHeadID) {
		if t := e.totals[sub.ID]; t != nil {
			for p, v := range t.perPeriod {
				row[p] += v
			}
		}
	}
	return row
}

// HasEntries reports whether any allocation, malformed or not, landed on
// the head after filtering. Used to tell a real stored zero from absence.
func (e *Engine) HasEntries(headID int64) bool {
	t := e.totals[headID]
	return t != nil && t.hasAnyEntry
}

// HasPeriodEntry reports whether any allocation landed on the head in the
// given period. A true result with a zero total means a real stored zero,
// which presentation layers render as 0 rather than an empty dash.
func (e *Engine) HasPeriodEntry(headID int64, period int) bool {
	t := e.totals[headID]
	if t == nil || period < 1 || period > e.periodCount {
		return false
	}
	return t.perPeriodHas[period-1]
}

// TypeAggregate sums HierarchicalTotal-style rollups over every top-level
// head of the given type, under the given amount selector. It produces the
// four headline numbers: budgeted/approved income and expenditure.
func (e *Engine) TypeAggregate(t core.HeadType, selector AmountSelector) int64 {
	var sum int64
	for _, head := range e.index.TopLevelOfType(t) {
		sum += e.selectedRollup(head.ID, selector)
	}
	return sum
}

func (e *Engine) selectedRollup(topHeadID int64, selector AmountSelector) int64 {
	sum := e.selectedDirect(topHeadID, selector)
	for _, sub := range e.index.Children(topHeadID) {
		sum += e.selectedDirect(sub.ID, selector)
	}
	return sum
}

func (e *Engine) selectedDirect(headID int64, selector AmountSelector) int64 {
	t := e.totals[headID]
	if t == nil {
		return 0
	}
	if selector == ApprovedOnly {
		return t.approved
	}
	return t.direct
}
