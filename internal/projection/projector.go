// Package projection shapes rollup output into the four dashboard
// projections: overview totals, period breakdown, head-wise totals and the
// detailed grid. Every shape is plain data, independently serializable.
package projection

import (
	"bilancio/internal/core"
	"bilancio/internal/hierarchy"
	"bilancio/internal/rollup"
)

// HeadInfo identifies a head in a projection row.
type HeadInfo struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// OverviewTotals carries the four headline numbers, in cents.
type OverviewTotals struct {
	Income          int64 `json:"income"`
	Expense         int64 `json:"expense"`
	ApprovedIncome  int64 `json:"approved_income"`
	ApprovedExpense int64 `json:"approved_expense"`
}

// PeriodEntry is one period bucket of the time breakdown.
type PeriodEntry struct {
	PeriodLabel string `json:"period_label"`
	Income      int64  `json:"income"`
	Expense     int64  `json:"expense"`
}

// SubheadTotal is one subhead's direct total inside a head group.
type SubheadTotal struct {
	Subhead HeadInfo `json:"subhead"`
	Total   int64    `json:"total"`
}

// HeadGroup is one top-level head with its rollup and subhead totals.
type HeadGroup struct {
	Head     HeadInfo       `json:"head"`
	Total    int64          `json:"total"`
	Subheads []SubheadTotal `json:"subheads,omitempty"`
}

// HeadWiseTotals lists visible head groups per type.
type HeadWiseTotals struct {
	Income      []HeadGroup `json:"income"`
	Expenditure []HeadGroup `json:"expenditure"`
}

// Cell is one grid amount. Present distinguishes a real stored zero from
// the absence of any allocation, so a renderer can show "-" instead of 0.
type Cell struct {
	Cents   int64 `json:"cents"`
	Present bool  `json:"present"`
}

// GridRow is one grid line: a top-level head followed by its subheads,
// with one cell per period plus the grand-total column.
type GridRow struct {
	Head    HeadInfo `json:"head"`
	Subhead bool     `json:"subhead"`
	Cells   []Cell   `json:"cells"`
	Total   Cell     `json:"total"`
}

// Grid is the detailed period-by-head matrix for one type.
type Grid struct {
	PeriodLabels []string  `json:"period_labels"`
	Income       []GridRow `json:"income"`
	Expenditure  []GridRow `json:"expenditure"`
}

// Projector derives the four projections from one engine pass. It holds no
// state beyond its immutable inputs: calling any method twice on an
// unchanged snapshot yields identical results.
type Projector struct {
	index  *hierarchy.Index
	engine *rollup.Engine
	cycle  core.BudgetCycle
}

func New(index *hierarchy.Index, engine *rollup.Engine, cycle core.BudgetCycle) *Projector {
	return &Projector{index: index, engine: engine, cycle: cycle}
}

// Overview returns the four headline totals under the active filter.
func (p *Projector) Overview() OverviewTotals {
	return OverviewTotals{
		Income:          p.engine.TypeAggregate(core.Income, rollup.Budgeted),
		Expense:         p.engine.TypeAggregate(core.Expenditure, rollup.Budgeted),
		ApprovedIncome:  p.engine.TypeAggregate(core.Income, rollup.ApprovedOnly),
		ApprovedExpense: p.engine.TypeAggregate(core.Expenditure, rollup.ApprovedOnly),
	}
}

// PeriodBreakdown returns one income/expense entry per period bucket, in
// period order.
func (p *Projector) PeriodBreakdown() []PeriodEntry {
	labels := p.cycle.PeriodType.PeriodLabels()
	entries := make([]PeriodEntry, len(labels))
	for i, label := range labels {
		entries[i].PeriodLabel = label
	}

	for _, head := range p.index.TopLevel() {
		row := p.engine.CombinedPeriodRow(head.ID)
		for i, v := range row {
			switch head.Type {
			case core.Income:
				entries[i].Income += v
			case core.Expenditure:
				entries[i].Expense += v
			}
		}
	}

	return entries
}

// HeadWiseTotals returns the per-type head groups, hiding groups whose
// rollup is zero with no individually nonzero subhead.
func (p *Projector) HeadWiseTotals() HeadWiseTotals {
	return HeadWiseTotals{
		Income:      p.headGroups(core.Income),
		Expenditure: p.headGroups(core.Expenditure),
	}
}

func (p *Projector) headGroups(t core.HeadType) []HeadGroup {
	var groups []HeadGroup
	for _, head := range p.index.TopLevelOfType(t) {
		total := p.engine.HierarchicalTotal(head.ID)
		subs := p.index.Children(head.ID)

		anySubNonzero := false
		subTotals := make([]SubheadTotal, 0, len(subs))
		for _, sub := range subs {
			st := p.engine.HeadDirectTotal(sub.ID)
			if st != 0 {
				anySubNonzero = true
			}
			subTotals = append(subTotals, SubheadTotal{Subhead: headInfo(sub), Total: st})
		}

		if total == 0 && !anySubNonzero {
			continue
		}
		groups = append(groups, HeadGroup{Head: headInfo(head), Total: total, Subheads: subTotals})
	}
	return groups
}

// DetailedGrid returns the full period-by-head matrix. Row visibility
// follows the same rule as HeadWiseTotals, except a group whose only
// activity is stored zeros still shows, so data entry remains visible.
func (p *Projector) DetailedGrid() Grid {
	return Grid{
		PeriodLabels: p.cycle.PeriodType.PeriodLabels(),
		Income:       p.gridRows(core.Income),
		Expenditure:  p.gridRows(core.Expenditure),
	}
}

func (p *Projector) gridRows(t core.HeadType) []GridRow {
	var rows []GridRow
	for _, head := range p.index.TopLevelOfType(t) {
		subs := p.index.Children(head.ID)

		visible := p.engine.HasEntries(head.ID)
		for _, sub := range subs {
			if p.engine.HasEntries(sub.ID) {
				visible = true
			}
		}
		if !visible {
			continue
		}

		topRow := GridRow{
			Head:  headInfo(head),
			Cells: p.cellRow(head.ID),
			Total: Cell{
				Cents:   p.engine.HierarchicalTotal(head.ID),
				Present: true,
			},
		}
		rows = append(rows, topRow)

		for _, sub := range subs {
			rows = append(rows, GridRow{
				Head:    headInfo(sub),
				Subhead: true,
				Cells:   p.cellRow(sub.ID),
				Total: Cell{
					Cents:   p.engine.HeadDirectTotal(sub.ID),
					Present: p.engine.HasEntries(sub.ID),
				},
			})
		}
	}
	return rows
}

func (p *Projector) cellRow(headID int64) []Cell {
	row := p.engine.PeriodMatrixRow(headID)
	cells := make([]Cell, len(row))
	for i, v := range row {
		cells[i] = Cell{Cents: v, Present: p.engine.HasPeriodEntry(headID, i+1)}
	}
	return cells
}

func headInfo(h core.BudgetHead) HeadInfo {
	return HeadInfo{ID: h.ID, Code: h.Code, Name: h.Name}
}
