// Package hierarchy builds a fast structural index over the two-level
// budget head tree (head -> subheads).
package hierarchy

import (
	"sort"

	"bilancio/internal/core"
)

// Ref is the reverse-lookup entry for a head id: whether it is top-level
// and, for subheads, which top-level head owns it.
type Ref struct {
	TopLevel bool
	ParentID int64
}

// Index holds the derived structure for one snapshot of budget heads.
// It is immutable after Build and safe for concurrent reads.
type Index struct {
	heads    map[int64]core.BudgetHead
	topLevel []core.BudgetHead
	children map[int64][]core.BudgetHead
	refs     map[int64]Ref
	orphans  []core.BudgetHead
}

// Build indexes a flat head list in O(n). Ordering within each level
// follows DisplayOrder, ties broken by id so the result is deterministic.
//
// A subhead whose ParentID does not resolve to a known top-level head
// (missing parent, or a parent that is itself a subhead) is an orphan: it
// is excluded from the index rather than silently reassigned, and reported
// via Orphans so the caller can log the data-integrity condition.
func Build(heads []core.BudgetHead) *Index {
	idx := &Index{
		heads:    make(map[int64]core.BudgetHead, len(heads)),
		children: make(map[int64][]core.BudgetHead),
		refs:     make(map[int64]Ref, len(heads)),
	}

	for _, h := range heads {
		idx.heads[h.ID] = h
		if h.IsTopLevel() {
			idx.topLevel = append(idx.topLevel, h)
			idx.refs[h.ID] = Ref{TopLevel: true}
		}
	}

	for _, h := range heads {
		if h.IsTopLevel() {
			continue
		}
		parent, ok := idx.heads[h.ParentID]
		if !ok || !parent.IsTopLevel() {
			idx.orphans = append(idx.orphans, h)
			delete(idx.heads, h.ID)
			continue
		}
		idx.children[h.ParentID] = append(idx.children[h.ParentID], h)
		idx.refs[h.ID] = Ref{ParentID: h.ParentID}
	}

	sortHeads(idx.topLevel)
	for _, subs := range idx.children {
		sortHeads(subs)
	}

	return idx
}

func sortHeads(heads []core.BudgetHead) {
	sort.SliceStable(heads, func(i, j int) bool {
		if heads[i].DisplayOrder != heads[j].DisplayOrder {
			return heads[i].DisplayOrder < heads[j].DisplayOrder
		}
		return heads[i].ID < heads[j].ID
	})
}

// TopLevel returns the ordered top-level heads.
func (idx *Index) TopLevel() []core.BudgetHead {
	return idx.topLevel
}

// TopLevelOfType returns the ordered top-level heads of one type.
func (idx *Index) TopLevelOfType(t core.HeadType) []core.BudgetHead {
	var out []core.BudgetHead
	for _, h := range idx.topLevel {
		if h.Type == t {
			out = append(out, h)
		}
	}
	return out
}

// Children returns the ordered direct subheads of a top-level head.
func (idx *Index) Children(headID int64) []core.BudgetHead {
	return idx.children[headID]
}

// Head looks up a head by id. Orphans are not found.
func (idx *Index) Head(id int64) (core.BudgetHead, bool) {
	h, ok := idx.heads[id]
	return h, ok
}

// Lookup returns the reverse-lookup entry for a head id.
func (idx *Index) Lookup(id int64) (Ref, bool) {
	r, ok := idx.refs[id]
	return r, ok
}

// Orphans returns the subheads excluded because their parent could not be
// resolved to a top-level head.
func (idx *Index) Orphans() []core.BudgetHead {
	return idx.orphans
}

// Size returns the number of indexed heads, orphans excluded.
func (idx *Index) Size() int {
	return len(idx.heads)
}
