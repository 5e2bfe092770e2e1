// Package classify reduces a department's allocation statuses for a cycle
// into the single summary bucket the dashboard cards show.
package classify

import (
	"bilancio/internal/core"
)

// Bucket is a department's summary classification.
type Bucket string

const (
	BucketDraft        Bucket = "draft"
	BucketPending      Bucket = "pending"
	BucketApproved     Bucket = "approved"
	BucketRejected     Bucket = "rejected"
	BucketRevision     Bucket = "revision"
	BucketUnclassified Bucket = "unclassified"
)

// StatusSet is the set of distinct statuses across a department's
// allocations within one cycle.
type StatusSet map[core.AllocationStatus]bool

// Classify maps a status set to its bucket. The rules are checked in
// order and the first match wins:
//
//  1. pending   — submitted or under_review present; anything still in
//     flight overrides every other signal.
//  2. draft     — the set is exactly {draft}.
//  3. approved  — approved present, nothing in flight.
//  4. rejected  — rejected present, submitted absent.
//  5. revision  — revision_requested present, submitted absent.
//
// Sets matching no rule (empty sets, or sets carrying only statuses
// outside the known vocabulary) land in BucketUnclassified.
func Classify(set StatusSet) Bucket {
	if len(set) == 0 {
		return BucketUnclassified
	}

	switch {
	case set[core.StatusSubmitted] || set[core.StatusUnderReview]:
		return BucketPending
	case len(set) == 1 && set[core.StatusDraft]:
		return BucketDraft
	case set[core.StatusApproved]:
		return BucketApproved
	case set[core.StatusRejected]:
		return BucketRejected
	case set[core.StatusRevisionRequested]:
		return BucketRevision
	default:
		return BucketUnclassified
	}
}

// Summary carries the per-bucket department counts for the summary cards.
// Total counts only departments that received a named classification:
// unclassified departments are excluded, matching the dashboards this
// feeds (they have no card to land on).
type Summary struct {
	Draft    int `json:"draft"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Revision int `json:"revision"`
	Total    int `json:"total"`
}

// Summarize classifies every department that has at least one allocation
// in the working set and tallies the buckets. Departments without
// allocations are not classified at all. The per-department bucket map is
// returned alongside the counts so callers can surface departments that
// fell through to unclassified.
func Summarize(allocations []core.Allocation) (Summary, map[int64]Bucket) {
	sets := make(map[int64]StatusSet)
	for _, a := range allocations {
		if a.DepartmentID == 0 {
			continue
		}
		set := sets[a.DepartmentID]
		if set == nil {
			set = make(StatusSet)
			sets[a.DepartmentID] = set
		}
		set[a.Status] = true
	}

	var s Summary
	buckets := make(map[int64]Bucket, len(sets))
	for deptID, set := range sets {
		b := Classify(set)
		buckets[deptID] = b
		switch b {
		case BucketDraft:
			s.Draft++
		case BucketPending:
			s.Pending++
		case BucketApproved:
			s.Approved++
		case BucketRejected:
			s.Rejected++
		case BucketRevision:
			s.Revision++
		case BucketUnclassified:
			continue
		}
		s.Total++
	}

	return s, buckets
}
