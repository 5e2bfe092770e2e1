package core

import (
	"errors"
	"fmt"
	"strings"
)

const (
	Income      HeadType = "income"
	Expenditure HeadType = "expenditure"
)

const (
	StatusDraft             AllocationStatus = "draft"
	StatusSubmitted         AllocationStatus = "submitted"
	StatusUnderReview       AllocationStatus = "under_review"
	StatusApproved          AllocationStatus = "approved"
	StatusRejected          AllocationStatus = "rejected"
	StatusRevisionRequested AllocationStatus = "revision_requested"
)

const (
	Monthly   PeriodType = "monthly"
	Quarterly PeriodType = "quarterly"
)

type (
	// HeadType is the closed income/expenditure discriminator. Every
	// aggregate branches on it, so keep the switch exhaustive.
	HeadType string

	AllocationStatus string

	PeriodType string

	// BudgetHead is a budgeting category. ParentID == 0 marks a top-level
	// head; a nonzero ParentID must reference a top-level head (hierarchy
	// depth is exactly two levels).
	BudgetHead struct {
		ID           int64
		Code         string
		Name         string
		Type         HeadType
		ParentID     int64
		DisplayOrder int
	}

	Department struct {
		ID   int64
		Name string
	}

	BudgetCycle struct {
		ID         int64
		FiscalYear string
		PeriodType PeriodType
		Status     string
	}

	// Allocation is one budgeted amount for a head, department and period
	// within a cycle. Approved is only meaningful while Status is
	// StatusApproved; aggregates must count it as zero otherwise.
	Allocation struct {
		ID           int64
		CycleID      int64
		HeadID       int64
		DepartmentID int64
		Period       int
		Allocated    Money
		Approved     *Money
		Status       AllocationStatus
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidPeriod   = errors.New("invalid period")
	ErrInvalidHeadType = errors.New("invalid head type")
	ErrInvalidStatus   = errors.New("invalid allocation status")
	ErrEmptyName       = errors.New("empty name")
	ErrUnknownCycle    = errors.New("unknown budget cycle")
)

var monthLabels = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

var quarterLabels = []string{"Q1", "Q2", "Q3", "Q4"}

func (t HeadType) Valid() bool {
	switch t {
	case Income, Expenditure:
		return true
	}
	return false
}

func (s AllocationStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusUnderReview, StatusApproved, StatusRejected, StatusRevisionRequested:
		return true
	}
	return false
}

// PeriodCount returns the number of period buckets in a cycle: 12 for
// monthly, 4 for quarterly. Unknown period types fall back to monthly so a
// bad cycle row degrades to a renderable breakdown instead of a panic.
func (p PeriodType) PeriodCount() int {
	if p == Quarterly {
		return 4
	}
	return 12
}

// PeriodLabels returns the ordered display labels for the cycle's periods.
// The returned slice is a copy; callers may modify it.
func (p PeriodType) PeriodLabels() []string {
	src := monthLabels
	if p == Quarterly {
		src = quarterLabels
	}
	labels := make([]string, len(src))
	copy(labels, src)
	return labels
}

func (h BudgetHead) Validate() error {
	if strings.TrimSpace(h.Name) == "" {
		return ErrEmptyName
	}
	if !h.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidHeadType, h.Type)
	}
	return nil
}

// IsTopLevel reports whether the head sits at the top of the hierarchy.
func (h BudgetHead) IsTopLevel() bool {
	return h.ParentID == 0
}

func (c BudgetCycle) Validate() error {
	if strings.TrimSpace(c.FiscalYear) == "" {
		return errors.New("empty fiscal year")
	}
	switch c.PeriodType {
	case Monthly, Quarterly:
		return nil
	default:
		return fmt.Errorf("invalid period type %q", c.PeriodType)
	}
}

func (a Allocation) Validate(periodCount int) error {
	if a.HeadID == 0 {
		return errors.New("missing head id")
	}
	if a.DepartmentID == 0 {
		return errors.New("missing department id")
	}
	if a.Period < 1 || a.Period > periodCount {
		return fmt.Errorf("%w: %d (cycle has %d periods)", ErrInvalidPeriod, a.Period, periodCount)
	}
	if a.Allocated.Cents < 0 {
		return ErrInvalidAmount
	}
	if a.Approved != nil && a.Approved.Cents < 0 {
		return ErrInvalidAmount
	}
	if !a.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, a.Status)
	}
	return nil
}

// ApprovedCents is the allocation's contribution to approved aggregates:
// the approved amount when the allocation is approved, zero in every other
// status regardless of what is stored.
func (a Allocation) ApprovedCents() int64 {
	if a.Status != StatusApproved || a.Approved == nil {
		return 0
	}
	if a.Approved.Cents < 0 {
		return 0
	}
	return a.Approved.Cents
}

// AllocatedCents is the allocation's contribution to budgeted aggregates.
// Negative stored values are data-quality defects and contribute zero.
func (a Allocation) AllocatedCents() int64 {
	if a.Allocated.Cents < 0 {
		return 0
	}
	return a.Allocated.Cents
}
