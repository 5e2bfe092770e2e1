package services

import (
	"context"
	"fmt"
	"log/slog"

	"bilancio/internal/core"
)

// AllocationStore is the write surface for allocations.
type AllocationStore interface {
	GetBudgetCycle(ctx context.Context, id int64) (core.BudgetCycle, error)
	CreateAllocation(ctx context.Context, a core.Allocation) (core.Allocation, error)
	UpdateAllocationStatus(ctx context.Context, id int64, status core.AllocationStatus, approved *core.Money) error
	GetAllocation(ctx context.Context, id int64) (core.Allocation, error)
}

// EventPublisher announces allocation changes to interested consumers.
type EventPublisher interface {
	PublishAllocationChanged(ctx context.Context, allocationID, cycleID int64) error
}

// AllocationService persists allocation writes and publishes change
// events so dashboard caches drop the stale snapshot. Event publishing is
// best effort: a broker outage never fails the write.
type AllocationService struct {
	store     AllocationStore
	publisher EventPublisher
}

func NewAllocationService(store AllocationStore, publisher EventPublisher) *AllocationService {
	return &AllocationService{store: store, publisher: publisher}
}

// Create validates and saves a draft allocation.
func (s *AllocationService) Create(ctx context.Context, a core.Allocation) (core.Allocation, error) {
	cycle, err := s.store.GetBudgetCycle(ctx, a.CycleID)
	if err != nil {
		return core.Allocation{}, fmt.Errorf("resolve cycle: %w", err)
	}
	a.CycleID = cycle.ID

	if err := a.Validate(cycle.PeriodType.PeriodCount()); err != nil {
		return core.Allocation{}, fmt.Errorf("validate allocation: %w", err)
	}

	saved, err := s.store.CreateAllocation(ctx, a)
	if err != nil {
		return core.Allocation{}, fmt.Errorf("save allocation: %w", err)
	}

	s.publishChange(ctx, saved.ID, saved.CycleID)
	return saved, nil
}

// UpdateStatus moves an allocation through the external approval
// workflow. The approved amount is only stored alongside an approved
// status; any other transition clears it.
func (s *AllocationService) UpdateStatus(ctx context.Context, id int64, status core.AllocationStatus, approved *core.Money) (core.Allocation, error) {
	if !status.Valid() {
		return core.Allocation{}, fmt.Errorf("%w: %q", core.ErrInvalidStatus, status)
	}
	if status != core.StatusApproved {
		approved = nil
	}
	if approved != nil && approved.Cents < 0 {
		return core.Allocation{}, core.ErrInvalidAmount
	}

	if err := s.store.UpdateAllocationStatus(ctx, id, status, approved); err != nil {
		return core.Allocation{}, err
	}

	updated, err := s.store.GetAllocation(ctx, id)
	if err != nil {
		return core.Allocation{}, fmt.Errorf("reload allocation: %w", err)
	}

	s.publishChange(ctx, updated.ID, updated.CycleID)
	return updated, nil
}

func (s *AllocationService) publishChange(ctx context.Context, allocationID, cycleID int64) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "Event publisher not available, skipping change event",
			"allocation_id", allocationID)
		return
	}
	if err := s.publisher.PublishAllocationChanged(ctx, allocationID, cycleID); err != nil {
		// The write already succeeded; dashboards will still converge via
		// the snapshot version on the next read.
		slog.ErrorContext(ctx, "Failed to publish allocation change",
			"allocation_id", allocationID,
			"cycle_id", cycleID,
			"error", err)
	}
}
