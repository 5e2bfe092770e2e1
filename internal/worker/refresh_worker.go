package worker

import (
	"context"
	"fmt"
	"log/slog"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
)

// Invalidator is the cache surface the worker drives. Implemented by
// services.DashboardService.
type Invalidator interface {
	Invalidate()
}

// Verifier confirms the changed allocation is readable before the cache
// is dropped, so a spurious event for a missing row is requeued instead
// of silently invalidating. Satisfied by storage.SQLiteRepository.
type Verifier interface {
	GetAllocation(ctx context.Context, id int64) (core.Allocation, error)
}

// RefreshWorker reacts to allocation change events by dropping cached
// projection sets. The next dashboard read recomputes from the new
// snapshot version.
type RefreshWorker struct {
	invalidator Invalidator
	verifier    Verifier
}

func NewRefreshWorker(invalidator Invalidator, verifier Verifier) *RefreshWorker {
	return &RefreshWorker{
		invalidator: invalidator,
		verifier:    verifier,
	}
}

// HandleAllocationChanged processes a single allocation change event.
func (w *RefreshWorker) HandleAllocationChanged(ctx context.Context, msg *amqp.AllocationChangedMessage) error {
	slog.InfoContext(ctx, "Processing allocation change event",
		"allocation_id", msg.AllocationID,
		"cycle_id", msg.CycleID)

	if w.verifier != nil {
		if _, err := w.verifier.GetAllocation(ctx, msg.AllocationID); err != nil {
			return fmt.Errorf("verify allocation %d: %w", msg.AllocationID, err)
		}
	}

	w.invalidator.Invalidate()

	slog.InfoContext(ctx, "Projection caches refreshed",
		"allocation_id", msg.AllocationID,
		"cycle_id", msg.CycleID)
	return nil
}
