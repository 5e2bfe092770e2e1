package services

import (
	"context"
	"errors"
	"testing"

	"bilancio/internal/core"
)

type fakeAllocationStore struct {
	cycle       core.BudgetCycle
	cycleErr    error
	created     []core.Allocation
	updated     map[int64]core.Allocation
	nextID      int64
	updateErr   error
	statusCalls int
}

func newFakeAllocationStore() *fakeAllocationStore {
	return &fakeAllocationStore{
		cycle:   core.BudgetCycle{ID: 1, FiscalYear: "2026", PeriodType: core.Monthly, Status: "active"},
		updated: make(map[int64]core.Allocation),
		nextID:  100,
	}
}

func (f *fakeAllocationStore) GetBudgetCycle(ctx context.Context, id int64) (core.BudgetCycle, error) {
	if f.cycleErr != nil {
		return core.BudgetCycle{}, f.cycleErr
	}
	return f.cycle, nil
}

func (f *fakeAllocationStore) CreateAllocation(ctx context.Context, a core.Allocation) (core.Allocation, error) {
	f.nextID++
	a.ID = f.nextID
	a.Status = core.StatusDraft
	f.created = append(f.created, a)
	f.updated[a.ID] = a
	return a, nil
}

func (f *fakeAllocationStore) UpdateAllocationStatus(ctx context.Context, id int64, status core.AllocationStatus, approved *core.Money) error {
	f.statusCalls++
	if f.updateErr != nil {
		return f.updateErr
	}
	a, ok := f.updated[id]
	if !ok {
		a = core.Allocation{ID: id, CycleID: f.cycle.ID}
	}
	a.Status = status
	a.Approved = approved
	f.updated[id] = a
	return nil
}

func (f *fakeAllocationStore) GetAllocation(ctx context.Context, id int64) (core.Allocation, error) {
	a, ok := f.updated[id]
	if !ok {
		return core.Allocation{}, errors.New("not found")
	}
	return a, nil
}

type fakePublisher struct {
	published []int64
	err       error
}

func (p *fakePublisher) PublishAllocationChanged(ctx context.Context, allocationID, cycleID int64) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, allocationID)
	return nil
}

func validAllocation() core.Allocation {
	return core.Allocation{
		CycleID:      1,
		HeadID:       10,
		DepartmentID: 2,
		Period:       3,
		Allocated:    core.Money{Cents: 150000},
		Status:       core.StatusDraft,
	}
}

func TestAllocationServiceCreate(t *testing.T) {
	store := newFakeAllocationStore()
	pub := &fakePublisher{}
	svc := NewAllocationService(store, pub)

	saved, err := svc.Create(context.Background(), validAllocation())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if saved.ID == 0 {
		t.Error("expected assigned id")
	}
	if saved.Status != core.StatusDraft {
		t.Errorf("status = %q, want draft", saved.Status)
	}
	if len(pub.published) != 1 || pub.published[0] != saved.ID {
		t.Errorf("published = %v, want [%d]", pub.published, saved.ID)
	}
}

func TestAllocationServiceCreateRejectsInvalid(t *testing.T) {
	store := newFakeAllocationStore()
	svc := NewAllocationService(store, nil)

	tests := []struct {
		name   string
		mutate func(*core.Allocation)
	}{
		{"negative amount", func(a *core.Allocation) { a.Allocated.Cents = -1 }},
		{"period zero", func(a *core.Allocation) { a.Period = 0 }},
		{"period beyond cycle", func(a *core.Allocation) { a.Period = 13 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := validAllocation()
			tt.mutate(&a)
			if _, err := svc.Create(context.Background(), a); err == nil {
				t.Error("expected validation error")
			}
			if len(store.created) != 0 {
				t.Error("invalid allocation must not reach the store")
			}
		})
	}
}

func TestAllocationServiceCreateQuarterlyBounds(t *testing.T) {
	store := newFakeAllocationStore()
	store.cycle.PeriodType = core.Quarterly
	svc := NewAllocationService(store, nil)

	a := validAllocation()
	a.Period = 4
	if _, err := svc.Create(context.Background(), a); err != nil {
		t.Fatalf("period 4 valid for quarterly: %v", err)
	}

	a.Period = 5
	if _, err := svc.Create(context.Background(), a); err == nil {
		t.Error("period 5 must be rejected for quarterly cycle")
	}
}

func TestAllocationServiceCreateUnknownCycle(t *testing.T) {
	store := newFakeAllocationStore()
	store.cycleErr = core.ErrUnknownCycle
	svc := NewAllocationService(store, nil)

	if _, err := svc.Create(context.Background(), validAllocation()); !errors.Is(err, core.ErrUnknownCycle) {
		t.Errorf("err = %v, want ErrUnknownCycle", err)
	}
}

func TestAllocationServiceUpdateStatus(t *testing.T) {
	store := newFakeAllocationStore()
	pub := &fakePublisher{}
	svc := NewAllocationService(store, pub)

	saved, err := svc.Create(context.Background(), validAllocation())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	pub.published = nil

	approved := &core.Money{Cents: 120000}
	updated, err := svc.UpdateStatus(context.Background(), saved.ID, core.StatusApproved, approved)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != core.StatusApproved {
		t.Errorf("status = %q, want approved", updated.Status)
	}
	if updated.Approved == nil || updated.Approved.Cents != 120000 {
		t.Errorf("approved = %v, want 120000 cents", updated.Approved)
	}
	if len(pub.published) != 1 {
		t.Errorf("published %d events, want 1", len(pub.published))
	}
}

func TestAllocationServiceUpdateStatusClearsApprovedAmount(t *testing.T) {
	store := newFakeAllocationStore()
	svc := NewAllocationService(store, nil)

	saved, _ := svc.Create(context.Background(), validAllocation())

	// An approved amount passed with a non-approved status is dropped.
	updated, err := svc.UpdateStatus(context.Background(), saved.ID, core.StatusRejected, &core.Money{Cents: 5000})
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Approved != nil {
		t.Errorf("approved = %v, want nil for rejected status", updated.Approved)
	}
}

func TestAllocationServiceUpdateStatusInvalid(t *testing.T) {
	store := newFakeAllocationStore()
	svc := NewAllocationService(store, nil)

	if _, err := svc.UpdateStatus(context.Background(), 1, core.AllocationStatus("bogus"), nil); !errors.Is(err, core.ErrInvalidStatus) {
		t.Errorf("err = %v, want ErrInvalidStatus", err)
	}
	if store.statusCalls != 0 {
		t.Error("invalid status must not reach the store")
	}

	if _, err := svc.UpdateStatus(context.Background(), 1, core.StatusApproved, &core.Money{Cents: -1}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("err = %v, want ErrInvalidAmount", err)
	}
}

func TestAllocationServicePublisherFailureDoesNotFailWrite(t *testing.T) {
	store := newFakeAllocationStore()
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := NewAllocationService(store, pub)

	if _, err := svc.Create(context.Background(), validAllocation()); err != nil {
		t.Fatalf("Create must succeed despite publish failure: %v", err)
	}
}

func TestAllocationServiceNilPublisher(t *testing.T) {
	store := newFakeAllocationStore()
	svc := NewAllocationService(store, nil)

	if _, err := svc.Create(context.Background(), validAllocation()); err != nil {
		t.Fatalf("Create with nil publisher: %v", err)
	}
}
