package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"bilancio/internal/classify"
	"bilancio/internal/core"
	"bilancio/internal/projection"
	"bilancio/internal/rollup"
	"bilancio/internal/services"
)

type fakeDashboards struct {
	set        *services.ProjectionSet
	err        error
	lastCycle  int64
	lastFilter int64
}

func (f *fakeDashboards) Projections(ctx context.Context, cycleID, department int64) (*services.ProjectionSet, error) {
	f.lastCycle = cycleID
	f.lastFilter = department
	if f.err != nil {
		return nil, f.err
	}
	return f.set, nil
}

type fakeAllocations struct {
	created core.Allocation
	updated core.Allocation
	err     error
}

func (f *fakeAllocations) Create(ctx context.Context, a core.Allocation) (core.Allocation, error) {
	if f.err != nil {
		return core.Allocation{}, f.err
	}
	a.ID = 101
	f.created = a
	return a, nil
}

func (f *fakeAllocations) UpdateStatus(ctx context.Context, id int64, status core.AllocationStatus, approved *core.Money) (core.Allocation, error) {
	if f.err != nil {
		return core.Allocation{}, f.err
	}
	f.updated = core.Allocation{ID: id, CycleID: 7, Status: status, Approved: approved}
	return f.updated, nil
}

func testProjectionSet() *services.ProjectionSet {
	return &services.ProjectionSet{
		CycleID:         7,
		FiscalYear:      "2026",
		SnapshotVersion: 5,
		Overview:        projection.OverviewTotals{Income: 15000, Expense: 4000},
		Periods:         make([]projection.PeriodEntry, 12),
		StatusSummary:   classify.Summary{Approved: 1, Total: 1},
		Departments:     []core.Department{{ID: 1, Name: "Finance"}, {ID: 2, Name: "Works"}},
		Buckets:         map[int64]classify.Bucket{1: classify.BucketApproved},
	}
}

func newTestServer(dash *fakeDashboards, alloc *fakeAllocations) *Server {
	s := NewServer(":0", dash, alloc)
	return s
}

func doRequest(t *testing.T, s *Server, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(&fakeDashboards{set: testProjectionSet()}, &fakeAllocations{})
	defer s.Shutdown(context.Background())

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doRequest(t, s, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rec.Code)
		}
	}
}

func TestOverviewEndpoint(t *testing.T) {
	dash := &fakeDashboards{set: testProjectionSet()}
	s := newTestServer(dash, &fakeAllocations{})
	defer s.Shutdown(context.Background())

	rec := doRequest(t, s, http.MethodGet, "/api/dashboard/overview?cycle=7&department=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if dash.lastCycle != 7 || dash.lastFilter != 2 {
		t.Errorf("service called with cycle %d filter %d, want 7 and 2", dash.lastCycle, dash.lastFilter)
	}

	var resp overviewResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.NetBudget != 11000 {
		t.Errorf("net_budget = %d, want 11000", resp.NetBudget)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers on API responses")
	}
}

func TestOverviewDefaultParams(t *testing.T) {
	dash := &fakeDashboards{set: testProjectionSet()}
	s := newTestServer(dash, &fakeAllocations{})
	defer s.Shutdown(context.Background())

	rec := doRequest(t, s, http.MethodGet, "/api/dashboard/overview", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if dash.lastCycle != 0 {
		t.Errorf("cycle = %d, want 0 (active)", dash.lastCycle)
	}
	if dash.lastFilter != rollup.AllDepartments {
		t.Errorf("filter = %d, want AllDepartments", dash.lastFilter)
	}
}

func TestOverviewBadParams(t *testing.T) {
	s := newTestServer(&fakeDashboards{set: testProjectionSet()}, &fakeAllocations{})
	defer s.Shutdown(context.Background())

	tests := []string{
		"/api/dashboard/overview?cycle=abc",
		"/api/dashboard/overview?cycle=-1",
		"/api/dashboard/overview?department=zero",
		"/api/dashboard/overview?department=0",
	}
	for _, target := range tests {
		rec := doRequest(t, s, http.MethodGet, target, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s status = %d, want 400", target, rec.Code)
		}
	}
}

func TestOverviewUnknownCycle(t *testing.T) {
	s := newTestServer(&fakeDashboards{err: core.ErrUnknownCycle}, &fakeAllocations{})
	defer s.Shutdown(context.Background())

	rec := doRequest(t, s, http.MethodGet, "/api/dashboard/overview?cycle=99", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestStatusSummaryEndpoint(t *testing.T) {
	s := newTestServer(&fakeDashboards{set: testProjectionSet()}, &fakeAllocations{})
	defer s.Shutdown(context.Background())

	rec := doRequest(t, s, http.MethodGet, "/api/dashboard/status-summary", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp statusSummaryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Departments) != 2 {
		t.Fatalf("departments = %d, want 2", len(resp.Departments))
	}
	if resp.Departments[0].Bucket != classify.BucketApproved {
		t.Errorf("department 1 bucket = %q, want approved", resp.Departments[0].Bucket)
	}
	// Departments without allocations fall back to unclassified.
	if resp.Departments[1].Bucket != classify.BucketUnclassified {
		t.Errorf("department 2 bucket = %q, want unclassified", resp.Departments[1].Bucket)
	}
}

func TestCreateAllocation(t *testing.T) {
	alloc := &fakeAllocations{}
	s := newTestServer(&fakeDashboards{set: testProjectionSet()}, alloc)
	defer s.Shutdown(context.Background())

	body := []byte(`{"cycle_id":7,"head_id":3,"department_id":1,"period":2,"amount":"1500.50"}`)
	rec := doRequest(t, s, http.MethodPost, "/api/allocations", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if alloc.created.Allocated.Cents != 150050 {
		t.Errorf("allocated cents = %d, want 150050", alloc.created.Allocated.Cents)
	}
	if alloc.created.Status != core.StatusDraft {
		t.Errorf("status = %q, want draft", alloc.created.Status)
	}

	var resp allocationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != 101 {
		t.Errorf("id = %d, want 101", resp.ID)
	}
}

func TestCreateAllocationBadBody(t *testing.T) {
	s := newTestServer(&fakeDashboards{set: testProjectionSet()}, &fakeAllocations{})
	defer s.Shutdown(context.Background())

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{not json`},
		{"negative amount", `{"cycle_id":7,"head_id":3,"department_id":1,"period":2,"amount":"-5"}`},
		{"non-numeric amount", `{"cycle_id":7,"head_id":3,"department_id":1,"period":2,"amount":"abc"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, s, http.MethodPost, "/api/allocations", []byte(tt.body))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestUpdateAllocationStatus(t *testing.T) {
	alloc := &fakeAllocations{}
	s := newTestServer(&fakeDashboards{set: testProjectionSet()}, alloc)
	defer s.Shutdown(context.Background())

	body := []byte(`{"status":"approved","approved_amount":"1200.00"}`)
	rec := doRequest(t, s, http.MethodPatch, "/api/allocations/42/status", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if alloc.updated.ID != 42 {
		t.Errorf("updated id = %d, want 42", alloc.updated.ID)
	}
	if alloc.updated.Approved == nil || alloc.updated.Approved.Cents != 120000 {
		t.Errorf("approved = %v, want 120000 cents", alloc.updated.Approved)
	}
}

func TestUpdateAllocationStatusBadID(t *testing.T) {
	s := newTestServer(&fakeDashboards{set: testProjectionSet()}, &fakeAllocations{})
	defer s.Shutdown(context.Background())

	body := []byte(`{"status":"approved"}`)
	rec := doRequest(t, s, http.MethodPatch, "/api/allocations/abc/status", body)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUpdateAllocationStatusInvalidStatus(t *testing.T) {
	s := newTestServer(&fakeDashboards{set: testProjectionSet()}, &fakeAllocations{err: core.ErrInvalidStatus})
	defer s.Shutdown(context.Background())

	body := []byte(`{"status":"bogus"}`)
	rec := doRequest(t, s, http.MethodPatch, "/api/allocations/42/status", body)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(&fakeDashboards{set: testProjectionSet()}, &fakeAllocations{})
	defer s.Shutdown(context.Background())

	rec := doRequest(t, s, http.MethodDelete, "/api/allocations", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}
