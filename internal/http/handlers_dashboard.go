package http

import (
	"net/http"

	"bilancio/internal/classify"
	"bilancio/internal/projection"
	"bilancio/internal/services"
)

type overviewResponse struct {
	CycleID         int64                     `json:"cycle_id"`
	FiscalYear      string                    `json:"fiscal_year"`
	Department      int64                     `json:"department,omitempty"`
	SnapshotVersion int64                     `json:"snapshot_version"`
	Overview        projection.OverviewTotals `json:"overview"`
	NetBudget       int64                     `json:"net_budget"`
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	set, ok := s.projections(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, overviewResponse{
		CycleID:         set.CycleID,
		FiscalYear:      set.FiscalYear,
		Department:      set.Department,
		SnapshotVersion: set.SnapshotVersion,
		Overview:        set.Overview,
		NetBudget:       set.Overview.Income - set.Overview.Expense,
	})
}

type periodsResponse struct {
	CycleID    int64                    `json:"cycle_id"`
	FiscalYear string                   `json:"fiscal_year"`
	Department int64                    `json:"department,omitempty"`
	Periods    []projection.PeriodEntry `json:"periods"`
}

func (s *Server) handlePeriods(w http.ResponseWriter, r *http.Request) {
	set, ok := s.projections(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, periodsResponse{
		CycleID:    set.CycleID,
		FiscalYear: set.FiscalYear,
		Department: set.Department,
		Periods:    set.Periods,
	})
}

type headsResponse struct {
	CycleID    int64                     `json:"cycle_id"`
	FiscalYear string                    `json:"fiscal_year"`
	Department int64                     `json:"department,omitempty"`
	Heads      projection.HeadWiseTotals `json:"heads"`
}

func (s *Server) handleHeads(w http.ResponseWriter, r *http.Request) {
	set, ok := s.projections(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, headsResponse{
		CycleID:    set.CycleID,
		FiscalYear: set.FiscalYear,
		Department: set.Department,
		Heads:      set.HeadWise,
	})
}

type gridResponse struct {
	CycleID    int64           `json:"cycle_id"`
	FiscalYear string          `json:"fiscal_year"`
	Department int64           `json:"department,omitempty"`
	Grid       projection.Grid `json:"grid"`
}

func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	set, ok := s.projections(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, gridResponse{
		CycleID:    set.CycleID,
		FiscalYear: set.FiscalYear,
		Department: set.Department,
		Grid:       set.Grid,
	})
}

type departmentStatus struct {
	ID     int64           `json:"id"`
	Name   string          `json:"name"`
	Bucket classify.Bucket `json:"bucket"`
}

type statusSummaryResponse struct {
	CycleID     int64              `json:"cycle_id"`
	FiscalYear  string             `json:"fiscal_year"`
	Summary     classify.Summary   `json:"summary"`
	Departments []departmentStatus `json:"departments"`
}

func (s *Server) handleStatusSummary(w http.ResponseWriter, r *http.Request) {
	set, ok := s.projections(w, r)
	if !ok {
		return
	}

	departments := make([]departmentStatus, 0, len(set.Departments))
	for _, d := range set.Departments {
		bucket, found := set.Buckets[d.ID]
		if !found {
			bucket = classify.BucketUnclassified
		}
		departments = append(departments, departmentStatus{
			ID:     d.ID,
			Name:   d.Name,
			Bucket: bucket,
		})
	}

	writeJSON(w, http.StatusOK, statusSummaryResponse{
		CycleID:     set.CycleID,
		FiscalYear:  set.FiscalYear,
		Summary:     set.StatusSummary,
		Departments: departments,
	})
}

// projections resolves the cycle and department parameters and loads the
// projection set, writing the error response itself on failure.
func (s *Server) projections(w http.ResponseWriter, r *http.Request) (*services.ProjectionSet, bool) {
	cycleID, err := parseCycleID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	department, err := parseDepartment(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	set, err := s.dashboards.Projections(r.Context(), cycleID, department)
	if err != nil {
		writeServiceError(w, r, err)
		return nil, false
	}
	return set, true
}
