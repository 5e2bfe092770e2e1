package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"bilancio/internal/core"
)

type createAllocationRequest struct {
	CycleID      int64  `json:"cycle_id"`
	HeadID       int64  `json:"head_id"`
	DepartmentID int64  `json:"department_id"`
	Period       int    `json:"period"`
	Amount       string `json:"amount"`
}

type updateStatusRequest struct {
	Status         string  `json:"status"`
	ApprovedAmount *string `json:"approved_amount,omitempty"`
}

type allocationResponse struct {
	ID             int64  `json:"id"`
	CycleID        int64  `json:"cycle_id"`
	HeadID         int64  `json:"head_id"`
	DepartmentID   int64  `json:"department_id"`
	Period         int    `json:"period"`
	AllocatedCents int64  `json:"allocated_cents"`
	ApprovedCents  *int64 `json:"approved_cents,omitempty"`
	Status         string `json:"status"`
}

func toAllocationResponse(a core.Allocation) allocationResponse {
	resp := allocationResponse{
		ID:             a.ID,
		CycleID:        a.CycleID,
		HeadID:         a.HeadID,
		DepartmentID:   a.DepartmentID,
		Period:         a.Period,
		AllocatedCents: a.Allocated.Cents,
		Status:         string(a.Status),
	}
	if a.Approved != nil {
		cents := a.Approved.Cents
		resp.ApprovedCents = &cents
	}
	return resp
}

func (s *Server) handleCreateAllocation(w http.ResponseWriter, r *http.Request) {
	var req createAllocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount: "+err.Error())
		return
	}

	allocation := core.Allocation{
		CycleID:      req.CycleID,
		HeadID:       req.HeadID,
		DepartmentID: req.DepartmentID,
		Period:       req.Period,
		Allocated:    core.Money{Cents: cents},
		Status:       core.StatusDraft,
	}

	saved, err := s.allocations.Create(r.Context(), allocation)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAllocationResponse(saved))
}

func (s *Server) handleUpdateAllocationStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid allocation id")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var approved *core.Money
	if req.ApprovedAmount != nil {
		cents, err := core.ParseDecimalToCents(*req.ApprovedAmount)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid approved_amount: "+err.Error())
			return
		}
		approved = &core.Money{Cents: cents}
	}

	updated, err := s.allocations.UpdateStatus(r.Context(), id, core.AllocationStatus(req.Status), approved)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toAllocationResponse(updated))
}
