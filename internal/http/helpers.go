package http

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"bilancio/internal/core"
	"bilancio/internal/rollup"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps domain sentinels onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrUnknownCycle), errors.Is(err, sql.ErrNoRows):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidPeriod),
		errors.Is(err, core.ErrInvalidStatus),
		errors.Is(err, core.ErrInvalidHeadType):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			"path", r.URL.Path,
			"error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// parseCycleID reads the cycle query parameter; absent or zero selects
// the active cycle.
func parseCycleID(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("cycle")
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0, errors.New("cycle must be a non-negative integer")
	}
	return id, nil
}

// parseDepartment reads the department query parameter; absent or "all"
// disables the filter.
func parseDepartment(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("department")
	if raw == "" || raw == "all" {
		return rollup.AllDepartments, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("department must be a positive integer or \"all\"")
	}
	return id, nil
}
