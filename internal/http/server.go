package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/middleware/ratelimit"
	"bilancio/internal/middleware/security"
	"bilancio/internal/middleware/trace"
	"bilancio/internal/services"
)

// DashboardProvider serves projection sets. Implemented by
// services.DashboardService.
type DashboardProvider interface {
	Projections(ctx context.Context, cycleID, department int64) (*services.ProjectionSet, error)
}

// AllocationWriter handles allocation writes. Implemented by
// services.AllocationService.
type AllocationWriter interface {
	Create(ctx context.Context, a core.Allocation) (core.Allocation, error)
	UpdateStatus(ctx context.Context, id int64, status core.AllocationStatus, approved *core.Money) (core.Allocation, error)
}

type Server struct {
	http.Server

	dashboards  DashboardProvider
	allocations AllocationWriter

	rateLimiter  *ratelimit.Limiter
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, dashboards DashboardProvider, allocations AllocationWriter) *Server {
	mux := http.NewServeMux()

	s := &Server{
		dashboards:  dashboards,
		allocations: allocations,
		rateLimiter: ratelimit.NewLimiter(ratelimit.DefaultConfig()),
	}

	limit := s.rateLimiter.Middleware(security.ExtractClientIP, nil)

	mux.HandleFunc("GET /api/dashboard/overview", s.handleOverview)
	mux.HandleFunc("GET /api/dashboard/periods", s.handlePeriods)
	mux.HandleFunc("GET /api/dashboard/heads", s.handleHeads)
	mux.HandleFunc("GET /api/dashboard/grid", s.handleGrid)
	mux.HandleFunc("GET /api/dashboard/status-summary", s.handleStatusSummary)

	mux.Handle("POST /api/allocations", limit(http.HandlerFunc(s.handleCreateAllocation)))
	mux.Handle("PATCH /api/allocations/{id}/status", limit(http.HandlerFunc(s.handleUpdateAllocationStatus)))

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(security.ExtractClientIP)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           headers.Middleware(tracer.Middleware(mux)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Shutdown stops the rate limiter's cleanup goroutine and drains the
// HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
