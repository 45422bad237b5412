// Package api exposes a minimal read-only HTTP surface for an
// xproto-backed long-lived process: the active Session's inspect()
// snapshot, endpoint health, and a Prometheus /metrics handler. Adapted
// from the teacher's internal/api.Server — the tenant CRUD, pause/resume,
// and admin dashboard handlers have no analog for a single-session driver
// client and are dropped (see DESIGN.md); what survives is the
// gorilla/mux routing shape and the graceful-shutdown discipline.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mysqlxp/xproto"
	"github.com/mysqlxp/xproto/internal/health"
	"github.com/mysqlxp/xproto/internal/metrics"
)

// SessionSource is the subset of state the Server reports on. It is an
// interface (rather than a *xproto.Session field) because the Session may
// not exist yet when the server starts (config load can race connect), and
// because a reconnect swaps it out — the CLI supplies a small adapter
// type instead of exposing Session mutation to this package.
type SessionSource interface {
	// Inspect returns the current session snapshot, or ok=false if no
	// session is currently established.
	Inspect() (xproto.Inspection, bool)
}

// Server is the read-only inspect/health/metrics HTTP server.
type Server struct {
	sessions   SessionSource
	health     *health.Checker
	metrics    *metrics.Collector
	httpServer *http.Server
	startTime  time.Time
}

// NewServer creates a new API server.
func NewServer(sessions SessionSource, hc *health.Checker, m *metrics.Collector) *Server {
	return &Server{
		sessions:  sessions,
		health:    hc,
		metrics:   m,
		startTime: time.Now(),
	}
}

// Start starts the HTTP server on the given bind address (host:port).
func (s *Server) Start(addr string) error {
	r := mux.NewRouter()

	r.HandleFunc("/inspect", s.inspectHandler).Methods("GET")
	r.HandleFunc("/health", s.healthHandler).Methods("GET")
	r.HandleFunc("/status", s.statusHandler).Methods("GET")
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})).Methods("GET")

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Println("xproto inspect server error:", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the API server.
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) inspectHandler(w http.ResponseWriter, r *http.Request) {
	insp, ok := s.sessions.Inspect()
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "no active session"})
		return
	}
	writeJSON(w, http.StatusOK, insp)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "unmonitored"})
		return
	}

	statuses := s.health.GetAllStatuses()
	allHealthy := s.health.OverallHealthy()

	status := http.StatusOK
	if !allHealthy {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]interface{}{
		"status":    boolToStatus(allHealthy),
		"endpoints": statuses,
	})
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"uptime_seconds": int(time.Since(s.startTime).Seconds()),
		"go_version":     runtime.Version(),
		"goroutines":     runtime.NumGoroutine(),
		"memory_mb":      float64(mem.Alloc) / 1024 / 1024,
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func boolToStatus(b bool) string {
	if b {
		return "healthy"
	}
	return "unhealthy"
}
