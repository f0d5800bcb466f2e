// Package handler contains the read-only HTTP monitor API the simulator
// optionally exposes: live fleet state, booking outcomes, and run totals.
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"homebound/internal/model"
)

// SnapshotSource provides the latest fleet snapshot. The simulator
// implements it; ok is false until the first tick has planned.
type SnapshotSource interface {
	Snapshot() (model.FleetSnapshot, bool)
}

// HealthCheck probes one backing service.
type HealthCheck func(ctx context.Context) error

// MonitorHandler serves the monitor API from whatever snapshot the
// simulator last published. It never mutates engine state.
type MonitorHandler struct {
	source SnapshotSource
	checks map[string]HealthCheck
}

// NewMonitorHandler creates a monitor over the given snapshot source.
func NewMonitorHandler(source SnapshotSource) *MonitorHandler {
	return &MonitorHandler{
		source: source,
		checks: make(map[string]HealthCheck),
	}
}

// AddHealthCheck registers a named backend probe reported by /health.
func (h *MonitorHandler) AddHealthCheck(name string, check HealthCheck) {
	h.checks[name] = check
}

// Register mounts the monitor routes on a router.
func (h *MonitorHandler) Register(r *mux.Router) {
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/fleet", h.Fleet).Methods(http.MethodGet)
	api.HandleFunc("/bookings", h.Bookings).Methods(http.MethodGet)
	api.HandleFunc("/summary", h.Summary).Methods(http.MethodGet)
}

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services,omitempty"`
}

// Health handles GET /health: ok plus one line per registered backend.
func (h *MonitorHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok"}
	if len(h.checks) > 0 {
		resp.Services = make(map[string]string, len(h.checks))
	}
	for name, check := range h.checks {
		if err := check(r.Context()); err != nil {
			resp.Status = "degraded"
			resp.Services[name] = "unhealthy: " + err.Error()
		} else {
			resp.Services[name] = "healthy"
		}
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// Fleet handles GET /api/v1/fleet: per-vehicle status from the latest tick.
func (h *MonitorHandler) Fleet(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.source.Snapshot()
	if !ok {
		writeNoSnapshot(w)
		return
	}
	writeJSON(w, http.StatusOK, snap.Vehicles)
}

// Bookings handles GET /api/v1/bookings: per-booking outcomes.
func (h *MonitorHandler) Bookings(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.source.Snapshot()
	if !ok {
		writeNoSnapshot(w)
		return
	}
	writeJSON(w, http.StatusOK, snap.Bookings)
}

// SummaryResponse is the /api/v1/summary payload.
type SummaryResponse struct {
	RunID     string            `json:"run_id"`
	Mode      string            `json:"mode"`
	Tick      int               `json:"tick"`
	SimMinute float64           `json:"sim_minute"`
	Totals    model.FleetTotals `json:"totals"`
}

// Summary handles GET /api/v1/summary: run identity and fleet totals.
func (h *MonitorHandler) Summary(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.source.Snapshot()
	if !ok {
		writeNoSnapshot(w)
		return
	}
	writeJSON(w, http.StatusOK, SummaryResponse{
		RunID:     snap.RunID,
		Mode:      snap.Mode,
		Tick:      snap.Tick,
		SimMinute: snap.SimMinute,
		Totals:    snap.Totals,
	})
}

func writeNoSnapshot(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]string{
		"error":   "no_snapshot",
		"message": "No planning tick has completed yet.",
	})
}

// writeJSON is a helper that writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
