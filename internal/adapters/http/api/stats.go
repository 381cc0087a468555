// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"net/http"
)

// StatsProvider exposes a snapshot of the running service: queue depth,
// worker count and whatever else the pipeline reports.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler serves the runtime snapshot to operators and the simulator.
type StatsHandler struct {
	statsProvider StatsProvider
}

// NewStatsHandler creates a handler backed by the given provider.
func NewStatsHandler(statsProvider StatsProvider) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider}
}

// HandleStats answers GET /stats with the current snapshot as JSON.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	stats := h.statsProvider.GetStats()
	_ = json.NewEncoder(w).Encode(stats)
}
