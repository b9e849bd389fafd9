package handler

import (
	"net/http"
	"time"

	"github.com/alanyoungcy/optionlab/internal/pricing"
)

// StatusHandler serves the process mode and solver settings.
type StatusHandler struct {
	Mode      string
	StartedAt time.Time
	Solver    pricing.SolverConfig
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(mode string, startedAt time.Time, solver pricing.SolverConfig) *StatusHandler {
	return &StatusHandler{Mode: mode, StartedAt: startedAt, Solver: solver}
}

// GetStatus responds with the current mode, uptime and solver bounds.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":           h.Mode,
		"started_at":     h.StartedAt.UTC().Format(time.RFC3339),
		"uptime_seconds": int64(time.Since(h.StartedAt).Seconds()),
		"solver": map[string]any{
			"tolerance":         h.Solver.Tolerance,
			"max_iterations":    h.Solver.MaxIterations,
			"vol_lower":         h.Solver.VolLower,
			"vol_upper":         h.Solver.VolUpper,
			"spot_lower_factor": h.Solver.SpotLowerFactor,
			"spot_upper_factor": h.Solver.SpotUpperFactor,
			"max_expansions":    h.Solver.MaxExpansions,
		},
	})
}
