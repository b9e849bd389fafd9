package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/optionlab/internal/service"
)

// RateService defines the rate operations the handler needs.
type RateService interface {
	Current(ctx context.Context) service.RateInfo
	Set(ctx context.Context, rate float64) (service.RateInfo, error)
}

// RateHandler serves the risk-free rate endpoints.
type RateHandler struct {
	rates  RateService
	logger *slog.Logger
}

// NewRateHandler creates a RateHandler.
func NewRateHandler(rates RateService, logger *slog.Logger) *RateHandler {
	return &RateHandler{rates: rates, logger: logger}
}

type setRateRequest struct {
	Rate *float64 `json:"rate"`
}

// GetRate returns the rate applied to requests that omit one.
// GET /api/rate
func (h *RateHandler) GetRate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.rates.Current(r.Context()))
}

// SetRate stores a new default rate as a decimal (0.05 for 5%).
// PUT /api/rate
func (h *RateHandler) SetRate(w http.ResponseWriter, r *http.Request) {
	var req setRateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Rate == nil {
		writeError(w, http.StatusBadRequest, "missing rate")
		return
	}

	info, err := h.rates.Set(r.Context(), *req.Rate)
	if err != nil {
		writeServiceError(w, r, h.logger, "failed to set rate", err)
		return
	}
	h.logger.InfoContext(r.Context(), "handler: rate updated", slog.Float64("rate", info.Rate))
	writeJSON(w, http.StatusOK, info)
}
