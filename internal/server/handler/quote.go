package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alanyoungcy/optionlab/internal/domain"
	"github.com/alanyoungcy/optionlab/internal/service"
)

// QuoteService defines the methods that the quote handler requires from the
// service layer.
type QuoteService interface {
	Quote(ctx context.Context, req domain.QuoteRequest) (domain.Quote, error)
	Curve(ctx context.Context, req service.CurveRequest) (domain.CurveSeries, error)
	RecentQuotes(ctx context.Context, limit int) ([]domain.Event, error)
	QuoteHistory(ctx context.Context, after string, limit int) (service.QuoteHistory, error)
}

// QuoteHandler serves the calculator endpoints.
type QuoteHandler struct {
	quotes QuoteService
	logger *slog.Logger
}

// NewQuoteHandler creates a QuoteHandler with the given service and logger.
func NewQuoteHandler(quotes QuoteService, logger *slog.Logger) *QuoteHandler {
	return &QuoteHandler{quotes: quotes, logger: logger}
}

// Quote prices an option, solving for whichever of volatility, spot or
// market price was left out.
// POST /api/quote
func (h *QuoteHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req domain.QuoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	q, err := h.quotes.Quote(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.logger, "failed to compute quote", err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// Curve samples the price along one input.
// POST /api/curve
func (h *QuoteHandler) Curve(w http.ResponseWriter, r *http.Request) {
	var req service.CurveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	series, err := h.quotes.Curve(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.logger, "failed to sample curve", err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

// RecentQuotes returns the newest computed quotes, newest first.
// GET /api/quotes/recent?limit=20
func (h *QuoteHandler) RecentQuotes(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 20, 100)

	events, err := h.quotes.RecentQuotes(r.Context(), limit)
	if err != nil {
		writeServiceError(w, r, h.logger, "failed to list recent quotes", err)
		return
	}
	if events == nil {
		events = []domain.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"quotes": events})
}

// QuoteHistory pages through stored quotes, oldest first. Pass the returned
// next cursor as after to continue.
// GET /api/quotes/history?after=0-0&limit=100
func (h *QuoteHandler) QuoteHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 100, 500)

	page, err := h.quotes.QuoteHistory(r.Context(), r.URL.Query().Get("after"), limit)
	if err != nil {
		writeServiceError(w, r, h.logger, "failed to read quote history", err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// queryLimit reads a positive ?limit, capped at max.
func queryLimit(r *http.Request, def, max int) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return min(n, max)
		}
	}
	return def
}
