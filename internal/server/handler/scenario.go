package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/optionlab/internal/domain"
)

// ScenarioService defines the methods that the scenario handler requires
// from the service layer.
type ScenarioService interface {
	Save(ctx context.Context, name string, req domain.QuoteRequest) (domain.Scenario, error)
	Get(ctx context.Context, id string) (domain.Scenario, error)
	List(ctx context.Context, opts domain.ListOpts) ([]domain.Scenario, error)
	Quote(ctx context.Context, id string) (domain.Quote, error)
}

// ScenarioHandler serves saved calculator inputs.
type ScenarioHandler struct {
	scenarios ScenarioService
	logger    *slog.Logger
}

// NewScenarioHandler creates a ScenarioHandler.
func NewScenarioHandler(scenarios ScenarioService, logger *slog.Logger) *ScenarioHandler {
	return &ScenarioHandler{scenarios: scenarios, logger: logger}
}

type saveScenarioRequest struct {
	Name    string              `json:"name"`
	Request domain.QuoteRequest `json:"request"`
}

type listScenariosResponse struct {
	Scenarios []domain.Scenario `json:"scenarios"`
	Limit     int               `json:"limit"`
	Offset    int               `json:"offset"`
}

// SaveScenario stores a named set of calculator inputs.
// POST /api/scenarios
func (h *ScenarioHandler) SaveScenario(w http.ResponseWriter, r *http.Request) {
	var req saveScenarioRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sc, err := h.scenarios.Save(r.Context(), req.Name, req.Request)
	if err != nil {
		writeServiceError(w, r, h.logger, "failed to save scenario", err)
		return
	}
	writeJSON(w, http.StatusCreated, sc)
}

// ListScenarios returns saved scenarios, newest first.
// GET /api/scenarios?limit=50&offset=0
func (h *ScenarioHandler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	list, err := h.scenarios.List(r.Context(), opts)
	if err != nil {
		writeServiceError(w, r, h.logger, "failed to list scenarios", err)
		return
	}
	if list == nil {
		list = []domain.Scenario{}
	}
	writeJSON(w, http.StatusOK, listScenariosResponse{
		Scenarios: list,
		Limit:     opts.Limit,
		Offset:    opts.Offset,
	})
}

// GetScenario returns a single scenario.
// GET /api/scenarios/{id}
func (h *ScenarioHandler) GetScenario(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing scenario id")
		return
	}

	sc, err := h.scenarios.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, "scenario", err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

// QuoteScenario prices a saved scenario with the current rate.
// POST /api/scenarios/{id}/quote
func (h *ScenarioHandler) QuoteScenario(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing scenario id")
		return
	}

	q, err := h.scenarios.Quote(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, "scenario", err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}
