package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/optionlab/internal/domain"
)

// maxScenarioName bounds stored scenario names.
const maxScenarioName = 200

// Quoter prices a request.
type Quoter interface {
	Quote(ctx context.Context, req domain.QuoteRequest) (domain.Quote, error)
}

// ScenarioService saves named calculator inputs and prices them on demand.
// Only inputs are stored; quotes are always recomputed.
type ScenarioService struct {
	store  domain.ScenarioStore
	quoter Quoter
	events publisher
	now    func() time.Time
	logger *slog.Logger
}

// NewScenarioService creates a ScenarioService. bus may be nil.
func NewScenarioService(store domain.ScenarioStore, quoter Quoter, bus domain.SignalBus, logger *slog.Logger) *ScenarioService {
	return &ScenarioService{
		store:  store,
		quoter: quoter,
		events: publisher{bus: bus, logger: logger},
		now:    time.Now,
		logger: logger,
	}
}

// Save validates and stores a new scenario.
func (s *ScenarioService) Save(ctx context.Context, name string, req domain.QuoteRequest) (domain.Scenario, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxScenarioName {
		return domain.Scenario{}, fmt.Errorf("scenario_service: save: %w",
			&domain.DomainError{Field: "name", Value: name, Reason: fmt.Sprintf("must be 1-%d characters", maxScenarioName)})
	}
	typ, err := domain.ParseOptionType(req.OptionType)
	if err != nil {
		return domain.Scenario{}, fmt.Errorf("scenario_service: save: %w", err)
	}
	req.OptionType = string(typ)

	sc := domain.Scenario{
		ID:        uuid.NewString(),
		Name:      name,
		Request:   req,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Create(ctx, sc); err != nil {
		return domain.Scenario{}, fmt.Errorf("scenario_service: save: %w", err)
	}

	s.logger.InfoContext(ctx, "scenario_service: scenario saved",
		slog.String("id", sc.ID),
		slog.String("name", sc.Name),
	)
	s.events.publish(ctx, domain.ChannelScenarios, "", domain.NewEvent(domain.EventScenarioSaved, map[string]any{
		"id":   sc.ID,
		"name": sc.Name,
	}))
	return sc, nil
}

// Get loads a scenario by id.
func (s *ScenarioService) Get(ctx context.Context, id string) (domain.Scenario, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Scenario{}, fmt.Errorf("scenario_service: get %q: %w", id, domain.ErrNotFound)
	}
	sc, err := s.store.GetByID(ctx, id)
	if err != nil {
		return domain.Scenario{}, fmt.Errorf("scenario_service: get %q: %w", id, err)
	}
	return sc, nil
}

// List returns saved scenarios, newest first.
func (s *ScenarioService) List(ctx context.Context, opts domain.ListOpts) ([]domain.Scenario, error) {
	list, err := s.store.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("scenario_service: list: %w", err)
	}
	return list, nil
}

// Quote prices a stored scenario.
func (s *ScenarioService) Quote(ctx context.Context, id string) (domain.Quote, error) {
	sc, err := s.Get(ctx, id)
	if err != nil {
		return domain.Quote{}, err
	}
	q, err := s.quoter.Quote(ctx, sc.Request)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("scenario_service: quote %q: %w", id, err)
	}
	return q, nil
}
