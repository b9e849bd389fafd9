package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/optionlab/internal/domain"
)

// ScenarioStore implements domain.ScenarioStore using PostgreSQL.
type ScenarioStore struct {
	pool *pgxpool.Pool
}

var _ domain.ScenarioStore = (*ScenarioStore)(nil)

// NewScenarioStore creates a new ScenarioStore backed by the given connection pool.
func NewScenarioStore(pool *pgxpool.Pool) *ScenarioStore {
	return &ScenarioStore{pool: pool}
}

const scenarioColumns = `id, name, request, created_at`

// Create inserts a scenario. The request is stored as JSONB.
func (s *ScenarioStore) Create(ctx context.Context, sc domain.Scenario) error {
	reqJSON, err := json.Marshal(sc.Request)
	if err != nil {
		return fmt.Errorf("postgres: marshal scenario %s: %w", sc.ID, err)
	}
	createdAt := sc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	const query = `INSERT INTO scenarios (id, name, request, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := s.pool.Exec(ctx, query, sc.ID, sc.Name, reqJSON, createdAt); err != nil {
		return fmt.Errorf("postgres: create scenario %s: %w", sc.ID, err)
	}
	return nil
}

// GetByID loads one scenario, mapping a missing row to domain.ErrNotFound.
func (s *ScenarioStore) GetByID(ctx context.Context, id string) (domain.Scenario, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+scenarioColumns+` FROM scenarios WHERE id = $1`, id)
	sc, err := scanScenario(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Scenario{}, domain.ErrNotFound
		}
		return domain.Scenario{}, fmt.Errorf("postgres: get scenario %s: %w", id, err)
	}
	return sc, nil
}

// List returns scenarios newest first.
func (s *ScenarioStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Scenario, error) {
	query, args := listQuery(`SELECT `+scenarioColumns+` FROM scenarios`, opts)
	return s.query(ctx, "list scenarios", query, args...)
}

// ListBefore returns up to limit scenarios created before the cutoff, oldest first.
func (s *ScenarioStore) ListBefore(ctx context.Context, before time.Time, limit int) ([]domain.Scenario, error) {
	const query = `SELECT ` + scenarioColumns + ` FROM scenarios
		WHERE created_at < $1 ORDER BY created_at ASC LIMIT $2`
	return s.query(ctx, "list scenarios before", query, before, limit)
}

// DeleteByIDs removes the given scenarios and reports how many existed.
func (s *ScenarioStore) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM scenarios WHERE id = ANY($1::uuid[])`, ids)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete %d scenarios: %w", len(ids), err)
	}
	return tag.RowsAffected(), nil
}

func (s *ScenarioStore) query(ctx context.Context, op, query string, args ...any) ([]domain.Scenario, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: %s: %w", op, err)
	}
	defer rows.Close()

	var out []domain.Scenario
	for rows.Next() {
		sc, err := scanScenario(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: %s: %w", op, err)
		}
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: %s rows: %w", op, err)
	}
	return out, nil
}

func scanScenario(row pgx.Row) (domain.Scenario, error) {
	var sc domain.Scenario
	var reqJSON []byte
	if err := row.Scan(&sc.ID, &sc.Name, &reqJSON, &sc.CreatedAt); err != nil {
		return domain.Scenario{}, err
	}
	if err := json.Unmarshal(reqJSON, &sc.Request); err != nil {
		return domain.Scenario{}, fmt.Errorf("unmarshal request: %w", err)
	}
	return sc, nil
}
