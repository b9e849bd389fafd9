package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// ScenarioStore persists saved calculator inputs.
type ScenarioStore interface {
	Create(ctx context.Context, s Scenario) error
	GetByID(ctx context.Context, id string) (Scenario, error)
	List(ctx context.Context, opts ListOpts) ([]Scenario, error)
	ListBefore(ctx context.Context, before time.Time, limit int) ([]Scenario, error)
	DeleteByIDs(ctx context.Context, ids []string) (int64, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64          `json:"id"`
	Event     string         `json:"event"`
	Detail    map[string]any `json:"detail"`
	CreatedAt time.Time      `json:"created_at"`
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
