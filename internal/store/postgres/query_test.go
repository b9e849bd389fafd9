package postgres

import (
	"testing"
	"time"

	"github.com/alanyoungcy/optionlab/internal/domain"
)

func TestListQuery(t *testing.T) {
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name  string
		opts  domain.ListOpts
		query string
		nargs int
	}{
		{"Bare", domain.ListOpts{}, "SELECT x FROM t WHERE 1=1 ORDER BY created_at DESC", 0},
		{"Paged", domain.ListOpts{Limit: 10, Offset: 20},
			"SELECT x FROM t WHERE 1=1 ORDER BY created_at DESC LIMIT $1 OFFSET $2", 2},
		{"Window", domain.ListOpts{Since: &since, Until: &since, Limit: 5},
			"SELECT x FROM t WHERE 1=1 AND created_at >= $1 AND created_at <= $2 ORDER BY created_at DESC LIMIT $3", 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q, args := listQuery("SELECT x FROM t", tc.opts)
			if q != tc.query {
				t.Errorf("query:\n got %s\nwant %s", q, tc.query)
			}
			if len(args) != tc.nargs {
				t.Errorf("args: expected %d, got %d", tc.nargs, len(args))
			}
		})
	}
}

func TestDSN(t *testing.T) {
	got := DSN(ClientConfig{Host: "db", User: "u", Password: "p", Database: "optionlab"})
	if want := "postgres://u:p@db:5432/optionlab?sslmode=disable"; got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
	if got := DSN(ClientConfig{DSN: "postgres://x", Host: "ignored"}); got != "postgres://x" {
		t.Errorf("explicit DSN should win, got %s", got)
	}
}

func TestMigrationNamesSorted(t *testing.T) {
	names, err := migrationNames()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) < 2 || names[0] != "001_init.sql" {
		t.Fatalf("unexpected migrations %v", names)
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Errorf("migrations out of order: %v", names)
		}
	}
}
