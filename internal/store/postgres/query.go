package postgres

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/optionlab/internal/domain"
)

// listQuery appends the time window, newest-first ordering and pagination
// from opts to a SELECT over a table with a created_at column.
func listQuery(base string, opts domain.ListOpts) (string, []any) {
	var b strings.Builder
	b.WriteString(base)
	b.WriteString(" WHERE 1=1")

	args := []any{}
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if opts.Since != nil {
		b.WriteString(" AND created_at >= " + next(*opts.Since))
	}
	if opts.Until != nil {
		b.WriteString(" AND created_at <= " + next(*opts.Until))
	}
	b.WriteString(" ORDER BY created_at DESC")
	if opts.Limit > 0 {
		b.WriteString(" LIMIT " + next(opts.Limit))
	}
	if opts.Offset > 0 {
		b.WriteString(" OFFSET " + next(opts.Offset))
	}
	return b.String(), args
}
