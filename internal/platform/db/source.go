package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carelink/carelink/internal/correlate"
)

// Source adapts a pgx pool to the correlate.TabularSource contract:
// parameterized SQL in, ordered generic rows out. Row ordering follows the
// statement's ORDER BY and is preserved exactly.
type Source struct {
	pool *pgxpool.Pool
}

func NewSource(pool *pgxpool.Pool) *Source {
	return &Source{pool: pool}
}

// Execute runs the statement and materializes every row as a column→value
// mapping. Store failures come back as correlate.QueryError.
func (s *Source) Execute(ctx context.Context, sql string, args ...any) ([]correlate.Row, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, correlate.Queryf(err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []correlate.Row
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, correlate.Queryf(err)
		}
		row := make(correlate.Row, len(fields))
		for i, fd := range fields {
			row[string(fd.Name)] = vals[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, correlate.Queryf(err)
	}
	return out, nil
}

// Pool exposes the underlying pool for health reporting.
func (s *Source) Pool() *pgxpool.Pool { return s.pool }
