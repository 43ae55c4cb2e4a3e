package correlate

import (
	"context"
	"fmt"
	"time"
)

// Row is one row from a tabular source: column name to scanned value.
// The ordering that matters is the ordering of the row sequence itself,
// which the pipelines treat as authoritative for output.
type Row map[string]any

// Key extracts the join key stored under the given column.
func (r Row) Key(column string) (Key, bool) {
	return KeyFromValue(r[column])
}

// String returns the column as a string, or "" when NULL or absent.
func (r Row) String(column string) string {
	switch v := r[column].(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		return v.Format("2006-01-02T15:04:05")
	default:
		return fmt.Sprintf("%v", v)
	}
}

// TabularSource is the query interface the core consumes for relational
// stores: a parameterized SQL template with positional arguments, returning
// an ordered row sequence.
type TabularSource interface {
	Execute(ctx context.Context, sql string, args ...any) ([]Row, error)
}

// Record is a cross-reference record from the secondary source: sparse
// attribute values keyed by name. Absence means "unknown", not empty.
type Record map[string]string

// Get returns the attribute value and whether it is known.
func (rec Record) Get(attr string) (string, bool) {
	if rec == nil {
		return "", false
	}
	v, ok := rec[attr]
	return v, ok
}
