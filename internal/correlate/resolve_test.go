package correlate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

func TestResolveEach_PartialFailure(t *testing.T) {
	keys := NewKeySet(TextualKey("p1"), TextualKey("p2"), TextualKey("p3"))
	lookup := func(_ context.Context, k Key) (Record, error) {
		if k.Text() == "p2" {
			return nil, fmt.Errorf("not found")
		}
		return Record{"user_name": "user-" + k.Text()}, nil
	}

	resolved, unresolved := ResolveEach(context.Background(), keys, lookup, 4)
	if len(resolved) != 2 {
		t.Fatalf("expected 2 resolved, got %d", len(resolved))
	}
	if unresolved.Len() != 1 || !unresolved.Contains(TextualKey("p2")) {
		t.Errorf("expected p2 unresolved, got %v", unresolved.Keys())
	}
	if v, _ := resolved[TextualKey("p1")].Get("user_name"); v != "user-p1" {
		t.Errorf("unexpected record for p1: %v", resolved[TextualKey("p1")])
	}
}

func TestResolveEach_OneFailureDoesNotAbortSiblings(t *testing.T) {
	keys := NewKeySet()
	for i := 0; i < 100; i++ {
		keys.Add(NumericKey(int64(i)))
	}
	var calls int64
	lookup := func(_ context.Context, k Key) (Record, error) {
		atomic.AddInt64(&calls, 1)
		if k.Int64()%10 == 0 {
			return nil, fmt.Errorf("transient")
		}
		return Record{"v": k.String()}, nil
	}

	resolved, unresolved := ResolveEach(context.Background(), keys, lookup, 8)
	if calls != 100 {
		t.Errorf("expected all 100 lookups dispatched, got %d", calls)
	}
	if len(resolved) != 90 || unresolved.Len() != 10 {
		t.Errorf("expected 90/10 split, got %d/%d", len(resolved), unresolved.Len())
	}
}

func TestResolveEach_ConcurrencyBounded(t *testing.T) {
	keys := NewKeySet()
	for i := 0; i < 40; i++ {
		keys.Add(NumericKey(int64(i)))
	}
	var mu sync.Mutex
	inFlight, peak := 0, 0
	lookup := func(_ context.Context, k Key) (Record, error) {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()
		defer func() {
			mu.Lock()
			inFlight--
			mu.Unlock()
		}()
		return Record{"v": k.String()}, nil
	}

	ResolveEach(context.Background(), keys, lookup, 4)
	if peak > 4 {
		t.Errorf("concurrency cap exceeded: peak %d", peak)
	}
}

func TestResolveEach_CancelledContext(t *testing.T) {
	keys := NewKeySet(TextualKey("a"), TextualKey("b"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resolved, unresolved := ResolveEach(ctx, keys, func(ctx context.Context, k Key) (Record, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return Record{"v": k.String()}, nil
	}, 2)
	if len(resolved) != 0 {
		t.Errorf("expected no resolutions after cancel, got %d", len(resolved))
	}
	if unresolved.Len() != 2 {
		t.Errorf("expected all keys unresolved, got %d", unresolved.Len())
	}
}

func TestResolveEach_EmptySet(t *testing.T) {
	called := false
	resolved, unresolved := ResolveEach(context.Background(), NewKeySet(), func(context.Context, Key) (Record, error) {
		called = true
		return nil, nil
	}, 2)
	if called {
		t.Error("lookup must not run for an empty key set")
	}
	if len(resolved) != 0 || unresolved.Len() != 0 {
		t.Error("expected empty resolution")
	}
}

// fakeSource records executed queries and serves canned row sequences.
type fakeSource struct {
	queries []string
	args    [][]any
	rows    [][]Row
	err     error
}

func (f *fakeSource) Execute(_ context.Context, sql string, args ...any) ([]Row, error) {
	f.queries = append(f.queries, sql)
	f.args = append(f.args, args)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.rows) == 0 {
		return nil, nil
	}
	rows := f.rows[0]
	f.rows = f.rows[1:]
	return rows, nil
}

func TestResolveTable_SingleBatch(t *testing.T) {
	src := &fakeSource{rows: [][]Row{{
		{"patient_id": int64(1), "user_name": "ada", "age": int64(44), "note": nil},
		{"patient_id": int64(3), "user_name": "grace"},
	}}}
	keys := NewKeySet(NumericKey(1), NumericKey(2), NumericKey(3))

	resolved, unresolved, err := ResolveTable(context.Background(), src,
		"SELECT patient_id, user_name, age FROM patient WHERE patient_id IN (%s)",
		"patient_id", keys, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(src.queries) != 1 {
		t.Fatalf("expected one round trip, got %d", len(src.queries))
	}
	if len(src.args[0]) != 3 {
		t.Errorf("expected 3 bound args, got %d", len(src.args[0]))
	}
	if len(resolved) != 2 {
		t.Errorf("expected 2 resolved, got %d", len(resolved))
	}
	if unresolved.Len() != 1 || !unresolved.Contains(NumericKey(2)) {
		t.Errorf("expected key 2 unresolved, got %v", unresolved.Keys())
	}
	rec := resolved[NumericKey(1)]
	if v, _ := rec.Get("age"); v != "44" {
		t.Errorf("expected age 44, got %q", v)
	}
	if _, ok := rec.Get("note"); ok {
		t.Error("NULL column must stay absent from the record")
	}
	if _, ok := rec.Get("patient_id"); ok {
		t.Error("key column must not appear as an attribute")
	}
}

func TestResolveTable_Chunked(t *testing.T) {
	src := &fakeSource{rows: [][]Row{
		{{"id": int64(0), "v": "a"}},
		{{"id": int64(2), "v": "b"}},
	}}
	keys := NewKeySet(NumericKey(0), NumericKey(1), NumericKey(2))

	resolved, unresolved, err := ResolveTable(context.Background(), src,
		"SELECT id, v FROM t WHERE id IN (%s)", "id", keys, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(src.queries) != 2 {
		t.Fatalf("expected 2 chunked round trips, got %d", len(src.queries))
	}
	if !strings.Contains(src.queries[0], "IN ($1,$2)") || !strings.Contains(src.queries[1], "IN ($1)") {
		t.Errorf("unexpected chunk predicates: %v", src.queries)
	}
	if len(resolved) != 2 || unresolved.Len() != 1 {
		t.Errorf("expected merged 2 resolved / 1 unresolved, got %d/%d", len(resolved), unresolved.Len())
	}
}

func TestResolveTable_EmptyKeySetSkipsSource(t *testing.T) {
	src := &fakeSource{}
	resolved, unresolved, err := ResolveTable(context.Background(), src,
		"SELECT id FROM t WHERE id IN (%s)", "id", NewKeySet(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(src.queries) != 0 {
		t.Error("secondary source must not be contacted for an empty key set")
	}
	if len(resolved) != 0 || unresolved.Len() != 0 {
		t.Error("expected empty resolution")
	}
}

func TestResolveTable_QueryFailure(t *testing.T) {
	src := &fakeSource{err: fmt.Errorf("connection refused")}
	_, _, err := ResolveTable(context.Background(), src,
		"SELECT id FROM t WHERE id IN (%s)", "id", NewKeySet(NumericKey(1)), 0)
	if err == nil {
		t.Fatal("expected error")
	}
	var qe *QueryError
	if !errors.As(err, &qe) {
		t.Errorf("expected QueryError, got %T: %v", err, err)
	}
}
