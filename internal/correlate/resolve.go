package correlate

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// LookupFunc fetches the cross-reference record for a single key from a
// directory-backed source. A lookup failure (not-found or transient) applies
// to that key alone.
type LookupFunc func(ctx context.Context, k Key) (Record, error)

// DefaultLookupConcurrency caps concurrent directory lookups per request.
const DefaultLookupConcurrency = 8

// ResolveEach resolves keys against a single-key source, dispatching lookups
// concurrently up to limit in flight. A failed lookup marks its key
// unresolved and never aborts siblings. All lookups are joined before the
// merged mapping is returned, so completion order cannot leak to callers.
// When ctx is cancelled, outstanding keys are reported unresolved.
func ResolveEach(ctx context.Context, keys *KeySet, lookup LookupFunc, limit int) (map[Key]Record, *KeySet) {
	resolved := make(map[Key]Record, keys.Len())
	unresolved := NewKeySet()
	if keys.Len() == 0 {
		return resolved, unresolved
	}
	if limit <= 0 {
		limit = DefaultLookupConcurrency
	}

	ks := keys.Keys()
	results := make([]Record, len(ks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := range ks {
		i := i
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			rec, err := lookup(gctx, ks[i])
			if err != nil {
				return nil
			}
			results[i] = rec
			return nil
		})
	}
	// Lookups never return errors into the group; Wait is the fan-in barrier.
	_ = g.Wait()

	for i, k := range ks {
		if results[i] != nil {
			resolved[k] = results[i]
		} else {
			unresolved.Add(k)
		}
	}
	return resolved, unresolved
}

// ResolveTable resolves keys against a table-backed source with one batched
// query per chunk instead of one round trip per key. queryTemplate must
// contain a single %s that receives the placeholder list, e.g.
//
//	SELECT p.patient_id, u.user_name FROM ... WHERE p.patient_id IN (%s)
//
// Returned rows are folded into the mapping by keyColumn; all other columns
// become record attributes (NULL columns stay absent). A query failure
// aborts the whole resolution.
func ResolveTable(ctx context.Context, src TabularSource, queryTemplate, keyColumn string, keys *KeySet, chunkSize int) (map[Key]Record, *KeySet, error) {
	resolved := make(map[Key]Record, keys.Len())
	unresolved := NewKeySet()
	if keys.Len() == 0 {
		return resolved, unresolved, nil
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	for _, chunk := range keys.Chunk(chunkSize) {
		fragment, args, err := chunk.Predicate(1)
		if err != nil {
			return nil, nil, err
		}
		rows, err := src.Execute(ctx, fmt.Sprintf(queryTemplate, fragment), args...)
		if err != nil {
			return nil, nil, Queryf(err)
		}
		for _, row := range rows {
			k, ok := row.Key(keyColumn)
			if !ok {
				continue
			}
			rec := make(Record, len(row))
			for col, v := range row {
				if col == keyColumn || v == nil {
					continue
				}
				rec[col] = row.String(col)
			}
			resolved[k] = rec
		}
	}

	for _, k := range keys.Keys() {
		if _, ok := resolved[k]; !ok {
			unresolved.Add(k)
		}
	}
	return resolved, unresolved, nil
}
