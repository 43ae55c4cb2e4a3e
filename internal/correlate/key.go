package correlate

import (
	"fmt"
	"strconv"
)

// KeyKind distinguishes the two key spaces used across schema generations:
// numeric surrogate keys in the registry store and UUID-string identity ids
// in the records store and the directory.
type KeyKind int

const (
	KindNumeric KeyKind = iota
	KindTextual
)

// Key is an opaque identifier correlating a record between two stores.
// It is comparable and safe to use as a map key. Keys from different kinds
// never compare equal, so the two generations cannot be mixed silently.
type Key struct {
	kind KeyKind
	num  int64
	text string
}

// NumericKey wraps a 64-bit surrogate key.
func NumericKey(n int64) Key { return Key{kind: KindNumeric, num: n} }

// TextualKey wraps a UUID-string identity id.
func TextualKey(s string) Key { return Key{kind: KindTextual, text: s} }

func (k Key) Kind() KeyKind { return k.kind }

// Int64 returns the numeric value; zero for textual keys.
func (k Key) Int64() int64 { return k.num }

// Text returns the textual value; empty for numeric keys.
func (k Key) Text() string { return k.text }

// Arg returns the value to bind as a query parameter.
func (k Key) Arg() any {
	if k.kind == KindNumeric {
		return k.num
	}
	return k.text
}

func (k Key) String() string {
	if k.kind == KindNumeric {
		return strconv.FormatInt(k.num, 10)
	}
	return k.text
}

// KeyFromValue converts a scanned column value into a Key. Returns false for
// NULLs and for types that cannot identify a record.
func KeyFromValue(v any) (Key, bool) {
	switch t := v.(type) {
	case nil:
		return Key{}, false
	case int64:
		return NumericKey(t), true
	case int32:
		return NumericKey(int64(t)), true
	case int:
		return NumericKey(int64(t)), true
	case string:
		if t == "" {
			return Key{}, false
		}
		return TextualKey(t), true
	case fmt.Stringer:
		s := t.String()
		if s == "" {
			return Key{}, false
		}
		return TextualKey(s), true
	default:
		return Key{}, false
	}
}

// KeySet is a deduplicated collection of keys. Insertion order is retained
// so that predicate generation is deterministic, though callers must not
// rely on it semantically.
type KeySet struct {
	keys []Key
	seen map[Key]struct{}
}

// NewKeySet builds a set from the given keys, dropping duplicates.
func NewKeySet(keys ...Key) *KeySet {
	s := &KeySet{seen: make(map[Key]struct{}, len(keys))}
	for _, k := range keys {
		s.Add(k)
	}
	return s
}

// Add inserts a key, ignoring duplicates. Reports whether the key was new.
func (s *KeySet) Add(k Key) bool {
	if s.seen == nil {
		s.seen = make(map[Key]struct{})
	}
	if _, ok := s.seen[k]; ok {
		return false
	}
	s.seen[k] = struct{}{}
	s.keys = append(s.keys, k)
	return true
}

// Contains reports whether the key is in the set.
func (s *KeySet) Contains(k Key) bool {
	if s == nil || s.seen == nil {
		return false
	}
	_, ok := s.seen[k]
	return ok
}

// Len returns the number of distinct keys.
func (s *KeySet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Keys returns the distinct keys in insertion order. The returned slice is
// shared; callers must not mutate it.
func (s *KeySet) Keys() []Key {
	if s == nil {
		return nil
	}
	return s.keys
}

// Chunk splits the set into sets of at most size keys, preserving order.
// Backends cap the number of bound parameters per statement, so oversized
// sets must be queried in pieces and the results merged.
func (s *KeySet) Chunk(size int) []*KeySet {
	if s.Len() == 0 {
		return nil
	}
	if size <= 0 || s.Len() <= size {
		return []*KeySet{s}
	}
	var out []*KeySet
	for start := 0; start < len(s.keys); start += size {
		end := start + size
		if end > len(s.keys) {
			end = len(s.keys)
		}
		out = append(out, NewKeySet(s.keys[start:end]...))
	}
	return out
}
