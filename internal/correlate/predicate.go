package correlate

import (
	"fmt"
	"strings"
)

// DefaultChunkSize bounds the number of bound parameters in a single
// IN-predicate. Postgres allows far more, but statements with thousands of
// placeholders stop being cheap to parse and plan.
const DefaultChunkSize = 1000

// Predicate renders the key set as a positional "IN ($n,$n+1,...)" fragment
// starting at startIdx, plus the bound arguments in matching order. The
// placeholder count always equals len(args). Returns ErrEmptyKeySet for an
// empty set: there is no valid SQL rendering of IN () and the caller must
// short-circuit instead.
func (s *KeySet) Predicate(startIdx int) (string, []any, error) {
	if s.Len() == 0 {
		return "", nil, ErrEmptyKeySet
	}
	if startIdx < 1 {
		startIdx = 1
	}
	placeholders := make([]string, s.Len())
	args := make([]any, s.Len())
	for i, k := range s.keys {
		placeholders[i] = fmt.Sprintf("$%d", startIdx+i)
		args[i] = k.Arg()
	}
	return strings.Join(placeholders, ","), args, nil
}
