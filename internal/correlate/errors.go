package correlate

import (
	"errors"
	"fmt"
)

// ErrEmptyKeySet signals that no predicate can be built because the key set
// is empty. Callers must short-circuit to an empty result instead of issuing
// a query with an empty IN () clause.
var ErrEmptyKeySet = errors.New("empty key set")

// ValidationError reports malformed pipeline input. No store is contacted
// once validation fails.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validationf builds a ValidationError.
func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// QueryError wraps a tabular-source failure. The core never retries; the
// error aborts the pipeline and surfaces to the caller.
type QueryError struct {
	Cause error
}

func (e *QueryError) Error() string { return "query failed: " + e.Cause.Error() }
func (e *QueryError) Unwrap() error { return e.Cause }

// Queryf wraps err as a QueryError unless it already is one.
func Queryf(err error) error {
	if err == nil {
		return nil
	}
	var qe *QueryError
	if errors.As(err, &qe) {
		return err
	}
	return &QueryError{Cause: err}
}
