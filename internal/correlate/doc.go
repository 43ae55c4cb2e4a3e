// Package correlate implements the cross-store correlation engine: key
// extraction from primary result sets, batched IN-predicate construction,
// cross-reference resolution against a directory or a second relational
// store, and order-preserving assembly of the denormalized output.
//
// All state is request-local. The package never writes to a store and never
// caches across invocations.
package correlate
