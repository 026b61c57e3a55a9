/*
errors.go - Centralized error types for the engine

PURPOSE:
  All error values of the core in one place. Ordinary "not found"
  conditions are NOT errors in this package: lookups on unknown ids return
  zero values and mutations on unknown ids are silent no-ops, because
  callers may race a deletion with a pending UI action.

ERROR CATEGORIES:
  1. Orphan children - split children whose mother cannot be resolved
  2. Declined confirmations - destructive actions the user refused

USAGE:
    if errors.Is(err, engine.ErrConfirmationDeclined) {
        // state is untouched, nothing to roll back
    }
*/
package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrConfirmationDeclined is returned when a confirmation-gated
	// destructive action is refused. No state was modified.
	ErrConfirmationDeclined = errors.New("confirmation declined")
)

// OrphanError reports split children whose mother is missing from the
// store (data corruption or an out-of-order load). Orphans are surfaced to
// the caller rather than auto-deleted; removal is a separate, confirmed
// operation.
type OrphanError struct {
	Children []int
}

func (e *OrphanError) Error() string {
	return fmt.Sprintf("%d scheduled children did not find their mother", len(e.Children))
}
