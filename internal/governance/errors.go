package governance

import "errors"

// Sentinel errors for registry and gate operations.
var (
	// ErrGovernance marks a malformed registry, an undefined status, or an
	// illegal status change.
	ErrGovernance = errors.New("governance: invalid registry")

	// ErrNotFound is returned when no record has the requested id.
	ErrNotFound = errors.New("governance: record not found")
)
