/*
errors.go - Centralized error types for the ledger

PURPOSE:
  All balance-related errors in one place. The lifecycle engine and the API
  layer match on the sentinels with errors.Is and extract detail from the
  structured types with errors.As; they never inspect message text.

ERROR CATEGORIES:
  1. Missing balance - entry never provisioned for the key
  2. Insufficient balance - reservation would exceed entitlement
  3. Invariant violation - release exceeding reserved; a bug, not user error

SEE ALSO:
  - ledger.go: where these are produced
  - absence/errors.go: the domain-level taxonomy these feed into
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrBalanceNotFound is returned when no entry exists for a key.
	// Entries must be provisioned before first use.
	ErrBalanceNotFound = errors.New("balance entry not found")

	// ErrInsufficientBalance is returned when a reservation would exceed
	// the available balance. An ordinary user-facing outcome.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvariantViolation is returned when the ledger detects internal
	// inconsistency, e.g. a release exceeding the reserved amount. This
	// indicates a bug in a caller, never a user error.
	ErrInvariantViolation = errors.New("ledger invariant violation")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// BalanceNotFoundError identifies which key was missing.
type BalanceNotFoundError struct {
	Key Key
}

func (e *BalanceNotFoundError) Error() string {
	return fmt.Sprintf("no balance entry for %s", e.Key)
}

func (e *BalanceNotFoundError) Unwrap() error { return ErrBalanceNotFound }

// InsufficientBalanceError reports how short the balance fell.
type InsufficientBalanceError struct {
	Key       Key
	Available Days
	Requested Days
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for %s: available %s, requested %s",
		e.Key, e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// Shortfall returns how many days were missing.
func (e *InsufficientBalanceError) Shortfall() Days {
	return e.Requested.Sub(e.Available)
}

// InvariantViolationError reports an attempted over-release.
type InvariantViolationError struct {
	Key      Key
	Reserved Days
	Release  Days
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("release of %s exceeds reserved %s for %s",
		e.Release, e.Reserved, e.Key)
}

func (e *InvariantViolationError) Unwrap() error { return ErrInvariantViolation }
