/*
errors.go - Domain error taxonomy

PURPOSE:
  The closed set of error kinds the engine can return. Callers dispatch on
  kind with errors.Is/As and the Kind helper; error message text is for
  humans only and never parsed. Balance errors (insufficient balance,
  missing entry, invariant violation) originate in the ledger package and
  pass through the engine unwrapped.

TAXONOMY:
  NotFound             referenced type/request/balance entry absent
  InsufficientBalance  reservation would exceed entitlement   (ledger)
  InvalidTransition    action not legal from current status
  Forbidden            actor lacks role/ownership for the action
  InvariantViolation   internal consistency fault             (ledger)
  Validation           malformed or conflicting input (dates, overlap,
                       inactive type)

SEE ALSO:
  - ledger/errors.go: balance error definitions
  - api/handlers.go: mapping of kinds to HTTP statuses
*/
package absence

import (
	"errors"
	"fmt"
	"time"

	"github.com/meridian/absence-engine/ledger"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced leave type or request
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when an action is not legal from
	// the request's current status.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrForbidden is returned when the actor lacks the role or ownership
	// required for the action.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation is returned for malformed or conflicting input:
	// bad date ranges, past start dates, overlapping requests,
	// inactive leave types.
	ErrValidation = errors.New("validation failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError identifies what was missing.
type NotFoundError struct {
	Kind string // "leave_type", "request", "employee"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InvalidTransitionError reports an action attempted from a closed state.
type InvalidTransitionError struct {
	RequestID RequestID
	From      Status
	Action    string // "approve", "reject", "cancel"
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s request %s in status %s", e.Action, e.RequestID, e.From)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// ForbiddenError reports an authorization failure.
type ForbiddenError struct {
	ActorID EmployeeID
	Action  string
	Reason  string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("actor %s may not %s: %s", e.ActorID, e.Action, e.Reason)
}

func (e *ForbiddenError) Unwrap() error { return ErrForbidden }

// ValidationError reports rejected input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// OverlapError reports a creation conflicting with an existing request.
type OverlapError struct {
	ExistingID RequestID
	Start, End time.Time
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("period %s to %s overlaps request %s",
		e.Start.Format("2006-01-02"), e.End.Format("2006-01-02"), e.ExistingID)
}

func (e *OverlapError) Unwrap() error { return ErrValidation }

// =============================================================================
// ERROR KIND - Closed union for transport layers
// =============================================================================

// ErrorKind is the wire-level error code. The set is closed: transports
// carry the kind end-to-end instead of inferring failure class from
// payload shape.
type ErrorKind string

const (
	KindNotFound            ErrorKind = "not_found"
	KindInsufficientBalance ErrorKind = "insufficient_balance"
	KindInvalidTransition   ErrorKind = "invalid_transition"
	KindForbidden           ErrorKind = "forbidden"
	KindInvariantViolation  ErrorKind = "invariant_violation"
	KindValidation          ErrorKind = "validation"
	KindInternal            ErrorKind = "internal"
)

// Kind classifies err into the closed union. Unknown errors are internal.
func Kind(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ledger.ErrBalanceNotFound):
		return KindNotFound
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return KindInsufficientBalance
	case errors.Is(err, ErrInvalidTransition):
		return KindInvalidTransition
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ledger.ErrInvariantViolation):
		return KindInvariantViolation
	case errors.Is(err, ErrValidation):
		return KindValidation
	default:
		return KindInternal
	}
}

// IsClientError reports whether err is an ordinary user-facing outcome
// rather than a fault in the service.
func IsClientError(err error) bool {
	switch Kind(err) {
	case KindNotFound, KindInsufficientBalance, KindInvalidTransition,
		KindForbidden, KindValidation:
		return true
	}
	return false
}
