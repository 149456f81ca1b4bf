/*
Package absence implements the leave-request lifecycle.

PURPOSE:
  This package contains the domain types and the state machine that governs
  a leave request from creation through approval, rejection or cancellation,
  together with the catalog of leave types and the manager-facing team
  projections. Balance bookkeeping is delegated to the ledger package.

KEY CONCEPTS IN THIS FILE (types.go):
  - LeaveType:    reference data describing an absence category
  - LeaveRequest: the request entity and its lifecycle status
  - Actor:        the authenticated caller, passed explicitly into every
                  operation - there is no ambient session state
  - Directory:    the employee-to-manager reporting relation

LIFECYCLE:
  Pending is the only open state. Approved can still be cancelled by the
  owner or their manager; Rejected and Cancelled are closed for good.

      create            approve
   ──────────▶ Pending ──────────▶ Approved
                  │  \                 │
           reject │   \ cancel         │ cancel
                  ▼    ▼               ▼
              Rejected Cancelled   Cancelled

SEE ALSO:
  - engine.go: the transitions and their balance side effects
  - catalog.go: leave-type lookup
  - team.go: manager projections
*/
package absence

import (
	"context"
	"time"

	"github.com/meridian/absence-engine/ledger"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type LeaveTypeID string
type RequestID string
type TeamID string

// =============================================================================
// LEAVE TYPE - Read-mostly reference data
// =============================================================================

// LeaveType describes one absence category. Immutable once referenced by a
// request; administrative updates create no retroactive effect on existing
// requests because requests store their computed duration.
type LeaveType struct {
	ID              LeaveTypeID
	Name            string
	Description     string
	ColorHex        string // display hint for clients
	ConsumesBalance bool   // false for e.g. jury duty, bereavement
	AnnualCap       *ledger.Days
	Active          bool
}

// =============================================================================
// LEAVE REQUEST
// =============================================================================

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition is permitted from s,
// Approved→Cancelled being the sole exception path back out.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusCancelled
}

// LeaveRequest is owned by the requesting employee but mutated by both the
// employee (create/cancel) and their manager (approve/reject). Transition
// rights are checked per action, not per record.
type LeaveRequest struct {
	ID         RequestID
	EmployeeID EmployeeID
	TypeID     LeaveTypeID

	StartDate time.Time // day granularity, UTC
	EndDate   time.Time
	Duration  ledger.Days // business days, computed at creation

	Status        Status
	Justification string

	// Set on terminal manager action
	RejectionReason *string
	DecidedBy       *EmployeeID
	DecidedAt       *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Year returns the reference year the request counts against:
// the year of its start date.
func (r *LeaveRequest) Year() int {
	return r.StartDate.Year()
}

// BalanceKey returns the ledger key this request reserves against.
func (r *LeaveRequest) BalanceKey() ledger.Key {
	return ledger.Key{
		EmployeeID: string(r.EmployeeID),
		Year:       r.Year(),
		TypeID:     string(r.TypeID),
	}
}

// Overlaps reports whether the request's date range intersects [start, end].
func (r *LeaveRequest) Overlaps(start, end time.Time) bool {
	return !r.StartDate.After(end) && !r.EndDate.Before(start)
}

// =============================================================================
// IDENTITY - Explicit actor context
// =============================================================================

type Role string

const (
	RoleEmployee Role = "EMPLOYEE"
	RoleManager  Role = "MANAGER"
)

// Actor is the authenticated caller of an operation. It is supplied by the
// surrounding session layer and passed as an argument into every lifecycle
// and aggregator call; the engine never reads identity from ambient state.
type Actor struct {
	ID   EmployeeID
	Role Role
}

// Employee is a directory record. Identity issuance (login, registration)
// is outside this service; employees are provisioned administratively.
type Employee struct {
	ID        EmployeeID
	Name      string
	Email     string
	Role      Role
	CreatedAt time.Time
}

// Team groups employees under a manager. An employee may belong to several
// teams; M is the manager of E if any team managed by M contains E.
type Team struct {
	ID        TeamID
	Name      string
	ManagerID EmployeeID
	Members   []EmployeeID
}

// =============================================================================
// DIRECTORY - Reporting relation
// =============================================================================

// Directory supplies the employee-to-manager reporting relation consumed by
// authorization checks and by the team aggregator.
type Directory interface {
	// IsManagerOf reports whether managerID directly manages employeeID.
	IsManagerOf(ctx context.Context, managerID, employeeID EmployeeID) (bool, error)

	// Subordinates returns the employees reporting to managerID,
	// without duplicates.
	Subordinates(ctx context.Context, managerID EmployeeID) ([]EmployeeID, error)
}
