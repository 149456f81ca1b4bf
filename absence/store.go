/*
store.go - Persistence interfaces for requests and reference data

PURPOSE:
  Defines the seams between the domain logic and the database. The engine
  and the aggregator only ever see these interfaces; the sqlite and memory
  packages provide the implementations.

LOOKUP CONVENTION:
  Get-style methods return (nil, nil) when the record does not exist.
  The domain layer is responsible for turning that into a NotFoundError;
  stores never produce domain errors.

SEE ALSO:
  - store/sqlite: production implementation
  - store/memory: in-memory implementation for tests and dev
*/
package absence

import (
	"context"
	"time"
)

// =============================================================================
// REQUEST STORE
// =============================================================================

// RequestStore persists leave requests. Requests are inserted once and then
// updated in place on lifecycle transitions; history is carried by status
// and the decided-by fields, not by versioned rows.
type RequestStore interface {
	// InsertRequest persists a new request.
	InsertRequest(ctx context.Context, r *LeaveRequest) error

	// UpdateRequest replaces the stored request identified by r.ID, but
	// only while its stored status still equals from (compare-and-swap).
	// Returns false, without error, when the request is absent or another
	// transition committed first. The swap is what keeps a transition's
	// balance effect single-shot under concurrent calls.
	UpdateRequest(ctx context.Context, r *LeaveRequest, from Status) (bool, error)

	// GetRequest returns the request, or nil if absent.
	GetRequest(ctx context.Context, id RequestID) (*LeaveRequest, error)

	// ListRequestsByEmployee returns the employee's requests for a year
	// (year of the start date), in store order.
	ListRequestsByEmployee(ctx context.Context, employeeID EmployeeID, year int) ([]LeaveRequest, error)

	// ListRequestsByEmployees returns requests owned by any of the given
	// employees, optionally filtered to the given statuses
	// (no filter when empty).
	ListRequestsByEmployees(ctx context.Context, employeeIDs []EmployeeID, statuses ...Status) ([]LeaveRequest, error)

	// ListOpenRequestsOverlapping returns the employee's requests in
	// {Pending, Approved} whose date range intersects [start, end].
	ListOpenRequestsOverlapping(ctx context.Context, employeeID EmployeeID, start, end time.Time) ([]LeaveRequest, error)
}

// =============================================================================
// TYPE STORE
// =============================================================================

// TypeStore persists the leave-type catalog.
type TypeStore interface {
	// GetType returns the leave type, or nil if absent.
	GetType(ctx context.Context, id LeaveTypeID) (*LeaveType, error)

	// ListTypes returns all leave types, active or not, in store order.
	ListTypes(ctx context.Context) ([]LeaveType, error)

	// SaveType inserts or replaces a leave type.
	SaveType(ctx context.Context, t LeaveType) error
}

// =============================================================================
// DIRECTORY STORE
// =============================================================================

// DirectoryStore persists employees and teams and derives the reporting
// relation from team membership.
type DirectoryStore interface {
	Directory

	// GetEmployee returns the employee, or nil if absent.
	GetEmployee(ctx context.Context, id EmployeeID) (*Employee, error)

	// ListEmployees returns all employees in store order.
	ListEmployees(ctx context.Context) ([]Employee, error)

	// SaveEmployee inserts or replaces an employee.
	SaveEmployee(ctx context.Context, e Employee) error

	// GetTeam returns the team with its member set, or nil if absent.
	GetTeam(ctx context.Context, id TeamID) (*Team, error)

	// ListTeams returns all teams with their member sets.
	ListTeams(ctx context.Context) ([]Team, error)

	// SaveTeam inserts or replaces a team and its member set.
	SaveTeam(ctx context.Context, t Team) error
}
