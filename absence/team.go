/*
team.go - Manager-facing projections

PURPOSE:
  Builds the pending queue and the team history a manager works from. Both
  are pure projections recomputed from the authoritative request records on
  every call - the aggregator owns no state, so a request leaves the pending
  projection in the same commit that moves it out of Pending. Presentation
  caches fed by these views may lag until refreshed; the views themselves
  cannot.

SCOPING:
  Results cover exactly the manager's subordinates as reported by the
  Directory. Callers gate access (manager role) before asking; the
  aggregator itself only scopes.
*/
package absence

import (
	"context"
	"fmt"
)

// Aggregator derives team views from the authoritative request records.
type Aggregator struct {
	requests  RequestStore
	directory Directory
}

func NewAggregator(requests RequestStore, directory Directory) *Aggregator {
	return &Aggregator{requests: requests, directory: directory}
}

// PendingForManager returns the pending requests of managerID's subordinates.
func (a *Aggregator) PendingForManager(ctx context.Context, managerID EmployeeID) ([]LeaveRequest, error) {
	return a.forManager(ctx, managerID, StatusPending)
}

// HistoryForManager returns all requests of managerID's subordinates,
// across every status.
func (a *Aggregator) HistoryForManager(ctx context.Context, managerID EmployeeID) ([]LeaveRequest, error) {
	return a.forManager(ctx, managerID)
}

func (a *Aggregator) forManager(ctx context.Context, managerID EmployeeID, statuses ...Status) ([]LeaveRequest, error) {
	subordinates, err := a.directory.Subordinates(ctx, managerID)
	if err != nil {
		return nil, fmt.Errorf("resolve subordinates of %s: %w", managerID, err)
	}
	if len(subordinates) == 0 {
		return []LeaveRequest{}, nil
	}

	requests, err := a.requests.ListRequestsByEmployees(ctx, subordinates, statuses...)
	if err != nil {
		return nil, fmt.Errorf("list team requests: %w", err)
	}
	return requests, nil
}
