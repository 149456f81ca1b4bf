// Package memory provides in-memory store implementations for tests and dev.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/meridian/absence-engine/absence"
	"github.com/meridian/absence-engine/ledger"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

// Store implements ledger.Store, absence.RequestStore, absence.TypeStore and
// absence.DirectoryStore with plain maps. Everything is copied on the way in
// and out so callers never share memory with the store.
type Store struct {
	mu sync.RWMutex

	balances map[ledger.Key]ledger.Entry

	requests     map[absence.RequestID]absence.LeaveRequest
	requestOrder []absence.RequestID

	types     map[absence.LeaveTypeID]absence.LeaveType
	typeOrder []absence.LeaveTypeID

	employees     map[absence.EmployeeID]absence.Employee
	employeeOrder []absence.EmployeeID

	teams     map[absence.TeamID]absence.Team
	teamOrder []absence.TeamID
}

func New() *Store {
	return &Store{
		balances:  make(map[ledger.Key]ledger.Entry),
		requests:  make(map[absence.RequestID]absence.LeaveRequest),
		types:     make(map[absence.LeaveTypeID]absence.LeaveType),
		employees: make(map[absence.EmployeeID]absence.Employee),
		teams:     make(map[absence.TeamID]absence.Team),
	}
}

// Interface checks
var (
	_ ledger.Store           = (*Store)(nil)
	_ absence.RequestStore   = (*Store)(nil)
	_ absence.TypeStore      = (*Store)(nil)
	_ absence.DirectoryStore = (*Store)(nil)
)

// =============================================================================
// BALANCES (ledger.Store)
// =============================================================================

func (s *Store) GetBalance(_ context.Context, key ledger.Key) (*ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.balances[key]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

func (s *Store) SaveBalance(_ context.Context, entry ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.balances[entry.Key] = entry
	return nil
}

func (s *Store) ListBalances(_ context.Context, employeeID string, year int) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []ledger.Entry
	for _, entry := range s.balances {
		if entry.Key.EmployeeID == employeeID && entry.Key.Year == year {
			result = append(result, entry)
		}
	}
	return result, nil
}

// =============================================================================
// REQUESTS (absence.RequestStore)
// =============================================================================

func (s *Store) InsertRequest(_ context.Context, r *absence.LeaveRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.requests[r.ID]; !exists {
		s.requestOrder = append(s.requestOrder, r.ID)
	}
	s.requests[r.ID] = copyRequest(*r)
	return nil
}

func (s *Store) UpdateRequest(_ context.Context, r *absence.LeaveRequest, from absence.Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.requests[r.ID]
	if !ok || current.Status != from {
		return false, nil
	}
	s.requests[r.ID] = copyRequest(*r)
	return true, nil
}

func (s *Store) GetRequest(_ context.Context, id absence.RequestID) (*absence.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.requests[id]
	if !ok {
		return nil, nil
	}
	out := copyRequest(r)
	return &out, nil
}

func (s *Store) ListRequestsByEmployee(_ context.Context, employeeID absence.EmployeeID, year int) ([]absence.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []absence.LeaveRequest{}
	for _, id := range s.requestOrder {
		r := s.requests[id]
		if r.EmployeeID == employeeID && r.Year() == year {
			result = append(result, copyRequest(r))
		}
	}
	return result, nil
}

func (s *Store) ListRequestsByEmployees(_ context.Context, employeeIDs []absence.EmployeeID, statuses ...absence.Status) ([]absence.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[absence.EmployeeID]bool, len(employeeIDs))
	for _, id := range employeeIDs {
		wanted[id] = true
	}

	result := []absence.LeaveRequest{}
	for _, id := range s.requestOrder {
		r := s.requests[id]
		if wanted[r.EmployeeID] && matchesStatus(r.Status, statuses) {
			result = append(result, copyRequest(r))
		}
	}
	return result, nil
}

func (s *Store) ListOpenRequestsOverlapping(_ context.Context, employeeID absence.EmployeeID, start, end time.Time) ([]absence.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []absence.LeaveRequest{}
	for _, id := range s.requestOrder {
		r := s.requests[id]
		open := r.Status == absence.StatusPending || r.Status == absence.StatusApproved
		if r.EmployeeID == employeeID && open && r.Overlaps(start, end) {
			result = append(result, copyRequest(r))
		}
	}
	return result, nil
}

func matchesStatus(status absence.Status, filter []absence.Status) bool {
	if len(filter) == 0 {
		return true
	}
	for _, s := range filter {
		if s == status {
			return true
		}
	}
	return false
}

func copyRequest(r absence.LeaveRequest) absence.LeaveRequest {
	if r.RejectionReason != nil {
		reason := *r.RejectionReason
		r.RejectionReason = &reason
	}
	if r.DecidedBy != nil {
		by := *r.DecidedBy
		r.DecidedBy = &by
	}
	if r.DecidedAt != nil {
		at := *r.DecidedAt
		r.DecidedAt = &at
	}
	return r
}

// =============================================================================
// LEAVE TYPES (absence.TypeStore)
// =============================================================================

func (s *Store) GetType(_ context.Context, id absence.LeaveTypeID) (*absence.LeaveType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.types[id]
	if !ok {
		return nil, nil
	}
	out := copyType(t)
	return &out, nil
}

func (s *Store) ListTypes(_ context.Context) ([]absence.LeaveType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]absence.LeaveType, 0, len(s.typeOrder))
	for _, id := range s.typeOrder {
		result = append(result, copyType(s.types[id]))
	}
	return result, nil
}

func (s *Store) SaveType(_ context.Context, t absence.LeaveType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.types[t.ID]; !exists {
		s.typeOrder = append(s.typeOrder, t.ID)
	}
	s.types[t.ID] = copyType(t)
	return nil
}

func copyType(t absence.LeaveType) absence.LeaveType {
	if t.AnnualCap != nil {
		cap := *t.AnnualCap
		t.AnnualCap = &cap
	}
	return t
}

// =============================================================================
// DIRECTORY (absence.DirectoryStore)
// =============================================================================

func (s *Store) GetEmployee(_ context.Context, id absence.EmployeeID) (*absence.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.employees[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (s *Store) ListEmployees(_ context.Context) ([]absence.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]absence.Employee, 0, len(s.employeeOrder))
	for _, id := range s.employeeOrder {
		result = append(result, s.employees[id])
	}
	return result, nil
}

func (s *Store) SaveEmployee(_ context.Context, e absence.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.employees[e.ID]; !exists {
		s.employeeOrder = append(s.employeeOrder, e.ID)
	}
	s.employees[e.ID] = e
	return nil
}

func (s *Store) GetTeam(_ context.Context, id absence.TeamID) (*absence.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.teams[id]
	if !ok {
		return nil, nil
	}
	out := copyTeam(t)
	return &out, nil
}

func (s *Store) ListTeams(_ context.Context) ([]absence.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]absence.Team, 0, len(s.teamOrder))
	for _, id := range s.teamOrder {
		result = append(result, copyTeam(s.teams[id]))
	}
	return result, nil
}

func (s *Store) SaveTeam(_ context.Context, t absence.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.teams[t.ID]; !exists {
		s.teamOrder = append(s.teamOrder, t.ID)
	}
	s.teams[t.ID] = copyTeam(t)
	return nil
}

func copyTeam(t absence.Team) absence.Team {
	t.Members = append([]absence.EmployeeID{}, t.Members...)
	return t
}

func (s *Store) IsManagerOf(_ context.Context, managerID, employeeID absence.EmployeeID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.teams {
		if t.ManagerID != managerID {
			continue
		}
		for _, m := range t.Members {
			if m == employeeID {
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *Store) Subordinates(_ context.Context, managerID absence.EmployeeID) ([]absence.EmployeeID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[absence.EmployeeID]bool)
	result := []absence.EmployeeID{}
	for _, id := range s.teamOrder {
		t := s.teams[id]
		if t.ManagerID != managerID {
			continue
		}
		for _, m := range t.Members {
			if !seen[m] {
				seen[m] = true
				result = append(result, m)
			}
		}
	}
	return result, nil
}
