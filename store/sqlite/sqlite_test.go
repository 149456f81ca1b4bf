package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian/absence-engine/absence"
	"github.com/meridian/absence-engine/ledger"
	"github.com/meridian/absence-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testRequest(id, employeeID string, start, end time.Time, status absence.Status) *absence.LeaveRequest {
	now := time.Date(2025, time.February, 1, 9, 30, 0, 0, time.UTC)
	return &absence.LeaveRequest{
		ID:         absence.RequestID(id),
		EmployeeID: absence.EmployeeID(employeeID),
		TypeID:     "vacation",
		StartDate:  start,
		EndDate:    end,
		Duration:   ledger.DaysOf(5),
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

var (
	mar3  = absence.Date(2025, time.March, 3)
	mar7  = absence.Date(2025, time.March, 7)
	mar10 = absence.Date(2025, time.March, 10)
	mar14 = absence.Date(2025, time.March, 14)
)

// =============================================================================
// BALANCE TESTS
// =============================================================================

func TestBalances_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	key := ledger.Key{EmployeeID: "alice", Year: 2025, TypeID: "vacation"}
	entry := ledger.Entry{Key: key, Entitlement: ledger.DaysFromFloat(22.5), Reserved: ledger.DaysFromFloat(2.5)}
	require.NoError(t, store.SaveBalance(ctx, entry))

	got, err := store.GetBalance(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Entitlement.Equal(ledger.DaysFromFloat(22.5)))
	assert.True(t, got.Reserved.Equal(ledger.DaysFromFloat(2.5)))
	assert.True(t, got.Available().Equal(ledger.DaysOf(20)))
}

func TestBalances_AbsentKey_NilNil(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetBalance(context.Background(), ledger.Key{EmployeeID: "nobody", Year: 2025, TypeID: "vacation"})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestBalances_UpsertOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	key := ledger.Key{EmployeeID: "alice", Year: 2025, TypeID: "vacation"}

	require.NoError(t, store.SaveBalance(ctx, ledger.Entry{Key: key, Entitlement: ledger.DaysOf(10), Reserved: ledger.Zero()}))
	require.NoError(t, store.SaveBalance(ctx, ledger.Entry{Key: key, Entitlement: ledger.DaysOf(20), Reserved: ledger.DaysOf(3)}))

	got, err := store.GetBalance(ctx, key)
	require.NoError(t, err)
	assert.True(t, got.Entitlement.Equal(ledger.DaysOf(20)))
	assert.True(t, got.Reserved.Equal(ledger.DaysOf(3)))
}

func TestListBalances_ScopedToEmployeeAndYear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, e := range []ledger.Entry{
		{Key: ledger.Key{EmployeeID: "alice", Year: 2025, TypeID: "vacation"}, Entitlement: ledger.DaysOf(10)},
		{Key: ledger.Key{EmployeeID: "alice", Year: 2025, TypeID: "personal"}, Entitlement: ledger.DaysOf(5)},
		{Key: ledger.Key{EmployeeID: "alice", Year: 2024, TypeID: "vacation"}, Entitlement: ledger.DaysOf(8)},
		{Key: ledger.Key{EmployeeID: "bruno", Year: 2025, TypeID: "vacation"}, Entitlement: ledger.DaysOf(10)},
	} {
		require.NoError(t, store.SaveBalance(ctx, e))
	}

	entries, err := store.ListBalances(ctx, "alice", 2025)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

// =============================================================================
// REQUEST TESTS
// =============================================================================

func TestRequests_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	r := testRequest("req-1", "alice", mar3, mar7, absence.StatusPending)
	r.Justification = "family visit"
	require.NoError(t, store.InsertRequest(ctx, r))

	got, err := store.GetRequest(ctx, "req-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, r.EmployeeID, got.EmployeeID)
	assert.True(t, got.StartDate.Equal(mar3))
	assert.True(t, got.EndDate.Equal(mar7))
	assert.True(t, got.Duration.Equal(ledger.DaysOf(5)))
	assert.Equal(t, absence.StatusPending, got.Status)
	assert.Equal(t, "family visit", got.Justification)
	assert.Nil(t, got.RejectionReason)
	assert.Nil(t, got.DecidedBy)
	assert.True(t, got.CreatedAt.Equal(r.CreatedAt))
}

func TestRequests_UpdatePersistsDecision(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	r := testRequest("req-1", "alice", mar3, mar7, absence.StatusPending)
	require.NoError(t, store.InsertRequest(ctx, r))

	reason := "blackout week"
	decidedBy := absence.EmployeeID("carla")
	decidedAt := time.Date(2025, time.February, 2, 10, 0, 0, 0, time.UTC)
	r.Status = absence.StatusRejected
	r.RejectionReason = &reason
	r.DecidedBy = &decidedBy
	r.DecidedAt = &decidedAt
	r.UpdatedAt = decidedAt
	updated, err := store.UpdateRequest(ctx, r, absence.StatusPending)
	require.NoError(t, err)
	assert.True(t, updated)

	got, err := store.GetRequest(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, absence.StatusRejected, got.Status)
	require.NotNil(t, got.RejectionReason)
	assert.Equal(t, "blackout week", *got.RejectionReason)
	require.NotNil(t, got.DecidedBy)
	assert.Equal(t, decidedBy, *got.DecidedBy)
	require.NotNil(t, got.DecidedAt)
	assert.True(t, got.DecidedAt.Equal(decidedAt))
}

func TestRequests_UpdateMissing_NoMatch(t *testing.T) {
	store := newTestStore(t)

	r := testRequest("ghost", "alice", mar3, mar7, absence.StatusPending)
	updated, err := store.UpdateRequest(context.Background(), r, absence.StatusPending)
	require.NoError(t, err)
	assert.False(t, updated)
}

func TestRequests_UpdateStaleStatus_NoMatch(t *testing.T) {
	// GIVEN: A request already moved to Cancelled
	// WHEN: A swap still expecting Approved runs
	// THEN: No row matches and the stored request is untouched

	store := newTestStore(t)
	ctx := context.Background()

	r := testRequest("req-1", "alice", mar3, mar7, absence.StatusApproved)
	require.NoError(t, store.InsertRequest(ctx, r))

	r.Status = absence.StatusCancelled
	updated, err := store.UpdateRequest(ctx, r, absence.StatusApproved)
	require.NoError(t, err)
	require.True(t, updated)

	late := *r
	late.Status = absence.StatusCancelled
	updated, err = store.UpdateRequest(ctx, &late, absence.StatusApproved)
	require.NoError(t, err)
	assert.False(t, updated)

	got, err := store.GetRequest(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, absence.StatusCancelled, got.Status)
}

func TestRequests_GetMissing_NilNil(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetRequest(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListRequestsByEmployee_FiltersByYear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertRequest(ctx, testRequest("req-1", "alice", mar3, mar7, absence.StatusPending)))
	require.NoError(t, store.InsertRequest(ctx,
		testRequest("req-2", "alice", absence.Date(2024, time.June, 3), absence.Date(2024, time.June, 7), absence.StatusApproved)))
	require.NoError(t, store.InsertRequest(ctx, testRequest("req-3", "bruno", mar3, mar7, absence.StatusPending)))

	got, err := store.ListRequestsByEmployee(ctx, "alice", 2025)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, absence.RequestID("req-1"), got[0].ID)
}

func TestListRequestsByEmployees_StatusFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertRequest(ctx, testRequest("req-1", "alice", mar3, mar7, absence.StatusPending)))
	require.NoError(t, store.InsertRequest(ctx, testRequest("req-2", "bruno", mar10, mar14, absence.StatusRejected)))
	require.NoError(t, store.InsertRequest(ctx, testRequest("req-3", "carla", mar3, mar7, absence.StatusPending)))

	got, err := store.ListRequestsByEmployees(ctx,
		[]absence.EmployeeID{"alice", "bruno"}, absence.StatusPending)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, absence.RequestID("req-1"), got[0].ID)

	all, err := store.ListRequestsByEmployees(ctx, []absence.EmployeeID{"alice", "bruno"})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	none, err := store.ListRequestsByEmployees(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListOpenRequestsOverlapping(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertRequest(ctx, testRequest("open", "alice", mar3, mar7, absence.StatusPending)))
	require.NoError(t, store.InsertRequest(ctx, testRequest("closed", "alice", mar3, mar7, absence.StatusCancelled)))
	require.NoError(t, store.InsertRequest(ctx, testRequest("later", "alice", mar10, mar14, absence.StatusApproved)))

	// Range touching only the first week
	got, err := store.ListOpenRequestsOverlapping(ctx, "alice",
		absence.Date(2025, time.March, 5), absence.Date(2025, time.March, 8))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, absence.RequestID("open"), got[0].ID)

	// Boundary day shared with the approved request
	got, err = store.ListOpenRequestsOverlapping(ctx, "alice", mar14, mar14)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, absence.RequestID("later"), got[0].ID)
}

// =============================================================================
// LEAVE TYPE TESTS
// =============================================================================

func TestTypes_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cap := ledger.DaysOf(5)
	lt := absence.LeaveType{
		ID: "personal", Name: "Personal Day", Description: "Short personal absences",
		ColorHex: "#36B37E", ConsumesBalance: true, AnnualCap: &cap, Active: true,
	}
	require.NoError(t, store.SaveType(ctx, lt))

	got, err := store.GetType(ctx, "personal")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, lt.Name, got.Name)
	assert.Equal(t, lt.ColorHex, got.ColorHex)
	assert.True(t, got.ConsumesBalance)
	require.NotNil(t, got.AnnualCap)
	assert.True(t, got.AnnualCap.Equal(cap))

	// Upsert flips active off, cap to nil
	lt.Active = false
	lt.AnnualCap = nil
	require.NoError(t, store.SaveType(ctx, lt))

	got, err = store.GetType(ctx, "personal")
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.Nil(t, got.AnnualCap)

	all, err := store.ListTypes(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

// =============================================================================
// DIRECTORY TESTS
// =============================================================================

func TestDirectory_EmployeesAndTeams(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	for _, e := range []absence.Employee{
		{ID: "carla", Name: "Carla", Role: absence.RoleManager, CreatedAt: now},
		{ID: "alice", Name: "Alice", Email: "alice@meridian.dev", Role: absence.RoleEmployee, CreatedAt: now},
		{ID: "bruno", Name: "Bruno", Role: absence.RoleEmployee, CreatedAt: now},
	} {
		require.NoError(t, store.SaveEmployee(ctx, e))
	}

	got, err := store.GetEmployee(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice@meridian.dev", got.Email)
	assert.Equal(t, absence.RoleEmployee, got.Role)

	missing, err := store.GetEmployee(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, missing)

	all, err := store.ListEmployees(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, store.SaveTeam(ctx, absence.Team{
		ID: "eng", Name: "Engineering", ManagerID: "carla",
		Members: []absence.EmployeeID{"alice", "bruno"},
	}))

	team, err := store.GetTeam(ctx, "eng")
	require.NoError(t, err)
	require.NotNil(t, team)
	assert.Equal(t, absence.EmployeeID("carla"), team.ManagerID)
	assert.ElementsMatch(t, []absence.EmployeeID{"alice", "bruno"}, team.Members)
}

func TestDirectory_SaveTeamReplacesMembers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	team := absence.Team{ID: "eng", Name: "Engineering", ManagerID: "carla",
		Members: []absence.EmployeeID{"alice", "bruno"}}
	require.NoError(t, store.SaveTeam(ctx, team))

	team.Members = []absence.EmployeeID{"bruno"}
	require.NoError(t, store.SaveTeam(ctx, team))

	got, err := store.GetTeam(ctx, "eng")
	require.NoError(t, err)
	assert.Equal(t, []absence.EmployeeID{"bruno"}, got.Members)
}

func TestDirectory_ReportingRelation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveTeam(ctx, absence.Team{
		ID: "eng", Name: "Engineering", ManagerID: "carla",
		Members: []absence.EmployeeID{"alice", "bruno"},
	}))
	require.NoError(t, store.SaveTeam(ctx, absence.Team{
		ID: "ops", Name: "Operations", ManagerID: "carla",
		Members: []absence.EmployeeID{"bruno", "elena"},
	}))

	manages, err := store.IsManagerOf(ctx, "carla", "alice")
	require.NoError(t, err)
	assert.True(t, manages)

	manages, err = store.IsManagerOf(ctx, "diego", "alice")
	require.NoError(t, err)
	assert.False(t, manages)

	// Bruno is in two of Carla's teams but appears once
	subs, err := store.Subordinates(ctx, "carla")
	require.NoError(t, err)
	assert.ElementsMatch(t, []absence.EmployeeID{"alice", "bruno", "elena"}, subs)

	subs, err = store.Subordinates(ctx, "diego")
	require.NoError(t, err)
	assert.Empty(t, subs)
}
