package absence_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian/absence-engine/absence"
)

func newAggregatorFixture(t *testing.T) (*fixture, *absence.Aggregator) {
	f := newFixture(t)
	return f, absence.NewAggregator(f.store, f.store)
}

func TestPendingForManager_OnlySubordinatesOnlyPending(t *testing.T) {
	// GIVEN: Alice and Bruno report to Carla; Alice has one pending and one
	//        rejected request, Bruno has one pending
	// WHEN: Carla asks for her pending queue
	// THEN: Exactly the two pending requests come back

	f, agg := newAggregatorFixture(t)
	ctx := context.Background()

	pending1 := f.submit(t, f.alice, "vacation", mon3, fri7)
	rejected := f.submit(t, f.alice, "vacation", mon17, fri21)
	_, err := f.engine.Reject(ctx, f.carla, rejected.ID, "coverage gap")
	require.NoError(t, err)
	pending2 := f.submit(t, f.bruno, "vacation", mon10, wed12)

	queue, err := agg.PendingForManager(ctx, "carla")
	require.NoError(t, err)

	require.Len(t, queue, 2)
	ids := []absence.RequestID{queue[0].ID, queue[1].ID}
	assert.Contains(t, ids, pending1.ID)
	assert.Contains(t, ids, pending2.ID)
}

func TestPendingForManager_NoSubordinates_Empty(t *testing.T) {
	// GIVEN: Diego manages no team
	// WHEN: He asks for his pending queue
	// THEN: An empty, non-nil slice

	f, agg := newAggregatorFixture(t)
	f.submit(t, f.alice, "vacation", mon3, fri7)

	queue, err := agg.PendingForManager(context.Background(), "diego")
	require.NoError(t, err)
	assert.NotNil(t, queue)
	assert.Empty(t, queue)
}

func TestHistoryForManager_AllStatuses(t *testing.T) {
	// GIVEN: A subordinate with pending, rejected and cancelled requests
	// WHEN: Carla asks for team history
	// THEN: Every status appears

	f, agg := newAggregatorFixture(t)
	ctx := context.Background()

	f.submit(t, f.alice, "vacation", mon3, fri7)
	rejected := f.submit(t, f.alice, "vacation", mon10, wed12)
	_, err := f.engine.Reject(ctx, f.carla, rejected.ID, "coverage gap")
	require.NoError(t, err)
	cancelled := f.submit(t, f.bruno, "vacation", mon17, fri21)
	_, err = f.engine.Cancel(ctx, f.bruno, cancelled.ID)
	require.NoError(t, err)

	history, err := agg.HistoryForManager(ctx, "carla")
	require.NoError(t, err)

	require.Len(t, history, 3)
	statuses := map[absence.Status]bool{}
	for _, r := range history {
		statuses[r.Status] = true
	}
	assert.True(t, statuses[absence.StatusPending])
	assert.True(t, statuses[absence.StatusRejected])
	assert.True(t, statuses[absence.StatusCancelled])
}

func TestPendingLeavesQueueWithDecision(t *testing.T) {
	// GIVEN: A pending request in Carla's queue
	// WHEN: She approves it
	// THEN: The next read of the queue no longer contains it

	f, agg := newAggregatorFixture(t)
	ctx := context.Background()
	r := f.submit(t, f.alice, "vacation", mon3, fri7)

	queue, err := agg.PendingForManager(ctx, "carla")
	require.NoError(t, err)
	require.Len(t, queue, 1)

	_, err = f.engine.Approve(ctx, f.carla, r.ID)
	require.NoError(t, err)

	queue, err = agg.PendingForManager(ctx, "carla")
	require.NoError(t, err)
	assert.Empty(t, queue)
}
