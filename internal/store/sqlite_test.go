package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempSQLiteStore(t *testing.T) (*SQLiteStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "queue.db")
	st, err := NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st, path
}

func TestSQLiteStore_FIFOOrder(t *testing.T) {
	st, _ := tempSQLiteStore(t)

	ids := queueN(t, st, 4)

	pending, err := st.PendingActions(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 4)
	for i, a := range pending {
		assert.Equal(t, ids[i], a.ID)
		assert.Equal(t, ActionLogWorkout, a.Type)
		assert.False(t, a.CreatedAt.IsZero())
	}
}

func TestSQLiteStore_RestartDurability(t *testing.T) {
	st, path := tempSQLiteStore(t)

	ids := queueN(t, st, 2)
	require.NoError(t, st.SetOnline(context.Background(), false))
	require.NoError(t, st.Close())

	st2, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer st2.Close()

	pending, err := st2.PendingActions(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, ids[0], pending[0].ID)
	assert.Equal(t, ids[1], pending[1].ID)

	state, err := st2.State(context.Background())
	require.NoError(t, err)
	assert.False(t, state.Online)
	assert.False(t, state.Syncing, "syncing flag resets on open")
}

func TestSQLiteStore_MarkFailedAndClear(t *testing.T) {
	st, _ := tempSQLiteStore(t)
	ids := queueN(t, st, 3)

	for i := 0; i < MaxRetries; i++ {
		require.NoError(t, st.MarkActionFailed(context.Background(), ids[2], "rejected"))
	}

	failed, err := st.FailedActions(context.Background())
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, ids[2], failed[0].ID)
	assert.Equal(t, "rejected", failed[0].LastError)

	cleared, err := st.ClearFailedActions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, cleared)

	count, err := st.PendingCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSQLiteStore_DequeueMissingIsNoop(t *testing.T) {
	st, _ := tempSQLiteStore(t)
	queueN(t, st, 1)

	require.NoError(t, st.DequeueAction(context.Background(), "no-such-id"))

	count, err := st.PendingCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSQLiteStore_PayloadRoundTrip(t *testing.T) {
	st, _ := tempSQLiteStore(t)

	payload := json.RawMessage(`{"calories":640,"protein":42,"meal_name":"lunch"}`)
	id, err := st.QueueAction(context.Background(), ActionLogCalories, payload)
	require.NoError(t, err)

	pending, err := st.PendingActions(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, id, pending[0].ID)
	assert.JSONEq(t, string(payload), string(pending[0].Payload))
}
