package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitlog-sync-service/internal/remote"
)

type fakePinger struct {
	reachable bool
}

func (p *fakePinger) Ping(ctx context.Context, path string) error {
	if p.reachable {
		return nil
	}
	return &remote.TransportError{Err: context.DeadlineExceeded}
}

func TestWatcher_ReconnectTriggersDrain(t *testing.T) {
	st := newTestStore(t)
	dispatcher := newStubDispatcher()
	engine := NewEngine(st, dispatcher)
	pinger := &fakePinger{reachable: true}
	w := NewWatcher(st, engine, pinger, time.Second, "/health")

	enqueue(t, st, 2)
	require.NoError(t, st.SetOnline(context.Background(), false))

	w.probe()

	state, err := st.State(context.Background())
	require.NoError(t, err)
	assert.True(t, state.Online)
	assert.Equal(t, 2, dispatcher.callCount(), "reconnect must drain the queue")

	count, err := st.PendingCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestWatcher_UnreachableFlipsOffline(t *testing.T) {
	st := newTestStore(t)
	dispatcher := newStubDispatcher()
	engine := NewEngine(st, dispatcher)
	pinger := &fakePinger{reachable: false}
	w := NewWatcher(st, engine, pinger, time.Second, "/health")

	w.probe()

	state, err := st.State(context.Background())
	require.NoError(t, err)
	assert.False(t, state.Online)
	assert.Equal(t, 0, dispatcher.callCount())
}

func TestWatcher_SteadyStateIsQuiet(t *testing.T) {
	st := newTestStore(t)
	dispatcher := newStubDispatcher()
	engine := NewEngine(st, dispatcher)
	pinger := &fakePinger{reachable: true}
	w := NewWatcher(st, engine, pinger, time.Second, "/health")

	enqueue(t, st, 1)

	// Already online and reachable: no transition, no drain.
	w.probe()
	assert.Equal(t, 0, dispatcher.callCount())
}

func TestWatcher_StartStop(t *testing.T) {
	st := newTestStore(t)
	engine := NewEngine(st, newStubDispatcher())
	w := NewWatcher(st, engine, &fakePinger{reachable: true}, 50*time.Millisecond, "/health")

	w.Start()
	w.Stop()
}
