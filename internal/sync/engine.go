package sync

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"fitlog-sync-service/internal/logger"
	"fitlog-sync-service/internal/remote"
	"fitlog-sync-service/internal/store"
)

// Engine drains the pending queue against the remote API, strictly FIFO,
// at most one drain at a time. It never schedules itself; drains are
// triggered externally (connectivity watcher, scheduler, control API).
type Engine struct {
	store  store.Store
	remote Dispatcher

	// mu makes the syncing-guard check-and-set atomic when triggers fire
	// back-to-back.
	mu sync.Mutex
}

func NewEngine(st store.Store, remote Dispatcher) *Engine {
	return &Engine{
		store:  st,
		remote: remote,
	}
}

// ProcessSyncQueue runs one drain cycle. If a drain is already running or
// the device is offline it returns immediately with the current pending
// count and no side effects.
//
// Per-action policy: success and conflict (already applied server-side)
// dequeue the action; unauthorized halts the whole cycle; a transport
// failure flips the device offline and halts; anything else marks the
// action failed and moves on. Actions at the retry ceiling are skipped,
// counted as failed, and purged after the loop.
func (e *Engine) ProcessSyncQueue(ctx context.Context) (SyncResult, error) {
	e.mu.Lock()
	state, err := e.store.State(ctx)
	if err != nil {
		e.mu.Unlock()
		return SyncResult{}, err
	}
	if state.Syncing || !state.Online {
		remaining, err := e.store.PendingCount(ctx)
		e.mu.Unlock()
		return SyncResult{Remaining: remaining}, err
	}
	if err := e.store.SetSyncing(ctx, true); err != nil {
		e.mu.Unlock()
		return SyncResult{}, err
	}
	e.mu.Unlock()

	defer func() {
		// The guard must clear on every exit path, even when ctx is done.
		if err := e.store.SetSyncing(context.WithoutCancel(ctx), false); err != nil {
			logger.Log.Error("failed to clear syncing flag", zap.Error(err))
		}
	}()

	// Snapshot: actions queued during this cycle wait for the next one.
	pending, err := e.store.PendingActions(ctx)
	if err != nil {
		return SyncResult{}, err
	}

	var res SyncResult

loop:
	for _, action := range pending {
		if action.Exhausted() {
			// Logically dead; physically removed by the cleanup below.
			res.Failed++
			continue
		}

		_, err := e.remote.Execute(ctx, action)
		switch {
		case err == nil:
			e.dequeue(ctx, action)
			res.Synced++

		case remote.IsConflict(err):
			// Already applied server-side; a successful no-op.
			logger.Log.Info("action already applied remotely",
				zap.String("id", action.ID),
				zap.String("type", string(action.Type)),
			)
			e.dequeue(ctx, action)
			res.Synced++

		case remote.IsUnauthorized(err):
			// Hard halt. Everything still queued waits for re-auth.
			logger.Log.Warn("sync halted: unauthorized",
				zap.String("id", action.ID),
				zap.Error(err),
			)
			break loop

		case remote.IsTransport(err):
			logger.Log.Warn("sync halted: remote unreachable",
				zap.String("id", action.ID),
				zap.Error(err),
			)
			if serr := e.store.SetOnline(ctx, false); serr != nil {
				logger.Log.Error("failed to flip offline", zap.Error(serr))
			}
			break loop

		default:
			logger.Log.Warn("action rejected",
				zap.String("id", action.ID),
				zap.String("type", string(action.Type)),
				zap.Int("retry_count", action.RetryCount+1),
				zap.Error(err),
			)
			if serr := e.store.MarkActionFailed(ctx, action.ID, err.Error()); serr != nil {
				logger.Log.Error("failed to record action failure", zap.Error(serr))
			}
			res.Failed++
		}
	}

	if cleared, err := e.store.ClearFailedActions(ctx); err != nil {
		logger.Log.Error("failed to purge dead actions", zap.Error(err))
	} else if cleared > 0 {
		logger.Log.Warn("purged actions past retry ceiling", zap.Int("count", cleared))
	}

	res.Remaining, err = e.store.PendingCount(ctx)
	if err != nil {
		return res, err
	}

	logger.Log.Info("drain cycle complete",
		zap.Int("synced", res.Synced),
		zap.Int("failed", res.Failed),
		zap.Int("remaining", res.Remaining),
	)
	return res, nil
}

func (e *Engine) dequeue(ctx context.Context, action store.PendingAction) {
	if err := e.store.DequeueAction(ctx, action.ID); err != nil {
		logger.Log.Error("failed to dequeue action",
			zap.String("id", action.ID),
			zap.Error(err),
		)
	}
}
