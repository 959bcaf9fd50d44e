package sync

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"fitlog-sync-service/internal/logger"
	"fitlog-sync-service/internal/store"
)

// Pinger probes the remote for reachability. Implemented by *remote.Client.
type Pinger interface {
	Ping(ctx context.Context, path string) error
}

// Watcher is the external connectivity signal: it probes the remote on an
// interval, keeps the online flag in step with what the probe sees, and
// kicks off a drain on every offline-to-online transition.
type Watcher struct {
	store     store.Store
	engine    *Engine
	pinger    Pinger
	interval  time.Duration
	probePath string

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewWatcher(st store.Store, engine *Engine, pinger Pinger, interval time.Duration, probePath string) *Watcher {
	return &Watcher{
		store:     st,
		engine:    engine,
		pinger:    pinger,
		interval:  interval,
		probePath: probePath,
		stopCh:    make(chan struct{}),
	}
}

func (w *Watcher) Start() {
	logger.Log.Info("starting connectivity watcher", zap.Duration("interval", w.interval))
	w.wg.Add(1)
	go w.run()
}

func (w *Watcher) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	logger.Log.Info("stopped connectivity watcher")
}

func (w *Watcher) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.probe()
		}
	}
}

func (w *Watcher) probe() {
	ctx, cancel := context.WithTimeout(context.Background(), w.interval)
	defer cancel()

	reachable := w.pinger.Ping(ctx, w.probePath) == nil

	state, err := w.store.State(ctx)
	if err != nil {
		logger.Log.Error("connectivity probe could not read state", zap.Error(err))
		return
	}

	switch {
	case reachable && !state.Online:
		logger.Log.Info("connectivity restored")
		if err := w.store.SetOnline(ctx, true); err != nil {
			logger.Log.Error("failed to flip online", zap.Error(err))
			return
		}
		if _, err := w.engine.ProcessSyncQueue(ctx); err != nil {
			logger.Log.Error("drain after reconnect failed", zap.Error(err))
		}
	case !reachable && state.Online:
		logger.Log.Warn("connectivity lost")
		if err := w.store.SetOnline(ctx, false); err != nil {
			logger.Log.Error("failed to flip offline", zap.Error(err))
		}
	}
}
