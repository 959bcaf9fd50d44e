package store

import (
	"context"
	"encoding/json"
)

type Store interface {
	// Queue
	QueueAction(ctx context.Context, actionType ActionType, payload json.RawMessage) (string, error)
	DequeueAction(ctx context.Context, id string) error
	MarkActionFailed(ctx context.Context, id, message string) error
	ClearFailedActions(ctx context.Context) (int, error)
	PendingActions(ctx context.Context) ([]PendingAction, error)
	FailedActions(ctx context.Context) ([]PendingAction, error)
	PendingCount(ctx context.Context) (int, error)

	// Connectivity
	SetOnline(ctx context.Context, online bool) error
	SetSyncing(ctx context.Context, syncing bool) error
	State(ctx context.Context) (ConnectivityState, error)

	// General
	Close() error
}
