package sync

import (
	"context"
	"encoding/json"
	"fmt"

	"fitlog-sync-service/internal/store"
)

// Dispatcher delivers a single action to the remote API. Implemented by
// *remote.Client; stubbed in tests.
type Dispatcher interface {
	Execute(ctx context.Context, action store.PendingAction) (json.RawMessage, error)
}

// SyncResult reports the outcome of one drain cycle.
type SyncResult struct {
	Synced    int `json:"synced"`
	Failed    int `json:"failed"`
	Remaining int `json:"remaining"`
}

func (r SyncResult) String() string {
	return fmt.Sprintf("synced=%d failed=%d remaining=%d", r.Synced, r.Failed, r.Remaining)
}

// LogResult is what the smart-log facade hands back to UI call sites.
// Offline=false means the remote accepted the mutation and Data holds its
// response; Offline=true means the mutation was queued under ActionID.
type LogResult struct {
	Offline  bool            `json:"offline"`
	ActionID string          `json:"action_id,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}
