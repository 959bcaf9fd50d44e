package store

import (
	"encoding/json"
	"time"
)

// MaxRetries is the delivery attempt ceiling. An action that has failed this
// many times is never attempted again and is purged by ClearFailedActions.
const MaxRetries = 5

type ActionType string

const (
	ActionLogWorkout  ActionType = "log_workout"
	ActionLogCalories ActionType = "log_calories"
	ActionSetIntent   ActionType = "set_intent"
	ActionCreatePost  ActionType = "create_post"
	ActionAddComment  ActionType = "add_comment"
)

func (t ActionType) Valid() bool {
	switch t {
	case ActionLogWorkout, ActionLogCalories, ActionSetIntent, ActionCreatePost, ActionAddComment:
		return true
	}
	return false
}

// PendingAction is a locally queued mutation awaiting delivery to the remote
// API. Queue order is insertion order; the ID is opaque and carries no
// ordering.
type PendingAction struct {
	ID         string          `json:"id" db:"id"`
	Type       ActionType      `json:"type" db:"type"`
	Payload    json.RawMessage `json:"payload" db:"payload"`
	RetryCount int             `json:"retry_count" db:"retry_count"`
	LastError  string          `json:"last_error,omitempty" db:"last_error"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// Exhausted reports whether the action has hit the retry ceiling.
func (a PendingAction) Exhausted() bool {
	return a.RetryCount >= MaxRetries
}

// ConnectivityState holds the process-wide online and drain-guard flags.
// Syncing is persisted for observability but reset to false on store open.
type ConnectivityState struct {
	Online  bool `json:"online"`
	Syncing bool `json:"syncing"`
}
