package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fitlog-sync-service/internal/logger"
)

const snapshotVersion = 1

// snapshot is the on-disk shape. A version bump invalidates old files, which
// then load as an empty queue.
type snapshot struct {
	Version        int             `json:"version"`
	PendingActions []PendingAction `json:"pending_actions"`
	IsOnline       bool            `json:"is_online"`
	IsSyncing      bool            `json:"is_syncing"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// FileStore keeps the queue in memory and persists the full snapshot to a
// single JSON file on every mutation. Writes go through a temp file and
// rename so a crash mid-write leaves the previous snapshot intact.
type FileStore struct {
	mu      sync.Mutex
	path    string
	actions []PendingAction
	state   ConnectivityState
}

func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path:  path,
		state: ConnectivityState{Online: true},
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil || snap.Version != snapshotVersion {
		// Fail closed: an unreadable or outdated snapshot loads as an empty
		// queue rather than crashing the daemon.
		logger.Log.Warn("discarding unreadable queue snapshot",
			zap.String("path", path),
			zap.Int("version", snap.Version),
			zap.Error(err),
		)
		return s, nil
	}

	s.actions = snap.PendingActions
	s.state.Online = snap.IsOnline
	// A killed process must never leave the queue locked.
	s.state.Syncing = false
	return s, nil
}

func (s *FileStore) persist() error {
	snap := snapshot{
		Version:        snapshotVersion,
		PendingActions: s.actions,
		IsOnline:       s.state.Online,
		IsSyncing:      s.state.Syncing,
		UpdatedAt:      time.Now().UTC(),
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".fitlog-queue-*")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

func (s *FileStore) QueueAction(ctx context.Context, actionType ActionType, payload json.RawMessage) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	action := PendingAction{
		ID:        uuid.New().String(),
		Type:      actionType,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
	s.actions = append(s.actions, action)

	if err := s.persist(); err != nil {
		s.actions = s.actions[:len(s.actions)-1]
		return "", err
	}
	return action.ID, nil
}

func (s *FileStore) DequeueAction(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, a := range s.actions {
		if a.ID == id {
			s.actions = append(s.actions[:i], s.actions[i+1:]...)
			return s.persist()
		}
	}
	return nil
}

func (s *FileStore) MarkActionFailed(ctx context.Context, id, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.actions {
		if s.actions[i].ID == id {
			s.actions[i].RetryCount++
			s.actions[i].LastError = message
			return s.persist()
		}
	}
	return nil
}

func (s *FileStore) ClearFailedActions(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.actions[:0]
	cleared := 0
	for _, a := range s.actions {
		if a.Exhausted() {
			cleared++
			continue
		}
		kept = append(kept, a)
	}
	if cleared == 0 {
		return 0, nil
	}
	s.actions = kept
	return cleared, s.persist()
}

func (s *FileStore) PendingActions(ctx context.Context) ([]PendingAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]PendingAction, len(s.actions))
	copy(out, s.actions)
	return out, nil
}

func (s *FileStore) FailedActions(ctx context.Context) ([]PendingAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []PendingAction
	for _, a := range s.actions {
		if a.Exhausted() {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *FileStore) PendingCount(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.actions), nil
}

func (s *FileStore) SetOnline(ctx context.Context, online bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Online == online {
		return nil
	}
	s.state.Online = online
	return s.persist()
}

func (s *FileStore) SetSyncing(ctx context.Context, syncing bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Syncing == syncing {
		return nil
	}
	s.state.Syncing = syncing
	return s.persist()
}

func (s *FileStore) State(ctx context.Context) (ConnectivityState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, nil
}

func (s *FileStore) Close() error {
	return nil
}
