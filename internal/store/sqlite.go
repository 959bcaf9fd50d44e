package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS pending_actions (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	type TEXT NOT NULL,
	payload TEXT NOT NULL,
	retry_count INTEGER NOT NULL DEFAULT 0,
	last_error TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS connectivity_state (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	is_online INTEGER NOT NULL,
	is_syncing INTEGER NOT NULL,
	updated_at TEXT NOT NULL
);
`

// SQLiteStore persists the queue in a local SQLite database. FIFO order is
// carried by the autoincrement seq column.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store: %w", err)
	}

	// A single writer keeps mutations serialized the same way the in-memory
	// store's mutex does.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init sqlite schema: %w", err)
	}

	if _, err := db.Exec(
		`INSERT OR IGNORE INTO connectivity_state (id, is_online, is_syncing, updated_at) VALUES (1, 1, 0, ?)`,
		time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to seed connectivity state: %w", err)
	}

	// A killed process must never leave the queue locked.
	if _, err := db.Exec(`UPDATE connectivity_state SET is_syncing = 0 WHERE id = 1`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reset syncing flag: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) QueueAction(ctx context.Context, actionType ActionType, payload json.RawMessage) (string, error) {
	id := uuid.New().String()

	query := `INSERT INTO pending_actions (id, type, payload, retry_count, last_error, created_at)
			  VALUES (?, ?, ?, 0, '', ?)`

	_, err := s.db.ExecContext(ctx, query, id, string(actionType), string(payload), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("failed to queue action: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) DequeueAction(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM pending_actions WHERE id = ?`, id)
	return err
}

func (s *SQLiteStore) MarkActionFailed(ctx context.Context, id, message string) error {
	query := `UPDATE pending_actions SET retry_count = retry_count + 1, last_error = ? WHERE id = ?`

	_, err := s.db.ExecContext(ctx, query, message, id)
	return err
}

func (s *SQLiteStore) ClearFailedActions(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pending_actions WHERE retry_count >= ?`, MaxRetries)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *SQLiteStore) PendingActions(ctx context.Context) ([]PendingAction, error) {
	return s.listActions(ctx,
		`SELECT id, type, payload, retry_count, last_error, created_at
		 FROM pending_actions ORDER BY seq`)
}

func (s *SQLiteStore) FailedActions(ctx context.Context) ([]PendingAction, error) {
	return s.listActions(ctx, fmt.Sprintf(
		`SELECT id, type, payload, retry_count, last_error, created_at
		 FROM pending_actions WHERE retry_count >= %d ORDER BY seq`, MaxRetries))
}

func (s *SQLiteStore) listActions(ctx context.Context, query string) ([]PendingAction, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []PendingAction
	for rows.Next() {
		var (
			a       PendingAction
			typ     string
			payload string
			created string
		)
		if err := rows.Scan(&a.ID, &typ, &payload, &a.RetryCount, &a.LastError, &created); err != nil {
			return nil, err
		}
		a.Type = ActionType(typ)
		a.Payload = json.RawMessage(payload)
		a.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

func (s *SQLiteStore) PendingCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_actions`).Scan(&n)
	return n, err
}

func (s *SQLiteStore) SetOnline(ctx context.Context, online bool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE connectivity_state SET is_online = ?, updated_at = ? WHERE id = 1`,
		boolToInt(online), time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

func (s *SQLiteStore) SetSyncing(ctx context.Context, syncing bool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE connectivity_state SET is_syncing = ?, updated_at = ? WHERE id = 1`,
		boolToInt(syncing), time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

func (s *SQLiteStore) State(ctx context.Context) (ConnectivityState, error) {
	var online, syncing int
	err := s.db.QueryRowContext(ctx,
		`SELECT is_online, is_syncing FROM connectivity_state WHERE id = 1`).Scan(&online, &syncing)
	if err != nil {
		return ConnectivityState{}, err
	}
	return ConnectivityState{Online: online != 0, Syncing: syncing != 0}, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
