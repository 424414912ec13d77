package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ldi/corkboard/internal/board"
)

// StateKey is the key the board state is stored under.
const StateKey = "corkboard-state"

// Load reads the stored board state. It returns (nil, nil) when nothing has
// been saved yet. Fields missing from the stored JSON are left at their zero
// value; the store fills in defaults.
func (db *DB) Load(ctx context.Context) (*board.State, error) {
	var raw string
	err := db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, db.Key).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	var st board.State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, fmt.Errorf("failed to decode stored state: %w", err)
	}
	return &st, nil
}

// Save replaces the stored board state.
func (db *DB) Save(ctx context.Context, st *board.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	query := `
		INSERT INTO kv (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := db.ExecContext(ctx, query, db.Key, string(data)); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

// Clear removes the stored state.
func (db *DB) Clear(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, db.Key); err != nil {
		return fmt.Errorf("failed to clear state: %w", err)
	}
	return nil
}

var _ board.Persister = (*DB)(nil)
