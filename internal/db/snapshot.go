package db

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ldi/corkboard/internal/board"
	"github.com/ldi/corkboard/pkg/models"
)

// EnableAutoSnapshot registers a store hook that exports a snapshot to path
// after every transition. The export runs once the store has released its
// lock. Failures are logged; the state itself is already saved.
func (db *DB) EnableAutoSnapshot(store *board.Store, path string, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	store.OnChange(func(ctx context.Context) {
		if err := db.ExportSnapshot(ctx, path); err != nil {
			logger.Warn("failed to export snapshot", "path", path, "error", err)
		}
	})
}

type metaRecord struct {
	RecordType     string    `json:"record_type"`
	Schema         int       `json:"schema"`
	ExportedAt     time.Time `json:"exported_at"`
	CurrentBoardID string    `json:"current_board_id"`
}

type boardRecord struct {
	RecordType  string    `json:"record_type"`
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type columnRecord struct {
	RecordType string `json:"record_type"`
	BoardID    string `json:"board_id"`
	ID         string `json:"id"`
	Name       string `json:"name"`
	Position   int    `json:"position"`
}

type taskRecord struct {
	RecordType string `json:"record_type"`
	ColumnID   string `json:"column_id"`
	Position   int    `json:"position"`
	models.Task
}

// WriteSnapshot writes st as JSON lines: one meta record, then each board
// followed by its columns and their tasks in order.
func WriteSnapshot(w io.Writer, st *board.State, now time.Time) error {
	enc := json.NewEncoder(w)
	if err := enc.Encode(metaRecord{
		RecordType:     "meta",
		Schema:         board.SchemaVersion,
		ExportedAt:     now,
		CurrentBoardID: st.CurrentBoardID,
	}); err != nil {
		return fmt.Errorf("failed to write meta record: %w", err)
	}

	for _, b := range st.Boards {
		if err := enc.Encode(boardRecord{
			RecordType:  "board",
			ID:          b.ID,
			Name:        b.Name,
			Description: b.Description,
			CreatedAt:   b.CreatedAt,
		}); err != nil {
			return fmt.Errorf("failed to write board %s: %w", b.Name, err)
		}
		for ci, c := range b.Columns {
			if err := enc.Encode(columnRecord{
				RecordType: "column",
				BoardID:    b.ID,
				ID:         c.ID,
				Name:       c.Name,
				Position:   ci,
			}); err != nil {
				return fmt.Errorf("failed to write column %s: %w", c.Name, err)
			}
			for ti, t := range c.Tasks {
				if err := enc.Encode(taskRecord{
					RecordType: "task",
					ColumnID:   c.ID,
					Position:   ti,
					Task:       *t,
				}); err != nil {
					return fmt.Errorf("failed to write task %s: %w", t.Title, err)
				}
			}
		}
	}
	return nil
}

// ReadSnapshot rebuilds a state from JSON lines written by WriteSnapshot.
// Records are placed by their board/column ids and positions, so line order
// only matters in that a column must follow its board and a task its column.
// Records of unknown type, and tasks pointing at unknown columns, are
// skipped.
func ReadSnapshot(r io.Reader) (*board.State, error) {
	st := &board.State{Schema: board.SchemaVersion}
	boards := make(map[string]*models.Board)
	type colKey struct{ boardID, columnID string }
	columns := make(map[colKey]*models.Column)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var base struct {
			RecordType string `json:"record_type"`
		}
		if err := json.Unmarshal(line, &base); err != nil {
			return nil, fmt.Errorf("failed to unmarshal base record: %w", err)
		}

		switch base.RecordType {
		case "meta":
			var m metaRecord
			if err := json.Unmarshal(line, &m); err != nil {
				return nil, fmt.Errorf("failed to unmarshal meta: %w", err)
			}
			st.CurrentBoardID = m.CurrentBoardID

		case "board":
			var br boardRecord
			if err := json.Unmarshal(line, &br); err != nil {
				return nil, fmt.Errorf("failed to unmarshal board: %w", err)
			}
			b := &models.Board{ID: br.ID, Name: br.Name, Description: br.Description, CreatedAt: br.CreatedAt}
			boards[b.ID] = b
			st.Boards = append(st.Boards, b)

		case "column":
			var cr columnRecord
			if err := json.Unmarshal(line, &cr); err != nil {
				return nil, fmt.Errorf("failed to unmarshal column: %w", err)
			}
			b, ok := boards[cr.BoardID]
			if !ok {
				continue
			}
			c := &models.Column{ID: cr.ID, Name: cr.Name, Tasks: []*models.Task{}}
			b.Columns = insertColumn(b.Columns, cr.Position, c)
			columns[colKey{cr.BoardID, cr.ID}] = c

		case "task":
			var tr taskRecord
			if err := json.Unmarshal(line, &tr); err != nil {
				return nil, fmt.Errorf("failed to unmarshal task: %w", err)
			}
			c, ok := columns[colKey{tr.BoardID, tr.ColumnID}]
			if !ok {
				continue
			}
			t := tr.Task
			c.Tasks = insertTask(c.Tasks, tr.Position, &t)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner error: %w", err)
	}
	return st, nil
}

func insertColumn(cols []*models.Column, pos int, c *models.Column) []*models.Column {
	if pos < 0 || pos > len(cols) {
		pos = len(cols)
	}
	cols = append(cols, nil)
	copy(cols[pos+1:], cols[pos:])
	cols[pos] = c
	return cols
}

func insertTask(tasks []*models.Task, pos int, t *models.Task) []*models.Task {
	if pos < 0 || pos > len(tasks) {
		pos = len(tasks)
	}
	tasks = append(tasks, nil)
	copy(tasks[pos+1:], tasks[pos:])
	tasks[pos] = t
	return tasks
}

// ExportSnapshot writes the stored state to path atomically using a
// temporary file.
func (db *DB) ExportSnapshot(ctx context.Context, path string) error {
	st, err := db.Load(ctx)
	if err != nil {
		return err
	}
	if st == nil {
		st = &board.State{Schema: board.SchemaVersion}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, "snapshot-*.jsonl")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if tempFile != nil {
			tempFile.Close()
			os.Remove(tempFile.Name())
		}
	}()

	w := bufio.NewWriter(tempFile)
	if err := WriteSnapshot(w, st, time.Now().UTC()); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush snapshot: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	filename := tempFile.Name()
	tempFile = nil // Prevent defer from removing it

	if err := os.Rename(filename, path); err != nil {
		os.Remove(filename)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// ImportSnapshot reads a JSONL snapshot and stores it as the board state,
// replacing whatever was stored before.
func (db *DB) ImportSnapshot(ctx context.Context, path string) (*board.State, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot file: %w", err)
	}
	defer file.Close()

	st, err := ReadSnapshot(file)
	if err != nil {
		return nil, err
	}
	if err := db.Save(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}
