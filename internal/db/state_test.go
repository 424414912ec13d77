package db

import (
	"context"
	"testing"
	"time"

	"github.com/ldi/corkboard/internal/board"
	"github.com/ldi/corkboard/pkg/models"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Init(context.Background()); err != nil {
		t.Fatalf("Failed to init database: %v", err)
	}
	return db
}

func TestLoadEmpty(t *testing.T) {
	db := setupTestDB(t)

	st, err := db.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if st != nil {
		t.Errorf("Expected nil state from empty database, got %+v", st)
	}
}

func TestSaveAndLoad(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	st := board.NewState(board.Defaults{BoardName: "Launch"}, time.Now())
	col := st.Boards[0].Columns[0]
	col.Tasks = append(col.Tasks, &models.Task{
		ID:       "t1",
		BoardID:  st.Boards[0].ID,
		Title:    "Write release notes",
		Status:   col.Name,
		Priority: models.PriorityHigh,
		DueDate:  "2026-03-01",
		Subtasks: []models.Subtask{{ID: "s1", Title: "Draft"}},
	})

	if err := db.Save(ctx, st); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := db.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("Expected stored state, got nil")
	}
	if loaded.CurrentBoardID != st.CurrentBoardID {
		t.Errorf("Expected current board %s, got %s", st.CurrentBoardID, loaded.CurrentBoardID)
	}
	if len(loaded.Boards) != 1 || loaded.Boards[0].Name != "Launch" {
		t.Fatalf("Unexpected boards: %+v", loaded.Boards)
	}
	tasks := loaded.Boards[0].Columns[0].Tasks
	if len(tasks) != 1 {
		t.Fatalf("Expected 1 task, got %d", len(tasks))
	}
	if tasks[0].Title != "Write release notes" || tasks[0].Priority != models.PriorityHigh {
		t.Errorf("Task not round-tripped: %+v", tasks[0])
	}
	if len(tasks[0].Subtasks) != 1 || tasks[0].Subtasks[0].Title != "Draft" {
		t.Errorf("Subtasks not round-tripped: %+v", tasks[0].Subtasks)
	}

	// Saving again overwrites rather than duplicating.
	st.Boards[0].Name = "Launch v2"
	if err := db.Save(ctx, st); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM kv").Scan(&count); err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 kv row, got %d", count)
	}
	loaded, _ = db.Load(ctx)
	if loaded.Boards[0].Name != "Launch v2" {
		t.Errorf("Expected updated name, got %s", loaded.Boards[0].Name)
	}
}

func TestLoadMalformed(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.Exec("INSERT INTO kv (key, value) VALUES (?, ?)", StateKey, "{not json"); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if _, err := db.Load(ctx); err == nil {
		t.Fatal("Expected error for malformed state")
	}

	// The store treats a malformed state like a missing one.
	s := board.New(ctx, board.WithPersister(db))
	if len(s.Boards()) != 1 {
		t.Errorf("Expected a single default board, got %d", len(s.Boards()))
	}
}

func TestLoadMissingFields(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	raw := `{"boards":[{"id":"b1","name":"Ops","columns":[{"id":"todo","name":"To Do","tasks":[{"id":"t1","title":"Rotate keys"}]}]}]}`
	if _, err := db.Exec("INSERT INTO kv (key, value) VALUES (?, ?)", StateKey, raw); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	s := board.New(ctx, board.WithPersister(db))
	if s.CurrentBoardID() != "b1" {
		t.Errorf("Expected current board b1, got %q", s.CurrentBoardID())
	}
	task, ok := s.Task("t1")
	if !ok {
		t.Fatal("Expected task t1 to be loaded")
	}
	if task.Status != "To Do" {
		t.Errorf("Expected status To Do, got %q", task.Status)
	}
	if task.Priority != models.PriorityMedium {
		t.Errorf("Expected default priority medium, got %q", task.Priority)
	}
	if task.BoardID != "b1" {
		t.Errorf("Expected board id b1, got %q", task.BoardID)
	}
}

func TestStoreMirrorsToDB(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	s := board.New(ctx, board.WithPersister(db))
	b, _ := s.CurrentBoard()
	id, ok := s.CreateTask(ctx, b.ID, "todo", board.TaskDraft{Title: "Persist me"})
	if !ok {
		t.Fatal("CreateTask failed")
	}

	reopened := board.New(ctx, board.WithPersister(db))
	task, ok := reopened.Task(id)
	if !ok {
		t.Fatal("Expected task to survive a reload")
	}
	if task.Title != "Persist me" {
		t.Errorf("Expected title Persist me, got %q", task.Title)
	}
}

func TestClear(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.Save(ctx, board.NewState(board.Defaults{BoardName: "x"}, time.Now())); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := db.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	st, err := db.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if st != nil {
		t.Error("Expected no state after Clear")
	}
}
