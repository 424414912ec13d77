package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ldi/corkboard/internal/board"
	"github.com/ldi/corkboard/internal/db"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	original := out
	out = &buf
	t.Cleanup(func() { out = original })
	return &buf
}

func loadStored(t *testing.T, path string) *board.State {
	t.Helper()
	database, err := db.Open(path)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	defer database.Close()

	st, err := database.Load(context.Background())
	if err != nil {
		t.Fatalf("failed to load state: %v", err)
	}
	if st == nil {
		t.Fatal("expected stored state")
	}
	return st
}

func TestInit(t *testing.T) {
	tmpDir := t.TempDir()
	buf := captureOutput(t)

	err := execute([]string{"--config", filepath.Join(tmpDir, "none.json"), "init", tmpDir})
	if err != nil {
		t.Fatalf("init failed: %v", err)
	}

	boardDir := filepath.Join(tmpDir, ".corkboard")
	content, err := os.ReadFile(filepath.Join(boardDir, ".gitignore"))
	if err != nil {
		t.Fatalf("failed to read .gitignore: %v", err)
	}
	if !strings.HasPrefix(string(content), "corkboard.db*\n") {
		t.Errorf("unexpected .gitignore content: %q", string(content))
	}

	if _, err := os.Stat(filepath.Join(boardDir, "config.json")); err != nil {
		t.Errorf("config.json was not written: %v", err)
	}

	dbFile := filepath.Join(boardDir, "corkboard.db")
	st := loadStored(t, dbFile)
	if len(st.Boards) != 1 || st.Boards[0].Name != "Default Project" {
		t.Fatalf("expected seeded default board, got %+v", st.Boards)
	}
	if len(st.Boards[0].Columns) != 3 {
		t.Errorf("expected 3 columns, got %d", len(st.Boards[0].Columns))
	}

	if !strings.Contains(buf.String(), "initialized successfully") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestInitIsRepeatable(t *testing.T) {
	tmpDir := t.TempDir()
	captureOutput(t)
	args := []string{"--config", filepath.Join(tmpDir, "none.json"), "init", tmpDir}

	if err := execute(args); err != nil {
		t.Fatalf("first init failed: %v", err)
	}
	dbFile := filepath.Join(tmpDir, ".corkboard", "corkboard.db")
	first := loadStored(t, dbFile)

	if err := execute(args); err != nil {
		t.Fatalf("second init failed: %v", err)
	}
	second := loadStored(t, dbFile)

	if first.Boards[0].ID != second.Boards[0].ID {
		t.Error("second init replaced the existing board")
	}
}

func TestInitWithExistingSnapshot(t *testing.T) {
	tmpDir := t.TempDir()
	captureOutput(t)

	boardDir := filepath.Join(tmpDir, ".corkboard")
	if err := os.MkdirAll(boardDir, 0755); err != nil {
		t.Fatalf("failed to create .corkboard dir: %v", err)
	}

	st := board.NewState(board.Defaults{BoardName: "Imported"}, time.Now())
	var snap bytes.Buffer
	if err := db.WriteSnapshot(&snap, st, time.Now()); err != nil {
		t.Fatalf("failed to write snapshot: %v", err)
	}
	if err := os.WriteFile(filepath.Join(boardDir, "snapshot.jsonl"), snap.Bytes(), 0644); err != nil {
		t.Fatalf("failed to create snapshot: %v", err)
	}

	if err := execute([]string{"--config", filepath.Join(tmpDir, "none.json"), "init", tmpDir}); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	stored := loadStored(t, filepath.Join(boardDir, "corkboard.db"))
	if len(stored.Boards) != 1 || stored.Boards[0].Name != "Imported" {
		t.Fatalf("expected imported board, got %+v", stored.Boards)
	}
	if stored.Boards[0].ID != st.Boards[0].ID {
		t.Error("imported board id changed")
	}
}
