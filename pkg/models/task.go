package models

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the on-disk and wire format of Task.DueDate.
const DateLayout = "2006-01-02"

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type Subtask struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

type Task struct {
	ID           string    `json:"id"`
	BoardID      string    `json:"board_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Status       string    `json:"status"`
	Priority     Priority  `json:"priority"`
	Assignee     string    `json:"assignee,omitempty"`
	DueDate      string    `json:"due_date,omitempty"`
	Subtasks     []Subtask `json:"subtasks"`
	CommentCount int       `json:"comment_count"`
	FileCount    int       `json:"file_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Clone returns a deep copy of t.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	c.Subtasks = append([]Subtask(nil), t.Subtasks...)
	if c.Subtasks == nil {
		c.Subtasks = []Subtask{}
	}
	return &c
}

// Due parses DueDate. ok is false when the task has no (parseable) due date.
func (t *Task) Due() (time.Time, bool) {
	if t.DueDate == "" {
		return time.Time{}, false
	}
	d, err := time.Parse(DateLayout, t.DueDate)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// CompletedSubtasks returns how many subtasks are checked off.
func (t *Task) CompletedSubtasks() int {
	n := 0
	for _, st := range t.Subtasks {
		if st.Completed {
			n++
		}
	}
	return n
}

// SameContent reports whether two tasks carry the same user-editable data.
// Timestamps are ignored.
func (t *Task) SameContent(o *Task) bool {
	if t.ID != o.ID || t.BoardID != o.BoardID || t.Title != o.Title ||
		t.Description != o.Description || t.Status != o.Status ||
		t.Priority != o.Priority || t.Assignee != o.Assignee ||
		t.DueDate != o.DueDate || t.CommentCount != o.CommentCount ||
		t.FileCount != o.FileCount || len(t.Subtasks) != len(o.Subtasks) {
		return false
	}
	for i := range t.Subtasks {
		if t.Subtasks[i] != o.Subtasks[i] {
			return false
		}
	}
	return true
}

// CleanSubtasks drops subtasks whose title is blank.
func CleanSubtasks(in []Subtask) []Subtask {
	out := make([]Subtask, 0, len(in))
	for _, st := range in {
		st.Title = strings.TrimSpace(st.Title)
		if st.Title == "" {
			continue
		}
		out = append(out, st)
	}
	return out
}

func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("title cannot be empty")
	}
	if len(title) > 200 {
		return fmt.Errorf("title cannot exceed 200 characters")
	}
	return nil
}

func ValidatePriority(p Priority) error {
	if !p.Valid() {
		return fmt.Errorf("invalid priority %q (want low, medium or high)", p)
	}
	return nil
}

func ValidateDueDate(due string) error {
	if due == "" {
		return nil
	}
	if _, err := time.Parse(DateLayout, due); err != nil {
		return fmt.Errorf("invalid due date %q: want YYYY-MM-DD", due)
	}
	return nil
}

func ValidateCounters(comments, files int) error {
	if comments < 0 || files < 0 {
		return fmt.Errorf("comment and file counts cannot be negative")
	}
	return nil
}
