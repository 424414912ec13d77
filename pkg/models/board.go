package models

import (
	"fmt"
	"strings"
	"time"
)

// Column is an ordered bucket of tasks. Name doubles as the value stored in
// Task.Status for every task the column holds.
type Column struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Tasks []*Task `json:"tasks"`
}

// IndexOf returns the position of the task with the given id, or -1.
func (c *Column) IndexOf(taskID string) int {
	for i, t := range c.Tasks {
		if t.ID == taskID {
			return i
		}
	}
	return -1
}

func (c *Column) Clone() *Column {
	out := &Column{ID: c.ID, Name: c.Name, Tasks: make([]*Task, 0, len(c.Tasks))}
	for _, t := range c.Tasks {
		out.Tasks = append(out.Tasks, t.Clone())
	}
	return out
}

// Board is one Kanban workspace. In the flat project model a board plays the
// role of a project: tasks reference it through Task.BoardID.
type Board struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	Columns     []*Column `json:"columns"`
}

// Column looks up a column by id.
func (b *Board) Column(id string) (*Column, bool) {
	for _, c := range b.Columns {
		if c.ID == id {
			return c, true
		}
	}
	return nil, false
}

// ColumnByName looks up a column by its name (the Task.Status key).
func (b *Board) ColumnByName(name string) (*Column, bool) {
	for _, c := range b.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// TaskCount returns the number of tasks across all columns.
func (b *Board) TaskCount() int {
	n := 0
	for _, c := range b.Columns {
		n += len(c.Tasks)
	}
	return n
}

func (b *Board) Clone() *Board {
	out := *b
	out.Columns = make([]*Column, 0, len(b.Columns))
	for _, c := range b.Columns {
		out.Columns = append(out.Columns, c.Clone())
	}
	return &out
}

// DefaultColumn describes one of the columns every new board starts with.
type DefaultColumn struct {
	ID   string
	Name string
}

// DefaultColumns mirrors the fixed todo / in-progress / done status set.
var DefaultColumns = []DefaultColumn{
	{ID: "todo", Name: "To Do"},
	{ID: "in-progress", Name: "In Progress"},
	{ID: "done", Name: "Done"},
}

func ValidateBoardName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("board name cannot be empty")
	}
	if len(name) > 100 {
		return fmt.Errorf("board name cannot exceed 100 characters")
	}
	return nil
}

func ValidateColumnName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("column name cannot be empty")
	}
	if len(name) > 50 {
		return fmt.Errorf("column name cannot exceed 50 characters")
	}
	return nil
}
