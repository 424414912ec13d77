package board

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/ldi/corkboard/pkg/models"
)

// TaskDraft carries the user-supplied fields of a new task.
type TaskDraft struct {
	Title       string
	Description string
	Priority    models.Priority
	Assignee    string
	DueDate     string
	Subtasks    []string
}

// CreateTask appends a new task to the end of a column. It returns the new
// task's id, or "" and false when the board or column does not exist.
func (s *Store) CreateTask(ctx context.Context, boardID, columnID string, d TaskDraft) (string, bool) {
	var id string
	ok := s.apply(ctx, "create_task", func(st *State) bool {
		b, ok := st.Board(boardID)
		if !ok {
			return false
		}
		c, ok := b.Column(columnID)
		if !ok {
			return false
		}

		now := s.now()
		t := &models.Task{
			ID:          uuid.New().String(),
			BoardID:     b.ID,
			Title:       strings.TrimSpace(d.Title),
			Description: d.Description,
			Status:      c.Name,
			Priority:    d.Priority,
			Assignee:    strings.TrimSpace(d.Assignee),
			DueDate:     d.DueDate,
			Subtasks:    []models.Subtask{},
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if !t.Priority.Valid() {
			t.Priority = models.PriorityMedium
		}
		for _, title := range d.Subtasks {
			if strings.TrimSpace(title) == "" {
				continue
			}
			t.Subtasks = append(t.Subtasks, models.Subtask{
				ID:    uuid.New().String(),
				Title: strings.TrimSpace(title),
			})
		}
		c.Tasks = append(c.Tasks, t)
		id = t.ID
		return true
	})
	return id, ok
}

// UpdateTask replaces the stored record with the same id. Column membership
// does not change: Status, BoardID and CreatedAt are kept from the stored
// task. Subtasks with blank titles are dropped. An update that changes
// nothing leaves state (including UpdatedAt) untouched.
func (s *Store) UpdateTask(ctx context.Context, t models.Task) bool {
	return s.apply(ctx, "update_task", func(st *State) bool {
		loc, ok := st.locate(t.ID)
		if !ok {
			return false
		}
		cur := loc.column.Tasks[loc.index]

		next := t.Clone()
		next.BoardID = cur.BoardID
		next.Status = loc.column.Name
		next.CreatedAt = cur.CreatedAt
		next.UpdatedAt = cur.UpdatedAt
		next.Title = strings.TrimSpace(next.Title)
		next.Assignee = strings.TrimSpace(next.Assignee)
		if next.Title == "" {
			next.Title = cur.Title
		}
		if !next.Priority.Valid() {
			next.Priority = cur.Priority
		}
		if next.CommentCount < 0 {
			next.CommentCount = cur.CommentCount
		}
		if next.FileCount < 0 {
			next.FileCount = cur.FileCount
		}
		next.Subtasks = reuseSubtaskIDs(cur.Subtasks, models.CleanSubtasks(next.Subtasks))

		if next.SameContent(cur) {
			return false
		}
		next.UpdatedAt = s.now()
		loc.column.Tasks[loc.index] = next
		return true
	})
}

// reuseSubtaskIDs gives id-less incoming subtasks the id of an unclaimed
// stored subtask with the same title, so repeating an edit is stable.
func reuseSubtaskIDs(stored, incoming []models.Subtask) []models.Subtask {
	claimed := make(map[string]bool, len(incoming))
	for _, st := range incoming {
		if st.ID != "" {
			claimed[st.ID] = true
		}
	}
	for i := range incoming {
		if incoming[i].ID != "" {
			continue
		}
		for _, old := range stored {
			if !claimed[old.ID] && old.Title == incoming[i].Title {
				incoming[i].ID = old.ID
				claimed[old.ID] = true
				break
			}
		}
		if incoming[i].ID == "" {
			incoming[i].ID = uuid.New().String()
		}
	}
	return incoming
}

func (s *Store) DeleteTask(ctx context.Context, id string) bool {
	return s.apply(ctx, "delete_task", func(st *State) bool {
		loc, ok := st.locate(id)
		if !ok {
			return false
		}
		loc.column.Tasks = removeAt(loc.column.Tasks, loc.index)
		return true
	})
}

// MoveTask takes a task out of its column and inserts it at index in the
// destination column of the same board, updating Status to match. index is
// clamped to the destination's bounds. When the destination is the task's
// own column the move is a plain reorder.
func (s *Store) MoveTask(ctx context.Context, taskID, columnID string, index int) bool {
	return s.apply(ctx, "move_task", func(st *State) bool {
		loc, ok := st.locate(taskID)
		if !ok {
			return false
		}
		dest, ok := loc.board.Column(columnID)
		if !ok {
			return false
		}

		if dest == loc.column {
			last := len(dest.Tasks) - 1
			return reorder(dest, loc.index, clamp(index, 0, last))
		}

		t := loc.column.Tasks[loc.index]
		loc.column.Tasks = removeAt(loc.column.Tasks, loc.index)
		t.Status = dest.Name
		t.UpdatedAt = s.now()
		dest.Tasks = insertAt(dest.Tasks, clamp(index, 0, len(dest.Tasks)), t)
		return true
	})
}

// ReorderInColumn moves the task at oldIndex to newIndex within a column of
// the current board. Out-of-range indices are a no-op.
func (s *Store) ReorderInColumn(ctx context.Context, columnID string, oldIndex, newIndex int) bool {
	return s.apply(ctx, "reorder_tasks", func(st *State) bool {
		b, ok := st.Current()
		if !ok {
			return false
		}
		c, ok := b.Column(columnID)
		if !ok {
			return false
		}
		return reorder(c, oldIndex, newIndex)
	})
}

// ReorderTask moves activeID to the position overID holds in a column of
// the current board. Both ids are resolved while the transition holds the
// lock; if either is no longer in the column nothing changes. It returns
// the indices the reorder used.
func (s *Store) ReorderTask(ctx context.Context, columnID, activeID, overID string) (oldIndex, newIndex int, ok bool) {
	oldIndex, newIndex = -1, -1
	ok = s.apply(ctx, "reorder_task", func(st *State) bool {
		b, ok := st.Current()
		if !ok {
			return false
		}
		c, ok := b.Column(columnID)
		if !ok {
			return false
		}
		from, to := c.IndexOf(activeID), c.IndexOf(overID)
		if from < 0 || to < 0 || !reorder(c, from, to) {
			return false
		}
		oldIndex, newIndex = from, to
		return true
	})
	if !ok {
		return -1, -1, false
	}
	return oldIndex, newIndex, true
}

// DropTask moves activeID out of fromColumnID into toColumnID of the current
// board. The task lands at overID's position, or at the end of the column
// when overID is empty. The drop is refused when activeID no longer sits in
// fromColumnID or overID is not a task of toColumnID.
func (s *Store) DropTask(ctx context.Context, activeID, fromColumnID, toColumnID, overID string) (oldIndex, newIndex int, ok bool) {
	oldIndex, newIndex = -1, -1
	ok = s.apply(ctx, "drop_task", func(st *State) bool {
		b, ok := st.Current()
		if !ok || fromColumnID == toColumnID {
			return false
		}
		src, ok := b.Column(fromColumnID)
		if !ok {
			return false
		}
		dest, ok := b.Column(toColumnID)
		if !ok {
			return false
		}
		from := src.IndexOf(activeID)
		if from < 0 {
			return false
		}
		to := len(dest.Tasks)
		if overID != "" {
			if to = dest.IndexOf(overID); to < 0 {
				return false
			}
		}

		t := src.Tasks[from]
		src.Tasks = removeAt(src.Tasks, from)
		t.Status = dest.Name
		t.UpdatedAt = s.now()
		dest.Tasks = insertAt(dest.Tasks, to, t)
		oldIndex, newIndex = from, to
		return true
	})
	if !ok {
		return -1, -1, false
	}
	return oldIndex, newIndex, true
}

func reorder(c *models.Column, oldIndex, newIndex int) bool {
	n := len(c.Tasks)
	if oldIndex < 0 || oldIndex >= n || newIndex < 0 || newIndex >= n || oldIndex == newIndex {
		return false
	}
	t := c.Tasks[oldIndex]
	c.Tasks = insertAt(removeAt(c.Tasks, oldIndex), newIndex, t)
	return true
}

func (s *Store) AddSubtask(ctx context.Context, taskID, title string) (string, bool) {
	var id string
	title = strings.TrimSpace(title)
	ok := s.apply(ctx, "add_subtask", func(st *State) bool {
		if title == "" {
			return false
		}
		loc, ok := st.locate(taskID)
		if !ok {
			return false
		}
		t := loc.column.Tasks[loc.index]
		id = uuid.New().String()
		t.Subtasks = append(t.Subtasks, models.Subtask{ID: id, Title: title})
		t.UpdatedAt = s.now()
		return true
	})
	return id, ok
}

// ToggleSubtask flips a subtask's completion flag.
func (s *Store) ToggleSubtask(ctx context.Context, taskID, subtaskID string) bool {
	return s.apply(ctx, "toggle_subtask", func(st *State) bool {
		loc, ok := st.locate(taskID)
		if !ok {
			return false
		}
		t := loc.column.Tasks[loc.index]
		for i := range t.Subtasks {
			if t.Subtasks[i].ID == subtaskID {
				t.Subtasks[i].Completed = !t.Subtasks[i].Completed
				t.UpdatedAt = s.now()
				return true
			}
		}
		return false
	})
}

func (s *Store) DeleteSubtask(ctx context.Context, taskID, subtaskID string) bool {
	return s.apply(ctx, "delete_subtask", func(st *State) bool {
		loc, ok := st.locate(taskID)
		if !ok {
			return false
		}
		t := loc.column.Tasks[loc.index]
		for i := range t.Subtasks {
			if t.Subtasks[i].ID == subtaskID {
				t.Subtasks = append(t.Subtasks[:i:i], t.Subtasks[i+1:]...)
				t.UpdatedAt = s.now()
				return true
			}
		}
		return false
	})
}

// AddComment bumps the comment counter. Comment bodies are not stored.
func (s *Store) AddComment(ctx context.Context, taskID string) bool {
	return s.bumpCounter(ctx, "add_comment", taskID, func(t *models.Task) { t.CommentCount++ })
}

// AttachFile bumps the attachment counter.
func (s *Store) AttachFile(ctx context.Context, taskID string) bool {
	return s.bumpCounter(ctx, "attach_file", taskID, func(t *models.Task) { t.FileCount++ })
}

func (s *Store) bumpCounter(ctx context.Context, op, taskID string, fn func(t *models.Task)) bool {
	return s.apply(ctx, op, func(st *State) bool {
		loc, ok := st.locate(taskID)
		if !ok {
			return false
		}
		t := loc.column.Tasks[loc.index]
		fn(t)
		t.UpdatedAt = s.now()
		return true
	})
}

func removeAt(tasks []*models.Task, i int) []*models.Task {
	return append(tasks[:i:i], tasks[i+1:]...)
}

func insertAt(tasks []*models.Task, i int, t *models.Task) []*models.Task {
	out := make([]*models.Task, 0, len(tasks)+1)
	out = append(out, tasks[:i]...)
	out = append(out, t)
	return append(out, tasks[i:]...)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
