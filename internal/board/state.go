package board

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ldi/corkboard/pkg/models"
)

// SchemaVersion is written into every serialized state.
const SchemaVersion = 1

// State is the persisted entity graph. Filter criteria are not part of it.
type State struct {
	Schema         int             `json:"schema"`
	Boards         []*models.Board `json:"boards"`
	CurrentBoardID string          `json:"current_board_id"`
}

// Defaults configures the board a fresh state starts with.
type Defaults struct {
	BoardName        string
	BoardDescription string
	Columns          []models.DefaultColumn
}

func defaultDefaults() Defaults {
	return Defaults{
		BoardName:        "Default Project",
		BoardDescription: "Your default project",
		Columns:          models.DefaultColumns,
	}
}

// NewState returns a state holding a single board built from d.
func NewState(d Defaults, now time.Time) *State {
	b := newBoard(d.BoardName, d.BoardDescription, d.Columns, now)
	return &State{
		Schema:         SchemaVersion,
		Boards:         []*models.Board{b},
		CurrentBoardID: b.ID,
	}
}

func newBoard(name, description string, columns []models.DefaultColumn, now time.Time) *models.Board {
	if len(columns) == 0 {
		columns = models.DefaultColumns
	}
	b := &models.Board{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		CreatedAt:   now,
		Columns:     make([]*models.Column, 0, len(columns)),
	}
	for _, c := range columns {
		id := c.ID
		if id == "" {
			id = uuid.New().String()
		}
		b.Columns = append(b.Columns, &models.Column{ID: id, Name: c.Name, Tasks: []*models.Task{}})
	}
	return b
}

func uniqueColumns(columns []models.DefaultColumn) []models.DefaultColumn {
	out := make([]models.DefaultColumn, 0, len(columns))
	names := make(map[string]bool, len(columns))
	ids := make(map[string]bool, len(columns))
	for _, c := range columns {
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" || names[c.Name] || (c.ID != "" && ids[c.ID]) {
			continue
		}
		names[c.Name] = true
		if c.ID != "" {
			ids[c.ID] = true
		}
		out = append(out, c)
	}
	return out
}

// Clone returns a deep copy of s.
func (s *State) Clone() *State {
	out := &State{
		Schema:         s.Schema,
		CurrentBoardID: s.CurrentBoardID,
		Boards:         make([]*models.Board, 0, len(s.Boards)),
	}
	for _, b := range s.Boards {
		out.Boards = append(out.Boards, b.Clone())
	}
	return out
}

// Board looks up a board by id.
func (s *State) Board(id string) (*models.Board, bool) {
	for _, b := range s.Boards {
		if b.ID == id {
			return b, true
		}
	}
	return nil, false
}

// Current returns the board CurrentBoardID points at.
func (s *State) Current() (*models.Board, bool) {
	return s.Board(s.CurrentBoardID)
}

// location pins a task to its containers.
type location struct {
	board  *models.Board
	column *models.Column
	index  int
}

func (s *State) locate(taskID string) (location, bool) {
	for _, b := range s.Boards {
		for _, c := range b.Columns {
			if i := c.IndexOf(taskID); i >= 0 {
				return location{board: b, column: c, index: i}, true
			}
		}
	}
	return location{}, false
}

// normalize repairs a loaded state so the package invariants hold. Anything
// it cannot make sense of is dropped rather than rejected.
func (s *State) normalize(d Defaults, now time.Time) {
	s.Schema = SchemaVersion

	boards := s.Boards[:0]
	seenBoards := make(map[string]bool)
	for _, b := range s.Boards {
		if b == nil {
			continue
		}
		if b.ID == "" || seenBoards[b.ID] {
			b.ID = uuid.New().String()
		}
		seenBoards[b.ID] = true
		if strings.TrimSpace(b.Name) == "" {
			b.Name = "Untitled"
		}
		if b.CreatedAt.IsZero() {
			b.CreatedAt = now
		}
		boards = append(boards, b)
	}
	s.Boards = boards

	if len(s.Boards) == 0 {
		fresh := NewState(d, now)
		s.Boards = fresh.Boards
		s.CurrentBoardID = fresh.CurrentBoardID
		return
	}

	seenTasks := make(map[string]bool)
	for _, b := range s.Boards {
		normalizeColumns(b, d, seenTasks, now)
	}

	if _, ok := s.Current(); !ok {
		s.CurrentBoardID = s.Boards[0].ID
	}
}

func normalizeColumns(b *models.Board, d Defaults, seenTasks map[string]bool, now time.Time) {
	cols := b.Columns[:0]
	seenIDs := make(map[string]bool)
	seenNames := make(map[string]bool)
	for _, c := range b.Columns {
		if c == nil {
			continue
		}
		if c.ID == "" || seenIDs[c.ID] {
			c.ID = uuid.New().String()
		}
		if strings.TrimSpace(c.Name) == "" {
			c.Name = c.ID
		}
		for seenNames[c.Name] {
			c.Name += "'"
		}
		seenIDs[c.ID] = true
		seenNames[c.Name] = true

		tasks := make([]*models.Task, 0, len(c.Tasks))
		for _, t := range c.Tasks {
			// A task found in two columns keeps its first position only.
			if t == nil || t.ID == "" || seenTasks[t.ID] {
				continue
			}
			seenTasks[t.ID] = true
			normalizeTask(t, b.ID, c.Name, now)
			tasks = append(tasks, t)
		}
		c.Tasks = tasks
		cols = append(cols, c)
	}
	b.Columns = cols
	if len(b.Columns) == 0 {
		b.Columns = newBoard(b.Name, "", d.Columns, now).Columns
	}
}

func normalizeTask(t *models.Task, boardID, status string, now time.Time) {
	t.BoardID = boardID
	t.Status = status
	if strings.TrimSpace(t.Title) == "" {
		t.Title = "Untitled"
	}
	if !t.Priority.Valid() {
		t.Priority = models.PriorityMedium
	}
	if models.ValidateDueDate(t.DueDate) != nil {
		t.DueDate = ""
	}
	if t.CommentCount < 0 {
		t.CommentCount = 0
	}
	if t.FileCount < 0 {
		t.FileCount = 0
	}
	subtasks := models.CleanSubtasks(t.Subtasks)
	for i := range subtasks {
		if subtasks[i].ID == "" {
			subtasks[i].ID = uuid.New().String()
		}
	}
	t.Subtasks = subtasks
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
}
