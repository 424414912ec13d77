package board

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/ldi/corkboard/pkg/models"
)

// AddBoard creates a board with the default columns. The new board becomes
// current only if no board was current.
func (s *Store) AddBoard(ctx context.Context, name, description string) (string, bool) {
	var id string
	name = strings.TrimSpace(name)
	ok := s.apply(ctx, "add_board", func(st *State) bool {
		if name == "" {
			return false
		}
		b := newBoard(name, description, s.defaults.Columns, s.now())
		st.Boards = append(st.Boards, b)
		if _, ok := st.Current(); !ok {
			st.CurrentBoardID = b.ID
		}
		id = b.ID
		return true
	})
	return id, ok
}

// DeleteBoard removes a board and every task in it. Deleting the only
// remaining board is refused. If the deleted board was current, the first
// remaining board becomes current.
func (s *Store) DeleteBoard(ctx context.Context, id string) bool {
	return s.apply(ctx, "delete_board", func(st *State) bool {
		if len(st.Boards) <= 1 {
			return false
		}
		for i, b := range st.Boards {
			if b.ID != id {
				continue
			}
			st.Boards = append(st.Boards[:i:i], st.Boards[i+1:]...)
			if st.CurrentBoardID == id {
				st.CurrentBoardID = st.Boards[0].ID
			}
			return true
		}
		return false
	})
}

// SwitchBoard moves the current pointer. Unknown ids are ignored.
func (s *Store) SwitchBoard(ctx context.Context, id string) bool {
	return s.apply(ctx, "switch_board", func(st *State) bool {
		if st.CurrentBoardID == id {
			return false
		}
		if _, ok := st.Board(id); !ok {
			return false
		}
		st.CurrentBoardID = id
		return true
	})
}

func (s *Store) UpdateBoard(ctx context.Context, id, name, description string) bool {
	name = strings.TrimSpace(name)
	return s.apply(ctx, "update_board", func(st *State) bool {
		b, ok := st.Board(id)
		if !ok || name == "" {
			return false
		}
		if b.Name == name && b.Description == description {
			return false
		}
		b.Name = name
		b.Description = description
		return true
	})
}

// AddColumn appends a column to a board. Names must be unique per board.
func (s *Store) AddColumn(ctx context.Context, boardID, name string) (string, bool) {
	var id string
	name = strings.TrimSpace(name)
	ok := s.apply(ctx, "add_column", func(st *State) bool {
		b, ok := st.Board(boardID)
		if !ok || name == "" {
			return false
		}
		if _, taken := b.ColumnByName(name); taken {
			return false
		}
		id = uuid.New().String()
		b.Columns = append(b.Columns, &models.Column{ID: id, Name: name, Tasks: []*models.Task{}})
		return true
	})
	return id, ok
}

// RenameColumn renames a column and rewrites the status of every task in it.
func (s *Store) RenameColumn(ctx context.Context, boardID, columnID, name string) bool {
	name = strings.TrimSpace(name)
	return s.apply(ctx, "rename_column", func(st *State) bool {
		b, ok := st.Board(boardID)
		if !ok || name == "" {
			return false
		}
		c, ok := b.Column(columnID)
		if !ok || c.Name == name {
			return false
		}
		if _, taken := b.ColumnByName(name); taken {
			return false
		}
		c.Name = name
		for _, t := range c.Tasks {
			t.Status = name
		}
		return true
	})
}

// DeleteColumn removes an empty column. Columns that still hold tasks, and
// the last column of a board, are kept.
func (s *Store) DeleteColumn(ctx context.Context, boardID, columnID string) bool {
	return s.apply(ctx, "delete_column", func(st *State) bool {
		b, ok := st.Board(boardID)
		if !ok || len(b.Columns) <= 1 {
			return false
		}
		for i, c := range b.Columns {
			if c.ID != columnID {
				continue
			}
			if len(c.Tasks) > 0 {
				return false
			}
			b.Columns = append(b.Columns[:i:i], b.Columns[i+1:]...)
			return true
		}
		return false
	})
}
