package board

import (
	"strings"
	"sync"
	"time"

	"github.com/ldi/corkboard/pkg/models"
)

// Bucket is one column's slice of a View.
type Bucket struct {
	ColumnID string         `json:"column_id"`
	Name     string         `json:"name"`
	Tasks    []*models.Task `json:"tasks"`
}

// View is the read model the presentation layer renders: the current
// board's tasks after search and filtering, grouped by column. Views are
// shared between callers and must be treated as read-only.
type View struct {
	BoardID   string        `json:"board_id"`
	BoardName string        `json:"board_name"`
	Filter    models.Filter `json:"filter"`
	Buckets   []Bucket      `json:"buckets"`
	Total     int           `json:"total"`
}

// Bucket returns the bucket for a column id.
func (v *View) Bucket(columnID string) (Bucket, bool) {
	for _, b := range v.Buckets {
		if b.ColumnID == columnID {
			return b, true
		}
	}
	return Bucket{}, false
}

type ColumnCount struct {
	ColumnID string `json:"column_id"`
	Name     string `json:"name"`
	Count    int    `json:"count"`
}

// Stats summarizes the current board, ignoring search and filters.
type Stats struct {
	BoardID       string                  `json:"board_id"`
	Total         int                     `json:"total"`
	PerColumn     []ColumnCount           `json:"per_column"`
	ByPriority    map[models.Priority]int `json:"by_priority"`
	Overdue       int                     `json:"overdue"`
	DueToday      int                     `json:"due_today"`
	SubtasksDone  int                     `json:"subtasks_done"`
	SubtasksTotal int                     `json:"subtasks_total"`
}

// ByOwner returns copies of the tasks of one board in column order.
func ByOwner(st *State, boardID string) []*models.Task {
	b, ok := st.Board(boardID)
	if !ok {
		return []*models.Task{}
	}
	out := make([]*models.Task, 0, b.TaskCount())
	for _, c := range b.Columns {
		for _, t := range c.Tasks {
			out = append(out, t.Clone())
		}
	}
	return out
}

// BySearch keeps tasks whose title, description or assignee contains query,
// ignoring case. A blank query returns tasks unchanged.
func BySearch(tasks []*models.Task, query string) []*models.Task {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return tasks
	}
	out := make([]*models.Task, 0, len(tasks))
	for _, t := range tasks {
		if strings.Contains(strings.ToLower(t.Title), q) ||
			strings.Contains(strings.ToLower(t.Description), q) ||
			strings.Contains(strings.ToLower(t.Assignee), q) {
			out = append(out, t)
		}
	}
	return out
}

// ByCriteria applies the priority, assignee, status and due-date filters.
// The query field of f is not consulted; BySearch handles it.
func ByCriteria(tasks []*models.Task, f models.Filter, today time.Time) []*models.Task {
	if f.Priority == "" && f.Assignee == "" && f.DueDate == "" && f.Status == "" {
		return tasks
	}
	out := make([]*models.Task, 0, len(tasks))
	for _, t := range tasks {
		if f.Priority != "" && t.Priority != f.Priority {
			continue
		}
		if f.Assignee != "" && !strings.EqualFold(t.Assignee, f.Assignee) {
			continue
		}
		if f.Status != "" && !strings.EqualFold(t.Status, f.Status) {
			continue
		}
		if f.DueDate != "" {
			due, ok := t.Due()
			if !ok || !f.DueDate.Contains(due, today) {
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

// ByStatus partitions tasks into one bucket per column, matching
// Task.Status against the column name. Relative order is preserved.
func ByStatus(tasks []*models.Task, columns []*models.Column) []Bucket {
	buckets := make([]Bucket, len(columns))
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		buckets[i] = Bucket{ColumnID: c.ID, Name: c.Name, Tasks: []*models.Task{}}
		index[c.Name] = i
	}
	for _, t := range tasks {
		if i, ok := index[t.Status]; ok {
			buckets[i].Tasks = append(buckets[i].Tasks, t)
		}
	}
	return buckets
}

// memo caches a single computed value keyed by its inputs. gen changes each
// time the value is recomputed, so downstream stages can key on it.
type memo[K comparable, V any] struct {
	valid bool
	key   K
	val   V
	gen   uint64
}

func (m *memo[K, V]) get(key K, compute func() V) (V, uint64) {
	if m.valid && m.key == key {
		return m.val, m.gen
	}
	m.val = compute()
	m.key = key
	m.valid = true
	m.gen++
	return m.val, m.gen
}

type ownerKey struct {
	version uint64
	boardID string
}

type ownerResult struct {
	boardID   string
	boardName string
	columns   []*models.Column
	tasks     []*models.Task
}

type searchKey struct {
	owner uint64
	query string
}

type criteriaKey struct {
	search   uint64
	priority models.Priority
	assignee string
	status   string
	due      models.DueBucket
	today    string
}

type statusKey struct {
	criteria uint64
	owner    uint64
	filter   models.Filter
}

type statsKey struct {
	owner uint64
	today string
}

// Selector serves memoized views of a Store. Each pipeline stage is
// recomputed only when one of its inputs changed identity.
type Selector struct {
	store *Store

	mu       sync.Mutex
	owner    memo[ownerKey, ownerResult]
	search   memo[searchKey, []*models.Task]
	criteria memo[criteriaKey, []*models.Task]
	status   memo[statusKey, *View]
	stats    memo[statsKey, *Stats]

	computations int
}

func newSelector(s *Store) *Selector {
	return &Selector{store: s}
}

// View returns ByStatus(ByCriteria(BySearch(ByOwner(state)))) for the current
// board and filter.
func (s *Store) View() *View {
	return s.selector.View()
}

// Stats returns counters for the current board.
func (s *Store) Stats() *Stats {
	return s.selector.Stats()
}

// Selector exposes the store's memoizing selector.
func (s *Store) Selector() *Selector {
	return s.selector
}

func (sel *Selector) ownerStage() (ownerResult, uint64, models.Filter, time.Time) {
	s := sel.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	boardID := s.state.CurrentBoardID
	res, gen := sel.owner.get(ownerKey{version: s.version, boardID: boardID}, func() ownerResult {
		sel.computations++
		r := ownerResult{boardID: boardID, tasks: ByOwner(s.state, boardID)}
		if b, ok := s.state.Board(boardID); ok {
			r.boardName = b.Name
			for _, c := range b.Columns {
				r.columns = append(r.columns, &models.Column{ID: c.ID, Name: c.Name})
			}
		}
		return r
	})
	return res, gen, s.filter, s.now()
}

func (sel *Selector) View() *View {
	sel.mu.Lock()
	defer sel.mu.Unlock()

	owner, ownerGen, filter, now := sel.ownerStage()

	searched, searchGen := sel.search.get(searchKey{owner: ownerGen, query: filter.Query}, func() []*models.Task {
		return BySearch(owner.tasks, filter.Query)
	})

	ck := criteriaKey{
		search:   searchGen,
		priority: filter.Priority,
		assignee: filter.Assignee,
		status:   filter.Status,
		due:      filter.DueDate,
	}
	if filter.DueDate != "" {
		ck.today = now.Format(models.DateLayout)
	}
	filtered, criteriaGen := sel.criteria.get(ck, func() []*models.Task {
		return ByCriteria(searched, filter, now)
	})

	view, _ := sel.status.get(statusKey{criteria: criteriaGen, owner: ownerGen, filter: filter}, func() *View {
		return &View{
			BoardID:   owner.boardID,
			BoardName: owner.boardName,
			Filter:    filter,
			Buckets:   ByStatus(filtered, owner.columns),
			Total:     len(filtered),
		}
	})
	return view
}

func (sel *Selector) Stats() *Stats {
	sel.mu.Lock()
	defer sel.mu.Unlock()

	owner, ownerGen, _, now := sel.ownerStage()
	today := now.Format(models.DateLayout)
	stats, _ := sel.stats.get(statsKey{owner: ownerGen, today: today}, func() *Stats {
		st := &Stats{
			BoardID:    owner.boardID,
			Total:      len(owner.tasks),
			ByPriority: make(map[models.Priority]int),
		}
		for _, b := range ByStatus(owner.tasks, owner.columns) {
			st.PerColumn = append(st.PerColumn, ColumnCount{ColumnID: b.ColumnID, Name: b.Name, Count: len(b.Tasks)})
		}
		for _, t := range owner.tasks {
			st.ByPriority[t.Priority]++
			st.SubtasksTotal += len(t.Subtasks)
			st.SubtasksDone += t.CompletedSubtasks()
			if due, ok := t.Due(); ok {
				if models.DueOverdue.Contains(due, now) {
					st.Overdue++
				}
				if models.DueToday.Contains(due, now) {
					st.DueToday++
				}
			}
		}
		return st
	})
	return stats
}

// Computations reports how many times the owner stage was rebuilt. Tests use
// it to check that unchanged inputs are served from cache.
func (sel *Selector) Computations() int {
	sel.mu.Lock()
	defer sel.mu.Unlock()
	return sel.computations
}
