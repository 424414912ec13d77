package board

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ldi/corkboard/pkg/models"
)

type fakePersister struct {
	loaded  *State
	loadErr error
	saveErr error
	saves   []*State
}

func (p *fakePersister) Load(context.Context) (*State, error) {
	return p.loaded, p.loadErr
}

func (p *fakePersister) Save(_ context.Context, st *State) error {
	p.saves = append(p.saves, st.Clone())
	return p.saveErr
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock(day string) func() time.Time {
	t, err := time.Parse(models.DateLayout, day)
	if err != nil {
		panic(err)
	}
	t = t.Add(10 * time.Hour)
	return func() time.Time { return t }
}

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	return New(context.Background(), opts...)
}

// addTasks creates one task per title in the given column of the current
// board and returns their ids in order.
func addTasks(t *testing.T, s *Store, columnID string, titles ...string) []string {
	t.Helper()
	ids := make([]string, 0, len(titles))
	for _, title := range titles {
		id, ok := s.CreateTask(context.Background(), s.CurrentBoardID(), columnID, TaskDraft{Title: title})
		if !ok {
			t.Fatalf("failed to create task %q", title)
		}
		ids = append(ids, id)
	}
	return ids
}

func columnTitles(t *testing.T, s *Store, columnID string) []string {
	t.Helper()
	b, ok := s.CurrentBoard()
	if !ok {
		t.Fatal("no current board")
	}
	c, ok := b.Column(columnID)
	if !ok {
		t.Fatalf("column %s not found", columnID)
	}
	titles := make([]string, len(c.Tasks))
	for i, task := range c.Tasks {
		titles[i] = task.Title
	}
	return titles
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// checkInvariants asserts that every task sits in exactly one column and
// carries that column's name and board id.
func checkInvariants(t *testing.T, st *State) {
	t.Helper()
	if len(st.Boards) == 0 {
		t.Fatal("state has no boards")
	}
	if _, ok := st.Current(); !ok {
		t.Errorf("current board %q does not exist", st.CurrentBoardID)
	}
	seen := make(map[string]string)
	for _, b := range st.Boards {
		for _, c := range b.Columns {
			for _, task := range c.Tasks {
				if prev, dup := seen[task.ID]; dup {
					t.Errorf("task %s appears in %s and %s", task.ID, prev, c.ID)
				}
				seen[task.ID] = c.ID
				if task.Status != c.Name {
					t.Errorf("task %s has status %q in column %q", task.ID, task.Status, c.Name)
				}
				if task.BoardID != b.ID {
					t.Errorf("task %s has board %q, lives in %q", task.ID, task.BoardID, b.ID)
				}
			}
		}
	}
}

func TestNewDefaults(t *testing.T) {
	s := newTestStore(t)

	boards := s.Boards()
	if len(boards) != 1 {
		t.Fatalf("expected 1 board, got %d", len(boards))
	}
	b := boards[0]
	if b.Name != "Default Project" || b.Description != "Your default project" {
		t.Errorf("unexpected default board: %q %q", b.Name, b.Description)
	}
	if s.CurrentBoardID() != b.ID {
		t.Errorf("default board is not current")
	}

	want := []models.DefaultColumn{{ID: "todo", Name: "To Do"}, {ID: "in-progress", Name: "In Progress"}, {ID: "done", Name: "Done"}}
	if len(b.Columns) != len(want) {
		t.Fatalf("expected %d columns, got %d", len(want), len(b.Columns))
	}
	for i, c := range b.Columns {
		if c.ID != want[i].ID || c.Name != want[i].Name {
			t.Errorf("column %d: got %s/%s, want %s/%s", i, c.ID, c.Name, want[i].ID, want[i].Name)
		}
		if len(c.Tasks) != 0 {
			t.Errorf("column %s should start empty", c.ID)
		}
	}
}

func TestNewWithDefaults(t *testing.T) {
	s := newTestStore(t, WithDefaults(Defaults{
		BoardName: "Work",
		Columns:   []models.DefaultColumn{{Name: "Backlog"}, {ID: "done", Name: "Done"}},
	}))

	b, _ := s.CurrentBoard()
	if b.Name != "Work" {
		t.Errorf("expected board Work, got %s", b.Name)
	}
	if len(b.Columns) != 2 || b.Columns[0].Name != "Backlog" || b.Columns[0].ID == "" || b.Columns[1].ID != "done" {
		t.Errorf("unexpected columns: %+v, %+v", b.Columns[0], b.Columns[1])
	}
}

func TestWithDefaultsDropsRepeatedColumns(t *testing.T) {
	s := newTestStore(t, WithDefaults(Defaults{
		Columns: []models.DefaultColumn{
			{Name: "Todo"}, {Name: " Todo "}, {Name: ""}, {ID: "done", Name: "Done"}, {ID: "done", Name: "Shipped"},
		},
	}))
	addTasks(t, s, "done", "A")

	b, _ := s.CurrentBoard()
	var names []string
	for _, c := range b.Columns {
		names = append(names, c.Name)
	}
	if !equalStrings(names, []string{"Todo", "Done"}) {
		t.Fatalf("expected columns [Todo Done], got %v", names)
	}
	if got := viewTitles(s.View(), "done"); !equalStrings(got, []string{"A"}) {
		t.Errorf("done bucket: %v", got)
	}

	id, _ := s.AddBoard(context.Background(), "Second", "")
	second, _ := s.Board(id)
	if len(second.Columns) != 2 {
		t.Errorf("new boards should use the cleaned columns, got %d", len(second.Columns))
	}
}

func TestNewLoadsPersistedState(t *testing.T) {
	seed := newTestStore(t)
	addTasks(t, seed, "todo", "A", "B")
	stored := seed.Snapshot()

	s := newTestStore(t, WithPersister(&fakePersister{loaded: stored}))
	if got := columnTitles(t, s, "todo"); !equalStrings(got, []string{"A", "B"}) {
		t.Errorf("expected loaded tasks, got %v", got)
	}
	if s.CurrentBoardID() != stored.CurrentBoardID {
		t.Error("current board not restored")
	}
}

func TestNewFallsBackOnLoadError(t *testing.T) {
	s := newTestStore(t, WithPersister(&fakePersister{loadErr: errors.New("corrupt")}))

	if len(s.Boards()) != 1 {
		t.Fatalf("expected a single default board, got %d", len(s.Boards()))
	}
	checkInvariants(t, s.Snapshot())
}

func TestNewNormalizesLoadedState(t *testing.T) {
	loaded := &State{
		CurrentBoardID: "missing",
		Boards: []*models.Board{
			{
				ID:   "b1",
				Name: "",
				Columns: []*models.Column{
					{ID: "c1", Name: "Open", Tasks: []*models.Task{
						{ID: "t1", Title: "", Status: "stale", Priority: "urgent"},
						nil,
						{ID: "t2", Title: "Two", DueDate: "not-a-date", CommentCount: -3,
							Subtasks: []models.Subtask{{Title: " "}, {Title: "keep"}}},
					}},
					{ID: "c2", Name: "Open", Tasks: []*models.Task{{ID: "t1", Title: "dup"}}},
				},
			},
			{ID: "b2", Name: "Empty"},
		},
	}

	s := newTestStore(t, WithPersister(&fakePersister{loaded: loaded}))
	st := s.Snapshot()
	checkInvariants(t, st)

	if st.Schema != SchemaVersion {
		t.Errorf("expected schema %d, got %d", SchemaVersion, st.Schema)
	}
	if st.CurrentBoardID != "b1" {
		t.Errorf("expected current board to fall back to b1, got %s", st.CurrentBoardID)
	}

	b1, _ := st.Board("b1")
	if b1.Name == "" {
		t.Error("blank board name was not repaired")
	}
	if b1.Columns[0].Name == b1.Columns[1].Name {
		t.Error("duplicate column names were not made unique")
	}
	if len(b1.Columns[0].Tasks) != 2 || len(b1.Columns[1].Tasks) != 0 {
		t.Fatalf("expected duplicate and nil tasks dropped, got %d/%d", len(b1.Columns[0].Tasks), len(b1.Columns[1].Tasks))
	}

	t1 := b1.Columns[0].Tasks[0]
	if t1.Title == "" || t1.Priority != models.PriorityMedium {
		t.Errorf("task t1 not repaired: %+v", t1)
	}
	t2 := b1.Columns[0].Tasks[1]
	if t2.DueDate != "" || t2.CommentCount != 0 {
		t.Errorf("task t2 not repaired: %+v", t2)
	}
	if len(t2.Subtasks) != 1 || t2.Subtasks[0].ID == "" {
		t.Errorf("expected one subtask with an id, got %+v", t2.Subtasks)
	}

	b2, _ := st.Board("b2")
	if len(b2.Columns) != 3 {
		t.Errorf("board without columns should get the defaults, got %d", len(b2.Columns))
	}
}

func TestTransitionsSaveState(t *testing.T) {
	p := &fakePersister{}
	s := newTestStore(t, WithPersister(p))
	ctx := context.Background()

	ids := addTasks(t, s, "todo", "A")
	if len(p.saves) != 1 {
		t.Fatalf("expected 1 save, got %d", len(p.saves))
	}
	if p.saves[0].Boards[0].TaskCount() != 1 {
		t.Error("saved state does not include the new task")
	}

	// No-ops are not saved.
	s.DeleteTask(ctx, "missing")
	s.SetSearchQuery("anything")
	if len(p.saves) != 1 {
		t.Errorf("expected no further saves, got %d", len(p.saves))
	}

	s.MoveTask(ctx, ids[0], "done", 0)
	if len(p.saves) != 2 {
		t.Errorf("expected 2 saves, got %d", len(p.saves))
	}
}

func TestSaveFailureIsSwallowed(t *testing.T) {
	p := &fakePersister{saveErr: errors.New("disk full")}
	s := newTestStore(t, WithPersister(p))

	ids := addTasks(t, s, "todo", "A", "B")
	if len(ids) != 2 {
		t.Fatal("transitions should still apply when saving fails")
	}
	if got := columnTitles(t, s, "todo"); !equalStrings(got, []string{"A", "B"}) {
		t.Errorf("in-memory state lost: %v", got)
	}
}

func TestVersionAndOnChange(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	calls := 0
	s.OnChange(func(context.Context) { calls++ })

	v0 := s.Version()
	addTasks(t, s, "todo", "A")
	if s.Version() == v0 {
		t.Error("version did not change after a transition")
	}
	if calls != 1 {
		t.Errorf("expected 1 change callback, got %d", calls)
	}

	v1 := s.Version()
	s.SwitchBoard(ctx, "missing")
	if s.Version() != v1 || calls != 1 {
		t.Error("a no-op must not bump the version or fire the callback")
	}

	s.DisableOnChange()
	addTasks(t, s, "todo", "B")
	if calls != 1 {
		t.Error("callback fired while disabled")
	}
	s.EnableOnChange()
	addTasks(t, s, "todo", "C")
	if calls != 2 {
		t.Errorf("expected 2 callbacks, got %d", calls)
	}
}

func TestOnChangeHooksRunInOrderAfterUnlock(t *testing.T) {
	s := newTestStore(t)

	var order []string
	var seen []uint64
	s.OnChange(func(context.Context) {
		order = append(order, "first")
		// Reading here would deadlock if hooks ran under the write lock.
		seen = append(seen, s.Version())
	})
	s.OnChange(func(context.Context) { order = append(order, "second") })

	addTasks(t, s, "todo", "A")
	if !equalStrings(order, []string{"first", "second"}) {
		t.Errorf("expected hooks in registration order, got %v", order)
	}
	if len(seen) != 1 || seen[0] != s.Version() {
		t.Errorf("expected the hook to observe the new version, got %v", seen)
	}
}

func TestReadsReturnCopies(t *testing.T) {
	s := newTestStore(t)
	ids := addTasks(t, s, "todo", "A")

	task, ok := s.Task(ids[0])
	if !ok {
		t.Fatal("task not found")
	}
	task.Title = "mutated"

	b, _ := s.CurrentBoard()
	b.Columns[0].Tasks = nil

	snap := s.Snapshot()
	snap.Boards[0].Name = "mutated"

	if got := columnTitles(t, s, "todo"); !equalStrings(got, []string{"A"}) {
		t.Errorf("store state changed through a read copy: %v", got)
	}
	if b, _ := s.CurrentBoard(); b.Name == "mutated" {
		t.Error("snapshot shares memory with the store")
	}
}

func TestLocateAndColumnTaskIDs(t *testing.T) {
	s := newTestStore(t)
	ids := addTasks(t, s, "in-progress", "A", "B")

	col, idx, ok := s.Locate(ids[1])
	if !ok || col != "in-progress" || idx != 1 {
		t.Errorf("Locate = %s %d %v", col, idx, ok)
	}
	if _, _, ok := s.Locate("missing"); ok {
		t.Error("expected missing task not to be located")
	}

	got, ok := s.ColumnTaskIDs("in-progress")
	if !ok || !equalStrings(got, ids) {
		t.Errorf("ColumnTaskIDs = %v %v", got, ok)
	}
	if _, ok := s.ColumnTaskIDs("nope"); ok {
		t.Error("expected unknown column to report false")
	}
}

func TestConcurrentTransitions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seed := addTasks(t, s, "todo", "A", "B", "C", "D")
	boardID := s.CurrentBoardID()
	columns := []string{"todo", "in-progress", "done"}

	const (
		writers = 8
		readers = 4
		rounds  = 50
	)
	var created, deleted atomic.Int64
	var wg sync.WaitGroup

	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			var mine []string
			for i := 0; i < rounds; i++ {
				col := columns[(w+i)%len(columns)]
				if id, ok := s.CreateTask(ctx, boardID, col, TaskDraft{Title: fmt.Sprintf("w%d-%d", w, i)}); ok {
					created.Add(1)
					mine = append(mine, id)
				}
				s.MoveTask(ctx, seed[(w+i)%len(seed)], columns[i%len(columns)], i%3)
				s.ReorderInColumn(ctx, col, 0, 1)
				if len(mine) > 0 {
					s.ReorderTask(ctx, col, mine[len(mine)-1], seed[w%len(seed)])
				}
				if len(mine) > 2 && i%4 == 0 {
					if s.DeleteTask(ctx, mine[0]) {
						deleted.Add(1)
					}
					mine = mine[1:]
				}
			}
		}(w)
	}

	for r := 0; r < readers; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				switch (r + i) % 4 {
				case 0:
					s.SetSearchQuery("w")
				case 1:
					s.SetPriorityFilter(models.PriorityMedium)
				case 2:
					s.SetStatusFilter("Done")
				default:
					s.ClearFilters()
				}
				if v := s.View(); v == nil || len(v.Buckets) != len(columns) {
					t.Errorf("unexpected view %+v", v)
					return
				}
				if st := s.Stats(); st == nil {
					t.Error("nil stats")
					return
				}
				if len(s.Snapshot().Boards) == 0 {
					t.Error("snapshot lost every board")
					return
				}
			}
		}(r)
	}
	wg.Wait()

	snap := s.Snapshot()
	checkInvariants(t, snap)
	b, _ := snap.Current()
	want := len(seed) + int(created.Load()) - int(deleted.Load())
	if got := b.TaskCount(); got != want {
		t.Errorf("expected %d tasks after concurrent transitions, got %d", want, got)
	}
	if got := s.Stats().Total; got != want {
		t.Errorf("stats total %d, want %d", got, want)
	}
}
