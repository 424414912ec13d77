package board

import (
	"context"
	"testing"

	"github.com/ldi/corkboard/pkg/models"
)

func viewTitles(v *View, columnID string) []string {
	b, ok := v.Bucket(columnID)
	if !ok {
		return nil
	}
	titles := make([]string, len(b.Tasks))
	for i, t := range b.Tasks {
		titles[i] = t.Title
	}
	return titles
}

func seedSelectorStore(t *testing.T) *Store {
	t.Helper()
	s := newTestStore(t, WithClock(fixedClock("2024-03-10")))
	ctx := context.Background()
	boardID := s.CurrentBoardID()

	drafts := []struct {
		column string
		draft  TaskDraft
	}{
		{"todo", TaskDraft{Title: "Fix auth bug", Priority: models.PriorityHigh, Assignee: "alice", DueDate: "2024-03-09"}},
		{"todo", TaskDraft{Title: "Write docs", Priority: models.PriorityLow, DueDate: "2024-03-10"}},
		{"in-progress", TaskDraft{Title: "Dashboard", Description: "OAuth login flow", Priority: models.PriorityMedium, DueDate: "2024-03-11"}},
		{"in-progress", TaskDraft{Title: "Refactor", Priority: models.PriorityHigh, Assignee: "Author Bot", DueDate: "2024-03-16"}},
		{"done", TaskDraft{Title: "Set up CI", Priority: models.PriorityMedium, Assignee: "Bob", DueDate: "2024-03-17"}},
	}
	for _, d := range drafts {
		if _, ok := s.CreateTask(ctx, boardID, d.column, d.draft); !ok {
			t.Fatalf("failed to create %q", d.draft.Title)
		}
	}
	return s
}

func TestViewDefaultBuckets(t *testing.T) {
	s := seedSelectorStore(t)
	v := s.View()

	if len(v.Buckets) != 3 {
		t.Fatalf("expected 3 buckets, got %d", len(v.Buckets))
	}
	for i, id := range []string{"todo", "in-progress", "done"} {
		if v.Buckets[i].ColumnID != id {
			t.Errorf("bucket %d is %s, want %s", i, v.Buckets[i].ColumnID, id)
		}
	}
	if v.Total != 5 {
		t.Errorf("expected 5 tasks, got %d", v.Total)
	}
	if got := viewTitles(v, "in-progress"); !equalStrings(got, []string{"Dashboard", "Refactor"}) {
		t.Errorf("in-progress bucket: %v", got)
	}
}

func TestViewSearchComposition(t *testing.T) {
	s := seedSelectorStore(t)
	s.SetSearchQuery("AUTH")
	v := s.View()

	// Title, description and assignee all match case-insensitively.
	if got := viewTitles(v, "todo"); !equalStrings(got, []string{"Fix auth bug"}) {
		t.Errorf("todo bucket: %v", got)
	}
	if got := viewTitles(v, "in-progress"); !equalStrings(got, []string{"Dashboard", "Refactor"}) {
		t.Errorf("in-progress bucket: %v", got)
	}
	if got := viewTitles(v, "done"); len(got) != 0 {
		t.Errorf("done bucket should be empty: %v", got)
	}

	s.SetPriorityFilter(models.PriorityHigh)
	v = s.View()
	if v.Total != 2 {
		t.Errorf("expected 2 high-priority auth tasks, got %d", v.Total)
	}
	if got := viewTitles(v, "in-progress"); !equalStrings(got, []string{"Refactor"}) {
		t.Errorf("in-progress bucket: %v", got)
	}
}

func TestViewCriteria(t *testing.T) {
	tests := []struct {
		name   string
		filter func(s *Store)
		want   []string
	}{
		{"assignee is case-insensitive equality", func(s *Store) { s.SetAssigneeFilter("BOB") }, []string{"Set up CI"}},
		{"assignee is not a substring match", func(s *Store) { s.SetAssigneeFilter("bo") }, nil},
		{"overdue", func(s *Store) { s.SetDueDateFilter(models.DueOverdue) }, []string{"Fix auth bug"}},
		{"today", func(s *Store) { s.SetDueDateFilter(models.DueToday) }, []string{"Write docs"}},
		{"tomorrow", func(s *Store) { s.SetDueDateFilter(models.DueTomorrow) }, []string{"Dashboard"}},
		{"week", func(s *Store) { s.SetDueDateFilter(models.DueWeek) }, []string{"Write docs", "Dashboard", "Refactor"}},
		{"medium", func(s *Store) { s.SetPriorityFilter(models.PriorityMedium) }, []string{"Dashboard", "Set up CI"}},
		{"status matches column name ignoring case", func(s *Store) { s.SetStatusFilter("IN PROGRESS") }, []string{"Dashboard", "Refactor"}},
		{"status and priority", func(s *Store) {
			s.SetStatusFilter("In Progress")
			s.SetPriorityFilter(models.PriorityHigh)
		}, []string{"Refactor"}},
		{"unknown status", func(s *Store) { s.SetStatusFilter("Backlog") }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := seedSelectorStore(t)
			tt.filter(s)
			v := s.View()

			var got []string
			for _, b := range v.Buckets {
				for _, task := range b.Tasks {
					got = append(got, task.Title)
				}
			}
			if !equalStrings(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
			if v.Total != len(tt.want) {
				t.Errorf("total %d, want %d", v.Total, len(tt.want))
			}
		})
	}
}

func TestClearFilters(t *testing.T) {
	s := seedSelectorStore(t)
	s.SetSearchQuery("auth")
	s.SetPriorityFilter(models.PriorityLow)

	if !s.ClearFilters() {
		t.Fatal("ClearFilters reported no change")
	}
	if !s.Filter().IsZero() {
		t.Errorf("filter not cleared: %+v", s.Filter())
	}
	if s.View().Total != 5 {
		t.Error("view still filtered after clearing")
	}
	if s.ClearFilters() {
		t.Error("clearing twice should be a no-op")
	}
}

func TestViewMemoized(t *testing.T) {
	s := seedSelectorStore(t)
	sel := s.Selector()

	v1 := s.View()
	n := sel.Computations()
	v2 := s.View()
	if v1 != v2 {
		t.Error("unchanged inputs should return the identical view")
	}
	if sel.Computations() != n {
		t.Error("unchanged inputs should not recompute")
	}

	// A no-op transition keeps the cache.
	s.DeleteTask(context.Background(), "missing")
	if s.View() != v1 {
		t.Error("a no-op transition invalidated the view")
	}

	// A filter change reuses the owner stage.
	s.SetSearchQuery("docs")
	v3 := s.View()
	if v3 == v1 {
		t.Error("filter change should produce a new view")
	}
	if sel.Computations() != n {
		t.Error("filter change should not rebuild the owner stage")
	}

	s.SetSearchQuery("")
	addTasks(t, s, "done", "New")
	v4 := s.View()
	if v4 == v1 || sel.Computations() != n+1 {
		t.Error("entity change should rebuild the owner stage")
	}
	if got := viewTitles(v4, "done"); !equalStrings(got, []string{"Set up CI", "New"}) {
		t.Errorf("done bucket: %v", got)
	}
}

func TestViewFollowsCurrentBoard(t *testing.T) {
	s := seedSelectorStore(t)
	ctx := context.Background()
	second, _ := s.AddBoard(ctx, "Second", "")

	s.SwitchBoard(ctx, second)
	v := s.View()
	if v.BoardID != second || v.BoardName != "Second" || v.Total != 0 {
		t.Errorf("unexpected view after switch: %+v", v)
	}
}

func TestStats(t *testing.T) {
	s := seedSelectorStore(t)
	ctx := context.Background()
	s.SetSearchQuery("auth")

	id, _ := s.CreateTask(ctx, s.CurrentBoardID(), "done", TaskDraft{Title: "Checklist", Subtasks: []string{"a", "b"}})
	task, _ := s.Task(id)
	s.ToggleSubtask(ctx, id, task.Subtasks[0].ID)

	st := s.Stats()
	if st.Total != 6 {
		t.Errorf("stats must ignore filters, total %d", st.Total)
	}
	counts := map[string]int{}
	for _, c := range st.PerColumn {
		counts[c.ColumnID] = c.Count
	}
	if counts["todo"] != 2 || counts["in-progress"] != 2 || counts["done"] != 2 {
		t.Errorf("unexpected per-column counts: %v", counts)
	}
	if st.Overdue != 1 || st.DueToday != 1 {
		t.Errorf("overdue %d, due today %d", st.Overdue, st.DueToday)
	}
	if st.SubtasksDone != 1 || st.SubtasksTotal != 2 {
		t.Errorf("subtasks %d/%d", st.SubtasksDone, st.SubtasksTotal)
	}
	if st.ByPriority[models.PriorityHigh] != 2 || st.ByPriority[models.PriorityMedium] != 3 {
		t.Errorf("unexpected priority counts: %v", st.ByPriority)
	}
	if s.Stats() != st {
		t.Error("unchanged inputs should return the identical stats")
	}
}

func TestPureSelectors(t *testing.T) {
	tasks := []*models.Task{
		{Title: "one", Status: "A"},
		{Title: "two", Status: "B"},
		{Title: "three", Status: "A"},
		{Title: "orphan", Status: "Z"},
	}
	if got := BySearch(tasks, "  "); len(got) != len(tasks) {
		t.Error("blank query should be identity")
	}
	if got := BySearch(tasks, "T"); len(got) != 2 {
		t.Errorf("expected two and three, got %d", len(got))
	}

	buckets := ByStatus(tasks, []*models.Column{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}})
	if len(buckets) != 2 || len(buckets[0].Tasks) != 2 || len(buckets[1].Tasks) != 1 {
		t.Fatalf("unexpected buckets: %+v", buckets)
	}
	if buckets[0].Tasks[0].Title != "one" || buckets[0].Tasks[1].Title != "three" {
		t.Error("relative order not preserved")
	}
}
