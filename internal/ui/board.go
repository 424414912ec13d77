package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/ldi/corkboard/internal/board"
	"github.com/ldi/corkboard/internal/dnd"
	"github.com/ldi/corkboard/internal/ui/components"
	"github.com/ldi/corkboard/pkg/models"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	filterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

const (
	defaultWidth   = 100
	minColumnWidth = 24
)

var (
	priorityCycle = []models.Priority{"", models.PriorityHigh, models.PriorityMedium, models.PriorityLow}
	dueCycle      = []models.DueBucket{"", models.DueToday, models.DueTomorrow, models.DueWeek, models.DueOverdue}
)

// pickup is a task held by the keyboard drag.
type pickup struct {
	taskID   string
	columnID string
}

// BoardModel is the interactive board. Moving a task is a keyboard drag:
// pick it up, move the cursor to the target, and drop it. The drop is
// reported to the reconciler as a single drag-end event.
type BoardModel struct {
	ctx        context.Context
	store      *board.Store
	reconciler *dnd.Reconciler
	keys       KeyMap

	view *board.View
	col  int
	row  int
	drag *pickup

	searching bool
	search    textinput.Model

	detail     *components.Detail
	showDetail bool

	width    int
	height   int
	status   string
	quitting bool
}

func NewBoardModel(ctx context.Context, store *board.Store, reconciler *dnd.Reconciler) BoardModel {
	ti := textinput.New()
	ti.Placeholder = "search title, description, assignee"
	ti.Prompt = "/ "

	m := BoardModel{
		ctx:        ctx,
		store:      store,
		reconciler: reconciler,
		keys:       DefaultKeyMap,
		search:     ti,
		detail:     components.NewDetail(defaultWidth, 8),
		width:      defaultWidth,
	}
	m.refresh()
	return m
}

func (m BoardModel) Init() tea.Cmd {
	return nil
}

// refresh re-reads the view and keeps the cursor inside it.
func (m *BoardModel) refresh() {
	m.view = m.store.View()
	if n := len(m.view.Buckets); m.col >= n {
		m.col = max(n-1, 0)
	}
	m.clampRow()
	m.detail.SetTask(m.selectedTask())
}

func (m *BoardModel) bucket() (board.Bucket, bool) {
	if m.col < 0 || m.col >= len(m.view.Buckets) {
		return board.Bucket{}, false
	}
	return m.view.Buckets[m.col], true
}

// rowLimit is the highest row the cursor may rest on. While dragging, the
// slot after the last task is a valid target.
func (m *BoardModel) rowLimit() int {
	b, ok := m.bucket()
	if !ok {
		return 0
	}
	if m.drag != nil {
		return len(b.Tasks)
	}
	return max(len(b.Tasks)-1, 0)
}

func (m *BoardModel) clampRow() {
	m.row = min(max(m.row, 0), m.rowLimit())
}

func (m *BoardModel) selectedTask() *models.Task {
	b, ok := m.bucket()
	if !ok || m.row >= len(b.Tasks) {
		return nil
	}
	return b.Tasks[m.row]
}

// focus moves the cursor onto a task if it is visible.
func (m *BoardModel) focus(taskID string) {
	for ci, b := range m.view.Buckets {
		for ti, t := range b.Tasks {
			if t.ID == taskID {
				m.col, m.row = ci, ti
				m.detail.SetTask(t)
				return
			}
		}
	}
}

func (m BoardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.detail.SetSize(msg.Width, max(msg.Height/4, 4))
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateBoard(msg)
	}
	return m, nil
}

func (m BoardModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.searching = false
		m.search.Blur()
		m.store.SetSearchQuery(m.search.Value())
		m.refresh()
		return m, nil
	case tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m BoardModel) updateBoard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		m.row--
		m.clampRow()
		m.detail.SetTask(m.selectedTask())

	case key.Matches(msg, m.keys.Down):
		m.row++
		m.clampRow()
		m.detail.SetTask(m.selectedTask())

	case key.Matches(msg, m.keys.Left):
		if m.col > 0 {
			m.col--
			m.clampRow()
			m.detail.SetTask(m.selectedTask())
		}

	case key.Matches(msg, m.keys.Right):
		if m.col < len(m.view.Buckets)-1 {
			m.col++
			m.clampRow()
			m.detail.SetTask(m.selectedTask())
		}

	case key.Matches(msg, m.keys.Grab):
		if m.drag != nil {
			m.drop()
			break
		}
		t := m.selectedTask()
		b, ok := m.bucket()
		if t == nil || !ok {
			break
		}
		m.drag = &pickup{taskID: t.ID, columnID: b.ColumnID}
		m.status = fmt.Sprintf("Picked up %q", t.Title)

	case key.Matches(msg, m.keys.Drop):
		if m.drag != nil {
			m.drop()
		}

	case key.Matches(msg, m.keys.Cancel):
		if m.drag != nil {
			m.drag = nil
			m.clampRow()
			m.status = "Drag cancelled"
		}

	case key.Matches(msg, m.keys.Search):
		m.searching = true
		m.search.SetValue(m.store.Filter().Query)
		m.search.CursorEnd()
		return m, m.search.Focus()

	case key.Matches(msg, m.keys.CyclePriority):
		m.store.SetPriorityFilter(next(priorityCycle, m.store.Filter().Priority))
		m.refresh()

	case key.Matches(msg, m.keys.CycleDue):
		m.store.SetDueDateFilter(next(dueCycle, m.store.Filter().DueDate))
		m.refresh()

	case key.Matches(msg, m.keys.ClearFilters):
		m.store.ClearFilters()
		m.refresh()

	case key.Matches(msg, m.keys.NextBoard):
		m.switchBoard()

	case key.Matches(msg, m.keys.ToggleDetail):
		m.showDetail = !m.showDetail

	case key.Matches(msg, m.keys.ToggleSubtask):
		m.toggleSubtask()

	case key.Matches(msg, m.keys.DeleteTask):
		if t := m.selectedTask(); t != nil && m.drag == nil {
			if m.store.DeleteTask(m.ctx, t.ID) {
				m.status = fmt.Sprintf("Deleted %q", t.Title)
			}
			m.refresh()
		}
	}
	return m, nil
}

// DragEnd builds the event for dropping the held task at the cursor.
func (m *BoardModel) DragEnd() (dnd.DragEnd, bool) {
	b, ok := m.bucket()
	if m.drag == nil || !ok {
		return dnd.DragEnd{}, false
	}
	ev := dnd.DragEnd{
		ActiveID:          m.drag.taskID,
		ActiveContainerID: m.drag.columnID,
		OverContainerID:   b.ColumnID,
	}
	switch {
	case m.row < len(b.Tasks):
		ev.OverID = b.Tasks[m.row].ID
	case b.ColumnID == m.drag.columnID && len(b.Tasks) > 0:
		// The end slot of the task's own column means "after the last task".
		ev.OverID = b.Tasks[len(b.Tasks)-1].ID
	default:
		ev.OverID = b.ColumnID
	}
	return ev, true
}

func (m *BoardModel) drop() {
	ev, ok := m.DragEnd()
	m.drag = nil
	if !ok {
		return
	}
	res := m.reconciler.Apply(m.ctx, ev)
	switch res.Outcome {
	case dnd.Moved:
		m.status = fmt.Sprintf("Moved to %s", m.columnName(res.ToID))
	case dnd.Reordered:
		m.status = fmt.Sprintf("Reordered %d → %d", res.OldIndex+1, res.NewIndex+1)
	default:
		m.status = "Nothing to do: " + res.Reason
	}
	m.refresh()
	m.focus(ev.ActiveID)
}

func (m *BoardModel) columnName(id string) string {
	if b, ok := m.view.Bucket(id); ok {
		return b.Name
	}
	return id
}

func (m *BoardModel) switchBoard() {
	boards := m.store.Boards()
	if len(boards) < 2 {
		return
	}
	current := m.store.CurrentBoardID()
	for i, b := range boards {
		if b.ID == current {
			nb := boards[(i+1)%len(boards)]
			m.store.SwitchBoard(m.ctx, nb.ID)
			m.status = "Switched to " + nb.Name
			break
		}
	}
	m.drag = nil
	m.col, m.row = 0, 0
	m.refresh()
}

func (m *BoardModel) toggleSubtask() {
	t := m.selectedTask()
	if t == nil {
		return
	}
	for _, st := range t.Subtasks {
		if !st.Completed {
			m.store.ToggleSubtask(m.ctx, t.ID, st.ID)
			m.status = fmt.Sprintf("Checked %q", st.Title)
			m.refresh()
			return
		}
	}
}

func next[T comparable](cycle []T, cur T) T {
	for i, v := range cycle {
		if v == cur {
			return cycle[(i+1)%len(cycle)]
		}
	}
	return cycle[0]
}

func (m BoardModel) View() string {
	if m.quitting {
		return ""
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render(m.view.BoardName))
	if summary := filterSummary(m.view.Filter); summary != "" {
		s.WriteString("  " + filterStyle.Render(summary))
	}
	s.WriteString("\n")

	n := len(m.view.Buckets)
	width := m.width
	if width <= 0 {
		width = defaultWidth
	}
	colWidth := minColumnWidth
	if n > 0 {
		colWidth = max(width/n-1, minColumnWidth)
	}

	cols := make([]string, 0, n)
	dragging := ""
	if m.drag != nil {
		dragging = m.drag.taskID
	}
	for i, b := range m.view.Buckets {
		c := components.Column{
			Name:       b.Name,
			Tasks:      b.Tasks,
			Width:      colWidth,
			Focused:    i == m.col,
			Cursor:     -1,
			DraggingID: dragging,
		}
		if i == m.col {
			c.Cursor = m.row
		}
		cols = append(cols, c.View())
	}
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cols...))
	s.WriteString("\n")

	if m.showDetail {
		s.WriteString(m.detail.View())
		s.WriteString("\n")
	}
	if m.searching {
		s.WriteString(m.search.View())
		s.WriteString("\n")
	}
	if m.status != "" {
		s.WriteString(statusStyle.Render(m.status))
		s.WriteString("\n")
	}

	var help []string
	for _, b := range m.keys.ShortHelp() {
		help = append(help, b.Help().Key+" "+b.Help().Desc)
	}
	s.WriteString(helpStyle.Render(strings.Join(help, " • ")))
	s.WriteString("\n")
	return s.String()
}

func filterSummary(f models.Filter) string {
	var parts []string
	if f.Query != "" {
		parts = append(parts, fmt.Sprintf("search:%q", f.Query))
	}
	if f.Priority != "" {
		parts = append(parts, "priority:"+string(f.Priority))
	}
	if f.Assignee != "" {
		parts = append(parts, "assignee:"+f.Assignee)
	}
	if f.DueDate != "" {
		parts = append(parts, "due:"+string(f.DueDate))
	}
	if f.Status != "" {
		parts = append(parts, "status:"+f.Status)
	}
	return strings.Join(parts, " ")
}

// RunBoard runs the interactive board until the user quits.
func RunBoard(ctx context.Context, store *board.Store, reconciler *dnd.Reconciler) error {
	p := tea.NewProgram(NewBoardModel(ctx, store, reconciler), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
