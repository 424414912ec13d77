package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/ldi/corkboard/pkg/models"
)

var (
	columnStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	focusedColumnStyle = columnStyle.
				BorderForeground(lipgloss.Color("12"))

	columnHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("252"))

	cardStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	selectedCardStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("12")).
				Bold(true)

	draggedCardStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("214")).
				Italic(true)

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	dropMarkerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	placeholderStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Italic(true)
)

var priorityColors = map[models.Priority]lipgloss.Color{
	models.PriorityHigh:   lipgloss.Color("196"),
	models.PriorityMedium: lipgloss.Color("214"),
	models.PriorityLow:    lipgloss.Color("42"),
}

// Column renders one board column as a bordered box of task cards.
type Column struct {
	Name    string
	Tasks   []*models.Task
	Width   int
	Focused bool

	// Cursor is the highlighted row, -1 for none. A cursor equal to
	// len(Tasks) highlights the empty slot at the end of the column.
	Cursor int

	// DraggingID marks the task currently picked up.
	DraggingID string
}

func (c *Column) View() string {
	innerWidth := c.Width - 4
	if innerWidth < 4 {
		innerWidth = 4
	}

	var lines []string
	lines = append(lines, columnHeaderStyle.Render(fmt.Sprintf("%s (%d)", c.Name, len(c.Tasks))))

	if len(c.Tasks) == 0 && c.Cursor != 0 {
		lines = append(lines, placeholderStyle.Render("No tasks"))
	}

	for i, t := range c.Tasks {
		lines = append(lines, c.renderCard(t, innerWidth, c.Focused && c.Cursor == i))
	}

	if c.Focused && c.DraggingID != "" && c.Cursor == len(c.Tasks) {
		lines = append(lines, dropMarkerStyle.Render("▸ drop here"))
	}

	style := columnStyle
	if c.Focused {
		style = focusedColumnStyle
	}
	return style.Width(c.Width).Render(strings.Join(lines, "\n"))
}

func (c *Column) renderCard(t *models.Task, width int, selected bool) string {
	style := cardStyle
	prefix := "  "
	switch {
	case t.ID == c.DraggingID:
		style = draggedCardStyle
		prefix = "≡ "
	case selected:
		style = selectedCardStyle
		prefix = "> "
	}
	if selected && c.DraggingID != "" && t.ID != c.DraggingID {
		prefix = "▸ "
	}

	marker := lipgloss.NewStyle().Foreground(priorityColors[t.Priority]).Render("●")
	title := lipgloss.NewStyle().Width(width - 4).Render(t.Title)
	titleLines := strings.Split(title, "\n")
	for i := range titleLines {
		if i == 0 {
			titleLines[i] = prefix + marker + " " + style.Render(titleLines[i])
		} else {
			titleLines[i] = "    " + style.Render(titleLines[i])
		}
	}

	if meta := CardMeta(t); meta != "" {
		titleLines = append(titleLines, "    "+metaStyle.Render(meta))
	}
	return strings.Join(titleLines, "\n")
}

// CardMeta summarizes the secondary fields of a task on one line.
func CardMeta(t *models.Task) string {
	var parts []string
	if t.Assignee != "" {
		parts = append(parts, "@"+t.Assignee)
	}
	if t.DueDate != "" {
		parts = append(parts, "due "+t.DueDate)
	}
	if n := len(t.Subtasks); n > 0 {
		parts = append(parts, fmt.Sprintf("☑ %d/%d", t.CompletedSubtasks(), n))
	}
	if t.CommentCount > 0 {
		parts = append(parts, fmt.Sprintf("✎ %d", t.CommentCount))
	}
	if t.FileCount > 0 {
		parts = append(parts, fmt.Sprintf("⎘ %d", t.FileCount))
	}
	return strings.Join(parts, "  ")
}
