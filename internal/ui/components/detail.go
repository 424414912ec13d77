package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/ldi/corkboard/pkg/models"
)

var (
	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("12"))

	detailLabelStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("241"))

	detailTextStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	scrollbarTrackStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("236"))

	scrollbarHandleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("241"))
)

// Detail renders the full record of one task in a scrollable viewport.
type Detail struct {
	viewport viewport.Model
	task     *models.Task
	ready    bool
}

func NewDetail(width, height int) *Detail {
	d := &Detail{}
	d.SetSize(width, height)
	return d
}

func (d *Detail) SetSize(width, height int) {
	vpWidth := width
	if width > 0 {
		vpWidth = width - 1
	}
	if !d.ready {
		d.viewport = viewport.New(vpWidth, height)
		d.ready = true
	} else {
		d.viewport.Width = vpWidth
		d.viewport.Height = height
	}
	d.updateContent()
}

// SetTask shows t, or clears the pane when t is nil.
func (d *Detail) SetTask(t *models.Task) {
	d.task = t
	d.updateContent()
	d.viewport.GotoTop()
}

func (d *Detail) Task() *models.Task {
	return d.task
}

func (d *Detail) updateContent() {
	content := RenderTask(d.task)
	if w := d.viewport.Width; w > 0 {
		content = lipgloss.NewStyle().Width(w).Render(content)
	}
	d.viewport.SetContent(content)
}

// RenderTask formats a task for the detail pane.
func RenderTask(t *models.Task) string {
	if t == nil {
		return placeholderStyle.Render("No task selected")
	}

	var sb strings.Builder
	sb.WriteString(detailTitleStyle.Render(t.Title))
	sb.WriteString("\n")

	field := func(label, value string) {
		if value == "" {
			return
		}
		sb.WriteString(detailLabelStyle.Render(label+": ") + detailTextStyle.Render(value) + "\n")
	}
	field("Status", t.Status)
	field("Priority", string(t.Priority))
	field("Assignee", t.Assignee)
	field("Due", t.DueDate)
	if t.CommentCount > 0 || t.FileCount > 0 {
		field("Activity", fmt.Sprintf("%d comments, %d files", t.CommentCount, t.FileCount))
	}

	if t.Description != "" {
		sb.WriteString("\n" + detailTextStyle.Render(t.Description) + "\n")
	}

	if len(t.Subtasks) > 0 {
		sb.WriteString("\n" + detailLabelStyle.Render(fmt.Sprintf("Subtasks %d/%d", t.CompletedSubtasks(), len(t.Subtasks))) + "\n")
		for _, st := range t.Subtasks {
			box := "[ ]"
			if st.Completed {
				box = "[x]"
			}
			sb.WriteString(fmt.Sprintf("%s %s\n", box, st.Title))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (d *Detail) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	d.viewport, cmd = d.viewport.Update(msg)
	return cmd
}

func (d *Detail) View() string {
	if !d.ready {
		return ""
	}

	if d.viewport.TotalLineCount() <= d.viewport.Height {
		return d.viewport.View()
	}

	h := d.viewport.Height
	handlePos := int(float64(h-1) * d.viewport.ScrollPercent())

	var sb strings.Builder
	for i := 0; i < h; i++ {
		if i == handlePos {
			sb.WriteString(scrollbarHandleStyle.Render("┃"))
		} else {
			sb.WriteString(scrollbarTrackStyle.Render("│"))
		}
		if i < h-1 {
			sb.WriteString("\n")
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, d.viewport.View(), sb.String())
}
