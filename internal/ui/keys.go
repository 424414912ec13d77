package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings of the board view.
type KeyMap struct {
	Up    key.Binding
	Down  key.Binding
	Left  key.Binding
	Right key.Binding

	// Grab picks up the selected task; Drop releases it at the cursor.
	Grab   key.Binding
	Drop   key.Binding
	Cancel key.Binding

	Search        key.Binding
	CyclePriority key.Binding
	CycleDue      key.Binding
	ClearFilters  key.Binding
	NextBoard     key.Binding
	ToggleDetail  key.Binding
	ToggleSubtask key.Binding
	DeleteTask    key.Binding
	Quit          key.Binding
}

var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	Left: key.NewBinding(
		key.WithKeys("h", "left"),
		key.WithHelp("h/←", "prev column"),
	),
	Right: key.NewBinding(
		key.WithKeys("l", "right"),
		key.WithHelp("l/→", "next column"),
	),
	Grab: key.NewBinding(
		key.WithKeys(" ", "space"),
		key.WithHelp("space", "pick up"),
	),
	Drop: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "drop"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "cancel"),
	),
	Search: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "search"),
	),
	CyclePriority: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "priority filter"),
	),
	CycleDue: key.NewBinding(
		key.WithKeys("u"),
		key.WithHelp("u", "due filter"),
	),
	ClearFilters: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "clear filters"),
	),
	NextBoard: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next board"),
	),
	ToggleDetail: key.NewBinding(
		key.WithKeys("i"),
		key.WithHelp("i", "details"),
	),
	ToggleSubtask: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "check subtask"),
	),
	DeleteTask: key.NewBinding(
		key.WithKeys("D"),
		key.WithHelp("D", "delete"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// ShortHelp lists the bindings shown in the footer.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Grab, k.Drop, k.Search, k.CyclePriority, k.CycleDue, k.ClearFilters, k.NextBoard, k.ToggleDetail, k.Quit}
}
