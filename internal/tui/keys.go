package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the workspace key bindings. Every other key goes to the
// editor.
type KeyMap struct {
	Run    key.Binding
	Reset  key.Binding
	Theme  key.Binding
	Submit key.Binding
	Leave  key.Binding
	Quit   key.Binding

	ScrollUp   key.Binding
	ScrollDown key.Binding
}

// DefaultKeyMap is the built-in key binding set. Help texts are message
// ids resolved at render time.
var DefaultKeyMap = KeyMap{
	Run: key.NewBinding(
		key.WithKeys("ctrl+r"),
		key.WithHelp("C-r", "KeyRun"),
	),
	Reset: key.NewBinding(
		key.WithKeys("ctrl+x"),
		key.WithHelp("C-x", "KeyReset"),
	),
	Theme: key.NewBinding(
		key.WithKeys("ctrl+t"),
		key.WithHelp("C-t", "KeyTheme"),
	),
	Submit: key.NewBinding(
		key.WithKeys("ctrl+s"),
		key.WithHelp("C-s", "KeySubmit"),
	),
	Leave: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("Esc", "KeyLeave"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
	),
	ScrollUp: key.NewBinding(
		key.WithKeys("pgup"),
	),
	ScrollDown: key.NewBinding(
		key.WithKeys("pgdown"),
	),
}

func (k KeyMap) help() []key.Binding {
	return []key.Binding{k.Run, k.Reset, k.Theme, k.Submit, k.Leave}
}
