// internal/tui/keys.go
package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the trainer's key bindings.
type KeyMap struct {
	Dot       key.Binding
	Dash      key.Binding
	Submit    key.Binding
	Backspace key.Binding
	WordSpace key.Binding
	Help      key.Binding
	Quit      key.Binding
}

// Keys are the default bindings. Terminals report presses but not
// releases, so each press keys exactly one element.
var Keys = KeyMap{
	Dot: key.NewBinding(
		key.WithKeys("z", ".", "j"),
		key.WithHelp("z/.", "dit"),
	),
	Dash: key.NewBinding(
		key.WithKeys("x", "-", "k"),
		key.WithHelp("x/-", "dah"),
	),
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "send line"),
	),
	Backspace: key.NewBinding(
		key.WithKeys("backspace"),
		key.WithHelp("⌫", "erase"),
	),
	WordSpace: key.NewBinding(
		key.WithKeys(" "),
		key.WithHelp("space", "word space"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("esc", "ctrl+c"),
		key.WithHelp("esc", "quit"),
	),
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Dot, k.Dash, k.Submit, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Dot, k.Dash, k.WordSpace},
		{k.Submit, k.Backspace},
		{k.Help, k.Quit},
	}
}
