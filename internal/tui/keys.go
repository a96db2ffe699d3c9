package tui

import (
	"trooper/internal/keymap"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// namedKeys maps terminal key types onto named tokens.
var namedKeys = map[tea.KeyType]string{
	tea.KeySpace:     keymap.KeySpace,
	tea.KeyTab:       keymap.KeyTab,
	tea.KeyEnter:     keymap.KeyEnter,
	tea.KeyEsc:       keymap.KeyEsc,
	tea.KeyBackspace: keymap.KeyBackspace,
	tea.KeyUp:        keymap.KeyUp,
	tea.KeyDown:      keymap.KeyDown,
	tea.KeyLeft:      keymap.KeyLeft,
	tea.KeyRight:     keymap.KeyRight,
	tea.KeyDelete:    keymap.KeyDelete,
	tea.KeyHome:      keymap.KeyHome,
	tea.KeyEnd:       keymap.KeyEnd,
	tea.KeyPgUp:      keymap.KeyPageUp,
	tea.KeyPgDown:    keymap.KeyPageDown,
}

// Tokens converts a key message into matcher tokens. Pasted or fast typed
// text may carry several runes; keys without a token form return nil.
func Tokens(msg tea.KeyMsg) []keymap.Token {
	var toks []keymap.Token
	switch {
	case msg.Type == tea.KeyRunes:
		for _, r := range msg.Runes {
			toks = append(toks, keymap.Char(r))
		}
	case namedKeys[msg.Type] != "":
		// Checked before the Ctrl range: Tab and Enter share codes with Ctrl+I and Ctrl+M.
		toks = []keymap.Token{keymap.Named(namedKeys[msg.Type])}
	case msg.Type == tea.KeyCtrlAt:
		toks = []keymap.Token{keymap.Ctrl(keymap.Named(keymap.KeySpace))}
	case msg.Type >= tea.KeyCtrlA && msg.Type <= tea.KeyCtrlZ:
		toks = []keymap.Token{keymap.Ctrl(keymap.Char('a' + rune(msg.Type-tea.KeyCtrlA)))}
	default:
		return nil
	}
	if msg.Alt {
		for i := range toks {
			toks[i].Alt = true
		}
	}
	return toks
}

// promptKeyMap holds the fixed keys of prompt and key-await modes. They
// are not remappable since they only edit the prompt.
type promptKeyMap struct {
	Cancel   key.Binding
	Submit   key.Binding
	Complete key.Binding
	Prev     key.Binding
	Next     key.Binding
}

var promptKeys = promptKeyMap{
	Cancel: key.NewBinding(
		key.WithKeys("esc", "ctrl+c"),
		key.WithHelp("esc", "cancel"),
	),
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "confirm"),
	),
	Complete: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "complete command"),
	),
	Prev: key.NewBinding(
		key.WithKeys("up"),
		key.WithHelp("↑", "previous command"),
	),
	Next: key.NewBinding(
		key.WithKeys("down"),
		key.WithHelp("↓", "next command"),
	),
}
