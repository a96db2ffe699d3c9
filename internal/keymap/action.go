package keymap

import "fmt"

// Action is a file-manager operation a key sequence can be bound to.
type Action int

// Actions. Nop is only meaningful in configuration, where it unbinds
// a default sequence.
const (
	Nop Action = iota
	MoveDown
	MoveUp
	MoveToTop
	MoveToBottom
	EnterDir
	GoParent
	Yank
	Cut
	Paste
	Rename
	Delete
	CreateDir
	CreateBookmark
	JumpBookmark
	DeleteBookmark
	ToggleHidden
	ToggleBookmarks
	FocusBookmarks
	FocusEntries
	OpenCommandMode
	Refresh
	Help
	Quit
)

var actionInfo = []struct {
	name string
	desc string
}{
	Nop:             {"Nop", "unbind the sequence"},
	MoveDown:        {"MoveDown", "select next entry"},
	MoveUp:          {"MoveUp", "select previous entry"},
	MoveToTop:       {"MoveToTop", "select first entry"},
	MoveToBottom:    {"MoveToBottom", "select last entry"},
	EnterDir:        {"EnterDir", "open selected directory"},
	GoParent:        {"GoParent", "go to parent directory"},
	Yank:            {"Yank", "yank selection into the register"},
	Cut:             {"Cut", "cut selection into the register"},
	Paste:           {"Paste", "paste register into current directory"},
	Rename:          {"Rename", "rename selected entry"},
	Delete:          {"Delete", "delete selected entry"},
	CreateDir:       {"CreateDir", "create a directory"},
	CreateBookmark:  {"CreateBookmark", "bookmark current directory"},
	JumpBookmark:    {"JumpBookmark", "jump to a bookmark"},
	DeleteBookmark:  {"DeleteBookmark", "delete a bookmark"},
	ToggleHidden:    {"ToggleHidden", "show or hide hidden entries"},
	ToggleBookmarks: {"ToggleBookmarks", "show and focus the bookmarks panel, or hide it"},
	FocusBookmarks:  {"FocusBookmarks", "move focus to the bookmarks panel"},
	FocusEntries:    {"FocusEntries", "move focus back to the entry list"},
	OpenCommandMode: {"OpenCommandMode", "open the command line"},
	Refresh:         {"Refresh", "re-read the current directory"},
	Help:            {"Help", "show key bindings"},
	Quit:            {"Quit", "quit"},
}

// legacyNames are action names of older configuration files.
var legacyNames = map[string]Action{
	"MoveUpDir":         GoParent,
	"CopyFiles":         Yank,
	"CutFiles":          Cut,
	"PasteFiles":        Paste,
	"DeleteFile":        Delete,
	"ToggleHiddenFiles": ToggleHidden,
	"ToggleBookmark":    ToggleBookmarks,
	"MoveEntry":         Rename,
	"MoveToLeftPanel":   FocusBookmarks,
	"MoveToRightPanel":  FocusEntries,
}

var actionsByName = func() map[string]Action {
	m := make(map[string]Action, len(actionInfo)+len(legacyNames))
	for a, info := range actionInfo {
		m[info.name] = Action(a)
	}
	for name, a := range legacyNames {
		m[name] = a
	}
	return m
}()

// ParseAction resolves an action name, including legacy aliases.
func ParseAction(name string) (Action, bool) {
	a, ok := actionsByName[name]
	return a, ok
}

func (a Action) String() string {
	if a >= 0 && int(a) < len(actionInfo) {
		return actionInfo[a].name
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

// Description is a short human-readable summary for help screens.
func (a Action) Description() string {
	if a >= 0 && int(a) < len(actionInfo) {
		return actionInfo[a].desc
	}
	return ""
}

// Actions lists every bindable action in declaration order.
func Actions() []Action {
	out := make([]Action, 0, len(actionInfo)-1)
	for a := MoveDown; int(a) < len(actionInfo); a++ {
		out = append(out, a)
	}
	return out
}
