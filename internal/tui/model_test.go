package tui

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"trooper/internal/errors"
	"trooper/internal/fsops"
	"trooper/internal/keymap"
	"trooper/internal/matcher"
	"trooper/internal/navigator"
	"trooper/internal/store"
	"trooper/internal/watch"
	"trooper/pkg/testutils"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTimeout = 10 * time.Millisecond

// newModel builds a model browsing root with the default keymap plus the
// given user bindings.
func newModel(t *testing.T, root, userBindings string) (*Model, *store.Store) {
	t.Helper()
	user := keymap.Source{Name: "config.ini", Data: []byte(userBindings)}
	if userBindings != "" {
		user.Data = []byte("[keybindings]\n" + userBindings)
	}
	table, err := keymap.Load(keymap.DefaultSource(), user)
	require.NoError(t, err)

	s, err := store.Open(t.TempDir(), store.WithRetry(5, time.Millisecond))
	require.NoError(t, err)
	o, err := fsops.NewOS(fsops.Options{})
	require.NoError(t, err)
	nav := navigator.New(o, s)
	st, err := nav.Open(root, false)
	require.NoError(t, err)

	return New(Options{
		Navigator: nav,
		Matcher:   matcher.New(table, testTimeout),
		State:     st,
		Theme:     "default",
	}), s
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func keyOf(t tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: t}
}

// press sends each key of s as its own message and returns the last command.
func press(m *Model, s string) tea.Cmd {
	var cmd tea.Cmd
	for _, r := range s {
		_, cmd = m.Update(runes(string(r)))
	}
	return cmd
}

func send(m *Model, msg tea.Msg) tea.Cmd {
	_, cmd := m.Update(msg)
	return cmd
}

func selectedName(m *Model) string {
	cur, ok := m.State().Current()
	if !ok {
		return ""
	}
	return cur.Name
}

func view(m *Model) string {
	return testutils.StripANSI(m.View())
}

func TestTokens(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.KeyMsg
		want string
	}{
		{"rune", runes("j"), "j"},
		{"several runes", runes("gg"), "gg"},
		{"space", keyOf(tea.KeySpace), "<Space>"},
		{"enter", keyOf(tea.KeyEnter), "<CR>"},
		{"tab", keyOf(tea.KeyTab), "<Tab>"},
		{"escape", keyOf(tea.KeyEsc), "<Esc>"},
		{"backspace", keyOf(tea.KeyBackspace), "<BS>"},
		{"arrow", keyOf(tea.KeyDown), "<Down>"},
		{"page", keyOf(tea.KeyPgUp), "<PageUp>"},
		{"ctrl letter", keyOf(tea.KeyCtrlN), "<C-n>"},
		{"ctrl space", keyOf(tea.KeyCtrlAt), "<C-Space>"},
		{"alt rune", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x"), Alt: true}, "<A-x>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := keymap.MustParseSequence(tt.want)
			assert.Equal(t, []keymap.Token(want), Tokens(tt.msg))
		})
	}

	assert.Nil(t, Tokens(keyOf(tea.KeyShiftTab)))
}

func TestMovementKeys(t *testing.T) {
	root := t.TempDir()
	testutils.CreateTree(t, root, map[string]string{"a": "", "b": "", "c": ""})
	m, _ := newModel(t, root, "")

	press(m, "jj")
	assert.Equal(t, "c", selectedName(m))
	press(m, "k")
	assert.Equal(t, "b", selectedName(m))
	send(m, keyOf(tea.KeyDown))
	assert.Equal(t, "c", selectedName(m))

	cmd := press(m, "g")
	assert.NotNil(t, cmd, "a pending sequence schedules its timeout")
	assert.Contains(t, view(m), "g")
	press(m, "g")
	assert.Equal(t, "a", selectedName(m))
	press(m, "G")
	assert.Equal(t, "c", selectedName(m))
	assert.Contains(t, view(m), "3/3")
}

func TestAmbiguousSequenceTimesOut(t *testing.T) {
	root := t.TempDir()
	testutils.CreateTree(t, root, map[string]string{"a": "", "b": "", "c": ""})
	m, _ := newModel(t, root, "g = MoveToBottom\n")

	tick := press(m, "g")
	require.NotNil(t, tick)
	assert.True(t, m.matcher.Matching())
	assert.Equal(t, "a", selectedName(m))

	send(m, tick())
	assert.False(t, m.matcher.Matching())
	assert.Equal(t, "c", selectedName(m))

	// A continuation wins over the timeout, and the stale tick is ignored.
	stale := press(m, "g")
	press(m, "g")
	assert.Equal(t, "a", selectedName(m))
	send(m, stale())
	assert.Equal(t, "a", selectedName(m))
}

func TestEscCancelsPendingSequence(t *testing.T) {
	root := t.TempDir()
	testutils.CreateTree(t, root, map[string]string{"a": ""})
	m, s := newModel(t, root, "")

	press(m, "d")
	require.True(t, m.matcher.Matching())
	send(m, keyOf(tea.KeyEsc))
	assert.False(t, m.matcher.Matching())

	press(m, "d")
	assert.True(t, m.matcher.Matching(), "the first d was dropped")
	reg, err := s.ReadRegister()
	require.NoError(t, err)
	assert.True(t, reg.Empty())
}

func TestUnboundKeyIsIgnored(t *testing.T) {
	root := t.TempDir()
	testutils.CreateTree(t, root, map[string]string{"a": "", "b": ""})
	m, _ := newModel(t, root, "")
	before := m.State()

	assert.Nil(t, press(m, "z"))
	assert.False(t, m.matcher.Matching())
	assert.Equal(t, before, m.State())
	assert.Nil(t, m.err)
}

func TestYankAndPaste(t *testing.T) {
	root := t.TempDir()
	testutils.CreateTree(t, root, map[string]string{"x.txt": "x"})
	m, s := newModel(t, root, "")

	press(m, "yy")
	reg, err := s.ReadRegister()
	require.NoError(t, err)
	assert.Equal(t, store.Register{Mode: store.Yanked, Entries: []string{filepath.Join(root, "x.txt")}}, reg)
	assert.Equal(t, reg, m.register)
	out := view(m)
	assert.Contains(t, out, "[yank 1]")
	assert.Contains(t, out, "yanked x.txt")

	press(m, "p")
	assert.FileExists(t, filepath.Join(root, "x (Copy).txt"))
	assert.Equal(t, "x (Copy).txt", selectedName(m))
}

func TestRenamePrompt(t *testing.T) {
	root := t.TempDir()
	testutils.CreateTree(t, root, map[string]string{"x.txt": "x", "y.txt": "y"})
	m, _ := newModel(t, root, "")

	press(m, "r")
	require.Equal(t, promptMode, m.mode)
	assert.Equal(t, "x.txt", m.input.Value())

	send(m, keyOf(tea.KeyEsc))
	assert.Equal(t, normalMode, m.mode)
	assert.FileExists(t, filepath.Join(root, "x.txt"))

	press(m, "r")
	m.input.SetValue("y.txt")
	send(m, keyOf(tea.KeyEnter))
	assert.True(t, errors.IsNavigation(m.err, errors.NameCollision))

	press(m, "r")
	m.input.SetValue("z.txt")
	send(m, keyOf(tea.KeyEnter))
	require.NoError(t, m.err)
	assert.Equal(t, normalMode, m.mode)
	assert.Equal(t, "z.txt", selectedName(m))
	assert.Equal(t, "x", testutils.ReadFile(t, filepath.Join(root, "z.txt")))
}

func TestCreateDirKey(t *testing.T) {
	root := t.TempDir()
	m, _ := newModel(t, root, "")

	send(m, keyOf(tea.KeyCtrlN))
	require.Equal(t, promptMode, m.mode)
	send(m, runes("new"))
	send(m, keyOf(tea.KeyEnter))
	assert.DirExists(t, filepath.Join(root, "new"))
	assert.Equal(t, "new", selectedName(m))
}

func TestCommandMode(t *testing.T) {
	root := t.TempDir()
	m, _ := newModel(t, root, "")

	press(m, ":")
	require.Equal(t, promptMode, m.mode)
	send(m, runes("mkdir new dir"))
	send(m, keyOf(tea.KeyEnter))
	assert.Equal(t, normalMode, m.mode)
	assert.DirExists(t, filepath.Join(root, "new dir"))

	press(m, ":")
	send(m, runes("bogus"))
	send(m, keyOf(tea.KeyEnter))
	require.Error(t, m.err)
	assert.Contains(t, view(m), `unknown command "bogus"`)

	press(m, ":")
	send(m, keyOf(tea.KeyUp))
	assert.Equal(t, "bogus", m.input.Value())
	send(m, keyOf(tea.KeyUp))
	assert.Equal(t, "mkdir new dir", m.input.Value())
	send(m, keyOf(tea.KeyDown))
	assert.Equal(t, "bogus", m.input.Value())
	send(m, keyOf(tea.KeyDown))
	assert.Equal(t, "", m.input.Value())

	send(m, runes("mk"))
	send(m, keyOf(tea.KeyTab))
	assert.Equal(t, "mkdir ", m.input.Value())
	send(m, keyOf(tea.KeyEsc))

	press(m, ":")
	send(m, runes("cd new dir"))
	send(m, keyOf(tea.KeyEnter))
	assert.Equal(t, filepath.Join(root, "new dir"), m.State().Dir)
}

func TestBookmarkKeys(t *testing.T) {
	root := t.TempDir()
	testutils.CreateTree(t, root, map[string]string{"a/": "", "b/": ""})
	m, s := newModel(t, root, "")

	press(m, "l")
	require.Equal(t, filepath.Join(root, "a"), m.State().Dir)
	press(m, "m")
	require.Equal(t, awaitKeyMode, m.mode)
	assert.Contains(t, view(m), "bookmark key")
	press(m, "w")
	assert.Equal(t, normalMode, m.mode)

	marks, err := s.ReadBookmarks()
	require.NoError(t, err)
	assert.Equal(t, map[rune]string{'w': filepath.Join(root, "a")}, marks)

	press(m, "h")
	assert.Equal(t, root, m.State().Dir)
	press(m, "'w")
	assert.Equal(t, filepath.Join(root, "a"), m.State().Dir)

	press(m, "'q")
	assert.True(t, errors.IsNavigation(m.err, errors.UnknownBookmark))
	assert.Contains(t, view(m), "no bookmark")

	press(m, "b")
	out := view(m)
	assert.Contains(t, out, "Bookmarks")
	assert.Contains(t, out, "w ")
	assert.True(t, m.bookmarkFocus)
	press(m, "b")
	assert.False(t, m.showBookmarks)
	assert.False(t, m.bookmarkFocus)

	press(m, "dmw")
	marks, err = s.ReadBookmarks()
	require.NoError(t, err)
	assert.Empty(t, marks)
	assert.Empty(t, m.bookmarks)

	press(m, "m")
	send(m, keyOf(tea.KeySpace))
	assert.Error(t, m.err, "space is not a bookmark key")
	assert.Equal(t, normalMode, m.mode)
}

func TestBookmarksPanelFocus(t *testing.T) {
	root := t.TempDir()
	testutils.CreateTree(t, root, map[string]string{"a/": "", "b/x": "", "b/y": ""})
	m, s := newModel(t, root, "")
	require.NoError(t, s.WriteBookmark('a', filepath.Join(root, "a")))
	require.NoError(t, s.WriteBookmark('b', filepath.Join(root, "b")))

	send(m, keyOf(tea.KeyCtrlH))
	require.True(t, m.bookmarkFocus)
	assert.True(t, m.showBookmarks)
	require.Len(t, m.bookmarks, 2)
	assert.Equal(t, 0, m.bookmarkIndex)

	press(m, "jj")
	assert.Equal(t, 1, m.bookmarkIndex, "selection stops at the last bookmark")
	assert.Equal(t, 0, m.State().Selected, "entry list does not move")
	press(m, "k")
	assert.Equal(t, 0, m.bookmarkIndex)
	press(m, "G")
	assert.Equal(t, 1, m.bookmarkIndex)
	press(m, "gg")
	assert.Equal(t, 0, m.bookmarkIndex)

	press(m, "j")
	press(m, "l")
	assert.Equal(t, filepath.Join(root, "b"), m.State().Dir)
	assert.False(t, m.bookmarkFocus, "jumping returns focus to the entries")
	assert.True(t, m.showBookmarks)

	send(m, keyOf(tea.KeyCtrlH))
	require.Equal(t, 1, m.bookmarkIndex)
	press(m, "dm")
	assert.Equal(t, normalMode, m.mode, "no key is asked for")
	marks, err := s.ReadBookmarks()
	require.NoError(t, err)
	assert.Equal(t, map[rune]string{'a': filepath.Join(root, "a")}, marks)
	assert.Equal(t, 0, m.bookmarkIndex)

	press(m, "D")
	assert.Equal(t, normalMode, m.mode, "entry actions are ignored")
	assert.Len(t, m.State().Entries, 2)

	send(m, keyOf(tea.KeyCtrlL))
	assert.False(t, m.bookmarkFocus)
	assert.True(t, m.showBookmarks)
	press(m, "j")
	assert.Equal(t, "y", selectedName(m))

	press(m, "b")
	assert.False(t, m.showBookmarks)
	press(m, "b")
	assert.True(t, m.showBookmarks)
	assert.True(t, m.bookmarkFocus)
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	root := t.TempDir()
	testutils.CreateTree(t, root, map[string]string{"x": ""})
	m, _ := newModel(t, root, "")

	press(m, "D")
	assert.Contains(t, view(m), "delete x? (y/n)")
	press(m, "n")
	assert.FileExists(t, filepath.Join(root, "x"))

	press(m, "Dy")
	assert.NoFileExists(t, filepath.Join(root, "x"))
	assert.Empty(t, m.State().Entries)
	assert.Contains(t, view(m), "(empty)")
}

func TestQuit(t *testing.T) {
	m, _ := newModel(t, t.TempDir(), "")
	cmd := press(m, "q")
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, m.View())

	m, _ = newModel(t, t.TempDir(), "")
	press(m, ":")
	send(m, runes("q"))
	cmd = send(m, keyOf(tea.KeyEnter))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestRemappedQuit(t *testing.T) {
	m, _ := newModel(t, t.TempDir(), "q = Nop\nZZ = Quit\n")
	assert.Nil(t, press(m, "q"))
	cmd := press(m, "ZZ")
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestCtrlChordsSentAsNamedKeys(t *testing.T) {
	m, _ := newModel(t, t.TempDir(), "<C-i> = Quit\n")
	cmd := send(m, keyOf(tea.KeyTab))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestWatcherChanges(t *testing.T) {
	root := t.TempDir()
	testutils.CreateTree(t, root, map[string]string{"a": ""})
	m, s := newModel(t, root, "")

	// Another instance yanks and bookmarks.
	peer, err := store.Open(s.Dir())
	require.NoError(t, err)
	require.NoError(t, peer.WriteRegister(store.Cut, []string{filepath.Join(root, "a")}))
	require.NoError(t, peer.WriteBookmark('p', root))

	send(m, changeMsg{Kind: watch.RegisterChanged, Path: filepath.Join(s.Dir(), store.RegisterFile)})
	assert.Equal(t, store.Cut, m.register.Mode)
	assert.Contains(t, view(m), "[cut 1]")

	send(m, changeMsg{Kind: watch.BookmarksChanged})
	assert.Equal(t, []navigator.Bookmark{{Key: 'p', Path: root}}, m.bookmarks)

	require.NoError(t, os.WriteFile(filepath.Join(root, "b"), nil, 0o644))
	send(m, changeMsg{Kind: watch.DirChanged, Path: root})
	assert.Len(t, m.State().Entries, 2)

	send(m, changeMsg{Kind: watch.DirChanged, Path: filepath.Join(root, "elsewhere")})
	assert.Len(t, m.State().Entries, 2)
}

func TestScrolling(t *testing.T) {
	root := t.TempDir()
	tree := map[string]string{}
	for _, n := range []string{"f0", "f1", "f2", "f3", "f4", "f5", "f6", "f7", "f8", "f9"} {
		tree[n] = ""
	}
	testutils.CreateTree(t, root, tree)
	m, _ := newModel(t, root, "")

	send(m, tea.WindowSizeMsg{Width: 40, Height: 5})
	press(m, "G")
	out := view(m)
	assert.Contains(t, out, "f9")
	assert.NotContains(t, out, "f0")
}

func TestHelp(t *testing.T) {
	m, _ := newModel(t, t.TempDir(), "")
	md := helpMarkdown(m.matcher.Table())
	assert.Contains(t, md, "| `<Down>` `j` | MoveDown |")
	assert.Contains(t, md, "`:mkdir <name>`")
	assert.NotContains(t, md, "Nop")

	press(m, "?")
	assert.True(t, m.showHelp)
	assert.NotEmpty(t, m.helpView)
	press(m, "?")
	assert.False(t, m.showHelp)
}

func TestCodeSpan(t *testing.T) {
	assert.Equal(t, "`gg`", codeSpan("gg"))
	assert.Equal(t, "`a\\|b`", codeSpan("a|b"))
	assert.Equal(t, "`` ` ``", codeSpan("`"))
}

func TestHelpStyle(t *testing.T) {
	assert.Equal(t, "dark", helpStyle("default", false))
	assert.Equal(t, "light", helpStyle("default", true))
	assert.Equal(t, "dark", helpStyle("dark", true))
	assert.Equal(t, "light", helpStyle("light", false))
	assert.Equal(t, "notty", helpStyle("monochrome", true))
}
