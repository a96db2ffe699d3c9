// Package tui is the application loop: it turns terminal key events into
// tokens, resolves them with the sequence matcher and applies the
// resulting actions through the navigator.
package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"trooper/internal/config"
	"trooper/internal/keymap"
	"trooper/internal/log"
	"trooper/internal/matcher"
	"trooper/internal/navigator"
	"trooper/internal/store"
	"trooper/internal/watch"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type mode int

const (
	// normalMode feeds keys to the matcher.
	normalMode mode = iota
	// promptMode edits a line: a new name or a command.
	promptMode
	// awaitKeyMode waits for one key: a bookmark key or a delete confirmation.
	awaitKeyMode
)

// sequenceTimeoutMsg reports that the idle timeout of a pending sequence elapsed.
type sequenceTimeoutMsg struct {
	gen uint64
}

// changeMsg carries a watcher notification.
type changeMsg watch.Change

// DirectoryWatcher follows the directory being browsed.
type DirectoryWatcher interface {
	SetDirectory(dir string) error
}

// Options configures a Model.
type Options struct {
	Navigator *navigator.Navigator
	Matcher   *matcher.Matcher
	State     navigator.State
	Theme     string
	// LightBackground selects the light help style for the default theme.
	LightBackground bool
	// Changes delivers watcher notifications; nil disables them.
	Changes <-chan watch.Change
	Watcher DirectoryWatcher
}

// Model is the bubbletea model of the file manager.
type Model struct {
	nav     *navigator.Navigator
	matcher *matcher.Matcher
	state   navigator.State

	mode    mode
	pending keymap.Action // waiting for a prompt or a key
	input   textinput.Model
	history history

	register      store.Register
	bookmarks     []navigator.Bookmark
	showBookmarks bool
	bookmarkFocus bool
	bookmarkIndex int // selected row while the panel has focus
	showHelp      bool
	helpView      string

	status string
	err    error

	helpStyle string
	styles    Styles
	width     int
	height    int
	changes   <-chan watch.Change
	watcher   DirectoryWatcher
	quitting  bool
}

// New creates the model. opts.State must come from opts.Navigator.Open.
func New(opts Options) *Model {
	ti := textinput.New()
	ti.CharLimit = 4096

	m := &Model{
		nav:       opts.Navigator,
		matcher:   opts.Matcher,
		state:     opts.State,
		input:     ti,
		helpStyle: helpStyle(opts.Theme, opts.LightBackground),
		styles:    NewStyles(config.GetTheme(opts.Theme)),
		changes:   opts.Changes,
		watcher:   opts.Watcher,
	}
	m.input.PromptStyle = m.styles.Prompt
	m.reloadRegister()
	m.reloadBookmarks()
	m.follow()
	return m
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	if m.changes == nil {
		return nil
	}
	return waitForChange(m.changes)
}

// waitForChange delivers the next watcher notification as a message.
func waitForChange(ch <-chan watch.Change) tea.Cmd {
	return func() tea.Msg {
		c, ok := <-ch
		if !ok {
			return nil
		}
		return changeMsg(c)
	}
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.Width = max(msg.Width-12, 10)
		if m.showHelp {
			m.helpView = renderHelp(m.matcher.Table(), m.helpStyle, m.width)
		}
		return m, nil

	case sequenceTimeoutMsg:
		if res, ok := m.matcher.Expire(msg.gen); ok {
			return m, m.handleResult(res)
		}
		return m, nil

	case changeMsg:
		m.handleChange(watch.Change(msg))
		if m.changes == nil {
			return m, nil
		}
		return m, waitForChange(m.changes)

	case tea.KeyMsg:
		switch m.mode {
		case promptMode:
			return m, m.updatePrompt(msg)
		case awaitKeyMode:
			return m, m.updateAwaitKey(msg)
		}
		return m, m.updateNormal(msg)
	}

	if m.mode == promptMode {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) updateNormal(msg tea.KeyMsg) tea.Cmd {
	toks := Tokens(msg)
	if len(toks) == 0 {
		return nil
	}
	if m.matcher.Matching() && len(toks) == 1 && toks[0] == keymap.Named(keymap.KeyEsc) {
		m.matcher.Reset()
		return nil
	}
	if len(toks) == 1 {
		return m.handleResult(m.matcher.Feed(toks[0]))
	}

	var cmds []tea.Cmd
	for _, tok := range toks {
		if m.mode != normalMode || m.quitting {
			break
		}
		cmds = append(cmds, m.handleResult(m.matcher.Feed(tok)))
	}
	return tea.Batch(cmds...)
}

func (m *Model) handleResult(res matcher.Result) tea.Cmd {
	switch res.Kind {
	case matcher.Pending:
		gen := res.Generation
		return tea.Tick(m.matcher.Timeout(), func(time.Time) tea.Msg {
			return sequenceTimeoutMsg{gen: gen}
		})
	case matcher.Resolved:
		return m.dispatch(res.Action)
	}
	return nil
}

// dispatch runs a resolved action. Actions needing an argument open a
// prompt or wait for a key first.
func (m *Model) dispatch(action keymap.Action) tea.Cmd {
	m.err, m.status = nil, ""
	log.LogWithFields(log.F("action", action.String())).Debug("action resolved")

	if m.bookmarkFocus && m.dispatchPanel(action) {
		return nil
	}

	switch action {
	case keymap.Quit:
		m.quitting = true
		return tea.Quit
	case keymap.Help:
		m.showHelp = !m.showHelp
		if m.showHelp {
			m.helpView = renderHelp(m.matcher.Table(), m.helpStyle, m.width)
		}
		return nil
	case keymap.ToggleBookmarks:
		m.showBookmarks = !m.showBookmarks
		m.bookmarkFocus = m.showBookmarks
		if m.showBookmarks {
			m.reloadBookmarks()
		}
		return nil
	case keymap.FocusBookmarks:
		m.showBookmarks, m.bookmarkFocus = true, true
		m.reloadBookmarks()
		return nil
	case keymap.FocusEntries:
		m.bookmarkFocus = false
		return nil
	case keymap.OpenCommandMode:
		return m.openPrompt(action, ":", "")
	case keymap.Rename:
		cur, ok := m.state.Current()
		if !ok {
			return nil
		}
		return m.openPrompt(action, "rename: ", cur.Name)
	case keymap.CreateDir:
		return m.openPrompt(action, "mkdir: ", "")
	case keymap.CreateBookmark, keymap.JumpBookmark, keymap.DeleteBookmark:
		m.mode, m.pending = awaitKeyMode, action
		return nil
	case keymap.Delete:
		if _, ok := m.state.Current(); !ok {
			return nil
		}
		m.mode, m.pending = awaitKeyMode, action
		return nil
	}
	m.apply(navigator.Request{Action: action})
	return nil
}

// dispatchPanel handles action while the bookmarks panel has focus and
// reports whether it did. Movement walks the panel, EnterDir jumps to the
// selected bookmark and DeleteBookmark removes it; entry actions are ignored.
func (m *Model) dispatchPanel(action keymap.Action) bool {
	switch action {
	case keymap.Quit, keymap.Help, keymap.OpenCommandMode, keymap.Refresh,
		keymap.ToggleBookmarks, keymap.FocusBookmarks, keymap.FocusEntries,
		keymap.CreateBookmark, keymap.JumpBookmark:
		return false
	case keymap.MoveDown:
		m.selectBookmark(m.bookmarkIndex + 1)
	case keymap.MoveUp:
		m.selectBookmark(m.bookmarkIndex - 1)
	case keymap.MoveToTop:
		m.selectBookmark(0)
	case keymap.MoveToBottom:
		m.selectBookmark(len(m.bookmarks) - 1)
	case keymap.EnterDir:
		if b, ok := m.selectedBookmark(); ok {
			m.bookmarkFocus = false
			m.apply(navigator.Request{Action: keymap.JumpBookmark, Key: b.Key})
		}
	case keymap.DeleteBookmark:
		if b, ok := m.selectedBookmark(); ok {
			m.apply(navigator.Request{Action: keymap.DeleteBookmark, Key: b.Key})
		}
	}
	return true
}

func (m *Model) selectedBookmark() (navigator.Bookmark, bool) {
	if m.bookmarkIndex < 0 || m.bookmarkIndex >= len(m.bookmarks) {
		return navigator.Bookmark{}, false
	}
	return m.bookmarks[m.bookmarkIndex], true
}

// selectBookmark moves the panel selection to i, clamped to the list.
func (m *Model) selectBookmark(i int) {
	m.bookmarkIndex = max(min(i, len(m.bookmarks)-1), 0)
}

func (m *Model) openPrompt(action keymap.Action, prompt, value string) tea.Cmd {
	m.mode, m.pending = promptMode, action
	m.input.Prompt = prompt
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.history.reset()
	return m.input.Focus()
}

func (m *Model) closePrompt() {
	m.mode, m.pending = normalMode, keymap.Nop
	m.input.Blur()
	m.input.Reset()
}

func (m *Model) updatePrompt(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, promptKeys.Cancel):
		m.closePrompt()
		return nil
	case key.Matches(msg, promptKeys.Submit):
		value, action := m.input.Value(), m.pending
		m.closePrompt()
		if action == keymap.OpenCommandMode {
			return m.runCommand(value)
		}
		m.apply(navigator.Request{Action: action, Name: value})
		return nil
	}

	if m.pending == keymap.OpenCommandMode {
		switch {
		case key.Matches(msg, promptKeys.Complete):
			m.input.SetValue(completeCommand(m.input.Value()))
			m.input.CursorEnd()
			return nil
		case key.Matches(msg, promptKeys.Prev):
			if line, ok := m.history.prev(); ok {
				m.input.SetValue(line)
				m.input.CursorEnd()
			}
			return nil
		case key.Matches(msg, promptKeys.Next):
			if line, ok := m.history.next(); ok {
				m.input.SetValue(line)
				m.input.CursorEnd()
			}
			return nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) updateAwaitKey(msg tea.KeyMsg) tea.Cmd {
	action := m.pending
	m.mode, m.pending = normalMode, keymap.Nop

	if key.Matches(msg, promptKeys.Cancel) {
		return nil
	}
	if msg.Type != tea.KeyRunes || len(msg.Runes) != 1 {
		if action != keymap.Delete {
			m.err = fmt.Errorf("%s needs a printable key", action)
		}
		return nil
	}

	r := msg.Runes[0]
	if action == keymap.Delete {
		if r == 'y' || r == 'Y' {
			m.apply(navigator.Request{Action: keymap.Delete})
		}
		return nil
	}
	m.apply(navigator.Request{Action: action, Key: r})
	return nil
}

// runCommand executes a command line entered after ':'.
func (m *Model) runCommand(line string) tea.Cmd {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	m.history.add(line)

	pc, err := parseCommand(line)
	if err != nil {
		m.err = err
		return nil
	}
	if pc.Dir != "" {
		m.goTo(m.resolveDir(pc.Dir))
		return nil
	}
	if pc.Request.Action == keymap.Quit {
		m.quitting = true
		return tea.Quit
	}
	m.apply(pc.Request)
	return nil
}

// resolveDir expands "~" and makes dir absolute relative to the current directory.
func (m *Model) resolveDir(dir string) string {
	if dir == "~" || strings.HasPrefix(dir, "~"+string(filepath.Separator)) {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, strings.TrimPrefix(dir, "~"))
		}
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(m.state.Dir, dir)
	}
	return dir
}

// apply runs req through the navigator and reports the outcome.
func (m *Model) apply(req navigator.Request) {
	m.err, m.status = nil, ""
	prevDir := m.state.Dir
	name := ""
	if cur, ok := m.state.Current(); ok {
		name = cur.Name
	}

	next, err := m.nav.Apply(req, m.state)
	m.state = next
	if err != nil {
		m.fail(err)
	} else {
		m.status = describe(req, name, next)
	}

	if next.Dir != prevDir {
		m.follow()
	}
	switch req.Action {
	case keymap.Yank, keymap.Cut, keymap.Paste:
		m.reloadRegister()
	case keymap.CreateBookmark, keymap.DeleteBookmark:
		m.reloadBookmarks()
	}
}

func (m *Model) goTo(dir string) {
	m.err, m.status = nil, ""
	next, err := m.nav.GoTo(m.state, dir)
	if err != nil {
		m.fail(err)
		return
	}
	m.state = next
	m.follow()
}

// describe is the status message after a successful action.
func describe(req navigator.Request, name string, st navigator.State) string {
	switch req.Action {
	case keymap.Yank:
		return "yanked " + name
	case keymap.Cut:
		return "cut " + name
	case keymap.Paste:
		return "pasted into " + st.Dir
	case keymap.Rename:
		return "renamed to " + req.Name
	case keymap.Delete:
		return "deleted " + name
	case keymap.CreateDir:
		return "created " + req.Name
	case keymap.CreateBookmark:
		return fmt.Sprintf("bookmark %c set", req.Key)
	case keymap.DeleteBookmark:
		return fmt.Sprintf("bookmark %c deleted", req.Key)
	}
	return ""
}

func (m *Model) fail(err error) {
	m.err = err
	log.LogWithError(err).Warn("action failed")
}

func (m *Model) follow() {
	if m.watcher == nil {
		return
	}
	if err := m.watcher.SetDirectory(m.state.Dir); err != nil {
		log.LogWithFields(log.F("dir", m.state.Dir), log.F("error", err)).Warn("cannot watch directory")
	}
}

func (m *Model) handleChange(c watch.Change) {
	switch c.Kind {
	case watch.DirChanged:
		if c.Path != m.state.Dir {
			return
		}
		next, err := m.nav.Apply(navigator.Request{Action: keymap.Refresh}, m.state)
		if err != nil {
			m.fail(err)
			return
		}
		m.state = next
	case watch.RegisterChanged:
		m.reloadRegister()
	case watch.BookmarksChanged:
		m.reloadBookmarks()
	}
}

func (m *Model) reloadRegister() {
	reg, err := m.nav.Register()
	if err != nil {
		m.fail(err)
		return
	}
	m.register = reg
}

func (m *Model) reloadBookmarks() {
	marks, err := m.nav.Bookmarks()
	if err != nil {
		m.fail(err)
		return
	}
	m.bookmarks = marks
	m.selectBookmark(m.bookmarkIndex)
}

// State returns the navigator state.
func (m *Model) State() navigator.State {
	return m.state
}
