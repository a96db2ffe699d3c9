// Package navigator applies resolved actions to the browsing state, the
// filesystem and the persistent register store.
package navigator

import (
	"fmt"
	"path/filepath"
	"sort"

	"trooper/internal/errors"
	"trooper/internal/fsops"
	"trooper/internal/keymap"
	"trooper/internal/log"
	"trooper/internal/store"
)

// Store is the part of the persistent store the navigator works with.
// *store.Store implements it.
type Store interface {
	ReadRegister() (store.Register, error)
	WriteRegister(mode store.Mode, entries []string) error
	ReadBookmarks() (map[rune]string, error)
	WriteBookmark(key rune, path string) error
	DeleteBookmark(key rune) error
}

// invalidator is implemented by filesystems that cache listings.
type invalidator interface {
	Invalidate(dir string)
}

// State is the per-process browsing state.
type State struct {
	Dir        string
	Entries    []fsops.Entry
	Selected   int
	ShowHidden bool
}

// Current returns the selected entry.
func (s State) Current() (fsops.Entry, bool) {
	if s.Selected < 0 || s.Selected >= len(s.Entries) {
		return fsops.Entry{}, false
	}
	return s.Entries[s.Selected], true
}

func (s State) clamp() State {
	switch {
	case len(s.Entries) == 0:
		s.Selected = 0
	case s.Selected >= len(s.Entries):
		s.Selected = len(s.Entries) - 1
	case s.Selected < 0:
		s.Selected = 0
	}
	return s
}

// Request is an action plus the argument some actions need: Name for
// Rename and CreateDir, Key for the bookmark actions.
type Request struct {
	Action keymap.Action
	Name   string
	Key    rune
}

// Bookmark is one bookmark, for display.
type Bookmark struct {
	Key  rune
	Path string
}

// Navigator applies actions. It holds no browsing state of its own; the
// register and bookmarks are re-read from the store whenever an action
// depends on them.
type Navigator struct {
	fs    fsops.FS
	store Store
}

// New creates a navigator over a filesystem and a store.
func New(fsys fsops.FS, st Store) *Navigator {
	return &Navigator{fs: fsys, store: st}
}

// Open lists dir and returns the initial state.
func (n *Navigator) Open(dir string, showHidden bool) (State, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return State{}, errors.NewNavigationError("invalid directory", dir, errors.NotFound, err)
	}
	entries, err := n.fs.List(abs, showHidden)
	if err != nil {
		return State{}, listError(abs, err)
	}
	return State{Dir: abs, Entries: entries, ShowHidden: showHidden}, nil
}

// Apply performs req against st. On error the returned state is st,
// except after a partial paste, where the directory has been re-listed
// because some entries were pasted.
func (n *Navigator) Apply(req Request, st State) (State, error) {
	switch req.Action {
	case keymap.MoveDown:
		st.Selected++
		return st.clamp(), nil
	case keymap.MoveUp:
		st.Selected--
		return st.clamp(), nil
	case keymap.MoveToTop:
		st.Selected = 0
		return st.clamp(), nil
	case keymap.MoveToBottom:
		st.Selected = len(st.Entries) - 1
		return st.clamp(), nil
	case keymap.EnterDir:
		return n.enterDir(st)
	case keymap.GoParent:
		return n.goParent(st)
	case keymap.Yank:
		return n.mark(st, store.Yanked)
	case keymap.Cut:
		return n.mark(st, store.Cut)
	case keymap.Paste:
		return n.paste(st)
	case keymap.Rename:
		return n.rename(st, req.Name)
	case keymap.Delete:
		return n.delete(st)
	case keymap.CreateDir:
		return n.createDir(st, req.Name)
	case keymap.CreateBookmark:
		return n.createBookmark(st, req.Key)
	case keymap.JumpBookmark:
		return n.jumpBookmark(st, req.Key)
	case keymap.DeleteBookmark:
		return n.deleteBookmark(st, req.Key)
	case keymap.ToggleHidden:
		next := st
		next.ShowHidden = !st.ShowHidden
		return n.relist(st, next, selectedName(st))
	case keymap.Refresh:
		if inv, ok := n.fs.(invalidator); ok {
			inv.Invalidate(st.Dir)
		}
		return n.relist(st, st, selectedName(st))
	}
	// Quit, Help, OpenCommandMode and the bookmarks panel actions belong to the UI.
	return st, nil
}

// GoTo lists dir and makes it the current directory.
func (n *Navigator) GoTo(st State, dir string) (State, error) {
	next := st
	next.Dir = filepath.Clean(dir)
	next.Selected = 0
	return n.relist(st, next, "")
}

// Register returns the on-disk register.
func (n *Navigator) Register() (store.Register, error) {
	return n.store.ReadRegister()
}

// Bookmarks returns the on-disk bookmarks ordered by key.
func (n *Navigator) Bookmarks() ([]Bookmark, error) {
	m, err := n.store.ReadBookmarks()
	if err != nil {
		return nil, err
	}
	out := make([]Bookmark, 0, len(m))
	for k, p := range m {
		out = append(out, Bookmark{Key: k, Path: p})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// relist lists next.Dir and selects the entry called name, falling back to
// next.Selected. A listing failure returns prev.
func (n *Navigator) relist(prev, next State, name string) (State, error) {
	entries, err := n.fs.List(next.Dir, next.ShowHidden)
	if err != nil {
		return prev, listError(next.Dir, err)
	}
	next.Entries = entries
	if name != "" {
		if i := fsops.IndexOf(entries, name); i >= 0 {
			next.Selected = i
		}
	}
	return next.clamp(), nil
}

func (n *Navigator) enterDir(st State) (State, error) {
	cur, ok := st.Current()
	if !ok || !cur.IsDir {
		return st, nil
	}
	next := st
	next.Dir = cur.Path
	next.Selected = 0
	return n.relist(st, next, "")
}

func (n *Navigator) goParent(st State) (State, error) {
	parent := filepath.Dir(st.Dir)
	if parent == st.Dir {
		return st, nil
	}
	next := st
	next.Dir = parent
	next.Selected = 0
	return n.relist(st, next, filepath.Base(st.Dir))
}

func (n *Navigator) mark(st State, mode store.Mode) (State, error) {
	cur, ok := st.Current()
	if !ok {
		return st, nil
	}
	// The previous register is replaced whatever it held; a read failure
	// only matters for the log since the write repairs the file.
	if prev, err := n.store.ReadRegister(); err != nil {
		log.LogWithError(err).Warn("replacing unreadable register")
	} else if !prev.Empty() {
		log.LogWithFields(log.F("mode", prev.Mode.String()), log.F("entries", len(prev.Entries))).Debug("register overwritten")
	}
	if err := n.store.WriteRegister(mode, []string{cur.Path}); err != nil {
		return st, err
	}
	log.LogWithFields(log.F("mode", mode.String()), log.F("path", cur.Path)).Info("register set")
	return st, nil
}

func (n *Navigator) paste(st State) (State, error) {
	reg, err := n.store.ReadRegister()
	if err != nil {
		return st, err
	}
	if reg.Empty() {
		return st, nil
	}

	var (
		failed []string
		causes []error
		last   string
	)
	for _, src := range reg.Entries {
		name, err := n.pasteOne(reg.Mode, src, st.Dir)
		if err != nil {
			log.LogWithError(err).With(log.F("src", src)).Warn("paste failed")
			failed = append(failed, src)
			causes = append(causes, err)
			continue
		}
		last = name
	}

	var regErr error
	if reg.Mode == store.Cut {
		// Moved entries leave the register; failed ones stay for a retry.
		if regErr = n.store.WriteRegister(store.Cut, failed); regErr != nil {
			causes = append(causes, regErr)
		}
	}

	next, listErr := n.relist(st, st, last)
	log.LogWithFields(log.F("mode", reg.Mode.String()), log.F("pasted", len(reg.Entries)-len(failed)), log.F("failed", len(failed)), log.F("dir", st.Dir)).Info("paste finished")
	switch {
	case len(failed) > 0:
		return next, errors.NewPartialPasteError(failed, causes...)
	case regErr != nil:
		return next, regErr
	}
	return next, listErr
}

// pasteOne copies or moves src into dir and returns the name it got.
func (n *Navigator) pasteOne(mode store.Mode, src, dir string) (string, error) {
	base := filepath.Base(src)
	if mode == store.Cut && filepath.Dir(src) == dir {
		// Moving onto itself.
		if !n.fs.Exists(src) {
			return "", errors.NewNavigationError("entry no longer exists", src, errors.NotFound, nil)
		}
		return base, nil
	}
	name, err := fsops.UniqueName(n.fs, dir, base)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(dir, name)
	if mode == store.Cut {
		err = n.fs.Move(src, dst)
	} else {
		err = n.fs.Copy(src, dst)
	}
	if err != nil {
		return "", actionError("cannot paste", src, err)
	}
	return name, nil
}

// checkName validates a new sibling name for st.Dir.
func (n *Navigator) checkName(st State, name string) error {
	if !fsops.ValidName(name) {
		return errors.NewNavigationError(fmt.Sprintf("invalid name %q", name), st.Dir, errors.InvalidName, nil)
	}
	if n.fs.Exists(filepath.Join(st.Dir, name)) {
		return errors.NewNavigationError("name already exists", filepath.Join(st.Dir, name), errors.NameCollision, nil)
	}
	return nil
}

func (n *Navigator) rename(st State, name string) (State, error) {
	cur, ok := st.Current()
	if !ok {
		return st, nil
	}
	if name == cur.Name {
		return st, nil
	}
	if err := n.checkName(st, name); err != nil {
		return st, err
	}
	dst, err := n.fs.Rename(cur.Path, name)
	if err != nil {
		return st, actionError("cannot rename", cur.Path, err)
	}
	log.LogWithFields(log.F("from", cur.Path), log.F("to", dst)).Info("renamed")
	return n.relist(st, st, name)
}

func (n *Navigator) delete(st State) (State, error) {
	cur, ok := st.Current()
	if !ok {
		return st, nil
	}
	if err := n.fs.Remove(cur.Path); err != nil {
		return st, actionError("cannot delete", cur.Path, err)
	}
	log.LogWithFields(log.F("path", cur.Path)).Info("deleted")
	return n.relist(st, st, "")
}

func (n *Navigator) createDir(st State, name string) (State, error) {
	if err := n.checkName(st, name); err != nil {
		return st, err
	}
	path := filepath.Join(st.Dir, name)
	if err := n.fs.MkdirAll(path); err != nil {
		return st, actionError("cannot create directory", path, err)
	}
	log.LogWithFields(log.F("path", path)).Info("directory created")
	return n.relist(st, st, name)
}

func (n *Navigator) createBookmark(st State, key rune) (State, error) {
	if !store.ValidKey(key) {
		return st, errors.NewNavigationError(fmt.Sprintf("invalid bookmark key %q", key), st.Dir, errors.InvalidName, nil)
	}
	if err := n.store.WriteBookmark(key, st.Dir); err != nil {
		return st, err
	}
	log.LogWithFields(log.F("key", string(key)), log.F("path", st.Dir)).Info("bookmark set")
	return st, nil
}

func (n *Navigator) lookupBookmark(key rune) (string, error) {
	marks, err := n.store.ReadBookmarks()
	if err != nil {
		return "", err
	}
	path, ok := marks[key]
	if !ok {
		return "", errors.NewNavigationError(fmt.Sprintf("no bookmark %q", key), "", errors.UnknownBookmark, nil)
	}
	return path, nil
}

func (n *Navigator) jumpBookmark(st State, key rune) (State, error) {
	path, err := n.lookupBookmark(key)
	if err != nil {
		return st, err
	}
	return n.GoTo(st, path)
}

func (n *Navigator) deleteBookmark(st State, key rune) (State, error) {
	if _, err := n.lookupBookmark(key); err != nil {
		return st, err
	}
	if err := n.store.DeleteBookmark(key); err != nil {
		return st, err
	}
	log.LogWithFields(log.F("key", string(key))).Info("bookmark deleted")
	return st, nil
}

func selectedName(st State) string {
	if cur, ok := st.Current(); ok {
		return cur.Name
	}
	return ""
}

// listError maps a listing failure onto the navigation taxonomy.
func listError(path string, err error) error {
	if errors.IsFileAccessDenied(err) {
		return errors.NewNavigationError("permission denied", path, errors.PermissionDenied, err)
	}
	return errors.NewNavigationError("cannot list directory", path, errors.NotFound, err)
}

// actionError maps a filesystem failure of a mutating action.
func actionError(msg, path string, err error) error {
	switch {
	case errors.IsFileAccessDenied(err):
		return errors.NewNavigationError(msg, path, errors.PermissionDenied, err)
	case errors.IsFileNotFound(err):
		return errors.NewNavigationError(msg, path, errors.NotFound, err)
	case errors.Is(err, fsops.ErrExists):
		return errors.NewNavigationError(msg, path, errors.NameCollision, err)
	}
	return err
}
