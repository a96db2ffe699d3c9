package cmd

import (
	"fmt"
	"os"

	"trooper/internal/fsops"
	"trooper/internal/keymap"
	"trooper/internal/log"
	"trooper/internal/matcher"
	"trooper/internal/navigator"
	"trooper/internal/store"
	"trooper/internal/tui"
	"trooper/internal/watch"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// session is everything the browser needs, assembled from the configuration.
type session struct {
	model   *tui.Model
	watcher *watch.Watcher
}

func (a *app) runBrowser(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	// Query the background colour before the program owns stdin.
	s, err := a.newSession(dir, !lipgloss.HasDarkBackground())
	if err != nil {
		return err
	}
	if s.watcher != nil {
		defer s.watcher.Stop()
	}

	a.logToFile()
	defer log.Close()
	log.LogWithFields(log.F("dir", s.model.State().Dir)).Info("browser started")

	p := tea.NewProgram(s.model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running browser: %w", err)
	}
	return nil
}

// newSession wires the keymap, matcher, store, filesystem and watcher.
// Keymap and config errors are returned before the terminal is touched.
func (a *app) newSession(dir string, lightBackground bool) (*session, error) {
	table, err := keymap.LoadFile(a.cfg.KeymapFile)
	if err != nil {
		return nil, err
	}

	st, err := a.openStore()
	if err != nil {
		return nil, err
	}

	fsys, err := fsops.NewOS(fsops.Options{
		CacheTTL:       a.cfg.ListingCacheTTL,
		HiddenPatterns: a.cfg.HiddenPatterns,
	})
	if err != nil {
		return nil, err
	}

	nav := navigator.New(fsys, st)
	state, err := nav.Open(dir, a.cfg.ShowHidden)
	if err != nil {
		return nil, err
	}

	opts := tui.Options{
		Navigator: nav,
		Matcher:   matcher.New(table, a.cfg.SequenceTimeout),
		State:     state,
		Theme:     a.cfg.Theme,

		LightBackground: lightBackground,
	}

	s := &session{}
	if a.cfg.Watch {
		w, changes, err := startWatcher(st.Dir())
		if err != nil {
			// Browsing works without notifications.
			log.LogWithError(err).Warn("file watching disabled")
			fmt.Fprintln(os.Stderr, "warning: file watching disabled:", err)
		} else {
			s.watcher = w
			opts.Changes = changes
			opts.Watcher = w
		}
	}

	s.model = tui.New(opts)
	return s, nil
}

// startWatcher follows the register and bookmark files in storeDir.
func startWatcher(storeDir string) (*watch.Watcher, <-chan watch.Change, error) {
	w, err := watch.New(watch.Config{
		StoreDir:      storeDir,
		RegisterFile:  store.RegisterFile,
		BookmarksFile: store.BookmarksFile,
	})
	if err != nil {
		return nil, nil, err
	}
	changes, err := w.Start()
	if err != nil {
		_ = w.Stop()
		return nil, nil, err
	}
	return w, changes, nil
}
