// Package watch reports changes to the directory being browsed and to the
// shared register and bookmark files, so a running instance can follow
// what other instances do.
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"trooper/internal/log"

	"github.com/fsnotify/fsnotify"
)

// Kind says what changed.
type Kind int

const (
	// DirChanged means entries of the watched directory changed.
	DirChanged Kind = iota
	// RegisterChanged means the yank register file was replaced.
	RegisterChanged
	// BookmarksChanged means the bookmarks file was replaced.
	BookmarksChanged
)

func (k Kind) String() string {
	switch k {
	case DirChanged:
		return "dir"
	case RegisterChanged:
		return "register"
	case BookmarksChanged:
		return "bookmarks"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Change is one debounced notification. Path is the watched directory
// or the store file that changed.
type Change struct {
	Kind Kind
	Path string
}

// Config holds watcher configuration options.
type Config struct {
	// StoreDir contains RegisterFile and BookmarksFile. Empty disables store watching.
	StoreDir      string
	RegisterFile  string
	BookmarksFile string
	// Debounce coalesces bursts of events of the same kind.
	Debounce time.Duration
}

// DefaultDebounce is used when Config.Debounce is zero.
const DefaultDebounce = 150 * time.Millisecond

// Watcher monitors the current directory and the store directory using fsnotify.
type Watcher struct {
	cfg       Config
	fsWatcher *fsnotify.Watcher
	changes   chan Change
	done      chan struct{}
	stopped   chan struct{}

	mutex   sync.RWMutex
	current string
	running bool
}

// New creates a watcher. Call Start to begin receiving changes.
func New(cfg Config) (*Watcher, error) {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	return &Watcher{
		cfg:       cfg,
		fsWatcher: fsw,
		changes:   make(chan Change, 8),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}, nil
}

// Start begins watching the store directory. The returned channel is
// closed after Stop.
func (w *Watcher) Start() (<-chan Change, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.running {
		return nil, fmt.Errorf("watcher already running")
	}
	select {
	case <-w.done:
		return nil, fmt.Errorf("watcher was stopped")
	default:
	}
	if w.cfg.StoreDir != "" {
		if err := w.fsWatcher.Add(w.cfg.StoreDir); err != nil {
			return nil, fmt.Errorf("watching store directory %s: %w", w.cfg.StoreDir, err)
		}
	}
	w.running = true
	go w.loop()
	log.LogWithFields(log.F("store_dir", w.cfg.StoreDir)).Debug("watcher started")
	return w.changes, nil
}

// SetDirectory switches the watched browsing directory to dir.
func (w *Watcher) SetDirectory(dir string) error {
	dir = filepath.Clean(dir)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("error accessing directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.current == dir {
		return nil
	}
	if w.current != "" && w.current != w.cfg.StoreDir {
		// The old directory may be gone already.
		_ = w.fsWatcher.Remove(w.current)
	}
	if dir != w.cfg.StoreDir {
		if err := w.fsWatcher.Add(dir); err != nil {
			return fmt.Errorf("failed to add directory %s to watcher: %w", dir, err)
		}
	}
	w.current = dir
	log.LogWithFields(log.F("directory", dir)).Debug("watching directory")
	return nil
}

// Directory returns the watched browsing directory.
func (w *Watcher) Directory() string {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	return w.current
}

// IsRunning returns whether the watcher is currently active
func (w *Watcher) IsRunning() bool {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	return w.running
}

// Stop terminates the watcher and releases resources.
func (w *Watcher) Stop() error {
	w.mutex.Lock()
	if !w.running {
		w.mutex.Unlock()
		select {
		case <-w.done:
		default:
			close(w.done)
		}
		return w.fsWatcher.Close()
	}
	w.running = false
	w.mutex.Unlock()

	close(w.done)
	err := w.fsWatcher.Close()
	<-w.stopped
	return err
}

// classify maps an fsnotify event to the kind of change it signals.
func (w *Watcher) classify(event fsnotify.Event) (Change, bool) {
	if event.Op == fsnotify.Chmod {
		return Change{}, false
	}
	dir := filepath.Dir(event.Name)
	base := filepath.Base(event.Name)

	if w.cfg.StoreDir != "" && dir == filepath.Clean(w.cfg.StoreDir) {
		switch base {
		case w.cfg.RegisterFile:
			return Change{Kind: RegisterChanged, Path: event.Name}, true
		case w.cfg.BookmarksFile:
			return Change{Kind: BookmarksChanged, Path: event.Name}, true
		}
	}

	w.mutex.RLock()
	current := w.current
	w.mutex.RUnlock()
	if current != "" && dir == current {
		return Change{Kind: DirChanged, Path: current}, true
	}
	return Change{}, false
}

// loop processes file system events, sending at most one change per kind
// per debounce interval.
func (w *Watcher) loop() {
	defer close(w.stopped)
	defer close(w.changes)

	pending := make(map[Kind]Change)
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			change, relevant := w.classify(event)
			if !relevant {
				continue
			}
			pending[change.Kind] = change
			if timer == nil {
				timer = time.NewTimer(w.cfg.Debounce)
				fire = timer.C
			}

		case <-fire:
			for kind, change := range pending {
				select {
				case w.changes <- change:
				default:
					log.LogWithFields(log.F("kind", change.Kind.String())).Warn("change channel is full, dropped notification")
				}
				delete(pending, kind)
			}
			timer, fire = nil, nil

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.LogWithFields(log.F("error", err)).Error("fsnotify watcher error")

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}
