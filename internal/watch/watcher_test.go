package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	registerName  = "register.yaml"
	bookmarksName = "bookmarks.yaml"
)

func startWatcher(t *testing.T, storeDir string) (*Watcher, <-chan Change) {
	t.Helper()
	w, err := New(Config{
		StoreDir:      storeDir,
		RegisterFile:  registerName,
		BookmarksFile: bookmarksName,
		Debounce:      20 * time.Millisecond,
	})
	require.NoError(t, err)
	changes, err := w.Start()
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })
	// Allow fsnotify to set up its watches.
	time.Sleep(50 * time.Millisecond)
	return w, changes
}

// waitFor reads changes until one of kind arrives.
func waitFor(t *testing.T, changes <-chan Change, kind Kind) Change {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case c, ok := <-changes:
			require.True(t, ok, "change channel closed")
			if c.Kind == kind {
				return c
			}
		case <-timeout:
			t.Fatalf("timeout waiting for %s change", kind)
		}
	}
}

func TestStoreChanges(t *testing.T) {
	store := t.TempDir()
	_, changes := startWatcher(t, store)

	require.NoError(t, os.WriteFile(filepath.Join(store, registerName), []byte("mode: yank\n"), 0o600))
	c := waitFor(t, changes, RegisterChanged)
	assert.Equal(t, filepath.Join(store, registerName), c.Path)

	// Atomic replacement through a temp file, as the store does it.
	tmp := filepath.Join(store, ".bookmarks.yaml.tmp.1")
	require.NoError(t, os.WriteFile(tmp, []byte("bookmarks: {}\n"), 0o600))
	require.NoError(t, os.Rename(tmp, filepath.Join(store, bookmarksName)))
	c = waitFor(t, changes, BookmarksChanged)
	assert.Equal(t, filepath.Join(store, bookmarksName), c.Path)
}

func TestUnrelatedStoreFilesAreIgnored(t *testing.T) {
	store := t.TempDir()
	_, changes := startWatcher(t, store)

	require.NoError(t, os.WriteFile(filepath.Join(store, "config.yaml"), []byte("x"), 0o600))

	select {
	case c := <-changes:
		t.Fatalf("unexpected change %+v", c)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestDirectoryChanges(t *testing.T) {
	w, changes := startWatcher(t, t.TempDir())
	first, second := t.TempDir(), t.TempDir()

	require.NoError(t, w.SetDirectory(first))
	assert.Equal(t, first, w.Directory())
	time.Sleep(50 * time.Millisecond)

	// A burst of events is coalesced into few notifications.
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, os.WriteFile(filepath.Join(first, name), nil, 0o644))
	}
	c := waitFor(t, changes, DirChanged)
	assert.Equal(t, first, c.Path)

	require.NoError(t, w.SetDirectory(second))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(second, "d"), nil, 0o644))
	c = waitFor(t, changes, DirChanged)
	assert.Equal(t, second, c.Path)
}

func TestSetDirectoryErrors(t *testing.T) {
	w, err := New(Config{})
	require.NoError(t, err)
	defer w.Stop()

	assert.Error(t, w.SetDirectory(filepath.Join(t.TempDir(), "missing")))

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	assert.Error(t, w.SetDirectory(file))
}

func TestStopClosesChannel(t *testing.T) {
	w, changes := startWatcher(t, t.TempDir())
	assert.True(t, w.IsRunning())

	require.NoError(t, w.Stop())
	assert.False(t, w.IsRunning())

	select {
	case _, ok := <-changes:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after Stop")
	}

	_, err := w.Start()
	assert.Error(t, err, "a stopped watcher cannot restart")
}
