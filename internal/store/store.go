// Package store persists the yank register and the bookmarks in a
// per-user directory so that every running trooper process sees the same
// state. Files are replaced atomically (temp file plus rename); bookmarks
// are updated read-merge-write and retried when another process changed
// the file underneath.
package store

import (
	"bytes"
	"os"
	"path/filepath"
	"time"

	"trooper/internal/errors"
	"trooper/internal/log"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

const (
	// RegisterFile holds the pending copy/cut set.
	RegisterFile = "register.yaml"
	// BookmarksFile holds the key to directory mapping.
	BookmarksFile = "bookmarks.yaml"

	schemaVersion = 1

	defaultMaxTries = 8
	defaultInterval = 10 * time.Millisecond
)

// Store is a handle on a store directory. Two Store values on the same
// directory behave like two processes: neither caches state between calls.
type Store struct {
	dir      string
	id       string
	maxTries uint
	interval time.Duration

	// beforeCommit runs between preparing a bookmark update and the
	// conflict check that guards its rename.
	beforeCommit func()
}

// Option configures a Store.
type Option func(*Store)

// WithInstanceID overrides the generated writer id.
func WithInstanceID(id string) Option {
	return func(s *Store) { s.id = id }
}

// WithRetry bounds bookmark conflict retries. initial is the first backoff interval.
func WithRetry(maxTries uint, initial time.Duration) Option {
	return func(s *Store) {
		if maxTries > 0 {
			s.maxTries = maxTries
		}
		if initial > 0 {
			s.interval = initial
		}
	}
}

// DefaultDir returns the per-user store location, e.g. ~/.config/trooper.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", errors.NewStoreError("cannot locate user config directory", "", errors.StoreReadFailed, err)
	}
	return filepath.Join(base, "trooper"), nil
}

// Open prepares dir for use, creating it if needed.
func Open(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.NewStoreError("invalid store directory", dir, errors.StoreWriteFailed, err)
	}
	if err := os.MkdirAll(abs, 0o700); err != nil {
		return nil, errors.NewStoreError("cannot create store directory", abs, errors.StoreWriteFailed, err)
	}

	s := &Store{
		dir:      abs,
		id:       uuid.NewString(),
		maxTries: defaultMaxTries,
		interval: defaultInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	log.LogWithFields(log.F("dir", abs), log.F("writer", s.id)).Debug("store opened")
	return s, nil
}

// Dir returns the absolute store directory.
func (s *Store) Dir() string {
	return s.dir
}

// ID returns the writer id recorded in files this Store writes.
func (s *Store) ID() string {
	return s.id
}

// Files returns the paths of the files the store manages.
func (s *Store) Files() []string {
	return []string{s.path(RegisterFile), s.path(BookmarksFile)}
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

// readFile returns nil data and no error for a missing file.
func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.NewStoreError("cannot read store file", path, errors.StoreReadFailed, err)
	}
	return data, nil
}

// writeTemp writes data next to path and returns the temp file name.
func writeTemp(path string, data []byte) (string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp.*")
	if err != nil {
		return "", errors.NewStoreError("cannot create temp file", path, errors.StoreWriteFailed, err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return "", errors.NewStoreError("cannot write temp file", path, errors.StoreWriteFailed, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return "", errors.NewStoreError("cannot sync temp file", path, errors.StoreWriteFailed, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return "", errors.NewStoreError("cannot close temp file", path, errors.StoreWriteFailed, err)
	}
	return name, nil
}

func commit(tmp, path string) error {
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.NewStoreError("cannot replace store file", path, errors.StoreWriteFailed, err)
	}
	return nil
}

// atomicWrite replaces path so readers see either the old or the new content.
func atomicWrite(path string, data []byte) error {
	tmp, err := writeTemp(path, data)
	if err != nil {
		return err
	}
	return commit(tmp, path)
}

// fingerprint identifies one version of a file's content.
type fingerprint struct {
	exists  bool
	size    int64
	modTime time.Time
	sum     uint64
}

func fingerprintOf(path string) (fingerprint, []byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fingerprint{}, nil, nil
		}
		return fingerprint{}, nil, errors.NewStoreError("cannot stat store file", path, errors.StoreReadFailed, err)
	}
	data, err := readFile(path)
	if err != nil {
		return fingerprint{}, nil, err
	}
	if data == nil {
		return fingerprint{}, nil, nil
	}
	return fingerprint{
		exists:  true,
		size:    info.Size(),
		modTime: info.ModTime(),
		sum:     xxhash.Sum64(data),
	}, data, nil
}

func (f fingerprint) equal(o fingerprint) bool {
	return f.exists == o.exists && f.size == o.size && f.modTime.Equal(o.modTime) && f.sum == o.sum
}

// holds reports whether path currently contains exactly data.
func holds(path string, data []byte) bool {
	current, err := os.ReadFile(path)
	return err == nil && bytes.Equal(current, data)
}
