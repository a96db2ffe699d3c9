package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"unicode"
	"unicode/utf8"

	"trooper/internal/errors"
	"trooper/internal/log"

	"github.com/cenkalti/backoff/v5"
	"gopkg.in/yaml.v3"
)

var errConflict = errors.New("bookmarks changed during update")

type bookmarksFile struct {
	Version   int               `yaml:"version"`
	Revision  uint64            `yaml:"revision"`
	Writer    string            `yaml:"writer,omitempty"`
	Bookmarks map[string]string `yaml:"bookmarks"`
}

// ValidKey reports whether r can name a bookmark.
func ValidKey(r rune) bool {
	return r != utf8.RuneError && unicode.IsPrint(r) && !unicode.IsSpace(r)
}

// ReadBookmarks returns the current bookmarks. A missing file is an empty map.
func (s *Store) ReadBookmarks() (map[rune]string, error) {
	path := s.path(BookmarksFile)
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	f, err := decodeBookmarks(path, data)
	if err != nil {
		return nil, err
	}

	out := make(map[rune]string, len(f.Bookmarks))
	for k, v := range f.Bookmarks {
		r, size := utf8.DecodeRuneInString(k)
		if size != len(k) || !ValidKey(r) {
			log.LogWithFields(log.F("key", k), log.F("file", path)).Warn("ignoring invalid bookmark key")
			continue
		}
		out[r] = v
	}
	return out, nil
}

// WriteBookmark binds key to the absolute directory path, keeping every
// other bookmark, including ones written concurrently by other processes.
func (s *Store) WriteBookmark(key rune, path string) error {
	if !ValidKey(key) {
		return errors.NewStoreError(fmt.Sprintf("invalid bookmark key %q", key), s.path(BookmarksFile), errors.StoreWriteFailed, nil)
	}
	if !filepath.IsAbs(path) {
		return errors.NewStoreError("bookmark path must be absolute", path, errors.StoreWriteFailed, nil)
	}
	path = filepath.Clean(path)
	return s.updateBookmarks(func(bm map[string]string) bool {
		if bm[string(key)] == path {
			return false
		}
		bm[string(key)] = path
		return true
	})
}

// DeleteBookmark removes key. Deleting an unbound key is not an error.
func (s *Store) DeleteBookmark(key rune) error {
	return s.updateBookmarks(func(bm map[string]string) bool {
		if _, ok := bm[string(key)]; !ok {
			return false
		}
		delete(bm, string(key))
		return true
	})
}

func decodeBookmarks(path string, data []byte) (bookmarksFile, error) {
	var f bookmarksFile
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &f); err != nil {
			return f, errors.NewStoreError("corrupt bookmarks file", path, errors.StoreReadFailed, err)
		}
	}
	if f.Version > schemaVersion {
		return f, errors.NewStoreError(fmt.Sprintf("unsupported bookmarks version %d", f.Version), path, errors.StoreReadFailed, nil)
	}
	if f.Bookmarks == nil {
		f.Bookmarks = make(map[string]string)
	}
	return f, nil
}

// updateBookmarks applies mutate to the latest on-disk bookmarks and writes
// the result. The file fingerprint taken at read time is checked again just
// before the rename; if it moved, or the written content was replaced
// straight after the rename, the attempt is redone on fresh data. mutate
// returns false when nothing needs writing, which ends the loop.
func (s *Store) updateBookmarks(mutate func(map[string]string) bool) error {
	path := s.path(BookmarksFile)
	attempt := 0

	op := func() (struct{}, error) {
		attempt++
		before, data, err := fingerprintOf(path)
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		f, err := decodeBookmarks(path, data)
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		if !mutate(f.Bookmarks) {
			return struct{}{}, nil
		}

		f.Version = schemaVersion
		f.Revision++
		f.Writer = s.id
		out, err := yaml.Marshal(f)
		if err != nil {
			return struct{}{}, backoff.Permanent(errors.NewStoreError("cannot encode bookmarks", path, errors.StoreWriteFailed, err))
		}
		tmp, err := writeTemp(path, out)
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}

		if s.beforeCommit != nil {
			s.beforeCommit()
		}

		now, _, err := fingerprintOf(path)
		if err != nil || !now.equal(before) {
			_ = os.Remove(tmp)
			log.LogWithFields(log.F("file", path), log.F("attempt", attempt)).Debug("bookmark update conflict")
			return struct{}{}, errConflict
		}
		if err := commit(tmp, path); err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		if !holds(path, out) {
			return struct{}{}, errConflict
		}
		log.LogWithFields(log.F("revision", f.Revision), log.F("writer", s.id)).Debug("bookmarks written")
		return struct{}{}, nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.interval
	b.MaxInterval = 20 * s.interval

	_, err := backoff.Retry(context.Background(), op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(s.maxTries),
	)
	if errors.Is(err, errConflict) {
		return errors.NewStoreError(
			fmt.Sprintf("bookmarks kept changing, gave up after %d attempts", attempt), path, errors.StoreConflict, err)
	}
	return err
}
