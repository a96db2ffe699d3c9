// Package fsops is the filesystem collaborator of the navigator: directory
// listings and the copy, move, rename, mkdir and delete primitives.
package fsops

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"trooper/internal/errors"
)

// Entry is one item of a directory listing.
type Entry struct {
	Name    string
	Path    string
	IsDir   bool
	Symlink bool
	Hidden  bool
	Size    int64
	Mode    fs.FileMode
	ModTime time.Time
}

// FS is what the navigator needs from the filesystem. Errors are
// *errors.FileError values whose kind tells not-found and access-denied
// failures apart.
type FS interface {
	// List returns dir's entries, directories first then by name
	// ignoring case. Hidden entries are omitted unless showHidden.
	List(dir string, showHidden bool) ([]Entry, error)
	Stat(path string) (Entry, error)
	Exists(path string) bool
	// Copy copies a file or directory tree to dst, which must not exist.
	Copy(src, dst string) error
	// Move renames src to dst, which must not exist, copying across devices.
	Move(src, dst string) error
	// Rename gives path a new base name in the same directory.
	Rename(path, newName string) (string, error)
	MkdirAll(path string) error
	// Remove deletes path recursively.
	Remove(path string) error
}

// ErrExists is wrapped by errors about an already existing destination.
var ErrExists = errors.New("destination already exists")

// CopySuffix marks the name of a pasted duplicate.
const CopySuffix = " (Copy)"

// CopyName returns name with CopySuffix inserted before its extension:
// "x.txt" becomes "x (Copy).txt". Dotfiles without a further extension
// keep the suffix at the end.
func CopyName(name string) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if stem == "" {
		return name + CopySuffix
	}
	return stem + CopySuffix + ext
}

// UniqueName returns the first of name, CopyName(name),
// CopyName(CopyName(name)), ... that does not exist in dir.
func UniqueName(fsys FS, dir, name string) (string, error) {
	candidate := name
	for i := 0; i < 1000; i++ {
		if !fsys.Exists(filepath.Join(dir, candidate)) {
			return candidate, nil
		}
		candidate = CopyName(candidate)
	}
	return "", errors.NewFileError(fmt.Sprintf("failed to find unique name for %s after 1000 attempts", name), filepath.Join(dir, name), errors.FileOperationFailed, ErrExists)
}

// ValidName reports whether name can be used as a single path element.
func ValidName(name string) bool {
	if strings.TrimSpace(name) == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/`+string(filepath.Separator)) && !strings.ContainsRune(name, 0)
}

// SortEntries orders entries directories first, then by name ignoring case.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.IsDir != b.IsDir {
			return a.IsDir
		}
		la, lb := strings.ToLower(a.Name), strings.ToLower(b.Name)
		if la != lb {
			return la < lb
		}
		return a.Name < b.Name
	})
}

// IndexOf returns the position of the entry called name, or -1.
func IndexOf(entries []Entry, name string) int {
	for i, e := range entries {
		if e.Name == name {
			return i
		}
	}
	return -1
}

// wrapErr converts an os error into a FileError of the matching kind.
func wrapErr(msg, path string, err error) error {
	if err == nil {
		return nil
	}
	var fileErr *errors.FileError
	if errors.As(err, &fileErr) {
		return err
	}
	kind := errors.FileOperationFailed
	switch {
	case os.IsNotExist(err):
		kind = errors.FileNotFound
	case os.IsPermission(err):
		kind = errors.FileAccessDenied
	case errors.Is(err, ErrExists), os.IsExist(err):
		kind = errors.InvalidPath
	}
	return errors.NewFileError(msg, path, kind, err)
}
