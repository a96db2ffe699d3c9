package fsops

import (
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"trooper/internal/errors"
	"trooper/internal/log"

	"github.com/gobwas/glob"
	copydir "github.com/otiai10/copy"
	gocache "github.com/patrickmn/go-cache"
)

// Options configures OS.
type Options struct {
	// CacheTTL bounds how long a listing is reused. Zero disables caching.
	CacheTTL time.Duration
	// HiddenPatterns are globs matched against entry names; matching
	// entries are hidden in addition to dotfiles.
	HiddenPatterns []string
}

// OS is the FS backed by the operating system. Listings are cached per
// directory and dropped whenever a mutation through OS touches the
// directory or Invalidate is called.
type OS struct {
	cache  *gocache.Cache
	hidden []glob.Glob
}

// NewOS creates an OS filesystem.
func NewOS(opts Options) (*OS, error) {
	o := &OS{}
	for _, p := range opts.HiddenPatterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, errors.NewConfigError("invalid hidden pattern", p, errors.InvalidConfig, err)
		}
		o.hidden = append(o.hidden, g)
	}
	if opts.CacheTTL > 0 {
		o.cache = gocache.New(opts.CacheTTL, 2*opts.CacheTTL)
	}
	return o, nil
}

// Invalidate drops the cached listing of dir.
func (o *OS) Invalidate(dir string) {
	if o.cache != nil {
		o.cache.Delete(filepath.Clean(dir))
	}
}

// InvalidateAll drops every cached listing.
func (o *OS) InvalidateAll() {
	if o.cache != nil {
		o.cache.Flush()
	}
}

func (o *OS) isHidden(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	for _, g := range o.hidden {
		if g.Match(name) {
			return true
		}
	}
	return false
}

func (o *OS) List(dir string, showHidden bool) ([]Entry, error) {
	dir = filepath.Clean(dir)

	var all []Entry
	if cached, ok := o.cacheGet(dir); ok {
		all = cached
	} else {
		var err error
		if all, err = o.readDir(dir); err != nil {
			return nil, err
		}
		if o.cache != nil {
			o.cache.Set(dir, all, gocache.DefaultExpiration)
		}
	}

	out := make([]Entry, 0, len(all))
	for _, e := range all {
		if showHidden || !e.Hidden {
			out = append(out, e)
		}
	}
	return out, nil
}

func (o *OS) cacheGet(dir string) ([]Entry, bool) {
	if o.cache == nil {
		return nil, false
	}
	v, ok := o.cache.Get(dir)
	if !ok {
		return nil, false
	}
	entries, ok := v.([]Entry)
	return entries, ok
}

func (o *OS) readDir(dir string) ([]Entry, error) {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return nil, wrapErr("cannot list directory", dir, err)
	}

	entries := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		path := filepath.Join(dir, d.Name())
		e := Entry{
			Name:    d.Name(),
			Path:    path,
			IsDir:   d.IsDir(),
			Symlink: d.Type()&os.ModeSymlink != 0,
			Hidden:  o.isHidden(d.Name()),
		}
		if info, err := d.Info(); err == nil {
			e.Size = info.Size()
			e.Mode = info.Mode()
			e.ModTime = info.ModTime()
		}
		if e.Symlink {
			// Links to directories are navigable.
			if target, err := os.Stat(path); err == nil && target.IsDir() {
				e.IsDir = true
			}
		}
		entries = append(entries, e)
	}
	SortEntries(entries)
	return entries, nil
}

func (o *OS) Stat(path string) (Entry, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return Entry{}, wrapErr("cannot stat", path, err)
	}
	e := Entry{
		Name:    info.Name(),
		Path:    filepath.Clean(path),
		IsDir:   info.IsDir(),
		Symlink: info.Mode()&os.ModeSymlink != 0,
		Hidden:  o.isHidden(info.Name()),
		Size:    info.Size(),
		Mode:    info.Mode(),
		ModTime: info.ModTime(),
	}
	if e.Symlink {
		if target, err := os.Stat(path); err == nil && target.IsDir() {
			e.IsDir = true
		}
	}
	return e, nil
}

func (o *OS) Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func (o *OS) Copy(src, dst string) error {
	src, dst = filepath.Clean(src), filepath.Clean(dst)
	if _, err := os.Lstat(src); err != nil {
		return wrapErr("cannot copy", src, err)
	}
	if o.Exists(dst) {
		return wrapErr("cannot copy", dst, ErrExists)
	}
	if within(dst, src) {
		return errors.NewFileError("cannot copy a directory into itself", dst, errors.InvalidPath, nil)
	}

	err := copydir.Copy(src, dst, copydir.Options{
		OnSymlink:     func(string) copydir.SymlinkAction { return copydir.Shallow },
		PreserveTimes: true,
	})
	o.Invalidate(filepath.Dir(dst))
	if err != nil {
		return wrapErr("copy failed", src, err)
	}
	log.LogWithFields(log.F("src", src), log.F("dst", dst)).Debug("copied")
	return nil
}

func (o *OS) Move(src, dst string) error {
	src, dst = filepath.Clean(src), filepath.Clean(dst)
	if src == dst {
		return nil
	}
	if _, err := os.Lstat(src); err != nil {
		return wrapErr("cannot move", src, err)
	}
	if o.Exists(dst) {
		return wrapErr("cannot move", dst, ErrExists)
	}
	if within(dst, src) {
		return errors.NewFileError("cannot move a directory into itself", dst, errors.InvalidPath, nil)
	}
	defer o.Invalidate(filepath.Dir(src))
	defer o.Invalidate(filepath.Dir(dst))

	err := os.Rename(src, dst)
	if err == nil {
		log.LogWithFields(log.F("src", src), log.F("dst", dst)).Debug("moved")
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return wrapErr("move failed", src, err)
	}

	// Different filesystems: copy, then drop the source.
	if err := o.Copy(src, dst); err != nil {
		return err
	}
	if err := os.RemoveAll(src); err != nil {
		return wrapErr("moved but cannot remove source", src, err)
	}
	log.LogWithFields(log.F("src", src), log.F("dst", dst)).Debug("moved across devices")
	return nil
}

func (o *OS) Rename(path, newName string) (string, error) {
	if !ValidName(newName) {
		return "", errors.NewFileError("invalid name", newName, errors.InvalidPath, nil)
	}
	dst := filepath.Join(filepath.Dir(filepath.Clean(path)), newName)
	if err := o.Move(path, dst); err != nil {
		return "", err
	}
	return dst, nil
}

func (o *OS) MkdirAll(path string) error {
	defer o.Invalidate(filepath.Dir(filepath.Clean(path)))
	if err := os.MkdirAll(path, 0o755); err != nil {
		return wrapErr("cannot create directory", path, err)
	}
	return nil
}

func (o *OS) Remove(path string) error {
	path = filepath.Clean(path)
	if _, err := os.Lstat(path); err != nil {
		return wrapErr("cannot delete", path, err)
	}
	defer o.Invalidate(filepath.Dir(path))
	if err := os.RemoveAll(path); err != nil {
		return wrapErr("cannot delete", path, err)
	}
	log.LogWithFields(log.F("path", path)).Debug("deleted")
	return nil
}

// within reports whether path is root or lies below it.
func within(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
