package fsops

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"trooper/internal/errors"
	"trooper/pkg/testutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOS(t *testing.T, opts Options) *OS {
	t.Helper()
	o, err := NewOS(opts)
	require.NoError(t, err)
	return o
}

func names(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	testutils.CreateTestFilesWithDefault(t, dir)
	o := newOS(t, Options{})

	entries, err := o.List(dir, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"Archive", "docs", "photo.jpg", "test1.txt", "Test2.txt"}, names(entries))
	assert.True(t, entries[0].IsDir)
	assert.Equal(t, filepath.Join(dir, "photo.jpg"), entries[2].Path)
	assert.Equal(t, int64(len("image content")), entries[2].Size)

	entries, err = o.List(dir, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"Archive", "docs", ".hidden", "photo.jpg", "test1.txt", "Test2.txt"}, names(entries))
	assert.True(t, entries[2].Hidden)
}

func TestListErrors(t *testing.T) {
	o := newOS(t, Options{})
	_, err := o.List(filepath.Join(t.TempDir(), "missing"), false)
	require.Error(t, err)
	assert.True(t, errors.IsFileNotFound(err))
}

func TestHiddenPatterns(t *testing.T) {
	dir := t.TempDir()
	testutils.CreateTree(t, dir, map[string]string{
		"main.go":      "",
		"main.go.swp":  "",
		"__pycache__/": "",
	})
	o := newOS(t, Options{HiddenPatterns: []string{"*.swp", "__pycache__"}})

	entries, err := o.List(dir, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"main.go"}, names(entries))

	_, err = NewOS(Options{HiddenPatterns: []string{"[oops"}})
	assert.True(t, errors.IsInvalidConfig(err))
}

func TestListingCache(t *testing.T) {
	dir := t.TempDir()
	testutils.CreateTree(t, dir, map[string]string{"a": "1"})
	o := newOS(t, Options{CacheTTL: time.Hour})

	entries, err := o.List(dir, false)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	// A change made behind OS's back is not seen until invalidated.
	testutils.CreateTree(t, dir, map[string]string{"b": "2"})
	entries, err = o.List(dir, false)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	o.Invalidate(dir)
	entries, err = o.List(dir, false)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	// Mutations through OS invalidate on their own.
	require.NoError(t, o.MkdirAll(filepath.Join(dir, "c")))
	entries, err = o.List(dir, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, names(entries))
}

func TestCopy(t *testing.T) {
	dir := t.TempDir()
	testutils.CreateTree(t, dir, map[string]string{
		"src/file.txt":       "hello",
		"src/tree/a.txt":     "a",
		"src/tree/sub/b.txt": "b",
		"dst/":               "",
	})
	o := newOS(t, Options{})

	require.NoError(t, o.Copy(filepath.Join(dir, "src/file.txt"), filepath.Join(dir, "dst/file.txt")))
	assert.Equal(t, "hello", testutils.ReadFile(t, filepath.Join(dir, "dst/file.txt")))
	assert.True(t, o.Exists(filepath.Join(dir, "src/file.txt")))

	require.NoError(t, o.Copy(filepath.Join(dir, "src/tree"), filepath.Join(dir, "dst/tree")))
	assert.Equal(t, "b", testutils.ReadFile(t, filepath.Join(dir, "dst/tree/sub/b.txt")))

	err := o.Copy(filepath.Join(dir, "src/file.txt"), filepath.Join(dir, "dst/file.txt"))
	assert.True(t, errors.Is(err, ErrExists))

	err = o.Copy(filepath.Join(dir, "src/tree"), filepath.Join(dir, "src/tree/sub/tree"))
	assert.Error(t, err, "copying a directory into itself")

	err = o.Copy(filepath.Join(dir, "src/none"), filepath.Join(dir, "dst/none"))
	assert.True(t, errors.IsFileNotFound(err))
}

func TestMoveRenameRemove(t *testing.T) {
	dir := t.TempDir()
	testutils.CreateTree(t, dir, map[string]string{
		"a/x.txt": "x",
		"a/d/y":   "y",
		"b/":      "",
	})
	o := newOS(t, Options{CacheTTL: time.Hour})
	_, err := o.List(filepath.Join(dir, "a"), false)
	require.NoError(t, err)

	require.NoError(t, o.Move(filepath.Join(dir, "a/x.txt"), filepath.Join(dir, "b/x.txt")))
	assert.False(t, o.Exists(filepath.Join(dir, "a/x.txt")))
	assert.Equal(t, "x", testutils.ReadFile(t, filepath.Join(dir, "b/x.txt")))

	entries, err := o.List(filepath.Join(dir, "a"), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"d"}, names(entries), "source listing was invalidated")

	dst, err := o.Rename(filepath.Join(dir, "a/d"), "renamed")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a/renamed"), dst)
	assert.Equal(t, "y", testutils.ReadFile(t, filepath.Join(dst, "y")))

	_, err = o.Rename(dst, "bad/name")
	assert.Error(t, err)

	require.NoError(t, o.Remove(dst))
	assert.False(t, o.Exists(dst))
	assert.True(t, errors.IsFileNotFound(o.Remove(dst)))
}

func TestStat(t *testing.T) {
	dir := t.TempDir()
	testutils.CreateTree(t, dir, map[string]string{"d/": "", "f": "abc"})
	o := newOS(t, Options{})

	e, err := o.Stat(filepath.Join(dir, "d"))
	require.NoError(t, err)
	assert.True(t, e.IsDir)

	e, err = o.Stat(filepath.Join(dir, "f"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), e.Size)

	require.NoError(t, os.Symlink(filepath.Join(dir, "d"), filepath.Join(dir, "link")))
	e, err = o.Stat(filepath.Join(dir, "link"))
	require.NoError(t, err)
	assert.True(t, e.Symlink)
	assert.True(t, e.IsDir)
}

func TestCopyName(t *testing.T) {
	tests := map[string]string{
		"x.txt":          "x (Copy).txt",
		"x (Copy).txt":   "x (Copy) (Copy).txt",
		"Makefile":       "Makefile (Copy)",
		".bashrc":        ".bashrc (Copy)",
		"archive.tar.gz": "archive.tar (Copy).gz",
	}
	for in, want := range tests {
		assert.Equal(t, want, CopyName(in), in)
	}
}

func TestUniqueName(t *testing.T) {
	dir := t.TempDir()
	testutils.CreateTree(t, dir, map[string]string{"x.txt": "", "x (Copy).txt": ""})
	o := newOS(t, Options{})

	name, err := UniqueName(o, dir, "x.txt")
	require.NoError(t, err)
	assert.Equal(t, "x (Copy) (Copy).txt", name)

	name, err = UniqueName(o, dir, "y.txt")
	require.NoError(t, err)
	assert.Equal(t, "y.txt", name)
}

func TestValidName(t *testing.T) {
	for _, n := range []string{"a", "a b", ".hidden", "ü.txt"} {
		assert.True(t, ValidName(n), n)
	}
	for _, n := range []string{"", "  ", ".", "..", "a/b", "a\x00b"} {
		assert.False(t, ValidName(n), n)
	}
}
