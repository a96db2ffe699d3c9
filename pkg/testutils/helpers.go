package testutils

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/require"
)

// CreateTree creates files and directories below root. Keys ending in "/"
// are directories; other keys are files holding the mapped content.
// Parent directories are created as needed.
func CreateTree(t *testing.T, root string, tree map[string]string) {
	t.Helper()
	for name, content := range tree {
		path := filepath.Join(root, filepath.FromSlash(name))
		if strings.HasSuffix(name, "/") {
			require.NoError(t, os.MkdirAll(path, 0o755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// CreateTestFilesWithDefault creates a small mixed tree in dir.
func CreateTestFilesWithDefault(t *testing.T, dir string) {
	t.Helper()
	CreateTree(t, dir, map[string]string{
		"test1.txt":      "test content 1",
		"Test2.txt":      "test content 2",
		"photo.jpg":      "image content",
		".hidden":        "secret",
		"docs/":          "",
		"docs/readme.md": "# readme",
		"Archive/":       "",
	})
}

// ReadFile returns the content of path or fails the test.
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// Names returns the sorted base names in dir.
func Names(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

// StripANSI removes ANSI escape sequences from a string
func StripANSI(str string) string {
	return ansi.Strip(str)
}
