package tools

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFiles(t *testing.T) (*Files, string) {
	t.Helper()
	dir := t.TempDir()
	root, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "notes", "deep"), 0755))
	for name, body := range map[string]string{
		"Readme.md":            "# readme",
		"notes/Alpha-plan.txt": "alpha",
		"notes/deep/alpha.md":  "deep alpha",
		"notes/beta.txt":       "beta",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(body), 0644))
	}
	f, err := NewFiles(root)
	require.NoError(t, err)
	return f, root
}

func TestSafePath(t *testing.T) {
	f, root := newFiles(t)

	got, err := f.SafePath("notes/beta.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "notes", "beta.txt"), got)

	got, err = f.SafePath(".")
	require.NoError(t, err)
	assert.Equal(t, root, got)

	_, err = f.SafePath("../outside.txt")
	assert.ErrorIs(t, err, ErrOutsideDocs)
	_, err = f.SafePath("/etc/passwd")
	assert.ErrorIs(t, err, ErrOutsideDocs)
	_, err = f.SafePath(root + "-sibling/x")
	assert.ErrorIs(t, err, ErrOutsideDocs)

	got, err = f.SafePath(filepath.Join(root, "Readme.md"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "Readme.md"), got)
}

func TestSafePath_SymlinkEscape(t *testing.T) {
	f, root := newFiles(t)
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret"), []byte("s"), 0644))
	if err := os.Symlink(outside, filepath.Join(root, "link")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	_, err := f.ReadFile("link/secret")
	assert.ErrorIs(t, err, ErrOutsideDocs)
}

func TestSearchLocalFiles(t *testing.T) {
	f, _ := newFiles(t)

	got, err := f.SearchLocalFiles("ALPHA", 5)
	require.NoError(t, err)
	names := make([]string, len(got))
	for i, m := range got {
		names[i] = m.Name
	}
	assert.ElementsMatch(t, []string{"Alpha-plan.txt", "alpha.md"}, names)

	got, err = f.SearchLocalFiles("a", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = f.SearchLocalFiles("*.txt", 0)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = f.SearchLocalFiles("nomatch", 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearchLocalFiles_MissingRoot(t *testing.T) {
	f, err := NewFiles(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	got, err := f.SearchLocalFiles("x", 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadFile(t *testing.T) {
	f, root := newFiles(t)
	got, err := f.ReadFile("notes/deep/alpha.md")
	require.NoError(t, err)
	assert.Equal(t, "deep alpha", got.Content)
	assert.Equal(t, filepath.Join(root, "notes", "deep", "alpha.md"), got.Path)

	_, err = f.ReadFile("notes/missing.md")
	assert.ErrorIs(t, err, os.ErrNotExist)
	_, err = f.ReadFile("../../etc/hosts")
	assert.ErrorIs(t, err, ErrOutsideDocs)
}

func TestListDir(t *testing.T) {
	f, root := newFiles(t)
	got, err := f.ListDir("")
	require.NoError(t, err)
	assert.Equal(t, root, got.Path)
	assert.Equal(t, []string{"Readme.md", "notes"}, got.Entries)

	got, err = f.ListDir("notes")
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha-plan.txt", "beta.txt", "deep"}, got.Entries)

	_, err = f.ListDir("notes/beta.txt")
	assert.Error(t, err)
	_, err = f.ListDir("..")
	assert.ErrorIs(t, err, ErrOutsideDocs)
}
