package vcs

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

// newTestRepo creates a repo with main holding app.py, and a task branch
// that edits app.py and adds extra.py.
func newTestRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()

	runGit(t, dir, "init", "-b", "main")
	runGit(t, dir, "config", "user.email", "test@test.com")
	runGit(t, dir, "config", "user.name", "Test User")

	writeFile(t, dir, "app.py", "def f():\n    pass\n")
	runGit(t, dir, "add", "app.py")
	runGit(t, dir, "commit", "-m", "add app")

	runGit(t, dir, "checkout", "-b", "task/task-1")
	writeFile(t, dir, "app.py", "import os\n\ndef f():\n    pass\n")
	writeFile(t, dir, "extra.py", "def g():\n    return 1\n")
	runGit(t, dir, "add", "app.py", "extra.py")
	runGit(t, dir, "commit", "-m", "task edits")

	runGit(t, dir, "checkout", "main")
	return dir
}

func TestNewGit_RejectsNonRepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	_, err := NewGit(t.TempDir(), "main")
	require.Error(t, err)
}

func TestGit_ChangedFiles(t *testing.T) {
	dir := newTestRepo(t)
	g, err := NewGit(dir, "main")
	require.NoError(t, err)

	paths, err := g.ChangedFiles(context.Background(), "task/task-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"app.py", "extra.py"}, paths)
}

func TestGit_FileVersions(t *testing.T) {
	dir := newTestRepo(t)
	g, err := NewGit(dir, "main")
	require.NoError(t, err)

	v, err := g.FileVersions(context.Background(), "task/task-1", "app.py")
	require.NoError(t, err)
	assert.Equal(t, "def f():\n    pass\n", v.Main)
	assert.Equal(t, "import os\n\ndef f():\n    pass\n", v.Task)
	require.True(t, v.HasBase)
	assert.Equal(t, "def f():\n    pass\n", v.Base)
}

func TestGit_FileVersions_NewFile(t *testing.T) {
	dir := newTestRepo(t)
	g, err := NewGit(dir, "main")
	require.NoError(t, err)

	v, err := g.FileVersions(context.Background(), "task/task-1", "extra.py")
	require.NoError(t, err)
	assert.Empty(t, v.Main)
	assert.Equal(t, "def g():\n    return 1\n", v.Task)
	require.True(t, v.HasBase)
	assert.Empty(t, v.Base)
}
