package changeset

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollapsesDuplicates(t *testing.T) {
	cs := New("docs/a.md", "docs/a.md", "./docs/a.md", "src/main.go")
	assert.Equal(t, 2, cs.Len())
	assert.Equal(t, []string{"docs/a.md", "src/main.go"}, cs.Paths())
}

func TestNewDropsEmptyPaths(t *testing.T) {
	cs := New("", "  ", "a.go")
	assert.Equal(t, 1, cs.Len())
	assert.True(t, cs.Contains("a.go"))
}

func TestEmpty(t *testing.T) {
	assert.True(t, New().Empty())
	assert.False(t, New("x").Empty())
}

func TestContainsNormalizes(t *testing.T) {
	cs := New("pkg/gate/gate.go")
	assert.True(t, cs.Contains("./pkg/gate/gate.go"))
	assert.True(t, cs.Contains(" pkg/gate/gate.go "))
	assert.False(t, cs.Contains("pkg/gate"))
}

func TestFromReader(t *testing.T) {
	input := "haystack/core/pipeline/base.py\n\ndocs/README.md\nhaystack/core/pipeline/base.py\n"
	cs, err := FromReader(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/README.md", "haystack/core/pipeline/base.py"}, cs.Paths())
}

func TestFromReaderEmptyInput(t *testing.T) {
	cs, err := FromReader(strings.NewReader(""))
	require.NoError(t, err)
	assert.True(t, cs.Empty())
}

// setupTestRepo creates a git repository with a base commit, a branch with
// changes on top, and returns the repo dir.
func setupTestRepo(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
		)
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, "git %v: %s", args, out)
	}
	write := func(rel, content string) {
		path := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	run("init", "-b", "main")
	write("README.md", "readme\n")
	write("src/app.py", "print('hi')\n")
	run("add", ".")
	run("commit", "-m", "initial")

	run("checkout", "-b", "feature")
	write("src/app.py", "print('changed')\n")
	write("docs/guide.md", "guide\n")
	run("add", ".")
	run("commit", "-m", "feature work")

	return dir
}

func TestGitDiff(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	dir := setupTestRepo(t)
	ctx := context.Background()

	cs, err := GitDiff(ctx, dir, "main", "feature")
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/guide.md", "src/app.py"}, cs.Paths())
}

func TestGitDiffSameRevision(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	dir := setupTestRepo(t)
	ctx := context.Background()

	cs, err := GitDiff(ctx, dir, "feature", "feature")
	require.NoError(t, err)
	assert.True(t, cs.Empty())
}

func TestGitDiffMissingRevisions(t *testing.T) {
	_, err := GitDiff(context.Background(), "", "", "HEAD")
	assert.Error(t, err)
}

func TestIsGitRepository(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	dir := setupTestRepo(t)
	assert.True(t, IsGitRepository(context.Background(), dir))
	assert.False(t, IsGitRepository(context.Background(), t.TempDir()))
}
