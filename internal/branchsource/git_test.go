package branchsource

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gitCmd runs git in dir with a fixed identity and optional extra
// environment, failing the test on error.
func gitCmd(t *testing.T, dir string, env []string, args ...string) {
	t.Helper()
	command := exec.Command("git", append([]string{"-C", dir}, args...)...)
	command.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=Test", "GIT_AUTHOR_EMAIL=test@test.local",
		"GIT_COMMITTER_NAME=Test", "GIT_COMMITTER_EMAIL=test@test.local",
	)
	command.Env = append(command.Env, env...)
	if output, err := command.CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, output)
	}
}

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	full := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0644))
}

// initRepo builds a repository with three branches:
//
//	main     backlog/tasks/task-1 - One.md
//	feature  main plus backlog/tasks/task-2 - Two.md
//	old      main plus a commit dated 2001
//
// and leaves main checked out.
func initRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	dir := t.TempDir()
	gitCmd(t, dir, nil, "init", "--quiet")
	gitCmd(t, dir, nil, "checkout", "--quiet", "-b", "main")
	writeFile(t, dir, "backlog/tasks/task-1 - One.md", "---\nid: task-1\ntitle: One\n---\n")
	gitCmd(t, dir, nil, "add", ".")
	gitCmd(t, dir, nil, "commit", "--quiet", "-m", "one")

	gitCmd(t, dir, nil, "checkout", "--quiet", "-b", "feature")
	writeFile(t, dir, "backlog/tasks/task-2 - Two.md", "---\nid: task-2\ntitle: Two\n---\n")
	gitCmd(t, dir, nil, "add", ".")
	gitCmd(t, dir, nil, "commit", "--quiet", "-m", "two")

	gitCmd(t, dir, nil, "checkout", "--quiet", "-b", "old", "main")
	writeFile(t, dir, "README", "old\n")
	gitCmd(t, dir, nil, "add", ".")
	old := []string{"GIT_AUTHOR_DATE=2001-01-01T00:00:00Z", "GIT_COMMITTER_DATE=2001-01-01T00:00:00Z"}
	gitCmd(t, dir, old, "commit", "--quiet", "-m", "old")

	gitCmd(t, dir, nil, "checkout", "--quiet", "main")
	return dir
}

func branchNames(branches []Branch) []string {
	names := make([]string, len(branches))
	for i, b := range branches {
		names[i] = b.Name
	}
	return names
}

func TestGit_Branches(t *testing.T) {
	dir := initRepo(t)
	ctx := context.Background()
	g := NewGit(dir)

	current, err := g.CurrentBranch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "main", current)
	assert.Equal(t, "main", g.DefaultBranch(ctx))

	all, err := g.ListBranches(ctx, 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"main", "feature", "old"}, branchNames(all))
	assert.Equal(t, "old", all[len(all)-1].Name, "branches are sorted newest first")

	recent, err := g.ListBranches(ctx, 30)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"main", "feature"}, branchNames(recent))
}

func TestGit_ReadWithoutCheckout(t *testing.T) {
	dir := initRepo(t)
	ctx := context.Background()
	g := NewGit(dir)

	assert.True(t, g.PathExists(ctx, "feature", "backlog/tasks"))
	assert.False(t, g.PathExists(ctx, "old", "backlog/drafts"))
	assert.False(t, g.PathExists(ctx, "no-such-branch", "backlog/tasks"))

	assert.Equal(t, []string{"task-1 - One.md", "task-2 - Two.md"}, g.ListFiles(ctx, "feature", "backlog/tasks"))
	assert.Equal(t, []string{"task-1 - One.md"}, g.ListFiles(ctx, "main", "backlog/tasks"))
	assert.Empty(t, g.ListFiles(ctx, "main", "backlog/missing"))

	content, ok := g.ReadFile(ctx, "feature", "backlog/tasks/task-2 - Two.md")
	require.True(t, ok)
	assert.Equal(t, "---\nid: task-2\ntitle: Two\n---\n", string(content))

	_, ok = g.ReadFile(ctx, "main", "backlog/tasks/task-2 - Two.md")
	assert.False(t, ok, "file only exists on feature")

	changed, ok := g.FileLastChanged(ctx, "feature", "backlog/tasks/task-2 - Two.md")
	require.True(t, ok)
	assert.False(t, changed.IsZero())

	_, ok = g.FileLastChanged(ctx, "main", "backlog/tasks/task-2 - Two.md")
	assert.False(t, ok)

	// The working tree is still on main and has no trace of feature.
	_, err := os.Stat(filepath.Join(dir, "backlog/tasks/task-2 - Two.md"))
	assert.True(t, os.IsNotExist(err))
}

func TestGit_NotARepository(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	ctx := context.Background()
	g := NewGit(t.TempDir())

	_, err := g.ListBranches(ctx, 30)
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = g.CurrentBranch(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)

	assert.False(t, g.PathExists(ctx, "main", "backlog"))
	assert.Empty(t, g.ListFiles(ctx, "main", "backlog"))
}

func TestBranch_ShortName(t *testing.T) {
	assert.Equal(t, "feature", Branch{Name: "origin/feature", IsRemote: true}.ShortName())
	assert.Equal(t, "team/feature", Branch{Name: "upstream/team/feature", IsRemote: true}.ShortName())
	assert.Equal(t, "team/feature", Branch{Name: "team/feature"}.ShortName())
}
