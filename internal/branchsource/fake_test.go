package branchsource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backlog-lite/internal/clock"
)

func TestFake(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	f := NewFake("main", clock.Fake(now))

	f.AddBranch(Branch{Name: "main", LastCommit: now.AddDate(0, 0, -1)})
	f.AddBranch(Branch{Name: "stale", LastCommit: now.AddDate(0, 0, -90)})
	f.AddBranch(Branch{Name: "origin/feature", LastCommit: now, IsRemote: true})
	f.WriteFile("main", "backlog/tasks/task-1.md", []byte("one"), now)
	f.WriteFile("main", "backlog/tasks/nested/task-9.md", []byte("nine"), now)

	branches, err := f.ListBranches(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, []string{"origin/feature", "main"}, branchNames(branches))

	assert.True(t, f.PathExists(ctx, "main", "backlog/tasks"))
	assert.False(t, f.PathExists(ctx, "stale", "backlog/tasks"))
	assert.Equal(t, []string{"task-1.md"}, f.ListFiles(ctx, "main", "backlog/tasks"))

	content, ok := f.ReadFile(ctx, "main", "backlog/tasks/task-1.md")
	require.True(t, ok)
	assert.Equal(t, "one", string(content))
	_, ok = f.ReadFile(ctx, "main", "backlog/tasks/missing.md")
	assert.False(t, ok)
	assert.Equal(t, 1, f.Reads("main", "backlog/tasks/task-1.md"))
	assert.Equal(t, 2, f.TotalReads())

	require.NoError(t, f.Fetch(ctx, "origin"))
	assert.Equal(t, []string{"origin"}, f.Fetches())

	f.SetUnavailable(true)
	_, err = f.ListBranches(ctx, 30)
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = f.CurrentBranch(ctx)
	assert.ErrorIs(t, err, ErrUnavailable)
}
