package aggregate

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backlog-lite/internal/branchsource"
	"backlog-lite/internal/clock"
	"backlog-lite/internal/task"
	"backlog-lite/internal/taskfile"
)

var (
	now      = time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	statuses = []string{"To Do", "In Progress", "Done"}
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func taskFile(id, title, status string) []byte {
	return []byte(fmt.Sprintf("---\nid: %s\ntitle: %s\nstatus: %s\n---\n", id, title, status))
}

func noLocal(context.Context) ([]*task.Task, error) { return nil, nil }

func localTasks(tasks ...*task.Task) LocalLoader {
	return func(context.Context) ([]*task.Task, error) {
		out := make([]*task.Task, len(tasks))
		for i, t := range tasks {
			out[i] = t.Clone()
		}
		return out, nil
	}
}

// conflictFake has task-x marked Done on main (Jan 1) and To Do on
// feature (Jan 15), with "dev" checked out.
func conflictFake() *branchsource.Fake {
	f := branchsource.NewFake("dev", clock.Fake(now))
	f.AddBranch(branchsource.Branch{Name: "dev", LastCommit: now})
	f.AddBranch(branchsource.Branch{Name: "main", LastCommit: day(1)})
	f.AddBranch(branchsource.Branch{Name: "feature", LastCommit: day(15)})
	f.WriteFile("main", "backlog/tasks/task-x - X.md", taskFile("task-x", "X", "Done"), day(1))
	f.WriteFile("feature", "backlog/tasks/task-x - X.md", taskFile("task-x", "X", "To Do"), day(15))
	return f
}

func TestRun_ConflictResolution(t *testing.T) {
	ctx := context.Background()

	t.Run("most_recent picks feature", func(t *testing.T) {
		agg := New(conflictFake(), noLocal, Options{Strategy: MostRecent, Statuses: statuses})
		tasks, err := agg.Run(ctx)
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, "To Do", tasks[0].Status)
		assert.Equal(t, "feature", tasks[0].Branch)
		assert.Equal(t, task.SourceLocalBranch, tasks[0].Source)
		assert.Equal(t, day(15), tasks[0].LastModified)
	})

	t.Run("most_progressed picks main", func(t *testing.T) {
		agg := New(conflictFake(), noLocal, Options{Strategy: MostProgressed, Statuses: statuses})
		tasks, err := agg.Run(ctx)
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, "Done", tasks[0].Status)
		assert.Equal(t, "main", tasks[0].Branch)
	})
}

func TestRun_BranchWithoutTasksDir(t *testing.T) {
	f := branchsource.NewFake("main", clock.Fake(now))
	f.AddBranch(branchsource.Branch{Name: "main", LastCommit: now})
	f.AddBranch(branchsource.Branch{Name: "empty", LastCommit: now})
	f.WriteFile("empty", "README.md", []byte("# readme\n"), now)

	local := &task.Task{ID: "task-1", Title: "One", Status: "To Do", LastModified: day(3)}
	tasks, err := New(f, localTasks(local), Options{}).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "task-1", tasks[0].ID)
	assert.Equal(t, task.SourceLocal, tasks[0].Source)
	assert.Equal(t, "main", tasks[0].Branch)
	assert.Zero(t, f.TotalReads())
}

func TestRun_Unavailable(t *testing.T) {
	f := branchsource.NewFake("main", clock.Fake(now))
	f.SetUnavailable(true)

	local := &task.Task{ID: "task-1", Title: "One"}
	tasks, err := New(f, localTasks(local), Options{}).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, task.SourceLocal, tasks[0].Source)

	tasks, err = New(nil, localTasks(local), Options{}).Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestRun_LocalLoadFails(t *testing.T) {
	failing := func(context.Context) ([]*task.Task, error) { return nil, fmt.Errorf("disk on fire") }
	_, err := New(conflictFake(), failing, Options{}).Run(context.Background())
	assert.ErrorContains(t, err, "disk on fire")
}

func TestRun_SkipsReadWhenLocalIsFresher(t *testing.T) {
	newFake := func() *branchsource.Fake {
		f := branchsource.NewFake("main", clock.Fake(now))
		f.AddBranch(branchsource.Branch{Name: "main", LastCommit: now})
		f.AddBranch(branchsource.Branch{Name: "feature", LastCommit: day(10)})
		f.WriteFile("feature", "backlog/tasks/task-1 - One.md", taskFile("task-1", "One", "Done"), day(10))
		f.WriteFile("feature", "backlog/tasks/task-2 - Two.md", taskFile("task-2", "Two", "To Do"), day(10))
		return f
	}
	local := &task.Task{ID: "task-1", Title: "One", Status: "To Do", LastModified: day(20)}

	f := newFake()
	tasks, err := New(f, localTasks(local), Options{Strategy: MostRecent}).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Zero(t, f.Reads("feature", "backlog/tasks/task-1 - One.md"), "fresher local copy should skip the read")
	assert.Equal(t, 1, f.Reads("feature", "backlog/tasks/task-2 - Two.md"))
	byID := map[string]*task.Task{tasks[0].ID: tasks[0], tasks[1].ID: tasks[1]}
	assert.Equal(t, task.SourceLocal, byID["task-1"].Source)
	assert.Equal(t, "feature", byID["task-2"].Branch)

	f = newFake()
	tasks, err = New(f, localTasks(local), Options{Strategy: MostProgressed, Statuses: statuses}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, f.Reads("feature", "backlog/tasks/task-1 - One.md"))
	for _, tk := range tasks {
		if tk.ID == "task-1" {
			assert.Equal(t, "Done", tk.Status)
		}
	}
}

func TestRun_DatesCommittedLocalCopy(t *testing.T) {
	const p = "backlog/tasks/task-x - X.md"
	committed := taskFile("task-x", "X", "Done")

	newFake := func() *branchsource.Fake {
		f := branchsource.NewFake("main", clock.Fake(now))
		f.AddBranch(branchsource.Branch{Name: "main", LastCommit: day(1)})
		f.AddBranch(branchsource.Branch{Name: "feature", LastCommit: day(15)})
		f.WriteFile("main", p, committed, day(1))
		f.WriteFile("feature", p, taskFile("task-x", "X", "To Do"), day(15))
		return f
	}
	// A checkout leaves the working-tree file with a fresh mtime.
	checkedOut := &task.Task{
		ID: "task-x", Title: "X", Status: "Done",
		FilePath:     "/repo/" + p,
		ContentHash:  taskfile.Hash(committed),
		LastModified: now,
	}

	t.Run("committed copy is dated by its commit", func(t *testing.T) {
		tasks, err := New(newFake(), localTasks(checkedOut), Options{Strategy: MostRecent, Statuses: statuses}).Run(context.Background())
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, "To Do", tasks[0].Status)
		assert.Equal(t, "feature", tasks[0].Branch)
	})

	t.Run("uncommitted edit keeps its mtime", func(t *testing.T) {
		edited := checkedOut.Clone()
		edited.Status = "In Progress"
		edited.ContentHash = taskfile.Hash(taskFile("task-x", "X", "In Progress"))
		tasks, err := New(newFake(), localTasks(edited), Options{Strategy: MostRecent, Statuses: statuses}).Run(context.Background())
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, "In Progress", tasks[0].Status)
		assert.Equal(t, task.SourceLocal, tasks[0].Source)
		assert.Equal(t, now, tasks[0].LastModified)
	})
}

func TestRun_TieKeepsFirstSeen(t *testing.T) {
	f := branchsource.NewFake("dev", clock.Fake(now))
	f.AddBranch(branchsource.Branch{Name: "dev", LastCommit: now})
	f.AddBranch(branchsource.Branch{Name: "feature", LastCommit: day(20)})
	f.AddBranch(branchsource.Branch{Name: "main", LastCommit: day(10)})
	f.WriteFile("main", "backlog/tasks/task-1.md", taskFile("task-1", "One", "In Progress"), day(5))
	f.WriteFile("feature", "backlog/tasks/task-1.md", taskFile("task-1", "One", "Done"), day(5))

	tasks, err := New(f, noLocal, Options{Strategy: MostRecent}).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "main", tasks[0].Branch, "main comes before other branches and wins the tie")
}

func TestRun_SkipsBadFiles(t *testing.T) {
	f := branchsource.NewFake("main", clock.Fake(now))
	f.AddBranch(branchsource.Branch{Name: "main", LastCommit: now})
	f.AddBranch(branchsource.Branch{Name: "feature", LastCommit: now})
	f.WriteFile("feature", "backlog/tasks/notes.md", []byte("no title here\n"), now)
	f.WriteFile("feature", "backlog/tasks/image.png", []byte{0x89}, now)
	f.WriteFile("feature", "backlog/tasks/task-3.md", taskFile("task-3", "Three", "To Do"), now)

	tasks, err := New(f, noLocal, Options{}).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "task-3", tasks[0].ID)
	assert.Equal(t, "backlog/tasks/task-3.md", tasks[0].FilePath)
	assert.Zero(t, f.Reads("feature", "backlog/tasks/image.png"))
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(conflictFake(), noLocal, Options{}).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_Fetch(t *testing.T) {
	f := conflictFake()
	_, err := New(f, noLocal, Options{Fetch: true}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"origin"}, f.Fetches())
}

func TestSelectBranches(t *testing.T) {
	f := branchsource.NewFake("dev", clock.Fake(now))
	f.AddBranch(branchsource.Branch{Name: "dev", LastCommit: now.AddDate(0, 0, -60)})
	f.AddBranch(branchsource.Branch{Name: "main", LastCommit: now.AddDate(0, 0, -45)})
	f.AddBranch(branchsource.Branch{Name: "b", LastCommit: now.AddDate(0, 0, -2)})
	f.AddBranch(branchsource.Branch{Name: "a", LastCommit: now.AddDate(0, 0, -1)})
	f.AddBranch(branchsource.Branch{Name: "stale", LastCommit: now.AddDate(0, 0, -90)})
	f.AddBranch(branchsource.Branch{Name: "origin/a", LastCommit: now, IsRemote: true})
	f.AddBranch(branchsource.Branch{Name: "origin/c", LastCommit: now.AddDate(0, 0, -3), IsRemote: true})

	sel, err := New(f, noLocal, Options{}).SelectBranches(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "dev", sel.Current)
	assert.Equal(t, "main", sel.Default)

	var names []string
	for _, b := range sel.Branches {
		names = append(names, b.Name)
	}
	assert.Equal(t, []string{"dev", "main", "a", "b", "origin/c"}, names)

	var others []string
	for _, b := range sel.Others() {
		others = append(others, b.Name)
	}
	assert.Equal(t, []string{"main", "a", "b", "origin/c"}, others)
}

func TestResolve(t *testing.T) {
	a := &task.Task{ID: "t", Status: "done", LastModified: day(1)}
	b := &task.Task{ID: "t", Status: "Mystery", LastModified: day(2)}
	c := &task.Task{ID: "t", Status: "To Do", LastModified: day(2)}

	assert.Same(t, b, Resolve([]*task.Task{a, b, c}, MostRecent, statuses))
	assert.Same(t, a, Resolve([]*task.Task{a, b, c}, MostProgressed, statuses))
	assert.Same(t, c, Resolve([]*task.Task{b, c}, MostProgressed, statuses), "unknown status ranks lowest")
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, MostRecent, s)

	s, err = ParseStrategy("most_progressed")
	require.NoError(t, err)
	assert.Equal(t, MostProgressed, s)

	_, err = ParseStrategy("newest")
	assert.Error(t, err)
}
