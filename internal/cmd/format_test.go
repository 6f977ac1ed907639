package cmd

import (
	"strings"
	"testing"

	"backlog-lite/internal/task"
)

func TestGroupByStatus(t *testing.T) {
	tasks := []*task.Task{
		{ID: "task-1", Status: "done"},
		{ID: "task-2", Status: "Review"},
		{ID: "task-3", Status: "To Do"},
		{ID: "task-4", Status: "Done"},
	}
	columns, byName := groupByStatus(tasks, []string{"To Do", "In Progress", "Done"})

	if got := strings.Join(columns, ","); got != "To Do,Done,Review" {
		t.Errorf("columns = %s", got)
	}
	if len(byName["Done"]) != 2 {
		t.Errorf("Done column = %d cards, want 2", len(byName["Done"]))
	}
}
