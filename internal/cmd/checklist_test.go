package cmd

import (
	"context"
	"errors"
	"strings"
	"testing"

	"backlog-lite/internal/task"
)

func TestToggleAndChecklist(t *testing.T) {
	app, store := setupTestApp(t)
	mustRun(t, app, newCreateCmd, "Checks", "--ac", "One", "--ac", "Two")

	out := mustRun(t, app, newToggleCmd, "task-1", "2")
	if !strings.Contains(out, "#2 checked: Two") {
		t.Errorf("toggle output: %s", out)
	}
	mustRun(t, app, newChecklistCmd, "add", "task-1", "Three")
	mustRun(t, app, newChecklistCmd, "remove", "task-1", "1")

	got, err := store.Task(context.Background(), "task-1")
	if err != nil {
		t.Fatal(err)
	}
	want := []task.ChecklistItem{{ID: 1, Text: "Two", Checked: true}, {ID: 2, Text: "Three"}}
	if len(got.AcceptanceCriteria) != len(want) {
		t.Fatalf("AcceptanceCriteria = %+v", got.AcceptanceCriteria)
	}
	for i := range want {
		if got.AcceptanceCriteria[i] != want[i] {
			t.Errorf("item %d = %+v, want %+v", i, got.AcceptanceCriteria[i], want[i])
		}
	}

	if _, err := run(t, app, newToggleCmd, "task-1", "9"); !errors.Is(err, task.ErrChecklistItemNotFound) {
		t.Errorf("toggle #9 = %v", err)
	}
	if _, err := run(t, app, newToggleCmd, "task-1", "zero"); err == nil {
		t.Error("toggle with a non-numeric item succeeded")
	}
}
