package cmd

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"backlog-lite/internal/ordinal"
)

func TestReorderCommand(t *testing.T) {
	app, store := setupTestApp(t)
	for _, title := range []string{"A", "B", "C"} {
		mustRun(t, app, newCreateCmd, title)
	}

	out := mustRun(t, app, newReorderCmd, "task-3", "0", "--dry-run")
	if !strings.Contains(out, "Order: task-3, task-1, task-2") {
		t.Errorf("dry run output:\n%s", out)
	}
	if got, _ := store.Task(context.Background(), "task-3"); got.Ordinal != nil {
		t.Error("dry run wrote an ordinal")
	}

	app.JSON = true
	out = mustRun(t, app, newReorderCmd, "task-3", "0")
	var updates []ordinal.Update
	if err := json.Unmarshal([]byte(out), &updates); err != nil {
		t.Fatalf("reorder --json: %v\n%s", err, out)
	}
	if len(updates) != 1 || updates[0].TaskID != "task-3" {
		t.Errorf("updates = %+v", updates)
	}

	out = mustRun(t, app, newRepairOrdinalsCmd)
	if err := json.Unmarshal([]byte(out), &updates); err != nil {
		t.Fatalf("repair-ordinals --json: %v\n%s", err, out)
	}
	if len(updates) != 2 {
		t.Errorf("repair updates = %+v, want task-1 and task-2 numbered", updates)
	}
}
