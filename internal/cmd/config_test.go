package cmd

import (
	"strings"
	"testing"

	"backlog-lite/internal/config"
)

func TestConfigCommands(t *testing.T) {
	app, _ := setupTestApp(t)

	out := mustRun(t, app, newConfigCmd, "get", "task_prefix")
	if strings.TrimSpace(out) != "task" {
		t.Errorf("config get = %q", out)
	}
	if _, err := run(t, app, newConfigCmd, "get", "nope"); err == nil {
		t.Error("config get of unknown key succeeded")
	}

	mustRun(t, app, newConfigCmd, "set", "active_branch_days", "14")
	cfg, err := config.Load(app.Paths.ConfigFile)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ActiveBranchDays != 14 {
		t.Errorf("ActiveBranchDays = %d", cfg.ActiveBranchDays)
	}
	if _, err := run(t, app, newConfigCmd, "set", "task_resolution_strategy", "newest"); err == nil {
		t.Error("config set accepted an invalid strategy")
	}

	out = mustRun(t, app, newConfigCmd, "list")
	if !strings.Contains(out, "active_branch_days: 30") {
		t.Errorf("config list should show the loaded config:\n%s", out)
	}
	mustRun(t, app, newConfigCmd, "validate")
}
