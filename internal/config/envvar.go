package config

import (
	"os"
	"strings"
)

// Environment variable names for backlog-lite configuration.
const (
	EnvBacklogDir         = "BACKLOG_DIR"                 // Path to the backlog directory
	EnvResolutionStrategy = "BACKLOG_RESOLUTION_STRATEGY" // Override task_resolution_strategy
	EnvLocalOnly          = "BACKLOG_LOCAL_ONLY"          // Skip branch scanning and fetches ("1" or "true")
)

// ApplyEnvOverrides checks the override env vars and updates cfg in
// memory. These overrides are not persisted to the config file.
func ApplyEnvOverrides(cfg *Config) {
	if strategy := os.Getenv(EnvResolutionStrategy); strategy != "" {
		cfg.TaskResolutionStrategy = strategy
	}
	if isTruthy(os.Getenv(EnvLocalOnly)) {
		cfg.CheckActiveBranches = false
		cfg.RemoteOperations = false
	}
}

func isTruthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
