package config

import (
	"fmt"
	"strings"
)

var validStrategies = []string{StrategyMostRecent, StrategyMostProgressed}

// Validate checks cfg. It returns an error describing every invalid value
// found, or nil if all values are valid.
func Validate(cfg Config) error {
	var errs []string

	if len(cfg.Statuses) == 0 {
		errs = append(errs, "statuses: must list at least one status")
	}
	seen := make(map[string]bool, len(cfg.Statuses))
	for _, s := range cfg.Statuses {
		key := strings.ToLower(strings.TrimSpace(s))
		if key == "" {
			errs = append(errs, "statuses: empty status name")
			continue
		}
		if seen[key] {
			errs = append(errs, fmt.Sprintf("statuses: duplicate status %q", s))
		}
		seen[key] = true
	}
	if cfg.DefaultStatus != "" && len(cfg.Statuses) > 0 && !seen[strings.ToLower(strings.TrimSpace(cfg.DefaultStatus))] {
		errs = append(errs, fmt.Sprintf(
			"default_status: %q is not one of the statuses (%s)",
			cfg.DefaultStatus, strings.Join(cfg.Statuses, ", ")))
	}

	if cfg.TaskPrefix == "" || strings.ContainsAny(cfg.TaskPrefix, " \t/\\") {
		errs = append(errs, fmt.Sprintf(
			"task_prefix: must be a non-empty word, got %q", cfg.TaskPrefix))
	}
	if cfg.ActiveBranchDays < 0 {
		errs = append(errs, fmt.Sprintf(
			"active_branch_days: must not be negative, got %d", cfg.ActiveBranchDays))
	}
	if !contains(validStrategies, cfg.TaskResolutionStrategy) {
		errs = append(errs, fmt.Sprintf(
			"task_resolution_strategy: invalid value %q (allowed: %s)",
			cfg.TaskResolutionStrategy, strings.Join(validStrategies, ", ")))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
