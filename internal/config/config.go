// Package config handles backlog configuration loading and defaults.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Strategy names accepted by task_resolution_strategy.
const (
	StrategyMostRecent     = "most_recent"
	StrategyMostProgressed = "most_progressed"
)

// Config represents the contents of backlog/config.yml.
type Config struct {
	ProjectName   string   `yaml:"project_name"`
	DefaultStatus string   `yaml:"default_status"`
	// Statuses is the status vocabulary, ordered from least to most
	// complete. It is also the board's column order.
	Statuses   []string `yaml:"statuses"`
	Labels     []string `yaml:"labels"`
	Milestones []string `yaml:"milestones"`
	DateFormat string   `yaml:"date_format"`
	TaskPrefix string   `yaml:"task_prefix"`

	CheckActiveBranches    bool   `yaml:"check_active_branches"`
	ActiveBranchDays       int    `yaml:"active_branch_days"`
	RemoteOperations       bool   `yaml:"remote_operations"`
	TaskResolutionStrategy string `yaml:"task_resolution_strategy"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		ProjectName:            "backlog",
		DefaultStatus:          "To Do",
		Statuses:               []string{"To Do", "In Progress", "Done"},
		Labels:                 []string{},
		Milestones:             []string{},
		DateFormat:             "yyyy-mm-dd",
		TaskPrefix:             "task",
		CheckActiveBranches:    true,
		ActiveBranchDays:       30,
		RemoteOperations:       true,
		TaskResolutionStrategy: StrategyMostRecent,
	}
}

// Load reads config.yml from path and applies defaults for missing fields.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	cfg.DefaultStatus = ""
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	if len(cfg.Statuses) == 0 {
		cfg.Statuses = Default().Statuses
	}
	if cfg.DefaultStatus == "" {
		cfg.DefaultStatus = cfg.Statuses[0]
	}
	if cfg.TaskPrefix == "" {
		cfg.TaskPrefix = "task"
	}
	if cfg.TaskResolutionStrategy == "" {
		cfg.TaskResolutionStrategy = StrategyMostRecent
	}

	return cfg, nil
}

// Write writes the provided configuration to path.
func Write(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// WriteDefault writes the default configuration to path.
func WriteDefault(path string) error {
	return Write(path, Default())
}

// DateLayout converts DateFormat into a time layout. Formats with a
// time of day ("yyyy-mm-dd hh:mm") stamp minutes; everything else stamps
// the date alone.
func (c Config) DateLayout() string {
	if strings.Contains(strings.ToLower(c.DateFormat), "hh:mm") {
		return "2006-01-02 15:04"
	}
	return "2006-01-02"
}
