package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"backlog-lite/internal/config"
	"backlog-lite/internal/taskstore"

	"github.com/spf13/cobra"
)

// newInitCmd creates the init command.
// Note: init doesn't use the provider since it creates the backlog directory.
func newInitCmd(provider *AppProvider) *cobra.Command {
	var (
		force       bool
		projectName string
		prefix      string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a backlog in the current project",
		Long: `Create backlog/config.yml and the task folders (tasks, drafts,
completed, archive) in the current directory, or in --path when given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := provider.Out
			if out == nil {
				out = os.Stdout
			}
			return runInit(cmd.Context(), out, provider.BacklogPath, force, projectName, prefix)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config.yml")
	cmd.Flags().StringVar(&projectName, "name", "", "Project name (default: directory name)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Task id prefix (default: task)")

	return cmd
}

func runInit(ctx context.Context, out io.Writer, base string, force bool, projectName, prefix string) error {
	if base == "" {
		base = os.Getenv(config.EnvBacklogDir)
	}
	if base == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting current directory: %w", err)
		}
		base = cwd
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	backlogDir := abs
	if filepath.Base(abs) != config.DirName {
		backlogDir = filepath.Join(abs, config.DirName)
	}
	paths := config.NewPaths(backlogDir)

	if _, err := os.Stat(paths.ConfigFile); err == nil && !force {
		return errors.New("backlog already initialized (use --force to overwrite config.yml)")
	}

	cfg := config.Default()
	cfg.ProjectName = projectName
	if cfg.ProjectName == "" {
		cfg.ProjectName = filepath.Base(paths.Root)
	}
	if prefix != "" {
		cfg.TaskPrefix = prefix
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	store := taskstore.New(backlogDir, cfg)
	if err := store.Init(ctx); err != nil {
		return fmt.Errorf("creating folders: %w", err)
	}
	if err := config.Write(paths.ConfigFile, cfg); err != nil {
		return err
	}

	fmt.Fprintf(out, "Initialized backlog %q at %s\n", cfg.ProjectName, backlogDir)
	return nil
}
