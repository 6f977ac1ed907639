package cmd

import (
	"context"
	"fmt"

	"backlog-lite/internal/task"

	"github.com/spf13/cobra"
)

type moveFunc func(ctx context.Context, app *App, id string) (*task.Task, error)

// newLifecycleCmd builds a single-argument command that relocates a task
// file between folders.
func newLifecycleCmd(provider *AppProvider, use, short, verb string, move moveFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <task-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			t, err := move(cmd.Context(), app, args[0])
			if err != nil {
				return fmt.Errorf("%s %s: %w", use, args[0], err)
			}
			if app.JSON {
				return app.printJSON(t)
			}
			fmt.Fprintf(app.Out, "%s %s %s (now in %s)\n", app.SuccessColor("✓"), verb, t.ID, t.Folder)
			return nil
		},
	}
}

// newMoveCmd creates the move command.
func newMoveCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "move <task-id> <folder>",
		Short: "Move a task file to another folder",
		Long: `Move a task between tasks, drafts, completed, archive/tasks and
archive/drafts. The file keeps its name.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			folder, err := task.ParseFolder(args[1])
			if err != nil {
				return err
			}
			t, err := app.Store.Move(cmd.Context(), args[0], folder)
			if err != nil {
				return fmt.Errorf("moving %s: %w", args[0], err)
			}
			if app.JSON {
				return app.printJSON(t)
			}
			fmt.Fprintf(app.Out, "%s Moved %s to %s\n", app.SuccessColor("✓"), t.ID, t.Folder)
			return nil
		},
	}
	return cmd
}

func newArchiveCmd(provider *AppProvider) *cobra.Command {
	return newLifecycleCmd(provider, "archive", "Archive a task or draft", "Archived",
		func(ctx context.Context, app *App, id string) (*task.Task, error) {
			return app.Store.Archive(ctx, id)
		})
}

func newCompleteCmd(provider *AppProvider) *cobra.Command {
	return newLifecycleCmd(provider, "complete", "Move a finished task to completed", "Completed",
		func(ctx context.Context, app *App, id string) (*task.Task, error) {
			return app.Store.Complete(ctx, id)
		})
}

func newPromoteCmd(provider *AppProvider) *cobra.Command {
	return newLifecycleCmd(provider, "promote", "Promote a draft onto the board", "Promoted",
		func(ctx context.Context, app *App, id string) (*task.Task, error) {
			return app.Store.PromoteDraft(ctx, id)
		})
}

func newDemoteCmd(provider *AppProvider) *cobra.Command {
	return newLifecycleCmd(provider, "demote", "Move a task back to drafts", "Demoted",
		func(ctx context.Context, app *App, id string) (*task.Task, error) {
			return app.Store.DemoteToDraft(ctx, id)
		})
}
