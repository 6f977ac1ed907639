package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"backlog-lite/internal/ordinal"
	"backlog-lite/internal/task"

	"github.com/spf13/cobra"
)

// newReorderCmd creates the reorder command.
func newReorderCmd(provider *AppProvider) *cobra.Command {
	var (
		status string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "reorder <task-id> <position>",
		Short: "Move a card to a position in its column",
		Long: `Place a task at a 0-based position within a status column, the way a
drag and drop on the board does. With --status the card also moves to
that column. Only the cards whose ordinal must change are rewritten.

Examples:
  bl reorder task-7 0                       # top of its column
  bl reorder task-7 2 --status "In Progress"
  bl reorder task-7 1 --dry-run`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			index, err := strconv.Atoi(args[1])
			if err != nil || index < 0 {
				return fmt.Errorf("invalid position %q", args[1])
			}

			if !dryRun {
				updates, err := app.Store.Reorder(ctx, args[0], status, index)
				if err != nil {
					return fmt.Errorf("reordering %s: %w", args[0], err)
				}
				return printUpdates(app, updates)
			}

			dropped, err := app.Store.Task(ctx, args[0])
			if err != nil {
				return err
			}
			column := status
			if column == "" {
				column = dropped.Status
			}
			cards, err := app.Store.Column(ctx, column)
			if err != nil {
				return err
			}
			cards = without(cards, dropped.ID)
			updates := app.Store.DropUpdates(cards, dropped, index)

			preview := ordinal.Apply(append(cards, dropped), updates)
			ordinal.Sort(preview)
			if app.JSON {
				return app.printJSON(map[string]any{"updates": updates, "order": ids(preview)})
			}
			if err := printUpdates(app, updates); err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "Order: %s\n", strings.Join(ids(preview), ", "))
			return nil
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", "", "Column to drop into (default: the task's status)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the updates without writing them")
	return cmd
}

// newRepairOrdinalsCmd creates the repair-ordinals command.
func newRepairOrdinalsCmd(provider *AppProvider) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "repair-ordinals",
		Short: "Renumber columns with missing or duplicate ordinals",
		Long: `Give every card in a column an evenly spaced ordinal, keeping the
current order, when the column has cards without an ordinal or ordinals
that do not increase. Columns without problems are left alone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			updates, err := app.Store.RepairOrdinals(cmd.Context(), status)
			if err != nil {
				return fmt.Errorf("repairing ordinals: %w", err)
			}
			return printUpdates(app, updates)
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", "", "Only this column (default: all)")
	return cmd
}

func printUpdates(app *App, updates []ordinal.Update) error {
	if app.JSON {
		if updates == nil {
			updates = []ordinal.Update{}
		}
		return app.printJSON(updates)
	}
	if len(updates) == 0 {
		fmt.Fprintln(app.Out, "No ordinal changes needed.")
		return nil
	}
	for _, u := range updates {
		fmt.Fprintf(app.Out, "%s ordinal %s\n", app.HeaderColor(u.TaskID), strconv.FormatFloat(u.Ordinal, 'f', -1, 64))
	}
	return nil
}

func without(tasks []*task.Task, id string) []*task.Task {
	out := make([]*task.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}

func ids(tasks []*task.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}
