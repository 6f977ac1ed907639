package cmd

import (
	"fmt"
	"strconv"

	"backlog-lite/internal/task"

	"github.com/spf13/cobra"
)

func checklistKind(dod bool) task.ChecklistKind {
	if dod {
		return task.DefinitionOfDone
	}
	return task.AcceptanceCriteria
}

func parseItemID(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid checklist item %q: want a number from 1", s)
	}
	return n, nil
}

// newToggleCmd creates the toggle command.
func newToggleCmd(provider *AppProvider) *cobra.Command {
	var (
		dod  bool
		hash string
	)

	cmd := &cobra.Command{
		Use:   "toggle <task-id> <item>",
		Short: "Check or uncheck a checklist item",
		Long: `Flip the check mark of an acceptance criterion, or a definition of done
item with --dod. Only that one character of the file changes.

Examples:
  bl toggle task-3 2
  bl toggle task-3 1 --dod`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			itemID, err := parseItemID(args[1])
			if err != nil {
				return err
			}

			t, err := app.Store.ToggleChecklistItem(cmd.Context(), args[0], checklistKind(dod), itemID, hash)
			if err != nil {
				return updateError(args[0], err)
			}
			if app.JSON {
				return app.printJSON(t)
			}
			for _, item := range t.Checklist(checklistKind(dod)) {
				if item.ID == itemID {
					state := "unchecked"
					if item.Checked {
						state = app.SuccessColor("checked")
					}
					fmt.Fprintf(app.Out, "%s #%d %s: %s\n", t.ID, item.ID, state, item.Text)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dod, "dod", false, "Use the definition of done list")
	cmd.Flags().StringVar(&hash, "hash", "", "Content hash the file must still have")
	return cmd
}

// newChecklistCmd creates the checklist command group.
func newChecklistCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checklist",
		Short: "Add or remove checklist items",
	}
	cmd.AddCommand(newChecklistAddCmd(provider))
	cmd.AddCommand(newChecklistRemoveCmd(provider))
	return cmd
}

func newChecklistAddCmd(provider *AppProvider) *cobra.Command {
	var (
		dod  bool
		hash string
	)
	cmd := &cobra.Command{
		Use:   "add <task-id> <text>",
		Short: "Append an unchecked item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			t, err := app.Store.AddChecklistItem(cmd.Context(), args[0], checklistKind(dod), args[1], hash)
			if err != nil {
				return updateError(args[0], err)
			}
			if app.JSON {
				return app.printJSON(t)
			}
			items := t.Checklist(checklistKind(dod))
			fmt.Fprintf(app.Out, "%s Added #%d to %s\n", app.SuccessColor("✓"), len(items), t.ID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dod, "dod", false, "Use the definition of done list")
	cmd.Flags().StringVar(&hash, "hash", "", "Content hash the file must still have")
	return cmd
}

func newChecklistRemoveCmd(provider *AppProvider) *cobra.Command {
	var (
		dod  bool
		hash string
	)
	cmd := &cobra.Command{
		Use:   "remove <task-id> <item>",
		Short: "Remove an item and renumber the rest",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			itemID, err := parseItemID(args[1])
			if err != nil {
				return err
			}
			t, err := app.Store.RemoveChecklistItem(cmd.Context(), args[0], checklistKind(dod), itemID, hash)
			if err != nil {
				return updateError(args[0], err)
			}
			if app.JSON {
				return app.printJSON(t)
			}
			fmt.Fprintf(app.Out, "%s Removed #%d from %s\n", app.SuccessColor("✓"), itemID, t.ID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dod, "dod", false, "Use the definition of done list")
	cmd.Flags().StringVar(&hash, "hash", "", "Content hash the file must still have")
	return cmd
}
