package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newShowCmd creates the show command.
func newShowCmd(provider *AppProvider) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show full details of a task",
		Long: `Display a task from any folder. The Hash line is the content hash to
pass to --hash on update and toggle so a concurrent edit is detected.

Examples:
  bl show task-12
  bl show TASK-12 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}

			t, err := app.Store.Task(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("getting task %s: %w", args[0], err)
			}
			if app.JSON {
				return app.printJSON(t)
			}
			printTask(app, t)
			return nil
		},
	}
	return cmd
}
