package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"backlog-lite/internal/task"

	"github.com/spf13/cobra"
)

// newUpdateCmd creates the update command.
func newUpdateCmd(provider *AppProvider) *cobra.Command {
	var (
		title        string
		description  string
		status       string
		priority     string
		milestone    string
		assignees    []string
		labels       []string
		addLabels    []string
		removeLabels []string
		deps         []string
		parent       string
		plan         string
		notes        string
		summary      string
		ordinal      float64
		clearOrdinal bool
		hash         string
	)

	cmd := &cobra.Command{
		Use:   "update <task-id>",
		Short: "Update an existing task",
		Long: `Update fields of a task. Only the flags given are changed; the rest of
the file, including frontmatter keys bl does not know, is kept. A title
change renames the file.

Pass --hash with the hash printed by "bl show" to make the update fail if
the file changed since you looked at it. Without --hash the update is
still guarded against changes made while it runs.

Examples:
  bl update task-3 --status "In Progress" --assignee @alice
  bl update task-3 --add-label urgent --remove-label later
  bl update task-3 --description -    # read from stdin
  bl update task-3 --title "Better title" --hash 3f9a...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			flags := cmd.Flags()

			current, err := app.Store.Task(ctx, args[0])
			if err != nil {
				return fmt.Errorf("getting task %s: %w", args[0], err)
			}
			if hash == "" {
				hash = current.ContentHash
			}

			var patch task.Patch
			if flags.Changed("title") {
				patch.Title = &title
			}
			if flags.Changed("description") {
				desc := description
				if description == "-" {
					data, err := io.ReadAll(os.Stdin)
					if err != nil {
						return fmt.Errorf("reading description from stdin: %w", err)
					}
					desc = strings.TrimSpace(string(data))
				}
				patch.Description = &desc
			}
			if flags.Changed("status") {
				if !knownStatus(app.Config.Statuses, status) {
					app.Logger.Warn("status is not in config.yml", "status", status)
				}
				patch.Status = &status
			}
			if flags.Changed("priority") {
				patch.Priority = &priority
			}
			if flags.Changed("milestone") {
				patch.Milestone = &milestone
			}
			if flags.Changed("assignee") {
				patch.Assignees = &assignees
			}
			if flags.Changed("label") || len(addLabels) > 0 || len(removeLabels) > 0 {
				next := current.Labels
				if flags.Changed("label") {
					next = labels
				}
				next = editLabels(next, addLabels, removeLabels)
				patch.Labels = &next
			}
			if flags.Changed("dep") {
				patch.Dependencies = &deps
			}
			if flags.Changed("parent") {
				patch.ParentTaskID = &parent
			}
			if flags.Changed("plan") {
				patch.ImplementationPlan = &plan
			}
			if flags.Changed("notes") {
				patch.ImplementationNotes = &notes
			}
			if flags.Changed("summary") {
				patch.FinalSummary = &summary
			}
			if flags.Changed("ordinal") {
				patch.Ordinal = &ordinal
			}
			patch.ClearOrdinal = clearOrdinal

			if patch.IsEmpty() {
				return errors.New("nothing to update (see bl update --help)")
			}

			t, err := app.Store.Update(ctx, current.ID, patch, hash)
			if err != nil {
				return updateError(current.ID, err)
			}
			if app.JSON {
				return app.printJSON(t)
			}
			fmt.Fprintf(app.Out, "%s Updated %s\n", app.SuccessColor("✓"), t.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "New description (- to read stdin)")
	cmd.Flags().StringVarP(&status, "status", "s", "", "New status")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "New priority (empty to clear)")
	cmd.Flags().StringVarP(&milestone, "milestone", "m", "", "New milestone (empty to clear)")
	cmd.Flags().StringArrayVarP(&assignees, "assignee", "a", nil, "Assignee; replaces the list (repeatable)")
	cmd.Flags().StringArrayVarP(&labels, "label", "l", nil, "Label; replaces the list (repeatable)")
	cmd.Flags().StringArrayVar(&addLabels, "add-label", nil, "Label to add (repeatable)")
	cmd.Flags().StringArrayVar(&removeLabels, "remove-label", nil, "Label to remove (repeatable)")
	cmd.Flags().StringArrayVar(&deps, "dep", nil, "Dependency; replaces the list (repeatable)")
	cmd.Flags().StringVar(&parent, "parent", "", "Parent task id (empty to clear)")
	cmd.Flags().StringVar(&plan, "plan", "", "Implementation plan")
	cmd.Flags().StringVar(&notes, "notes", "", "Implementation notes")
	cmd.Flags().StringVar(&summary, "summary", "", "Final summary")
	cmd.Flags().Float64Var(&ordinal, "ordinal", 0, "Board ordinal")
	cmd.Flags().BoolVar(&clearOrdinal, "clear-ordinal", false, "Remove the ordinal")
	cmd.Flags().StringVar(&hash, "hash", "", "Content hash the file must still have")
	cmd.MarkFlagsMutuallyExclusive("ordinal", "clear-ordinal")

	return cmd
}

func editLabels(labels, add, remove []string) []string {
	out := make([]string, 0, len(labels)+len(add))
	for _, l := range labels {
		if !slices.Contains(remove, l) {
			out = append(out, l)
		}
	}
	for _, l := range add {
		if !slices.Contains(out, l) {
			out = append(out, l)
		}
	}
	return out
}

// updateError explains a conflict in terms of the command line.
func updateError(id string, err error) error {
	var conflict *task.ConflictError
	if errors.As(err, &conflict) {
		return fmt.Errorf("%s changed on disk since it was read (hash now %.12s); run bl show %s and retry: %w",
			id, conflict.ActualHash, id, task.ErrConflict)
	}
	return fmt.Errorf("updating %s: %w", id, err)
}
