package cmd

import (
	"fmt"
	"strings"

	"backlog-lite/internal/taskstore"

	"github.com/spf13/cobra"
)

// newCreateCmd creates the create command.
func newCreateCmd(provider *AppProvider) *cobra.Command {
	var (
		opts     taskstore.CreateOptions
		ordinal  float64
		validate bool
	)

	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a new task",
		Long: `Create a task file named "<id> - <Title>.md" under backlog/tasks, or
backlog/drafts with --draft. Ids count up from the highest existing id in
any folder.

Examples:
  bl create "Fix login bug"
  bl create "Add OAuth" -p high -l auth -l api --ac "Google login works"
  bl create "Write tests" --parent task-4
  bl create "Someday" --draft`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}

			opts.Title = args[0]
			if cmd.Flags().Changed("ordinal") {
				opts.Ordinal = &ordinal
			}
			if opts.Status != "" && !knownStatus(app.Config.Statuses, opts.Status) {
				if validate {
					return fmt.Errorf("unknown status %q (statuses: %s)", opts.Status, strings.Join(app.Config.Statuses, ", "))
				}
				app.Logger.Warn("status is not in config.yml", "status", opts.Status)
			}

			t, err := app.Store.Create(cmd.Context(), opts)
			if err != nil {
				return err
			}

			if app.JSON {
				return app.printJSON(t)
			}
			fmt.Fprintf(app.Out, "%s Created task: %s\n", app.SuccessColor("✓"), t.ID)
			fmt.Fprintf(app.Out, "  Title: %s\n", t.Title)
			fmt.Fprintf(app.Out, "  Status: %s\n", t.Status)
			fmt.Fprintf(app.Out, "  File: %s\n", t.FilePath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.Description, "description", "d", "", "Task description")
	cmd.Flags().StringVarP(&opts.Status, "status", "s", "", "Initial status (default from config)")
	cmd.Flags().StringVarP(&opts.Priority, "priority", "p", "", "Priority: high, medium, low")
	cmd.Flags().StringVarP(&opts.Type, "type", "t", "", "Task type")
	cmd.Flags().StringArrayVarP(&opts.Labels, "label", "l", nil, "Label (repeatable)")
	cmd.Flags().StringArrayVarP(&opts.Assignees, "assignee", "a", nil, "Assignee (repeatable)")
	cmd.Flags().StringVar(&opts.Reporter, "reporter", "", "Reporter")
	cmd.Flags().StringVarP(&opts.Milestone, "milestone", "m", "", "Milestone")
	cmd.Flags().StringArrayVar(&opts.Dependencies, "dep", nil, "Task this one depends on (repeatable)")
	cmd.Flags().StringArrayVar(&opts.References, "ref", nil, "Reference URL or path (repeatable)")
	cmd.Flags().StringVar(&opts.ParentTaskID, "parent", "", "Parent task id; the new task becomes <parent>.<n>")
	cmd.Flags().StringArrayVar(&opts.AcceptanceCriteria, "ac", nil, "Acceptance criterion (repeatable)")
	cmd.Flags().StringArrayVar(&opts.DefinitionOfDone, "dod", nil, "Definition of done item (repeatable)")
	cmd.Flags().StringVar(&opts.ImplementationPlan, "plan", "", "Implementation plan")
	cmd.Flags().Float64Var(&ordinal, "ordinal", 0, "Board ordinal")
	cmd.Flags().BoolVar(&opts.Draft, "draft", false, "Create as a draft")
	cmd.Flags().BoolVar(&validate, "strict", false, "Reject statuses not listed in config.yml")

	return cmd
}

func knownStatus(statuses []string, status string) bool {
	for _, s := range statuses {
		if strings.EqualFold(s, status) {
			return true
		}
	}
	return false
}
