package cmd

import (
	"fmt"
	"strings"

	"backlog-lite/internal/task"

	"github.com/spf13/cobra"
)

// newListCmd creates the list command.
func newListCmd(provider *AppProvider) *cobra.Command {
	var (
		status   string
		folder   string
		local    bool
		assignee string
		label    string
		priority string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks grouped by status",
		Long: `List the board. Active tasks are merged with their copies on other
recently active branches unless --local is given or check_active_branches
is off in config.yml.

Examples:
  bl list
  bl list --status "In Progress"
  bl list --folder drafts
  bl list --local --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := provider.Get()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			var tasks []*task.Task
			if folder == "" || folder == string(task.FolderTasks) {
				if local {
					tasks, err = app.Store.Tasks(ctx)
				} else {
					tasks, err = app.Store.TasksAcrossBranches(ctx)
				}
			} else {
				f, ferr := task.ParseFolder(folder)
				if ferr != nil {
					return ferr
				}
				tasks, err = app.Store.List(ctx, f)
			}
			if err != nil {
				return fmt.Errorf("listing tasks: %w", err)
			}

			tasks = filterTasks(tasks, status, assignee, label, priority)

			if app.JSON {
				if tasks == nil {
					tasks = []*task.Task{}
				}
				return app.printJSON(tasks)
			}

			if len(tasks) == 0 {
				fmt.Fprintln(app.Out, "No tasks found.")
				return nil
			}
			columns, groups := groupByStatus(tasks, app.Config.Statuses)
			for i, name := range columns {
				if i > 0 {
					fmt.Fprintln(app.Out)
				}
				fmt.Fprintf(app.Out, "%s (%d)\n", app.HeaderColor(name), len(groups[name]))
				for _, t := range groups[name] {
					fmt.Fprintf(app.Out, "  %s\n", taskLine(app, t))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", "", "Only tasks with this status")
	cmd.Flags().StringVar(&folder, "folder", "", "Folder to list: tasks, drafts, completed, archive")
	cmd.Flags().BoolVar(&local, "local", false, "Skip other branches")
	cmd.Flags().StringVarP(&assignee, "assignee", "a", "", "Only tasks assigned to this person")
	cmd.Flags().StringVarP(&label, "label", "l", "", "Only tasks with this label")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "Only tasks with this priority")

	return cmd
}

func filterTasks(tasks []*task.Task, status, assignee, label, priority string) []*task.Task {
	var out []*task.Task
	for _, t := range tasks {
		if status != "" && !strings.EqualFold(t.Status, status) {
			continue
		}
		if assignee != "" && !containsFold(t.Assignees, assignee) {
			continue
		}
		if label != "" && !containsFold(t.Labels, label) {
			continue
		}
		if priority != "" && !strings.EqualFold(string(t.Priority), priority) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func containsFold(items []string, want string) bool {
	want = strings.TrimPrefix(want, "@")
	for _, s := range items {
		if strings.EqualFold(strings.TrimPrefix(s, "@"), want) {
			return true
		}
	}
	return false
}
