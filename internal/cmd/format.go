package cmd

import (
	"fmt"
	"io"
	"strings"

	"backlog-lite/internal/task"
)

// taskLine is the one-line summary used by list.
func taskLine(app *App, t *task.Task) string {
	var b strings.Builder
	b.WriteString(app.HeaderColor(t.ID))
	b.WriteString("  ")
	b.WriteString(t.Title)
	if t.Priority != "" {
		b.WriteString(" " + app.WarnColor("["+string(t.Priority)+"]"))
	}
	if len(t.Assignees) > 0 {
		b.WriteString(" " + app.DimColor(strings.Join(t.Assignees, ", ")))
	}
	if t.Source == task.SourceLocalBranch && t.Branch != "" {
		b.WriteString(" " + app.DimColor("("+t.Branch+")"))
	}
	return b.String()
}

// groupByStatus orders tasks into the configured columns. Statuses the
// config does not know come after, in first-seen order.
func groupByStatus(tasks []*task.Task, statuses []string) ([]string, map[string][]*task.Task) {
	groups := make(map[string][]*task.Task)
	names := make(map[string]string)
	var order []string
	for _, s := range statuses {
		key := strings.ToLower(s)
		names[key] = s
		order = append(order, key)
	}
	for _, t := range tasks {
		key := strings.ToLower(t.Status)
		if _, ok := names[key]; !ok {
			names[key] = t.Status
			order = append(order, key)
		}
		groups[key] = append(groups[key], t)
	}

	var columns []string
	byName := make(map[string][]*task.Task)
	for _, key := range order {
		if len(groups[key]) == 0 {
			continue
		}
		name := names[key]
		if name == "" {
			name = "(no status)"
		}
		columns = append(columns, name)
		byName[name] = groups[key]
	}
	return columns, byName
}

// printTask writes the full detail view of a task.
func printTask(app *App, t *task.Task) {
	w := app.Out
	fmt.Fprintf(w, "%s - %s\n", app.HeaderColor(t.ID), t.Title)
	field := func(name, value string) {
		if value != "" {
			fmt.Fprintf(w, "%-13s %s\n", name+":", value)
		}
	}
	field("Status", t.Status)
	field("Priority", string(t.Priority))
	field("Type", t.Type)
	field("Assignees", strings.Join(t.Assignees, ", "))
	field("Reporter", t.Reporter)
	field("Labels", strings.Join(t.Labels, ", "))
	field("Milestone", t.Milestone)
	field("Dependencies", strings.Join(t.Dependencies, ", "))
	field("Parent", t.ParentTaskID)
	field("Subtasks", strings.Join(t.Subtasks, ", "))
	field("Created", t.CreatedDate)
	field("Updated", t.UpdatedDate)
	if t.Ordinal != nil {
		field("Ordinal", fmt.Sprint(*t.Ordinal))
	}
	field("Folder", string(t.Folder))
	if t.Branch != "" {
		field("Branch", t.Branch)
	}
	field("File", t.FilePath)
	field("Hash", t.ContentHash)

	section(w, app, "Description", t.Description)
	checklist(w, app, "Acceptance Criteria", t.AcceptanceCriteria)
	checklist(w, app, "Definition of Done", t.DefinitionOfDone)
	section(w, app, "Implementation Plan", t.ImplementationPlan)
	section(w, app, "Implementation Notes", t.ImplementationNotes)
	section(w, app, "Final Summary", t.FinalSummary)
}

func section(w io.Writer, app *App, heading, content string) {
	if content == "" {
		return
	}
	fmt.Fprintf(w, "\n%s\n", app.HeaderColor(heading+":"))
	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(w, "  %s\n", line)
	}
}

func checklist(w io.Writer, app *App, heading string, items []task.ChecklistItem) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", app.HeaderColor(heading+":"))
	for _, item := range items {
		mark := "[ ]"
		if item.Checked {
			mark = app.SuccessColor("[x]")
		}
		fmt.Fprintf(w, "  %s #%d %s\n", mark, item.ID, item.Text)
	}
}
