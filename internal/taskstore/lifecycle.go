package taskstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"backlog-lite/internal/task"
	"backlog-lite/internal/taskfile"
)

// CreateOptions describes a new task.
type CreateOptions struct {
	Title        string
	Description  string
	Status       string // defaults to the configured default status
	Priority     string
	Type         string
	Labels       []string
	Assignees    []string
	Reporter     string
	Milestone    string
	Dependencies []string
	References   []string
	// ParentTaskID makes the new task a subtask; its id becomes
	// "<parent>.<n>".
	ParentTaskID string
	Ordinal      *float64

	AcceptanceCriteria []string
	DefinitionOfDone   []string
	ImplementationPlan string

	// Draft creates the file under drafts/ instead of tasks/.
	Draft bool
}

// Create writes a new task file and returns the parsed task.
func (s *Store) Create(ctx context.Context, opts CreateOptions) (*task.Task, error) {
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		return nil, errors.New("title is required")
	}
	var prio task.Priority
	if opts.Priority != "" {
		p, ok := task.ParsePriority(strings.ToLower(strings.TrimSpace(opts.Priority)))
		if !ok {
			return nil, fmt.Errorf("invalid priority %q (allowed: high, medium, low)", opts.Priority)
		}
		prio = p
	}

	var id string
	parent := taskfile.NormalizeID(opts.ParentTaskID)
	if parent != "" {
		if _, err := s.locate(ctx, parent); err != nil {
			return nil, fmt.Errorf("parent %w", err)
		}
		n, err := s.maxSuffix(ctx, parent+".")
		if err != nil {
			return nil, err
		}
		id = fmt.Sprintf("%s.%d", parent, n+1)
	} else {
		prefix := strings.ToLower(s.cfg.TaskPrefix) + "-"
		n, err := s.maxSuffix(ctx, prefix)
		if err != nil {
			return nil, err
		}
		id = fmt.Sprintf("%s%d", prefix, n+1)
	}

	status := strings.TrimSpace(opts.Status)
	if status == "" {
		status = s.cfg.DefaultStatus
	}
	t := &task.Task{
		ID:                 id,
		Title:              title,
		Description:        opts.Description,
		Status:             status,
		Priority:           prio,
		Type:               strings.TrimSpace(opts.Type),
		Labels:             cleanList(opts.Labels),
		Assignees:          cleanList(opts.Assignees),
		Reporter:           strings.TrimSpace(opts.Reporter),
		Milestone:          strings.TrimSpace(opts.Milestone),
		Dependencies:       cleanList(opts.Dependencies),
		References:         cleanList(opts.References),
		ParentTaskID:       parent,
		CreatedDate:        s.today(),
		Ordinal:            opts.Ordinal,
		AcceptanceCriteria: checklist(opts.AcceptanceCriteria),
		DefinitionOfDone:   checklist(opts.DefinitionOfDone),
		ImplementationPlan: opts.ImplementationPlan,
	}

	folder := task.FolderTasks
	if opts.Draft {
		folder = task.FolderDrafts
	}
	dir := s.folderPath(folder)
	if err := os.MkdirAll(dir, dirPerms); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, fileName(id, title))
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%s: %w", id, task.ErrAlreadyExists)
	}

	content := taskfile.Render(t)
	if err := writeFile(path, content); err != nil {
		return nil, err
	}
	s.logger.Debug("created task", "id", id, "folder", folder)
	return s.load(path, folder, content)
}

func checklist(lines []string) []task.ChecklistItem {
	var items []task.ChecklistItem
	for _, l := range cleanList(lines) {
		items = append(items, task.ChecklistItem{Text: l})
	}
	return taskfile.Renumber(items)
}

// maxSuffix returns the largest n among ids "<prefix><n>" in any folder,
// ignoring ids with further dotted parts. It returns 0 when none exist.
func (s *Store) maxSuffix(ctx context.Context, prefix string) (int, error) {
	highest := 0
	for _, folder := range task.Folders {
		entries, err := os.ReadDir(s.folderPath(folder))
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
			if !isTaskFile(entry.Name()) {
				continue
			}
			rest, ok := strings.CutPrefix(taskfile.IDFromFilename(entry.Name()), prefix)
			if !ok {
				continue
			}
			rest, _, _ = strings.Cut(rest, ".")
			if n, err := strconv.Atoi(rest); err == nil && n > highest {
				highest = n
			}
		}
	}
	return highest, nil
}

var unsafeFilename = regexp.MustCompile(`[<>:"/\\|?*#'` + "`" + `\x00-\x1f]`)

// fileName builds "<id> - <Title-Slug>.md".
func fileName(id, title string) string {
	slug := strings.Join(strings.Fields(unsafeFilename.ReplaceAllString(title, "")), "-")
	if slug == "" {
		return id + ".md"
	}
	return id + " - " + slug + ".md"
}

// Move relocates a task file into folder, keeping its name.
func (s *Store) Move(ctx context.Context, id string, folder task.Folder) (*task.Task, error) {
	folder, err := task.ParseFolder(string(folder))
	if err != nil {
		return nil, err
	}
	loc, err := s.locate(ctx, id)
	if err != nil {
		return nil, err
	}
	if loc.folder == folder {
		return s.load(loc.path, loc.folder, loc.content)
	}
	dest := filepath.Join(s.folderPath(folder), filepath.Base(loc.path))
	if err := s.rename(loc.path, dest); err != nil {
		return nil, err
	}
	s.logger.Debug("moved task", "id", id, "from", loc.folder, "to", folder)
	return s.load(dest, folder, loc.content)
}

// Archive moves a task to archive/tasks, or a draft to archive/drafts.
func (s *Store) Archive(ctx context.Context, id string) (*task.Task, error) {
	loc, err := s.locate(ctx, id)
	if err != nil {
		return nil, err
	}
	if loc.folder == task.FolderDrafts {
		return s.Move(ctx, id, task.FolderArchiveDrafts)
	}
	return s.Move(ctx, id, task.FolderArchive)
}

// Complete moves a task to completed/.
func (s *Store) Complete(ctx context.Context, id string) (*task.Task, error) {
	return s.Move(ctx, id, task.FolderCompleted)
}

// PromoteDraft moves a draft onto the board.
func (s *Store) PromoteDraft(ctx context.Context, id string) (*task.Task, error) {
	if err := s.requireFolder(ctx, id, task.FolderDrafts); err != nil {
		return nil, err
	}
	return s.Move(ctx, id, task.FolderTasks)
}

// DemoteToDraft moves an active task back to drafts.
func (s *Store) DemoteToDraft(ctx context.Context, id string) (*task.Task, error) {
	if err := s.requireFolder(ctx, id, task.FolderTasks); err != nil {
		return nil, err
	}
	return s.Move(ctx, id, task.FolderDrafts)
}

func (s *Store) requireFolder(ctx context.Context, id string, folder task.Folder) error {
	loc, err := s.locate(ctx, id)
	if err != nil {
		return err
	}
	if loc.folder != folder {
		return fmt.Errorf("%s is in %s, not %s: %w", taskfile.NormalizeID(id), loc.folder, folder, task.ErrInvalidFolder)
	}
	return nil
}
