package taskstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"

	"backlog-lite/internal/task"
	"backlog-lite/internal/taskfile"
)

// Update applies patch to the task's file. If expectedHash is non-empty
// and the file no longer hashes to it, Update returns a
// *task.ConflictError and writes nothing. A title change renames the
// file; every other change keeps its name. updated_date is stamped.
func (s *Store) Update(ctx context.Context, id string, patch task.Patch, expectedHash string) (*task.Task, error) {
	return s.update(ctx, id, patch, expectedHash, true)
}

func (s *Store) update(ctx context.Context, id string, patch task.Patch, expectedHash string, stamp bool) (*task.Task, error) {
	return s.modify(ctx, id, expectedHash, func(loc location, doc taskfile.Document) ([]byte, error) {
		if patch.IsEmpty() {
			return nil, nil
		}
		body, err := applyPatch(doc.Frontmatter, doc.Body, patch)
		if err != nil {
			return nil, err
		}
		if stamp {
			key := doc.Frontmatter.FirstKey(taskfile.KeyUpdatedDate, taskfile.KeyUpdatedDate, taskfile.KeyUpdated)
			doc.Frontmatter.SetString(key, s.today())
		}
		doc.Body = body
		return doc.Bytes(), nil
	})
}

// ToggleChecklistItem flips one checklist item. Only the check mark
// changes, so toggling twice restores the original bytes.
func (s *Store) ToggleChecklistItem(ctx context.Context, id string, kind task.ChecklistKind, itemID int, expectedHash string) (*task.Task, error) {
	return s.modifyBody(ctx, id, expectedHash, func(body string) (string, error) {
		return taskfile.ToggleChecklistItem(body, kind, itemID)
	})
}

// AddChecklistItem appends an unchecked item to a checklist.
func (s *Store) AddChecklistItem(ctx context.Context, id string, kind task.ChecklistKind, text, expectedHash string) (*task.Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("checklist item text is required")
	}
	return s.modifyBody(ctx, id, expectedHash, func(body string) (string, error) {
		return taskfile.AddChecklistItem(body, kind, text), nil
	})
}

// RemoveChecklistItem deletes an item and renumbers the rest.
func (s *Store) RemoveChecklistItem(ctx context.Context, id string, kind task.ChecklistKind, itemID int, expectedHash string) (*task.Task, error) {
	return s.modifyBody(ctx, id, expectedHash, func(body string) (string, error) {
		return taskfile.RemoveChecklistItem(body, kind, itemID)
	})
}

// modifyBody edits the body alone. The frontmatter bytes are carried over
// untouched.
func (s *Store) modifyBody(ctx context.Context, id, expectedHash string, edit func(body string) (string, error)) (*task.Task, error) {
	return s.modify(ctx, id, expectedHash, func(loc location, doc taskfile.Document) ([]byte, error) {
		body, err := edit(doc.Body)
		if err != nil {
			return nil, err
		}
		head := loc.content[:len(loc.content)-len(doc.Body)]
		out := make([]byte, 0, len(head)+len(body))
		return append(append(out, head...), body...), nil
	})
}

// modify is the read-check-patch-write cycle shared by every edit. edit
// returns the new file content, or nil for no change.
func (s *Store) modify(ctx context.Context, id, expectedHash string, edit func(location, taskfile.Document) ([]byte, error)) (*task.Task, error) {
	loc, err := s.locate(ctx, id)
	if err != nil {
		return nil, err
	}
	current := taskfile.Hash(loc.content)
	if expectedHash != "" && expectedHash != current {
		return nil, &task.ConflictError{
			Path:         loc.path,
			ExpectedHash: expectedHash,
			ActualHash:   current,
			Current:      loc.content,
		}
	}

	doc := taskfile.Split(loc.content)
	hadFrontmatter := doc.HasFrontmatter
	updated, err := edit(loc, doc)
	if err != nil {
		return nil, err
	}
	if updated == nil || bytes.Equal(updated, loc.content) {
		return s.load(loc.path, loc.folder, loc.content)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if hadFrontmatter && !taskfile.Split(updated).HasFrontmatter {
		return nil, fmt.Errorf("%s: edit would leave frontmatter that does not decode", filepath.Base(loc.path))
	}
	path := loc.path
	t, ok := taskfile.Parse(updated, path)
	if !ok {
		return nil, fmt.Errorf("%s: edit would leave the file without a title", filepath.Base(path))
	}
	if want := fileName(t.ID, t.Title); want != filepath.Base(path) && t.Title != titleOf(loc) {
		path = filepath.Join(filepath.Dir(path), want)
	}

	if err := s.writeChecked(loc.path, current, updated); err != nil {
		return nil, err
	}
	if path != loc.path {
		if err := s.rename(loc.path, path); err != nil {
			return nil, err
		}
		s.logger.Debug("renamed task file", "id", t.ID, "from", filepath.Base(loc.path), "to", filepath.Base(path))
	}
	return s.load(path, loc.folder, updated)
}

// titleOf returns the title the file had before the edit.
func titleOf(loc location) string {
	if t, ok := taskfile.Parse(loc.content, loc.path); ok {
		return t.Title
	}
	return ""
}

// writeChecked replaces path with content if the file still hashes to
// want. The check runs immediately before the write so a change made
// while the edit was being prepared is caught.
func (s *Store) writeChecked(path, want string, content []byte) error {
	onDisk, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", filepath.Base(path), task.ErrNotFound)
		}
		return err
	}
	if got := taskfile.Hash(onDisk); got != want {
		return &task.ConflictError{Path: path, ExpectedHash: want, ActualHash: got, Current: onDisk}
	}
	return writeFile(path, content)
}

// writeFile writes content through a temp file and rename so readers
// never see a partial file.
func writeFile(path string, content []byte) error {
	if err := atomic.WriteFile(path, bytes.NewReader(content)); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := os.Chmod(path, filePerms); err != nil {
		return fmt.Errorf("setting permissions on %s: %w", filepath.Base(path), err)
	}
	return nil
}

// rename moves a file, refusing to replace an existing one.
func (s *Store) rename(from, to string) error {
	if _, err := os.Stat(to); err == nil {
		return fmt.Errorf("%s: %w", filepath.Base(to), task.ErrAlreadyExists)
	}
	if err := os.MkdirAll(filepath.Dir(to), dirPerms); err != nil {
		return err
	}
	return os.Rename(from, to)
}

func (s *Store) today() string {
	return s.clock.Now().Format(s.cfg.DateLayout())
}

// applyPatch writes p's metadata into fm and returns the patched body.
func applyPatch(fm *taskfile.Frontmatter, body string, p task.Patch) (string, error) {
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return "", errors.New("title must not be empty")
		}
		fm.SetString(taskfile.KeyTitle, title)
	}
	if p.Status != nil {
		fm.SetString(taskfile.KeyStatus, strings.TrimSpace(*p.Status))
	}
	if p.Priority != nil {
		raw := strings.ToLower(strings.TrimSpace(*p.Priority))
		if raw == "" {
			fm.Delete(taskfile.KeyPriority)
		} else if prio, ok := task.ParsePriority(raw); ok {
			fm.SetString(taskfile.KeyPriority, string(prio))
		} else {
			return "", fmt.Errorf("invalid priority %q (allowed: high, medium, low)", *p.Priority)
		}
	}
	if p.Milestone != nil {
		setOrDelete(fm, taskfile.KeyMilestone, *p.Milestone)
	}
	if p.ParentTaskID != nil {
		key := fm.FirstKey(taskfile.KeyParentTaskID, taskfile.KeyParentTaskID, taskfile.KeyParent)
		setOrDelete(fm, key, taskfile.NormalizeID(*p.ParentTaskID))
	}
	if p.Labels != nil {
		fm.SetStrings(taskfile.KeyLabels, cleanList(*p.Labels))
	}
	if p.Assignees != nil {
		key := fm.FirstKey(taskfile.KeyAssignee, taskfile.KeyAssignee, taskfile.KeyAssignees)
		fm.SetStrings(key, cleanList(*p.Assignees))
	}
	if p.Dependencies != nil {
		fm.SetStrings(taskfile.KeyDependencies, cleanList(*p.Dependencies))
	}
	if p.References != nil {
		fm.SetStrings(taskfile.KeyReferences, cleanList(*p.References))
	}
	if p.Documentation != nil {
		fm.SetStrings(taskfile.KeyDocumentation, cleanList(*p.Documentation))
	}
	switch {
	case p.ClearOrdinal:
		fm.Delete(taskfile.KeyOrdinal)
	case p.Ordinal != nil:
		fm.SetFloat(taskfile.KeyOrdinal, *p.Ordinal)
	}

	if p.Description != nil {
		body = taskfile.UpdateDescriptionInBody(body, *p.Description)
	}
	if p.ImplementationPlan != nil {
		body = taskfile.UpdateSectionInBody(body, taskfile.SectionImplementationPlan, *p.ImplementationPlan)
	}
	if p.ImplementationNotes != nil {
		body = taskfile.UpdateSectionInBody(body, taskfile.SectionImplementationNotes, *p.ImplementationNotes)
	}
	if p.FinalSummary != nil {
		body = taskfile.UpdateSectionInBody(body, taskfile.SectionFinalSummary, *p.FinalSummary)
	}
	if p.AcceptanceCriteria != nil {
		body = taskfile.SetChecklistInBody(body, task.AcceptanceCriteria, *p.AcceptanceCriteria)
	}
	if p.DefinitionOfDone != nil {
		body = taskfile.SetChecklistInBody(body, task.DefinitionOfDone, *p.DefinitionOfDone)
	}
	return body, nil
}

func setOrDelete(fm *taskfile.Frontmatter, key, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		fm.Delete(key)
		return
	}
	fm.SetString(key, value)
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
