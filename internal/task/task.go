// Package task defines the task record shared by every layer of the
// store: the codec produces it, the aggregator merges it, and the write
// path patches the files it was parsed from.
//
// A Task is an in-memory projection of one markdown file. It is never the
// system of record; mutations go through the write path, which re-reads,
// patches and rewrites the backing file.
package task

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors returned by the store layer.
var (
	ErrNotFound              = errors.New("task not found")
	ErrAlreadyExists         = errors.New("task already exists")
	ErrConflict              = errors.New("task file changed on disk")
	ErrChecklistItemNotFound = errors.New("checklist item not found")
	ErrInvalidFolder         = errors.New("invalid task folder")
)

// ConflictError is returned when an optimistic-concurrency check fails.
// Current holds the bytes found on disk at the time of the check so the
// caller can merge or retry without another read.
type ConflictError struct {
	Path         string
	ExpectedHash string
	ActualHash   string
	Current      []byte
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %v (expected hash %.12s, found %.12s)", e.Path, ErrConflict, e.ExpectedHash, e.ActualHash)
}

// Is reports ErrConflict so callers can use errors.Is.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// Priority is the optional urgency of a task.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ParsePriority normalizes s into a Priority. Unknown values report false.
func ParsePriority(s string) (Priority, bool) {
	switch Priority(s) {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return Priority(s), true
	}
	return "", false
}

// Source records where a task observation came from.
type Source string

const (
	SourceLocal       Source = "local"
	SourceLocalBranch Source = "local-branch"
)

// Folder is a directory under the backlog root holding task files.
type Folder string

const (
	FolderTasks         Folder = "tasks"
	FolderDrafts        Folder = "drafts"
	FolderCompleted     Folder = "completed"
	FolderArchive       Folder = "archive/tasks"
	FolderArchiveDrafts Folder = "archive/drafts"
)

// Folders lists every folder the store manages, in scan order.
var Folders = []Folder{FolderTasks, FolderDrafts, FolderCompleted, FolderArchive, FolderArchiveDrafts}

// ParseFolder validates a folder name.
func ParseFolder(s string) (Folder, error) {
	for _, f := range Folders {
		if string(f) == s {
			return f, nil
		}
	}
	switch s {
	case "archive":
		return FolderArchive, nil
	case "draft":
		return FolderDrafts, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidFolder, s)
}

// ChecklistKind selects one of a task's checklists.
type ChecklistKind string

const (
	AcceptanceCriteria ChecklistKind = "acceptance_criteria"
	DefinitionOfDone   ChecklistKind = "definition_of_done"
)

// ChecklistItem is one line of a checklist. ID is a dense 1-based anchor.
type ChecklistItem struct {
	ID      int    `json:"id"`
	Text    string `json:"text"`
	Checked bool   `json:"checked"`
}

// Task is a single parsed task record.
type Task struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Status      string   `json:"status"`
	Priority    Priority `json:"priority,omitempty"`
	Type        string   `json:"type,omitempty"`

	Labels        []string `json:"labels,omitempty"`
	Assignees     []string `json:"assignees,omitempty"`
	Reporter      string   `json:"reporter,omitempty"`
	Milestone     string   `json:"milestone,omitempty"`
	Dependencies  []string `json:"dependencies,omitempty"`
	References    []string `json:"references,omitempty"`
	Documentation []string `json:"documentation,omitempty"`
	ParentTaskID  string   `json:"parent_task_id,omitempty"`
	Subtasks      []string `json:"subtasks,omitempty"`

	// Dates stay as written in the file; no calendar coercion happens here.
	CreatedDate string `json:"created_date,omitempty"`
	UpdatedDate string `json:"updated_date,omitempty"`

	AcceptanceCriteria  []ChecklistItem `json:"acceptance_criteria,omitempty"`
	DefinitionOfDone    []ChecklistItem `json:"definition_of_done,omitempty"`
	ImplementationPlan  string          `json:"implementation_plan,omitempty"`
	ImplementationNotes string          `json:"implementation_notes,omitempty"`
	FinalSummary        string          `json:"final_summary,omitempty"`

	// Ordinal is nil when the file carries no ordinal.
	Ordinal *float64 `json:"ordinal,omitempty"`

	// Provenance, set by the aggregator.
	Source       Source    `json:"source,omitempty"`
	Branch       string    `json:"branch,omitempty"`
	LastModified time.Time `json:"last_modified,omitempty"`

	FilePath    string `json:"file_path"`
	Folder      Folder `json:"folder,omitempty"`
	ContentHash string `json:"content_hash,omitempty"`
}

// Checklist returns the checklist of the given kind.
func (t *Task) Checklist(kind ChecklistKind) []ChecklistItem {
	if kind == DefinitionOfDone {
		return t.DefinitionOfDone
	}
	return t.AcceptanceCriteria
}

// Clone returns a deep copy of t.
func (t *Task) Clone() *Task {
	c := *t
	c.Labels = cloneStrings(t.Labels)
	c.Assignees = cloneStrings(t.Assignees)
	c.Dependencies = cloneStrings(t.Dependencies)
	c.References = cloneStrings(t.References)
	c.Documentation = cloneStrings(t.Documentation)
	c.Subtasks = cloneStrings(t.Subtasks)
	c.AcceptanceCriteria = append([]ChecklistItem(nil), t.AcceptanceCriteria...)
	c.DefinitionOfDone = append([]ChecklistItem(nil), t.DefinitionOfDone...)
	if t.Ordinal != nil {
		v := *t.Ordinal
		c.Ordinal = &v
	}
	return &c
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

// Patch is a partial update applied by the write path. Nil fields are
// left untouched; a non-nil pointer to an empty value clears the field.
type Patch struct {
	Title         *string
	Status        *string
	Priority      *string
	Milestone     *string
	Labels        *[]string
	Assignees     *[]string
	Dependencies  *[]string
	References    *[]string
	Documentation *[]string
	ParentTaskID  *string
	Ordinal       *float64
	ClearOrdinal  bool

	Description         *string
	ImplementationPlan  *string
	ImplementationNotes *string
	FinalSummary        *string

	AcceptanceCriteria *[]ChecklistItem
	DefinitionOfDone   *[]ChecklistItem
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p == (Patch{})
}

// String returns a pointer to s, for building patches.
func String(s string) *string { return &s }

// Strings returns a pointer to s, for building patches.
func Strings(s ...string) *[]string {
	if s == nil {
		s = []string{}
	}
	return &s
}

// Float returns a pointer to f.
func Float(f float64) *float64 { return &f }
