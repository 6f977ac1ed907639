package taskfile

import (
	"encoding/hex"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"github.com/zeebo/blake3"

	"backlog-lite/internal/task"
)

// Frontmatter keys read by Parse. Pairs list the preferred spelling first.
const (
	KeyID            = "id"
	KeyTitle         = "title"
	KeyStatus        = "status"
	KeyPriority      = "priority"
	KeyMilestone     = "milestone"
	KeyLabels        = "labels"
	KeyAssignee      = "assignee"
	KeyAssignees     = "assignees"
	KeyReporter      = "reporter"
	KeyCreatedDate   = "created_date"
	KeyCreated       = "created"
	KeyUpdatedDate   = "updated_date"
	KeyUpdated       = "updated"
	KeyDependencies  = "dependencies"
	KeyReferences    = "references"
	KeyDocumentation = "documentation"
	KeyParentTaskID  = "parent_task_id"
	KeyParent        = "parent"
	KeySubtasks      = "subtasks"
	KeyOrdinal       = "ordinal"
	KeyType          = "type"
)

// Hash returns the hex BLAKE3-256 digest of content. The write path uses
// it to detect files changed behind its back.
func Hash(content []byte) string {
	sum := blake3.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Parse decodes a task file. It reports false when no title can be
// resolved or no id can be derived; such files are not tasks.
func Parse(content []byte, filePath string) (*task.Task, bool) {
	t, ok := FromDocument(Split(content), filePath)
	if !ok {
		return nil, false
	}
	t.ContentHash = Hash(content)
	return t, true
}

// FromDocument builds a task from an already split document.
func FromDocument(doc Document, filePath string) (*task.Task, bool) {
	fm := doc.Frontmatter
	body := doc.Body

	title := fm.FirstString(KeyTitle)
	if title == "" {
		title = leadingHeading(body)
	}
	if title == "" {
		return nil, false
	}

	id := NormalizeID(fm.FirstString(KeyID))
	if id == "" {
		id = IDFromFilename(filePath)
	}
	if id == "" {
		return nil, false
	}

	t := &task.Task{
		ID:            id,
		Title:         title,
		Status:        fm.FirstString(KeyStatus),
		Milestone:     fm.FirstString(KeyMilestone),
		Type:          fm.FirstString(KeyType),
		Labels:        fm.Strings(KeyLabels),
		Assignees:     fm.FirstStrings(KeyAssignee, KeyAssignees),
		Reporter:      fm.FirstString(KeyReporter),
		CreatedDate:   fm.FirstString(KeyCreatedDate, KeyCreated),
		UpdatedDate:   fm.FirstString(KeyUpdatedDate, KeyUpdated),
		Dependencies:  fm.Strings(KeyDependencies),
		References:    fm.Strings(KeyReferences),
		Documentation: fm.Strings(KeyDocumentation),
		ParentTaskID:  fm.FirstString(KeyParentTaskID, KeyParent),
		Subtasks:      fm.Strings(KeySubtasks),
		FilePath:      filePath,
	}
	if p, ok := task.ParsePriority(strings.ToLower(fm.FirstString(KeyPriority))); ok {
		t.Priority = p
	}
	if v, ok := fm.Float(KeyOrdinal); ok {
		t.Ordinal = &v
	}

	t.Description, _ = SectionContent(body, SectionDescription)
	t.ImplementationPlan, _ = SectionContent(body, SectionImplementationPlan)
	t.ImplementationNotes, _ = SectionContent(body, SectionImplementationNotes)
	t.FinalSummary, _ = SectionContent(body, SectionFinalSummary)
	t.AcceptanceCriteria = ChecklistFromBody(body, task.AcceptanceCriteria)
	t.DefinitionOfDone = ChecklistFromBody(body, task.DefinitionOfDone)

	return t, true
}

// NormalizeID trims and lowercases a task id.
func NormalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// IDFromFilename derives an id from names like "task-12 - Fix the thing.md".
func IDFromFilename(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if i := strings.Index(name, " - "); i >= 0 {
		name = name[:i]
	}
	return NormalizeID(name)
}

var markdown = goldmark.New()

// leadingHeading returns the text of the first level-1 heading in body.
func leadingHeading(body string) string {
	if !strings.Contains(body, "#") && !strings.Contains(body, "=") {
		return ""
	}
	source := []byte(body)
	doc := markdown.Parser().Parse(text.NewReader(source))

	var title string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok || h.Level != 1 {
			return ast.WalkContinue, nil
		}
		var b strings.Builder
		lines := h.Lines()
		for i := 0; i < lines.Len(); i++ {
			segment := lines.At(i)
			b.Write(segment.Value(source))
		}
		title = strings.TrimSpace(b.String())
		return ast.WalkStop, nil
	})
	return title
}

// FrontmatterFromTask builds the frontmatter for a new task file.
func FrontmatterFromTask(t *task.Task) *Frontmatter {
	fm := NewFrontmatter()
	ApplyTask(fm, t)
	return fm
}

// ApplyTask writes t's metadata onto fm. Optional fields that are empty
// on t are removed; list fields that every task carries are kept as [].
func ApplyTask(fm *Frontmatter, t *task.Task) {
	fm.SetString(KeyID, t.ID)
	fm.SetString(KeyTitle, t.Title)
	fm.SetString(KeyStatus, t.Status)
	setOptional(fm, KeyPriority, string(t.Priority))
	setOptional(fm, KeyMilestone, t.Milestone)
	fm.SetStrings(KeyLabels, t.Labels)
	fm.SetStrings(fm.FirstKey(KeyAssignee, KeyAssignee, KeyAssignees), t.Assignees)
	setOptional(fm, KeyReporter, t.Reporter)
	setOptional(fm, fm.FirstKey(KeyCreatedDate, KeyCreatedDate, KeyCreated), t.CreatedDate)
	setOptional(fm, fm.FirstKey(KeyUpdatedDate, KeyUpdatedDate, KeyUpdated), t.UpdatedDate)
	fm.SetStrings(KeyDependencies, t.Dependencies)
	setOptionalList(fm, KeyReferences, t.References)
	setOptionalList(fm, KeyDocumentation, t.Documentation)
	setOptional(fm, fm.FirstKey(KeyParentTaskID, KeyParentTaskID, KeyParent), t.ParentTaskID)
	setOptionalList(fm, KeySubtasks, t.Subtasks)
	if t.Ordinal != nil {
		fm.SetFloat(KeyOrdinal, *t.Ordinal)
	} else {
		fm.Delete(KeyOrdinal)
	}
	setOptional(fm, KeyType, t.Type)
}

func setOptional(fm *Frontmatter, key, value string) {
	if value == "" {
		fm.Delete(key)
		return
	}
	fm.SetString(key, value)
}

func setOptionalList(fm *Frontmatter, key string, items []string) {
	if len(items) == 0 {
		fm.Delete(key)
		return
	}
	fm.SetStrings(key, items)
}

// RenderBody builds the body of a new task file. The description section
// is always present; the others only when they have content.
func RenderBody(t *task.Task) string {
	var b strings.Builder
	writeSection := func(s Section, content string) {
		b.WriteString("\n## " + s.Heading + "\n\n")
		b.WriteString(markerBlock(s, trimBlankLines(content)) + "\n")
	}

	writeSection(SectionDescription, t.Description)
	if len(t.AcceptanceCriteria) > 0 {
		writeSection(SectionAcceptanceCriteria, RenderChecklist(t.AcceptanceCriteria))
	}
	if len(t.DefinitionOfDone) > 0 {
		writeSection(SectionDefinitionOfDone, RenderChecklist(t.DefinitionOfDone))
	}
	if t.ImplementationPlan != "" {
		writeSection(SectionImplementationPlan, t.ImplementationPlan)
	}
	if t.ImplementationNotes != "" {
		writeSection(SectionImplementationNotes, t.ImplementationNotes)
	}
	if t.FinalSummary != "" {
		writeSection(SectionFinalSummary, t.FinalSummary)
	}
	return b.String()
}

// Render serializes t as a complete new task file.
func Render(t *task.Task) []byte {
	return Serialize(FrontmatterFromTask(t), RenderBody(t))
}
