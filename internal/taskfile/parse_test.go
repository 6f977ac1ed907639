package taskfile

import (
	"reflect"
	"testing"

	"backlog-lite/internal/task"
)

const sampleTask = `---
id: TASK-7
title: Fix login
status: In Progress
priority: HIGH
labels: [auth, backend]
assignee: '@alice'
created_date: 2024-01-02
ordinal: 1500
custom_key: keep me
---

## Description

<!-- SECTION:DESCRIPTION:BEGIN -->
Login fails on Safari.
<!-- SECTION:DESCRIPTION:END -->

## Acceptance Criteria
<!-- AC:BEGIN -->
- [ ] #1 Reproduce
- [x] #2 Fix cookie
<!-- AC:END -->
`

func TestParse(t *testing.T) {
	got, ok := Parse([]byte(sampleTask), "/repo/backlog/tasks/task-7 - Fix login.md")
	if !ok {
		t.Fatal("Parse returned no task")
	}

	if got.ID != "task-7" {
		t.Errorf("ID = %q, want %q", got.ID, "task-7")
	}
	if got.Title != "Fix login" {
		t.Errorf("Title = %q, want %q", got.Title, "Fix login")
	}
	if got.Status != "In Progress" {
		t.Errorf("Status = %q, want %q", got.Status, "In Progress")
	}
	if got.Priority != task.PriorityHigh {
		t.Errorf("Priority = %q, want %q", got.Priority, task.PriorityHigh)
	}
	if !reflect.DeepEqual(got.Labels, []string{"auth", "backend"}) {
		t.Errorf("Labels = %v", got.Labels)
	}
	if !reflect.DeepEqual(got.Assignees, []string{"@alice"}) {
		t.Errorf("Assignees = %v", got.Assignees)
	}
	if got.CreatedDate != "2024-01-02" {
		t.Errorf("CreatedDate = %q, want the raw string", got.CreatedDate)
	}
	if got.Ordinal == nil || *got.Ordinal != 1500 {
		t.Errorf("Ordinal = %v, want 1500", got.Ordinal)
	}
	if got.Description != "Login fails on Safari." {
		t.Errorf("Description = %q", got.Description)
	}
	wantAC := []task.ChecklistItem{
		{ID: 1, Text: "Reproduce"},
		{ID: 2, Text: "Fix cookie", Checked: true},
	}
	if !reflect.DeepEqual(got.AcceptanceCriteria, wantAC) {
		t.Errorf("AcceptanceCriteria = %+v, want %+v", got.AcceptanceCriteria, wantAC)
	}
	if got.ContentHash != Hash([]byte(sampleTask)) {
		t.Errorf("ContentHash = %q, want hash of content", got.ContentHash)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	content := "Intro paragraph.\n\n# Heading Title\n\nSome text\n"
	got, ok := Parse([]byte(content), "tasks/task-3 - Heading Title.md")
	if !ok {
		t.Fatal("Parse returned no task")
	}
	if got.Title != "Heading Title" {
		t.Errorf("Title = %q, want %q", got.Title, "Heading Title")
	}
	if got.ID != "task-3" {
		t.Errorf("ID = %q, want %q", got.ID, "task-3")
	}
}

func TestParse_NoTitle(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"only h2", "## Description\n\ntext\n"},
		{"blank title", "---\nid: task-1\ntitle: '  '\n---\nbody\n"},
		{"unterminated", "---\ntitle: X\nno closing line\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, ok := Parse([]byte(tt.content), "tasks/task-1.md"); ok {
				t.Errorf("Parse = %+v, want no task", got)
			}
		})
	}
}

func TestSplit_Degrades(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unterminated", "---\ntitle: X\nbody text\n"},
		{"malformed yaml", "---\ntitle: [unclosed\n---\n# Real\n"},
		{"not a mapping", "---\n- a\n- b\n---\nbody\n"},
		{"delimiter not first", "\n---\ntitle: X\n---\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := Split([]byte(tt.content))
			if doc.HasFrontmatter {
				t.Error("HasFrontmatter = true, want false")
			}
			if doc.Frontmatter.Len() != 0 {
				t.Errorf("Frontmatter has %d keys, want 0", doc.Frontmatter.Len())
			}
			if doc.Body != tt.content {
				t.Errorf("Body = %q, want whole content", doc.Body)
			}
		})
	}
}

func TestParse_ArrayFields(t *testing.T) {
	content := "---\nid: task-1\ntitle: T\nlabels: solo\nassignees: [bob, ' carol ']\ndependencies: [' task-2 ', '', task-3]\nreferences: https://example.com/a\n---\n"
	got, ok := Parse([]byte(content), "tasks/task-1.md")
	if !ok {
		t.Fatal("Parse returned no task")
	}
	if !reflect.DeepEqual(got.Labels, []string{"solo"}) {
		t.Errorf("Labels = %v, want [solo]", got.Labels)
	}
	if !reflect.DeepEqual(got.Assignees, []string{"bob", "carol"}) {
		t.Errorf("Assignees = %v, want [bob carol]", got.Assignees)
	}
	if !reflect.DeepEqual(got.Dependencies, []string{"task-2", "task-3"}) {
		t.Errorf("Dependencies = %v, want [task-2 task-3]", got.Dependencies)
	}
	if !reflect.DeepEqual(got.References, []string{"https://example.com/a"}) {
		t.Errorf("References = %v", got.References)
	}
}

func TestParse_AliasKeys(t *testing.T) {
	content := "---\nid: task-1\ntitle: T\ncreated: 2023-05-06\nupdated: 2023-05-07 10:00\nparent: task-0\n---\n"
	got, ok := Parse([]byte(content), "tasks/task-1.md")
	if !ok {
		t.Fatal("Parse returned no task")
	}
	if got.CreatedDate != "2023-05-06" {
		t.Errorf("CreatedDate = %q", got.CreatedDate)
	}
	if got.UpdatedDate != "2023-05-07 10:00" {
		t.Errorf("UpdatedDate = %q", got.UpdatedDate)
	}
	if got.ParentTaskID != "task-0" {
		t.Errorf("ParentTaskID = %q", got.ParentTaskID)
	}
}

func TestParse_Sections(t *testing.T) {
	body := "## Description\n\nheading text\n<!-- SECTION:DESCRIPTION:BEGIN -->\nmarked\n<!-- SECTION:DESCRIPTION:END -->\n\n" +
		"## Implementation Plan\n\n1. step one\n2. step two\n\n" +
		"## Notes\n\nsome notes\n\n" +
		"## Summary\n\nall done\n"
	got, ok := Parse([]byte("---\nid: task-1\ntitle: T\n---\n"+body), "tasks/task-1.md")
	if !ok {
		t.Fatal("Parse returned no task")
	}
	if got.Description != "marked" {
		t.Errorf("Description = %q, want marker content", got.Description)
	}
	if got.ImplementationPlan != "1. step one\n2. step two" {
		t.Errorf("ImplementationPlan = %q", got.ImplementationPlan)
	}
	if got.ImplementationNotes != "some notes" {
		t.Errorf("ImplementationNotes = %q", got.ImplementationNotes)
	}
	if got.FinalSummary != "all done" {
		t.Errorf("FinalSummary = %q", got.FinalSummary)
	}
}

func TestParse_DescriptionUnderHeading(t *testing.T) {
	body := "## Description\n\nPlain text here.\n\n## Acceptance Criteria\n- [ ] first\n- [X] second\n- [ ] #7 third\n"
	got, ok := Parse([]byte("---\ntitle: T\n---\n"+body), "tasks/task-9 - T.md")
	if !ok {
		t.Fatal("Parse returned no task")
	}
	if got.Description != "Plain text here." {
		t.Errorf("Description = %q", got.Description)
	}
	want := []task.ChecklistItem{
		{ID: 1, Text: "first"},
		{ID: 2, Text: "second", Checked: true},
		{ID: 7, Text: "third"},
	}
	if !reflect.DeepEqual(got.AcceptanceCriteria, want) {
		t.Errorf("AcceptanceCriteria = %+v, want %+v", got.AcceptanceCriteria, want)
	}
}

func TestIDFromFilename(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"tasks/task-12 - Fix the thing.md", "task-12"},
		{"TASK-3.md", "task-3"},
		{"/x/y/draft-1 - a - b.md", "draft-1"},
	}
	for _, tt := range tests {
		if got := IDFromFilename(tt.path); got != tt.want {
			t.Errorf("IDFromFilename(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	ord := 1500.5
	want := &task.Task{
		ID:                  "task-4",
		Title:               "Fix: the colon case",
		Status:              "To Do",
		Priority:            task.PriorityMedium,
		Type:                "bug",
		Labels:              []string{"ui", "true"},
		Assignees:           []string{"@dana"},
		Reporter:            "erin",
		Milestone:           "v1",
		Dependencies:        []string{"task-1", "task-2"},
		References:          []string{"https://example.com/issue/4"},
		Documentation:       []string{"docs/login.md"},
		ParentTaskID:        "task-1",
		Subtasks:            []string{"task-4.1"},
		CreatedDate:         "2024-01-02 10:00",
		UpdatedDate:         "2024-01-03",
		Description:         "First line.\n\nSecond paragraph.",
		AcceptanceCriteria:  []task.ChecklistItem{{ID: 1, Text: "one"}, {ID: 2, Text: "two", Checked: true}},
		DefinitionOfDone:    []task.ChecklistItem{{ID: 1, Text: "tests pass"}},
		ImplementationPlan:  "1. do it",
		ImplementationNotes: "went fine",
		FinalSummary:        "shipped",
		Ordinal:             &ord,
		FilePath:            "tasks/task-4 - Fix the colon case.md",
	}

	content := Render(want)
	got, ok := Parse(content, want.FilePath)
	if !ok {
		t.Fatalf("Parse(Render) returned no task; content:\n%s", content)
	}
	got.ContentHash = ""
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch\n got: %+v\nwant: %+v\ncontent:\n%s", got, want, content)
	}

	again := Serialize(Split(content).Frontmatter, Split(content).Body)
	if string(again) != string(content) {
		t.Errorf("re-serialize changed content\nfirst:\n%s\nsecond:\n%s", content, again)
	}
}

func TestRender_EmptyOptionalSections(t *testing.T) {
	content := string(Render(&task.Task{ID: "task-1", Title: "Bare", Status: "To Do"}))
	want := "---\n" +
		"id: task-1\n" +
		"title: Bare\n" +
		"status: To Do\n" +
		"labels: []\n" +
		"assignee: []\n" +
		"dependencies: []\n" +
		"---\n" +
		"\n## Description\n\n" +
		"<!-- SECTION:DESCRIPTION:BEGIN -->\n" +
		"<!-- SECTION:DESCRIPTION:END -->\n"
	if content != want {
		t.Errorf("Render =\n%s\nwant:\n%s", content, want)
	}
}

func TestHash(t *testing.T) {
	empty := Hash(nil)
	if empty != "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262" {
		t.Errorf("Hash(empty) = %s", empty)
	}
	if Hash([]byte("a")) == Hash([]byte("b")) {
		t.Error("different content hashed equal")
	}
	if Hash([]byte("same")) != Hash([]byte("same")) {
		t.Error("hash is not deterministic")
	}
}
