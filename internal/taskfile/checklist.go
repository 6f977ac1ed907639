package taskfile

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"backlog-lite/internal/task"
)

// checklistLine matches "- [ ] #3 text", "- [x] text" and friends.
var checklistLine = regexp.MustCompile(`^(\s*- \[)([ xX])(\] )(?:#(\d+) )?(.*)$`)

// ChecklistSection returns the body section that holds a checklist.
func ChecklistSection(kind task.ChecklistKind) Section {
	if kind == task.DefinitionOfDone {
		return SectionDefinitionOfDone
	}
	return SectionAcceptanceCriteria
}

// checklistMatch is one checklist line found in a body.
type checklistMatch struct {
	item task.ChecklistItem
	// markOffset is the byte offset of the check-mark character.
	markOffset int
}

// scanChecklist walks the checklist lines inside sp. Items without an
// explicit anchor get their 1-based position.
func scanChecklist(body string, sp span) []checklistMatch {
	var matches []checklistMatch
	offset := sp.start
	rest := body[sp.start:sp.end]
	position := 0
	for {
		line, after, more := cutLine(rest)
		m := checklistLine.FindStringSubmatch(strings.TrimSuffix(line, "\r"))
		if m != nil {
			position++
			id := position
			if m[4] != "" {
				if n, err := strconv.Atoi(m[4]); err == nil {
					id = n
				}
			}
			matches = append(matches, checklistMatch{
				item: task.ChecklistItem{
					ID:      id,
					Text:    strings.TrimSpace(m[5]),
					Checked: m[2] != " ",
				},
				markOffset: offset + len(m[1]),
			})
		}
		if !more {
			break
		}
		offset += len(line) + 1
		rest = after
	}
	return matches
}

// ParseChecklist returns the checklist items found in content.
func ParseChecklist(content string) []task.ChecklistItem {
	var items []task.ChecklistItem
	for _, m := range scanChecklist(content, span{start: 0, end: len(content)}) {
		items = append(items, m.item)
	}
	return items
}

// ChecklistFromBody returns the items of the given checklist.
func ChecklistFromBody(body string, kind task.ChecklistKind) []task.ChecklistItem {
	sp, ok := sectionSpan(body, ChecklistSection(kind))
	if !ok {
		return nil
	}
	var items []task.ChecklistItem
	for _, m := range scanChecklist(body, sp) {
		items = append(items, m.item)
	}
	return items
}

// ToggleChecklistItem flips the check mark of the item whose anchor is
// itemID. Only that one character changes: " " becomes "x", and "x" or
// "X" becomes " ".
func ToggleChecklistItem(body string, kind task.ChecklistKind, itemID int) (string, error) {
	sp, ok := sectionSpan(body, ChecklistSection(kind))
	if ok {
		for _, m := range scanChecklist(body, sp) {
			if m.item.ID != itemID {
				continue
			}
			mark := "x"
			if m.item.Checked {
				mark = " "
			}
			return body[:m.markOffset] + mark + body[m.markOffset+1:], nil
		}
	}
	return body, fmt.Errorf("%s #%d: %w", kind, itemID, task.ErrChecklistItemNotFound)
}

// Renumber returns items with dense 1-based anchors in their current order.
func Renumber(items []task.ChecklistItem) []task.ChecklistItem {
	out := make([]task.ChecklistItem, len(items))
	for i, item := range items {
		item.ID = i + 1
		item.Text = strings.TrimSpace(item.Text)
		out[i] = item
	}
	return out
}

// RenderChecklist writes items as checklist lines, renumbering them.
func RenderChecklist(items []task.ChecklistItem) string {
	lines := make([]string, 0, len(items))
	for _, item := range Renumber(items) {
		mark := " "
		if item.Checked {
			mark = "x"
		}
		lines = append(lines, fmt.Sprintf("- [%s] #%d %s", mark, item.ID, item.Text))
	}
	return strings.Join(lines, "\n")
}

// SetChecklistInBody replaces a whole checklist. Anchors are renumbered
// densely; the rest of the body is untouched.
func SetChecklistInBody(body string, kind task.ChecklistKind, items []task.ChecklistItem) string {
	return UpdateSectionInBody(body, ChecklistSection(kind), RenderChecklist(items))
}

// AddChecklistItem appends an unchecked item to a checklist.
func AddChecklistItem(body string, kind task.ChecklistKind, text string) string {
	items := append(ChecklistFromBody(body, kind), task.ChecklistItem{Text: text})
	return SetChecklistInBody(body, kind, items)
}

// RemoveChecklistItem deletes the item anchored at itemID and renumbers
// the remaining items.
func RemoveChecklistItem(body string, kind task.ChecklistKind, itemID int) (string, error) {
	items := ChecklistFromBody(body, kind)
	kept := items[:0:0]
	found := false
	for _, item := range items {
		if item.ID == itemID && !found {
			found = true
			continue
		}
		kept = append(kept, item)
	}
	if !found {
		return body, fmt.Errorf("%s #%d: %w", kind, itemID, task.ErrChecklistItemNotFound)
	}
	return SetChecklistInBody(body, kind, kept), nil
}
