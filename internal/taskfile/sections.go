package taskfile

import (
	"strings"
)

// Section describes one recognized body section: the second-level heading
// it lives under and the marker comments that delimit its content.
type Section struct {
	Heading string
	Begin   string
	End     string
	// aliases are lowercase substrings that identify the heading.
	aliases []string
}

var (
	SectionDescription = Section{
		Heading: "Description",
		Begin:   "<!-- SECTION:DESCRIPTION:BEGIN -->",
		End:     "<!-- SECTION:DESCRIPTION:END -->",
		aliases: []string{"description"},
	}
	SectionAcceptanceCriteria = Section{
		Heading: "Acceptance Criteria",
		Begin:   "<!-- AC:BEGIN -->",
		End:     "<!-- AC:END -->",
		aliases: []string{"acceptance criteria"},
	}
	SectionDefinitionOfDone = Section{
		Heading: "Definition of Done",
		Begin:   "<!-- DOD:BEGIN -->",
		End:     "<!-- DOD:END -->",
		aliases: []string{"definition of done"},
	}
	SectionImplementationPlan = Section{
		Heading: "Implementation Plan",
		Begin:   "<!-- SECTION:PLAN:BEGIN -->",
		End:     "<!-- SECTION:PLAN:END -->",
		aliases: []string{"implementation plan"},
	}
	SectionImplementationNotes = Section{
		Heading: "Implementation Notes",
		Begin:   "<!-- SECTION:NOTES:BEGIN -->",
		End:     "<!-- SECTION:NOTES:END -->",
		aliases: []string{"implementation notes", "notes"},
	}
	SectionFinalSummary = Section{
		Heading: "Final Summary",
		Begin:   "<!-- SECTION:FINAL_SUMMARY:BEGIN -->",
		End:     "<!-- SECTION:FINAL_SUMMARY:END -->",
		aliases: []string{"final summary", "summary"},
	}
)

// classifyOrder matters: "implementation notes" must be tested before the
// description, and the checklists before anything with a looser alias.
var classifyOrder = []*Section{
	&SectionAcceptanceCriteria,
	&SectionDefinitionOfDone,
	&SectionImplementationPlan,
	&SectionImplementationNotes,
	&SectionFinalSummary,
	&SectionDescription,
}

// classifyHeading maps a "## " heading's text to a known section.
func classifyHeading(text string) *Section {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, s := range classifyOrder {
		for _, alias := range s.aliases {
			if strings.Contains(lower, alias) {
				return s
			}
		}
	}
	return nil
}

func (s Section) is(other *Section) bool {
	return other != nil && other.Begin == s.Begin
}

// span is a half-open byte range within a body.
type span struct {
	start, end int
}

// markerSpan locates the content between the section's marker comments.
func markerSpan(body string, s Section) (span, bool) {
	i := strings.Index(body, s.Begin)
	if i < 0 {
		return span{}, false
	}
	start := i + len(s.Begin)
	j := strings.Index(body[start:], s.End)
	if j < 0 {
		return span{}, false
	}
	return span{start: start, end: start + j}, true
}

// headingSpan locates the content under the section's "## " heading, up
// to the next "## " heading or the end of the body.
func headingSpan(body string, s Section) (span, bool) {
	offset := 0
	found := false
	var content span
	rest := body
	for {
		line, after, more := cutLine(rest)
		next := offset + len(line)
		if more {
			next++
		}
		if strings.HasPrefix(line, "## ") {
			if found {
				content.end = offset
				return content, true
			}
			if s.is(classifyHeading(line[3:])) {
				found = true
				content.start = next
			}
		}
		if !more {
			break
		}
		offset = next
		rest = after
	}
	if found {
		content.end = len(body)
		return content, true
	}
	return span{}, false
}

// sectionSpan prefers explicit markers over heading content.
func sectionSpan(body string, s Section) (span, bool) {
	if sp, ok := markerSpan(body, s); ok {
		return sp, true
	}
	return headingSpan(body, s)
}

// SectionContent returns the trimmed content of s, and whether the section
// exists at all.
func SectionContent(body string, s Section) (string, bool) {
	sp, ok := sectionSpan(body, s)
	if !ok {
		return "", false
	}
	return trimBlankLines(body[sp.start:sp.end]), true
}

// trimBlankLines drops whitespace-only lines from both ends, keeping the
// indentation of the remaining lines.
func trimBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	first, last := 0, len(lines)-1
	for first <= last && strings.TrimSpace(lines[first]) == "" {
		first++
	}
	for last >= first && strings.TrimSpace(lines[last]) == "" {
		last--
	}
	if first > last {
		return ""
	}
	for i := first; i <= last; i++ {
		lines[i] = strings.TrimRight(lines[i], "\r")
	}
	return strings.Join(lines[first:last+1], "\n")
}

func markerBlock(s Section, content string) string {
	if content == "" {
		return s.Begin + "\n" + s.End
	}
	return s.Begin + "\n" + content + "\n" + s.End
}

// UpdateSectionInBody replaces the content of s. When the section has
// markers only the text between them changes. When it has a heading but
// no markers, the heading's content is replaced by a marker block. When
// the section is missing it is added (the description at the top, every
// other section at the end); an empty content never creates a section.
func UpdateSectionInBody(body string, s Section, content string) string {
	content = trimBlankLines(content)

	if sp, ok := markerSpan(body, s); ok {
		inner := "\n"
		if content != "" {
			inner = "\n" + content + "\n"
		}
		return body[:sp.start] + inner + body[sp.end:]
	}

	if sp, ok := headingSpan(body, s); ok {
		replacement := "\n" + markerBlock(s, content) + "\n"
		if sp.end < len(body) {
			replacement += "\n"
		}
		return body[:sp.start] + replacement + body[sp.end:]
	}

	if content == "" {
		return body
	}

	block := "## " + s.Heading + "\n\n" + markerBlock(s, content) + "\n"
	if s.Begin == SectionDescription.Begin {
		rest := strings.TrimLeft(body, "\r\n")
		if rest == "" {
			return "\n" + block
		}
		return "\n" + block + "\n" + rest
	}
	if body == "" {
		return "\n" + block
	}
	if !strings.HasSuffix(body, "\n") {
		body += "\n"
	}
	return body + "\n" + block
}

// UpdateDescriptionInBody replaces the description section.
func UpdateDescriptionInBody(body, description string) string {
	return UpdateSectionInBody(body, SectionDescription, description)
}
