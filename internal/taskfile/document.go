// Package taskfile is the codec for task files: markdown documents with
// an optional YAML frontmatter block.
//
// Parsing is lenient. A missing, unterminated or undecodable frontmatter
// block is not an error; the whole file is then treated as body. Writing
// is deterministic: frontmatter keys come out in a canonical order, arrays
// are written inline and scalars are quoted only when YAML requires it, so
// rewriting a file produces small diffs. Body edits are targeted and leave
// everything outside the touched region byte-identical.
package taskfile

import (
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"
)

const delimiter = "---"

// Document is a task file split into its two parts.
type Document struct {
	Frontmatter *Frontmatter
	Body        string
	// HasFrontmatter is true when a well-formed block was found.
	HasFrontmatter bool
}

// Split separates content into frontmatter and body. It never fails.
func Split(content []byte) Document {
	text := string(content)
	whole := Document{Frontmatter: NewFrontmatter(), Body: text}

	first, rest, ok := cutLine(text)
	if !ok || strings.TrimSuffix(first, "\r") != delimiter {
		return whole
	}

	start := len(text) - len(rest)
	remaining := rest
	for {
		line, after, more := cutLine(remaining)
		if strings.TrimSuffix(line, "\r") == delimiter {
			fm, err := decodeFrontmatter(text[start : len(text)-len(remaining)])
			if err != nil {
				return whole
			}
			return Document{Frontmatter: fm, Body: after, HasFrontmatter: true}
		}
		if !more {
			return whole
		}
		remaining = after
	}
}

// cutLine splits s at the first newline. more is false when s has no
// newline, in which case line is all of s.
func cutLine(s string) (line, rest string, more bool) {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i], s[i+1:], true
	}
	return s, "", false
}

// canonicalOrder is the key order used when writing frontmatter. Keys not
// listed here follow in the order they already had.
var canonicalOrder = []string{
	"id",
	"title",
	"status",
	"priority",
	"milestone",
	"labels",
	"assignee",
	"assignees",
	"reporter",
	"created_date",
	"created",
	"updated_date",
	"updated",
	"dependencies",
	"references",
	"documentation",
	"parent_task_id",
	"parent",
	"subtasks",
	"ordinal",
	"type",
}

// Serialize writes fm and body back into file form. An empty frontmatter
// produces the body alone.
func Serialize(fm *Frontmatter, body string) []byte {
	if fm.Len() == 0 {
		return []byte(body)
	}
	return serialize(fm, body)
}

// Bytes writes d back into file form. Unlike Serialize it keeps an empty
// frontmatter block when the file had one.
func (d Document) Bytes() []byte {
	if d.HasFrontmatter {
		return serialize(d.Frontmatter, d.Body)
	}
	return Serialize(d.Frontmatter, d.Body)
}

func serialize(fm *Frontmatter, body string) []byte {
	var b strings.Builder
	b.WriteString(delimiter + "\n")
	for _, e := range canonicalEntries(fm) {
		writeEntry(&b, e)
	}
	b.WriteString(delimiter + "\n")
	b.WriteString(body)
	return []byte(b.String())
}

func canonicalEntries(fm *Frontmatter) []Entry {
	entries := fm.Entries()
	out := make([]Entry, 0, len(entries))
	known := make(map[string]bool, len(canonicalOrder))
	for _, key := range canonicalOrder {
		known[key] = true
		if v, ok := fm.Get(key); ok {
			out = append(out, Entry{Key: key, Value: v})
		}
	}
	for _, e := range entries {
		if !known[e.Key] {
			out = append(out, e)
		}
	}
	return out
}

func writeEntry(b *strings.Builder, e Entry) {
	key := formatScalar(e.Key)
	v := e.Value
	switch v.Kind() {
	case KindScalar:
		if v.IsNull() {
			b.WriteString(key + ":")
			if v.scalar != "" {
				b.WriteString(" " + v.scalar)
			}
			b.WriteString("\n")
			return
		}
		if v.plain {
			b.WriteString(key + ": " + v.scalar + "\n")
			return
		}
		b.WriteString(key + ": " + formatScalar(v.Scalar()) + "\n")
	case KindList:
		items := v.List()
		quoted := make([]string, len(items))
		for i, item := range items {
			quoted[i] = formatScalar(item)
		}
		b.WriteString(key + ": [" + strings.Join(quoted, ", ") + "]\n")
	case KindNode:
		n := v.Node()
		encoded := encodeNode(n)
		if inlineNode(n) && !strings.Contains(encoded, "\n") {
			b.WriteString(key + ": " + encoded + "\n")
			return
		}
		b.WriteString(key + ":\n")
		for _, line := range strings.Split(encoded, "\n") {
			b.WriteString("  " + line + "\n")
		}
	}
}

// inlineNode reports whether n may follow its key on the same line.
// Block collections never may, even when they encode to a single line.
func inlineNode(n *yaml.Node) bool {
	if n.Kind != yaml.MappingNode && n.Kind != yaml.SequenceNode {
		return true
	}
	return n.Style&yaml.FlowStyle != 0
}

// encodeNode renders a raw node without its trailing newline.
func encodeNode(n *yaml.Node) string {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(n); err != nil {
		return "null"
	}
	enc.Close()
	return strings.TrimRight(buf.String(), "\n")
}

// reservedWords are bare scalars YAML would read as something other than
// a string.
var reservedWords = map[string]bool{
	"true":  true,
	"false": true,
	"null":  true,
	"yes":   true,
	"no":    true,
	"~":     true,
}

// needsQuoting reports whether s must be quoted to read back as the
// same string.
func needsQuoting(s string) bool {
	if s == "" {
		return true
	}
	if reservedWords[strings.ToLower(s)] {
		return true
	}
	if strings.ContainsAny(s, ":#[]{},'\"\n\r\t") {
		return true
	}
	switch s[0] {
	case '@', '*', '&', '!', '|', '>', '%', '`', '?':
		return true
	case '-':
		if s == "-" || strings.HasPrefix(s, "- ") {
			return true
		}
	}
	return s != strings.TrimSpace(s)
}

func formatScalar(s string) string {
	if !needsQuoting(s) {
		return s
	}
	if strings.ContainsAny(s, "\n\r\t") {
		r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`)
		return `"` + r.Replace(s) + `"`
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
