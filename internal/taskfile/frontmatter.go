package taskfile

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValueKind classifies a frontmatter value.
type ValueKind int

const (
	// KindScalar is a single scalar, kept as the raw text from the file.
	KindScalar ValueKind = iota
	// KindList is a sequence of scalars.
	KindList
	// KindNode is anything else (nested mappings, mixed sequences). The
	// decoded node is kept and re-encoded as-is.
	KindNode
)

// Value is one frontmatter value. Scalars are never resolved to
// booleans, numbers or timestamps; "2024-01-01" stays a string.
type Value struct {
	kind   ValueKind
	scalar string
	null   bool
	// plain marks an unquoted scalar read from a file. It is written back
	// exactly as it was read, so "flag: true" stays a boolean for whoever
	// else reads the file.
	plain bool
	list  []string
	node  *yaml.Node
}

// ScalarValue returns a scalar value.
func ScalarValue(s string) Value { return Value{kind: KindScalar, scalar: s} }

// NullValue returns an explicitly empty scalar. raw is the text used in
// the file ("", "~" or "null") and is written back unchanged.
func NullValue(raw string) Value { return Value{kind: KindScalar, null: true, scalar: raw} }

// ListValue returns a list value. A nil slice is stored as an empty list.
func ListValue(items []string) Value {
	return Value{kind: KindList, list: append([]string{}, items...)}
}

// NodeValue wraps a decoded YAML node.
func NodeValue(n *yaml.Node) Value { return Value{kind: KindNode, node: n} }

// Kind reports the value's kind.
func (v Value) Kind() ValueKind { return v.kind }

// Scalar returns the scalar text, or "" for nulls and non-scalars.
func (v Value) Scalar() string {
	if v.null {
		return ""
	}
	return v.scalar
}

// IsNull reports whether the value was written without content.
func (v Value) IsNull() bool { return v.kind == KindScalar && v.null }

// List returns a copy of the list items, or nil for non-lists.
func (v Value) List() []string {
	if v.kind != KindList {
		return nil
	}
	return append([]string{}, v.list...)
}

// Node returns the raw node for KindNode values.
func (v Value) Node() *yaml.Node { return v.node }

// Entry is a key with its value, in file order.
type Entry struct {
	Key   string
	Value Value
}

// Frontmatter is the typed intermediate representation of a task file's
// metadata block. Known keys are read through typed accessors; every other
// key is carried along untouched so it survives a rewrite.
type Frontmatter struct {
	entries []Entry
}

// NewFrontmatter returns an empty Frontmatter.
func NewFrontmatter() *Frontmatter {
	return &Frontmatter{}
}

// decodeFrontmatter decodes the text between the delimiter lines.
func decodeFrontmatter(text string) (*Frontmatter, error) {
	fm := NewFrontmatter()

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return fm, nil
	}

	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		return fm, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("frontmatter is not a mapping")
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i].Value
		fm.Set(key, valueFromNode(root.Content[i+1]))
	}
	return fm, nil
}

func valueFromNode(n *yaml.Node) Value {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" && n.Style == 0 {
			return NullValue(n.Value)
		}
		return Value{kind: KindScalar, scalar: n.Value, plain: n.Style == 0 && !strings.ContainsAny(n.Value, "\n\r")}
	case yaml.SequenceNode:
		items := make([]string, 0, len(n.Content))
		for _, child := range n.Content {
			if child.Kind != yaml.ScalarNode {
				return NodeValue(n)
			}
			items = append(items, child.Value)
		}
		return ListValue(items)
	}
	return NodeValue(n)
}

// Len returns the number of keys.
func (f *Frontmatter) Len() int {
	if f == nil {
		return 0
	}
	return len(f.entries)
}

// Entries returns the entries in file order.
func (f *Frontmatter) Entries() []Entry {
	if f == nil {
		return nil
	}
	return append([]Entry(nil), f.entries...)
}

// Keys returns the keys in file order.
func (f *Frontmatter) Keys() []string {
	keys := make([]string, 0, f.Len())
	for _, e := range f.Entries() {
		keys = append(keys, e.Key)
	}
	return keys
}

func (f *Frontmatter) index(key string) int {
	if f == nil {
		return -1
	}
	for i, e := range f.entries {
		if e.Key == key {
			return i
		}
	}
	return -1
}

// Has reports whether key is present.
func (f *Frontmatter) Has(key string) bool {
	return f.index(key) >= 0
}

// Get returns the value for key.
func (f *Frontmatter) Get(key string) (Value, bool) {
	if i := f.index(key); i >= 0 {
		return f.entries[i].Value, true
	}
	return Value{}, false
}

// Set replaces the value for key in place, or appends the key.
func (f *Frontmatter) Set(key string, v Value) {
	if i := f.index(key); i >= 0 {
		f.entries[i].Value = v
		return
	}
	f.entries = append(f.entries, Entry{Key: key, Value: v})
}

// SetString sets a scalar value.
func (f *Frontmatter) SetString(key, s string) { f.Set(key, ScalarValue(s)) }

// SetStrings sets a list value.
func (f *Frontmatter) SetStrings(key string, items []string) { f.Set(key, ListValue(items)) }

// SetFloat sets a numeric scalar using the shortest exact representation.
func (f *Frontmatter) SetFloat(key string, v float64) {
	f.Set(key, ScalarValue(strconv.FormatFloat(v, 'f', -1, 64)))
}

// Delete removes key if present.
func (f *Frontmatter) Delete(key string) {
	if i := f.index(key); i >= 0 {
		f.entries = append(f.entries[:i], f.entries[i+1:]...)
	}
}

// String returns the scalar for key, or "" if it is absent or not a scalar.
func (f *Frontmatter) String(key string) string {
	v, ok := f.Get(key)
	if !ok || v.kind != KindScalar {
		return ""
	}
	return v.Scalar()
}

// FirstString returns the first non-empty scalar among keys.
func (f *Frontmatter) FirstString(keys ...string) string {
	for _, k := range keys {
		if s := strings.TrimSpace(f.String(k)); s != "" {
			return s
		}
	}
	return ""
}

// Strings returns key as a trimmed, non-empty string list. A single
// scalar is accepted as a one-element list.
func (f *Frontmatter) Strings(key string) []string {
	v, ok := f.Get(key)
	if !ok {
		return nil
	}
	var raw []string
	switch v.kind {
	case KindScalar:
		raw = []string{v.Scalar()}
	case KindList:
		raw = v.list
	default:
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// FirstStrings returns the list for the first present key among keys.
func (f *Frontmatter) FirstStrings(keys ...string) []string {
	for _, k := range keys {
		if f.Has(k) {
			return f.Strings(k)
		}
	}
	return nil
}

// Float parses key as a finite number.
func (f *Frontmatter) Float(key string) (float64, bool) {
	s := strings.TrimSpace(f.String(key))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// FirstKey returns the first key among keys that is present, or fallback.
func (f *Frontmatter) FirstKey(fallback string, keys ...string) string {
	for _, k := range keys {
		if f.Has(k) {
			return k
		}
	}
	return fallback
}

// Clone returns a copy that can be modified independently. Raw nodes
// are shared; they are never mutated.
func (f *Frontmatter) Clone() *Frontmatter {
	c := NewFrontmatter()
	for _, e := range f.Entries() {
		v := e.Value
		v.list = append([]string(nil), e.Value.list...)
		c.entries = append(c.entries, Entry{Key: e.Key, Value: v})
	}
	return c
}
