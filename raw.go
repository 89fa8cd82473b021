// FILE: lixenwraith/sectcfg/raw.go
package sectcfg

import (
	"fmt"
	"sort"
	"strings"
)

// Section is an ordered set of raw key/value pairs. The empty name denotes the
// unscoped section (INI DEFAULT, top-level YAML scalars).
type Section struct {
	Name   string
	keys   []string
	values map[string]any
}

// NewSection returns an empty section.
func NewSection(name string) *Section {
	return &Section{Name: name, values: make(map[string]any)}
}

// SectionOf builds a section from a map, with keys in lexical order.
func SectionOf(name string, values map[string]any) *Section {
	s := NewSection(name)
	for _, k := range sortedKeys(values) {
		s.Set(k, values[k])
	}
	return s
}

// Set stores a value, keeping the position of an existing key.
func (s *Section) Set(key string, value any) {
	if _, exists := s.values[key]; !exists {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

// Get returns the raw value for key.
func (s *Section) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Delete removes key.
func (s *Section) Delete(key string) {
	if _, exists := s.values[key]; !exists {
		return
	}
	delete(s.values, key)
	for i, k := range s.keys {
		if k == key {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (s *Section) Keys() []string {
	return append([]string(nil), s.keys...)
}

// Len returns the number of keys.
func (s *Section) Len() int { return len(s.keys) }

// Map returns a shallow copy of the values.
func (s *Section) Map() map[string]any {
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Clone returns a deep copy.
func (s *Section) Clone() *Section {
	c := NewSection(s.Name)
	for _, k := range s.keys {
		c.Set(k, cloneValue(s.values[k]))
	}
	return c
}

// Merge overlays o onto s; values in o win.
func (s *Section) Merge(o *Section) {
	for _, k := range o.keys {
		s.Set(k, cloneValue(o.values[k]))
	}
}

// FileTree holds the sections read under one file label.
type FileTree struct {
	Label    string
	sections []*Section
	index    map[string]int
}

func newFileTree(label string) *FileTree {
	return &FileTree{Label: label, index: make(map[string]int)}
}

// Add merges sec into the section of the same name, or appends it.
func (f *FileTree) Add(sec *Section) {
	if i, exists := f.index[sec.Name]; exists {
		f.sections[i].Merge(sec)
		return
	}
	f.index[sec.Name] = len(f.sections)
	f.sections = append(f.sections, sec.Clone())
}

// Section looks up a section by name.
func (f *FileTree) Section(name string) (*Section, bool) {
	i, ok := f.index[name]
	if !ok {
		return nil, false
	}
	return f.sections[i], true
}

// Sections returns the sections in source order.
func (f *FileTree) Sections() []*Section {
	return append([]*Section(nil), f.sections...)
}

// RawTree is the loader output: file label -> section -> key -> raw value, all ordered.
type RawTree struct {
	files []*FileTree
	index map[string]int
}

// NewRawTree returns an empty tree.
func NewRawTree() *RawTree {
	return &RawTree{index: make(map[string]int)}
}

// TreeOf builds a single-file tree from nested maps, sections in lexical order.
// The file label is empty (unscoped).
func TreeOf(sections map[string]map[string]any) *RawTree {
	t := NewRawTree()
	f := t.File("")
	for _, name := range sortedKeys(sections) {
		f.Add(SectionOf(name, sections[name]))
	}
	return t
}

// File returns the file tree for label, creating it if needed.
func (t *RawTree) File(label string) *FileTree {
	if i, exists := t.index[label]; exists {
		return t.files[i]
	}
	f := newFileTree(label)
	t.index[label] = len(t.files)
	t.files = append(t.files, f)
	return f
}

// Lookup returns the file tree for label without creating it.
func (t *RawTree) Lookup(label string) (*FileTree, bool) {
	i, ok := t.index[label]
	if !ok {
		return nil, false
	}
	return t.files[i], true
}

// Files returns the file trees in load order.
func (t *RawTree) Files() []*FileTree {
	return append([]*FileTree(nil), t.files...)
}

// Empty reports whether no file holds any section.
func (t *RawTree) Empty() bool {
	for _, f := range t.files {
		if len(f.sections) > 0 {
			return false
		}
	}
	return true
}

// Map exports the tree as nested maps.
func (t *RawTree) Map() map[string]map[string]map[string]any {
	out := make(map[string]map[string]map[string]any, len(t.files))
	for _, f := range t.files {
		secs := make(map[string]map[string]any, len(f.sections))
		for _, s := range f.sections {
			secs[s.Name] = s.Map()
		}
		out[f.Label] = secs
	}
	return out
}

// String renders the tree one "file:section.key = value" line at a time.
func (t *RawTree) String() string {
	var b strings.Builder
	for _, f := range t.files {
		for _, s := range f.sections {
			flat := flattenMap(map[string]any{s.Name: s.Map()}, "")
			paths := sortedKeys(flat)
			for _, p := range paths {
				if f.Label != "" {
					fmt.Fprintf(&b, "%s:", f.Label)
				}
				fmt.Fprintf(&b, "%s = %v\n", p, flat[p])
			}
		}
	}
	return b.String()
}

// Selector maps an output label to one or more source names.
type Selector struct {
	Label string
	Paths []string
}

// Selection is a normalized files/sections/keys argument.
type Selection []Selector

// Select normalizes a selection argument. Accepted shapes: string, []string,
// map[string]string, map[string][]string, map[string]any with string or []string
// values, and Selection itself. Bare strings and lists label themselves; map
// labels are emitted in lexical order. The empty label merges into the top level.
func Select(v any) (Selection, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case Selection:
		return x, nil
	case string:
		return Selection{{Label: x, Paths: []string{x}}}, nil
	case []string:
		sel := make(Selection, 0, len(x))
		for _, s := range x {
			sel = append(sel, Selector{Label: s, Paths: []string{s}})
		}
		return sel, nil
	case map[string]string:
		sel := make(Selection, 0, len(x))
		for _, label := range sortedKeys(x) {
			sel = append(sel, Selector{Label: label, Paths: []string{x[label]}})
		}
		return sel, nil
	case map[string][]string:
		sel := make(Selection, 0, len(x))
		for _, label := range sortedKeys(x) {
			sel = append(sel, Selector{Label: label, Paths: append([]string(nil), x[label]...)})
		}
		return sel, nil
	case map[string]any:
		sel := make(Selection, 0, len(x))
		for _, label := range sortedKeys(x) {
			switch p := x[label].(type) {
			case string:
				sel = append(sel, Selector{Label: label, Paths: []string{p}})
			case []string:
				sel = append(sel, Selector{Label: label, Paths: append([]string(nil), p...)})
			case []any:
				paths := make([]string, 0, len(p))
				for _, item := range p {
					s, ok := item.(string)
					if !ok {
						return nil, &UnsupportedSourceTypeError{Arg: "selection " + label, Type: fmt.Sprintf("%T", item)}
					}
					paths = append(paths, s)
				}
				sel = append(sel, Selector{Label: label, Paths: paths})
			default:
				return nil, &UnsupportedSourceTypeError{Arg: "selection " + label, Type: fmt.Sprintf("%T", p)}
			}
		}
		return sel, nil
	}
	return nil, &UnsupportedSourceTypeError{Arg: "selection", Type: fmt.Sprintf("%T", v)}
}

// MustSelect is Select that panics on unsupported shapes. Intended for literals.
func MustSelect(v any) Selection {
	sel, err := Select(v)
	if err != nil {
		panic(err)
	}
	return sel
}

// Labels returns the output labels in order.
func (s Selection) Labels() []string {
	labels := make([]string, len(s))
	for i, sel := range s {
		labels[i] = sel.Label
	}
	return labels
}

// sortSections orders sections by name; used by backends without source order.
func sortSections(secs []*Section) {
	sort.SliceStable(secs, func(i, j int) bool { return secs[i].Name < secs[j].Name })
}
