// FILE: lixenwraith/sectcfg/resolve.go
package sectcfg

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
)

// Mode tells how a resolution maps sections to instances.
type Mode int

const (
	// ModeSingle binds one literal section.
	ModeSingle Mode = iota
	// ModeChain merges every matched section into one instance.
	ModeChain
	// ModeNamed produces one instance per matched section, keyed by label.
	ModeNamed
	// ModeList produces an ordered list of instances.
	ModeList
)

func (m Mode) String() string {
	switch m {
	case ModeSingle:
		return "single"
	case ModeChain:
		return "chain"
	case ModeNamed:
		return "named"
	case ModeList:
		return "list"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Instance is one resolved record value. Value is a pointer to the record struct.
type Instance struct {
	Label string
	Value any
}

// Resolution is the outcome of resolving one record.
type Resolution struct {
	Record *Record
	Mode   Mode
	// Label is the normalized record name for chain, list and defaulted
	// results, and the section name for single results.
	Label     string
	Instances []Instance
}

// One returns the first instance value, or nil.
func (r *Resolution) One() any {
	if len(r.Instances) == 0 {
		return nil
	}
	return r.Instances[0].Value
}

// List returns the instance values in order.
func (r *Resolution) List() []any {
	out := make([]any, len(r.Instances))
	for i, inst := range r.Instances {
		out[i] = inst.Value
	}
	return out
}

// Named returns the instance values keyed by label. Later duplicates win.
func (r *Resolution) Named() map[string]any {
	out := make(map[string]any, len(r.Instances))
	for _, inst := range r.Instances {
		out[inst.Label] = inst.Value
	}
	return out
}

// As returns the first instance as *T.
func As[T any](r *Resolution) (*T, error) {
	if len(r.Instances) == 0 {
		return nil, fmt.Errorf("record %s: no instance resolved", r.Record.Name())
	}
	v, ok := r.Instances[0].Value.(*T)
	if !ok {
		return nil, fmt.Errorf("record %s: instance is %T, not %s", r.Record.Name(), r.Instances[0].Value, reflect.TypeOf((*T)(nil)))
	}
	return v, nil
}

// AsSlice returns every instance as *T, in order.
func AsSlice[T any](r *Resolution) ([]*T, error) {
	out := make([]*T, 0, len(r.Instances))
	for _, inst := range r.Instances {
		v, ok := inst.Value.(*T)
		if !ok {
			return nil, fmt.Errorf("record %s: instance %q is %T, not %s", r.Record.Name(), inst.Label, inst.Value, reflect.TypeOf((*T)(nil)))
		}
		out = append(out, v)
	}
	return out, nil
}

// AsNamed returns every instance as *T, keyed by label.
func AsNamed[T any](r *Resolution) (map[string]*T, error) {
	out := make(map[string]*T, len(r.Instances))
	for _, inst := range r.Instances {
		v, ok := inst.Value.(*T)
		if !ok {
			return nil, fmt.Errorf("record %s: instance %q is %T, not %s", r.Record.Name(), inst.Label, inst.Value, reflect.TypeOf((*T)(nil)))
		}
		out[inst.Label] = v
	}
	return out, nil
}

// candidate is a section of the raw tree, label stripped, merged across files.
type candidate struct {
	label  string
	values map[string]any
}

// rawInstance is a section chosen for binding, before coercion.
type rawInstance struct {
	label  string
	values map[string]any
}

// stripLabel drops a compound "<file>:" prefix from a section name.
func stripLabel(name string) string {
	if i := strings.LastIndexByte(name, ':'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// candidates walks files then sections in tree order. Equal labels merge:
// the later file wins per key and the first position is kept.
func candidates(tree *RawTree) []*candidate {
	var out []*candidate
	index := make(map[string]*candidate)
	for _, ft := range tree.Files() {
		for _, s := range ft.Sections() {
			label := stripLabel(s.Name)
			if c, seen := index[label]; seen {
				for _, k := range s.Keys() {
					v, _ := s.Get(k)
					c.values[k] = cloneValue(v)
				}
				continue
			}
			c := &candidate{label: label, values: make(map[string]any, s.Len())}
			for _, k := range s.Keys() {
				v, _ := s.Get(k)
				c.values[k] = cloneValue(v)
			}
			index[label] = c
			out = append(out, c)
		}
	}
	return out
}

// sectionPattern builds the anchored alternation matched against labels.
func sectionPattern(rec *Record) (*regexp.Regexp, error) {
	parts := rec.sections
	if len(parts) == 0 {
		parts = []string{rec.name}
	}
	alts := make([]string, len(parts))
	for i, p := range parts {
		if rec.useRegex {
			alts[i] = p
		} else {
			alts[i] = regexp.QuoteMeta(p)
		}
	}
	re, err := regexp.Compile("^(?:" + strings.Join(alts, "|") + ")$")
	if err != nil {
		return nil, fmt.Errorf("record %s: invalid section pattern: %w", rec.name, err)
	}
	return re, nil
}

// resolveSections decides which sections of tree feed rec.
func resolveSections(rec *Record, tree *RawTree, files []string) (Mode, string, []rawInstance, error) {
	cands := candidates(tree)
	notFound := func(sections []string) error {
		return &SectionNotFoundError{Record: rec.name, Sections: sections, Files: files}
	}

	if rec.exact() {
		name := rec.name
		if len(rec.sections) == 1 {
			name = rec.sections[0]
		}
		for _, c := range cands {
			if c.label == name {
				return ModeSingle, name, []rawInstance{{label: name, values: c.values}}, nil
			}
		}
		if s := dottedSection(name, func(n string) (map[string]any, bool) {
			for _, c := range cands {
				if c.label == n {
					return c.values, true
				}
			}
			return nil, false
		}); s != nil {
			return ModeSingle, name, []rawInstance{{label: name, values: s.Map()}}, nil
		}
		if rec.allowEmpty {
			return ModeSingle, name, []rawInstance{{label: name, values: map[string]any{}}}, nil
		}
		return ModeSingle, name, nil, notFound([]string{name})
	}

	re, err := sectionPattern(rec)
	if err != nil {
		return 0, "", nil, err
	}
	var matched []*candidate
	for _, c := range cands {
		if c.label != "" && re.MatchString(c.label) {
			matched = append(matched, c)
		}
	}

	selectors := rec.sections
	if len(selectors) == 0 {
		selectors = []string{rec.name}
	}

	switch {
	case rec.chain:
		if len(matched) == 0 {
			if !rec.allowEmpty {
				return ModeChain, rec.name, nil, notFound(selectors)
			}
			return ModeChain, rec.name, []rawInstance{{label: rec.name, values: map[string]any{}}}, nil
		}
		merged := make(map[string]any)
		for _, c := range matched {
			for _, k := range sortedKeys(c.values) {
				if existing, exists := merged[k]; exists {
					merged[k] = chainValue(existing, c.values[k])
				} else {
					merged[k] = cloneValue(c.values[k])
				}
			}
		}
		return ModeChain, rec.name, []rawInstance{{label: rec.name, values: merged}}, nil

	case rec.list > 0:
		if len(matched) == 0 {
			if !rec.allowEmpty {
				return ModeList, rec.name, nil, notFound(selectors)
			}
			out := make([]rawInstance, rec.list)
			for i := range out {
				out[i] = rawInstance{label: rec.name, values: map[string]any{}}
			}
			return ModeList, rec.name, out, nil
		}
		out := make([]rawInstance, len(matched))
		for i, c := range matched {
			out[i] = rawInstance{label: c.label, values: c.values}
		}
		return ModeList, rec.name, out, nil

	default:
		if len(matched) == 0 {
			if !rec.allowEmpty {
				return ModeNamed, rec.name, nil, notFound(selectors)
			}
			return ModeNamed, rec.name, []rawInstance{{label: rec.name, values: map[string]any{}}}, nil
		}
		out := make([]rawInstance, len(matched))
		for i, c := range matched {
			out[i] = rawInstance{label: c.label, values: c.values}
		}
		return ModeNamed, rec.name, out, nil
	}
}
