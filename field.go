// FILE: lixenwraith/sectcfg/field.go
package sectcfg

import (
	"fmt"
	"reflect"
)

// Field describes one attribute of a record: how it is found in raw data, what
// it defaults to, and how it is checked.
type Field struct {
	// Name is the Go struct field name the value is stored in.
	Name string
	// Key is the canonical raw key, also used when serializing.
	Key string
	// Type is the declared Go type.
	Type reflect.Type
	// Aliases are alternate raw keys. When several are present the last one wins.
	Aliases []string
	// Validator runs on the raw value before coercion.
	Validator Validator
	// Required marks a field that must be supplied by the source.
	Required bool
	// Ignore excludes the field from serialization and equality.
	Ignore bool
	// Rule is a go-playground/validator tag applied after coercion.
	Rule string
	// Union lists the arms tried for interface-typed fields: reflect.Type arms are
	// converted to, other values are compared by equality, and a nil arm admits nil.
	Union []any
	// Ordinal names the counter used for Ordinal fields.
	Ordinal string

	defaultValue any
	defaultFunc  func() any
	hasDefault   bool
	noDefault    bool
	index        []int
}

// FieldOption configures a Field built by NewField.
type FieldOption func(*Field)

// WithKey sets the canonical raw key.
func WithKey(key string) FieldOption {
	return func(f *Field) { f.Key = key }
}

// WithDefault sets a default value, coerced to the field type when used.
func WithDefault(v any) FieldOption {
	return func(f *Field) {
		f.defaultValue = v
		f.hasDefault = true
	}
}

// WithDefaultFunc sets a factory called for a fresh default on every use.
func WithDefaultFunc(fn func() any) FieldOption {
	return func(f *Field) { f.defaultFunc = fn }
}

// WithAliases sets the alternate raw keys.
func WithAliases(aliases ...string) FieldOption {
	return func(f *Field) { f.Aliases = append([]string(nil), aliases...) }
}

// WithValidator attaches a validator.
func WithValidator(v Validator) FieldOption {
	return func(f *Field) { f.Validator = v }
}

// WithRule attaches a go-playground/validator rule such as "min=1,max=65535".
// Rules are skipped for nil pointer fields unless they name a required tag.
func WithRule(rule string) FieldOption {
	return func(f *Field) { f.Rule = rule }
}

// WithUnion declares union arms for an interface-typed field.
func WithUnion(arms ...any) FieldOption {
	return func(f *Field) { f.Union = append([]any(nil), arms...) }
}

// WithOrdinal names the counter an Ordinal field draws from.
func WithOrdinal(name string) FieldOption {
	return func(f *Field) { f.Ordinal = name }
}

// NoDefault marks the field as required unless a default is also given.
func NoDefault() FieldOption {
	return func(f *Field) { f.noDefault = true }
}

// Required is NoDefault under the name used by struct tags.
func Required() FieldOption { return NoDefault() }

// Ignored excludes the field from serialization and equality.
func Ignored() FieldOption {
	return func(f *Field) { f.Ignore = true }
}

// NewField builds a field spec. The key defaults to the snake-cased name.
func NewField(name string, typ reflect.Type, opts ...FieldOption) (*Field, error) {
	if name == "" {
		return nil, fmt.Errorf("field name cannot be empty")
	}
	if typ == nil {
		return nil, fmt.Errorf("field %q: type cannot be nil", name)
	}

	f := &Field{Name: name, Key: toSnake(name), Type: typ}
	for _, opt := range opts {
		opt(f)
	}

	if f.hasDefault && f.defaultFunc != nil {
		return nil, &ConflictingDefaultsError{Field: f.Key}
	}
	f.Required = f.noDefault && !f.hasDefault && f.defaultFunc == nil

	if len(f.Union) > 0 && typ.Kind() != reflect.Interface {
		return nil, fmt.Errorf("field %q: union arms require an interface type, got %s", name, typ)
	}
	for _, alias := range f.Aliases {
		if alias == "" {
			return nil, fmt.Errorf("field %q: empty alias", name)
		}
	}
	return f, nil
}

// HasDefault reports whether the field carries a default value or factory.
func (f *Field) HasDefault() bool {
	return f.hasDefault || f.defaultFunc != nil
}

// DefaultValue returns the default, calling the factory if one is set.
// Slice, map and pointer defaults are deep-copied so instances never share them.
func (f *Field) DefaultValue() (any, bool) {
	if f.defaultFunc != nil {
		return f.defaultFunc(), true
	}
	if !f.hasDefault || f.defaultValue == nil {
		return f.defaultValue, f.hasDefault
	}
	return copyValue(reflect.ValueOf(f.defaultValue)).Interface(), true
}

// lookupKeys is the ordered list scanned for the raw value. The canonical key
// comes first so that any present alias overrides it.
func (f *Field) lookupKeys() []string {
	if len(f.Aliases) == 0 {
		return []string{f.Key}
	}
	keys := make([]string, 0, len(f.Aliases)+1)
	seenKey := false
	for _, a := range f.Aliases {
		if a == f.Key {
			seenKey = true
		}
	}
	if !seenKey {
		keys = append(keys, f.Key)
	}
	return append(keys, f.Aliases...)
}

func (f *Field) clone() *Field {
	c := *f
	c.Aliases = append([]string(nil), f.Aliases...)
	c.Union = append([]any(nil), f.Union...)
	c.index = append([]int(nil), f.index...)
	return &c
}

// pickAlias scans aliases in order and keeps the last present value. A value is
// present when its key exists and it is neither nil nor the empty string.
// Both the loader projection and the binder use this rule.
func pickAlias(values map[string]any, aliases []string) (any, bool) {
	var hit any
	found := false
	for _, alias := range aliases {
		v, ok := values[alias]
		if !ok || isEmptyRaw(v) {
			continue
		}
		hit, found = v, true
	}
	return hit, found
}

func isEmptyRaw(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}
