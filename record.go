// FILE: lixenwraith/sectcfg/record.go
package sectcfg

import (
	"encoding"
	"errors"
	"fmt"
	"net"
	"net/url"
	"reflect"
	"strings"
	"time"
)

// LoaderKind selects the raw source backend of a record.
type LoaderKind int

const (
	// LoaderAuto picks a backend per file from its extension, then its content.
	LoaderAuto LoaderKind = iota
	LoaderINI
	LoaderYAML
	LoaderDict
	LoaderTOML
	LoaderJSON
	// LoaderCustom uses the RawLoader given with WithCustomLoader.
	LoaderCustom
)

func (k LoaderKind) String() string {
	switch k {
	case LoaderAuto:
		return "auto"
	case LoaderINI:
		return "ini"
	case LoaderYAML:
		return "yaml"
	case LoaderDict:
		return "dict"
	case LoaderTOML:
		return "toml"
	case LoaderJSON:
		return "json"
	case LoaderCustom:
		return "custom"
	}
	return fmt.Sprintf("LoaderKind(%d)", int(k))
}

// SectionName is a field type that receives the label of the section an
// instance was resolved from. Serializers use it as the section header.
type SectionName string

var (
	sectionNameType     = reflect.TypeOf(SectionName(""))
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

// struct types always treated as scalar values, never as records
var leafStructs = map[reflect.Type]bool{
	reflect.TypeOf(time.Time{}): true,
	reflect.TypeOf(url.URL{}):   true,
	reflect.TypeOf(net.IPNet{}): true,
	milliTimeType:               true,
}

// Optioner is implemented by record types that carry their own metadata.
type Optioner interface {
	RecordOptions() []Option
}

// memberKind describes how a group field holds its sub-record.
type memberKind int

const (
	memberValue memberKind = iota
	memberPointer
	memberSlice
	memberMap
)

// member is a group field whose type is a record.
type member struct {
	name  string
	key   string
	index []int
	kind  memberKind
	elem  reflect.Type
}

// Record describes how one Go struct type is populated from raw sections.
type Record struct {
	name       string
	typ        reflect.Type
	fields     []*Field
	byName     map[string]*Field
	files      []string
	sections   []string
	useRegex   bool
	list       int
	chain      bool
	allowEmpty bool
	evalEnv    bool
	envPrefix  string
	loader     LoaderKind
	custom     RawLoader
	group      bool
	members    []member
	sectionIdx []int

	err error
}

// Option configures a Record.
type Option func(*Record)

// WithName overrides the normalized record name.
func WithName(name string) Option {
	return func(r *Record) { r.name = name }
}

// WithFiles sets the source files.
func WithFiles(files ...string) Option {
	return func(r *Record) { r.files = append([]string(nil), files...) }
}

// WithSections sets literal section names.
func WithSections(sections ...string) Option {
	return func(r *Record) {
		r.sections = append([]string(nil), sections...)
		r.useRegex = false
	}
}

// WithSectionPattern sets regular expressions matched against section names.
func WithSectionPattern(patterns ...string) Option {
	return func(r *Record) {
		r.sections = append([]string(nil), patterns...)
		r.useRegex = true
	}
}

// AsList enables list mode. min is the element count produced when nothing
// matched and empty results are allowed; values below 1 mean 1.
func AsList(min int) Option {
	return func(r *Record) {
		if min < 1 {
			min = 1
		}
		r.list = min
	}
}

// WithChain merges every matched section into one instance.
func WithChain() Option {
	return func(r *Record) { r.chain = true }
}

// WithAllowEmpty yields default instances instead of failing when nothing matched.
func WithAllowEmpty() Option {
	return func(r *Record) { r.allowEmpty = true }
}

// WithEnv enables the environment overlay. Variables are looked up as
// prefix+key, then in upper case.
func WithEnv(prefix string) Option {
	return func(r *Record) {
		r.evalEnv = true
		r.envPrefix = prefix
	}
}

// WithLoader selects the raw source backend.
func WithLoader(kind LoaderKind) Option {
	return func(r *Record) { r.loader = kind }
}

// WithCustomLoader installs a caller-supplied backend.
func WithCustomLoader(l RawLoader) Option {
	return func(r *Record) {
		r.loader = LoaderCustom
		r.custom = l
	}
}

// WithDictSource reads from an in-memory section map instead of files.
func WithDictSource(data map[string]map[string]any) Option {
	return func(r *Record) {
		r.loader = LoaderDict
		r.custom = NewDictLoader(data)
	}
}

// AsGroup marks the record as a group: record-typed fields are resolved from
// their own sections instead of from a nested mapping.
func AsGroup() Option {
	return func(r *Record) { r.group = true }
}

// WithFieldValidator attaches a validator to the field with the given key.
// fn is adapted with AdaptValidator.
func WithFieldValidator(key string, fn any) Option {
	return func(r *Record) {
		f := r.fieldByKey(key)
		if f == nil {
			r.err = errors.Join(r.err, fmt.Errorf("validator for unknown field %q", key))
			return
		}
		v, err := AdaptValidator(fn)
		if err != nil {
			r.err = errors.Join(r.err, fmt.Errorf("field %q: %w", key, err))
			return
		}
		f.Validator = v
	}
}

// WithField replaces the derived spec of the struct field f.Name.
func WithField(f *Field) Option {
	return func(r *Record) {
		existing, ok := r.byName[f.Name]
		if !ok {
			r.err = errors.Join(r.err, fmt.Errorf("field %q: no such struct field in %s", f.Name, r.typ))
			return
		}
		if !f.Type.AssignableTo(existing.Type) && !(existing.Type.Kind() == reflect.Interface) {
			r.err = errors.Join(r.err, fmt.Errorf("field %q: type %s does not fit struct field of type %s", f.Name, f.Type, existing.Type))
			return
		}
		c := f.clone()
		c.index = existing.index
		c.Type = existing.Type
		for i, old := range r.fields {
			if old == existing {
				r.fields[i] = c
			}
		}
		r.byName[f.Name] = c
	}
}

// Define derives a record from T's struct tags, then applies T's own
// RecordOptions and finally opts.
func Define[T any](opts ...Option) (*Record, error) {
	return NewRecord(reflect.TypeOf((*T)(nil)).Elem(), opts...)
}

// DefineGroup is Define with AsGroup prepended.
func DefineGroup[T any](opts ...Option) (*Record, error) {
	return NewRecord(reflect.TypeOf((*T)(nil)).Elem(), append([]Option{AsGroup()}, opts...)...)
}

// NewRecord derives a record from a struct type.
func NewRecord(t reflect.Type, opts ...Option) (*Record, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil type", ErrNotRecord)
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if !isRecordType(t) {
		return nil, fmt.Errorf("%w: %s", ErrNotRecord, t)
	}

	r := &Record{
		name:   normalizeName(t),
		typ:    t,
		byName: make(map[string]*Field),
	}
	if err := r.deriveFields(); err != nil {
		return nil, err
	}

	var all []Option
	if o, ok := reflect.New(t).Interface().(Optioner); ok {
		all = append(all, o.RecordOptions()...)
	} else if o, ok := reflect.New(t).Elem().Interface().(Optioner); ok {
		all = append(all, o.RecordOptions()...)
	}
	all = append(all, opts...)
	for _, opt := range all {
		opt(r)
	}
	if r.err != nil {
		return nil, fmt.Errorf("record %s: %w", r.name, r.err)
	}
	if r.loader == LoaderCustom && r.custom == nil {
		return nil, fmt.Errorf("record %s: custom loader kind without a loader", r.name)
	}
	if r.group {
		r.collectMembers()
	}
	return r, nil
}

// deriveFields builds field specs from exported struct fields and their tags:
//
//	ini:"key,required,ignore"  alias:"a,b"  default:"literal"  validate:"rule"  ordinal:"name"
func (r *Record) deriveFields() error {
	var errs []error
	for i := 0; i < r.typ.NumField(); i++ {
		sf := r.typ.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag := sf.Tag.Get("ini")
		if tag == "-" {
			continue
		}
		if sf.Type == sectionNameType {
			r.sectionIdx = sf.Index
			continue
		}

		var opts []FieldOption
		parts := strings.Split(tag, ",")
		if parts[0] != "" {
			opts = append(opts, WithKey(parts[0]))
		}
		for _, flag := range parts[1:] {
			switch strings.TrimSpace(flag) {
			case "required":
				opts = append(opts, NoDefault())
			case "ignore":
				opts = append(opts, Ignored())
			case "":
			default:
				errs = append(errs, fmt.Errorf("field %s: unknown ini tag option %q", sf.Name, flag))
			}
		}
		if alias, ok := sf.Tag.Lookup("alias"); ok {
			opts = append(opts, WithAliases(splitList(alias)...))
		}
		if rule := sf.Tag.Get("validate"); rule != "" {
			opts = append(opts, WithRule(rule))
		}
		if sf.Type == ordinalType {
			name := sf.Tag.Get("ordinal")
			if name == "" {
				name = r.name
			}
			opts = append(opts, WithOrdinal(name))
		}
		if lit, ok := sf.Tag.Lookup("default"); ok {
			v, err := defaultBinder.convert(lit, sf.Type)
			if err != nil {
				errs = append(errs, &TypeCoercionError{Field: sf.Name, Type: sf.Type, RawType: "default tag", Err: err})
				continue
			}
			opts = append(opts, WithDefault(v.Interface()))
		}

		f, err := NewField(sf.Name, sf.Type, opts...)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		f.index = sf.Index
		r.fields = append(r.fields, f)
		r.byName[f.Name] = f
	}
	if len(errs) > 0 {
		return fmt.Errorf("record %s: %w", r.name, errors.Join(errs...))
	}
	return nil
}

// collectMembers finds the record-typed fields of a group.
func (r *Record) collectMembers() {
	r.members = r.members[:0]
	for _, f := range r.fields {
		m := member{name: f.Name, key: f.Key, index: f.index}
		t := f.Type
		switch {
		case isRecordType(t):
			m.kind, m.elem = memberValue, t
		case t.Kind() == reflect.Pointer && isRecordType(t.Elem()):
			m.kind, m.elem = memberPointer, t.Elem()
		case t.Kind() == reflect.Slice && isRecordType(t.Elem()):
			m.kind, m.elem = memberSlice, t.Elem()
		case t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Pointer && isRecordType(t.Elem().Elem()):
			m.kind, m.elem = memberSlice, t.Elem().Elem()
		case t.Kind() == reflect.Map && t.Key().Kind() == reflect.String && isRecordType(t.Elem()):
			m.kind, m.elem = memberMap, t.Elem()
		default:
			continue
		}
		r.members = append(r.members, m)
	}
}

// scalarFields are the fields of a group that are not sub-records.
func (r *Record) scalarFields() []*Field {
	if !r.group {
		return r.fields
	}
	isMember := make(map[string]bool, len(r.members))
	for _, m := range r.members {
		isMember[m.name] = true
	}
	var out []*Field
	for _, f := range r.fields {
		if !isMember[f.Name] {
			out = append(out, f)
		}
	}
	return out
}

func (r *Record) fieldByKey(key string) *Field {
	for _, f := range r.fields {
		if f.Key == key {
			return f
		}
	}
	return nil
}

// Name returns the normalized record name.
func (r *Record) Name() string { return r.name }

// Type returns the struct type.
func (r *Record) Type() reflect.Type { return r.typ }

// Fields returns copies of the field specs in declaration order.
func (r *Record) Fields() []Field {
	out := make([]Field, len(r.fields))
	for i, f := range r.fields {
		out[i] = *f.clone()
	}
	return out
}

// Field returns a copy of the spec with the given key.
func (r *Record) Field(key string) (Field, bool) {
	f := r.fieldByKey(key)
	if f == nil {
		return Field{}, false
	}
	return *f.clone(), true
}

// Files returns the configured source files.
func (r *Record) Files() []string { return append([]string(nil), r.files...) }

// Sections returns the configured section selectors.
func (r *Record) Sections() []string { return append([]string(nil), r.sections...) }

// UsesRegex reports whether sections are regular expressions.
func (r *Record) UsesRegex() bool { return r.useRegex }

// ListMin returns the list-mode minimum count, 0 when not in list mode.
func (r *Record) ListMin() int { return r.list }

// IsList reports list mode.
func (r *Record) IsList() bool { return r.list > 0 }

// IsChain reports chain mode.
func (r *Record) IsChain() bool { return r.chain }

// AllowsEmpty reports whether missing sections yield default instances.
func (r *Record) AllowsEmpty() bool { return r.allowEmpty }

// EvalEnv reports whether the environment overlay is enabled.
func (r *Record) EvalEnv() bool { return r.evalEnv }

// Loader returns the backend kind.
func (r *Record) Loader() LoaderKind { return r.loader }

// IsGroup reports whether the record composes sub-records.
func (r *Record) IsGroup() bool { return r.group }

// exact reports whether the record binds a single literal section.
func (r *Record) exact() bool {
	return len(r.sections) <= 1 && r.list == 0 && !r.useRegex
}

// header is the section name used when serializing an instance without a SectionName.
func (r *Record) header() string {
	if len(r.sections) > 0 && !r.useRegex {
		return r.sections[0]
	}
	return r.name
}

// sectionLabel reads the SectionName field of an instance, if any.
func (r *Record) sectionLabel(v reflect.Value) string {
	if r.sectionIdx == nil {
		return ""
	}
	return string(v.FieldByIndex(r.sectionIdx).Interface().(SectionName))
}

// normalizeName derives a record name from a Go type: S3Config -> s3.
func normalizeName(t reflect.Type) string {
	name := t.Name()
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	for _, suffix := range []string{"Config", "Settings"} {
		if trimmed := strings.TrimSuffix(name, suffix); trimmed != "" {
			name = trimmed
		}
	}
	if name == "" {
		return "record"
	}
	return toSnake(name)
}

// isRecordType reports whether t is a struct populated field by field.
func isRecordType(t reflect.Type) bool {
	if t.Kind() != reflect.Struct || leafStructs[t] {
		return false
	}
	return !reflect.PointerTo(t).Implements(textUnmarshalerType)
}

// splitList splits a comma-separated tag value, trimming blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
