// FILE: lixenwraith/sectcfg/engine.go
package sectcfg

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"
)

// Engine resolves records against raw sources. Registered records take
// precedence over specs derived from struct tags, including for nested and
// group member types. An Engine is safe for concurrent use; IndexAllocators
// passed to Resolve are not.
type Engine struct {
	mu          sync.RWMutex
	records     map[reflect.Type]*Record
	loaders     map[LoaderKind]RawLoader
	binder      *binder
	logger      *zap.Logger
	files       []string
	maxFileSize int64
	env         *envSource
}

// New creates an engine with default settings. Use NewBuilder for options.
func New() *Engine {
	env, _ := newEnvSource(nil)
	e := &Engine{
		records: make(map[reflect.Type]*Record),
		loaders: make(map[LoaderKind]RawLoader),
		logger:  zap.NewNop(),
		env:     env,
	}
	e.binder = &binder{
		converters: make(map[reflect.Type]Converter),
		hook:       decodeHook(),
		rules:      newRuleValidator(),
		logger:     e.logger,
		lookup:     e.registered,
	}
	return e
}

// ResolveOption adjusts a single Resolve call.
type ResolveOption func(*resolveSettings)

type resolveSettings struct {
	files       []string
	sections    []string
	sectionsSet bool
	overrides   map[string]any
	tree        *RawTree
	alloc       *IndexAllocator
}

// FromFiles reads the given files instead of the record's own.
func FromFiles(files ...string) ResolveOption {
	return func(s *resolveSettings) { s.files = append([]string(nil), files...) }
}

// InSections replaces the record's section selectors for this call.
func InSections(sections ...string) ResolveOption {
	return func(s *resolveSettings) {
		s.sections = append([]string(nil), sections...)
		s.sectionsSet = true
	}
}

// WithOverrides sets raw values that win over the source and the environment.
// Keys are field keys of the resolved record.
func WithOverrides(values map[string]any) ResolveOption {
	return func(s *resolveSettings) { s.overrides = values }
}

// WithRawTree resolves against a pre-built tree instead of loading files.
func WithRawTree(tree *RawTree) ResolveOption {
	return func(s *resolveSettings) { s.tree = tree }
}

// WithIndexAllocator draws ordinals from a caller-owned allocator.
func WithIndexAllocator(a *IndexAllocator) ResolveOption {
	return func(s *resolveSettings) { s.alloc = a }
}

// Resolve loads the record's sources and builds its instances.
// Groups resolve to a single instance holding every member.
func (e *Engine) Resolve(rec *Record, opts ...ResolveOption) (*Resolution, error) {
	if rec == nil {
		return nil, errors.New("cannot resolve nil record")
	}
	var s resolveSettings
	for _, opt := range opts {
		opt(&s)
	}
	if s.sectionsSet {
		rec = rec.withSections(s.sections)
	}
	files := e.filesFor(rec, s.files)
	alloc := s.alloc
	if alloc == nil {
		alloc = NewIndexAllocator()
	}

	if rec.group {
		alloc.Reset()
		v, err := e.compose(rec, files, s.tree, alloc, s.overrides)
		if err != nil {
			return nil, err
		}
		return &Resolution{
			Record:    rec,
			Mode:      ModeSingle,
			Label:     rec.name,
			Instances: []Instance{{Label: rec.name, Value: v.Interface()}},
		}, nil
	}

	tree := s.tree
	if tree == nil {
		var err error
		if tree, err = e.load(rec, files); err != nil {
			return nil, err
		}
	}
	return e.resolveTree(rec, tree, files, alloc, s.overrides)
}

// MustResolve is like Resolve but panics on error.
func (e *Engine) MustResolve(rec *Record, opts ...ResolveOption) *Resolution {
	res, err := e.Resolve(rec, opts...)
	if err != nil {
		panic(fmt.Sprintf("resolve failed: %v", err))
	}
	return res
}

// ResolveAs resolves the record for T and returns its first instance.
func ResolveAs[T any](e *Engine, opts ...ResolveOption) (*T, error) {
	rec, err := e.recordFor(reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		return nil, err
	}
	res, err := e.Resolve(rec, opts...)
	if err != nil {
		return nil, err
	}
	return As[T](res)
}

// LoadTree reads the sources of rec without resolving sections.
func (e *Engine) LoadTree(rec *Record, files ...string) (*RawTree, error) {
	return e.load(rec, e.filesFor(rec, files))
}

func (e *Engine) resolveTree(rec *Record, tree *RawTree, files []string, alloc *IndexAllocator, overrides map[string]any) (*Resolution, error) {
	mode, label, raws, err := resolveSections(rec, tree, files)
	if err != nil {
		return nil, err
	}

	res := &Resolution{Record: rec, Mode: mode, Label: label, Instances: make([]Instance, 0, len(raws))}
	for _, ri := range raws {
		ctx := &bindContext{section: ri.label, files: files, alloc: alloc, overrides: overrides}
		if rec.evalEnv {
			ctx.env = e.env
		}
		v, err := e.binder.bind(rec, ri.label, ri.values, ctx)
		if err != nil {
			return nil, err
		}
		res.Instances = append(res.Instances, Instance{Label: ri.label, Value: v.Interface()})
	}
	e.logger.Debug("resolved record",
		zap.String("record", rec.name),
		zap.Stringer("mode", mode),
		zap.Int("instances", len(res.Instances)))
	return res, nil
}

func (e *Engine) filesFor(rec *Record, override []string) []string {
	switch {
	case override != nil:
		return override
	case len(rec.files) > 0:
		return rec.files
	default:
		return e.files
	}
}

func (e *Engine) load(rec *Record, files []string) (*RawTree, error) {
	loader, err := e.loaderFor(rec)
	if err != nil {
		return nil, err
	}
	sel := make(Selection, 0, len(files))
	for _, f := range files {
		sel = append(sel, Selector{Label: f, Paths: []string{f}})
	}
	tree, err := loader.Load(LoadRequest{Files: sel, EvalEnv: rec.evalEnv})
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", rec.name, err)
	}
	return tree, nil
}

func (e *Engine) loaderFor(rec *Record) (RawLoader, error) {
	switch rec.loader {
	case LoaderDict, LoaderCustom:
		if rec.custom == nil {
			return nil, fmt.Errorf("record %s: %s loader has no source", rec.name, rec.loader)
		}
		return rec.custom, nil
	}

	e.mu.RLock()
	l, ok := e.loaders[rec.loader]
	e.mu.RUnlock()
	if ok {
		return l, nil
	}

	opts := LoaderOptions{Logger: e.logger, MaxFileSize: e.maxFileSize, LookupEnv: e.env.lookup}
	switch rec.loader {
	case LoaderINI:
		return NewINILoader(opts), nil
	case LoaderYAML:
		return NewYAMLLoader(opts), nil
	case LoaderTOML:
		return NewTOMLLoader(opts), nil
	case LoaderJSON:
		return NewJSONLoader(opts), nil
	default:
		return NewAutoLoader(opts), nil
	}
}

// withSections returns a copy of r bound to other literal sections.
func (r *Record) withSections(sections []string) *Record {
	c := *r
	c.sections = sections
	c.useRegex = false
	return &c
}
