// File: lixenwraith/sectcfg/builder.go
package sectcfg

import (
	"errors"
	"fmt"
	"os"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

// Builder provides a fluent interface for building engines
type Builder struct {
	logger      *zap.Logger
	files       []string
	args        []string
	dotenv      []string
	lookupEnv   func(string) (string, bool)
	maxFileSize int64
	converters  map[reflect.Type]Converter
	hooks       []mapstructure.DecodeHookFunc
	rules       map[string]validator.Func
	loaders     map[LoaderKind]RawLoader
	records     []*Record
	err         error
}

// NewBuilder creates a new engine builder
func NewBuilder() *Builder {
	return &Builder{
		args:       os.Args[1:],
		converters: make(map[reflect.Type]Converter),
		rules:      make(map[string]validator.Func),
		loaders:    make(map[LoaderKind]RawLoader),
	}
}

// WithLogger sets the diagnostics logger. The default discards everything.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithFiles sets the files read by records that name none of their own
func (b *Builder) WithFiles(files ...string) *Builder {
	b.files = append(b.files, files...)
	return b
}

// WithArgs sets the command-line arguments used by file discovery
func (b *Builder) WithArgs(args []string) *Builder {
	b.args = args
	return b
}

// WithDotEnv reads .env files consulted by the environment overlay after the
// process environment
func (b *Builder) WithDotEnv(files ...string) *Builder {
	b.dotenv = append(b.dotenv, files...)
	return b
}

// WithEnvLookup replaces os.LookupEnv for the environment overlay and ${VAR} expansion
func (b *Builder) WithEnvLookup(fn func(string) (string, bool)) *Builder {
	b.lookupEnv = fn
	return b
}

// WithMaxFileSize rejects source files larger than n bytes
func (b *Builder) WithMaxFileSize(n int64) *Builder {
	b.maxFileSize = n
	return b
}

// WithConverter registers a constructor for values of type t
func (b *Builder) WithConverter(t reflect.Type, conv Converter) *Builder {
	if t == nil || conv == nil {
		b.err = errors.Join(b.err, errors.New("converter requires a type and a function"))
		return b
	}
	b.converters[t] = conv
	return b
}

// TypedConverter adapts a typed constructor for WithConverter:
//
//	b.WithConverter(sectcfg.TypedConverter(parseLevel))
func TypedConverter[T any](fn func(raw any) (T, error)) (reflect.Type, Converter) {
	return reflect.TypeOf((*T)(nil)).Elem(), func(raw any) (any, error) {
		return fn(raw)
	}
}

// WithDecodeHook adds a mapstructure hook run after the built-in ones for scalar fields
func (b *Builder) WithDecodeHook(hook mapstructure.DecodeHookFunc) *Builder {
	if hook != nil {
		b.hooks = append(b.hooks, hook)
	}
	return b
}

// WithRule registers a custom go-playground validation tag for `validate` rules
func (b *Builder) WithRule(tag string, fn validator.Func) *Builder {
	b.rules[tag] = fn
	return b
}

// WithLoader replaces the backend used for a loader kind
func (b *Builder) WithLoader(kind LoaderKind, l RawLoader) *Builder {
	if l == nil {
		b.err = errors.Join(b.err, fmt.Errorf("nil loader for %s", kind))
		return b
	}
	b.loaders[kind] = l
	return b
}

// WithRecord registers a record with the engine
func (b *Builder) WithRecord(rec *Record, err error) *Builder {
	if err != nil {
		b.err = errors.Join(b.err, err)
		return b
	}
	b.records = append(b.records, rec)
	return b
}

// Build creates the Engine with all specified options
func (b *Builder) Build() (*Engine, error) {
	if b.err != nil {
		return nil, b.err
	}

	e := New()
	if b.logger != nil {
		e.logger = b.logger
		e.binder.logger = b.logger
	}
	e.files = b.files
	e.maxFileSize = b.maxFileSize

	env, err := newEnvSource(b.lookupEnv, b.dotenv...)
	if err != nil {
		return nil, err
	}
	e.env = env

	for t, conv := range b.converters {
		e.binder.converters[t] = conv
	}
	if len(b.hooks) > 0 {
		e.binder.hook = decodeHook(b.hooks...)
	}
	for tag, fn := range b.rules {
		if err := e.binder.rules.RegisterValidation(tag, fn); err != nil {
			return nil, fmt.Errorf("failed to register rule %q: %w", tag, err)
		}
	}
	for kind, l := range b.loaders {
		e.loaders[kind] = l
	}
	for _, rec := range b.records {
		if err := e.Register(rec); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// MustBuild is like Build but panics on error
func (b *Builder) MustBuild() *Engine {
	e, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("engine build failed: %v", err))
	}
	return e
}
