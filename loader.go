// FILE: lixenwraith/sectcfg/loader.go
package sectcfg

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// RawLoader reads external sources into a RawTree.
type RawLoader interface {
	Load(req LoadRequest) (*RawTree, error)
}

// LoadRequest describes what a loader reads and how it shapes the result.
type LoadRequest struct {
	// Files groups source paths under output labels. Paths under one label are
	// read in order and merged. The empty label is the unscoped file.
	Files Selection
	// Sections narrows the result to the listed sections, each merged from its
	// paths under the selector label. Nil returns every section in source order.
	Sections Selection
	// Keys projects each section onto output keys; Paths are the aliases,
	// and the last present alias wins. Nil keeps every key.
	Keys Selection
	// Defaults fill keys still missing after projection.
	Defaults map[string]any
	// EvalEnv expands ${VAR} references in source text.
	EvalEnv bool
}

// LoaderOptions configures the file backends.
type LoaderOptions struct {
	// Logger receives debug diagnostics, such as skipped missing files.
	Logger *zap.Logger
	// MaxFileSize rejects larger files when positive.
	MaxFileSize int64
	// LookupEnv resolves ${VAR} references. Defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

func (o LoaderOptions) withDefaults() LoaderOptions {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.LookupEnv == nil {
		o.LookupEnv = os.LookupEnv
	}
	return o
}

// parseFunc turns file content into sections in source order.
type parseFunc func(path string, data []byte) ([]*Section, error)

// fileLoader is the common file reading path of the text backends.
type fileLoader struct {
	format string
	parse  parseFunc
	dotted bool
	opts   LoaderOptions
}

// NewINILoader reads INI files. The DEFAULT section becomes the unscoped section.
func NewINILoader(opts LoaderOptions) RawLoader {
	return &fileLoader{format: "ini", parse: parseINI, opts: opts.withDefaults()}
}

// NewYAMLLoader reads YAML documents. Top-level mappings are sections; other
// top-level values form the unscoped section. Sections may be addressed by
// dotted paths into nested mappings.
func NewYAMLLoader(opts LoaderOptions) RawLoader {
	return &fileLoader{format: "yaml", parse: parseYAML, dotted: true, opts: opts.withDefaults()}
}

// NewTOMLLoader reads TOML documents. Tables are sections.
func NewTOMLLoader(opts LoaderOptions) RawLoader {
	return &fileLoader{format: "toml", parse: parseTOML, opts: opts.withDefaults()}
}

// NewJSONLoader reads JSON documents. Top-level objects are sections, in key order.
func NewJSONLoader(opts LoaderOptions) RawLoader {
	return &fileLoader{format: "json", parse: parseJSON, opts: opts.withDefaults()}
}

// NewAutoLoader picks a backend per file from its extension, falling back to
// content detection.
func NewAutoLoader(opts LoaderOptions) RawLoader {
	return &fileLoader{format: "auto", parse: parseAuto, dotted: true, opts: opts.withDefaults()}
}

func (l *fileLoader) Load(req LoadRequest) (*RawTree, error) {
	tree := NewRawTree()
	for _, sel := range req.Files {
		ft := tree.File(sel.Label)
		for _, path := range sel.Paths {
			secs, err := l.readFile(path, req.EvalEnv)
			if err != nil {
				return nil, err
			}
			for _, s := range secs {
				ft.Add(s)
			}
		}
	}
	return project(tree, req, l.dotted), nil
}

// readFile reads and parses one file. A missing file yields no sections.
func (l *fileLoader) readFile(path string, evalEnv bool) ([]*Section, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			l.opts.Logger.Debug("config file not found, treating as empty", zap.String("path", path))
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat config file '%s': %w", path, err)
	}

	// Security: File size check
	if l.opts.MaxFileSize > 0 && fileInfo.Size() > l.opts.MaxFileSize {
		return nil, fmt.Errorf("config file '%s' exceeds maximum size %d bytes", path, l.opts.MaxFileSize)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file '%s': %w", path, err)
	}
	defer file.Close()

	var reader io.Reader = file
	if l.opts.MaxFileSize > 0 {
		reader = io.LimitReader(file, l.opts.MaxFileSize)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	if evalEnv {
		data = []byte(substituteEnvVars(string(data), l.opts.LookupEnv))
	}

	secs, err := l.parse(path, data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s config file '%s': %w", l.format, path, err)
	}
	l.opts.Logger.Debug("loaded config file",
		zap.String("path", path),
		zap.String("format", l.format),
		zap.Int("sections", len(secs)))
	return secs, nil
}

// project applies section selection, key projection and defaults to every file.
func project(tree *RawTree, req LoadRequest, dotted bool) *RawTree {
	if req.Sections == nil && req.Keys == nil && len(req.Defaults) == 0 {
		return tree
	}

	out := NewRawTree()
	for _, ft := range tree.Files() {
		oft := out.File(ft.Label)

		secs := ft.Sections()
		if req.Sections != nil {
			secs = secs[:0:0]
			for _, sel := range req.Sections {
				merged := NewSection(sel.Label)
				found := false
				for _, path := range sel.Paths {
					if s := lookupSection(ft, path, dotted); s != nil {
						merged.Merge(s)
						found = true
					}
				}
				if found {
					secs = append(secs, merged)
				}
			}
		}

		for _, s := range secs {
			if req.Keys != nil {
				values := s.Map()
				projected := NewSection(s.Name)
				for _, sel := range req.Keys {
					if v, ok := pickAlias(values, sel.Paths); ok {
						projected.Set(sel.Label, v)
					}
				}
				s = projected
			} else {
				s = s.Clone()
			}
			for _, k := range sortedKeys(req.Defaults) {
				if _, exists := s.Get(k); !exists {
					s.Set(k, req.Defaults[k])
				}
			}
			oft.Add(s)
		}
	}
	return out
}

// lookupSection finds a section by name. With dotted lookup, "a.b" also
// resolves to the mapping under key b of section a.
func lookupSection(ft *FileTree, path string, dotted bool) *Section {
	if s, ok := ft.Section(path); ok {
		return s
	}
	if !dotted {
		return nil
	}
	return dottedSection(path, func(name string) (map[string]any, bool) {
		s, ok := ft.Section(name)
		if !ok {
			return nil, false
		}
		return s.Map(), true
	})
}

// dottedSection splits path at each dot in turn, looking up the head as a
// section and walking the rest as nested keys.
func dottedSection(path string, section func(string) (map[string]any, bool)) *Section {
	for i := strings.IndexByte(path, '.'); i > 0; {
		if values, ok := section(path[:i]); ok {
			if m, ok := asStringMap(navigateToPath(values, path[i+1:])); ok {
				return SectionOf(path, m)
			}
		}
		next := strings.IndexByte(path[i+1:], '.')
		if next < 0 {
			break
		}
		i += next + 1
	}
	return nil
}

// DictSection is one named section of an in-memory source.
type DictSection struct {
	Name   string
	Values map[string]any
}

// dictLoader serves sections from memory under the unscoped file label.
type dictLoader struct {
	sections []DictSection
	lookup   func(string) (string, bool)
}

// NewDictLoader serves an in-memory section map, sections in lexical order.
func NewDictLoader(data map[string]map[string]any) RawLoader {
	secs := make([]DictSection, 0, len(data))
	for _, name := range sortedKeys(data) {
		secs = append(secs, DictSection{Name: name, Values: data[name]})
	}
	return &dictLoader{sections: secs, lookup: os.LookupEnv}
}

// NewOrderedDictLoader serves in-memory sections in the given order.
func NewOrderedDictLoader(sections ...DictSection) RawLoader {
	return &dictLoader{sections: append([]DictSection(nil), sections...), lookup: os.LookupEnv}
}

func (l *dictLoader) Load(req LoadRequest) (*RawTree, error) {
	tree := NewRawTree()
	ft := tree.File("")
	for _, ds := range l.sections {
		values, _ := normalizeRaw(cloneValue(ds.Values)).(map[string]any)
		if req.EvalEnv {
			for k, v := range values {
				if s, ok := v.(string); ok {
					values[k] = substituteEnvVars(s, l.lookup)
				}
			}
		}
		ft.Add(SectionOf(ds.Name, values))
	}
	return project(tree, req, true), nil
}

// detectFileFormat determines format from file extension
func detectFileFormat(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".ini", ".cfg":
		return "ini"
	case ".toml", ".tml":
		return "toml"
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	case ".conf", ".config":
		// Try to detect from content
		return ""
	default:
		return ""
	}
}
