// FILE: lixenwraith/sectcfg/serialize.go
package sectcfg

import (
	"bytes"
	"encoding"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format selects the text format written by the serializer.
type Format string

const (
	FormatINI  Format = "ini"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFor picks a format from a file extension, defaulting to INI.
func FormatFor(path string) Format {
	switch detectFileFormat(path) {
	case "yaml":
		return FormatYAML
	case "toml":
		return FormatTOML
	}
	return FormatINI
}

var durationType = reflect.TypeOf(time.Duration(0))

// plainField is one key of a serialized record, in declaration order.
type plainField struct {
	Key   string
	Value any
}

// plainRecord is a record flattened for output.
type plainRecord []plainField

// block is one output section. The empty header is the unscoped section.
type block struct {
	header string
	fields plainRecord
}

// Marshal renders an instance with a default engine.
func Marshal(v any, format Format) ([]byte, error) {
	return New().Marshal(v, format)
}

// Marshal renders an instance, a slice or map of instances, or a group.
func (e *Engine) Marshal(v any, format Format) ([]byte, error) {
	blocks, err := e.blocks(v)
	if err != nil {
		return nil, err
	}
	return writeBlocks(blocks, format)
}

// Save writes an instance to path atomically. An empty format is chosen from
// the file extension.
func (e *Engine) Save(path string, v any, format Format) error {
	if format == "" {
		format = FormatFor(path)
	}
	data, err := e.Marshal(v, format)
	if err != nil {
		return err
	}
	return atomicWriteFile(path, data)
}

// MarshalTree renders raw sections as read by a loader. Files are flattened in
// order; equal section names merge.
func MarshalTree(tree *RawTree, format Format) ([]byte, error) {
	merged := newFileTree("")
	for _, ft := range tree.Files() {
		for _, s := range ft.Sections() {
			merged.Add(s)
		}
	}
	var blocks []block
	for _, s := range merged.Sections() {
		b := block{header: s.Name}
		for _, k := range s.Keys() {
			v, _ := s.Get(k)
			b.fields = append(b.fields, plainField{Key: k, Value: toPlain(reflect.ValueOf(v), nil)})
		}
		blocks = append(blocks, b)
	}
	return writeBlocks(blocks, format)
}

func writeBlocks(blocks []block, format Format) ([]byte, error) {
	// unscoped block first, INI keys before the first header belong to it
	for i, b := range blocks {
		if b.header == "" && i > 0 {
			blocks = append([]block{b}, append(blocks[:i:i], blocks[i+1:]...)...)
			break
		}
	}
	switch format {
	case FormatINI, "":
		return writeINI(blocks), nil
	case FormatYAML:
		return writeYAML(blocks)
	case FormatTOML:
		return writeTOML(blocks)
	}
	return nil, fmt.Errorf("unsupported output format %q", format)
}

// blocks flattens v into output sections.
func (e *Engine) blocks(v any) ([]block, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, fmt.Errorf("cannot serialize nil %T", v)
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		var out []block
		for i := 0; i < rv.Len(); i++ {
			elem := indirect(rv.Index(i))
			if !elem.IsValid() {
				continue
			}
			rec, err := e.recordFor(elem.Type())
			if err != nil {
				return nil, err
			}
			bs, err := e.recordBlocks(elem, rec, fmt.Sprintf("%s_%d", rec.name, i))
			if err != nil {
				return nil, err
			}
			out = append(out, bs...)
		}
		return out, nil

	case reflect.Map:
		var out []block
		for _, k := range sortedMapKeys(rv) {
			elem := indirect(rv.MapIndex(k))
			if !elem.IsValid() {
				continue
			}
			rec, err := e.recordFor(elem.Type())
			if err != nil {
				return nil, err
			}
			bs, err := e.recordBlocks(elem, rec, stringify(k.Interface()))
			if err != nil {
				return nil, err
			}
			out = append(out, bs...)
		}
		return out, nil

	case reflect.Struct:
		rec, err := e.recordFor(rv.Type())
		if err != nil {
			return nil, err
		}
		return e.recordBlocks(rv, rec, "")
	}
	return nil, fmt.Errorf("%w: cannot serialize %T", ErrNotRecord, v)
}

// recordBlocks renders one instance. The header is its SectionName, else
// fallback, else the record's own section or name.
func (e *Engine) recordBlocks(v reflect.Value, rec *Record, fallback string) ([]block, error) {
	header := rec.sectionLabel(v)
	if header == "" {
		header = fallback
	}
	if header == "" {
		header = rec.header()
	}

	if !rec.group {
		return []block{{header: header, fields: e.plainFields(v, rec.fields)}}, nil
	}

	var out []block
	if scalars := e.plainFields(v, rec.scalarFields()); len(scalars) > 0 {
		out = append(out, block{header: "", fields: scalars})
	}
	for _, m := range rec.members {
		sub, err := e.recordFor(m.elem)
		if err != nil {
			return nil, err
		}
		field := v.FieldByIndex(m.index)
		switch m.kind {
		case memberValue, memberPointer:
			elem := indirect(field)
			if !elem.IsValid() {
				continue
			}
			fb := m.key
			if sub.exact() {
				fb = sub.header()
			}
			bs, err := e.recordBlocks(elem, sub, fb)
			if err != nil {
				return nil, err
			}
			out = append(out, bs...)
		case memberSlice:
			for i := 0; i < field.Len(); i++ {
				elem := indirect(field.Index(i))
				if !elem.IsValid() {
					continue
				}
				bs, err := e.recordBlocks(elem, sub, fmt.Sprintf("%s_%d", m.key, i))
				if err != nil {
					return nil, err
				}
				out = append(out, bs...)
			}
		case memberMap:
			for _, k := range sortedMapKeys(field) {
				bs, err := e.recordBlocks(field.MapIndex(k), sub, stringify(k.Interface()))
				if err != nil {
					return nil, err
				}
				out = append(out, bs...)
			}
		}
	}
	return out, nil
}

// plainFields renders the serializable fields of a record value.
func (e *Engine) plainFields(v reflect.Value, fields []*Field) plainRecord {
	out := make(plainRecord, 0, len(fields))
	for _, f := range fields {
		if f.Ignore {
			continue
		}
		fv := v.FieldByIndex(f.index)
		if (fv.Kind() == reflect.Pointer || fv.Kind() == reflect.Interface) && fv.IsNil() {
			continue
		}
		out = append(out, plainField{Key: f.Key, Value: toPlain(fv, e.recordFor)})
	}
	return out
}

// toPlain reduces a typed value to output shapes: plainRecord, []any,
// map[string]any, bool, int64, uint64, float64 and string. Leaf types render
// through their text form.
func toPlain(v reflect.Value, records func(reflect.Type) (*Record, error)) any {
	if !v.IsValid() {
		return nil
	}
	if (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) && v.IsNil() {
		return nil
	}
	if v.Kind() == reflect.Interface {
		return toPlain(v.Elem(), records)
	}

	t := v.Type()
	switch {
	case t == durationType:
		return time.Duration(v.Int()).String()
	case leafStructs[t]:
		p := reflect.New(t)
		p.Elem().Set(v)
		return stringify(p.Interface())
	case t.Implements(textMarshalerType):
		if v.Kind() == reflect.Pointer && v.IsNil() {
			return nil
		}
		return stringify(v.Interface().(encoding.TextMarshaler))
	}

	switch v.Kind() {
	case reflect.Pointer:
		return toPlain(v.Elem(), records)
	case reflect.Struct:
		if isRecordType(t) {
			if records == nil {
				records = defaultBinder.recordFor
			}
			if rec, err := records(t); err == nil {
				out := make(plainRecord, 0, len(rec.fields))
				for _, f := range rec.fields {
					if f.Ignore {
						continue
					}
					fv := v.FieldByIndex(f.index)
					if (fv.Kind() == reflect.Pointer || fv.Kind() == reflect.Interface) && fv.IsNil() {
						continue
					}
					out = append(out, plainField{Key: f.Key, Value: toPlain(fv, records)})
				}
				return out
			}
		}
		return stringify(v.Interface())
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return string(v.Bytes())
		}
		fallthrough
	case reflect.Array:
		out := make([]any, v.Len())
		for i := range out {
			out[i] = toPlain(v.Index(i), records)
		}
		return out
	case reflect.Map:
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out[stringify(iter.Key().Interface())] = toPlain(iter.Value(), records)
		}
		return out
	case reflect.Bool:
		return v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint()
	case reflect.Float32, reflect.Float64:
		return v.Float()
	case reflect.String:
		return v.String()
	}
	return stringify(v.Interface())
}

// writeINI emits "[header]" and "key=value" lines, one blank line between blocks.
func writeINI(blocks []block) []byte {
	var buf bytes.Buffer
	for _, b := range blocks {
		if b.header != "" {
			fmt.Fprintf(&buf, "[%s]\n", b.header)
		}
		for _, f := range b.fields {
			fmt.Fprintf(&buf, "%s=%s\n", f.Key, iniValue(f.Value))
		}
		buf.WriteString("\n")
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
}

// iniValue renders a value on one line, quoting it when the INI parser would
// otherwise alter it.
func iniValue(v any) string {
	s := plainString(v)
	switch {
	case strings.ContainsAny(s, "\n`"):
		return `"""` + s + `"""`
	case s != strings.TrimSpace(s), strings.ContainsAny(s, "#;"),
		strings.HasPrefix(s, `"`), strings.HasPrefix(s, "'"), strings.HasSuffix(s, `\`):
		return "`" + s + "`"
	}
	return s
}

// plainString renders a plain value as text; containers become flow literals.
func plainString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case plainRecord, []any, map[string]any:
		n, err := plainNode(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		setFlow(n)
		out, err := yaml.Marshal(n)
		if err != nil {
			return fmt.Sprint(x)
		}
		return strings.TrimSpace(string(out))
	}
	return stringify(v)
}

// plainNode builds a YAML node from a plain value, keeping record key order
// and writing floats in full decimal form.
func plainNode(v any) (*yaml.Node, error) {
	switch x := v.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case plainRecord:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, f := range x {
			vn, err := plainNode(f.Value)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.Key}, vn)
		}
		return n, nil
	case map[string]any:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range sortedKeys(x) {
			vn, err := plainNode(x[k])
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}, vn)
		}
		return n, nil
	case []any:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range x {
			in, err := plainNode(item)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, in)
		}
		return n, nil
	case float64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: yamlFloat(x)}, nil
	}
	n := &yaml.Node{}
	if err := n.Encode(v); err != nil {
		return nil, err
	}
	return n, nil
}

func yamlFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	case math.IsNaN(f):
		return ".nan"
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func writeYAML(blocks []block) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, b := range blocks {
		body, err := plainNode(b.fields)
		if err != nil {
			return nil, err
		}
		if b.header == "" {
			root.Content = append(root.Content, body.Content...)
			continue
		}
		root.Content = append(root.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: b.header}, body)
	}
	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return buf.Bytes(), nil
}

func writeTOML(blocks []block) ([]byte, error) {
	data := make(map[string]any)
	for _, b := range blocks {
		body := tomlValue(b.fields).(map[string]any)
		if b.header == "" {
			for k, v := range body {
				data[k] = v
			}
			continue
		}
		data[b.header] = body
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(data); err != nil {
		return nil, fmt.Errorf("failed to marshal TOML: %w", err)
	}
	return buf.Bytes(), nil
}

// tomlValue converts plain values for the TOML encoder, dropping nils.
func tomlValue(v any) any {
	switch x := v.(type) {
	case plainRecord:
		out := make(map[string]any, len(x))
		for _, f := range x {
			if f.Value != nil {
				out[f.Key] = tomlValue(f.Value)
			}
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			if val != nil {
				out[k] = tomlValue(val)
			}
		}
		return out
	case []any:
		out := make([]any, 0, len(x))
		for _, item := range x {
			if item != nil {
				out = append(out, tomlValue(item))
			}
		}
		return out
	case uint64:
		if x > math.MaxInt64 {
			return strconv.FormatUint(x, 10)
		}
		return int64(x)
	}
	return v
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func sortedMapKeys(m reflect.Value) []reflect.Value {
	keys := m.MapKeys()
	strs := make(map[string]reflect.Value, len(keys))
	for _, k := range keys {
		strs[stringify(k.Interface())] = k
	}
	out := make([]reflect.Value, 0, len(keys))
	for _, s := range sortedKeys(strs) {
		out = append(out, strs[s])
	}
	return out
}
