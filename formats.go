// FILE: lixenwraith/sectcfg/formats.go
package sectcfg

import (
	"bytes"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-json"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// parseINI reads INI text. Values stay strings; quoting is removed by the parser.
func parseINI(_ string, data []byte) ([]*Section, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		Loose:            true,
		AllowBooleanKeys: true,
	}, data)
	if err != nil {
		return nil, err
	}

	var secs []*Section
	for _, sec := range f.Sections() {
		name := sec.Name()
		if name == ini.DefaultSection {
			name = ""
		}
		s := NewSection(name)
		for _, key := range sec.Keys() {
			s.Set(key.Name(), key.Value())
		}
		if name == "" && s.Len() == 0 {
			continue
		}
		secs = append(secs, s)
	}
	return secs, nil
}

// parseYAML walks the document node so sections and keys keep source order.
func parseYAML(_ string, data []byte) ([]*Section, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("top level must be a mapping, got %s", nodeKind(root))
	}

	unscoped := NewSection("")
	var secs []*Section
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		target := val
		if target.Kind == yaml.AliasNode {
			target = target.Alias
		}
		if target.Kind != yaml.MappingNode {
			var v any
			if err := val.Decode(&v); err != nil {
				return nil, fmt.Errorf("key %q: %w", key.Value, err)
			}
			unscoped.Set(key.Value, normalizeRaw(v))
			continue
		}

		var m map[string]any
		if err := val.Decode(&m); err != nil {
			return nil, fmt.Errorf("section %q: %w", key.Value, err)
		}
		s := NewSection(key.Value)
		for _, k := range mappingKeys(target) {
			if v, ok := m[k]; ok {
				s.Set(k, normalizeRaw(v))
			}
		}
		for _, k := range sortedKeys(m) {
			if _, ok := s.Get(k); !ok {
				s.Set(k, normalizeRaw(m[k]))
			}
		}
		secs = append(secs, s)
	}
	if unscoped.Len() > 0 {
		secs = append([]*Section{unscoped}, secs...)
	}
	return secs, nil
}

// mappingKeys lists the keys of a mapping node in order, skipping merge keys.
func mappingKeys(n *yaml.Node) []string {
	keys := make([]string, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		if k := n.Content[i].Value; k != "<<" {
			keys = append(keys, k)
		}
	}
	return keys
}

func nodeKind(n *yaml.Node) string {
	switch n.Kind {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	case yaml.MappingNode:
		return "mapping"
	}
	return "document"
}

// parseTOML reads TOML text. Tables become sections; key order comes from the
// decoder metadata.
func parseTOML(_ string, data []byte) ([]*Section, error) {
	var raw map[string]any
	md, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, err
	}

	var order []string
	inner := make(map[string][]string)
	for _, key := range md.Keys() {
		switch len(key) {
		case 1:
			order = append(order, key[0])
		case 2:
			inner[key[0]] = append(inner[key[0]], key[1])
		}
	}

	unscoped := NewSection("")
	var secs []*Section
	for _, name := range order {
		v, ok := raw[name]
		if !ok {
			continue
		}
		m, isTable := v.(map[string]any)
		if !isTable {
			unscoped.Set(name, normalizeRaw(v))
			continue
		}
		s := NewSection(name)
		for _, k := range inner[name] {
			if val, ok := m[k]; ok {
				s.Set(k, normalizeRaw(val))
			}
		}
		secs = append(secs, s)
	}
	if unscoped.Len() > 0 {
		secs = append([]*Section{unscoped}, secs...)
	}
	return secs, nil
}

// parseJSON reads a JSON object. Objects become sections in key order.
func parseJSON(_ string, data []byte) ([]*Section, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber() // Preserve number precision
	var raw map[string]any
	if err := decoder.Decode(&raw); err != nil {
		return nil, err
	}
	values, _ := normalizeRaw(raw).(map[string]any)

	unscoped := NewSection("")
	var secs []*Section
	for _, name := range sortedKeys(values) {
		if m, ok := values[name].(map[string]any); ok {
			secs = append(secs, SectionOf(name, m))
			continue
		}
		unscoped.Set(name, values[name])
	}
	if unscoped.Len() > 0 {
		secs = append([]*Section{unscoped}, secs...)
	}
	return secs, nil
}

var parsers = map[string]parseFunc{
	"ini":  parseINI,
	"yaml": parseYAML,
	"toml": parseTOML,
	"json": parseJSON,
}

// parseAuto detects the format from the extension, then from the content.
// Content that no structured parser accepts is read as INI.
func parseAuto(path string, data []byte) ([]*Section, error) {
	format := detectFileFormat(path)
	if format == "" {
		format = detectFormatFromContent(data)
	}
	return parsers[format](path, data)
}

// detectFormatFromContent attempts to detect format by parsing
func detectFormatFromContent(data []byte) string {
	// Try JSON first (strict format)
	var jsonTest map[string]any
	if err := json.Unmarshal(data, &jsonTest); err == nil {
		return "json"
	}

	// Try YAML (superset of JSON, so check after JSON)
	var yamlTest map[string]any
	if err := yaml.Unmarshal(data, &yamlTest); err == nil && len(yamlTest) > 0 {
		return "yaml"
	}

	// Try TOML
	var tomlTest map[string]any
	if err := toml.Unmarshal(data, &tomlTest); err == nil {
		return "toml"
	}

	return "ini"
}
