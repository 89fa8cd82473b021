// FILE: lixenwraith/sectcfg/decode.go
package sectcfg

import (
	"encoding"
	"fmt"
	"math"
	"net"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

var textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()

// decodeHook returns the composite decode hook for leaf conversions.
// Custom hooks run after the built-in ones.
func decodeHook(custom ...mapstructure.DecodeHookFunc) mapstructure.DecodeHookFunc {
	hooks := []mapstructure.DecodeHookFunc{
		// Network types
		stringToNetIPNetHookFunc(),
		stringToURLHookFunc(),

		// Standard hooks
		stringToBoolHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToTimeHookFunc(time.RFC3339),
	}
	hooks = append(hooks, custom...)
	return mapstructure.ComposeDecodeHookFunc(hooks...)
}

// stringToNetIPNetHookFunc handles net.IPNet conversion
func stringToNetIPNetHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		isPtr := t.Kind() == reflect.Pointer
		targetType := t
		if isPtr {
			targetType = t.Elem()
		}
		if targetType != reflect.TypeOf(net.IPNet{}) {
			return data, nil
		}

		str := data.(string)
		if len(str) > 49 { // Max IPv6 CIDR length
			return nil, fmt.Errorf("invalid CIDR length: %d", len(str))
		}
		_, ipnet, err := net.ParseCIDR(str)
		if err != nil {
			return nil, fmt.Errorf("invalid CIDR: %w", err)
		}
		if isPtr {
			return ipnet, nil
		}
		return *ipnet, nil
	}
}

// stringToURLHookFunc handles url.URL conversion
func stringToURLHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		isPtr := t.Kind() == reflect.Pointer
		targetType := t
		if isPtr {
			targetType = t.Elem()
		}
		if targetType != reflect.TypeOf(url.URL{}) {
			return data, nil
		}

		str := data.(string)
		if len(str) > 2048 {
			return nil, fmt.Errorf("URL too long: %d bytes", len(str))
		}
		u, err := url.Parse(str)
		if err != nil {
			return nil, fmt.Errorf("invalid URL: %w", err)
		}
		if isPtr {
			return u, nil
		}
		return *u, nil
	}
}

// stringToBoolHookFunc accepts the INI spellings yes/no/on/off besides strconv's.
func stringToBoolHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String || t.Kind() != reflect.Bool {
			return data, nil
		}
		switch strings.ToLower(strings.TrimSpace(data.(string))) {
		case "yes", "y", "on":
			return true, nil
		case "no", "n", "off":
			return false, nil
		}
		return data, nil
	}
}

// decodeLeaf converts a scalar raw value through the hook chain, then
// mapstructure's weakly typed decoding.
func decodeLeaf(hook mapstructure.DecodeHookFunc, raw any, t reflect.Type) (reflect.Value, error) {
	out := reflect.New(t)
	data, err := mapstructure.DecodeHookExec(hook, reflect.ValueOf(raw), out.Elem())
	if err != nil {
		return reflect.Value{}, err
	}
	if data != nil {
		if dv := reflect.ValueOf(data); dv.Type() == t {
			return dv, nil
		}
	}

	if err := checkIntRange(data, t); err != nil {
		return reflect.Value{}, err
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out.Interface(),
		WeaklyTypedInput: true,
	})
	if err != nil {
		return reflect.Value{}, fmt.Errorf("decoder creation failed: %w", err)
	}
	if err := decoder.Decode(data); err != nil {
		return reflect.Value{}, err
	}
	return out.Elem(), nil
}

// checkIntRange rejects numeric raw values that do not fit an integer target.
// Weakly typed decoding would otherwise wrap them silently. Strings are range
// checked by the parser.
func checkIntRange(data any, t reflect.Type) error {
	if data == nil {
		return nil
	}
	rv := reflect.ValueOf(data)
	target := reflect.Zero(t)
	var overflow bool

	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			overflow = target.OverflowInt(rv.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			overflow = rv.Uint() > math.MaxInt64 || target.OverflowInt(int64(rv.Uint()))
		case reflect.Float32, reflect.Float64:
			f := rv.Float()
			overflow = math.IsNaN(f) || f < math.MinInt64 || f >= math.MaxInt64 || target.OverflowInt(int64(f))
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			overflow = rv.Int() < 0 || target.OverflowUint(uint64(rv.Int()))
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			overflow = target.OverflowUint(rv.Uint())
		case reflect.Float32, reflect.Float64:
			f := rv.Float()
			overflow = math.IsNaN(f) || f < 0 || f >= math.MaxUint64 || target.OverflowUint(uint64(f))
		}
	default:
		return nil
	}
	if overflow {
		return fmt.Errorf("value %v out of range for %s", data, t)
	}
	return nil
}

// stringify renders a raw or typed value as text. Floats never use exponent
// form; containers render as YAML flow literals.
func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return formatFloat(x, 64)
	case float32:
		return formatFloat(float64(x), 32)
	case time.Duration:
		return x.String()
	case url.URL:
		return x.String()
	case net.IPNet:
		return x.String()
	case encoding.TextMarshaler:
		if text, err := x.MarshalText(); err == nil {
			return string(text)
		}
	case fmt.Stringer:
		return x.String()
	case []byte:
		return string(x)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		if s, err := flowString(v); err == nil {
			return s
		}
	case reflect.Float32, reflect.Float64:
		return formatFloat(rv.Float(), rv.Type().Bits())
	}
	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	return fmt.Sprint(v)
}

// formatFloat writes a float in full decimal form.
func formatFloat(f float64, bits int) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	return strconv.FormatFloat(f, 'f', -1, bits)
}

// flowString renders a container as a single-line YAML flow literal.
func flowString(v any) (string, error) {
	n, err := plainNode(toPlain(reflect.ValueOf(v), nil))
	if err != nil {
		return "", err
	}
	setFlow(n)
	out, err := yaml.Marshal(n)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func setFlow(n *yaml.Node) {
	if n.Kind == yaml.MappingNode || n.Kind == yaml.SequenceNode {
		n.Style = yaml.FlowStyle
	}
	for _, c := range n.Content {
		setFlow(c)
	}
}

// parseFlow parses a YAML flow literal such as "[a, b]" or "{k: v}".
func parseFlow(s string) (any, error) {
	var out any
	if err := yaml.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("invalid flow literal %q: %w", s, err)
	}
	return out, nil
}

func isFlowList(s string) bool {
	return len(s) >= 2 && s[0] == '[' && s[len(s)-1] == ']'
}

func isFlowMap(s string) bool {
	return len(s) >= 2 && s[0] == '{' && s[len(s)-1] == '}'
}

// inferScalar guesses the type of an untyped string value: bool, int64,
// float64, quoted string, or flow list/map. Anything else stays a string.
func inferScalar(s string) any {
	switch s {
	case "true", "True", "TRUE":
		return true
	case "false", "False", "FALSE":
		return false
	}

	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	if strings.ContainsAny(s, "0123456789") {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return v
		}
	}

	// Remove quotes if present
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}

	if isFlowList(s) || isFlowMap(s) {
		if v, err := parseFlow(s); err == nil {
			return normalizeRaw(v)
		}
	}
	return s
}

// normalizeRaw rewrites decoder output into the raw shapes used throughout:
// map[string]any, []any, int64, float64, bool, string.
func normalizeRaw(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = normalizeRaw(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[fmt.Sprint(k)] = normalizeRaw(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = normalizeRaw(val)
		}
		return out
	case []map[string]any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = normalizeRaw(val)
		}
		return out
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case uint64:
		if x <= math.MaxInt64 {
			return int64(x)
		}
		return x
	case float32:
		return float64(x)
	case interface {
		Int64() (int64, error)
		Float64() (float64, error)
	}:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return fmt.Sprint(x)
	}
	return v
}
