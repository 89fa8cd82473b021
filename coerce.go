// FILE: lixenwraith/sectcfg/coerce.go
package sectcfg

import (
	"encoding"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

// Converter builds a value of a registered type from a raw value. It replaces
// the built-in coercion for that exact type.
type Converter func(raw any) (any, error)

// binder turns raw values into typed record instances.
type binder struct {
	converters map[reflect.Type]Converter
	hook       mapstructure.DecodeHookFunc
	rules      *validator.Validate
	logger     *zap.Logger
	// lookup returns a registered record for a nested struct type, or nil.
	lookup func(reflect.Type) *Record

	derived sync.Map // reflect.Type -> *Record
}

// defaultBinder serves struct tag defaults and adapted validator arguments,
// which are converted before any engine exists.
var defaultBinder = &binder{
	hook:   decodeHook(),
	rules:  newRuleValidator(),
	logger: zap.NewNop(),
}

// recordFor returns the spec used for a nested struct type.
func (b *binder) recordFor(t reflect.Type) (*Record, error) {
	if b.lookup != nil {
		if rec := b.lookup(t); rec != nil {
			return rec, nil
		}
	}
	if rec, ok := b.derived.Load(t); ok {
		return rec.(*Record), nil
	}
	rec, err := NewRecord(t)
	if err != nil {
		return nil, err
	}
	actual, _ := b.derived.LoadOrStore(t, rec)
	return actual.(*Record), nil
}

// convert coerces raw into t outside of any instance.
func (b *binder) convert(raw any, t reflect.Type) (reflect.Value, error) {
	return b.coerce(nil, raw, t)
}

// convertField coerces a field value, honoring union arms, and wraps failures.
func (b *binder) convertField(ctx *bindContext, f *Field, raw any) (reflect.Value, error) {
	var (
		v   reflect.Value
		err error
	)
	if len(f.Union) > 0 {
		v, err = b.coerceUnion(ctx, f, raw)
	} else {
		v, err = b.coerce(ctx, raw, f.Type)
	}
	if err != nil {
		var tce *TypeCoercionError
		if errors.As(err, &tce) && tce.Field == f.Key {
			return reflect.Value{}, err
		}
		return reflect.Value{}, &TypeCoercionError{Field: f.Key, Type: f.Type, RawType: rawTypeName(raw), Err: err}
	}
	return v, nil
}

// coerceUnion tries the arms in order. Type arms are converted to, literal arms
// must equal the raw value, and a nil arm admits nil.
func (b *binder) coerceUnion(ctx *bindContext, f *Field, raw any) (reflect.Value, error) {
	nilAllowed := false
	for _, arm := range f.Union {
		if arm == nil {
			nilAllowed = true
		}
	}
	if raw == nil && nilAllowed {
		return reflect.Zero(f.Type), nil
	}

	var armErrs []string
	for _, arm := range f.Union {
		switch a := arm.(type) {
		case nil:
			continue
		case reflect.Type:
			if !a.AssignableTo(f.Type) {
				armErrs = append(armErrs, fmt.Sprintf("%s: does not implement %s", a, f.Type))
				continue
			}
			v, err := b.coerce(ctx, raw, a)
			if err != nil {
				armErrs = append(armErrs, fmt.Sprintf("%s: %v", a, err))
				continue
			}
			return v, nil
		default:
			if reflect.DeepEqual(raw, a) {
				return reflect.ValueOf(a), nil
			}
			if s, ok := raw.(string); ok && s == stringify(a) {
				return reflect.ValueOf(a), nil
			}
			armErrs = append(armErrs, fmt.Sprintf("%v: not equal", a))
		}
	}
	if nilAllowed {
		return reflect.Zero(f.Type), nil
	}
	return reflect.Value{}, fmt.Errorf("no union arm matched: %s", strings.Join(armErrs, "; "))
}

// coerce converts raw into a value of type t.
func (b *binder) coerce(ctx *bindContext, raw any, t reflect.Type) (reflect.Value, error) {
	if conv, ok := b.converters[t]; ok {
		out, err := conv(raw)
		if err != nil {
			return reflect.Value{}, err
		}
		if out == nil {
			return reflect.Zero(t), nil
		}
		ov := reflect.ValueOf(out)
		if !ov.Type().AssignableTo(t) {
			return reflect.Value{}, fmt.Errorf("converter for %s returned %T", t, out)
		}
		return ov, nil
	}

	if raw == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(raw)
	if rv.Type() == t {
		return rv, nil
	}

	switch {
	case t.Kind() == reflect.Pointer:
		elem, err := b.coerce(ctx, raw, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(t.Elem())
		p.Elem().Set(elem)
		return p, nil

	case t.Kind() == reflect.Interface:
		if s, ok := raw.(string); ok && t.NumMethod() == 0 {
			return reflect.ValueOf(inferScalar(s)), nil
		}
		if rv.Type().Implements(t) {
			return rv, nil
		}
		return reflect.Value{}, fmt.Errorf("%T does not implement %s", raw, t)

	case reflect.PointerTo(t).Implements(textUnmarshalerType):
		return b.unmarshalText(raw, t)

	case isRecordType(t):
		return b.coerceRecord(ctx, raw, t)

	case t.Kind() == reflect.String:
		return reflect.ValueOf(stringify(raw)).Convert(t), nil

	case t.Kind() == reflect.Slice:
		return b.coerceSlice(ctx, raw, t)

	case t.Kind() == reflect.Array:
		return b.coerceArray(ctx, raw, t)

	case t.Kind() == reflect.Map:
		return b.coerceMap(ctx, raw, t)
	}

	return decodeLeaf(b.hook, normalizeRaw(raw), t)
}

// unmarshalText feeds the textual form of raw to t's UnmarshalText.
func (b *binder) unmarshalText(raw any, t reflect.Type) (reflect.Value, error) {
	if tm, ok := raw.(time.Time); ok && t == milliTimeType {
		m, err := MilliTimeFrom(tm)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(m), nil
	}
	p := reflect.New(t)
	if err := p.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(stringify(raw))); err != nil {
		return reflect.Value{}, err
	}
	return p.Elem(), nil
}

// coerceRecord builds a nested record from a mapping or a "{...}" literal.
func (b *binder) coerceRecord(ctx *bindContext, raw any, t reflect.Type) (reflect.Value, error) {
	if s, ok := raw.(string); ok && isFlowMap(strings.TrimSpace(s)) {
		parsed, err := parseFlow(strings.TrimSpace(s))
		if err != nil {
			return reflect.Value{}, err
		}
		raw = normalizeRaw(parsed)
	}
	m, ok := asStringMap(raw)
	if !ok {
		return reflect.Value{}, fmt.Errorf("nested record %s needs a mapping, got %T", t, raw)
	}
	rec, err := b.recordFor(t)
	if err != nil {
		return reflect.Value{}, err
	}
	inst, err := b.bind(rec, ctx.label(), m, ctx.child())
	if err != nil {
		return reflect.Value{}, err
	}
	return inst.Elem(), nil
}

// listOf turns a raw value into a list: lists pass, "[...]" strings parse as flow
// sequences, other strings split on commas, and a lone scalar becomes a list of one.
func listOf(raw any) ([]any, error) {
	switch x := raw.(type) {
	case []any:
		return x, nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return []any{}, nil
		}
		if isFlowList(s) {
			parsed, err := parseFlow(s)
			if err != nil {
				return nil, err
			}
			list, _ := normalizeRaw(parsed).([]any)
			if list == nil {
				list = []any{}
			}
			return list, nil
		}
		parts := strings.Split(s, ",")
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = strings.TrimSpace(p)
		}
		return out, nil
	}

	rv := reflect.ValueOf(raw)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, nil
	}
	return []any{raw}, nil
}

func (b *binder) coerceSlice(ctx *bindContext, raw any, t reflect.Type) (reflect.Value, error) {
	if t.Elem().Kind() == reflect.Uint8 {
		if s, ok := raw.(string); ok {
			return reflect.ValueOf([]byte(s)).Convert(t), nil
		}
	}
	list, err := listOf(raw)
	if err != nil {
		return reflect.Value{}, err
	}
	out := reflect.MakeSlice(t, len(list), len(list))
	for i, item := range list {
		v, err := b.coerce(ctx, item, t.Elem())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
		}
		out.Index(i).Set(v)
	}
	return out, nil
}

func (b *binder) coerceArray(ctx *bindContext, raw any, t reflect.Type) (reflect.Value, error) {
	list, err := listOf(raw)
	if err != nil {
		return reflect.Value{}, err
	}
	if len(list) != t.Len() {
		return reflect.Value{}, fmt.Errorf("array of length %d needs %d elements, got %d", t.Len(), t.Len(), len(list))
	}
	out := reflect.New(t).Elem()
	for i, item := range list {
		v, err := b.coerce(ctx, item, t.Elem())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
		}
		out.Index(i).Set(v)
	}
	return out, nil
}

func (b *binder) coerceMap(ctx *bindContext, raw any, t reflect.Type) (reflect.Value, error) {
	if s, ok := raw.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return reflect.MakeMap(t), nil
		}
		if !isFlowMap(s) {
			return reflect.Value{}, fmt.Errorf("cannot read %q as a mapping", s)
		}
		parsed, err := parseFlow(s)
		if err != nil {
			return reflect.Value{}, err
		}
		raw = normalizeRaw(parsed)
	}
	m, ok := asStringMap(raw)
	if !ok {
		return reflect.Value{}, fmt.Errorf("mapping required, got %T", raw)
	}
	out := reflect.MakeMapWithSize(t, len(m))
	for _, k := range sortedKeys(m) {
		kv, err := b.coerce(ctx, k, t.Key())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("key %q: %w", k, err)
		}
		vv, err := b.coerce(ctx, m[k], t.Elem())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("key %q: %w", k, err)
		}
		out.SetMapIndex(kv, vv)
	}
	return out, nil
}
