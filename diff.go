// FILE: lixenwraith/sectcfg/diff.go
package sectcfg

import (
	"net/netip"
	"net/url"
	"reflect"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Equal reports whether two instances hold the same values, ignoring fields
// marked ignore.
func (e *Engine) Equal(a, b any) bool {
	return cmp.Equal(a, b, e.cmpOptions(a, b)...)
}

// Diff describes the differences between two instances, ignoring fields
// marked ignore. It returns "" when they are equal.
func (e *Engine) Diff(a, b any) string {
	return cmp.Diff(a, b, e.cmpOptions(a, b)...)
}

// Equal compares two instances using specs derived from their struct tags.
func Equal(a, b any) bool { return New().Equal(a, b) }

// Diff compares two instances using specs derived from their struct tags.
func Diff(a, b any) string { return New().Diff(a, b) }

func (e *Engine) cmpOptions(values ...any) []cmp.Option {
	opts := []cmp.Option{
		cmp.Comparer(func(x, y url.URL) bool { return x.String() == y.String() }),
		cmp.Comparer(func(x, y netip.Addr) bool { return x == y }),
		cmp.Comparer(func(x, y netip.Prefix) bool { return x == y }),
		cmpopts.EquateEmpty(),
	}
	seen := make(map[reflect.Type]bool)
	for _, v := range values {
		if v != nil {
			opts = e.collectCmpOptions(reflect.TypeOf(v), seen, opts)
		}
	}
	return opts
}

// collectCmpOptions walks record types reachable from t, ignoring their
// ignore-flagged and unexported fields.
func (e *Engine) collectCmpOptions(t reflect.Type, seen map[reflect.Type]bool, opts []cmp.Option) []cmp.Option {
	if seen[t] {
		return opts
	}
	seen[t] = true

	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Array:
		return e.collectCmpOptions(t.Elem(), seen, opts)
	case reflect.Map:
		return e.collectCmpOptions(t.Elem(), seen, opts)
	case reflect.Struct:
	default:
		return opts
	}
	if !isRecordType(t) {
		return opts
	}
	rec, err := e.recordFor(t)
	if err != nil {
		return opts
	}

	zero := reflect.New(t).Elem().Interface()
	var ignored []string
	hasUnexported := false
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			hasUnexported = true
			continue
		}
		opts = e.collectCmpOptions(sf.Type, seen, opts)
	}
	for _, f := range rec.fields {
		if f.Ignore {
			ignored = append(ignored, f.Name)
		}
	}
	if len(ignored) > 0 {
		opts = append(opts, cmpopts.IgnoreFields(zero, ignored...))
	}
	if hasUnexported {
		opts = append(opts, cmpopts.IgnoreUnexported(zero))
	}
	return opts
}
