// FILE: lixenwraith/sectcfg/bind.go
package sectcfg

import (
	"errors"
	"reflect"

	"go.uber.org/zap"
)

// bindContext carries per-instance inputs that are not part of the raw values.
type bindContext struct {
	section   string
	files     []string
	alloc     *IndexAllocator
	env       *envSource
	overrides map[string]any
}

func (c *bindContext) label() string {
	if c == nil {
		return ""
	}
	return c.section
}

// child is the context of a nested record: same origin, no overlays.
func (c *bindContext) child() *bindContext {
	if c == nil {
		return nil
	}
	return &bindContext{section: c.section, files: c.files, alloc: c.alloc}
}

// bind builds one instance of rec from the raw values of a section and returns
// a pointer to it. For groups only the non-record fields are bound.
//
// Order: alias projection, env overlay, overrides, validators, required check,
// defaults and ordinals, coercion, rule checks.
func (b *binder) bind(rec *Record, label string, raw map[string]any, ctx *bindContext) (reflect.Value, error) {
	fields := rec.scalarFields()

	values := make(Values, len(fields))
	for _, f := range fields {
		if v, ok := pickAlias(raw, f.lookupKeys()); ok {
			values[f.Key] = v
		}
	}

	if ctx != nil && ctx.env != nil && rec.evalEnv {
		for _, f := range fields {
			if v, ok := ctx.env.value(rec.envPrefix, f.Key); ok {
				values[f.Key] = v
			}
		}
	}
	if ctx != nil {
		for _, f := range fields {
			if v, ok := ctx.overrides[f.Key]; ok {
				values[f.Key] = v
			}
		}
	}

	for _, f := range fields {
		if f.Validator == nil {
			continue
		}
		v, present := values[f.Key]
		if !present {
			continue
		}
		vctx := &ValidationContext{Record: rec, Section: label, Values: values, Key: f.Key, Value: v}
		out, err := f.Validator.Validate(vctx)
		if err != nil {
			return reflect.Value{}, &ValidationError{Field: f.Key, Err: err}
		}
		values[f.Key] = out
	}

	var missing []string
	for _, f := range fields {
		if f.Required && isEmptyRaw(values[f.Key]) {
			missing = append(missing, f.Key)
		}
	}
	if len(missing) > 0 {
		var files []string
		if ctx != nil {
			files = ctx.files
		}
		return reflect.Value{}, &MissingRequiredKeyError{Record: rec.name, Section: label, Keys: missing, Files: files}
	}

	for _, f := range fields {
		if !isEmptyRaw(values[f.Key]) {
			continue
		}
		if dv, ok := f.DefaultValue(); ok {
			values[f.Key] = dv
			continue
		}
		if f.Ordinal != "" && ctx != nil && ctx.alloc != nil {
			values[f.Key] = ctx.alloc.Next(f.Ordinal)
		}
	}

	out := reflect.New(rec.typ).Elem()
	var errs []error
	for _, f := range fields {
		v, present := values[f.Key]
		if !present {
			continue
		}
		cv, err := b.convertField(ctx, f, v)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out.FieldByIndex(f.index).Set(cv)
	}
	if len(errs) > 0 {
		return reflect.Value{}, errors.Join(errs...)
	}

	for _, f := range fields {
		if err := checkRule(b.rules, f, out.FieldByIndex(f.index)); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return reflect.Value{}, errors.Join(errs...)
	}

	if rec.sectionIdx != nil {
		out.FieldByIndex(rec.sectionIdx).SetString(label)
	}

	b.logger.Debug("bound instance",
		zap.String("record", rec.name),
		zap.String("section", label),
		zap.Int("values", len(values)))
	return out.Addr(), nil
}
