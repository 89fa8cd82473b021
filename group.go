// FILE: lixenwraith/sectcfg/group.go
package sectcfg

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"
)

// compose resolves a group: every record-typed field is resolved from the
// group's files against one shared raw tree, and the remaining fields bind
// from the unscoped section. Any member failure fails the whole group.
func (e *Engine) compose(rec *Record, files []string, tree *RawTree, alloc *IndexAllocator, overrides map[string]any) (reflect.Value, error) {
	if tree == nil {
		var err error
		if tree, err = e.load(rec, files); err != nil {
			return reflect.Value{}, err
		}
	}

	ctx := &bindContext{section: "", files: files, alloc: alloc, overrides: overrides}
	if rec.evalEnv {
		ctx.env = e.env
	}
	ptr, err := e.binder.bind(rec, "", unscopedValues(tree), ctx)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("group %s: %w", rec.name, err)
	}
	out := ptr.Elem()

	resolved := make(map[reflect.Type]*Resolution)
	consumed := make(map[reflect.Type]map[string]bool)
	for _, m := range rec.members {
		sub, err := e.recordFor(m.elem)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("group %s: field %s: %w", rec.name, m.name, err)
		}

		if sub.group {
			if m.kind != memberValue && m.kind != memberPointer {
				return reflect.Value{}, fmt.Errorf("group %s: field %s: nested groups must be struct or pointer fields", rec.name, m.name)
			}
			v, err := e.compose(sub, files, e.treeFor(sub, tree), alloc, nil)
			if err != nil {
				return reflect.Value{}, fmt.Errorf("group %s: field %s: %w", rec.name, m.name, err)
			}
			assignOne(out.FieldByIndex(m.index), m.kind, v)
			continue
		}

		res, ok := resolved[m.elem]
		if !ok {
			subTree := e.treeFor(sub, tree)
			if subTree != tree {
				subTree, err = e.load(sub, files)
				if err != nil {
					return reflect.Value{}, fmt.Errorf("group %s: field %s: %w", rec.name, m.name, err)
				}
			}
			res, err = e.resolveTree(sub, subTree, files, alloc, nil)
			if err != nil {
				return reflect.Value{}, fmt.Errorf("group %s: field %s: %w", rec.name, m.name, err)
			}
			resolved[m.elem] = res
			consumed[m.elem] = make(map[string]bool)
		}
		used := consumed[m.elem]

		field := out.FieldByIndex(m.index)
		switch m.kind {
		case memberValue, memberPointer:
			inst, found := pickInstance(res, m.key)
			if !found {
				e.logger.Debug("group field left unset, no matching section",
					zap.String("group", rec.name),
					zap.String("field", m.name),
					zap.String("record", sub.name))
				continue
			}
			used[inst.Label] = true
			assignOne(field, m.kind, reflect.ValueOf(inst.Value))

		case memberSlice:
			slice := reflect.MakeSlice(field.Type(), 0, len(res.Instances))
			for _, inst := range res.Instances {
				used[inst.Label] = true
				v := reflect.ValueOf(inst.Value)
				if field.Type().Elem().Kind() != reflect.Pointer {
					v = v.Elem()
				}
				slice = reflect.Append(slice, v)
			}
			field.Set(slice)

		case memberMap:
			mv := reflect.MakeMapWithSize(field.Type(), len(res.Instances))
			for _, inst := range res.Instances {
				used[inst.Label] = true
				mv.SetMapIndex(reflect.ValueOf(inst.Label).Convert(field.Type().Key()), reflect.ValueOf(inst.Value).Elem())
			}
			field.Set(mv)
		}
	}

	for t, res := range resolved {
		if res.Mode != ModeNamed {
			continue
		}
		for _, inst := range res.Instances {
			if !consumed[t][inst.Label] {
				e.logger.Warn("dropping resolved section with no matching group field",
					zap.String("group", rec.name),
					zap.String("record", res.Record.name),
					zap.String("section", inst.Label))
			}
		}
	}
	return ptr, nil
}

// treeFor returns the shared tree unless sub reads from its own in-memory or
// custom source.
func (e *Engine) treeFor(sub *Record, shared *RawTree) *RawTree {
	if sub.loader == LoaderDict || sub.loader == LoaderCustom {
		return nil
	}
	return shared
}

// pickInstance selects the instance for a struct field: single and chain
// results have exactly one, named results match on the field key.
func pickInstance(res *Resolution, key string) (Instance, bool) {
	if len(res.Instances) == 0 {
		return Instance{}, false
	}
	if res.Mode != ModeNamed {
		return res.Instances[0], true
	}
	for _, inst := range res.Instances {
		if inst.Label == key {
			return inst, true
		}
	}
	if len(res.Instances) == 1 && res.Instances[0].Label == res.Record.name {
		return res.Instances[0], true
	}
	return Instance{}, false
}

// assignOne stores a resolved instance pointer into a struct or pointer field.
func assignOne(field reflect.Value, kind memberKind, ptr reflect.Value) {
	if kind == memberPointer {
		field.Set(ptr)
		return
	}
	field.Set(ptr.Elem())
}

// unscopedValues merges the "" sections of every file, later files winning.
func unscopedValues(tree *RawTree) map[string]any {
	values := make(map[string]any)
	for _, ft := range tree.Files() {
		if s, ok := ft.Section(""); ok {
			for k, v := range s.Map() {
				values[k] = v
			}
		}
	}
	return values
}
