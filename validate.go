// FILE: lixenwraith/sectcfg/validate.go
package sectcfg

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Values is the working value set of one instance, keyed by field key.
// Validators may read and modify it.
type Values map[string]any

// FieldKey is injected into adapted validators as the key being validated.
type FieldKey string

// ValidationContext is passed to validators. Values is live: changes made by a
// validator are seen by the validators that run after it.
type ValidationContext struct {
	Record  *Record
	Section string
	Values  Values
	Key     string
	Value   any
}

// Validator checks a raw value before coercion. The returned value replaces
// the working value of the field.
type Validator interface {
	Validate(ctx *ValidationContext) (any, error)
}

// ValidatorFunc adapts a plain function to Validator.
type ValidatorFunc func(ctx *ValidationContext) (any, error)

func (f ValidatorFunc) Validate(ctx *ValidationContext) (any, error) { return f(ctx) }

var (
	validationContextType = reflect.TypeOf((*ValidationContext)(nil))
	recordPtrType         = reflect.TypeOf((*Record)(nil))
	valuesType            = reflect.TypeOf(Values(nil))
	fieldKeyType          = reflect.TypeOf(FieldKey(""))
	errorType             = reflect.TypeOf((*error)(nil)).Elem()
)

// paramSource tells where an adapted validator argument comes from.
type paramSource int

const (
	fromContext paramSource = iota
	fromRecord
	fromValues
	fromKey
	fromRaw
)

// adaptedValidator calls an arbitrary function, injecting arguments by type.
type adaptedValidator struct {
	fn      reflect.Value
	name    string
	params  []paramSource
	rawType reflect.Type
	// results: 0 = none, 1 = value, 2 = value+error, 3 = error only
	results int
}

// AdaptValidator turns fn into a Validator. Parameters of type *ValidationContext,
// *Record, Values and FieldKey are injected from the context. At most one other
// parameter is allowed; it receives the field's raw value, which is removed from
// the value set for the duration of the call and converted to the parameter type.
// Supported results are (T), (T, error) and (error); with (error) the working
// value is kept, and when the raw value was popped it is restored.
func AdaptValidator(fn any) (Validator, error) {
	switch v := fn.(type) {
	case nil:
		return nil, errors.New("validator cannot be nil")
	case Validator:
		return v, nil
	case func(*ValidationContext) (any, error):
		return ValidatorFunc(v), nil
	}

	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func {
		return nil, fmt.Errorf("validator must be a function, got %T", fn)
	}
	ft := rv.Type()
	av := &adaptedValidator{fn: rv, name: funcName(rv)}

	var free []string
	for i := 0; i < ft.NumIn(); i++ {
		pt := ft.In(i)
		if ft.IsVariadic() && i == ft.NumIn()-1 {
			free = append(free, "..."+pt.Elem().String())
			continue
		}
		switch pt {
		case validationContextType:
			av.params = append(av.params, fromContext)
		case recordPtrType:
			av.params = append(av.params, fromRecord)
		case valuesType:
			av.params = append(av.params, fromValues)
		case fieldKeyType:
			av.params = append(av.params, fromKey)
		default:
			av.params = append(av.params, fromRaw)
			av.rawType = pt
			free = append(free, pt.String())
		}
	}
	if len(free) > 1 || (len(free) == 1 && ft.IsVariadic()) {
		return nil, &AmbiguousValidatorSignatureError{Func: av.name, Params: free}
	}

	switch {
	case ft.NumOut() == 0:
		av.results = 0
	case ft.NumOut() == 1 && ft.Out(0) == errorType:
		av.results = 3
	case ft.NumOut() == 1:
		av.results = 1
	case ft.NumOut() == 2 && ft.Out(1) == errorType:
		av.results = 2
	default:
		return nil, fmt.Errorf("validator %s: unsupported results %s, want (T), (T, error) or (error)", av.name, ft)
	}
	return av, nil
}

func (v *adaptedValidator) Validate(ctx *ValidationContext) (any, error) {
	args := make([]reflect.Value, len(v.params))
	popped := false
	for i, src := range v.params {
		switch src {
		case fromContext:
			args[i] = reflect.ValueOf(ctx)
		case fromRecord:
			args[i] = reflect.ValueOf(ctx.Record)
		case fromValues:
			args[i] = reflect.ValueOf(ctx.Values)
		case fromKey:
			args[i] = reflect.ValueOf(FieldKey(ctx.Key))
		case fromRaw:
			raw := ctx.Value
			if ctx.Values != nil {
				delete(ctx.Values, ctx.Key)
				popped = true
			}
			arg, err := defaultBinder.convert(raw, v.rawType)
			if err != nil {
				if popped {
					ctx.Values[ctx.Key] = raw
				}
				return nil, fmt.Errorf("validator %s: %w", v.name, err)
			}
			args[i] = arg
		}
	}

	out := v.fn.Call(args)
	switch v.results {
	case 1:
		return out[0].Interface(), nil
	case 2:
		if err, _ := out[1].Interface().(error); err != nil {
			return nil, err
		}
		return out[0].Interface(), nil
	case 3:
		if err, _ := out[0].Interface().(error); err != nil {
			return nil, err
		}
	}
	if popped {
		ctx.Values[ctx.Key] = ctx.Value
	}
	return ctx.Value, nil
}

func funcName(fn reflect.Value) string {
	if f := runtime.FuncForPC(fn.Pointer()); f != nil {
		return f.Name()
	}
	return fn.Type().String()
}

// newRuleValidator returns the go-playground validator used for `validate` rules.
func newRuleValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// checkRule applies a go-playground rule to a coerced field value. A nil
// pointer is an absent optional value and only fails rules that require it.
func checkRule(rules *validator.Validate, f *Field, v reflect.Value) error {
	if f.Rule == "" {
		return nil
	}
	if v.Kind() == reflect.Pointer && v.IsNil() && !strings.Contains(f.Rule, "required") {
		return nil
	}
	if err := rules.Var(v.Interface(), f.Rule); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &ValidationError{Field: f.Key, Err: fmt.Errorf("rule %q failed on value %v", fe.Tag()+paramSuffix(fe.Param()), fe.Value())}
		}
		return &ValidationError{Field: f.Key, Err: err}
	}
	return nil
}

func paramSuffix(p string) string {
	if p == "" {
		return ""
	}
	return "=" + p
}
