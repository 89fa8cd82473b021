// FILE: lixenwraith/sectcfg/errors.go
package sectcfg

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// Sentinel errors. Every typed error below matches its sentinel through errors.Is.
var (
	ErrConflictingDefaults   = errors.New("conflicting defaults")
	ErrMissingRequiredKey    = errors.New("missing required key")
	ErrAmbiguousValidator    = errors.New("ambiguous validator signature")
	ErrTypeCoercion          = errors.New("type coercion failed")
	ErrSectionNotFound       = errors.New("section not found")
	ErrUnsupportedSourceType = errors.New("unsupported source type")
	ErrValidation            = errors.New("validation failed")
	ErrNotRecord             = errors.New("type is not a record")
	ErrMillisecondRange      = errors.New("millisecond out of range [0, 999]")
)

// ConflictingDefaultsError is returned when a field declares both a default value
// and a default factory.
type ConflictingDefaultsError struct {
	Field string
}

func (e *ConflictingDefaultsError) Error() string {
	return fmt.Sprintf("field %q: default value and default factory are mutually exclusive", e.Field)
}

func (e *ConflictingDefaultsError) Is(target error) bool { return target == ErrConflictingDefaults }

// MissingRequiredKeyError lists every required key absent after full resolution.
type MissingRequiredKeyError struct {
	Record  string
	Section string
	Keys    []string
	Files   []string
}

func (e *MissingRequiredKeyError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "record %s", e.Record)
	if e.Section != "" {
		fmt.Fprintf(&b, " section [%s]", e.Section)
	}
	fmt.Fprintf(&b, ": missing required key(s): %s", strings.Join(e.Keys, ", "))
	if len(e.Files) > 0 {
		fmt.Fprintf(&b, " (files: %s)", strings.Join(e.Files, ", "))
	}
	return b.String()
}

func (e *MissingRequiredKeyError) Is(target error) bool { return target == ErrMissingRequiredKey }

// AmbiguousValidatorSignatureError is returned by AdaptValidator when more than one
// parameter cannot be injected from the validation context.
type AmbiguousValidatorSignatureError struct {
	Func   string
	Params []string
}

func (e *AmbiguousValidatorSignatureError) Error() string {
	return fmt.Sprintf("validator %s: %d parameters cannot be injected (%s), at most one may receive the raw value",
		e.Func, len(e.Params), strings.Join(e.Params, ", "))
}

func (e *AmbiguousValidatorSignatureError) Is(target error) bool { return target == ErrAmbiguousValidator }

// TypeCoercionError wraps the failure to convert a raw value into a field's declared type.
type TypeCoercionError struct {
	Field   string
	Type    reflect.Type
	RawType string
	Err     error
}

func (e *TypeCoercionError) Error() string {
	return fmt.Sprintf("field %q: cannot convert %s to %s: %v", e.Field, e.RawType, typeName(e.Type), e.Err)
}

func (e *TypeCoercionError) Unwrap() error { return e.Err }

func (e *TypeCoercionError) Is(target error) bool { return target == ErrTypeCoercion }

// SectionNotFoundError is returned when no section matched and empty results are not allowed.
type SectionNotFoundError struct {
	Record   string
	Sections []string
	Files    []string
}

func (e *SectionNotFoundError) Error() string {
	msg := fmt.Sprintf("record %s: no section matched [%s]", e.Record, strings.Join(e.Sections, ", "))
	if len(e.Files) > 0 {
		msg += fmt.Sprintf(" (files: %s)", strings.Join(e.Files, ", "))
	}
	return msg
}

func (e *SectionNotFoundError) Is(target error) bool { return target == ErrSectionNotFound }

// UnsupportedSourceTypeError reports a selection argument of an unsupported shape.
type UnsupportedSourceTypeError struct {
	Arg  string
	Type string
}

func (e *UnsupportedSourceTypeError) Error() string {
	return fmt.Sprintf("%s: unsupported type %s (want string, []string or map of label to string/[]string)", e.Arg, e.Type)
}

func (e *UnsupportedSourceTypeError) Is(target error) bool { return target == ErrUnsupportedSourceType }

// ValidationError wraps a failure returned by a field validator or a rule tag.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %q: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// typeName renders a type for diagnostics, tolerating nil.
func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

// rawTypeName renders the runtime type of a raw value.
func rawTypeName(v any) string {
	if v == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%T", v)
}
