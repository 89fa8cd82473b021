// File: lixenwraith/sectcfg/type.go
package sectcfg

import (
	"fmt"

	"github.com/spf13/cast"
)

// String retrieves a raw value as a string. Missing keys are an error; nil reads as "".
func (s *Section) String(key string) (string, error) {
	val, found := s.Get(key)
	if !found {
		return "", fmt.Errorf("section [%s]: key not found: %s", s.Name, key)
	}
	return stringify(val), nil
}

// Int64 retrieves a raw value as an int64, converting numeric strings and floats.
func (s *Section) Int64(key string) (int64, error) {
	val, found := s.Get(key)
	if !found {
		return 0, fmt.Errorf("section [%s]: key not found: %s", s.Name, key)
	}
	if val == nil {
		return 0, fmt.Errorf("section [%s]: value for %s is nil, cannot convert to int64", s.Name, key)
	}
	i, err := cast.ToInt64E(val)
	if err != nil {
		return 0, fmt.Errorf("section [%s]: cannot convert %s (%T) to int64: %w", s.Name, key, val, err)
	}
	return i, nil
}

// Bool retrieves a raw value as a bool. Numbers read as non-zero = true.
func (s *Section) Bool(key string) (bool, error) {
	val, found := s.Get(key)
	if !found {
		return false, fmt.Errorf("section [%s]: key not found: %s", s.Name, key)
	}
	if val == nil {
		return false, fmt.Errorf("section [%s]: value for %s is nil, cannot convert to bool", s.Name, key)
	}
	b, err := cast.ToBoolE(val)
	if err != nil {
		return false, fmt.Errorf("section [%s]: cannot convert %s (%T) to bool: %w", s.Name, key, val, err)
	}
	return b, nil
}

// Float64 retrieves a raw value as a float64.
func (s *Section) Float64(key string) (float64, error) {
	val, found := s.Get(key)
	if !found {
		return 0, fmt.Errorf("section [%s]: key not found: %s", s.Name, key)
	}
	if val == nil {
		return 0, fmt.Errorf("section [%s]: value for %s is nil, cannot convert to float64", s.Name, key)
	}
	f, err := cast.ToFloat64E(val)
	if err != nil {
		return 0, fmt.Errorf("section [%s]: cannot convert %s (%T) to float64: %w", s.Name, key, val, err)
	}
	return f, nil
}
