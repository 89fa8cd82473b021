// FILE: lixenwraith/sectcfg/field_test.go
package sectcfg

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewField(t *testing.T) {
	stringType := reflect.TypeOf("")

	t.Run("KeyDefaultsToSnakeCase", func(t *testing.T) {
		f, err := NewField("HostBase", stringType)
		require.NoError(t, err)
		assert.Equal(t, "host_base", f.Key)
		assert.Equal(t, []string{"host_base"}, f.lookupKeys())
	})

	t.Run("ConflictingDefaults", func(t *testing.T) {
		_, err := NewField("Tags", reflect.TypeOf([]string{}),
			WithDefault([]string{"a"}),
			WithDefaultFunc(func() any { return []string{"b"} }),
		)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrConflictingDefaults))

		var cde *ConflictingDefaultsError
		require.True(t, errors.As(err, &cde))
		assert.Equal(t, "tags", cde.Field)
	})

	t.Run("RequiredDetection", func(t *testing.T) {
		required, err := NewField("Key", stringType, Required())
		require.NoError(t, err)
		assert.True(t, required.Required)
		assert.False(t, required.HasDefault())

		withDefault, err := NewField("Key", stringType, NoDefault(), WithDefault("x"))
		require.NoError(t, err)
		assert.False(t, withDefault.Required)

		optional, err := NewField("Key", stringType)
		require.NoError(t, err)
		assert.False(t, optional.Required)
		_, ok := optional.DefaultValue()
		assert.False(t, ok)
	})

	t.Run("FactoryReturnsFreshValues", func(t *testing.T) {
		f, err := NewField("Tags", reflect.TypeOf([]string{}),
			WithDefaultFunc(func() any { return []string{} }))
		require.NoError(t, err)

		a, ok := f.DefaultValue()
		require.True(t, ok)
		b, _ := f.DefaultValue()
		as := append(a.([]string), "x")
		assert.Equal(t, []string{"x"}, as)
		assert.Empty(t, b)
	})

	t.Run("ContainerDefaultsAreCopied", func(t *testing.T) {
		f, err := NewField("Opts", reflect.TypeOf(map[string][]int{}),
			WithDefault(map[string][]int{"x": {1, 2}}))
		require.NoError(t, err)

		a, _ := f.DefaultValue()
		a.(map[string][]int)["x"][0] = 99
		a.(map[string][]int)["y"] = nil

		b, _ := f.DefaultValue()
		assert.Equal(t, map[string][]int{"x": {1, 2}}, b)
	})

	t.Run("UnionNeedsInterface", func(t *testing.T) {
		_, err := NewField("Mode", stringType, WithUnion("a", "b"))
		assert.Error(t, err)

		f, err := NewField("Mode", reflect.TypeOf((*any)(nil)).Elem(), WithUnion("a", nil))
		require.NoError(t, err)
		assert.Len(t, f.Union, 2)
	})

	t.Run("InvalidInput", func(t *testing.T) {
		_, err := NewField("", stringType)
		assert.Error(t, err)
		_, err = NewField("Host", nil)
		assert.Error(t, err)
		_, err = NewField("Host", stringType, WithAliases("a", ""))
		assert.Error(t, err)
	})
}

func TestPickAlias(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]any
		aliases []string
		want    any
		found   bool
	}{
		{
			name:    "LastPresentWins",
			values:  map[string]any{"endpoint-url": "a", "host_base": "b"},
			aliases: []string{"endpoint-url", "host_base"},
			want:    "b",
			found:   true,
		},
		{
			name:    "EmptyStringIsAbsent",
			values:  map[string]any{"endpoint-url": "a", "host_base": ""},
			aliases: []string{"endpoint-url", "host_base"},
			want:    "a",
			found:   true,
		},
		{
			name:    "NilIsAbsent",
			values:  map[string]any{"endpoint-url": nil, "host_base": "b"},
			aliases: []string{"host_base", "endpoint-url"},
			want:    "b",
			found:   true,
		},
		{
			name:    "NonePresent",
			values:  map[string]any{"other": "x"},
			aliases: []string{"host"},
			found:   false,
		},
		{
			name:    "ZeroValuesArePresent",
			values:  map[string]any{"a": 0, "b": false},
			aliases: []string{"a", "b"},
			want:    false,
			found:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := pickAlias(tt.values, tt.aliases)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLookupKeysOrder(t *testing.T) {
	f, err := NewField("Host", reflect.TypeOf(""), WithAliases("endpoint-url", "host_base"))
	require.NoError(t, err)
	assert.Equal(t, []string{"host", "endpoint-url", "host_base"}, f.lookupKeys())

	// canonical key listed explicitly keeps its declared position
	f, err = NewField("Host", reflect.TypeOf(""), WithAliases("endpoint-url", "host"))
	require.NoError(t, err)
	assert.Equal(t, []string{"endpoint-url", "host"}, f.lookupKeys())
}
