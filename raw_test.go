// FILE: lixenwraith/sectcfg/raw_test.go
package sectcfg

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelect(t *testing.T) {
	t.Run("Shapes", func(t *testing.T) {
		sel, err := Select("a.ini")
		require.NoError(t, err)
		assert.Equal(t, Selection{{Label: "a.ini", Paths: []string{"a.ini"}}}, sel)

		sel, err = Select([]string{"a", "b"})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, sel.Labels())

		sel, err = Select(map[string]string{"z": "zz", "a": "aa"})
		require.NoError(t, err)
		assert.Equal(t, Selection{
			{Label: "a", Paths: []string{"aa"}},
			{Label: "z", Paths: []string{"zz"}},
		}, sel)

		sel, err = Select(map[string][]string{"host": {"endpoint-url", "host_base"}})
		require.NoError(t, err)
		assert.Equal(t, Selection{{Label: "host", Paths: []string{"endpoint-url", "host_base"}}}, sel)

		sel, err = Select(map[string]any{"k": "a", "l": []string{"b", "c"}, "m": []any{"d"}})
		require.NoError(t, err)
		assert.Equal(t, Selection{
			{Label: "k", Paths: []string{"a"}},
			{Label: "l", Paths: []string{"b", "c"}},
			{Label: "m", Paths: []string{"d"}},
		}, sel)

		sel, err = Select(nil)
		require.NoError(t, err)
		assert.Nil(t, sel)
	})

	t.Run("Unsupported", func(t *testing.T) {
		_, err := Select(42)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnsupportedSourceType))

		var use *UnsupportedSourceTypeError
		require.True(t, errors.As(err, &use))
		assert.Equal(t, "int", use.Type)

		_, err = Select(map[string]any{"k": 1})
		assert.True(t, errors.Is(err, ErrUnsupportedSourceType))

		assert.Panics(t, func() { MustSelect(3.5) })
	})
}

func TestSection(t *testing.T) {
	s := NewSection("server")
	s.Set("port", "80")
	s.Set("host", "a")
	s.Set("port", "81")
	assert.Equal(t, []string{"port", "host"}, s.Keys(), "overwrite keeps position")

	v, ok := s.Get("port")
	require.True(t, ok)
	assert.Equal(t, "81", v)

	o := NewSection("server")
	o.Set("tls", true)
	o.Set("host", "b")
	s.Merge(o)
	assert.Equal(t, []string{"port", "host", "tls"}, s.Keys())
	assert.Equal(t, map[string]any{"port": "81", "host": "b", "tls": true}, s.Map())

	s.Delete("host")
	assert.Equal(t, []string{"port", "tls"}, s.Keys())
	assert.Equal(t, 2, s.Len())

	t.Run("TypedAccessors", func(t *testing.T) {
		sec := SectionOf("x", map[string]any{"n": "42", "f": 1.5, "b": "true", "s": 7})
		n, err := sec.Int64("n")
		require.NoError(t, err)
		assert.Equal(t, int64(42), n)

		f, err := sec.Float64("f")
		require.NoError(t, err)
		assert.Equal(t, 1.5, f)

		b, err := sec.Bool("b")
		require.NoError(t, err)
		assert.True(t, b)

		str, err := sec.String("s")
		require.NoError(t, err)
		assert.Equal(t, "7", str)

		_, err = sec.String("missing")
		assert.Error(t, err)
	})
}

func TestRawTree(t *testing.T) {
	tree := NewRawTree()
	base := tree.File("base.ini")
	base.Add(SectionOf("server", map[string]any{"host": "a"}))
	base.Add(SectionOf("server", map[string]any{"port": "80"}))
	tree.File("local.ini").Add(SectionOf("db", map[string]any{"url": "x"}))

	assert.False(t, tree.Empty())
	require.Len(t, tree.Files(), 2)
	sec, ok := base.Section("server")
	require.True(t, ok)
	assert.Equal(t, []string{"host", "port"}, sec.Keys())

	assert.Equal(t, map[string]map[string]map[string]any{
		"base.ini":  {"server": {"host": "a", "port": "80"}},
		"local.ini": {"db": {"url": "x"}},
	}, tree.Map())

	assert.Equal(t, "base.ini:server.host = a\nbase.ini:server.port = 80\nlocal.ini:db.url = x\n", tree.String())

	_, ok = tree.Lookup("missing.ini")
	assert.False(t, ok)
	assert.True(t, NewRawTree().Empty())
}
