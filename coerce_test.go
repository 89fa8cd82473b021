// FILE: lixenwraith/sectcfg/coerce_test.go
package sectcfg

import (
	"errors"
	"fmt"
	"math"
	"net"
	"net/netip"
	"net/url"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var anyType = reflect.TypeOf((*any)(nil)).Elem()

func convert(t *testing.T, raw any, target any) any {
	t.Helper()
	v, err := defaultBinder.convert(raw, reflect.TypeOf(target))
	require.NoError(t, err)
	return v.Interface()
}

func TestCoerceScalars(t *testing.T) {
	tests := []struct {
		name   string
		raw    any
		target any
		want   any
	}{
		{"IntFromString", "8080", 0, 8080},
		{"IntFromInt64", int64(7), 0, 7},
		{"FloatFromString", "2.5", 0.0, 2.5},
		{"StringFromInt", int64(42), "", "42"},
		{"StringFromFloat", 1e21, "", "1000000000000000000000"},
		{"BoolYes", "yes", false, true},
		{"BoolOff", "off", false, false},
		{"BoolTrue", "true", false, true},
		{"Duration", "1m30s", time.Duration(0), 90 * time.Second},
		{"Bytes", "abc", []byte(nil), []byte("abc")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, convert(t, tt.raw, tt.target))
		})
	}

	t.Run("Invalid", func(t *testing.T) {
		_, err := defaultBinder.convert("eighty", reflect.TypeOf(0))
		assert.Error(t, err)
	})
}

func TestCoerceNetworkTypes(t *testing.T) {
	ip := convert(t, "192.168.1.10", net.IP(nil)).(net.IP)
	assert.True(t, ip.Equal(net.ParseIP("192.168.1.10")))

	addr := convert(t, "::1", netip.Addr{}).(netip.Addr)
	assert.Equal(t, netip.MustParseAddr("::1"), addr)

	ipnet := convert(t, "10.0.0.0/8", net.IPNet{}).(net.IPNet)
	assert.Equal(t, "10.0.0.0/8", ipnet.String())

	u := convert(t, "https://example.com/path", url.URL{}).(url.URL)
	assert.Equal(t, "example.com", u.Host)

	_, err := defaultBinder.convert("not-an-ip", reflect.TypeOf(netip.Addr{}))
	assert.Error(t, err)
}

func TestCoerceContainers(t *testing.T) {
	t.Run("PointerOptional", func(t *testing.T) {
		p := convert(t, "5", (*int)(nil)).(*int)
		require.NotNil(t, p)
		assert.Equal(t, 5, *p)
		assert.Nil(t, convert(t, nil, (*int)(nil)).(*int))
	})

	t.Run("SliceFromFlowList", func(t *testing.T) {
		assert.Equal(t, []int{1, 2}, convert(t, "[1, 2]", []int(nil)))
	})

	t.Run("SliceFromCommaList", func(t *testing.T) {
		assert.Equal(t, []int{1, 2}, convert(t, "1, 2", []int(nil)))
		assert.Equal(t, []string{"a", "b c"}, convert(t, "a,b c", []string(nil)))
	})

	t.Run("SliceFromList", func(t *testing.T) {
		assert.Equal(t, []string{"x", "1"}, convert(t, []any{"x", int64(1)}, []string(nil)))
		assert.Equal(t, []string{"solo"}, convert(t, "solo", []string(nil)))
		assert.Equal(t, []string{}, convert(t, "", []string(nil)))
	})

	t.Run("ArrayNeedsExactLength", func(t *testing.T) {
		assert.Equal(t, [2]int{3, 4}, convert(t, "[3, 4]", [2]int{}))

		_, err := defaultBinder.convert("1,2,3", reflect.TypeOf([2]int{}))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "got 3")
	})

	t.Run("MapFromFlowMap", func(t *testing.T) {
		assert.Equal(t, map[string]int{"a": 1, "b": 2}, convert(t, "{a: 1, b: 2}", map[string]int(nil)))
		assert.Equal(t, map[string]int{"a": 1}, convert(t, map[string]any{"a": "1"}, map[string]int(nil)))

		_, err := defaultBinder.convert("a=1", reflect.TypeOf(map[string]int(nil)))
		assert.Error(t, err)
	})

	t.Run("ElementErrorNamesIndex", func(t *testing.T) {
		_, err := defaultBinder.convert("[1, x]", reflect.TypeOf([]int(nil)))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "element 1")
	})
}

func TestCoerceInference(t *testing.T) {
	tests := []struct {
		raw  string
		want any
	}{
		{"42", int64(42)},
		{"2.5", 2.5},
		{"true", true},
		{"FALSE", false},
		{"'quoted'", "quoted"},
		{`"double"`, "double"},
		{"[1, b]", []any{int64(1), "b"}},
		{"{k: v}", map[string]any{"k": "v"}},
		{"plain", "plain"},
		{"inf", "inf"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			v, err := defaultBinder.convert(tt.raw, anyType)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Interface())
		})
	}

	t.Run("TypedTargetsAreNotInferred", func(t *testing.T) {
		assert.Equal(t, "42", convert(t, "42", ""))
	})

	t.Run("NonStringPassesThrough", func(t *testing.T) {
		v, err := defaultBinder.convert(int64(3), anyType)
		require.NoError(t, err)
		assert.Equal(t, int64(3), v.Interface())
	})
}

func TestCoerceUnion(t *testing.T) {
	f, err := NewField("Workers", anyType, WithUnion(reflect.TypeOf(0), "auto", nil))
	require.NoError(t, err)

	v, err := defaultBinder.convertField(nil, f, "12")
	require.NoError(t, err)
	assert.Equal(t, 12, v.Interface())

	v, err = defaultBinder.convertField(nil, f, "auto")
	require.NoError(t, err)
	assert.Equal(t, "auto", v.Interface())

	v, err = defaultBinder.convertField(nil, f, nil)
	require.NoError(t, err)
	assert.Nil(t, v.Interface())

	t.Run("NoArmMatches", func(t *testing.T) {
		strict, err := NewField("Workers", anyType, WithUnion(reflect.TypeOf(0), "auto"))
		require.NoError(t, err)

		_, err = defaultBinder.convertField(nil, strict, "many")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrTypeCoercion))
		assert.Contains(t, err.Error(), "no union arm matched")

		var tce *TypeCoercionError
		require.True(t, errors.As(err, &tce))
		assert.Equal(t, "workers", tce.Field)
		assert.Equal(t, "string", tce.RawType)
	})
}

func TestMilliTime(t *testing.T) {
	t.Run("Construct", func(t *testing.T) {
		m, err := NewMilliTime(2024, time.March, 5, 10, 20, 30, 999, nil)
		require.NoError(t, err)
		assert.Equal(t, 999, m.Millisecond())
		assert.Equal(t, "2024-03-05T10:20:30.999Z", m.String())

		_, err = NewMilliTime(2024, time.March, 5, 10, 20, 30, 1000, nil)
		assert.True(t, errors.Is(err, ErrMillisecondRange))
		_, err = NewMilliTime(2024, time.March, 5, 10, 20, 30, -1, nil)
		assert.True(t, errors.Is(err, ErrMillisecondRange))
	})

	t.Run("AlwaysThreeDigits", func(t *testing.T) {
		m, err := NewMilliTime(2024, time.January, 1, 0, 0, 0, 5, time.FixedZone("X", 2*3600))
		require.NoError(t, err)
		assert.Equal(t, "2024-01-01T00:00:00.005+02:00", m.String())

		m, _ = NewMilliTime(2024, time.January, 1, 0, 0, 0, 0, nil)
		assert.Equal(t, "2024-01-01T00:00:00.000Z", m.String())
	})

	t.Run("Parse", func(t *testing.T) {
		m, err := ParseMilliTime("2024-03-05T10:20:30.123Z")
		require.NoError(t, err)
		assert.Equal(t, 123, m.Millisecond())

		m, err = ParseMilliTime("2024-03-05 10:20:30")
		require.NoError(t, err)
		assert.Equal(t, time.UTC, m.Time().Location())

		_, err = ParseMilliTime("2024-03-05T10:20:30.1234Z")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sub-millisecond")

		_, err = ParseMilliTime("yesterday")
		assert.Error(t, err)
	})

	t.Run("Coerce", func(t *testing.T) {
		m := convert(t, "2024-03-05T10:20:30.250Z", MilliTime{}).(MilliTime)
		assert.Equal(t, 250, m.Millisecond())

		ts := time.Date(2024, 3, 5, 10, 20, 30, 250*int(time.Millisecond), time.UTC)
		m = convert(t, ts, MilliTime{}).(MilliTime)
		assert.True(t, m.Time().Equal(ts))

		_, err := defaultBinder.convert(ts.Add(time.Microsecond), reflect.TypeOf(MilliTime{}))
		assert.Error(t, err)
	})

	t.Run("TextRoundTrip", func(t *testing.T) {
		m, _ := NewMilliTime(2024, time.March, 5, 10, 20, 30, 7, nil)
		text, err := m.MarshalText()
		require.NoError(t, err)

		var back MilliTime
		require.NoError(t, back.UnmarshalText(text))
		assert.True(t, m.Equal(back))
	})
}

func TestCoerceNestedRecord(t *testing.T) {
	srv := convert(t, map[string]any{"host": "a", "port": "81"}, ServerConfig{}).(ServerConfig)
	assert.Equal(t, ServerConfig{Host: "a", Port: 81, Timeout: 30 * time.Second}, srv)

	srv = convert(t, "{host: b}", ServerConfig{}).(ServerConfig)
	assert.Equal(t, "b", srv.Host)
	assert.Equal(t, 8080, srv.Port)

	_, err := defaultBinder.convert("plain", reflect.TypeOf(ServerConfig{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs a mapping")

	t.Run("FieldOfRecord", func(t *testing.T) {
		type edge struct {
			Name    string        `ini:"name"`
			Backend ServerConfig  `ini:"backend"`
			Extra   *ServerConfig `ini:"extra"`
		}
		tree := TreeOf(map[string]map[string]any{
			"edge": {"name": "e1", "backend": map[string]any{"host": "b", "port": int64(90)}},
		})
		got, err := ResolveAs[edge](New(), WithRawTree(tree))
		require.NoError(t, err)
		assert.Equal(t, "b", got.Backend.Host)
		assert.Equal(t, 90, got.Backend.Port)
		assert.Nil(t, got.Extra)
	})
}

type logLevel int

type logConfig struct {
	Level logLevel `ini:"level"`
}

func parseLogLevel(raw any) (logLevel, error) {
	switch strings.ToLower(stringify(raw)) {
	case "debug":
		return 0, nil
	case "info":
		return 1, nil
	case "error":
		return 2, nil
	}
	return 0, fmt.Errorf("unknown level %v", raw)
}

func TestConverter(t *testing.T) {
	e, err := NewBuilder().WithConverter(TypedConverter(parseLogLevel)).Build()
	require.NoError(t, err)

	tree := TreeOf(map[string]map[string]any{"log": {"level": "ERROR"}})
	got, err := ResolveAs[logConfig](e, WithRawTree(tree))
	require.NoError(t, err)
	assert.Equal(t, logLevel(2), got.Level)

	bad := TreeOf(map[string]map[string]any{"log": {"level": "loud"}})
	_, err = ResolveAs[logConfig](e, WithRawTree(bad))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTypeCoercion))

	t.Run("MissingArguments", func(t *testing.T) {
		_, err := NewBuilder().WithConverter(nil, nil).Build()
		assert.Error(t, err)
	})
}

func TestCoercionErrorsAreCollected(t *testing.T) {
	type pair struct {
		A int `ini:"a"`
		B int `ini:"b"`
	}
	tree := TreeOf(map[string]map[string]any{"pair": {"a": "x", "b": "y"}})
	_, err := ResolveAs[pair](New(), WithRawTree(tree))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTypeCoercion))
	assert.Contains(t, err.Error(), `field "a"`)
	assert.Contains(t, err.Error(), `field "b"`)
}

func TestCoerceIntegerRange(t *testing.T) {
	tests := []struct {
		name   string
		raw    any
		target any
	}{
		{"Int8Overflow", int64(300), int8(0)},
		{"Int8Underflow", int64(-129), int8(0)},
		{"Int8FromString", "300", int8(0)},
		{"Uint16Negative", int64(-1), uint16(0)},
		{"Uint16Overflow", int64(70000), uint16(0)},
		{"UintFromNegativeFloat", -1.5, uint(0)},
		{"Int64FromHugeFloat", 3.7e19, int64(0)},
		{"Int64FromHugeUint", uint64(math.MaxUint64), int64(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := defaultBinder.convert(tt.raw, reflect.TypeOf(tt.target))
			assert.Error(t, err)
		})
	}

	t.Run("Boundaries", func(t *testing.T) {
		assert.Equal(t, int8(127), convert(t, int64(127), int8(0)))
		assert.Equal(t, int8(-128), convert(t, int64(-128), int8(0)))
		assert.Equal(t, uint16(65535), convert(t, int64(65535), uint16(0)))
		assert.Equal(t, uint64(math.MaxUint64), convert(t, uint64(math.MaxUint64), uint64(0)))
		assert.Equal(t, 3, convert(t, 3.0, 0))
	})

	t.Run("ThroughRecord", func(t *testing.T) {
		type sizedConfig struct {
			Port  uint16 `ini:"port"`
			Level int8   `ini:"level"`
		}
		rec, err := Define[sizedConfig](WithDictSource(map[string]map[string]any{
			"sized": {"port": -1, "level": 300},
		}))
		require.NoError(t, err)

		_, err = New().Resolve(rec)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrTypeCoercion))
		var tce *TypeCoercionError
		require.True(t, errors.As(err, &tce))
		assert.Equal(t, "port", tce.Field)
		assert.Contains(t, err.Error(), "out of range")
		assert.Contains(t, err.Error(), `field "level"`)
	})
}

func TestCoerceStringRoundTrip(t *testing.T) {
	values := []any{
		int64(0),
		int64(-42),
		int64(math.MaxInt64),
		int64(math.MinInt64),
		uint64(math.MaxUint64),
		0.1,
		-2.5,
		1e-40,
		math.MaxFloat64,
		true,
		false,
		net.ParseIP("10.1.2.3"),
		net.ParseIP("2001:db8::7"),
		netip.MustParseAddr("192.168.0.1"),
		netip.MustParseAddr("fe80::1"),
	}
	for _, v := range values {
		s := stringify(v)
		got, err := defaultBinder.convert(s, reflect.TypeOf(v))
		require.NoError(t, err, "%T %q", v, s)
		assert.True(t, Equal(v, got.Interface()), "%T %v -> %q -> %v", v, v, s, got.Interface())
	}
}
