// FILE: lixenwraith/sectcfg/record_test.go
package sectcfg

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type S3Config struct {
	Host string `ini:"host" alias:"endpoint-url,host_base"`
	Key  string `ini:"key,required" alias:"access_key"`
}

type ServerConfig struct {
	Host    string        `ini:"host" default:"localhost"`
	Port    int           `ini:"port" default:"8080" validate:"min=1,max=65535"`
	Timeout time.Duration `ini:"timeout" default:"30s"`
	Secret  string        `ini:"secret,ignore"`
	Skipped string        `ini:"-"`
}

type WorkerSettings struct {
	Name    SectionName
	Threads int     `ini:"threads" default:"2"`
	Index   Ordinal `ini:"index"`
}

func (WorkerSettings) RecordOptions() []Option {
	return []Option{WithSectionPattern(`worker\..+`), AsList(1)}
}

func TestDefine(t *testing.T) {
	t.Run("NameAndFields", func(t *testing.T) {
		rec, err := Define[S3Config]()
		require.NoError(t, err)
		assert.Equal(t, "s3", rec.Name())
		assert.True(t, rec.exact())
		assert.Equal(t, "s3", rec.header())

		host, ok := rec.Field("host")
		require.True(t, ok)
		assert.Equal(t, []string{"endpoint-url", "host_base"}, host.Aliases)
		assert.False(t, host.Required)

		key, ok := rec.Field("key")
		require.True(t, ok)
		assert.True(t, key.Required)
		assert.Equal(t, []string{"access_key"}, key.Aliases)
	})

	t.Run("DefaultTagsAreCoerced", func(t *testing.T) {
		rec, err := Define[ServerConfig]()
		require.NoError(t, err)

		port, ok := rec.Field("port")
		require.True(t, ok)
		v, ok := port.DefaultValue()
		require.True(t, ok)
		assert.Equal(t, 8080, v)
		assert.Equal(t, "min=1,max=65535", port.Rule)

		timeout, _ := rec.Field("timeout")
		v, _ = timeout.DefaultValue()
		assert.Equal(t, 30*time.Second, v)

		secret, ok := rec.Field("secret")
		require.True(t, ok)
		assert.True(t, secret.Ignore)

		_, ok = rec.Field("skipped")
		assert.False(t, ok, "ini:\"-\" fields are not part of the record")
		assert.Len(t, rec.Fields(), 4)
	})

	t.Run("RecordOptionsAndSectionName", func(t *testing.T) {
		rec, err := Define[WorkerSettings]()
		require.NoError(t, err)
		assert.Equal(t, "worker", rec.Name())
		assert.True(t, rec.UsesRegex())
		assert.True(t, rec.IsList())
		assert.Equal(t, 1, rec.ListMin())
		assert.NotNil(t, rec.sectionIdx)

		idx, ok := rec.Field("index")
		require.True(t, ok)
		assert.Equal(t, "worker", idx.Ordinal)

		_, ok = rec.Field("name")
		assert.False(t, ok, "SectionName is not a keyed field")
	})

	t.Run("ExplicitOptionsOverrideTypeOptions", func(t *testing.T) {
		rec, err := Define[WorkerSettings](WithSections("pool"), WithName("pool"))
		require.NoError(t, err)
		assert.False(t, rec.UsesRegex())
		assert.Equal(t, []string{"pool"}, rec.Sections())
		assert.Equal(t, "pool", rec.Name())
	})

	t.Run("BadDefaultTag", func(t *testing.T) {
		type broken struct {
			Port int `default:"eighty"`
		}
		_, err := Define[broken]()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrTypeCoercion))
	})

	t.Run("UnknownTagOption", func(t *testing.T) {
		type broken struct {
			Port int `ini:"port,optional"`
		}
		_, err := Define[broken]()
		assert.Error(t, err)
	})

	t.Run("NotARecord", func(t *testing.T) {
		_, err := NewRecord(reflect.TypeOf(0))
		assert.True(t, errors.Is(err, ErrNotRecord))
		_, err = NewRecord(reflect.TypeOf(time.Time{}))
		assert.True(t, errors.Is(err, ErrNotRecord))
		_, err = NewRecord(reflect.TypeOf(MilliTime{}))
		assert.True(t, errors.Is(err, ErrNotRecord))
	})

	t.Run("FieldValidatorForUnknownKey", func(t *testing.T) {
		_, err := Define[S3Config](WithFieldValidator("nope", func(s string) string { return s }))
		assert.Error(t, err)
	})

	t.Run("WithFieldReplacesSpec", func(t *testing.T) {
		f, err := NewField("Host", reflect.TypeOf(""), WithKey("hostname"), WithAliases("server"))
		require.NoError(t, err)
		rec, err := Define[S3Config](WithField(f))
		require.NoError(t, err)

		_, ok := rec.Field("host")
		assert.False(t, ok)
		got, ok := rec.Field("hostname")
		require.True(t, ok)
		assert.Equal(t, []string{"server"}, got.Aliases)
	})

	t.Run("CustomLoaderWithoutSource", func(t *testing.T) {
		_, err := Define[S3Config](WithLoader(LoaderCustom))
		assert.Error(t, err)
	})
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		typ  reflect.Type
		want string
	}{
		{reflect.TypeOf(S3Config{}), "s3"},
		{reflect.TypeOf(ServerConfig{}), "server"},
		{reflect.TypeOf(WorkerSettings{}), "worker"},
		{reflect.TypeOf(struct{ A int }{}), "record"},
	}
	type HTTPServerConfig struct{}
	tests = append(tests, struct {
		typ  reflect.Type
		want string
	}{reflect.TypeOf(HTTPServerConfig{}), "http_server"})

	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeName(tt.typ), tt.typ.String())
	}
}

func TestGroupMembers(t *testing.T) {
	type app struct {
		Name    string `ini:"name"`
		Server  ServerConfig
		Storage *S3Config
		Workers []WorkerSettings
		Pools   map[string]*S3Config
		Extra   map[string]S3Config
	}

	rec, err := DefineGroup[app]()
	require.NoError(t, err)
	assert.True(t, rec.IsGroup())

	kinds := make(map[string]memberKind)
	for _, m := range rec.members {
		kinds[m.name] = m.kind
	}
	assert.Equal(t, map[string]memberKind{
		"Server":  memberValue,
		"Storage": memberPointer,
		"Workers": memberSlice,
		"Extra":   memberMap,
	}, kinds, "map of pointers is not a member")

	var scalars []string
	for _, f := range rec.scalarFields() {
		scalars = append(scalars, f.Name)
	}
	assert.Equal(t, []string{"Name", "Pools"}, scalars)
}
