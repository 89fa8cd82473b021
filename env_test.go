// FILE: lixenwraith/sectcfg/env_test.go
package sectcfg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dbConfig struct {
	Host     string `ini:"host"`
	Port     int    `ini:"port"`
	MaxConns int    `ini:"max-conns" default:"10"`
}

func (dbConfig) RecordOptions() []Option {
	return []Option{WithEnv("DB_")}
}

func mapLookup(vars map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}
}

func TestEnvOverlay(t *testing.T) {
	tree := TreeOf(map[string]map[string]any{"db": {"host": "file-host", "port": "5432"}})

	t.Run("UpperCaseTransform", func(t *testing.T) {
		e, err := NewBuilder().WithEnvLookup(mapLookup(map[string]string{
			"DB_PORT":      "6432",
			"DB_MAX_CONNS": "50",
		})).Build()
		require.NoError(t, err)

		got, err := ResolveAs[dbConfig](e, WithRawTree(tree))
		require.NoError(t, err)
		assert.Equal(t, &dbConfig{Host: "file-host", Port: 6432, MaxConns: 50}, got)
	})

	t.Run("ExactNameFirst", func(t *testing.T) {
		e, err := NewBuilder().WithEnvLookup(mapLookup(map[string]string{
			"DB_host": "exact",
			"DB_HOST": "upper",
		})).Build()
		require.NoError(t, err)

		got, err := ResolveAs[dbConfig](e, WithRawTree(tree))
		require.NoError(t, err)
		assert.Equal(t, "exact", got.Host)
	})

	t.Run("OverridesWin", func(t *testing.T) {
		e, err := NewBuilder().WithEnvLookup(mapLookup(map[string]string{"DB_PORT": "6432"})).Build()
		require.NoError(t, err)

		got, err := ResolveAs[dbConfig](e, WithRawTree(tree), WithOverrides(map[string]any{"port": 7000}))
		require.NoError(t, err)
		assert.Equal(t, 7000, got.Port)
	})

	t.Run("DisabledWithoutWithEnv", func(t *testing.T) {
		type plainDB struct {
			Host string `ini:"host"`
		}
		e, err := NewBuilder().WithEnvLookup(mapLookup(map[string]string{"HOST": "env"})).Build()
		require.NoError(t, err)

		got, err := ResolveAs[plainDB](e, WithRawTree(TreeOf(map[string]map[string]any{"plain": {"host": "file"}})), InSections("plain"))
		require.NoError(t, err)
		assert.Equal(t, "file", got.Host)
	})

	t.Run("ProcessEnvironment", func(t *testing.T) {
		t.Setenv("DB_HOST", "from-process")
		got, err := ResolveAs[dbConfig](New(), WithRawTree(tree))
		require.NoError(t, err)
		assert.Equal(t, "from-process", got.Host)
	})
}

func TestDotEnv(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := writeFile(t, tmpDir, ".env", "DB_HOST=dotenv-host\nDB_PORT=7777\n")
	tree := TreeOf(map[string]map[string]any{"db": {"host": "file-host"}})

	e, err := NewBuilder().
		WithDotEnv(envFile).
		WithEnvLookup(mapLookup(map[string]string{"DB_PORT": "1234"})).
		Build()
	require.NoError(t, err)

	got, err := ResolveAs[dbConfig](e, WithRawTree(tree))
	require.NoError(t, err)
	assert.Equal(t, "dotenv-host", got.Host)
	assert.Equal(t, 1234, got.Port, "process environment wins over .env files")

	t.Run("MissingFile", func(t *testing.T) {
		_, err := NewBuilder().WithDotEnv(tmpDir + "/missing.env").Build()
		assert.Error(t, err)
	})
}

func TestEnvSubstitution(t *testing.T) {
	lookup := mapLookup(map[string]string{"USER": "app", "ZONE": "eu"})

	assert.Equal(t, "app@eu", substituteEnvVars("${USER}@${ZONE}", lookup))
	assert.Equal(t, "x=", substituteEnvVars("x=${UNSET}", lookup))
	assert.Equal(t, "open ${brace", substituteEnvVars("open ${brace", lookup))
	assert.Equal(t, "none", substituteEnvVars("none", lookup))

	t.Run("ThroughRecord", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "db.ini", "[db]\nhost = ${DB_ADDR}\n")
		e, err := NewBuilder().WithEnvLookup(mapLookup(map[string]string{"DB_ADDR": "10.0.0.5"})).Build()
		require.NoError(t, err)

		got, err := ResolveAs[dbConfig](e, FromFiles(path))
		require.NoError(t, err)
		assert.Equal(t, "10.0.0.5", got.Host)
	})
}
