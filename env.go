// FILE: lixenwraith/sectcfg/env.go
package sectcfg

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// EnvTransformFunc converts a field key to an environment variable name
type EnvTransformFunc func(key string) string

// envSource answers field lookups for the environment overlay. The process
// environment is consulted first, then values read from .env files.
type envSource struct {
	lookup    func(string) (string, bool)
	dotenv    map[string]string
	transform func(prefix string) EnvTransformFunc
}

func newEnvSource(lookup func(string) (string, bool), dotenvFiles ...string) (*envSource, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	s := &envSource{lookup: lookup, transform: defaultEnvTransform}
	if len(dotenvFiles) > 0 {
		vars, err := godotenv.Read(dotenvFiles...)
		if err != nil {
			return nil, fmt.Errorf("failed to read env files: %w", err)
		}
		s.dotenv = vars
	}
	return s, nil
}

// names lists the variable names tried for a key: prefix+key as written,
// then the upper-cased form with '.' and '-' turned into '_'.
func (s *envSource) names(prefix, key string) []string {
	exact := prefix + key
	upper := s.transform(prefix)(strings.ReplaceAll(key, "-", "_"))
	if upper == exact {
		return []string{exact}
	}
	return []string{exact, upper}
}

// value returns the overlay value for a field key.
func (s *envSource) value(prefix, key string) (string, bool) {
	names := s.names(prefix, key)
	for _, name := range names {
		if v, ok := s.lookup(name); ok {
			return v, true
		}
	}
	for _, name := range names {
		if v, ok := s.dotenv[name]; ok {
			return v, true
		}
	}
	return "", false
}

// defaultEnvTransform creates the default environment variable transformer
func defaultEnvTransform(prefix string) EnvTransformFunc {
	return func(key string) string {
		env := strings.ReplaceAll(key, ".", "_")
		env = strings.ToUpper(env)
		if prefix != "" {
			env = prefix + env
		}
		return env
	}
}

// substituteEnvVars replaces ${VAR} references with environment values.
// Unset variables expand to the empty string.
func substituteEnvVars(content string, lookup func(string) (string, bool)) string {
	var b strings.Builder
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		varName := content[start+2 : end]
		envValue, _ := lookup(varName)
		b.WriteString(content[:start])
		b.WriteString(envValue)
		content = content[end+1:]
	}
	b.WriteString(content)
	return b.String()
}
