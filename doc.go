// File: lixenwraith/sectcfg/doc.go

// Package sectcfg resolves typed configuration records from sectioned sources:
// INI files, YAML, TOML and JSON documents, or in-memory section maps.
//
// A record is a Go struct whose fields are described by struct tags or by
// explicit Field specs. Each record names the sections it is read from; the
// engine loads the raw sections, selects the matching ones, and builds one
// instance per match, per list element, or one merged instance in chain mode.
//
// Features:
//   - Field aliases: the last present alias wins
//   - Defaults, default factories and required keys
//   - Literal or regular-expression section matching
//   - Named, list and chain resolution, optional empty results
//   - Environment overlay with .env files
//   - Validators run on raw values, validate rules on coerced values;
//     rules on an unset pointer field are skipped unless they require it
//   - Groups composing several records from one shared source tree
//   - Serialization back to INI, YAML or TOML
//
// Quick Start:
//
//	type ServerConfig struct {
//	    Host string `ini:"host" default:"localhost"`
//	    Port int    `ini:"port" default:"8080" validate:"min=1,max=65535"`
//	}
//
//	srv, err := sectcfg.Load[ServerConfig]("app.ini") // reads section [server]
//
// Multiple instances:
//
//	type UpstreamConfig struct {
//	    Name sectcfg.SectionName
//	    URL  string `ini:"url,required" alias:"endpoint"`
//	}
//
//	rec, _ := sectcfg.Define[UpstreamConfig](sectcfg.WithSectionPattern(`upstream\..*`))
//	res, err := sectcfg.New().Resolve(rec, sectcfg.FromFiles("app.ini"))
//	upstreams, err := sectcfg.AsNamed[UpstreamConfig](res)
//
// Engine options are set with the Builder:
//
//	e, err := sectcfg.NewBuilder().
//	    WithLogger(logger).
//	    WithFiles("base.ini", "local.ini").
//	    WithDotEnv(".env").
//	    WithRecord(sectcfg.Define[ServerConfig](sectcfg.WithEnv("APP_"))).
//	    Build()
//
// Thread Safety:
// The engine registry is guarded by a read-write mutex. An IndexAllocator
// passed with WithIndexAllocator must not be shared between concurrent calls.
package sectcfg
