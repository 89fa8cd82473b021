// FILE: lixenwraith/sectcfg/example/main.go
package main

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/lixenwraith/sectcfg"
)

// ServerConfig reads section [server].
type ServerConfig struct {
	Host    string        `ini:"host" default:"localhost"`
	Port    int           `ini:"port" default:"8080" validate:"min=1,max=65535"`
	Timeout time.Duration `ini:"timeout" default:"30s"`
}

// UpstreamConfig reads every [upstream.*] section.
type UpstreamConfig struct {
	Name   sectcfg.SectionName
	URL    string          `ini:"url,required" alias:"endpoint"`
	Weight int             `ini:"weight" default:"1"`
	Index  sectcfg.Ordinal `ini:"index"`
}

func (UpstreamConfig) RecordOptions() []sectcfg.Option {
	return []sectcfg.Option{sectcfg.WithSectionPattern(`upstream\..+`), sectcfg.AsList(1)}
}

// S3Config accepts the key spellings used by different tools.
type S3Config struct {
	Host string `ini:"host" alias:"endpoint-url,host_base"`
	Key  string `ini:"key,required" alias:"access_key"`
}

// AppConfig composes the records above from one file.
type AppConfig struct {
	LogLevel  string `ini:"log_level" default:"info"`
	Server    ServerConfig
	Upstreams []UpstreamConfig
	Storage   *S3Config
}

const content = `log_level = debug

[server]
host = 0.0.0.0
port = 9000

[upstream.primary]
endpoint = http://10.0.0.1:8080
weight = 3

[upstream.backup]
url = http://10.0.0.2:8080

[s3]
endpoint-url = https://s3.example.com
access_key = AKIA-EXAMPLE
`

func main() {
	dir, err := os.MkdirTemp("", "sectcfg-example")
	if err != nil {
		log.Fatalf("❌ Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "app.ini")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		log.Fatalf("❌ Failed to write %s: %v", path, err)
	}
	log.Printf("✅ Wrote %s", path)

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	// =========================================================================
	// PART 1: SINGLE RECORD
	// =========================================================================
	log.Println("---")
	server, err := sectcfg.Load[ServerConfig](path)
	if err != nil {
		log.Fatalf("❌ Failed to load server: %v", err)
	}
	log.Printf("server: %s:%d (timeout %s)", server.Host, server.Port, server.Timeout)

	// =========================================================================
	// PART 2: GROUP WITH ENVIRONMENT OVERLAY
	// =========================================================================
	log.Println("---")
	os.Setenv("APP_PORT", "9443")
	defer os.Unsetenv("APP_PORT")

	e, err := sectcfg.NewBuilder().
		WithLogger(logger).
		WithFiles(path).
		WithRecord(sectcfg.Define[ServerConfig](sectcfg.WithEnv("APP_"))).
		Build()
	if err != nil {
		log.Fatalf("❌ Failed to build engine: %v", err)
	}

	group, err := sectcfg.DefineGroup[AppConfig]()
	if err != nil {
		log.Fatalf("❌ Failed to define group: %v", err)
	}
	res, err := e.Resolve(group)
	if err != nil {
		log.Fatalf("❌ Failed to resolve: %v", err)
	}
	app, err := sectcfg.As[AppConfig](res)
	if err != nil {
		log.Fatalf("❌ Unexpected result: %v", err)
	}
	log.Printf("log level: %s, server port from env: %d", app.LogLevel, app.Server.Port)
	for _, u := range app.Upstreams {
		log.Printf("upstream %s #%d: %s (weight %d)", u.Name, u.Index, u.URL, u.Weight)
	}
	log.Printf("storage: host=%s key=%s", app.Storage.Host, app.Storage.Key)

	// =========================================================================
	// PART 3: SAVE AND COMPARE
	// =========================================================================
	log.Println("---")
	out := filepath.Join(dir, "app.yaml")
	if err := e.Save(out, app, ""); err != nil {
		log.Fatalf("❌ Failed to save: %v", err)
	}
	data, _ := os.ReadFile(out)
	log.Printf("Saved YAML:\n%s", data)

	updated := *app
	updated.LogLevel = "warn"
	log.Printf("Changes:\n%s", e.Diff(app, &updated))
}
