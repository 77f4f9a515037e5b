package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/deidaraiorek/gogol/internal/config"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Analyzer.MinWordLength != 3 || cfg.Analyzer.MaxWordLength != 50 {
		t.Errorf("unexpected word length bounds: %+v", cfg.Analyzer)
	}
	if cfg.Search.DefaultLimit != 10 || cfg.Search.MaxResults != 100 {
		t.Errorf("unexpected search limits: %+v", cfg.Search)
	}
	if cfg.Storage.Driver != "sqlite3" {
		t.Errorf("Storage.Driver = %q, want sqlite3", cfg.Storage.Driver)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "gogol.yaml", `
storage:
  driver: sqlite
  path: /tmp/idx.db
analyzer:
  language: french
  minWordLength: 2
server:
  port: 9000
  writeTimeout: 5s
redis:
  enabled: true
  cacheTTL: 2m
`)
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.Path != "/tmp/idx.db" {
		t.Errorf("unexpected storage: %+v", cfg.Storage)
	}
	if cfg.Analyzer.Language != "french" || cfg.Analyzer.MinWordLength != 2 {
		t.Errorf("unexpected analyzer: %+v", cfg.Analyzer)
	}
	if cfg.Analyzer.MaxWordLength != 50 {
		t.Errorf("MaxWordLength = %d, want default 50", cfg.Analyzer.MaxWordLength)
	}
	if cfg.Server.Port != 9000 || cfg.Server.WriteTimeout != 5*time.Second {
		t.Errorf("unexpected server: %+v", cfg.Server)
	}
	if !cfg.Redis.Enabled || cfg.Redis.CacheTTL != 2*time.Minute {
		t.Errorf("unexpected redis: %+v", cfg.Redis)
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "gogol.toml", `
[storage]
path = "/tmp/other.db"

[search]
default_limit = 5
max_results = 20

[source]
type = "spider"
path = "/tmp/spider.db"
`)
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Storage.Path != "/tmp/other.db" {
		t.Errorf("Storage.Path = %q", cfg.Storage.Path)
	}
	if cfg.Search.DefaultLimit != 5 || cfg.Search.MaxResults != 20 {
		t.Errorf("unexpected search: %+v", cfg.Search)
	}
	if cfg.Source.Type != config.SourceSpiderDB {
		t.Errorf("Source.Type = %q, want %q", cfg.Source.Type, config.SourceSpiderDB)
	}
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	path := writeFile(t, "gogol.ini", "x=1")
	if _, err := config.Load(path); err == nil {
		t.Fatal("expected error for .ini config")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GOGOL_STORAGE_PATH", "/tmp/env.db")
	t.Setenv("GOGOL_MIN_WORD_LENGTH", "4")
	t.Setenv("GOGOL_REDIS_ENABLED", "true")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Storage.Path != "/tmp/env.db" {
		t.Errorf("Storage.Path = %q", cfg.Storage.Path)
	}
	if cfg.Analyzer.MinWordLength != 4 {
		t.Errorf("MinWordLength = %d, want 4", cfg.Analyzer.MinWordLength)
	}
	if !cfg.Redis.Enabled {
		t.Error("expected redis enabled from env")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"unknown driver", func(c *config.Config) { c.Storage.Driver = "postgres" }},
		{"empty path", func(c *config.Config) { c.Storage.Path = "" }},
		{"max below min", func(c *config.Config) { c.Analyzer.MaxWordLength = 1 }},
		{"unknown source", func(c *config.Config) { c.Source.Type = "s3" }},
		{"zero limit", func(c *config.Config) { c.Search.DefaultLimit = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
