// Package config loads application configuration from YAML or TOML files
// with GOGOL_* environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/deidaraiorek/gogol/internal/source"
)

// Config is the top-level application configuration.
type Config struct {
	Storage  StorageConfig  `yaml:"storage" toml:"storage"`
	Analyzer AnalyzerConfig `yaml:"analyzer" toml:"analyzer"`
	Source   SourceConfig   `yaml:"source" toml:"source"`
	Search   SearchConfig   `yaml:"search" toml:"search"`
	Server   ServerConfig   `yaml:"server" toml:"server"`
	Redis    RedisConfig    `yaml:"redis" toml:"redis"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics" toml:"metrics"`
}

// StorageConfig selects the sqlite driver and database file.
type StorageConfig struct {
	Driver string `yaml:"driver" toml:"driver"`
	Path   string `yaml:"path" toml:"path"`
}

// AnalyzerConfig controls text normalization. The same settings are used
// for documents and queries.
type AnalyzerConfig struct {
	Language      string   `yaml:"language" toml:"language"`
	MinWordLength int      `yaml:"minWordLength" toml:"min_word_length"`
	MaxWordLength int      `yaml:"maxWordLength" toml:"max_word_length"`
	StopWords     []string `yaml:"stopWords" toml:"stop_words"`
}

// SourceConfig locates the raw documents produced by the crawler.
type SourceConfig struct {
	Type string `yaml:"type" toml:"type"`
	Path string `yaml:"path" toml:"path"`
}

// SearchConfig controls result limits.
type SearchConfig struct {
	DefaultLimit int `yaml:"defaultLimit" toml:"default_limit"`
	MaxResults   int `yaml:"maxResults" toml:"max_results"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port" toml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout" toml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout" toml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" toml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowedOrigins" toml:"allowed_origins"`
}

// RedisConfig holds the optional search-result cache settings.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled" toml:"enabled"`
	Addr     string        `yaml:"addr" toml:"addr"`
	Password string        `yaml:"password" toml:"password"`
	DB       int           `yaml:"db" toml:"db"`
	PoolSize int           `yaml:"poolSize" toml:"pool_size"`
	CacheTTL time.Duration `yaml:"cacheTTL" toml:"cache_ttl"`
}

// LoggingConfig controls structured logging level, format and optional file.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
	File   string `yaml:"file" toml:"file"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" toml:"enabled"`
	Port    int  `yaml:"port" toml:"port"`
}

const (
	SourceJSONDir  = source.KindJSONDir
	SourceSpiderDB = source.KindSpiderDB
)

// Load reads a config file (if provided), applies environment overrides and
// validates the result. The file format is chosen by extension.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".toml":
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing toml config %s: %w", path, err)
			}
		case ".yaml", ".yml":
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing yaml config %s: %w", path, err)
			}
		default:
			return nil, fmt.Errorf("config file %s must be .toml, .yaml, or .yml", path)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Driver: "sqlite3",
			Path:   filepath.Join("data", "indexed", "gogol_index.db"),
		},
		Analyzer: AnalyzerConfig{
			Language:      "english",
			MinWordLength: 3,
			MaxWordLength: 50,
		},
		Source: SourceConfig{
			Type: SourceJSONDir,
			Path: filepath.Join("data", "raw"),
		},
		Search: SearchConfig{
			DefaultLimit: 10,
			MaxResults:   100,
		},
		Server: ServerConfig{
			Port:            8000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"http://localhost:4200"},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite3", "sqlite":
	default:
		return fmt.Errorf("storage.driver must be sqlite3 or sqlite, got %q", c.Storage.Driver)
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}
	if c.Analyzer.MinWordLength < 1 {
		return fmt.Errorf("analyzer.minWordLength must be at least 1")
	}
	if c.Analyzer.MaxWordLength < c.Analyzer.MinWordLength {
		return fmt.Errorf("analyzer.maxWordLength (%d) is below minWordLength (%d)",
			c.Analyzer.MaxWordLength, c.Analyzer.MinWordLength)
	}
	switch c.Source.Type {
	case SourceJSONDir, SourceSpiderDB:
	default:
		return fmt.Errorf("source.type must be %s or %s, got %q", SourceJSONDir, SourceSpiderDB, c.Source.Type)
	}
	if c.Search.DefaultLimit < 1 || c.Search.MaxResults < c.Search.DefaultLimit {
		return fmt.Errorf("search limits invalid: defaultLimit=%d maxResults=%d",
			c.Search.DefaultLimit, c.Search.MaxResults)
	}
	return nil
}

// applyEnvOverrides reads GOGOL_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GOGOL_STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("GOGOL_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("GOGOL_ANALYZER_LANGUAGE"); v != "" {
		cfg.Analyzer.Language = v
	}
	if v := os.Getenv("GOGOL_MIN_WORD_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Analyzer.MinWordLength = n
		}
	}
	if v := os.Getenv("GOGOL_MAX_WORD_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Analyzer.MaxWordLength = n
		}
	}
	if v := os.Getenv("GOGOL_SOURCE_TYPE"); v != "" {
		cfg.Source.Type = v
	}
	if v := os.Getenv("GOGOL_SOURCE_PATH"); v != "" {
		cfg.Source.Path = v
	}
	if v := os.Getenv("GOGOL_RESULTS_PER_PAGE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Search.DefaultLimit = n
		}
	}
	if v := os.Getenv("GOGOL_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Search.MaxResults = n
		}
	}
	if v := os.Getenv("GOGOL_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("GOGOL_REDIS_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Redis.Enabled = enabled
		}
	}
	if v := os.Getenv("GOGOL_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("GOGOL_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("GOGOL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("GOGOL_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("GOGOL_LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}
	if v := os.Getenv("GOGOL_METRICS_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Metrics.Enabled = enabled
		}
	}
}
