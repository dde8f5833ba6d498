// Package config loads the search API's configuration: hardcoded defaults,
// overridden by an optional YAML file, overridden by environment variables.
// Environment variables are the deployment surface; the YAML file exists
// for local development where exporting a dozen variables is noise.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete searchcore configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Server     ServerConfig     `yaml:"server" json:"server"`
	CORS       CORSConfig       `yaml:"cors" json:"cors"`
	Elastic    ElasticConfig    `yaml:"elastic" json:"elastic"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Redis      RedisConfig      `yaml:"redis" json:"redis"`
	Ingest     IngestConfig     `yaml:"ingest" json:"ingest"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" json:"telemetry"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
	// RequestTimeout is loaded but not read by the HTTP server, which
	// applies a fixed 60s per-request timeout.
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// CORSConfig configures cross-origin access for the client front-end.
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins" json:"allowed_origins"`
	AllowedMethods   []string `yaml:"allowed_methods" json:"allowed_methods"`
	AllowedHeaders   []string `yaml:"allowed_headers" json:"allowed_headers"`
	AllowCredentials bool     `yaml:"allow_credentials" json:"allow_credentials"`
}

// ElasticConfig configures the document-store connection.
type ElasticConfig struct {
	Host     string `yaml:"host" json:"host"`
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password" json:"password"`
	// CAPath points at a PEM bundle for a private CA. Empty means the
	// system pool.
	CAPath string `yaml:"ca_path" json:"ca_path"`
	// TLSInsecure disables certificate verification. Dev only.
	TLSInsecure bool `yaml:"tls_insecure" json:"tls_insecure"`
}

// EmbeddingsConfig configures the query embedder.
type EmbeddingsConfig struct {
	// ModelPath is the local model file (EMBEDDINGS_MODEL_PATH). Required.
	ModelPath string `yaml:"model_path" json:"model_path"`
	// Provider selects the embedding backend ("ollama" or "static").
	Provider string `yaml:"provider" json:"provider"`
	// Dimensions is the dense-vector dimension of the articles index.
	Dimensions int `yaml:"dimensions" json:"dimensions"`
	// OllamaHost is the Ollama API endpoint.
	OllamaHost string `yaml:"ollama_host" json:"ollama_host"`
	// OllamaModel overrides the served model name.
	OllamaModel string `yaml:"ollama_model" json:"ollama_model"`
	// CacheSize is the query-embedding LRU capacity.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// RedisConfig configures the stream / batch-store connection.
type RedisConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
}

// Addr returns the host:port dial address.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// IngestConfig configures the stream consumer and the intermediate batch
// store the analyzer writes into.
type IngestConfig struct {
	// Enabled turns the ingest worker on. The read path runs regardless.
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Stream is the notification stream name.
	Stream string `yaml:"stream" json:"stream"`
	// Group is the consumer group name.
	Group string `yaml:"group" json:"group"`
	// BatchKeyPrefix is prepended to article ids to form the intermediate
	// store's keys.
	BatchKeyPrefix string `yaml:"batch_key_prefix" json:"batch_key_prefix"`
}

// TelemetryConfig configures local query-pattern telemetry.
type TelemetryConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// DBPath is the SQLite file telemetry aggregates persist to.
	DBPath string `yaml:"db_path" json:"db_path"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	// Format is "json" or "text".
	Format string `yaml:"format" json:"format"`
	// FilePath enables file logging with rotation when non-empty.
	FilePath string `yaml:"file_path" json:"file_path"`
}

// CurrentVersion is the config schema version.
const CurrentVersion = 1

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8000,
			RequestTimeout: 60 * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins:   []string{},
			AllowedMethods:   []string{"GET"},
			AllowedHeaders:   []string{"Content-Type"},
			AllowCredentials: false,
		},
		Elastic: ElasticConfig{
			Host: "https://localhost:9200",
			User: "elastic",
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "ollama",
			Dimensions: 384,
			CacheSize:  1000,
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: 6379,
		},
		Ingest: IngestConfig{
			Enabled:        true,
			Stream:         "analyzer_articles",
			Group:          "searcher_api",
			BatchKeyPrefix: "analyzed:",
		},
		Telemetry: TelemetryConfig{
			Enabled: false,
			DBPath:  defaultTelemetryPath(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func defaultTelemetryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".searchcore", "telemetry.db")
}

// DefaultConfigPath returns the config file location checked when no
// explicit path is given.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".searchcore", "config.yaml")
}

// Load builds the effective configuration: defaults, then the YAML file at
// path (when path is empty, SEARCHER_CONFIG, then DefaultConfigPath; a
// missing file is fine), then environment variables on top.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		path = os.Getenv("SEARCHER_CONFIG")
	}
	if path == "" {
		path = DefaultConfigPath()
	}
	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// loadYAML merges the file at path into c. A missing file is not an error.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides layers the deployment environment variables over c.
// Variable names follow the deployment contract, not a common prefix:
// ELASTIC_*, REDIS_*, CORS_* and EMBEDDINGS_MODEL_PATH are what operators
// already set for the sibling services.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("EMBEDDINGS_MODEL_PATH"); v != "" {
		c.Embeddings.ModelPath = v
	}

	if v := os.Getenv("ELASTIC_HOST"); v != "" {
		c.Elastic.Host = v
	}
	if v := os.Getenv("ELASTIC_USER"); v != "" {
		c.Elastic.User = v
	}
	if v := os.Getenv("ELASTIC_PASSWORD"); v != "" {
		c.Elastic.Password = v
	}
	if v := os.Getenv("ELASTIC_CA_PATH"); v != "" {
		c.Elastic.CAPath = v
	}
	if v := os.Getenv("ELASTIC_TLS_INSECURE"); v != "" {
		c.Elastic.TLSInsecure = parseBool(v)
	}

	// CORS variables are space-separated lists.
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.CORS.AllowedOrigins = strings.Fields(v)
	}
	if v := os.Getenv("CORS_ALLOWED_METHODS"); v != "" {
		c.CORS.AllowedMethods = strings.Fields(v)
	}
	if v := os.Getenv("CORS_ALLOWED_HEADERS"); v != "" {
		c.CORS.AllowedHeaders = strings.Fields(v)
	}
	if v := os.Getenv("CORS_ALLOW_CREDENTIALS"); v != "" {
		c.CORS.AllowCredentials = parseBool(v)
	}

	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Redis.Port = port
		}
	}
	if v := os.Getenv("REDIS_STREAM"); v != "" {
		c.Ingest.Stream = v
	}
	if v := os.Getenv("REDIS_CONSUMER_GROUP"); v != "" {
		c.Ingest.Group = v
	}
	if v := os.Getenv("BATCH_KEY_PREFIX"); v != "" {
		c.Ingest.BatchKeyPrefix = v
	}
	if v := os.Getenv("INGEST_ENABLED"); v != "" {
		c.Ingest.Enabled = parseBool(v)
	}

	if v := os.Getenv("SERVER_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		c.Logging.FilePath = v
	}

	if v := os.Getenv("TELEMETRY_ENABLED"); v != "" {
		c.Telemetry.Enabled = parseBool(v)
	}
	if v := os.Getenv("TELEMETRY_DB_PATH"); v != "" {
		c.Telemetry.DBPath = v
	}
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true
	default:
		return false
	}
}

// Validate checks the invariants a process cannot start without. Called
// once at startup; a failure here is a startup error, the process exits
// non-zero.
func (c *Config) Validate() error {
	var errs []string

	if c.Embeddings.ModelPath == "" {
		errs = append(errs, "embeddings.model_path is required (set EMBEDDINGS_MODEL_PATH)")
	}
	if c.Embeddings.Dimensions <= 0 {
		errs = append(errs, fmt.Sprintf("embeddings.dimensions must be positive, got %d", c.Embeddings.Dimensions))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be in [1, 65535], got %d", c.Server.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("redis.port must be in [1, 65535], got %d", c.Redis.Port))
	}
	if c.Elastic.Host == "" {
		errs = append(errs, "elastic.host is required")
	}
	if c.Ingest.Enabled {
		if c.Ingest.Stream == "" {
			errs = append(errs, "ingest.stream must be non-empty when ingest is enabled")
		}
		if c.Ingest.Group == "" {
			errs = append(errs, "ingest.group must be non-empty when ingest is enabled")
		}
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "text":
	default:
		errs = append(errs, fmt.Sprintf("logging.format must be json or text, got %q", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// WriteYAML writes the config to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
