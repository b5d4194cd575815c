// Package config provides configuration loading and structs for the ayuda server and CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Harness   HarnessConfig   `yaml:"harness"`
	Language  LanguageConfig  `yaml:"language"`
	Translate TranslateConfig `yaml:"translate"`
	Entity    EntityConfig    `yaml:"entity"`
	Intent    IntentConfig    `yaml:"intent"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	MaxMessageChars int           `yaml:"max_message_chars"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Catalog sources.
const (
	SourceFile   = "file"
	SourceSQLite = "sqlite"
)

// CatalogConfig locates the organization table and its embeddings.
type CatalogConfig struct {
	// Source is "file" (DataPath + EmbeddingsPath) or "sqlite" (DatabasePath).
	Source         string `yaml:"source"`
	DataPath       string `yaml:"data_path"`
	EmbeddingsPath string `yaml:"embeddings_path"`
	DatabasePath   string `yaml:"database_path"`
}

// EmbeddingConfig holds sentence encoder settings.
type EmbeddingConfig struct {
	Provider      string `yaml:"provider"`
	ModelPath     string `yaml:"model_path"`
	TokenizerPath string `yaml:"tokenizer_path"`
	LibraryPath   string `yaml:"library_path"`
	OutputName    string `yaml:"output_name"`
	Pooled        bool   `yaml:"pooled"`
	Dimensions    int    `yaml:"dimensions"`
	MaxTokens     int    `yaml:"max_tokens"`
	CacheSize     int    `yaml:"cache_size"`
}

// SearchConfig bounds top_k.
type SearchConfig struct {
	DefaultTopK int `yaml:"default_top_k"`
	MinTopK     int `yaml:"min_top_k"`
	MaxTopK     int `yaml:"max_top_k"`
}

// HarnessConfig holds the deadlines and worker count of request execution.
type HarnessConfig struct {
	ImportTimeout  time.Duration `yaml:"import_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	Workers        int           `yaml:"workers"`
}

// LanguageConfig tunes language detection.
type LanguageConfig struct {
	MinConfidence float64  `yaml:"min_confidence"`
	Allowed       []string `yaml:"allowed"`
}

// Translation providers.
const (
	TranslateNone     = "none"
	TranslateGlossary = "glossary"
	TranslateOpenAI   = "openai"
)

// TranslateConfig selects the translator and its cache.
type TranslateConfig struct {
	Provider      string        `yaml:"provider"`
	GlossaryPath  string        `yaml:"glossary_path"`
	Model         string        `yaml:"model"`
	APIKey        string        `yaml:"api_key"`
	BaseURL       string        `yaml:"base_url"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxRetries    int           `yaml:"max_retries"`
	CacheSize     int           `yaml:"cache_size"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`
}

// EntityConfig picks the model for languages other than en and es: none, en or es.
type EntityConfig struct {
	DefaultModel string `yaml:"default_model"`
}

// IntentRule maps an intent to its keywords.
type IntentRule struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// IntentConfig overrides the built-in intents. Order is match order.
type IntentConfig struct {
	Rules []IntentRule `yaml:"rules"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read, parsed or validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	cfg.expand(filepath.Dir(path))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given. Relative
// paths resolve against dir.
func Default(dir string) *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	cfg.expand(dir)
	return &cfg
}

func (c *Config) expand(configDir string) {
	c.Catalog.DataPath = expandPath(c.Catalog.DataPath, configDir)
	c.Catalog.EmbeddingsPath = expandPath(c.Catalog.EmbeddingsPath, configDir)
	c.Catalog.DatabasePath = expandPath(c.Catalog.DatabasePath, configDir)
	c.Embedding.ModelPath = expandPath(c.Embedding.ModelPath, configDir)
	c.Embedding.TokenizerPath = expandPath(c.Embedding.TokenizerPath, configDir)
	c.Embedding.LibraryPath = expandPath(c.Embedding.LibraryPath, configDir)
	c.Translate.GlossaryPath = expandPath(c.Translate.GlossaryPath, configDir)
	// Secrets may reference the environment, e.g. api_key: ${OPENAI_API_KEY}.
	c.Translate.APIKey = os.ExpandEnv(c.Translate.APIKey)
	c.Translate.BaseURL = os.ExpandEnv(c.Translate.BaseURL)
	c.Translate.RedisPassword = os.ExpandEnv(c.Translate.RedisPassword)
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	var errs []error
	switch c.Catalog.Source {
	case SourceFile, SourceSQLite:
	default:
		errs = append(errs, fmt.Errorf("catalog.source must be %q or %q, got %q", SourceFile, SourceSQLite, c.Catalog.Source))
	}
	switch c.Embedding.Provider {
	case "onnx", "hash":
	default:
		errs = append(errs, fmt.Errorf("embedding.provider must be onnx or hash, got %q", c.Embedding.Provider))
	}
	switch c.Translate.Provider {
	case TranslateNone, TranslateGlossary, TranslateOpenAI:
	default:
		errs = append(errs, fmt.Errorf("translate.provider must be none, glossary or openai, got %q", c.Translate.Provider))
	}
	switch c.Entity.DefaultModel {
	case "none", "en", "es":
	default:
		errs = append(errs, fmt.Errorf("entity.default_model must be none, en or es, got %q", c.Entity.DefaultModel))
	}
	s := c.Search
	if s.MinTopK < 1 || s.MinTopK > s.MaxTopK || s.DefaultTopK < s.MinTopK || s.DefaultTopK > s.MaxTopK {
		errs = append(errs, fmt.Errorf("search: need 1 <= min_top_k (%d) <= default_top_k (%d) <= max_top_k (%d)",
			s.MinTopK, s.DefaultTopK, s.MaxTopK))
	}
	if c.Harness.Workers < 1 {
		errs = append(errs, fmt.Errorf("harness.workers must be positive, got %d", c.Harness.Workers))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty stays empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
