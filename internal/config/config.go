// Package config provides configuration loading and structs for the crl.help backend.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/armish/crl.help/internal/vector"
)

// Config holds all configuration for the application.
type Config struct {
	Debug    bool           `yaml:"debug"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Data     DataConfig     `yaml:"data"`
	Search   SearchConfig   `yaml:"search"`
	AI       AIConfig       `yaml:"ai"`
	Export   ExportConfig   `yaml:"export"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig holds the sqlite database location.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// DataConfig holds dataset locations: the local cache directory and the FDA
// bulk download endpoints.
type DataConfig struct {
	Dir           string `yaml:"dir"`
	ApprovedURL   string `yaml:"approved_url"`
	UnapprovedURL string `yaml:"unapproved_url"`
}

// SearchConfig holds keyword search settings.
type SearchConfig struct {
	IndexPath    string `yaml:"index_path"`
	DefaultLimit int    `yaml:"default_limit"`
	MaxLimit     int    `yaml:"max_limit"`
	ContextChars int    `yaml:"context_chars"`
}

// AIConfig holds OpenAI client and retrieval settings. The API key is read
// from the OPENAI_API_KEY environment variable (a .env file is honored) and
// overrides any value in the config file.
type AIConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	ChatModel      string `yaml:"chat_model"`
	EmbeddingModel string `yaml:"embedding_model"`
	MaxRetries     int    `yaml:"max_retries"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	RAGTopK        int    `yaml:"rag_top_k"`
	RAGMetric      string `yaml:"rag_metric"`
	DryRun         bool   `yaml:"dry_run"`
	CacheSize      int    `yaml:"cache_size"`
}

// ExportConfig holds export limits.
type ExportConfig struct {
	MaxRows int `yaml:"max_rows"`
}

// Load reads and parses the config file at path, loads .env if present,
// applies defaults and environment overrides, and expands paths.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.AI.APIKey = key
	}
	if base := os.Getenv("OPENAI_BASE_URL"); base != "" {
		cfg.AI.BaseURL = base
	}

	configDir := filepath.Dir(path)
	cfg.Database.Path = expandPath(cfg.Database.Path, configDir)
	cfg.Data.Dir = expandPath(cfg.Data.Dir, configDir)
	cfg.Search.IndexPath = expandPath(cfg.Search.IndexPath, configDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values that would only fail later at request time.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if _, err := vector.ParseMetric(c.AI.RAGMetric); err != nil {
		return fmt.Errorf("invalid rag_metric: %w", err)
	}
	if c.AI.RAGTopK < 1 || c.AI.RAGTopK > 20 {
		return fmt.Errorf("rag_top_k must be between 1 and 20, got %d", c.AI.RAGTopK)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
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
