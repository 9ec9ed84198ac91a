// Package config provides configuration loading and structs for the pdfchat server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Vector    VectorConfig    `yaml:"vector"`
	Chunk     ChunkConfig     `yaml:"chunk"`
	Answer    AnswerConfig    `yaml:"answer"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// ChatRateLimit is the sustained /chat requests per second; 0 disables limiting.
	ChatRateLimit float64 `yaml:"chat_rate_limit"`
	ChatBurst     int     `yaml:"chat_burst"`
	// MaxUploadMB caps multipart upload size.
	MaxUploadMB int64 `yaml:"max_upload_mb"`
}

// StorageConfig holds the data directory and relational database path.
type StorageConfig struct {
	DataDir      string `yaml:"data_dir"`
	DatabasePath string `yaml:"database_path"`
}

// EmbeddingConfig holds ONNX embedder settings.
type EmbeddingConfig struct {
	ModelPath  string `yaml:"model_path"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
}

// VectorConfig selects and tunes the per-workspace vector index.
type VectorConfig struct {
	// IndexType is "auto", "memory" or "faiss".
	IndexType string `yaml:"index_type"`
	// Dimension fixes the index dimension; 0 lets the first insertion decide.
	Dimension int `yaml:"dimension"`
	// Compress zstd-compresses the brute-force vector file.
	Compress bool `yaml:"compress"`
}

// ChunkConfig holds passage chunking settings.
type ChunkConfig struct {
	MaxChars int `yaml:"max_chars"`
}

// AnswerConfig holds retrieval and synthesis settings for chat.
type AnswerConfig struct {
	TopK      int `yaml:"top_k"`
	Citations int `yaml:"citations"`
}

// WatchConfig holds workspace directory watch settings.
type WatchConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Extensions []string `yaml:"extensions"`
	DebounceMS int      `yaml:"debounce_ms"`
}

// Load reads and parses the config file at path, applies environment overrides,
// expands paths, and applies defaults. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyEnv(&cfg)
	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DataDir = expandPath(cfg.Storage.DataDir, configDir)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ApplyEnv overrides config values from DATA_DIR, DATABASE_PATH and EMBEDDING_MODEL when set.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		cfg.Storage.DatabasePath = v
	}
	if v := os.Getenv("EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.ModelPath = v
	}
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
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

// Default returns the configuration used when no config file exists:
// environment overrides and defaults, with "./" paths relative to the working directory.
func Default() *Config {
	var cfg Config
	ApplyEnv(&cfg)
	ApplyDefaults(&cfg)
	dir, err := os.Getwd()
	if err != nil {
		dir = "."
	}
	cfg.Storage.DataDir = expandPath(cfg.Storage.DataDir, dir)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, dir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, dir)
	return &cfg
}
