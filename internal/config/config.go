// Package config provides configuration loading and structs for the DocuFind server and CLI.
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
	Normalize NormalizeConfig `yaml:"normalize"`
	Search    SearchConfig    `yaml:"search"`
	Index     IndexConfig     `yaml:"index"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds the database path and the directory documents are read from.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	DocumentsDir string `yaml:"documents_dir"`
}

// NormalizeConfig holds text normalization settings.
type NormalizeConfig struct {
	StopwordsPath string `yaml:"stopwords_path"`
	// Lemmatizer is one of "none", "snowball" or "light".
	Lemmatizer    string `yaml:"lemmatizer"`
	Language      string `yaml:"language"`
	MinTermLength int    `yaml:"min_term_length"`
}

// SearchConfig holds query and result settings.
type SearchConfig struct {
	DefaultLimit      int `yaml:"default_limit"`
	MaxLimit          int `yaml:"max_limit"`
	CloudLimit        int `yaml:"cloud_limit"`
	SuggestVocabulary int `yaml:"suggest_vocabulary"`
	SnippetLength     int `yaml:"snippet_length"`
}

// IndexConfig holds ingestion settings.
type IndexConfig struct {
	Workers    int      `yaml:"workers"`
	Extensions []string `yaml:"extensions"`
}

// WatchConfig holds documents directory watch settings.
type WatchConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the configuration used when no config file exists.
// Relative paths are resolved against the working directory.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	cfg.expandPaths(".")
	return &cfg
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
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
	cfg.expandPaths(filepath.Dir(path))
	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (cfg *Config) expandPaths(configDir string) {
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.DocumentsDir = expandPath(cfg.Storage.DocumentsDir, configDir)
	cfg.Normalize.StopwordsPath = expandPath(cfg.Normalize.StopwordsPath, configDir)
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		if abs, err := filepath.Abs(filepath.Join(configDir, path)); err == nil {
			return abs
		}
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
