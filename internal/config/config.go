package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"sintesi/internal/errors"
)

// ConfigDirName is the per-repo state directory.
const ConfigDirName = ".sintesi"

// Config represents the complete sintesi configuration
type Config struct {
	Version  int    `json:"version" mapstructure:"version"`
	RepoRoot string `json:"repoRoot" mapstructure:"repoRoot"`

	Docs       DocsConfig       `json:"docs" mapstructure:"docs"`
	Registry   RegistryConfig   `json:"registry" mapstructure:"registry"`
	Generation GenerationConfig `json:"generation" mapstructure:"generation"`
	Git        GitConfig        `json:"git" mapstructure:"git"`
	Logging    LoggingConfig    `json:"logging" mapstructure:"logging"`
}

// DocsConfig controls which documentation files are scanned
type DocsConfig struct {
	Root    string   `json:"root" mapstructure:"root"`
	Exclude []string `json:"exclude" mapstructure:"exclude"`
}

// RegistryConfig controls where the anchor map lives
type RegistryConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// GenerationConfig controls how replacement bodies are produced
type GenerationConfig struct {
	// Provider is "openai" or "placeholder"
	Provider    string `json:"provider" mapstructure:"provider"`
	Model       string `json:"model" mapstructure:"model"`
	APIKeyEnv   string `json:"apiKeyEnv" mapstructure:"apiKeyEnv"`
	MaxAttempts int    `json:"maxAttempts" mapstructure:"maxAttempts"`
	Workers     int    `json:"workers" mapstructure:"workers"`
}

// GitConfig controls git integration
type GitConfig struct {
	AutoStage bool `json:"autoStage" mapstructure:"autoStage"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:  1,
		RepoRoot: ".",
		Docs: DocsConfig{
			Root:    "docs",
			Exclude: []string{"node_modules", "vendor", "build"},
		},
		Registry: RegistryConfig{
			Path: "doctype-map.json",
		},
		Generation: GenerationConfig{
			Provider:    "placeholder",
			Model:       "gpt-4o-mini",
			APIKeyEnv:   "OPENAI_API_KEY",
			MaxAttempts: 3,
			Workers:     4,
		},
		Git: GitConfig{
			AutoStage: false,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from .sintesi/config.json
func LoadConfig(repoRoot string) (*Config, error) {
	v := viper.New()

	v.SetDefault("version", 1)
	v.SetDefault("repoRoot", ".")

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(repoRoot, ConfigDirName))

	if err := v.ReadInConfig(); err != nil {
		// No config file means defaults.
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, errors.New(errors.ConfigError, "failed to read config", err)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.New(errors.ConfigError, "failed to parse config", err)
	}
	return cfg, nil
}

// Save writes the configuration to .sintesi/config.json
func (c *Config) Save(repoRoot string) error {
	dir := filepath.Join(repoRoot, ConfigDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.New(errors.ConfigError, "failed to create config directory", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New(errors.ConfigError, "failed to encode config", err)
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), append(data, '\n'), 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != 1 {
		return errors.Newf(errors.ConfigError, "unsupported config version %d", c.Version)
	}
	switch c.Generation.Provider {
	case "openai", "placeholder":
	default:
		return errors.Newf(errors.ConfigError, "unknown generation provider %q", c.Generation.Provider)
	}
	if c.Generation.Workers < 0 {
		return errors.Newf(errors.ConfigError, "generation workers must not be negative")
	}
	if c.Registry.Path == "" {
		return errors.Newf(errors.ConfigError, "registry path must not be empty")
	}
	switch c.Logging.Format {
	case "", "human", "json":
	default:
		return errors.Newf(errors.ConfigError, "unknown log format %q", c.Logging.Format)
	}
	return nil
}
