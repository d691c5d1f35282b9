package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Server  ServerConfig  `mapstructure:"server"`
	Journal JournalConfig `mapstructure:"journal"`
	Query   QueryConfig   `mapstructure:"query"`
}

// LogConfig configures the service's own logging
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // auto, json, console
}

// ServerConfig configures the HTTP endpoint
type ServerConfig struct {
	Listen         string        `mapstructure:"listen"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RateLimit      float64       `mapstructure:"rate_limit"` // requests per second, 0 = unlimited
	RateBurst      int           `mapstructure:"rate_burst"`
	Gzip           bool          `mapstructure:"gzip"`
	Metrics        bool          `mapstructure:"metrics"`
}

// JournalConfig selects the journal to read
type JournalConfig struct {
	Journalctl string   `mapstructure:"journalctl"`
	Directory  string   `mapstructure:"directory"`
	Files      []string `mapstructure:"files"`
	Merge      bool     `mapstructure:"merge"`
	User       bool     `mapstructure:"user"`
}

// QueryConfig holds query limits
type QueryConfig struct {
	DefaultLimit int `mapstructure:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit"`
}

// Default returns a Config with default values
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
		Server: ServerConfig{
			Listen:         "127.0.0.1:8080",
			RequestTimeout: 10 * time.Second,
			RateLimit:      20,
			RateBurst:      40,
			Gzip:           true,
			Metrics:        true,
		},
		Journal: JournalConfig{
			Journalctl: "journalctl",
		},
		Query: QueryConfig{
			DefaultLimit: 100,
			MaxLimit:     10000,
		},
	}
}

// Load loads configuration from files and environment
// Config file search order (highest precedence first):
// 1. ./.journalq.yaml or ./journalq.yaml
// 2. ~/.journalq.yaml
// 3. $XDG_CONFIG_HOME/journalq/config.yaml (or ~/.config/journalq/config.yaml)
// 4. /etc/journalq/config.yaml
//
// A .env file in the working directory is read first; it never overrides
// variables that are already set.
func Load() (*Config, error) {
	cfg, _, err := LoadWithPath("")
	return cfg, err
}

// LoadWithPath loads configuration from path, or from the search path when
// path is empty, and returns the file actually used ("" for none).
func LoadWithPath(path string) (*Config, string, error) {
	_ = godotenv.Load()

	if path == "" {
		path = findConfigFile()
	}

	cfg := Default()
	if path != "" {
		loaded, err := LoadFromFile(path)
		if err != nil {
			return nil, "", err
		}
		cfg = loaded
	}

	// Override with environment variables
	applyEnvOverrides(cfg)

	return cfg, path, nil
}

// findConfigFile searches for config file in standard locations
func findConfigFile() string {
	names := []string{".journalq.yaml", ".journalq.yml", "journalq.yaml", "journalq.yml"}

	var searchPaths []string
	if cwd, err := os.Getwd(); err == nil {
		searchPaths = append(searchPaths, cwd)
	}
	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, home)
	}
	if configDir, err := os.UserConfigDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(configDir, "journalq"))
	}
	searchPaths = append(searchPaths, "/etc/journalq")

	for i, dir := range searchPaths {
		for _, name := range names {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
		// config.yaml only in dedicated directories
		if i < 2 {
			continue
		}
		path := filepath.Join(dir, "config.yaml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("JOURNALQ_LISTEN"); v != "" {
		cfg.Server.Listen = v
	}
	if v := os.Getenv("JOURNALQ_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("JOURNALQ_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("JOURNALQ_JOURNALCTL"); v != "" {
		cfg.Journal.Journalctl = v
	}
	if v := os.Getenv("JOURNALQ_DIRECTORY"); v != "" {
		cfg.Journal.Directory = v
	}
	if v := os.Getenv("JOURNALQ_DEFAULT_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Query.DefaultLimit = n
		}
	}
	if v := os.Getenv("JOURNALQ_MAX_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Query.MaxLimit = n
		}
	}
	if v := os.Getenv("JOURNALQ_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.RequestTimeout = d
		}
	}
	if v := strings.ToLower(os.Getenv("JOURNALQ_USER")); v == "true" || v == "1" {
		cfg.Journal.User = true
	}
}

// LoadFromFile loads configuration from a specific file
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ConfigFile returns the path to the config file that would be loaded
func ConfigFile() string {
	return findConfigFile()
}
