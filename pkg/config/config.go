package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for pixivsync
type Config struct {
	// Pixiv credentials
	Pixiv PixivConfig `yaml:"pixiv" json:"pixiv"`

	// Synchronization settings
	Sync SyncConfig `yaml:"sync" json:"sync"`

	// Include/exclude content filtering rules
	Filter FilterConfig `yaml:"filter" json:"filter"`

	// Download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Retry configuration for catalog listing requests
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// PixivConfig holds Pixiv-specific configuration
type PixivConfig struct {
	RefreshToken string `yaml:"refresh_token" json:"refresh_token"`
	UserAgent    string `yaml:"user_agent" json:"user_agent"`
}

// SyncConfig holds sync database and discovery configuration
type SyncConfig struct {
	// DBPath is the path of the persisted sync database document
	DBPath string `yaml:"db" json:"db"`
	// Authors lists author references, either bare numeric IDs or profile URLs
	Authors []string `yaml:"authors" json:"authors"`
	// Favourites lists bookmark visibility classes to pull ("public", "private")
	Favourites []string `yaml:"favourites" json:"favourites"`
	// MaxBackups is how many timestamped database backups to retain
	MaxBackups int `yaml:"max_backups" json:"max_backups"`
}

// FilterConfig holds the include/exclude rules, keyed by fact set
// ("authors" or "tags")
type FilterConfig struct {
	Includes map[string][]string `yaml:"includes" json:"includes"`
	Excludes map[string][]string `yaml:"excludes" json:"excludes"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	Dir     string        `yaml:"dir" json:"dir"`
	Workers int           `yaml:"workers" json:"workers"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// RetryConfig holds retry configuration for listing API calls
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" json:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay" json:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier   float64       `yaml:"multiplier" json:"multiplier"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// filterFactSets are the fact set names the filter rules may reference
var filterFactSets = map[string]bool{
	"authors": true,
	"tags":    true,
}

// favouriteVisibilities are the accepted bookmark visibility classes
var favouriteVisibilities = map[string]bool{
	"public":  true,
	"private": true,
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Pixiv: PixivConfig{
			UserAgent: "PixivAndroidApp/5.0.234 (Android 11; Pixel 5)",
		},
		Sync: SyncConfig{
			DBPath:     "sync.db",
			MaxBackups: 10,
		},
		Download: DownloadConfig{
			Dir:     "./downloads",
			Workers: 8,
			Timeout: 60 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
		},
		Retry: RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 2 * time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for a config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		"config.yml",
		"config.yaml",
		".pixivsync.yaml",
		filepath.Join(os.Getenv("HOME"), ".config", "pixivsync", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".pixivsync.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// LoadFromEnv loads configuration overrides from environment variables
func (c *Config) LoadFromEnv() error {
	if token := os.Getenv("PIXIVSYNC_REFRESH_TOKEN"); token != "" {
		c.Pixiv.RefreshToken = token
	}
	if ua := os.Getenv("PIXIVSYNC_USER_AGENT"); ua != "" {
		c.Pixiv.UserAgent = ua
	}
	if db := os.Getenv("PIXIVSYNC_DB"); db != "" {
		c.Sync.DBPath = db
	}
	if dir := os.Getenv("PIXIVSYNC_DOWNLOAD_DIR"); dir != "" {
		c.Download.Dir = dir
	}
	if workers := os.Getenv("PIXIVSYNC_DOWNLOAD_WORKERS"); workers != "" {
		val, err := strconv.Atoi(workers)
		if err != nil {
			return fmt.Errorf("invalid PIXIVSYNC_DOWNLOAD_WORKERS: %w", err)
		}
		if val > 0 {
			c.Download.Workers = val
		}
	}
	if level := os.Getenv("PIXIVSYNC_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Sync.DBPath == "" {
		errs = append(errs, errors.New("sync database path is required"))
	}
	if c.Sync.MaxBackups < 0 {
		errs = append(errs, errors.New("max backups cannot be negative"))
	}

	for _, fav := range c.Sync.Favourites {
		if !favouriteVisibilities[fav] {
			errs = append(errs, fmt.Errorf("unknown favourite type: %s", fav))
		}
	}

	for key := range c.Filter.Includes {
		if !filterFactSets[key] {
			errs = append(errs, fmt.Errorf("unknown include rule key: %s", key))
		}
	}
	for key := range c.Filter.Excludes {
		if !filterFactSets[key] {
			errs = append(errs, fmt.Errorf("unknown exclude rule key: %s", key))
		}
	}

	if c.Download.Dir == "" {
		errs = append(errs, errors.New("download directory is required"))
	}
	if c.Download.Workers <= 0 {
		errs = append(errs, errors.New("download workers must be positive"))
	}
	if c.Download.Timeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if c.Retry.MaxAttempts < 0 {
		errs = append(errs, errors.New("max retry attempts cannot be negative"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save writes the configuration to a YAML file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: Environment variables > .env file > Config file > Defaults
func Load(configPath string) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".pixivsync.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
