// ABOUTME: Configuration management for futurefeed with YAML config loading.
// ABOUTME: Handles API session settings, cache backend selection, feed paging, logging, and ~ expansion.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultCookieName is the session cookie issued by the FutureFeed backend.
const DefaultCookieName = "JSESSIONID"

// DefaultPageSize is the number of posts requested per feed page.
const DefaultPageSize = 10

// Config stores futurefeed configuration loaded from ~/.config/futurefeed/config.yaml.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Cache   CacheConfig   `yaml:"cache"`
	Feed    FeedConfig    `yaml:"feed"`
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig holds the REST backend location and session credentials.
type APIConfig struct {
	URL        string `yaml:"url"`
	CookieName string `yaml:"cookie_name"`
	Session    string `yaml:"session"`
	// StrictDeleteAck requires the literal delete acknowledgement body.
	// nil means true.
	StrictDeleteAck *bool `yaml:"strict_delete_ack,omitempty"`
}

// CacheConfig selects and configures the durable TTL cache backend.
type CacheConfig struct {
	Backend  string `yaml:"backend"` // "file", "sqlite", "redis", or "none"
	TTL      string `yaml:"ttl"`
	Path     string `yaml:"path"`
	RedisURL string `yaml:"redis_url"`
}

// FeedConfig holds pagination settings.
type FeedConfig struct {
	PageSize int `yaml:"page_size"`
}

// LoggingConfig holds zap logger settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
}

// HasSession returns true if an API URL and a session cookie are configured.
func (c *Config) HasSession() bool {
	return c.API.URL != "" && c.API.Session != ""
}

// GetCookieName returns the session cookie name, defaulting to JSESSIONID.
func (c *Config) GetCookieName() string {
	if c.API.CookieName != "" {
		return c.API.CookieName
	}
	return DefaultCookieName
}

// StrictDelete reports whether post deletion requires the literal acknowledgement body.
func (c *Config) StrictDelete() bool {
	if c.API.StrictDeleteAck == nil {
		return true
	}
	return *c.API.StrictDeleteAck
}

// GetPageSize returns the feed page size, defaulting to 10.
func (c *Config) GetPageSize() int {
	if c.Feed.PageSize > 0 {
		return c.Feed.PageSize
	}
	return DefaultPageSize
}

// GetCacheTTL parses the cache TTL. An empty value yields zero, meaning the cache default.
func (c *Config) GetCacheTTL() (time.Duration, error) {
	if c.Cache.TTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Cache.TTL)
	if err != nil {
		return 0, fmt.Errorf("invalid cache ttl %q: %w", c.Cache.TTL, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("cache ttl must be positive, got %s", d)
	}
	return d, nil
}

// GetCacheBackend returns the configured backend name, defaulting to "file".
func (c *Config) GetCacheBackend() string {
	if c.Cache.Backend == "" {
		return "file"
	}
	return strings.ToLower(c.Cache.Backend)
}

// GetCachePath returns the on-disk location for file or sqlite cache backends.
func (c *Config) GetCachePath() (string, error) {
	if c.Cache.Path != "" {
		return ExpandPath(c.Cache.Path)
	}
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	if c.GetCacheBackend() == "sqlite" {
		return filepath.Join(dataDir, "cache.db"), nil
	}
	return filepath.Join(dataDir, "cache"), nil
}

// GetFollowStatePath returns the file holding the persisted follow-status snapshot.
func (c *Config) GetFollowStatePath() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "follow-status.yaml"), nil
}

// DataDir returns the default futurefeed data directory.
func DataDir() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "futurefeed"), nil
}

// GetConfigPath returns the config file path.
func GetConfigPath() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "futurefeed", "config.yaml"), nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return home, nil
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}

// Load reads config from disk. Returns default config if file doesn't exist.
func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if _, err := cfg.GetCacheTTL(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes config to disk.
func (c *Config) Save() error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
