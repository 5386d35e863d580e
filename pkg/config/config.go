package config

import (
	_ "embed"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/rubiojr/cardex/pkg/search"
	"github.com/rubiojr/cardex/pkg/storage"
)

//go:embed config.toml.sample
var configTemplate string

// Environment variables that override the configuration file.
const (
	EnvDatabaseURL   = "CARDEX_DATABASE_URL"
	EnvStorageDriver = "CARDEX_STORAGE_DRIVER"
	EnvRedisAddr     = "CARDEX_REDIS_ADDR"
	EnvPort          = "CARDEX_PORT"
	EnvBaseURL       = "CARDEX_BASE_URL"
)

type Config struct {
	Debug     bool            `toml:"debug"`
	Server    ServerConfig    `toml:"server"`
	Storage   StorageConfig   `toml:"storage"`
	Search    SearchConfig    `toml:"search"`
	RateLimit RateLimitConfig `toml:"ratelimit"`
}

type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
	// BaseURL is the public origin used to build absolute profile URLs.
	BaseURL         string   `toml:"base_url"`
	ReadTimeout     Duration `toml:"read_timeout"`
	WriteTimeout    Duration `toml:"write_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
	AllowedOrigins  []string `toml:"allowed_origins"`
}

type StorageConfig struct {
	Driver       string   `toml:"driver"`
	Path         string   `toml:"path"`
	DSN          string   `toml:"dsn"`
	MaxConns     int32    `toml:"max_conns"`
	QueryTimeout Duration `toml:"query_timeout"`
}

type SearchConfig struct {
	DefaultLimit int `toml:"default_limit"`
	MaxLimit     int `toml:"max_limit"`
}

// RateLimitConfig enables per client rate limiting of the search endpoints
// when RedisAddr is set.
type RateLimitConfig struct {
	RedisAddr string   `toml:"redis_addr"`
	Requests  int      `toml:"requests"`
	Window    Duration `toml:"window"`
}

type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func GetDefaultConfig() (*Config, error) {
	dbPath, err := GetDefaultDBPath()
	if err != nil {
		return nil, fmt.Errorf("getting default database path: %w", err)
	}
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			BaseURL:         "http://localhost:8080",
			ReadTimeout:     Duration{15 * time.Second},
			WriteTimeout:    Duration{15 * time.Second},
			ShutdownTimeout: Duration{30 * time.Second},
		},
		Storage: StorageConfig{
			Driver:       "sqlite",
			Path:         dbPath,
			MaxConns:     10,
			QueryTimeout: Duration{5 * time.Second},
		},
		Search: SearchConfig{
			DefaultLimit: search.DefaultLimits.Default,
			MaxLimit:     search.DefaultLimits.Max,
		},
		RateLimit: RateLimitConfig{
			Requests: 60,
			Window:   Duration{time.Minute},
		},
	}, nil
}

// LoadConfig reads configPath on top of the defaults and applies
// environment overrides. A missing file yields the defaults.
func LoadConfig(configPath string) (*Config, error) {
	config, err := GetDefaultConfig()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("unmarshaling config: %w", err)
		}
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadDotEnv loads KEY=value pairs from the given files (default ".env")
// into the process environment. Missing files are ignored and variables
// already set are not overwritten.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// applyEnv overrides file settings from CARDEX_* variables. Setting
// CARDEX_DATABASE_URL selects the postgres driver unless
// CARDEX_STORAGE_DRIVER says otherwise.
func (c *Config) applyEnv() error {
	if dsn := os.Getenv(EnvDatabaseURL); dsn != "" {
		c.Storage.DSN = dsn
		c.Storage.Driver = "postgres"
	}
	if driver := os.Getenv(EnvStorageDriver); driver != "" {
		c.Storage.Driver = driver
	}
	if addr := os.Getenv(EnvRedisAddr); addr != "" {
		c.RateLimit.RedisAddr = addr
	}
	if port := os.Getenv(EnvPort); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvPort, port, err)
		}
		c.Server.Port = n
	}
	if base := os.Getenv(EnvBaseURL); base != "" {
		c.Server.BaseURL = base
	}
	return nil
}

// Validate checks settings that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.Path == "" {
			return errors.New("storage.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn (or %s) is required for the postgres driver", EnvDatabaseURL)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Search.MaxLimit > 0 && c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("search.default_limit (%d) exceeds search.max_limit (%d)", c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	if c.RateLimit.RedisAddr != "" && (c.RateLimit.Requests <= 0 || c.RateLimit.Window.Duration <= 0) {
		return errors.New("ratelimit.requests and ratelimit.window must be positive")
	}
	return nil
}

// Addr returns the listen address of the HTTP server.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// ProfileURL returns the absolute public URL of a profile path.
func (c *Config) ProfileURL(path string) string {
	return strings.TrimRight(c.Server.BaseURL, "/") + path
}

// StorageOptions returns the options used to open the profile store.
func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		Driver:           c.Storage.Driver,
		Path:             c.Storage.Path,
		DSN:              c.Storage.DSN,
		MaxConns:         c.Storage.MaxConns,
		StatementTimeout: c.Storage.QueryTimeout.Duration,
	}
}

// SearchLimits returns the page size bounds of the search service.
func (c *Config) SearchLimits() search.Limits {
	return search.Limits{Default: c.Search.DefaultLimit, Max: c.Search.MaxLimit}
}

func (c *Config) SaveConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

func (c *Config) SaveTemplateConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	template, err := c.generateConfigTemplate()
	if err != nil {
		return fmt.Errorf("generating config template: %w", err)
	}
	return os.WriteFile(configPath, []byte(template), 0644)
}

func (c *Config) generateConfigTemplate() (string, error) {
	dbPath := c.Storage.Path
	if dbPath == "" {
		var err error
		dbPath, err = GetDefaultDBPath()
		if err != nil {
			return "", fmt.Errorf("getting default database path: %w", err)
		}
	}

	// Replace the placeholder path with the actual one
	template := strings.Replace(configTemplate, "/home/user/.local/share/cardex/cardex.db", dbPath, 1)
	return template, nil
}

// GetDefaultStorageDir returns the default storage directory for databases
func GetDefaultStorageDir() (string, error) {
	// Use XDG_DATA_HOME if set, otherwise use ~/.local/share
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataDir, "cardex"), nil
}

// GetDefaultDBPath returns the default database path in the user's data directory
func GetDefaultDBPath() (string, error) {
	storageDir, err := GetDefaultStorageDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(storageDir, "cardex.db"), nil
}

// GetConfigDir returns the configuration directory for cardex
func GetConfigDir() (string, error) {
	// Use XDG_CONFIG_HOME if set, otherwise use ~/.config
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "cardex"), nil
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}
