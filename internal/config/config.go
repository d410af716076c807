// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/1186985905/YinLang/internal/util"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "YINLAN_"

// Storage drivers.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Duration is a time.Duration that reads and writes as "15s" in TOML and
// environment values.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the complete client configuration.
type Config struct {
	// BaseURL is the backend API origin, e.g. http://localhost:8080
	BaseURL string `toml:"base_url" env:"BASE_URL"`
	// StreamBaseURL is the origin of the streaming endpoint; empty means BaseURL
	StreamBaseURL string `toml:"stream_base_url" env:"STREAM_BASE_URL"`

	// Timeout bounds every request/response call
	Timeout Duration `toml:"timeout" env:"TIMEOUT"`
	// RedirectDelay is how long an auth failure waits before forcing login
	RedirectDelay Duration `toml:"redirect_delay" env:"REDIRECT_DELAY"`
	// NotifyDuration is how long error notifications stay visible
	NotifyDuration Duration `toml:"notify_duration" env:"NOTIFY_DURATION"`

	// RateLimit caps outbound calls per second (0 = unlimited)
	RateLimit float64 `toml:"rate_limit" env:"RATE_LIMIT"`
	RateBurst int     `toml:"rate_burst" env:"RATE_BURST"`

	Storage StorageConfig `toml:"storage" envPrefix:"STORAGE_"`
	Log     LogConfig     `toml:"log" envPrefix:"LOG_"`
}

// StorageConfig selects where the session is persisted.
type StorageConfig struct {
	// Driver is one of: file, sqlite, redis, memory
	Driver string `toml:"driver" env:"DRIVER"`
	// Path is the session directory (file) or database file (sqlite)
	Path string `toml:"path" env:"PATH"`
	// RedisAddr is host:port of the Redis server (redis)
	RedisAddr string `toml:"redis_addr" env:"REDIS_ADDR"`
	// RedisPrefix namespaces the two session keys (redis)
	RedisPrefix string `toml:"redis_prefix" env:"REDIS_PREFIX"`
	// Watch reloads the session when another process changes it (file)
	Watch bool `toml:"watch" env:"WATCH"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `toml:"level" env:"LEVEL"`
	Format string `toml:"format" env:"FORMAT"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		BaseURL:        "http://localhost:8080",
		Timeout:        Duration{15 * time.Second},
		RedirectDelay:  Duration{1500 * time.Millisecond},
		NotifyDuration: Duration{5 * time.Second},
		RateBurst:      1,
		Storage: StorageConfig{
			Driver:      DriverFile,
			RedisAddr:   "localhost:6379",
			RedisPrefix: "yinlan",
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// Dir returns ~/.yinlan.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".yinlan"), nil
}

// Path returns the config file path: $YINLAN_CONFIG or ~/.yinlan/config.toml.
func Path() (string, error) {
	if p := os.Getenv(EnvPrefix + "CONFIG"); p != "" {
		return p, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load reads .env, the config file and environment overrides, fills
// derived defaults and validates the result.
func Load() (*Config, error) {
	// The .env file is optional.
	_ = godotenv.Load()

	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom is Load with an explicit config file path. A missing file is
// not an error.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.SetDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyEnvOverrides sets every field whose YINLAN_* variable is present,
// e.g. YINLAN_BASE_URL, YINLAN_TIMEOUT, YINLAN_STORAGE_DRIVER.
func (c *Config) ApplyEnvOverrides() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	return nil
}

// SetDefaults fills values derived from other fields.
func (c *Config) SetDefaults() error {
	c.BaseURL = strings.TrimSuffix(strings.TrimSpace(c.BaseURL), "/")
	if c.StreamBaseURL == "" {
		c.StreamBaseURL = c.BaseURL
	}
	c.StreamBaseURL = strings.TrimSuffix(c.StreamBaseURL, "/")
	if c.RateBurst < 1 {
		c.RateBurst = 1
	}
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))

	if c.Storage.Path == "" && (c.Storage.Driver == DriverFile || c.Storage.Driver == DriverSQLite) {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if c.Storage.Driver == DriverSQLite {
			c.Storage.Path = filepath.Join(dir, "session.db")
		} else {
			c.Storage.Path = filepath.Join(dir, "session")
		}
	}
	return nil
}

// Save writes cfg to path as TOML with owner-only permissions.
func Save(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# yinlan client configuration\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.WriteFileAtomic(path, buf.Bytes(), 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError is a single invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors collects every invalid field.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs ValidateErrors

	for _, f := range []struct{ field, raw string }{
		{"base_url", c.BaseURL},
		{"stream_base_url", c.StreamBaseURL},
	} {
		u, err := url.Parse(f.raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, ValidationError{Field: f.field, Message: fmt.Sprintf("must be an http(s) URL, got %q", f.raw)})
		}
	}
	if c.Timeout.Duration <= 0 {
		errs = append(errs, ValidationError{Field: "timeout", Message: "must be positive"})
	}
	if c.RedirectDelay.Duration < 0 {
		errs = append(errs, ValidationError{Field: "redirect_delay", Message: "must not be negative"})
	}
	if c.NotifyDuration.Duration < 0 {
		errs = append(errs, ValidationError{Field: "notify_duration", Message: "must not be negative"})
	}
	if c.RateLimit < 0 {
		errs = append(errs, ValidationError{Field: "rate_limit", Message: "must not be negative"})
	}

	switch c.Storage.Driver {
	case DriverFile, DriverSQLite:
		if c.Storage.Path == "" {
			errs = append(errs, ValidationError{Field: "storage.path", Message: "required for " + c.Storage.Driver})
		}
	case DriverRedis:
		if c.Storage.RedisAddr == "" {
			errs = append(errs, ValidationError{Field: "storage.redis_addr", Message: "required for redis"})
		}
	case DriverMemory:
	default:
		errs = append(errs, ValidationError{
			Field:   "storage.driver",
			Message: fmt.Sprintf("invalid driver '%s', must be one of: file, sqlite, redis, memory", c.Storage.Driver),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
