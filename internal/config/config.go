// Package config loads server configuration from an optional YAML file and
// environment variables. Environment variables win over the file, and the
// file wins over defaults.
//
// Environment variables:
//
//	ADDR             listen address (default ":8080")
//	DB_DRIVER        "sqlite" or "postgres" (default "sqlite")
//	DB_DSN           database connection string; for sqlite a file path
//	DB_PATH          sqlite file path, used when DB_DSN is unset (default "./data/ledger.db")
//	JWT_SECRET       HMAC secret for bearer tokens (required)
//	TOKEN_TTL        token lifetime as a Go duration (default "24h")
//	LOG_LEVEL        debug, info, warn, error (default "info")
//	LOG_FORMAT       text or json (default "text")
//	ALLOWED_ORIGINS  comma-separated CORS origins (default "*")
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds everything the server needs at startup.
type Config struct {
	Addr     string         `yaml:"addr"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
	CORS     CORSConfig     `yaml:"cors"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Addr: ":8080",
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "./data/ledger.db",
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
	}
}

// Load reads path (if non-empty), applies environment overrides and validates
// the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	getEnv := func(key string, dst *string) {
		if value, ok := lookup(key); ok && value != "" {
			*dst = value
		}
	}

	getEnv("ADDR", &c.Addr)
	getEnv("DB_DRIVER", &c.Database.Driver)
	getEnv("DB_PATH", &c.Database.DSN)
	getEnv("DB_DSN", &c.Database.DSN)
	getEnv("JWT_SECRET", &c.Auth.JWTSecret)
	getEnv("LOG_LEVEL", &c.Log.Level)
	getEnv("LOG_FORMAT", &c.Log.Format)

	if value, ok := lookup("TOKEN_TTL"); ok && value != "" {
		ttl, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid TOKEN_TTL %q: %w", value, err)
		}
		c.Auth.TokenTTL = ttl
	}

	if value, ok := lookup("ALLOWED_ORIGINS"); ok && value != "" {
		var origins []string
		for _, o := range strings.Split(value, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.CORS.AllowedOrigins = origins
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database dsn is required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("jwt secret is required (set JWT_SECRET)")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token ttl must be positive, got %s", c.Auth.TokenTTL)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log format %q", c.Log.Format)
	}
	return nil
}
