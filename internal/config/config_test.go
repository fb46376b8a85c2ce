package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
addr: ":9090"
database:
  driver: postgres
  dsn: postgres://ledger@localhost/ledger?sslmode=disable
auth:
  jwt_secret: from-file
  token_ttl: 2h
log:
  level: debug
  format: json
cors:
  allowed_origins: ["http://localhost:5173"]
`)
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://ledger@localhost/ledger?sslmode=disable", cfg.Database.DSN)
	assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "auth:\n  jwt_secret: from-file\n")
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("ADDR", ":7070")
	t.Setenv("TOKEN_TTL", "15m")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, ":7070", cfg.Addr)
	assert.Equal(t, 15*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, "./data/ledger.db", cfg.Database.DSN)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "addr: [unclosed"))
		assert.Error(t, err)
	})

	t.Run("missing secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		_, err := Load("")
		assert.ErrorContains(t, err, "jwt secret")
	})
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(envMap(map[string]string{
		"DB_PATH":         "/var/lib/ledger.db",
		"ALLOWED_ORIGINS": " https://a.example , ,https://b.example",
		"LOG_LEVEL":       "warn",
	}))
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/ledger.db", cfg.Database.DSN)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "warn", cfg.Log.Level)

	// DB_DSN takes precedence over DB_PATH.
	cfg = Default()
	require.NoError(t, cfg.applyEnv(envMap(map[string]string{
		"DB_PATH": "/tmp/a.db",
		"DB_DSN":  "/tmp/b.db",
	})))
	assert.Equal(t, "/tmp/b.db", cfg.Database.DSN)

	cfg = Default()
	assert.Error(t, cfg.applyEnv(envMap(map[string]string{"TOKEN_TTL": "soon"})))
}

func TestValidate(t *testing.T) {
	valid := Default()
	valid.Auth.JWTSecret = "secret"
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unsupported driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"empty dsn", func(c *Config) { c.Database.DSN = "" }},
		{"zero ttl", func(c *Config) { c.Auth.TokenTTL = 0 }},
		{"unknown log format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
