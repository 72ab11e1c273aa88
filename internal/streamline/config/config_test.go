package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
GRPC_PORT: 6000
HTTP_PORT: 7000
DB_HOST: db
DB_USER: app
DB_PASSWORD: pw
DB_NAME: streamline
KAFKA_BROKERS: [kafka:9092]
JWT_SECRET: secret
JWT_TTL: 30m
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 6000, cfg.GRPCPort)
	assert.Equal(t, 7000, cfg.HTTPPort)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 5432, cfg.DBPort)
	assert.Equal(t, "disable", cfg.DBSSLMode)
	assert.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "streamline-events", cfg.Topic)
	assert.Equal(t, 30*time.Minute, cfg.JWTTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.SessionMaxAge)
	assert.Equal(t, 24*time.Hour, cfg.SessionUpdateAge)
	assert.Equal(t, "secret", cfg.NextAuthSecret, "session secret falls back to the JWT secret")
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)

	dbCfg := cfg.Database()
	assert.Equal(t, "db", dbCfg.Host)
	assert.Equal(t, "streamline", dbCfg.DBName)

	_, enabled := cfg.Google()
	assert.False(t, enabled)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
DB_HOST: db
DB_NAME: streamline
JWT_SECRET: from-file
`)
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")
	t.Setenv("SECURE_COOKIES", "true")
	t.Setenv("GOOGLE_CLIENT_ID", "id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "secret")
	t.Setenv("GOOGLE_REDIRECT_URL", "http://localhost:8080/api/auth/callback/google")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.JWTSecret)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.SecureCookies)

	google, enabled := cfg.Google()
	assert.True(t, enabled)
	assert.Equal(t, "id", google.ClientID)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing jwt secret", map[string]string{"DB_HOST": "db", "DB_NAME": "x"}},
		{"missing db host", map[string]string{"JWT_SECRET": "s", "DB_NAME": "x"}},
		{"sqlite without url", map[string]string{"JWT_SECRET": "s", "DB_DRIVER": "sqlite"}},
		{"unknown driver", map[string]string{"JWT_SECRET": "s", "DB_DRIVER": "oracle"}},
		{"bad ttl", map[string]string{"JWT_SECRET": "s", "DATABASE_URL": "postgres://x", "JWT_TTL": "soon"}},
		{"update age above max age", map[string]string{"JWT_SECRET": "s", "DATABASE_URL": "postgres://x", "SESSION_MAX_AGE": "1h", "SESSION_UPDATE_AGE": "2h"}},
		{"half google config", map[string]string{"JWT_SECRET": "s", "DATABASE_URL": "postgres://x", "GOOGLE_CLIENT_ID": "id"}},
		{"bad log level", map[string]string{"JWT_SECRET": "s", "DATABASE_URL": "postgres://x", "LOG_LEVEL": "loud"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			require.NoError(t, cfg.applyEnv(mapLookup(tt.env)))
			assert.Error(t, cfg.validateAndNormalize())
		})
	}
}

func TestApplyEnvRejectsBadNumbers(t *testing.T) {
	var cfg Config
	assert.Error(t, cfg.applyEnv(mapLookup(map[string]string{"GRPC_PORT": "grpc"})))
	assert.Error(t, cfg.applyEnv(mapLookup(map[string]string{"SECURE_COOKIES": "maybe"})))
}

func mapLookup(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}
