// Package config loads service settings from a YAML file, a .env file and the
// process environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gartstein/streamline/internal/streamline/auth"
	"github.com/gartstein/streamline/internal/streamline/db"
	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when no --config flag is given. A missing file at the
// default path is not an error.
var DefaultPath = filepath.Join("internal", "streamline", "config", "config.yaml")

// Config uses the environment variable names as YAML keys.
type Config struct {
	GRPCPort int `yaml:"GRPC_PORT"`
	HTTPPort int `yaml:"HTTP_PORT"`

	DBDriver    string `yaml:"DB_DRIVER"`
	DatabaseURL string `yaml:"DATABASE_URL"`
	DBHost      string `yaml:"DB_HOST"`
	DBPort      int    `yaml:"DB_PORT"`
	DBUser      string `yaml:"DB_USER"`
	DBPassword  string `yaml:"DB_PASSWORD"`
	DBName      string `yaml:"DB_NAME"`
	DBSSLMode   string `yaml:"DB_SSLMODE"`

	// KafkaBrokers may be empty, in which case events are delivered
	// in-process.
	KafkaBrokers []string `yaml:"KAFKA_BROKERS"`
	Topic        string   `yaml:"TOPIC"`
	AuditGroupID string   `yaml:"AUDIT_GROUP_ID"`

	JWTSecret           string        `yaml:"JWT_SECRET"`
	JWTTTL              time.Duration `yaml:"-"`
	JWTTTLRaw           string        `yaml:"JWT_TTL"`
	NextAuthSecret      string        `yaml:"NEXTAUTH_SECRET"`
	SessionMaxAge       time.Duration `yaml:"-"`
	SessionMaxAgeRaw    string        `yaml:"SESSION_MAX_AGE"`
	SessionUpdateAge    time.Duration `yaml:"-"`
	SessionUpdateAgeRaw string        `yaml:"SESSION_UPDATE_AGE"`
	SecureCookies       bool          `yaml:"SECURE_COOKIES"`

	GoogleClientID     string `yaml:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `yaml:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `yaml:"GOOGLE_REDIRECT_URL"`

	ClientURL   string   `yaml:"CLIENT_URL"`
	CORSOrigins []string `yaml:"CORS_ORIGINS"`
	LogLevel    string   `yaml:"LOG_LEVEL"`
}

// Load reads path, then .env, then the environment, and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config

	if path == "" {
		path = DefaultPath
	}
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist) && path == DefaultPath:
	default:
		return nil, fmt.Errorf("config: read file %s: %w", path, err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.validateAndNormalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"DB_DRIVER":            &c.DBDriver,
		"DATABASE_URL":         &c.DatabaseURL,
		"DB_HOST":              &c.DBHost,
		"DB_USER":              &c.DBUser,
		"DB_PASSWORD":          &c.DBPassword,
		"DB_NAME":              &c.DBName,
		"DB_SSLMODE":           &c.DBSSLMode,
		"TOPIC":                &c.Topic,
		"AUDIT_GROUP_ID":       &c.AuditGroupID,
		"JWT_SECRET":           &c.JWTSecret,
		"JWT_TTL":              &c.JWTTTLRaw,
		"NEXTAUTH_SECRET":      &c.NextAuthSecret,
		"SESSION_MAX_AGE":      &c.SessionMaxAgeRaw,
		"SESSION_UPDATE_AGE":   &c.SessionUpdateAgeRaw,
		"GOOGLE_CLIENT_ID":     &c.GoogleClientID,
		"GOOGLE_CLIENT_SECRET": &c.GoogleClientSecret,
		"GOOGLE_REDIRECT_URL":  &c.GoogleRedirectURL,
		"CLIENT_URL":           &c.ClientURL,
		"LOG_LEVEL":            &c.LogLevel,
	}
	for key, field := range strs {
		if v, ok := lookup(key); ok {
			*field = v
		}
	}

	ints := map[string]*int{
		"GRPC_PORT": &c.GRPCPort,
		"HTTP_PORT": &c.HTTPPort,
		"DB_PORT":   &c.DBPort,
	}
	for key, field := range ints {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
		*field = n
	}

	lists := map[string]*[]string{
		"KAFKA_BROKERS": &c.KafkaBrokers,
		"CORS_ORIGINS":  &c.CORSOrigins,
	}
	for key, field := range lists {
		if v, ok := lookup(key); ok {
			*field = splitList(v)
		}
	}

	if v, ok := lookup("SECURE_COOKIES"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: SECURE_COOKIES: %w", err)
		}
		c.SecureCookies = b
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) validateAndNormalize() error {
	if c.GRPCPort == 0 {
		c.GRPCPort = 50051
	}
	if c.HTTPPort == 0 {
		c.HTTPPort = 8080
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}

	if c.Topic == "" {
		c.Topic = "streamline-events"
	}
	if c.AuditGroupID == "" {
		c.AuditGroupID = "streamline-audit"
	}

	if c.JWTSecret == "" {
		return fmt.Errorf("config: JWT_SECRET must be set")
	}
	if c.NextAuthSecret == "" {
		c.NextAuthSecret = c.JWTSecret
	}

	var err error
	if c.JWTTTL, err = parseDuration(c.JWTTTLRaw, time.Hour); err != nil {
		return fmt.Errorf("config: JWT_TTL: %w", err)
	}
	if c.SessionMaxAge, err = parseDuration(c.SessionMaxAgeRaw, 30*24*time.Hour); err != nil {
		return fmt.Errorf("config: SESSION_MAX_AGE: %w", err)
	}
	if c.SessionUpdateAge, err = parseDuration(c.SessionUpdateAgeRaw, 24*time.Hour); err != nil {
		return fmt.Errorf("config: SESSION_UPDATE_AGE: %w", err)
	}
	if c.SessionUpdateAge > c.SessionMaxAge {
		return fmt.Errorf("config: SESSION_UPDATE_AGE must not exceed SESSION_MAX_AGE")
	}

	if (c.GoogleClientID == "") != (c.GoogleClientSecret == "") {
		return fmt.Errorf("config: GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must be set together")
	}
	if c.GoogleClientID != "" && c.GoogleRedirectURL == "" {
		return fmt.Errorf("config: GOOGLE_REDIRECT_URL must be set when Google sign-in is enabled")
	}

	if c.ClientURL == "" {
		c.ClientURL = "http://localhost:3000"
	}
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{c.ClientURL}
	}

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: LOG_LEVEL: %w", err)
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.DBDriver == "" {
		c.DBDriver = db.DriverPostgres
	}
	switch c.DBDriver {
	case db.DriverSQLite:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: DATABASE_URL must be set for the sqlite driver")
		}
	case db.DriverPostgres:
		if c.DatabaseURL != "" {
			return nil
		}
		if c.DBHost == "" {
			return fmt.Errorf("config: DB_HOST must be set")
		}
		if c.DBName == "" {
			return fmt.Errorf("config: DB_NAME must be set")
		}
		if c.DBPort == 0 {
			c.DBPort = 5432
		}
		if c.DBSSLMode == "" {
			c.DBSSLMode = "disable"
		}
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q", c.DBDriver)
	}
	return nil
}

func parseDuration(raw string, fallback time.Duration) (time.Duration, error) {
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive")
	}
	return d, nil
}

// Database returns the repository settings.
func (c *Config) Database() *db.Config {
	return &db.Config{
		Driver:   c.DBDriver,
		DSN:      c.DatabaseURL,
		Host:     c.DBHost,
		Port:     c.DBPort,
		User:     c.DBUser,
		Password: c.DBPassword,
		DBName:   c.DBName,
		SSLMode:  c.DBSSLMode,
	}
}

// Google returns the OAuth client settings and whether Google sign-in is
// enabled.
func (c *Config) Google() (auth.GoogleConfig, bool) {
	return auth.GoogleConfig{
		ClientID:     c.GoogleClientID,
		ClientSecret: c.GoogleClientSecret,
		RedirectURL:  c.GoogleRedirectURL,
	}, c.GoogleClientID != ""
}
