package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"restoran-api/internal/logger"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=restoran port=5432 sslmode=disable"

type Config struct {
	HTTPPort          string        `yaml:"http_port"`
	DBDriver          string        `yaml:"db_driver"`
	DatabaseDSN       string        `yaml:"database_dsn"`
	JWTSecret         string        `yaml:"jwt_secret"`
	JWTTTL            time.Duration `yaml:"jwt_ttl"`
	CookieSecure      bool          `yaml:"cookie_secure"`
	CORSOrigins       string        `yaml:"cors_allowed_origins"`
	LogLevel          string        `yaml:"log_level"`
	LogFormat         string        `yaml:"log_format"`
	ReconcileSchedule string        `yaml:"reconcile_schedule"` // empty disables the job
	Debug             bool          `yaml:"debug"`
}

var (
	ErrMissingJWTSecret = errors.New("JWT_SECRET is not set")
	ErrShortJWTSecret   = errors.New("JWT_SECRET must be at least 32 characters")
	ErrUnknownDBDriver  = errors.New("DB_DRIVER must be postgres or sqlite")
)

func defaults() *Config {
	return &Config{
		HTTPPort:    "8080",
		DBDriver:    "postgres",
		DatabaseDSN: defaultDSN,
		JWTTTL:      7 * 24 * time.Hour,
		CORSOrigins: "http://localhost:3000",
		LogLevel:    "info",
		LogFormat:   "text",
	}
}

// Load reads .env (if present), then the YAML file named by CONFIG_FILE (if
// set), then environment variables, each layer overriding the previous one.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.HTTPPort = getEnv("HTTP_PORT", cfg.HTTPPort)
	cfg.DBDriver = getEnv("DB_DRIVER", cfg.DBDriver)
	cfg.DatabaseDSN = getEnv("DATABASE_DSN", cfg.DatabaseDSN)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.CORSOrigins = getEnv("CORS_ALLOWED_ORIGINS", cfg.CORSOrigins)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	cfg.ReconcileSchedule = getEnv("RECONCILE_SCHEDULE", cfg.ReconcileSchedule)
	cfg.Debug = getBool("DEBUG", cfg.Debug)
	cfg.CookieSecure = getBool("COOKIE_SECURE", cfg.CookieSecure)

	if v := os.Getenv("JWT_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parse JWT_TTL: %w", err)
		}
		cfg.JWTTTL = ttl
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.warn()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	if len(c.JWTSecret) < 32 {
		return ErrShortJWTSecret
	}
	if c.DBDriver != "postgres" && c.DBDriver != "sqlite" {
		return ErrUnknownDBDriver
	}
	return nil
}

func (c *Config) warn() {
	if c.DBDriver == "postgres" && c.DatabaseDSN == defaultDSN {
		logger.Warn("DATABASE_DSN uses the default value, set your own Postgres connection for production")
	}
	if c.CORSOrigins == "http://localhost:3000" {
		logger.Warn("CORS_ALLOWED_ORIGINS uses the default value, set your own origin for production")
	}
	if c.Debug {
		logger.Warn("DEBUG is on, internal error details are exposed in responses")
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
