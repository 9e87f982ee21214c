// Package config handles application configuration loading from environment
// variables. A .env file in the working directory is loaded first when
// present; real environment variables always win over it.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	defaultDBPassword = "changeme"
	defaultJWTSecret  = "dev-secret-change-me"
)

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Server settings
	Host string `env:"APP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"APP_PORT" envDefault:"8080"`
	Env  string `env:"APP_ENV" envDefault:"development"` // "development", "production", "testing"

	// PostgreSQL connection
	DBHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	DBPort     string `env:"POSTGRES_PORT" envDefault:"5432"`
	DBUser     string `env:"POSTGRES_USER" envDefault:"mailsmithery"`
	DBPassword string `env:"POSTGRES_PASSWORD" envDefault:"changeme"`
	DBName     string `env:"POSTGRES_DB" envDefault:"mailsmithery"`

	// Valkey (Redis-compatible cache for compiled HTML)
	ValkeyHost      string        `env:"VALKEY_HOST" envDefault:"localhost"`
	ValkeyPort      string        `env:"VALKEY_PORT" envDefault:"6379"`
	ValkeyPassword  string        `env:"VALKEY_PASSWORD"`
	CompileCacheTTL time.Duration `env:"COMPILE_CACHE_TTL" envDefault:"24h"`
	CompileLRUSize  int           `env:"COMPILE_LRU_SIZE" envDefault:"256"`

	// Bearer tokens issued by the hosted auth provider.
	JWTSecret string `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	JWTIssuer string `env:"JWT_ISSUER"`

	// AI provider settings for the local planner.
	AIProvider string         `env:"AI_PROVIDER" envDefault:"openai"`
	OpenAI     ProviderConfig `envPrefix:"OPENAI_"`
	Gemini     ProviderConfig `envPrefix:"GEMINI_"`
	Claude     ProviderConfig `envPrefix:"CLAUDE_"`
	Mistral    ProviderConfig `envPrefix:"MISTRAL_"`

	// Remote functions host. When FunctionsURL is empty the local planner,
	// compiler and linter are used instead.
	FunctionsURL     string        `env:"FUNCTIONS_URL"`
	FunctionsKey     string        `env:"FUNCTIONS_KEY"`
	FunctionsTimeout time.Duration `env:"FUNCTIONS_TIMEOUT" envDefault:"90s"`
	FunctionsRetries uint64        `env:"FUNCTIONS_MAX_RETRIES" envDefault:"2"`

	// Website scraping for brand extraction.
	FirecrawlAPIKey  string `env:"FIRECRAWL_API_KEY"`
	FirecrawlBaseURL string `env:"FIRECRAWL_BASE_URL" envDefault:"https://api.firecrawl.dev"`

	// S3-compatible object storage for published HTML.
	S3Endpoint   string        `env:"S3_ENDPOINT"`
	S3Region     string        `env:"S3_REGION" envDefault:"us-east-1"`
	S3AccessKey  string        `env:"S3_ACCESS_KEY"`
	S3SecretKey  string        `env:"S3_SECRET_KEY"`
	S3Bucket     string        `env:"S3_BUCKET" envDefault:"mailsmithery-exports"`
	S3PublicURL  string        `env:"S3_PUBLIC_URL"`
	S3PresignTTL time.Duration `env:"S3_PRESIGN_TTL" envDefault:"1h"`

	// Requests per minute per client on AI-backed routes.
	AIRateLimit int `env:"AI_RATE_LIMIT" envDefault:"20"`
}

// ProviderConfig holds credentials for one AI provider.
type ProviderConfig struct {
	APIKey  string `env:"API_KEY"`
	Model   string `env:"MODEL"`
	BaseURL string `env:"BASE_URL"`
}

// Load reads configuration from the environment (and .env, if present),
// applying defaults for development. Returns an error if critical values
// are missing in production mode.
func Load() (*Config, error) {
	// A missing .env file is normal outside development.
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.Env == "production" {
		if cfg.DBPassword == defaultDBPassword {
			return nil, errors.New("POSTGRES_PASSWORD must be set in production")
		}
		if cfg.JWTSecret == defaultJWTSecret {
			return nil, errors.New("JWT_SECRET must be set in production")
		}
	}

	return &cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// ValkeyAddr returns the cache address (host:port).
func (c *Config) ValkeyAddr() string {
	return fmt.Sprintf("%s:%s", c.ValkeyHost, c.ValkeyPort)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// UseRemoteFunctions reports whether plan/edit/compile/lint go to the
// hosted functions instead of the local implementations.
func (c *Config) UseRemoteFunctions() bool {
	return c.FunctionsURL != ""
}

// S3Enabled reports whether publishing to object storage is configured.
func (c *Config) S3Enabled() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}
