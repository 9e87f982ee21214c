// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package config

import (
	"os"
	"testing"
	"time"
)

// clearEnv unsets every variable Load reads and restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_HOST", "APP_PORT", "APP_ENV",
		"POSTGRES_HOST", "POSTGRES_PORT", "POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_DB",
		"VALKEY_HOST", "VALKEY_PORT", "VALKEY_PASSWORD", "COMPILE_CACHE_TTL", "COMPILE_LRU_SIZE",
		"JWT_SECRET", "JWT_ISSUER", "AI_PROVIDER", "AI_RATE_LIMIT",
		"OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_BASE_URL",
		"GEMINI_API_KEY", "GEMINI_MODEL", "GEMINI_BASE_URL",
		"CLAUDE_API_KEY", "CLAUDE_MODEL", "CLAUDE_BASE_URL",
		"MISTRAL_API_KEY", "MISTRAL_MODEL", "MISTRAL_BASE_URL",
		"FUNCTIONS_URL", "FUNCTIONS_KEY", "FUNCTIONS_TIMEOUT", "FUNCTIONS_MAX_RETRIES",
		"FIRECRAWL_API_KEY", "FIRECRAWL_BASE_URL",
		"S3_ENDPOINT", "S3_REGION", "S3_ACCESS_KEY", "S3_SECRET_KEY",
		"S3_BUCKET", "S3_PUBLIC_URL", "S3_PRESIGN_TTL",
	}
	for _, key := range keys {
		t.Setenv(key, "") // registers restore
		os.Unsetenv(key)
	}
}

// TestLoad_Defaults verifies that Load returns development defaults when
// no environment variables are set.
func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil { // no stray .env
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	checks := map[string][2]string{
		"Host":       {cfg.Host, "0.0.0.0"},
		"Port":       {cfg.Port, "8080"},
		"Env":        {cfg.Env, "development"},
		"DBUser":     {cfg.DBUser, "mailsmithery"},
		"DBPassword": {cfg.DBPassword, "changeme"},
		"AIProvider": {cfg.AIProvider, "openai"},
		"S3Region":   {cfg.S3Region, "us-east-1"},
		"Firecrawl":  {cfg.FirecrawlBaseURL, "https://api.firecrawl.dev"},
	}
	for name, c := range checks {
		if c[0] != c[1] {
			t.Errorf("%s: got %q, want %q", name, c[0], c[1])
		}
	}
	if cfg.CompileCacheTTL != 24*time.Hour {
		t.Errorf("CompileCacheTTL: got %v", cfg.CompileCacheTTL)
	}
	if cfg.FunctionsRetries != 2 {
		t.Errorf("FunctionsRetries: got %d", cfg.FunctionsRetries)
	}
	if !cfg.IsDev() || cfg.UseRemoteFunctions() || cfg.S3Enabled() {
		t.Errorf("flags: dev=%v remote=%v s3=%v", cfg.IsDev(), cfg.UseRemoteFunctions(), cfg.S3Enabled())
	}
}

func TestLoad_ProviderPrefixes(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-1")
	t.Setenv("OPENAI_MODEL", "gpt-4o")
	t.Setenv("CLAUDE_BASE_URL", "http://localhost:9999")
	t.Setenv("FUNCTIONS_URL", "https://fn.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OpenAI.APIKey != "sk-1" || cfg.OpenAI.Model != "gpt-4o" {
		t.Errorf("openai: %+v", cfg.OpenAI)
	}
	if cfg.Claude.BaseURL != "http://localhost:9999" {
		t.Errorf("claude: %+v", cfg.Claude)
	}
	if !cfg.UseRemoteFunctions() {
		t.Error("FUNCTIONS_URL should enable remote functions")
	}
}

func TestLoad_ProductionGuards(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for default DB password in production")
	}

	t.Setenv("POSTGRES_PASSWORD", "s3cret")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for default JWT secret in production")
	}

	t.Setenv("JWT_SECRET", "a-real-secret")
	if _, err := Load(); err != nil {
		t.Fatalf("Load with production secrets: %v", err)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("COMPILE_CACHE_TTL", "forever")
	if _, err := Load(); err == nil {
		t.Error("expected parse error for invalid duration")
	}
}

func TestConfigHelpers(t *testing.T) {
	cfg := &Config{
		Host: "127.0.0.1", Port: "9000",
		DBUser: "u", DBPassword: "p", DBHost: "db", DBPort: "5433", DBName: "n",
		ValkeyHost: "cache", ValkeyPort: "6380",
	}
	if got := cfg.Addr(); got != "127.0.0.1:9000" {
		t.Errorf("Addr: got %q", got)
	}
	if got := cfg.DSN(); got != "postgres://u:p@db:5433/n?sslmode=disable" {
		t.Errorf("DSN: got %q", got)
	}
	if got := cfg.ValkeyAddr(); got != "cache:6380" {
		t.Errorf("ValkeyAddr: got %q", got)
	}
}
