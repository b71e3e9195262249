package config

import (
	"os"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"SERVER_PORT", "GIN_MODE", "LOG_LEVEL", "LOG_FORMAT", "API_BASE_URL",
		"DATABASE_URL", "MAX_DB_CONNS", "REDIS_URL", "TAXONOMY_CACHE_TTL",
		"SESSION_TTL", "LOCK_TTL", "VERIFY_PAYLOADS", "TOKEN_FILE",
		"LOGIN_RATE_PER_MINUTE", "ALLOWED_ORIGINS",
	} {
		_ = os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
	if cfg.APIBaseURL != "http://localhost:3001" {
		t.Errorf("APIBaseURL = %q, want http://localhost:3001", cfg.APIBaseURL)
	}
	if cfg.TaxonomyCacheTTL != 10*time.Minute {
		t.Errorf("TaxonomyCacheTTL = %v, want 10m", cfg.TaxonomyCacheTTL)
	}
	if cfg.SessionTTL != 12*time.Hour {
		t.Errorf("SessionTTL = %v, want 12h", cfg.SessionTTL)
	}
	if !cfg.VerifyPayloads {
		t.Error("VerifyPayloads = false, want true")
	}
	if cfg.AllowedOrigins != nil {
		t.Errorf("AllowedOrigins = %v, want nil", cfg.AllowedOrigins)
	}
	if cfg.TokenFile == "" {
		t.Error("TokenFile is empty")
	}
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)

	t.Setenv("API_BASE_URL", "https://qbank.example.com/")
	t.Setenv("MAX_DB_CONNS", "4")
	t.Setenv("LOCK_TTL", "45s")
	t.Setenv("VERIFY_PAYLOADS", "false")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, ,https://b.example.com")

	cfg := Load()

	if cfg.APIBaseURL != "https://qbank.example.com" {
		t.Errorf("APIBaseURL = %q, want trailing slash trimmed", cfg.APIBaseURL)
	}
	if cfg.MaxDBConns != 4 {
		t.Errorf("MaxDBConns = %d, want 4", cfg.MaxDBConns)
	}
	if cfg.LockTTL != 45*time.Second {
		t.Errorf("LockTTL = %v, want 45s", cfg.LockTTL)
	}
	if cfg.VerifyPayloads {
		t.Error("VerifyPayloads = true, want false")
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example.com" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	clearEnv(t)

	t.Setenv("MAX_DB_CONNS", "many")
	t.Setenv("SESSION_TTL", "forever")
	t.Setenv("VERIFY_PAYLOADS", "maybe")

	cfg := Load()

	if cfg.MaxDBConns != 8 {
		t.Errorf("MaxDBConns = %d, want default 8", cfg.MaxDBConns)
	}
	if cfg.SessionTTL != 12*time.Hour {
		t.Errorf("SessionTTL = %v, want default", cfg.SessionTTL)
	}
	if !cfg.VerifyPayloads {
		t.Error("VerifyPayloads should fall back to true")
	}
}
