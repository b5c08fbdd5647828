package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

var allKeys = []string{
	"PORT", "APP_ENV", "BASE_URL", "LOG_LEVEL", "SITE_NAME", "CONTENT_DIR", "CONTENT_BUCKET",
	"EMAIL_PROVIDER", "BREVO_API_KEY", "GOOGLE_CREDENTIALS_JSON", "MAIL_FROM", "MAIL_FROM_NAME",
	"ADMIN_EMAIL", "TURNSTILE_SECRET_KEY", "TURNSTILE_SECRET_KEY_QUOTE", "TURNSTILE_SECRET_KEY_SUBSCRIBE",
	"TURNSTILE_SECRET_KEY_POPUP", "REDIS_URL", "CORS_ORIGINS", "REINDEX_INTERVAL", "REINDEX_TOKEN", "TRUSTED_PROXY_HOPS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := fromEnv()
	if err != nil {
		t.Fatalf("fromEnv() error = %v", err)
	}
	if cfg.Port != "8080" || cfg.Env != "development" || cfg.Production() {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.ContentDir != "./content" {
		t.Errorf("ContentDir = %q, want ./content", cfg.ContentDir)
	}
	if cfg.BaseURL != "http://localhost:8080" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.EmailProvider != ProviderMock || cfg.LogLevel != slog.LevelInfo || cfg.ReindexInterval != 0 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestProductionConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "Production")
	t.Setenv("BASE_URL", "https://example.com/")
	t.Setenv("CONTENT_BUCKET", "site-content")
	t.Setenv("EMAIL_PROVIDER", "brevo")
	t.Setenv("BREVO_API_KEY", "k")
	t.Setenv("MAIL_FROM", "hello@example.com")
	t.Setenv("ADMIN_EMAIL", "owner@example.com")
	t.Setenv("TURNSTILE_SECRET_KEY", "global")
	t.Setenv("TURNSTILE_SECRET_KEY_POPUP", "popup")
	t.Setenv("CORS_ORIGINS", "https://example.com, https://www.example.com,,")
	t.Setenv("REINDEX_INTERVAL", "15")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("REINDEX_TOKEN", "t0ken")
	t.Setenv("TRUSTED_PROXY_HOPS", "1")

	cfg, err := fromEnv()
	if err != nil {
		t.Fatalf("fromEnv() error = %v", err)
	}
	if !cfg.Production() || cfg.BaseURL != "https://example.com" || cfg.ContentDir != "" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Secrets.Global != "global" || cfg.Secrets.Popup != "popup" {
		t.Errorf("Secrets = %+v", cfg.Secrets)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://www.example.com" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
	if cfg.ReindexInterval != 15*time.Minute || cfg.LogLevel != slog.LevelDebug {
		t.Errorf("ReindexInterval = %v, LogLevel = %v", cfg.ReindexInterval, cfg.LogLevel)
	}
	if cfg.ReindexToken != "t0ken" || cfg.TrustedProxyHops != 1 {
		t.Errorf("ReindexToken = %q, TrustedProxyHops = %d", cfg.ReindexToken, cfg.TrustedProxyHops)
	}
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"unknown provider", map[string]string{"EMAIL_PROVIDER": "smtp"}, "unknown EMAIL_PROVIDER"},
		{"brevo without key", map[string]string{"EMAIL_PROVIDER": "brevo", "MAIL_FROM": "a@b.co"}, "BREVO_API_KEY"},
		{"mock in production", map[string]string{"APP_ENV": "production", "BASE_URL": "https://x", "ADMIN_EMAIL": "a@b.co"}, "not allowed in production"},
		{"production without admin", map[string]string{"APP_ENV": "production", "EMAIL_PROVIDER": "gmail", "BASE_URL": "https://x"}, "ADMIN_EMAIL"},
		{"production without reindex token", map[string]string{"APP_ENV": "production", "EMAIL_PROVIDER": "gmail", "BASE_URL": "https://x", "ADMIN_EMAIL": "a@b.co"}, "REINDEX_TOKEN"},
		{"negative proxy hops", map[string]string{"TRUSTED_PROXY_HOPS": "-1"}, "TRUSTED_PROXY_HOPS"},
		{"bad interval", map[string]string{"REINDEX_INTERVAL": "soon"}, "REINDEX_INTERVAL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := fromEnv()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("fromEnv() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
