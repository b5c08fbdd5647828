// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"marketing-site/forms"
)

// Email providers.
const (
	ProviderMock  = "mock"
	ProviderBrevo = "brevo"
	ProviderGmail = "gmail"
)

// Config is the full service configuration.
type Config struct {
	Port       string
	Env        string
	BaseURL    string
	LogLevel   slog.Level
	SiteName   string
	ContentDir string
	Bucket     string

	EmailProvider string
	BrevoAPIKey   string
	GoogleCreds   string
	MailFrom      string
	MailFromName  string
	AdminEmail    string

	Secrets forms.Secrets

	RedisURL         string
	CORSOrigins      []string
	ReindexInterval  time.Duration
	// ReindexToken guards POST /reindexz. Required in production.
	ReindexToken     string
	// TrustedProxyHops counts proxies that append to X-Forwarded-For.
	TrustedProxyHops int
}

// Production reports whether strict production behavior is enabled.
func (c *Config) Production() bool {
	return c.Env == "production"
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()
	return fromEnv()
}

func fromEnv() (*Config, error) {
	cfg := &Config{
		Port:          getString("PORT", "8080"),
		Env:           strings.ToLower(getString("APP_ENV", "development")),
		BaseURL:       strings.TrimSuffix(getString("BASE_URL", ""), "/"),
		LogLevel:      parseLevel(getString("LOG_LEVEL", "INFO")),
		SiteName:      getString("SITE_NAME", ""),
		ContentDir:    getString("CONTENT_DIR", ""),
		Bucket:        getString("CONTENT_BUCKET", ""),
		EmailProvider: strings.ToLower(getString("EMAIL_PROVIDER", ProviderMock)),
		BrevoAPIKey:   getString("BREVO_API_KEY", ""),
		GoogleCreds:   getString("GOOGLE_CREDENTIALS_JSON", ""),
		MailFrom:      getString("MAIL_FROM", ""),
		MailFromName:  getString("MAIL_FROM_NAME", ""),
		AdminEmail:    getString("ADMIN_EMAIL", ""),
		Secrets: forms.Secrets{
			Global:    getString("TURNSTILE_SECRET_KEY", ""),
			Quote:     getString("TURNSTILE_SECRET_KEY_QUOTE", ""),
			Subscribe: getString("TURNSTILE_SECRET_KEY_SUBSCRIBE", ""),
			Popup:     getString("TURNSTILE_SECRET_KEY_POPUP", ""),
		},
		RedisURL:     getString("REDIS_URL", ""),
		CORSOrigins:  getList("CORS_ORIGINS"),
		ReindexToken: getString("REINDEX_TOKEN", ""),
	}

	minutes, err := getInt("REINDEX_INTERVAL", 0)
	if err != nil {
		return nil, err
	}
	cfg.ReindexInterval = time.Duration(minutes) * time.Minute

	hops, err := getInt("TRUSTED_PROXY_HOPS", 0)
	if err != nil {
		return nil, err
	}
	cfg.TrustedProxyHops = hops

	if cfg.Bucket == "" && cfg.ContentDir == "" {
		cfg.ContentDir = "./content"
	}
	if cfg.BaseURL == "" && !cfg.Production() {
		cfg.BaseURL = "http://localhost:" + cfg.Port
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	switch c.EmailProvider {
	case ProviderMock:
		if c.Production() {
			errs = append(errs, errors.New("EMAIL_PROVIDER=mock is not allowed in production"))
		}
	case ProviderBrevo:
		if c.BrevoAPIKey == "" {
			errs = append(errs, errors.New("BREVO_API_KEY required for the brevo provider"))
		}
		if c.MailFrom == "" {
			errs = append(errs, errors.New("MAIL_FROM required for the brevo provider"))
		}
	case ProviderGmail:
	default:
		errs = append(errs, fmt.Errorf("unknown EMAIL_PROVIDER %q", c.EmailProvider))
	}
	if c.Production() {
		if c.AdminEmail == "" {
			errs = append(errs, errors.New("ADMIN_EMAIL required in production"))
		}
		if c.BaseURL == "" {
			errs = append(errs, errors.New("BASE_URL required in production"))
		}
		if c.ReindexToken == "" {
			errs = append(errs, errors.New("REINDEX_TOKEN required in production"))
		}
	}
	return errors.Join(errs...)
}

func getString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q: want a non-negative integer", key, v)
	}
	return n, nil
}

func getList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
