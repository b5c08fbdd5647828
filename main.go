// Package main runs the marketing site backend: form submissions, popup
// targeting, and site search.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"cloud.google.com/go/storage"
	"github.com/prometheus/client_golang/prometheus"

	"marketing-site/captcha"
	"marketing-site/config"
	"marketing-site/content"
	"marketing-site/email"
	"marketing-site/forms"
	"marketing-site/metrics"
	"marketing-site/ratelimit"
	"marketing-site/search"
	"marketing-site/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("Starting marketing site backend",
		"env", cfg.Env,
		"email_provider", cfg.EmailProvider,
		"bucket", cfg.Bucket,
		"content_dir", cfg.ContentDir)

	var storageClient *storage.Client
	if cfg.Bucket != "" {
		var err error
		storageClient, err = storage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("create storage client: %w", err)
		}
		defer func() {
			if err := storageClient.Close(); err != nil {
				logger.Warn("Failed to close storage client", "error", err)
			}
		}()
	}
	store := content.New(storageClient, cfg.Bucket, cfg.ContentDir, logger)

	provider, err := newEmailProvider(ctx, cfg, logger)
	if err != nil {
		return err
	}

	limiterStore := ratelimit.Store(ratelimit.NewMemoryStore())
	if cfg.RedisURL != "" {
		client, err := ratelimit.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer func() {
			if err := client.Close(); err != nil {
				logger.Warn("Failed to close redis client", "error", err)
			}
		}()
		limiterStore = ratelimit.NewRedisStore(client, "ratelimit:")
		logger.Info("Using Redis rate limit store")
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	pipeline := forms.New(&forms.Config{
		Limiter:  ratelimit.New(limiterStore, logger),
		Verifier: captcha.New(&captcha.Config{Production: cfg.Production(), Logger: logger}),
		Notifier: email.New(&email.Config{
			Provider:  provider,
			Logger:    logger,
			AdminAddr: cfg.AdminEmail,
			SiteName:  cfg.SiteName,
			BaseURL:   cfg.BaseURL,
		}),
		Secrets:    cfg.Secrets,
		Production: cfg.Production(),
		Metrics:    m,
		Logger:     logger,
	})

	index := search.NewIndex(store, m, logger)
	if err := index.Refresh(ctx); err != nil {
		// Search stays empty until the next refresh succeeds.
		logger.Error("Initial search index build failed", "error", err)
	}
	if cfg.ReindexInterval > 0 {
		go index.Run(ctx, cfg.ReindexInterval)
	}

	srv := server.New(&server.Config{
		Pipeline:         pipeline,
		Searcher:         index,
		Reindexer:        index,
		Popups:           store,
		Metrics:          m,
		Logger:           logger,
		CORSOrigins:      cfg.CORSOrigins,
		ReindexToken:     cfg.ReindexToken,
		Secure:           cfg.Production(),
		TrustedProxyHops: cfg.TrustedProxyHops,
	})
	return srv.ListenAndServe(ctx, cfg.Port)
}

// newEmailProvider builds the configured provider.
func newEmailProvider(ctx context.Context, cfg *config.Config, logger *slog.Logger) (email.Provider, error) {
	switch cfg.EmailProvider {
	case config.ProviderBrevo:
		return email.NewBrevoProvider(cfg.BrevoAPIKey, cfg.MailFrom, cfg.MailFromName, logger), nil
	case config.ProviderGmail:
		svc, err := email.NewGmailService(ctx, cfg.GoogleCreds)
		if err != nil {
			return nil, fmt.Errorf("initialize gmail: %w", err)
		}
		return email.NewGmailProvider(svc, logger), nil
	case config.ProviderMock:
		logger.Warn("Using mock email provider, messages are logged and not delivered")
		return email.NewMockProvider(logger), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.EmailProvider)
	}
}
