// Package captcha verifies Cloudflare Turnstile challenge tokens server-side.
package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultEndpoint is the Turnstile siteverify URL.
const DefaultEndpoint = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

// User-facing failure messages.
const (
	MsgMissingToken  = "Please complete the verification."
	MsgMissingConfig = "Server is missing Turnstile configuration."
	MsgUnavailable   = "Unable to verify. Please try again."
	MsgRejected      = "Verification failed. Please try again."
)

// ErrMissingSecret is returned by Outcome.Err when no secret was configured in production.
var ErrMissingSecret = errors.New("captcha: missing secret")

// Outcome is the result of a verification.
type Outcome struct {
	Success bool
	// Error is a short message safe to show to the submitter.
	Error string
	// Codes holds raw provider error codes, if the provider rejected the token.
	Codes []string
	// MissingConfig marks a server configuration failure rather than a client one.
	MissingConfig bool
}

// Err returns nil on success and a descriptive error otherwise.
func (o Outcome) Err() error {
	if o.Success {
		return nil
	}
	if o.MissingConfig {
		return ErrMissingSecret
	}
	if len(o.Codes) > 0 {
		return fmt.Errorf("captcha: %s (%s)", o.Error, strings.Join(o.Codes, ","))
	}
	return fmt.Errorf("captcha: %s", o.Error)
}

// Verifier checks tokens against the remote provider.
type Verifier struct {
	client     *http.Client
	endpoint   string
	production bool
	logger     *slog.Logger
}

// Config holds verifier configuration.
type Config struct {
	Client     *http.Client
	Endpoint   string
	Production bool
	Logger     *slog.Logger
}

// New creates a verifier.
func New(cfg *Config) *Verifier {
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Verifier{
		client:     client,
		endpoint:   endpoint,
		production: cfg.Production,
		logger:     cfg.Logger,
	}
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify checks token with secret. remoteIP is optional and forwarded to the provider.
// A single attempt is made; failures are returned for the caller to surface.
func (v *Verifier) Verify(ctx context.Context, token, secret, remoteIP string) Outcome {
	token = strings.TrimSpace(token)
	if token == "" {
		return Outcome{Error: MsgMissingToken}
	}

	if secret == "" {
		if !v.production {
			v.logger.Debug("Turnstile secret not configured, skipping verification outside production")
			return Outcome{Success: true}
		}
		v.logger.Error("Turnstile secret not configured")
		return Outcome{Error: MsgMissingConfig, MissingConfig: true}
	}

	form := url.Values{}
	form.Set("secret", secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		v.logger.Warn("Failed to build Turnstile request", "error", err)
		return Outcome{Error: MsgUnavailable}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	startTime := time.Now()
	resp, err := v.client.Do(req)
	duration := time.Since(startTime)
	if err != nil {
		v.logger.Warn("Turnstile request failed", "duration_ms", duration.Milliseconds(), "error", err)
		return Outcome{Error: MsgUnavailable}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			v.logger.Warn("Failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		v.logger.Warn("Turnstile returned non-2xx status", "status_code", resp.StatusCode, "duration_ms", duration.Milliseconds())
		return Outcome{Error: MsgUnavailable}
	}

	var body siteverifyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err != nil {
		v.logger.Warn("Failed to decode Turnstile response", "error", err)
		return Outcome{Error: MsgUnavailable}
	}

	if !body.Success {
		v.logger.Info("Turnstile rejected token", "codes", body.ErrorCodes, "token_length", len(token))
		return Outcome{Error: MsgRejected, Codes: body.ErrorCodes}
	}

	return Outcome{Success: true}
}

// RemoteIP extracts the best-effort client IP for verification: the Cloudflare
// connecting-IP header first, then the first X-Forwarded-For entry.
func RemoteIP(h http.Header) string {
	if ip := strings.TrimSpace(h.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if xff := h.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	return ""
}

// ResolveSecret returns the first non-empty secret.
func ResolveSecret(candidates ...string) string {
	for _, s := range candidates {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}
