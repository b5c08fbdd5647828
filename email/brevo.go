package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// BrevoEndpoint is the Brevo transactional email API.
const BrevoEndpoint = "https://api.brevo.com/v3/smtp/email"

// BrevoProvider sends emails via Brevo (formerly Sendinblue) API.
type BrevoProvider struct {
	apiKey   string
	fromAddr string
	fromName string
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// NewBrevoProvider creates a new Brevo email provider.
func NewBrevoProvider(apiKey, fromAddr, fromName string, logger *slog.Logger) *BrevoProvider {
	return &BrevoProvider{
		apiKey:   apiKey,
		fromAddr: fromAddr,
		fromName: fromName,
		endpoint: BrevoEndpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
	}
}

type brevoSendRequest struct {
	Sender  brevoContact   `json:"sender"`
	To      []brevoContact `json:"to"`
	ReplyTo *brevoContact  `json:"replyTo,omitempty"`
	Subject string         `json:"subject"`
	HTML    string         `json:"htmlContent"`
}

type brevoContact struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Send makes a single Brevo API call.
func (b *BrevoProvider) Send(ctx context.Context, msg Message) error {
	reqBody := brevoSendRequest{
		Sender:  brevoContact{Email: b.fromAddr, Name: b.fromName},
		To:      []brevoContact{{Email: msg.To}},
		Subject: msg.Subject,
		HTML:    msg.HTML,
	}
	if msg.ReplyTo != "" {
		reqBody.ReplyTo = &brevoContact{Email: msg.ReplyTo}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	b.logger.Info("Brevo API request starting",
		"method", "POST",
		"endpoint", "smtp/email",
		"subject", msg.Subject)

	startTime := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", b.apiKey)

	resp, err := b.client.Do(req)
	duration := time.Since(startTime)
	if err != nil {
		b.logger.Warn("Brevo API request failed",
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return fmt.Errorf("brevo send: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			b.logger.Warn("Failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		b.logger.Warn("Brevo API returned non-2xx status",
			"status_code", resp.StatusCode,
			"body", string(detail))
		return fmt.Errorf("brevo send: HTTP %d", resp.StatusCode)
	}

	b.logger.Info("Brevo API request completed",
		"endpoint", "smtp/email",
		"duration_ms", duration.Milliseconds(),
		"status", "success")
	return nil
}
