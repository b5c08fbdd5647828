package email

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// gcpMetadataURL only answers on Google Cloud runtimes.
const gcpMetadataURL = "http://metadata.google.internal/computeMetadata/v1/project/project-id"

// ErrNoGmailCredentials is returned when neither service-account JSON nor a
// Google Cloud runtime is available.
var ErrNoGmailCredentials = errors.New("gmail: GOOGLE_CREDENTIALS_JSON required outside Google Cloud")

// GmailProvider sends emails via Gmail API.
type GmailProvider struct {
	service *gmail.Service
	logger  *slog.Logger
}

// NewGmailProvider creates a new Gmail email provider.
func NewGmailProvider(service *gmail.Service, logger *slog.Logger) *GmailProvider {
	return &GmailProvider{
		service: service,
		logger:  logger,
	}
}

// NewGmailService connects to the Gmail API. Explicit service-account JSON wins;
// otherwise Application Default Credentials are used when the process runs on
// Google Cloud, where the service account needs the gmail.send scope.
func NewGmailService(ctx context.Context, credsJSON string) (*gmail.Service, error) {
	if credsJSON != "" {
		return gmail.NewService(ctx, option.WithCredentialsJSON([]byte(credsJSON)))
	}
	if onGoogleCloud(ctx, http.DefaultClient, gcpMetadataURL) {
		return gmail.NewService(ctx)
	}
	return nil, ErrNoGmailCredentials
}

// onGoogleCloud probes the metadata server at url with a short deadline.
func onGoogleCloud(ctx context.Context, client *http.Client, url string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	req.Header.Set("Metadata-Flavor", "Google")

	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode == http.StatusOK && resp.Header.Get("Metadata-Flavor") == "Google"
}

// sanitizeEmailHeader removes CR, LF and other control characters so a
// submitted value cannot inject headers.
func sanitizeEmailHeader(s string) string {
	var result strings.Builder
	for _, r := range s {
		if r >= 32 && r != 127 {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// buildMIME assembles the raw RFC 5322 message. From is set by Gmail based on
// the authenticated account.
func buildMIME(msg Message) string {
	var b strings.Builder
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "To: %s\r\n", sanitizeEmailHeader(msg.To))
	if msg.ReplyTo != "" {
		fmt.Fprintf(&b, "Reply-To: %s\r\n", sanitizeEmailHeader(msg.ReplyTo))
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", sanitizeEmailHeader(msg.Subject))
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	b.WriteString(msg.HTML)
	return b.String()
}

// Send makes a single Gmail API call.
func (g *GmailProvider) Send(ctx context.Context, msg Message) error {
	encoded := base64.URLEncoding.EncodeToString([]byte(buildMIME(msg)))

	g.logger.Info("Gmail API request starting",
		"method", "POST",
		"endpoint", "users.messages.send",
		"subject", sanitizeEmailHeader(msg.Subject))

	startTime := time.Now()
	_, err := g.service.Users.Messages.Send("me", &gmail.Message{Raw: encoded}).Context(ctx).Do()
	duration := time.Since(startTime)
	if err != nil {
		g.logger.Warn("Gmail API send failed",
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return fmt.Errorf("gmail send: %w", err)
	}

	g.logger.Info("Gmail API request completed",
		"endpoint", "users.messages.send",
		"duration_ms", duration.Milliseconds(),
		"status", "success")
	return nil
}
