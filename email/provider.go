// Package email renders and sends form notifications via pluggable providers.
package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"strings"

	"marketing-site/pkg/site"
)

//go:embed tmpl/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "tmpl/*.tmpl"))

// Message is a single outbound email.
type Message struct {
	To      string
	ReplyTo string
	Subject string
	HTML    string
}

// Provider defines the interface for email sending implementations.
type Provider interface {
	// Send makes one delivery attempt.
	Send(ctx context.Context, msg Message) error
}

// Sender renders operator and submitter notifications and hands them to a provider.
type Sender struct {
	provider  Provider
	logger    *slog.Logger
	adminAddr string
	siteName  string
	baseURL   string
}

// Config holds sender configuration.
type Config struct {
	Provider  Provider
	Logger    *slog.Logger
	AdminAddr string
	SiteName  string
	BaseURL   string
}

// New creates a new email sender.
func New(cfg *Config) *Sender {
	siteName := cfg.SiteName
	if siteName == "" {
		siteName = "us"
	}
	return &Sender{
		provider:  cfg.Provider,
		logger:    cfg.Logger,
		adminAddr: cfg.AdminAddr,
		siteName:  siteName,
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
	}
}

// SendAdmin notifies the site operator about a submission. Replies go to the submitter.
func (s *Sender) SendAdmin(ctx context.Context, sub site.Submission) error {
	if s.adminAddr == "" {
		return fmt.Errorf("send %s admin email: no admin address configured", sub.Form())
	}

	body, err := render("admin.tmpl", adminData{
		Heading:  adminSubject(sub),
		SiteName: s.siteName,
		Fields:   sub.Fields(),
	})
	if err != nil {
		return err
	}

	s.logger.Info("Sending admin notification", "form", sub.Form())
	return s.provider.Send(ctx, Message{
		To:      s.adminAddr,
		ReplyTo: sub.Submitter(),
		Subject: adminSubject(sub),
		HTML:    body,
	})
}

// SendConfirmation sends the submitter a confirmation of their submission.
func (s *Sender) SendConfirmation(ctx context.Context, sub site.Submission) error {
	data := confirmData{
		Name:     sub.DisplayName(),
		SiteName: s.siteName,
		BaseURL:  s.baseURL,
	}
	if sb, ok := sub.(*site.Subscribe); ok {
		data.OfferCode = sb.OfferCode
		data.OfferHeadline = sb.OfferHeadline
	}

	name := "confirm_" + string(sub.Form()) + ".tmpl"
	body, err := render(name, data)
	if err != nil {
		return err
	}

	s.logger.Info("Sending confirmation email", "form", sub.Form())
	return s.provider.Send(ctx, Message{
		To:      sub.Submitter(),
		Subject: confirmSubject(sub, s.siteName),
		HTML:    body,
	})
}

type adminData struct {
	Heading  string
	SiteName string
	Fields   []site.Field
}

type confirmData struct {
	Name          string
	SiteName      string
	BaseURL       string
	OfferCode     string
	OfferHeadline string
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func adminSubject(sub site.Submission) string {
	who := sub.DisplayName()
	if who == "" {
		who = sub.Submitter()
	}
	switch sub.Form() {
	case site.FormQuote:
		return "New quote request from " + who
	case site.FormSubscribe:
		return "New subscriber: " + who
	default:
		return "New contact message from " + who
	}
}

func confirmSubject(sub site.Submission, siteName string) string {
	switch sub.Form() {
	case site.FormQuote:
		return "We received your quote request"
	case site.FormSubscribe:
		return "Subscription confirmed"
	default:
		return "Thanks for contacting " + siteName
	}
}
