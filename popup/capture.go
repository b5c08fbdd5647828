package popup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"marketing-site/pkg/site"
)

// Client-side validation messages.
const (
	MsgEmailRequired = "Please enter your email."
	MsgTokenRequired = "Please complete the verification."
	msgSubscribeFail = "Something went wrong. Please try again later."
)

// SubscribeRequest is the subscribe endpoint payload sent from a popup.
type SubscribeRequest struct {
	Email            string `json:"email"`
	TurnstileToken   string `json:"turnstileToken,omitempty"`
	TurnstileContext string `json:"turnstileContext"`
	OfferCode        string `json:"offerCode,omitempty"`
	OfferHeadline    string `json:"offerHeadline,omitempty"`
}

// Subscriber submits a subscription.
type Subscriber interface {
	Subscribe(ctx context.Context, req SubscribeRequest) error
}

// SubscribeError carries the endpoint's user-facing error message.
type SubscribeError struct {
	Status  int
	Message string
}

func (e *SubscribeError) Error() string {
	return fmt.Sprintf("subscribe: HTTP %d: %s", e.Status, e.Message)
}

// CaptureResult is the outcome of an email-capture submission.
type CaptureResult struct {
	OK bool
	// Error is shown to the visitor verbatim.
	Error string
	// ResetCaptcha asks the caller to reset the challenge widget.
	ResetCaptcha bool
	// SuccessMessage and OfferCode populate the success panel.
	SuccessMessage string
	OfferCode      string
}

// Capture submits a popup's email-capture form.
type Capture struct {
	engine     *Engine
	subscriber Subscriber
}

// NewCapture creates a capture bound to an engine, which receives the dismissal on success.
func NewCapture(engine *Engine, subscriber Subscriber) *Capture {
	return &Capture{engine: engine, subscriber: subscriber}
}

// Submit validates the form locally, then calls the subscribe endpoint once.
func (c *Capture) Submit(ctx context.Context, p site.Popup, email, token string) CaptureResult {
	if p.EmailCapture == nil {
		return CaptureResult{Error: msgSubscribeFail}
	}
	email = strings.TrimSpace(email)
	token = strings.TrimSpace(token)
	if email == "" {
		return CaptureResult{Error: MsgEmailRequired}
	}
	if p.EmailCapture.Captcha && token == "" {
		return CaptureResult{Error: MsgTokenRequired}
	}

	err := c.subscriber.Subscribe(ctx, SubscribeRequest{
		Email:            email,
		TurnstileToken:   token,
		TurnstileContext: site.ContextPopup,
		OfferCode:        p.EmailCapture.OfferCode,
		OfferHeadline:    p.Headline,
	})
	if err != nil {
		msg := msgSubscribeFail
		var serr *SubscribeError
		if errors.As(err, &serr) && serr.Message != "" {
			msg = serr.Message
		}
		return CaptureResult{Error: msg, ResetCaptcha: p.EmailCapture.Captcha}
	}

	c.engine.Dismiss(p.Slug)
	return CaptureResult{
		OK:             true,
		SuccessMessage: p.EmailCapture.SuccessMessage,
		OfferCode:      p.EmailCapture.OfferCode,
	}
}

// HTTPSubscriber posts to the site's subscribe endpoint.
type HTTPSubscriber struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// NewHTTPSubscriber creates a subscriber for baseURL's /api/subscribe.
func NewHTTPSubscriber(baseURL string, logger *slog.Logger) *HTTPSubscriber {
	return &HTTPSubscriber{
		endpoint: strings.TrimSuffix(baseURL, "/") + "/api/subscribe",
		client:   &http.Client{Timeout: 15 * time.Second},
		logger:   logger,
	}
}

// Subscribe implements Subscriber with a single request.
func (h *HTTPSubscriber) Subscribe(ctx context.Context, sr SubscribeRequest) error {
	body, err := json.Marshal(sr)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			h.logger.Warn("Failed to close response body", "error", closeErr)
		}
	}()

	var reply struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&reply); err != nil {
		return &SubscribeError{Status: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK || !reply.OK {
		return &SubscribeError{Status: resp.StatusCode, Message: reply.Error}
	}
	return nil
}
