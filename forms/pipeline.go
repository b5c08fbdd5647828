// Package forms runs the contact, quote and subscribe submission pipeline:
// rate limit, honeypot, CAPTCHA, validation, then operator and submitter notifications.
package forms

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"marketing-site/captcha"
	"marketing-site/metrics"
	"marketing-site/pkg/site"
	"marketing-site/ratelimit"
)

// Caps applied to popup offer fields.
const (
	MaxOfferCode     = 64
	MaxOfferHeadline = 200
)

// Generic failure messages.
const (
	MsgRateLimited = "Too many requests. Please try again later."
	MsgFailed      = "Something went wrong. Please try again later."
)

// Outcome classifies how a submission ended.
type Outcome string

// Pipeline outcomes.
const (
	OutcomeAccepted    Outcome = "accepted"
	OutcomeRateLimited Outcome = "rate_limited"
	OutcomeBot         Outcome = "bot"
	OutcomeInvalid     Outcome = "invalid"
	OutcomeCaptcha     Outcome = "captcha"
	OutcomeDependency  Outcome = "dependency"
)

// Result is the pipeline's verdict for one submission.
type Result struct {
	OK         bool
	Status     int
	Error      string
	RetryAfter int
	// Codes holds raw CAPTCHA provider codes; populated outside production only.
	Codes   []string
	Outcome Outcome
}

// Client identifies the submitter.
type Client struct {
	// IP keys the rate limiter.
	IP string
	// RemoteIP is forwarded to the CAPTCHA provider; may be empty.
	RemoteIP string
}

// Policy is a fixed-window rate limit.
type Policy struct {
	Limit  int
	Window time.Duration
}

// DefaultPolicies are the per-form rate limits.
var DefaultPolicies = map[site.FormType]Policy{
	site.FormContact:   {Limit: 10, Window: 10 * time.Minute},
	site.FormQuote:     {Limit: 10, Window: 10 * time.Minute},
	site.FormSubscribe: {Limit: 15, Window: 10 * time.Minute},
}

// Secrets holds CAPTCHA secrets. Empty endpoint keys fall back to Global.
type Secrets struct {
	Global    string
	Quote     string
	Subscribe string
	Popup     string
}

// For returns the secret for a submission of form from origin (the turnstileContext value).
func (s Secrets) For(form site.FormType, origin string) string {
	switch form {
	case site.FormQuote:
		return captcha.ResolveSecret(s.Quote, s.Global)
	case site.FormSubscribe:
		if origin == site.ContextPopup {
			return captcha.ResolveSecret(s.Popup, s.Subscribe, s.Global)
		}
		return captcha.ResolveSecret(s.Subscribe, s.Global)
	default:
		return ""
	}
}

// Limiter is the rate limiter used by the pipeline.
type Limiter interface {
	Check(ctx context.Context, key string, limit int, window time.Duration) ratelimit.Verdict
}

// Verifier verifies CAPTCHA tokens.
type Verifier interface {
	Verify(ctx context.Context, token, secret, remoteIP string) captcha.Outcome
}

// Notifier dispatches the two notifications for an accepted submission.
type Notifier interface {
	SendAdmin(ctx context.Context, sub site.Submission) error
	SendConfirmation(ctx context.Context, sub site.Submission) error
}

// Pipeline processes form submissions.
type Pipeline struct {
	limiter    Limiter
	verifier   Verifier
	notifier   Notifier
	secrets    Secrets
	policies   map[site.FormType]Policy
	production bool
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// Config holds pipeline dependencies.
type Config struct {
	Limiter    Limiter
	Verifier   Verifier
	Notifier   Notifier
	Secrets    Secrets
	Policies   map[site.FormType]Policy // nil means DefaultPolicies
	Production bool
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

// New creates a pipeline.
func New(cfg *Config) *Pipeline {
	policies := cfg.Policies
	if policies == nil {
		policies = DefaultPolicies
	}
	return &Pipeline{
		limiter:    cfg.Limiter,
		verifier:   cfg.Verifier,
		notifier:   cfg.Notifier,
		secrets:    cfg.Secrets,
		policies:   policies,
		production: cfg.Production,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
	}
}

// requiresCaptcha reports whether form is challenge-protected.
func requiresCaptcha(form site.FormType) bool {
	return form == site.FormQuote || form == site.FormSubscribe
}

// Handle runs body through every stage, stopping at the first failure.
func (p *Pipeline) Handle(ctx context.Context, form site.FormType, body []byte, client Client) Result {
	res := p.handle(ctx, form, body, client)
	p.metrics.Submission(string(form), string(res.Outcome))
	return res
}

func (p *Pipeline) handle(ctx context.Context, form site.FormType, body []byte, client Client) Result {
	policy, ok := p.policies[form]
	if !ok {
		p.logger.Error("No rate limit policy for form", "form", form)
		return failure(http.StatusInternalServerError, MsgFailed, OutcomeDependency)
	}

	if v := p.limiter.Check(ctx, string(form)+":"+client.IP, policy.Limit, policy.Window); !v.OK {
		p.logger.Info("Submission rate limited", "form", form, "ip", client.IP, "retry_after", v.RetryAfter)
		res := failure(http.StatusTooManyRequests, MsgRateLimited, OutcomeRateLimited)
		res.RetryAfter = v.RetryAfter
		return res
	}

	raw := parseBody(body)

	if IsLikelyBot(asTrimmedString(raw[HoneypotField])) {
		p.logger.Info("Honeypot tripped, dropping submission", "form", form, "ip", client.IP)
		return Result{OK: true, Status: http.StatusOK, Outcome: OutcomeBot}
	}

	if requiresCaptcha(form) {
		secret := p.secrets.For(form, asTrimmedString(raw["turnstileContext"]))
		out := p.verifier.Verify(ctx, asTrimmedString(raw["turnstileToken"]), secret, client.RemoteIP)
		if !out.Success {
			p.metrics.Captcha(captchaResult(out))
			status := http.StatusBadRequest
			if out.MissingConfig {
				status = http.StatusInternalServerError
			}
			p.logger.Info("CAPTCHA verification failed", "form", form, "error", out.Err())
			res := failure(status, out.Error, OutcomeCaptcha)
			if !p.production {
				res.Codes = out.Codes
			}
			return res
		}
		p.metrics.Captcha("success")
	}

	sub, err := decode(form, raw)
	if err != nil {
		if verr, ok := err.(*validationError); ok {
			return failure(http.StatusBadRequest, verr.msg, OutcomeInvalid)
		}
		p.logger.Error("Failed to decode submission", "form", form, "error", err)
		return failure(http.StatusInternalServerError, MsgFailed, OutcomeDependency)
	}

	// Admin first, then submitter. A failed confirmation after a delivered admin
	// email is reported as a failure; a resubmission may notify the operator twice.
	err = p.notifier.SendAdmin(ctx, sub)
	p.metrics.EmailSend("admin", err)
	if err != nil {
		p.logger.Error("Failed to send admin notification", "form", form, "error", err)
		return failure(http.StatusInternalServerError, MsgFailed, OutcomeDependency)
	}

	err = p.notifier.SendConfirmation(ctx, sub)
	p.metrics.EmailSend("user", err)
	if err != nil {
		p.logger.Error("Failed to send confirmation", "form", form, "error", err)
		return failure(http.StatusInternalServerError, MsgFailed, OutcomeDependency)
	}

	p.logger.Info("Submission accepted", "form", form)
	return Result{OK: true, Status: http.StatusOK, Outcome: OutcomeAccepted}
}

func failure(status int, msg string, outcome Outcome) Result {
	return Result{Status: status, Error: msg, Outcome: outcome}
}

func captchaResult(out captcha.Outcome) string {
	switch {
	case out.MissingConfig:
		return "missing_config"
	case out.Error == captcha.MsgMissingToken:
		return "missing_token"
	case out.Error == captcha.MsgRejected:
		return "rejected"
	default:
		return "unavailable"
	}
}
