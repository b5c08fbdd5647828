// Package metrics holds the Prometheus counters exported by the site backend.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the site backend.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	SubmissionsTotal   *prometheus.CounterVec
	CaptchaTotal       *prometheus.CounterVec
	EmailSendsTotal    *prometheus.CounterVec
	SearchQueriesTotal *prometheus.CounterVec
	PopupsServedTotal  *prometheus.CounterVec
}

// New creates the metrics and registers them with reg. A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SubmissionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forms_submissions_total",
				Help: "Form submissions by form and pipeline outcome",
			},
			[]string{"form", "outcome"},
		),
		CaptchaTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "captcha_verifications_total",
				Help: "CAPTCHA verifications by result",
			},
			[]string{"result"},
		),
		EmailSendsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "email_sends_total",
				Help: "Notification sends by audience (admin, user) and status",
			},
			[]string{"audience", "status"},
		),
		SearchQueriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Search queries by result (hit, miss, short)",
			},
			[]string{"result"},
		),
		PopupsServedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "popups_served_total",
				Help: "Popup lookups by result (shown, suppressed, none)",
			},
			[]string{"result"},
		),
	}
}

// Submission counts one pipeline outcome.
func (m *Metrics) Submission(form, outcome string) {
	if m == nil {
		return
	}
	m.SubmissionsTotal.WithLabelValues(form, outcome).Inc()
}

// Captcha counts one verification result.
func (m *Metrics) Captcha(result string) {
	if m == nil {
		return
	}
	m.CaptchaTotal.WithLabelValues(result).Inc()
}

// EmailSend counts one notification attempt.
func (m *Metrics) EmailSend(audience string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.EmailSendsTotal.WithLabelValues(audience, status).Inc()
}

// SearchQuery counts one search request.
func (m *Metrics) SearchQuery(result string) {
	if m == nil {
		return
	}
	m.SearchQueriesTotal.WithLabelValues(result).Inc()
}

// PopupServed counts one popup lookup.
func (m *Metrics) PopupServed(result string) {
	if m == nil {
		return
	}
	m.PopupsServedTotal.WithLabelValues(result).Inc()
}
