// Package site contains the core domain types for the marketing site backend.
package site

import "time"

// FormType identifies one of the lead-generation forms.
type FormType string

// Supported forms.
const (
	FormContact   FormType = "contact"
	FormQuote     FormType = "quote"
	FormSubscribe FormType = "subscribe"
)

// Field is a labelled value shown in operator notifications.
type Field struct {
	Label string
	Value string
}

// Submission is a validated, typed form submission.
type Submission interface {
	Form() FormType
	// Submitter returns the submitter's email address (used as Reply-To).
	Submitter() string
	// DisplayName returns the submitter's name, or "" when the form has none.
	DisplayName() string
	// Fields returns the non-empty fields in display order.
	Fields() []Field
}

// Contact is a validated contact form submission.
type Contact struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,probablyemail"`
	Phone   string `json:"phone"`
	Service string `json:"service"`
	Message string `json:"message" validate:"required"`
}

// Form implements Submission.
func (c *Contact) Form() FormType { return FormContact }

// Submitter implements Submission.
func (c *Contact) Submitter() string { return c.Email }

// DisplayName implements Submission.
func (c *Contact) DisplayName() string { return c.Name }

// Fields implements Submission.
func (c *Contact) Fields() []Field {
	return nonEmpty([]Field{
		{"Name", c.Name},
		{"Email", c.Email},
		{"Phone", c.Phone},
		{"Service", c.Service},
		{"Message", c.Message},
	})
}

// Quote is a validated quote request.
type Quote struct {
	Name              string `json:"name" validate:"required"`
	Email             string `json:"email" validate:"required,probablyemail"`
	Phone             string `json:"phone"`
	Address           string `json:"address"`
	ServiceType       string `json:"serviceType" validate:"required"`
	Timeframe         string `json:"timeframe"`
	Budget            string `json:"budget"`
	JobDetails        string `json:"jobDetails" validate:"required"`
	CalculatorSummary string `json:"calculatorSummary"`
}

// Form implements Submission.
func (q *Quote) Form() FormType { return FormQuote }

// Submitter implements Submission.
func (q *Quote) Submitter() string { return q.Email }

// DisplayName implements Submission.
func (q *Quote) DisplayName() string { return q.Name }

// Fields implements Submission.
func (q *Quote) Fields() []Field {
	return nonEmpty([]Field{
		{"Name", q.Name},
		{"Email", q.Email},
		{"Phone", q.Phone},
		{"Address", q.Address},
		{"Service type", q.ServiceType},
		{"Timeframe", q.Timeframe},
		{"Budget", q.Budget},
		{"Job details", q.JobDetails},
		{"Calculator summary", q.CalculatorSummary},
	})
}

// Subscribe is a validated newsletter/offer subscription.
type Subscribe struct {
	Email         string `json:"email" validate:"required,probablyemail"`
	Context       string `json:"turnstileContext"`
	OfferCode     string `json:"offerCode"`
	OfferHeadline string `json:"offerHeadline"`
}

// FromPopup reports whether the subscription came from a popup email capture.
func (s *Subscribe) FromPopup() bool { return s.Context == ContextPopup }

// Form implements Submission.
func (s *Subscribe) Form() FormType { return FormSubscribe }

// Submitter implements Submission.
func (s *Subscribe) Submitter() string { return s.Email }

// DisplayName implements Submission.
func (s *Subscribe) DisplayName() string { return "" }

// Fields implements Submission.
func (s *Subscribe) Fields() []Field {
	source := "Subscribe form"
	if s.FromPopup() {
		source = "Popup"
	}
	return nonEmpty([]Field{
		{"Email", s.Email},
		{"Source", source},
		{"Offer", s.OfferHeadline},
		{"Offer code", s.OfferCode},
	})
}

// ContextPopup marks a subscription submitted from a popup.
const ContextPopup = "popup"

func nonEmpty(fields []Field) []Field {
	out := fields[:0]
	for _, f := range fields {
		if f.Value != "" {
			out = append(out, f)
		}
	}
	return out
}

// TriggerType selects when an armed popup is shown.
type TriggerType string

// Popup triggers.
const (
	TriggerDelay      TriggerType = "delay"
	TriggerScroll     TriggerType = "scroll"
	TriggerExitIntent TriggerType = "exitIntent"
)

// Trigger describes a popup trigger. Value is milliseconds for delay and a
// percentage for scroll; it is ignored for exit intent.
type Trigger struct {
	Type  TriggerType `json:"type"`
	Value int         `json:"value,omitempty"`
}

// Targeting lists the path patterns a popup applies to.
type Targeting struct {
	Paths []string `json:"paths"`
}

// Frequency controls re-display after a dismissal.
type Frequency struct {
	DismissForDays int `json:"dismissForDays"`
}

// CTA is a call-to-action button.
type CTA struct {
	Label string `json:"label"`
	Href  string `json:"href"`
}

// EmailCapture configures an inline subscribe form in a popup.
type EmailCapture struct {
	Placeholder    string `json:"placeholder,omitempty"`
	ButtonLabel    string `json:"buttonLabel,omitempty"`
	SuccessMessage string `json:"successMessage,omitempty"`
	OfferCode      string `json:"offerCode,omitempty"`
	Captcha        bool   `json:"captcha,omitempty"`
}

// Popup is a promotional popup definition read from the content store.
type Popup struct {
	Slug         string        `json:"slug"`
	Targeting    Targeting     `json:"targeting"`
	Trigger      Trigger       `json:"trigger"`
	Frequency    Frequency     `json:"frequency"`
	Headline     string        `json:"headline"`
	Body         string        `json:"body,omitempty"`
	Image        string        `json:"image,omitempty"`
	CTA          *CTA          `json:"cta,omitempty"`
	EmailCapture *EmailCapture `json:"emailCapture,omitempty"`
}

// DismissWindow returns how long a dismissal suppresses the popup.
func (p *Popup) DismissWindow() time.Duration {
	days := p.Frequency.DismissForDays
	if days < 0 {
		days = 0
	}
	return time.Duration(days) * 24 * time.Hour
}

// DocType classifies a search document.
type DocType string

// Search document types.
const (
	DocPage    DocType = "page"
	DocService DocType = "service"
	DocProject DocType = "project"
	DocOffer   DocType = "offer"
)

// Document is a searchable item derived from content.
type Document struct {
	Title    string  `json:"title"`
	Href     string  `json:"href"`
	Type     DocType `json:"type"`
	Snippet  string  `json:"snippet,omitempty"`
	Haystack string  `json:"-"`
}

// SearchResult is a single entry returned to search clients.
type SearchResult struct {
	Title   string  `json:"title"`
	Href    string  `json:"href"`
	Type    DocType `json:"type"`
	Snippet string  `json:"snippet,omitempty"`
}
