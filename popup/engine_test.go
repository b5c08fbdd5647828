package popup

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"marketing-site/pkg/site"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.stopped = true
	return true
}

type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (s *fakeScheduler) after(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) last() *fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timers[len(s.timers)-1]
}

type shows struct {
	mu    sync.Mutex
	slugs []string
}

func (s *shows) record(p site.Popup) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slugs = append(s.slugs, p.Slug)
}

func (s *shows) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slugs)
}

func withTrigger(slug, path string, trig site.Trigger) site.Popup {
	return site.Popup{
		Slug:      slug,
		Targeting: site.Targeting{Paths: []string{path}},
		Trigger:   trig,
		Frequency: site.Frequency{DismissForDays: 7},
	}
}

var desktop = Viewport{Width: 1280, ScrollHeight: 3000, ClientHeight: 1000}

func TestDelayTrigger(t *testing.T) {
	sched := &fakeScheduler{}
	var s shows
	e := NewEngine([]site.Popup{withTrigger("promo", "/", site.Trigger{Type: site.TriggerDelay, Value: -50})},
		NewMemoryStore(), quietLogger(), WithTimer(sched.after))

	a := e.Navigate("/", desktop, s.record)
	if a == nil {
		t.Fatal("Navigate() = nil, want armed popup")
	}
	tm := sched.last()
	if tm.d != 0 {
		t.Errorf("delay = %v, want 0 for negative value", tm.d)
	}
	tm.f()
	tm.f()
	if s.count() != 1 || !a.Fired() {
		t.Errorf("shows = %d, want exactly 1", s.count())
	}
}

func TestDelayTriggerRealTimer(t *testing.T) {
	done := make(chan string, 1)
	e := NewEngine([]site.Popup{withTrigger("promo", "/", site.Trigger{Type: site.TriggerDelay, Value: 5})},
		NewMemoryStore(), quietLogger())

	e.Navigate("/", desktop, func(p site.Popup) { done <- p.Slug })
	select {
	case slug := <-done:
		if slug != "promo" {
			t.Errorf("shown = %q, want promo", slug)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("delay trigger never fired")
	}
}

func TestNavigateCancelsPrevious(t *testing.T) {
	sched := &fakeScheduler{}
	var s shows
	e := NewEngine([]site.Popup{
		withTrigger("home", "/", site.Trigger{Type: site.TriggerDelay, Value: 1000}),
		withTrigger("about", "/about", site.Trigger{Type: site.TriggerDelay, Value: 1000}),
	}, NewMemoryStore(), quietLogger(), WithTimer(sched.after))

	e.Navigate("/", desktop, s.record)
	first := sched.last()
	e.Navigate("/about", desktop, s.record)

	if !first.stopped {
		t.Error("previous timer not stopped on navigation")
	}
	first.f()
	if s.count() != 0 {
		t.Error("cancelled popup fired")
	}
	sched.last().f()
	if s.count() != 1 || s.slugs[0] != "about" {
		t.Errorf("shows = %v, want [about]", s.slugs)
	}
}

func TestScrollTrigger(t *testing.T) {
	tests := []struct {
		name      string
		value     int
		initial   float64
		events    []float64
		wantShown int
	}{
		{"fires at threshold", 50, 0, []float64{500, 1000, 1500}, 1},
		{"fires immediately when already past", 20, 900, nil, 1},
		{"clamps above 100", 250, 0, []float64{1999}, 0},
		{"clamped 100 reachable at bottom", 250, 0, []float64{2000}, 1},
		{"negative clamps to zero", -10, 0, nil, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s shows
			e := NewEngine([]site.Popup{withTrigger("scroll", "/", site.Trigger{Type: site.TriggerScroll, Value: tt.value})},
				NewMemoryStore(), quietLogger())
			vp := desktop
			vp.ScrollTop = tt.initial

			a := e.Navigate("/", vp, s.record)
			for _, top := range tt.events {
				a.Scroll(top, vp.ScrollHeight, vp.ClientHeight)
			}
			if s.count() != tt.wantShown {
				t.Errorf("shows = %d, want %d", s.count(), tt.wantShown)
			}
		})
	}
}

func TestScrollPercentShortPage(t *testing.T) {
	vp := Viewport{ScrollTop: 0, ScrollHeight: 500, ClientHeight: 800}
	if got := vp.ScrollPercent(); got != 0 {
		t.Errorf("ScrollPercent() = %v, want 0", got)
	}
}

func TestExitIntentTrigger(t *testing.T) {
	var s shows
	e := NewEngine([]site.Popup{withTrigger("exit", "/", site.Trigger{Type: site.TriggerExitIntent})},
		NewMemoryStore(), quietLogger())

	if a := e.Navigate("/", Viewport{Width: 767}, s.record); a != nil {
		t.Fatal("exit intent armed on mobile viewport")
	}

	a := e.Navigate("/", Viewport{Width: 768}, s.record)
	if a == nil {
		t.Fatal("exit intent not armed on desktop viewport")
	}
	a.MouseOut(true, -5)
	a.MouseOut(false, 12)
	a.Scroll(3000, 3000, 1000)
	if s.count() != 0 {
		t.Fatalf("fired on non-exit events")
	}
	a.MouseOut(false, 0)
	a.MouseOut(false, -3)
	if s.count() != 1 {
		t.Errorf("shows = %d, want 1", s.count())
	}
}

func TestDismissSuppressesForWindow(t *testing.T) {
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := NewMemoryStore()
	sched := &fakeScheduler{}
	e := NewEngine([]site.Popup{withTrigger("promo", "/", site.Trigger{Type: site.TriggerDelay, Value: 10})},
		store, quietLogger(), WithClock(clock), WithTimer(sched.after))

	if e.Navigate("/", desktop, nil) == nil {
		t.Fatal("first navigation did not arm")
	}
	e.Dismiss("promo")
	if !sched.last().stopped {
		t.Error("dismiss did not tear down the armed trigger")
	}

	now = now.Add(7*24*time.Hour - time.Millisecond)
	if e.Navigate("/", desktop, nil) != nil {
		t.Error("armed before cooldown elapsed")
	}
	now = now.Add(time.Millisecond)
	if e.Navigate("/", desktop, nil) == nil {
		t.Error("not armed at cooldown expiry")
	}
}

func TestCloseCancels(t *testing.T) {
	sched := &fakeScheduler{}
	var s shows
	e := NewEngine([]site.Popup{withTrigger("promo", "/", site.Trigger{Type: site.TriggerDelay, Value: 10})},
		NewMemoryStore(), quietLogger(), WithTimer(sched.after))
	e.Navigate("/", desktop, s.record)
	e.Close()
	sched.last().f()
	if s.count() != 0 {
		t.Error("fired after Close")
	}
}

type fakeSubscriber struct {
	got SubscribeRequest
	err error
}

func (f *fakeSubscriber) Subscribe(_ context.Context, req SubscribeRequest) error {
	f.got = req
	return f.err
}

func capturePopup(captcha bool) site.Popup {
	p := withTrigger("spring", "/", site.Trigger{Type: site.TriggerDelay})
	p.Headline = "10% off spring cleanup"
	p.EmailCapture = &site.EmailCapture{OfferCode: "SPRING10", SuccessMessage: "You're in!", Captcha: captcha}
	return p
}

func TestCaptureValidation(t *testing.T) {
	sub := &fakeSubscriber{}
	c := NewCapture(NewEngine(nil, NewMemoryStore(), quietLogger()), sub)

	if res := c.Submit(context.Background(), capturePopup(true), "  ", "tok"); res.Error != MsgEmailRequired {
		t.Errorf("Submit() error = %q, want %q", res.Error, MsgEmailRequired)
	}
	if res := c.Submit(context.Background(), capturePopup(true), "a@b.co", ""); res.Error != MsgTokenRequired {
		t.Errorf("Submit() error = %q, want %q", res.Error, MsgTokenRequired)
	}
	if sub.got.Email != "" {
		t.Error("subscriber called despite local validation failure")
	}
}

func TestCaptureSuccessRecordsDismissal(t *testing.T) {
	sub := &fakeSubscriber{}
	store := NewMemoryStore()
	c := NewCapture(NewEngine(nil, store, quietLogger()), sub)

	res := c.Submit(context.Background(), capturePopup(false), " ada@example.com ", "")
	if !res.OK || res.OfferCode != "SPRING10" || res.SuccessMessage != "You're in!" {
		t.Errorf("Submit() = %+v", res)
	}
	if sub.got.TurnstileContext != site.ContextPopup || sub.got.Email != "ada@example.com" || sub.got.OfferHeadline != "10% off spring cleanup" {
		t.Errorf("request = %+v", sub.got)
	}
	if _, ok := store.LastDismissed("spring"); !ok {
		t.Error("dismissal not recorded after success")
	}
}

func TestCaptureSurfacesEndpointError(t *testing.T) {
	sub := &fakeSubscriber{err: &SubscribeError{Status: 400, Message: "Verification failed. Please try again."}}
	store := NewMemoryStore()
	c := NewCapture(NewEngine(nil, store, quietLogger()), sub)

	res := c.Submit(context.Background(), capturePopup(true), "ada@example.com", "tok")
	if res.OK || res.Error != "Verification failed. Please try again." || !res.ResetCaptcha {
		t.Errorf("Submit() = %+v", res)
	}
	if _, ok := store.LastDismissed("spring"); ok {
		t.Error("dismissal recorded after failure")
	}

	sub.err = errors.New("connection refused")
	if res := c.Submit(context.Background(), capturePopup(true), "ada@example.com", "tok"); res.Error != msgSubscribeFail {
		t.Errorf("Submit() error = %q, want generic", res.Error)
	}
}

func TestHTTPSubscriber(t *testing.T) {
	var got SubscribeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/subscribe" {
			t.Errorf("path = %s, want /api/subscribe", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		if got.Email == "bad" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"ok":false,"error":"Please enter a valid email address."}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	h := NewHTTPSubscriber(srv.URL+"/", quietLogger())
	if err := h.Subscribe(context.Background(), SubscribeRequest{Email: "ada@example.com", TurnstileContext: "popup"}); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if got.TurnstileContext != "popup" {
		t.Errorf("context = %q, want popup", got.TurnstileContext)
	}

	err := h.Subscribe(context.Background(), SubscribeRequest{Email: "bad"})
	var serr *SubscribeError
	if !errors.As(err, &serr) || serr.Status != http.StatusBadRequest || serr.Message != "Please enter a valid email address." {
		t.Errorf("Subscribe() error = %v, want SubscribeError 400", err)
	}
}
