package popup

import (
	"log/slog"
	"sync"
	"time"

	"marketing-site/pkg/site"
)

// DesktopMinWidth is the narrowest viewport, in CSS pixels, that arms exit intent.
const DesktopMinWidth = 768

// Viewport describes the page at navigation time.
type Viewport struct {
	Width        int
	ScrollTop    float64
	ScrollHeight float64
	ClientHeight float64
}

// ScrollPercent returns how far down the scrollable height the page is, 0..100+.
func (v Viewport) ScrollPercent() float64 {
	return scrollPercent(v.ScrollTop, v.ScrollHeight, v.ClientHeight)
}

func scrollPercent(top, height, client float64) float64 {
	return top / max(1, height-client) * 100
}

// Engine drives popup selection across navigations. At most one popup is
// armed at a time; navigating or closing tears the previous one down.
type Engine struct {
	popups    []site.Popup
	store     DismissalStore
	logger    *slog.Logger
	now       func() time.Time
	afterFunc func(time.Duration, func()) Timer

	mu      sync.Mutex
	current *Arming
}

// Timer is a cancellable scheduled callback, satisfied by *time.Timer.
type Timer interface {
	Stop() bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the engine's time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithTimer overrides how delay triggers are scheduled.
func WithTimer(after func(time.Duration, func()) Timer) Option {
	return func(e *Engine) { e.afterFunc = after }
}

// NewEngine creates an engine over popups.
func NewEngine(popups []site.Popup, store DismissalStore, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		popups: popups,
		store:  store,
		logger: logger,
		now:    time.Now,
		afterFunc: func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Navigate handles a path change. It cancels any armed popup, then selects and
// arms the popup for path. onShow runs at most once, when the trigger fires.
// It returns nil when nothing is armed.
func (e *Engine) Navigate(path string, vp Viewport, onShow func(site.Popup)) *Arming {
	a := e.arm(path, vp, onShow)
	if a != nil && a.kind == site.TriggerScroll {
		// The threshold may already be met.
		a.Scroll(vp.ScrollTop, vp.ScrollHeight, vp.ClientHeight)
	}
	return a
}

func (e *Engine) arm(path string, vp Viewport, onShow func(site.Popup)) *Arming {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current != nil {
		e.current.Cancel()
		e.current = nil
	}

	p := Resolve(e.popups, path, e.store, e.now())
	if p == nil {
		return nil
	}

	a := &Arming{popup: *p, kind: p.Trigger.Type, onShow: onShow}
	switch p.Trigger.Type {
	case site.TriggerDelay:
		delay := time.Duration(max(0, p.Trigger.Value)) * time.Millisecond
		a.mu.Lock()
		a.timer = e.afterFunc(delay, a.fire)
		a.mu.Unlock()
	case site.TriggerScroll:
		a.threshold = float64(min(100, max(0, p.Trigger.Value)))
	case site.TriggerExitIntent:
		if vp.Width < DesktopMinWidth {
			e.logger.Debug("Exit-intent popup skipped on narrow viewport", "slug", p.Slug, "width", vp.Width)
			return nil
		}
	default:
		e.logger.Warn("Unknown popup trigger", "slug", p.Slug, "trigger", p.Trigger.Type)
		return nil
	}

	e.current = a
	return a
}

// Dismiss records a dismissal of slug now and tears down its arming.
func (e *Engine) Dismiss(slug string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.store.Record(slug, e.now())
	if e.current != nil && e.current.popup.Slug == slug {
		e.current.Cancel()
		e.current = nil
	}
}

// Close cancels the current arming.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current != nil {
		e.current.Cancel()
		e.current = nil
	}
}

// Arming is an armed popup waiting for its trigger. Exactly one trigger kind is
// live; the first event that satisfies it fires onShow, and later events are ignored.
type Arming struct {
	popup     site.Popup
	kind      site.TriggerType
	onShow    func(site.Popup)
	threshold float64

	mu        sync.Mutex
	timer     Timer
	fired     bool
	cancelled bool
}

// Popup returns the armed popup.
func (a *Arming) Popup() site.Popup { return a.popup }

// Fired reports whether the trigger has fired.
func (a *Arming) Fired() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fired
}

// Scroll feeds a scroll event. Ignored unless this is a scroll trigger.
func (a *Arming) Scroll(scrollTop, scrollHeight, clientHeight float64) {
	if a.kind != site.TriggerScroll {
		return
	}
	if scrollPercent(scrollTop, scrollHeight, clientHeight) >= a.threshold {
		a.fire()
	}
}

// MouseOut feeds a document mouse-out event. Ignored unless this is an
// exit-intent trigger. The cursor must leave through the top edge.
func (a *Arming) MouseOut(hasRelatedTarget bool, clientY float64) {
	if a.kind != site.TriggerExitIntent || hasRelatedTarget || clientY > 0 {
		return
	}
	a.fire()
}

// Cancel tears the arming down. A cancelled arming never fires.
func (a *Arming) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cancelled = true
	if a.timer != nil {
		a.timer.Stop()
	}
}

func (a *Arming) fire() {
	a.mu.Lock()
	if a.fired || a.cancelled {
		a.mu.Unlock()
		return
	}
	a.fired = true
	a.mu.Unlock()

	if a.onShow != nil {
		a.onShow(a.popup)
	}
}
