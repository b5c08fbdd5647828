// Package popup selects promotional popups for a path, enforces dismissal
// cooldowns, and arms one-shot display triggers.
package popup

import (
	"strings"
	"time"

	"marketing-site/pkg/site"
)

// Pattern match scores.
const (
	scoreNone   = 0
	scorePrefix = 1
	scoreExact  = 2
)

// MatchScore scores a single targeting pattern against path. A pattern is an
// exact path or a "<prefix>/*" wildcard that matches any path below prefix.
func MatchScore(pattern, path string) int {
	if pattern == path {
		return scoreExact
	}
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok && strings.HasPrefix(path, prefix+"/") {
		return scorePrefix
	}
	return scoreNone
}

// Score returns the best score of any of p's patterns against path.
func Score(p *site.Popup, path string) int {
	best := scoreNone
	for _, pattern := range p.Targeting.Paths {
		if s := MatchScore(pattern, path); s > best {
			best = s
		}
	}
	return best
}

// Select returns the popup for path, or nil when none matches. The highest
// score wins; ties go to the lexicographically smallest slug.
func Select(popups []site.Popup, path string) *site.Popup {
	var (
		chosen *site.Popup
		best   int
	)
	for i := range popups {
		p := &popups[i]
		s := Score(p, path)
		if s == scoreNone {
			continue
		}
		if chosen == nil || s > best || (s == best && p.Slug < chosen.Slug) {
			chosen, best = p, s
		}
	}
	return chosen
}

// Suppressed reports whether a dismissal at last still blocks p at now.
func Suppressed(p *site.Popup, last time.Time, dismissed bool, now time.Time) bool {
	if !dismissed {
		return false
	}
	return now.Sub(last) < p.DismissWindow()
}

// Resolve selects the popup for path and drops it if its cooldown is active.
// A suppressed winner does not yield to a lower-ranked popup.
func Resolve(popups []site.Popup, path string, store DismissalStore, now time.Time) *site.Popup {
	p := Select(popups, path)
	if p == nil {
		return nil
	}
	last, ok := store.LastDismissed(p.Slug)
	if Suppressed(p, last, ok, now) {
		return nil
	}
	return p
}
