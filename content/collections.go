package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"marketing-site/pkg/site"
)

// SearchCollections are the collections indexed for search, in corpus order.
var SearchCollections = []string{"pages", "services", "projects", "offers"}

// PopupsCollection holds popup definitions.
const PopupsCollection = "popups"

// Entry is one document of a collection.
type Entry struct {
	Collection string
	Slug       string
	Data       map[string]any
}

// String returns a trimmed string field, or "".
func (e Entry) String(field string) string {
	s, _ := e.Data[field].(string)
	return strings.TrimSpace(s)
}

// Collection loads every document in name. Documents that fail to load or
// decode are logged and skipped.
func (s *Store) Collection(ctx context.Context, name string) ([]Entry, error) {
	keys, err := s.List(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", name, err)
	}

	entries := make([]Entry, 0, len(keys))
	for _, key := range keys {
		data, err := s.Get(ctx, key)
		if err != nil {
			s.logger.Warn("Failed to load content document", "key", key, "error", err)
			continue
		}
		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil || doc == nil {
			s.logger.Warn("Failed to decode content document", "key", key, "error", err)
			continue
		}
		e := Entry{Collection: name, Data: doc}
		if e.Slug = e.String("slug"); e.Slug == "" {
			e.Slug = strings.TrimSuffix(path.Base(key), ".json")
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Popups loads popup definitions. Invalid definitions (no slug, no target
// paths, negative cooldown) are skipped, and popup bodies are sanitized.
func (s *Store) Popups(ctx context.Context) ([]site.Popup, error) {
	keys, err := s.List(ctx, PopupsCollection)
	if err != nil {
		return nil, fmt.Errorf("list popups: %w", err)
	}

	var popups []site.Popup
	seen := make(map[string]bool)
	for _, key := range keys {
		data, err := s.Get(ctx, key)
		if err != nil {
			s.logger.Warn("Failed to load popup", "key", key, "error", err)
			continue
		}
		var p site.Popup
		if err := json.Unmarshal(data, &p); err != nil {
			s.logger.Warn("Failed to decode popup", "key", key, "error", err)
			continue
		}
		if p.Slug == "" {
			p.Slug = strings.TrimSuffix(path.Base(key), ".json")
		}
		if err := validatePopup(&p); err != nil {
			s.logger.Warn("Skipping invalid popup", "key", key, "error", err)
			continue
		}
		if seen[p.Slug] {
			s.logger.Warn("Skipping duplicate popup slug", "key", key, "slug", p.Slug)
			continue
		}
		seen[p.Slug] = true
		p.Body = SanitizeHTML(p.Body)
		popups = append(popups, p)
	}
	return popups, nil
}

// ErrInvalidPopup is wrapped by popup validation failures.
var ErrInvalidPopup = errors.New("invalid popup")

func validatePopup(p *site.Popup) error {
	if !validSlug(p.Slug) {
		return fmt.Errorf("%w: slug %q must be letters, digits, '-' or '_'", ErrInvalidPopup, p.Slug)
	}
	if len(p.Targeting.Paths) == 0 {
		return fmt.Errorf("%w: %s has no target paths", ErrInvalidPopup, p.Slug)
	}
	if p.Frequency.DismissForDays < 0 {
		return fmt.Errorf("%w: %s has negative dismissForDays", ErrInvalidPopup, p.Slug)
	}
	switch p.Trigger.Type {
	case site.TriggerDelay, site.TriggerScroll, site.TriggerExitIntent:
	default:
		return fmt.Errorf("%w: %s has unknown trigger %q", ErrInvalidPopup, p.Slug, p.Trigger.Type)
	}
	return nil
}

// validSlug reports whether slug is usable in URLs and cookie names as is.
func validSlug(slug string) bool {
	if slug == "" {
		return false
	}
	for _, r := range slug {
		switch {
		case 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z', '0' <= r && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
