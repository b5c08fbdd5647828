package search

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"marketing-site/content"
	"marketing-site/metrics"
	"marketing-site/pkg/site"
)

// Source lists content collections.
type Source interface {
	Collection(ctx context.Context, name string) ([]content.Entry, error)
}

var collectionTypes = map[string]site.DocType{
	"pages":    site.DocPage,
	"services": site.DocService,
	"projects": site.DocProject,
	"offers":   site.DocOffer,
}

// Index holds the current corpus and rebuilds it from content on demand.
type Index struct {
	source  Source
	limits  Limits
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu      sync.RWMutex
	corpus  *Corpus
	builtAt time.Time
}

// NewIndex creates an empty index over source.
func NewIndex(source Source, m *metrics.Metrics, logger *slog.Logger) *Index {
	return &Index{
		source:  source,
		limits:  DefaultLimits,
		metrics: m,
		logger:  logger,
		corpus:  &Corpus{},
	}
}

// Refresh rebuilds the corpus from every search collection. A collection that
// fails to load aborts the refresh and the previous corpus is kept.
func (x *Index) Refresh(ctx context.Context) error {
	startTime := time.Now()
	var items []Item
	for _, name := range content.SearchCollections {
		if err := ctx.Err(); err != nil {
			return err
		}
		entries, err := x.source.Collection(ctx, name)
		if err != nil {
			return fmt.Errorf("load %s: %w", name, err)
		}
		for _, e := range entries {
			items = append(items, itemFor(e))
		}
	}

	corpus := NewCorpus(items, x.limits)
	x.mu.Lock()
	x.corpus = corpus
	x.builtAt = time.Now()
	x.mu.Unlock()

	x.logger.Info("Search index rebuilt",
		"documents", corpus.Len(),
		"duration_ms", time.Since(startTime).Milliseconds())
	return nil
}

// Run refreshes the index every interval until ctx is done.
func (x *Index) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			x.logger.Info("Context cancelled, stopping reindex loop", "error", ctx.Err())
			return
		case <-ticker.C:
			if err := x.Refresh(ctx); err != nil {
				x.logger.Warn("Search reindex failed", "error", err)
			}
		}
	}
}

// Search queries the current corpus.
func (x *Index) Search(query string) []site.SearchResult {
	x.mu.RLock()
	corpus := x.corpus
	x.mu.RUnlock()

	results := corpus.Search(query)
	switch {
	case results == nil && len([]rune(Normalize(query))) < MinQueryLen:
		x.metrics.SearchQuery("short")
	case len(results) == 0:
		x.metrics.SearchQuery("miss")
	default:
		x.metrics.SearchQuery("hit")
	}
	return results
}

// Stats returns the document count and when the corpus was last built.
func (x *Index) Stats() (int, time.Time) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.corpus.Len(), x.builtAt
}

func itemFor(e content.Entry) Item {
	title := e.String("title")
	if title == "" {
		title = e.String("name")
	}
	if title == "" {
		title = e.Slug
	}

	snippet := e.String("summary")
	if snippet == "" {
		snippet = e.String("description")
	}

	return Item{
		Title:   title,
		Href:    hrefFor(e),
		Type:    collectionTypes[e.Collection],
		Snippet: snippet,
		Tree:    e.Data,
	}
}

// hrefFor links pages at the site root and other collections below their name.
func hrefFor(e content.Entry) string {
	if h := e.String("href"); h != "" {
		return h
	}
	if e.Collection == "pages" {
		if e.Slug == "home" {
			return "/"
		}
		return "/" + e.Slug
	}
	return "/" + e.Collection + "/" + e.Slug
}
