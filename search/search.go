package search

import (
	"sort"
	"strings"
	"unicode/utf8"

	"marketing-site/pkg/site"
)

// Query bounds.
const (
	MinQueryLen = 2
	MaxResults  = 20
)

// Snippet window, in runes around the first match.
const (
	snippetBefore = 40
	snippetAfter  = 60
	ellipsis      = "…"
)

// Priority returns a document's static rank. Higher ranks first.
func Priority(d *site.Document) int {
	switch {
	case d.Href == "/contact" || d.Href == "/quote":
		return 90
	case d.Type == site.DocProject:
		return 70
	case d.Type == site.DocService:
		return 60
	case d.Type == site.DocOffer:
		return 50
	default:
		return 0
	}
}

// entry is an indexed document with the mapping needed to cut snippets from
// the display text.
type entry struct {
	doc     site.Document
	text    []rune
	offsets []int
}

func newEntry(doc site.Document, text string, maxChars int) entry {
	runes := []rune(text)
	haystack, offsets := normalizeMapped(runes)
	haystack, offsets = capRunes(haystack, offsets, maxChars)
	doc.Haystack = haystack
	return entry{doc: doc, text: runes, offsets: offsets}
}

// Item is a source document before indexing. Tree is the full content object.
type Item struct {
	Title   string
	Href    string
	Type    site.DocType
	Snippet string
	Tree    any
}

// Corpus is an immutable set of indexed documents.
type Corpus struct {
	entries []entry
}

// BuildHaystack returns the normalized haystack for tree.
func BuildHaystack(tree any, limits Limits) string {
	h, offsets := normalizeMapped([]rune(CollectText(tree, limits)))
	h, _ = capRunes(h, offsets, limits.MaxTotalChars)
	return h
}

// NewCorpus indexes items in order.
func NewCorpus(items []Item, limits Limits) *Corpus {
	c := &Corpus{entries: make([]entry, 0, len(items))}
	for _, it := range items {
		doc := site.Document{Title: it.Title, Href: it.Href, Type: it.Type, Snippet: it.Snippet}
		c.entries = append(c.entries, newEntry(doc, CollectText(it.Tree, limits), limits.MaxTotalChars))
	}
	return c
}

// Len returns the number of documents.
func (c *Corpus) Len() int { return len(c.entries) }

// Documents returns the indexed documents with their haystacks.
func (c *Corpus) Documents() []site.Document {
	docs := make([]site.Document, len(c.entries))
	for i := range c.entries {
		docs[i] = c.entries[i].doc
	}
	return docs
}

// Search returns documents whose haystack contains the normalized query,
// ranked by Priority and then corpus order, capped at MaxResults. Queries
// shorter than MinQueryLen return nothing.
func (c *Corpus) Search(query string) []site.SearchResult {
	q := Normalize(query)
	if utf8.RuneCountInString(q) < MinQueryLen {
		return nil
	}
	corpus := c.entries

	type hit struct {
		e   *entry
		pos int
	}
	var hits []hit
	for i := range corpus {
		if pos := strings.Index(corpus[i].doc.Haystack, q); pos >= 0 {
			hits = append(hits, hit{e: &corpus[i], pos: pos})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return Priority(&hits[i].e.doc) > Priority(&hits[j].e.doc)
	})
	if len(hits) > MaxResults {
		hits = hits[:MaxResults]
	}

	results := make([]site.SearchResult, 0, len(hits))
	for _, h := range hits {
		d := h.e.doc
		snippet := d.Snippet
		if s := h.e.snippet(h.pos, len(q)); s != "" {
			snippet = s
		}
		results = append(results, site.SearchResult{
			Title:   d.Title,
			Href:    d.Href,
			Type:    d.Type,
			Snippet: snippet,
		})
	}
	return results
}

// snippet cuts the display text around a match at byte pos (length n) of the haystack.
func (e *entry) snippet(pos, n int) string {
	if len(e.offsets) == 0 || pos >= len(e.offsets) {
		return ""
	}
	start := e.offsets[pos]
	end := e.offsets[min(pos+n, len(e.offsets))-1] + 1

	from := max(0, start-snippetBefore)
	to := min(len(e.text), end+snippetAfter)

	s := strings.TrimSpace(string(e.text[from:to]))
	if from > 0 {
		s = ellipsis + s
	}
	if to < len(e.text) {
		s += ellipsis
	}
	return s
}
