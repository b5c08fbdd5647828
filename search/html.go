package search

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// looksLikeHTML is a cheap check for rich-text fields.
func looksLikeHTML(s string) bool {
	i := strings.IndexByte(s, '<')
	return i >= 0 && strings.IndexByte(s[i:], '>') > 0
}

// textOf returns the visible text of s when it looks like HTML, otherwise s.
func textOf(s string) string {
	if !looksLikeHTML(s) {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	doc.Find("script, style, noscript, template").Remove()
	// Block elements run into each other in Text(); pad them.
	doc.Find("p, div, li, br, h1, h2, h3, h4, h5, h6, blockquote, td, th").Each(func(_ int, sel *goquery.Selection) {
		sel.AppendHtml(" ")
	})
	return strings.Join(strings.Fields(doc.Text()), " ")
}
