package content

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// allowedTags is the whitelist for rich-text fields shown in popups.
var allowedTags = map[atom.Atom]bool{
	atom.P:          true,
	atom.Br:         true,
	atom.B:          true,
	atom.Strong:     true,
	atom.I:          true,
	atom.Em:         true,
	atom.U:          true,
	atom.Blockquote: true,
	atom.Img:        true,
	atom.A:          true,
	atom.Ul:         true,
	atom.Ol:         true,
	atom.Li:         true,
	atom.Div:        true,
	atom.Span:       true,
}

// droppedContent are elements whose text is removed along with the tag.
var droppedContent = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Iframe:   true,
	atom.Object:   true,
	atom.Embed:    true,
	atom.Noscript: true,
	atom.Template: true,
}

// SanitizeHTML keeps only whitelisted tags. Links keep a safe href, images a
// safe src and alt; every other attribute is dropped. Text is re-escaped.
func SanitizeHTML(s string) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	skipDepth := 0

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return b.String()

		case html.TextToken:
			if skipDepth == 0 {
				b.WriteString(html.EscapeString(string(z.Text())))
			}

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if droppedContent[tok.DataAtom] {
				if tt == html.StartTagToken {
					skipDepth++
				}
				continue
			}
			if skipDepth > 0 || !allowedTags[tok.DataAtom] {
				continue
			}
			writeStartTag(&b, tok)

		case html.EndTagToken:
			tok := z.Token()
			if droppedContent[tok.DataAtom] {
				if skipDepth > 0 {
					skipDepth--
				}
				continue
			}
			if skipDepth > 0 || !allowedTags[tok.DataAtom] || tok.DataAtom == atom.Br || tok.DataAtom == atom.Img {
				continue
			}
			b.WriteString("</")
			b.WriteString(tok.Data)
			b.WriteString(">")
		}
	}
}

func writeStartTag(b *strings.Builder, tok html.Token) {
	b.WriteString("<")
	b.WriteString(tok.Data)
	for _, a := range tok.Attr {
		keep := false
		switch tok.DataAtom {
		case atom.A:
			keep = a.Key == "href" && isSafeURL(a.Val)
		case atom.Img:
			keep = (a.Key == "src" && isSafeURL(a.Val)) || a.Key == "alt"
		}
		if keep {
			b.WriteString(" ")
			b.WriteString(a.Key)
			b.WriteString(`="`)
			b.WriteString(html.EscapeString(a.Val))
			b.WriteString(`"`)
		}
	}
	if tok.DataAtom == atom.A {
		b.WriteString(` rel="noopener"`)
	}
	b.WriteString(">")
}

// isSafeURL allows http(s), mailto, tel and site-relative URLs.
func isSafeURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "//") {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "":
		return strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "#")
	case "http", "https", "mailto", "tel":
		return true
	default:
		return false
	}
}
