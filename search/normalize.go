// Package search builds normalized haystacks from content and answers
// substring queries over them.
package search

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes text and drops combining marks, so "é" becomes "e".
var stripMarks = runes.Remove(runes.In(unicode.Mn))

// foldRune returns the normalized form of a single rune. Whitespace folds to " ".
func foldRune(r rune) string {
	if unicode.IsSpace(r) {
		return " "
	}
	if r < utf8.RuneSelf {
		return string(unicode.ToLower(r))
	}
	s, _, err := transform.String(transform.Chain(norm.NFD, stripMarks), string(r))
	if err != nil {
		s = string(r)
	}
	return strings.ToLower(s)
}

// Normalize lower-cases s, strips diacritics and collapses whitespace runs to a
// single space. The result is trimmed.
func Normalize(s string) string {
	out, _ := normalizeMapped([]rune(s))
	return out
}

// normalizeMapped normalizes text and returns, for every byte of the result,
// the index of the source rune it came from.
func normalizeMapped(text []rune) (string, []int) {
	var b strings.Builder
	offsets := make([]int, 0, len(text))
	space := true // suppress leading whitespace
	for i, r := range text {
		f := foldRune(r)
		if f == "" {
			continue
		}
		if f == " " {
			if space {
				continue
			}
			space = true
		} else {
			space = false
		}
		b.WriteString(f)
		for range len(f) {
			offsets = append(offsets, i)
		}
	}
	out := b.String()
	if strings.HasSuffix(out, " ") {
		out = out[:len(out)-1]
		offsets = offsets[:len(offsets)-1]
	}
	return out, offsets
}

// capRunes keeps at most n runes of a mapped normalization, trimming a trailing
// space left by the cut. Decomposition can lengthen text, so the collected
// budget is enforced again here.
func capRunes(s string, offsets []int, n int) (string, []int) {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s, offsets
	}
	cut := 0
	for range n {
		_, size := utf8.DecodeRuneInString(s[cut:])
		cut += size
	}
	out := strings.TrimRight(s[:cut], " ")
	return out, offsets[:len(out)]
}
