package search

import (
	"reflect"
	"sort"
	"strings"
	"unicode/utf8"
)

// Limits bound haystack construction.
type Limits struct {
	MaxDepth      int
	MaxStrings    int
	MaxTotalChars int
}

// DefaultLimits are the traversal bounds used for indexing.
var DefaultLimits = Limits{MaxDepth: 6, MaxStrings: 400, MaxTotalChars: 20000}

type visitKey struct {
	kind reflect.Kind
	ptr  uintptr
	n    int
}

type collector struct {
	limits  Limits
	parts   []string
	chars   int
	visited map[visitKey]bool
	full    bool
}

// CollectText walks tree depth-first and returns its trimmed, non-empty strings
// joined by single spaces. Maps are visited in key order; numbers and booleans
// are ignored. Each map, slice or pointer is visited once, so cycles terminate.
// The result never exceeds limits.MaxTotalChars runes.
func CollectText(tree any, limits Limits) string {
	c := &collector{limits: limits, visited: make(map[visitKey]bool)}
	c.walk(reflect.ValueOf(tree), 0)
	return strings.Join(c.parts, " ")
}

func (c *collector) walk(v reflect.Value, depth int) {
	if c.full || !v.IsValid() || depth > c.limits.MaxDepth {
		return
	}

	switch v.Kind() {
	case reflect.Interface:
		if !v.IsNil() {
			c.walk(v.Elem(), depth)
		}

	case reflect.Pointer:
		if v.IsNil() || c.seen(v, 0) {
			return
		}
		c.walk(v.Elem(), depth)

	case reflect.String:
		c.add(v.String())

	case reflect.Map:
		if v.IsNil() || v.Type().Key().Kind() != reflect.String || c.seen(v, 0) {
			return
		}
		keys := v.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		for _, k := range keys {
			c.walk(v.MapIndex(k), depth+1)
		}

	case reflect.Slice:
		if v.IsNil() || c.seen(v, v.Len()) {
			return
		}
		fallthrough
	case reflect.Array:
		for i := 0; i < v.Len(); i++ {
			c.walk(v.Index(i), depth+1)
		}

	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if v.Type().Field(i).IsExported() {
				c.walk(v.Field(i), depth+1)
			}
		}
	}
}

// seen marks v visited and reports whether it already was.
func (c *collector) seen(v reflect.Value, n int) bool {
	k := visitKey{kind: v.Kind(), ptr: v.Pointer(), n: n}
	if c.visited[k] {
		return true
	}
	c.visited[k] = true
	return false
}

func (c *collector) add(s string) {
	s = strings.TrimSpace(textOf(s))
	if s == "" {
		return
	}

	sep := 0
	if len(c.parts) > 0 {
		sep = 1
	}
	room := c.limits.MaxTotalChars - c.chars - sep
	if room <= 0 {
		c.full = true
		return
	}
	if n := utf8.RuneCountInString(s); n > room {
		s = string([]rune(s)[:room])
	}

	c.parts = append(c.parts, s)
	c.chars += sep + utf8.RuneCountInString(s)
	if len(c.parts) >= c.limits.MaxStrings || c.chars >= c.limits.MaxTotalChars {
		c.full = true
	}
}
