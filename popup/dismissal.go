package popup

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DismissalStore records when each popup was last dismissed.
type DismissalStore interface {
	LastDismissed(slug string) (time.Time, bool)
	Record(slug string, at time.Time)
}

// MemoryStore is an in-process DismissalStore.
type MemoryStore struct {
	mu   sync.Mutex
	last map[string]time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{last: make(map[string]time.Time)}
}

// LastDismissed implements DismissalStore.
func (m *MemoryStore) LastDismissed(slug string) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.last[slug]
	return t, ok
}

// Record implements DismissalStore.
func (m *MemoryStore) Record(slug string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last[slug] = at
}

// CookiePrefix prefixes per-slug dismissal cookies. Values are epoch milliseconds.
const CookiePrefix = "popup_dismissed_"

// CookieName returns the dismissal cookie name for slug. Bytes that are not
// valid in a cookie name are written as %XX, so every slug gets a cookie that
// net/http will actually set.
func CookieName(slug string) string {
	var b strings.Builder
	b.WriteString(CookiePrefix)
	for i := 0; i < len(slug); i++ {
		c := slug[i]
		if cookieSafe(c) {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}

func cookieSafe(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '_', c == '.':
		return true
	}
	return false
}

// CookieStore reads dismissals from request cookies and writes new ones to the response.
type CookieStore struct {
	r      *http.Request
	w      http.ResponseWriter
	maxAge time.Duration
	secure bool
}

// NewCookieStore creates a store bound to one request. w may be nil for read-only use.
// maxAge bounds how long written cookies live.
func NewCookieStore(r *http.Request, w http.ResponseWriter, maxAge time.Duration, secure bool) *CookieStore {
	return &CookieStore{r: r, w: w, maxAge: maxAge, secure: secure}
}

// LastDismissed implements DismissalStore. Malformed cookies are ignored.
func (c *CookieStore) LastDismissed(slug string) (time.Time, bool) {
	ck, err := c.r.Cookie(CookieName(slug))
	if err != nil {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(strings.TrimSpace(ck.Value), 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// Record implements DismissalStore.
func (c *CookieStore) Record(slug string, at time.Time) {
	if c.w == nil {
		return
	}
	http.SetCookie(c.w, &http.Cookie{
		Name:     CookieName(slug),
		Value:    strconv.FormatInt(at.UnixMilli(), 10),
		Path:     "/",
		MaxAge:   int(c.maxAge.Seconds()),
		HttpOnly: false, // the page script reads it too
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
