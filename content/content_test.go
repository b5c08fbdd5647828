package content

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"marketing-site/pkg/site"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeFile(t *testing.T, root, key, body string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestGetLocal(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pages/about.json", `{"title":"About"}`)
	s := New(nil, "", root, quietLogger())

	data, err := s.Get(context.Background(), "pages/about.json")
	if err != nil || !strings.Contains(string(data), "About") {
		t.Fatalf("Get() = %q, %v", data, err)
	}
	if _, err := s.Get(context.Background(), "pages/missing.json"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestGetRejectsTraversal(t *testing.T) {
	s := New(nil, "", t.TempDir(), quietLogger())
	for _, key := range []string{"../etc/passwd", "/abs.json", "pages//x.json", "a/./b", `a\b`, ""} {
		if _, err := s.Get(context.Background(), key); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get(%q) error = %v, want ErrNotFound", key, err)
		}
	}
}

func TestCollection(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "services/lawn-care.json", `{"title":"Lawn Care"}`)
	writeFile(t, root, "services/b.json", `{"title":"Hedges","slug":"hedge-trimming"}`)
	writeFile(t, root, "services/broken.json", `{not json`)
	writeFile(t, root, "services/notes.txt", `ignored`)
	s := New(nil, "", root, quietLogger())

	entries, err := s.Collection(context.Background(), "services")
	if err != nil {
		t.Fatalf("Collection() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].Slug != "hedge-trimming" || entries[1].Slug != "lawn-care" {
		t.Errorf("slugs = %q, %q", entries[0].Slug, entries[1].Slug)
	}
	if entries[1].String("title") != "Lawn Care" || entries[1].Collection != "services" {
		t.Errorf("entry = %+v", entries[1])
	}

	empty, err := s.Collection(context.Background(), "offers")
	if err != nil || len(empty) != 0 {
		t.Errorf("Collection(missing) = %v, %v, want empty", empty, err)
	}
}

func TestPopups(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "popups/spring.json", `{
		"targeting":{"paths":["/services/*"]},
		"trigger":{"type":"delay","value":3000},
		"frequency":{"dismissForDays":7},
		"headline":"Spring offer",
		"body":"<p onclick=\"x()\">Save <b>10%</b></p><script>alert(1)</script>",
		"emailCapture":{"offerCode":"SPRING10"}
	}`)
	writeFile(t, root, "popups/nopaths.json", `{"slug":"nopaths","targeting":{"paths":[]},"trigger":{"type":"delay"}}`)
	writeFile(t, root, "popups/negative.json", `{"targeting":{"paths":["/"]},"trigger":{"type":"delay"},"frequency":{"dismissForDays":-1}}`)
	writeFile(t, root, "popups/weird.json", `{"targeting":{"paths":["/"]},"trigger":{"type":"hover"}}`)
	writeFile(t, root, "popups/spaced.json", `{"slug":"summer sale","targeting":{"paths":["/"]},"trigger":{"type":"delay"},"frequency":{"dismissForDays":7}}`)
	writeFile(t, root, "popups/fall offer.json", `{"targeting":{"paths":["/"]},"trigger":{"type":"delay"}}`)
	s := New(nil, "", root, quietLogger())

	popups, err := s.Popups(context.Background())
	if err != nil {
		t.Fatalf("Popups() error = %v", err)
	}
	if len(popups) != 1 {
		t.Fatalf("len(popups) = %d, want 1", len(popups))
	}
	p := popups[0]
	if p.Slug != "spring" || p.Trigger.Value != 3000 || p.EmailCapture == nil || p.EmailCapture.OfferCode != "SPRING10" {
		t.Errorf("popup = %+v", p)
	}
	if p.Body != "<p>Save <b>10%</b></p>" {
		t.Errorf("Body = %q", p.Body)
	}
}

func TestValidatePopupSlug(t *testing.T) {
	tests := []struct {
		slug    string
		wantErr bool
	}{
		{"spring", false},
		{"Spring_2026-promo", false},
		{"", true},
		{"summer sale", true},
		{"a/b", true},
		{"me@example", true},
		{"k=v", true},
		{"café", true},
	}
	for _, tt := range tests {
		t.Run(tt.slug, func(t *testing.T) {
			p := site.Popup{
				Slug:      tt.slug,
				Targeting: site.Targeting{Paths: []string{"/"}},
				Trigger:   site.Trigger{Type: site.TriggerDelay},
			}
			err := validatePopup(&p)
			if (err != nil) != tt.wantErr {
				t.Fatalf("validatePopup(%q) error = %v, wantErr %v", tt.slug, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidPopup) {
				t.Errorf("validatePopup(%q) error = %v, want ErrInvalidPopup", tt.slug, err)
			}
		})
	}
}

func TestSanitizeHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"allowed tags kept", "<p>Hi <strong>there</strong></p>", "<p>Hi <strong>there</strong></p>"},
		{"attributes stripped", `<div class="x" style="color:red">a</div>`, "<div>a</div>"},
		{"script removed with content", "a<script>alert(1)</script>b", "ab"},
		{"safe link", `<a href="https://example.com" onclick="x">go</a>`, `<a href="https://example.com" rel="noopener">go</a>`},
		{"javascript link", `<a href="javascript:alert(1)">go</a>`, `<a rel="noopener">go</a>`},
		{"relative image", `<img src="/img/a.png" alt="A" onerror="x">`, `<img src="/img/a.png" alt="A">`},
		{"unknown tag dropped", "<marquee>hey</marquee>", "hey"},
		{"text escaped", "1 &lt; 2", "1 &lt; 2"},
		{"iframe removed", `<iframe src="https://evil"></iframe>ok`, "ok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeHTML(tt.in); got != tt.want {
				t.Errorf("SanitizeHTML(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsSafeURL(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"https://example.com", true},
		{"/contact", true},
		{"#top", true},
		{"mailto:a@b.co", true},
		{"javascript:alert(1)", false},
		{"data:text/html;base64,xx", false},
		{"//evil.example", false},
		{"relative/path", false},
	}
	for _, tt := range tests {
		if got := isSafeURL(tt.in); got != tt.want {
			t.Errorf("isSafeURL(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
