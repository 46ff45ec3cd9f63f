package utils

import (
	"strings"
	"testing"
	"time"
)

func TestRenderMarkdownSanitizes(t *testing.T) {
	out := RenderMarkdown("**bold** <script>alert(1)</script>")
	if !strings.Contains(out, "<strong>bold</strong>") {
		t.Errorf("Expected bold markup, got %s", out)
	}
	if strings.Contains(out, "<script>") {
		t.Errorf("Script tag survived sanitizing: %s", out)
	}
}

func TestRenderMarkdownEnhancesImagesAndVideos(t *testing.T) {
	out := RenderMarkdown("![cat](https://example.com/cat.png)\n\nhttps://youtu.be/abc123")
	if !strings.Contains(out, `loading="lazy"`) {
		t.Errorf("Expected lazy image, got %s", out)
	}
	if !strings.Contains(out, "youtube-nocookie.com/embed/abc123") {
		t.Errorf("Expected video embed, got %s", out)
	}
}

func TestYoutubeID(t *testing.T) {
	cases := map[string]string{
		"https://www.youtube.com/watch?v=xyz&t=10": "xyz",
		"https://youtu.be/abc":                     "abc",
		"https://example.com/watch?v=xyz":          "",
		"see https://youtu.be/abc":                 "",
	}
	for in, want := range cases {
		if got := youtubeID(in); got != want {
			t.Errorf("youtubeID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTTLCacheExpires(t *testing.T) {
	c, err := NewTTLCache[int](2, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Expected cached value, got %v %v", v, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Error("Expected entry to expire")
	}
	if c.Len() != 0 {
		t.Errorf("Expected expired entry to be removed, len %d", c.Len())
	}
}
