package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const articlePage = `<!doctype html>
<html><head><title>Plain title</title><meta property="og:title" content="Open Graph title"></head>
<body><nav>menu</nav><article><h1>Heading</h1>
<p>The first paragraph of the article has enough words, commas, and clauses to look like real content to the extractor, which scores paragraphs by their length and punctuation.</p>
<p>A second paragraph keeps going with more sentences, more commas, and more words, so that the article body is clearly longer than the navigation and gets picked as the main content.</p>
<p>A third paragraph, just to be safe, repeats the idea once more: this is the body of the story, not the menu, and it should end up in the excerpt.</p>
</article></body></html>`

func TestPreview(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "newsboard-preview/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(articlePage))
	}))
	defer srv.Close()

	p := NewPreviewer(srv.Client())
	preview, err := p.Preview(context.Background(), srv.URL+"/story")
	require.NoError(t, err)
	require.Equal(t, "Open Graph title", preview.Title)
	require.Equal(t, srv.URL+"/story", preview.URL)
	require.Contains(t, preview.Excerpt, "first paragraph")
}

func TestPreviewErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewPreviewer(srv.Client())
	_, err := p.Preview(context.Background(), srv.URL)
	require.Error(t, err)
	require.Contains(t, err.Error(), "404")

	_, err = p.Preview(context.Background(), "ftp://example.com/file")
	require.ErrorIs(t, err, ErrUnsupportedURL)
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "short", truncate("short", 10))
	require.Equal(t, "你好…", truncate("你好世界", 2))
	require.True(t, strings.HasSuffix(truncate(strings.Repeat("a", 300), excerptLength), "…"))
}
