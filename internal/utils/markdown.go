package utils

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"html"
	"log/slog"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

var (
	mdParser = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			gmhtml.WithHardWraps(),
			gmhtml.WithXHTML(),
		),
	)
	policy = bluemonday.UGCPolicy()

	renderCache *TTLCache[string]
)

func init() {
	policy.AllowImages()
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	policy.RequireNoReferrerOnLinks(true)

	var err error
	renderCache, err = NewTTLCache[string](2000, 30*time.Minute)
	if err != nil {
		panic(err)
	}
}

// RenderMarkdown converts a post or comment body to sanitized HTML. Results
// are cached by content hash.
func RenderMarkdown(source string) string {
	if source == "" {
		return ""
	}
	sum := sha1.Sum([]byte(source))
	key := hex.EncodeToString(sum[:])
	if out, ok := renderCache.Get(key); ok {
		return out
	}

	var buf bytes.Buffer
	if err := mdParser.Convert([]byte(source), &buf); err != nil {
		slog.Warn("Markdown conversion failed", "error", err)
		return html.EscapeString(source)
	}

	out := EnhanceHTMLContent(policy.Sanitize(buf.String()))
	renderCache.Set(key, out)
	return out
}
