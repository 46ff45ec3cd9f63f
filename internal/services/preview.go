package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

const (
	maxPreviewBody = 2 << 20
	excerptLength  = 280
)

var ErrUnsupportedURL = errors.New("unsupported url")

// LinkPreview 链接帖子的标题和摘要
type LinkPreview struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Excerpt string `json:"excerpt"`
}

// Previewer fetches linked pages to fill in post titles.
type Previewer struct {
	client *http.Client
}

func NewPreviewer(client *http.Client) *Previewer {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Previewer{client: client}
}

// Preview 抓取页面，用 og:title 或 <title> 作标题，用 readability 提取正文摘要
func (p *Previewer) Preview(ctx context.Context, rawURL string) (*LinkPreview, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedURL, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("User-Agent", "newsboard-preview/1.0")
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP 状态码: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPreviewBody))
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("解析页面失败: %w", err)
	}
	preview := &LinkPreview{URL: u.String(), Title: pageTitle(doc)}

	if article, err := readability.FromReader(strings.NewReader(string(body)), u); err == nil {
		if text, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content)); err == nil {
			preview.Excerpt = truncate(strings.Join(strings.Fields(text.Text()), " "), excerptLength)
		}
	}
	return preview, nil
}

func pageTitle(doc *goquery.Document) string {
	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && strings.TrimSpace(og) != "" {
		return strings.TrimSpace(og)
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n])) + "…"
}
