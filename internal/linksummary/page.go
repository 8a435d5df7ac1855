package linksummary

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/go-shiori/go-readability"

	"github.com/memohai/filesummary/internal/prune"
)

const (
	maxPageBytes    = 5 << 20
	maxContentBytes = 96 << 10
	userAgent       = "Mozilla/5.0 (compatible; filesummary/1.0)"
)

// Page is the readable part of a web page rendered as Markdown.
type Page struct {
	URL      string
	Title    string
	Markdown string
}

func fetchPage(ctx context.Context, client *http.Client, rawURL string, timeout time.Duration) (Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return Page{}, fmt.Errorf("%w: invalid url %q", ErrFetch, rawURL)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Page{}, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Page{}, fmt.Errorf("%w: status %d", ErrFetch, resp.StatusCode)
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, maxPageBytes), u)
	if err != nil {
		return Page{}, fmt.Errorf("%w: %v", ErrExtract, err)
	}
	md, err := htmltomarkdown.ConvertString(article.Content)
	if err != nil || strings.TrimSpace(md) == "" {
		md = article.TextContent
	}
	md = strings.TrimSpace(md)
	if md == "" {
		return Page{}, ErrExtract
	}
	title := strings.TrimSpace(article.Title)
	if title == "" {
		title = u.Host
	}
	return Page{URL: u.String(), Title: title, Markdown: prune.Fit(md, prune.Budget{MaxBytes: maxContentBytes})}, nil
}
