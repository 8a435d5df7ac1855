package summary

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Document is a file handed to a provider.
type Document struct {
	Name string
	Mime string
	Data []byte
}

// Provider produces a summary for a document or plain text.
type Provider interface {
	Name() string
	Summarize(ctx context.Context, doc Document) (string, error)
	SummarizeText(ctx context.Context, title, text string) (string, error)
}

// NewHTTPClient returns a client for the completion endpoint, routed through
// proxyURL when set. Timeouts are applied per call.
func NewHTTPClient(proxyURL string) (*http.Client, error) {
	proxyURL = strings.TrimSpace(proxyURL)
	if proxyURL == "" {
		return &http.Client{}, nil
	}
	u, err := url.Parse(proxyURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid http proxy %q", proxyURL)
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = http.ProxyURL(u)
	return &http.Client{Transport: transport}, nil
}
