// Package summary turns local files and extracted text into summaries through
// a generative AI backend.
package summary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/memohai/filesummary/internal/media"
)

// Client is the summarization entry point used by the pipeline.
type Client struct {
	provider Provider
	maxBytes int64
	logger   *slog.Logger
}

// NewClient wraps a provider. A nil provider yields ErrDisabled on every call.
func NewClient(log *slog.Logger, provider Provider) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		provider: provider,
		maxBytes: media.MaxAssetBytes,
		logger:   log.With(slog.String("service", "summary")),
	}
}

// Enabled reports whether a provider is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.provider != nil
}

// SummarizeFile reads the file at path and asks the provider for a summary.
// Every failure is logged here and returned as an error matching ErrAPI,
// ErrParse, ErrTransport or ErrDisabled.
func (c *Client) SummarizeFile(ctx context.Context, path string) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}
	data, err := media.ReadFileWithLimit(path, c.maxBytes)
	if err != nil {
		c.logger.Error("read file for summary failed", slog.String("path", path), slog.Any("error", err))
		return "", fmt.Errorf("%w: read %s: %w", ErrTransport, path, err)
	}
	doc := Document{
		Name: filepath.Base(path),
		Mime: media.MimeByPath(path),
		Data: data,
	}
	c.logger.Info("summarizing file",
		slog.String("provider", c.provider.Name()),
		slog.String("name", doc.Name),
		slog.String("mime", doc.Mime),
		slog.Int("bytes", len(data)))
	text, err := c.provider.Summarize(ctx, doc)
	if err != nil {
		c.logFailure(err, doc.Name)
		return "", err
	}
	return text, nil
}

// SummarizeText summarizes already extracted content.
func (c *Client) SummarizeText(ctx context.Context, title, text string) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}
	out, err := c.provider.SummarizeText(ctx, title, text)
	if err != nil {
		c.logFailure(err, title)
		return "", err
	}
	return out, nil
}

func (c *Client) logFailure(err error, name string) {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		c.logger.Error("summarization api error",
			slog.String("name", name),
			slog.Int("status", apiErr.StatusCode),
			slog.String("body", apiErr.Body))
	case errors.Is(err, ErrParse):
		c.logger.Error("summarization response unparseable", slog.String("name", name), slog.Any("error", err))
	default:
		c.logger.Error("summarization request failed", slog.String("name", name), slog.Any("error", err))
	}
}
