package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/memohai/filesummary/internal/media"
)

const (
	completionsPath = "/chat/completions"
	// DefaultTimeout bounds one completion call.
	DefaultTimeout    = 300 * time.Second
	maxResponseBytes  = 8 << 20
	maxErrorBodyRunes = 2000
)

// OpenAIConfig configures an OpenAI-compatible chat completion backend.
type OpenAIConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Prompt      string
	Temperature float32
	Timeout     time.Duration
}

type contentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	Document *documentPart `json:"document,omitempty"`
}

type documentPart struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type completionRequest struct {
	Model       string        `json:"model"`
	Stream      bool          `json:"stream"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// OpenAI calls {base}/chat/completions with bearer auth.
type OpenAI struct {
	cfg    OpenAIConfig
	http   *http.Client
	logger *slog.Logger
}

// NewOpenAI creates the backend on a shared HTTP client.
func NewOpenAI(log *slog.Logger, httpClient *http.Client, cfg OpenAIConfig) *OpenAI {
	if log == nil {
		log = slog.Default()
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	return &OpenAI{
		cfg:    cfg,
		http:   httpClient,
		logger: log.With(slog.String("provider", "openai")),
	}
}

func (p *OpenAI) Name() string {
	return "openai"
}

// Summarize sends the document as a Data-URI document part.
func (p *OpenAI) Summarize(ctx context.Context, doc Document) (string, error) {
	uri := media.DataURI(doc.Mime, doc.Data)
	return p.complete(ctx, []chatMessage{
		p.systemMessage(),
		{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: DocumentInstruction},
				{Type: "document", Document: &documentPart{URL: uri}},
			},
		},
	})
}

// SummarizeText summarizes already extracted text.
func (p *OpenAI) SummarizeText(ctx context.Context, title, text string) (string, error) {
	body := linkInstruction + "\n\n"
	if t := strings.TrimSpace(title); t != "" {
		body += "# " + t + "\n\n"
	}
	body += text
	return p.complete(ctx, []chatMessage{
		p.systemMessage(),
		{Role: "user", Content: []contentPart{{Type: "text", Text: body}}},
	})
}

func (p *OpenAI) systemMessage() chatMessage {
	return chatMessage{
		Role:    "system",
		Content: []contentPart{{Type: "text", Text: p.cfg.Prompt}},
	}
}

func (p *OpenAI) complete(ctx context.Context, messages []chatMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	payload, err := json.Marshal(completionRequest{
		Model:       p.cfg.Model,
		Stream:      false,
		Messages:    messages,
		Temperature: p.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %v", ErrTransport, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+completionsPath, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", ErrTransport, err)
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrTransport, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{StatusCode: resp.StatusCode, Body: truncateRunes(strings.TrimSpace(string(body)), maxErrorBodyRunes)}
	}

	var parsed completionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: content-type %q: %v", ErrParse, resp.Header.Get("Content-Type"), err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrParse)
	}
	text, err := messageText(parsed.Choices[0].Message.Content)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty message content", ErrParse)
	}
	return text, nil
}

// messageText accepts a plain string or an array of text parts.
func messageText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", fmt.Errorf("%w: missing message content", ErrParse)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var parts []contentPart
	if err := json.Unmarshal(raw, &parts); err != nil {
		return "", fmt.Errorf("%w: message content: %v", ErrParse, err)
	}
	var b strings.Builder
	for _, part := range parts {
		if part.Type == "text" {
			b.WriteString(part.Text)
		}
	}
	return b.String(), nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
