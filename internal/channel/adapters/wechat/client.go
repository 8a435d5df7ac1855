// Package wechat talks to the local WeChat gateway: outbound text replies over
// its HTTP API and inbound message delivery over webhook or AMQP.
package wechat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	sendTextPath   = "/api/Msg/SendTxt"
	sendTimeout    = 30 * time.Second
	maxErrorBody   = 4 << 10
	textMessageTyp = 1
)

// ErrGateway reports a gateway reply with Success=false or a non-2xx status.
var ErrGateway = errors.New("wechat gateway error")

// Envelope is the response shape shared by every gateway endpoint.
type Envelope struct {
	Code    int             `json:"Code"`
	Success bool            `json:"Success"`
	Message string          `json:"Message"`
	Data    json.RawMessage `json:"Data"`
}

type sendTextRequest struct {
	Wxid    string `json:"Wxid"`
	ToWxid  string `json:"ToWxid"`
	Content string `json:"Content"`
	Type    int    `json:"Type"`
	At      string `json:"At"`
}

// Client sends messages through the gateway as the configured bot account.
type Client struct {
	baseURL string
	wxid    string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a gateway client. A nil httpClient uses http.DefaultClient.
func NewClient(log *slog.Logger, httpClient *http.Client, baseURL, wxid string) *Client {
	if log == nil {
		log = slog.Default()
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		wxid:    strings.TrimSpace(wxid),
		http:    httpClient,
		logger:  log.With(slog.String("adapter", "wechat")),
	}
}

// Wxid returns the bot account id used as requester identity.
func (c *Client) Wxid() string {
	return c.wxid
}

// BaseURL returns the gateway root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SendText posts a plain-text message to a user or group.
func (c *Client) SendText(ctx context.Context, to, text string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return fmt.Errorf("target is required")
	}
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	body, err := json.Marshal(sendTextRequest{
		Wxid:    c.wxid,
		ToWxid:  to,
		Content: text,
		Type:    textMessageTyp,
		At:      "",
	})
	if err != nil {
		return fmt.Errorf("encode send request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+sendTextPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send text: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("read send response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d: %s", ErrGateway, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	// Older gateway builds answer with an empty body on success.
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	// Gateway builds differ in envelope fields; only an explicit failure
	// message counts as an error.
	var env Envelope
	if err := json.Unmarshal(raw, &env); err == nil && !env.Success && env.Message != "" {
		return fmt.Errorf("%w: %s", ErrGateway, env.Message)
	}
	c.logger.Debug("text sent", slog.String("to", to), slog.Int("runes", len([]rune(text))))
	return nil
}
