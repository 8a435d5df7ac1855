package downloader

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
	downloadPath = "/api/Tools/DownloadFile"
	// DefaultChunkTimeout bounds one gateway call.
	DefaultChunkTimeout = 60 * time.Second
	// base64 inflates by 4/3; leave room for the envelope around it.
	envelopeOverhead = 64 << 10
)

// ChunkFetcher retrieves one byte range. Implementations never panic and
// report every failure through ChunkResult.Err.
type ChunkFetcher interface {
	Fetch(ctx context.Context, req ChunkRequest) ChunkResult
}

type downloadSection struct {
	DataLen  int64 `json:"DataLen"`
	StartPos int64 `json:"StartPos"`
}

type downloadRequest struct {
	AppID    string          `json:"AppID"`
	AttachID string          `json:"AttachId"`
	DataLen  int64           `json:"DataLen"`
	Section  downloadSection `json:"Section"`
	UserName string          `json:"UserName"`
	Wxid     string          `json:"Wxid"`
}

type downloadEnvelope struct {
	Success bool            `json:"Success"`
	Data    json.RawMessage `json:"Data"`
	Message string          `json:"Message"`
}

// Fetcher calls the gateway download endpoint over a shared HTTP client.
type Fetcher struct {
	http     *http.Client
	endpoint string
	timeout  time.Duration
	logger   *slog.Logger
}

// NewFetcher creates a fetcher against the gateway base URL. A non-positive
// timeout uses DefaultChunkTimeout.
func NewFetcher(log *slog.Logger, httpClient *http.Client, baseURL string, timeout time.Duration) *Fetcher {
	if log == nil {
		log = slog.Default()
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultChunkTimeout
	}
	return &Fetcher{
		http:     httpClient,
		endpoint: strings.TrimRight(strings.TrimSpace(baseURL), "/") + downloadPath,
		timeout:  timeout,
		logger:   log.With(slog.String("component", "fetcher")),
	}
}

// Fetch issues exactly one download call for req.
func (f *Fetcher) Fetch(ctx context.Context, req ChunkRequest) (res ChunkResult) {
	defer func() {
		if r := recover(); r != nil {
			res = ChunkResult{Err: fmt.Errorf("%w: panic: %v", ErrDecode, r)}
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	body, err := json.Marshal(downloadRequest{
		AppID:    req.AppID,
		AttachID: req.AttachmentID,
		DataLen:  req.TotalLength,
		Section: downloadSection{
			DataLen:  req.RequestedLength,
			StartPos: req.StartOffset,
		},
		UserName: "",
		Wxid:     req.RequesterIdentity,
	})
	if err != nil {
		return ChunkResult{Err: fmt.Errorf("%w: encode request: %v", ErrTransport, err)}
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, bytes.NewReader(body))
	if err != nil {
		return ChunkResult{Err: fmt.Errorf("%w: build request: %v", ErrTransport, err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := f.http.Do(httpReq)
	if err != nil {
		return ChunkResult{Err: fmt.Errorf("%w: %v", ErrTransport, err)}
	}
	defer resp.Body.Close()

	limit := req.RequestedLength*2 + envelopeOverhead
	raw, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return ChunkResult{Err: fmt.Errorf("%w: read body: %v", ErrTransport, err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ChunkResult{Err: fmt.Errorf("%w: status %d", ErrTransport, resp.StatusCode)}
	}

	var env downloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return ChunkResult{Err: fmt.Errorf("%w: envelope: %v", ErrDecode, err)}
	}
	if !env.Success {
		msg := strings.TrimSpace(env.Message)
		if msg == "" {
			msg = "Unknown error"
		}
		return ChunkResult{Err: fmt.Errorf("%w: %s", ErrRemote, msg)}
	}

	data, shape, err := decodePayload(env.Data)
	if err != nil {
		return ChunkResult{Err: err}
	}
	if len(data) == 0 {
		f.logger.Warn("chunk payload is empty", slog.Int("chunk", req.Index), slog.String("shape", shape))
		return ChunkResult{Err: ErrEmptyChunk}
	}
	if int64(len(data)) != req.RequestedLength {
		return ChunkResult{Err: fmt.Errorf("%w: got %d bytes, want %d", ErrShortRead, len(data), req.RequestedLength)}
	}
	return ChunkResult{Bytes: data}
}

// Kind maps a chunk error to its failure kind name for logs.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrRemote):
		return "remote"
	case errors.Is(err, ErrShortRead):
		return "short_read"
	case errors.Is(err, ErrEmptyChunk):
		return "empty"
	case errors.Is(err, ErrDecode):
		return "decode"
	default:
		return "unknown"
	}
}
