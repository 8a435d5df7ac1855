package gatewaychecker

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/memohai/filesummary/internal/healthcheck"
)

const (
	checkTypeGateway    = "gateway.reachable"
	defaultCheckTimeout = 5 * time.Second
)

// Checker probes the WeChat gateway base URL. Any HTTP answer counts as
// reachable; only transport errors fail the check.
type Checker struct {
	logger  *slog.Logger
	http    *http.Client
	baseURL string
	timeout time.Duration
}

// NewChecker creates a gateway health checker.
func NewChecker(log *slog.Logger, httpClient *http.Client, baseURL string) *Checker {
	if log == nil {
		log = slog.Default()
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Checker{
		logger:  log.With(slog.String("checker", "healthcheck_gateway")),
		http:    httpClient,
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		timeout: defaultCheckTimeout,
	}
}

func (c *Checker) ListChecks(ctx context.Context) []healthcheck.CheckResult {
	item := healthcheck.CheckResult{
		ID:       checkTypeGateway,
		Type:     checkTypeGateway,
		Subtitle: c.baseURL,
		Metadata: map[string]any{"base_url": c.baseURL},
	}
	if c.baseURL == "" {
		item.Status = healthcheck.StatusWarn
		item.Summary = "Gateway base URL is not configured."
		return []healthcheck.CheckResult{item}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		item.Status = healthcheck.StatusError
		item.Summary = "Gateway URL is invalid."
		item.Detail = err.Error()
		return []healthcheck.CheckResult{item}
	}
	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("gateway unreachable", slog.Any("error", err))
		item.Status = healthcheck.StatusError
		item.Summary = "Gateway is unreachable."
		item.Detail = err.Error()
		return []healthcheck.CheckResult{item}
	}
	_ = resp.Body.Close()
	item.Status = healthcheck.StatusOK
	item.Summary = fmt.Sprintf("Gateway answered with HTTP %d.", resp.StatusCode)
	item.Metadata["latency_ms"] = time.Since(started).Milliseconds()
	return []healthcheck.CheckResult{item}
}
