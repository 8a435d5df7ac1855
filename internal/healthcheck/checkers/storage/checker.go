package storagechecker

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/memohai/filesummary/internal/healthcheck"
)

const (
	checkTypeDownloadDir = "storage.download_dir"
	checkTypeRedis       = "storage.redis"
	defaultCheckTimeout  = 3 * time.Second
)

// Checker verifies the download directory is writable and, when configured,
// that redis answers PING.
type Checker struct {
	logger  *slog.Logger
	dir     string
	redis   *redis.Client
	timeout time.Duration
}

// NewChecker creates a storage health checker. rdb may be nil.
func NewChecker(log *slog.Logger, dir string, rdb *redis.Client) *Checker {
	if log == nil {
		log = slog.Default()
	}
	return &Checker{
		logger:  log.With(slog.String("checker", "healthcheck_storage")),
		dir:     dir,
		redis:   rdb,
		timeout: defaultCheckTimeout,
	}
}

func (c *Checker) ListChecks(ctx context.Context) []healthcheck.CheckResult {
	checks := []healthcheck.CheckResult{c.checkDir()}
	if c.redis != nil {
		checks = append(checks, c.checkRedis(ctx))
	}
	return checks
}

func (c *Checker) checkDir() healthcheck.CheckResult {
	item := healthcheck.CheckResult{
		ID:       checkTypeDownloadDir,
		Type:     checkTypeDownloadDir,
		Subtitle: c.dir,
		Status:   healthcheck.StatusOK,
		Summary:  "Download directory is writable.",
	}
	f, err := os.CreateTemp(c.dir, ".probe-*")
	if err != nil {
		c.logger.Warn("download dir not writable", slog.String("dir", c.dir), slog.Any("error", err))
		item.Status = healthcheck.StatusError
		item.Summary = "Download directory is not writable."
		item.Detail = err.Error()
		return item
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return item
}

func (c *Checker) checkRedis(ctx context.Context) healthcheck.CheckResult {
	item := healthcheck.CheckResult{
		ID:      checkTypeRedis,
		Type:    checkTypeRedis,
		Status:  healthcheck.StatusOK,
		Summary: "Redis is reachable.",
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.redis.Ping(ctx).Err(); err != nil {
		// dedup fails open, so redis loss only degrades
		item.Status = healthcheck.StatusWarn
		item.Summary = "Redis is unreachable; duplicate detection is off."
		item.Detail = err.Error()
	}
	return item
}
