// Package dedup drops inbound messages that were already dispatched, keyed by
// the gateway message id.
package dedup

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/memohai/filesummary/internal/channel"
)

const keyPrefix = "filesummary:seen:"

// Guard claims message keys. Claim returns true the first time a key is seen
// within ttl.
type Guard interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RedisGuard stores claims with SETNX so that several replicas share them.
type RedisGuard struct {
	client *redis.Client
}

func NewRedisGuard(client *redis.Client) *RedisGuard {
	return &RedisGuard{client: client}
}

func (g *RedisGuard) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return g.client.SetNX(ctx, keyPrefix+key, time.Now().Unix(), ttl).Result()
}

// MemoryGuard keeps claims in process.
type MemoryGuard struct {
	mu   sync.Mutex
	seen map[string]time.Time
	now  func() time.Time
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{seen: make(map[string]time.Time), now: time.Now}
}

func (g *MemoryGuard) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	for k, exp := range g.seen {
		if !now.Before(exp) {
			delete(g.seen, k)
		}
	}
	if _, ok := g.seen[key]; ok {
		return false, nil
	}
	g.seen[key] = now.Add(ttl)
	return true, nil
}

// Middleware answers Stop for a message whose key was already claimed.
// Guard errors let the message through.
func Middleware(log *slog.Logger, guard Guard, ttl time.Duration) channel.Middleware {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "dedup"))
	return func(next channel.InboundHandler) channel.InboundHandler {
		return func(ctx context.Context, msg channel.InboundMessage) channel.Verdict {
			key := msg.DedupKey()
			if key == "" || guard == nil {
				return next(ctx, msg)
			}
			fresh, err := guard.Claim(ctx, key, ttl)
			if err != nil {
				log.Warn("dedup claim failed", slog.String("key", key), slog.Any("error", err))
				return next(ctx, msg)
			}
			if !fresh {
				log.Info("duplicate message dropped", slog.String("key", key))
				return channel.Stop
			}
			return next(ctx, msg)
		}
	}
}
