package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memohai/filesummary/internal/channel"
)

func countingHandler(n *int) channel.InboundHandler {
	return func(context.Context, channel.InboundMessage) channel.Verdict {
		*n++
		return channel.Continue
	}
}

func TestMiddlewareStopsRepeatedMessage(t *testing.T) {
	t.Parallel()

	calls := 0
	h := Middleware(nil, NewMemoryGuard(), time.Minute)(countingHandler(&calls))
	msg := channel.InboundMessage{MsgID: 1, NewMsgID: 42, MsgType: channel.MsgTypeApp}

	assert.Equal(t, channel.Continue, h(context.Background(), msg))
	assert.Equal(t, channel.Stop, h(context.Background(), msg))
	assert.Equal(t, 1, calls)

	other := msg
	other.NewMsgID = 43
	assert.Equal(t, channel.Continue, h(context.Background(), other))
	assert.Equal(t, 2, calls)
}

func TestMiddlewarePassesMessagesWithoutID(t *testing.T) {
	t.Parallel()

	calls := 0
	h := Middleware(nil, NewMemoryGuard(), time.Minute)(countingHandler(&calls))
	h(context.Background(), channel.InboundMessage{})
	h(context.Background(), channel.InboundMessage{})
	assert.Equal(t, 2, calls)
}

func TestMemoryGuardExpires(t *testing.T) {
	t.Parallel()

	g := NewMemoryGuard()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }

	ok, err := g.Claim(context.Background(), "new:1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = g.Claim(context.Background(), "new:1", time.Minute)
	assert.False(t, ok)

	now = now.Add(2 * time.Minute)
	ok, _ = g.Claim(context.Background(), "new:1", time.Minute)
	assert.True(t, ok)
}

func TestMiddlewareFailsOpen(t *testing.T) {
	t.Parallel()

	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	calls := 0
	h := Middleware(nil, NewRedisGuard(client), time.Minute)(countingHandler(&calls))
	msg := channel.InboundMessage{NewMsgID: 7}
	assert.Equal(t, channel.Continue, h(context.Background(), msg))
	assert.Equal(t, channel.Continue, h(context.Background(), msg))
	assert.Equal(t, 2, calls)
}
