package channel

import (
	"context"
	"errors"
	"strconv"
)

// ErrStopNotSupported is returned when an adapter does not support graceful shutdown.
var ErrStopNotSupported = errors.New("channel adapter stop not supported")

// InboundHandler processes one inbound message and reports whether it was consumed.
type InboundHandler func(ctx context.Context, msg InboundMessage) Verdict

// Middleware wraps an InboundHandler to add cross-cutting behavior.
type Middleware func(next InboundHandler) InboundHandler

// Sender delivers a plain-text message to a chat.
type Sender interface {
	SendText(ctx context.Context, to, text string) error
}

// Adapter is an inbound transport that feeds messages into a handler.
type Adapter interface {
	Name() string
	Start(ctx context.Context, handler InboundHandler) error
}

// Stopper is implemented by adapters with a graceful shutdown.
type Stopper interface {
	Stop(ctx context.Context) error
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
