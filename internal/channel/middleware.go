package channel

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"
)

// RecoverMiddleware converts a panic in a handler into Stop.
func RecoverMiddleware(log *slog.Logger) Middleware {
	if log == nil {
		log = slog.Default()
	}
	return func(next InboundHandler) InboundHandler {
		return func(ctx context.Context, msg InboundMessage) (verdict Verdict) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("handler panic",
						slog.Int64("new_msg_id", msg.NewMsgID),
						slog.String("panic", fmt.Sprint(r)),
						slog.String("stack", string(debug.Stack())))
					verdict = Stop
				}
			}()
			return next(ctx, msg)
		}
	}
}

// LoggingMiddleware logs every dispatched message with its verdict.
func LoggingMiddleware(log *slog.Logger) Middleware {
	if log == nil {
		log = slog.Default()
	}
	return func(next InboundHandler) InboundHandler {
		return func(ctx context.Context, msg InboundMessage) Verdict {
			start := time.Now()
			verdict := next(ctx, msg)
			log.Debug("inbound dispatched",
				slog.Int64("new_msg_id", msg.NewMsgID),
				slog.Int("msg_type", msg.MsgType),
				slog.String("from", msg.FromWxid),
				slog.Bool("group", msg.IsGroup),
				slog.String("verdict", verdict.String()),
				slog.Duration("took", time.Since(start)))
			return verdict
		}
	}
}
