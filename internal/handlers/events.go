package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/memohai/filesummary/internal/channel"
	"github.com/memohai/filesummary/internal/channel/adapters/wechat"
)

// Deliverer dispatches one inbound message synchronously.
type Deliverer interface {
	Deliver(ctx context.Context, msg channel.InboundMessage) (channel.Verdict, error)
}

// EventsHandler receives message callbacks pushed by the WeChat gateway.
type EventsHandler struct {
	deliverer Deliverer
	logger    *slog.Logger
}

func NewEventsHandler(log *slog.Logger, deliverer Deliverer) *EventsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &EventsHandler{
		deliverer: deliverer,
		logger:    log.With(slog.String("handler", "events")),
	}
}

func (h *EventsHandler) Register(e *echo.Echo) {
	e.POST("/api/events/message", h.HandleMessage)
}

// HandleMessage runs the handler chain for one message and reports whether a
// handler consumed it. The run is detached from the request so that a gateway
// timeout does not abort a summary in progress.
func (h *EventsHandler) HandleMessage(c echo.Context) error {
	var msg channel.InboundMessage
	if err := c.Bind(&msg); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid message payload")
	}
	if msg.MsgType == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "MsgType is required")
	}

	verdict, err := h.deliverer.Deliver(context.WithoutCancel(c.Request().Context()), msg)
	if err != nil {
		if errors.Is(err, wechat.ErrNotStarted) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "dispatcher not running")
		}
		h.logger.Error("deliver message failed", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, "processing failed")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"handled": verdict == channel.Stop,
		"verdict": verdict.String(),
	})
}
