package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memohai/filesummary/internal/channel"
	"github.com/memohai/filesummary/internal/channel/adapters/wechat"
	"github.com/memohai/filesummary/internal/healthcheck"
)

func serve(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestEventsHandlerDispatches(t *testing.T) {
	t.Parallel()

	var got channel.InboundMessage
	hook := wechat.NewWebhook()
	require.NoError(t, hook.Start(context.Background(), func(_ context.Context, msg channel.InboundMessage) channel.Verdict {
		got = msg
		if msg.MsgType == channel.MsgTypeApp {
			return channel.Stop
		}
		return channel.Continue
	}))

	e := echo.New()
	NewEventsHandler(nil, hook).Register(e)

	rec := serve(e, http.MethodPost, "/api/events/message", `{"MsgId":1,"NewMsgId":99,"MsgType":49,"Content":"<msg/>","FromWxid":"wxid_user"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["handled"])
	assert.Equal(t, "stop", body["verdict"])
	assert.Equal(t, int64(99), got.NewMsgID)
	assert.Equal(t, "wxid_user", got.FromWxid)

	rec = serve(e, http.MethodPost, "/api/events/message", `{"MsgType":1,"Content":"hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"handled":false`)
}

func TestEventsHandlerRejects(t *testing.T) {
	t.Parallel()

	e := echo.New()
	NewEventsHandler(nil, wechat.NewWebhook()).Register(e)

	rec := serve(e, http.MethodPost, "/api/events/message", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(e, http.MethodPost, "/api/events/message", `{"Content":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(e, http.MethodPost, "/api/events/message", `{"MsgType":49}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthHandler(t *testing.T) {
	t.Parallel()

	failing := healthcheck.CheckerFunc(func(context.Context) []healthcheck.CheckResult {
		return []healthcheck.CheckResult{{ID: "gateway.reachable", Status: healthcheck.StatusError}}
	})
	e := echo.New()
	NewHealthHandler(nil, failing).Register(e)
	NewPingHandler(nil, "test").Register(e)

	rec := serve(e, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "gateway.reachable")

	rec = serve(e, http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version":"test"`)
}
