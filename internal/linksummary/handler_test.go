package linksummary

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memohai/filesummary/internal/channel"
)

var triggers = []string{"/总结", "/总结链接", "/总结内容", "/总结一下", "帮我/总结", "summarize"}

const paragraph = "Go services that summarize documents keep their pipelines small and explicit. " +
	"Each stage returns an error value that the caller inspects, and nothing is hidden behind a generic catch-all. "

func articleHTML() string {
	var b strings.Builder
	b.WriteString("<html><head><title>Pipeline Notes</title></head><body><nav>home | about</nav><article><h1>Pipeline Notes</h1>")
	for i := 0; i < 6; i++ {
		b.WriteString("<p>" + paragraph + "</p>")
	}
	b.WriteString("</article><footer>copyright</footer></body></html>")
	return b.String()
}

func pageServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/post" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(articleHTML()))
	}))
	t.Cleanup(srv.Close)
	return srv
}

type fakeSummarizer struct {
	mu     sync.Mutex
	titles []string
	texts  []string
}

func (f *fakeSummarizer) SummarizeText(_ context.Context, title, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.titles = append(f.titles, title)
	f.texts = append(f.texts, text)
	return "页面摘要", nil
}

type recordingSender struct {
	mu   sync.Mutex
	sent []string
}

func (s *recordingSender) SendText(_ context.Context, to, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, to+"|"+text)
	return nil
}

func textMessage(content string) channel.InboundMessage {
	return channel.InboundMessage{MsgType: channel.MsgTypeText, Content: content, FromWxid: "wxid_user"}
}

func TestHandleTriggerWithURL(t *testing.T) {
	t.Parallel()

	srv := pageServer(t)
	sum := &fakeSummarizer{}
	sender := &recordingSender{}
	h := NewHandler(nil, srv.Client(), triggers, sum, sender)

	verdict := h.HandleMessage(context.Background(), textMessage("/总结链接 "+srv.URL+"/post"))

	assert.Equal(t, channel.Stop, verdict)
	require.Len(t, sum.texts, 1)
	assert.Equal(t, "Pipeline Notes", sum.titles[0])
	assert.Contains(t, sum.texts[0], "explicit")
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "wxid_user|🔗 Pipeline Notes\n\n页面摘要", sender.sent[0])
}

func TestHandleTriggerUsesRecentLink(t *testing.T) {
	t.Parallel()

	srv := pageServer(t)
	sum := &fakeSummarizer{}
	sender := &recordingSender{}
	h := NewHandler(nil, srv.Client(), triggers, sum, sender)

	card := channel.InboundMessage{
		MsgType:  channel.MsgTypeApp,
		FromWxid: "wxid_user",
		Content:  "<msg><appmsg><title>Notes</title><type>5</type><url>" + srv.URL + "/post</url></appmsg></msg>",
	}
	assert.Equal(t, channel.Continue, h.HandleMessage(context.Background(), card))
	assert.Equal(t, channel.Stop, h.HandleMessage(context.Background(), textMessage("/总结")))
	assert.Len(t, sum.texts, 1)
}

func TestHandleRecentLinkExpires(t *testing.T) {
	t.Parallel()

	sender := &recordingSender{}
	h := NewHandler(nil, nil, triggers, &fakeSummarizer{}, sender)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return now }

	assert.Equal(t, channel.Continue, h.HandleMessage(context.Background(), textMessage("look https://example.com/a")))
	assert.Equal(t, "https://example.com/a", h.lookup("wxid_user"))
	now = now.Add(recentURLTTL + time.Second)
	assert.Empty(t, h.lookup("wxid_user"))
}

func TestRememberSweepsExpiredChats(t *testing.T) {
	t.Parallel()

	h := NewHandler(nil, nil, triggers, &fakeSummarizer{}, &recordingSender{})
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return now }

	for i := 0; i < 50; i++ {
		h.remember(fmt.Sprintf("chat-%d", i), "https://example.com/a")
	}
	now = now.Add(recentURLTTL + time.Second)
	h.remember("fresh", "https://example.com/b")

	h.mu.Lock()
	defer h.mu.Unlock()
	assert.Len(t, h.recent, 1)
	assert.Equal(t, "https://example.com/b", h.recent["fresh"].url)
}

func TestPublicClientRefusesLoopback(t *testing.T) {
	t.Parallel()

	srv := pageServer(t)
	_, err := fetchPage(context.Background(), NewPublicClient(time.Second), srv.URL+"/post", time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetch)
	assert.ErrorIs(t, err, ErrBlockedHost)

	sender := &recordingSender{}
	sum := &fakeSummarizer{}
	h := NewHandler(nil, NewPublicClient(time.Second), triggers, sum, sender)
	assert.Equal(t, channel.Stop, h.HandleMessage(context.Background(), textMessage("/总结 "+srv.URL+"/post")))
	assert.Empty(t, sum.texts)
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0], "网页获取失败")
}

func TestPublicIP(t *testing.T) {
	t.Parallel()

	for _, blocked := range []string{"127.0.0.1", "10.1.2.3", "192.168.0.10", "172.16.5.5", "169.254.169.254", "0.0.0.0", "::1", "fe80::1", "fd00::1"} {
		assert.False(t, publicIP(net.ParseIP(blocked)), blocked)
	}
	for _, allowed := range []string{"93.184.216.34", "2606:4700::1111"} {
		assert.True(t, publicIP(net.ParseIP(allowed)), allowed)
	}
}

func TestHandleTriggerWithoutLink(t *testing.T) {
	t.Parallel()

	sender := &recordingSender{}
	sum := &fakeSummarizer{}
	h := NewHandler(nil, nil, triggers, sum, sender)

	assert.Equal(t, channel.Stop, h.HandleMessage(context.Background(), textMessage("summarize")))
	assert.Empty(t, sum.texts)
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0], "请在触发词后附上链接")
}

func TestHandleFetchFailure(t *testing.T) {
	t.Parallel()

	srv := pageServer(t)
	sender := &recordingSender{}
	sum := &fakeSummarizer{}
	h := NewHandler(nil, srv.Client(), triggers, sum, sender)

	assert.Equal(t, channel.Stop, h.HandleMessage(context.Background(), textMessage("/总结 "+srv.URL+"/missing")))
	assert.Empty(t, sum.texts)
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0], "网页获取失败")
}

func TestHandleIgnoresOtherMessages(t *testing.T) {
	t.Parallel()

	sender := &recordingSender{}
	h := NewHandler(nil, nil, triggers, &fakeSummarizer{}, sender)

	assert.Equal(t, channel.Continue, h.HandleMessage(context.Background(), textMessage("hello")))
	assert.Equal(t, channel.Continue, h.HandleMessage(context.Background(), channel.InboundMessage{MsgType: 3}))
	assert.Empty(t, sender.sent)
}

func TestMatchTrigger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		rest string
		ok   bool
	}{
		{text: "/总结链接 https://a.b", rest: "https://a.b", ok: true},
		{text: "/总结", rest: "", ok: true},
		{text: "帮我/总结一下", rest: "一下", ok: true},
		{text: "总结", ok: false},
	}
	for _, tt := range tests {
		rest, ok := matchTrigger(tt.text, triggers)
		if ok != tt.ok || rest != tt.rest {
			t.Fatalf("matchTrigger(%q) = %q, %v; want %q, %v", tt.text, rest, ok, tt.rest, tt.ok)
		}
	}
}

func TestStripSenderPrefix(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/总结 https://a.b", stripSenderPrefix("wxid_abc:\n/总结 https://a.b"))
	assert.Equal(t, "plain text", stripSenderPrefix("plain text"))
	assert.Equal(t, "https://a.b", firstURL("看这个 https://a.b，不错"))
}
