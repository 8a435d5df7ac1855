// Package linksummary summarizes web pages on request. A text message that
// starts with a summary trigger summarizes the URL it carries, or the URL most
// recently shared in the same chat.
package linksummary

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/memohai/filesummary/internal/channel"
)

const (
	// HandlerPriority runs after the file handler.
	HandlerPriority = 60
	DefaultTimeout  = 30 * time.Second
	recentURLTTL    = 10 * time.Minute
)

// TextSummarizer summarizes already extracted content.
type TextSummarizer interface {
	SummarizeText(ctx context.Context, title, text string) (string, error)
}

type recentURL struct {
	url string
	at  time.Time
}

// Handler is the inbound handler for link summary requests.
type Handler struct {
	triggers   []string
	http       *http.Client
	timeout    time.Duration
	summarizer TextSummarizer
	sender     channel.Sender
	logger     *slog.Logger

	mu     sync.Mutex
	recent map[string]recentURL
	swept  time.Time
	now    func() time.Time
}

func NewHandler(log *slog.Logger, httpClient *http.Client, triggers []string, summarizer TextSummarizer, sender channel.Sender) *Handler {
	if log == nil {
		log = slog.Default()
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Handler{
		triggers:   triggers,
		http:       httpClient,
		timeout:    DefaultTimeout,
		summarizer: summarizer,
		sender:     sender,
		logger:     log.With(slog.String("component", "linksummary")),
		recent:     make(map[string]recentURL),
		now:        time.Now,
	}
}

// HandleMessage remembers shared links and answers trigger messages.
func (h *Handler) HandleMessage(ctx context.Context, msg channel.InboundMessage) channel.Verdict {
	chat := msg.ReplyTarget()
	switch msg.MsgType {
	case channel.MsgTypeApp:
		if u := sharedLinkURL(msg.Content); u != "" {
			h.remember(chat, u)
		}
		return channel.Continue
	case channel.MsgTypeText:
	default:
		return channel.Continue
	}

	text := strings.TrimSpace(msg.Content)
	if msg.IsGroup {
		text = strings.TrimSpace(stripSenderPrefix(text))
	}
	rest, triggered := h.matchTrigger(text)
	if !triggered {
		if u := firstURL(text); u != "" {
			h.remember(chat, u)
		}
		return channel.Continue
	}

	target := firstURL(rest)
	if target == "" {
		target = h.lookup(chat)
	}
	if target == "" {
		h.reply(ctx, chat, "请在触发词后附上链接，或先分享一个链接")
		return channel.Stop
	}
	h.summarize(ctx, chat, target)
	return channel.Stop
}

func (h *Handler) matchTrigger(text string) (string, bool) {
	return matchTrigger(text, h.triggers)
}

func (h *Handler) summarize(ctx context.Context, chat, target string) {
	log := h.logger.With(slog.String("url", target), slog.String("chat", chat))
	page, err := fetchPage(ctx, h.http, target, h.timeout)
	if err != nil {
		log.Warn("page fetch failed", slog.Any("error", err))
		if errors.Is(err, ErrExtract) {
			h.reply(ctx, chat, "无法提取网页正文: "+target)
		} else {
			h.reply(ctx, chat, "网页获取失败: "+target)
		}
		return
	}
	log.Info("page extracted", slog.String("title", page.Title), slog.Int("runes", len([]rune(page.Markdown))))

	text, err := h.summarizer.SummarizeText(ctx, page.Title, page.Markdown)
	if err != nil {
		log.Error("page summary failed", slog.Any("error", err))
		h.reply(ctx, chat, "网页总结失败，请稍后再试")
		return
	}
	h.reply(ctx, chat, "🔗 "+page.Title+"\n\n"+text)
}

func (h *Handler) reply(ctx context.Context, chat, text string) {
	if err := h.sender.SendText(ctx, chat, text); err != nil {
		h.logger.Warn("link reply failed", slog.String("chat", chat), slog.Any("error", err))
	}
}

// remember records the link and drops expired entries of other chats at most
// once per TTL.
func (h *Handler) remember(chat, u string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	now := h.now()
	if now.Sub(h.swept) > recentURLTTL {
		for k, r := range h.recent {
			if now.Sub(r.at) > recentURLTTL {
				delete(h.recent, k)
			}
		}
		h.swept = now
	}
	h.recent[chat] = recentURL{url: u, at: now}
}

func (h *Handler) lookup(chat string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.recent[chat]
	if !ok {
		return ""
	}
	if h.now().Sub(r.at) > recentURLTTL {
		delete(h.recent, chat)
		return ""
	}
	return r.url
}
