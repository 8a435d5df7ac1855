package channel_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/memohai/filesummary/internal/channel"
)

func TestManagerDispatchPriorityOrder(t *testing.T) {
	t.Parallel()

	m := channel.NewManager(nil, nil)
	var order []string
	record := func(name string, verdict channel.Verdict) channel.InboundHandler {
		return func(context.Context, channel.InboundMessage) channel.Verdict {
			order = append(order, name)
			return verdict
		}
	}
	if err := m.Handle("low", 10, record("low", channel.Continue)); err != nil {
		t.Fatalf("Handle low: %v", err)
	}
	if err := m.Handle("high", 100, record("high", channel.Continue)); err != nil {
		t.Fatalf("Handle high: %v", err)
	}
	if err := m.Handle("mid", 50, record("mid", channel.Continue)); err != nil {
		t.Fatalf("Handle mid: %v", err)
	}

	if got := m.Dispatch(context.Background(), channel.InboundMessage{}); got != channel.Continue {
		t.Fatalf("Dispatch = %v, want continue", got)
	}
	want := []string{"high", "mid", "low"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestManagerDispatchStopsAtFirstStop(t *testing.T) {
	t.Parallel()

	m := channel.NewManager(nil, nil)
	called := false
	_ = m.Handle("consumer", 100, func(context.Context, channel.InboundMessage) channel.Verdict { return channel.Stop })
	_ = m.Handle("later", 1, func(context.Context, channel.InboundMessage) channel.Verdict {
		called = true
		return channel.Continue
	})
	if got := m.Dispatch(context.Background(), channel.InboundMessage{}); got != channel.Stop {
		t.Fatalf("Dispatch = %v, want stop", got)
	}
	if called {
		t.Fatal("handler after Stop should not run")
	}
}

func TestManagerHandleRejectsDuplicates(t *testing.T) {
	t.Parallel()

	m := channel.NewManager(nil, nil)
	h := func(context.Context, channel.InboundMessage) channel.Verdict { return channel.Continue }
	if err := m.Handle("a", 1, h); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if err := m.Handle("a", 2, h); err == nil {
		t.Fatal("duplicate name should fail")
	}
	if err := m.Handle("", 2, h); err == nil {
		t.Fatal("empty name should fail")
	}
	if err := m.Handle("b", 2, nil); err == nil {
		t.Fatal("nil handler should fail")
	}
}

func TestManagerMiddlewareOrder(t *testing.T) {
	t.Parallel()

	m := channel.NewManager(nil, nil)
	var order []string
	mw := func(name string) channel.Middleware {
		return func(next channel.InboundHandler) channel.InboundHandler {
			return func(ctx context.Context, msg channel.InboundMessage) channel.Verdict {
				order = append(order, name)
				return next(ctx, msg)
			}
		}
	}
	m.Use(mw("outer"), mw("inner"))
	_ = m.Handle("h", 1, func(context.Context, channel.InboundMessage) channel.Verdict {
		order = append(order, "handler")
		return channel.Stop
	})
	m.Dispatch(context.Background(), channel.InboundMessage{})
	if len(order) != 3 || order[0] != "outer" || order[1] != "inner" || order[2] != "handler" {
		t.Fatalf("order = %v", order)
	}
}

func TestRecoverMiddlewareStopsOnPanic(t *testing.T) {
	t.Parallel()

	m := channel.NewManager(nil, nil)
	m.Use(channel.RecoverMiddleware(nil), channel.LoggingMiddleware(nil))
	_ = m.Handle("boom", 1, func(context.Context, channel.InboundMessage) channel.Verdict {
		panic("boom")
	})
	if got := m.Dispatch(context.Background(), channel.InboundMessage{NewMsgID: 7}); got != channel.Stop {
		t.Fatalf("Dispatch = %v, want stop", got)
	}
}

type fakeAdapter struct {
	name    string
	mu      sync.Mutex
	handler channel.InboundHandler
	stopped bool
	stopErr error
}

func (a *fakeAdapter) Name() string { return a.name }

func (a *fakeAdapter) Start(_ context.Context, handler channel.InboundHandler) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handler = handler
	return nil
}

func (a *fakeAdapter) Stop(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopped = true
	return a.stopErr
}

func TestManagerStartWiresAdapters(t *testing.T) {
	t.Parallel()

	reg := channel.NewRegistry()
	adapter := &fakeAdapter{name: "webhook"}
	reg.MustRegister(adapter)
	m := channel.NewManager(nil, reg)
	_ = m.Handle("h", 1, func(context.Context, channel.InboundMessage) channel.Verdict { return channel.Stop })

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if adapter.handler == nil {
		t.Fatal("adapter did not receive a handler")
	}
	if got := adapter.handler(context.Background(), channel.InboundMessage{}); got != channel.Stop {
		t.Fatalf("adapter handler verdict = %v", got)
	}
	if err := m.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if !adapter.stopped {
		t.Fatal("adapter was not stopped")
	}
}

func TestManagerShutdownJoinsErrors(t *testing.T) {
	t.Parallel()

	reg := channel.NewRegistry()
	boom := errors.New("boom")
	reg.MustRegister(&fakeAdapter{name: "a", stopErr: boom})
	reg.MustRegister(&fakeAdapter{name: "b", stopErr: channel.ErrStopNotSupported})
	m := channel.NewManager(nil, reg)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := m.Shutdown(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Shutdown err = %v, want boom", err)
	}
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	reg := channel.NewRegistry()
	if err := reg.Register(nil); err == nil {
		t.Fatal("nil adapter should fail")
	}
	if err := reg.Register(&fakeAdapter{name: " "}); err == nil {
		t.Fatal("blank name should fail")
	}
	reg.MustRegister(&fakeAdapter{name: "Webhook"})
	if err := reg.Register(&fakeAdapter{name: "webhook"}); err == nil {
		t.Fatal("duplicate should fail")
	}
	if _, ok := reg.Get("WEBHOOK"); !ok {
		t.Fatal("Get should be case-insensitive")
	}
	reg.MustRegister(&fakeAdapter{name: "amqp"})
	list := reg.List()
	if len(list) != 2 || list[0].Name() != "amqp" {
		t.Fatalf("List = %v", list)
	}
	if !reg.Unregister("webhook") || reg.Unregister("webhook") {
		t.Fatal("Unregister should succeed once")
	}
}

func TestInboundMessageHelpers(t *testing.T) {
	t.Parallel()

	msg := channel.InboundMessage{NewMsgID: 42, FromWxid: "123@chatroom", SenderWxid: "wxid_a", IsGroup: true}
	if msg.ReplyTarget() != "123@chatroom" || msg.Sender() != "wxid_a" {
		t.Fatalf("ReplyTarget/Sender = %q/%q", msg.ReplyTarget(), msg.Sender())
	}
	if msg.DedupKey() != "new:42" {
		t.Fatalf("DedupKey = %q", msg.DedupKey())
	}
	if (channel.InboundMessage{MsgID: 3}).DedupKey() != "msg:3" {
		t.Fatal("MsgId fallback")
	}
	if (channel.InboundMessage{}).DedupKey() != "" {
		t.Fatal("empty key expected")
	}
	if (channel.InboundMessage{FromWxid: "wxid_b"}).Sender() != "wxid_b" {
		t.Fatal("Sender should fall back to FromWxid")
	}
}
