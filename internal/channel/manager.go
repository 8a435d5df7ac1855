package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// DefaultPriority matches the priority plugins register with when unset.
const DefaultPriority = 50

type handlerEntry struct {
	name     string
	priority int
	seq      int
	handler  InboundHandler
}

// Manager dispatches inbound messages to prioritized handlers and owns the
// lifecycle of the registered inbound adapters.
type Manager struct {
	registry    *Registry
	logger      *slog.Logger
	middlewares []Middleware

	mu       sync.RWMutex
	handlers []handlerEntry
	seq      int
	started  []Adapter
}

// NewManager creates a Manager over the given adapter registry.
func NewManager(log *slog.Logger, registry *Registry) *Manager {
	if log == nil {
		log = slog.Default()
	}
	if registry == nil {
		registry = NewRegistry()
	}
	return &Manager{
		registry:    registry,
		logger:      log.With(slog.String("component", "channel")),
		middlewares: []Middleware{},
	}
}

// Registry returns the adapter registry used by this manager.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Use appends middleware to the inbound processing chain. The first
// middleware added is the outermost.
func (m *Manager) Use(mw ...Middleware) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.middlewares = append(m.middlewares, mw...)
}

// Handle registers a handler. Higher priority runs first; equal priorities
// run in registration order.
func (m *Manager) Handle(name string, priority int, handler InboundHandler) error {
	if handler == nil {
		return fmt.Errorf("handler is nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("handler name is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.handlers {
		if h.name == name {
			return fmt.Errorf("handler already registered: %s", name)
		}
	}
	m.seq++
	m.handlers = append(m.handlers, handlerEntry{name: name, priority: priority, seq: m.seq, handler: handler})
	sort.SliceStable(m.handlers, func(i, j int) bool {
		if m.handlers[i].priority != m.handlers[j].priority {
			return m.handlers[i].priority > m.handlers[j].priority
		}
		return m.handlers[i].seq < m.handlers[j].seq
	})
	m.logger.Info("handler registered", slog.String("handler", name), slog.Int("priority", priority))
	return nil
}

// Dispatch runs the middleware chain and then each handler in priority order
// until one returns Stop.
func (m *Manager) Dispatch(ctx context.Context, msg InboundMessage) Verdict {
	m.mu.RLock()
	handlers := append([]handlerEntry(nil), m.handlers...)
	mws := append([]Middleware(nil), m.middlewares...)
	m.mu.RUnlock()

	var next InboundHandler = func(ctx context.Context, msg InboundMessage) Verdict {
		for _, h := range handlers {
			if h.handler(ctx, msg) == Stop {
				m.logger.Debug("message consumed", slog.String("handler", h.name), slog.Int64("new_msg_id", msg.NewMsgID))
				return Stop
			}
		}
		return Continue
	}
	for i := len(mws) - 1; i >= 0; i-- {
		next = mws[i](next)
	}
	return next(ctx, msg)
}

// Start starts every registered adapter with Dispatch as its handler.
func (m *Manager) Start(ctx context.Context) error {
	m.logger.Info("manager start")
	for _, adapter := range m.registry.List() {
		if err := adapter.Start(ctx, m.Dispatch); err != nil {
			return fmt.Errorf("start adapter %s: %w", adapter.Name(), err)
		}
		m.mu.Lock()
		m.started = append(m.started, adapter)
		m.mu.Unlock()
		m.logger.Info("adapter started", slog.String("adapter", adapter.Name()))
	}
	return nil
}

// Shutdown stops started adapters in reverse order.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	started := m.started
	m.started = nil
	m.mu.Unlock()

	var errs []error
	for i := len(started) - 1; i >= 0; i-- {
		stopper, ok := started[i].(Stopper)
		if !ok {
			continue
		}
		if err := stopper.Stop(ctx); err != nil && !errors.Is(err, ErrStopNotSupported) {
			m.logger.Warn("adapter stop failed", slog.String("adapter", started[i].Name()), slog.Any("error", err))
			errs = append(errs, err)
		}
	}
	m.logger.Info("manager stop")
	return errors.Join(errs...)
}
