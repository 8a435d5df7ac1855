// Package retention removes old downloads on a cron schedule.
package retention

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrDisabled is returned by Start when retention is zero.
var ErrDisabled = errors.New("retention disabled")

// Store deletes stored files older than a cutoff age.
type Store interface {
	Sweep(ctx context.Context, olderThan time.Duration) (int, error)
}

// Sweeper runs Store.Sweep on a cron spec.
type Sweeper struct {
	store     Store
	spec      string
	retention time.Duration
	cron      *cron.Cron
	logger    *slog.Logger

	mu      sync.Mutex
	started bool
}

func NewSweeper(log *slog.Logger, store Store, spec string, retention time.Duration) *Sweeper {
	if log == nil {
		log = slog.Default()
	}
	return &Sweeper{
		store:     store,
		spec:      spec,
		retention: retention,
		cron:      cron.New(),
		logger:    log.With(slog.String("service", "retention")),
	}
}

// Start schedules the sweep. It returns ErrDisabled when retention is zero.
func (s *Sweeper) Start() error {
	if s.retention <= 0 {
		return ErrDisabled
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	if _, err := s.cron.AddFunc(s.spec, func() { _, _ = s.RunOnce(context.Background()) }); err != nil {
		return fmt.Errorf("invalid cleanup cron %q: %w", s.spec, err)
	}
	s.cron.Start()
	s.started = true
	s.logger.Info("retention sweeper started", slog.String("cron", s.spec), slog.Duration("retention", s.retention))
	return nil
}

// Stop waits for a running sweep to finish or ctx to end.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	started := s.started
	s.started = false
	s.mu.Unlock()
	if !started {
		return nil
	}
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce performs one sweep immediately.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	n, err := s.store.Sweep(ctx, s.retention)
	if err != nil {
		s.logger.Error("retention sweep failed", slog.Any("error", err))
		return n, err
	}
	if n > 0 {
		s.logger.Info("old downloads removed", slog.Int("count", n))
	}
	return n, nil
}
