// Package scheduler arms hold-expiry callbacks inside the API process.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/viralforge/sala-escrow/internal/domain"
)

// ExpireFunc is called when a hold is due.
type ExpireFunc func(ctx context.Context, agreementID string) error

type entry struct {
	timer *time.Timer
	gen   uint64
}

// TimerScheduler keeps one time.AfterFunc per agreement. Scheduling again
// replaces the earlier deadline.
type TimerScheduler struct {
	mu      sync.Mutex
	entries map[string]entry
	gen     uint64
	handler ExpireFunc
	nowFn   func() time.Time
	retry   time.Duration
	timeout time.Duration
	closed  bool
}

func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{
		entries: map[string]entry{},
		nowFn:   time.Now,
		retry:   time.Minute,
		timeout: 30 * time.Second,
	}
}

// OnExpire sets the callback. It must be set before the first deadline.
func (s *TimerScheduler) OnExpire(fn ExpireFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = fn
}

func (s *TimerScheduler) Schedule(_ context.Context, agreementID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("scheduler closed")
	}
	if prev, ok := s.entries[agreementID]; ok {
		prev.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.entries[agreementID] = entry{
		timer: time.AfterFunc(at.Sub(s.nowFn()), func() { s.fire(agreementID, gen) }),
		gen:   gen,
	}
	return nil
}

func (s *TimerScheduler) Cancel(_ context.Context, agreementID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[agreementID]; ok {
		e.timer.Stop()
		delete(s.entries, agreementID)
	}
	return nil
}

// Pending reports how many deadlines are armed.
func (s *TimerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close stops every timer. Deadlines are recovered from storage on restart.
func (s *TimerScheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.entries {
		e.timer.Stop()
		delete(s.entries, id)
	}
	s.closed = true
}

func (s *TimerScheduler) fire(agreementID string, gen uint64) {
	s.mu.Lock()
	e, ok := s.entries[agreementID]
	if !ok || e.gen != gen {
		s.mu.Unlock()
		return
	}
	delete(s.entries, agreementID)
	handler := s.handler
	s.mu.Unlock()
	if handler == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	err := handler(ctx, agreementID)
	switch {
	case err == nil:
		slog.Default().InfoContext(ctx, "hold expired",
			"module", "scheduler", "layer", "adapter", "operation", "expire_hold", "outcome", "success", "sala_id", agreementID)
	case errors.Is(err, domain.ErrInvalidTransition):
		slog.Default().InfoContext(ctx, "hold expiry skipped",
			"module", "scheduler", "layer", "adapter", "operation", "expire_hold", "outcome", "skipped", "sala_id", agreementID)
	default:
		slog.Default().ErrorContext(ctx, "hold expiry failed, retrying",
			"module", "scheduler", "layer", "adapter", "operation", "expire_hold", "outcome", "failure", "sala_id", agreementID, "error", err)
		_ = s.Schedule(ctx, agreementID, s.nowFn().Add(s.retry))
	}
}
