package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/viralforge/sala-escrow/internal/domain"
)

// LocalLocker serialises agreements inside one process. Waiters give up
// when their context ends or the wait limit passes.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]*slot
	wait  time.Duration
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker(wait time.Duration) *LocalLocker {
	return &LocalLocker{slots: map[string]*slot{}, wait: wait}
}

func (l *LocalLocker) Acquire(ctx context.Context, agreementID string) (func(), error) {
	agreementID = strings.TrimSpace(agreementID)
	if agreementID == "" {
		return nil, domain.ErrInvalidInput
	}
	if l.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}

	l.mu.Lock()
	s := l.slots[agreementID]
	if s == nil {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[agreementID] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.unref(agreementID, s)
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrLockTimeout, agreementID, ctx.Err())
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.unref(agreementID, s)
		})
	}, nil
}

func (l *LocalLocker) unref(agreementID string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, agreementID)
	}
}
