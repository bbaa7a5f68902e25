package ports

import (
	"context"
	"time"
)

// AgreementLocker serialises every mutation of one agreement. The returned
// release func must be called exactly once.
type AgreementLocker interface {
	Acquire(ctx context.Context, agreementID string) (release func(), err error)
}

// HoldScheduler arms and disarms the hold-expiry callback of an agreement.
// Scheduling an agreement twice replaces the earlier deadline.
type HoldScheduler interface {
	Schedule(ctx context.Context, agreementID string, at time.Time) error
	Cancel(ctx context.Context, agreementID string) error
}
