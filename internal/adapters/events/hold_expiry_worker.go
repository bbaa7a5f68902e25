package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/viralforge/sala-escrow/internal/application"
	"github.com/viralforge/sala-escrow/internal/domain"
)

// DueHolds hands out agreements whose hold elapsed. Each id is returned to
// one caller only.
type DueHolds interface {
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]string, error)
}

// HoldExpiryWorker completes agreements whose hold period elapsed. Claimed
// ids are expired first; the store sweep catches anything the queue lost.
type HoldExpiryWorker struct {
	logger    *slog.Logger
	service   *application.Service
	queue     DueHolds
	interval  time.Duration
	batchSize int
	nowFn     func() time.Time
}

func NewHoldExpiryWorker(logger *slog.Logger, service *application.Service, queue DueHolds, interval time.Duration, batchSize int) *HoldExpiryWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &HoldExpiryWorker{
		logger:    logger,
		service:   service,
		queue:     queue,
		interval:  interval,
		batchSize: batchSize,
		nowFn:     func() time.Time { return time.Now().UTC() },
	}
}

func (w *HoldExpiryWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if err := w.processOnce(ctx); err != nil {
			w.logger.ErrorContext(ctx, "hold expiry iteration failed",
				"module", "events.hold_expiry_worker",
				"layer", "adapter",
				"operation", "expire_holds",
				"outcome", "failure",
				"error", err,
			)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *HoldExpiryWorker) processOnce(ctx context.Context) error {
	var errs []error
	if w.queue != nil {
		ids, err := w.queue.ClaimDue(ctx, w.nowFn(), w.batchSize)
		if err != nil {
			errs = append(errs, err)
		}
		for _, id := range ids {
			err := w.service.ExpireHold(ctx, id)
			switch {
			case err == nil:
				w.logger.InfoContext(ctx, "hold expired",
					"module", "events.hold_expiry_worker",
					"layer", "adapter",
					"operation", "expire_hold",
					"outcome", "success",
					"sala_id", id,
				)
			case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrNotFound):
				// Disputed or already settled by someone else.
			default:
				errs = append(errs, err)
			}
		}
	}
	if _, err := w.service.ExpireDueHolds(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
