package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/viralforge/sala-escrow/internal/domain"
	"github.com/viralforge/sala-escrow/internal/ports"
)

// mutateAgreement runs fn on a locked, freshly read agreement inside one unit
// of work and persists the result. Hold timers are synced before the
// agreement lock is released so a dispute can never race a stale timer.
func (s *Service) mutateAgreement(ctx context.Context, agreementID string, fn func(ctx context.Context, repos ports.Repositories, a *domain.Agreement) error) (domain.Agreement, error) {
	agreementID = strings.TrimSpace(agreementID)
	if agreementID == "" {
		return domain.Agreement{}, domain.ErrInvalidInput
	}
	release, err := s.acquire(ctx, agreementID)
	if err != nil {
		return domain.Agreement{}, err
	}
	defer release()

	var before, after domain.Agreement
	err = s.uow.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
		row, err := repos.Agreements.GetForUpdate(ctx, agreementID)
		if err != nil {
			return err
		}
		before = row.Clone()
		if err := fn(ctx, repos, &row); err != nil {
			return err
		}
		if err := repos.Agreements.Update(ctx, row); err != nil {
			return err
		}
		after = row
		return nil
	})
	if err != nil {
		return domain.Agreement{}, err
	}
	s.syncHoldTimer(ctx, before, after)
	return after, nil
}

func (s *Service) acquire(ctx context.Context, agreementID string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	return s.locker.Acquire(ctx, agreementID)
}

func (s *Service) syncHoldTimer(ctx context.Context, before, after domain.Agreement) {
	if s.holds == nil {
		return
	}
	switch {
	case after.State == domain.StateHold && before.State != domain.StateHold && after.HoldUntil != nil:
		if err := s.holds.Schedule(ctx, after.AgreementID, *after.HoldUntil); err != nil {
			logWarn(ctx, "schedule_hold", after.AgreementID, err)
		}
	case before.State == domain.StateHold && after.State != domain.StateHold:
		if err := s.holds.Cancel(ctx, after.AgreementID); err != nil {
			logWarn(ctx, "cancel_hold", after.AgreementID, err)
		}
	}
}

// idempotent replays the stored response for a repeated key and records the
// response of a first call. Failed calls free the key for a retry. The caller
// is part of the request hash, so a key reused by another subject or role is
// a conflict, never a replay.
func idempotent[T any](ctx context.Context, s *Service, actor Actor, operation string, input any, fn func() (T, error)) (T, error) {
	var zero T
	key := strings.TrimSpace(actor.IdempotencyKey)
	if s.idempotency == nil || key == "" {
		return fn()
	}
	requestHash := hashJSON(struct {
		Operation string `json:"operation"`
		SubjectID string `json:"subject_id"`
		Role      string `json:"role"`
		Input     any    `json:"input"`
	}{operation, actor.SubjectID, actor.Role, input})

	rec, err := s.idempotency.Get(ctx, key, s.nowFn())
	if err != nil {
		return zero, err
	}
	if rec != nil {
		if rec.RequestHash != requestHash || len(rec.ResponseBody) == 0 {
			return zero, domain.ErrIdempotencyConflict
		}
		var out T
		if err := json.Unmarshal(rec.ResponseBody, &out); err != nil {
			return zero, err
		}
		return out, nil
	}
	if err := s.idempotency.Reserve(ctx, key, requestHash, s.nowFn().Add(s.cfg.IdempotencyTTL)); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return zero, domain.ErrIdempotencyConflict
		}
		return zero, err
	}

	out, err := fn()
	if err != nil {
		if relErr := s.idempotency.Release(ctx, key); relErr != nil {
			logWarn(ctx, "release_idempotency_key", key, relErr)
		}
		return zero, err
	}
	body, err := json.Marshal(out)
	if err == nil {
		err = s.idempotency.Complete(ctx, key, 200, body, s.nowFn())
	}
	if err != nil {
		logWarn(ctx, "complete_idempotency_key", key, err)
	}
	return out, nil
}

func hashJSON(v any) string {
	b, _ := json.Marshal(v)
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

func logWarn(ctx context.Context, operation, ref string, err error) {
	slog.Default().WarnContext(ctx, "escrow side effect failed",
		"service", "sala-escrow-service",
		"module", "application",
		"layer", "application",
		"operation", operation,
		"outcome", "failure",
		"ref", ref,
		"error", err,
	)
}
