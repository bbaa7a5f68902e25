package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/viralforge/sala-escrow/internal/domain"
	"github.com/viralforge/sala-escrow/internal/ports"
	"github.com/viralforge/sala-escrow/pkg/feesplit"
)

var hundred = decimal.NewFromInt(100)

// OpenDispute freezes the agreement. A running hold timer is cancelled
// before the agreement lock is released, so an expiry that loses the race
// finds the agreement disputed and gives up.
func (s *Service) OpenDispute(ctx context.Context, actor Actor, input OpenDisputeInput) (domain.Dispute, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Dispute{}, domain.ErrUnauthorized
	}
	input.Reason = strings.TrimSpace(input.Reason)
	input.Description = strings.TrimSpace(input.Description)
	if input.Reason == "" {
		return domain.Dispute{}, fmt.Errorf("%w: reason is required", domain.ErrInvalidInput)
	}
	a, err := s.mutateAgreement(ctx, input.AgreementID, func(ctx context.Context, repos ports.Repositories, a *domain.Agreement) error {
		if !a.IsParticipant(actor.SubjectID) {
			return domain.ErrForbidden
		}
		if a.HasDispute || a.Dispute != nil {
			return domain.ErrDisputeAlreadyExists
		}
		if domain.IsTerminalState(a.State) {
			return domain.ErrInvalidTransition
		}
		now := s.nowFn()
		before := a.State
		if err := a.Transition(domain.StateDisputed, now); err != nil {
			return err
		}
		a.StateBeforeDispute = before
		a.HasDispute = true
		a.InHold = false
		a.Dispute = &domain.Dispute{
			DisputeID:   uuid.NewString(),
			OpenedBy:    actor.SubjectID,
			Reason:      input.Reason,
			Description: input.Description,
			State:       domain.DisputeStateOpen,
			OpenedAt:    now,
		}
		a.Record(domain.TimelineDisputeOpened, fmt.Sprintf("dispute opened from %s: %s", before, input.Reason), actor.SubjectID, nil, now)
		return s.enqueueDispute(ctx, repos, *a, domain.EventSalaDisputeOpened, actor.SubjectID, actor.RequestID, now)
	})
	if err != nil {
		return domain.Dispute{}, err
	}
	return *a.Dispute, nil
}

// ResolveDispute settles an open dispute. Staff may pick any resolution; the
// funder may only settle in the partner's favour, fully or partially.
func (s *Service) ResolveDispute(ctx context.Context, actor Actor, input ResolveDisputeInput) (domain.Agreement, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Agreement{}, domain.ErrUnauthorized
	}
	resolution := domain.NormalizeResolution(input.Resolution)
	if resolution == "" {
		return domain.Agreement{}, fmt.Errorf("%w: unknown resolution %q", domain.ErrInvalidInput, input.Resolution)
	}
	if resolution == domain.ResolutionPartialRelease {
		if input.PartialPct == nil || input.PartialPct.IsNegative() || input.PartialPct.GreaterThan(hundred) {
			return domain.Agreement{}, fmt.Errorf("%w: partial_pct must be between 0 and 100", domain.ErrInvalidInput)
		}
	}
	input.Resolution = resolution

	return idempotent(ctx, s, actor, "resolve_dispute", input, func() (domain.Agreement, error) {
		return s.mutateAgreement(ctx, input.AgreementID, func(ctx context.Context, repos ports.Repositories, a *domain.Agreement) error {
			if !actor.isStaff() && !(a.FunderID == actor.SubjectID && resolution != domain.ResolutionFullRefund) {
				return domain.ErrForbidden
			}
			if a.State != domain.StateDisputed || a.Dispute == nil || a.Dispute.State != domain.DisputeStateOpen {
				return domain.ErrInvalidTransition
			}
			now := s.nowFn()
			var description string
			switch resolution {
			case domain.ResolutionFullRefund:
				if _, err := s.ledger.Refund(ctx, repos, a.AgreementID, now); err != nil {
					return err
				}
				if err := a.Transition(domain.StateRefunded, now); err != nil {
					return err
				}
				description = fmt.Sprintf("dispute resolved with full refund of %s to the funder", a.TotalAmount.StringFixed(2))
			default:
				split := a.Split()
				if resolution == domain.ResolutionPartialRelease {
					rate := decimal.NewFromInt(int64(a.CommissionPct)).Mul(*input.PartialPct).Div(hundred)
					var err error
					if split, err = feesplit.CalculateRate(a.TotalAmount, rate); err != nil {
						return err
					}
				}
				if _, err := s.ledger.Release(ctx, repos, a.AgreementID, split, now); err != nil {
					return err
				}
				if err := a.Transition(domain.StateCompleted, now); err != nil {
					return err
				}
				a.FundsReleased = true
				description = fmt.Sprintf("dispute resolved with %s: partner %s, platform fee %s, funder %s",
					resolution, split.PartnerGain.StringFixed(2), split.PlatformFee.StringFixed(2), split.NetToFunder.StringFixed(2))
				if err := s.enqueueSettled(ctx, repos, *a, domain.EventSalaCompleted,
					split.PlatformFee.StringFixed(2), split.PartnerGain.StringFixed(2), split.NetToFunder.StringFixed(2), actor.RequestID, now); err != nil {
					return err
				}
			}
			a.InHold = false
			a.Dispute.State = domain.DisputeStateResolved
			a.Dispute.Resolution = resolution
			a.Dispute.ResolvedBy = actor.SubjectID
			a.Dispute.ResolvedAt = &now
			if input.PartialPct != nil && resolution == domain.ResolutionPartialRelease {
				pct := *input.PartialPct
				a.Dispute.PartialPct = &pct
			}
			a.Record(domain.TimelineDisputeResolved, description, actor.SubjectID, nil, now)
			if resolution == domain.ResolutionFullRefund {
				if err := s.enqueueSettled(ctx, repos, *a, domain.EventSalaRefunded,
					"0.00", "0.00", a.TotalAmount.StringFixed(2), actor.RequestID, now); err != nil {
					return err
				}
			}
			return s.enqueueDispute(ctx, repos, *a, domain.EventSalaDisputeResolved, actor.SubjectID, actor.RequestID, now)
		})
	})
}
