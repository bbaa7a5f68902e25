package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/viralforge/sala-escrow/internal/domain"
	"github.com/viralforge/sala-escrow/internal/ports"
	"github.com/viralforge/sala-escrow/pkg/feesplit"
	"github.com/viralforge/sala-escrow/pkg/scoring"
)

const maxEvidenceFiles = 50

// CreateAgreement computes the split, locks the total from the funder's
// available balance and opens the agreement in the active state.
func (s *Service) CreateAgreement(ctx context.Context, actor Actor, input CreateAgreementInput) (domain.Agreement, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Agreement{}, domain.ErrUnauthorized
	}
	if strings.TrimSpace(actor.IdempotencyKey) == "" {
		return domain.Agreement{}, domain.ErrIdempotencyRequired
	}
	input.FunderID = strings.TrimSpace(input.FunderID)
	input.PartnerID = strings.TrimSpace(input.PartnerID)
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	if input.FunderID == "" {
		input.FunderID = actor.SubjectID
	}
	if input.FunderID != actor.SubjectID && !actor.isStaff() {
		return domain.Agreement{}, domain.ErrForbidden
	}
	if input.PartnerID == "" || input.PartnerID == input.FunderID || input.Title == "" {
		return domain.Agreement{}, domain.ErrInvalidInput
	}
	split, err := feesplit.Calculate(input.TotalAmount, input.CommissionPct)
	if err != nil {
		return domain.Agreement{}, err
	}

	return idempotent(ctx, s, actor, "create_agreement", input, func() (domain.Agreement, error) {
		now := s.nowFn()
		a := domain.Agreement{
			AgreementID:   uuid.NewString(),
			FunderID:      input.FunderID,
			PartnerID:     input.PartnerID,
			Title:         input.Title,
			Description:   input.Description,
			TotalAmount:   split.Total,
			CommissionPct: input.CommissionPct,
			PlatformFee:   split.PlatformFee,
			PartnerGain:   split.PartnerGain,
			NetToFunder:   split.NetToFunder,
			State:         domain.StateCreated,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		err := s.uow.WithinTx(ctx, func(ctx context.Context, repos ports.Repositories) error {
			if _, err := s.ledger.Lock(ctx, repos, a.AgreementID, a.FunderID, a.PartnerID, a.TotalAmount, now); err != nil {
				return err
			}
			if err := a.Transition(domain.StateActive, now); err != nil {
				return err
			}
			a.Record(domain.TimelineCreation,
				fmt.Sprintf("sala created, %s locked in escrow (fee %s, partner %s, funder %s)",
					a.TotalAmount.StringFixed(2), a.PlatformFee.StringFixed(2), a.PartnerGain.StringFixed(2), a.NetToFunder.StringFixed(2)),
				a.FunderID, nil, now)
			if err := repos.Agreements.Create(ctx, a); err != nil {
				return err
			}
			return s.enqueueSalaCreated(ctx, repos, a, actor.RequestID)
		})
		if err != nil {
			return domain.Agreement{}, err
		}
		return a, nil
	})
}

func (s *Service) GetAgreement(ctx context.Context, actor Actor, agreementID string) (domain.Agreement, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Agreement{}, domain.ErrUnauthorized
	}
	agreementID = strings.TrimSpace(agreementID)
	if agreementID == "" {
		return domain.Agreement{}, domain.ErrInvalidInput
	}
	a, err := s.reads.Agreements.Get(ctx, agreementID)
	if err != nil {
		return domain.Agreement{}, err
	}
	if !a.IsParticipant(actor.SubjectID) && !actor.isStaff() {
		return domain.Agreement{}, domain.ErrForbidden
	}
	return a, nil
}

// SubmitEvidence stores the partner's evidence, scores it and applies the
// verdict in the same unit of work.
func (s *Service) SubmitEvidence(ctx context.Context, actor Actor, input SubmitEvidenceInput) (EvidenceResult, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return EvidenceResult{}, domain.ErrUnauthorized
	}
	files, err := normalizeFiles(input.Files)
	if err != nil {
		return EvidenceResult{}, err
	}
	notes := strings.TrimSpace(input.Notes)

	return idempotent(ctx, s, actor, "submit_evidence", input, func() (EvidenceResult, error) {
		var result scoring.Result
		a, err := s.mutateAgreement(ctx, input.AgreementID, func(ctx context.Context, repos ports.Repositories, a *domain.Agreement) error {
			if a.PartnerID != actor.SubjectID {
				return domain.ErrForbidden
			}
			if a.State != domain.StateActive && a.State != domain.StateManualReview {
				return domain.ErrInvalidState
			}
			now := s.nowFn()
			from := a.State
			if err := a.Transition(domain.StateEvidenceSubmitted, now); err != nil {
				return err
			}
			ev := a.AddEvidence(domain.Evidence{Files: files, Notes: notes, SubmittedAt: now, SubmittedBy: actor.SubjectID})
			a.Record(domain.TimelineEvidenceSubmitted,
				fmt.Sprintf("evidence submission #%d with %d files", ev.Submission, len(files)),
				actor.SubjectID, nil, now)
			result = scoring.Score(ev.ScoringFiles(), ev.Notes)
			return s.applyVerdict(ctx, repos, a, result, actor, from, true)
		})
		if err != nil {
			return EvidenceResult{}, err
		}
		return EvidenceResult{Agreement: a, Result: result}, nil
	})
}

// RescoreEvidence runs the scorer again over the stored evidence. In active
// and manual_review the verdict is applied again; later states only get a
// refreshed score.
func (s *Service) RescoreEvidence(ctx context.Context, actor Actor, agreementID string) (EvidenceResult, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return EvidenceResult{}, domain.ErrUnauthorized
	}
	var result scoring.Result
	a, err := s.mutateAgreement(ctx, agreementID, func(ctx context.Context, repos ports.Repositories, a *domain.Agreement) error {
		if a.FunderID != actor.SubjectID && !actor.isStaff() {
			return domain.ErrForbidden
		}
		if domain.IsTerminalState(a.State) || a.Evidence == nil {
			return domain.ErrInvalidState
		}
		result = scoring.Score(a.Evidence.ScoringFiles(), a.Evidence.Notes)
		if a.State == domain.StateActive || a.State == domain.StateManualReview {
			return s.applyVerdict(ctx, repos, a, result, actor, a.State, false)
		}
		now := s.nowFn()
		score := result.Score
		a.Score = &domain.ScoreRecord{Submission: a.Evidence.Submission, Score: result.Score, Breakdown: result.Breakdown, Verdict: result.Verdict, ScoredAt: now}
		a.Record(domain.TimelineScored,
			fmt.Sprintf("submission #%d rescored %.3f (%s), state %s unchanged", a.Evidence.Submission, result.Score, result.Verdict, a.State),
			domain.ActorAuditor, &score, now)
		return s.enqueueEvidenceScored(ctx, repos, *a, actor.RequestID, now)
	})
	if err != nil {
		return EvidenceResult{}, err
	}
	return EvidenceResult{Agreement: a, Result: result}, nil
}

// ApproveManually lets the funder accept evidence that is waiting in manual
// review.
func (s *Service) ApproveManually(ctx context.Context, actor Actor, agreementID string) (domain.Agreement, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Agreement{}, domain.ErrUnauthorized
	}
	return idempotent(ctx, s, actor, "approve_manually", agreementID, func() (domain.Agreement, error) {
		return s.mutateAgreement(ctx, agreementID, func(ctx context.Context, repos ports.Repositories, a *domain.Agreement) error {
			if a.FunderID != actor.SubjectID {
				return domain.ErrForbidden
			}
			if a.State != domain.StateManualReview {
				return domain.ErrInvalidTransition
			}
			return s.approve(ctx, repos, a, domain.TimelineManualApproval, actor.SubjectID, actor.RequestID)
		})
	})
}

// ExpireHold completes an agreement whose hold period is over. It fails with
// ErrInvalidTransition when a dispute got the agreement lock first.
func (s *Service) ExpireHold(ctx context.Context, agreementID string) error {
	_, err := s.mutateAgreement(ctx, agreementID, func(ctx context.Context, repos ports.Repositories, a *domain.Agreement) error {
		now := s.nowFn()
		if a.State != domain.StateHold || a.HasDispute || a.HoldUntil == nil || a.HoldUntil.After(now) {
			return domain.ErrInvalidTransition
		}
		split := a.Split()
		if _, err := s.ledger.Release(ctx, repos, a.AgreementID, split, now); err != nil {
			return err
		}
		if err := a.Transition(domain.StateCompleted, now); err != nil {
			return err
		}
		a.FundsReleased = true
		a.InHold = false
		a.Record(domain.TimelineCompleted,
			fmt.Sprintf("hold expired: partner %s, platform fee %s, funder %s released",
				split.PartnerGain.StringFixed(2), split.PlatformFee.StringFixed(2), split.NetToFunder.StringFixed(2)),
			domain.ActorSystem, nil, now)
		return s.enqueueSettled(ctx, repos, *a, domain.EventSalaCompleted,
			split.PlatformFee.StringFixed(2), split.PartnerGain.StringFixed(2), split.NetToFunder.StringFixed(2), "", now)
	})
	return err
}

// ExpireDueHolds completes every agreement whose hold is overdue. Holds that
// lost a race to a dispute are skipped.
func (s *Service) ExpireDueHolds(ctx context.Context) (int, error) {
	due, err := s.reads.Agreements.ListHoldsDue(ctx, s.nowFn(), s.cfg.HoldSweepBatchSize)
	if err != nil {
		return 0, err
	}
	completed := 0
	var errs []error
	for _, a := range due {
		err := s.ExpireHold(ctx, a.AgreementID)
		switch {
		case err == nil:
			completed++
		case errors.Is(err, domain.ErrInvalidTransition):
		default:
			errs = append(errs, fmt.Errorf("expire hold %s: %w", a.AgreementID, err))
		}
	}
	return completed, errors.Join(errs...)
}

// RearmHolds schedules a hold timer for every agreement currently in hold.
func (s *Service) RearmHolds(ctx context.Context) (int, error) {
	if s.holds == nil {
		return 0, nil
	}
	rows, err := s.reads.Agreements.ListByState(ctx, domain.StateHold, 0)
	if err != nil {
		return 0, err
	}
	armed := 0
	for _, a := range rows {
		if a.HoldUntil == nil || a.HasDispute {
			continue
		}
		if err := s.holds.Schedule(ctx, a.AgreementID, *a.HoldUntil); err != nil {
			return armed, err
		}
		armed++
	}
	return armed, nil
}

// applyVerdict moves a freshly scored agreement to the state its verdict
// calls for. from is the state the submission or rescore started in.
// countAttempt is false for rescoring, which never uses up a rejection
// attempt.
func (s *Service) applyVerdict(ctx context.Context, repos ports.Repositories, a *domain.Agreement, result scoring.Result, actor Actor, from string, countAttempt bool) error {
	now := s.nowFn()
	if err := a.Transition(domain.StateScored, now); err != nil {
		return err
	}
	score := result.Score
	a.Score = &domain.ScoreRecord{Submission: a.Evidence.Submission, Score: result.Score, Breakdown: result.Breakdown, Verdict: result.Verdict, ScoredAt: now}
	a.Record(domain.TimelineScored,
		fmt.Sprintf("submission #%d scored %.3f: %s", a.Evidence.Submission, result.Score, result.Verdict),
		domain.ActorAuditor, &score, now)

	var err error
	switch result.Verdict {
	case scoring.VerdictApproved:
		err = s.approve(ctx, repos, a, domain.TimelineApproved, domain.ActorAuditor, actor.RequestID)
	case scoring.VerdictManualReview:
		err = s.enterReview(ctx, repos, a, domain.TimelineManualReview, "evidence needs manual review by the funder", domain.ActorAuditor)
	default:
		err = s.reject(ctx, repos, a, from, countAttempt)
	}
	if err != nil {
		return err
	}
	return s.enqueueEvidenceScored(ctx, repos, *a, actor.RequestID, now)
}

func (s *Service) approve(ctx context.Context, repos ports.Repositories, a *domain.Agreement, eventType, approvedBy, traceID string) error {
	now := s.nowFn()
	if err := a.Transition(domain.StateApproved, now); err != nil {
		return err
	}
	if _, err := s.ledger.MoveToHold(ctx, repos, a.AgreementID, a.PartnerGain, now); err != nil {
		return err
	}
	a.Record(eventType, fmt.Sprintf("approved, partner gain %s moved to hold", a.PartnerGain.StringFixed(2)), approvedBy, nil, now)

	holdUntil := now.Add(s.cfg.HoldPeriod)
	if err := a.Transition(domain.StateHold, now); err != nil {
		return err
	}
	a.InHold = true
	a.HoldUntil = &holdUntil
	a.Record(domain.TimelineHoldStarted, "hold period running until "+holdUntil.UTC().Format(time.RFC3339), domain.ActorSystem, nil, now)
	return s.enqueueApproved(ctx, repos, *a, approvedBy, traceID, now)
}

func (s *Service) enterReview(ctx context.Context, repos ports.Repositories, a *domain.Agreement, eventType, description, actorID string) error {
	now := s.nowFn()
	if err := a.Transition(domain.StateManualReview, now); err != nil {
		return err
	}
	if _, err := s.ledger.MoveToReview(ctx, repos, a.AgreementID, a.PartnerGain, now); err != nil {
		return err
	}
	a.Record(eventType, description, actorID, nil, now)
	return nil
}

func (s *Service) reject(ctx context.Context, repos ports.Repositories, a *domain.Agreement, from string, countAttempt bool) error {
	now := s.nowFn()
	if from == domain.StateManualReview {
		if err := a.Transition(domain.StateManualReview, now); err != nil {
			return err
		}
		a.Record(domain.TimelineRejected, "evidence rejected, stays in manual review", domain.ActorAuditor, nil, now)
		return nil
	}
	if countAttempt {
		a.RejectedAttempts++
	}
	if err := a.Transition(domain.StateRejected, now); err != nil {
		return err
	}
	if a.RejectedAttempts >= s.cfg.MaxRejectedAttempts {
		a.Record(domain.TimelineRejected,
			fmt.Sprintf("evidence rejected (attempt %d of %d)", a.RejectedAttempts, s.cfg.MaxRejectedAttempts),
			domain.ActorAuditor, nil, now)
		return s.enterReview(ctx, repos, a, domain.TimelineEscalated,
			fmt.Sprintf("escalated to manual review after %d rejected attempts", a.RejectedAttempts), domain.ActorSystem)
	}
	if err := a.Transition(domain.StateActive, now); err != nil {
		return err
	}
	a.Record(domain.TimelineRejected,
		fmt.Sprintf("evidence rejected (attempt %d of %d), resubmission open", a.RejectedAttempts, s.cfg.MaxRejectedAttempts),
		domain.ActorAuditor, nil, now)
	return nil
}

func normalizeFiles(in []EvidenceFileInput) ([]domain.EvidenceFile, error) {
	if len(in) > maxEvidenceFiles {
		return nil, fmt.Errorf("%w: at most %d files", domain.ErrInvalidInput, maxEvidenceFiles)
	}
	out := make([]domain.EvidenceFile, 0, len(in))
	for _, f := range in {
		name := strings.TrimSpace(f.Name)
		if name == "" || f.SizeBytes < 0 {
			return nil, fmt.Errorf("%w: evidence file needs a name", domain.ErrInvalidInput)
		}
		category := scoring.ParseCategory(f.Category)
		if category == scoring.CategoryOther {
			category = scoring.ParseCategory(name)
		}
		out = append(out, domain.EvidenceFile{Name: name, URL: strings.TrimSpace(f.URL), SizeBytes: f.SizeBytes, Category: category})
	}
	return out, nil
}

// PreviewScore scores evidence without storing anything. It runs the same
// scorer as SubmitEvidence, so the estimate matches the stored score.
func (s *Service) PreviewScore(files []EvidenceFileInput, notes string) (scoring.Result, error) {
	normalized, err := normalizeFiles(files)
	if err != nil {
		return scoring.Result{}, err
	}
	ev := domain.Evidence{Files: normalized, Notes: strings.TrimSpace(notes)}
	return scoring.Score(ev.ScoringFiles(), ev.Notes), nil
}
