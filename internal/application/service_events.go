package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/viralforge/sala-escrow/internal/contracts"
	"github.com/viralforge/sala-escrow/internal/domain"
	"github.com/viralforge/sala-escrow/internal/ports"
)

// FlushOutbox publishes pending outbox records. Domain events that fail are
// copied to the DLQ, marked failed and retried on the next flush.
func (s *Service) FlushOutbox(ctx context.Context) (int, error) {
	if s.reads.Outbox == nil {
		return 0, nil
	}
	pending, err := s.reads.Outbox.ListPending(ctx, s.cfg.OutboxFlushBatchSize)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, rec := range pending {
		switch rec.EventClass {
		case domain.CanonicalEventClassDomain:
			if s.domainEvents != nil {
				if err := s.domainEvents.PublishDomain(ctx, rec.Envelope); err != nil {
					s.deadLetter(ctx, rec, err)
					if markErr := s.reads.Outbox.MarkFailed(ctx, rec.RecordID, err.Error(), s.nowFn()); markErr != nil {
						return sent, markErr
					}
					return sent, err
				}
			}
		case domain.CanonicalEventClassAnalyticsOnly:
			if s.analytics != nil {
				if err := s.analytics.PublishAnalytics(ctx, rec.Envelope); err != nil {
					logWarn(ctx, "publish_analytics", rec.Envelope.EventID, err)
				}
			}
		default:
			return sent, fmt.Errorf("%w: %s", domain.ErrUnsupportedEventClass, rec.EventClass)
		}
		if err := s.reads.Outbox.MarkSent(ctx, rec.RecordID, s.nowFn()); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

func (s *Service) deadLetter(ctx context.Context, rec ports.OutboxRecord, cause error) {
	if s.dlq == nil {
		return
	}
	now := s.nowFn()
	firstSeen := rec.CreatedAt
	if firstSeen.IsZero() {
		firstSeen = now
	}
	err := s.dlq.PublishDLQ(ctx, contracts.DLQRecord{
		OriginalEvent: rec.Envelope,
		ErrorSummary:  cause.Error(),
		RetryCount:    rec.RetryCount + 1,
		FirstSeenAt:   firstSeen,
		LastErrorAt:   now,
		SourceTopic:   rec.Envelope.EventType,
		DLQTopic:      "sala-escrow-service.dlq",
		TraceID:       rec.Envelope.TraceID,
	})
	if err != nil {
		logWarn(ctx, "publish_dlq", rec.Envelope.EventID, err)
	}
}

func (s *Service) enqueueEvent(ctx context.Context, outbox ports.OutboxRepository, eventType, traceID string, data any, partitionKey string, now time.Time) error {
	if outbox == nil {
		return nil
	}
	if !domain.IsCanonicalEmittedEvent(eventType) {
		return domain.ErrUnsupportedEventType
	}
	b, err := json.Marshal(data)
	if err != nil {
		return domain.ErrInvalidInput
	}
	if strings.TrimSpace(traceID) == "" {
		traceID = uuid.NewString()
	}
	env := contracts.EventEnvelope{
		EventID:          uuid.NewString(),
		EventType:        eventType,
		EventClass:       domain.CanonicalEventClass(eventType),
		OccurredAt:       now,
		PartitionKeyPath: domain.CanonicalPartitionKeyPath(eventType),
		PartitionKey:     partitionKey,
		SourceService:    s.cfg.ServiceName,
		TraceID:          traceID,
		SchemaVersion:    "v1",
		Data:             b,
	}
	return outbox.Enqueue(ctx, ports.OutboxRecord{RecordID: uuid.NewString(), EventClass: env.EventClass, Envelope: env, CreatedAt: now})
}

func (s *Service) enqueueSalaCreated(ctx context.Context, repos ports.Repositories, a domain.Agreement, traceID string) error {
	return s.enqueueEvent(ctx, repos.Outbox, domain.EventSalaCreated, traceID, contracts.SalaCreatedPayload{
		SalaID:        a.AgreementID,
		FunderID:      a.FunderID,
		PartnerID:     a.PartnerID,
		TotalAmount:   a.TotalAmount.StringFixed(2),
		CommissionPct: a.CommissionPct,
		CreatedAt:     a.CreatedAt.UTC().Format(time.RFC3339),
	}, a.AgreementID, a.CreatedAt)
}

func (s *Service) enqueueEvidenceScored(ctx context.Context, repos ports.Repositories, a domain.Agreement, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, repos.Outbox, domain.EventSalaEvidenceScored, traceID, contracts.SalaEvidenceScoredPayload{
		SalaID:   a.AgreementID,
		Score:    a.Score.Score,
		Verdict:  string(a.Score.Verdict),
		State:    a.State,
		ScoredAt: now.UTC().Format(time.RFC3339),
	}, a.AgreementID, now)
}

func (s *Service) enqueueApproved(ctx context.Context, repos ports.Repositories, a domain.Agreement, approvedBy, traceID string, now time.Time) error {
	holdUntil := ""
	if a.HoldUntil != nil {
		holdUntil = a.HoldUntil.UTC().Format(time.RFC3339)
	}
	return s.enqueueEvent(ctx, repos.Outbox, domain.EventSalaApproved, traceID, contracts.SalaApprovedPayload{
		SalaID:      a.AgreementID,
		ApprovedBy:  approvedBy,
		PartnerGain: a.PartnerGain.StringFixed(2),
		HoldUntil:   holdUntil,
	}, a.AgreementID, now)
}

func (s *Service) enqueueSettled(ctx context.Context, repos ports.Repositories, a domain.Agreement, eventType string, fee, gain, net string, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, repos.Outbox, eventType, traceID, contracts.SalaSettledPayload{
		SalaID:      a.AgreementID,
		State:       a.State,
		PlatformFee: fee,
		PartnerGain: gain,
		NetToFunder: net,
		SettledAt:   now.UTC().Format(time.RFC3339),
	}, a.AgreementID, now)
}

func (s *Service) enqueueDispute(ctx context.Context, repos ports.Repositories, a domain.Agreement, eventType, actorID, traceID string, now time.Time) error {
	d := a.Dispute
	return s.enqueueEvent(ctx, repos.Outbox, eventType, traceID, contracts.SalaDisputePayload{
		SalaID:     a.AgreementID,
		DisputeID:  d.DisputeID,
		State:      d.State,
		Resolution: d.Resolution,
		ActorID:    actorID,
		OccurredAt: now.UTC().Format(time.RFC3339),
	}, a.AgreementID, now)
}

func (s *Service) enqueueWalletMovement(ctx context.Context, repos ports.Repositories, eventType string, w domain.Wallet, amount, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, repos.Outbox, eventType, traceID, contracts.WalletMovementPayload{
		UserID:     w.UserID,
		Amount:     amount,
		Available:  w.Available.StringFixed(2),
		OccurredAt: now.UTC().Format(time.RFC3339),
	}, w.UserID, now)
}
