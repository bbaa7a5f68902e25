package postgres

import (
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/viralforge/sala-escrow/internal/contracts"
	"github.com/viralforge/sala-escrow/internal/domain"
	"github.com/viralforge/sala-escrow/internal/ports"
)

func toSalaModel(a domain.Agreement) (salaModel, error) {
	doc, err := json.Marshal(a)
	if err != nil {
		return salaModel{}, fmt.Errorf("encode sala %s: %w", a.AgreementID, err)
	}
	return salaModel{
		SalaID:    a.AgreementID,
		FunderID:  a.FunderID,
		PartnerID: a.PartnerID,
		State:     a.State,
		HoldUntil: a.HoldUntil,
		Document:  string(doc),
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}, nil
}

func fromSalaModel(row salaModel) (domain.Agreement, error) {
	var a domain.Agreement
	if err := json.Unmarshal([]byte(row.Document), &a); err != nil {
		return domain.Agreement{}, fmt.Errorf("decode sala %s: %w", row.SalaID, err)
	}
	return a, nil
}

func fromWalletModel(row walletModel) domain.Wallet {
	return domain.Wallet{
		UserID:    row.UserID,
		Available: row.Available,
		InEscrow:  row.InEscrow,
		InHold:    row.InHold,
		InReview:  row.InReview,
		UpdatedAt: row.UpdatedAt,
	}
}

func toFundLockModel(l domain.FundLock) fundLockModel {
	return fundLockModel{
		SalaID:         l.AgreementID,
		FunderID:       l.FunderID,
		PartnerID:      l.PartnerID,
		Amount:         l.Amount,
		PartnerPending: l.PartnerPending,
		PartnerBucket:  string(l.PartnerBucket),
		Status:         l.Status,
		LockedAt:       l.LockedAt,
		ClosedAt:       l.ClosedAt,
	}
}

func fromFundLockModel(row fundLockModel) domain.FundLock {
	return domain.FundLock{
		AgreementID:    row.SalaID,
		FunderID:       row.FunderID,
		PartnerID:      row.PartnerID,
		Amount:         row.Amount,
		PartnerPending: row.PartnerPending,
		PartnerBucket:  domain.Bucket(row.PartnerBucket),
		Status:         row.Status,
		LockedAt:       row.LockedAt,
		ClosedAt:       row.ClosedAt,
	}
}

func fromOutboxModel(row outboxModel) (ports.OutboxRecord, error) {
	var env contracts.EventEnvelope
	if err := json.Unmarshal([]byte(row.Payload), &env); err != nil {
		return ports.OutboxRecord{}, fmt.Errorf("decode outbox %s: %w", row.OutboxID, err)
	}
	return ports.OutboxRecord{
		RecordID:   row.OutboxID,
		EventClass: row.EventClass,
		Envelope:   env,
		RetryCount: row.RetryCount,
		LastError:  row.LastError,
		CreatedAt:  row.CreatedAt,
		SentAt:     row.SentAt,
	}, nil
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}
