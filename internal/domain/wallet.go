package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Bucket string

const (
	BucketAvailable Bucket = "available"
	BucketInEscrow  Bucket = "in_escrow"
	BucketInHold    Bucket = "in_hold"
	BucketInReview  Bucket = "in_review"
)

func (b Bucket) Valid() bool {
	switch b {
	case BucketAvailable, BucketInEscrow, BucketInHold, BucketInReview:
		return true
	default:
		return false
	}
}

// Wallet holds one user's balances. Every bucket stays non-negative.
type Wallet struct {
	UserID    string          `json:"user_id"`
	Available decimal.Decimal `json:"available"`
	InEscrow  decimal.Decimal `json:"in_escrow"`
	InHold    decimal.Decimal `json:"in_hold"`
	InReview  decimal.Decimal `json:"in_review"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (w Wallet) Balance(b Bucket) decimal.Decimal {
	switch b {
	case BucketAvailable:
		return w.Available
	case BucketInEscrow:
		return w.InEscrow
	case BucketInHold:
		return w.InHold
	case BucketInReview:
		return w.InReview
	default:
		return decimal.Zero
	}
}

// Total is the sum of all buckets.
func (w Wallet) Total() decimal.Decimal {
	return w.Available.Add(w.InEscrow).Add(w.InHold).Add(w.InReview)
}

func (w *Wallet) set(b Bucket, v decimal.Decimal) {
	switch b {
	case BucketAvailable:
		w.Available = v
	case BucketInEscrow:
		w.InEscrow = v
	case BucketInHold:
		w.InHold = v
	case BucketInReview:
		w.InReview = v
	}
}

func (w *Wallet) Credit(b Bucket, amount decimal.Decimal, at time.Time) error {
	if !b.Valid() || amount.IsNegative() {
		return ErrInvalidInput
	}
	w.set(b, w.Balance(b).Add(amount))
	w.UpdatedAt = at
	return nil
}

func (w *Wallet) Debit(b Bucket, amount decimal.Decimal, at time.Time) error {
	if !b.Valid() || amount.IsNegative() {
		return ErrInvalidInput
	}
	if w.Balance(b).LessThan(amount) {
		return ErrInsufficientFunds
	}
	w.set(b, w.Balance(b).Sub(amount))
	w.UpdatedAt = at
	return nil
}

const (
	FundLockLocked   = "locked"
	FundLockReleased = "released"
	FundLockRefunded = "refunded"
)

// FundLock tracks where one agreement's locked money sits. The part not
// parked with the partner is in the funder's escrow bucket.
type FundLock struct {
	AgreementID    string          `json:"sala_id"`
	FunderID       string          `json:"funder_id"`
	PartnerID      string          `json:"partner_id"`
	Amount         decimal.Decimal `json:"amount"`
	PartnerPending decimal.Decimal `json:"partner_pending"`
	PartnerBucket  Bucket          `json:"partner_bucket,omitempty"`
	Status         string          `json:"status"`
	LockedAt       time.Time       `json:"locked_at"`
	ClosedAt       *time.Time      `json:"closed_at,omitempty"`
}

// Escrowed is the share still in the funder's escrow bucket.
func (l FundLock) Escrowed() decimal.Decimal {
	return l.Amount.Sub(l.PartnerPending)
}
