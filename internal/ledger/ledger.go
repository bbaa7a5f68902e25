// Package ledger moves money between wallet buckets for escrowed agreements.
//
// The ledger keeps no state of its own. Every call receives the repositories
// of the caller's unit of work, so a failed step rolls back together with the
// agreement change that triggered it.
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/viralforge/sala-escrow/internal/domain"
	"github.com/viralforge/sala-escrow/internal/ports"
	"github.com/viralforge/sala-escrow/pkg/feesplit"
)

const DefaultPlatformAccountID = "platform"

type EscrowLedger struct {
	platformAccountID string
}

func New(platformAccountID string) *EscrowLedger {
	platformAccountID = strings.TrimSpace(platformAccountID)
	if platformAccountID == "" {
		platformAccountID = DefaultPlatformAccountID
	}
	return &EscrowLedger{platformAccountID: platformAccountID}
}

func (l *EscrowLedger) PlatformAccountID() string { return l.platformAccountID }

// Lock moves amount from the funder's available balance into escrow.
func (l *EscrowLedger) Lock(ctx context.Context, repos ports.Repositories, agreementID, funderID, partnerID string, amount decimal.Decimal, at time.Time) (domain.FundLock, error) {
	if err := feesplit.ValidateAmount(amount); err != nil {
		return domain.FundLock{}, err
	}
	lock := domain.FundLock{
		AgreementID:    agreementID,
		FunderID:       funderID,
		PartnerID:      partnerID,
		Amount:         amount,
		PartnerPending: decimal.Zero,
		Status:         domain.FundLockLocked,
		LockedAt:       at,
	}
	if err := repos.FundLocks.Create(ctx, lock); err != nil {
		return domain.FundLock{}, err
	}
	if err := l.move(ctx, repos, funderID, domain.BucketAvailable, funderID, domain.BucketInEscrow, amount, at); err != nil {
		return domain.FundLock{}, err
	}
	return lock, nil
}

// MoveToReview parks the partner's share in their review bucket while a
// person looks at the evidence. Calling it again is a no-op.
func (l *EscrowLedger) MoveToReview(ctx context.Context, repos ports.Repositories, agreementID string, amount decimal.Decimal, at time.Time) (domain.FundLock, error) {
	lock, err := l.openLock(ctx, repos, agreementID)
	if err != nil {
		return domain.FundLock{}, err
	}
	switch lock.PartnerBucket {
	case domain.BucketInReview:
		return lock, nil
	case domain.BucketInHold:
		return domain.FundLock{}, domain.ErrAlreadyReleased
	}
	if err := l.checkPartnerAmount(lock, amount); err != nil {
		return domain.FundLock{}, err
	}
	if err := l.move(ctx, repos, lock.FunderID, domain.BucketInEscrow, lock.PartnerID, domain.BucketInReview, amount, at); err != nil {
		return domain.FundLock{}, err
	}
	lock.PartnerPending = amount
	lock.PartnerBucket = domain.BucketInReview
	return lock, repos.FundLocks.Update(ctx, lock)
}

// MoveToHold hands the partner's share to their hold bucket. It may happen
// once per agreement.
func (l *EscrowLedger) MoveToHold(ctx context.Context, repos ports.Repositories, agreementID string, amount decimal.Decimal, at time.Time) (domain.FundLock, error) {
	lock, err := l.openLock(ctx, repos, agreementID)
	if err != nil {
		return domain.FundLock{}, err
	}
	switch lock.PartnerBucket {
	case domain.BucketInHold:
		return domain.FundLock{}, domain.ErrAlreadyReleased
	case domain.BucketInReview:
		if !amount.Equal(lock.PartnerPending) {
			return domain.FundLock{}, domain.ErrInvalidAmount
		}
		err = l.move(ctx, repos, lock.PartnerID, domain.BucketInReview, lock.PartnerID, domain.BucketInHold, amount, at)
	default:
		if err := l.checkPartnerAmount(lock, amount); err != nil {
			return domain.FundLock{}, err
		}
		err = l.move(ctx, repos, lock.FunderID, domain.BucketInEscrow, lock.PartnerID, domain.BucketInHold, amount, at)
	}
	if err != nil {
		return domain.FundLock{}, err
	}
	lock.PartnerPending = amount
	lock.PartnerBucket = domain.BucketInHold
	return lock, repos.FundLocks.Update(ctx, lock)
}

// Release settles the agreement: the fee goes to the platform, the gain to
// the partner and the remainder back to the funder. At most once.
func (l *EscrowLedger) Release(ctx context.Context, repos ports.Repositories, agreementID string, split feesplit.Split, at time.Time) (domain.FundLock, error) {
	lock, err := l.openLock(ctx, repos, agreementID)
	if err != nil {
		return domain.FundLock{}, err
	}
	if !split.Sum().Equal(lock.Amount) || split.PlatformFee.IsNegative() || split.PartnerGain.IsNegative() || split.NetToFunder.IsNegative() {
		return domain.FundLock{}, fmt.Errorf("%w: split %s does not match locked %s", domain.ErrInvalidAmount, split.Sum(), lock.Amount)
	}
	if err := l.drain(ctx, repos, lock, at); err != nil {
		return domain.FundLock{}, err
	}
	if err := repos.Wallets.Credit(ctx, l.platformAccountID, domain.BucketAvailable, split.PlatformFee, at); err != nil {
		return domain.FundLock{}, err
	}
	if err := repos.Wallets.Credit(ctx, lock.PartnerID, domain.BucketAvailable, split.PartnerGain, at); err != nil {
		return domain.FundLock{}, err
	}
	if err := repos.Wallets.Credit(ctx, lock.FunderID, domain.BucketAvailable, split.NetToFunder, at); err != nil {
		return domain.FundLock{}, err
	}
	return l.close(ctx, repos, lock, domain.FundLockReleased, at)
}

// Refund returns the whole locked amount to the funder.
func (l *EscrowLedger) Refund(ctx context.Context, repos ports.Repositories, agreementID string, at time.Time) (domain.FundLock, error) {
	lock, err := l.openLock(ctx, repos, agreementID)
	if err != nil {
		return domain.FundLock{}, err
	}
	if err := l.drain(ctx, repos, lock, at); err != nil {
		return domain.FundLock{}, err
	}
	if err := repos.Wallets.Credit(ctx, lock.FunderID, domain.BucketAvailable, lock.Amount, at); err != nil {
		return domain.FundLock{}, err
	}
	return l.close(ctx, repos, lock, domain.FundLockRefunded, at)
}

// Deposit credits a settled payment into the user's available balance.
func (l *EscrowLedger) Deposit(ctx context.Context, repos ports.Repositories, userID string, amount decimal.Decimal, at time.Time) error {
	if err := feesplit.ValidateAmount(amount); err != nil {
		return err
	}
	return repos.Wallets.Credit(ctx, userID, domain.BucketAvailable, amount, at)
}

// Withdraw debits the user's available balance for a payout.
func (l *EscrowLedger) Withdraw(ctx context.Context, repos ports.Repositories, userID string, amount decimal.Decimal, at time.Time) error {
	if err := feesplit.ValidateAmount(amount); err != nil {
		return err
	}
	return repos.Wallets.Debit(ctx, userID, domain.BucketAvailable, amount, at)
}

func (l *EscrowLedger) openLock(ctx context.Context, repos ports.Repositories, agreementID string) (domain.FundLock, error) {
	lock, err := repos.FundLocks.GetForUpdate(ctx, agreementID)
	if err != nil {
		return domain.FundLock{}, err
	}
	if lock.Status != domain.FundLockLocked {
		return domain.FundLock{}, domain.ErrAlreadyReleased
	}
	return lock, nil
}

func (l *EscrowLedger) checkPartnerAmount(lock domain.FundLock, amount decimal.Decimal) error {
	if amount.IsNegative() || amount.GreaterThan(lock.Escrowed()) {
		return domain.ErrInvalidAmount
	}
	return nil
}

// drain takes the locked amount out of the escrow and partner buckets.
func (l *EscrowLedger) drain(ctx context.Context, repos ports.Repositories, lock domain.FundLock, at time.Time) error {
	if lock.PartnerPending.IsPositive() {
		if err := repos.Wallets.Debit(ctx, lock.PartnerID, lock.PartnerBucket, lock.PartnerPending, at); err != nil {
			return err
		}
	}
	if !lock.Escrowed().IsPositive() {
		return nil
	}
	return repos.Wallets.Debit(ctx, lock.FunderID, domain.BucketInEscrow, lock.Escrowed(), at)
}

func (l *EscrowLedger) close(ctx context.Context, repos ports.Repositories, lock domain.FundLock, status string, at time.Time) (domain.FundLock, error) {
	lock.Status = status
	lock.PartnerPending = decimal.Zero
	lock.PartnerBucket = ""
	lock.ClosedAt = &at
	if err := repos.FundLocks.Update(ctx, lock); err != nil {
		return domain.FundLock{}, err
	}
	return lock, nil
}

func (l *EscrowLedger) move(ctx context.Context, repos ports.Repositories, fromUser string, from domain.Bucket, toUser string, to domain.Bucket, amount decimal.Decimal, at time.Time) error {
	if amount.IsZero() {
		return nil
	}
	if err := repos.Wallets.Debit(ctx, fromUser, from, amount, at); err != nil {
		return err
	}
	return repos.Wallets.Credit(ctx, toUser, to, amount, at)
}
