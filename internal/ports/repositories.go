package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/viralforge/sala-escrow/internal/domain"
)

type AgreementRepository interface {
	Create(ctx context.Context, row domain.Agreement) error
	Get(ctx context.Context, agreementID string) (domain.Agreement, error)
	// GetForUpdate reads the agreement and holds its row until the unit of
	// work ends.
	GetForUpdate(ctx context.Context, agreementID string) (domain.Agreement, error)
	Update(ctx context.Context, row domain.Agreement) error
	ListByState(ctx context.Context, state string, limit int) ([]domain.Agreement, error)
	ListHoldsDue(ctx context.Context, now time.Time, limit int) ([]domain.Agreement, error)
}

type WalletRepository interface {
	// Get returns a zero wallet for users that never held money.
	Get(ctx context.Context, userID string) (domain.Wallet, error)
	Credit(ctx context.Context, userID string, bucket domain.Bucket, amount decimal.Decimal, at time.Time) error
	// Debit fails with domain.ErrInsufficientFunds instead of going negative.
	Debit(ctx context.Context, userID string, bucket domain.Bucket, amount decimal.Decimal, at time.Time) error
}

type FundLockRepository interface {
	// Create fails with domain.ErrAlreadyLocked when the agreement already
	// has a lock.
	Create(ctx context.Context, row domain.FundLock) error
	GetForUpdate(ctx context.Context, agreementID string) (domain.FundLock, error)
	Update(ctx context.Context, row domain.FundLock) error
}

type IdempotencyRecord struct {
	Key          string
	RequestHash  string
	ResponseCode int
	ResponseBody []byte
	ExpiresAt    time.Time
}

type IdempotencyRepository interface {
	Get(ctx context.Context, key string, now time.Time) (*IdempotencyRecord, error)
	Reserve(ctx context.Context, key, requestHash string, expiresAt time.Time) error
	Complete(ctx context.Context, key string, responseCode int, responseBody []byte, at time.Time) error
	Release(ctx context.Context, key string) error
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, record OutboxRecord) error
	ListPending(ctx context.Context, limit int) ([]OutboxRecord, error)
	MarkSent(ctx context.Context, recordID string, at time.Time) error
	MarkFailed(ctx context.Context, recordID, errMsg string, at time.Time) error
}

// Repositories is the set of stores one unit of work writes through.
type Repositories struct {
	Agreements AgreementRepository
	Wallets    WalletRepository
	FundLocks  FundLockRepository
	Outbox     OutboxRepository
}

// UnitOfWork runs fn atomically: either every write inside it is kept or
// none is.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
