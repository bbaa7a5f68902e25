package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/viralforge/sala-escrow/internal/ports"
)

// Store is the Postgres unit of work. Repositories bound inside WithinTx
// share one transaction; the ones from Repositories run on the pool.
type Store struct {
	db          *gorm.DB
	Idempotency ports.IdempotencyRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, Idempotency: &idempotencyRepository{db: db}}
}

func (s *Store) Repositories() ports.Repositories {
	return bind(s.db)
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos ports.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, bind(tx))
	})
}

// Ping backs the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func bind(db *gorm.DB) ports.Repositories {
	return ports.Repositories{
		Agreements: &agreementRepository{db: db},
		Wallets:    &walletRepository{db: db},
		FundLocks:  &fundLockRepository{db: db},
		Outbox:     &outboxRepository{db: db},
	}
}
