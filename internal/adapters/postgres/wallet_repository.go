package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/viralforge/sala-escrow/internal/domain"
)

type walletRepository struct {
	db *gorm.DB
}

func (r *walletRepository) Get(ctx context.Context, userID string) (domain.Wallet, error) {
	var row walletModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Wallet{UserID: userID}, nil
		}
		return domain.Wallet{}, err
	}
	return fromWalletModel(row), nil
}

// Credit upserts the wallet and adds to one bucket in a single statement.
func (r *walletRepository) Credit(ctx context.Context, userID string, bucket domain.Bucket, amount decimal.Decimal, at time.Time) error {
	if !bucket.Valid() || amount.IsNegative() {
		return domain.ErrInvalidInput
	}
	col := string(bucket)
	row := walletModel{UserID: userID, UpdatedAt: at}
	switch bucket {
	case domain.BucketAvailable:
		row.Available = amount
	case domain.BucketInEscrow:
		row.InEscrow = amount
	case domain.BucketInHold:
		row.InHold = amount
	case domain.BucketInReview:
		row.InReview = amount
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			col:          gorm.Expr("wallets." + col + " + EXCLUDED." + col),
			"updated_at": at,
		}),
	}).Create(&row).Error
}

// Debit subtracts only when the bucket covers the amount, so concurrent
// debits can never take a balance below zero.
func (r *walletRepository) Debit(ctx context.Context, userID string, bucket domain.Bucket, amount decimal.Decimal, at time.Time) error {
	if !bucket.Valid() || amount.IsNegative() {
		return domain.ErrInvalidInput
	}
	if amount.IsZero() {
		return nil
	}
	col := string(bucket)
	res := r.db.WithContext(ctx).
		Model(&walletModel{}).
		Where("user_id = ? AND "+col+" >= ?", userID, amount).
		Updates(map[string]any{
			col:          gorm.Expr(col+" - ?", amount),
			"updated_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrInsufficientFunds
	}
	return nil
}
