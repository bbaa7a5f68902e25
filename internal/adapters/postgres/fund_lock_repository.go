package postgres

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/viralforge/sala-escrow/internal/domain"
)

type fundLockRepository struct {
	db *gorm.DB
}

func (r *fundLockRepository) Create(ctx context.Context, l domain.FundLock) error {
	row := toFundLockModel(l)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyLocked
		}
		return err
	}
	return nil
}

func (r *fundLockRepository) GetForUpdate(ctx context.Context, agreementID string) (domain.FundLock, error) {
	var row fundLockModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("sala_id = ?", agreementID).
		Take(&row).Error; err != nil {
		return domain.FundLock{}, mapNotFound(err)
	}
	return fromFundLockModel(row), nil
}

func (r *fundLockRepository) Update(ctx context.Context, l domain.FundLock) error {
	row := toFundLockModel(l)
	res := r.db.WithContext(ctx).
		Model(&fundLockModel{}).
		Where("sala_id = ?", l.AgreementID).
		Updates(map[string]any{
			"partner_pending": row.PartnerPending,
			"partner_bucket":  row.PartnerBucket,
			"status":          row.Status,
			"closed_at":       row.ClosedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
