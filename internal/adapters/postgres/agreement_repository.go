package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/viralforge/sala-escrow/internal/domain"
)

type agreementRepository struct {
	db *gorm.DB
}

func (r *agreementRepository) Create(ctx context.Context, a domain.Agreement) error {
	row, err := toSalaModel(a)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *agreementRepository) Get(ctx context.Context, agreementID string) (domain.Agreement, error) {
	return r.take(r.db.WithContext(ctx), agreementID)
}

func (r *agreementRepository) GetForUpdate(ctx context.Context, agreementID string) (domain.Agreement, error) {
	return r.take(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), agreementID)
}

func (r *agreementRepository) take(q *gorm.DB, agreementID string) (domain.Agreement, error) {
	var row salaModel
	if err := q.Where("sala_id = ?", agreementID).Take(&row).Error; err != nil {
		return domain.Agreement{}, mapNotFound(err)
	}
	return fromSalaModel(row)
}

func (r *agreementRepository) Update(ctx context.Context, a domain.Agreement) error {
	row, err := toSalaModel(a)
	if err != nil {
		return err
	}
	res := r.db.WithContext(ctx).
		Model(&salaModel{}).
		Where("sala_id = ?", a.AgreementID).
		Updates(map[string]any{
			"state":      row.State,
			"hold_until": row.HoldUntil,
			"document":   row.Document,
			"updated_at": row.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *agreementRepository) ListByState(ctx context.Context, state string, limit int) ([]domain.Agreement, error) {
	return r.list(r.db.WithContext(ctx).Where("state = ?", state), limit)
}

func (r *agreementRepository) ListHoldsDue(ctx context.Context, now time.Time, limit int) ([]domain.Agreement, error) {
	return r.list(r.db.WithContext(ctx).Where("state = ? AND hold_until <= ?", domain.StateHold, now), limit)
}

func (r *agreementRepository) list(q *gorm.DB, limit int) ([]domain.Agreement, error) {
	q = q.Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []salaModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Agreement, 0, len(rows))
	for _, row := range rows {
		a, err := fromSalaModel(row)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
