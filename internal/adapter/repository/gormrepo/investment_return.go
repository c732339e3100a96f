package gormrepo

import (
	"context"
	"time"

	"investment-accrual/internal/domain/investment"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReturnRepository struct{ db *gorm.DB }

func NewReturnRepository(db *gorm.DB) *ReturnRepository { return &ReturnRepository{db: db} }

// Insert relies on the (investment_id, return_date) unique index; a
// conflicting insert affects no rows.
func (r *ReturnRepository) Insert(ctx context.Context, ret *investment.Return) error {
	ret.ReturnDate = ret.ReturnDate.UTC()
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(ret)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return investment.ErrReturnAlreadyApplied
	}
	return nil
}

func (r *ReturnRepository) ListByDate(ctx context.Context, day time.Time) ([]investment.Return, error) {
	var out []investment.Return
	err := r.db.WithContext(ctx).
		Where("return_date = ?", day.UTC()).
		Order("investment_id ASC").
		Find(&out).Error
	return out, err
}

func (r *ReturnRepository) ListByInvestment(ctx context.Context, investmentID uint64) ([]investment.Return, error) {
	var out []investment.Return
	err := r.db.WithContext(ctx).
		Where("investment_id = ?", investmentID).
		Order("return_date ASC").
		Find(&out).Error
	return out, err
}
