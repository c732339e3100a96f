package gormrepo

import (
	"context"
	"errors"

	"investment-accrual/internal/domain/investment"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CompletedRepository struct{ db *gorm.DB }

func NewCompletedRepository(db *gorm.DB) *CompletedRepository {
	return &CompletedRepository{db: db}
}

func (r *CompletedRepository) Insert(ctx context.Context, c *investment.Completed) error {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(c)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return investment.ErrAlreadyCompleted
	}
	return nil
}

func (r *CompletedRepository) GetByInvestmentID(ctx context.Context, investmentID uint64) (*investment.Completed, error) {
	var out investment.Completed
	if err := r.db.WithContext(ctx).Where("investment_id = ?", investmentID).First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, investment.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}
