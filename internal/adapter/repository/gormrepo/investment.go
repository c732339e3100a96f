package gormrepo

import (
	"context"
	"errors"
	"time"

	"investment-accrual/internal/domain/investment"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InvestmentRepository struct{ db *gorm.DB }

func NewInvestmentRepository(db *gorm.DB) *InvestmentRepository {
	return &InvestmentRepository{db: db}
}

func (r *InvestmentRepository) Create(ctx context.Context, inv *investment.Investment) error {
	return r.db.WithContext(ctx).Create(inv).Error
}

func (r *InvestmentRepository) ListDue(ctx context.Context, day time.Time, afterID uint64, limit int) ([]investment.Investment, error) {
	var out []investment.Investment
	err := r.db.WithContext(ctx).
		Where("status = ? AND (last_return_applied IS NULL OR last_return_applied < ?) AND id > ?",
			investment.StatusActive, day.UTC(), afterID).
		Order("id ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *InvestmentRepository) ListActive(ctx context.Context) ([]investment.Investment, error) {
	var out []investment.Investment
	err := r.db.WithContext(ctx).
		Where("status = ?", investment.StatusActive).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

func (r *InvestmentRepository) ListByIDs(ctx context.Context, ids []uint64) ([]investment.Investment, error) {
	var out []investment.Investment
	if len(ids) == 0 {
		return out, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&out).Error
	return out, err
}

func (r *InvestmentRepository) GetByID(ctx context.Context, id uint64) (*investment.Investment, error) {
	return r.get(r.db.WithContext(ctx), id)
}

func (r *InvestmentRepository) GetByIDForUpdate(ctx context.Context, id uint64) (*investment.Investment, error) {
	return r.get(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *InvestmentRepository) get(db *gorm.DB, id uint64) (*investment.Investment, error) {
	var out investment.Investment
	if err := db.Where("id = ?", id).First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, investment.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

func (r *InvestmentRepository) SaveProgress(ctx context.Context, inv *investment.Investment) error {
	return r.db.WithContext(ctx).
		Model(&investment.Investment{}).
		Where("id = ?", inv.ID).
		Updates(map[string]any{
			"days_elapsed":        inv.DaysElapsed,
			"total_earned":        inv.TotalEarned,
			"last_return_applied": inv.LastReturnApplied,
			"updated_at":          time.Now().UTC(),
		}).Error
}

func (r *InvestmentRepository) MarkCompleted(ctx context.Context, id uint64, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&investment.Investment{}).
		Where("id = ? AND status = ?", id, investment.StatusActive).
		Updates(map[string]any{
			"status":       investment.StatusCompleted,
			"completed_at": at.UTC(),
			"updated_at":   time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return investment.ErrAlreadyCompleted
	}
	return nil
}
