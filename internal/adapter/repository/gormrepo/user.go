package gormrepo

import (
	"context"
	"errors"
	"time"

	"investment-accrual/internal/domain/user"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) *UserRepository { return &UserRepository{db: db} }

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	return r.get(r.db.WithContext(ctx), id)
}

func (r *UserRepository) GetByIDForUpdate(ctx context.Context, id string) (*user.User, error) {
	return r.get(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *UserRepository) get(db *gorm.DB, id string) (*user.User, error) {
	var out user.User
	if err := db.Where("id = ?", id).First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

func (r *UserRepository) UpdateTotals(ctx context.Context, id string, balance, activeDeposits decimal.Decimal) error {
	res := r.db.WithContext(ctx).
		Model(&user.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"balance":         balance,
			"active_deposits": activeDeposits,
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return user.ErrNotFound
	}
	return nil
}
