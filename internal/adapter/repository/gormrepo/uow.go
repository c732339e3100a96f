package gormrepo

import (
	"context"
	"fmt"

	"investment-accrual/internal/domain/investment"
	"investment-accrual/internal/domain/uow"
	"investment-accrual/internal/domain/user"

	"gorm.io/gorm"
)

type GormUoW struct{ db *gorm.DB }

func NewGormUoW(db *gorm.DB) *GormUoW { return &GormUoW{db: db} }

func reposFor(tx *gorm.DB) uow.Repos {
	return uow.Repos{
		Investments: &InvestmentRepository{db: tx},
		Returns:     &ReturnRepository{db: tx},
		Completed:   &CompletedRepository{db: tx},
		Users:       &UserRepository{db: tx},
		Ledger:      &LedgerRepository{db: tx},
	}
}

func (u *GormUoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(reposFor(tx))
	})
}

func (u *GormUoW) WithinInvestmentTx(ctx context.Context, userID string, investmentID uint64, fn func(r uow.Repos, usr *user.User, inv *investment.Investment) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := reposFor(tx)
		// user first, then investment: every writer takes locks in this order
		usr, err := r.Users.GetByIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		inv, err := r.Investments.GetByIDForUpdate(ctx, investmentID)
		if err != nil {
			return err
		}
		if inv.UserID != usr.ID {
			return fmt.Errorf("%w: investment %d belongs to %s, not %s", investment.ErrInvalidInvestment, inv.ID, inv.UserID, usr.ID)
		}
		return fn(r, usr, inv)
	})
}

// Ping checks the underlying connection pool.
func (u *GormUoW) Ping(ctx context.Context) error {
	sqlDB, err := u.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
