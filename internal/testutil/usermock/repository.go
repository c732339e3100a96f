package usermock

import (
	"context"

	domain "investment-accrual/internal/domain/user"

	"github.com/shopspring/decimal"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
type Repo struct {
	GetByIDFn          func(ctx context.Context, id string) (*domain.User, error)
	GetByIDForUpdateFn func(ctx context.Context, id string) (*domain.User, error)
	UpdateTotalsFn     func(ctx context.Context, id string, balance, activeDeposits decimal.Decimal) error
	CreateFn           func(ctx context.Context, u *domain.User) error
}

func (m *Repo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, context.Canceled
}

func (m *Repo) GetByIDForUpdate(ctx context.Context, id string) (*domain.User, error) {
	if m.GetByIDForUpdateFn != nil {
		return m.GetByIDForUpdateFn(ctx, id)
	}
	return nil, context.Canceled
}

func (m *Repo) UpdateTotals(ctx context.Context, id string, balance, activeDeposits decimal.Decimal) error {
	if m.UpdateTotalsFn != nil {
		return m.UpdateTotalsFn(ctx, id, balance, activeDeposits)
	}
	return nil
}

func (m *Repo) Create(ctx context.Context, u *domain.User) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, u)
	}
	return nil
}
