package user

import (
	"context"

	"github.com/shopspring/decimal"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	// GetByIDForUpdate row-locks the user within the current tx.
	GetByIDForUpdate(ctx context.Context, id string) (*User, error)
	UpdateTotals(ctx context.Context, id string, balance, activeDeposits decimal.Decimal) error
	Create(ctx context.Context, u *User) error
}
