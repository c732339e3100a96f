package uowmock

import (
	"context"
	"errors"

	"investment-accrual/internal/domain/investment"
	"investment-accrual/internal/domain/uow"
	"investment-accrual/internal/domain/user"
)

// Ensure compile-time compliance
var _ uow.UnitOfWork = (*UoW)(nil)

var errUnimplemented = errors.New("uowmock: method not implemented")

// UoW is a function-backed mock that satisfies uow.UnitOfWork.
// Fill in the function fields you need in a test; unfilled ones return errUnimplemented.
type UoW struct {
	WithinTxFn           func(ctx context.Context, fn func(r uow.Repos) error) error
	WithinInvestmentTxFn func(ctx context.Context, userID string, investmentID uint64, fn func(r uow.Repos, u *user.User, inv *investment.Investment) error) error
}

// Passthrough runs every callback against repos with the given rows, the
// way a real transaction would after locking them.
func Passthrough(repos uow.Repos, u *user.User, inv *investment.Investment) *UoW {
	return &UoW{
		WithinTxFn: func(_ context.Context, fn func(uow.Repos) error) error {
			return fn(repos)
		},
		WithinInvestmentTxFn: func(_ context.Context, _ string, _ uint64, fn func(uow.Repos, *user.User, *investment.Investment) error) error {
			return fn(repos, u, inv)
		},
	}
}

func (m *UoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	if m.WithinTxFn != nil {
		return m.WithinTxFn(ctx, fn)
	}
	return errUnimplemented
}

func (m *UoW) WithinInvestmentTx(ctx context.Context, userID string, investmentID uint64, fn func(r uow.Repos, u *user.User, inv *investment.Investment) error) error {
	if m.WithinInvestmentTxFn != nil {
		return m.WithinInvestmentTxFn(ctx, userID, investmentID, fn)
	}
	return errUnimplemented
}
