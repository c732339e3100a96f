package uow

import (
	"context"

	"investment-accrual/internal/domain/investment"
	"investment-accrual/internal/domain/ledger"
	"investment-accrual/internal/domain/user"
)

// Repos are bound to one transaction.
type Repos struct {
	Investments investment.Repository
	Returns     investment.ReturnRepository
	Completed   investment.CompletedRepository
	Users       user.Repository
	Ledger      ledger.Repository
}

type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// lock the user row, then the investment row, and pass both in
	WithinInvestmentTx(ctx context.Context, userID string, investmentID uint64, fn func(r Repos, u *user.User, inv *investment.Investment) error) error
}
