package accrual

import (
	"context"
	"fmt"
	"strconv"

	"investment-accrual/internal/domain/investment"
	domainLedger "investment-accrual/internal/domain/ledger"
	"investment-accrual/internal/domain/uow"
	"investment-accrual/internal/domain/user"
	ledgeruc "investment-accrual/internal/usecase/ledger"
	"investment-accrual/pkg/clock"
)

// Migrator moves a matured investment out of the active set and releases
// its principal. It runs inside the caller's transaction.
type Migrator struct {
	appender *ledgeruc.Appender
	clock    clock.Clock
}

func NewMigrator(a *ledgeruc.Appender, c clock.Clock) *Migrator {
	if c == nil {
		c = clock.Real{}
	}
	return &Migrator{appender: a, clock: c}
}

// Complete requires u and inv to be row-locked in r's transaction.
func (m *Migrator) Complete(ctx context.Context, r uow.Repos, u *user.User, inv *investment.Investment) (*investment.Completed, error) {
	if inv.Status != investment.StatusActive {
		return nil, investment.ErrAlreadyCompleted
	}
	at := m.clock.Now().UTC()

	c := investment.NewCompleted(inv, at)
	if err := r.Completed.Insert(ctx, c); err != nil {
		return nil, err
	}
	// one-way guard: fails unless the row is still active
	if err := r.Investments.MarkCompleted(ctx, inv.ID, at); err != nil {
		return nil, err
	}
	inv.Status = investment.StatusCompleted
	inv.CompletedAt = &at

	_, err := m.appender.Post(ctx, r, u, ledgeruc.Change{
		Type:                domainLedger.EntryPrincipalUnlocked,
		ReferenceTable:      "completed_investments",
		ReferenceID:         strconv.FormatUint(inv.ID, 10),
		AmountDelta:         inv.PrincipalAmount,
		ActiveDepositsDelta: inv.PrincipalAmount.Neg(),
		Metadata: map[string]any{
			"investment_id":  inv.ID,
			"transaction_id": inv.TransactionID,
			"plan_name":      inv.PlanName,
			"total_earned":   inv.TotalEarned.StringFixed(2),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("unlock principal of investment %d: %w", inv.ID, err)
	}
	return c, nil
}
