package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	domain "investment-accrual/internal/domain/ledger"
	"investment-accrual/internal/domain/uow"
	"investment-accrual/internal/domain/user"
	"investment-accrual/pkg/clock"
	"investment-accrual/pkg/id"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Appender writes hash-chained ledger entries. Chains are scoped per user:
// previous_hash is the hash of the user's latest entry.
type Appender struct {
	clock clock.Clock
	uow   uow.UnitOfWork
}

func NewAppender(c clock.Clock, tx uow.UnitOfWork) *Appender {
	if c == nil {
		c = clock.Real{}
	}
	return &Appender{clock: c, uow: tx}
}

// Post applies change to u's running totals and appends the matching entry,
// all through the tx-bound repos. u must be row-locked by the caller.
func (a *Appender) Post(ctx context.Context, r uow.Repos, u *user.User, change Change) (*domain.Entry, error) {
	if u == nil || strings.TrimSpace(u.ID) == "" {
		return nil, fmt.Errorf("%w: missing user", domain.ErrInvalidEntry)
	}
	if !knownType(change.Type) {
		return nil, fmt.Errorf("%w: unknown entry type %q", domain.ErrInvalidEntry, change.Type)
	}

	balance := u.Balance.Add(change.AmountDelta)
	active := u.ActiveDeposits.Add(change.ActiveDepositsDelta)
	if active.IsNegative() {
		return nil, fmt.Errorf("%w: active deposits of %s would go negative", domain.ErrInvalidEntry, u.ID)
	}
	if err := r.Users.UpdateTotals(ctx, u.ID, balance, active); err != nil {
		return nil, err
	}
	u.Balance, u.ActiveDeposits = balance, active

	var meta datatypes.JSON
	if len(change.Metadata) > 0 {
		raw, err := json.Marshal(change.Metadata)
		if err != nil {
			return nil, fmt.Errorf("ledger metadata: %w", err)
		}
		meta = raw
	}

	e := &domain.Entry{
		ID:                  id.NewID32(),
		UserID:              u.ID,
		EntryType:           change.Type,
		ReferenceTable:      change.ReferenceTable,
		ReferenceID:         change.ReferenceID,
		AmountDelta:         change.AmountDelta,
		ActiveDepositsDelta: change.ActiveDepositsDelta,
		BalanceAfter:        balance,
		ActiveDepositsAfter: active,
		Metadata:            meta,
		CreatedAt:           domain.NormalizeTime(a.clock.Now()),
	}
	if err := a.append(ctx, r.Ledger, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (a *Appender) append(ctx context.Context, repo domain.Repository, e *domain.Entry) error {
	prev, err := repo.LastForUser(ctx, e.UserID)
	if err != nil {
		return err
	}
	e.PreviousHash = domain.GenesisHash
	if prev != nil {
		e.PreviousHash = prev.EntryHash
	}
	e.EntryHash, err = domain.ComputeHash(e.PreviousHash, e)
	if err != nil {
		return err
	}
	return repo.Append(ctx, e)
}

// Adjust records a manual deposit or withdrawal against a user's balance.
func (a *Appender) Adjust(ctx context.Context, in AdjustmentInput) (*EntryDTO, error) {
	if a.uow == nil {
		return nil, fmt.Errorf("%w: no unit of work", domain.ErrInvalidEntry)
	}
	if strings.TrimSpace(in.UserID) == "" || !in.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: user and positive amount required", domain.ErrInvalidEntry)
	}
	change := Change{
		ReferenceTable: "adjustments",
		ReferenceID:    in.Reference,
		Metadata:       map[string]any{"note": in.Note},
	}
	switch domain.EntryType(in.Type) {
	case domain.EntryDeposit:
		change.Type = domain.EntryDeposit
		change.AmountDelta = in.Amount
	case domain.EntryWithdrawal:
		change.Type = domain.EntryWithdrawal
		change.AmountDelta = in.Amount.Neg()
	default:
		return nil, fmt.Errorf("%w: adjustment type must be deposit or withdrawal", domain.ErrInvalidEntry)
	}

	var out *EntryDTO
	err := a.uow.WithinTx(ctx, func(r uow.Repos) error {
		u, err := r.Users.GetByIDForUpdate(ctx, in.UserID)
		if err != nil {
			return err
		}
		if change.Type == domain.EntryWithdrawal && u.Balance.LessThan(in.Amount) {
			return user.ErrInsufficientFunds
		}
		e, err := a.Post(ctx, r, u, change)
		if err != nil {
			return err
		}
		out = toDTO(e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func knownType(t domain.EntryType) bool {
	switch t {
	case domain.EntryDeposit, domain.EntryWithdrawal, domain.EntryReturnApplied, domain.EntryPrincipalUnlocked:
		return true
	}
	return false
}

func (a *Appender) Deposit(ctx context.Context, userID string, amount decimal.Decimal, reference string) (*EntryDTO, error) {
	return a.Adjust(ctx, AdjustmentInput{UserID: userID, Type: string(domain.EntryDeposit), Amount: amount, Reference: reference})
}

func (a *Appender) Withdrawal(ctx context.Context, userID string, amount decimal.Decimal, reference string) (*EntryDTO, error) {
	return a.Adjust(ctx, AdjustmentInput{UserID: userID, Type: string(domain.EntryWithdrawal), Amount: amount, Reference: reference})
}
