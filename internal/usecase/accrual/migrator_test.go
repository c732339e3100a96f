package accrual

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"investment-accrual/internal/domain/investment"
	domainLedger "investment-accrual/internal/domain/ledger"
	"investment-accrual/internal/domain/uow"
	"investment-accrual/internal/domain/user"
	"investment-accrual/internal/testutil/investmentmock"
	"investment-accrual/internal/testutil/ledgermock"
	"investment-accrual/internal/testutil/usermock"
	ledgeruc "investment-accrual/internal/usecase/ledger"
	"investment-accrual/pkg/clock"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type migratorFixture struct {
	repos     uow.Repos
	ledger    *ledgermock.Memory
	completed []*investment.Completed
	marked    []uint64
}

func newMigratorFixture() *migratorFixture {
	f := &migratorFixture{ledger: &ledgermock.Memory{}}
	f.repos = uow.Repos{
		Investments: &investmentmock.Repo{MarkCompletedFn: func(_ context.Context, id uint64, _ time.Time) error {
			f.marked = append(f.marked, id)
			return nil
		}},
		Completed: &investmentmock.CompletedRepo{InsertFn: func(_ context.Context, c *investment.Completed) error {
			f.completed = append(f.completed, c)
			return nil
		}},
		Users:  &usermock.Repo{},
		Ledger: f.ledger,
	}
	return f
}

func matured() *investment.Investment {
	inv := baseInvestment()
	inv.DaysElapsed = inv.PlanDuration
	inv.TotalEarned = inv.TotalReturn
	return inv
}

func TestMigrator_CompleteUnlocksPrincipal(t *testing.T) {
	now := time.Date(2025, 10, 2, 0, 5, 0, 0, time.UTC)
	c := clock.NewFake(now)
	m := NewMigrator(ledgeruc.NewAppender(c, nil), c)
	f := newMigratorFixture()

	inv := matured()
	u := &user.User{ID: inv.UserID, Balance: d("25.00"), ActiveDeposits: inv.PrincipalAmount}

	done, err := m.Complete(context.Background(), f.repos, u, inv)
	require.NoError(t, err)

	assert.Equal(t, investment.StatusCompleted, inv.Status)
	require.NotNil(t, inv.CompletedAt)
	assert.True(t, inv.CompletedAt.Equal(now))
	assert.Equal(t, []uint64{inv.ID}, f.marked)
	require.Len(t, f.completed, 1)
	assert.Equal(t, done, f.completed[0])
	assert.True(t, done.TotalEarned.Equal(inv.TotalReturn))

	assert.True(t, u.Balance.Equal(d("25.00").Add(inv.PrincipalAmount)))
	assert.True(t, u.ActiveDeposits.Equal(decimal.Zero))

	require.Len(t, f.ledger.Entries, 1)
	e := f.ledger.Entries[0]
	assert.Equal(t, domainLedger.EntryPrincipalUnlocked, e.EntryType)
	assert.Equal(t, "completed_investments", e.ReferenceTable)
	assert.True(t, e.ActiveDepositsDelta.Equal(inv.PrincipalAmount.Neg()))
	assert.Equal(t, domainLedger.GenesisHash, e.PreviousHash)

	var meta map[string]any
	require.NoError(t, json.Unmarshal(e.Metadata, &meta))
	assert.Equal(t, inv.TransactionID, meta["transaction_id"])
}

func TestMigrator_CompleteGuards(t *testing.T) {
	c := clock.NewFake(time.Date(2025, 10, 2, 0, 5, 0, 0, time.UTC))
	m := NewMigrator(ledgeruc.NewAppender(c, nil), c)

	t.Run("not active", func(t *testing.T) {
		f := newMigratorFixture()
		inv := matured()
		inv.Status = investment.StatusCompleted
		_, err := m.Complete(context.Background(), f.repos, &user.User{ID: inv.UserID}, inv)
		assert.ErrorIs(t, err, investment.ErrAlreadyCompleted)
		assert.Empty(t, f.completed)
	})

	t.Run("archive row exists", func(t *testing.T) {
		f := newMigratorFixture()
		f.repos.Completed = &investmentmock.CompletedRepo{InsertFn: func(context.Context, *investment.Completed) error {
			return investment.ErrAlreadyCompleted
		}}
		inv := matured()
		_, err := m.Complete(context.Background(), f.repos, &user.User{ID: inv.UserID}, inv)
		assert.ErrorIs(t, err, investment.ErrAlreadyCompleted)
		assert.Empty(t, f.marked)
		assert.Equal(t, investment.StatusActive, inv.Status)
	})

	t.Run("ledger append fails", func(t *testing.T) {
		f := newMigratorFixture()
		f.ledger.AppendErr = errors.New("disk full")
		inv := matured()
		u := &user.User{ID: inv.UserID, ActiveDeposits: inv.PrincipalAmount}
		_, err := m.Complete(context.Background(), f.repos, u, inv)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unlock principal")
	})
}
