package ledger

import (
	"context"
	"testing"
	"time"

	domain "investment-accrual/internal/domain/ledger"
	"investment-accrual/internal/domain/uow"
	"investment-accrual/internal/domain/user"
	"investment-accrual/internal/testutil/ledgermock"
	"investment-accrual/internal/testutil/uowmock"
	"investment-accrual/internal/testutil/usermock"
	"investment-accrual/pkg/clock"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 10, 1, 0, 5, 0, 123456789, time.UTC)

type fixture struct {
	users  *usermock.Repo
	ledger *ledgermock.Memory
	repos  uow.Repos
	totals map[string][2]decimal.Decimal
}

func newFixture() *fixture {
	f := &fixture{ledger: &ledgermock.Memory{}, totals: map[string][2]decimal.Decimal{}}
	f.users = &usermock.Repo{
		UpdateTotalsFn: func(_ context.Context, id string, balance, active decimal.Decimal) error {
			f.totals[id] = [2]decimal.Decimal{balance, active}
			return nil
		},
	}
	f.repos = uow.Repos{Users: f.users, Ledger: f.ledger}
	return f
}

func TestAppender_PostChainsPerUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	a := NewAppender(clock.NewFake(t0), nil)

	alice := &user.User{ID: "alice", Balance: decimal.NewFromInt(100), ActiveDeposits: decimal.NewFromInt(1000)}
	bob := &user.User{ID: "bob"}

	e1, err := a.Post(ctx, f.repos, alice, Change{Type: domain.EntryReturnApplied, AmountDelta: decimal.NewFromInt(10)})
	require.NoError(t, err)
	e2, err := a.Post(ctx, f.repos, bob, Change{Type: domain.EntryDeposit, AmountDelta: decimal.NewFromInt(5)})
	require.NoError(t, err)
	e3, err := a.Post(ctx, f.repos, alice, Change{
		Type:                domain.EntryPrincipalUnlocked,
		AmountDelta:         decimal.NewFromInt(1000),
		ActiveDepositsDelta: decimal.NewFromInt(-1000),
		Metadata:            map[string]any{"investment_id": 42},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.GenesisHash, e1.PreviousHash)
	assert.Equal(t, domain.GenesisHash, e2.PreviousHash, "bob starts his own chain")
	assert.Equal(t, e1.EntryHash, e3.PreviousHash)
	assert.Len(t, e1.ID, 32)

	assert.True(t, e3.BalanceAfter.Equal(decimal.NewFromInt(1110)), e3.BalanceAfter.String())
	assert.True(t, e3.ActiveDepositsAfter.IsZero())
	assert.True(t, alice.Balance.Equal(decimal.NewFromInt(1110)), "caller's user tracks the new totals")
	assert.True(t, f.totals["alice"][0].Equal(decimal.NewFromInt(1110)))
	assert.Equal(t, t0.Truncate(time.Microsecond), e1.CreatedAt)

	rep, err := NewVerifier(f.ledger).VerifyUser(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, rep.OK)
	assert.Equal(t, 2, rep.Checked)
}

func TestAppender_PostRejects(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	a := NewAppender(clock.NewFake(t0), nil)

	_, err := a.Post(ctx, f.repos, &user.User{ID: "u"}, Change{Type: "bonus"})
	assert.ErrorIs(t, err, domain.ErrInvalidEntry)

	_, err = a.Post(ctx, f.repos, &user.User{ID: "u", ActiveDeposits: decimal.NewFromInt(10)},
		Change{Type: domain.EntryPrincipalUnlocked, ActiveDepositsDelta: decimal.NewFromInt(-20)})
	assert.ErrorIs(t, err, domain.ErrInvalidEntry)

	_, err = a.Post(ctx, f.repos, nil, Change{Type: domain.EntryDeposit})
	assert.ErrorIs(t, err, domain.ErrInvalidEntry)

	assert.Empty(t, f.ledger.Entries)
	assert.Empty(t, f.totals)
}

func TestAppender_Adjust(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		in      AdjustmentInput
		balance int64
		wantErr error
		want    int64
	}{
		{name: "deposit", in: AdjustmentInput{UserID: "u1", Type: "deposit", Amount: decimal.NewFromInt(50)}, balance: 10, want: 60},
		{name: "withdrawal", in: AdjustmentInput{UserID: "u1", Type: "withdrawal", Amount: decimal.NewFromInt(10)}, balance: 10, want: 0},
		{name: "overdraw", in: AdjustmentInput{UserID: "u1", Type: "withdrawal", Amount: decimal.NewFromInt(11)}, balance: 10, wantErr: user.ErrInsufficientFunds},
		{name: "unknown type", in: AdjustmentInput{UserID: "u1", Type: "return_applied", Amount: decimal.NewFromInt(1)}, wantErr: domain.ErrInvalidEntry},
		{name: "zero amount", in: AdjustmentInput{UserID: "u1", Type: "deposit"}, wantErr: domain.ErrInvalidEntry},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			f.users.GetByIDForUpdateFn = func(_ context.Context, id string) (*user.User, error) {
				return &user.User{ID: id, Balance: decimal.NewFromInt(tc.balance)}, nil
			}
			tx := uowmock.Passthrough(f.repos, nil, nil)
			a := NewAppender(clock.NewFake(t0), tx)

			dto, err := a.Adjust(ctx, tc.in)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Empty(t, f.ledger.Entries)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.in.Type, dto.EntryType)
			assert.True(t, dto.BalanceAfter.Equal(decimal.NewFromInt(tc.want)), dto.BalanceAfter.String())
		})
	}
}

func TestAppender_DepositAndWithdrawalHelpers(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	balance := decimal.NewFromInt(0)
	f.users.GetByIDForUpdateFn = func(_ context.Context, id string) (*user.User, error) {
		return &user.User{ID: id, Balance: balance}, nil
	}
	f.users.UpdateTotalsFn = func(_ context.Context, _ string, b, _ decimal.Decimal) error {
		balance = b
		return nil
	}
	a := NewAppender(clock.NewFake(t0), uowmock.Passthrough(f.repos, nil, nil))

	_, err := a.Deposit(ctx, "u1", decimal.NewFromInt(30), "bank-1")
	require.NoError(t, err)
	dto, err := a.Withdrawal(ctx, "u1", decimal.NewFromInt(12), "payout-1")
	require.NoError(t, err)
	assert.True(t, dto.AmountDelta.Equal(decimal.NewFromInt(-12)))
	assert.True(t, balance.Equal(decimal.NewFromInt(18)))
	assert.Len(t, f.ledger.Entries, 2)
}
