package accrual

import (
	"testing"
	"time"

	"investment-accrual/internal/domain/investment"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func ptr(t time.Time) *time.Time { return &t }

func baseInvestment() *investment.Investment {
	return &investment.Investment{
		ID:              42,
		UserID:          "u1",
		Status:          investment.StatusActive,
		PlanDuration:    100,
		DailyProfit:     d("10"),
		PrincipalAmount: d("1000"),
		TotalReturn:     d("1000"),
		StartDate:       day("2025-06-01"),
	}
}

func TestCalculate(t *testing.T) {
	now := time.Date(2025, 10, 2, 0, 5, 0, 0, time.UTC)

	tests := []struct {
		name   string
		mutate func(*investment.Investment)
		check  func(t *testing.T, r Result)
	}{
		{
			name: "final day completes and unlocks principal",
			mutate: func(inv *investment.Investment) {
				inv.TotalEarned = d("990")
				inv.DaysElapsed = 99
				inv.LastReturnApplied = ptr(day("2025-10-01"))
			},
			check: func(t *testing.T, r Result) {
				assert.True(t, r.Due)
				assert.True(t, r.Amount.Equal(d("10")))
				assert.Equal(t, 100, r.NewDaysElapsed)
				assert.True(t, r.NewTotalEarned.Equal(d("1000")))
				assert.True(t, r.Completes)
				assert.True(t, r.UnlockPrincipal)
				assert.False(t, r.Clamped)
			},
		},
		{
			name: "amount clamped to remaining total",
			mutate: func(inv *investment.Investment) {
				inv.TotalEarned = d("995.50")
				inv.DaysElapsed = 50
			},
			check: func(t *testing.T, r Result) {
				assert.True(t, r.Due)
				assert.True(t, r.Amount.Equal(d("4.50")), r.Amount.String())
				assert.True(t, r.NewTotalEarned.Equal(d("1000")))
				assert.True(t, r.Clamped)
				assert.True(t, r.Completes, "reaching total_return completes before the plan ends")
			},
		},
		{
			name: "ordinary day",
			mutate: func(inv *investment.Investment) {
				inv.TotalEarned = d("100")
				inv.DaysElapsed = 10
				inv.LastReturnApplied = ptr(day("2025-10-01"))
			},
			check: func(t *testing.T, r Result) {
				assert.True(t, r.Due)
				assert.Equal(t, day("2025-10-02"), r.Day)
				assert.False(t, r.Completes)
				assert.False(t, r.UnlockPrincipal)
			},
		},
		{
			name:   "already applied today",
			mutate: func(inv *investment.Investment) { inv.LastReturnApplied = ptr(time.Date(2025, 10, 2, 0, 1, 0, 0, time.UTC)) },
			check: func(t *testing.T, r Result) {
				assert.False(t, r.Due)
				assert.True(t, r.Amount.IsZero())
			},
		},
		{
			name:   "start date in the future is never due",
			mutate: func(inv *investment.Investment) { inv.StartDate = day("2025-10-05") },
			check:  func(t *testing.T, r Result) { assert.False(t, r.Due) },
		},
		{
			name:   "funded today starts accruing tomorrow",
			mutate: func(inv *investment.Investment) { inv.StartDate = time.Date(2025, 10, 2, 9, 0, 0, 0, time.UTC) },
			check:  func(t *testing.T, r Result) { assert.False(t, r.Due) },
		},
		{
			name: "profit_starts_at overrides start date",
			mutate: func(inv *investment.Investment) {
				inv.StartDate = day("2025-10-01")
				inv.ProfitStartsAt = ptr(day("2025-10-03"))
			},
			check: func(t *testing.T, r Result) { assert.False(t, r.Due) },
		},
		{
			name: "rate based amount",
			mutate: func(inv *investment.Investment) {
				inv.DailyProfit = decimal.Zero
				inv.DailyRate = d("0.0125")
				inv.PrincipalAmount = d("333")
			},
			check: func(t *testing.T, r Result) {
				assert.True(t, r.Due)
				assert.True(t, r.Amount.Equal(d("4.16")), r.Amount.String())
			},
		},
		{
			name: "drifted totals complete without a return",
			mutate: func(inv *investment.Investment) {
				inv.TotalEarned = d("1000")
				inv.DaysElapsed = 97
			},
			check: func(t *testing.T, r Result) {
				assert.False(t, r.Due)
				assert.True(t, r.Drift)
				assert.True(t, r.Completes)
				assert.True(t, r.UnlockPrincipal)
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			inv := baseInvestment()
			tc.mutate(inv)
			before := *inv
			r, err := Calculate(inv, now)
			require.NoError(t, err)
			tc.check(t, r)
			assert.Equal(t, before.DaysElapsed, inv.DaysElapsed, "Calculate must not mutate its input")
			assert.True(t, before.TotalEarned.Equal(inv.TotalEarned))
		})
	}
}

func TestCalculate_Validation(t *testing.T) {
	now := time.Date(2025, 10, 2, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		mutate func(*investment.Investment)
	}{
		{"zero duration", func(inv *investment.Investment) { inv.PlanDuration = 0 }},
		{"negative principal", func(inv *investment.Investment) { inv.PrincipalAmount = d("-1") }},
		{"zero total return", func(inv *investment.Investment) { inv.TotalReturn = decimal.Zero }},
		{"no profit", func(inv *investment.Investment) { inv.DailyProfit = decimal.Zero }},
		{"negative earned", func(inv *investment.Investment) { inv.TotalEarned = d("-5") }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			inv := baseInvestment()
			tc.mutate(inv)
			_, err := Calculate(inv, now)
			assert.ErrorIs(t, err, investment.ErrInvalidInvestment)
		})
	}

	inv := baseInvestment()
	inv.Status = investment.StatusCompleted
	_, err := Calculate(inv, now)
	assert.ErrorIs(t, err, investment.ErrInvalidInvestment)
	assert.ErrorIs(t, err, investment.ErrNotActive)

	_, err = Calculate(nil, now)
	assert.ErrorIs(t, err, investment.ErrInvalidInvestment)
}

// Applying every due day in order never lets total_earned pass
// total_return, and the last increment is exactly the remainder.
func TestCalculate_NeverExceedsTotalReturn(t *testing.T) {
	for _, daily := range []string{"7", "10", "30", "333.33", "999.99", "1500"} {
		t.Run(daily, func(t *testing.T) {
			inv := baseInvestment()
			inv.DailyProfit = d(daily)
			cur := day("2025-06-02")

			var last Result
			for i := 0; i < 200; i++ {
				r, err := Calculate(inv, cur)
				require.NoError(t, err)
				if !r.Due {
					break
				}
				before := inv.TotalEarned
				require.True(t, r.NewTotalEarned.LessThanOrEqual(d("1000")), "day %d: %s", i, r.NewTotalEarned)
				require.True(t, r.NewTotalEarned.Sub(before).Equal(r.Amount))
				inv.TotalEarned, inv.DaysElapsed, inv.LastReturnApplied = r.NewTotalEarned, r.NewDaysElapsed, ptr(r.Day)
				last = r
				if r.Completes {
					break
				}
				cur = cur.AddDate(0, 0, 1)
			}
			require.True(t, last.Completes)
			assert.True(t, inv.TotalEarned.LessThanOrEqual(d("1000")))
			assert.LessOrEqual(t, inv.DaysElapsed, inv.PlanDuration)
		})
	}
}

func TestDueDays(t *testing.T) {
	today := time.Date(2025, 10, 2, 0, 5, 0, 0, time.UTC)

	t.Run("caps backlog and starts at the first missing day", func(t *testing.T) {
		inv := baseInvestment()
		inv.DaysElapsed = 10
		inv.LastReturnApplied = ptr(day("2025-09-20"))
		got := DueDays(inv, today, 7)
		require.Len(t, got, 7)
		assert.Equal(t, day("2025-09-21"), got[0])
		assert.Equal(t, day("2025-09-27"), got[6])
	})

	t.Run("short backlog is caught up fully", func(t *testing.T) {
		inv := baseInvestment()
		inv.LastReturnApplied = ptr(day("2025-09-29"))
		got := DueDays(inv, today, 7)
		assert.Equal(t, []time.Time{day("2025-09-30"), day("2025-10-01"), day("2025-10-02")}, got)
	})

	t.Run("never past remaining plan days", func(t *testing.T) {
		inv := baseInvestment()
		inv.DaysElapsed = 98
		inv.TotalEarned = d("980")
		inv.LastReturnApplied = ptr(day("2025-09-20"))
		assert.Len(t, DueDays(inv, today, 7), 2)
	})

	t.Run("zero cap applies only today", func(t *testing.T) {
		inv := baseInvestment()
		inv.LastReturnApplied = ptr(day("2025-09-20"))
		assert.Equal(t, []time.Time{day("2025-10-02")}, DueDays(inv, today, 0))
	})

	t.Run("new investment starts day after funding", func(t *testing.T) {
		inv := baseInvestment()
		inv.StartDate = time.Date(2025, 9, 30, 15, 0, 0, 0, time.UTC)
		assert.Equal(t, []time.Time{day("2025-10-01"), day("2025-10-02")}, DueDays(inv, today, 7))
	})

	t.Run("nothing due", func(t *testing.T) {
		inv := baseInvestment()
		inv.LastReturnApplied = ptr(day("2025-10-02"))
		assert.Empty(t, DueDays(inv, today, 7))

		future := baseInvestment()
		future.StartDate = day("2025-11-01")
		assert.Empty(t, DueDays(future, today, 7))

		closed := baseInvestment()
		closed.Status = investment.StatusCompleted
		assert.Empty(t, DueDays(closed, today, 7))
	})
}
