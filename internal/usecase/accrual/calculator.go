package accrual

import (
	"fmt"
	"time"

	"investment-accrual/internal/domain/investment"
	"investment-accrual/pkg/clock"

	"github.com/shopspring/decimal"
)

// Result is the outcome of evaluating one investment for one calendar day.
type Result struct {
	Due             bool
	Day             time.Time
	Amount          decimal.Decimal
	NewDaysElapsed  int
	NewTotalEarned  decimal.Decimal
	Completes       bool
	UnlockPrincipal bool
	// Clamped is set when the daily amount was cut to the remaining total_return.
	Clamped bool
	// Drift is set for an active investment whose totals already reached its
	// limits; it is not due but must still complete.
	Drift bool
}

// Validate rejects investments the calculator cannot reason about.
func Validate(inv *investment.Investment) error {
	switch {
	case inv == nil:
		return fmt.Errorf("%w: nil investment", investment.ErrInvalidInvestment)
	case inv.Status != investment.StatusActive:
		return fmt.Errorf("%w: %w (status %q)", investment.ErrInvalidInvestment, investment.ErrNotActive, inv.Status)
	case inv.PlanDuration <= 0:
		return fmt.Errorf("%w: plan_duration must be positive", investment.ErrInvalidInvestment)
	case !inv.PrincipalAmount.IsPositive():
		return fmt.Errorf("%w: principal_amount must be positive", investment.ErrInvalidInvestment)
	case !inv.TotalReturn.IsPositive():
		return fmt.Errorf("%w: total_return must be positive", investment.ErrInvalidInvestment)
	case !inv.DailyAmount().IsPositive():
		return fmt.Errorf("%w: daily profit must be positive", investment.ErrInvalidInvestment)
	case inv.TotalEarned.IsNegative() || inv.DaysElapsed < 0:
		return fmt.Errorf("%w: negative progress", investment.ErrInvalidInvestment)
	}
	return nil
}

// FirstEligibleDay is the first calendar day a return may be applied for.
func FirstEligibleDay(inv *investment.Investment) time.Time {
	if inv.ProfitStartsAt != nil {
		return clock.Day(*inv.ProfitStartsAt)
	}
	return clock.Day(inv.StartDate).AddDate(0, 0, 1)
}

func exhausted(inv *investment.Investment) bool {
	return inv.DaysElapsed >= inv.PlanDuration || inv.TotalEarned.GreaterThanOrEqual(inv.TotalReturn)
}

// Calculate decides whether a return is due for the calendar day of now and
// what applying it does. It has no side effects.
func Calculate(inv *investment.Investment, now time.Time) (Result, error) {
	if err := Validate(inv); err != nil {
		return Result{}, err
	}
	day := clock.Day(now)
	res := Result{Day: day, NewDaysElapsed: inv.DaysElapsed, NewTotalEarned: inv.TotalEarned}

	if exhausted(inv) {
		res.Drift = true
		res.Completes = true
		res.UnlockPrincipal = true
		return res, nil
	}
	if day.Before(FirstEligibleDay(inv)) {
		return res, nil
	}
	if inv.LastReturnApplied != nil && !day.After(clock.Day(*inv.LastReturnApplied)) {
		return res, nil
	}

	amount := inv.DailyAmount()
	remaining := inv.TotalReturn.Sub(inv.TotalEarned)
	if amount.GreaterThan(remaining) {
		amount = remaining
		res.Clamped = true
	}

	res.Due = true
	res.Amount = amount
	res.NewDaysElapsed = inv.DaysElapsed + 1
	res.NewTotalEarned = inv.TotalEarned.Add(amount)
	if res.NewDaysElapsed >= inv.PlanDuration || res.NewTotalEarned.GreaterThanOrEqual(inv.TotalReturn) {
		res.Completes = true
		res.UnlockPrincipal = true
	}
	return res, nil
}

// DueDays lists, oldest first, the days from the first missing one up to
// today that still need a return. At most maxDays are returned; later days
// are left for the next run. maxDays <= 0 means only today's return.
func DueDays(inv *investment.Investment, today time.Time, maxDays int) []time.Time {
	if Validate(inv) != nil || exhausted(inv) {
		return nil
	}
	today = clock.Day(today)
	from := FirstEligibleDay(inv)
	if inv.LastReturnApplied != nil {
		if next := clock.Day(*inv.LastReturnApplied).AddDate(0, 0, 1); next.After(from) {
			from = next
		}
	}
	if from.After(today) {
		return nil
	}
	if maxDays <= 0 {
		return []time.Time{today}
	}
	if left := inv.PlanDuration - inv.DaysElapsed; maxDays > left {
		maxDays = left
	}
	var out []time.Time
	for d := from; !d.After(today) && len(out) < maxDays; d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}
