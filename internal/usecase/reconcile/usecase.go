package reconcile

import (
	"context"
	"time"

	"investment-accrual/internal/domain/investment"
	"investment-accrual/internal/usecase/accrual"
	"investment-accrual/pkg/clock"

	"github.com/shopspring/decimal"
)

type Usecase struct {
	investments investment.Repository
	returns     investment.ReturnRepository
}

func NewUsecase(investments investment.Repository, returns investment.ReturnRepository) *Usecase {
	return &Usecase{investments: investments, returns: returns}
}

type MissingReturn struct {
	InvestmentID      uint64     `json:"investment_id"`
	UserID            string     `json:"user_id"`
	DaysElapsed       int        `json:"days_elapsed"`
	LastReturnApplied *time.Time `json:"last_return_applied,omitempty"`
}

type EarlyReturn struct {
	ReturnID         uint64          `json:"return_id"`
	InvestmentID     uint64          `json:"investment_id"`
	UserID           string          `json:"user_id"`
	Amount           decimal.Decimal `json:"amount"`
	ReturnDate       string          `json:"return_date"`
	FirstEligibleDay string          `json:"first_eligible_day"`
}

type Report struct {
	Date          string          `json:"date"`
	ActiveChecked int             `json:"active_checked"`
	ReturnsOnDay  int             `json:"returns_on_day"`
	TotalOnDay    decimal.Decimal `json:"total_on_day"`
	Missing       []MissingReturn `json:"missing"`
	Early         []EarlyReturn   `json:"early"`
}

// Report lists active investments that were due on day but have no return
// row for it, and returns dated day that precede their investment's first
// eligible day. It only reads.
func (u *Usecase) Report(ctx context.Context, day time.Time) (*Report, error) {
	day = clock.Day(day)
	rep := &Report{
		Date:       day.Format(time.DateOnly),
		TotalOnDay: decimal.Zero,
		Missing:    []MissingReturn{},
		Early:      []EarlyReturn{},
	}

	returns, err := u.returns.ListByDate(ctx, day)
	if err != nil {
		return nil, err
	}
	paid := make(map[uint64]bool, len(returns))
	ids := make([]uint64, 0, len(returns))
	for _, r := range returns {
		paid[r.InvestmentID] = true
		ids = append(ids, r.InvestmentID)
		rep.TotalOnDay = rep.TotalOnDay.Add(r.Amount)
	}
	rep.ReturnsOnDay = len(returns)

	active, err := u.investments.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	rep.ActiveChecked = len(active)
	for i := range active {
		inv := &active[i]
		if paid[inv.ID] || !dueOn(inv, day) {
			continue
		}
		rep.Missing = append(rep.Missing, MissingReturn{
			InvestmentID:      inv.ID,
			UserID:            inv.UserID,
			DaysElapsed:       inv.DaysElapsed,
			LastReturnApplied: inv.LastReturnApplied,
		})
	}

	owners, err := u.investments.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint64]*investment.Investment, len(owners))
	for i := range owners {
		byID[owners[i].ID] = &owners[i]
	}
	for _, r := range returns {
		inv, ok := byID[r.InvestmentID]
		if !ok {
			continue
		}
		first := accrual.FirstEligibleDay(inv)
		if clock.Day(r.ReturnDate).Before(first) {
			rep.Early = append(rep.Early, EarlyReturn{
				ReturnID:         r.ID,
				InvestmentID:     r.InvestmentID,
				UserID:           r.UserID,
				Amount:           r.Amount,
				ReturnDate:       clock.Day(r.ReturnDate).Format(time.DateOnly),
				FirstEligibleDay: first.Format(time.DateOnly),
			})
		}
	}
	return rep, nil
}

// dueOn reports whether day falls inside the investment's accrual window.
func dueOn(inv *investment.Investment, day time.Time) bool {
	first := accrual.FirstEligibleDay(inv)
	return !day.Before(first) && day.Before(first.AddDate(0, 0, inv.PlanDuration))
}
