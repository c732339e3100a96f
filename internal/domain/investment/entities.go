package investment

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

var (
	ErrNotFound             = errors.New("investment not found")
	ErrInvalidInvestment    = errors.New("invalid investment state")
	ErrNotActive            = errors.New("investment is not active")
	ErrReturnAlreadyApplied = errors.New("return already applied for date")
	ErrReturnDrift          = errors.New("return row exists past last_return_applied")
	ErrAlreadyCompleted     = errors.New("investment already completed")
)

// Investment is one funded position. Only the accrual runner mutates it.
type Investment struct {
	ID                uint64          `gorm:"primaryKey;column:id" json:"id"`
	UserID            string          `gorm:"column:user_id;size:64;not null;index" json:"user_id"`
	TransactionID     string          `gorm:"column:transaction_id;size:64;not null;uniqueIndex:ux_investments_transaction" json:"transaction_id"`
	PlanName          string          `gorm:"column:plan_name;size:128;not null" json:"plan_name"`
	PlanDuration      int             `gorm:"column:plan_duration;not null" json:"plan_duration"`
	DailyRate         decimal.Decimal `gorm:"column:daily_rate;type:decimal(10,6);not null;default:0" json:"daily_rate"`
	DailyProfit       decimal.Decimal `gorm:"column:daily_profit;type:decimal(18,2);not null;default:0" json:"daily_profit"`
	PrincipalAmount   decimal.Decimal `gorm:"column:principal_amount;type:decimal(18,2);not null" json:"principal_amount"`
	TotalReturn       decimal.Decimal `gorm:"column:total_return;type:decimal(18,2);not null" json:"total_return"`
	StartDate         time.Time       `gorm:"column:start_date;not null" json:"start_date"`
	EndDate           time.Time       `gorm:"column:end_date;not null" json:"end_date"`
	Status            Status          `gorm:"column:status;size:16;not null;default:'active';index:idx_investments_status_last" json:"status"`
	DaysElapsed       int             `gorm:"column:days_elapsed;not null;default:0" json:"days_elapsed"`
	TotalEarned       decimal.Decimal `gorm:"column:total_earned;type:decimal(18,2);not null;default:0" json:"total_earned"`
	LastReturnApplied *time.Time      `gorm:"column:last_return_applied;index:idx_investments_status_last" json:"last_return_applied,omitempty"`
	ProfitStartsAt    *time.Time      `gorm:"column:profit_starts_at" json:"profit_starts_at,omitempty"`
	CompletedAt       *time.Time      `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Investment) TableName() string { return "investments" }

// DailyAmount is the fixed per-day profit: the plan's absolute amount when
// set, otherwise principal × daily rate rounded to cents.
func (i *Investment) DailyAmount() decimal.Decimal {
	if i.DailyProfit.IsPositive() {
		return i.DailyProfit
	}
	return i.PrincipalAmount.Mul(i.DailyRate).Round(2)
}

// Return is one profit application. (investment_id, return_date) is unique.
type Return struct {
	ID           uint64          `gorm:"primaryKey;column:id" json:"id"`
	InvestmentID uint64          `gorm:"column:investment_id;not null;uniqueIndex:ux_investment_returns_inv_date,priority:1" json:"investment_id"`
	UserID       string          `gorm:"column:user_id;size:64;not null;index" json:"user_id"`
	Amount       decimal.Decimal `gorm:"column:amount;type:decimal(18,2);not null" json:"amount"`
	ReturnDate   time.Time       `gorm:"column:return_date;not null;uniqueIndex:ux_investment_returns_inv_date,priority:2" json:"return_date"`
	CreatedAt    time.Time       `gorm:"column:created_at;not null" json:"created_at"`
}

func (Return) TableName() string { return "investment_returns" }

// Completed is the terminal record of a matured investment.
type Completed struct {
	ID              uint64          `gorm:"primaryKey;column:id" json:"id"`
	InvestmentID    uint64          `gorm:"column:investment_id;not null;uniqueIndex:ux_completed_investments_inv" json:"investment_id"`
	UserID          string          `gorm:"column:user_id;size:64;not null;index" json:"user_id"`
	TransactionID   string          `gorm:"column:transaction_id;size:64;not null" json:"transaction_id"`
	PlanName        string          `gorm:"column:plan_name;size:128;not null" json:"plan_name"`
	PlanDuration    int             `gorm:"column:plan_duration;not null" json:"plan_duration"`
	DailyRate       decimal.Decimal `gorm:"column:daily_rate;type:decimal(10,6);not null;default:0" json:"daily_rate"`
	DailyProfit     decimal.Decimal `gorm:"column:daily_profit;type:decimal(18,2);not null;default:0" json:"daily_profit"`
	PrincipalAmount decimal.Decimal `gorm:"column:principal_amount;type:decimal(18,2);not null" json:"principal_amount"`
	TotalReturn     decimal.Decimal `gorm:"column:total_return;type:decimal(18,2);not null" json:"total_return"`
	TotalEarned     decimal.Decimal `gorm:"column:total_earned;type:decimal(18,2);not null" json:"total_earned"`
	DaysElapsed     int             `gorm:"column:days_elapsed;not null" json:"days_elapsed"`
	StartDate       time.Time       `gorm:"column:start_date;not null" json:"start_date"`
	EndDate         time.Time       `gorm:"column:end_date;not null" json:"end_date"`
	CompletedAt     time.Time       `gorm:"column:completed_at;not null" json:"completed_at"`
}

func (Completed) TableName() string { return "completed_investments" }

// NewCompleted snapshots the final totals of inv.
func NewCompleted(inv *Investment, at time.Time) *Completed {
	return &Completed{
		InvestmentID:    inv.ID,
		UserID:          inv.UserID,
		TransactionID:   inv.TransactionID,
		PlanName:        inv.PlanName,
		PlanDuration:    inv.PlanDuration,
		DailyRate:       inv.DailyRate,
		DailyProfit:     inv.DailyProfit,
		PrincipalAmount: inv.PrincipalAmount,
		TotalReturn:     inv.TotalReturn,
		TotalEarned:     inv.TotalEarned,
		DaysElapsed:     inv.DaysElapsed,
		StartDate:       inv.StartDate,
		EndDate:         inv.EndDate,
		CompletedAt:     at.UTC(),
	}
}
