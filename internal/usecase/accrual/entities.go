package accrual

import (
	"errors"
	"time"

	"investment-accrual/internal/domain/jobrun"

	"github.com/shopspring/decimal"
)

// ErrFutureRunDate rejects a run for a day that has not started yet.
var ErrFutureRunDate = errors.New("run date is after today")

type RunInput struct {
	// RunDate defaults to today (UTC) when zero.
	RunDate time.Time
	Source  jobrun.Source
	// Force reruns a date that already has a successful run. Returns already
	// applied stay protected by the (investment_id, return_date) key.
	Force bool
}

type InvestmentError struct {
	InvestmentID uint64 `json:"investmentId"`
	UserID       string `json:"userId"`
	Reason       string `json:"reason"`
	Error        string `json:"error"`
}

type RunSummary struct {
	RunID          string            `json:"runId"`
	RunDate        string            `json:"runDate"`
	Skipped        bool              `json:"skipped"`
	Processed      int               `json:"processed"`
	Completed      int               `json:"completed"`
	Failed         int               `json:"failed"`
	AlreadyApplied int               `json:"alreadyApplied"`
	ReturnsApplied int               `json:"returnsApplied"`
	TotalApplied   decimal.Decimal   `json:"totalApplied"`
	TimedOut       bool              `json:"timedOut,omitempty"`
	Errors         []InvestmentError `json:"errors"`
}

// runMeta is persisted into job_runs.meta.
type runMeta struct {
	MaxCatchUpDays int               `json:"max_catch_up_days"`
	BatchSize      int               `json:"batch_size"`
	Workers        int               `json:"workers"`
	Force          bool              `json:"force,omitempty"`
	LastID         uint64            `json:"checkpoint_last_id"`
	ReturnsApplied int               `json:"returns_applied"`
	AlreadyApplied int               `json:"already_applied"`
	Failures       []InvestmentError `json:"failures,omitempty"`
}

// outcome of one investment transaction.
type outcome struct {
	returns   int
	amount    decimal.Decimal
	completed bool
	already   bool
	notDue    bool
}
