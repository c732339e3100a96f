package ledger

import (
	domain "investment-accrual/internal/domain/ledger"

	"github.com/shopspring/decimal"
)

// Change is one balance-affecting mutation of a user's running totals.
type Change struct {
	Type                domain.EntryType
	ReferenceTable      string
	ReferenceID         string
	AmountDelta         decimal.Decimal
	ActiveDepositsDelta decimal.Decimal
	Metadata            map[string]any
}

type AdjustmentInput struct {
	UserID    string          `json:"user_id"`
	Type      string          `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
	Note      string          `json:"note"`
}

type EntryDTO struct {
	Seq                 uint64          `json:"seq"`
	ID                  string          `json:"id"`
	UserID              string          `json:"user_id"`
	EntryType           string          `json:"entry_type"`
	AmountDelta         decimal.Decimal `json:"amount_delta"`
	ActiveDepositsDelta decimal.Decimal `json:"active_deposits_delta"`
	BalanceAfter        decimal.Decimal `json:"balance_after"`
	ActiveDepositsAfter decimal.Decimal `json:"active_deposits_after"`
	EntryHash           string          `json:"entry_hash"`
}

// VerifyReport is the result of recomputing a hash chain.
type VerifyReport struct {
	OK       bool    `json:"ok"`
	Checked  int     `json:"checked"`
	BrokenAt *uint64 `json:"brokenAt,omitempty"`
	EntryID  string  `json:"entryId,omitempty"`
	Reason   string  `json:"reason,omitempty"`
}

func toDTO(e *domain.Entry) *EntryDTO {
	return &EntryDTO{
		Seq:                 e.Seq,
		ID:                  e.ID,
		UserID:              e.UserID,
		EntryType:           string(e.EntryType),
		AmountDelta:         e.AmountDelta,
		ActiveDepositsDelta: e.ActiveDepositsDelta,
		BalanceAfter:        e.BalanceAfter,
		ActiveDepositsAfter: e.ActiveDepositsAfter,
		EntryHash:           e.EntryHash,
	}
}
