package ledger

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type EntryType string

const (
	EntryDeposit           EntryType = "deposit"
	EntryWithdrawal        EntryType = "withdrawal"
	EntryReturnApplied     EntryType = "return_applied"
	EntryPrincipalUnlocked EntryType = "principal_unlocked"
)

var (
	ErrInvalidEntry = errors.New("invalid ledger entry")
	ErrChainBroken  = errors.New("ledger hash chain broken")
)

// Entry is an append-only row of financial_ledger. Seq orders each user's chain.
type Entry struct {
	Seq                 uint64          `gorm:"primaryKey;column:seq;autoIncrement;index:idx_financial_ledger_user_seq,priority:2" json:"seq"`
	ID                  string          `gorm:"column:id;size:32;not null;uniqueIndex:ux_financial_ledger_id" json:"id"`
	UserID              string          `gorm:"column:user_id;size:64;not null;index:idx_financial_ledger_user_seq,priority:1" json:"user_id"`
	EntryType           EntryType       `gorm:"column:entry_type;size:32;not null" json:"entry_type"`
	ReferenceTable      string          `gorm:"column:reference_table;size:64" json:"reference_table"`
	ReferenceID         string          `gorm:"column:reference_id;size:64" json:"reference_id"`
	AmountDelta         decimal.Decimal `gorm:"column:amount_delta;type:decimal(18,2);not null" json:"amount_delta"`
	ActiveDepositsDelta decimal.Decimal `gorm:"column:active_deposits_delta;type:decimal(18,2);not null" json:"active_deposits_delta"`
	BalanceAfter        decimal.Decimal `gorm:"column:balance_after;type:decimal(18,2);not null" json:"balance_after"`
	ActiveDepositsAfter decimal.Decimal `gorm:"column:active_deposits_after;type:decimal(18,2);not null" json:"active_deposits_after"`
	Metadata            datatypes.JSON  `gorm:"column:metadata" json:"metadata,omitempty"`
	PreviousHash        string          `gorm:"column:previous_hash;size:64;not null" json:"previous_hash"`
	EntryHash           string          `gorm:"column:entry_hash;size:64;not null" json:"entry_hash"`
	CreatedAt           time.Time       `gorm:"column:created_at;not null" json:"created_at"`
}

func (Entry) TableName() string { return "financial_ledger" }
