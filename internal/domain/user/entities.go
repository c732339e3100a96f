package user

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("user not found")
	ErrInsufficientFunds = errors.New("insufficient balance")
)

// User carries the two running totals the ledger tracks. Profiles live elsewhere.
type User struct {
	ID             string          `gorm:"primaryKey;column:id;size:64" json:"id"`
	Email          string          `gorm:"column:email;size:255" json:"email"`
	Name           string          `gorm:"column:name;size:255" json:"name"`
	Balance        decimal.Decimal `gorm:"column:balance;type:decimal(18,2);not null;default:0" json:"balance"`
	ActiveDeposits decimal.Decimal `gorm:"column:active_deposits;type:decimal(18,2);not null;default:0" json:"active_deposits"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string { return "users" }
