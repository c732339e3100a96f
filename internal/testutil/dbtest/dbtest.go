// Package dbtest opens migrated in-memory sqlite databases for tests.
package dbtest

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"investment-accrual/internal/domain/investment"
	"investment-accrual/internal/domain/user"
	"investment-accrual/internal/infrastructure/db"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open returns a fresh schema. A single connection keeps ":memory:" shared
// across the pool; concurrent transactions queue on it.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func D(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func Day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

// SeedUser inserts a user with the given balance and escrowed principal.
func SeedUser(t testing.TB, gdb *gorm.DB, id, balance, active string) *user.User {
	t.Helper()
	u := &user.User{
		ID:             id,
		Email:          id + "@example.com",
		Name:           id,
		Balance:        D(balance),
		ActiveDeposits: D(active),
	}
	if err := gdb.Create(u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

var seq atomic.Uint64

// SeedInvestment inserts inv after filling the fields tests rarely care about.
func SeedInvestment(t testing.TB, gdb *gorm.DB, inv *investment.Investment) *investment.Investment {
	t.Helper()
	if inv.TransactionID == "" {
		inv.TransactionID = fmt.Sprintf("tx-%s-%d", inv.UserID, seq.Add(1))
	}
	if inv.PlanName == "" {
		inv.PlanName = "Gold"
	}
	if inv.Status == "" {
		inv.Status = investment.StatusActive
	}
	if inv.EndDate.IsZero() {
		inv.EndDate = inv.StartDate.AddDate(0, 0, inv.PlanDuration)
	}
	if err := gdb.Create(inv).Error; err != nil {
		t.Fatalf("seed investment: %v", err)
	}
	return inv
}
