package gormrepo

import (
	"context"
	"errors"
	"testing"
	"time"

	"investment-accrual/internal/domain/investment"
	"investment-accrual/internal/domain/uow"
	"investment-accrual/internal/domain/user"
	"investment-accrual/internal/testutil/dbtest"
)

func TestGormUoW_WithinInvestmentTx_RollsBackOnError(t *testing.T) {
	db := dbtest.Open(t)
	tx := NewGormUoW(db)
	ctx := context.Background()
	dbtest.SeedUser(t, db, "u1", "0", "1000")
	inv := dbtest.SeedInvestment(t, db, newInvestment("u1", dbtest.Day("2025-09-01")))

	boom := errors.New("boom")
	err := tx.WithinInvestmentTx(ctx, "u1", inv.ID, func(r uow.Repos, u *user.User, locked *investment.Investment) error {
		if u.ID != "u1" || locked.ID != inv.ID {
			t.Fatalf("wrong rows locked: %s %d", u.ID, locked.ID)
		}
		ret := &investment.Return{InvestmentID: locked.ID, UserID: u.ID, Amount: dbtest.D("10"), ReturnDate: dbtest.Day("2025-09-02"), CreatedAt: time.Now().UTC()}
		if err := r.Returns.Insert(ctx, ret); err != nil {
			return err
		}
		if err := r.Users.UpdateTotals(ctx, u.ID, dbtest.D("10"), u.ActiveDeposits); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}

	rets, _ := NewReturnRepository(db).ListByInvestment(ctx, inv.ID)
	if len(rets) != 0 {
		t.Errorf("return row survived rollback")
	}
	u, _ := NewUserRepository(db).GetByID(ctx, "u1")
	if !u.Balance.IsZero() {
		t.Errorf("balance survived rollback: %s", u.Balance)
	}
}

func TestGormUoW_WithinInvestmentTx_OwnerMismatch(t *testing.T) {
	db := dbtest.Open(t)
	tx := NewGormUoW(db)
	ctx := context.Background()
	dbtest.SeedUser(t, db, "u1", "0", "1000")
	dbtest.SeedUser(t, db, "u2", "0", "0")
	inv := dbtest.SeedInvestment(t, db, newInvestment("u1", dbtest.Day("2025-09-01")))

	called := false
	err := tx.WithinInvestmentTx(ctx, "u2", inv.ID, func(uow.Repos, *user.User, *investment.Investment) error {
		called = true
		return nil
	})
	if !errors.Is(err, investment.ErrInvalidInvestment) {
		t.Fatalf("want ErrInvalidInvestment, got %v", err)
	}
	if called {
		t.Fatalf("fn must not run for a foreign investment")
	}
}

func TestGormUoW_WithinTxCommitsAndPing(t *testing.T) {
	db := dbtest.Open(t)
	tx := NewGormUoW(db)
	ctx := context.Background()

	err := tx.WithinTx(ctx, func(r uow.Repos) error {
		return r.Users.Create(ctx, &user.User{ID: "u9", Email: "u9@example.com", Balance: dbtest.D("5"), ActiveDeposits: dbtest.D("0")})
	})
	if err != nil {
		t.Fatalf("WithinTx: %v", err)
	}
	if _, err := NewUserRepository(db).GetByID(ctx, "u9"); err != nil {
		t.Fatalf("committed user missing: %v", err)
	}
	if err := tx.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
