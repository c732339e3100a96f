package gormrepo

import (
	"context"
	"errors"
	"testing"
	"time"

	"investment-accrual/internal/domain/investment"
	"investment-accrual/internal/testutil/dbtest"
)

func TestReturnRepository_InsertIsIdempotentPerDay(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewReturnRepository(db)
	ctx := context.Background()
	dbtest.SeedUser(t, db, "u1", "0", "1000")
	inv := dbtest.SeedInvestment(t, db, newInvestment("u1", dbtest.Day("2025-09-01")))

	day := dbtest.Day("2025-10-01")
	first := &investment.Return{InvestmentID: inv.ID, UserID: "u1", Amount: dbtest.D("10"), ReturnDate: day, CreatedAt: time.Now().UTC()}
	if err := repo.Insert(ctx, first); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if first.ID == 0 {
		t.Fatalf("insert did not set id")
	}

	dup := &investment.Return{InvestmentID: inv.ID, UserID: "u1", Amount: dbtest.D("10"), ReturnDate: day, CreatedAt: time.Now().UTC()}
	if err := repo.Insert(ctx, dup); !errors.Is(err, investment.ErrReturnAlreadyApplied) {
		t.Fatalf("duplicate insert: want ErrReturnAlreadyApplied, got %v", err)
	}

	next := &investment.Return{InvestmentID: inv.ID, UserID: "u1", Amount: dbtest.D("10"), ReturnDate: day.AddDate(0, 0, 1), CreatedAt: time.Now().UTC()}
	if err := repo.Insert(ctx, next); err != nil {
		t.Fatalf("next day insert: %v", err)
	}

	onDay, err := repo.ListByDate(ctx, day)
	if err != nil {
		t.Fatalf("ListByDate: %v", err)
	}
	if len(onDay) != 1 {
		t.Fatalf("want 1 return on %s, got %d", day.Format(time.DateOnly), len(onDay))
	}
	all, err := repo.ListByInvestment(ctx, inv.ID)
	if err != nil {
		t.Fatalf("ListByInvestment: %v", err)
	}
	if len(all) != 2 || !all[0].ReturnDate.Before(all[1].ReturnDate) {
		t.Fatalf("unexpected returns: %+v", all)
	}
}

func TestCompletedRepository_InsertOnce(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewCompletedRepository(db)
	ctx := context.Background()
	dbtest.SeedUser(t, db, "u1", "0", "1000")
	inv := dbtest.SeedInvestment(t, db, newInvestment("u1", dbtest.Day("2025-09-01")))

	at := time.Date(2025, 12, 10, 0, 0, 0, 0, time.UTC)
	if err := repo.Insert(ctx, investment.NewCompleted(inv, at)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := repo.Insert(ctx, investment.NewCompleted(inv, at)); !errors.Is(err, investment.ErrAlreadyCompleted) {
		t.Fatalf("second Insert: want ErrAlreadyCompleted, got %v", err)
	}

	got, err := repo.GetByInvestmentID(ctx, inv.ID)
	if err != nil {
		t.Fatalf("GetByInvestmentID: %v", err)
	}
	if !got.PrincipalAmount.Equal(dbtest.D("1000")) {
		t.Errorf("principal = %s", got.PrincipalAmount)
	}
	if _, err := repo.GetByInvestmentID(ctx, 777); !errors.Is(err, investment.ErrNotFound) {
		t.Errorf("missing: want ErrNotFound, got %v", err)
	}
}
