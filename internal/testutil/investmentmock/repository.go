package investmentmock

import (
	"context"
	"time"

	domain "investment-accrual/internal/domain/investment"
)

var (
	_ domain.Repository          = (*Repo)(nil)
	_ domain.ReturnRepository    = (*ReturnRepo)(nil)
	_ domain.CompletedRepository = (*CompletedRepo)(nil)
)

// Repo is a function-backed mock that satisfies domain.Repository.
// Unset reads return context.Canceled; unset writes are no-ops.
type Repo struct {
	ListDueFn          func(ctx context.Context, day time.Time, afterID uint64, limit int) ([]domain.Investment, error)
	GetByIDFn          func(ctx context.Context, id uint64) (*domain.Investment, error)
	ListByIDsFn        func(ctx context.Context, ids []uint64) ([]domain.Investment, error)
	GetByIDForUpdateFn func(ctx context.Context, id uint64) (*domain.Investment, error)
	ListActiveFn       func(ctx context.Context) ([]domain.Investment, error)
	SaveProgressFn     func(ctx context.Context, inv *domain.Investment) error
	MarkCompletedFn    func(ctx context.Context, id uint64, at time.Time) error
	CreateFn           func(ctx context.Context, inv *domain.Investment) error
}

func (m *Repo) ListDue(ctx context.Context, day time.Time, afterID uint64, limit int) ([]domain.Investment, error) {
	if m.ListDueFn != nil {
		return m.ListDueFn(ctx, day, afterID, limit)
	}
	return nil, context.Canceled
}

func (m *Repo) GetByID(ctx context.Context, id uint64) (*domain.Investment, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, context.Canceled
}

func (m *Repo) ListByIDs(ctx context.Context, ids []uint64) ([]domain.Investment, error) {
	if m.ListByIDsFn != nil {
		return m.ListByIDsFn(ctx, ids)
	}
	return nil, context.Canceled
}

func (m *Repo) GetByIDForUpdate(ctx context.Context, id uint64) (*domain.Investment, error) {
	if m.GetByIDForUpdateFn != nil {
		return m.GetByIDForUpdateFn(ctx, id)
	}
	return nil, context.Canceled
}

func (m *Repo) ListActive(ctx context.Context) ([]domain.Investment, error) {
	if m.ListActiveFn != nil {
		return m.ListActiveFn(ctx)
	}
	return nil, context.Canceled
}

func (m *Repo) SaveProgress(ctx context.Context, inv *domain.Investment) error {
	if m.SaveProgressFn != nil {
		return m.SaveProgressFn(ctx, inv)
	}
	return nil
}

func (m *Repo) MarkCompleted(ctx context.Context, id uint64, at time.Time) error {
	if m.MarkCompletedFn != nil {
		return m.MarkCompletedFn(ctx, id, at)
	}
	return nil
}

func (m *Repo) Create(ctx context.Context, inv *domain.Investment) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, inv)
	}
	return nil
}

type ReturnRepo struct {
	InsertFn           func(ctx context.Context, r *domain.Return) error
	ListByDateFn       func(ctx context.Context, day time.Time) ([]domain.Return, error)
	ListByInvestmentFn func(ctx context.Context, investmentID uint64) ([]domain.Return, error)
}

func (m *ReturnRepo) Insert(ctx context.Context, r *domain.Return) error {
	if m.InsertFn != nil {
		return m.InsertFn(ctx, r)
	}
	return nil
}

func (m *ReturnRepo) ListByDate(ctx context.Context, day time.Time) ([]domain.Return, error) {
	if m.ListByDateFn != nil {
		return m.ListByDateFn(ctx, day)
	}
	return nil, context.Canceled
}

func (m *ReturnRepo) ListByInvestment(ctx context.Context, investmentID uint64) ([]domain.Return, error) {
	if m.ListByInvestmentFn != nil {
		return m.ListByInvestmentFn(ctx, investmentID)
	}
	return nil, context.Canceled
}

type CompletedRepo struct {
	InsertFn            func(ctx context.Context, c *domain.Completed) error
	GetByInvestmentIDFn func(ctx context.Context, investmentID uint64) (*domain.Completed, error)
}

func (m *CompletedRepo) Insert(ctx context.Context, c *domain.Completed) error {
	if m.InsertFn != nil {
		return m.InsertFn(ctx, c)
	}
	return nil
}

func (m *CompletedRepo) GetByInvestmentID(ctx context.Context, investmentID uint64) (*domain.Completed, error) {
	if m.GetByInvestmentIDFn != nil {
		return m.GetByInvestmentIDFn(ctx, investmentID)
	}
	return nil, context.Canceled
}
