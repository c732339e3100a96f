package jobrunmock

import (
	"context"
	"time"

	domain "investment-accrual/internal/domain/jobrun"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
type Repo struct {
	CreateFn        func(ctx context.Context, r *domain.JobRun) error
	SaveFn          func(ctx context.Context, r *domain.JobRun) error
	ReleaseClaimFn  func(ctx context.Context, id uint64) error
	LatestForDateFn func(ctx context.Context, job string, runDate time.Time) (*domain.JobRun, error)
	ListFn          func(ctx context.Context, job string, limit int) ([]domain.JobRun, error)
}

func (m *Repo) Create(ctx context.Context, r *domain.JobRun) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, r)
	}
	return nil
}

func (m *Repo) Save(ctx context.Context, r *domain.JobRun) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, r)
	}
	return nil
}

func (m *Repo) ReleaseClaim(ctx context.Context, id uint64) error {
	if m.ReleaseClaimFn != nil {
		return m.ReleaseClaimFn(ctx, id)
	}
	return nil
}

// LatestForDate defaults to ErrNotFound so a bare mock lets a run start.
func (m *Repo) LatestForDate(ctx context.Context, job string, runDate time.Time) (*domain.JobRun, error) {
	if m.LatestForDateFn != nil {
		return m.LatestForDateFn(ctx, job, runDate)
	}
	return nil, domain.ErrNotFound
}

func (m *Repo) List(ctx context.Context, job string, limit int) ([]domain.JobRun, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, job, limit)
	}
	return nil, context.Canceled
}
