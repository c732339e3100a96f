package gormrepo

import (
	"context"
	"errors"
	"time"

	"investment-accrual/internal/domain/jobrun"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type JobRunRepository struct{ db *gorm.DB }

func NewJobRunRepository(db *gorm.DB) *JobRunRepository { return &JobRunRepository{db: db} }

// Create relies on the claim_key unique index; a run that loses the claim
// inserts no row.
func (r *JobRunRepository) Create(ctx context.Context, run *jobrun.JobRun) error {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(run)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return jobrun.ErrRunInProgress
	}
	return nil
}

func (r *JobRunRepository) ReleaseClaim(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Model(&jobrun.JobRun{}).
		Where("id = ? AND claim_key IS NOT NULL", id).
		Update("claim_key", nil).Error
}

func (r *JobRunRepository) Save(ctx context.Context, run *jobrun.JobRun) error {
	return r.db.WithContext(ctx).Save(run).Error
}

func (r *JobRunRepository) LatestForDate(ctx context.Context, job string, runDate time.Time) (*jobrun.JobRun, error) {
	var out jobrun.JobRun
	err := r.db.WithContext(ctx).
		Where("job_name = ? AND run_date = ?", job, runDate.UTC()).
		Order("success DESC, id DESC").
		First(&out).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, jobrun.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

func (r *JobRunRepository) List(ctx context.Context, job string, limit int) ([]jobrun.JobRun, error) {
	var out []jobrun.JobRun
	q := r.db.WithContext(ctx).Order("id DESC")
	if job != "" {
		q = q.Where("job_name = ?", job)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}
