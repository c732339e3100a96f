package jobrun

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Source string

const (
	SourceManual Source = "manual"
	SourceCron   Source = "cron"
)

const JobDailyAccrual = "daily_accrual"

var (
	ErrNotFound      = errors.New("job run not found")
	ErrRunInProgress = errors.New("job run already in progress for run date")
)

// JobRun records one invocation of a batch job.
type JobRun struct {
	ID             uint64          `gorm:"primaryKey;column:id" json:"id"`
	RunID          string          `gorm:"column:run_id;size:36;not null;uniqueIndex:ux_job_runs_run_id" json:"run_id"`
	JobName        string          `gorm:"column:job_name;size:64;not null;index:idx_job_runs_job_date,priority:1" json:"job_name"`
	RunDate        time.Time       `gorm:"column:run_date;not null;index:idx_job_runs_job_date,priority:2" json:"run_date"`
	Source         Source          `gorm:"column:source;size:16;not null" json:"source"`
	StartedAt      time.Time       `gorm:"column:started_at;not null" json:"started_at"`
	FinishedAt     *time.Time      `gorm:"column:finished_at" json:"finished_at,omitempty"`
	Success        bool            `gorm:"column:success;not null;default:false" json:"success"`
	ProcessedCount int             `gorm:"column:processed_count;not null;default:0" json:"processed_count"`
	CompletedCount int             `gorm:"column:completed_count;not null;default:0" json:"completed_count"`
	FailedCount    int             `gorm:"column:failed_count;not null;default:0" json:"failed_count"`
	SkippedCount   int             `gorm:"column:skipped_count;not null;default:0" json:"skipped_count"`
	TotalApplied   decimal.Decimal `gorm:"column:total_applied;type:decimal(18,2);not null;default:0" json:"total_applied"`
	ErrorText      string          `gorm:"column:error_text;type:text" json:"error_text,omitempty"`
	Meta           datatypes.JSON  `gorm:"column:meta" json:"meta,omitempty"`
	// ClaimKey is set while the run is unfinished; the unique index lets only
	// one unfinished run exist per job and date. NULLs never collide.
	ClaimKey *string `gorm:"column:claim_key;size:96;uniqueIndex:ux_job_runs_claim_key" json:"-"`
}

func (JobRun) TableName() string { return "job_runs" }

// Claim returns the key an unfinished run of job for runDate holds.
func Claim(job string, runDate time.Time) string {
	return job + ":" + runDate.UTC().Format(time.DateOnly)
}

// Finished reports whether the run has been finalised.
func (r *JobRun) Finished() bool { return r.FinishedAt != nil }
