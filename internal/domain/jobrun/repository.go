package jobrun

import (
	"context"
	"time"
)

type Repository interface {
	// Create inserts r. ErrRunInProgress when another unfinished run holds
	// r.ClaimKey.
	Create(ctx context.Context, r *JobRun) error
	// ReleaseClaim frees the claim of an abandoned run so it can be taken over.
	ReleaseClaim(ctx context.Context, id uint64) error
	// Save persists counters, meta and finalisation fields.
	Save(ctx context.Context, r *JobRun) error
	// LatestForDate returns the run of job for runDate to guard on: a
	// successful one if any, else the newest. ErrNotFound when none exist.
	LatestForDate(ctx context.Context, job string, runDate time.Time) (*JobRun, error)
	List(ctx context.Context, job string, limit int) ([]JobRun, error)
}
