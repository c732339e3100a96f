package investment

import (
	"context"
	"time"
)

type Repository interface {
	// ListDue pages active investments with no return on or after day, ordered by id.
	ListDue(ctx context.Context, day time.Time, afterID uint64, limit int) ([]Investment, error)
	GetByID(ctx context.Context, id uint64) (*Investment, error)
	ListByIDs(ctx context.Context, ids []uint64) ([]Investment, error)
	// GetByIDForUpdate row-locks the investment within the current tx.
	GetByIDForUpdate(ctx context.Context, id uint64) (*Investment, error)
	ListActive(ctx context.Context) ([]Investment, error)
	SaveProgress(ctx context.Context, inv *Investment) error
	// MarkCompleted flips active → completed; ErrAlreadyCompleted when the row is not active.
	MarkCompleted(ctx context.Context, id uint64, at time.Time) error
	Create(ctx context.Context, inv *Investment) error
}

type ReturnRepository interface {
	// Insert returns ErrReturnAlreadyApplied on an (investment_id, return_date) conflict.
	Insert(ctx context.Context, r *Return) error
	ListByDate(ctx context.Context, day time.Time) ([]Return, error)
	ListByInvestment(ctx context.Context, investmentID uint64) ([]Return, error)
}

type CompletedRepository interface {
	// Insert returns ErrAlreadyCompleted when a row for the investment exists.
	Insert(ctx context.Context, c *Completed) error
	GetByInvestmentID(ctx context.Context, investmentID uint64) (*Completed, error)
}
