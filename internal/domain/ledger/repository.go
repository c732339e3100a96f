package ledger

import "context"

type Repository interface {
	Append(ctx context.Context, e *Entry) error
	// LastForUser returns the user's most recent entry, or nil when the chain is empty.
	LastForUser(ctx context.Context, userID string) (*Entry, error)
	// PreviousForUser returns the entry preceding seq in the user's chain, or nil.
	PreviousForUser(ctx context.Context, userID string, seq uint64) (*Entry, error)
	ListByUser(ctx context.Context, userID string) ([]Entry, error)
	// ListRange returns up to limit entries with fromSeq <= seq <= toSeq in
	// seq order. toSeq 0 leaves the range open; limit <= 0 means no limit.
	ListRange(ctx context.Context, fromSeq, toSeq uint64, limit int) ([]Entry, error)
}
