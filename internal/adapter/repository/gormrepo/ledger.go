package gormrepo

import (
	"context"

	"investment-accrual/internal/domain/ledger"

	"gorm.io/gorm"
)

// LedgerRepository only ever inserts into financial_ledger.
type LedgerRepository struct{ db *gorm.DB }

func NewLedgerRepository(db *gorm.DB) *LedgerRepository { return &LedgerRepository{db: db} }

func (r *LedgerRepository) Append(ctx context.Context, e *ledger.Entry) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *LedgerRepository) LastForUser(ctx context.Context, userID string) (*ledger.Entry, error) {
	return r.first(r.db.WithContext(ctx).Where("user_id = ?", userID))
}

func (r *LedgerRepository) PreviousForUser(ctx context.Context, userID string, seq uint64) (*ledger.Entry, error) {
	return r.first(r.db.WithContext(ctx).Where("user_id = ? AND seq < ?", userID, seq))
}

func (r *LedgerRepository) first(q *gorm.DB) (*ledger.Entry, error) {
	var out []ledger.Entry
	if err := q.Order("seq DESC").Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return &out[0], nil
}

func (r *LedgerRepository) ListByUser(ctx context.Context, userID string) ([]ledger.Entry, error) {
	var out []ledger.Entry
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("seq ASC").Find(&out).Error
	return out, err
}

func (r *LedgerRepository) ListRange(ctx context.Context, fromSeq, toSeq uint64, limit int) ([]ledger.Entry, error) {
	var out []ledger.Entry
	q := r.db.WithContext(ctx).Where("seq >= ?", fromSeq)
	if toSeq > 0 {
		q = q.Where("seq <= ?", toSeq)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Order("seq ASC").Find(&out).Error
	return out, err
}
