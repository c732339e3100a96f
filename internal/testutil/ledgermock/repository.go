package ledgermock

import (
	"context"
	"sync"

	domain "investment-accrual/internal/domain/ledger"
)

var _ domain.Repository = (*Memory)(nil)

// Memory is an in-process ledger store. Append assigns increasing seqs;
// Entries exposes the rows so tests can tamper with them.
type Memory struct {
	mu        sync.Mutex
	Entries   []domain.Entry
	AppendErr error
	// RangeCalls counts ListRange queries.
	RangeCalls int
}

func (m *Memory) Append(_ context.Context, e *domain.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AppendErr != nil {
		return m.AppendErr
	}
	e.Seq = uint64(len(m.Entries) + 1)
	m.Entries = append(m.Entries, *e)
	return nil
}

func (m *Memory) LastForUser(ctx context.Context, userID string) (*domain.Entry, error) {
	return m.PreviousForUser(ctx, userID, ^uint64(0))
}

func (m *Memory) PreviousForUser(_ context.Context, userID string, seq uint64) (*domain.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.Entries) - 1; i >= 0; i-- {
		e := m.Entries[i]
		if e.UserID == userID && e.Seq < seq {
			return &e, nil
		}
	}
	return nil, nil
}

func (m *Memory) ListByUser(_ context.Context, userID string) ([]domain.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Entry
	for _, e := range m.Entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *Memory) ListRange(_ context.Context, fromSeq, toSeq uint64, limit int) ([]domain.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RangeCalls++
	var out []domain.Entry
	for _, e := range m.Entries {
		if limit > 0 && len(out) == limit {
			break
		}
		if e.Seq >= fromSeq && (toSeq == 0 || e.Seq <= toSeq) {
			out = append(out, e)
		}
	}
	return out, nil
}
