package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"investment-accrual/internal/domain/investment"
	"investment-accrual/internal/worker"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "t1"}, nil
}

var done = investment.Completed{
	InvestmentID:    7,
	UserID:          "u1",
	PrincipalAmount: decimal.NewFromInt(500),
	TotalEarned:     decimal.RequireFromString("62.5"),
}

func TestAsynq_EnqueuesCompletionTask(t *testing.T) {
	q := &fakeEnqueuer{}
	n := NewAsynq(q, "", nil)

	require.NoError(t, n.InvestmentCompleted(context.Background(), done))
	require.Len(t, q.tasks, 1)
	assert.Equal(t, worker.TypeInvestmentCompleted, q.tasks[0].Type())

	var p worker.InvestmentCompletedPayload
	require.NoError(t, json.Unmarshal(q.tasks[0].Payload(), &p))
	assert.Equal(t, uint64(7), p.InvestmentID)
	assert.Equal(t, "62.50", p.TotalEarned)
}

func TestAsynq_DuplicateTaskIsNotAnError(t *testing.T) {
	n := NewAsynq(&fakeEnqueuer{err: asynq.ErrTaskIDConflict}, "low", nil)
	assert.NoError(t, n.InvestmentCompleted(context.Background(), done))

	boom := errors.New("redis down")
	n = NewAsynq(&fakeEnqueuer{err: boom}, "low", nil)
	assert.ErrorIs(t, n.InvestmentCompleted(context.Background(), done), boom)
}

func TestLog_WritesCompletion(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := NewLog(zap.New(core))

	require.NoError(t, n.InvestmentCompleted(context.Background(), done))
	entries := logs.FilterMessage("investment completed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "500.00", entries[0].ContextMap()["principal"])
}
