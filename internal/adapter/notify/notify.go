package notify

import (
	"context"
	"errors"

	"investment-accrual/internal/domain/investment"
	"investment-accrual/internal/worker"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Enqueuer is the part of *asynq.Client the notifier needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Asynq queues a completion mail task.
type Asynq struct {
	client Enqueuer
	queue  string
	log    *zap.Logger
}

func NewAsynq(client Enqueuer, queue string, log *zap.Logger) *Asynq {
	if queue == "" {
		queue = "default"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Asynq{client: client, queue: queue, log: log.Named("notify")}
}

func (n *Asynq) InvestmentCompleted(ctx context.Context, c investment.Completed) error {
	task, err := worker.NewInvestmentCompletedTask(worker.PayloadFromCompleted(c))
	if err != nil {
		return err
	}
	info, err := n.client.EnqueueContext(ctx, task, asynq.Queue(n.queue))
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return err
	}
	n.log.Debug("completion mail queued", zap.String("task_id", info.ID), zap.Uint64("investment_id", c.InvestmentID))
	return nil
}

// Log only writes completions to the log; used when no queue is configured.
type Log struct{ log *zap.Logger }

func NewLog(log *zap.Logger) *Log {
	if log == nil {
		log = zap.NewNop()
	}
	return &Log{log: log.Named("notify")}
}

func (n *Log) InvestmentCompleted(_ context.Context, c investment.Completed) error {
	n.log.Info("investment completed",
		zap.Uint64("investment_id", c.InvestmentID),
		zap.String("user_id", c.UserID),
		zap.String("principal", c.PrincipalAmount.StringFixed(2)),
		zap.String("total_earned", c.TotalEarned.StringFixed(2)))
	return nil
}
