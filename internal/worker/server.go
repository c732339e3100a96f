package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"investment-accrual/internal/domain/user"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

type Worker struct {
	users user.Repository
	mail  Sender
	log   *zap.Logger
}

func NewWorker(users user.Repository, mail Sender, log *zap.Logger) *Worker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Worker{users: users, mail: mail, log: log.Named("worker")}
}

func (w *Worker) HandleInvestmentCompleted(ctx context.Context, t *asynq.Task) error {
	var p InvestmentCompletedPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	u, err := w.users.GetByID(ctx, p.UserID)
	if errors.Is(err, user.ErrNotFound) {
		return fmt.Errorf("user %s: %w", p.UserID, asynq.SkipRetry)
	}
	if err != nil {
		return err
	}
	if u.Email == "" {
		w.log.Info("user has no email, dropping completion mail", zap.String("user_id", u.ID))
		return nil
	}

	body, err := renderCompleted(u.Name, p)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if err := w.mail.Send(ctx, []string{u.Email}, "Your investment has matured", body); err != nil {
		return fmt.Errorf("send completion mail: %w", err)
	}
	w.log.Info("completion mail sent",
		zap.Uint64("investment_id", p.InvestmentID),
		zap.String("user_id", p.UserID))
	return nil
}

func (w *Worker) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeInvestmentCompleted, w.HandleInvestmentCompleted)
	return mux
}

func NewServer(redisOpt asynq.RedisClientOpt, concurrency int) *asynq.Server {
	if concurrency <= 0 {
		concurrency = 5
	}
	return asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			"critical": 6,
			"default":  3,
			"low":      1,
		},
	})
}
