package worker

import (
	"encoding/json"
	"fmt"
	"time"

	"investment-accrual/internal/domain/investment"

	"github.com/hibiken/asynq"
)

// Task Types
const (
	TypeInvestmentCompleted = "email:investment_completed"
)

type InvestmentCompletedPayload struct {
	InvestmentID    uint64    `json:"investment_id"`
	UserID          string    `json:"user_id"`
	TransactionID   string    `json:"transaction_id"`
	PlanName        string    `json:"plan_name"`
	PrincipalAmount string    `json:"principal_amount"`
	TotalEarned     string    `json:"total_earned"`
	CompletedAt     time.Time `json:"completed_at"`
}

func PayloadFromCompleted(c investment.Completed) InvestmentCompletedPayload {
	return InvestmentCompletedPayload{
		InvestmentID:    c.InvestmentID,
		UserID:          c.UserID,
		TransactionID:   c.TransactionID,
		PlanName:        c.PlanName,
		PrincipalAmount: c.PrincipalAmount.StringFixed(2),
		TotalEarned:     c.TotalEarned.StringFixed(2),
		CompletedAt:     c.CompletedAt,
	}
}

// NewInvestmentCompletedTask carries a task id so a completion is mailed once
// even if it is enqueued again.
func NewInvestmentCompletedTask(p InvestmentCompletedPayload) (*asynq.Task, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeInvestmentCompleted, data,
		asynq.TaskID(fmt.Sprintf("investment-completed:%d", p.InvestmentID)),
		asynq.MaxRetry(5),
	), nil
}
