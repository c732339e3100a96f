package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"investment-accrual/internal/domain/jobrun"
	"investment-accrual/internal/usecase/accrual"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type AccrualRunner interface {
	Run(ctx context.Context, in accrual.RunInput) (*accrual.RunSummary, error)
	History(ctx context.Context, limit int) ([]jobrun.JobRun, error)
}

type AccrualHandler struct {
	runner AccrualRunner
	log    *zap.Logger
}

func NewAccrualHandler(runner AccrualRunner, log *zap.Logger) *AccrualHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AccrualHandler{runner: runner, log: log}
}

type runReq struct {
	RunDate string `json:"run_date" validate:"omitempty,isodate"`
	Force   bool   `json:"force"`
}

type historyReq struct {
	Limit int `query:"limit" validate:"omitempty,gte=1,lte=500"`
}

type runFailedResp struct {
	Error   string              `json:"error"`
	Summary *accrual.RunSummary `json:"summary,omitempty"`
}

// Run triggers a manual accrual pass. An empty body runs today.
func (h *AccrualHandler) Run(c echo.Context) error {
	var req runReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)})
	}
	in := accrual.RunInput{Source: jobrun.SourceManual, Force: req.Force}
	if req.RunDate != "" {
		in.RunDate, _ = time.Parse(time.DateOnly, req.RunDate)
	}
	return h.run(c, in)
}

// Cron is the scheduler's trigger; it always runs today.
func (h *AccrualHandler) Cron(c echo.Context) error {
	return h.run(c, accrual.RunInput{Source: jobrun.SourceCron})
}

func (h *AccrualHandler) run(c echo.Context, in accrual.RunInput) error {
	sum, err := h.runner.Run(c.Request().Context(), in)
	switch {
	case errors.Is(err, jobrun.ErrRunInProgress):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, accrual.ErrFutureRunDate):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case err != nil:
		h.log.Error("accrual run failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, runFailedResp{Error: err.Error(), Summary: sum})
	}
	return c.JSON(http.StatusOK, sum)
}

func (h *AccrualHandler) History(c echo.Context) error {
	var req historyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid query"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)})
	}
	runs, err := h.runner.History(c.Request().Context(), req.Limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{"runs": runs})
}
