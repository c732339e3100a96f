package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	domainLedger "investment-accrual/internal/domain/ledger"
	"investment-accrual/internal/domain/user"
	"investment-accrual/internal/usecase/ledger"
	"investment-accrual/internal/usecase/reconcile"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type ChainVerifier interface {
	VerifyUser(ctx context.Context, userID string) (*ledger.VerifyReport, error)
	VerifyRange(ctx context.Context, fromSeq, toSeq uint64) (*ledger.VerifyReport, error)
}

type Reconciler interface {
	Report(ctx context.Context, day time.Time) (*reconcile.Report, error)
}

type Adjuster interface {
	Adjust(ctx context.Context, in ledger.AdjustmentInput) (*ledger.EntryDTO, error)
}

type LedgerHandler struct {
	verifier   ChainVerifier
	reconciler Reconciler
	adjuster   Adjuster
}

func NewLedgerHandler(v ChainVerifier, r Reconciler, a Adjuster) *LedgerHandler {
	return &LedgerHandler{verifier: v, reconciler: r, adjuster: a}
}

type verifyReq struct {
	UserID  string `query:"user_id" validate:"omitempty,max=64"`
	FromSeq string `query:"from_seq" validate:"omitempty,number"`
	ToSeq   string `query:"to_seq" validate:"omitempty,number"`
}

type adjustReq struct {
	UserID    string          `param:"user_id" validate:"required,max=64"`
	Type      string          `json:"type" validate:"required,oneof=deposit withdrawal"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference" validate:"max=64"`
	Note      string          `json:"note" validate:"max=255"`
}

type reconcileReq struct {
	Date string `query:"date" validate:"required,isodate"`
}

// Verify checks one user's chain, or every chain over a seq range.
func (h *LedgerHandler) Verify(c echo.Context) error {
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid query"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)})
	}
	if req.UserID == "" && req.FromSeq == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "user_id or from_seq is required"})
	}

	ctx := c.Request().Context()
	var (
		rep *ledger.VerifyReport
		err error
	)
	if req.UserID != "" {
		rep, err = h.verifier.VerifyUser(ctx, req.UserID)
	} else {
		from, _ := strconv.ParseUint(req.FromSeq, 10, 64)
		var to uint64
		if req.ToSeq != "" {
			to, _ = strconv.ParseUint(req.ToSeq, 10, 64)
		}
		if to != 0 && to < from {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "to_seq must not be below from_seq"})
		}
		rep, err = h.verifier.VerifyRange(ctx, from, to)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, rep)
}

func (h *LedgerHandler) Reconcile(c echo.Context) error {
	var req reconcileReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid query"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)})
	}
	day, _ := time.Parse(time.DateOnly, req.Date)
	rep, err := h.reconciler.Report(c.Request().Context(), day)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, rep)
}

// Adjust posts a manual deposit or withdrawal to a user's chain.
func (h *LedgerHandler) Adjust(c echo.Context) error {
	var req adjustReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation failed", Details: ToFieldErrors(err)})
	}
	if !req.Amount.IsPositive() || req.Amount.Exponent() < -2 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation failed",
			Details: []FieldError{{Field: "Amount", Message: "must be positive with at most 2 decimal places"}},
		})
	}

	dto, err := h.adjuster.Adjust(c.Request().Context(), ledger.AdjustmentInput{
		UserID:    req.UserID,
		Type:      req.Type,
		Amount:    req.Amount,
		Reference: req.Reference,
		Note:      req.Note,
	})
	switch {
	case errors.Is(err, user.ErrNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, user.ErrInsufficientFunds):
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domainLedger.ErrInvalidEntry):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusCreated, dto)
}
