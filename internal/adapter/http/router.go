package http

import (
	"investment-accrual/internal/adapter/middleware"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterDeps struct {
	Health      *Handler
	Accrual     *AccrualHandler
	Ledger      *LedgerHandler
	Gatherer    prometheus.Gatherer
	AdminToken  string
	CronSecret  string
	Idempotency echo.MiddlewareFunc
}

// NewRouter builds the echo instance with every route mounted.
func NewRouter(d RouterDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	e.GET("/health", d.Health.Health)
	if d.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	admin := e.Group("/admin", middleware.AdminAuth(d.AdminToken))
	var runMW []echo.MiddlewareFunc
	if d.Idempotency != nil {
		runMW = append(runMW, d.Idempotency)
	}
	admin.POST("/accruals/run", d.Accrual.Run, runMW...)
	admin.POST("/users/:user_id/adjustments", d.Ledger.Adjust, runMW...)
	admin.GET("/accruals/reconcile", d.Ledger.Reconcile)
	admin.GET("/ledger/verify", d.Ledger.Verify)
	admin.GET("/job-runs", d.Accrual.History)

	e.POST("/cron/accruals", d.Accrual.Cron, middleware.CronSecret(d.CronSecret))
	return e
}
