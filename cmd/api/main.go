package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	httpadp "investment-accrual/internal/adapter/http"
	mw "investment-accrual/internal/adapter/middleware"
	"investment-accrual/internal/adapter/repository/gormrepo"
	"investment-accrual/internal/bootstrap"
	"investment-accrual/internal/config"
	ledgeruc "investment-accrual/internal/usecase/ledger"
	"investment-accrual/internal/usecase/reconcile"
	"investment-accrual/pkg/clock"
)

func main() {
	bootstrap.LoadEnv()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := bootstrap.NewLogger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	app, err := bootstrap.New(cfg, logger)
	if err != nil {
		logger.Fatal("bootstrap", zap.Error(err))
	}
	defer app.Close()

	investments := gormrepo.NewInvestmentRepository(app.DB)
	verifier := ledgeruc.NewVerifier(gormrepo.NewLedgerRepository(app.DB))
	adjuster := ledgeruc.NewAppender(clock.Real{}, app.UoW)
	recon := reconcile.NewUsecase(investments, gormrepo.NewReturnRepository(app.DB))

	deps := httpadp.RouterDeps{
		Health:     httpadp.NewHandler(app.UoW),
		Accrual:    httpadp.NewAccrualHandler(app.Runner, logger),
		Ledger:     httpadp.NewLedgerHandler(verifier, recon, adjuster),
		Gatherer:   app.Registry,
		AdminToken: cfg.AdminToken,
		CronSecret: cfg.CronSecret,
	}
	if app.Redis != nil {
		deps.Idempotency = mw.Idempotency(app.Redis, cfg.IdempotencyTTL(), logger)
	}
	e := httpadp.NewRouter(deps)
	e.Use(middleware.Logger())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := ":" + cfg.AppPort
	go func() {
		logger.Info("listening", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
}
