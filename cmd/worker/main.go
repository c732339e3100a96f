package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"investment-accrual/internal/bootstrap"
	"investment-accrual/internal/config"
	"investment-accrual/internal/domain/jobrun"
	"investment-accrual/internal/usecase/accrual"
	"investment-accrual/internal/worker"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(cfg.CronSpec, func() { runDaily(ctx, app.Runner, logger) }); err != nil {
		logger.Fatal("invalid CRON_SPEC", zap.String("spec", cfg.CronSpec), zap.Error(err))
	}
	c.Start()
	logger.Info("daily accrual scheduled", zap.String("spec", cfg.CronSpec))

	var srv *asynq.Server
	if cfg.RedisAddr != "" && cfg.SMTPHost != "" {
		sender := worker.NewSMTPSender(worker.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.SMTPFrom,
		})
		w := worker.NewWorker(app.Users, sender, logger)
		srv = worker.NewServer(asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB}, cfg.MailConcurrency)
		if err := srv.Start(w.Mux()); err != nil {
			logger.Fatal("asynq server", zap.Error(err))
		}
		logger.Info("mail worker started", zap.String("smtp", cfg.SMTPAddr()))
	} else {
		logger.Warn("mail worker disabled: REDIS_ADDR or SMTP_HOST empty")
	}

	<-ctx.Done()
	logger.Info("shutting down")
	<-c.Stop().Done()
	if srv != nil {
		srv.Shutdown()
	}
}

func runDaily(ctx context.Context, r *accrual.Runner, logger *zap.Logger) {
	sum, err := r.Run(ctx, accrual.RunInput{Source: jobrun.SourceCron})
	switch {
	case errors.Is(err, jobrun.ErrRunInProgress):
		logger.Info("daily accrual already running elsewhere")
	case err != nil:
		logger.Error("daily accrual failed", zap.Error(err))
	default:
		logger.Info("daily accrual done",
			zap.String("run_id", sum.RunID),
			zap.Bool("skipped", sum.Skipped),
			zap.Int("processed", sum.Processed),
			zap.Int("failed", sum.Failed))
	}
}
