// Package bootstrap wires the process-wide dependencies shared by the binaries.
package bootstrap

import (
	"fmt"
	"strings"

	"investment-accrual/internal/adapter/notify"
	"investment-accrual/internal/adapter/repository/gormrepo"
	"investment-accrual/internal/config"
	"investment-accrual/internal/infrastructure/cache"
	"investment-accrual/internal/infrastructure/db"
	"investment-accrual/internal/infrastructure/logger"
	"investment-accrual/internal/infrastructure/metrics"
	"investment-accrual/internal/usecase/accrual"
	"investment-accrual/pkg/clock"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// LoadEnv loads the first .env found; missing files are fine.
func LoadEnv() {
	for _, p := range []string{".env", "../../.env"} {
		if err := godotenv.Load(p); err == nil {
			return
		}
	}
}

type App struct {
	Cfg      *config.Config
	Log      *zap.Logger
	DB       *gorm.DB
	Redis    *redis.Client
	Registry *prometheus.Registry
	UoW      *gormrepo.GormUoW
	Users    *gormrepo.UserRepository
	Runner   *accrual.Runner

	queue *asynq.Client
}

func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.New(logger.Config{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
	})
}

func OpenDB(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	return db.OpenGorm(db.Options{
		Driver:   cfg.DBDriver,
		DSN:      cfg.DSN(),
		LogLevel: GormLogLevel(cfg.GormLogMode),
		Log:      log,
	})
}

// New connects the stores and builds the accrual runner. Redis is optional:
// with REDIS_ADDR empty the run lock is skipped and completions are only logged.
func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	gdb, err := OpenDB(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	app := &App{Cfg: cfg, Log: log, DB: gdb, Registry: prometheus.NewRegistry()}
	app.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var (
		locker   accrual.Locker
		notifier accrual.Notifier = notify.NewLog(log)
	)
	if cfg.RedisAddr != "" {
		rdb, err := cache.OpenRedis(cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("open redis: %w", err)
		}
		app.Redis = rdb
		locker = cache.NewRunLock(rdb, "lock:", cfg.RunLockTTL)
		app.queue = asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		notifier = notify.NewAsynq(app.queue, cfg.MailQueue, log)
	} else {
		log.Warn("REDIS_ADDR empty: run lock and mail queue disabled")
	}

	app.UoW = gormrepo.NewGormUoW(gdb)
	app.Users = gormrepo.NewUserRepository(gdb)
	app.Runner = accrual.NewRunner(accrual.Deps{
		UoW:         app.UoW,
		Investments: gormrepo.NewInvestmentRepository(gdb),
		Runs:        gormrepo.NewJobRunRepository(gdb),
		Pinger:      app.UoW,
		Locker:      locker,
		Notifier:    notifier,
		Metrics:     metrics.NewAccrual(app.Registry, metrics.Config{ServiceName: cfg.ServiceName, Environment: cfg.Environment}),
		Log:         log,
		Clock:       clock.Real{},
	}, RunnerConfig(cfg))
	return app, nil
}

func RunnerConfig(cfg *config.Config) accrual.Config {
	return accrual.Config{
		BatchSize:       cfg.BatchSize,
		Workers:         cfg.Workers,
		MaxCatchUpDays:  cfg.MaxCatchUpDays,
		JobTimeout:      cfg.JobTimeout,
		CheckpointEvery: cfg.CheckpointEvery,
		StaleRunAfter:   cfg.StaleRunAfter,
	}
}

// Close waits for queued notifications and releases connections.
func (a *App) Close() {
	a.Runner.WaitNotifications()
	if a.queue != nil {
		_ = a.queue.Close()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.Log.Sync()
}

func GormLogLevel(s string) gormlogger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
