package main

import (
	"log"

	"go.uber.org/zap"

	"investment-accrual/internal/bootstrap"
	"investment-accrual/internal/config"
	"investment-accrual/internal/infrastructure/db"
)

func main() {
	bootstrap.LoadEnv()
	cfg := config.Load()
	logger, err := bootstrap.NewLogger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	gdb, err := bootstrap.OpenDB(cfg, logger)
	if err != nil {
		logger.Fatal("open db", zap.Error(err))
	}
	if err := db.AutoMigrate(gdb); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}
	logger.Info("migration complete", zap.Int("tables", len(db.Models())))
}
