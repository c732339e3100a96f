package db

import (
	"fmt"
	"time"

	"investment-accrual/internal/domain/investment"
	"investment-accrual/internal/domain/jobrun"
	"investment-accrual/internal/domain/ledger"
	"investment-accrual/internal/domain/user"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

type Options struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	LogLevel        logger.LogLevel
	Log             *zap.Logger
}

func dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "", DriverPostgres:
		return postgres.Open(dsn), nil
	case DriverMySQL:
		return mysql.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}
}

func OpenGorm(opts Options) (*gorm.DB, error) {
	dial, err := dialector(opts.Driver, opts.DSN)
	if err != nil {
		return nil, err
	}
	db, err := OpenGormWithDialector(dial, gormConfig(opts))
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(orInt(opts.MaxOpenConns, 30))
	sqlDB.SetMaxIdleConns(orInt(opts.MaxIdleConns, 10))
	sqlDB.SetConnMaxLifetime(orDuration(opts.ConnMaxLifetime, 30*time.Minute))
	sqlDB.SetConnMaxIdleTime(orDuration(opts.ConnMaxIdleTime, 10*time.Minute))

	if opts.Log != nil {
		opts.Log.Info("gorm: connected", zap.String("driver", orString(opts.Driver, DriverPostgres)))
	}
	return db, nil
}

// OpenGormWithDialector opens and pings; split out so tests can hand in a
// dialector over sqlmock or sqlite.
func OpenGormWithDialector(dial gorm.Dialector, cfgs ...*gorm.Config) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
	if len(cfgs) > 0 && cfgs[0] != nil {
		cfg = cfgs[0]
	}
	// the explicit ping below is the only one
	cfg.DisableAutomaticPing = true
	db, err := gorm.Open(dial, cfg)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

func gormConfig(opts Options) *gorm.Config {
	level := opts.LogLevel
	if level == 0 {
		level = logger.Warn
	}
	if opts.Log == nil {
		return &gorm.Config{Logger: logger.Default.LogMode(level)}
	}
	l := logger.New(zap.NewStdLog(opts.Log.Named("gorm")), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
	return &gorm.Config{Logger: l, NowFunc: func() time.Time { return time.Now().UTC() }}
}

// Models lists every table the service owns or depends on, in FK order.
func Models() []any {
	return []any{
		&user.User{},
		&investment.Investment{},
		&investment.Return{},
		&investment.Completed{},
		&ledger.Entry{},
		&jobrun.JobRun{},
	}
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

func orInt(v, d int) int {
	if v > 0 {
		return v
	}
	return d
}

func orDuration(v, d time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return d
}

func orString(v, d string) string {
	if v != "" {
		return v
	}
	return d
}
