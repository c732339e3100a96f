package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	AppPort     string
	Environment string
	ServiceName string

	LogLevel    string
	LogFormat   string
	GormLogMode string

	DBDriver string
	DBHost   string
	DBPort   string
	DBName   string
	DBUser   string
	DBPass   string
	DBSSL    string

	RedisAddr string
	RedisDB   int

	IdempTTLSecs int

	AdminToken string
	CronSecret string
	CronSpec   string

	BatchSize       int
	Workers         int
	MaxCatchUpDays  int
	JobTimeout      time.Duration
	CheckpointEvery int
	StaleRunAfter   time.Duration
	RunLockTTL      time.Duration

	MailQueue       string
	MailConcurrency int
	SMTPHost        string
	SMTPPort        int
	SMTPUser        string
	SMTPPass        string
	SMTPFrom        string
}

func defaults(v *viper.Viper) {
	v.SetDefault("app_port", "8080")
	v.SetDefault("app_env", "development")
	v.SetDefault("service_name", "investment-accrual")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("gorm_log_mode", "warn")

	v.SetDefault("db_driver", "postgres")
	v.SetDefault("db_host", "postgres")
	v.SetDefault("db_name", "investments")
	v.SetDefault("db_user", "investments")
	v.SetDefault("db_pass", "investments")
	v.SetDefault("db_sslmode", "disable")

	v.SetDefault("redis_addr", "redis:6379")
	v.SetDefault("redis_db", 0)
	v.SetDefault("idempotency_ttl_seconds", 300)

	v.SetDefault("cron_spec", "5 0 * * *")

	v.SetDefault("accrual_batch_size", 200)
	v.SetDefault("accrual_workers", 4)
	v.SetDefault("accrual_max_catch_up_days", 7)
	v.SetDefault("accrual_job_timeout", "30m")
	v.SetDefault("accrual_checkpoint_every", 100)
	v.SetDefault("accrual_stale_run_after", "2h")
	v.SetDefault("accrual_lock_ttl", "1h")

	v.SetDefault("mail_queue", "default")
	v.SetDefault("mail_concurrency", 5)
	v.SetDefault("smtp_port", 587)
	v.SetDefault("smtp_from", "no-reply@investments.local")
}

// Load reads the process environment. A .env file, if any, is loaded by the
// binaries before this is called.
func Load() *Config {
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	defaults(v)
	v.AutomaticEnv()
	return v
}

func FromViper(v *viper.Viper) *Config {
	c := &Config{
		AppPort:     v.GetString("app_port"),
		Environment: v.GetString("app_env"),
		ServiceName: v.GetString("service_name"),
		LogLevel:    v.GetString("log_level"),
		LogFormat:   v.GetString("log_format"),
		GormLogMode: v.GetString("gorm_log_mode"),

		DBDriver: strings.ToLower(v.GetString("db_driver")),
		DBHost:   v.GetString("db_host"),
		DBPort:   v.GetString("db_port"),
		DBName:   v.GetString("db_name"),
		DBUser:   v.GetString("db_user"),
		DBPass:   v.GetString("db_pass"),
		DBSSL:    v.GetString("db_sslmode"),

		RedisAddr:    v.GetString("redis_addr"),
		RedisDB:      v.GetInt("redis_db"),
		IdempTTLSecs: v.GetInt("idempotency_ttl_seconds"),

		AdminToken: v.GetString("admin_token"),
		CronSecret: v.GetString("cron_secret"),
		CronSpec:   v.GetString("cron_spec"),

		BatchSize:       v.GetInt("accrual_batch_size"),
		Workers:         v.GetInt("accrual_workers"),
		MaxCatchUpDays:  v.GetInt("accrual_max_catch_up_days"),
		JobTimeout:      v.GetDuration("accrual_job_timeout"),
		CheckpointEvery: v.GetInt("accrual_checkpoint_every"),
		StaleRunAfter:   v.GetDuration("accrual_stale_run_after"),
		RunLockTTL:      v.GetDuration("accrual_lock_ttl"),

		MailQueue:       v.GetString("mail_queue"),
		MailConcurrency: v.GetInt("mail_concurrency"),
		SMTPHost:        v.GetString("smtp_host"),
		SMTPPort:        v.GetInt("smtp_port"),
		SMTPUser:        v.GetString("smtp_user"),
		SMTPPass:        v.GetString("smtp_pass"),
		SMTPFrom:        v.GetString("smtp_from"),
	}
	if c.DBPort == "" {
		c.DBPort = defaultPort(c.DBDriver)
	}
	return c
}

func defaultPort(driver string) string {
	if driver == "mysql" {
		return "3306"
	}
	return "5432"
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case "postgres", "mysql":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.DBHost == "" || c.DBPort == "" || c.DBName == "" || c.DBUser == "" {
		return errors.New("missing database config (DB_HOST/PORT/NAME/USER)")
	}
	// ensure port is valid
	if _, err := net.LookupPort("tcp", c.DBPort); err != nil {
		return fmt.Errorf("invalid DB_PORT %q: %w", c.DBPort, err)
	}
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	if c.AdminToken == "" {
		return errors.New("missing ADMIN_TOKEN")
	}
	if c.MaxCatchUpDays < 0 {
		return fmt.Errorf("ACCRUAL_MAX_CATCH_UP_DAYS must be >= 0, got %d", c.MaxCatchUpDays)
	}
	if c.JobTimeout < 0 {
		return fmt.Errorf("ACCRUAL_JOB_TIMEOUT must be >= 0, got %s", c.JobTimeout)
	}
	return nil
}

func (c *Config) dbAddr() string { return net.JoinHostPort(c.DBHost, c.DBPort) }

// DSN returns the connection string for the configured driver.
func (c *Config) DSN() string {
	if c.DBDriver == "mysql" {
		return c.MySQLDSN()
	}
	return c.PostgresDSN()
}

func (c *Config) MySQLDSN() string {
	// parseTime needed for DATETIME; loc=UTC keeps return dates on the UTC day
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&charset=utf8mb4,utf8",
		c.DBUser, c.DBPass, c.dbAddr(), c.DBName)
}

func (c *Config) PostgresDSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.DBUser, c.DBPass),
		Host:   c.dbAddr(),
		Path:   "/" + c.DBName,
	}
	q := url.Values{}
	q.Set("sslmode", orString(c.DBSSL, "disable"))
	q.Set("TimeZone", "UTC")
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Config) IdempotencyTTL() time.Duration {
	return time.Duration(c.IdempTTLSecs) * time.Second
}

func (c *Config) SMTPAddr() string {
	return net.JoinHostPort(c.SMTPHost, strconv.Itoa(c.SMTPPort))
}

func orString(v, d string) string {
	if v == "" {
		return d
	}
	return v
}
