package metrics

import (
	"context"
	"errors"
	"strings"
	"time"

	"investment-accrual/internal/domain/investment"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	OutcomeApplied        = "applied"
	OutcomeCompleted      = "completed"
	OutcomeAlreadyApplied = "already_applied"
	OutcomeNotDue         = "not_due"
	OutcomeFailed         = "failed"
)

const (
	ReasonDeadlineExceeded     = "deadline_exceeded"
	ReasonLockTimeout          = "db_lock_timeout"
	ReasonSerializationFailure = "serialization_failure"
	ReasonDeadlock             = "deadlock"
	ReasonUniqueViolation      = "unique_violation"
	ReasonValidation           = "validation"
	ReasonReturnDrift          = "return_drift"
	ReasonUnknown              = "unknown"
)

type Config struct {
	ServiceName string
	Environment string
}

// Accrual holds the accrual job instruments.
type Accrual struct {
	runs           *prometheus.CounterVec
	runDuration    prometheus.Histogram
	investments    *prometheus.CounterVec
	failures       *prometheus.CounterVec
	appliedAmount  prometheus.Counter
	lastSuccessDay prometheus.Gauge
}

// NewAccrual registers the instruments on reg (prometheus.DefaultRegisterer when nil).
func NewAccrual(reg prometheus.Registerer, cfg Config) *Accrual {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	service := strings.TrimSpace(cfg.ServiceName)
	if service == "" {
		service = "investment-accrual"
	}
	env := strings.TrimSpace(cfg.Environment)
	if env == "" {
		env = "unknown"
	}
	labels := prometheus.Labels{"service": service, "env": env}

	m := &Accrual{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "accrual_job_runs_total",
			Help:        "Accrual job invocations by result.",
			ConstLabels: labels,
		}, []string{"result"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "accrual_job_duration_seconds",
			Help:        "Wall time of one accrual pass.",
			Buckets:     []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600, 1800},
			ConstLabels: labels,
		}),
		investments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "accrual_investments_total",
			Help:        "Investments handled by the accrual job by outcome.",
			ConstLabels: labels,
		}, []string{"outcome"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "accrual_investment_failures_total",
			Help:        "Per-investment accrual failures by reason.",
			ConstLabels: labels,
		}, []string{"reason"}),
		appliedAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "accrual_applied_amount_total",
			Help:        "Sum of profit returns applied.",
			ConstLabels: labels,
		}),
		lastSuccessDay: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "accrual_last_success_run_date_seconds",
			Help:        "Unix time of the run date of the last successful accrual pass.",
			ConstLabels: labels,
		}),
	}
	reg.MustRegister(m.runs, m.runDuration, m.investments, m.failures, m.appliedAmount, m.lastSuccessDay)
	return m
}

func (m *Accrual) ObserveRun(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(result).Inc()
	m.runDuration.Observe(d.Seconds())
}

func (m *Accrual) IncInvestment(outcome string) {
	if m == nil {
		return
	}
	m.investments.WithLabelValues(outcome).Inc()
}

func (m *Accrual) IncFailure(err error) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(ClassifyFailure(err)).Inc()
}

func (m *Accrual) AddApplied(amount float64) {
	if m == nil || amount <= 0 {
		return
	}
	m.appliedAmount.Add(amount)
}

func (m *Accrual) SetLastSuccess(runDate time.Time) {
	if m == nil {
		return
	}
	m.lastSuccessDay.Set(float64(runDate.Unix()))
}

// ClassifyFailure maps an accrual error to a low-cardinality reason label.
func ClassifyFailure(err error) string {
	if err == nil {
		return ReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ReasonDeadlineExceeded
	}
	if errors.Is(err, investment.ErrInvalidInvestment) {
		return ReasonValidation
	}
	if errors.Is(err, investment.ErrReturnDrift) {
		return ReasonReturnDrift
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ReasonUniqueViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "55P03":
			return ReasonLockTimeout
		case "40001":
			return ReasonSerializationFailure
		case "40P01":
			return ReasonDeadlock
		case "23505":
			return ReasonUniqueViolation
		}
	}
	return ReasonUnknown
}
