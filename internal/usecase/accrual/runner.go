package accrual

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"investment-accrual/internal/domain/investment"
	"investment-accrual/internal/domain/jobrun"
	domainLedger "investment-accrual/internal/domain/ledger"
	"investment-accrual/internal/domain/uow"
	"investment-accrual/internal/domain/user"
	"investment-accrual/internal/infrastructure/cache"
	"investment-accrual/internal/infrastructure/metrics"
	ledgeruc "investment-accrual/internal/usecase/ledger"
	"investment-accrual/pkg/clock"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	maxRecordedFailures = 200
	maxErrorText        = 4000
	pingTimeout         = 5 * time.Second
	notifyTimeout       = 30 * time.Second
)

type Config struct {
	BatchSize       int
	Workers         int
	MaxCatchUpDays  int
	JobTimeout      time.Duration
	CheckpointEvery int
	StaleRunAfter   time.Duration
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = 200
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.CheckpointEvery <= 0 {
		c.CheckpointEvery = 100
	}
	if c.StaleRunAfter <= 0 {
		c.StaleRunAfter = 2 * time.Hour
	}
	return c
}

// Pinger reports whether the store is reachable at all.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Locker is an optional cross-process run lock.
type Locker interface {
	Acquire(ctx context.Context, key string) (func(context.Context) error, error)
}

// Notifier receives completions after their transaction committed.
type Notifier interface {
	InvestmentCompleted(ctx context.Context, c investment.Completed) error
}

type Deps struct {
	UoW         uow.UnitOfWork
	Investments investment.Repository
	Runs        jobrun.Repository
	Pinger      Pinger
	Locker      Locker
	Notifier    Notifier
	Metrics     *metrics.Accrual
	Log         *zap.Logger
	Clock       clock.Clock
}

type Runner struct {
	cfg         Config
	uow         uow.UnitOfWork
	investments investment.Repository
	runs        jobrun.Repository
	pinger      Pinger
	locker      Locker
	notifier    Notifier
	metrics     *metrics.Accrual
	log         *zap.Logger
	clock       clock.Clock
	appender    *ledgeruc.Appender
	migrator    *Migrator
	notifyWG    sync.WaitGroup
}

func NewRunner(d Deps, cfg Config) *Runner {
	if d.Clock == nil {
		d.Clock = clock.Real{}
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	appender := ledgeruc.NewAppender(d.Clock, d.UoW)
	return &Runner{
		cfg:         cfg.withDefaults(),
		uow:         d.UoW,
		investments: d.Investments,
		runs:        d.Runs,
		pinger:      d.Pinger,
		locker:      d.Locker,
		notifier:    d.Notifier,
		metrics:     d.Metrics,
		log:         d.Log.Named("accrual"),
		clock:       d.Clock,
		appender:    appender,
		migrator:    NewMigrator(appender, d.Clock),
	}
}

// WaitNotifications blocks until dispatched completion notifications return.
func (r *Runner) WaitNotifications() { r.notifyWG.Wait() }

// History lists recent runs of the accrual job, newest first.
func (r *Runner) History(ctx context.Context, limit int) ([]jobrun.JobRun, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return r.runs.List(ctx, jobrun.JobDailyAccrual, limit)
}

// Run executes one accrual pass for in.RunDate.
func (r *Runner) Run(ctx context.Context, in RunInput) (*RunSummary, error) {
	started := r.clock.Now()
	today := clock.Day(started)
	runDate := today
	if !in.RunDate.IsZero() {
		runDate = clock.Day(in.RunDate)
	}
	if runDate.After(today) {
		return nil, fmt.Errorf("%w: %s > %s", ErrFutureRunDate, runDate.Format(time.DateOnly), today.Format(time.DateOnly))
	}
	if in.Source == "" {
		in.Source = jobrun.SourceManual
	}
	dateKey := runDate.Format(time.DateOnly)
	claim := jobrun.Claim(jobrun.JobDailyAccrual, runDate)
	log := r.log.With(zap.String("run_date", dateKey), zap.String("source", string(in.Source)))

	if r.locker != nil {
		release, err := r.locker.Acquire(ctx, claim)
		switch {
		case errors.Is(err, cache.ErrLockHeld):
			return nil, fmt.Errorf("%w: lock held for %s", jobrun.ErrRunInProgress, dateKey)
		case err != nil:
			// the job_runs guard and the return key still hold without it
			log.Warn("run lock unavailable, continuing without it", zap.Error(err))
		default:
			defer func() {
				if err := release(context.WithoutCancel(ctx)); err != nil {
					log.Warn("release run lock", zap.Error(err))
				}
			}()
		}
	}

	prev, err := r.runs.LatestForDate(ctx, jobrun.JobDailyAccrual, runDate)
	switch {
	case errors.Is(err, jobrun.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("job run guard: %w", err)
	case prev.Success && !in.Force:
		log.Info("run date already succeeded, skipping", zap.String("previous_run_id", prev.RunID))
		r.metrics.ObserveRun("skipped", r.clock.Now().Sub(started))
		return &RunSummary{
			RunID:        prev.RunID,
			RunDate:      dateKey,
			Skipped:      true,
			TotalApplied: decimal.Zero,
			Errors:       []InvestmentError{},
		}, nil
	case !prev.Finished() && started.Sub(prev.StartedAt) < r.cfg.StaleRunAfter:
		return nil, fmt.Errorf("%w: run %s started at %s", jobrun.ErrRunInProgress, prev.RunID, prev.StartedAt.Format(time.RFC3339))
	case !prev.Finished():
		log.Warn("taking over stale unfinished run", zap.String("previous_run_id", prev.RunID))
		if err := r.runs.ReleaseClaim(ctx, prev.ID); err != nil {
			return nil, fmt.Errorf("release stale run %s: %w", prev.RunID, err)
		}
	}

	run := &jobrun.JobRun{
		RunID:        uuid.NewString(),
		JobName:      jobrun.JobDailyAccrual,
		RunDate:      runDate,
		Source:       in.Source,
		StartedAt:    started,
		TotalApplied: decimal.Zero,
		ClaimKey:     &claim,
	}
	st := &runState{
		meta: runMeta{
			MaxCatchUpDays: r.cfg.MaxCatchUpDays,
			BatchSize:      r.cfg.BatchSize,
			Workers:        r.cfg.Workers,
			Force:          in.Force,
		},
		total: decimal.Zero,
	}
	run.Meta = st.metaJSON()
	if err := r.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("create job run: %w", err)
	}
	log = log.With(zap.String("run_id", run.RunID))
	log.Info("accrual run started")

	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if r.cfg.JobTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, r.cfg.JobTimeout)
	}
	defer cancel()

	fatal := r.processAll(runCtx, run, runDate, st, log)
	timedOut := fatal == nil && runCtx.Err() != nil

	sum := r.finalize(context.WithoutCancel(ctx), run, st, fatal, timedOut, log)
	sum.RunDate = dateKey

	result := "success"
	switch {
	case fatal != nil:
		result = "failed"
	case timedOut:
		result = "timeout"
	case sum.Failed > 0:
		result = "partial"
	default:
		r.metrics.SetLastSuccess(runDate)
	}
	r.metrics.ObserveRun(result, r.clock.Now().Sub(started))

	if fatal != nil {
		return sum, fatal
	}
	return sum, nil
}

// processAll pages the candidates by id and fans each page out to the
// worker pool. A non-nil return aborts the run.
func (r *Runner) processAll(ctx context.Context, run *jobrun.JobRun, runDate time.Time, st *runState, log *zap.Logger) error {
	var afterID uint64
	for ctx.Err() == nil {
		batch, err := r.investments.ListDue(ctx, runDate, afterID, r.cfg.BatchSize)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("load due investments: %w", err)
		}
		if len(batch) == 0 {
			return nil
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.cfg.Workers)
		for i := range batch {
			inv := batch[i]
			g.Go(func() error {
				return r.handle(gctx, run, inv, runDate, st, log)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		afterID = batch[len(batch)-1].ID
		st.mu.Lock()
		st.meta.LastID = afterID
		st.mu.Unlock()
		if len(batch) < r.cfg.BatchSize {
			return nil
		}
	}
	return nil
}

func (r *Runner) handle(ctx context.Context, run *jobrun.JobRun, inv investment.Investment, runDate time.Time, st *runState, log *zap.Logger) error {
	if ctx.Err() != nil {
		return nil
	}
	out, completed, err := r.process(ctx, inv, runDate, log)
	if err != nil {
		r.metrics.IncInvestment(metrics.OutcomeFailed)
		r.metrics.IncFailure(err)
		reason := metrics.ClassifyFailure(err)
		log.Warn("investment accrual failed",
			zap.Uint64("investment_id", inv.ID),
			zap.String("user_id", inv.UserID),
			zap.String("reason", reason),
			zap.Error(err))
		r.checkpointIfDue(ctx, run, st, st.fail(inv, reason, err), log)

		if ctx.Err() == nil && r.pinger != nil {
			pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pingTimeout)
			defer cancel()
			if perr := r.pinger.Ping(pctx); perr != nil {
				return fmt.Errorf("store unreachable after investment %d failed: %w", inv.ID, perr)
			}
		}
		return nil
	}

	switch {
	case out.already:
		r.metrics.IncInvestment(metrics.OutcomeAlreadyApplied)
	case out.notDue:
		r.metrics.IncInvestment(metrics.OutcomeNotDue)
	case out.completed:
		r.metrics.IncInvestment(metrics.OutcomeCompleted)
	default:
		r.metrics.IncInvestment(metrics.OutcomeApplied)
	}
	if out.returns > 0 {
		r.metrics.AddApplied(out.amount.InexactFloat64())
	}
	r.checkpointIfDue(ctx, run, st, st.ok(out), log)
	if completed != nil {
		r.notify(ctx, *completed, log)
	}
	return nil
}

// process applies every due day of one investment in a single transaction.
func (r *Runner) process(ctx context.Context, inv investment.Investment, runDate time.Time, log *zap.Logger) (outcome, *investment.Completed, error) {
	var (
		out  outcome
		done *investment.Completed
	)
	err := r.uow.WithinInvestmentTx(ctx, inv.UserID, inv.ID, func(tx uow.Repos, u *user.User, locked *investment.Investment) error {
		out, done = outcome{amount: decimal.Zero}, nil
		if locked.Status != investment.StatusActive {
			out.notDue = true
			return nil
		}
		if err := Validate(locked); err != nil {
			return err
		}

		days := DueDays(locked, runDate, r.cfg.MaxCatchUpDays)
		if len(days) == 0 {
			res, err := Calculate(locked, runDate)
			if err != nil {
				return err
			}
			if !res.Drift {
				out.notDue = true
				return nil
			}
			log.Warn("active investment already at its limits, completing",
				zap.Uint64("investment_id", locked.ID),
				zap.Int("days_elapsed", locked.DaysElapsed),
				zap.String("total_earned", locked.TotalEarned.StringFixed(2)))
			c, err := r.migrator.Complete(ctx, tx, u, locked)
			if err != nil {
				return err
			}
			out.completed, done = true, c
			return nil
		}

		lastApplied := "never"
		if locked.LastReturnApplied != nil {
			lastApplied = locked.LastReturnApplied.Format(time.DateOnly)
		}
		for _, day := range days {
			res, err := Calculate(locked, day)
			if err != nil {
				return err
			}
			if !res.Due {
				break
			}
			if res.Clamped {
				log.Warn("daily return clamped to remaining total",
					zap.Uint64("investment_id", locked.ID),
					zap.String("daily_amount", locked.DailyAmount().StringFixed(2)),
					zap.String("applied", res.Amount.StringFixed(2)))
			}
			if err := r.applyReturn(ctx, tx, u, locked, res); err != nil {
				if errors.Is(err, investment.ErrReturnAlreadyApplied) && !onlyRunDate(days, runDate) {
					return fmt.Errorf("%w: %s already has a return, last applied %s",
						investment.ErrReturnDrift, day.Format(time.DateOnly), lastApplied)
				}
				return err
			}
			out.returns++
			out.amount = out.amount.Add(res.Amount)

			if res.Completes {
				c, err := r.migrator.Complete(ctx, tx, u, locked)
				if err != nil {
					return err
				}
				out.completed, done = true, c
				break
			}
		}
		return nil
	})
	// a conflict on the run date alone is a concurrent writer that got there
	// first; anywhere inside a catch-up it is drift and fails the investment
	if errors.Is(err, investment.ErrReturnAlreadyApplied) {
		return outcome{already: true, amount: decimal.Zero}, nil, nil
	}
	if err != nil {
		return outcome{}, nil, err
	}
	return out, done, nil
}

func onlyRunDate(days []time.Time, runDate time.Time) bool {
	return len(days) == 1 && days[0].Equal(runDate)
}

func (r *Runner) applyReturn(ctx context.Context, tx uow.Repos, u *user.User, inv *investment.Investment, res Result) error {
	ret := &investment.Return{
		InvestmentID: inv.ID,
		UserID:       inv.UserID,
		Amount:       res.Amount,
		ReturnDate:   res.Day,
		CreatedAt:    r.clock.Now().UTC(),
	}
	if err := tx.Returns.Insert(ctx, ret); err != nil {
		return err
	}

	day := res.Day
	inv.DaysElapsed = res.NewDaysElapsed
	inv.TotalEarned = res.NewTotalEarned
	inv.LastReturnApplied = &day
	if err := tx.Investments.SaveProgress(ctx, inv); err != nil {
		return err
	}

	_, err := r.appender.Post(ctx, tx, u, ledgeruc.Change{
		Type:           domainLedger.EntryReturnApplied,
		ReferenceTable: "investment_returns",
		ReferenceID:    strconv.FormatUint(ret.ID, 10),
		AmountDelta:    res.Amount,
		Metadata: map[string]any{
			"investment_id": inv.ID,
			"return_date":   day.Format(time.DateOnly),
			"days_elapsed":  inv.DaysElapsed,
		},
	})
	return err
}

func (r *Runner) notify(ctx context.Context, c investment.Completed, log *zap.Logger) {
	if r.notifier == nil {
		return
	}
	r.notifyWG.Add(1)
	go func() {
		defer r.notifyWG.Done()
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()
		if err := r.notifier.InvestmentCompleted(nctx, c); err != nil {
			log.Warn("completion notification failed",
				zap.Uint64("investment_id", c.InvestmentID),
				zap.Error(err))
		}
	}()
}

// checkpointIfDue persists progress every CheckpointEvery investments so an
// aborted run still leaves its counters behind.
func (r *Runner) checkpointIfDue(ctx context.Context, run *jobrun.JobRun, st *runState, handled int, log *zap.Logger) {
	if handled%r.cfg.CheckpointEvery != 0 {
		return
	}
	st.cpMu.Lock()
	defer st.cpMu.Unlock()
	st.mu.Lock()
	st.fillRun(run)
	st.mu.Unlock()
	if err := r.runs.Save(context.WithoutCancel(ctx), run); err != nil {
		log.Warn("checkpoint job run", zap.Error(err))
	}
}

// finalize writes the terminal JobRun row and builds the summary.
func (r *Runner) finalize(ctx context.Context, run *jobrun.JobRun, st *runState, fatal error, timedOut bool, log *zap.Logger) *RunSummary {
	st.mu.Lock()
	defer st.mu.Unlock()

	finished := r.clock.Now()
	run.FinishedAt = &finished
	run.ClaimKey = nil
	run.Success = fatal == nil && !timedOut && st.failed == 0
	st.fillRun(run)

	var errs []error
	if fatal != nil {
		errs = append(errs, fatal)
	}
	if timedOut {
		errs = append(errs, fmt.Errorf("run stopped after %s budget: %w", r.cfg.JobTimeout, context.DeadlineExceeded))
	}
	for _, f := range st.meta.Failures {
		errs = append(errs, fmt.Errorf("investment %d: %s", f.InvestmentID, f.Error))
	}
	if joined := errors.Join(errs...); joined != nil {
		text := joined.Error()
		if len(text) > maxErrorText {
			text = text[:maxErrorText]
		}
		run.ErrorText = text
	}

	if err := r.runs.Save(ctx, run); err != nil {
		log.Error("finalize job run", zap.Error(err))
	}

	log.Info("accrual run finished",
		zap.Bool("success", run.Success),
		zap.Int("processed", st.processed),
		zap.Int("completed", st.completed),
		zap.Int("failed", st.failed),
		zap.Int("skipped", st.skipped),
		zap.String("total_applied", st.total.StringFixed(2)))

	errsOut := append([]InvestmentError{}, st.meta.Failures...)
	return &RunSummary{
		RunID:          run.RunID,
		Processed:      st.processed,
		Completed:      st.completed,
		Failed:         st.failed,
		AlreadyApplied: st.meta.AlreadyApplied,
		ReturnsApplied: st.meta.ReturnsApplied,
		TotalApplied:   st.total,
		TimedOut:       timedOut,
		Errors:         errsOut,
	}
}

// runState is shared by the workers of one run.
type runState struct {
	cpMu      sync.Mutex
	mu        sync.Mutex
	handled   int
	processed int
	completed int
	failed    int
	skipped   int
	total     decimal.Decimal
	meta      runMeta
}

func (s *runState) ok(out outcome) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handled++
	switch {
	case out.already:
		s.skipped++
		s.meta.AlreadyApplied++
	case out.notDue:
		s.skipped++
	default:
		s.processed++
	}
	if out.completed {
		s.completed++
	}
	s.meta.ReturnsApplied += out.returns
	s.total = s.total.Add(out.amount)
	return s.handled
}

func (s *runState) fail(inv investment.Investment, reason string, err error) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handled++
	s.failed++
	if len(s.meta.Failures) < maxRecordedFailures {
		s.meta.Failures = append(s.meta.Failures, InvestmentError{
			InvestmentID: inv.ID,
			UserID:       inv.UserID,
			Reason:       reason,
			Error:        err.Error(),
		})
	}
	return s.handled
}

// fillRun copies counters into run; s.mu must be held.
func (s *runState) fillRun(run *jobrun.JobRun) {
	run.ProcessedCount = s.processed
	run.CompletedCount = s.completed
	run.FailedCount = s.failed
	run.SkippedCount = s.skipped
	run.TotalApplied = s.total
	run.Meta = s.metaJSON()
}

func (s *runState) metaJSON() []byte {
	raw, err := json.Marshal(s.meta)
	if err != nil {
		return nil
	}
	return raw
}
