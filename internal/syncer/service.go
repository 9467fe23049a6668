package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/sheetsync/internal/core"
	"github.com/JonMunkholm/sheetsync/internal/logging"
	"github.com/JonMunkholm/sheetsync/internal/metrics"
	"github.com/JonMunkholm/sheetsync/internal/store"
)

// ServiceOptions configures a Service.
type ServiceOptions struct {
	Orchestrator *Orchestrator
	Store        store.Gateway
	SourceID     string
	Sheets       []core.TableSheet // configured tables in sync order

	Limiter *RunLimiter
	History *History
	Logger  *slog.Logger

	// NewID generates run ids; uuid.NewString when nil.
	NewID func() string
}

// Service runs whole syncs: it selects tables, pings the store, runs the
// orchestrator, flushes metrics and records the run in the history. Runs
// are serialized by the limiter.
type Service struct {
	orch     *Orchestrator
	store    store.Gateway
	sourceID string
	sheets   []core.TableSheet
	limiter  *RunLimiter
	history  *History
	logger   *slog.Logger
	newID    func() string
	now      func() time.Time
}

// NewService creates a Service, applying defaults for nil options.
func NewService(opts ServiceOptions) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Limiter == nil {
		opts.Limiter = NewRunLimiter(DefaultMaxConcurrentRuns, DefaultMaxWaitTime)
	}
	if opts.History == nil {
		opts.History = NewHistory(DefaultHistorySize)
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	return &Service{
		orch:     opts.Orchestrator,
		store:    opts.Store,
		sourceID: opts.SourceID,
		sheets:   opts.Sheets,
		limiter:  opts.Limiter,
		history:  opts.History,
		logger:   opts.Logger,
		newID:    opts.NewID,
		now:      opts.Orchestrator.now,
	}
}

// Sheets returns the configured tables in sync order.
func (s *Service) Sheets() []core.TableSheet {
	return append([]core.TableSheet(nil), s.sheets...)
}

// Select returns the configured sheets named in tables, in configured
// order. An empty selection means every configured table.
func (s *Service) Select(tables []string) ([]core.TableSheet, error) {
	if len(tables) == 0 {
		return s.Sheets(), nil
	}

	want := make(map[string]bool, len(tables))
	for _, t := range tables {
		want[t] = true
	}

	out := make([]core.TableSheet, 0, len(tables))
	for _, sheet := range s.sheets {
		if want[sheet.Kind] {
			out = append(out, sheet)
			delete(want, sheet.Kind)
		}
	}
	for _, t := range tables {
		if want[t] {
			return nil, core.Ef(core.ErrValidationConfig, "select tables", "unknown table %q", t)
		}
	}
	return out, nil
}

// Run performs one sync synchronously. It fails with ErrTooManyRuns when a
// run is already active. The returned Run is also recorded in the history.
func (s *Service) Run(ctx context.Context, trigger Trigger, tables []string) (Run, error) {
	sheets, err := s.Select(tables)
	if err != nil {
		return Run{}, err
	}
	if !s.limiter.TryAcquire() {
		return Run{}, ErrTooManyRuns
	}
	defer s.limiter.Release()

	run := s.begin(trigger, sheets)
	return s.execute(ctx, run, sheets), nil
}

// Start begins a sync in the background and returns the running Run.
// The run outlives ctx cancellation so an API request finishing does not
// abort it; values such as the request id are kept for logging.
func (s *Service) Start(ctx context.Context, trigger Trigger, tables []string) (Run, error) {
	sheets, err := s.Select(tables)
	if err != nil {
		return Run{}, err
	}
	if !s.limiter.TryAcquire() {
		return Run{}, ErrTooManyRuns
	}

	run := s.begin(trigger, sheets)
	runCtx := context.WithoutCancel(ctx)
	go func() {
		defer s.limiter.Release()
		s.execute(runCtx, run, sheets)
	}()
	return run, nil
}

// Wait blocks until the active run, if any, finishes or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// Busy reports whether a run is in progress.
func (s *Service) Busy() bool {
	return s.limiter.ActiveCount() > 0
}

// Runs lists recorded runs, newest first.
func (s *Service) Runs() []Run {
	return s.history.List()
}

// GetRun returns a recorded run or ErrRunNotFound.
func (s *Service) GetRun(id string) (Run, error) {
	return s.history.Get(id)
}

func (s *Service) begin(trigger Trigger, sheets []core.TableSheet) Run {
	names := make([]string, len(sheets))
	for i, sh := range sheets {
		names[i] = sh.Kind
	}

	run := Run{
		ID:        s.newID(),
		Trigger:   trigger,
		Status:    RunRunning,
		Tables:    names,
		StartedAt: s.now(),
		Results:   []Result{},
	}
	s.history.Put(run)
	return run
}

func (s *Service) execute(ctx context.Context, run Run, sheets []core.TableSheet) Run {
	ctx = logging.WithRunID(ctx, run.ID)
	logger := logging.Enrich(ctx, s.logger)

	logger.Info("sync run started", "trigger", string(run.Trigger), "tables", run.Tables)

	if err := s.store.Ping(ctx); err != nil {
		return s.finish(ctx, run, nil, fmt.Errorf("connect to store: %w", err))
	}

	results, err := s.orch.SyncAll(ctx, s.sourceID, sheets)
	return s.finish(ctx, run, results, err)
}

func (s *Service) finish(ctx context.Context, run Run, results []Result, err error) Run {
	logger := logging.Enrich(ctx, s.logger)

	if results == nil {
		results = []Result{}
	}
	finished := s.now()
	run.FinishedAt = &finished
	run.Results = results

	switch {
	case err != nil && IsTimeout(err):
		run.Status = RunTimedOut
	case err != nil || !AllSucceeded(results):
		run.Status = RunFailed
	default:
		run.Status = RunSucceeded
	}
	if err != nil {
		run.Error = err.Error()
		run.Code = core.MapError(err).Code
	}

	if ferr := metrics.Flush(); ferr != nil {
		logger.Warn("metrics flush failed", "error", ferr)
	}

	s.history.Put(run)

	attrs := []any{
		"status", string(run.Status),
		"tables", len(results),
		"duration", finished.Sub(run.StartedAt).Round(100 * time.Millisecond).String(),
	}
	if err != nil {
		attrs = append(attrs, "error", err, "code", run.Code)
	}
	if run.Status == RunSucceeded {
		logger.Info("sync run finished", attrs...)
	} else {
		logger.Error("sync run finished", attrs...)
	}
	return run
}
