// Package syncer runs the fetch, validate, transform, schema and load
// pipeline for each table and coordinates whole sync runs.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/JonMunkholm/sheetsync/internal/core"
	"github.com/JonMunkholm/sheetsync/internal/logging"
	"github.com/JonMunkholm/sheetsync/internal/metrics"
	"github.com/JonMunkholm/sheetsync/internal/source"
	"github.com/JonMunkholm/sheetsync/internal/store"
)

// DefaultBudget bounds the wall-clock time of a whole run.
const DefaultBudget = 30 * time.Minute

// State is a stage of one table sync.
type State string

const (
	StateFetching     State = "FETCHING"
	StateValidating   State = "VALIDATING"
	StateTransforming State = "TRANSFORMING"
	StateSchemaPrep   State = "SCHEMA_PREP"
	StateLoading      State = "LOADING"
	StateDone         State = "DONE"
	StateFailed       State = "FAILED"
)

// Result is the outcome of one table sync.
type Result struct {
	Table       string        `json:"table"`
	Deleted     int64         `json:"deleted"`
	Inserted    int64         `json:"inserted"`
	Skipped     int           `json:"skipped"`
	Success     bool          `json:"success"`
	Error       string        `json:"error,omitempty"`
	Code        string        `json:"code,omitempty"`         // core.MapError code when failed
	FailedState State         `json:"failed_state,omitempty"` // stage that failed
	Duration    time.Duration `json:"duration"`
}

// Fetcher downloads one sheet as a dataset.
type Fetcher interface {
	Fetch(ctx context.Context, req source.Request) (*core.Dataset, error)
}

// Options configures an Orchestrator.
type Options struct {
	Fetcher     Fetcher
	Store       store.Gateway
	Validator   *core.RecordValidator
	Transformer *core.RecordTransformer

	Budget       time.Duration // DefaultBudget when zero
	BatchSize    int           // store.DefaultBatchSize when zero
	FetchTimeout time.Duration // per attempt, source default when zero

	// Now is the clock used for the budget; tests inject a fake one.
	Now    func() time.Time
	Logger *slog.Logger
}

// Orchestrator syncs tables one at a time. It keeps no state between tables.
type Orchestrator struct {
	fetcher      Fetcher
	store        store.Gateway
	validator    *core.RecordValidator
	transformer  *core.RecordTransformer
	budget       time.Duration
	batchSize    int
	fetchTimeout time.Duration
	now          func() time.Time
	logger       *slog.Logger
}

// New creates an Orchestrator, applying defaults for zero Options fields.
func New(opts Options) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Validator == nil {
		opts.Validator = core.NewRecordValidator(opts.Logger)
	}
	if opts.Transformer == nil {
		opts.Transformer = core.NewRecordTransformer(opts.Logger)
	}
	if opts.Budget <= 0 {
		opts.Budget = DefaultBudget
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = store.DefaultBatchSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Orchestrator{
		fetcher:      opts.Fetcher,
		store:        opts.Store,
		validator:    opts.Validator,
		transformer:  opts.Transformer,
		budget:       opts.Budget,
		batchSize:    opts.BatchSize,
		fetchTimeout: opts.FetchTimeout,
		now:          opts.Now,
		logger:       opts.Logger,
	}
}

// SyncAll syncs sheets in order. Before each table the elapsed time is
// checked against the budget; once it is exceeded the tables not yet
// started are dropped and core.ErrTimeout is returned with the results
// completed so far. A table already in progress is never interrupted.
func (o *Orchestrator) SyncAll(ctx context.Context, sourceID string, sheets []core.TableSheet) ([]Result, error) {
	logger := logging.Enrich(ctx, o.logger)
	start := o.now()
	results := make([]Result, 0, len(sheets))

	logger.Info("starting sync for all tables", "tables", len(sheets))

	for _, sheet := range sheets {
		if err := ctx.Err(); err != nil {
			logger.Warn("sync cancelled", "completed", len(results))
			return results, err
		}

		if elapsed := o.now().Sub(start); elapsed > o.budget {
			logger.Warn("sync timeout",
				"elapsed", elapsed.Round(100*time.Millisecond).String(),
				"budget", o.budget.String(),
				"completed", len(results),
			)
			return results, core.Ef(core.ErrTimeout, "sync",
				"timeout after %.1f seconds", elapsed.Seconds())
		}

		// Stages run detached from cancellation so a table is never left
		// dropped or half-loaded.
		results = append(results, o.SyncTable(context.WithoutCancel(ctx), sheet.Kind, sheet.SheetID, sourceID))
	}

	logger.Info("sync completed",
		"tables", len(results),
		"elapsed", o.now().Sub(start).Round(100*time.Millisecond).String(),
	)
	return results, nil
}

// SyncTable runs the pipeline for one table. It never returns an error:
// failures are reported in the Result.
func (o *Orchestrator) SyncTable(ctx context.Context, kind, sheetID, sourceID string) Result {
	logger := logging.Enrich(ctx, o.logger).With("table", kind)
	start := o.now()
	state := StateFetching

	fail := func(err error) Result {
		msg := core.MapError(err)
		logger.Error("table sync failed",
			"state", string(StateFailed),
			"failed_state", string(state),
			"error", err,
			"code", msg.Code,
		)
		res := Result{
			Table:       kind,
			Success:     false,
			Error:       err.Error(),
			Code:        msg.Code,
			FailedState: state,
			Duration:    o.now().Sub(start),
		}
		record(res)
		return res
	}

	logger.Info("syncing table", "sheet_id", sheetID)

	def, known := core.Get(kind)
	req := source.Request{
		SourceID: sourceID,
		SheetID:  sheetID,
		Timeout:  o.fetchTimeout,
	}
	if known {
		req.HeaderRow = def.HeaderRow
		req.Multirow = def.Multirow
	}

	ds, err := o.fetcher.Fetch(ctx, req)
	if err != nil {
		return fail(err)
	}

	state = StateValidating
	accepted, rejected, err := o.validator.Validate(ds, kind)
	if err != nil {
		return fail(err)
	}
	skipped := ds.Len() - accepted.Len()
	if len(rejected) > 0 {
		logger.Warn("rows rejected by validation", "skipped", skipped, "errors", len(rejected))
	}

	state = StateTransforming
	transformed := o.transformer.Transform(accepted, kind)

	state = StateSchemaPrep
	schema := core.InferSchema(transformed)
	if err := o.store.RecreateTable(ctx, kind, schema); err != nil {
		return fail(err)
	}

	state = StateLoading
	counts, err := o.store.ReplaceAll(ctx, kind, transformed, o.batchSize)
	if err != nil {
		return fail(fmt.Errorf("after %d inserted rows: %w", counts.Inserted, err))
	}

	res := Result{
		Table:    kind,
		Deleted:  counts.Deleted,
		Inserted: counts.Inserted,
		Skipped:  skipped,
		Success:  true,
		Duration: o.now().Sub(start),
	}
	logger.Info("table synced",
		"state", string(StateDone),
		"deleted", res.Deleted,
		"inserted", res.Inserted,
		"skipped", res.Skipped,
		"duration", res.Duration.Round(time.Millisecond).String(),
	)
	record(res)
	return res
}

func record(r Result) {
	metrics.RecordTable(metrics.TableOutcome{
		Table:    r.Table,
		Success:  r.Success,
		Deleted:  r.Deleted,
		Inserted: r.Inserted,
		Skipped:  r.Skipped,
		Duration: r.Duration,
	})
}

// AllSucceeded reports whether every result succeeded.
func AllSucceeded(results []Result) bool {
	for _, r := range results {
		if !r.Success {
			return false
		}
	}
	return true
}

// IsTimeout reports whether err is a run budget timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, core.ErrTimeout)
}
