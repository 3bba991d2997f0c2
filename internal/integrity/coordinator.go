package integrity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"audiotool/internal/cachestore"
	"audiotool/internal/config"
	"audiotool/internal/logging"
)

const (
	// DefaultFlushThreshold is the number of completions between batched
	// cache writes.
	DefaultFlushThreshold = 100

	taskQueueFactor = 2
)

// Store is the cache surface the coordinator needs.
type Store interface {
	Lookuper
	Apply(ctx context.Context, mutations []cachestore.Mutation) error
}

// Result pairs a path with its outcome.
type Result struct {
	Path    string
	Outcome Outcome
}

// Reporter receives every result. The coordinator calls it from a single
// goroutine, in completion order.
type Reporter interface {
	Report(Result)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Result)

// Report calls f(r).
func (f ReporterFunc) Report(r Result) { f(r) }

// RunOptions tunes a Coordinator run.
type RunOptions struct {
	// Workers is the pool size in concurrent mode. Zero selects
	// config.DefaultWorkers.
	Workers int
	// Force bypasses the cache for every file.
	Force bool
	// Sequential processes files one at a time and persists each immediately.
	Sequential bool
	// FlushThreshold is the number of completions between batched writes.
	// Zero selects DefaultFlushThreshold.
	FlushThreshold int
}

// Summary tallies a run.
type Summary struct {
	RunID     string
	Total     int
	Passed    int
	Failed    int
	NotFound  int
	Cached    int
	Refreshed int
	Verified  int
	// Flushes counts successful cache writes.
	Flushes   int
	Cancelled bool
	Duration  time.Duration
}

func (s *Summary) add(o Outcome) {
	s.Total++
	switch o.(type) {
	case Cached:
		s.Cached++
	case Refreshed:
		s.Refreshed++
	case Verified:
		s.Verified++
	case NotFound:
		s.NotFound++
	}
	if status, ok := StatusOf(o); ok {
		if status == cachestore.StatusPassed {
			s.Passed++
		} else {
			s.Failed++
		}
	}
}

// Coordinator verifies a list of files and records the outcomes.
type Coordinator struct {
	engine *Engine
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// NewCoordinator binds an engine to the store that receives its outcomes.
func NewCoordinator(engine *Engine, store Store, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		engine: engine,
		store:  store,
		logger: logging.NewComponentLogger(logger, "coordinator"),
		now:    time.Now,
	}
}

// Run processes paths and returns the tally. On cancellation it stops
// submitting work, lets in-flight files finish, and flushes whatever
// completed; Summary.Cancelled is then set and ctx.Err() is returned. A
// failed final flush is also returned as an error.
func (c *Coordinator) Run(ctx context.Context, paths []string, opts RunOptions, reporter Reporter) (Summary, error) {
	if reporter == nil {
		reporter = ReporterFunc(func(Result) {})
	}
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, c.logger)

	workers := opts.Workers
	if workers <= 0 {
		workers = config.DefaultWorkers()
	}
	threshold := opts.FlushThreshold
	if threshold <= 0 {
		threshold = DefaultFlushThreshold
	}
	mode := "concurrent"
	if opts.Sequential {
		mode = "sequential"
	}
	logger.Info("integrity run started",
		logging.Int("files", len(paths)),
		logging.String("mode", mode),
		logging.Int("workers", workers),
		logging.Bool("force", opts.Force),
	)

	started := c.now()
	var (
		summary Summary
		err     error
	)
	if opts.Sequential {
		summary, err = c.runSequential(ctx, logger, paths, opts.Force, reporter)
	} else {
		summary, err = c.runConcurrent(ctx, logger, paths, opts.Force, workers, threshold, reporter)
	}
	summary.RunID = runID
	summary.Duration = c.now().Sub(started)
	if ctx.Err() != nil {
		summary.Cancelled = true
		err = errors.Join(ctx.Err(), err)
	}

	logger.Info("integrity run finished",
		logging.Int("processed", summary.Total),
		logging.Int("passed", summary.Passed),
		logging.Int("failed", summary.Failed),
		logging.Int("not_found", summary.NotFound),
		logging.Int("cached", summary.Cached),
		logging.Int("refreshed", summary.Refreshed),
		logging.Int("verified", summary.Verified),
		logging.Bool("cancelled", summary.Cancelled),
		logging.Duration("duration", summary.Duration),
	)
	return summary, err
}

func (c *Coordinator) runSequential(ctx context.Context, logger *slog.Logger, paths []string, force bool, reporter Reporter) (Summary, error) {
	var summary Summary
	var persistErr error
	work := context.WithoutCancel(ctx)
	for _, path := range paths {
		if ctx.Err() != nil {
			break
		}
		res := c.process(work, logger, Task{Path: path, Force: force})
		summary.add(res.Outcome)
		if m, ok := mutation(res.Path, res.Outcome, c.now()); ok {
			if err := c.store.Apply(work, []cachestore.Mutation{m}); err != nil {
				logging.ErrorWithContext(logger, "cache write failed", "cache_write_failed",
					logging.Path(res.Path),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "verdict will be recomputed on the next run"),
				)
				persistErr = err
			} else {
				summary.Flushes++
			}
		}
		reporter.Report(res)
	}
	return summary, persistErr
}

func (c *Coordinator) runConcurrent(ctx context.Context, logger *slog.Logger, paths []string, force bool, workers, threshold int, reporter Reporter) (Summary, error) {
	tasks := make(chan Task, workers*taskQueueFactor)
	results := make(chan Result, workers*taskQueueFactor)
	// In-flight files finish even after cancellation so their verdicts can be
	// flushed.
	work := context.WithoutCancel(ctx)

	go func() {
		defer close(tasks)
		for _, path := range paths {
			if ctx.Err() != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			case tasks <- Task{Path: path, Force: force}:
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range tasks {
				results <- c.process(work, logger, task)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var (
		summary Summary
		pending []cachestore.Mutation
	)
	flush := func(final bool) error {
		if len(pending) == 0 {
			return nil
		}
		if err := c.store.Apply(work, pending); err != nil {
			logging.ErrorWithContext(logger, "batched cache write failed", "cache_flush_failed",
				logging.Int("pending", len(pending)),
				logging.Bool("final", final),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "pending verdicts are retried at the next flush"),
			)
			return err
		}
		logger.Debug("flushed cache batch", logging.Int("mutations", len(pending)), logging.Bool("final", final))
		summary.Flushes++
		pending = pending[:0]
		return nil
	}

	completions := 0
	for res := range results {
		completions++
		summary.add(res.Outcome)
		if m, ok := mutation(res.Path, res.Outcome, c.now()); ok {
			pending = append(pending, m)
		}
		reporter.Report(res)
		if completions%threshold == 0 {
			_ = flush(false)
		}
	}
	if err := flush(true); err != nil {
		return summary, fmt.Errorf("final cache flush: %w", err)
	}
	return summary, nil
}

// process decides one task, converting errors and panics into a Failed
// verdict so a single file never aborts the run.
func (c *Coordinator) process(ctx context.Context, logger *slog.Logger, task Task) (res Result) {
	res.Path = task.Path
	defer func() {
		if r := recover(); r != nil {
			logging.ErrorWithContext(logger, "verification panicked", "verify_panic",
				logging.Path(task.Path),
				logging.Any("panic", r),
			)
			res.Outcome = Verified{Status: cachestore.StatusFailed, Message: fmt.Sprintf("internal error: %v", r)}
		}
	}()

	outcome, err := c.engine.Decide(ctx, task)
	if err != nil {
		logging.WarnWithContext(logger, "verification error recorded as failure", "verify_error",
			logging.Path(task.Path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check file permissions and the cache database"),
			logging.String(logging.FieldImpact, "file marked FAILED until the next successful check"),
		)
		outcome = Verified{Status: cachestore.StatusFailed, Message: err.Error()}
	}
	res.Outcome = outcome
	return res
}
