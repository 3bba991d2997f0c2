package integrity

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"audiotool/internal/cachestore"
	"audiotool/internal/config"
	"audiotool/internal/logging"
	"audiotool/internal/media/codec"
)

// CodecStore is the cache surface BackfillCodecs needs.
type CodecStore interface {
	MissingCodecs(ctx context.Context) ([]cachestore.Record, error)
	Apply(ctx context.Context, mutations []cachestore.Mutation) error
}

// BackfillOptions tunes BackfillCodecs.
type BackfillOptions struct {
	// Workers is the number of concurrent codec lookups. Zero selects
	// config.DefaultWorkers.
	Workers int
	// FlushThreshold is the number of completions between batched writes.
	// Zero selects DefaultFlushThreshold.
	FlushThreshold int
}

// BackfillSummary tallies a codec backfill. Skipped rows could not be read;
// they keep their current codec and are retried next time.
type BackfillSummary struct {
	Candidates int
	Updated    int
	Skipped    int
	Flushes    int
	Cancelled  bool
}

type codecResult struct {
	rec  cachestore.Record
	info codec.Info
	err  error
}

// BackfillCodecs resolves the codec of every cached row that lacks one and writes
// the codec columns back. Verdicts, hashes, and timestamps are never touched.
// Lookups run in a worker pool; the calling goroutine owns every write and
// applies them in locked batches.
func BackfillCodecs(ctx context.Context, store CodecStore, prober codec.Prober, opts BackfillOptions, logger *slog.Logger) (BackfillSummary, error) {
	ctx = logging.WithRunID(ctx, uuid.NewString())
	logger = logging.WithContext(ctx, logging.NewComponentLogger(logger, "codec-backfill"))

	records, err := store.MissingCodecs(ctx)
	if err != nil {
		return BackfillSummary{}, err
	}
	summary := BackfillSummary{Candidates: len(records)}
	if len(records) == 0 {
		return summary, nil
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = config.DefaultWorkers()
	}
	threshold := opts.FlushThreshold
	if threshold <= 0 {
		threshold = DefaultFlushThreshold
	}
	logger.Info("codec backfill started",
		logging.Int("candidates", len(records)),
		logging.Int("workers", workers),
	)

	tasks := make(chan cachestore.Record, workers*taskQueueFactor)
	results := make(chan codecResult, workers*taskQueueFactor)
	work := context.WithoutCancel(ctx)

	go func() {
		defer close(tasks)
		for _, rec := range records {
			select {
			case <-ctx.Done():
				return
			case tasks <- rec:
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range tasks {
				info, err := prober.Probe(work, rec.Path)
				results <- codecResult{rec: rec, info: info, err: err}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var (
		pending  []cachestore.Mutation
		flushErr error
	)
	flush := func() {
		if len(pending) == 0 {
			return
		}
		if err := store.Apply(work, pending); err != nil {
			logging.ErrorWithContext(logger, "codec batch write failed", "codec_flush_failed",
				logging.Int("pending", len(pending)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "rerun the backfill once the cache lock is free"),
			)
			flushErr = err
			return
		}
		summary.Updated += len(pending)
		summary.Flushes++
		pending = pending[:0]
	}

	completions := 0
	for res := range results {
		completions++
		if res.err != nil {
			summary.Skipped++
			logging.WarnWithContext(logger, "codec lookup failed", "codec_lookup_failed",
				logging.Path(res.rec.Path),
				logging.Error(res.err),
				logging.String(logging.FieldImpact, "row keeps its current codec"),
			)
		} else {
			pending = append(pending, cachestore.CodecMutation(res.rec.Path, res.rec.Status, res.info.Name, string(res.info.Type)))
		}
		if completions%threshold == 0 {
			flush()
		}
	}
	flush()

	if ctx.Err() != nil {
		summary.Cancelled = true
	}
	logger.Info("codec backfill finished",
		logging.Int("candidates", summary.Candidates),
		logging.Int("updated", summary.Updated),
		logging.Int("skipped", summary.Skipped),
		logging.Bool("cancelled", summary.Cancelled),
	)
	if flushErr != nil && len(pending) > 0 {
		return summary, fmt.Errorf("final codec flush: %w", flushErr)
	}
	if summary.Cancelled {
		return summary, ctx.Err()
	}
	return summary, nil
}
