package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"audiotool/internal/cachestore"
	"audiotool/internal/config"
	"audiotool/internal/integrity"
	"audiotool/internal/logging"
	"audiotool/internal/media/codec"
	"audiotool/internal/preflight"
	"audiotool/internal/runlog"
	"audiotool/internal/scan"
)

type checkOptions struct {
	verbose  bool
	summary  bool
	saveLog  bool
	recheck  bool
	workers  int
	jsonMode bool
}

type checkResultJSON struct {
	Path    string `json:"path"`
	Outcome string `json:"outcome"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}

type checkReportJSON struct {
	RunID      string            `json:"run_id"`
	Total      int               `json:"total"`
	Passed     int               `json:"passed"`
	Failed     int               `json:"failed"`
	NotFound   int               `json:"not_found"`
	Cached     int               `json:"cached"`
	Refreshed  int               `json:"refreshed"`
	Verified   int               `json:"verified"`
	Removed    int               `json:"removed_stale"`
	Cancelled  bool              `json:"cancelled"`
	DurationMS int64             `json:"duration_ms"`
	SuccessLog string            `json:"success_log,omitempty"`
	FailedLog  string            `json:"failed_log,omitempty"`
	Results    []checkResultJSON `json:"results"`
}

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var opts checkOptions

	cmd := &cobra.Command{
		Use:   "check <path>",
		Short: "Verify audio files, reusing cached verdicts when files are unchanged",
		Long: `Verify every audio file under <path> (or <path> itself) by decoding it with
ffmpeg. Files whose modification time matches the cache reuse their stored
verdict; files whose content hash matches are refreshed without decoding.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, ctx, args[0], opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Print every result and process files sequentially")
	cmd.Flags().BoolVarP(&opts.summary, "summary", "s", false, "Print only the summary")
	cmd.Flags().BoolVar(&opts.saveLog, "save-log", false, "Write Success/Failed logs even with --verbose or --summary")
	cmd.Flags().BoolVar(&opts.recheck, "recheck", false, "Ignore the cache and decode every file")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "Concurrent workers (default: configured value)")
	cmd.Flags().BoolVar(&opts.jsonMode, "json", false, "Emit the run report as JSON")
	return cmd
}

func runCheck(cmd *cobra.Command, cmdCtx *commandContext, target string, opts checkOptions) error {
	cfg, err := cmdCtx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := cmdCtx.ensureLogger()
	if err != nil {
		return err
	}
	if opts.workers < 0 {
		return fmt.Errorf("--workers must be >= 0 (got %d)", opts.workers)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if blocking := preflight.Blocking(preflight.RunAll(ctx, cfg)); len(blocking) > 0 {
		names := make([]string, 0, len(blocking))
		for _, r := range blocking {
			names = append(names, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
		return fmt.Errorf("preflight failed: %s", strings.Join(names, "; "))
	}

	path, err := config.ExpandPath(target)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	found, err := scan.AudioFiles(path, cfg.Integrity.Extensions)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("'%s' is not a file or directory", target)
		}
		return fmt.Errorf("scan %s: %w", target, err)
	}
	out := cmd.OutOrStdout()
	if len(found.Files) == 0 {
		fmt.Fprintf(out, "No audio files found in '%s'.\n", target)
		return nil
	}
	if found.Skipped > 0 {
		logging.WarnWithContext(logger, "unreadable entries skipped during scan", "scan_skipped",
			logging.Int("skipped", found.Skipped),
			logging.String(logging.FieldErrorHint, "check directory permissions"),
			logging.String(logging.FieldImpact, "files in unreadable directories were not checked"),
		)
	}

	store, err := cachestore.Open(ctx, cmdCtx.storeOptions(cfg, logger))
	if err != nil {
		return wrapOpenError(err, cfg.DatabasePath())
	}
	defer store.Close()

	var logs *runlog.Writer
	if opts.saveLog || (!opts.verbose && !opts.summary) {
		logs, err = runlog.Create(cfg.Paths.LogDir, time.Now())
		if err != nil {
			return err
		}
		defer logs.Abort()
	}

	engineOpts := []integrity.EngineOption{integrity.WithLogger(logger)}
	if cfg.Integrity.ProbeCodec {
		engineOpts = append(engineOpts, integrity.WithProber(codec.FFprobe{Binary: cfg.FFprobeBinary(), Timeout: codec.ProbeTimeout}))
	}
	verifier := integrity.FFmpegVerifier{Binary: cfg.FFmpegBinary(), Timeout: cfg.DecodeTimeout()}
	engine := integrity.NewEngine(store, verifier, engineOpts...)
	coordinator := integrity.NewCoordinator(engine, store, logger)

	workers := opts.workers
	if workers == 0 {
		workers = cfg.WorkerCount()
	}
	report := checkReportJSON{Results: []checkResultJSON{}}
	reporter := integrity.ReporterFunc(func(r integrity.Result) {
		status, hasStatus := integrity.StatusOf(r.Outcome)
		msg := integrity.Message(r.Outcome)
		if opts.jsonMode {
			entry := checkResultJSON{Path: r.Path, Outcome: integrity.Kind(r.Outcome), Message: msg}
			if hasStatus {
				entry.Status = string(status)
			}
			report.Results = append(report.Results, entry)
		}
		if !hasStatus {
			if opts.verbose && !opts.jsonMode {
				fmt.Fprintf(out, "MISSING %s\n", r.Path)
			}
			return
		}
		if opts.verbose && !opts.jsonMode {
			fmt.Fprintln(out, runlog.FormatLine(status, r.Path, msg))
		}
		if logs != nil {
			if err := logs.Record(status, r.Path, msg); err != nil {
				logging.WarnWithContext(logger, "run log write failed", "runlog_write_failed",
					logging.Path(r.Path),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check free space in the log directory"),
				)
			}
		}
	})

	summary, runErr := coordinator.Run(ctx, found.Files, integrity.RunOptions{
		Workers:        workers,
		Force:          opts.recheck,
		Sequential:     opts.verbose,
		FlushThreshold: cfg.Integrity.FlushThreshold,
	}, reporter)

	report.RunID = summary.RunID
	report.Total = len(found.Files)
	report.Passed = summary.Passed
	report.Failed = summary.Failed
	report.NotFound = summary.NotFound
	report.Cached = summary.Cached
	report.Refreshed = summary.Refreshed
	report.Verified = summary.Verified
	report.Cancelled = summary.Cancelled
	report.DurationMS = summary.Duration.Milliseconds()

	if summary.Cancelled {
		fmt.Fprintf(cmd.ErrOrStderr(), "Check interrupted after %s of %s files; completed results were saved.\n",
			formatCount(summary.Total), formatCount(len(found.Files)))
		return runErr
	}

	// Cleanup runs on a fresh context so a late signal cannot abort it halfway.
	removed, cleanupErr := store.Cleanup(context.WithoutCancel(ctx))
	if cleanupErr != nil {
		logging.WarnWithContext(logger, "stale entry cleanup failed", "cache_cleanup_failed",
			logging.Error(cleanupErr),
			logging.String(logging.FieldErrorHint, "run `audiotool db cleanup` later"),
		)
	}
	report.Removed = removed

	totals := runlog.Summary{Total: len(found.Files), Passed: summary.Passed, Failed: summary.Failed}
	if logs != nil {
		successPath, failedPath, err := logs.Commit(totals)
		if err != nil {
			return errors.Join(runErr, err)
		}
		report.SuccessLog = successPath
		report.FailedLog = failedPath
	}

	if opts.jsonMode {
		if err := writeJSON(cmd, report); err != nil {
			return err
		}
		return runErr
	}
	printCheckSummary(out, opts, totals, summary, removed, report)
	return runErr
}

func printCheckSummary(out io.Writer, opts checkOptions, totals runlog.Summary, summary integrity.Summary, removed int, report checkReportJSON) {
	if opts.verbose || opts.summary {
		fmt.Fprint(out, runlog.FormatSummary(totals))
		fmt.Fprintf(out, "Cached: %s  Refreshed: %s  Decoded: %s  Missing: %s\n",
			formatCount(summary.Cached), formatCount(summary.Refreshed), formatCount(summary.Verified), formatCount(summary.NotFound))
		if removed > 0 {
			fmt.Fprintf(out, "Removed %s stale cache entries\n", formatCount(removed))
		}
		fmt.Fprintln(out)
	}
	if report.SuccessLog != "" {
		fmt.Fprintf(out, "Check complete. Logs saved to '%s' and '%s'\n", report.FailedLog, report.SuccessLog)
		return
	}
	fmt.Fprintln(out, "Check complete.")
}
