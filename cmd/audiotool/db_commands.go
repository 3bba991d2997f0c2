package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"audiotool/internal/cachestore"
	"audiotool/internal/config"
)

// healthyFailureRatio is the failed share below which the cache is reported
// as healthy.
const healthyFailureRatio = 0.10

func newDBCommand(ctx *commandContext) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Inspect and maintain the integrity cache",
	}

	dbCmd.AddCommand(newDBStatusCommand(ctx))
	dbCmd.AddCommand(newDBWatchCommand(ctx))
	dbCmd.AddCommand(newDBListCommand(ctx))
	dbCmd.AddCommand(newDBExportCommand(ctx))
	dbCmd.AddCommand(newDBMigrateCommand(ctx))
	dbCmd.AddCommand(newDBCleanupCommand(ctx))
	dbCmd.AddCommand(newDBUpdateCodecsCommand(ctx))

	return dbCmd
}

type dbStatusJSON struct {
	Path         string            `json:"path"`
	SizeBytes    int64             `json:"size_bytes"`
	JournalMode  string            `json:"journal_mode"`
	IntegrityOK  bool              `json:"integrity_ok"`
	Total        int               `json:"total"`
	Passed       int               `json:"passed"`
	Failed       int               `json:"failed"`
	RecentPassed int               `json:"recent_passed"`
	RecentFailed int               `json:"recent_failed"`
	LastChecked  *time.Time        `json:"last_checked,omitempty"`
	Healthy      bool              `json:"healthy"`
	CodecBuckets []codecBucketJSON `json:"codecs"`
}

type codecBucketJSON struct {
	Status    string `json:"status"`
	Codec     string `json:"codec"`
	CodecType string `json:"codec_type"`
	Count     int    `json:"count"`
}

func newDBStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonMode bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show cache totals, codec distribution, and recent activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(cfg *config.Config, _ *slog.Logger, store *cachestore.Store) error {
				report, err := store.Report(cmd.Context(), time.Now())
				if err != nil {
					return err
				}
				health, err := store.CheckHealth(cmd.Context())
				if err != nil {
					return err
				}
				if jsonMode {
					return writeJSON(cmd, statusJSON(report, health))
				}
				renderDBStatus(cmd.OutOrStdout(), report, health, shouldColorize(cmd.OutOrStdout()))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonMode, "json", false, "Emit status as JSON")
	return cmd
}

func statusJSON(report cachestore.Report, health cachestore.Health) dbStatusJSON {
	out := dbStatusJSON{
		Path:         health.DBPath,
		SizeBytes:    health.SizeBytes,
		JournalMode:  health.JournalMode,
		IntegrityOK:  health.IntegrityOK,
		Total:        report.Total(),
		Passed:       report.Passed,
		Failed:       report.Failed,
		RecentPassed: report.RecentPassed,
		RecentFailed: report.RecentFailed,
		Healthy:      cacheHealthy(report.Summary),
		CodecBuckets: []codecBucketJSON{},
	}
	if !report.LastChecked.IsZero() {
		last := report.LastChecked
		out.LastChecked = &last
	}
	for _, c := range report.Codecs {
		out.CodecBuckets = append(out.CodecBuckets, codecBucketJSON{
			Status:    string(c.Status),
			Codec:     c.Codec,
			CodecType: c.CodecType,
			Count:     c.Count,
		})
	}
	return out
}

func cacheHealthy(s cachestore.Summary) bool {
	if s.Total() == 0 {
		return true
	}
	return float64(s.Failed)/float64(s.Total()) < healthyFailureRatio
}

func renderDBStatus(out io.Writer, report cachestore.Report, health cachestore.Health, colorize bool) {
	lines := renderSectionHeader("Integrity Cache", colorize)

	dbKind := statusOK
	dbDetail := fmt.Sprintf("%s (%s, %s)", health.DBPath, formatBytes(health.SizeBytes), health.JournalMode)
	if !health.IntegrityOK {
		dbKind = statusError
		dbDetail += " integrity check failed"
	}
	lines = append(lines, renderStatusLine("Database", dbKind, dbDetail, colorize))
	lines = append(lines, renderStatusLine("Total files", statusInfo, formatCount(report.Total()), colorize))
	lines = append(lines, renderStatusLine("Passed", statusInfo,
		fmt.Sprintf("%s (%s)", formatCount(report.Passed), formatPercent(report.Passed, report.Total())), colorize))
	lines = append(lines, renderStatusLine("Failed", statusInfo,
		fmt.Sprintf("%s (%s)", formatCount(report.Failed), formatPercent(report.Failed, report.Total())), colorize))
	lines = append(lines, renderStatusLine("Last 7 days", statusInfo,
		fmt.Sprintf("%s passed, %s failed", formatCount(report.RecentPassed), formatCount(report.RecentFailed)), colorize))
	lines = append(lines, renderStatusLine("Last check", statusInfo, formatAgo(report.LastChecked), colorize))

	if cacheHealthy(report.Summary) {
		lines = append(lines, renderStatusLine("Health", statusOK, "failure rate below 10%", colorize))
	} else {
		lines = append(lines, renderStatusLine("Health", statusWarn,
			fmt.Sprintf("%s of cached files failed", formatPercent(report.Failed, report.Total())), colorize))
	}
	fmt.Fprintln(out, strings.Join(lines, "\n"))

	if len(report.Codecs) == 0 {
		return
	}
	fmt.Fprintln(out)
	rows := make([][]string, 0, len(report.Codecs))
	for _, c := range report.Codecs {
		rows = append(rows, []string{string(c.Status), c.Codec, c.CodecType, formatCount(c.Count)})
	}
	fmt.Fprintln(out, renderTable([]string{"Status", "Codec", "Type", "Files"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight}))
}

func newDBWatchCommand(ctx *commandContext) *cobra.Command {
	var interval time.Duration
	var count int
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the cache and print count changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				return errors.New("--interval must be positive")
			}
			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return ctx.withStore(runCtx, func(_ *config.Config, _ *slog.Logger, store *cachestore.Store) error {
				err := watchCache(runCtx, cmd.OutOrStdout(), store, interval, count)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		},
	}
	cmd.Flags().DurationVarP(&interval, "interval", "i", 5*time.Second, "Polling interval")
	cmd.Flags().IntVarP(&count, "count", "n", 0, "Stop after this many samples (0 runs until interrupted)")
	return cmd
}

type summaryReader interface {
	Summary(ctx context.Context) (cachestore.Summary, error)
}

func watchCache(ctx context.Context, out io.Writer, store summaryReader, interval time.Duration, count int) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var previous *cachestore.Summary
	for sample := 1; ; sample++ {
		current, err := store.Summary(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, formatWatchLine(time.Now(), current, previous))
		previous = &current
		if count > 0 && sample >= count {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func formatWatchLine(now time.Time, current cachestore.Summary, previous *cachestore.Summary) string {
	line := fmt.Sprintf("%s total=%s passed=%s failed=%s", now.Format("15:04:05"),
		formatCount(current.Total()), formatCount(current.Passed), formatCount(current.Failed))
	if previous == nil {
		return line
	}
	return fmt.Sprintf("%s (%s passed, %s failed)", line,
		signedDelta(current.Passed-previous.Passed), signedDelta(current.Failed-previous.Failed))
}

func signedDelta(n int) string {
	if n >= 0 {
		return "+" + formatCount(n)
	}
	return "-" + formatCount(-n)
}
