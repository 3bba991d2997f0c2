package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"audiotool/internal/cachestore"
	"audiotool/internal/config"
	"audiotool/internal/integrity"
	"audiotool/internal/media/codec"
)

func newDBMigrateCommand(ctx *commandContext) *cobra.Command {
	var noBackup bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Upgrade a cache written by an older version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			dbPath := cfg.DatabasePath()

			var options []cachestore.MigrateOption
			if !noBackup {
				options = append(options, cachestore.WithBackup(dbPath+".bak"))
			}
			result, err := cachestore.Migrate(cmd.Context(), ctx.storeOptions(cfg, logger), options...)
			if err != nil {
				return fmt.Errorf("migrate %s: %w", dbPath, err)
			}
			if result.Backup != "" {
				fmt.Fprintf(out, "Backup written to %s\n", result.Backup)
			}
			if !result.Changed() {
				fmt.Fprintln(out, "Cache schema is up to date")
				return nil
			}
			if len(result.Renamed) > 0 {
				fmt.Fprintf(out, "Renamed %d columns:\n", len(result.Renamed))
				for _, col := range result.Renamed {
					fmt.Fprintf(out, "  %s\n", col)
				}
			}
			if len(result.Added) > 0 {
				fmt.Fprintf(out, "Added %d columns:\n", len(result.Added))
				for _, col := range result.Added {
					fmt.Fprintf(out, "  %s\n", col)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noBackup, "no-backup", false, "Skip the .bak copy of the database")
	return cmd
}

func newDBCleanupCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove cache entries whose files no longer exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(_ *config.Config, _ *slog.Logger, store *cachestore.Store) error {
				removed, err := store.Cleanup(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s stale entries\n", formatCount(removed))
				return nil
			})
		},
	}
}

func newDBUpdateCodecsCommand(ctx *commandContext) *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "update-codecs",
		Short: "Fill in codec details for cached files that lack them",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(cfg *config.Config, logger *slog.Logger, store *cachestore.Store) error {
				if workers <= 0 {
					workers = cfg.WorkerCount()
				}
				prober := codec.FFprobe{Binary: cfg.FFprobeBinary(), Timeout: codec.ProbeTimeout}
				summary, err := integrity.BackfillCodecs(cmd.Context(), store, prober, integrity.BackfillOptions{Workers: workers}, logger)
				out := cmd.OutOrStdout()
				if summary.Candidates == 0 && err == nil {
					fmt.Fprintln(out, "Codec information is complete")
					return nil
				}
				fmt.Fprintf(out, "Updated codec information for %s of %s entries\n",
					formatCount(summary.Updated), formatCount(summary.Candidates))
				if summary.Skipped > 0 {
					fmt.Fprintf(out, "Skipped %s entries that could not be read\n", formatCount(summary.Skipped))
				}
				return err
			})
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Concurrent ffprobe processes (default from config)")
	return cmd
}
