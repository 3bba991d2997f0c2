package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"audiotool/internal/cachestore"
	"audiotool/internal/config"
	"audiotool/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check decoder binaries, directories, and the cache database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			lines := renderSectionHeader("Configuration", colorize)
			configDetail := ctx.configPath
			if !ctx.configExists {
				configDetail += " (not found, defaults used)"
			}
			lines = append(lines, renderStatusLine("Config", statusInfo, configDetail, colorize))
			lines = append(lines, renderStatusLine("Workers", statusInfo, formatCount(cfg.WorkerCount()), colorize))
			lines = append(lines, renderStatusLine("Decode timeout", statusInfo, cfg.DecodeTimeout().String(), colorize))
			lines = append(lines, renderStatusLine("Codec probing", statusInfo, yesNo(cfg.Integrity.ProbeCodec), colorize))

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Environment", colorize)...)
			results := preflight.RunAll(cmd.Context(), cfg)
			for _, r := range results {
				kind := statusOK
				if !r.Passed {
					kind = statusError
					if r.Optional {
						kind = statusWarn
					}
				}
				lines = append(lines, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Cache", colorize)...)
			lines = append(lines, cacheDoctorLine(cmd, ctx, colorize))
			fmt.Fprintln(out, strings.Join(lines, "\n"))

			if blocking := preflight.Blocking(results); len(blocking) > 0 {
				return fmt.Errorf("%d required check(s) failed", len(blocking))
			}
			return nil
		},
	}
}

func cacheDoctorLine(cmd *cobra.Command, ctx *commandContext, colorize bool) string {
	var line string
	err := ctx.withStore(cmd.Context(), func(_ *config.Config, _ *slog.Logger, store *cachestore.Store) error {
		health, err := store.CheckHealth(cmd.Context())
		if err != nil {
			return err
		}
		summary, err := store.Summary(cmd.Context())
		if err != nil {
			return err
		}
		detail := fmt.Sprintf("%s (%s, %s files, journal %s)", health.DBPath, formatBytes(health.SizeBytes), formatCount(summary.Total()), health.JournalMode)
		kind := statusOK
		if !health.IntegrityOK {
			kind = statusError
			detail += " integrity check failed"
		}
		line = renderStatusLine("Database", kind, detail, colorize)
		return nil
	})
	switch {
	case err == nil:
		return line
	case errors.Is(err, cachestore.ErrSchemaMismatch):
		return renderStatusLine("Database", statusWarn, "schema out of date; run `audiotool db migrate`", colorize)
	default:
		return renderStatusLine("Database", statusError, err.Error(), colorize)
	}
}
