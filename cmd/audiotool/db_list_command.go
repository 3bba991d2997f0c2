package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"audiotool/internal/cachestore"
	"audiotool/internal/config"
	"audiotool/internal/export"
)

type filterFlags struct {
	status    string
	codec     string
	codecType string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.status, "status", "", "Only include passed or failed files")
	cmd.Flags().StringVar(&f.codec, "codec", "", "Only include files with this codec (e.g. flac, mp3)")
	cmd.Flags().StringVar(&f.codecType, "codec-type", "", "Only include lossless, lossy, or unknown codecs")
}

func (f *filterFlags) filter() (cachestore.Filter, error) {
	var filter cachestore.Filter
	if strings.TrimSpace(f.status) != "" {
		status, err := cachestore.ParseStatus(f.status)
		if err != nil {
			return filter, err
		}
		filter.Status = status
	}
	filter.Codec = strings.ToLower(strings.TrimSpace(f.codec))
	filter.CodecType = strings.ToLower(strings.TrimSpace(f.codecType))
	switch filter.CodecType {
	case "", "lossless", "lossy", "unknown":
	default:
		return filter, fmt.Errorf("unknown codec type %q (use lossless, lossy, or unknown)", f.codecType)
	}
	return filter, nil
}

type listEntryJSON struct {
	Path        string `json:"path"`
	Status      string `json:"status"`
	Codec       string `json:"codec,omitempty"`
	CodecType   string `json:"codec_type,omitempty"`
	LastChecked string `json:"last_checked,omitempty"`
	Live        string `json:"live_status,omitempty"`
}

func newDBListCommand(ctx *commandContext) *cobra.Command {
	var (
		filters  filterFlags
		limit    int
		verify   bool
		jsonMode bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached files",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := filters.filter()
			if err != nil {
				return err
			}
			filter.Limit = limit
			return ctx.withStore(cmd.Context(), func(_ *config.Config, _ *slog.Logger, store *cachestore.Store) error {
				records, err := store.List(cmd.Context(), filter)
				if err != nil {
					return err
				}
				entries := make([]listEntryJSON, 0, len(records))
				for _, rec := range records {
					entry := listEntryJSON{
						Path:      rec.Path,
						Status:    string(rec.Status),
						Codec:     rec.Codec,
						CodecType: rec.CodecType,
					}
					if !rec.LastChecked.IsZero() {
						entry.LastChecked = rec.LastChecked.UTC().Format("2006-01-02T15:04:05Z07:00")
					}
					if verify {
						entry.Live = string(export.CheckLive(rec))
					}
					entries = append(entries, entry)
				}
				if jsonMode {
					return writeJSON(cmd, entries)
				}

				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "No cached files match")
					return nil
				}
				headers := []string{"Status", "Path", "Codec", "Type", "Checked"}
				if verify {
					headers = append(headers, "Now")
				}
				rows := make([][]string, 0, len(records))
				for i, rec := range records {
					row := []string{string(rec.Status), rec.Path, rec.Codec, rec.CodecType, formatAgo(rec.LastChecked)}
					if verify {
						row = append(row, entries[i].Live)
					}
					rows = append(rows, row)
				}
				fmt.Fprintln(out, renderTable(headers, rows, nil))
				if limit > 0 && len(records) == limit {
					fmt.Fprintf(out, "Showing the first %s entries; raise --limit to see more\n", formatCount(limit))
				}
				return nil
			})
		},
	}
	filters.register(cmd)
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum entries to show (0 for all)")
	cmd.Flags().BoolVar(&verify, "verify", false, "Compare each entry against the file on disk")
	cmd.Flags().BoolVar(&jsonMode, "json", false, "Emit entries as JSON")
	return cmd
}

func newDBExportCommand(ctx *commandContext) *cobra.Command {
	var (
		filters   filterFlags
		format    string
		outputDir string
		verify    bool
		tags      bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export cached records to CSV, JSON, or YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := filters.filter()
			if err != nil {
				return err
			}
			exportFormat, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			return ctx.withStore(cmd.Context(), func(cfg *config.Config, _ *slog.Logger, store *cachestore.Store) error {
				dir := strings.TrimSpace(outputDir)
				if dir == "" {
					dbName := strings.TrimSuffix(filepath.Base(cfg.DatabasePath()), filepath.Ext(cfg.DatabasePath()))
					dir = filepath.Join(cfg.Paths.ExportDir, dbName)
				} else if dir, err = config.ExpandPath(dir); err != nil {
					return fmt.Errorf("resolve output dir: %w", err)
				}

				res, err := export.Run(cmd.Context(), store, export.Options{
					Dir:     dir,
					Format:  exportFormat,
					Filter:  filter,
					Verify:  verify,
					Tags:    tags,
					Workers: cfg.WorkerCount(),
				})
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Exported %s records to %s\n", formatCount(res.Rows), res.Path)
				if verify {
					for _, status := range []export.LiveStatus{export.LivePassed, export.LiveFailed, export.LiveChanged, export.LiveMissing, export.LiveError} {
						if n := res.Live[status]; n > 0 {
							fmt.Fprintf(out, "  %-8s %s\n", string(status)+":", formatCount(n))
						}
					}
				}
				return nil
			})
		},
	}
	filters.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "Output format: csv, json, or yaml")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory for the export (default: <export_dir>/<database name>)")
	cmd.Flags().BoolVar(&verify, "verify", false, "Add the current on-disk status of each file")
	cmd.Flags().BoolVar(&tags, "tags", false, "Add artist, album, and title from embedded tags")
	return cmd
}
