package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"audiotool/internal/cachestore"
)

// Format selects the export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts csv, json, yaml (and yml).
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "csv", "":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unsupported export format %q (use csv, json, or yaml)", value)
}

// Extension returns the file extension including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// Lister is the store query used by Run.
type Lister interface {
	List(ctx context.Context, filter cachestore.Filter) ([]cachestore.Record, error)
}

// Row is one exported record. Optional fields are omitted when not requested.
type Row struct {
	Path        string   `json:"path" yaml:"path"`
	Hash        string   `json:"file_hash" yaml:"file_hash"`
	ModTime     *float64 `json:"mtime" yaml:"mtime"`
	Size        *int64   `json:"file_size" yaml:"file_size"`
	Status      string   `json:"status" yaml:"status"`
	LastChecked string   `json:"last_checked" yaml:"last_checked"`
	Codec       string   `json:"codec" yaml:"codec"`
	CodecType   string   `json:"codec_type" yaml:"codec_type"`
	LiveStatus  string   `json:"live_status,omitempty" yaml:"live_status,omitempty"`
	Artist      string   `json:"artist,omitempty" yaml:"artist,omitempty"`
	Album       string   `json:"album,omitempty" yaml:"album,omitempty"`
	Title       string   `json:"title,omitempty" yaml:"title,omitempty"`
}

// Options controls an export run.
type Options struct {
	Dir     string
	Format  Format
	Filter  cachestore.Filter
	Verify  bool
	Tags    bool
	Workers int
}

// Result describes a finished export.
type Result struct {
	Path  string
	Rows  int
	Live  map[LiveStatus]int
	Taken time.Duration
}

// Run lists the matching records, annotates them as requested, and writes a
// single file into opts.Dir named after the filtered partition.
func Run(ctx context.Context, lister Lister, opts Options) (Result, error) {
	start := time.Now()
	if opts.Format == "" {
		opts.Format = FormatCSV
	}
	if strings.TrimSpace(opts.Dir) == "" {
		return Result{}, errors.New("export directory is required")
	}
	records, err := lister.List(ctx, opts.Filter)
	if err != nil {
		return Result{}, err
	}
	rows, err := BuildRows(ctx, records, opts)
	if err != nil {
		return Result{}, err
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create export dir: %w", err)
	}
	target := filepath.Join(opts.Dir, FileName(opts.Filter, opts.Format))
	tmp, err := os.CreateTemp(opts.Dir, "."+filepath.Base(target)+".*")
	if err != nil {
		return Result{}, fmt.Errorf("create export file: %w", err)
	}
	if err := Write(tmp, opts.Format, rows, opts); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return Result{}, err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return Result{}, fmt.Errorf("close export file: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return Result{}, fmt.Errorf("publish export file: %w", err)
	}

	res := Result{Path: target, Rows: len(rows), Taken: time.Since(start)}
	if opts.Verify {
		res.Live = make(map[LiveStatus]int)
		for _, row := range rows {
			res.Live[LiveStatus(row.LiveStatus)]++
		}
	}
	return res, nil
}

// FileName derives the export file name from the filter: passed_files,
// failed_files, or all_files, suffixed with the codec filters when present.
func FileName(filter cachestore.Filter, format Format) string {
	base := "all_files"
	switch filter.Status {
	case cachestore.StatusPassed:
		base = "passed_files"
	case cachestore.StatusFailed:
		base = "failed_files"
	}
	for _, part := range []string{filter.Codec, filter.CodecType} {
		if part = sanitize(part); part != "" {
			base += "_" + part
		}
	}
	return base + format.Extension()
}

func sanitize(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '-'
	}, value)
}

// BuildRows converts records to rows, computing live status and tags in
// parallel when requested. Row order follows records.
func BuildRows(ctx context.Context, records []cachestore.Record, opts Options) ([]Row, error) {
	rows := make([]Row, len(records))
	for i, rec := range records {
		rows[i] = baseRow(rec)
	}
	if !opts.Verify && !opts.Tags {
		return rows, nil
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	indexes := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				if opts.Verify {
					rows[i].LiveStatus = string(CheckLive(records[i]))
				}
				if opts.Tags {
					rows[i].Artist, rows[i].Album, rows[i].Title = ReadTags(records[i].Path)
				}
			}
		}()
	}

	var err error
feed:
	for i := range records {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		case indexes <- i:
		}
	}
	close(indexes)
	wg.Wait()
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func baseRow(rec cachestore.Record) Row {
	row := Row{
		Path:      rec.Path,
		Hash:      rec.Hash,
		Status:    string(rec.Status),
		Codec:     rec.Codec,
		CodecType: rec.CodecType,
	}
	if rec.HasModTime {
		mtime := rec.ModTime
		row.ModTime = &mtime
	}
	if rec.HasSize {
		size := rec.Size
		row.Size = &size
	}
	if !rec.LastChecked.IsZero() {
		row.LastChecked = rec.LastChecked.UTC().Format(time.RFC3339)
	}
	return row
}

// Columns returns the CSV header for the given options.
func Columns(opts Options) []string {
	cols := []string{"path", "file_hash", "mtime", "file_size", "status", "last_checked", "codec", "codec_type"}
	if opts.Verify {
		cols = append(cols, "live_status")
	}
	if opts.Tags {
		cols = append(cols, "artist", "album", "title")
	}
	return cols
}

// Write encodes rows in the requested format.
func Write(w io.Writer, format Format, rows []Row, opts Options) error {
	switch format {
	case FormatCSV:
		return writeCSV(w, rows, opts)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if rows == nil {
			rows = []Row{}
		}
		if err := enc.Encode(rows); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if rows == nil {
			rows = []Row{}
		}
		if err := enc.Encode(rows); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	}
	return fmt.Errorf("unsupported export format %q", format)
}

func writeCSV(w io.Writer, rows []Row, opts Options) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns(opts)); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.Path,
			row.Hash,
			formatFloat(row.ModTime),
			formatInt(row.Size),
			row.Status,
			row.LastChecked,
			row.Codec,
			row.CodecType,
		}
		if opts.Verify {
			record = append(record, row.LiveStatus)
		}
		if opts.Tags {
			record = append(record, row.Artist, row.Album, row.Title)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatInt(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}
