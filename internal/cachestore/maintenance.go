package cachestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"audiotool/internal/logging"
)

// RecentWindow is the activity window reported by Report.
const RecentWindow = 7 * 24 * time.Hour

// Cleanup deletes every row whose path no longer exists on disk and returns
// the number of rows removed. The scan and deletes run under the advisory
// lock. Paths that cannot be stat'ed for other reasons are kept.
func (s *Store) Cleanup(ctx context.Context) (int, error) {
	var removed int
	err := s.withLock(ctx, func() error {
		stale, err := s.stalePaths(ctx)
		if err != nil {
			return err
		}
		if len(stale) == 0 {
			removed = 0
			return nil
		}
		err = s.inTx(ctx, func(tx *sql.Tx) error {
			removed = 0
			for _, entry := range stale {
				res, err := tx.ExecContext(ctx, "DELETE FROM "+entry.table+" WHERE path = ?", entry.path)
				if err != nil {
					return fmt.Errorf("delete stale %s: %w", entry.path, err)
				}
				if n, err := res.RowsAffected(); err == nil {
					removed += int(n)
				}
			}
			return nil
		})
		return err
	})
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.logger.Info("removed stale cache entries", logging.Int("removed", removed))
	}
	return removed, nil
}

type staleEntry struct {
	table string
	path  string
}

func (s *Store) stalePaths(ctx context.Context) ([]staleEntry, error) {
	var stale []staleEntry
	for _, table := range partitions {
		paths, err := s.paths(ctx, table)
		if err != nil {
			return nil, err
		}
		for _, path := range paths {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			_, statErr := os.Stat(path)
			if statErr == nil {
				continue
			}
			if errors.Is(statErr, fs.ErrNotExist) {
				stale = append(stale, staleEntry{table: table, path: path})
				continue
			}
			s.logger.Debug("keeping cache entry with unreadable path", logging.Path(path), logging.Error(statErr))
		}
	}
	return stale, nil
}

func (s *Store) paths(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT path FROM "+table)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", table, err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, rows.Err()
}

// Summary counts rows per partition without taking the lock.
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	ctx = ensureContext(ctx)
	var summary Summary
	query := fmt.Sprintf("SELECT (SELECT COUNT(1) FROM %s), (SELECT COUNT(1) FROM %s)", passedTable, failedTable)
	if err := s.db.QueryRowContext(ctx, query).Scan(&summary.Passed, &summary.Failed); err != nil {
		return Summary{}, fmt.Errorf("cache summary: %w", err)
	}
	return summary, nil
}

// Report aggregates counts, codec distribution, and activity within
// RecentWindow of now.
func (s *Store) Report(ctx context.Context, now time.Time) (Report, error) {
	ctx = ensureContext(ctx)
	summary, err := s.Summary(ctx)
	if err != nil {
		return Report{}, err
	}
	report := Report{Summary: summary, Since: now.Add(-RecentWindow)}

	for _, status := range []Status{StatusPassed, StatusFailed} {
		table, _, _ := partition(status)
		codecs, err := s.codecCounts(ctx, table, status)
		if err != nil {
			return Report{}, err
		}
		report.Codecs = append(report.Codecs, codecs...)

		var recent int
		cutoff := formatLastChecked(report.Since)
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM "+table+" WHERE last_checked >= ?", cutoff).Scan(&recent); err != nil {
			return Report{}, fmt.Errorf("recent activity %s: %w", table, err)
		}
		if status == StatusPassed {
			report.RecentPassed = recent
		} else {
			report.RecentFailed = recent
		}
	}

	var latest sql.NullString
	query := fmt.Sprintf("SELECT MAX(last_checked) FROM (SELECT last_checked FROM %s UNION ALL SELECT last_checked FROM %s)", passedTable, failedTable)
	if err := s.db.QueryRowContext(ctx, query).Scan(&latest); err != nil {
		return Report{}, fmt.Errorf("latest check: %w", err)
	}
	if latest.Valid {
		if t, err := parseTimeString(latest.String); err == nil {
			report.LastChecked = t
		}
	}
	return report, nil
}

func (s *Store) codecCounts(ctx context.Context, table string, status Status) ([]CodecCount, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT COALESCE(codec, 'unknown'), COALESCE(codec_type, 'unknown'), COUNT(1) FROM "+table+
			" GROUP BY 1, 2 ORDER BY 3 DESC, 1")
	if err != nil {
		return nil, fmt.Errorf("codec distribution %s: %w", table, err)
	}
	defer rows.Close()

	var counts []CodecCount
	for rows.Next() {
		entry := CodecCount{Status: status}
		if err := rows.Scan(&entry.Codec, &entry.CodecType, &entry.Count); err != nil {
			return nil, err
		}
		counts = append(counts, entry)
	}
	return counts, rows.Err()
}

// CheckHealth returns diagnostic information about the cache database.
func (s *Store) CheckHealth(ctx context.Context) (Health, error) {
	ctx = ensureContext(ctx)
	health := Health{DBPath: s.path}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return health, nil
		}
		return health, fmt.Errorf("stat cache database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("cache database path %q is a directory", s.path)
	}
	health.DatabaseExists = true
	health.SizeBytes = info.Size()
	if wal, err := os.Stat(s.path + "-wal"); err == nil {
		health.SizeBytes += wal.Size()
	}

	connCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping cache database: %w", err)
	}
	health.Readable = true

	if err := s.db.QueryRowContext(connCtx, "PRAGMA journal_mode").Scan(&health.JournalMode); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("journal mode: %w", err)
	}

	for _, table := range partitions {
		columns, err := tableColumns(connCtx, s.db, table)
		if err != nil {
			health.Error = err.Error()
			return health, err
		}
		if columns != nil {
			health.Tables = append(health.Tables, table)
		}
	}
	missing, err := missingColumns(connCtx, s.db)
	if err != nil {
		health.Error = err.Error()
		return health, err
	}
	health.MissingColumns = missing

	var integrity string
	if err := s.db.QueryRowContext(connCtx, "PRAGMA integrity_check").Scan(&integrity); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityOK = strings.EqualFold(integrity, "ok")
	return health, nil
}
