package cachestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

const (
	recordColumns = "path, file_hash, mtime, status, last_checked, file_size, codec, codec_type"

	// lastCheckedLayout is fixed width so stored timestamps sort lexically.
	lastCheckedLayout = "2006-01-02T15:04:05.000000Z07:00"

	unknownCodec = "unknown"
)

// Lookup returns the cached record for path from whichever partition holds
// it. It never takes the advisory lock.
func (s *Store) Lookup(ctx context.Context, path string) (Record, bool, error) {
	ctx = ensureContext(ctx)
	query := fmt.Sprintf(
		"SELECT %[1]s FROM %[2]s WHERE path = ? UNION ALL SELECT %[1]s FROM %[3]s WHERE path = ? LIMIT 1",
		recordColumns, passedTable, failedTable,
	)
	var rec Record
	err := retryOnBusy(ctx, func() error {
		row := s.db.QueryRowContext(ctx, query, path, path)
		var scanErr error
		rec, scanErr = scanRecord(row)
		return scanErr
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("lookup %s: %w", path, err)
	}
	return rec, true, nil
}

// Upsert writes rec into the partition matching its status, removing the path
// from the opposite partition in the same transaction.
func (s *Store) Upsert(ctx context.Context, rec Record) error {
	return s.Apply(ctx, []Mutation{UpsertMutation(rec)})
}

// RefreshModTime updates only the stored modification time of path in the
// partition matching status. Hash, status, and last_checked are untouched.
func (s *Store) RefreshModTime(ctx context.Context, path string, mtime float64, status Status) error {
	return s.Apply(ctx, []Mutation{RefreshMutation(path, mtime, status)})
}

// Apply performs mutations in order under one lock acquisition and one
// transaction. An empty batch is a no-op and does not touch the lock.
func (s *Store) Apply(ctx context.Context, mutations []Mutation) error {
	if len(mutations) == 0 {
		return nil
	}
	for _, m := range mutations {
		if _, _, err := partition(m.Record.Status); err != nil {
			return fmt.Errorf("mutation for %s: %w", m.Record.Path, err)
		}
	}
	return s.withLock(ctx, func() error {
		return s.inTx(ctx, func(tx *sql.Tx) error {
			for _, m := range mutations {
				if err := applyMutation(ctx, tx, m); err != nil {
					return err
				}
			}
			return nil
		})
	})
}

func applyMutation(ctx context.Context, tx *sql.Tx, m Mutation) error {
	target, opposite, err := partition(m.Record.Status)
	if err != nil {
		return err
	}
	rec := m.Record
	switch m.Kind {
	case MutationUpsert:
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+opposite+" WHERE path = ?", rec.Path); err != nil {
			return fmt.Errorf("delete %s from %s: %w", rec.Path, opposite, err)
		}
		checked := rec.LastChecked
		if checked.IsZero() {
			checked = time.Now()
		}
		_, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO "+target+" ("+recordColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			rec.Path,
			nullableString(rec.Hash),
			nullableFloat(rec.ModTime, rec.HasModTime),
			string(rec.Status),
			formatLastChecked(checked),
			nullableInt(rec.Size, rec.HasSize),
			nullableString(rec.Codec),
			nullableString(rec.CodecType),
		)
		if err != nil {
			return fmt.Errorf("upsert %s into %s: %w", rec.Path, target, err)
		}
	case MutationRefresh:
		if _, err := tx.ExecContext(ctx, "UPDATE "+target+" SET mtime = ? WHERE path = ?", rec.ModTime, rec.Path); err != nil {
			return fmt.Errorf("refresh mtime of %s: %w", rec.Path, err)
		}
	case MutationCodec:
		_, err := tx.ExecContext(ctx, "UPDATE "+target+" SET codec = ?, codec_type = ? WHERE path = ?",
			nullableString(rec.Codec), nullableString(rec.CodecType), rec.Path)
		if err != nil {
			return fmt.Errorf("update codec of %s: %w", rec.Path, err)
		}
	default:
		return fmt.Errorf("unknown mutation kind %d", m.Kind)
	}
	return nil
}

// List returns records matching filter ordered by path.
func (s *Store) List(ctx context.Context, filter Filter) ([]Record, error) {
	ctx = ensureContext(ctx)
	tables := partitions
	if filter.Status != "" {
		table, _, err := partition(filter.Status)
		if err != nil {
			return nil, err
		}
		tables = []string{table}
	}

	var (
		where []string
		args  []any
	)
	if filter.Codec != "" {
		where = append(where, "codec = ?")
		args = append(args, filter.Codec)
	}
	if filter.CodecType != "" {
		where = append(where, "codec_type = ?")
		args = append(args, filter.CodecType)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	selects := make([]string, 0, len(tables))
	var queryArgs []any
	for _, table := range tables {
		selects = append(selects, "SELECT "+recordColumns+" FROM "+table+clause)
		queryArgs = append(queryArgs, args...)
	}
	query := strings.Join(selects, " UNION ALL ") + " ORDER BY path"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		queryArgs = append(queryArgs, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// MissingCodecs returns records whose codec was never resolved: a NULL codec
// or codec type, or the "unknown" placeholder. Each record's Status names the
// partition holding it. Results are ordered by path.
func (s *Store) MissingCodecs(ctx context.Context) ([]Record, error) {
	ctx = ensureContext(ctx)
	var records []Record
	for _, status := range []Status{StatusPassed, StatusFailed} {
		table, _, err := partition(status)
		if err != nil {
			return nil, err
		}
		rows, err := s.db.QueryContext(ctx, "SELECT "+recordColumns+" FROM "+table+
			" WHERE codec IS NULL OR codec = '' OR codec = ? OR codec_type IS NULL", unknownCodec)
		if err != nil {
			return nil, fmt.Errorf("list records without codec: %w", err)
		}
		for rows.Next() {
			rec, err := scanRecord(rows)
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan record: %w", err)
			}
			rec.Status = status
			records = append(records, rec)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}
	slices.SortFunc(records, func(a, b Record) int { return strings.Compare(a.Path, b.Path) })
	return records, nil
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (Record, error) {
	var (
		path        string
		hash        sql.NullString
		mtime       sql.NullFloat64
		status      sql.NullString
		lastChecked sql.NullString
		size        sql.NullInt64
		codec       sql.NullString
		codecType   sql.NullString
	)
	if err := scanner.Scan(&path, &hash, &mtime, &status, &lastChecked, &size, &codec, &codecType); err != nil {
		return Record{}, err
	}
	rec := Record{
		Path:       path,
		Hash:       hash.String,
		ModTime:    mtime.Float64,
		HasModTime: mtime.Valid,
		Size:       size.Int64,
		HasSize:    size.Valid,
		Status:     Status(strings.ToUpper(status.String)),
		Codec:      codec.String,
		CodecType:  codecType.String,
	}
	if checked, err := parseTimeString(lastChecked.String); err == nil {
		rec.LastChecked = checked
	}
	return rec, nil
}

func formatLastChecked(t time.Time) string {
	return t.UTC().Format(lastCheckedLayout)
}

// parseTimeString accepts the store's own layout plus the naive ISO-8601
// timestamps written by older tools.
func parseTimeString(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("empty time")
	}
	layouts := []string{
		lastCheckedLayout,
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999",
		"2006-01-02 15:04:05.999999",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", value)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableFloat(value float64, valid bool) any {
	if !valid {
		return nil
	}
	return value
}

func nullableInt(value int64, valid bool) any {
	if !valid {
		return nil
	}
	return value
}
