package cachestore

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
)

//go:embed schema.sql
var schemaSQL string

// columnSpec describes a column and the DDL used to add it to a legacy table.
type columnSpec struct {
	name string
	ddl  string
}

// requiredColumns lists every column the store reads or writes, in select order.
var requiredColumns = []columnSpec{
	{name: "path", ddl: "path TEXT"},
	{name: "file_hash", ddl: "file_hash TEXT"},
	{name: "mtime", ddl: "mtime REAL"},
	{name: "status", ddl: "status TEXT"},
	{name: "last_checked", ddl: "last_checked TEXT"},
	{name: "file_size", ddl: "file_size INTEGER"},
	{name: "codec", ddl: "codec TEXT"},
	{name: "codec_type", ddl: "codec_type TEXT"},
}

var partitions = []string{passedTable, failedTable}

// keyColumn is the primary key of both partitions. Migrate renames it from
// the legacy name and never adds it.
const keyColumn = "path"

func (s *Store) initSchema(ctx context.Context) error {
	if err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		return nil
	}); err != nil {
		return err
	}

	missing, err := missingColumns(ctx, s.db)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s missing %s (run `audiotool db migrate`)",
			ErrSchemaMismatch, s.path, strings.Join(missing, ", "))
	}
	return nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// tableColumns returns the column names of table, or nil when it does not exist.
func tableColumns(ctx context.Context, q queryer, table string) (map[string]struct{}, error) {
	rows, err := q.QueryContext(ctx, "PRAGMA table_info("+table+")")
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	defer rows.Close()

	columns := make(map[string]struct{})
	for rows.Next() {
		var (
			cid     int
			name    string
			typeStr string
			notNull int
			dflt    any
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typeStr, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan table info %s: %w", table, err)
		}
		columns[strings.ToLower(name)] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table info %s: %w", table, err)
	}
	if len(columns) == 0 {
		return nil, nil
	}
	return columns, nil
}

// missingColumns reports required columns absent from either partition as
// "table.column". A missing table is reported as the table name alone.
func missingColumns(ctx context.Context, q queryer) ([]string, error) {
	var missing []string
	for _, table := range partitions {
		columns, err := tableColumns(ctx, q, table)
		if err != nil {
			return nil, err
		}
		if columns == nil {
			missing = append(missing, table)
			continue
		}
		for _, col := range requiredColumns {
			if _, ok := columns[col.name]; !ok {
				missing = append(missing, table+"."+col.name)
			}
		}
	}
	return missing, nil
}
