package cachestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"audiotool/internal/fileutil"
	"audiotool/internal/logging"
)

// legacyKeyColumn is the primary key name used by caches from the first
// generation of the tool.
const legacyKeyColumn = "file_path"

// MigrationResult lists the schema changes Migrate applied.
type MigrationResult struct {
	// Renamed holds "table.old->new" entries for every renamed column.
	Renamed []string
	// Added holds "table.column" entries for every column created.
	Added []string
	// Backup is the copy taken before migrating, empty when none was made.
	Backup string
}

// Changed reports whether the migration modified the database.
func (r MigrationResult) Changed() bool {
	return len(r.Renamed) > 0 || len(r.Added) > 0
}

type migrateConfig struct {
	backupPath string
}

// MigrateOption customizes Migrate.
type MigrateOption func(*migrateConfig)

// WithBackup copies the database to path before any schema change. The copy
// is taken while the advisory lock is held.
func WithBackup(path string) MigrateOption {
	return func(c *migrateConfig) {
		c.backupPath = path
	}
}

// Migrate brings a legacy cache database up to the current schema. A
// file_path key is renamed to path, missing partitions are created and
// missing columns are added as NULL so existing rows fall through to the hash
// path on their next check. Migrate is idempotent and runs under the
// advisory lock.
func Migrate(ctx context.Context, opts Options, options ...MigrateOption) (MigrationResult, error) {
	var cfg migrateConfig
	for _, opt := range options {
		opt(&cfg)
	}
	opts, err := opts.withDefaults()
	if err != nil {
		return MigrationResult{}, err
	}
	existed, err := fileExists(opts.Path)
	if err != nil {
		return MigrationResult{}, fmt.Errorf("stat cache database: %w", err)
	}
	store, err := openStore(opts)
	if err != nil {
		return MigrationResult{}, err
	}
	defer store.Close()

	var result MigrationResult
	err = store.withLock(ctx, func() error {
		result = MigrationResult{}
		if existed && cfg.backupPath != "" {
			if err := store.backup(ctx, cfg.backupPath); err != nil {
				return err
			}
			result.Backup = cfg.backupPath
		}
		return store.inTx(ctx, func(tx *sql.Tx) error {
			result.Renamed, result.Added = nil, nil
			for _, table := range partitions {
				if err := migrateTable(ctx, tx, table, &result); err != nil {
					return err
				}
			}
			if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
				return fmt.Errorf("create schema: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return MigrationResult{}, err
	}
	if result.Changed() {
		opts.Logger.Info("cache schema migrated",
			logging.String("db_path", opts.Path),
			logging.Int("columns_renamed", len(result.Renamed)),
			logging.Int("columns_added", len(result.Added)),
			logging.String("backup", result.Backup),
		)
	}
	return result, nil
}

func migrateTable(ctx context.Context, tx *sql.Tx, table string, result *MigrationResult) error {
	columns, err := tableColumns(ctx, tx, table)
	if err != nil {
		return err
	}
	if columns == nil {
		return nil
	}
	if _, ok := columns[keyColumn]; !ok {
		if _, legacy := columns[legacyKeyColumn]; !legacy {
			return fmt.Errorf("%w: %s has neither %s nor %s", ErrSchemaMismatch, table, keyColumn, legacyKeyColumn)
		}
		stmt := fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s", table, legacyKeyColumn, keyColumn)
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("rename key column of %s: %w", table, err)
		}
		result.Renamed = append(result.Renamed, table+"."+legacyKeyColumn+"->"+keyColumn)
	}
	for _, col := range requiredColumns {
		if col.name == keyColumn {
			continue
		}
		if _, ok := columns[col.name]; ok {
			continue
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", table, col.ddl)); err != nil {
			return fmt.Errorf("add column %s.%s: %w", table, col.name, err)
		}
		result.Added = append(result.Added, table+"."+col.name)
	}
	return nil
}

// backup folds the WAL into the main file and copies the database to dst.
// Callers hold the advisory lock, so no writer can interleave.
func (s *Store) backup(ctx context.Context, dst string) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("checkpoint cache journal: %w", err)
	}
	if err := fileutil.CopyFile(s.path, dst); err != nil {
		return fmt.Errorf("backup cache database: %w", err)
	}
	if err := os.Remove(dst + "-wal"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove stale backup journal: %w", err)
	}
	// Readers can keep the checkpoint from truncating; the leftover frames
	// belong with the copy.
	wal := s.path + "-wal"
	if exists, err := fileExists(wal); err != nil {
		return fmt.Errorf("stat cache journal: %w", err)
	} else if exists {
		if err := fileutil.CopyFile(wal, dst+"-wal"); err != nil {
			return fmt.Errorf("backup cache journal: %w", err)
		}
	}
	return nil
}

func fileExists(path string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
