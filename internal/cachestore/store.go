package cachestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"audiotool/internal/logging"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond

	busyTimeoutMillis  = 5000
	defaultLockTimeout = 60 * time.Second
	lockRetryDelay     = 50 * time.Millisecond
)

// Options configures Open and Migrate.
type Options struct {
	// Path is the SQLite database file.
	Path string
	// LockPath is the advisory lock file. Defaults to Path with a .lock
	// extension.
	LockPath string
	// LockTimeout bounds the wait for the advisory lock. Defaults to 60s.
	LockTimeout time.Duration
	Logger      *slog.Logger
}

func (o Options) withDefaults() (Options, error) {
	if strings.TrimSpace(o.Path) == "" {
		return o, errors.New("cache database path is required")
	}
	if o.LockPath == "" {
		o.LockPath = strings.TrimSuffix(o.Path, filepath.Ext(o.Path)) + ".lock"
	}
	if o.LockTimeout <= 0 {
		o.LockTimeout = defaultLockTimeout
	}
	o.Logger = logging.NewComponentLogger(o.Logger, "cachestore")
	return o, nil
}

// Store manages the integrity cache backed by SQLite.
type Store struct {
	db          *sql.DB
	path        string
	lock        *flock.Flock
	lockTimeout time.Duration
	logger      *slog.Logger

	// writeMu serializes writers inside this process; the flock only
	// excludes other processes sharing the lock file.
	writeMu sync.Mutex
}

// Open creates or connects to the cache database, ensuring its schema. It
// fails with ErrSchemaMismatch when an existing database lacks columns.
func Open(ctx context.Context, opts Options) (*Store, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	store, err := openStore(opts)
	if err != nil {
		return nil, err
	}
	if err := store.withLock(ctx, func() error {
		return store.initSchema(ctx)
	}); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func openStore(opts Options) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	db, err := sql.Open("sqlite", dataSourceName(opts.Path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Pragmas in the DSN apply to every pooled connection; journal_mode is
	// persistent but verified here so a read-only filesystem fails early.
	var mode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	return &Store{
		db:          db,
		path:        opts.Path,
		lock:        flock.New(opts.LockPath),
		lockTimeout: opts.LockTimeout,
		logger:      opts.Logger,
	}, nil
}

func dataSourceName(path string) string {
	return fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_txlock=immediate", path, busyTimeoutMillis)
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// withLock runs fn while holding the advisory lock, waiting at most the
// configured lock timeout for another process to release it.
func (s *Store) withLock(ctx context.Context, fn func() error) error {
	ctx = ensureContext(ctx)
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	started := time.Now()
	locked, err := s.lock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil || !locked {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil || errors.Is(err, context.DeadlineExceeded) {
			logging.WarnWithContext(s.logger, "cache lock wait exhausted", "cache_lock_timeout",
				logging.String("lock_path", s.lock.Path()),
				logging.Duration("waited", time.Since(started)),
				logging.String(logging.FieldErrorHint, "another audiotool process holds the lock; retry when it finishes"),
				logging.String(logging.FieldImpact, "cache write skipped"),
			)
			return fmt.Errorf("%w: %s after %s", ErrLockTimeout, s.lock.Path(), s.lockTimeout)
		}
		return fmt.Errorf("acquire cache lock: %w", err)
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("release cache lock failed", logging.Error(err))
		}
	}()
	if waited := time.Since(started); waited > time.Second {
		s.logger.Debug("cache lock acquired after wait", logging.Duration("waited", waited))
	}
	return fn()
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// inTx runs fn inside one transaction, retrying the whole transaction when
// SQLite reports contention.
func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()
		if err := fn(tx); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}
