package cachestore_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"audiotool/internal/cachestore"
	"audiotool/internal/testsupport"
)

func passedRecord(path string) cachestore.Record {
	return cachestore.Record{
		Path:       path,
		Hash:       "hash-" + filepath.Base(path),
		ModTime:    1700000000.25,
		HasModTime: true,
		Size:       1024,
		HasSize:    true,
		Status:     cachestore.StatusPassed,
		Codec:      "flac",
		CodecType:  "lossless",
	}
}

func TestOpenCreatesPartitions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	health, err := store.CheckHealth(ctx)
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !health.DatabaseExists || !health.Readable {
		t.Fatalf("expected readable database, got %#v", health)
	}
	if len(health.Tables) != 2 {
		t.Fatalf("expected both partitions, got %v", health.Tables)
	}
	if len(health.MissingColumns) != 0 {
		t.Fatalf("expected no missing columns, got %v", health.MissingColumns)
	}
	if health.JournalMode != "wal" {
		t.Fatalf("expected WAL journal, got %q", health.JournalMode)
	}
	if !health.IntegrityOK {
		t.Fatal("expected integrity check to pass")
	}

	summary, err := store.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if summary.Total() != 0 {
		t.Fatalf("expected empty store, got %#v", summary)
	}
}

func TestLookupMissingPath(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	_, found, err := store.Lookup(context.Background(), "/music/none.flac")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if found {
		t.Fatal("expected no record")
	}
}

func TestUpsertMovesPathBetweenPartitions(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	rec := passedRecord("/music/a.flac")

	if err := store.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert passed failed: %v", err)
	}
	rec.Status = cachestore.StatusFailed
	rec.Hash = "changed"
	if err := store.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert failed failed: %v", err)
	}

	got, found, err := store.Lookup(ctx, rec.Path)
	if err != nil || !found {
		t.Fatalf("Lookup: found=%v err=%v", found, err)
	}
	if got.Status != cachestore.StatusFailed || got.Hash != "changed" {
		t.Fatalf("unexpected record: %#v", got)
	}
	summary, err := store.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if summary.Passed != 0 || summary.Failed != 1 {
		t.Fatalf("expected path only in failed partition, got %#v", summary)
	}
}

func TestRefreshModTimeTouchesOnlyMtime(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	checked := time.Date(2024, 5, 1, 12, 30, 0, 123456000, time.UTC)
	rec := passedRecord("/music/b.flac")
	rec.LastChecked = checked

	if err := store.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := store.RefreshModTime(ctx, rec.Path, 1800000000.5, cachestore.StatusPassed); err != nil {
		t.Fatalf("RefreshModTime failed: %v", err)
	}

	got, found, err := store.Lookup(ctx, rec.Path)
	if err != nil || !found {
		t.Fatalf("Lookup: found=%v err=%v", found, err)
	}
	if got.ModTime != 1800000000.5 {
		t.Fatalf("expected refreshed mtime, got %f", got.ModTime)
	}
	if got.Hash != rec.Hash || got.Status != rec.Status || got.Size != rec.Size || got.Codec != rec.Codec {
		t.Fatalf("refresh changed more than mtime: %#v", got)
	}
	if !got.LastChecked.Equal(checked) {
		t.Fatalf("expected last_checked %s, got %s", checked, got.LastChecked)
	}
}

func TestCodecMutationBackfillsMissingCodecs(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	known := passedRecord("/music/known.flac")
	blank := passedRecord("/music/blank.flac")
	blank.Codec, blank.CodecType = "", ""
	placeholder := passedRecord("/music/placeholder.mp3")
	placeholder.Codec, placeholder.CodecType = "unknown", "unknown"
	failed := passedRecord("/music/half.ogg")
	failed.Status = cachestore.StatusFailed
	failed.CodecType = ""
	for _, rec := range []cachestore.Record{known, blank, placeholder, failed} {
		if err := store.Upsert(ctx, rec); err != nil {
			t.Fatalf("Upsert %s: %v", rec.Path, err)
		}
	}

	missing, err := store.MissingCodecs(ctx)
	if err != nil {
		t.Fatalf("MissingCodecs failed: %v", err)
	}
	var paths []string
	for _, rec := range missing {
		paths = append(paths, rec.Path)
	}
	want := []string{blank.Path, failed.Path, placeholder.Path}
	if fmt.Sprint(paths) != fmt.Sprint(want) {
		t.Fatalf("MissingCodecs = %v, want %v", paths, want)
	}

	err = store.Apply(ctx, []cachestore.Mutation{
		cachestore.CodecMutation(blank.Path, cachestore.StatusPassed, "flac", "lossless"),
		cachestore.CodecMutation(placeholder.Path, cachestore.StatusPassed, "mp3", "lossy"),
		cachestore.CodecMutation(failed.Path, cachestore.StatusFailed, "ogg", "lossy"),
	})
	if err != nil {
		t.Fatalf("Apply codec mutations: %v", err)
	}

	got, _, err := store.Lookup(ctx, blank.Path)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got.Codec != "flac" || got.CodecType != "lossless" {
		t.Fatalf("expected codec backfilled, got %#v", got)
	}
	if got.Hash != blank.Hash || got.ModTime != blank.ModTime || got.Size != blank.Size {
		t.Fatalf("codec update changed more than codec columns: %#v", got)
	}
	got, _, err = store.Lookup(ctx, failed.Path)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got.Status != cachestore.StatusFailed || got.CodecType != "lossy" {
		t.Fatalf("expected failed row updated in place, got %#v", got)
	}

	missing, err = store.MissingCodecs(ctx)
	if err != nil {
		t.Fatalf("MissingCodecs failed: %v", err)
	}
	if len(missing) != 0 {
		t.Fatalf("expected no rows left without codec, got %#v", missing)
	}
}

func TestApplyRunsMutationsInOrder(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	first := passedRecord("/music/c.flac")
	second := first
	second.Status = cachestore.StatusFailed
	other := passedRecord("/music/d.flac")

	err := store.Apply(ctx, []cachestore.Mutation{
		cachestore.UpsertMutation(first),
		cachestore.UpsertMutation(other),
		cachestore.UpsertMutation(second),
		cachestore.RefreshMutation(other.Path, 42, cachestore.StatusPassed),
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	got, _, err := store.Lookup(ctx, first.Path)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got.Status != cachestore.StatusFailed {
		t.Fatalf("expected last write to win, got %s", got.Status)
	}
	got, _, err = store.Lookup(ctx, other.Path)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got.ModTime != 42 {
		t.Fatalf("expected refreshed mtime 42, got %f", got.ModTime)
	}
	summary, _ := store.Summary(ctx)
	if summary.Passed != 1 || summary.Failed != 1 {
		t.Fatalf("unexpected summary: %#v", summary)
	}

	if err := store.Apply(ctx, nil); err != nil {
		t.Fatalf("empty Apply should be a no-op, got %v", err)
	}
	bad := passedRecord("/music/e.flac")
	bad.Status = "MAYBE"
	if err := store.Apply(ctx, []cachestore.Mutation{cachestore.UpsertMutation(bad)}); err == nil {
		t.Fatal("expected invalid status to be rejected")
	}
}

func TestCleanupRemovesExactlyMissingPaths(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	dir := t.TempDir()

	var mutations []cachestore.Mutation
	for i := 0; i < 3; i++ {
		path := filepath.Join(dir, fmt.Sprintf("kept-%d.mp3", i))
		testsupport.WriteContent(t, path, []byte("data"))
		mutations = append(mutations, cachestore.UpsertMutation(passedRecord(path)))
	}
	gone := passedRecord(filepath.Join(dir, "gone.mp3"))
	goneFailed := passedRecord(filepath.Join(dir, "gone-failed.mp3"))
	goneFailed.Status = cachestore.StatusFailed
	mutations = append(mutations, cachestore.UpsertMutation(gone), cachestore.UpsertMutation(goneFailed))
	if err := store.Apply(ctx, mutations); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	removed, err := store.Cleanup(ctx)
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 stale rows removed, got %d", removed)
	}
	summary, _ := store.Summary(ctx)
	if summary.Passed != 3 || summary.Failed != 0 {
		t.Fatalf("unexpected summary after cleanup: %#v", summary)
	}

	removed, err = store.Cleanup(ctx)
	if err != nil || removed != 0 {
		t.Fatalf("second cleanup: removed=%d err=%v", removed, err)
	}
}

func TestMutationsFailWithLockTimeoutWhileLockHeld(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	opts := testsupport.StoreOptions(cfg)
	opts.LockTimeout = 200 * time.Millisecond
	store, err := cachestore.Open(context.Background(), opts)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	holder := flock.New(cfg.LockPath())
	if err := holder.Lock(); err != nil {
		t.Fatalf("hold lock: %v", err)
	}

	started := time.Now()
	err = store.Upsert(context.Background(), passedRecord("/music/locked.flac"))
	if !errors.Is(err, cachestore.ErrLockTimeout) {
		t.Fatalf("expected ErrLockTimeout, got %v", err)
	}
	if waited := time.Since(started); waited < 150*time.Millisecond {
		t.Fatalf("expected bounded wait before timeout, returned after %s", waited)
	}
	if _, err := store.Cleanup(context.Background()); !errors.Is(err, cachestore.ErrLockTimeout) {
		t.Fatalf("expected cleanup to time out, got %v", err)
	}

	if err := holder.Unlock(); err != nil {
		t.Fatalf("release lock: %v", err)
	}
	if err := store.Upsert(context.Background(), passedRecord("/music/locked.flac")); err != nil {
		t.Fatalf("Upsert after release failed: %v", err)
	}
}

func TestLockWaitHonoursCancellation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	holder := flock.New(cfg.LockPath())
	if err := holder.Lock(); err != nil {
		t.Fatalf("hold lock: %v", err)
	}
	defer holder.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := store.Upsert(ctx, passedRecord("/music/cancel.flac"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected caller deadline to surface, got %v", err)
	}
}

func TestConcurrentStoresKeepPartitionsDisjoint(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first := testsupport.MustOpenStore(t, cfg)
	second := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	const paths = 20
	var wg sync.WaitGroup
	for w, store := range []*cachestore.Store{first, second} {
		wg.Add(1)
		go func(w int, store *cachestore.Store) {
			defer wg.Done()
			for round := 0; round < 5; round++ {
				var batch []cachestore.Mutation
				for i := 0; i < paths; i++ {
					rec := passedRecord(fmt.Sprintf("/music/shared-%02d.flac", i))
					if (i+round+w)%2 == 0 {
						rec.Status = cachestore.StatusFailed
					}
					batch = append(batch, cachestore.UpsertMutation(rec))
				}
				if err := store.Apply(ctx, batch); err != nil {
					t.Errorf("Apply from store %d failed: %v", w, err)
					return
				}
			}
		}(w, store)
	}
	wg.Wait()

	summary, err := first.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if summary.Total() != paths {
		t.Fatalf("expected each path exactly once, got %#v", summary)
	}
}

func TestOpenLegacySchemaRequiresMigration(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()

	db, err := sql.Open("sqlite", cfg.DatabasePath())
	if err != nil {
		t.Fatalf("open legacy db: %v", err)
	}
	legacy := `
CREATE TABLE passed_files (path TEXT PRIMARY KEY, file_hash TEXT, status TEXT, last_checked TEXT);
CREATE TABLE failed_files (path TEXT PRIMARY KEY, file_hash TEXT, status TEXT, last_checked TEXT);
INSERT INTO passed_files VALUES ('/music/old.flac', 'abc', 'PASSED', '2023-01-02T03:04:05.123456');
`
	if _, err := db.Exec(legacy); err != nil {
		t.Fatalf("create legacy schema: %v", err)
	}
	_ = db.Close()

	if _, err := cachestore.Open(ctx, testsupport.StoreOptions(cfg)); !errors.Is(err, cachestore.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}

	result, err := cachestore.Migrate(ctx, testsupport.StoreOptions(cfg))
	if err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	if len(result.Added) != 8 {
		t.Fatalf("expected four columns added per partition, got %v", result.Added)
	}

	again, err := cachestore.Migrate(ctx, testsupport.StoreOptions(cfg))
	if err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
	if again.Changed() {
		t.Fatalf("expected idempotent migration, got %#v", again)
	}

	store := testsupport.MustOpenStore(t, cfg)
	rec, found, err := store.Lookup(ctx, "/music/old.flac")
	if err != nil || !found {
		t.Fatalf("Lookup legacy row: found=%v err=%v", found, err)
	}
	if rec.HasModTime || rec.HasSize {
		t.Fatalf("expected migrated columns to be NULL, got %#v", rec)
	}
	if rec.Hash != "abc" || rec.Status != cachestore.StatusPassed {
		t.Fatalf("unexpected legacy record: %#v", rec)
	}
	if rec.LastChecked.Year() != 2023 {
		t.Fatalf("expected legacy timestamp to parse, got %s", rec.LastChecked)
	}
}

// firstGenerationSchema is the cache layout written by the first generation
// of the tool, keyed on file_path.
const firstGenerationSchema = `
CREATE TABLE IF NOT EXISTS passed_files (file_path TEXT PRIMARY KEY, file_hash TEXT, mtime REAL, status TEXT, last_checked TEXT, codec TEXT);
CREATE TABLE IF NOT EXISTS failed_files (file_path TEXT PRIMARY KEY, file_hash TEXT, mtime REAL, status TEXT, last_checked TEXT, codec TEXT);
`

func TestMigrateRenamesFirstGenerationKey(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()
	kept := filepath.Join(t.TempDir(), "kept.flac")
	testsupport.WriteFile(t, kept, 64)

	db, err := sql.Open("sqlite", cfg.DatabasePath())
	if err != nil {
		t.Fatalf("open legacy db: %v", err)
	}
	if _, err := db.Exec(firstGenerationSchema); err != nil {
		t.Fatalf("create legacy schema: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO passed_files VALUES (?, 'abc', 1700000000.5, 'PASSED', '2023-01-02T03:04:05.123456', 'flac')`, kept); err != nil {
		t.Fatalf("insert passed row: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO failed_files VALUES ('/gone/missing.mp3', 'def', 1700000000.5, 'FAILED', '2023-01-02T03:04:05', 'mp3')`); err != nil {
		t.Fatalf("insert failed row: %v", err)
	}
	_ = db.Close()

	if _, err := cachestore.Open(ctx, testsupport.StoreOptions(cfg)); !errors.Is(err, cachestore.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}

	backup := cfg.DatabasePath() + ".bak"
	result, err := cachestore.Migrate(ctx, testsupport.StoreOptions(cfg), cachestore.WithBackup(backup))
	if err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	wantRenamed := []string{"passed_files.file_path->path", "failed_files.file_path->path"}
	if fmt.Sprint(result.Renamed) != fmt.Sprint(wantRenamed) {
		t.Fatalf("expected key renamed in both partitions, got %v", result.Renamed)
	}
	wantAdded := []string{"passed_files.file_size", "passed_files.codec_type", "failed_files.file_size", "failed_files.codec_type"}
	if fmt.Sprint(result.Added) != fmt.Sprint(wantAdded) {
		t.Fatalf("unexpected added columns: %v", result.Added)
	}
	if result.Backup != backup {
		t.Fatalf("expected backup at %s, got %q", backup, result.Backup)
	}

	again, err := cachestore.Migrate(ctx, testsupport.StoreOptions(cfg))
	if err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
	if again.Changed() {
		t.Fatalf("expected idempotent migration, got %#v", again)
	}

	store := testsupport.MustOpenStore(t, cfg)
	rec, found, err := store.Lookup(ctx, kept)
	if err != nil || !found {
		t.Fatalf("Lookup legacy row: found=%v err=%v", found, err)
	}
	if rec.Hash != "abc" || rec.Codec != "flac" || !rec.HasModTime || rec.HasSize {
		t.Fatalf("unexpected migrated record: %#v", rec)
	}

	removed, err := store.Cleanup(ctx)
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected the missing legacy row removed, got %d", removed)
	}
	records, err := store.List(ctx, cachestore.Filter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 1 || records[0].Path != kept {
		t.Fatalf("unexpected records after cleanup: %#v", records)
	}

	copyDB, err := sql.Open("sqlite", backup)
	if err != nil {
		t.Fatalf("open backup: %v", err)
	}
	defer copyDB.Close()
	var legacyRows int
	if err := copyDB.QueryRow("SELECT COUNT(file_path) FROM passed_files").Scan(&legacyRows); err != nil {
		t.Fatalf("backup should keep the legacy layout: %v", err)
	}
	if legacyRows != 1 {
		t.Fatalf("expected the legacy row in the backup, got %d", legacyRows)
	}
}

func TestMigrateRejectsTableWithoutKey(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	db, err := sql.Open("sqlite", cfg.DatabasePath())
	if err != nil {
		t.Fatalf("open legacy db: %v", err)
	}
	if _, err := db.Exec(`CREATE TABLE passed_files (file_hash TEXT, status TEXT)`); err != nil {
		t.Fatalf("create keyless table: %v", err)
	}
	_ = db.Close()

	if _, err := cachestore.Migrate(context.Background(), testsupport.StoreOptions(cfg)); !errors.Is(err, cachestore.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch for a keyless table, got %v", err)
	}
}

func TestMigrateSkipsBackupForNewDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	backup := cfg.DatabasePath() + ".bak"

	result, err := cachestore.Migrate(context.Background(), testsupport.StoreOptions(cfg), cachestore.WithBackup(backup))
	if err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	if result.Backup != "" || result.Changed() {
		t.Fatalf("expected no backup and no changes for a fresh database, got %#v", result)
	}
	if _, err := os.Stat(backup); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected no backup file, got %v", err)
	}
}

func TestReportAndList(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	now := time.Now()

	recent := passedRecord("/music/a.flac")
	recent.LastChecked = now.Add(-time.Hour)
	old := passedRecord("/music/b.mp3")
	old.Codec, old.CodecType = "mp3", "lossy"
	old.LastChecked = now.Add(-30 * 24 * time.Hour)
	broken := passedRecord("/music/c.flac")
	broken.Status = cachestore.StatusFailed
	broken.LastChecked = now.Add(-2 * time.Hour)
	unknown := passedRecord("/music/d.wma")
	unknown.Codec, unknown.CodecType = "", ""
	unknown.LastChecked = now.Add(-3 * time.Hour)

	if err := store.Apply(ctx, []cachestore.Mutation{
		cachestore.UpsertMutation(recent),
		cachestore.UpsertMutation(old),
		cachestore.UpsertMutation(broken),
		cachestore.UpsertMutation(unknown),
	}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	report, err := store.Report(ctx, now)
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	if report.Passed != 3 || report.Failed != 1 {
		t.Fatalf("unexpected totals: %#v", report.Summary)
	}
	if report.RecentPassed != 2 || report.RecentFailed != 1 {
		t.Fatalf("unexpected recent activity: passed=%d failed=%d", report.RecentPassed, report.RecentFailed)
	}
	counts := map[string]int{}
	for _, c := range report.Codecs {
		counts[string(c.Status)+"/"+c.Codec] = c.Count
	}
	if counts["PASSED/flac"] != 1 || counts["PASSED/mp3"] != 1 || counts["PASSED/unknown"] != 1 || counts["FAILED/flac"] != 1 {
		t.Fatalf("unexpected codec distribution: %v", counts)
	}
	if report.LastChecked.IsZero() {
		t.Fatal("expected last checked timestamp")
	}

	all, err := store.List(ctx, cachestore.Filter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 4 || all[0].Path != "/music/a.flac" || all[3].Path != "/music/d.wma" {
		t.Fatalf("expected 4 records ordered by path, got %v", all)
	}
	lossless, err := store.List(ctx, cachestore.Filter{Status: cachestore.StatusPassed, CodecType: "lossless"})
	if err != nil {
		t.Fatalf("List filtered failed: %v", err)
	}
	if len(lossless) != 1 || lossless[0].Path != "/music/a.flac" {
		t.Fatalf("unexpected filtered list: %v", lossless)
	}
	limited, err := store.List(ctx, cachestore.Filter{Limit: 2})
	if err != nil || len(limited) != 2 {
		t.Fatalf("expected 2 limited records, got %d (%v)", len(limited), err)
	}
}
