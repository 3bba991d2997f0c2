// Package cachestore persists audio integrity verdicts in SQLite and guards
// every mutation with an inter-process advisory lock.
//
// The store keeps two identically shaped partitions, passed_files and
// failed_files. A path lives in at most one of them: every write deletes the
// path from the opposite partition before inserting, inside one transaction
// and while holding the lock file next to the database. Reads never take the
// lock; SQLite WAL journaling keeps them consistent while another process
// writes.
//
// Legacy databases missing newer columns are rejected by Open with
// ErrSchemaMismatch. Migrate renames a first-generation file_path key to path
// and adds the columns explicitly, leaving existing rows NULL so their first
// check falls through to hashing.
package cachestore
