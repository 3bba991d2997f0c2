package cachestore

import "errors"

var (
	// ErrLockTimeout reports that the advisory lock stayed held by another
	// process for the whole bounded wait.
	ErrLockTimeout = errors.New("timed out waiting for cache lock")

	// ErrSchemaMismatch indicates the database predates columns the store
	// requires. Run `audiotool db migrate` to add them.
	ErrSchemaMismatch = errors.New("cache schema is out of date")
)
