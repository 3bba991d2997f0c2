package testsupport

import (
	"context"
	"testing"

	"audiotool/internal/cachestore"
	"audiotool/internal/config"
)

// StoreOptions derives cache store options from a test config.
func StoreOptions(cfg *config.Config) cachestore.Options {
	return cachestore.Options{
		Path:        cfg.DatabasePath(),
		LockPath:    cfg.LockPath(),
		LockTimeout: cfg.LockTimeout(),
	}
}

// MustOpenStore opens a cachestore.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *cachestore.Store {
	t.Helper()

	store, err := cachestore.Open(context.Background(), StoreOptions(cfg))
	if err != nil {
		t.Fatalf("cachestore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
