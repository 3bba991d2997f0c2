package config_test

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"audiotool/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantCache := filepath.Join(tempHome, ".local", "share", "audiotool", "cache")
	if cfg.Paths.CacheDir != wantCache {
		t.Fatalf("unexpected cache dir: got %q want %q", cfg.Paths.CacheDir, wantCache)
	}
	if cfg.DatabasePath() != filepath.Join(wantCache, "integrity_check.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.LockPath() != filepath.Join(wantCache, "integrity_check.lock") {
		t.Fatalf("unexpected lock path: %q", cfg.LockPath())
	}
	if cfg.DecodeTimeout() != 30*time.Second {
		t.Fatalf("expected 30s decode timeout, got %s", cfg.DecodeTimeout())
	}
	if cfg.Integrity.FlushThreshold != 100 {
		t.Fatalf("expected flush threshold 100, got %d", cfg.Integrity.FlushThreshold)
	}
	if cfg.WorkerCount() < 4 {
		t.Fatalf("expected at least 4 default workers, got %d", cfg.WorkerCount())
	}
	if len(cfg.Integrity.Extensions) != len(config.DefaultExtensions) {
		t.Fatalf("unexpected extensions: %v", cfg.Integrity.Extensions)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.CacheDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "audiotool.toml")

	type payload struct {
		Paths struct {
			CacheDir string `toml:"cache_dir"`
		} `toml:"paths"`
		Integrity struct {
			Workers              int      `toml:"workers"`
			DecodeTimeoutSeconds int      `toml:"decode_timeout_seconds"`
			Extensions           []string `toml:"extensions"`
		} `toml:"integrity"`
		Logging struct {
			Format string `toml:"format"`
		} `toml:"logging"`
	}
	custom := payload{}
	custom.Paths.CacheDir = filepath.Join(tempDir, "cache")
	custom.Integrity.Workers = 3
	custom.Integrity.DecodeTimeoutSeconds = 5
	custom.Integrity.Extensions = []string{"FLAC", ".mp3", "flac", " "}
	custom.Logging.Format = "JSON"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.CacheDir != filepath.Join(tempDir, "cache") {
		t.Fatalf("unexpected cache dir: %q", cfg.Paths.CacheDir)
	}
	if cfg.WorkerCount() != 3 {
		t.Fatalf("expected 3 workers, got %d", cfg.WorkerCount())
	}
	if cfg.DecodeTimeout() != 5*time.Second {
		t.Fatalf("expected 5s timeout, got %s", cfg.DecodeTimeout())
	}
	if got := strings.Join(cfg.Integrity.Extensions, ","); got != ".flac,.mp3" {
		t.Fatalf("unexpected normalized extensions: %q", got)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected json log format, got %q", cfg.Logging.Format)
	}
}

func TestEnvOverridesCacheDirAndWorkers(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("AUDIOTOOL_CACHE_DIR", filepath.Join(tempDir, "env-cache"))
	t.Setenv("AUDIOTOOL_WORKERS", "7")

	cfg, _, _, err := config.Load(filepath.Join(tempDir, "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.CacheDir != filepath.Join(tempDir, "env-cache") {
		t.Fatalf("expected env cache dir, got %q", cfg.Paths.CacheDir)
	}
	if cfg.Integrity.Workers != 7 {
		t.Fatalf("expected env workers 7, got %d", cfg.Integrity.Workers)
	}
}

func TestWorkerCountFallsBackToHostParallelism(t *testing.T) {
	if got, want := config.DefaultWorkers(), max(runtime.NumCPU(), 4); got != want {
		t.Fatalf("DefaultWorkers() = %d, want %d", got, want)
	}

	cfg := config.Default()
	cfg.Integrity.Workers = 0
	if cfg.WorkerCount() != config.DefaultWorkers() {
		t.Fatalf("expected unset workers to use the default, got %d", cfg.WorkerCount())
	}
	cfg.Integrity.Workers = 3
	if cfg.WorkerCount() != 3 {
		t.Fatalf("expected explicit workers, got %d", cfg.WorkerCount())
	}
}

func TestLoadRejectsInvalidWorkersEnv(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("AUDIOTOOL_WORKERS", "many")

	if _, _, _, err := config.Load(filepath.Join(tempDir, "missing.toml")); err == nil {
		t.Fatal("expected error for non-numeric AUDIOTOOL_WORKERS")
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "negative workers",
			mutate: func(c *config.Config) { c.Integrity.Workers = -1 },
			want:   "integrity.workers",
		},
		{
			name:   "flush threshold",
			mutate: func(c *config.Config) { c.Integrity.FlushThreshold = -5 },
			want:   "integrity.flush_threshold must be positive",
		},
		{
			name:   "no extensions",
			mutate: func(c *config.Config) { c.Integrity.Extensions = nil },
			want:   "integrity.extensions",
		},
		{
			name:   "log format",
			mutate: func(c *config.Config) { c.Logging.Format = "xml" },
			want:   "logging.format",
		},
		{
			name:   "log level",
			mutate: func(c *config.Config) { c.Logging.Level = "chatty" },
			want:   "logging.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	path := filepath.Join(tempDir, "nested", "config.toml")

	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample failed: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if !cfg.Integrity.ProbeCodec {
		t.Fatal("expected sample to enable codec probing")
	}
	if cfg.Paths.LogDir != filepath.Join(tempDir, ".local", "share", "audiotool", "logs") {
		t.Fatalf("unexpected log dir: %q", cfg.Paths.LogDir)
	}
}

func TestExpandPathHandlesTilde(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	got, err := config.ExpandPath("~/music")
	if err != nil {
		t.Fatalf("ExpandPath failed: %v", err)
	}
	if got != filepath.Join(tempHome, "music") {
		t.Fatalf("unexpected expansion: %q", got)
	}
}
