package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	CacheDir  string `toml:"cache_dir"`
	LogDir    string `toml:"log_dir"`
	ExportDir string `toml:"export_dir"`
}

// Integrity contains configuration for the verification pipeline.
type Integrity struct {
	// Workers is the concurrent worker count. Zero selects host parallelism
	// with a floor of four.
	Workers              int      `toml:"workers"`
	DecodeTimeoutSeconds int      `toml:"decode_timeout_seconds"`
	FlushThreshold       int      `toml:"flush_threshold"`
	LockTimeoutSeconds   int      `toml:"lock_timeout_seconds"`
	FFmpegBinary         string   `toml:"ffmpeg_binary"`
	FFprobeBinary        string   `toml:"ffprobe_binary"`
	ProbeCodec           bool     `toml:"probe_codec"`
	Extensions           []string `toml:"extensions"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for audiotool.
//
// Configuration sections by subsystem:
//   - Paths: cache database, run log, and export directories
//   - Integrity: worker pool, decoder timeout, batching, and probing
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Integrity Integrity `toml:"integrity"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("audiotool.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the cache and log directories. The export
// directory is created lazily by the export command.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.CacheDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the integrity cache database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.CacheDir, databaseFileName)
}

// LockPath returns the advisory lock file guarding cache mutations.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.CacheDir, lockFileName)
}

// DecodeTimeout returns the per-file decoder deadline.
func (c *Config) DecodeTimeout() time.Duration {
	return time.Duration(c.Integrity.DecodeTimeoutSeconds) * time.Second
}

// LockTimeout returns the bounded wait for the advisory lock.
func (c *Config) LockTimeout() time.Duration {
	return time.Duration(c.Integrity.LockTimeoutSeconds) * time.Second
}

// WorkerCount resolves the configured worker count, applying the host
// parallelism default when unset.
func (c *Config) WorkerCount() int {
	if c.Integrity.Workers > 0 {
		return c.Integrity.Workers
	}
	return DefaultWorkers()
}

// FFmpegBinary returns the decoder executable name.
func (c *Config) FFmpegBinary() string {
	if strings.TrimSpace(c.Integrity.FFmpegBinary) == "" {
		return defaultFFmpegBinary
	}
	return c.Integrity.FFmpegBinary
}

// FFprobeBinary returns the ffprobe executable name used for codec probing.
func (c *Config) FFprobeBinary() string {
	if strings.TrimSpace(c.Integrity.FFprobeBinary) == "" {
		return defaultFFprobeBinary
	}
	return c.Integrity.FFprobeBinary
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
