package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeIntegrity(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("AUDIOTOOL_CACHE_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.CacheDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if strings.TrimSpace(c.Paths.ExportDir) == "" {
		c.Paths.ExportDir = defaultExportDir
	}

	var err error
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.ExportDir, err = expandPath(c.Paths.ExportDir); err != nil {
		return fmt.Errorf("paths.export_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeIntegrity() error {
	if value, ok := os.LookupEnv("AUDIOTOOL_WORKERS"); ok && strings.TrimSpace(value) != "" {
		workers, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("AUDIOTOOL_WORKERS: %w", err)
		}
		c.Integrity.Workers = workers
	}
	if c.Integrity.DecodeTimeoutSeconds == 0 {
		c.Integrity.DecodeTimeoutSeconds = defaultDecodeTimeoutSeconds
	}
	if c.Integrity.FlushThreshold == 0 {
		c.Integrity.FlushThreshold = defaultFlushThreshold
	}
	if c.Integrity.LockTimeoutSeconds == 0 {
		c.Integrity.LockTimeoutSeconds = defaultLockTimeoutSeconds
	}
	c.Integrity.FFmpegBinary = strings.TrimSpace(c.Integrity.FFmpegBinary)
	if c.Integrity.FFmpegBinary == "" {
		c.Integrity.FFmpegBinary = defaultFFmpegBinary
	}
	c.Integrity.FFprobeBinary = strings.TrimSpace(c.Integrity.FFprobeBinary)
	if c.Integrity.FFprobeBinary == "" {
		c.Integrity.FFprobeBinary = defaultFFprobeBinary
	}

	if len(c.Integrity.Extensions) == 0 {
		c.Integrity.Extensions = append([]string(nil), DefaultExtensions...)
		return nil
	}
	exts := make([]string, 0, len(c.Integrity.Extensions))
	seen := make(map[string]struct{}, len(c.Integrity.Extensions))
	for _, ext := range c.Integrity.Extensions {
		normalized := strings.ToLower(strings.TrimSpace(ext))
		if normalized == "" {
			continue
		}
		if !strings.HasPrefix(normalized, ".") {
			normalized = "." + normalized
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		exts = append(exts, normalized)
	}
	c.Integrity.Extensions = exts
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
