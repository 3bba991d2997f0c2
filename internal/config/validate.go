package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateIntegrity(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateIntegrity() error {
	if c.Integrity.Workers < 0 {
		return errors.New("integrity.workers must be >= 0 (0 selects host parallelism)")
	}
	if err := ensurePositiveMap(map[string]int{
		"integrity.decode_timeout_seconds": c.Integrity.DecodeTimeoutSeconds,
		"integrity.flush_threshold":        c.Integrity.FlushThreshold,
		"integrity.lock_timeout_seconds":   c.Integrity.LockTimeoutSeconds,
	}); err != nil {
		return err
	}
	if len(c.Integrity.Extensions) == 0 {
		return errors.New("integrity.extensions must include at least one extension")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (use console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
