package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"audiotool/internal/cachestore"
	"audiotool/internal/config"
	"audiotool/internal/logging"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.ToLower(strings.TrimSpace(*c.logLevelFlag))
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) storeOptions(cfg *config.Config, logger *slog.Logger) cachestore.Options {
	return cachestore.Options{
		Path:        cfg.DatabasePath(),
		LockPath:    cfg.LockPath(),
		LockTimeout: cfg.LockTimeout(),
		Logger:      logger,
	}
}

// withStore opens the cache configured for this invocation and closes it
// after fn returns.
func (c *commandContext) withStore(ctx context.Context, fn func(*config.Config, *slog.Logger, *cachestore.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return err
	}
	store, err := cachestore.Open(ctx, c.storeOptions(cfg, logger))
	if err != nil {
		return wrapOpenError(err, cfg.DatabasePath())
	}
	defer store.Close()
	return fn(cfg, logger, store)
}

func wrapOpenError(err error, path string) error {
	switch {
	case errors.Is(err, cachestore.ErrSchemaMismatch):
		return fmt.Errorf("open cache %s: %w", path, err)
	case errors.Is(err, cachestore.ErrLockTimeout):
		return fmt.Errorf("open cache %s: another process holds the cache lock: %w", path, err)
	default:
		return fmt.Errorf("open cache %s: %w", path, err)
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
