package main

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"sheaf/internal/artifacts"
	"sheaf/internal/config"
	"sheaf/internal/docstore"
	"sheaf/internal/grouping"
	"sheaf/internal/logging"
	"sheaf/internal/oracle"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) newLogger(cfg *config.Config) (*slog.Logger, error) {
	return logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
}

// withEngine builds the full engine stack (store, oracle, artifact store) and
// tears it down after fn returns.
func (c *commandContext) withEngine(ctx context.Context, fn func(context.Context, *grouping.Engine, *docstore.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.newLogger(cfg)
	if err != nil {
		return err
	}

	store, err := docstore.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	matcher, err := oracle.NewVertex(ctx, oracle.Config{
		ProjectID:      cfg.Oracle.ProjectID,
		Region:         cfg.Oracle.Region,
		Model:          cfg.Oracle.Model,
		TimeoutSeconds: cfg.Oracle.TimeoutSeconds,
	})
	if err != nil {
		return err
	}
	defer matcher.Close()

	files, err := artifacts.NewGCS(ctx, cfg.Artifacts.Bucket)
	if err != nil {
		return err
	}
	defer files.Close()

	engine := grouping.NewEngine(cfg, store, matcher, files, logger)
	return fn(ctx, engine, store)
}

// withStore opens only the document store, for read-only commands.
func (c *commandContext) withStore(ctx context.Context, fn func(context.Context, *docstore.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := docstore.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(ctx, store)
}
