// Package testsupport provides shared fixtures for sheaf tests: configs
// seeded with per-test temp directories, store openers with cleanup, and
// document seeding helpers.
package testsupport

import (
	"path/filepath"
	"testing"

	"sheaf/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.LockDir = filepath.Join(base, "locks")
	cfg.Oracle.ProjectID = "test-project"
	cfg.Artifacts.Bucket = "test-bucket"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithBucketCap overrides the pairwise comparison cap on the test config.
func WithBucketCap(cap int) ConfigOption {
	return func(c *config.Config) {
		c.Grouping.BucketCap = cap
	}
}

// WithBucketBudgetSeconds overrides the per-bucket wall-clock budget.
func WithBucketBudgetSeconds(seconds int) ConfigOption {
	return func(c *config.Config) {
		c.Grouping.BucketBudgetSeconds = seconds
	}
}

// WithPassCeiling overrides the convergence pass ceiling.
func WithPassCeiling(ceiling int) ConfigOption {
	return func(c *config.Config) {
		c.Grouping.PassCeiling = ceiling
	}
}
