package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateGrouping(); err != nil {
		return err
	}
	if err := c.validateOracle(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	return nil
}

func (c *Config) validateGrouping() error {
	g := c.Grouping
	if g.OwnerConfidenceThreshold < 0 || g.OwnerConfidenceThreshold > 1 {
		return errors.New("grouping.owner_confidence_threshold must be between 0 and 1")
	}
	if g.GroupConfidenceThreshold < 0 || g.GroupConfidenceThreshold > 1 {
		return errors.New("grouping.group_confidence_threshold must be between 0 and 1")
	}
	if g.BucketCap < 2 {
		return fmt.Errorf("grouping.bucket_cap must be at least 2, got %d", g.BucketCap)
	}
	if g.BucketBudgetSeconds <= 0 {
		return errors.New("grouping.bucket_budget_seconds must be positive")
	}
	if g.PassCeiling < 1 {
		return errors.New("grouping.pass_ceiling must be at least 1")
	}
	if g.RenameAttempts < 1 {
		return errors.New("grouping.rename_attempts must be at least 1")
	}
	if g.CandidateWindow < 1 {
		return errors.New("grouping.candidate_window must be at least 1")
	}
	if g.FetchConcurrency < 1 {
		return errors.New("grouping.fetch_concurrency must be at least 1")
	}
	return nil
}

func (c *Config) validateOracle() error {
	if c.Oracle.Model == "" {
		return errors.New("oracle.model must be set")
	}
	if c.Oracle.Region == "" {
		return errors.New("oracle.region must be set")
	}
	if c.Oracle.TimeoutSeconds <= 0 {
		return errors.New("oracle.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}
