package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
	LockDir string `toml:"lock_dir"`
}

// Grouping contains thresholds and cost controls for the clustering engine.
type Grouping struct {
	// OwnerConfidenceThreshold is the minimum classification confidence at
	// which an extracted owner name places a document in a named bucket.
	// Values below it mean "owner unknown", never "low-confidence owner".
	OwnerConfidenceThreshold float64 `toml:"owner_confidence_threshold"`
	// GroupConfidenceThreshold is the minimum oracle confidence required to
	// union two documents into one component.
	GroupConfidenceThreshold float64 `toml:"group_confidence_threshold"`
	// BucketCap bounds how many documents in a bucket enter the pairwise
	// comparison loop. Excess documents are reported as skipped.
	BucketCap int `toml:"bucket_cap"`
	// BucketBudgetSeconds is the wall-clock budget for one bucket's
	// comparison loop. On expiry, components found so far are still kept.
	BucketBudgetSeconds int `toml:"bucket_budget_seconds"`
	// PassCeiling is the hard limit on convergence passes.
	PassCeiling int `toml:"pass_ceiling"`
	// RenameAttempts is how many times an artifact rename is tried before
	// the display name is rolled back.
	RenameAttempts int `toml:"rename_attempts"`
	// CandidateWindow is how many recent documents the incremental trigger
	// compares a new arrival against.
	CandidateWindow int `toml:"candidate_window"`
	// FetchConcurrency bounds concurrent artifact fetches feeding the oracle.
	FetchConcurrency int `toml:"fetch_concurrency"`
}

// Oracle contains connection settings for the visual match oracle.
type Oracle struct {
	ProjectID      string `toml:"project_id"`
	Region         string `toml:"region"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Artifacts contains settings for the stored page artifacts.
type Artifacts struct {
	Bucket string `toml:"bucket"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for sheaf.
//
// Configuration sections by subsystem:
//   - Paths: data, log, and lock directories
//   - Grouping: clustering thresholds and cost controls
//   - Oracle: Vertex AI connection for pairwise page comparison
//   - Artifacts: GCS bucket holding page artifacts
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Grouping  Grouping  `toml:"grouping"`
	Oracle    Oracle    `toml:"oracle"`
	Artifacts Artifacts `toml:"artifacts"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/sheaf/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The second and third
// return values report which path was used and whether a file existed there.
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

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("sheaf.toml")
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

// EnsureDirectories creates the directories the engine needs at runtime.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.LockDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// WriteSample writes the embedded sample configuration to the given path.
// It refuses to overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func (c *Config) normalize() error {
	paths := []*string{&c.Paths.DataDir, &c.Paths.LogDir, &c.Paths.LockDir}
	for _, p := range paths {
		expanded, err := expandPath(*p)
		if err != nil {
			return err
		}
		*p = expanded
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Oracle.Model = strings.TrimSpace(c.Oracle.Model)
	c.Oracle.Region = strings.TrimSpace(c.Oracle.Region)
	c.Oracle.ProjectID = strings.TrimSpace(c.Oracle.ProjectID)
	c.Artifacts.Bucket = strings.TrimSpace(c.Artifacts.Bucket)
	return nil
}

// ExpandPath resolves ~ and relative segments to an absolute path.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", trimmed, err)
	}
	return abs, nil
}
