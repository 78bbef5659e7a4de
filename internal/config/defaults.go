package config

const (
	defaultDataDir             = "~/.local/share/sheaf/data"
	defaultLogDir              = "~/.local/share/sheaf/logs"
	defaultLockDir             = "~/.local/share/sheaf/locks"
	defaultOwnerConfidence     = 0.80
	defaultGroupConfidence     = 0.80
	defaultBucketCap           = 20
	defaultBucketBudgetSeconds = 90
	defaultPassCeiling         = 10
	defaultRenameAttempts      = 3
	defaultCandidateWindow     = 25
	defaultFetchConcurrency    = 4
	defaultOracleRegion        = "us-central1"
	defaultOracleModel         = "gemini-1.5-pro"
	defaultOracleTimeout       = 60
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			LockDir: defaultLockDir,
		},
		Grouping: Grouping{
			OwnerConfidenceThreshold: defaultOwnerConfidence,
			GroupConfidenceThreshold: defaultGroupConfidence,
			BucketCap:                defaultBucketCap,
			BucketBudgetSeconds:      defaultBucketBudgetSeconds,
			PassCeiling:              defaultPassCeiling,
			RenameAttempts:           defaultRenameAttempts,
			CandidateWindow:          defaultCandidateWindow,
			FetchConcurrency:         defaultFetchConcurrency,
		},
		Oracle: Oracle{
			Region:         defaultOracleRegion,
			Model:          defaultOracleModel,
			TimeoutSeconds: defaultOracleTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
