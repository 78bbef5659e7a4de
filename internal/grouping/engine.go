package grouping

import (
	"log/slog"
	"time"

	"sheaf/internal/artifacts"
	"sheaf/internal/config"
	"sheaf/internal/docstore"
	"sheaf/internal/logging"
	"sheaf/internal/oracle"
)

// Engine coordinates one case's grouping work.
type Engine struct {
	cfg    *config.Config
	store  *docstore.Store
	oracle oracle.Service
	files  artifacts.Store
	logger *slog.Logger

	bucketBudget time.Duration
	sleeper      func(time.Duration)
}

// Option configures optional Engine behavior.
type Option func(*Engine)

// WithBucketBudget overrides the per-bucket wall-clock budget.
func WithBucketBudget(budget time.Duration) Option {
	return func(e *Engine) {
		e.bucketBudget = budget
	}
}

// WithSleeper overrides how rename backoff sleeps are performed (used in tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(e *Engine) {
		if sleeper != nil {
			e.sleeper = sleeper
		}
	}
}

// NewEngine constructs a grouping engine.
func NewEngine(cfg *config.Config, store *docstore.Store, matcher oracle.Service, files artifacts.Store, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	engine := &Engine{
		cfg:          cfg,
		store:        store,
		oracle:       matcher,
		files:        files,
		logger:       logger.With(logging.FieldComponent, "grouping"),
		bucketBudget: time.Duration(cfg.Grouping.BucketBudgetSeconds) * time.Second,
		sleeper:      time.Sleep,
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// Summary is the caller-visible outcome of a run. Grouping imperfection is
// reported here, never as an error.
type Summary struct {
	CaseID              string `json:"caseId"`
	RunID               string `json:"runId,omitempty"`
	Passes              int    `json:"passes"`
	DocumentsProcessed  int    `json:"documentsProcessed"`
	DocumentsSkipped    int    `json:"documentsSkipped"`
	GroupsCreated       int    `json:"groupsCreated"`
	GroupsUpdated       int    `json:"groupsUpdated"`
	ContinuationsLinked int    `json:"continuationsLinked"`
	OracleCalls         int    `json:"oracleCalls"`
	OracleFailures      int    `json:"oracleFailures"`
	CeilingReached      bool   `json:"ceilingReached,omitempty"`
}
