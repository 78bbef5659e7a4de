package docstore

import "time"

// Status represents the intake lifecycle of a document.
type Status string

const (
	StatusPending    Status = "pending"
	StatusClassified Status = "classified"
	StatusGrouping   Status = "grouping"
	StatusGrouped    Status = "grouped"
	StatusReview     Status = "review"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusClassified,
	StatusGrouping,
	StatusGrouped,
	StatusReview,
	StatusFailed,
}

// Valid reports whether the status is a known lifecycle state.
func (s Status) Valid() bool {
	for _, known := range allStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// ContinuationHint marks a page as explicitly continuing another document.
type ContinuationHint struct {
	// Kind distinguishes continuation styles (e.g. "statement", "overflow").
	Kind string `json:"kind,omitempty"`
	// ParentForm names the form type being continued (e.g. "Schedule B").
	ParentForm string `json:"parentForm,omitempty"`
	// ParentDocumentID points at the specific parent document when the
	// classifier extracted one. Zero means only the form type is known.
	ParentDocumentID int64 `json:"parentDocumentId,omitempty"`
	// LineRef is the printed line reference ("continued from line 12").
	LineRef string `json:"lineRef,omitempty"`
}

// PageHints carries the ordering signals extracted during classification.
type PageHints struct {
	// PageNumber is the explicit page number printed on the document.
	// Zero means none was found.
	PageNumber int `json:"pageNumber,omitempty"`
	// PartLabel is a primary-section marker such as "Part I".
	PartLabel string `json:"partLabel,omitempty"`
	// Worksheet flags supplemental worksheet pages that sort last.
	Worksheet bool `json:"worksheet,omitempty"`
	// Continuation is set when the page is marked as a continuation.
	Continuation *ContinuationHint `json:"continuation,omitempty"`
}

// Document is one uploaded page image and its classification output.
type Document struct {
	ID              int64
	CaseID          string
	StorageKey      string
	DisplayName     string
	Status          Status
	FormType        string
	FormConfidence  float64
	OwnerName       string
	OwnerConfidence float64
	Hints           PageHints
	GroupID         int64 // zero when ungrouped
	PageNumber      int   // zero when unassigned
	TotalPages      int
	GroupConfidence float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Grouped reports whether the document already belongs to a group.
func (d *Document) Grouped() bool {
	return d.GroupID != 0
}

// IsExplicitContinuation reports whether the document names a specific
// parent document, the precondition for the continuation linker.
func (d *Document) IsExplicitContinuation() bool {
	return d.Hints.Continuation != nil && d.Hints.Continuation.ParentDocumentID != 0
}

// Group is a persisted cluster of pages forming one logical multi-page item.
type Group struct {
	ID           int64
	CaseID       string
	BaseName     string
	DocumentType string
	PageCount    int
	Confidence   float64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RunStep names one checkpointed step of a grouping run.
type RunStep string

const (
	StepFetch       RunStep = "fetch"
	StepBucket      RunStep = "bucket"
	StepAugment     RunStep = "augment"
	StepCluster     RunStep = "cluster"
	StepMaterialize RunStep = "materialize"
	StepLink        RunStep = "link"
	StepDecide      RunStep = "decide"
	StepCompleted   RunStep = "completed"
)

// Run records the durable checkpoint state of one grouping run.
type Run struct {
	ID          int64
	RunID       string
	CaseID      string
	Step        RunStep
	Pass        int
	SummaryJSON string
	StartedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// CaseStats aggregates per-case counts for status output.
type CaseStats struct {
	Documents int
	Grouped   int
	Ungrouped int
	Groups    int
}
