package testsupport

import (
	"context"
	"testing"

	"sheaf/internal/config"
	"sheaf/internal/docstore"
)

// MustOpenStore opens a docstore.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *docstore.Store {
	t.Helper()

	store, err := docstore.Open(cfg)
	if err != nil {
		t.Fatalf("docstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// DocumentOption customizes a seeded document.
type DocumentOption func(*docstore.Document)

// WithOwner sets the extracted owner name and its confidence.
func WithOwner(name string, confidence float64) DocumentOption {
	return func(d *docstore.Document) {
		d.OwnerName = name
		d.OwnerConfidence = confidence
	}
}

// WithHints sets the page ordering hints.
func WithHints(hints docstore.PageHints) DocumentOption {
	return func(d *docstore.Document) {
		d.Hints = hints
	}
}

// WithDisplayName overrides the default display name.
func WithDisplayName(name string) DocumentOption {
	return func(d *docstore.Document) {
		d.DisplayName = name
	}
}

// WithStorageKey overrides the default storage key.
func WithStorageKey(key string) DocumentOption {
	return func(d *docstore.Document) {
		d.StorageKey = key
	}
}

// WithStatus overrides the default classified status.
func WithStatus(status docstore.Status) DocumentOption {
	return func(d *docstore.Document) {
		d.Status = status
	}
}

// SeedDocument inserts a classified document for tests.
func SeedDocument(t testing.TB, store *docstore.Store, caseID, formType string, opts ...DocumentOption) *docstore.Document {
	t.Helper()

	doc := &docstore.Document{
		CaseID:         caseID,
		StorageKey:     "cases/" + caseID + "/" + formType + ".pdf",
		DisplayName:    formType + ".pdf",
		Status:         docstore.StatusClassified,
		FormType:       formType,
		FormConfidence: 0.95,
	}
	for _, opt := range opts {
		opt(doc)
	}

	created, err := store.CreateDocument(context.Background(), doc)
	if err != nil {
		t.Fatalf("store.CreateDocument: %v", err)
	}
	return created
}
