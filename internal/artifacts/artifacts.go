// Package artifacts reads page images from object storage and renames stored
// objects when groups are materialized.
//
// Renames are copy-then-delete and tolerate replays: a rename whose source is
// gone but whose destination exists is treated as already done, so a retried
// materialization never fails on its own earlier progress.
package artifacts

import (
	"context"
	"mime"
	"path"
)

// RenameResult reports what a rename actually did.
type RenameResult struct {
	// Renamed is false when the destination already existed and no copy
	// was performed.
	Renamed bool
	NewKey  string
}

// Store is the object storage surface the grouping engine needs.
type Store interface {
	// Fetch returns the object's bytes. Absent objects return an error
	// wrapping services.ErrNotFound.
	Fetch(ctx context.Context, key string) ([]byte, error)
	// Rename moves an object to a new key.
	Rename(ctx context.Context, oldKey, newKey string) (RenameResult, error)
	Close() error
}

// MIMEType guesses the content type of a stored page from its key.
func MIMEType(key string) string {
	if t := mime.TypeByExtension(path.Ext(key)); t != "" {
		return t
	}
	return "application/octet-stream"
}
