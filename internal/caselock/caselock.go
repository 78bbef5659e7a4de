// Package caselock serializes grouping runs per case with flock-based file
// locks, so two engine invocations never interleave writes for one case.
package caselock

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/gofrs/flock"

	"sheaf/internal/services"
)

var unsafeLockChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Lock holds an acquired per-case file lock.
type Lock struct {
	caseID string
	flock  *flock.Flock
}

// Acquire takes the lock for one case without blocking. A held lock returns
// an error wrapping services.ErrConflict.
func Acquire(lockDir, caseID string) (*Lock, error) {
	if caseID == "" {
		return nil, services.Wrap(services.ErrValidation, "caselock", "acquire", "case id is required", nil)
	}
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "caselock", "acquire", "create lock directory", err)
	}

	path := filepath.Join(lockDir, "case-"+sanitize(caseID)+".lock")
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "caselock", "acquire", "try lock "+path, err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrConflict, "caselock", "acquire",
			fmt.Sprintf("case %s is already being processed", caseID), nil)
	}
	return &Lock{caseID: caseID, flock: lock}, nil
}

// Release drops the lock.
func (l *Lock) Release() error {
	if l == nil || l.flock == nil {
		return nil
	}
	return l.flock.Unlock()
}

// CaseID returns the case the lock protects.
func (l *Lock) CaseID() string {
	return l.caseID
}

func sanitize(caseID string) string {
	return unsafeLockChars.ReplaceAllString(caseID, "_")
}
