package caselock

import (
	"errors"
	"testing"

	"sheaf/internal/services"
)

func TestAcquireAndRelease(t *testing.T) {
	dir := t.TempDir()

	lock, err := Acquire(dir, "case-1")
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if lock.CaseID() != "case-1" {
		t.Fatalf("unexpected case id %q", lock.CaseID())
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	relock, err := Acquire(dir, "case-1")
	if err != nil {
		t.Fatalf("reacquire after release failed: %v", err)
	}
	defer relock.Release()
}

func TestAcquireHeldLockConflicts(t *testing.T) {
	dir := t.TempDir()

	lock, err := Acquire(dir, "case-1")
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	defer lock.Release()

	if _, err := Acquire(dir, "case-1"); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestAcquireDistinctCasesDoNotConflict(t *testing.T) {
	dir := t.TempDir()

	first, err := Acquire(dir, "case-1")
	if err != nil {
		t.Fatalf("acquire case-1 failed: %v", err)
	}
	defer first.Release()

	second, err := Acquire(dir, "case-2")
	if err != nil {
		t.Fatalf("acquire case-2 failed: %v", err)
	}
	defer second.Release()
}

func TestAcquireRequiresCaseID(t *testing.T) {
	if _, err := Acquire(t.TempDir(), ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSanitizeLockName(t *testing.T) {
	if got := sanitize("acct/2024:john"); got != "acct_2024_john" {
		t.Fatalf("unexpected sanitized name %q", got)
	}
}
