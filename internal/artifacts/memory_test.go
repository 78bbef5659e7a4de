package artifacts

import (
	"context"
	"errors"
	"testing"

	"sheaf/internal/services"
)

func TestMemoryFetchAbsent(t *testing.T) {
	store := NewMemory()
	if _, err := store.Fetch(context.Background(), "missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryRenameMovesObject(t *testing.T) {
	store := NewMemory()
	store.Put("cases/c1/a.pdf", []byte("page"))

	result, err := store.Rename(context.Background(), "cases/c1/a.pdf", "cases/c1/W-2_Part1of2.pdf")
	if err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	if !result.Renamed || result.NewKey != "cases/c1/W-2_Part1of2.pdf" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if _, err := store.Fetch(context.Background(), "cases/c1/a.pdf"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("old key still present: %v", err)
	}
	data, err := store.Fetch(context.Background(), "cases/c1/W-2_Part1of2.pdf")
	if err != nil || string(data) != "page" {
		t.Fatalf("new key unreadable: %v %q", err, data)
	}
}

func TestMemoryRenameReplayTolerated(t *testing.T) {
	store := NewMemory()
	store.Put("new.pdf", []byte("page"))

	// Source gone, destination present: an earlier attempt already won.
	result, err := store.Rename(context.Background(), "old.pdf", "new.pdf")
	if err != nil {
		t.Fatalf("replayed rename should succeed: %v", err)
	}
	if result.Renamed {
		t.Fatal("replayed rename should report no copy")
	}
}

func TestMemoryRenameMissingBothFails(t *testing.T) {
	store := NewMemory()
	if _, err := store.Rename(context.Background(), "old.pdf", "new.pdf"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMIMEType(t *testing.T) {
	if got := MIMEType("cases/c1/page.png"); got != "image/png" {
		t.Errorf("png: got %q", got)
	}
	if got := MIMEType("cases/c1/blob"); got != "application/octet-stream" {
		t.Errorf("no extension: got %q", got)
	}
}
