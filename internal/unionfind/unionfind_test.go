package unionfind_test

import (
	"reflect"
	"testing"

	"sheaf/internal/unionfind"
)

func TestFindReflectsTransitiveUnions(t *testing.T) {
	s := unionfind.New([]int64{1, 2, 3, 4, 5})

	if s.Connected(1, 2) {
		t.Fatal("fresh ids should not be connected")
	}
	if !s.Union(1, 2) {
		t.Fatal("first union should report a merge")
	}
	if !s.Union(2, 3) {
		t.Fatal("second union should report a merge")
	}
	if !s.Connected(1, 3) {
		t.Fatal("expected transitive connection 1-3")
	}
	if s.Connected(1, 4) {
		t.Fatal("4 should remain separate")
	}
}

func TestReUnionIsNoOp(t *testing.T) {
	s := unionfind.New([]int64{1, 2, 3})
	s.Union(1, 2)
	s.Union(2, 3)

	before := s.Groups()
	if s.Union(1, 3) {
		t.Fatal("union of connected pair must return false")
	}
	after := s.Groups()
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("re-union changed groups: %v -> %v", before, after)
	}
}

func TestGroupsExcludeSingletons(t *testing.T) {
	s := unionfind.New([]int64{10, 20, 30, 40})
	s.Union(10, 20)

	groups := s.Groups()
	if len(groups) != 1 {
		t.Fatalf("expected one group, got %d", len(groups))
	}
	for _, members := range groups {
		if !reflect.DeepEqual(members, []int64{10, 20}) {
			t.Fatalf("unexpected members %v", members)
		}
	}
}

func TestPathCompressionPreservesPartition(t *testing.T) {
	s := unionfind.New([]int64{1, 2, 3, 4, 5, 6})
	s.Union(1, 2)
	s.Union(3, 4)
	s.Union(2, 3)
	s.Union(5, 6)

	before := s.Groups()
	// Repeated finds trigger compression; the partition must not change.
	for i := int64(1); i <= 6; i++ {
		s.Find(i)
		s.Find(i)
	}
	after := s.Groups()
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("compression changed partition: %v -> %v", before, after)
	}

	root := s.Find(1)
	for _, id := range []int64{2, 3, 4} {
		if s.Find(id) != root {
			t.Fatalf("id %d not in component of 1", id)
		}
	}
	if s.Find(5) == root {
		t.Fatal("component 5-6 must stay separate")
	}
}

func TestFindAdoptsUnknownID(t *testing.T) {
	s := unionfind.New(nil)
	if got := s.Find(99); got != 99 {
		t.Fatalf("unknown id should be its own root, got %d", got)
	}
}
