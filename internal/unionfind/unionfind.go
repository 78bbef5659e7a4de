// Package unionfind provides the disjoint-set structure used to accumulate
// pairwise match results within one bucket.
//
// A Set is scoped strictly to a single bucket's comparison loop and is
// discarded after materialization; letting one survive across passes would
// leak stale merge state into later decisions.
package unionfind

import "sort"

// Set is a disjoint-set over document identifiers with path compression and
// union by rank.
type Set struct {
	parent map[int64]int64
	rank   map[int64]int
}

// New constructs a Set with every id in its own singleton component.
func New(ids []int64) *Set {
	s := &Set{
		parent: make(map[int64]int64, len(ids)),
		rank:   make(map[int64]int, len(ids)),
	}
	for _, id := range ids {
		s.parent[id] = id
	}
	return s
}

// Find returns the representative of id's component, compressing the path as
// it walks. Unknown ids are adopted as singletons.
func (s *Set) Find(id int64) int64 {
	root, ok := s.parent[id]
	if !ok {
		s.parent[id] = id
		return id
	}
	if root == id {
		return id
	}
	top := s.Find(root)
	s.parent[id] = top
	return top
}

// Union merges the components containing a and b. It returns false when the
// two are already connected, so callers never double count a merge.
func (s *Set) Union(a, b int64) bool {
	rootA := s.Find(a)
	rootB := s.Find(b)
	if rootA == rootB {
		return false
	}
	if s.rank[rootA] < s.rank[rootB] {
		rootA, rootB = rootB, rootA
	}
	s.parent[rootB] = rootA
	if s.rank[rootA] == s.rank[rootB] {
		s.rank[rootA]++
	}
	return true
}

// Connected reports whether a and b share a component.
func (s *Set) Connected(a, b int64) bool {
	return s.Find(a) == s.Find(b)
}

// Groups returns root to sorted-member mappings for every component of size
// two or more. Singletons are unmerged documents and are excluded: they never
// produce a group.
func (s *Set) Groups() map[int64][]int64 {
	members := make(map[int64][]int64, len(s.parent))
	for id := range s.parent {
		root := s.Find(id)
		members[root] = append(members[root], id)
	}
	groups := make(map[int64][]int64, len(members))
	for root, ids := range members {
		if len(ids) < 2 {
			continue
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		groups[root] = ids
	}
	return groups
}
