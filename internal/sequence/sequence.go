// Package sequence orders the pages of one cluster into a dense 1..N run.
//
// The sequencer is heuristic: it weighs explicit page numbers, section
// markers, continuation markers, worksheet flags and finally arrival order,
// and it records which signal won for every page. The validator is a
// diagnostic check over the result, never a gate.
package sequence

import (
	"sort"

	"sheaf/internal/docstore"
)

// Placement is one document's position in the computed order, together with
// the signal that put it there.
type Placement struct {
	Document *docstore.Document
	Signal   Signal
	// Page is the final dense page number, 1..N.
	Page int
}

// Order sequences the members of one cluster. Input order is arrival order
// and serves as the final tie-breaker. The returned placements are sorted by
// page and numbered densely from 1.
func Order(docs []*docstore.Document) []Placement {
	if len(docs) == 0 {
		return nil
	}

	placements := make([]Placement, len(docs))
	for i, doc := range docs {
		placements[i] = Placement{Document: doc, Signal: classify(doc, i)}
	}
	promoteOrphanToFirst(placements)

	sort.SliceStable(placements, func(i, j int) bool {
		ki, kj := placements[i].Signal.sortKey(), placements[j].Signal.sortKey()
		if ki != kj {
			return ki < kj
		}
		// Matching keys only happen at page 1, where an explicit number
		// outranks a section-marker guess.
		return placements[i].Signal.Kind < placements[j].Signal.Kind
	})

	for i := range placements {
		placements[i].Page = i + 1
	}
	return placements
}

// promoteOrphanToFirst applies the gap-fill rule, at most once per call:
// when some but not all members carry explicit numbers, nothing claims page
// 1, and exactly one member carries no signal at all, that member becomes
// page 1.
func promoteOrphanToFirst(placements []Placement) {
	explicit := 0
	hasFirst := false
	orphan := -1
	orphans := 0
	for i, p := range placements {
		switch p.Signal.Kind {
		case SignalExplicit:
			explicit++
			if p.Signal.Page == 1 {
				hasFirst = true
			}
		case SignalLikelyFirst:
			hasFirst = true
		case SignalUploadFallback:
			orphan = i
			orphans++
		}
	}
	if explicit == 0 || explicit == len(placements) {
		return
	}
	if hasFirst || orphans != 1 {
		return
	}
	placements[orphan].Signal = Signal{Kind: SignalLikelyFirst, Index: placements[orphan].Signal.Index}
}
