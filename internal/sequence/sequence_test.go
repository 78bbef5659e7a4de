package sequence

import (
	"errors"
	"testing"

	"sheaf/internal/docstore"
)

func page(id int64, hints docstore.PageHints) *docstore.Document {
	return &docstore.Document{ID: id, DisplayName: "doc", Hints: hints}
}

func pages(placements []Placement) []int64 {
	ids := make([]int64, len(placements))
	for i, p := range placements {
		ids[i] = p.Document.ID
	}
	return ids
}

func assertOrder(t *testing.T, placements []Placement, want []int64) {
	t.Helper()
	got := pages(placements)
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
	for i, p := range placements {
		if p.Page != i+1 {
			t.Fatalf("placement %d has page %d, want dense numbering", i, p.Page)
		}
	}
}

func TestOrderExplicitNumbersAnyInputOrder(t *testing.T) {
	docs := []*docstore.Document{
		page(30, docstore.PageHints{PageNumber: 3}),
		page(10, docstore.PageHints{PageNumber: 1}),
		page(20, docstore.PageHints{PageNumber: 2}),
	}
	assertOrder(t, Order(docs), []int64{10, 20, 30})
}

func TestOrderWorksheetAlwaysLast(t *testing.T) {
	docs := []*docstore.Document{
		page(1, docstore.PageHints{Worksheet: true}),
		page(2, docstore.PageHints{PageNumber: 1}),
		page(3, docstore.PageHints{PageNumber: 2}),
	}
	placements := Order(docs)
	assertOrder(t, placements, []int64{2, 3, 1})
	if placements[2].Signal.Kind != SignalWorksheetFallback {
		t.Fatalf("worksheet page won signal %v", placements[2].Signal)
	}
}

func TestOrderWorksheetFilenameHeuristic(t *testing.T) {
	worksheet := page(1, docstore.PageHints{})
	worksheet.DisplayName = "Federal Carryover Worksheet.pdf"
	docs := []*docstore.Document{
		worksheet,
		page(2, docstore.PageHints{PageNumber: 1}),
	}
	placements := Order(docs)
	assertOrder(t, placements, []int64{2, 1})
	if placements[1].Signal.Kind != SignalWorksheetFallback {
		t.Fatalf("filename heuristic missed: %v", placements[1].Signal)
	}
}

func TestOrderContinuationAfterPrimary(t *testing.T) {
	docs := []*docstore.Document{
		page(1, docstore.PageHints{Continuation: &docstore.ContinuationHint{ParentForm: "Schedule B"}}),
		page(2, docstore.PageHints{PartLabel: "Part I"}),
	}
	placements := Order(docs)
	assertOrder(t, placements, []int64{2, 1})
	if placements[0].Signal.Kind != SignalLikelyFirst {
		t.Fatalf("primary page won signal %v", placements[0].Signal)
	}
}

func TestOrderGapFillPromotesSingleOrphan(t *testing.T) {
	docs := []*docstore.Document{
		page(1, docstore.PageHints{PageNumber: 2}),
		page(2, docstore.PageHints{PageNumber: 3}),
		page(3, docstore.PageHints{}),
	}
	placements := Order(docs)
	assertOrder(t, placements, []int64{3, 1, 2})
	if placements[0].Signal.Kind != SignalLikelyFirst {
		t.Fatalf("orphan not promoted: %v", placements[0].Signal)
	}
}

func TestOrderGapFillSkippedWhenFirstPresent(t *testing.T) {
	docs := []*docstore.Document{
		page(1, docstore.PageHints{PageNumber: 1}),
		page(2, docstore.PageHints{PageNumber: 2}),
		page(3, docstore.PageHints{}),
	}
	placements := Order(docs)
	assertOrder(t, placements, []int64{1, 2, 3})
	if placements[2].Signal.Kind != SignalUploadFallback {
		t.Fatalf("orphan promoted despite explicit page 1: %v", placements[2].Signal)
	}
}

func TestOrderGapFillSkippedForMultipleOrphans(t *testing.T) {
	docs := []*docstore.Document{
		page(1, docstore.PageHints{PageNumber: 2}),
		page(2, docstore.PageHints{}),
		page(3, docstore.PageHints{}),
	}
	placements := Order(docs)
	// Both unsignaled pages stay in arrival order after the explicit one.
	assertOrder(t, placements, []int64{1, 2, 3})
}

func TestOrderExplicitOutranksLikelyFirst(t *testing.T) {
	docs := []*docstore.Document{
		page(1, docstore.PageHints{PartLabel: "Part I"}),
		page(2, docstore.PageHints{PageNumber: 1}),
	}
	placements := Order(docs)
	assertOrder(t, placements, []int64{2, 1})
	if placements[0].Signal.Kind != SignalExplicit {
		t.Fatalf("explicit number lost page 1: %v", placements[0].Signal)
	}
}

func TestOrderUploadFallbackKeepsArrivalOrder(t *testing.T) {
	docs := []*docstore.Document{
		page(7, docstore.PageHints{}),
		page(4, docstore.PageHints{}),
		page(9, docstore.PageHints{}),
	}
	assertOrder(t, Order(docs), []int64{7, 4, 9})
}

func TestOrderEmpty(t *testing.T) {
	if got := Order(nil); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		pages []int
		want  error
	}{
		{"dense run", []int{1, 2, 3}, nil},
		{"unsorted dense run", []int{3, 1, 2}, nil},
		{"single page", []int{1}, nil},
		{"empty", nil, ErrEmptySequence},
		{"duplicate", []int{1, 1, 2}, ErrDuplicatePage},
		{"gap", []int{1, 3, 4}, ErrPageGap},
		{"must start at 1", []int{2, 3}, ErrMustStartAtOne},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.pages)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}
