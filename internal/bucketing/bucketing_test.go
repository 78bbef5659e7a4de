package bucketing

import (
	"testing"

	"sheaf/internal/docstore"
)

func doc(id int64, formType, owner string, confidence float64) *docstore.Document {
	return &docstore.Document{
		ID:              id,
		CaseID:          "case-1",
		FormType:        formType,
		OwnerName:       owner,
		OwnerConfidence: confidence,
	}
}

func TestPartitionGroupsByFormAndOwner(t *testing.T) {
	docs := []*docstore.Document{
		doc(1, "W-2", "John Smith", 0.95),
		doc(2, "W-2", "JOHN_SMITH", 0.92),
		doc(3, "W-2", "Jane Smith", 0.95),
		doc(4, "1099-INT", "John Smith", 0.95),
	}

	buckets := Partition(docs, 0.80)
	if len(buckets) != 3 {
		t.Fatalf("expected 3 buckets, got %d", len(buckets))
	}

	keys := make(map[string]int)
	for _, b := range buckets {
		keys[b.Key] = len(b.Documents)
	}
	if keys["W-2|JOHN_SMITH"] != 2 {
		t.Errorf("expected 2 documents for W-2|JOHN_SMITH, got %d", keys["W-2|JOHN_SMITH"])
	}
	if keys["W-2|JANE_SMITH"] != 1 {
		t.Errorf("expected 1 document for W-2|JANE_SMITH, got %d", keys["W-2|JANE_SMITH"])
	}
	if keys["1099-INT|JOHN_SMITH"] != 1 {
		t.Errorf("expected 1 document for 1099-INT|JOHN_SMITH, got %d", keys["1099-INT|JOHN_SMITH"])
	}
}

func TestPartitionConfidenceBoundaryIsInclusive(t *testing.T) {
	atThreshold := doc(1, "W-2", "John Smith", 0.80)
	belowThreshold := doc(2, "W-2", "John Smith", 0.79)

	buckets := Partition([]*docstore.Document{atThreshold, belowThreshold}, 0.80)
	if len(buckets) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(buckets))
	}

	for _, b := range buckets {
		switch b.Key {
		case "W-2|JOHN_SMITH":
			if len(b.Documents) != 1 || b.Documents[0].ID != 1 {
				t.Errorf("threshold document not in named bucket: %+v", b.Documents)
			}
		case "W-2|_unassigned":
			if len(b.Documents) != 1 || b.Documents[0].ID != 2 {
				t.Errorf("below-threshold document not in unassigned bucket: %+v", b.Documents)
			}
			if !b.Unassigned() {
				t.Error("unassigned bucket not reported as unassigned")
			}
		default:
			t.Errorf("unexpected bucket key %q", b.Key)
		}
	}
}

func TestPartitionNeverCrossesOwners(t *testing.T) {
	docs := []*docstore.Document{
		doc(1, "W-2", "John Smith", 0.99),
		doc(2, "W-2", "Jane Doe", 0.99),
	}
	buckets := Partition(docs, 0.80)
	for _, b := range buckets {
		if len(b.Documents) != 1 {
			t.Fatalf("distinct owners share bucket %q", b.Key)
		}
	}
}

func TestPartitionMissingOwnerFallsBack(t *testing.T) {
	docs := []*docstore.Document{
		doc(1, "W-2", "", 0),
		doc(2, "W-2", "   ", 0.99),
	}
	buckets := Partition(docs, 0.80)
	if len(buckets) != 1 {
		t.Fatalf("expected a single unassigned bucket, got %d", len(buckets))
	}
	if buckets[0].Key != "W-2|_unassigned" {
		t.Fatalf("unexpected key %q", buckets[0].Key)
	}
	if len(buckets[0].Documents) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(buckets[0].Documents))
	}
}

func TestPartitionPreservesUploadOrder(t *testing.T) {
	docs := []*docstore.Document{
		doc(3, "W-2", "John Smith", 0.95),
		doc(1, "W-2", "John Smith", 0.95),
		doc(2, "W-2", "John Smith", 0.95),
	}
	buckets := Partition(docs, 0.80)
	if len(buckets) != 1 {
		t.Fatalf("expected 1 bucket, got %d", len(buckets))
	}
	got := make([]int64, 0, 3)
	for _, d := range buckets[0].Documents {
		got = append(got, d.ID)
	}
	want := []int64{3, 1, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order changed: got %v want %v", got, want)
		}
	}
}
