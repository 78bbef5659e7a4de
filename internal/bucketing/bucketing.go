// Package bucketing partitions classified documents into coarse (form type,
// owner) buckets that scope the expensive pairwise comparison loop.
//
// The owner half of the key is gated on classification confidence: a value
// below the threshold means "owner unknown", never "owner = low-confidence
// guess". That gate is the only barrier preventing two identified people's
// documents from ever being compared, so it must stay conservative.
package bucketing

import (
	"sort"

	"sheaf/internal/docstore"
	"sheaf/internal/naming"
)

// UnassignedOwner is the owner segment used when no trusted owner is known.
const UnassignedOwner = "_unassigned"

// Bucket holds the documents sharing one (form type, owner) key during a pass.
// Buckets are ephemeral and rebuilt from scratch every pass.
type Bucket struct {
	Key       string
	FormType  string
	Owner     string // normalized owner, empty for the unassigned bucket
	Documents []*docstore.Document
}

// Unassigned reports whether the bucket has no trusted owner.
func (b *Bucket) Unassigned() bool {
	return b.Owner == ""
}

// OwnerSegment returns the owner half of the bucket key.
func OwnerSegment(doc *docstore.Document, threshold float64) string {
	if doc.OwnerName == "" {
		return UnassignedOwner
	}
	// The boundary is inclusive: confidence exactly at the threshold
	// qualifies for the named bucket.
	if doc.OwnerConfidence < threshold {
		return UnassignedOwner
	}
	normalized := naming.NormalizeOwner(doc.OwnerName)
	if normalized == "" {
		return UnassignedOwner
	}
	return normalized
}

// KeyFor computes the bucket key for one document.
func KeyFor(doc *docstore.Document, threshold float64) string {
	return doc.FormType + "|" + OwnerSegment(doc, threshold)
}

// Partition groups documents by bucket key, preserving upload order within a
// bucket. Buckets are returned sorted by key for deterministic processing.
func Partition(docs []*docstore.Document, threshold float64) []*Bucket {
	byKey := make(map[string]*Bucket)
	for _, doc := range docs {
		key := KeyFor(doc, threshold)
		bucket, ok := byKey[key]
		if !ok {
			owner := OwnerSegment(doc, threshold)
			if owner == UnassignedOwner {
				owner = ""
			}
			bucket = &Bucket{Key: key, FormType: doc.FormType, Owner: owner}
			byKey[key] = bucket
		}
		bucket.Documents = append(bucket.Documents, doc)
	}

	buckets := make([]*Bucket, 0, len(byKey))
	for _, bucket := range byKey {
		buckets = append(buckets, bucket)
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Key < buckets[j].Key })
	return buckets
}
