// Package oracle answers the one question the clustering loop cannot answer
// locally: do these two page images belong to the same physical document?
//
// The production implementation calls a Vertex AI vision model. Callers must
// treat every comparison as slow, costly and occasionally wrong: failures
// degrade to "no match" at the call site, never abort a bucket.
package oracle

import "context"

// PageImage is one page's raster content as handed to the model.
type PageImage struct {
	DocumentID int64
	MIMEType   string
	Data       []byte
}

// CandidateMeta is the textual context for one candidate page. It travels
// with the image so the model can use classification output as evidence.
type CandidateMeta struct {
	DocumentID  int64
	FormType    string
	OwnerName   string
	DisplayName string
	// Grouped marks representative pages pulled from an existing group.
	Grouped bool
}

// Verdict is the model's answer for one (primary, candidate) pair.
type Verdict struct {
	DocumentID int64   `json:"documentId"`
	MatchFound bool    `json:"matchFound"`
	Confidence float64 `json:"confidence"`
	// PageOrderHint is "before", "after" or empty when the model had no
	// ordering opinion. Advisory only.
	PageOrderHint string `json:"pageOrderHint,omitempty"`
	Reasoning     string `json:"reasoning,omitempty"`
}

// Service compares one primary page against a batch of candidates.
type Service interface {
	Compare(ctx context.Context, primary PageImage, candidates []PageImage, meta []CandidateMeta) ([]Verdict, error)
	Close() error
}
