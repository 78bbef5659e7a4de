package sequence

import (
	"fmt"
	"strings"

	"sheaf/internal/docstore"
)

// SignalKind identifies which ordering signal won for a document.
type SignalKind int

const (
	// SignalExplicit means an explicit page number was printed on the page.
	SignalExplicit SignalKind = iota
	// SignalLikelyFirst means a primary-section marker with no explicit
	// number, no continuation marker and no worksheet flag.
	SignalLikelyFirst
	// SignalContinuationFallback means a continuation marker placed the
	// page after the primary pages.
	SignalContinuationFallback
	// SignalWorksheetFallback means a worksheet flag or filename heuristic
	// placed the page last.
	SignalWorksheetFallback
	// SignalUploadFallback means no signal matched and arrival order won.
	SignalUploadFallback
)

// Sentinel offsets keep fallback keys sorted after any plausible explicit
// page number. They are sort keys only and are never persisted.
const (
	likelyFirstKey   = 1
	continuationBase = 100
	uploadBase       = 500
	worksheetBase    = 900
)

// Signal is the tagged outcome of classifying one document's ordering
// evidence. Recording which signal won (rather than just the final number)
// keeps heuristic decisions observable.
type Signal struct {
	Kind SignalKind
	// Page is the explicit page number, set only for SignalExplicit.
	Page int
	// Index is the document's position in arrival order, set for the
	// fallback kinds.
	Index int
}

func (s Signal) sortKey() int {
	switch s.Kind {
	case SignalExplicit:
		return s.Page
	case SignalLikelyFirst:
		return likelyFirstKey
	case SignalContinuationFallback:
		return continuationBase + s.Index
	case SignalWorksheetFallback:
		return worksheetBase + s.Index
	default:
		return uploadBase + s.Index
	}
}

func (s Signal) String() string {
	switch s.Kind {
	case SignalExplicit:
		return fmt.Sprintf("explicit(%d)", s.Page)
	case SignalLikelyFirst:
		return "likely-first"
	case SignalContinuationFallback:
		return fmt.Sprintf("continuation-fallback(%d)", s.Index)
	case SignalWorksheetFallback:
		return fmt.Sprintf("worksheet-fallback(%d)", s.Index)
	default:
		return fmt.Sprintf("upload-fallback(%d)", s.Index)
	}
}

var worksheetNameMarkers = []string{"worksheet", "wks", "supplement", "smart wks"}

// looksLikeWorksheet applies the filename heuristic for software-generated
// supplement pages that carry no explicit worksheet flag.
func looksLikeWorksheet(displayName string) bool {
	name := strings.ToLower(displayName)
	for _, marker := range worksheetNameMarkers {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}

// classify picks the highest-precedence signal the document carries.
func classify(doc *docstore.Document, index int) Signal {
	hints := doc.Hints
	if hints.PageNumber > 0 {
		return Signal{Kind: SignalExplicit, Page: hints.PageNumber}
	}
	if hints.PartLabel != "" && hints.Continuation == nil && !hints.Worksheet {
		return Signal{Kind: SignalLikelyFirst, Index: index}
	}
	if hints.Continuation != nil {
		return Signal{Kind: SignalContinuationFallback, Index: index}
	}
	if hints.Worksheet || looksLikeWorksheet(doc.DisplayName) {
		return Signal{Kind: SignalWorksheetFallback, Index: index}
	}
	return Signal{Kind: SignalUploadFallback, Index: index}
}
