package sequence

import (
	"errors"
	"fmt"
	"sort"
)

// Validation failures. Callers log these as quality warnings and keep the
// computed order.
var (
	ErrEmptySequence  = errors.New("sequence is empty")
	ErrDuplicatePage  = errors.New("duplicate page number")
	ErrPageGap        = errors.New("gap between page numbers")
	ErrMustStartAtOne = errors.New("sequence must start at page 1")
)

// Validate checks that the assigned page numbers form a dense run starting
// at 1. It is a pure diagnostic over the numbers themselves.
func Validate(pages []int) error {
	if len(pages) == 0 {
		return ErrEmptySequence
	}
	sorted := make([]int, len(pages))
	copy(sorted, pages)
	sort.Ints(sorted)

	if sorted[0] != 1 {
		return fmt.Errorf("%w: first page is %d", ErrMustStartAtOne, sorted[0])
	}
	for i := 1; i < len(sorted); i++ {
		switch {
		case sorted[i] == sorted[i-1]:
			return fmt.Errorf("%w: page %d", ErrDuplicatePage, sorted[i])
		case sorted[i]-sorted[i-1] > 1:
			return fmt.Errorf("%w: %d to %d", ErrPageGap, sorted[i-1], sorted[i])
		}
	}
	return nil
}
