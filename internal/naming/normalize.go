package naming

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var upper = cases.Upper(language.Und)

// generationalSuffixes are stripped only when they appear as the final token.
var generationalSuffixes = map[string]struct{}{
	"JR":  {},
	"SR":  {},
	"II":  {},
	"III": {},
	"IV":  {},
}

// NormalizeOwner canonicalizes a raw owner name into the token used in bucket
// keys. It returns "" when the input carries no usable name.
//
// The transformation uppercases, drops periods and commas (hyphens survive),
// rewrites "&"/"AND" between names to a literal _AND_ joiner, collapses
// whitespace runs to single underscores, and strips one trailing generational
// suffix (JR, SR, II, III, IV). A token like "Junior" is never treated as a
// suffix because matching is anchored to the final token only.
func NormalizeOwner(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	cleaned := upper.String(trimmed)
	cleaned = strings.Map(func(r rune) rune {
		switch r {
		case '.', ',':
			return -1
		default:
			return r
		}
	}, cleaned)

	tokens := strings.Fields(cleaned)
	if len(tokens) == 0 {
		return ""
	}
	for i, token := range tokens {
		if token == "&" || token == "AND" {
			tokens[i] = "AND"
		}
	}

	if len(tokens) > 1 {
		if _, ok := generationalSuffixes[tokens[len(tokens)-1]]; ok {
			tokens = tokens[:len(tokens)-1]
		}
	}

	return strings.Join(tokens, "_")
}
