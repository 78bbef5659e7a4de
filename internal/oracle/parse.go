package oracle

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var errNoVerdicts = errors.New("no verdicts in payload")

// decodeVerdicts parses the model's JSON reply and aligns it with the
// candidate metadata. A candidate the model skipped becomes an explicit
// no-match verdict so callers always get one verdict per candidate.
func decodeVerdicts(payload string, meta []CandidateMeta) ([]Verdict, error) {
	trimmed := strings.TrimSpace(stripFences(payload))
	if trimmed == "" {
		return nil, errNoVerdicts
	}

	var raw []Verdict
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		// Some replies wrap the array in an object.
		var wrapped struct {
			Verdicts []Verdict `json:"verdicts"`
			Results  []Verdict `json:"results"`
		}
		if wrapErr := json.Unmarshal([]byte(trimmed), &wrapped); wrapErr != nil {
			return nil, fmt.Errorf("decode verdicts: %w", err)
		}
		raw = wrapped.Verdicts
		if len(raw) == 0 {
			raw = wrapped.Results
		}
	}
	if len(raw) == 0 {
		return nil, errNoVerdicts
	}

	byID := make(map[int64]Verdict, len(raw))
	for _, v := range raw {
		v.Confidence = clamp01(v.Confidence)
		v.PageOrderHint = normalizeHint(v.PageOrderHint)
		byID[v.DocumentID] = v
	}

	verdicts := make([]Verdict, len(meta))
	for i, m := range meta {
		if v, ok := byID[m.DocumentID]; ok {
			verdicts[i] = v
			continue
		}
		verdicts[i] = Verdict{
			DocumentID: m.DocumentID,
			Reasoning:  "no verdict returned for candidate",
		}
	}
	return verdicts, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func normalizeHint(hint string) string {
	switch strings.ToLower(strings.TrimSpace(hint)) {
	case "before":
		return "before"
	case "after":
		return "after"
	default:
		return ""
	}
}

func stripFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := trimmed[3:]
	body = strings.TrimLeft(body, " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = body[4:]
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}
