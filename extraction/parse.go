package extraction

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseCandidates pulls a JSON array out of a model response.
// Anything before the first [ and after the last ] is discarded, which also
// removes markdown code fences and chatty preambles.
func parseCandidates(response string) ([]any, error) {
	text := stripFences(response)

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end < start {
		return nil, ErrNoJSONArray
	}
	span := text[start : end+1]

	items, err := decodeArray(span)
	if err == nil {
		return items, nil
	}
	if repaired := repairJSON(span); repaired != span {
		if items, repairErr := decodeArray(repaired); repairErr == nil {
			return items, nil
		}
	}
	return nil, fmt.Errorf("%w: %w", ErrMalformedJSON, err)
}

func decodeArray(text string) ([]any, error) {
	var items []any
	if err := json.Unmarshal([]byte(text), &items); err != nil {
		return nil, err
	}
	return items, nil
}

// stripFences removes a surrounding ```json ... ``` block if present.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
