package analysis

import (
	"encoding/json"
	"strings"
)

// RawKey is the key under which unparsable text is returned.
const RawKey = "raw"

// Normalize converts collaborator items into the response's list of mappings.
//
// Records are kept as they are (a nil record becomes an empty mapping). Raw
// text is parsed as JSON and kept when it is a JSON object; anything else,
// including valid JSON that is not an object, becomes {"raw": text}.
//
// Normalize never fails and never drops an item: len(result) == len(items).
func Normalize(items []Item) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		out = append(out, normalizeItem(it))
	}
	return out
}

func normalizeItem(it Item) map[string]any {
	if rec, ok := it.RecordValue(); ok {
		if rec == nil {
			return map[string]any{}
		}
		return rec
	}

	text, _ := it.Text()
	if m, ok := parseObject(text); ok {
		return m
	}
	return map[string]any{RawKey: text}
}

// parseObject decodes text as a single JSON object.
func parseObject(text string) (map[string]any, bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, false
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(trimmed), &m); err != nil || m == nil {
		return nil, false
	}
	return m, true
}
