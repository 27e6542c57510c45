package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ParseModelOutput turns the text a vision model replied with into a Result.
//
// Accepted shapes, after stripping an optional markdown code fence:
//   - a JSON array: one item per element; objects become records, strings
//     become raw items (Normalize may still parse them), anything else becomes
//     a raw item holding its JSON text
//   - a JSON object with an "error" key: an explicit failure signal
//   - any other JSON object: a single record
//   - anything else: one raw item per non-empty line
func ParseModelOutput(text string) Result {
	body := stripCodeFence(text)
	if body == "" {
		return Success()
	}

	var arr []json.RawMessage
	if err := json.Unmarshal([]byte(body), &arr); err == nil {
		items := make([]Item, 0, len(arr))
		for _, el := range arr {
			items = append(items, itemFromJSON(el))
		}
		return Success(items...)
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(body), &obj); err == nil && obj != nil {
		if v, ok := obj["error"]; ok {
			return Failure(errorText(v))
		}
		return Success(Record(obj))
	}

	var items []Item
	for _, line := range strings.Split(body, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			items = append(items, Raw(line))
		}
	}
	return Success(items...)
}

func itemFromJSON(el json.RawMessage) Item {
	trimmed := bytes.TrimSpace(el)

	var obj map[string]any
	if err := json.Unmarshal(trimmed, &obj); err == nil && obj != nil {
		return Record(obj)
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return Raw(s)
	}

	return Raw(string(trimmed))
}

func errorText(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
