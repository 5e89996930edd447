package groq

import (
	"encoding/json"
	"strings"
)

// ExtractStructured pulls a JSON object out of model output. Fenced
// ```json blocks win over bare braces; with neither present, or with
// content that does not parse as an object, it reports false.
func ExtractStructured(text string) (map[string]any, bool) {
	if candidate, ok := fencedJSON(text); ok {
		if payload, ok := parseObject(candidate); ok {
			return payload, true
		}
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	return parseObject(text[start : end+1])
}

func fencedJSON(text string) (string, bool) {
	const fence = "```json"
	start := strings.Index(text, fence)
	if start < 0 {
		return "", false
	}
	rest := text[start+len(fence):]
	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

func parseObject(candidate string) (map[string]any, bool) {
	var payload map[string]any
	if err := json.Unmarshal([]byte(candidate), &payload); err != nil {
		return nil, false
	}
	return payload, true
}
