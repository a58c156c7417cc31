package openrouter

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	thinkBlockRe = regexp.MustCompile(`(?is)<think>.*?</think>`)
	codeFenceRe  = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
)

// ExtractJSON recovers the first valid JSON object or array from a raw model
// response. Free-tier models routinely ignore the JSON-only instruction, so
// the recovery is layered: strip <think> reasoning blocks, unwrap a markdown
// code fence, try a direct parse, and finally scan for the outermost {...}
// or [...] slice. Returns nil when no stage yields valid JSON.
func ExtractJSON(raw string) any {
	text := strings.TrimSpace(thinkBlockRe.ReplaceAllString(raw, ""))
	if text == "" {
		return nil
	}

	if m := codeFenceRe.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}

	if v, ok := tryParse(text); ok {
		return v
	}

	// Find the outermost { } or [ ] block.
	objStart := strings.Index(text, "{")
	arrStart := strings.Index(text, "[")

	start := -1
	closing := ""
	if objStart != -1 && (arrStart == -1 || objStart < arrStart) {
		start = objStart
		closing = "}"
	} else if arrStart != -1 {
		start = arrStart
		closing = "]"
	}
	if start == -1 {
		return nil
	}

	end := strings.LastIndex(text, closing)
	if end <= start {
		return nil
	}

	if v, ok := tryParse(text[start : end+1]); ok {
		return v
	}
	return nil
}

func tryParse(text string) (any, bool) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, false
	}
	return v, true
}
