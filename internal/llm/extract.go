// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// JSON extraction from free-form model output

package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var fencedJSONPattern = regexp.MustCompile("(?s)```json\\s*(.*?)```")

// Extraction is the typed result of parsing model output. A failed parse
// keeps the raw text so callers can distinguish "malformed" from "empty".
type Extraction struct {
	Data map[string]any
	Raw  string
	Err  error
}

// Malformed reports whether extraction failed to produce a JSON object
func (e Extraction) Malformed() bool {
	return e.Err != nil
}

// ExtractFencedOrWhole parses model output preferring a ```json fenced
// block, then the entire trimmed response. Used by the ticket mutation
// protocol, which instructs the model to fence its JSON.
func ExtractFencedOrWhole(raw string) Extraction {
	if m := fencedJSONPattern.FindStringSubmatch(raw); m != nil {
		candidate := strings.TrimSpace(m[1])
		var data map[string]any
		if err := json.Unmarshal([]byte(candidate), &data); err == nil {
			return Extraction{Data: data, Raw: raw}
		}
		// Fall through: a fenced block with broken JSON still gets the
		// whole-body attempt below.
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &data); err == nil {
		return Extraction{Data: data, Raw: raw}
	}

	return Extraction{Raw: raw, Err: fmt.Errorf("%w: no parseable JSON object", ErrInvalidJSON)}
}

// ExtractObject locates the first top-level JSON object in model output,
// tolerating markdown fences, trailing prose, and single-quoted
// pseudo-JSON. Used by the structured completion path.
func ExtractObject(raw string) Extraction {
	content := strings.TrimSpace(raw)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	span, ok := objectSpan(content)
	if !ok {
		return Extraction{Raw: raw, Err: fmt.Errorf("%w: no JSON object found", ErrInvalidJSON)}
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(span), &data); err == nil {
		return Extraction{Data: data, Raw: raw}
	}

	// Some models emit single-quoted pseudo-JSON. Only rewrite when the
	// span carries no double quotes at all, otherwise quoted content
	// would be corrupted.
	if strings.Contains(span, "'") && !strings.Contains(span, `"`) {
		normalized := strings.ReplaceAll(span, "'", `"`)
		if err := json.Unmarshal([]byte(normalized), &data); err == nil {
			return Extraction{Data: data, Raw: raw}
		}
	}

	return Extraction{Raw: raw, Err: fmt.Errorf("%w: malformed object span", ErrInvalidJSON)}
}

// objectSpan returns the first balanced {...} span in content. Braces
// inside JSON strings are skipped.
func objectSpan(content string) (string, bool) {
	start := strings.Index(content, "{")
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		c := content[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return content[start : i+1], true
			}
		}
	}
	return "", false
}

// TruncateForError truncates a string for error messages
func TruncateForError(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
