// Package jsonx extracts structured JSON from language-model output.
package jsonx

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractObject parses a single JSON object out of model output, tolerating
// the fenced-code wrapping most models add around structured replies. A
// parse failure returns an error; pipeline callers fall back to their
// layer's deterministic default rather than propagating it.
func ExtractObject(content string, v any) error {
	cleaned := StripCodeFences(content)
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return fmt.Errorf("parse JSON reply: %w", err)
	}
	return nil
}

// StripCodeFences removes a leading ```json or ``` marker and a trailing
// ``` marker, leaving the inner text trimmed.
func StripCodeFences(content string) string {
	cleaned := strings.TrimSpace(content)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = cleaned[len("```json"):]
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = cleaned[len("```"):]
	}
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	return strings.TrimSpace(cleaned)
}
