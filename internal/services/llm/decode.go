package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// DecodeLLMJSON decodes JSON from an LLM response in three tiers: a strict
// unmarshal, then a sanitizing pass that strips code fences and extracts the
// outermost object or array, then a field-by-field recovery that salvages
// flat scalar fields from structurally broken payloads. Callers that need a
// field should treat its zero value as absent after tier three.
func DecodeLLMJSON(content string, target any) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return errors.New("empty payload")
	}

	directErr := json.Unmarshal([]byte(trimmed), target)
	if directErr == nil {
		return nil
	}

	sanitized := sanitizeJSONPayload(trimmed)
	if sanitized != "" && sanitized != trimmed {
		if err := json.Unmarshal([]byte(sanitized), target); err == nil {
			return nil
		}
	}

	if recovered, ok := recoverScalarFields(sanitizedOrOriginal(sanitized, trimmed)); ok {
		if err := json.Unmarshal(recovered, target); err == nil {
			return nil
		}
	}

	return fmt.Errorf("%w (payload snippet: %s)", directErr, summarizePayloadSnippet(trimmed))
}

func sanitizedOrOriginal(sanitized, original string) string {
	if sanitized != "" {
		return sanitized
	}
	return original
}

func sanitizeJSONPayload(content string) string {
	trimmed := strings.TrimSpace(stripCodeFenceBlock(content))
	if trimmed == "" {
		return ""
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		return trimmed
	}
	if start := strings.Index(trimmed, "{"); start >= 0 {
		if end := strings.LastIndex(trimmed, "}"); end > start {
			return strings.TrimSpace(trimmed[start : end+1])
		}
	}
	if start := strings.Index(trimmed, "["); start >= 0 {
		if end := strings.LastIndex(trimmed, "]"); end > start {
			return strings.TrimSpace(trimmed[start : end+1])
		}
	}
	return trimmed
}

func stripCodeFenceBlock(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := trimmed[3:]
	body = strings.TrimLeft(body, " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = body[4:]
		body = strings.TrimLeft(body, " \t\r\n")
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

// scalarFieldPattern matches top-level "key": value pairs whose value is a
// string, number, boolean, or null. Nested objects and arrays are beyond
// salvage and are deliberately skipped.
var scalarFieldPattern = regexp.MustCompile(
	`"([A-Za-z0-9_]+)"\s*:\s*("(?:[^"\\]|\\.)*"|-?\d+(?:\.\d+)?(?:[eE][+-]?\d+)?|true|false|null)`,
)

func recoverScalarFields(content string) ([]byte, bool) {
	matches := scalarFieldPattern.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil, false
	}
	fields := make(map[string]json.RawMessage, len(matches))
	for _, match := range matches {
		key := match[1]
		if _, seen := fields[key]; seen {
			continue
		}
		value := json.RawMessage(match[2])
		if !json.Valid(value) {
			continue
		}
		fields[key] = value
	}
	if len(fields) == 0 {
		return nil, false
	}
	recovered, err := json.Marshal(fields)
	if err != nil {
		return nil, false
	}
	return recovered, true
}

func summarizePayloadSnippet(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	replacer := strings.NewReplacer("\r", " ", "\n", " ", "\t", " ")
	clean := replacer.Replace(trimmed)
	clean = strings.Join(strings.Fields(clean), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
