package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

// errNotJSONObject is returned when a reply holds no decodable JSON object
var errNotJSONObject = errors.New("reply is not a JSON object")

// stripOuterCodeFences removes a wrapping ```json ... ``` block
func stripOuterCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	// Drop the opening fence line, including any language tag
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	} else {
		return strings.TrimSpace(strings.Trim(trimmed, "`"))
	}

	trimmed = strings.TrimSpace(trimmed)
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}

// parseReply decodes the model reply into a JSON object. Outer code fences
// and prose before the first '{' or after the last '}' are tolerated.
func parseReply(reply string) (map[string]interface{}, error) {
	body := stripOuterCodeFences(reply)

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(body), &raw); err == nil && raw != nil {
		return raw, nil
	}

	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start < 0 || end <= start {
		return nil, errNotJSONObject
	}

	raw = nil
	if err := json.Unmarshal([]byte(body[start:end+1]), &raw); err != nil || raw == nil {
		return nil, errNotJSONObject
	}
	return raw, nil
}

// requiredKeys lists the top-level keys every reply should carry
var requiredKeys = []string{
	"original_language", "translated_content", "summary", "key_insights",
	"market_metrics", "outlook", "risk_factors", "action_items", "confidence_level",
}

// missingKeys returns the required keys absent from raw
func missingKeys(raw map[string]interface{}) []string {
	var missing []string
	for _, key := range requiredKeys {
		if _, ok := raw[key]; !ok {
			missing = append(missing, key)
		}
	}
	return missing
}
