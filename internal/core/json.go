// ABOUTME: Decoding helpers for JSON replies from the generation model
// ABOUTME: Tolerates code fences and prose around the JSON object
package core

import (
	"encoding/json"
	"errors"
	"strings"
)

var errNoJSONObject = errors.New("reply contains no JSON object")

// decodeJSONReply unmarshals the outermost JSON object found in a model reply
func decodeJSONReply(reply string, v any) error {
	text := strings.TrimSpace(reply)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return errNoJSONObject
	}
	return json.Unmarshal([]byte(text[start:end+1]), v)
}
