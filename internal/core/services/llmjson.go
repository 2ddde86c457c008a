package services

import (
	"encoding/json"
	"strings"
)

// decodeModelJSON extracts and unmarshals the first JSON object found in
// a model response. Models often wrap JSON in prose or code fences, so
// the slice between the first '{' and the last '}' is taken. Returns
// false when no parsable object exists; the caller treats that as a
// validation failure, never a crash.
func decodeModelJSON(response string, v any) bool {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end <= start {
		return false
	}
	return json.Unmarshal([]byte(response[start:end+1]), v) == nil
}
