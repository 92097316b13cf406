package client

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// APIError is a failed remote call: either a non-2xx rejection (StatusCode
// set) or a transport failure (StatusCode zero). Message is always safe to
// show to the user.
type APIError struct {
	StatusCode int
	Message    string
	cause      error
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
	}
	return e.Message
}

func (e *APIError) Unwrap() error { return e.cause }

// extractMessage pulls a human-readable message out of a structured error
// body. The API answers rejections with {"error": "..."}; DRF-style bodies
// use {"detail": "..."} or {"field": ["msg", ...]} maps. Anything unreadable
// falls back to the per-operation generic message.
func extractMessage(body []byte, fallback string) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil || len(payload) == 0 {
		return fallback
	}

	if msg, ok := payload["error"].(string); ok && msg != "" {
		return msg
	}
	if msg, ok := payload["detail"].(string); ok && msg != "" {
		return msg
	}

	// Flatten field-error maps into "field: msg, msg" pairs.
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		switch v := payload[k].(type) {
		case string:
			parts = append(parts, fmt.Sprintf("%s: %s", k, v))
		case []any:
			msgs := make([]string, 0, len(v))
			for _, item := range v {
				msgs = append(msgs, fmt.Sprint(item))
			}
			parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(msgs, ", ")))
		}
	}
	if len(parts) == 0 {
		return fallback
	}
	return strings.Join(parts, " · ")
}
