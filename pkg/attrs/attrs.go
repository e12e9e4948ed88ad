// Package attrs has helpers for reading the loosely typed key-value payloads
// carried by reactive store actions.
package attrs

// String returns the string value under key, or "" when the key is absent or
// holds a non-string.
func String(payload map[string]any, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

// Bool returns the bool value under key, or false when the key is absent or
// holds a non-bool.
func Bool(payload map[string]any, key string) bool {
	if v, ok := payload[key].(bool); ok {
		return v
	}
	return false
}
