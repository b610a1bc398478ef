package coerce

import (
	"fmt"
	"strings"
)

// ParseOverride splits a key=value token on its first '='. The key is
// trimmed and must not be empty; the value is kept verbatim.
func ParseOverride(token string) (string, string, error) {
	key, raw, ok := strings.Cut(token, "=")
	if !ok {
		return "", "", fmt.Errorf("coerce: override %q must have the form key=value", token)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", "", fmt.Errorf("coerce: override %q has an empty key", token)
	}
	return key, raw, nil
}
