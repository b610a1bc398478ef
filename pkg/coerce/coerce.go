// Package coerce turns textual parameter values into typed values.
//
// Coercion is strict: booleans accept only true/false, integers only an
// optional sign followed by base-10 digits, and arrays only a JSON array of
// strings. Enum and string values pass through untouched.
package coerce

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-promptkit/pkg/schema"
)

// CoercionError reports a textual value that cannot be read as its target
// type.
type CoercionError struct {
	Parameter string
	Raw       string
	Target    schema.Type
	Reason    string
}

func (e *CoercionError) Error() string {
	prefix := "coerce: "
	if e.Parameter != "" {
		prefix += fmt.Sprintf("parameter %q: ", e.Parameter)
	}
	return fmt.Sprintf("%scannot read %q as %s: %s", prefix, e.Raw, e.Target, e.Reason)
}

// Coerce converts raw into a value of the target type.
func Coerce(raw string, target schema.Type) (any, error) {
	switch target {
	case schema.TypeString, schema.TypeEnum:
		return raw, nil
	case schema.TypeInteger:
		return parseInteger(raw)
	case schema.TypeBoolean:
		switch strings.ToLower(raw) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, fail(raw, target, "expected true or false")
	case schema.TypeArray:
		return parseStringArray(raw)
	default:
		return nil, fail(raw, target, "unsupported target type")
	}
}

// Parameter is Coerce with the parameter name recorded on failure.
func Parameter(name, raw string, target schema.Type) (any, error) {
	v, err := Coerce(raw, target)
	if err != nil {
		if ce, ok := err.(*CoercionError); ok {
			ce.Parameter = name
		}
		return nil, err
	}
	return v, nil
}

func parseInteger(raw string) (int64, error) {
	digits := raw
	if strings.HasPrefix(digits, "+") || strings.HasPrefix(digits, "-") {
		digits = digits[1:]
	}
	if digits == "" {
		return 0, fail(raw, schema.TypeInteger, "expected base-10 digits")
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, fail(raw, schema.TypeInteger, "expected base-10 digits")
		}
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fail(raw, schema.TypeInteger, "out of range")
	}
	return n, nil
}

func parseStringArray(raw string) ([]string, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var items []any
	if err := dec.Decode(&items); err != nil {
		return nil, fail(raw, schema.TypeArray, "not a JSON array literal")
	}
	if items == nil {
		return nil, fail(raw, schema.TypeArray, "not a JSON array literal")
	}
	if dec.More() {
		return nil, fail(raw, schema.TypeArray, "trailing data after array")
	}

	out := make([]string, len(items))
	for i, item := range items {
		str, ok := item.(string)
		if !ok {
			return nil, fail(raw, schema.TypeArray, fmt.Sprintf("element %d is not a string", i))
		}
		out[i] = str
	}
	return out, nil
}

func fail(raw string, target schema.Type, reason string) *CoercionError {
	return &CoercionError{Raw: raw, Target: target, Reason: reason}
}
