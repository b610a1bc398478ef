package schema

import "fmt"

// SchemaError reports a malformed or self-inconsistent schema definition.
// Path is a JSON pointer into the schema document when one applies.
type SchemaError struct {
	Source  string
	Path    string
	Message string
}

func (e *SchemaError) Error() string {
	msg := "schema: " + e.Message
	if e.Path != "" {
		msg += " at " + e.Path
	}
	if e.Source != "" {
		msg = e.Source + ": " + msg
	}
	return msg
}

// ValidationError reports a value that does not satisfy its parameter's
// declared type or constraints.
type ValidationError struct {
	Parameter string
	Expected  string
	Actual    any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema: parameter %q: expected %s, got %s", e.Parameter, e.Expected, describe(e.Actual))
}

func describe(v any) string {
	switch typed := v.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("%q (string)", typed)
	default:
		return fmt.Sprintf("%v (%T)", typed, typed)
	}
}
