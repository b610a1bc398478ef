package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// MaxSafeInteger bounds integer parameters to values a float64 holds exactly,
// so canonical JSON and its hash distinguish every accepted value.
const MaxSafeInteger = 1<<53 - 1

// Validate checks value against the named parameter and returns it in its
// canonical typed form: string, int64, bool or []string.
//
// Loosely typed inputs from JSON/YAML decoding (float64 or json.Number
// integers, []any of strings) are accepted and normalized. Strings are never
// parsed into other types here; that is the coercer's job.
func (s *Schema) Validate(name string, value any) (any, error) {
	spec, ok := s.Parameter(name)
	if !ok {
		return nil, &ValidationError{Parameter: name, Expected: "a declared parameter", Actual: value}
	}
	return spec.Validate(value)
}

// Validate checks value against this parameter's type and constraints.
func (p ParameterSpec) Validate(value any) (any, error) {
	if value == nil {
		return nil, p.fail("a non-null "+string(p.Type), value)
	}

	switch p.Type {
	case TypeString:
		str, ok := value.(string)
		if !ok {
			return nil, p.fail("a string", value)
		}
		if re := p.Constraints.pattern; re != nil && !re.MatchString(str) {
			return nil, p.fail(fmt.Sprintf("a string matching %q", p.Constraints.Pattern), value)
		}
		return str, nil

	case TypeEnum:
		str, ok := value.(string)
		if !ok {
			return nil, p.fail("one of ["+strings.Join(p.Constraints.Enum, ", ")+"]", value)
		}
		for _, allowed := range p.Constraints.Enum {
			if allowed == str {
				return str, nil
			}
		}
		return nil, p.fail("one of ["+strings.Join(p.Constraints.Enum, ", ")+"]", value)

	case TypeInteger:
		n, ok := toInt64(value)
		if !ok {
			return nil, p.fail("an integer", value)
		}
		if n > MaxSafeInteger || n < -MaxSafeInteger {
			return nil, p.fail(fmt.Sprintf("an integer within +/-%d", int64(MaxSafeInteger)), value)
		}
		if lo := p.Constraints.Minimum; lo != nil && n < *lo {
			return nil, p.fail(fmt.Sprintf("an integer >= %d", *lo), value)
		}
		if hi := p.Constraints.Maximum; hi != nil && n > *hi {
			return nil, p.fail(fmt.Sprintf("an integer <= %d", *hi), value)
		}
		return n, nil

	case TypeBoolean:
		b, ok := value.(bool)
		if !ok {
			return nil, p.fail("a boolean", value)
		}
		return b, nil

	case TypeArray:
		items, ok := toStrings(value)
		if !ok {
			return nil, p.fail("an array of strings", value)
		}
		if re := p.Constraints.itemPattern; re != nil {
			for i, item := range items {
				if !re.MatchString(item) {
					return nil, p.fail(fmt.Sprintf("items matching %q (item %d)", p.Constraints.ItemPattern, i), value)
				}
			}
		}
		return items, nil

	default:
		return nil, p.fail("a supported type", value)
	}
}

func (p ParameterSpec) fail(expected string, actual any) *ValidationError {
	return &ValidationError{Parameter: p.Name, Expected: expected, Actual: actual}
}

func toInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		if uint64(v) > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || v > math.MaxInt64 || v < math.MinInt64 {
			return 0, false
		}
		return int64(v), true
	case float32:
		return toInt64(float64(v))
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, true
		}
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return toInt64(f)
	default:
		return 0, false
	}
}

func toStrings(value any) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return append([]string{}, v...), true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, str)
		}
		return out, true
	default:
		return nil, false
	}
}
