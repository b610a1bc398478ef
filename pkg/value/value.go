// Package value models loosely typed parameter values as a tagged union.
//
// Presets and params files arrive as decoded YAML/JSON, command-line overrides
// arrive as plain text. Both are converted into a Value before resolution so
// the resolver never handles arbitrary Go dynamic types directly.
package value

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Kind tags the variant stored in a Value.
type Kind uint8

const (
	Null Kind = iota
	String
	Number
	Bool
	Sequence
	Mapping
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case String:
		return "string"
	case Number:
		return "number"
	case Bool:
		return "bool"
	case Sequence:
		return "sequence"
	case Mapping:
		return "mapping"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is an immutable node of the tree. The zero Value is Null.
type Value struct {
	kind    Kind
	str     string
	num     float64
	integer bool
	boolean bool
	seq     []Value
	mapping map[string]Value
	textual bool
}

// Raw wraps an unparsed textual token, such as the right-hand side of a
// key=value override. Textual values are coerced against the declared
// parameter type before validation.
func Raw(s string) Value {
	return Value{kind: String, str: s, textual: true}
}

// Str builds a String value that is already typed.
func Str(s string) Value { return Value{kind: String, str: s} }

// Int builds an integral Number.
func Int(n int64) Value { return Value{kind: Number, num: float64(n), integer: true} }

// Float builds a Number.
func Float(f float64) Value {
	return Value{kind: Number, num: f, integer: f == math.Trunc(f) && !math.IsInf(f, 0)}
}

// Boolean builds a Bool value.
func Boolean(b bool) Value { return Value{kind: Bool, boolean: b} }

// Seq builds a Sequence.
func Seq(items ...Value) Value {
	return Value{kind: Sequence, seq: append([]Value(nil), items...)}
}

// Map builds a Mapping.
func Map(entries map[string]Value) Value {
	out := make(map[string]Value, len(entries))
	for k, v := range entries {
		out[k] = v
	}
	return Value{kind: Mapping, mapping: out}
}

// FromAny converts a decoded JSON or YAML document node into a Value.
// Mapping keys must be strings; YAML documents with non-string keys are
// rejected.
func FromAny(v any) (Value, error) {
	switch typed := v.(type) {
	case nil:
		return Value{}, nil
	case Value:
		return typed, nil
	case string:
		return Str(typed), nil
	case bool:
		return Boolean(typed), nil
	case int:
		return Int(int64(typed)), nil
	case int8:
		return Int(int64(typed)), nil
	case int16:
		return Int(int64(typed)), nil
	case int32:
		return Int(int64(typed)), nil
	case int64:
		return Int(typed), nil
	case uint:
		return fromUnsigned(uint64(typed))
	case uint8:
		return Int(int64(typed)), nil
	case uint16:
		return Int(int64(typed)), nil
	case uint32:
		return Int(int64(typed)), nil
	case uint64:
		return fromUnsigned(typed)
	case float32:
		return Float(float64(typed)), nil
	case float64:
		return Float(typed), nil
	case json.Number:
		if n, err := typed.Int64(); err == nil {
			return Int(n), nil
		}
		f, err := typed.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("value: invalid number %q", typed.String())
		}
		return Float(f), nil
	case []string:
		items := make([]Value, len(typed))
		for i, s := range typed {
			items[i] = Str(s)
		}
		return Value{kind: Sequence, seq: items}, nil
	case []any:
		items := make([]Value, len(typed))
		for i, item := range typed {
			converted, err := FromAny(item)
			if err != nil {
				return Value{}, fmt.Errorf("value: [%d]: %w", i, err)
			}
			items[i] = converted
		}
		return Value{kind: Sequence, seq: items}, nil
	case map[string]any:
		entries := make(map[string]Value, len(typed))
		for key, item := range typed {
			converted, err := FromAny(item)
			if err != nil {
				return Value{}, fmt.Errorf("value: %s: %w", key, err)
			}
			entries[key] = converted
		}
		return Value{kind: Mapping, mapping: entries}, nil
	case map[any]any:
		entries := make(map[string]Value, len(typed))
		for key, item := range typed {
			name, ok := key.(string)
			if !ok {
				return Value{}, fmt.Errorf("value: mapping key %v (%T) is not a string", key, key)
			}
			converted, err := FromAny(item)
			if err != nil {
				return Value{}, fmt.Errorf("value: %s: %w", name, err)
			}
			entries[name] = converted
		}
		return Value{kind: Mapping, mapping: entries}, nil
	default:
		return Value{}, fmt.Errorf("value: unsupported type %T", v)
	}
}

func fromUnsigned(n uint64) (Value, error) {
	if n > math.MaxInt64 {
		return Value{}, fmt.Errorf("value: integer %d overflows int64", n)
	}
	return Int(int64(n)), nil
}

// Kind reports the variant.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is Null.
func (v Value) IsNull() bool { return v.kind == Null }

// Textual reports whether v came from Raw and still needs coercion.
func (v Value) Textual() bool { return v.kind == String && v.textual }

// AsString returns the string payload of a String value.
func (v Value) AsString() (string, bool) {
	if v.kind != String {
		return "", false
	}
	return v.str, true
}

// AsInt returns the payload of an integral Number.
func (v Value) AsInt() (int64, bool) {
	if v.kind != Number || !v.integer {
		return 0, false
	}
	return int64(v.num), true
}

// AsFloat returns the payload of any Number.
func (v Value) AsFloat() (float64, bool) {
	if v.kind != Number {
		return 0, false
	}
	return v.num, true
}

// AsBool returns the payload of a Bool value.
func (v Value) AsBool() (bool, bool) {
	if v.kind != Bool {
		return false, false
	}
	return v.boolean, true
}

// Items returns a copy of a Sequence's elements.
func (v Value) Items() []Value {
	if v.kind != Sequence {
		return nil
	}
	return append([]Value(nil), v.seq...)
}

// Len returns the number of elements of a Sequence or Mapping.
func (v Value) Len() int {
	switch v.kind {
	case Sequence:
		return len(v.seq)
	case Mapping:
		return len(v.mapping)
	default:
		return 0
	}
}

// Keys returns a Mapping's keys in sorted order.
func (v Value) Keys() []string {
	if v.kind != Mapping {
		return nil
	}
	keys := make([]string, 0, len(v.mapping))
	for k := range v.mapping {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Field looks up a Mapping entry.
func (v Value) Field(key string) (Value, bool) {
	if v.kind != Mapping {
		return Value{}, false
	}
	item, ok := v.mapping[key]
	return item, ok
}

// Interface converts v to plain Go values: nil, string, int64 (integral
// numbers), float64, bool, []any and map[string]any.
func (v Value) Interface() any {
	switch v.kind {
	case String:
		return v.str
	case Number:
		if v.integer && v.num >= math.MinInt64 && v.num <= math.MaxInt64 {
			return int64(v.num)
		}
		return v.num
	case Bool:
		return v.boolean
	case Sequence:
		out := make([]any, len(v.seq))
		for i, item := range v.seq {
			out[i] = item.Interface()
		}
		return out
	case Mapping:
		out := make(map[string]any, len(v.mapping))
		for k, item := range v.mapping {
			out[k] = item.Interface()
		}
		return out
	default:
		return nil
	}
}

// String renders v for diagnostics.
func (v Value) String() string {
	switch v.kind {
	case Null:
		return "null"
	case String:
		return strconv.Quote(v.str)
	case Number:
		if v.integer {
			return strconv.FormatInt(int64(v.num), 10)
		}
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case Bool:
		return strconv.FormatBool(v.boolean)
	default:
		raw, err := json.Marshal(v.Interface())
		if err != nil {
			return v.kind.String()
		}
		return string(raw)
	}
}
