package resolve

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
)

// Params is an immutable snapshot of resolved, typed parameter values.
// Values are string, int64, bool or []string.
type Params struct {
	values map[string]any
}

// Get returns a copy of the named value.
func (p Params) Get(name string) (any, bool) {
	v, ok := p.values[name]
	return clone(v), ok
}

// Keys returns the parameter names in sorted order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p.values))
	for k := range p.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Map returns a copy of the snapshot suitable for template bindings.
func (p Params) Map() map[string]any {
	out := make(map[string]any, len(p.values))
	for k, v := range p.values {
		out[k] = clone(v)
	}
	return out
}

// Len reports the number of resolved parameters.
func (p Params) Len() int { return len(p.values) }

// Equal reports whether both snapshots hold the same names and values.
func (p Params) Equal(other Params) bool {
	if len(p.values) != len(other.values) {
		return false
	}
	for k, v := range p.values {
		ov, ok := other.values[k]
		if !ok || !reflect.DeepEqual(v, ov) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the snapshot as an object with sorted keys.
func (p Params) MarshalJSON() ([]byte, error) {
	if p.values == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p.values)
}

// ParamsFromJSON reads a snapshot written by MarshalJSON, such as a run
// packet's params.resolved.json. Integral numbers become int64 and arrays of
// strings become []string.
func ParamsFromJSON(raw []byte) (Params, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return Params{}, fmt.Errorf("resolve: decode params: %w", err)
	}
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		typed, err := fromJSON(v)
		if err != nil {
			return Params{}, fmt.Errorf("resolve: params %q: %w", k, err)
		}
		out[k] = typed
	}
	return Params{values: out}, nil
}

func fromJSON(v any) (any, error) {
	switch typed := v.(type) {
	case string, bool:
		return typed, nil
	case json.Number:
		n, err := typed.Int64()
		if err != nil {
			return nil, fmt.Errorf("non-integer number %s", typed)
		}
		return n, nil
	case []any:
		out := make([]string, len(typed))
		for i, item := range typed {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("array element %d is not a string", i)
			}
			out[i] = str
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value %v (%T)", v, v)
	}
}

func clone(v any) any {
	if list, ok := v.([]string); ok {
		return append([]string{}, list...)
	}
	return v
}
