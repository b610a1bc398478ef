package schema

import (
	"regexp"
	"sort"
)

// Type is the declared type of a template parameter.
type Type string

const (
	TypeString  Type = "string"
	TypeInteger Type = "integer"
	TypeBoolean Type = "boolean"
	// TypeArray is an array of strings; no other element type is supported.
	TypeArray Type = "array"
	TypeEnum  Type = "enum"
)

// Valid reports whether t is one of the supported parameter types.
func (t Type) Valid() bool {
	switch t {
	case TypeString, TypeInteger, TypeBoolean, TypeArray, TypeEnum:
		return true
	default:
		return false
	}
}

// Constraints narrows the accepted values of a parameter beyond its type.
type Constraints struct {
	Enum        []string
	Minimum     *int64
	Maximum     *int64
	Pattern     string
	ItemPattern string

	pattern     *regexp.Regexp
	itemPattern *regexp.Regexp
}

// ParameterSpec describes one declared template parameter.
type ParameterSpec struct {
	Name        string
	Type        Type
	Description string
	Constraints Constraints
	Default     any
	HasDefault  bool
	Required    bool
}

// Schema is the immutable parameter model of a single template.
type Schema struct {
	Title       string
	Description string
	Version     string

	params []ParameterSpec
	index  map[string]int
}

// Parameters returns the declared parameters sorted by name.
func (s *Schema) Parameters() []ParameterSpec {
	if s == nil {
		return nil
	}
	out := make([]ParameterSpec, len(s.params))
	for i, p := range s.params {
		out[i] = p
		out[i].Default = cloneValue(p.Default)
		out[i].Constraints.Enum = append([]string(nil), p.Constraints.Enum...)
	}
	return out
}

// Parameter looks up a declared parameter by name.
func (s *Schema) Parameter(name string) (ParameterSpec, bool) {
	if s == nil {
		return ParameterSpec{}, false
	}
	idx, ok := s.index[name]
	if !ok {
		return ParameterSpec{}, false
	}
	p := s.params[idx]
	p.Default = cloneValue(p.Default)
	return p, true
}

// Has reports whether name is declared.
func (s *Schema) Has(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[name]
	return ok
}

// Names returns the declared parameter names in sorted order.
func (s *Schema) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, len(s.params))
	for i, p := range s.params {
		names[i] = p.Name
	}
	return names
}

// Required returns the names of required parameters in sorted order.
func (s *Schema) Required() []string {
	if s == nil {
		return nil
	}
	var out []string
	for _, p := range s.params {
		if p.Required {
			out = append(out, p.Name)
		}
	}
	return out
}

// Defaults returns the declared default of every parameter that has one,
// already typed (string, int64, bool, []string).
func (s *Schema) Defaults() map[string]any {
	out := make(map[string]any)
	if s == nil {
		return out
	}
	for _, p := range s.params {
		if p.HasDefault {
			out[p.Name] = cloneValue(p.Default)
		}
	}
	return out
}

func newSchema(params []ParameterSpec) *Schema {
	sort.Slice(params, func(i, j int) bool { return params[i].Name < params[j].Name })
	index := make(map[string]int, len(params))
	for i, p := range params {
		index[p.Name] = i
	}
	return &Schema{params: params, index: index}
}

func cloneValue(v any) any {
	if list, ok := v.([]string); ok {
		return append([]string(nil), list...)
	}
	return v
}
