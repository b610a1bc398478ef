// Package resolve folds parameter layers into a validated snapshot.
package resolve

import (
	"errors"
	"sort"

	"github.com/goliatone/go-promptkit/pkg/coerce"
	"github.com/goliatone/go-promptkit/pkg/schema"
	"github.com/goliatone/go-promptkit/pkg/value"
)

type entry struct {
	value value.Value
	layer LayerName
}

// Resolve folds layers, given in increasing precedence, into Params.
//
// A later layer replaces a key's earlier value wholesale. Once folded, keys
// the schema does not declare fail with *UnknownParameterError, required
// parameters without a value fail with *MissingRequiredParameterError, and
// every remaining value is coerced (textual values only) and validated.
// Names are examined in sorted order so the reported error is stable.
func Resolve(s *schema.Schema, layers ...Layer) (Params, error) {
	if s == nil {
		return Params{}, errors.New("resolve: schema is required")
	}

	folded := map[string]entry{}
	for _, layer := range layers {
		for key, v := range layer.Values {
			folded[key] = entry{value: v, layer: layer.Name}
		}
	}

	names := make([]string, 0, len(folded))
	for name := range folded {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if s.Has(name) {
			continue
		}
		if folded[name].layer == LayerDefaults {
			delete(folded, name)
			continue
		}
		return Params{}, &UnknownParameterError{Parameter: name, Layer: folded[name].layer}
	}

	for _, name := range s.Required() {
		e, ok := folded[name]
		if !ok || e.value.IsNull() {
			return Params{}, &MissingRequiredParameterError{Parameter: name}
		}
	}

	out := make(map[string]any, len(folded))
	for _, name := range names {
		e, ok := folded[name]
		if !ok {
			continue
		}
		spec, _ := s.Parameter(name)
		typed, err := settle(spec, e.value)
		if err != nil {
			return Params{}, &LayerError{Layer: e.layer, Err: err}
		}
		out[name] = typed
	}
	return Params{values: out}, nil
}

func settle(spec schema.ParameterSpec, v value.Value) (any, error) {
	raw := v.Interface()
	if v.Textual() {
		text, _ := v.AsString()
		coerced, err := coerce.Parameter(spec.Name, text, spec.Type)
		if err != nil {
			return nil, err
		}
		raw = coerced
	}
	return spec.Validate(raw)
}
