package resolve

import (
	"fmt"

	"github.com/goliatone/go-promptkit/pkg/coerce"
	"github.com/goliatone/go-promptkit/pkg/schema"
	"github.com/goliatone/go-promptkit/pkg/value"
)

// LayerName identifies a parameter source. Layers are folded in the order
// they are passed to Resolve; the names below list the usual order.
type LayerName string

const (
	LayerDefaults   LayerName = "schema_defaults"
	LayerPreset     LayerName = "preset"
	LayerParamsFile LayerName = "params_file"
	LayerOverrides  LayerName = "cli_overrides"
)

// Layer is one named source of raw parameter values.
type Layer struct {
	Name   LayerName
	Values map[string]value.Value
}

// Len returns the number of keys the layer sets.
func (l Layer) Len() int { return len(l.Values) }

// DefaultsLayer builds the schema_defaults layer from the declared defaults.
func DefaultsLayer(s *schema.Schema) Layer {
	layer := Layer{Name: LayerDefaults, Values: map[string]value.Value{}}
	for name, def := range s.Defaults() {
		v, err := value.FromAny(def)
		if err != nil {
			// defaults are already typed by schema.Load
			continue
		}
		layer.Values[name] = v
	}
	return layer
}

// NewLayer builds a layer from a decoded YAML or JSON mapping. A nil map
// yields an empty layer.
func NewLayer(name LayerName, values map[string]any) (Layer, error) {
	layer := Layer{Name: name, Values: make(map[string]value.Value, len(values))}
	for key, raw := range values {
		v, err := value.FromAny(raw)
		if err != nil {
			return Layer{}, fmt.Errorf("resolve: layer %s: parameter %q: %w", name, key, err)
		}
		layer.Values[key] = v
	}
	return layer, nil
}

// OverrideLayer builds the cli_overrides layer from key=value tokens. Values
// stay textual and are coerced during resolution. A key repeated in tokens
// keeps its last value.
func OverrideLayer(tokens []string) (Layer, error) {
	return TextLayer(LayerOverrides, tokens)
}

// TextLayer builds a textual layer under an arbitrary name.
func TextLayer(name LayerName, tokens []string) (Layer, error) {
	layer := Layer{Name: name, Values: make(map[string]value.Value, len(tokens))}
	for _, token := range tokens {
		key, raw, err := coerce.ParseOverride(token)
		if err != nil {
			return Layer{}, err
		}
		layer.Values[key] = value.Raw(raw)
	}
	return layer, nil
}
