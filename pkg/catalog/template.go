package catalog

import (
	"sort"

	"github.com/goliatone/go-promptkit/pkg/schema"
)

// DefaultVersion is reported for templates whose schema carries no version.
const DefaultVersion = "0.1.0"

// DefaultPreset is the preset the doctor's golden check renders.
const DefaultPreset = "default"

// Template is one catalog entry. A schema that fails to load leaves Schema
// nil and the failure in SchemaErr; the template is still listed.
type Template struct {
	Name      string
	Body      string
	SchemaRaw []byte
	Schema    *schema.Schema
	SchemaErr error
	Presets   map[string]map[string]any
	// PresetErrs holds presets whose files could not be decoded.
	PresetErrs map[string]error
	// Golden is the expected render of the default preset, when present.
	Golden *string
}

// Preset returns a copy of the named preset.
func (t *Template) Preset(name string) (map[string]any, error) {
	if err, ok := t.PresetErrs[name]; ok {
		return nil, err
	}
	values, ok := t.Presets[name]
	if !ok {
		return nil, &PresetNotFoundError{Template: t.Name, Preset: name, Available: t.PresetNames()}
	}
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out, nil
}

// PresetNames lists every preset file, including ones that failed to
// decode, sorted.
func (t *Template) PresetNames() []string {
	names := make([]string, 0, len(t.Presets)+len(t.PresetErrs))
	for name := range t.Presets {
		names = append(names, name)
	}
	for name := range t.PresetErrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasPreset reports whether a preset file with that name exists.
func (t *Template) HasPreset(name string) bool {
	_, ok := t.Presets[name]
	_, bad := t.PresetErrs[name]
	return ok || bad
}

// Description prefers the schema description, then its title.
func (t *Template) Description() string {
	if t.Schema != nil {
		if t.Schema.Description != "" {
			return t.Schema.Description
		}
		if t.Schema.Title != "" {
			return t.Schema.Title
		}
	}
	return "No description"
}

// Version returns the schema version or DefaultVersion.
func (t *Template) Version() string {
	if t.Schema != nil && t.Schema.Version != "" {
		return t.Schema.Version
	}
	return DefaultVersion
}
