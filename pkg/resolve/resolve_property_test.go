package resolve

import (
	"encoding/json"
	"strconv"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property: identical layers always produce equal snapshots.
func TestResolveDeterminismProperty(t *testing.T) {
	s := mustSchema(t, scenarioSchema)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("resolve is a pure function of its layers", prop.ForAll(
		func(budget int, depth string, tags []string) bool {
			build := func() []Layer {
				items := make([]any, len(tags))
				for i, tag := range tags {
					items[i] = tag
				}
				preset, _ := NewLayer(LayerPreset, map[string]any{"focus_areas": items})
				overrides, _ := OverrideLayer([]string{
					"time_budget_minutes=" + strconv.Itoa(budget),
					"depth=" + depth,
				})
				return []Layer{DefaultsLayer(s), preset, overrides}
			}

			first, err1 := Resolve(s, build()...)
			second, err2 := Resolve(s, build()...)
			if err1 != nil || err2 != nil {
				return false
			}
			a, _ := json.Marshal(first)
			b, _ := json.Marshal(second)
			return first.Equal(second) && string(a) == string(b)
		},
		gen.IntRange(1, 10000),
		gen.OneConstOf("fast", "normal", "deep"),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}

// Property: an override always beats the preset for the same key.
func TestResolvePrecedenceProperty(t *testing.T) {
	s := mustSchema(t, scenarioSchema)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("cli_overrides wins over preset", prop.ForAll(
		func(presetBudget, overrideBudget int) bool {
			preset, _ := NewLayer(LayerPreset, map[string]any{"time_budget_minutes": presetBudget})
			overrides, _ := OverrideLayer([]string{"time_budget_minutes=" + strconv.Itoa(overrideBudget)})

			params, err := Resolve(s, DefaultsLayer(s), preset, overrides)
			if err != nil {
				return false
			}
			got, _ := params.Get("time_budget_minutes")
			return got == int64(overrideBudget)
		},
		gen.IntRange(1, 1000),
		gen.IntRange(1, 1000),
	))

	properties.Property("array overrides replace preset arrays", prop.ForAll(
		func(presetTags, overrideTags []string) bool {
			items := make([]any, len(presetTags))
			for i, tag := range presetTags {
				items[i] = tag
			}
			preset, _ := NewLayer(LayerPreset, map[string]any{"focus_areas": items, "time_budget_minutes": 1})
			literal, _ := json.Marshal(overrideTags)
			if overrideTags == nil {
				literal = []byte("[]")
			}
			overrides, _ := OverrideLayer([]string{"focus_areas=" + string(literal)})

			params, err := Resolve(s, preset, overrides)
			if err != nil {
				return false
			}
			got, _ := params.Get("focus_areas")
			list := got.([]string)
			if len(list) != len(overrideTags) {
				return false
			}
			for i := range list {
				if list[i] != overrideTags[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}
