package render_test

import (
	"strings"
	"testing"

	"github.com/goliatone/go-promptkit/pkg/render"
	"github.com/goliatone/go-promptkit/pkg/render/template/pongo"
	"github.com/goliatone/go-promptkit/pkg/resolve"
	"github.com/goliatone/go-promptkit/pkg/schema"
)

const reviewSchema = `{
  "type": "object",
  "required": ["time_budget_minutes"],
  "properties": {
    "depth": {"type": "string", "enum": ["fast", "normal", "deep"], "default": "normal"},
    "time_budget_minutes": {"type": "integer"}
  }
}`

func TestPipeline_ResolveAndRenderLayers(t *testing.T) {
	s, err := schema.Parse([]byte(reviewSchema))
	if err != nil {
		t.Fatalf("parse schema: %v", err)
	}

	layer := func(name resolve.LayerName, values map[string]any) resolve.Layer {
		t.Helper()
		l, err := resolve.NewLayer(name, values)
		if err != nil {
			t.Fatalf("layer %s: %v", name, err)
		}
		return l
	}
	overrides, err := resolve.OverrideLayer([]string{"depth=deep"})
	if err != nil {
		t.Fatalf("overrides: %v", err)
	}

	params, err := resolve.Resolve(s,
		layer(resolve.LayerDefaults, map[string]any{"depth": "normal"}),
		layer(resolve.LayerPreset, map[string]any{"time_budget_minutes": 60}),
		layer(resolve.LayerParamsFile, map[string]any{}),
		overrides,
	)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	body := "Review at {{ depth }} depth within {{ time_budget_minutes }} minutes.\n"
	want := "Review at deep depth within 60 minutes."

	engine, err := pongo.New()
	if err != nil {
		t.Fatalf("pongo engine: %v", err)
	}
	pipelines := map[string]*render.Pipeline{
		"builtin": render.New(),
		"pongo2":  render.New(render.WithEngine(engine)),
	}
	for name, p := range pipelines {
		t.Run(name, func(t *testing.T) {
			out, err := p.Render("review", body, params, "")
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			if !strings.Contains(out.Text, "deep") || !strings.Contains(out.Text, "60") {
				t.Fatalf("resolved values missing from %q", out.Text)
			}
			if out.Text != want {
				t.Fatalf("render mismatch\nwant: %q\n got: %q", want, out.Text)
			}
			if out.Format != render.FormatMarkdown {
				t.Fatalf("format = %q", out.Format)
			}
		})
	}
}
