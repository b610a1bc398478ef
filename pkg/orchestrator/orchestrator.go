package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/goliatone/go-promptkit/pkg/catalog"
	"github.com/goliatone/go-promptkit/pkg/logger"
	"github.com/goliatone/go-promptkit/pkg/packet"
	"github.com/goliatone/go-promptkit/pkg/render"
	"github.com/goliatone/go-promptkit/pkg/render/template"
	"github.com/goliatone/go-promptkit/pkg/render/template/builtin"
	"github.com/goliatone/go-promptkit/pkg/render/template/pongo"
	"github.com/goliatone/go-promptkit/pkg/resolve"
	"github.com/goliatone/go-promptkit/pkg/schema"
)

// Orchestrator renders catalog templates end to end. It applies defaults
// (builtin engine, "runs" packet root) while staying open to injection.
type Orchestrator struct {
	catalog       *catalog.Catalog
	pipeline      *render.Pipeline
	engines       *template.Registry
	defaultEngine string
	packets       *packet.Builder
	logger        logger.Logger
	initialiseErr error

	mu        sync.Mutex
	pipelines map[string]*render.Pipeline
}

// New constructs an Orchestrator applying any provided options.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{
		defaultEngine: builtin.Name,
		logger:        logger.Nop(),
		pipelines:     map[string]*render.Pipeline{},
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(o)
	}
	o.applyDefaults()
	return o
}

func (o *Orchestrator) applyDefaults() {
	if o.engines == nil {
		engine, err := pongo.New()
		if err != nil {
			o.initialiseErr = fmt.Errorf("orchestrator: init pongo2 engine: %w", err)
			return
		}
		registry, err := template.NewRegistry(builtin.New(), engine)
		if err != nil {
			o.initialiseErr = err
			return
		}
		o.engines = registry
	}
	if o.packets == nil {
		o.packets = packet.NewBuilder(packet.WithLogger(o.logger))
	}
}

// Prompter supplies values for required parameters that no layer provides.
// Answers are treated as command-line text and coerced.
type Prompter interface {
	Prompt(ctx context.Context, spec schema.ParameterSpec) (string, error)
}

// Request describes one render.
type Request struct {
	Template string
	// Preset names a file under the template's examples directory.
	Preset string
	// ParamsFile holds values already decoded from a params file.
	ParamsFile map[string]any
	// Overrides are key=value tokens.
	Overrides []string
	// Format, when set, is applied as an output_format override, or used
	// directly when the template declares no such parameter.
	Format string
	// Engine selects a registered engine; empty uses the default.
	Engine string
	// Emit writes a run packet after rendering.
	Emit bool
	// RunDir overrides the packet root for this request.
	RunDir string
	// Prompter, when set, is asked for missing required parameters.
	Prompter Prompter
}

// Result is the outcome of a render. A packet failure does not discard the
// rendered output; it is reported in PacketErr.
type Result struct {
	Template  string
	Version   string
	Params    resolve.Params
	Output    render.Output
	Packet    *packet.Packet
	PacketErr error
}

// Catalog returns the configured catalog.
func (o *Orchestrator) Catalog() *catalog.Catalog { return o.catalog }

// Engines lists the registered engine names.
func (o *Orchestrator) Engines() []string {
	if o.engines == nil {
		return nil
	}
	return o.engines.List()
}

// Pipeline returns the pipeline for an engine name; empty selects the
// default.
func (o *Orchestrator) Pipeline(engine string) (*render.Pipeline, error) {
	if err := o.initialiseErr; err != nil {
		return nil, err
	}
	if engine == "" && o.pipeline != nil {
		return o.pipeline, nil
	}
	if engine == "" {
		engine = o.defaultEngine
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if p, ok := o.pipelines[engine]; ok {
		return p, nil
	}
	e, err := o.engines.Get(engine)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}
	p := render.New(render.WithEngine(e), render.WithLogger(o.logger))
	o.pipelines[engine] = p
	return p, nil
}

// Render resolves the request's layers, renders the template and, when
// requested, writes a run packet.
func (o *Orchestrator) Render(ctx context.Context, req Request) (Result, error) {
	if ctx == nil {
		return Result{}, errors.New("orchestrator: context is required")
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if err := o.initialiseErr; err != nil {
		return Result{}, err
	}
	if o.catalog == nil {
		return Result{}, errors.New("orchestrator: catalog is required")
	}
	if req.Template == "" {
		return Result{}, errors.New("orchestrator: template name is required")
	}

	tpl, err := o.catalog.Get(req.Template)
	if err != nil {
		return Result{}, err
	}
	if tpl.Schema == nil {
		return Result{}, fmt.Errorf("orchestrator: template %q: %w", tpl.Name, tpl.SchemaErr)
	}

	pipeline, err := o.Pipeline(req.Engine)
	if err != nil {
		return Result{}, err
	}

	params, err := o.resolve(ctx, tpl, req)
	if err != nil {
		return Result{}, err
	}

	// a format on a template without output_format goes straight to the
	// pipeline; otherwise it was applied as an override
	format := ""
	if !tpl.Schema.Has(render.FormatParam) {
		format = req.Format
	}
	out, err := pipeline.Render(tpl.Name, tpl.Body, params, format)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		Template: tpl.Name,
		Version:  tpl.Version(),
		Params:   params,
		Output:   out,
	}
	if !req.Emit {
		return result, nil
	}

	builder := o.packets
	if req.RunDir != "" {
		builder = packet.NewBuilder(packet.WithRoot(req.RunDir), packet.WithLogger(o.logger))
	}
	p, err := builder.Build(tpl.Name, result.Version, params, out)
	if err != nil {
		o.logger.Error("run packet not written", "template", tpl.Name, "error", err)
		result.PacketErr = err
		return result, nil
	}
	result.Packet = &p
	return result, nil
}

func (o *Orchestrator) resolve(ctx context.Context, tpl *catalog.Template, req Request) (resolve.Params, error) {
	layers := []resolve.Layer{resolve.DefaultsLayer(tpl.Schema)}

	if req.Preset != "" {
		values, err := tpl.Preset(req.Preset)
		if err != nil {
			return resolve.Params{}, err
		}
		layer, err := resolve.NewLayer(resolve.LayerPreset, values)
		if err != nil {
			return resolve.Params{}, fmt.Errorf("orchestrator: preset %q: %w", req.Preset, err)
		}
		layers = append(layers, layer)
	}

	if req.ParamsFile != nil {
		layer, err := resolve.NewLayer(resolve.LayerParamsFile, req.ParamsFile)
		if err != nil {
			return resolve.Params{}, fmt.Errorf("orchestrator: params file: %w", err)
		}
		layers = append(layers, layer)
	}

	tokens := append([]string(nil), req.Overrides...)
	if req.Format != "" && tpl.Schema.Has(render.FormatParam) {
		tokens = append(tokens, render.FormatParam+"="+req.Format)
	}
	overrides, err := resolve.OverrideLayer(tokens)
	if err != nil {
		return resolve.Params{}, err
	}

	if req.Prompter != nil {
		for _, spec := range Missing(tpl.Schema, append(layers, overrides)...) {
			answer, err := req.Prompter.Prompt(ctx, spec)
			if err != nil {
				return resolve.Params{}, fmt.Errorf("orchestrator: prompt %q: %w", spec.Name, err)
			}
			tokens = append(tokens, spec.Name+"="+answer)
		}
		if overrides, err = resolve.OverrideLayer(tokens); err != nil {
			return resolve.Params{}, err
		}
	}
	layers = append(layers, overrides)

	params, err := resolve.Resolve(tpl.Schema, layers...)
	if err != nil {
		return resolve.Params{}, err
	}
	o.logger.Debug("resolved parameters", "template", tpl.Name, "count", params.Len())
	return params, nil
}

// Missing returns the required parameters of s that no layer supplies, in
// name order. A null value does not count as supplied.
func Missing(s *schema.Schema, layers ...resolve.Layer) []schema.ParameterSpec {
	var out []schema.ParameterSpec
	for _, name := range s.Required() {
		supplied := false
		for _, layer := range layers {
			if v, ok := layer.Values[name]; ok && !v.IsNull() {
				supplied = true
			}
		}
		if !supplied {
			spec, _ := s.Parameter(name)
			out = append(out, spec)
		}
	}
	return out
}
