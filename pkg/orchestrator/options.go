package orchestrator

import (
	"github.com/goliatone/go-promptkit/pkg/catalog"
	"github.com/goliatone/go-promptkit/pkg/logger"
	"github.com/goliatone/go-promptkit/pkg/packet"
	"github.com/goliatone/go-promptkit/pkg/render"
	"github.com/goliatone/go-promptkit/pkg/render/template"
)

// Option customises the orchestrator configuration.
type Option func(*Orchestrator)

// WithCatalog sets the template catalog. Required.
func WithCatalog(cat *catalog.Catalog) Option {
	return func(o *Orchestrator) {
		o.catalog = cat
	}
}

// WithPipeline fixes the pipeline used when a request names no engine.
func WithPipeline(p *render.Pipeline) Option {
	return func(o *Orchestrator) {
		o.pipeline = p
	}
}

// WithEngineRegistry injects the engines requests may select by name.
func WithEngineRegistry(registry *template.Registry) Option {
	return func(o *Orchestrator) {
		o.engines = registry
	}
}

// WithDefaultEngine overrides the engine used when a request omits one.
func WithDefaultEngine(name string) Option {
	return func(o *Orchestrator) {
		o.defaultEngine = name
	}
}

// WithPacketBuilder sets the builder used for requests with Emit set.
func WithPacketBuilder(b *packet.Builder) Option {
	return func(o *Orchestrator) {
		o.packets = b
	}
}

func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}
