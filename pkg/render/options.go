package render

import (
	"github.com/goliatone/go-promptkit/pkg/logger"
	"github.com/goliatone/go-promptkit/pkg/render/template"
)

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithEngine swaps the substitution engine. A nil engine is ignored.
func WithEngine(engine template.Engine) Option {
	return func(p *Pipeline) {
		if engine != nil {
			p.engine = engine
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}
