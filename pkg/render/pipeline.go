// Package render turns a template body and resolved parameters into the final
// prompt text.
//
// Rendering happens in two steps. The output contract for the requested
// format is selected first (see SelectContract), then the remaining body is
// handed to the substitution engine with the resolved parameters as its only
// bindings.
package render

import (
	"sort"

	"github.com/goliatone/go-promptkit/pkg/logger"
	"github.com/goliatone/go-promptkit/pkg/render/template"
	"github.com/goliatone/go-promptkit/pkg/render/template/builtin"
	"github.com/goliatone/go-promptkit/pkg/resolve"
)

const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"

	// FormatParam is the parameter that selects the output format when the
	// caller does not pass one explicitly.
	FormatParam = "output_format"
)

// Formats returns the supported output formats.
func Formats() []string {
	return []string{FormatJSON, FormatMarkdown}
}

// Output is a rendered prompt.
type Output struct {
	Text   string
	Format string
}

// Pipeline renders template bodies with a single engine.
type Pipeline struct {
	engine template.Engine
	logger logger.Logger
}

// New builds a Pipeline that defaults to the builtin engine.
func New(options ...Option) *Pipeline {
	p := &Pipeline{
		engine: builtin.New(),
		logger: logger.Nop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Engine returns the engine used for substitution.
func (p *Pipeline) Engine() template.Engine { return p.engine }

// Render selects the contract for format and substitutes params into body.
// An empty format falls back to FormatFromParams. name only labels errors.
func (p *Pipeline) Render(name, body string, params resolve.Params, format string) (Output, error) {
	if format == "" {
		format = FormatFromParams(params)
	}
	if !supported(format) {
		return Output{}, &RenderError{Template: name, Format: format, Err: &UnsupportedFormatError{Format: format}}
	}

	selected, err := SelectContract(body, format)
	if err != nil {
		return Output{}, &RenderError{Template: name, Format: format, Err: err}
	}

	text, err := p.engine.Render(selected, params.Map())
	if err != nil {
		p.logger.Debug("render failed", "template", name, "engine", p.engine.Name(), "error", err)
		return Output{}, &RenderError{Template: name, Format: format, Err: err}
	}

	p.logger.Debug("rendered template", "template", name, "engine", p.engine.Name(), "format", format, "bytes", len(text))
	return Output{Text: text, Format: format}, nil
}

// Variables reports every root variable body reads under any output format:
// the shared text plus each contract block.
func (p *Pipeline) Variables(body string) ([]string, error) {
	seen := map[string]bool{}
	for _, format := range append([]string{""}, ContractFormats(body)...) {
		selected, err := SelectContract(body, format)
		if err != nil {
			return nil, err
		}
		vars, err := p.engine.Variables(selected)
		if err != nil {
			return nil, err
		}
		for _, v := range vars {
			seen[v] = true
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out, nil
}

// FormatFromParams returns the output_format parameter when it is a
// non-empty string, and FormatMarkdown otherwise.
func FormatFromParams(params resolve.Params) string {
	if v, ok := params.Get(FormatParam); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return FormatMarkdown
}

func supported(format string) bool {
	for _, f := range Formats() {
		if f == format {
			return true
		}
	}
	return false
}
