// Package builtin implements the default substitution engine: a small,
// dependency-free interpreter for a Jinja-compatible subset.
//
// Supported syntax:
//   - interpolation: {{ name }}, {{ a.b }}, {{ items | join(", ") }}
//   - conditionals: {% if %} / {% elif %} / {% else %} / {% endif %}
//   - iteration: {% for x in seq %} ... {% else %} ... {% endfor %}, with
//     loop.index, loop.index0, loop.first, loop.last and loop.length
//   - comments {# ... #} and whitespace control with {{- -}} and {%- -%}
//
// Rendering is strict: reading an unbound variable or a missing key fails
// with *template.UndefinedError. Filter arguments may be written Jinja style,
// join(", "), or Django style, join:", ", so templates stay portable to the
// pongo2 engine.
package builtin

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-promptkit/pkg/render/template"
)

// Name is the registry name of the builtin engine.
const Name = "builtin"

// Template is a parsed template body.
type Template struct {
	nodes []node
}

// Parse compiles body. Line endings are normalized to \n and, as Jinja does
// by default, a single trailing newline is removed.
func Parse(body string) (*Template, error) {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	body = strings.TrimSuffix(body, "\n")

	segs, err := lex(body)
	if err != nil {
		return nil, err
	}
	p := &parser{segs: segs}
	nodes, _, _, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	return &Template{nodes: nodes}, nil
}

// Execute renders the template with bindings as the only visible variables.
func (t *Template) Execute(bindings map[string]any) (string, error) {
	vars := make(map[string]any, len(bindings))
	for k, v := range bindings {
		vars[k] = v
	}
	var b strings.Builder
	if err := execAll(t.nodes, &b, &scope{vars: vars}); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Variables returns the sorted root names the template reads from its
// bindings. Loop variables are excluded inside their loop body.
func (t *Template) Variables() []string {
	seen := map[string]bool{}
	walkAll(t.nodes, map[string]bool{}, func(name string, _ bool) { seen[name] = true })
	return sortedKeys(seen)
}

// RequiredVariables is Variables minus names read only under a default
// filter. Rendering fails with an UndefinedError when one of these is unbound.
func (t *Template) RequiredVariables() []string {
	seen := map[string]bool{}
	walkAll(t.nodes, map[string]bool{}, func(name string, optional bool) {
		if !optional {
			seen[name] = true
		}
	})
	return sortedKeys(seen)
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Engine adapts the interpreter to template.Engine.
type Engine struct{}

var _ template.Engine = (*Engine)(nil)

// New returns the builtin engine.
func New() *Engine { return &Engine{} }

func (*Engine) Name() string { return Name }

func (*Engine) Render(body string, bindings map[string]any) (string, error) {
	tpl, err := Parse(body)
	if err != nil {
		return "", err
	}
	return tpl.Execute(bindings)
}

func (*Engine) Variables(body string) ([]string, error) {
	tpl, err := Parse(body)
	if err != nil {
		return nil, err
	}
	return tpl.Variables(), nil
}

// SyntaxError reports a malformed template body.
type SyntaxError struct {
	Line    int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("builtin: syntax error on line %d: %s", e.Line, e.Message)
}

// ExecError reports a runtime failure other than an undefined reference,
// such as iterating over a number.
type ExecError struct {
	Line int
	Err  error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("builtin: line %d: %v", e.Line, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }
