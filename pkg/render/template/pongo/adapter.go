// Package pongo adapts github.com/flosch/pongo2/v6 to template.Engine.
//
// pongo2 renders unbound names as empty strings. To keep rendering strict the
// adapter resolves the root variables of every body with the builtin parser
// and fails with *template.UndefinedError before pongo2 runs. Names read only
// under a default filter may stay unbound. Bodies that use pongo2-only tags
// the builtin parser does not understand are rejected.
package pongo

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-promptkit/pkg/render/template"
	"github.com/goliatone/go-promptkit/pkg/render/template/builtin"
)

// Name is the registry name of the pongo2 engine.
const Name = "pongo2"

// Option configures the adapter before construction.
type Option func(*config)

type config struct {
	baseDir string
	files   fs.FS
}

// WithBaseDir lets templates {% include %} files from a directory on disk.
func WithBaseDir(dir string) Option {
	return func(cfg *config) {
		cfg.baseDir = strings.TrimSpace(dir)
	}
}

// WithFS lets templates {% include %} files from an fs.FS.
func WithFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.files = files
	}
}

// Engine renders bodies with a private pongo2 template set.
type Engine struct {
	mu  sync.Mutex
	set *pongo2.TemplateSet
}

var _ template.Engine = (*Engine)(nil)

var setup sync.Once

// New constructs an Engine using the provided configuration options.
func New(options ...Option) (*Engine, error) {
	cfg := &config{}
	for _, opt := range options {
		if opt != nil {
			opt(cfg)
		}
	}

	var loaders []pongo2.TemplateLoader
	if cfg.baseDir != "" {
		loader, err := pongo2.NewLocalFileSystemLoader(cfg.baseDir)
		if err != nil {
			return nil, fmt.Errorf("pongo: create local loader: %w", err)
		}
		loaders = append(loaders, loader)
	}
	if cfg.files != nil {
		loaders = append(loaders, pongo2.NewFSLoader(cfg.files))
	}
	if len(loaders) == 0 {
		loader, err := pongo2.NewLocalFileSystemLoader("")
		if err != nil {
			return nil, fmt.Errorf("pongo: create default loader: %w", err)
		}
		loaders = append(loaders, loader)
	}

	setup.Do(func() {
		// prompts are plain text, never HTML
		pongo2.SetAutoescape(false)
		registerDefaultFilters()
	})

	return &Engine{set: pongo2.NewSet("promptkit", loaders...)}, nil
}

func (*Engine) Name() string { return Name }

// Render checks that every root variable read outside a default filter is
// bound, then executes body. As with the builtin engine, a single trailing
// newline is dropped.
func (e *Engine) Render(body string, bindings map[string]any) (string, error) {
	if e == nil || e.set == nil {
		return "", errors.New("pongo: engine is nil")
	}

	parsed, err := builtin.Parse(body)
	if err != nil {
		return "", fmt.Errorf("pongo: strict variable check: %w", err)
	}
	for _, name := range parsed.RequiredVariables() {
		if _, ok := bindings[name]; !ok {
			return "", &template.UndefinedError{Name: name}
		}
	}

	source := strings.TrimSuffix(strings.ReplaceAll(body, "\r\n", "\n"), "\n")

	e.mu.Lock()
	tpl, err := e.set.FromString(source)
	e.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("pongo: parse template: %w", err)
	}

	ctx, err := convertToContext(bindings)
	if err != nil {
		return "", fmt.Errorf("pongo: convert bindings: %w", err)
	}
	out, err := tpl.Execute(ctx)
	if err != nil {
		return "", fmt.Errorf("pongo: execute template: %w", err)
	}
	return out, nil
}

// Variables reports the root names body reads, using the builtin parser.
func (*Engine) Variables(body string) ([]string, error) {
	tpl, err := builtin.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("pongo: strict variable check: %w", err)
	}
	return tpl.Variables(), nil
}

func convertToContext(in map[string]any) (pongo2.Context, error) {
	out := make(pongo2.Context, len(in))
	for key, value := range in {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		converted, err := convertValue(value)
		if err != nil {
			return nil, err
		}
		out[key] = converted
	}
	return out, nil
}

func convertValue(value any) (any, error) {
	switch v := value.(type) {
	case nil, string, bool, int, int64, float64:
		return v, nil
	case []string:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = item
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			converted, err := convertValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = converted
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			converted, err := convertValue(item)
			if err != nil {
				return nil, err
			}
			out[key] = converted
		}
		return out, nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return nil, err
		}
		return convertValue(decoded)
	}
}

func registerDefaultFilters() {
	if !pongo2.FilterExists("trim") {
		_ = pongo2.RegisterFilter("trim", filterTrim)
	}
	if !pongo2.FilterExists("tojson") {
		_ = pongo2.RegisterFilter("tojson", filterToJSON)
	}
}

func filterTrim(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	return pongo2.AsValue(strings.TrimSpace(in.String())), nil
}

func filterToJSON(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	raw, err := json.Marshal(in.Interface())
	if err != nil {
		return nil, &pongo2.Error{Sender: "filter:tojson", OrigError: err}
	}
	return pongo2.AsValue(string(raw)), nil
}
