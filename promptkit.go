// Package promptkit renders parameterized prompt templates from a catalog
// and records reproducible run packets.
package promptkit

import (
	"context"

	"github.com/goliatone/go-promptkit/pkg/catalog"
	"github.com/goliatone/go-promptkit/pkg/orchestrator"
	"github.com/goliatone/go-promptkit/pkg/render"
)

// Request aliases orchestrator.Request for callers of the root package.
type Request = orchestrator.Request

// Result aliases orchestrator.Result.
type Result = orchestrator.Result

// Output is the rendered text plus its format.
type Output = render.Output

// NewOrchestrator exposes the orchestrator constructor from the top-level
// module.
func NewOrchestrator(options ...orchestrator.Option) *orchestrator.Orchestrator {
	return orchestrator.New(options...)
}

// Render loads the catalog from the bundled templates unless an option
// supplies one, then renders a single request.
func Render(ctx context.Context, req Request, options ...orchestrator.Option) (Result, error) {
	cat, err := LoadEmbeddedCatalog(ctx)
	if err != nil {
		return Result{}, err
	}
	opts := append([]orchestrator.Option{orchestrator.WithCatalog(cat)}, options...)
	return orchestrator.New(opts...).Render(ctx, req)
}

// LoadCatalog scans a directory of templates.
func LoadCatalog(ctx context.Context, dir string, options ...catalog.Option) (*catalog.Catalog, error) {
	return catalog.LoadDir(ctx, dir, options...)
}

// LoadEmbeddedCatalog loads the templates compiled into the binary.
func LoadEmbeddedCatalog(ctx context.Context, options ...catalog.Option) (*catalog.Catalog, error) {
	return catalog.Load(ctx, EmbeddedTemplates(), options...)
}
