package promptkit

import (
	"context"
	"io/fs"
	"strings"
	"testing"

	"github.com/goliatone/go-promptkit/pkg/orchestrator"
)

func TestEmbeddedTemplatesContainsCatalog(t *testing.T) {
	for _, name := range []string{"audit/template.md", "audit/schema.json", "security/examples/internal.yml"} {
		if _, err := fs.Stat(EmbeddedTemplates(), name); err != nil {
			t.Fatalf("expected %s to be embedded: %v", name, err)
		}
	}
}

func TestLoadEmbeddedCatalogMatchesDirectory(t *testing.T) {
	embedded, err := LoadEmbeddedCatalog(context.Background())
	if err != nil {
		t.Fatalf("load embedded: %v", err)
	}
	onDisk, err := LoadCatalog(context.Background(), "templates")
	if err != nil {
		t.Fatalf("load dir: %v", err)
	}
	if strings.Join(embedded.Names(), ",") != strings.Join(onDisk.Names(), ",") {
		t.Fatalf("embedded %v, on disk %v", embedded.Names(), onDisk.Names())
	}
}

func TestRenderUsesEmbeddedCatalog(t *testing.T) {
	result, err := Render(context.Background(), Request{
		Template:  "security",
		Overrides: []string{"target=gateway"},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.HasPrefix(result.Output.Text, "# Security Review: gateway") {
		t.Fatalf("unexpected output:\n%s", result.Output.Text)
	}
}

func TestRenderHonoursCatalogOption(t *testing.T) {
	onDisk, err := LoadCatalog(context.Background(), "templates")
	if err != nil {
		t.Fatalf("load dir: %v", err)
	}
	if _, err := Render(context.Background(), Request{Template: "readme"}, orchestrator.WithCatalog(onDisk)); err != nil {
		t.Fatalf("render: %v", err)
	}
}
