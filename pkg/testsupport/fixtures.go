package testsupport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-promptkit/pkg/resolve"
	"github.com/goliatone/go-promptkit/pkg/schema"
)

// LoadSchema reads a schema.json fixture. Testing helpers fail the test on
// error to keep contract tests concise.
func LoadSchema(t *testing.T, path string) *schema.Schema {
	t.Helper()

	s, err := LoadSchemaFromPath(path)
	if err != nil {
		t.Fatalf("load schema: %v", err)
	}
	return s
}

// LoadSchemaFromPath returns a Schema without requiring testing.T, allowing
// callers to wire fixtures in setup functions.
func LoadSchemaFromPath(path string) (*schema.Schema, error) {
	if path == "" {
		return nil, errors.New("testsupport: schema path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("testsupport: read schema: %w", err)
	}
	doc, err := schema.NewDocument(schema.SourceFromFile(path), data)
	if err != nil {
		return nil, fmt.Errorf("testsupport: new document: %w", err)
	}
	return schema.Load(doc)
}

// MustLoadParams reads a YAML (or JSON) parameter fixture into a map.
func MustLoadParams(t *testing.T, path string) map[string]any {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("load params: %v", err)
	}
	out := map[string]any{}
	if err := yaml.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal params: %v", err)
	}
	return out
}

// WriteGolden writes arbitrary data as indented JSON when UPDATE_GOLDENS is set.
func WriteGolden(t *testing.T, path string, value any) {
	t.Helper()

	if os.Getenv("UPDATE_GOLDENS") == "" {
		return
	}
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// MustReadGoldenString reads a golden file and returns its string content.
func MustReadGoldenString(t *testing.T, path string) string {
	t.Helper()
	return string(MustReadGolden(t, path))
}

// WriteMaybeGolden updates a golden file when UPDATE_GOLDENS is set. Returns
// true if the golden was written (test should exit early).
func WriteMaybeGolden(t *testing.T, path string, data []byte) bool {
	t.Helper()
	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// AssertGoldenText compares rendered text with a golden file, rewriting the
// golden instead when UPDATE_GOLDENS is set.
func AssertGoldenText(t *testing.T, path, got string) {
	t.Helper()
	if WriteMaybeGolden(t, path, []byte(got)) {
		return
	}
	want := MustReadGoldenString(t, path)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("golden mismatch for %s (-want +got):\n%s", path, diff)
	}
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}

// FixedClock returns a clock that always reports at.
func FixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

// CatalogFS builds an in-memory template tree from path → content pairs,
// e.g. "audit/template.md".
func CatalogFS(files map[string]string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for name, content := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(content), Mode: 0o644}
	}
	return fsys
}

// MustParams parses rawSchema and resolves it against its defaults plus
// values supplied as a params_file layer.
func MustParams(t *testing.T, rawSchema string, values map[string]any) resolve.Params {
	t.Helper()

	s, err := schema.Parse([]byte(rawSchema))
	if err != nil {
		t.Fatalf("parse schema: %v", err)
	}
	layer, err := resolve.NewLayer(resolve.LayerParamsFile, values)
	if err != nil {
		t.Fatalf("params layer: %v", err)
	}
	params, err := resolve.Resolve(s, resolve.DefaultsLayer(s), layer)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	return params
}
