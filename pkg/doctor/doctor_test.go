package doctor_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-promptkit/pkg/catalog"
	"github.com/goliatone/go-promptkit/pkg/doctor"
	"github.com/goliatone/go-promptkit/pkg/logger"
	"github.com/goliatone/go-promptkit/pkg/testsupport"
)

const validSchema = `{
  "type": "object",
  "properties": {
    "depth": {"type": "string", "enum": ["fast", "deep"], "default": "fast"},
    "minutes": {"type": "integer", "minimum": 1, "default": 10}
  }
}`

func loadCatalog(t *testing.T, files map[string]string) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Load(context.Background(), testsupport.CatalogFS(files))
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return cat
}

func TestCheck_BundledTemplatesPass(t *testing.T) {
	cat, err := catalog.Load(context.Background(), os.DirFS("../../templates"))
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}

	report, err := doctor.New().Check(context.Background(), cat)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !report.OK() {
		t.Fatalf("expected no findings, got %+v", report.Findings)
	}
	if diff := cmp.Diff([]string{"audit", "readme", "security"}, report.Checked); diff != "" {
		t.Fatalf("checked mismatch (-want +got):\n%s", diff)
	}
}

func TestCheck_CollectsEveryProblem(t *testing.T) {
	cat := loadCatalog(t, map[string]string{
		"broken/template.md":           "{{ depth }}",
		"broken/schema.json":           `{"properties": {"depth": {"type": "string", "enum": ["a"], "default": "b"}}}`,
		"drift/template.md":            "Depth {{ depth }} for {{ minutes }}m {{ ghost }}",
		"drift/schema.json":            validSchema,
		"drift/examples/default.yaml":  "depth: deep\n",
		"drift/examples/bad.yaml":      "minutes: 0\n",
		"drift/examples/extra.yaml":    "colour: red\n",
		"drift/tests/render_golden.md": "Depth deep for 10m\n",
	})

	report, err := doctor.New().Check(context.Background(), cat)
	if err != nil {
		t.Fatalf("check: %v", err)
	}

	type row struct {
		Template string
		Kind     doctor.Kind
		Check    string
	}
	var got []row
	for _, f := range report.Findings {
		got = append(got, row{f.Template, f.Kind, f.Check})
	}
	want := []row{
		{"broken", doctor.KindSchemaError, doctor.CheckSchema},
		{"drift", doctor.KindSchemaError, doctor.CheckVariableCoverage},
		{"drift", doctor.KindValidationError, "preset:bad"},
		{"drift", doctor.KindValidationError, "preset:extra"},
		{"drift", doctor.KindValidationError, "render:default"},
		{"drift", doctor.KindDriftDetected, doctor.CheckGolden},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("findings mismatch (-want +got):\n%s", diff)
	}

	byTemplate := report.ByTemplate()
	if !strings.Contains(byTemplate["drift"][0].Detail, "ghost") {
		t.Fatalf("coverage detail should name ghost: %q", byTemplate["drift"][0].Detail)
	}
	if report.OK() {
		t.Fatalf("report should not be OK")
	}
	if diff := cmp.Diff([]string{"broken", "drift"}, report.Failing()); diff != "" {
		t.Fatalf("failing mismatch (-want +got):\n%s", diff)
	}
}

func TestCheck_GoldenDrift(t *testing.T) {
	cat := loadCatalog(t, map[string]string{
		"t/template.md":            "Line one\nDepth {{ depth }}\n",
		"t/schema.json":            validSchema,
		"t/tests/render_golden.md": "Line one  \r\nDepth deep\n\n\n",
	})

	report, err := doctor.New().Check(context.Background(), cat, "t")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(report.Findings) != 1 {
		t.Fatalf("expected one finding, got %+v", report.Findings)
	}
	f := report.Findings[0]
	if f.Kind != doctor.KindDriftDetected {
		t.Fatalf("kind = %s", f.Kind)
	}
	want := `first difference at line 2: expected "Depth deep", got "Depth fast"`
	if f.Detail != want {
		t.Fatalf("detail = %q, want %q", f.Detail, want)
	}
	if f.Diff == "" {
		t.Fatalf("expected a diff")
	}
}

func TestCheck_UnusedParametersAreLoggedNotReported(t *testing.T) {
	cat := loadCatalog(t, map[string]string{
		"t/template.md": "Depth {{ depth }}\n",
		"t/schema.json": validSchema,
	})

	var logs bytes.Buffer
	log := logger.NewLogger(&logger.Config{Level: logger.InfoLevel, Output: &logs, JSON: true})

	report, err := doctor.New(doctor.WithLogger(log)).Check(context.Background(), cat, "t")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !report.OK() {
		t.Fatalf("unused parameters should not be findings, got %+v", report.Findings)
	}
	out := logs.String()
	if !strings.Contains(out, "never reads") || !strings.Contains(out, "minutes") {
		t.Fatalf("expected unused parameter log naming minutes, got %q", out)
	}
	if strings.Contains(out, `"depth"`) {
		t.Fatalf("depth is read by the template and should not be logged: %q", out)
	}
}

func TestCheck_MetaValidation(t *testing.T) {
	files := map[string]string{
		"m/template.md": "{{ depth }}",
		"m/schema.json": `{"properties": {"depth": {"type": "string", "default": "x", "minLength": "two"}}}`,
	}

	report, err := doctor.New().Check(context.Background(), loadCatalog(t, files))
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	var checks []string
	for _, f := range report.Findings {
		checks = append(checks, f.Check)
	}
	// minLength is outside the parameter model, and its value is not a
	// number, so both checks fire.
	if diff := cmp.Diff([]string{doctor.CheckSchema, doctor.CheckMetaSchema}, checks); diff != "" {
		t.Fatalf("checks mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(report.Findings[1].Detail, "depth.minLength") {
		t.Fatalf("meta detail should point at depth.minLength: %q", report.Findings[1].Detail)
	}

	report, err = doctor.New(doctor.WithMetaValidation(false)).Check(context.Background(), loadCatalog(t, files))
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(report.Findings) != 1 {
		t.Fatalf("expected meta validation to be skipped, got %+v", report.Findings)
	}
}

func TestCheck_UnknownTemplate(t *testing.T) {
	cat := loadCatalog(t, map[string]string{"a/template.md": "x", "a/schema.json": `{}`})

	_, err := doctor.New().Check(context.Background(), cat, "nonexistent_xyz")
	var notFound *catalog.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected *catalog.NotFoundError, got %v", err)
	}
}

func TestCheck_Cancelled(t *testing.T) {
	cat := loadCatalog(t, map[string]string{"a/template.md": "x", "a/schema.json": `{}`})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := doctor.New(doctor.WithConcurrency(1)).Check(ctx, cat)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"a\r\nb":       "a\nb",
		"a  \nb\t":     "a\nb",
		"a\n\nb\n\n\n": "a\n\nb",
		"\n\n":         "",
		"old\rmac":     "old\nmac",
	}
	for in, want := range cases {
		if got := doctor.Normalize(in); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}
