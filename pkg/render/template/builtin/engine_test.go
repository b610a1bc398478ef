package builtin_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-promptkit/pkg/render/template"
	"github.com/goliatone/go-promptkit/pkg/render/template/builtin"
	"github.com/goliatone/go-promptkit/pkg/testsupport"
)

func TestEngine_RenderGolden(t *testing.T) {
	body, err := os.ReadFile(filepath.Join("testdata", "audit.tpl"))
	if err != nil {
		t.Fatalf("read template: %v", err)
	}

	got, err := builtin.New().Render(string(body), map[string]any{
		"repo_path":           "/src/app",
		"depth":               "deep",
		"time_budget_minutes": int64(60),
		"include_tests":       true,
		"focus_areas":         []string{"security", "error_handling"},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	testsupport.AssertGoldenText(t, filepath.Join("testdata", "audit.golden"), got)
}

func TestEngine_Render(t *testing.T) {
	cases := []struct {
		name     string
		body     string
		bindings map[string]any
		want     string
	}{
		{
			name:     "interpolation",
			body:     "Hello {{ name }}, you have {{ count }} messages.",
			bindings: map[string]any{"name": "Ada", "count": int64(3)},
			want:     "Hello Ada, you have 3 messages.",
		},
		{
			name:     "loop",
			body:     "{% for i in items %}{{ i }} {% endfor %}",
			bindings: map[string]any{"items": []string{"a", "b", "c"}},
			want:     "a b c ",
		},
		{
			name:     "else branch",
			body:     "{% if show %}visible{% else %}hidden{% endif %}",
			bindings: map[string]any{"show": false},
			want:     "hidden",
		},
		{
			name:     "filters",
			body:     `{{ name | upper }}|{{ tags | join:", " }}|{{ tags | length }}|{{ missing | default("n/a") }}|{{ flag }}`,
			bindings: map[string]any{"name": "ada", "tags": []string{"a", "b"}, "flag": true},
			want:     "ADA|a, b|2|n/a|True",
		},
		{
			name:     "elif and membership",
			body:     `{% if depth == "fast" %}F{% elif depth in ["normal", "deep"] %}N{% else %}X{% endif %}`,
			bindings: map[string]any{"depth": "deep"},
			want:     "N",
		},
		{
			name:     "comparison and boolean logic",
			body:     `{% if budget >= 30 and not quick %}long{% endif %}{% if budget < 10 || quick %}short{% endif %}`,
			bindings: map[string]any{"budget": int64(45), "quick": false},
			want:     "long",
		},
		{
			name:     "not in",
			body:     `{% if "docs" not in areas %}no docs{% endif %}`,
			bindings: map[string]any{"areas": []string{"security"}},
			want:     "no docs",
		},
		{
			name:     "empty loop else",
			body:     "{% for x in items %}{{ loop.index0 }}{{ x }}{% else %}empty{% endfor %}",
			bindings: map[string]any{"items": []string{}},
			want:     "empty",
		},
		{
			name:     "loop metadata",
			body:     "{% for x in items %}{{ loop.index }}/{{ loop.length }}{% if loop.first %}^{% endif %}{% if loop.last %}${% endif %} {% endfor %}",
			bindings: map[string]any{"items": []any{"a", "b"}},
			want:     "1/2^ 2/2$ ",
		},
		{
			name:     "nested path",
			body:     "{{ cfg.model.name }}",
			bindings: map[string]any{"cfg": map[string]any{"model": map[string]any{"name": "m1"}}},
			want:     "m1",
		},
		{
			name:     "whitespace control",
			body:     "a  {{- x -}}  b\n{%- if true %} c{% endif %}",
			bindings: map[string]any{"x": "X"},
			want:     "aXb c",
		},
		{
			name:     "trailing newline dropped",
			body:     "Hi {{ n }}\n",
			bindings: map[string]any{"n": "X"},
			want:     "Hi X",
		},
		{
			name: "comment",
			body: "a{# ignored {{ nope }} #}b",
			want: "ab",
		},
		{
			name:     "tojson and list repr",
			body:     "{{ tags | tojson }} {{ tags }}",
			bindings: map[string]any{"tags": []string{"x", "y"}},
			want:     `["x","y"] ['x', 'y']`,
		},
	}

	engine := builtin.New()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := engine.Render(tc.body, tc.bindings)
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			if got != tc.want {
				t.Fatalf("render mismatch\nwant: %q\n got: %q", tc.want, got)
			}
		})
	}
}

func TestEngine_StrictUndefined(t *testing.T) {
	engine := builtin.New()

	cases := []struct {
		name     string
		body     string
		bindings map[string]any
		want     string
		line     int
	}{
		{"root", "Hello {{ name }} and {{ undefined_var }}!", map[string]any{"name": "x"}, "undefined_var", 1},
		{"missing key", "\n{{ cfg.missing }}", map[string]any{"cfg": map[string]any{}}, "cfg.missing", 2},
		{"condition", "{% if ghost %}x{% endif %}", nil, "ghost", 1},
		{"loop scope ends", "{% for x in items %}{% endfor %}{{ x }}", map[string]any{"items": []string{"a"}}, "x", 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.Render(tc.body, tc.bindings)
			var undefined *template.UndefinedError
			if !errors.As(err, &undefined) {
				t.Fatalf("expected *template.UndefinedError, got %v", err)
			}
			if undefined.Name != tc.want || undefined.Line != tc.line {
				t.Fatalf("got %+v, want name %q line %d", undefined, tc.want, tc.line)
			}
		})
	}
}

func TestEngine_SyntaxErrors(t *testing.T) {
	cases := map[string]struct {
		body string
		line int
	}{
		"unclosed if":     {"{% if x %}open", 1},
		"stray endfor":    {"{% endfor %}", 1},
		"unknown filter":  {"{{ a | nosuch }}", 1},
		"empty output":    {"{{ }}", 1},
		"unknown tag":     {"{% while x %}", 1},
		"unclosed output": {"{{ x", 1},
		"bad for header":  {"{% for in items %}{% endfor %}", 1},
		"later line":      {"line one\n{% if %}{% endif %}", 2},
		"filter arity":    {"{{ a | replace('x') }}", 1},
		"else arguments":  {"{% if a %}{% else b %}{% endif %}", 1},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := builtin.Parse(tc.body)
			var syntax *builtin.SyntaxError
			if !errors.As(err, &syntax) {
				t.Fatalf("expected *builtin.SyntaxError, got %v", err)
			}
			if syntax.Line != tc.line {
				t.Fatalf("line = %d, want %d (%v)", syntax.Line, tc.line, err)
			}
		})
	}
}

func TestEngine_ExecError(t *testing.T) {
	_, err := builtin.New().Render("{% for x in n %}{% endfor %}", map[string]any{"n": int64(3)})
	var execErr *builtin.ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected *builtin.ExecError, got %v", err)
	}
}

func TestEngine_Variables(t *testing.T) {
	body := `{{ a }}{% for x in items %}{{ x }}{{ loop.index }}{{ b.c }}{% endfor %}{% if d %}{% endif %}{{ e | default(f) }}`

	got, err := builtin.New().Variables(body)
	if err != nil {
		t.Fatalf("variables: %v", err)
	}
	want := []string{"a", "b", "d", "e", "f", "items"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("variables mismatch (-want +got):\n%s", diff)
	}
}

func TestTemplate_RequiredVariables(t *testing.T) {
	tpl, err := builtin.Parse(`{{ a }}{{ b.c | default("x") }}{{ d | upper | default(e) }}{% if b %}{% endif %}{{ g | default("") | upper }}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []string{"a", "b", "e"}
	if diff := cmp.Diff(want, tpl.RequiredVariables()); diff != "" {
		t.Fatalf("required mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a", "b", "d", "e", "g"}, tpl.Variables()); diff != "" {
		t.Fatalf("variables mismatch (-want +got):\n%s", diff)
	}

	got, err := tpl.Execute(map[string]any{"a": "A", "b": map[string]any{}, "e": "E"})
	if err != nil {
		t.Fatalf("execute without optional names: %v", err)
	}
	if got != "AxE" {
		t.Fatalf("got %q", got)
	}
}
