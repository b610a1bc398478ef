package schema

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const auditSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "Audit",
  "description": "Repository audit prompt",
  "type": "object",
  "version": "1.2.0",
  "required": ["repo_path"],
  "properties": {
    "repo_path": {"type": "string", "description": "Path to the repository"},
    "depth": {"type": "string", "enum": ["fast", "normal", "deep"], "default": "normal"},
    "time_budget_minutes": {"type": "integer", "minimum": 1, "default": 30},
    "include_tests": {"type": "boolean", "default": true},
    "focus_areas": {"type": "array", "items": {"type": "string", "pattern": "^[a-z_]+$"}, "default": ["security"]},
    "x-ui": {"type": "string"}
  }
}`

func TestParseBuildsTypedParameters(t *testing.T) {
	s, err := Parse([]byte(auditSchema))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	if s.Title != "Audit" || s.Description != "Repository audit prompt" || s.Version != "1.2.0" {
		t.Fatalf("unexpected header: %+v", s)
	}

	wantNames := []string{"depth", "focus_areas", "include_tests", "repo_path", "time_budget_minutes", "x-ui"}
	if diff := cmp.Diff(wantNames, s.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}

	wantTypes := map[string]Type{
		"depth":               TypeEnum,
		"focus_areas":         TypeArray,
		"include_tests":       TypeBoolean,
		"repo_path":           TypeString,
		"time_budget_minutes": TypeInteger,
		"x-ui":                TypeString,
	}
	for name, want := range wantTypes {
		spec, ok := s.Parameter(name)
		if !ok {
			t.Fatalf("parameter %q missing", name)
		}
		if spec.Type != want {
			t.Fatalf("parameter %q type = %s, want %s", name, spec.Type, want)
		}
	}

	if diff := cmp.Diff([]string{"repo_path"}, s.Required()); diff != "" {
		t.Fatalf("required mismatch (-want +got):\n%s", diff)
	}

	wantDefaults := map[string]any{
		"depth":               "normal",
		"time_budget_minutes": int64(30),
		"include_tests":       true,
		"focus_areas":         []string{"security"},
	}
	if diff := cmp.Diff(wantDefaults, s.Defaults()); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRejectsInconsistentSchemas(t *testing.T) {
	cases := map[string]struct {
		raw  string
		want string
	}{
		"required with default": {
			raw:  `{"required":["a"],"properties":{"a":{"type":"string","default":"x"}}}`,
			want: "required and also declares a default",
		},
		"default outside enum": {
			raw:  `{"properties":{"a":{"type":"string","enum":["x","y"],"default":"z"}}}`,
			want: "default violates its own constraints",
		},
		"default below minimum": {
			raw:  `{"properties":{"a":{"type":"integer","minimum":5,"default":1}}}`,
			want: "default violates its own constraints",
		},
		"empty enum": {
			raw:  `{"properties":{"a":{"type":"string","enum":[]}}}`,
			want: "enum must be a non-empty array",
		},
		"non string enum": {
			raw:  `{"properties":{"a":{"enum":["x",1]}}}`,
			want: "enum values must be strings",
		},
		"duplicate enum": {
			raw:  `{"properties":{"a":{"enum":["x","x"]}}}`,
			want: "duplicate enum value",
		},
		"bad item pattern": {
			raw:  `{"properties":{"a":{"type":"array","items":{"type":"string","pattern":"("}}}}`,
			want: "invalid pattern",
		},
		"non string items": {
			raw:  `{"properties":{"a":{"type":"array","items":{"type":"integer"}}}}`,
			want: "array items must be strings",
		},
		"undeclared required": {
			raw:  `{"required":["ghost"],"properties":{}}`,
			want: "not declared in properties",
		},
		"unsupported type": {
			raw:  `{"properties":{"a":{"type":"number"}}}`,
			want: "unsupported type",
		},
		"unsupported keyword": {
			raw:  `{"properties":{"a":{"type":"string","oneOf":[]}}}`,
			want: "unsupported keyword \"oneOf\"",
		},
		"bad version": {
			raw:  `{"version":"not-a-version","properties":{}}`,
			want: "not a semantic version",
		},
		"invalid json": {
			raw:  `{"properties":`,
			want: "invalid JSON",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(tc.raw))
			if err == nil {
				t.Fatalf("expected error")
			}
			var schemaErr *SchemaError
			if !errors.As(err, &schemaErr) {
				t.Fatalf("expected *SchemaError, got %T: %v", err, err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err.Error(), tc.want)
			}
		})
	}
}

func TestSchemaErrorCarriesPointer(t *testing.T) {
	_, err := Parse([]byte(`{"properties":{"a/b":{"type":"integer","default":"x"}}}`))
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected *SchemaError, got %v", err)
	}
	if schemaErr.Path != "#/properties/a~1b/default" {
		t.Fatalf("path = %q", schemaErr.Path)
	}
	if schemaErr.Source != "schema.json" {
		t.Fatalf("source = %q", schemaErr.Source)
	}
}

func TestLoadEmptyDocument(t *testing.T) {
	if _, err := NewDocument(SourceFromFile("/tmp/schema.json"), []byte("   ")); err == nil {
		t.Fatalf("expected error for blank document")
	}
}
