package doctor

import "sort"

// Kind classifies a finding.
type Kind string

const (
	KindSchemaError     Kind = "SchemaError"
	KindValidationError Kind = "ValidationError"
	KindDriftDetected   Kind = "DriftDetected"
)

// Check names reported on findings.
const (
	CheckSchema           = "schema"
	CheckMetaSchema       = "meta_schema"
	CheckVariableCoverage = "variable_coverage"
	CheckPreset           = "preset"
	CheckRender           = "render"
	CheckGolden           = "golden"
)

// Finding is one problem found in a template.
type Finding struct {
	Template string `json:"template"`
	Kind     Kind   `json:"kind"`
	Check    string `json:"check"`
	Detail   string `json:"detail"`
	// Diff is a line diff of golden vs rendered output, set on drift only.
	Diff string `json:"diff,omitempty"`
}

// Report collects the findings of one doctor run.
type Report struct {
	Findings []Finding `json:"findings"`
	Checked  []string  `json:"checked"`
}

// OK reports whether the run produced no findings.
func (r Report) OK() bool { return len(r.Findings) == 0 }

// ByTemplate groups findings by template name.
func (r Report) ByTemplate() map[string][]Finding {
	out := make(map[string][]Finding)
	for _, f := range r.Findings {
		out[f.Template] = append(out[f.Template], f)
	}
	return out
}

// Count returns the number of findings per kind.
func (r Report) Count() map[Kind]int {
	out := make(map[Kind]int)
	for _, f := range r.Findings {
		out[f.Kind]++
	}
	return out
}

// Failing lists templates with at least one finding, sorted.
func (r Report) Failing() []string {
	seen := map[string]bool{}
	for _, f := range r.Findings {
		seen[f.Template] = true
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
