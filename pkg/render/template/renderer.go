package template

import "fmt"

// Engine renders a template body against a binding set. Bindings are the
// only variables visible to the template; engines must not add globals.
type Engine interface {
	Name() string
	Render(body string, bindings map[string]any) (string, error)
	// Variables returns the sorted root variable names the body reads,
	// excluding names the body binds itself (loop variables).
	Variables(body string) ([]string, error)
}

// UndefinedError reports a reference to a variable or key that is not bound.
type UndefinedError struct {
	Name string
	Line int
}

func (e *UndefinedError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("template: undefined variable %q (line %d)", e.Name, e.Line)
	}
	return fmt.Sprintf("template: undefined variable %q", e.Name)
}
