package render

import "fmt"

// RenderError wraps a substitution failure with the template it came from.
type RenderError struct {
	Template string
	Format   string
	Err      error
}

func (e *RenderError) Error() string {
	if e.Format != "" {
		return fmt.Sprintf("render: template %q (format %s): %v", e.Template, e.Format, e.Err)
	}
	return fmt.Sprintf("render: template %q: %v", e.Template, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// UnsupportedFormatError reports an output format the pipeline cannot emit.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("render: unsupported output format %q (supported: %v)", e.Format, Formats())
}
