package catalog

import (
	"fmt"
	"strings"
)

// NotFoundError reports an unknown template name.
type NotFoundError struct {
	Name      string
	Available []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("catalog: template %q not found (available: %s)", e.Name, available(e.Available))
}

// PresetNotFoundError reports an unknown preset for a known template.
type PresetNotFoundError struct {
	Template  string
	Preset    string
	Available []string
}

func (e *PresetNotFoundError) Error() string {
	return fmt.Sprintf("catalog: preset %q not found for template %q (available: %s)", e.Preset, e.Template, available(e.Available))
}

// FileError reports a catalog file that exists but cannot be read or
// decoded.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("catalog: %s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

func available(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}
