package promptkit

import (
	"embed"
	"io/fs"
)

//go:embed templates
var embeddedTemplates embed.FS

// EmbeddedTemplates exposes the bundled template catalog rooted at the
// template directories, so callers can list, copy or extend it.
func EmbeddedTemplates() fs.FS {
	sub, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		return embeddedTemplates
	}
	return sub
}
