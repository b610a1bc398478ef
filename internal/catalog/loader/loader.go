// Package loader reads template catalog entries from disk or an fs.FS.
package loader

import (
	"context"
	"errors"
	"io/fs"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/goliatone/go-promptkit/pkg/schema"
)

// Loader dispatches reads to a file or fs.FS strategy based on the source
// kind.
type Loader struct {
	fs fs.FS
}

// New constructs a Loader. files may be nil when only file sources are read.
func New(files fs.FS) *Loader {
	return &Loader{fs: files}
}

// Read returns the raw bytes behind src.
func (l *Loader) Read(ctx context.Context, src schema.Source) ([]byte, error) {
	if src == nil {
		return nil, errors.New("catalog loader: source is nil")
	}

	switch src.Kind() {
	case schema.SourceKindFile:
		return loadFile(ctx, src.Location())
	case schema.SourceKindFS:
		return loadFromFS(ctx, l.fs, src.Location())
	default:
		return nil, errors.New("catalog loader: unsupported source kind")
	}
}

// LoadSchema reads src and wraps it in a schema.Document.
func (l *Loader) LoadSchema(ctx context.Context, src schema.Source) (schema.Document, error) {
	data, err := l.Read(ctx, src)
	if err != nil {
		return schema.Document{}, err
	}
	return schema.NewDocument(src, data)
}

// Glob returns the sorted fs paths matching pattern. Patterns use doublestar
// syntax, e.g. "audit/examples/*.{yaml,yml}".
func (l *Loader) Glob(ctx context.Context, pattern string) ([]string, error) {
	if l.fs == nil {
		return nil, errors.New("catalog loader: fs is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	matches, err := doublestar.Glob(l.fs, pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// Exists reports whether name is a regular file in the loader's fs.
func (l *Loader) Exists(name string) bool {
	if l.fs == nil {
		return false
	}
	info, err := fs.Stat(l.fs, name)
	return err == nil && !info.IsDir()
}
