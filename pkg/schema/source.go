package schema

import (
	"path"
	"path/filepath"
)

// Source identifies where a schema document originated so loaders can read
// files on disk or entries inside an fs.FS without leaking the difference.
type Source interface {
	Kind() SourceKind
	Location() string
}

// SourceKind enumerates the loader modalities.
type SourceKind string

const (
	SourceKindFile   SourceKind = "file"
	SourceKindFS     SourceKind = "fs"
	SourceKindInline SourceKind = "inline"
)

type fileSource struct {
	path string
}

func (s fileSource) Location() string {
	return s.path
}

func (s fileSource) Kind() SourceKind {
	return SourceKindFile
}

// SourceFromFile returns a Source pointing to a file path.
func SourceFromFile(p string) Source {
	return fileSource{path: filepath.Clean(p)}
}

type fsSource struct {
	name string
}

func (s fsSource) Location() string {
	return s.name
}

func (s fsSource) Kind() SourceKind {
	return SourceKindFS
}

// SourceFromFS returns a Source identifying a resource inside an fs.FS.
func SourceFromFS(name string) Source {
	return fsSource{name: path.Clean(name)}
}

type inlineSource struct {
	label string
}

func (s inlineSource) Location() string {
	return s.label
}

func (s inlineSource) Kind() SourceKind {
	return SourceKindInline
}

// SourceInline labels a schema built in memory (tests, embedded defaults).
func SourceInline(label string) Source {
	return inlineSource{label: label}
}
