// Package catalog is the read-only registry of prompt templates.
//
// A catalog is loaded once from an fs.FS laid out as:
//
//	<template>/template.md              body (marks the directory as a template)
//	<template>/schema.json              parameter schema
//	<template>/examples/*.yaml|*.yml    presets
//	<template>/tests/render_golden.md   expected render of the default preset
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-promptkit/internal/catalog/loader"
	"github.com/goliatone/go-promptkit/pkg/logger"
	"github.com/goliatone/go-promptkit/pkg/schema"
)

const (
	BodyFile   = "template.md"
	SchemaFile = "schema.json"
	GoldenFile = "tests/render_golden.md"
)

// Catalog holds every template found at load time.
type Catalog struct {
	templates map[string]*Template
	names     []string
}

type Option func(*options)

type options struct {
	logger logger.Logger
}

func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// LoadDir loads the catalog rooted at dir on disk.
func LoadDir(ctx context.Context, dir string, opts ...Option) (*Catalog, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("catalog: templates directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("catalog: %s is not a directory", dir)
	}
	return Load(ctx, os.DirFS(dir), opts...)
}

// Load scans the top level of fsys for template directories.
func Load(ctx context.Context, fsys fs.FS, opts ...Option) (*Catalog, error) {
	o := &options{logger: logger.Nop()}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("catalog: read root: %w", err)
	}

	l := loader.New(fsys)
	c := &Catalog{templates: map[string]*Template{}}
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if !l.Exists(path.Join(entry.Name(), BodyFile)) {
			continue
		}
		tpl, err := loadTemplate(ctx, l, entry.Name())
		if err != nil {
			return nil, err
		}
		if tpl.SchemaErr != nil {
			o.logger.Warn("template schema did not load", "template", tpl.Name, "error", tpl.SchemaErr)
		}
		c.templates[tpl.Name] = tpl
		c.names = append(c.names, tpl.Name)
	}
	sort.Strings(c.names)
	o.logger.Debug("loaded catalog", "templates", len(c.names))
	return c, nil
}

func loadTemplate(ctx context.Context, l *loader.Loader, name string) (*Template, error) {
	tpl := &Template{
		Name:       name,
		Presets:    map[string]map[string]any{},
		PresetErrs: map[string]error{},
	}

	body, err := l.Read(ctx, schema.SourceFromFS(path.Join(name, BodyFile)))
	if err != nil {
		return nil, &FileError{Path: path.Join(name, BodyFile), Err: err}
	}
	tpl.Body = string(body)

	schemaPath := path.Join(name, SchemaFile)
	if l.Exists(schemaPath) {
		doc, err := l.LoadSchema(ctx, schema.SourceFromFS(schemaPath))
		if err == nil {
			tpl.SchemaRaw = doc.Raw()
			tpl.Schema, err = schema.Load(doc)
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			tpl.Schema = nil
			tpl.SchemaErr = err
		}
	} else {
		tpl.SchemaErr = &schema.SchemaError{Source: schemaPath, Message: "schema.json not found"}
	}

	presets, err := l.Glob(ctx, path.Join(name, "examples", "*.{yaml,yml}"))
	if err != nil {
		return nil, err
	}
	for _, p := range presets {
		base := path.Base(p)
		presetName := strings.TrimSuffix(base, path.Ext(base))
		if tpl.HasPreset(presetName) {
			continue
		}
		raw, err := l.Read(ctx, schema.SourceFromFS(p))
		if err != nil {
			return nil, &FileError{Path: p, Err: err}
		}
		values, err := decodeMapping(raw, false)
		if err != nil {
			tpl.PresetErrs[presetName] = &FileError{Path: p, Err: err}
			continue
		}
		tpl.Presets[presetName] = values
	}

	goldenPath := path.Join(name, GoldenFile)
	if l.Exists(goldenPath) {
		raw, err := l.Read(ctx, schema.SourceFromFS(goldenPath))
		if err != nil {
			return nil, &FileError{Path: goldenPath, Err: err}
		}
		golden := string(raw)
		tpl.Golden = &golden
	}
	return tpl, nil
}

// Names returns the template names, sorted.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.names...)
}

// Get returns the named template.
func (c *Catalog) Get(name string) (*Template, error) {
	tpl, ok := c.templates[name]
	if !ok {
		return nil, &NotFoundError{Name: name, Available: c.Names()}
	}
	return tpl, nil
}

// Templates returns every template in name order.
func (c *Catalog) Templates() []*Template {
	out := make([]*Template, 0, len(c.names))
	for _, name := range c.names {
		out = append(out, c.templates[name])
	}
	return out
}

// Len reports the number of templates.
func (c *Catalog) Len() int { return len(c.names) }

// LoadParamsFile reads a params file from disk: JSON for .json, YAML for
// anything else. An empty document is an empty mapping.
func LoadParamsFile(ctx context.Context, filePath string) (map[string]any, error) {
	raw, err := loader.New(nil).Read(ctx, schema.SourceFromFile(filePath))
	if err != nil {
		return nil, &FileError{Path: filePath, Err: err}
	}
	values, err := decodeMapping(raw, strings.EqualFold(path.Ext(filePath), ".json"))
	if err != nil {
		return nil, &FileError{Path: filePath, Err: err}
	}
	return values, nil
}

// decodeMapping parses a YAML or JSON document whose top level must be a
// mapping. Only YAML treats an empty document as an empty mapping.
func decodeMapping(raw []byte, asJSON bool) (map[string]any, error) {
	var node any
	if asJSON {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&node); err != nil {
			return nil, err
		}
		if dec.More() {
			return nil, errors.New("trailing data after JSON document")
		}
	} else {
		if len(bytes.TrimSpace(raw)) == 0 {
			return map[string]any{}, nil
		}
		if err := yaml.Unmarshal(raw, &node); err != nil {
			return nil, err
		}
	}

	switch typed := node.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return typed, nil
	default:
		return nil, fmt.Errorf("top level must be a mapping, got %T", node)
	}
}
