// Package packet persists reproducibility records ("run packets") for
// rendered prompts.
//
// A packet is a directory named <YYYYMMDD_HHMMSS>_<template> holding exactly
// three artifacts:
//
//	prompt.md             rendered text
//	params.resolved.json  resolved parameters, sorted keys
//	meta.json             template, version, params_hash, prompt_hash, timestamp
//
// Packets are write-once. Allocation is serialized with an advisory lock on
// <root>/.pk.lock and a destination that already exists fails with
// *CollisionError.
package packet

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/gosimple/slug"

	"github.com/goliatone/go-promptkit/pkg/canonical"
	"github.com/goliatone/go-promptkit/pkg/logger"
	"github.com/goliatone/go-promptkit/pkg/render"
	"github.com/goliatone/go-promptkit/pkg/resolve"
)

const (
	PromptFile = "prompt.md"
	ParamsFile = "params.resolved.json"
	MetaFile   = "meta.json"

	lockFile = ".pk.lock"

	// DirTimeFormat is the sortable, second-resolution prefix of packet
	// directory names.
	DirTimeFormat = "20060102_150405"
)

// Metadata is the content of meta.json.
type Metadata struct {
	Template   string `json:"template"`
	Version    string `json:"version"`
	ParamsHash string `json:"params_hash"`
	PromptHash string `json:"prompt_hash"`
	Timestamp  string `json:"timestamp"`
}

// Packet is a persisted render.
type Packet struct {
	Dir      string
	Output   render.Output
	Params   resolve.Params
	Metadata Metadata
}

// Builder writes packets under a root directory.
type Builder struct {
	root      string
	now       func() time.Time
	logger    logger.Logger
	writeFile func(path string, data []byte, perm os.FileMode) error
}

type Option func(*Builder)

// WithRoot sets the directory packets are created in. Defaults to "runs".
func WithRoot(dir string) Option {
	return func(b *Builder) {
		if dir != "" {
			b.root = dir
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

func NewBuilder(options ...Option) *Builder {
	b := &Builder{
		root:      "runs",
		now:       time.Now,
		logger:    logger.Nop(),
		writeFile: writeFileAtomic,
	}
	for _, opt := range options {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Root returns the directory packets are written to.
func (b *Builder) Root() string { return b.root }

// Build hashes params and out, allocates a fresh directory and writes the
// three artifacts.
func (b *Builder) Build(templateName, templateVersion string, params resolve.Params, out render.Output) (Packet, error) {
	paramsHash, err := canonical.Hash(params.Map())
	if err != nil {
		return Packet{}, err
	}

	now := b.now().UTC()
	meta := Metadata{
		Template:   templateName,
		Version:    templateVersion,
		ParamsHash: paramsHash,
		PromptHash: canonical.HashBytes([]byte(out.Text)),
		Timestamp:  now.Format(time.RFC3339),
	}

	paramsJSON, err := marshalStable(params.Map())
	if err != nil {
		return Packet{}, &PersistenceError{Op: "encode", Path: ParamsFile, Err: err}
	}
	metaJSON, err := marshalStable(meta)
	if err != nil {
		return Packet{}, &PersistenceError{Op: "encode", Path: MetaFile, Err: err}
	}

	artifacts := []struct {
		name string
		data []byte
	}{
		{PromptFile, []byte(out.Text)},
		{ParamsFile, paramsJSON},
		{MetaFile, metaJSON},
	}
	dir, err := b.allocate(DirName(now, templateName), func(dir string) error {
		for _, a := range artifacts {
			path := filepath.Join(dir, a.name)
			if err := b.writeFile(path, a.data, 0o644); err != nil {
				return &PersistenceError{Op: "write", Path: path, Err: err}
			}
		}
		return nil
	})
	if err != nil {
		return Packet{}, err
	}

	b.logger.Info("wrote run packet", "dir", dir, "template", templateName, "params_hash", paramsHash)
	return Packet{Dir: dir, Output: out, Params: params, Metadata: meta}, nil
}

// DirName returns the packet directory name for a template rendered at t.
func DirName(t time.Time, templateName string) string {
	name := slug.Make(templateName)
	if name == "" {
		name = "template"
	}
	return t.UTC().Format(DirTimeFormat) + "_" + name
}

// allocate creates root/name and runs fill on it while holding the root
// lock. A fill failure removes the directory so no partial packet remains.
func (b *Builder) allocate(name string, fill func(dir string) error) (string, error) {
	if err := os.MkdirAll(b.root, 0o755); err != nil {
		return "", &PersistenceError{Op: "mkdir", Path: b.root, Err: err}
	}

	lockPath := filepath.Join(b.root, lockFile)
	lock := flock.New(lockPath)
	if err := lock.Lock(); err != nil {
		return "", &PersistenceError{Op: "lock", Path: lockPath, Err: err}
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			b.logger.Warn("failed to release packet lock", "path", lockPath, "error", err)
		}
	}()

	dir := filepath.Join(b.root, name)
	if err := os.Mkdir(dir, 0o755); err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", &CollisionError{Dir: dir}
		}
		return "", &PersistenceError{Op: "mkdir", Path: dir, Err: err}
	}
	if err := fill(dir); err != nil {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			b.logger.Warn("failed to remove partial packet", "dir", dir, "error", rmErr)
		}
		return "", err
	}
	return dir, nil
}

func marshalStable(v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}
