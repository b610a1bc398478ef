// Package template defines the substitution capability used by the render
// pipeline: an Engine interpolates bindings into a template body, evaluates
// conditional blocks and iterates over sequences.
//
// Two engines ship with the module. The builtin engine (package builtin) is a
// small interpreter over a fixed instruction set and is the default. The
// pongo engine (package pongo) wraps github.com/flosch/pongo2/v6 for
// templates that need the wider Django/Jinja feature set.
package template
