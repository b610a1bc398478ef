package schema

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Document is a raw schema.json payload plus where it was read from.
type Document struct {
	source Source
	raw    []byte
}

// NewDocument wraps raw bytes. Empty payloads are rejected up front so the
// loader never has to distinguish "missing" from "blank".
func NewDocument(src Source, raw []byte) (Document, error) {
	if src == nil {
		return Document{}, errors.New("schema: source is required")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return Document{}, &SchemaError{Source: src.Location(), Message: "document is empty"}
	}
	return Document{source: src, raw: append([]byte(nil), raw...)}, nil
}

// MustNewDocument panics if the document cannot be created. Useful for tests.
func MustNewDocument(src Source, raw []byte) Document {
	doc, err := NewDocument(src, raw)
	if err != nil {
		panic(err)
	}
	return doc
}

// Source returns the origin metadata for the document.
func (d Document) Source() Source { return d.source }

// Raw returns a copy of the payload.
func (d Document) Raw() []byte { return append([]byte(nil), d.raw...) }

// Location returns the string identifier for the origin.
func (d Document) Location() string {
	if d.source == nil {
		return ""
	}
	return d.source.Location()
}

// decode parses the payload as a JSON object, keeping numbers as json.Number
// so integer bounds and defaults are not rounded through float64.
func (d Document) decode() (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(d.raw))
	dec.UseNumber()

	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, &SchemaError{Source: d.Location(), Message: "invalid JSON: " + err.Error()}
	}
	if payload == nil {
		return nil, &SchemaError{Source: d.Location(), Message: "schema must be a JSON object"}
	}
	if dec.More() {
		return nil, &SchemaError{Source: d.Location(), Message: "trailing data after schema object"}
	}
	return payload, nil
}
