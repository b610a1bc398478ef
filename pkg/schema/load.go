package schema

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

var supportedRootKeys = map[string]struct{}{
	"$schema":              {},
	"$id":                  {},
	"title":                {},
	"description":          {},
	"type":                 {},
	"properties":           {},
	"required":             {},
	"additionalProperties": {},
	"version":              {},
}

var supportedPropertyKeys = map[string]struct{}{
	"type":        {},
	"title":       {},
	"description": {},
	"default":     {},
	"enum":        {},
	"minimum":     {},
	"maximum":     {},
	"pattern":     {},
	"items":       {},
	"examples":    {},
}

var supportedItemKeys = map[string]struct{}{
	"type":    {},
	"pattern": {},
}

// Parse builds a Schema from a raw schema.json payload.
func Parse(raw []byte) (*Schema, error) {
	doc, err := NewDocument(SourceInline("schema.json"), raw)
	if err != nil {
		return nil, err
	}
	return Load(doc)
}

// Load builds a Schema from a document. It fails with *SchemaError when the
// definition is malformed, when a parameter is both required and defaulted,
// or when a default violates its own constraints.
func Load(doc Document) (*Schema, error) {
	payload, err := doc.decode()
	if err != nil {
		return nil, err
	}
	s, err := fromPayload(payload)
	if err != nil {
		if se, ok := err.(*SchemaError); ok && se.Source == "" {
			se.Source = doc.Location()
		}
		return nil, err
	}
	return s, nil
}

func fromPayload(payload map[string]any) (*Schema, error) {
	if err := validateKeywords(payload, supportedRootKeys, "#"); err != nil {
		return nil, err
	}
	if typ, ok := payload["type"]; ok && typ != "object" {
		return nil, &SchemaError{Path: "#/type", Message: fmt.Sprintf("root type must be \"object\", got %v", typ)}
	}

	version, err := readVersion(payload)
	if err != nil {
		return nil, err
	}

	required := map[string]bool{}
	if raw, ok := payload["required"]; ok {
		list, ok := raw.([]any)
		if !ok {
			return nil, &SchemaError{Path: "#/required", Message: "required must be an array"}
		}
		for idx, item := range list {
			name, ok := item.(string)
			if !ok || strings.TrimSpace(name) == "" {
				return nil, &SchemaError{Path: fmt.Sprintf("#/required/%d", idx), Message: "required entries must be non-empty strings"}
			}
			required[name] = true
		}
	}

	props := map[string]any{}
	if raw, ok := payload["properties"]; ok {
		props, ok = raw.(map[string]any)
		if !ok {
			return nil, &SchemaError{Path: "#/properties", Message: "properties must be an object"}
		}
	}

	for _, name := range sortedKeys(required) {
		if _, ok := props[name]; !ok {
			return nil, &SchemaError{Path: "#/required", Message: fmt.Sprintf("required parameter %q is not declared in properties", name)}
		}
	}

	params := make([]ParameterSpec, 0, len(props))
	for _, name := range sortedKeys(props) {
		spec, err := parameterFromPayload(name, props[name], required[name])
		if err != nil {
			return nil, err
		}
		params = append(params, spec)
	}

	s := newSchema(params)
	s.Title = strings.TrimSpace(readString(payload, "title"))
	s.Description = strings.TrimSpace(readString(payload, "description"))
	s.Version = version
	return s, nil
}

func parameterFromPayload(name string, node any, required bool) (ParameterSpec, error) {
	path := joinPath("#", "properties", name)
	if strings.TrimSpace(name) == "" {
		return ParameterSpec{}, &SchemaError{Path: path, Message: "parameter name must not be empty"}
	}
	payload, ok := node.(map[string]any)
	if !ok {
		return ParameterSpec{}, &SchemaError{Path: path, Message: "parameter definition must be an object"}
	}
	if err := validateKeywords(payload, supportedPropertyKeys, path); err != nil {
		return ParameterSpec{}, err
	}

	spec := ParameterSpec{
		Name:        name,
		Description: strings.TrimSpace(readString(payload, "description")),
		Required:    required,
	}

	declared := strings.TrimSpace(readString(payload, "type"))
	_, hasEnum := payload["enum"]
	switch {
	case hasEnum && (declared == "" || declared == "string"):
		spec.Type = TypeEnum
	case hasEnum:
		return ParameterSpec{}, &SchemaError{Path: path, Message: fmt.Sprintf("enum is only supported on string parameters, got type %q", declared)}
	case declared == "string":
		spec.Type = TypeString
	case declared == "integer":
		spec.Type = TypeInteger
	case declared == "boolean":
		spec.Type = TypeBoolean
	case declared == "array":
		spec.Type = TypeArray
	case declared == "":
		return ParameterSpec{}, &SchemaError{Path: path, Message: "type is required"}
	default:
		return ParameterSpec{}, &SchemaError{Path: path, Message: fmt.Sprintf("unsupported type %q", declared)}
	}

	if err := parseConstraints(&spec, payload, path); err != nil {
		return ParameterSpec{}, err
	}

	if raw, ok := payload["default"]; ok {
		if required {
			return ParameterSpec{}, &SchemaError{Path: path, Message: fmt.Sprintf("parameter %q is required and also declares a default", name)}
		}
		typed, err := spec.Validate(raw)
		if err != nil {
			return ParameterSpec{}, &SchemaError{Path: joinPath(path, "default"), Message: fmt.Sprintf("default violates its own constraints: %v", err)}
		}
		spec.Default = typed
		spec.HasDefault = true
	}

	return spec, nil
}

func parseConstraints(spec *ParameterSpec, payload map[string]any, path string) error {
	if raw, ok := payload["enum"]; ok {
		list, ok := raw.([]any)
		if !ok || len(list) == 0 {
			return &SchemaError{Path: joinPath(path, "enum"), Message: "enum must be a non-empty array"}
		}
		seen := make(map[string]struct{}, len(list))
		for idx, item := range list {
			str, ok := item.(string)
			if !ok {
				return &SchemaError{Path: joinPath(path, "enum", fmt.Sprint(idx)), Message: "enum values must be strings"}
			}
			if _, dup := seen[str]; dup {
				return &SchemaError{Path: joinPath(path, "enum", fmt.Sprint(idx)), Message: fmt.Sprintf("duplicate enum value %q", str)}
			}
			seen[str] = struct{}{}
			spec.Constraints.Enum = append(spec.Constraints.Enum, str)
		}
	}

	for _, key := range []string{"minimum", "maximum"} {
		raw, ok := payload[key]
		if !ok {
			continue
		}
		if spec.Type != TypeInteger {
			return &SchemaError{Path: joinPath(path, key), Message: key + " is only supported on integer parameters"}
		}
		n, ok := toInt64(raw)
		if !ok {
			return &SchemaError{Path: joinPath(path, key), Message: key + " must be an integer"}
		}
		if key == "minimum" {
			spec.Constraints.Minimum = &n
		} else {
			spec.Constraints.Maximum = &n
		}
	}
	if lo, hi := spec.Constraints.Minimum, spec.Constraints.Maximum; lo != nil && hi != nil && *lo > *hi {
		return &SchemaError{Path: path, Message: fmt.Sprintf("minimum %d exceeds maximum %d", *lo, *hi)}
	}

	if raw, ok := payload["pattern"]; ok {
		if spec.Type != TypeString {
			return &SchemaError{Path: joinPath(path, "pattern"), Message: "pattern is only supported on string parameters"}
		}
		re, src, err := compilePattern(raw)
		if err != nil {
			return &SchemaError{Path: joinPath(path, "pattern"), Message: err.Error()}
		}
		spec.Constraints.Pattern = src
		spec.Constraints.pattern = re
	}

	raw, hasItems := payload["items"]
	if spec.Type != TypeArray {
		if hasItems {
			return &SchemaError{Path: joinPath(path, "items"), Message: "items is only supported on array parameters"}
		}
		return nil
	}
	if !hasItems {
		return nil
	}
	itemsPath := joinPath(path, "items")
	items, ok := raw.(map[string]any)
	if !ok {
		return &SchemaError{Path: itemsPath, Message: "items must be an object"}
	}
	if err := validateKeywords(items, supportedItemKeys, itemsPath); err != nil {
		return err
	}
	if typ := readString(items, "type"); typ != "" && typ != "string" {
		return &SchemaError{Path: itemsPath, Message: fmt.Sprintf("array items must be strings, got type %q", typ)}
	}
	if rawPattern, ok := items["pattern"]; ok {
		re, src, err := compilePattern(rawPattern)
		if err != nil {
			return &SchemaError{Path: joinPath(itemsPath, "pattern"), Message: err.Error()}
		}
		spec.Constraints.ItemPattern = src
		spec.Constraints.itemPattern = re
	}
	return nil
}

func compilePattern(raw any) (*regexp.Regexp, string, error) {
	src, ok := raw.(string)
	if !ok || src == "" {
		return nil, "", fmt.Errorf("pattern must be a non-empty string")
	}
	re, err := regexp.Compile(src)
	if err != nil {
		return nil, "", fmt.Errorf("invalid pattern %q: %v", src, err)
	}
	return re, src, nil
}

func readVersion(payload map[string]any) (string, error) {
	raw, ok := payload["version"]
	if !ok {
		raw, ok = payload["x-version"]
	}
	if !ok {
		return "", nil
	}
	str, isString := raw.(string)
	if !isString || strings.TrimSpace(str) == "" {
		return "", &SchemaError{Path: "#/version", Message: "version must be a non-empty string"}
	}
	if _, err := semver.NewVersion(str); err != nil {
		return "", &SchemaError{Path: "#/version", Message: fmt.Sprintf("version %q is not a semantic version", str)}
	}
	return str, nil
}

func validateKeywords(payload map[string]any, allowed map[string]struct{}, path string) error {
	for _, key := range sortedKeys(payload) {
		if strings.HasPrefix(strings.ToLower(key), "x-") {
			continue
		}
		if _, ok := allowed[key]; ok {
			continue
		}
		return &SchemaError{Path: path, Message: fmt.Sprintf("unsupported keyword %q", key)}
	}
	return nil
}

func readString(payload map[string]any, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

func joinPath(path string, segments ...string) string {
	if path == "" {
		path = "#"
	}
	replacer := strings.NewReplacer("~", "~0", "/", "~1")
	for _, segment := range segments {
		if segment == "" {
			continue
		}
		path = path + "/" + replacer.Replace(segment)
	}
	return path
}

func sortedKeys[V any](payload map[string]V) []string {
	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
