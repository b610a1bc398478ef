package doctor

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const metaResource = "schema.json"

// metaIssue is one reason a schema document is not valid JSON Schema.
type metaIssue struct {
	Field   string
	Message string
}

func (i metaIssue) String() string {
	if i.Field == "" {
		return i.Message
	}
	return i.Field + ": " + i.Message
}

// metaValidate compiles raw as a Draft 7 document, which checks it against
// the Draft 7 meta-schema.
func metaValidate(raw []byte) []metaIssue {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft7
	if err := c.AddResource(metaResource, bytes.NewReader(raw)); err != nil {
		return []metaIssue{{Message: strings.TrimSpace(err.Error())}}
	}
	if _, err := c.Compile(metaResource); err != nil {
		return issuesFromError(err)
	}
	return nil
}

func issuesFromError(err error) []metaIssue {
	var validation *jsonschema.ValidationError
	if !errors.As(err, &validation) {
		return []metaIssue{{Message: strings.TrimPrefix(strings.TrimSpace(err.Error()), "jsonschema: ")}}
	}

	var out []metaIssue
	var walk func(*jsonschema.ValidationError)
	walk = func(ve *jsonschema.ValidationError) {
		if len(ve.Causes) == 0 {
			out = append(out, metaIssue{
				Field:   fieldPathFromPointer(ve.InstanceLocation),
				Message: strings.TrimSpace(ve.Message),
			})
			return
		}
		for _, cause := range ve.Causes {
			walk(cause)
		}
	}
	walk(validation)

	sort.SliceStable(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

// fieldPathFromPointer turns "/properties/depth/enum" into "depth.enum".
func fieldPathFromPointer(pointer string) string {
	trimmed := strings.TrimPrefix(strings.TrimSpace(pointer), "#")
	trimmed = strings.TrimPrefix(trimmed, "/")
	if trimmed == "" {
		return ""
	}

	parts := strings.Split(trimmed, "/")
	out := make([]string, 0, len(parts))
	for idx := 0; idx < len(parts); idx++ {
		segment := unescapePointer(parts[idx])
		switch segment {
		case "":
			continue
		case "properties":
			if idx+1 < len(parts) {
				out = append(out, unescapePointer(parts[idx+1]))
				idx++
			}
		default:
			out = append(out, segment)
		}
	}
	return strings.Join(out, ".")
}

func unescapePointer(segment string) string {
	segment = strings.ReplaceAll(segment, "~1", "/")
	return strings.ReplaceAll(segment, "~0", "~")
}

func formatIssues(issues []metaIssue) string {
	parts := make([]string, len(issues))
	for i, issue := range issues {
		parts[i] = issue.String()
	}
	return fmt.Sprintf("not a valid JSON Schema (draft 7): %s", strings.Join(parts, "; "))
}
