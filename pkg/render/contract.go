package render

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// A contract block carries format-specific instructions:
//
//	{% contract json %}
//	Respond with a single JSON object.
//	{% endcontract %}
//
// Blocks are resolved before the engine runs, so they may wrap any template
// syntax the engine understands.
var contractBlock = regexp.MustCompile(`(?s)\{%-?\s*contract\s+([A-Za-z0-9_.-]+)\s*-?%\}\n?(.*?)\{%-?\s*endcontract\s*-?%\}\n?`)

var contractMarker = regexp.MustCompile(`\{%-?\s*(?:end)?contract\b`)

// SelectContract keeps the block whose format equals format, drops every
// other contract block and returns the result. Text outside contract blocks
// is always kept; an empty format keeps only that shared text.
func SelectContract(body, format string) (string, error) {
	var b strings.Builder
	last := 0
	for _, m := range contractBlock.FindAllStringSubmatchIndex(body, -1) {
		b.WriteString(body[last:m[0]])
		if body[m[2]:m[3]] == format {
			b.WriteString(body[m[4]:m[5]])
		}
		last = m[1]
	}
	b.WriteString(body[last:])

	out := b.String()
	if loc := contractMarker.FindStringIndex(out); loc != nil {
		line := 1 + strings.Count(out[:loc[0]], "\n")
		return "", fmt.Errorf("render: unbalanced contract block near line %d", line)
	}
	return out, nil
}

// ContractFormats lists the distinct formats declared by contract blocks,
// sorted.
func ContractFormats(body string) []string {
	seen := map[string]bool{}
	for _, m := range contractBlock.FindAllStringSubmatch(body, -1) {
		seen[m[1]] = true
	}
	out := make([]string, 0, len(seen))
	for format := range seen {
		out = append(out, format)
	}
	sort.Strings(out)
	return out
}
