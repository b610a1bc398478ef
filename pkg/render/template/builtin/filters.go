package builtin

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

type filterDef struct {
	minArgs, maxArgs int
	fn               func(in any, args []any) (any, error)
}

func (d filterDef) arity() string {
	switch {
	case d.minArgs == d.maxArgs && d.maxArgs == 0:
		return "no arguments"
	case d.minArgs == d.maxArgs:
		return fmt.Sprintf("%d argument(s)", d.minArgs)
	default:
		return fmt.Sprintf("%d to %d arguments", d.minArgs, d.maxArgs)
	}
}

var filters = map[string]filterDef{
	"join":       {0, 1, filterJoin},
	"upper":      {0, 0, textFilter(strings.ToUpper)},
	"lower":      {0, 0, textFilter(strings.ToLower)},
	"trim":       {0, 0, textFilter(strings.TrimSpace)},
	"title":      {0, 0, textFilter(titleCase)},
	"capitalize": {0, 0, textFilter(capitalize)},
	"string":     {0, 0, textFilter(func(s string) string { return s })},
	"length":     {0, 0, filterLength},
	"default":    {0, 1, filterDefault},
	"tojson":     {0, 0, filterToJSON},
	"replace":    {2, 2, filterReplace},
	"first":      {0, 0, filterFirst},
	"last":       {0, 0, filterLast},
	"sort":       {0, 0, filterSort},
}

func textFilter(fn func(string) string) func(any, []any) (any, error) {
	return func(in any, _ []any) (any, error) {
		return fn(stringify(in)), nil
	}
}

func filterJoin(in any, args []any) (any, error) {
	seq, ok := toSequence(in)
	if !ok {
		return nil, fmt.Errorf("expected a sequence, got %s", typeName(in))
	}
	sep := ""
	if len(args) == 1 {
		sep = stringify(args[0])
	}
	parts := make([]string, len(seq))
	for i, item := range seq {
		parts[i] = stringify(item)
	}
	return strings.Join(parts, sep), nil
}

func filterLength(in any, _ []any) (any, error) {
	switch typed := in.(type) {
	case string:
		return int64(utf8.RuneCountInString(typed)), nil
	case map[string]any:
		return int64(len(typed)), nil
	}
	if seq, ok := toSequence(in); ok {
		return int64(len(seq)), nil
	}
	return nil, fmt.Errorf("%s has no length", typeName(in))
}

func filterDefault(in any, args []any) (any, error) {
	if in != nil {
		return in, nil
	}
	if len(args) == 0 {
		return "", nil
	}
	return args[0], nil
}

func filterToJSON(in any, _ []any) (any, error) {
	raw, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func filterReplace(in any, args []any) (any, error) {
	return strings.ReplaceAll(stringify(in), stringify(args[0]), stringify(args[1])), nil
}

func filterFirst(in any, _ []any) (any, error) {
	seq, ok := toSequence(in)
	if !ok {
		return nil, fmt.Errorf("expected a sequence, got %s", typeName(in))
	}
	if len(seq) == 0 {
		return nil, errors.New("sequence is empty")
	}
	return seq[0], nil
}

func filterLast(in any, _ []any) (any, error) {
	seq, ok := toSequence(in)
	if !ok {
		return nil, fmt.Errorf("expected a sequence, got %s", typeName(in))
	}
	if len(seq) == 0 {
		return nil, errors.New("sequence is empty")
	}
	return seq[len(seq)-1], nil
}

func filterSort(in any, _ []any) (any, error) {
	seq, ok := toSequence(in)
	if !ok {
		return nil, fmt.Errorf("expected a sequence, got %s", typeName(in))
	}
	out := append([]any(nil), seq...)
	sort.SliceStable(out, func(i, j int) bool { return stringify(out[i]) < stringify(out[j]) })
	return out, nil
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	boundary := true
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if boundary {
				b.WriteRune(unicode.ToUpper(r))
			} else {
				b.WriteRune(unicode.ToLower(r))
			}
			boundary = false
			continue
		}
		boundary = true
		b.WriteRune(r)
	}
	return b.String()
}
