package builtin

import (
	"fmt"
	"strings"
)

type segmentKind int

const (
	segText segmentKind = iota
	segOutput
	segTag
)

type segment struct {
	kind segmentKind
	text string
	line int
}

const whitespace = " \t\r\n"

var closers = map[string]string{
	"{{": "}}",
	"{%": "%}",
	"{#": "#}",
}

// lex splits a body into text, output ({{ }}) and tag ({% %}) segments.
// Comments are dropped. A '-' just inside a delimiter trims the whitespace
// on that side of the delimiter.
func lex(body string) ([]segment, error) {
	var (
		segs     []segment
		line     = 1
		pos      int
		trimNext bool
	)

	for pos < len(body) {
		idx := nextDelimiter(body, pos)
		if idx < 0 {
			text := body[pos:]
			if trimNext {
				text = strings.TrimLeft(text, whitespace)
			}
			if text != "" {
				segs = append(segs, segment{kind: segText, text: text, line: line})
			}
			break
		}

		text := body[pos:idx]
		if trimNext {
			text = strings.TrimLeft(text, whitespace)
		}
		textLine := line
		line += strings.Count(body[pos:idx], "\n")

		open := body[idx : idx+2]
		start := idx + 2
		if start < len(body) && body[start] == '-' {
			text = strings.TrimRight(text, whitespace)
			start++
		}
		if text != "" {
			segs = append(segs, segment{kind: segText, text: text, line: textLine})
		}

		closer := closers[open]
		end := findCloser(body, start, closer, open != "{#")
		if end < 0 {
			return nil, &SyntaxError{Line: line, Message: fmt.Sprintf("unclosed %q", open)}
		}

		inner := body[start:end]
		trimNext = false
		if strings.HasSuffix(inner, "-") {
			inner = inner[:len(inner)-1]
			trimNext = true
		}

		switch open {
		case "{{":
			segs = append(segs, segment{kind: segOutput, text: strings.TrimSpace(inner), line: line})
		case "{%":
			segs = append(segs, segment{kind: segTag, text: strings.TrimSpace(inner), line: line})
		}

		line += strings.Count(body[idx:end], "\n")
		pos = end + len(closer)
	}
	return segs, nil
}

func nextDelimiter(body string, from int) int {
	for i := from; i < len(body)-1; i++ {
		if body[i] != '{' {
			continue
		}
		switch body[i+1] {
		case '{', '%', '#':
			return i
		}
	}
	return -1
}

func findCloser(body string, start int, closer string, quoteAware bool) int {
	for i := start; i < len(body); i++ {
		c := body[i]
		if quoteAware && (c == '"' || c == '\'') {
			j := i + 1
			for j < len(body) && body[j] != c {
				if body[j] == '\\' {
					j++
				}
				j++
			}
			i = j
			continue
		}
		if strings.HasPrefix(body[i:], closer) {
			return i
		}
	}
	return -1
}
