package builtin

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Expression grammar, lowest precedence first:
//
//	or      := and (("or" | "||") and)*
//	and     := not (("and" | "&&") not)*
//	not     := ("not" | "!") not | compare
//	compare := filter (("==" | "!=" | "<" | "<=" | ">" | ">=" | "in" | "not in") filter)?
//	filter  := primary ("|" name (("(" args ")") | (":" primary))?)*
//	primary := literal | path | "(" or ")" | "[" args "]"

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokString
	tokNumber
	tokTrue
	tokFalse
	tokNone
	tokEq
	tokNeq
	tokLt
	tokLe
	tokGt
	tokGe
	tokAnd
	tokOr
	tokNot
	tokIn
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
	tokComma
	tokPipe
	tokColon
)

type token struct {
	kind tokenKind
	raw  string
}

var punctuation = map[byte]tokenKind{
	'(': tokLParen,
	')': tokRParen,
	'[': tokLBracket,
	']': tokRBracket,
	',': tokComma,
	':': tokColon,
}

var keywords = map[string]tokenKind{
	"and":   tokAnd,
	"or":    tokOr,
	"not":   tokNot,
	"in":    tokIn,
	"true":  tokTrue,
	"True":  tokTrue,
	"false": tokFalse,
	"False": tokFalse,
	"none":  tokNone,
	"None":  tokNone,
	"null":  tokNone,
}

func tokenize(input string) ([]token, error) {
	var tokens []token
	i := 0

	peekIs := func(c byte) bool { return i+1 < len(input) && input[i+1] == c }

	for i < len(input) {
		ch := input[i]
		if kind, ok := punctuation[ch]; ok {
			tokens = append(tokens, token{kind: kind, raw: string(ch)})
			i++
			continue
		}

		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			i++
		case ch == '|':
			if peekIs('|') {
				tokens = append(tokens, token{kind: tokOr, raw: "||"})
				i += 2
				continue
			}
			tokens = append(tokens, token{kind: tokPipe, raw: "|"})
			i++
		case ch == '&':
			if !peekIs('&') {
				return nil, errors.New("unexpected '&'; use '&&' or 'and'")
			}
			tokens = append(tokens, token{kind: tokAnd, raw: "&&"})
			i += 2
		case ch == '!':
			if peekIs('=') {
				tokens = append(tokens, token{kind: tokNeq, raw: "!="})
				i += 2
				continue
			}
			tokens = append(tokens, token{kind: tokNot, raw: "!"})
			i++
		case ch == '=':
			if !peekIs('=') {
				return nil, errors.New("unexpected '='; use '=='")
			}
			tokens = append(tokens, token{kind: tokEq, raw: "=="})
			i += 2
		case ch == '<' || ch == '>':
			kind, raw := tokLt, "<"
			if ch == '>' {
				kind, raw = tokGt, ">"
			}
			if peekIs('=') {
				kind++
				raw += "="
				i++
			}
			tokens = append(tokens, token{kind: kind, raw: raw})
			i++
		case ch == '"' || ch == '\'':
			str, n, err := readString(input[i:])
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokString, raw: str})
			i += n
		case isDigit(ch) || (ch == '-' && i+1 < len(input) && isDigit(input[i+1])):
			start := i
			i++
			for i < len(input) && (isDigit(input[i]) || input[i] == '.') {
				i++
			}
			tokens = append(tokens, token{kind: tokNumber, raw: input[start:i]})
		case isIdentStart(ch):
			start := i
			for i < len(input) && (isIdentStart(input[i]) || isDigit(input[i]) || input[i] == '.') {
				i++
			}
			raw := input[start:i]
			if kind, ok := keywords[raw]; ok {
				tokens = append(tokens, token{kind: kind, raw: raw})
				continue
			}
			tokens = append(tokens, token{kind: tokIdent, raw: raw})
		default:
			return nil, fmt.Errorf("unexpected character %q", ch)
		}
	}
	return tokens, nil
}

func readString(input string) (string, int, error) {
	quote := input[0]
	var b strings.Builder
	for i := 1; i < len(input); i++ {
		c := input[i]
		switch {
		case c == '\\' && i+1 < len(input):
			i++
			switch esc := input[i]; esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '\\', '\'', '"':
				b.WriteByte(esc)
			default:
				b.WriteByte('\\')
				b.WriteByte(esc)
			}
		case c == quote:
			return b.String(), i + 1, nil
		default:
			b.WriteByte(c)
		}
	}
	return "", 0, errors.New("unterminated string literal")
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

type tokenStream struct {
	tokens []token
	pos    int
	line   int
}

func parseExpression(input string, line int) (expr, error) {
	tokens, err := tokenize(input)
	if err != nil {
		return nil, &SyntaxError{Line: line, Message: err.Error()}
	}
	if len(tokens) == 0 {
		return nil, &SyntaxError{Line: line, Message: "empty expression"}
	}

	stream := &tokenStream{tokens: tokens, line: line}
	node, err := parseOr(stream)
	if err != nil {
		return nil, err
	}
	if stream.pos < len(stream.tokens) {
		return nil, stream.errorf("unexpected token %q", stream.tokens[stream.pos].raw)
	}
	return node, nil
}

func parseOr(s *tokenStream) (expr, error) {
	left, err := parseAnd(s)
	if err != nil {
		return nil, err
	}
	for s.match(tokOr) {
		right, err := parseAnd(s)
		if err != nil {
			return nil, err
		}
		left = orExpr{left: left, right: right}
	}
	return left, nil
}

func parseAnd(s *tokenStream) (expr, error) {
	left, err := parseNot(s)
	if err != nil {
		return nil, err
	}
	for s.match(tokAnd) {
		right, err := parseNot(s)
		if err != nil {
			return nil, err
		}
		left = andExpr{left: left, right: right}
	}
	return left, nil
}

func parseNot(s *tokenStream) (expr, error) {
	if s.match(tokNot) {
		inner, err := parseNot(s)
		if err != nil {
			return nil, err
		}
		return notExpr{inner: inner}, nil
	}
	return parseCompare(s)
}

func parseCompare(s *tokenStream) (expr, error) {
	left, err := parseFilter(s)
	if err != nil {
		return nil, err
	}

	if s.peekKind(0, tokNot) && s.peekKind(1, tokIn) {
		s.pos += 2
		right, err := parseFilter(s)
		if err != nil {
			return nil, err
		}
		return inExpr{item: left, container: right, negate: true}, nil
	}
	if s.match(tokIn) {
		right, err := parseFilter(s)
		if err != nil {
			return nil, err
		}
		return inExpr{item: left, container: right}, nil
	}

	for _, op := range []tokenKind{tokEq, tokNeq, tokLt, tokLe, tokGt, tokGe} {
		if s.match(op) {
			right, err := parseFilter(s)
			if err != nil {
				return nil, err
			}
			return compareExpr{op: op, left: left, right: right}, nil
		}
	}
	return left, nil
}

func parseFilter(s *tokenStream) (expr, error) {
	base, err := parsePrimary(s)
	if err != nil {
		return nil, err
	}
	for s.match(tokPipe) {
		name, ok := s.consume(tokIdent)
		if !ok || strings.Contains(name.raw, ".") {
			return nil, s.errorf("expected filter name after '|'")
		}
		def, known := filters[name.raw]
		if !known {
			return nil, s.errorf("unknown filter %q", name.raw)
		}

		var args []expr
		switch {
		case s.match(tokLParen):
			args, err = parseArgs(s, tokRParen)
			if err != nil {
				return nil, err
			}
		case s.match(tokColon):
			arg, err := parsePrimary(s)
			if err != nil {
				return nil, err
			}
			args = []expr{arg}
		}
		if len(args) < def.minArgs || len(args) > def.maxArgs {
			return nil, s.errorf("filter %q takes %s", name.raw, def.arity())
		}
		base = filterExpr{base: base, name: name.raw, args: args}
	}
	return base, nil
}

func parseArgs(s *tokenStream, closer tokenKind) ([]expr, error) {
	var args []expr
	if s.match(closer) {
		return args, nil
	}
	for {
		arg, err := parseOr(s)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if s.match(closer) {
			return args, nil
		}
		if !s.match(tokComma) {
			return nil, s.errorf("expected ',' or closing bracket")
		}
	}
}

func parsePrimary(s *tokenStream) (expr, error) {
	if s.pos >= len(s.tokens) {
		return nil, s.errorf("unexpected end of expression")
	}
	tok := s.tokens[s.pos]
	s.pos++

	switch tok.kind {
	case tokLParen:
		inner, err := parseOr(s)
		if err != nil {
			return nil, err
		}
		if !s.match(tokRParen) {
			return nil, s.errorf("missing closing ')'")
		}
		return inner, nil
	case tokLBracket:
		items, err := parseArgs(s, tokRBracket)
		if err != nil {
			return nil, err
		}
		return listExpr{items: items}, nil
	case tokString:
		return literalExpr{value: tok.raw}, nil
	case tokNumber:
		if n, err := strconv.ParseInt(tok.raw, 10, 64); err == nil {
			return literalExpr{value: n}, nil
		}
		f, err := strconv.ParseFloat(tok.raw, 64)
		if err != nil {
			return nil, s.errorf("invalid number %q", tok.raw)
		}
		return literalExpr{value: f}, nil
	case tokTrue:
		return literalExpr{value: true}, nil
	case tokFalse:
		return literalExpr{value: false}, nil
	case tokNone:
		return literalExpr{value: nil}, nil
	case tokIdent:
		parts := strings.Split(tok.raw, ".")
		for _, part := range parts {
			if part == "" {
				return nil, s.errorf("invalid variable path %q", tok.raw)
			}
		}
		return pathExpr{parts: parts, line: s.line}, nil
	default:
		return nil, s.errorf("unexpected token %q", tok.raw)
	}
}

func (s *tokenStream) match(kind tokenKind) bool {
	if !s.peekKind(0, kind) {
		return false
	}
	s.pos++
	return true
}

func (s *tokenStream) peekKind(offset int, kind tokenKind) bool {
	idx := s.pos + offset
	return idx < len(s.tokens) && s.tokens[idx].kind == kind
}

func (s *tokenStream) consume(kind tokenKind) (token, bool) {
	if !s.peekKind(0, kind) {
		return token{}, false
	}
	out := s.tokens[s.pos]
	s.pos++
	return out, true
}

func (s *tokenStream) errorf(format string, args ...any) error {
	return &SyntaxError{Line: s.line, Message: fmt.Sprintf(format, args...)}
}
