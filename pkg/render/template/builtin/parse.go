package builtin

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/goliatone/go-promptkit/pkg/render/template"
)

type node interface {
	exec(w *strings.Builder, sc *scope) error
	walk(bound map[string]bool, add visitFunc)
}

type textNode struct{ text string }

func (n textNode) exec(w *strings.Builder, _ *scope) error {
	w.WriteString(n.text)
	return nil
}

func (textNode) walk(map[string]bool, visitFunc) {}

type outputNode struct {
	expr expr
	line int
}

func (n outputNode) exec(w *strings.Builder, sc *scope) error {
	v, err := n.expr.eval(sc)
	if err != nil {
		return atLine(n.line, err)
	}
	w.WriteString(stringify(v))
	return nil
}

func (n outputNode) walk(bound map[string]bool, add visitFunc) {
	n.expr.roots(unbound(bound, add))
}

type ifBranch struct {
	cond expr
	body []node
}

type ifNode struct {
	branches []ifBranch
	elseBody []node
	line     int
}

func (n ifNode) exec(w *strings.Builder, sc *scope) error {
	for _, branch := range n.branches {
		v, err := branch.cond.eval(sc)
		if err != nil {
			return atLine(n.line, err)
		}
		if truthy(v) {
			return execAll(branch.body, w, sc)
		}
	}
	return execAll(n.elseBody, w, sc)
}

func (n ifNode) walk(bound map[string]bool, add visitFunc) {
	for _, branch := range n.branches {
		branch.cond.roots(unbound(bound, add))
		walkAll(branch.body, bound, add)
	}
	walkAll(n.elseBody, bound, add)
}

type forNode struct {
	target   string
	seq      expr
	body     []node
	elseBody []node
	line     int
}

func (n forNode) exec(w *strings.Builder, sc *scope) error {
	v, err := n.seq.eval(sc)
	if err != nil {
		return atLine(n.line, err)
	}
	items, err := iterate(v)
	if err != nil {
		return atLine(n.line, err)
	}
	if len(items) == 0 {
		return execAll(n.elseBody, w, sc)
	}

	total := int64(len(items))
	for i, item := range items {
		idx := int64(i)
		loop := map[string]any{
			"index":     idx + 1,
			"index0":    idx,
			"revindex":  total - idx,
			"revindex0": total - idx - 1,
			"first":     i == 0,
			"last":      idx == total-1,
			"length":    total,
		}
		child := &scope{vars: map[string]any{n.target: item, "loop": loop}, parent: sc}
		if err := execAll(n.body, w, child); err != nil {
			return err
		}
	}
	return nil
}

func (n forNode) walk(bound map[string]bool, add visitFunc) {
	n.seq.roots(unbound(bound, add))

	inner := make(map[string]bool, len(bound)+2)
	for name := range bound {
		inner[name] = true
	}
	inner[n.target] = true
	inner["loop"] = true
	walkAll(n.body, inner, add)
	walkAll(n.elseBody, bound, add)
}

func execAll(nodes []node, w *strings.Builder, sc *scope) error {
	for _, n := range nodes {
		if err := n.exec(w, sc); err != nil {
			return err
		}
	}
	return nil
}

func walkAll(nodes []node, bound map[string]bool, add visitFunc) {
	for _, n := range nodes {
		n.walk(bound, add)
	}
}

func unbound(bound map[string]bool, add visitFunc) visitFunc {
	return func(name string, optional bool) {
		if !bound[name] {
			add(name, optional)
		}
	}
}

func iterate(v any) ([]any, error) {
	if m, ok := v.(map[string]any); ok {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]any, len(keys))
		for i, k := range keys {
			out[i] = k
		}
		return out, nil
	}
	seq, ok := toSequence(v)
	if !ok {
		return nil, fmt.Errorf("cannot iterate over %s", typeName(v))
	}
	return seq, nil
}

func atLine(line int, err error) error {
	var undefined *template.UndefinedError
	if errors.As(err, &undefined) {
		return err
	}
	var syntax *SyntaxError
	if errors.As(err, &syntax) {
		return err
	}
	return &ExecError{Line: line, Err: err}
}

var forHeader = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s+in\s+(.+)$`)

type parser struct {
	segs []segment
	pos  int
}

// parseBody collects nodes until one of stops is reached. It returns the stop
// keyword and its segment, or an empty keyword at end of input.
func (p *parser) parseBody(stops ...string) ([]node, string, segment, error) {
	var nodes []node
	for p.pos < len(p.segs) {
		seg := p.segs[p.pos]
		p.pos++

		switch seg.kind {
		case segText:
			nodes = append(nodes, textNode{text: seg.text})
		case segOutput:
			e, err := parseExpression(seg.text, seg.line)
			if err != nil {
				return nil, "", seg, err
			}
			nodes = append(nodes, outputNode{expr: e, line: seg.line})
		case segTag:
			keyword, rest := splitTag(seg.text)
			for _, stop := range stops {
				if keyword == stop {
					return nodes, keyword, seg, nil
				}
			}

			var (
				n   node
				err error
			)
			switch keyword {
			case "if":
				n, err = p.parseIf(rest, seg.line)
			case "for":
				n, err = p.parseFor(rest, seg.line)
			case "elif", "else", "endif", "endfor":
				err = &SyntaxError{Line: seg.line, Message: fmt.Sprintf("unexpected {%% %s %%}", keyword)}
			case "":
				err = &SyntaxError{Line: seg.line, Message: "empty tag"}
			default:
				err = &SyntaxError{Line: seg.line, Message: fmt.Sprintf("unknown tag %q", keyword)}
			}
			if err != nil {
				return nil, "", seg, err
			}
			nodes = append(nodes, n)
		}
	}
	return nodes, "", segment{}, nil
}

func (p *parser) parseIf(cond string, line int) (node, error) {
	n := ifNode{line: line}
	condExpr, err := parseExpression(cond, line)
	if err != nil {
		return nil, err
	}

	for {
		body, stop, seg, err := p.parseBody("elif", "else", "endif")
		if err != nil {
			return nil, err
		}
		n.branches = append(n.branches, ifBranch{cond: condExpr, body: body})

		switch stop {
		case "elif":
			_, rest := splitTag(seg.text)
			condExpr, err = parseExpression(rest, seg.line)
			if err != nil {
				return nil, err
			}
		case "else":
			if err := bareTag(seg); err != nil {
				return nil, err
			}
			elseBody, stop, endSeg, err := p.parseBody("endif")
			if err != nil {
				return nil, err
			}
			if stop == "" {
				return nil, unclosed("if", line)
			}
			if err := bareTag(endSeg); err != nil {
				return nil, err
			}
			n.elseBody = elseBody
			return n, nil
		case "endif":
			if err := bareTag(seg); err != nil {
				return nil, err
			}
			return n, nil
		default:
			return nil, unclosed("if", line)
		}
	}
}

func (p *parser) parseFor(header string, line int) (node, error) {
	match := forHeader.FindStringSubmatch(strings.TrimSpace(header))
	if match == nil {
		return nil, &SyntaxError{Line: line, Message: "expected {% for <name> in <expression> %}"}
	}
	if _, reserved := keywords[match[1]]; reserved || match[1] == "loop" {
		return nil, &SyntaxError{Line: line, Message: fmt.Sprintf("cannot bind loop variable %q", match[1])}
	}
	seq, err := parseExpression(match[2], line)
	if err != nil {
		return nil, err
	}

	n := forNode{target: match[1], seq: seq, line: line}
	body, stop, seg, err := p.parseBody("else", "endfor")
	if err != nil {
		return nil, err
	}
	n.body = body

	if stop == "else" {
		if err := bareTag(seg); err != nil {
			return nil, err
		}
		n.elseBody, stop, seg, err = p.parseBody("endfor")
		if err != nil {
			return nil, err
		}
	}
	if stop == "" {
		return nil, unclosed("for", line)
	}
	if err := bareTag(seg); err != nil {
		return nil, err
	}
	return n, nil
}

func splitTag(text string) (string, string) {
	text = strings.TrimSpace(text)
	idx := strings.IndexAny(text, " \t\r\n")
	if idx < 0 {
		return text, ""
	}
	return text[:idx], strings.TrimSpace(text[idx:])
}

func bareTag(seg segment) error {
	keyword, rest := splitTag(seg.text)
	if rest != "" {
		return &SyntaxError{Line: seg.line, Message: fmt.Sprintf("{%% %s %%} takes no arguments", keyword)}
	}
	return nil
}

func unclosed(tag string, line int) error {
	return &SyntaxError{Line: line, Message: fmt.Sprintf("{%% %s %%} is never closed", tag)}
}
