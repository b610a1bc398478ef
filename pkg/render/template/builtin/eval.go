package builtin

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-promptkit/pkg/render/template"
)

type scope struct {
	vars   map[string]any
	parent *scope
}

func (s *scope) lookup(name string) (any, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

type expr interface {
	eval(sc *scope) (any, error)
	// roots reports every root variable name the expression reads.
	roots(visit visitFunc)
}

// visitFunc receives a root variable name. optional is set when the read
// sits under a default filter, so an unbound name is not an error.
type visitFunc func(name string, optional bool)

type literalExpr struct{ value any }

func (e literalExpr) eval(*scope) (any, error) { return e.value, nil }

func (literalExpr) roots(visitFunc) {}

type listExpr struct{ items []expr }

func (e listExpr) eval(sc *scope) (any, error) {
	out := make([]any, len(e.items))
	for i, item := range e.items {
		v, err := item.eval(sc)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e listExpr) roots(visit visitFunc) {
	for _, item := range e.items {
		item.roots(visit)
	}
}

type pathExpr struct {
	parts []string
	line  int
}

func (e pathExpr) eval(sc *scope) (any, error) {
	current, ok := sc.lookup(e.parts[0])
	if !ok {
		return nil, &template.UndefinedError{Name: e.parts[0], Line: e.line}
	}
	for i, part := range e.parts[1:] {
		next, ok := attribute(current, part)
		if !ok {
			return nil, &template.UndefinedError{Name: strings.Join(e.parts[:i+2], "."), Line: e.line}
		}
		current = next
	}
	return current, nil
}

func (e pathExpr) roots(visit visitFunc) { visit(e.parts[0], false) }

type notExpr struct{ inner expr }

func (e notExpr) eval(sc *scope) (any, error) {
	v, err := e.inner.eval(sc)
	if err != nil {
		return nil, err
	}
	return !truthy(v), nil
}

func (e notExpr) roots(visit visitFunc) { e.inner.roots(visit) }

type andExpr struct{ left, right expr }

func (e andExpr) eval(sc *scope) (any, error) {
	l, err := e.left.eval(sc)
	if err != nil {
		return nil, err
	}
	if !truthy(l) {
		return false, nil
	}
	r, err := e.right.eval(sc)
	if err != nil {
		return nil, err
	}
	return truthy(r), nil
}

func (e andExpr) roots(visit visitFunc) {
	e.left.roots(visit)
	e.right.roots(visit)
}

type orExpr struct{ left, right expr }

func (e orExpr) eval(sc *scope) (any, error) {
	l, err := e.left.eval(sc)
	if err != nil {
		return nil, err
	}
	if truthy(l) {
		return true, nil
	}
	r, err := e.right.eval(sc)
	if err != nil {
		return nil, err
	}
	return truthy(r), nil
}

func (e orExpr) roots(visit visitFunc) {
	e.left.roots(visit)
	e.right.roots(visit)
}

type compareExpr struct {
	op          tokenKind
	left, right expr
}

func (e compareExpr) eval(sc *scope) (any, error) {
	l, err := e.left.eval(sc)
	if err != nil {
		return nil, err
	}
	r, err := e.right.eval(sc)
	if err != nil {
		return nil, err
	}

	switch e.op {
	case tokEq:
		return equal(l, r), nil
	case tokNeq:
		return !equal(l, r), nil
	}

	var cmp int
	if x, ok := toNumber(l); ok {
		y, ok := toNumber(r)
		if !ok {
			return nil, fmt.Errorf("cannot compare %s with %s", typeName(l), typeName(r))
		}
		switch {
		case x < y:
			cmp = -1
		case x > y:
			cmp = 1
		}
	} else if x, ok := l.(string); ok {
		y, ok := r.(string)
		if !ok {
			return nil, fmt.Errorf("cannot compare %s with %s", typeName(l), typeName(r))
		}
		cmp = strings.Compare(x, y)
	} else {
		return nil, fmt.Errorf("cannot order %s", typeName(l))
	}

	switch e.op {
	case tokLt:
		return cmp < 0, nil
	case tokLe:
		return cmp <= 0, nil
	case tokGt:
		return cmp > 0, nil
	default:
		return cmp >= 0, nil
	}
}

func (e compareExpr) roots(visit visitFunc) {
	e.left.roots(visit)
	e.right.roots(visit)
}

type inExpr struct {
	item, container expr
	negate          bool
}

func (e inExpr) eval(sc *scope) (any, error) {
	item, err := e.item.eval(sc)
	if err != nil {
		return nil, err
	}
	container, err := e.container.eval(sc)
	if err != nil {
		return nil, err
	}

	found := false
	switch c := container.(type) {
	case string:
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("'in <string>' requires a string operand, got %s", typeName(item))
		}
		found = strings.Contains(c, s)
	case map[string]any:
		if key, ok := item.(string); ok {
			_, found = c[key]
		}
	default:
		seq, ok := toSequence(container)
		if !ok {
			return nil, fmt.Errorf("cannot test membership in %s", typeName(container))
		}
		for _, candidate := range seq {
			if equal(item, candidate) {
				found = true
				break
			}
		}
	}
	return found != e.negate, nil
}

func (e inExpr) roots(visit visitFunc) {
	e.item.roots(visit)
	e.container.roots(visit)
}

type filterExpr struct {
	base expr
	name string
	args []expr
}

func (e filterExpr) eval(sc *scope) (any, error) {
	in, err := e.base.eval(sc)
	if err != nil {
		var undefined *template.UndefinedError
		if e.name != "default" || !errors.As(err, &undefined) {
			return nil, err
		}
		in = nil
	}

	args := make([]any, len(e.args))
	for i, arg := range e.args {
		v, err := arg.eval(sc)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	out, err := filters[e.name].fn(in, args)
	if err != nil {
		return nil, fmt.Errorf("filter %q: %w", e.name, err)
	}
	return out, nil
}

func (e filterExpr) roots(visit visitFunc) {
	if e.name == "default" {
		e.base.roots(func(name string, _ bool) { visit(name, true) })
	} else {
		e.base.roots(visit)
	}
	for _, arg := range e.args {
		arg.roots(visit)
	}
}

func attribute(v any, key string) (any, bool) {
	switch typed := v.(type) {
	case map[string]any:
		next, ok := typed[key]
		return next, ok
	case map[string]string:
		next, ok := typed[key]
		return next, ok
	}
	if seq, ok := toSequence(v); ok {
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= len(seq) {
			return nil, false
		}
		return seq[idx], true
	}
	return nil, false
}

func truthy(v any) bool {
	switch typed := v.(type) {
	case nil:
		return false
	case bool:
		return typed
	case string:
		return typed != ""
	case int:
		return typed != 0
	case int64:
		return typed != 0
	case float64:
		return typed != 0
	case map[string]any:
		return len(typed) > 0
	}
	if seq, ok := toSequence(v); ok {
		return len(seq) > 0
	}
	return true
}

func equal(a, b any) bool {
	if x, ok := toNumber(a); ok {
		y, ok := toNumber(b)
		return ok && x == y
	}
	if x, ok := toSequence(a); ok {
		y, ok := toSequence(b)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !equal(x[i], y[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

func toNumber(v any) (float64, bool) {
	switch typed := v.(type) {
	case int:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case float32:
		return float64(typed), true
	case float64:
		return typed, true
	default:
		return 0, false
	}
}

func toSequence(v any) ([]any, bool) {
	switch typed := v.(type) {
	case []any:
		return typed, true
	case []string:
		out := make([]any, len(typed))
		for i, s := range typed {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "none"
	case string:
		return "string"
	case bool:
		return "boolean"
	case map[string]any:
		return "mapping"
	}
	if _, ok := toNumber(v); ok {
		return "number"
	}
	if _, ok := toSequence(v); ok {
		return "sequence"
	}
	return fmt.Sprintf("%T", v)
}

// stringify formats a value the way Jinja prints it.
func stringify(v any) string {
	switch typed := v.(type) {
	case nil:
		return "None"
	case string:
		return typed
	case bool:
		if typed {
			return "True"
		}
		return "False"
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case float64:
		return strconv.FormatFloat(typed, 'g', -1, 64)
	case map[string]any:
		keys := make([]string, 0, len(typed))
		for k := range typed {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = repr(k) + ": " + repr(typed[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	if seq, ok := toSequence(v); ok {
		parts := make([]string, len(seq))
		for i, item := range seq {
			parts[i] = repr(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return fmt.Sprint(v)
}

func repr(v any) string {
	if s, ok := v.(string); ok {
		return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
	}
	return stringify(v)
}
