package pysyntax

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/4tyone/pyrethrum/internal/model"
)

// DecodeError reports a structurally malformed tree document. Path is a
// dotted trail through the fields that led to the failing node.
type DecodeError struct {
	Reason string
	Path   string
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return "decode: " + e.Reason
	}
	return fmt.Sprintf("decode: %s at %s", e.Reason, e.Path)
}

func decodeErr(path, format string, args ...any) error {
	return &DecodeError{Reason: fmt.Sprintf(format, args...), Path: path}
}

// DecodeModule converts a generic tagged tree into a syntax module. The tree
// is the JSON object graph produced by serializing a Python ast.Module:
// every node is an object whose node_type field discriminates its kind,
// optionally carrying lineno/col_offset/end_lineno/end_col_offset.
//
// Decoding is tolerant by construction: an unrecognized or missing
// discriminator yields an Unknown placeholder rather than an error, so
// extraction can continue past language features the grammar does not cover.
// Only structurally required identifiers (a name's id, an attribute's attr,
// a definition's name) abort the decode.
func DecodeModule(tree map[string]any, file string) (*Module, error) {
	d := &decoder{file: file}
	span := d.nodeSpan(tree, model.Span{File: file, Line: 1})
	body, err := d.stmtList(tree, "body", "", span)
	if err != nil {
		return nil, err
	}
	return &Module{Body: body, Loc: span}, nil
}

// DecodeModuleJSON is DecodeModule over raw JSON bytes.
func DecodeModuleJSON(data []byte, file string) (*Module, error) {
	var tree map[string]any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, eris.Wrap(err, "pysyntax: unmarshal tree")
	}
	return DecodeModule(tree, file)
}

type decoder struct {
	file string
}

// nodeSpan reads position fields from a node, inheriting the enclosing
// node's start position for anything missing.
func (d *decoder) nodeSpan(node map[string]any, enclosing model.Span) model.Span {
	span := model.Span{
		File:    d.file,
		Line:    enclosing.Line,
		Col:     enclosing.Col,
		EndLine: enclosing.Line,
		EndCol:  enclosing.Col,
	}
	if v, ok := intField(node, "lineno"); ok {
		span.Line = v
		span.EndLine = v
	}
	if v, ok := intField(node, "col_offset"); ok {
		span.Col = v
		span.EndCol = v
	}
	if v, ok := intField(node, "end_lineno"); ok {
		span.EndLine = v
	}
	if v, ok := intField(node, "end_col_offset"); ok {
		span.EndCol = v
	}
	return span
}

func (d *decoder) stmt(v any, path string, enclosing model.Span) (Stmt, error) {
	node, ok := v.(map[string]any)
	if !ok {
		return &UnknownStmt{Loc: startOf(enclosing)}, nil
	}
	span := d.nodeSpan(node, enclosing)
	tag, _ := node["node_type"].(string)

	switch tag {
	case "FunctionDef", "AsyncFunctionDef":
		name, ok := node["name"].(string)
		if !ok || name == "" {
			return nil, decodeErr(path, "function definition without a name")
		}
		decorators, err := d.exprList(node, "decorator_list", path, span)
		if err != nil {
			return nil, err
		}
		body, err := d.stmtList(node, "body", path, span)
		if err != nil {
			return nil, err
		}
		return &FunctionDef{
			Name:       name,
			Decorators: decorators,
			Body:       body,
			IsAsync:    tag == "AsyncFunctionDef",
			Loc:        span,
		}, nil

	case "ClassDef":
		name, ok := node["name"].(string)
		if !ok || name == "" {
			return nil, decodeErr(path, "class definition without a name")
		}
		body, err := d.stmtList(node, "body", path, span)
		if err != nil {
			return nil, err
		}
		return &ClassDef{Name: name, Body: body, Loc: span}, nil

	case "Assign":
		targets, err := d.exprList(node, "targets", path, span)
		if err != nil {
			return nil, err
		}
		value, err := d.exprField(node, "value", path, span)
		if err != nil {
			return nil, err
		}
		return &Assign{Targets: targets, Value: value, Loc: span}, nil

	case "AnnAssign", "AugAssign":
		// Single-target assignment forms share the Assign shape.
		target, err := d.exprField(node, "target", path, span)
		if err != nil {
			return nil, err
		}
		value, err := d.exprField(node, "value", path, span)
		if err != nil {
			return nil, err
		}
		return &Assign{Targets: []Expr{target}, Value: value, Loc: span}, nil

	case "Return":
		var value Expr
		if node["value"] != nil {
			v, err := d.exprField(node, "value", path, span)
			if err != nil {
				return nil, err
			}
			value = v
		}
		return &Return{Value: value, Loc: span}, nil

	case "Expr":
		value, err := d.exprField(node, "value", path, span)
		if err != nil {
			return nil, err
		}
		return &ExprStmt{Value: value, Loc: span}, nil

	case "If":
		test, err := d.exprField(node, "test", path, span)
		if err != nil {
			return nil, err
		}
		body, err := d.stmtList(node, "body", path, span)
		if err != nil {
			return nil, err
		}
		orelse, err := d.stmtList(node, "orelse", path, span)
		if err != nil {
			return nil, err
		}
		return &If{Test: test, Body: body, Orelse: orelse, Loc: span}, nil

	case "While":
		test, err := d.exprField(node, "test", path, span)
		if err != nil {
			return nil, err
		}
		body, err := d.stmtList(node, "body", path, span)
		if err != nil {
			return nil, err
		}
		orelse, err := d.stmtList(node, "orelse", path, span)
		if err != nil {
			return nil, err
		}
		return &While{Test: test, Body: body, Orelse: orelse, Loc: span}, nil

	case "For", "AsyncFor":
		target, err := d.exprField(node, "target", path, span)
		if err != nil {
			return nil, err
		}
		iter, err := d.exprField(node, "iter", path, span)
		if err != nil {
			return nil, err
		}
		body, err := d.stmtList(node, "body", path, span)
		if err != nil {
			return nil, err
		}
		orelse, err := d.stmtList(node, "orelse", path, span)
		if err != nil {
			return nil, err
		}
		return &For{Target: target, Iter: iter, Body: body, Orelse: orelse, Loc: span}, nil

	case "With", "AsyncWith":
		items, err := d.withItems(node, path, span)
		if err != nil {
			return nil, err
		}
		body, err := d.stmtList(node, "body", path, span)
		if err != nil {
			return nil, err
		}
		return &With{Items: items, Body: body, Loc: span}, nil

	case "Try", "TryStar":
		body, err := d.stmtList(node, "body", path, span)
		if err != nil {
			return nil, err
		}
		handlers, err := d.handlerBodies(node, path, span)
		if err != nil {
			return nil, err
		}
		orelse, err := d.stmtList(node, "orelse", path, span)
		if err != nil {
			return nil, err
		}
		finalbody, err := d.stmtList(node, "finalbody", path, span)
		if err != nil {
			return nil, err
		}
		return &Try{Body: body, Handlers: handlers, Orelse: orelse, Finalbody: finalbody, Loc: span}, nil

	case "Match":
		subject, err := d.exprField(node, "subject", path, span)
		if err != nil {
			return nil, err
		}
		cases, err := d.matchCases(node, path, span)
		if err != nil {
			return nil, err
		}
		return &Match{Subject: subject, Cases: cases, Loc: span}, nil

	default:
		return &UnknownStmt{Tag: tag, Loc: span}, nil
	}
}

func (d *decoder) expr(v any, path string, enclosing model.Span) (Expr, error) {
	node, ok := v.(map[string]any)
	if !ok {
		return &UnknownExpr{Loc: startOf(enclosing)}, nil
	}
	span := d.nodeSpan(node, enclosing)
	tag, _ := node["node_type"].(string)

	switch tag {
	case "Name":
		id, ok := node["id"].(string)
		if !ok || id == "" {
			return nil, decodeErr(path, "name without an id")
		}
		return &Name{ID: id, Loc: span}, nil

	case "Attribute":
		attr, ok := node["attr"].(string)
		if !ok || attr == "" {
			return nil, decodeErr(path, "attribute without an attr")
		}
		value, err := d.exprField(node, "value", path, span)
		if err != nil {
			return nil, err
		}
		return &Attribute{Value: value, Attr: attr, Loc: span}, nil

	case "Call":
		fn, err := d.exprField(node, "func", path, span)
		if err != nil {
			return nil, err
		}
		args, err := d.exprList(node, "args", path, span)
		if err != nil {
			return nil, err
		}
		keywords, err := d.keywords(node, path, span)
		if err != nil {
			return nil, err
		}
		return &Call{Func: fn, Args: args, Keywords: keywords, Loc: span}, nil

	case "Constant":
		return &Constant{Value: node["value"], Loc: span}, nil

	case "Await":
		value, err := d.exprField(node, "value", path, span)
		if err != nil {
			return nil, err
		}
		return &Await{Value: value, Loc: span}, nil

	case "Dict":
		keysRaw, _ := node["keys"].([]any)
		valuesRaw, _ := node["values"].([]any)
		keys := make([]Expr, 0, len(keysRaw))
		values := make([]Expr, 0, len(valuesRaw))
		for i, kv := range keysRaw {
			if kv == nil {
				keys = append(keys, nil) // **mapping expansion
				continue
			}
			k, err := d.expr(kv, fmt.Sprintf("%s.keys[%d]", path, i), span)
			if err != nil {
				return nil, err
			}
			keys = append(keys, k)
		}
		for i, vv := range valuesRaw {
			val, err := d.expr(vv, fmt.Sprintf("%s.values[%d]", path, i), span)
			if err != nil {
				return nil, err
			}
			values = append(values, val)
		}
		return &Dict{Keys: keys, Values: values, Loc: span}, nil

	default:
		return &UnknownExpr{Tag: tag, Loc: span}, nil
	}
}

func (d *decoder) pattern(v any, path string, enclosing model.Span) (Pattern, error) {
	node, ok := v.(map[string]any)
	if !ok {
		return &UnknownPattern{Loc: startOf(enclosing)}, nil
	}
	span := d.nodeSpan(node, enclosing)
	tag, _ := node["node_type"].(string)

	switch tag {
	case "MatchClass":
		cls, err := d.exprField(node, "cls", path, span)
		if err != nil {
			return nil, err
		}
		patterns, err := d.patternList(node, "patterns", path, span)
		if err != nil {
			return nil, err
		}
		kwd, err := d.patternList(node, "kwd_patterns", path, span)
		if err != nil {
			return nil, err
		}
		return &MatchClass{Cls: cls, Patterns: patterns, KwdPatterns: kwd, Loc: span}, nil

	case "MatchAs":
		var inner Pattern
		if node["pattern"] != nil {
			p, err := d.pattern(node["pattern"], path+".pattern", span)
			if err != nil {
				return nil, err
			}
			inner = p
		}
		name, _ := node["name"].(string)
		return &MatchAs{Pattern: inner, Name: name, Loc: span}, nil

	case "MatchValue":
		value, err := d.exprField(node, "value", path, span)
		if err != nil {
			return nil, err
		}
		return &MatchValue{Value: value, Loc: span}, nil

	case "MatchOr":
		patterns, err := d.patternList(node, "patterns", path, span)
		if err != nil {
			return nil, err
		}
		return &MatchOr{Patterns: patterns, Loc: span}, nil

	default:
		return &UnknownPattern{Tag: tag, Loc: span}, nil
	}
}

// -- field helpers --

func (d *decoder) stmtList(node map[string]any, field, path string, span model.Span) ([]Stmt, error) {
	raw, _ := node[field].([]any)
	out := make([]Stmt, 0, len(raw))
	for i, v := range raw {
		s, err := d.stmt(v, fmt.Sprintf("%s[%d]", childPath(path, field), i), span)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (d *decoder) exprList(node map[string]any, field, path string, span model.Span) ([]Expr, error) {
	raw, _ := node[field].([]any)
	out := make([]Expr, 0, len(raw))
	for i, v := range raw {
		e, err := d.expr(v, fmt.Sprintf("%s[%d]", childPath(path, field), i), span)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (d *decoder) patternList(node map[string]any, field, path string, span model.Span) ([]Pattern, error) {
	raw, _ := node[field].([]any)
	out := make([]Pattern, 0, len(raw))
	for i, v := range raw {
		p, err := d.pattern(v, fmt.Sprintf("%s[%d]", childPath(path, field), i), span)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// exprField decodes a required nested expression, defaulting to an Unknown
// placeholder when the field is absent.
func (d *decoder) exprField(node map[string]any, field, path string, span model.Span) (Expr, error) {
	v, ok := node[field]
	if !ok || v == nil {
		return &UnknownExpr{Loc: startOf(span)}, nil
	}
	return d.expr(v, path+"."+field, span)
}

func (d *decoder) keywords(node map[string]any, path string, span model.Span) ([]Keyword, error) {
	raw, _ := node["keywords"].([]any)
	out := make([]Keyword, 0, len(raw))
	for i, v := range raw {
		kw, ok := v.(map[string]any)
		if !ok {
			continue
		}
		kwPath := fmt.Sprintf("%s.keywords[%d]", path, i)
		kwSpan := d.nodeSpan(kw, span)
		arg, _ := kw["arg"].(string)
		value, err := d.exprField(kw, "value", kwPath, kwSpan)
		if err != nil {
			return nil, err
		}
		out = append(out, Keyword{Arg: arg, Value: value, Loc: kwSpan})
	}
	return out, nil
}

func (d *decoder) withItems(node map[string]any, path string, span model.Span) ([]Expr, error) {
	raw, _ := node["items"].([]any)
	out := make([]Expr, 0, len(raw))
	for i, v := range raw {
		item, ok := v.(map[string]any)
		if !ok {
			continue
		}
		e, err := d.exprField(item, "context_expr", fmt.Sprintf("%s.items[%d]", path, i), span)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (d *decoder) handlerBodies(node map[string]any, path string, span model.Span) ([][]Stmt, error) {
	raw, _ := node["handlers"].([]any)
	out := make([][]Stmt, 0, len(raw))
	for i, v := range raw {
		h, ok := v.(map[string]any)
		if !ok {
			continue
		}
		hSpan := d.nodeSpan(h, span)
		body, err := d.stmtList(h, "body", fmt.Sprintf("%s.handlers[%d]", path, i), hSpan)
		if err != nil {
			return nil, err
		}
		out = append(out, body)
	}
	return out, nil
}

func (d *decoder) matchCases(node map[string]any, path string, span model.Span) ([]MatchCase, error) {
	raw, _ := node["cases"].([]any)
	out := make([]MatchCase, 0, len(raw))
	for i, v := range raw {
		c, ok := v.(map[string]any)
		if !ok {
			continue
		}
		cPath := fmt.Sprintf("%s.cases[%d]", path, i)
		cSpan := d.nodeSpan(c, span)
		var pattern Pattern
		if c["pattern"] != nil {
			p, err := d.pattern(c["pattern"], cPath+".pattern", cSpan)
			if err != nil {
				return nil, err
			}
			pattern = p
		} else {
			pattern = &UnknownPattern{Loc: startOf(cSpan)}
		}
		var guard Expr
		if c["guard"] != nil {
			g, err := d.expr(c["guard"], cPath+".guard", cSpan)
			if err != nil {
				return nil, err
			}
			guard = g
		}
		body, err := d.stmtList(c, "body", cPath, cSpan)
		if err != nil {
			return nil, err
		}
		out = append(out, MatchCase{Pattern: pattern, Guard: guard, Body: body, Loc: cSpan})
	}
	return out, nil
}

// childPath joins a field name onto a dotted path.
func childPath(path, field string) string {
	if path == "" {
		return field
	}
	return path + "." + field
}

// startOf collapses a span to its start position, the default for nodes that
// carry no position of their own.
func startOf(s model.Span) model.Span {
	return model.Span{File: s.File, Line: s.Line, Col: s.Col, EndLine: s.Line, EndCol: s.Col}
}

func intField(node map[string]any, field string) (int, bool) {
	switch v := node[field].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}
