package pysyntax

import (
	"strings"

	"github.com/4tyone/pyrethrum/internal/model"
)

// Decorator and combinator names recognized as annotation markers.
const (
	raisesMarker    = "raises"
	optionMarker    = "option"
	combinatorName  = "match"
	combinatorAsync = "match_async"
)

// callRecord tracks one recorded call to a signature-bearing function and
// whether a handling site ever consumed its result.
type callRecord struct {
	funcName string
	span     model.Span
	handled  bool
}

// extraction is the mutable state of one traversal. It is deliberately
// document-global rather than per-scope: an annotated call's result may be
// bound in one scope and matched in another, so bindings and call records
// survive scope boundaries. The innermost class name is the only scoped
// piece, used to qualify nested definition names.
type extraction struct {
	signatures []model.Signature
	sites      []model.HandlingSite
	sigIndex   map[string]model.Signature
	bindings   map[string]int
	calls      []callRecord
	class      string
}

// Extract walks a decoded module once, in preorder, and produces the
// canonical analysis report: declared signatures, handling sites, and call
// records whose results were never handled.
func Extract(mod *Module) *model.Report {
	ex := &extraction{
		sigIndex: make(map[string]model.Signature),
		bindings: make(map[string]int),
	}
	ex.walkStmts(mod.Body)

	report := &model.Report{
		Language:   "python",
		Signatures: ex.signatures,
		Matches:    ex.sites,
	}
	for _, rec := range ex.calls {
		if rec.handled {
			continue
		}
		kind := model.KindRaises
		if sig, ok := ex.sigIndex[rec.funcName]; ok {
			kind = sig.Kind
		}
		report.Unhandled = append(report.Unhandled, model.UnhandledCall{
			FuncName: rec.funcName,
			Span:     rec.span,
			Kind:     kind,
		})
	}
	report.ApplyDefaults()
	return report
}

func (ex *extraction) walkStmts(stmts []Stmt) {
	for _, s := range stmts {
		ex.walkStmt(s)
	}
}

func (ex *extraction) walkStmt(s Stmt) {
	switch v := s.(type) {
	case *FunctionDef:
		ex.collectSignature(v)
		ex.walkStmts(v.Body)

	case *ClassDef:
		prev := ex.class
		ex.class = v.Name
		ex.walkStmts(v.Body)
		ex.class = prev

	case *Assign:
		ex.walkExpr(v.Value)
		ex.recordBinding(v)

	case *Return:
		ex.walkExpr(v.Value)

	case *ExprStmt:
		ex.walkExpr(v.Value)

	case *If:
		ex.walkExpr(v.Test)
		ex.walkStmts(v.Body)
		ex.walkStmts(v.Orelse)

	case *While:
		ex.walkExpr(v.Test)
		ex.walkStmts(v.Body)
		ex.walkStmts(v.Orelse)

	case *For:
		ex.walkExpr(v.Iter)
		ex.walkStmts(v.Body)
		ex.walkStmts(v.Orelse)

	case *With:
		for _, item := range v.Items {
			ex.walkExpr(item)
		}
		ex.walkStmts(v.Body)

	case *Try:
		ex.walkStmts(v.Body)
		for _, h := range v.Handlers {
			ex.walkStmts(h)
		}
		ex.walkStmts(v.Orelse)
		ex.walkStmts(v.Finalbody)

	case *Match:
		ex.handleMatch(v)
	}
}

// walkExpr scans an expression tree for match-combinator calls.
func (ex *extraction) walkExpr(e Expr) {
	switch v := e.(type) {
	case nil:
		return
	case *Call:
		if ex.tryCombinator(v) {
			return
		}
		ex.walkExpr(v.Func)
		for _, a := range v.Args {
			ex.walkExpr(a)
		}
		for _, kw := range v.Keywords {
			ex.walkExpr(kw.Value)
		}
	case *Attribute:
		ex.walkExpr(v.Value)
	case *Await:
		ex.walkExpr(v.Value)
	case *Dict:
		for _, k := range v.Keys {
			ex.walkExpr(k)
		}
		for _, val := range v.Values {
			ex.walkExpr(val)
		}
	}
}

// -- signature detection --

// collectSignature turns a decorated definition into a signature. A raises
// marker yields a fallible signature whose call arguments become declared
// failure types; an option marker yields an optional-result signature with
// none. Definitions carrying neither marker stay invisible to the checker.
func (ex *extraction) collectSignature(def *FunctionDef) {
	for _, dec := range def.Decorators {
		marker, args := decoratorMarker(dec)
		switch marker {
		case raisesMarker:
			declared := make([]model.FailureType, 0, len(args))
			for _, a := range args {
				if ft, ok := failureTypeFromExpr(a); ok {
					declared = append(declared, ft)
				}
			}
			ex.addSignature(def, model.KindRaises, declared)
			return
		case optionMarker:
			ex.addSignature(def, model.KindOption, nil)
			return
		}
	}
}

func (ex *extraction) addSignature(def *FunctionDef, kind model.SignatureKind, declared []model.FailureType) {
	if declared == nil {
		declared = []model.FailureType{}
	}
	sig := model.Signature{
		Name:     def.Name,
		Declared: declared,
		Kind:     kind,
		Span:     def.Loc,
		IsAsync:  def.IsAsync,
	}
	if ex.class != "" {
		sig.QualifiedName = ex.class + "." + def.Name
	}
	ex.signatures = append(ex.signatures, sig)
	ex.sigIndex[sig.Name] = sig
}

// decoratorMarker recognizes @raises(...), @option and their dotted
// spellings, returning the marker name and any call arguments.
func decoratorMarker(dec Expr) (string, []Expr) {
	switch v := dec.(type) {
	case *Call:
		return terminalName(v.Func), v.Args
	case *Name, *Attribute:
		return terminalName(v), nil
	default:
		return "", nil
	}
}

// failureTypeFromExpr converts a decorator argument or handler key into a
// failure type: bare identifiers become named types, attribute access
// becomes a qualified type, anything else is dropped.
func failureTypeFromExpr(e Expr) (model.FailureType, bool) {
	switch v := e.(type) {
	case *Name:
		return model.NamedFailure(v.ID), true
	case *Attribute:
		module := DottedName(v.Value)
		if module == "" {
			return model.FailureType{}, false
		}
		return model.QualifiedFailure(module, v.Attr), true
	default:
		return model.FailureType{}, false
	}
}

// -- binding correlation --

// recordBinding appends a call record when an assignment's right-hand side
// calls a signature-bearing function, and binds each simple-name target to
// that record's chronological index. Later bindings of the same variable
// overwrite earlier ones: only the last-known producing call counts.
func (ex *extraction) recordBinding(assign *Assign) {
	call, ok := unwrapCall(assign.Value)
	if !ok {
		return
	}
	name := terminalName(call.Func)
	if name == "" {
		return
	}
	if _, known := ex.sigIndex[name]; !known {
		return
	}
	ex.calls = append(ex.calls, callRecord{funcName: name, span: call.Loc})
	idx := len(ex.calls) - 1
	for _, target := range assign.Targets {
		if n, ok := target.(*Name); ok {
			ex.bindings[n.ID] = idx
		}
	}
}

// markLastCall flags the most recently recorded call to name as handled.
func (ex *extraction) markLastCall(name string) *callRecord {
	for i := len(ex.calls) - 1; i >= 0; i-- {
		if ex.calls[i].funcName == name {
			ex.calls[i].handled = true
			return &ex.calls[i]
		}
	}
	return nil
}

// -- structural match statements --

func (ex *extraction) handleMatch(m *Match) {
	funcName, callSpan := ex.resolveSubject(m.Subject)
	if funcName != "" {
		site := model.HandlingSite{
			FuncName: funcName,
			Span:     m.Loc,
			CallSpan: callSpan,
			Kind:     model.HandlingStatement,
		}
		site.Handlers, site.HasOk, site.HasSome, site.HasNothing = analyzeCases(m.Cases)
		if site.Handlers == nil {
			site.Handlers = []model.FailureType{}
		}
		ex.sites = append(ex.sites, site)
	} else {
		ex.walkExpr(m.Subject)
	}
	for _, c := range m.Cases {
		ex.walkExpr(c.Guard)
		ex.walkStmts(c.Body)
	}
}

// resolveSubject maps a match subject back to the function that produced it.
// A bound variable goes through the correlation table; a direct call uses
// its callee name and marks the latest matching call record handled.
func (ex *extraction) resolveSubject(subject Expr) (string, *model.Span) {
	switch v := subject.(type) {
	case *Name:
		idx, ok := ex.bindings[v.ID]
		if !ok {
			return "", nil
		}
		rec := &ex.calls[idx]
		rec.handled = true
		span := rec.span
		return rec.funcName, &span
	default:
		call, ok := unwrapCall(subject)
		if !ok {
			return "", nil
		}
		name := terminalName(call.Func)
		if name == "" {
			return "", nil
		}
		if rec := ex.markLastCall(name); rec != nil {
			span := rec.span
			return name, &span
		}
		span := call.Loc
		return name, &span
	}
}

// analyzeCases folds the pattern arms of a match statement into the handled
// set: Ok/Some/Nothing class patterns set their flags, Err patterns
// contribute their inner patterns as failure types.
func analyzeCases(cases []MatchCase) (handlers []model.FailureType, hasOk, hasSome, hasNothing bool) {
	var visit func(p Pattern)
	visit = func(p Pattern) {
		switch v := unwrapAs(p).(type) {
		case *MatchClass:
			switch terminalName(v.Cls) {
			case "Ok":
				hasOk = true
			case "Some":
				hasSome = true
			case "Nothing":
				hasNothing = true
			case "Err":
				for _, inner := range v.Patterns {
					handlers = append(handlers, failureTypesFromPattern(inner)...)
				}
				for _, inner := range v.KwdPatterns {
					handlers = append(handlers, failureTypesFromPattern(inner)...)
				}
			}
		case *MatchOr:
			for _, alt := range v.Patterns {
				visit(alt)
			}
		}
	}
	for _, c := range cases {
		visit(c.Pattern)
	}
	return handlers, hasOk, hasSome, hasNothing
}

// failureTypesFromPattern resolves an Err(...) inner pattern to the failure
// types it handles. Or-patterns flatten into their alternatives.
func failureTypesFromPattern(p Pattern) []model.FailureType {
	switch v := unwrapAs(p).(type) {
	case *MatchClass:
		if ft, ok := failureTypeFromExpr(v.Cls); ok {
			return []model.FailureType{ft}
		}
	case *MatchValue:
		if ft, ok := failureTypeFromExpr(v.Value); ok {
			return []model.FailureType{ft}
		}
	case *MatchOr:
		var out []model.FailureType
		for _, alt := range v.Patterns {
			out = append(out, failureTypesFromPattern(alt)...)
		}
		return out
	}
	return nil
}

// unwrapAs strips binding patterns, e.g. `case Ok(v) as result:`.
func unwrapAs(p Pattern) Pattern {
	for {
		as, ok := p.(*MatchAs)
		if !ok || as.Pattern == nil {
			return p
		}
		p = as.Pattern
	}
}

// -- functional match-combinator calls --

// tryCombinator recognizes the curried combinator form
// match(target)(handlers) and its async variant, recording a handling site
// whose handled set comes from the handler dictionary's keys.
func (ex *extraction) tryCombinator(outer *Call) bool {
	inner, ok := outer.Func.(*Call)
	if !ok {
		return false
	}
	switch terminalName(inner.Func) {
	case combinatorName, combinatorAsync:
	default:
		return false
	}
	if len(inner.Args) == 0 {
		return false
	}

	funcName, callSpan := ex.resolveCombinatorTarget(inner.Args[0])
	if funcName == "" {
		return false
	}

	site := model.HandlingSite{
		FuncName: funcName,
		Handlers: []model.FailureType{},
		Span:     outer.Loc,
		CallSpan: callSpan,
		Kind:     model.HandlingFunctionCall,
	}
	for _, arg := range outer.Args {
		dict, ok := arg.(*Dict)
		if !ok {
			continue
		}
		for i, key := range dict.Keys {
			applyHandlerKey(&site, key)
			if i < len(dict.Values) {
				ex.walkExpr(dict.Values[i])
			}
		}
	}
	ex.sites = append(ex.sites, site)
	return true
}

// resolveCombinatorTarget reads the target function name from the
// combinator's first argument: a direct call yields its callee, a bare name
// resolves through the correlation table before falling back to itself.
func (ex *extraction) resolveCombinatorTarget(arg Expr) (string, *model.Span) {
	if call, ok := unwrapCall(arg); ok {
		name := terminalName(call.Func)
		if name == "" {
			return "", nil
		}
		span := call.Loc
		return name, &span
	}
	if n, ok := arg.(*Name); ok {
		if idx, bound := ex.bindings[n.ID]; bound {
			rec := &ex.calls[idx]
			rec.handled = true
			span := rec.span
			return rec.funcName, &span
		}
		return n.ID, nil
	}
	return "", nil
}

// applyHandlerKey maps one handler-dictionary key onto the handled set,
// using the same Ok/Some/Nothing/failure-type mapping as match patterns.
func applyHandlerKey(site *model.HandlingSite, key Expr) {
	switch outcomeName(key) {
	case "Ok", "ok":
		site.HasOk = true
	case "Some", "some":
		site.HasSome = true
	case "Nothing", "nothing":
		site.HasNothing = true
	default:
		if ft, ok := failureTypeFromKey(key); ok {
			site.Handlers = append(site.Handlers, ft)
		}
	}
}

func failureTypeFromKey(key Expr) (model.FailureType, bool) {
	if c, ok := key.(*Constant); ok {
		if s, ok := c.Value.(string); ok && s != "" {
			if i := strings.LastIndex(s, "."); i > 0 && i < len(s)-1 {
				return model.QualifiedFailure(s[:i], s[i+1:]), true
			}
			return model.NamedFailure(s), true
		}
		return model.FailureType{}, false
	}
	return failureTypeFromExpr(key)
}

// outcomeName extracts the comparable name of a handler key, whether it is
// written as an identifier, an attribute, or a string literal.
func outcomeName(key Expr) string {
	switch v := key.(type) {
	case *Constant:
		s, _ := v.Value.(string)
		return s
	default:
		return terminalName(v)
	}
}

// -- shared expression helpers --

// unwrapCall returns the call underneath an optional await.
func unwrapCall(e Expr) (*Call, bool) {
	switch v := e.(type) {
	case *Call:
		return v, true
	case *Await:
		if c, ok := v.Value.(*Call); ok {
			return c, true
		}
	}
	return nil, false
}

// terminalName returns the final segment of a name or attribute chain.
func terminalName(e Expr) string {
	switch v := e.(type) {
	case *Name:
		return v.ID
	case *Attribute:
		return v.Attr
	default:
		return ""
	}
}
