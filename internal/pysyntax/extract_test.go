package pysyntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/4tyone/pyrethrum/internal/model"
)

func pyattr(module, attr string, line, col int) map[string]any {
	return pynode("Attribute", line, col, map[string]any{
		"value": pyname(module, line, col),
		"attr":  attr,
	})
}

func pycall(fn map[string]any, line, col int, args ...any) map[string]any {
	return pynode("Call", line, col, map[string]any{"func": fn, "args": args})
}

func pydef(name string, line int, decorators []any, body ...any) map[string]any {
	return pynode("FunctionDef", line, 0, map[string]any{
		"name":           name,
		"decorator_list": decorators,
		"body":           body,
	})
}

func raisesDecorator(line int, types ...any) map[string]any {
	return pycall(pyname("raises", line, 1), line, 1, types...)
}

func extractTree(t *testing.T, body ...any) *model.Report {
	t.Helper()
	mod, err := DecodeModule(map[string]any{"node_type": "Module", "body": body}, "app.py")
	require.NoError(t, err)
	return Extract(mod)
}

func TestExtract_RaisesSignature(t *testing.T) {
	report := extractTree(t,
		pydef("get_user", 2,
			[]any{raisesDecorator(1, pyname("NotFound", 1, 8), pyattr("errors", "InvalidId", 1, 18))},
		),
	)

	require.Len(t, report.Signatures, 1)
	sig := report.Signatures[0]
	assert.Equal(t, "get_user", sig.Name)
	assert.Empty(t, sig.QualifiedName)
	assert.Equal(t, model.KindRaises, sig.Kind)
	assert.False(t, sig.IsAsync)
	require.Len(t, sig.Declared, 2)
	assert.Equal(t, model.NamedFailure("NotFound"), sig.Declared[0])
	assert.Equal(t, model.QualifiedFailure("errors", "InvalidId"), sig.Declared[1])
}

func TestExtract_RaisesSignature_DropsNonNameArgs(t *testing.T) {
	report := extractTree(t,
		pydef("load", 2, []any{raisesDecorator(1,
			pyname("IOFailure", 1, 8),
			pynode("Constant", 1, 20, map[string]any{"value": "not a type"}),
		)}),
	)

	require.Len(t, report.Signatures, 1)
	require.Len(t, report.Signatures[0].Declared, 1)
	assert.Equal(t, "IOFailure", report.Signatures[0].Declared[0].Name)
}

func TestExtract_OptionSignature(t *testing.T) {
	report := extractTree(t,
		pynode("FunctionDef", 2, 0, map[string]any{
			"name":           "find_user",
			"decorator_list": []any{pyname("option", 1, 1)},
		}),
	)

	require.Len(t, report.Signatures, 1)
	sig := report.Signatures[0]
	assert.Equal(t, model.KindOption, sig.Kind)
	assert.Empty(t, sig.Declared, "option signatures declare no failure types")
}

func TestExtract_UndecoratedFunctionInvisible(t *testing.T) {
	report := extractTree(t, pydef("helper", 1, nil))
	assert.Empty(t, report.Signatures)
}

func TestExtract_NestedDefQualifiedByClass(t *testing.T) {
	report := extractTree(t,
		pynode("ClassDef", 1, 0, map[string]any{
			"name": "UserRepo",
			"body": []any{
				pydef("get", 3, []any{raisesDecorator(2, pyname("NotFound", 2, 8))}),
			},
		}),
	)

	require.Len(t, report.Signatures, 1)
	assert.Equal(t, "get", report.Signatures[0].Name)
	assert.Equal(t, "UserRepo.get", report.Signatures[0].QualifiedName)
}

func TestExtract_AsyncSignature(t *testing.T) {
	report := extractTree(t,
		pynode("AsyncFunctionDef", 2, 0, map[string]any{
			"name":           "fetch",
			"decorator_list": []any{raisesDecorator(1, pyname("Timeout", 1, 8))},
		}),
	)

	require.Len(t, report.Signatures, 1)
	assert.True(t, report.Signatures[0].IsAsync)
}

// assignCall builds `target = fn(...)`.
func assignCall(target, fn string, line int) map[string]any {
	return pynode("Assign", line, 0, map[string]any{
		"targets": []any{pyname(target, line, 0)},
		"value":   pycall(pyname(fn, line, len(target)+3), line, len(target)+3),
	})
}

func matchOn(subject map[string]any, line int, cases ...any) map[string]any {
	return pynode("Match", line, 0, map[string]any{"subject": subject, "cases": cases})
}

func caseClass(cls map[string]any, line int, inner ...any) map[string]any {
	return map[string]any{
		"node_type": "match_case",
		"pattern": pynode("MatchClass", line, 9, map[string]any{
			"cls":      cls,
			"patterns": inner,
		}),
		"body": []any{pynode("Pass", line+1, 8, nil)},
	}
}

func TestExtract_BoundVariableMatch(t *testing.T) {
	report := extractTree(t,
		pydef("get_user", 2, []any{raisesDecorator(1, pyname("NotFound", 1, 8))}),
		assignCall("res", "get_user", 5),
		matchOn(pyname("res", 6, 6), 6,
			caseClass(pyname("Ok", 7, 9), 7, pynode("MatchAs", 7, 12, map[string]any{"name": "user"})),
			caseClass(pyname("Err", 9, 9), 9, pynode("MatchClass", 9, 13, map[string]any{"cls": pyname("NotFound", 9, 13)})),
		),
	)

	require.Len(t, report.Matches, 1)
	site := report.Matches[0]
	assert.Equal(t, "get_user", site.FuncName)
	assert.Equal(t, model.HandlingStatement, site.Kind)
	assert.True(t, site.HasOk)
	assert.False(t, site.HasSome)
	require.Len(t, site.Handlers, 1)
	assert.Equal(t, model.NamedFailure("NotFound"), site.Handlers[0])
	require.NotNil(t, site.CallSpan)
	assert.Equal(t, 5, site.CallSpan.Line, "call span points at the producing call")

	assert.Empty(t, report.Unhandled, "the bound call was consumed by the match")
}

func TestExtract_RebindingUsesLastProducer(t *testing.T) {
	report := extractTree(t,
		pydef("get_user", 2, []any{raisesDecorator(1, pyname("NotFound", 1, 8))}),
		pydef("find_user", 4, []any{pyname("option", 3, 1)}),
		assignCall("res", "get_user", 6),
		assignCall("res", "find_user", 7),
		matchOn(pyname("res", 8, 6), 8,
			caseClass(pyname("Some", 9, 9), 9),
			caseClass(pyname("Nothing", 11, 9), 11),
		),
	)

	require.Len(t, report.Matches, 1)
	assert.Equal(t, "find_user", report.Matches[0].FuncName)
	assert.True(t, report.Matches[0].HasSome)
	assert.True(t, report.Matches[0].HasNothing)

	// The shadowed first call is never handled.
	require.Len(t, report.Unhandled, 1)
	assert.Equal(t, "get_user", report.Unhandled[0].FuncName)
	assert.Equal(t, model.KindRaises, report.Unhandled[0].Kind)
}

func TestExtract_DirectCallSubject(t *testing.T) {
	report := extractTree(t,
		pydef("get_user", 2, []any{raisesDecorator(1, pyname("NotFound", 1, 8))}),
		matchOn(pycall(pyname("get_user", 5, 6), 5, 6), 5,
			caseClass(pyname("Ok", 6, 9), 6),
		),
	)

	require.Len(t, report.Matches, 1)
	assert.Equal(t, "get_user", report.Matches[0].FuncName)
	assert.True(t, report.Matches[0].HasOk)
	assert.Empty(t, report.Unhandled)
}

func TestExtract_AwaitedSubject(t *testing.T) {
	report := extractTree(t,
		pynode("AsyncFunctionDef", 2, 0, map[string]any{
			"name":           "fetch",
			"decorator_list": []any{raisesDecorator(1, pyname("Timeout", 1, 8))},
		}),
		matchOn(pynode("Await", 5, 6, map[string]any{
			"value": pycall(pyname("fetch", 5, 12), 5, 12),
		}), 5,
			caseClass(pyname("Ok", 6, 9), 6),
		),
	)

	require.Len(t, report.Matches, 1)
	assert.Equal(t, "fetch", report.Matches[0].FuncName)
}

func TestExtract_DirectCallMarksLatestRecord(t *testing.T) {
	// A recorded-but-unmatched earlier binding of the same callee is
	// consumed by a later direct-call match.
	report := extractTree(t,
		pydef("get_user", 2, []any{raisesDecorator(1, pyname("NotFound", 1, 8))}),
		assignCall("res", "get_user", 5),
		matchOn(pycall(pyname("get_user", 6, 6), 6, 6), 6,
			caseClass(pyname("Ok", 7, 9), 7),
		),
	)

	assert.Empty(t, report.Unhandled)
}

func TestExtract_UnhandledCall(t *testing.T) {
	report := extractTree(t,
		pydef("get_user", 2, []any{raisesDecorator(1, pyname("NotFound", 1, 8))}),
		assignCall("res", "get_user", 5),
	)

	assert.Empty(t, report.Matches)
	require.Len(t, report.Unhandled, 1)
	assert.Equal(t, "get_user", report.Unhandled[0].FuncName)
	assert.Equal(t, 5, report.Unhandled[0].Span.Line)
	assert.Equal(t, model.KindRaises, report.Unhandled[0].Kind)
}

func TestExtract_UnhandledOptionCall(t *testing.T) {
	report := extractTree(t,
		pynode("FunctionDef", 2, 0, map[string]any{
			"name":           "find_user",
			"decorator_list": []any{pyname("option", 1, 1)},
		}),
		assignCall("res", "find_user", 4),
	)

	require.Len(t, report.Unhandled, 1)
	assert.Equal(t, model.KindOption, report.Unhandled[0].Kind)
}

func TestExtract_CallToUnannotatedFunctionIgnored(t *testing.T) {
	report := extractTree(t,
		pydef("helper", 1, nil),
		assignCall("x", "helper", 3),
	)

	assert.Empty(t, report.Unhandled)
}

func TestExtract_BindingAcrossScopes(t *testing.T) {
	// Bound in a function body, matched at module level: correlation state
	// is document-global, not per-scope.
	report := extractTree(t,
		pydef("get_user", 2, []any{raisesDecorator(1, pyname("NotFound", 1, 8))}),
		pydef("runner", 4, nil,
			assignCall("res", "get_user", 5),
		),
		matchOn(pyname("res", 7, 6), 7,
			caseClass(pyname("Ok", 8, 9), 8),
		),
	)

	require.Len(t, report.Matches, 1)
	assert.Equal(t, "get_user", report.Matches[0].FuncName)
	assert.Empty(t, report.Unhandled)
}

func TestExtract_ErrOrPatternFlattens(t *testing.T) {
	report := extractTree(t,
		pydef("get_user", 2, []any{raisesDecorator(1, pyname("NotFound", 1, 8), pyname("InvalidId", 1, 20))}),
		assignCall("res", "get_user", 5),
		matchOn(pyname("res", 6, 6), 6,
			caseClass(pyname("Ok", 7, 9), 7),
			map[string]any{
				"node_type": "match_case",
				"pattern": pynode("MatchClass", 8, 9, map[string]any{
					"cls": pyname("Err", 8, 9),
					"patterns": []any{
						pynode("MatchOr", 8, 13, map[string]any{
							"patterns": []any{
								pynode("MatchClass", 8, 13, map[string]any{"cls": pyname("NotFound", 8, 13)}),
								pynode("MatchClass", 8, 25, map[string]any{"cls": pyattr("errors", "InvalidId", 8, 25)}),
							},
						}),
					},
				}),
				"body": []any{},
			},
		),
	)

	require.Len(t, report.Matches, 1)
	handlers := report.Matches[0].Handlers
	require.Len(t, handlers, 2)
	assert.Equal(t, model.NamedFailure("NotFound"), handlers[0])
	assert.Equal(t, model.QualifiedFailure("errors", "InvalidId"), handlers[1])
}

func TestExtract_MatchAsWrappedOkPattern(t *testing.T) {
	report := extractTree(t,
		pydef("get_user", 2, []any{raisesDecorator(1, pyname("NotFound", 1, 8))}),
		assignCall("res", "get_user", 5),
		matchOn(pyname("res", 6, 6), 6,
			map[string]any{
				"node_type": "match_case",
				"pattern": pynode("MatchAs", 7, 9, map[string]any{
					"name": "ok_result",
					"pattern": pynode("MatchClass", 7, 9, map[string]any{
						"cls": pyname("Ok", 7, 9),
					}),
				}),
				"body": []any{},
			},
		),
	)

	require.Len(t, report.Matches, 1)
	assert.True(t, report.Matches[0].HasOk)
}

func TestExtract_UnresolvableSubjectProducesNoSite(t *testing.T) {
	report := extractTree(t,
		matchOn(pyname("unbound", 3, 6), 3,
			caseClass(pyname("Ok", 4, 9), 4),
		),
	)

	assert.Empty(t, report.Matches)
}

func TestExtract_Combinator(t *testing.T) {
	// match(get_user(1))({Ok: ..., NotFound: ..., "errors.InvalidId": ...})
	dict := pynode("Dict", 5, 20, map[string]any{
		"keys": []any{
			pyname("Ok", 5, 21),
			pyname("NotFound", 6, 4),
			pynode("Constant", 7, 4, map[string]any{"value": "errors.InvalidId"}),
		},
		"values": []any{
			pyname("on_ok", 5, 25),
			pyname("on_missing", 6, 14),
			pyname("on_invalid", 7, 24),
		},
	})
	outer := pynode("Call", 5, 0, map[string]any{
		"func": pycall(pyname("match", 5, 0), 5, 0, pycall(pyname("get_user", 5, 6), 5, 6)),
		"args": []any{dict},
	})

	report := extractTree(t,
		pydef("get_user", 2, []any{raisesDecorator(1, pyname("NotFound", 1, 8), pyname("InvalidId", 1, 20))}),
		pynode("Expr", 5, 0, map[string]any{"value": outer}),
	)

	require.Len(t, report.Matches, 1)
	site := report.Matches[0]
	assert.Equal(t, model.HandlingFunctionCall, site.Kind)
	assert.Equal(t, "get_user", site.FuncName)
	assert.True(t, site.HasOk)
	require.Len(t, site.Handlers, 2)
	assert.Equal(t, model.NamedFailure("NotFound"), site.Handlers[0])
	assert.Equal(t, model.QualifiedFailure("errors", "InvalidId"), site.Handlers[1])
	require.NotNil(t, site.CallSpan)
	assert.Equal(t, 5, site.CallSpan.Line)
}

func TestExtract_CombinatorWithBoundName(t *testing.T) {
	dict := pynode("Dict", 6, 18, map[string]any{
		"keys":   []any{pyname("some", 6, 19), pyname("nothing", 6, 30)},
		"values": []any{pyname("f", 6, 25), pyname("g", 6, 39)},
	})
	outer := pynode("Call", 6, 0, map[string]any{
		"func": pycall(pyname("match_async", 6, 0), 6, 0, pyname("res", 6, 12)),
		"args": []any{dict},
	})

	report := extractTree(t,
		pynode("FunctionDef", 2, 0, map[string]any{
			"name":           "find_user",
			"decorator_list": []any{pyname("option", 1, 1)},
		}),
		assignCall("res", "find_user", 4),
		pynode("Expr", 6, 0, map[string]any{"value": outer}),
	)

	require.Len(t, report.Matches, 1)
	site := report.Matches[0]
	assert.Equal(t, "find_user", site.FuncName)
	assert.True(t, site.HasSome)
	assert.True(t, site.HasNothing)
	assert.Empty(t, site.Handlers)
	assert.Empty(t, report.Unhandled, "the combinator consumed the bound call")
}

func TestExtract_ReportLanguageAndDefaults(t *testing.T) {
	report := extractTree(t)
	assert.Equal(t, "python", report.Language)
	assert.NotNil(t, report.Signatures)
	assert.NotNil(t, report.Matches)
	assert.NotNil(t, report.Unhandled)
}
