package pysyntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pynode builds a tagged tree node the way Python's ast serializer does.
func pynode(typ string, line, col int, fields map[string]any) map[string]any {
	node := map[string]any{
		"node_type":      typ,
		"lineno":         float64(line),
		"col_offset":     float64(col),
		"end_lineno":     float64(line),
		"end_col_offset": float64(col + 1),
	}
	for k, v := range fields {
		node[k] = v
	}
	return node
}

func pyname(id string, line, col int) map[string]any {
	return pynode("Name", line, col, map[string]any{"id": id})
}

func TestDecodeModule_FunctionDef(t *testing.T) {
	tree := map[string]any{
		"node_type": "Module",
		"body": []any{
			pynode("FunctionDef", 2, 0, map[string]any{
				"name": "get_user",
				"decorator_list": []any{
					pynode("Call", 1, 1, map[string]any{
						"func": pyname("raises", 1, 1),
						"args": []any{pyname("NotFound", 1, 8)},
					}),
				},
				"body": []any{pynode("Return", 3, 4, map[string]any{})},
			}),
		},
	}

	mod, err := DecodeModule(tree, "app.py")
	require.NoError(t, err)
	require.Len(t, mod.Body, 1)

	def, ok := mod.Body[0].(*FunctionDef)
	require.True(t, ok)
	assert.Equal(t, "get_user", def.Name)
	assert.False(t, def.IsAsync)
	assert.Equal(t, 2, def.Loc.Line)
	assert.Equal(t, "app.py", def.Loc.File)
	require.Len(t, def.Decorators, 1)

	dec, ok := def.Decorators[0].(*Call)
	require.True(t, ok)
	assert.Equal(t, "raises", DottedName(dec.Func))
	require.Len(t, def.Body, 1)
	_, ok = def.Body[0].(*Return)
	assert.True(t, ok)
}

func TestDecodeModule_AsyncFunctionDef(t *testing.T) {
	tree := map[string]any{
		"node_type": "Module",
		"body": []any{
			pynode("AsyncFunctionDef", 1, 0, map[string]any{"name": "fetch"}),
		},
	}

	mod, err := DecodeModule(tree, "app.py")
	require.NoError(t, err)

	def := mod.Body[0].(*FunctionDef)
	assert.True(t, def.IsAsync)
	assert.Empty(t, def.Body, "missing list fields default to empty")
	assert.Empty(t, def.Decorators)
}

func TestDecodeModule_UnknownStatementPreserved(t *testing.T) {
	tree := map[string]any{
		"node_type": "Module",
		"body": []any{
			pynode("Global", 4, 0, map[string]any{"names": []any{"x"}}),
			map[string]any{"no_discriminator": true},
		},
	}

	mod, err := DecodeModule(tree, "app.py")
	require.NoError(t, err, "unrecognized constructs never abort decoding")
	require.Len(t, mod.Body, 2)

	unknown, ok := mod.Body[0].(*UnknownStmt)
	require.True(t, ok)
	assert.Equal(t, "Global", unknown.Tag)
	assert.Equal(t, 4, unknown.Loc.Line)

	_, ok = mod.Body[1].(*UnknownStmt)
	assert.True(t, ok)
}

func TestDecodeModule_SpanInheritsEnclosingStart(t *testing.T) {
	// The inner Name carries no position fields of its own.
	tree := map[string]any{
		"node_type": "Module",
		"body": []any{
			pynode("Expr", 7, 2, map[string]any{
				"value": map[string]any{"node_type": "Name", "id": "x"},
			}),
		},
	}

	mod, err := DecodeModule(tree, "app.py")
	require.NoError(t, err)

	name := mod.Body[0].(*ExprStmt).Value.(*Name)
	assert.Equal(t, 7, name.Loc.Line)
	assert.Equal(t, 2, name.Loc.Col)
}

func TestDecodeModule_NameWithoutID(t *testing.T) {
	tree := map[string]any{
		"node_type": "Module",
		"body": []any{
			pynode("Expr", 1, 0, map[string]any{
				"value": pynode("Name", 1, 0, nil),
			}),
		},
	}

	_, err := DecodeModule(tree, "app.py")
	require.Error(t, err)

	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Contains(t, decodeErr.Reason, "name without an id")
	assert.Contains(t, decodeErr.Path, "body[0].value")
}

func TestDecodeModule_AttributeWithoutAttr(t *testing.T) {
	tree := map[string]any{
		"node_type": "Module",
		"body": []any{
			pynode("Expr", 1, 0, map[string]any{
				"value": pynode("Attribute", 1, 0, map[string]any{
					"value": pyname("errors", 1, 0),
				}),
			}),
		},
	}

	_, err := DecodeModule(tree, "app.py")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "attribute without an attr")
}

func TestDecodeModule_MissingNestedFieldBecomesUnknown(t *testing.T) {
	// Assign without a value: the grammar requires one, but decoding
	// substitutes a placeholder instead of failing.
	tree := map[string]any{
		"node_type": "Module",
		"body": []any{
			pynode("Assign", 3, 0, map[string]any{
				"targets": []any{pyname("x", 3, 0)},
			}),
		},
	}

	mod, err := DecodeModule(tree, "app.py")
	require.NoError(t, err)

	assign := mod.Body[0].(*Assign)
	unknown, ok := assign.Value.(*UnknownExpr)
	require.True(t, ok)
	assert.Equal(t, 3, unknown.Loc.Line)
}

func TestDecodeModule_MatchStatement(t *testing.T) {
	tree := map[string]any{
		"node_type": "Module",
		"body": []any{
			pynode("Match", 10, 0, map[string]any{
				"subject": pyname("res", 10, 6),
				"cases": []any{
					map[string]any{
						"node_type": "match_case",
						"pattern": pynode("MatchClass", 11, 9, map[string]any{
							"cls":      pyname("Ok", 11, 9),
							"patterns": []any{pynode("MatchAs", 11, 12, map[string]any{"name": "user"})},
						}),
						"body": []any{pynode("Pass", 12, 8, nil)},
					},
					map[string]any{
						"node_type": "match_case",
						"pattern": pynode("MatchOr", 13, 9, map[string]any{
							"patterns": []any{
								pynode("MatchValue", 13, 9, map[string]any{"value": pyname("x", 13, 9)}),
								pynode("MatchSequence", 13, 14, nil),
							},
						}),
						"body": []any{},
					},
				},
			}),
		},
	}

	mod, err := DecodeModule(tree, "app.py")
	require.NoError(t, err)

	match := mod.Body[0].(*Match)
	assert.IsType(t, &Name{}, match.Subject)
	require.Len(t, match.Cases, 2)

	cls := match.Cases[0].Pattern.(*MatchClass)
	assert.Equal(t, "Ok", DottedName(cls.Cls))
	require.Len(t, cls.Patterns, 1)
	as := cls.Patterns[0].(*MatchAs)
	assert.Equal(t, "user", as.Name)
	assert.Nil(t, as.Pattern)

	or := match.Cases[1].Pattern.(*MatchOr)
	require.Len(t, or.Patterns, 2)
	assert.IsType(t, &MatchValue{}, or.Patterns[0])
	unknown := or.Patterns[1].(*UnknownPattern)
	assert.Equal(t, "MatchSequence", unknown.Tag)
}

func TestDecodeModule_DictWithExpansion(t *testing.T) {
	tree := map[string]any{
		"node_type": "Module",
		"body": []any{
			pynode("Expr", 1, 0, map[string]any{
				"value": pynode("Dict", 1, 0, map[string]any{
					"keys":   []any{pyname("Ok", 1, 1), nil},
					"values": []any{pyname("handle", 1, 5), pyname("rest", 1, 12)},
				}),
			}),
		},
	}

	mod, err := DecodeModule(tree, "app.py")
	require.NoError(t, err)

	dict := mod.Body[0].(*ExprStmt).Value.(*Dict)
	require.Len(t, dict.Keys, 2)
	assert.Nil(t, dict.Keys[1], "** expansion keys decode to nil")
	assert.Len(t, dict.Values, 2)
}

func TestDecodeModuleJSON(t *testing.T) {
	mod, err := DecodeModuleJSON([]byte(`{"node_type": "Module", "body": []}`), "empty.py")
	require.NoError(t, err)
	assert.Empty(t, mod.Body)

	_, err = DecodeModuleJSON([]byte(`not json`), "bad.py")
	require.Error(t, err)
}
