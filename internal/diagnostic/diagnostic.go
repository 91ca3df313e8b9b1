// Package diagnostic maps checker findings to user-facing diagnostics with
// stable error codes, fixed severities, and fix suggestions, and renders
// them as text or JSON.
package diagnostic

import (
	"fmt"
	"strings"

	"github.com/4tyone/pyrethrum/internal/checker"
	"github.com/4tyone/pyrethrum/internal/model"
)

// Severity of a diagnostic. Fixed per code; an external strict mode may fail
// a build on warnings but never changes what is recorded here.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Stable diagnostic codes, one per finding kind.
const (
	CodeMissingHandlers       = "EXH001"
	CodeExtraHandlers         = "EXH002"
	CodeMissingOkHandler      = "EXH003"
	CodeUnknownFunction       = "EXH004"
	CodeMissingSomeHandler    = "EXH005"
	CodeMissingNothingHandler = "EXH006"
	CodeUnhandledResult       = "EXH007"
	CodeUnhandledOption       = "EXH008"
)

// SuggestionAction enumerates the fix actions a diagnostic can propose.
type SuggestionAction string

const (
	ActionAddHandler    SuggestionAction = "add_handler"
	ActionRemoveHandler SuggestionAction = "remove_handler"
	ActionAddMatch      SuggestionAction = "add_match"
)

// Suggestion is one proposed fix, optionally naming the failure type it
// applies to.
type Suggestion struct {
	Action SuggestionAction   `json:"action"`
	Type   *model.FailureType `json:"type,omitempty"`
}

// Diagnostic is the rendered form of one finding.
type Diagnostic struct {
	Code        string       `json:"code"`
	Severity    Severity     `json:"severity"`
	Message     string       `json:"message"`
	FuncName    string       `json:"func_name"`
	Span        model.Span   `json:"loc"`
	CallSpan    *model.Span  `json:"call_loc,omitempty"`
	Suggestions []Suggestion `json:"suggestions,omitempty"`
}

// FromFindings maps findings to diagnostics, preserving order.
func FromFindings(findings []checker.Finding) []Diagnostic {
	out := make([]Diagnostic, 0, len(findings))
	for _, f := range findings {
		out = append(out, fromFinding(f))
	}
	return out
}

func fromFinding(f checker.Finding) Diagnostic {
	d := Diagnostic{
		FuncName: f.FuncName,
		Span:     f.Span,
		CallSpan: f.CallSpan,
		Severity: SeverityError,
	}

	switch f.Kind {
	case checker.MissingHandlers:
		d.Code = CodeMissingHandlers
		d.Message = fmt.Sprintf("match on %q does not handle %s", f.FuncName, typeList(f.Types))
		for i := range f.Types {
			t := f.Types[i]
			d.Suggestions = append(d.Suggestions, Suggestion{Action: ActionAddHandler, Type: &t})
		}

	case checker.ExtraHandlers:
		d.Code = CodeExtraHandlers
		d.Severity = SeverityWarning
		d.Message = fmt.Sprintf("match on %q handles %s, which %s not declared", f.FuncName, typeList(f.Types), isAre(len(f.Types)))
		for i := range f.Types {
			t := f.Types[i]
			d.Suggestions = append(d.Suggestions, Suggestion{Action: ActionRemoveHandler, Type: &t})
		}

	case checker.MissingOkHandler:
		d.Code = CodeMissingOkHandler
		d.Message = fmt.Sprintf("match on %q does not handle the Ok case", f.FuncName)
		ok := model.OkMarker()
		d.Suggestions = append(d.Suggestions, Suggestion{Action: ActionAddHandler, Type: &ok})

	case checker.UnknownFunction:
		d.Code = CodeUnknownFunction
		d.Severity = SeverityWarning
		d.Message = fmt.Sprintf("match on %q, which has no declared signature", f.FuncName)

	case checker.MissingSomeHandler:
		d.Code = CodeMissingSomeHandler
		d.Message = fmt.Sprintf("match on %q does not handle the Some case", f.FuncName)
		some := model.SomeMarker()
		d.Suggestions = append(d.Suggestions, Suggestion{Action: ActionAddHandler, Type: &some})

	case checker.MissingNothingHandler:
		d.Code = CodeMissingNothingHandler
		d.Message = fmt.Sprintf("match on %q does not handle the Nothing case", f.FuncName)
		nothing := model.NothingMarker()
		d.Suggestions = append(d.Suggestions, Suggestion{Action: ActionAddHandler, Type: &nothing})

	case checker.UnhandledResult:
		d.Code = CodeUnhandledResult
		d.Message = fmt.Sprintf("result of %q is never matched", f.FuncName)
		d.Suggestions = append(d.Suggestions, Suggestion{Action: ActionAddMatch})

	case checker.UnhandledOption:
		d.Code = CodeUnhandledOption
		d.Message = fmt.Sprintf("optional result of %q is never matched", f.FuncName)
		d.Suggestions = append(d.Suggestions, Suggestion{Action: ActionAddMatch})

	default:
		d.Code = "EXH000"
		d.Message = fmt.Sprintf("unrecognized finding for %q", f.FuncName)
	}

	return d
}

func typeList(types []model.FailureType) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return strings.Join(names, ", ")
}

func isAre(n int) string {
	if n == 1 {
		return "is"
	}
	return "are"
}
