// Package checker implements the source-language-agnostic exhaustiveness
// check: a pure function from a canonical analysis report to an ordered list
// of typed findings. It performs no I/O, never mutates its input, and cannot
// itself fail on a well-formed report, so the same report can be checked
// concurrently from multiple goroutines.
package checker

import "github.com/4tyone/pyrethrum/internal/model"

// Kind enumerates the finding categories the checker can produce.
type Kind string

const (
	MissingHandlers       Kind = "missing_handlers"
	ExtraHandlers         Kind = "extra_handlers"
	MissingOkHandler      Kind = "missing_ok_handler"
	UnknownFunction       Kind = "unknown_function"
	MissingSomeHandler    Kind = "missing_some_handler"
	MissingNothingHandler Kind = "missing_nothing_handler"
	UnhandledResult       Kind = "unhandled_result"
	UnhandledOption       Kind = "unhandled_option"
)

// Finding is one exhaustiveness gap. Findings are ordinary data, not
// pipeline failures: severity classification happens downstream in the
// diagnostic mapper and is fixed per kind.
type Finding struct {
	Kind     Kind
	FuncName string
	// Types carries the failure types a finding is about: the missing set
	// for MissingHandlers, the surplus set for ExtraHandlers. Empty for
	// the flag- and call-level kinds.
	Types    []model.FailureType
	Span     model.Span
	CallSpan *model.Span
}

// Check compares every handling site against the declared signatures and
// classifies every unhandled call. Output order is deterministic: all
// handling-site findings first, in input site order, then all
// unhandled-call findings in input order. A single site can produce several
// findings at once; nothing is deduplicated across sites.
func Check(report *model.Report) []Finding {
	idx := model.NewSignatureIndex(report.Signatures)

	var findings []Finding
	for _, site := range report.Matches {
		findings = append(findings, checkSite(idx, site)...)
	}
	for _, call := range report.Unhandled {
		kind := UnhandledResult
		if call.Kind == model.KindOption {
			kind = UnhandledOption
		}
		findings = append(findings, Finding{
			Kind:     kind,
			FuncName: call.FuncName,
			Span:     call.Span,
		})
	}
	return findings
}

func checkSite(idx *model.SignatureIndex, site model.HandlingSite) []Finding {
	sig, ok := idx.Lookup(site.FuncName)
	if !ok {
		return []Finding{{
			Kind:     UnknownFunction,
			FuncName: site.FuncName,
			Span:     site.Span,
			CallSpan: site.CallSpan,
		}}
	}

	switch sig.Kind {
	case model.KindOption:
		return checkOptionSite(site)
	default:
		return checkRaisesSite(sig, site)
	}
}

// checkRaisesSite: required = declared failure types plus Ok; provided = the
// handled types plus Ok when the flag is set. The missing and extra sets are
// computed under the lenient failure-type comparator, so a bare name
// satisfies a qualified declaration of the same terminal name.
func checkRaisesSite(sig model.Signature, site model.HandlingSite) []Finding {
	var findings []Finding

	if !site.HasOk {
		findings = append(findings, Finding{
			Kind:     MissingOkHandler,
			FuncName: site.FuncName,
			Span:     site.Span,
			CallSpan: site.CallSpan,
		})
	}

	if missing := model.DiffFailures(sig.Declared, site.Handlers); len(missing) > 0 {
		findings = append(findings, Finding{
			Kind:     MissingHandlers,
			FuncName: site.FuncName,
			Types:    missing,
			Span:     site.Span,
			CallSpan: site.CallSpan,
		})
	}

	required := append(append([]model.FailureType{}, sig.Declared...), model.OkMarker())
	if extra := model.DiffFailures(site.Handlers, required); len(extra) > 0 {
		findings = append(findings, Finding{
			Kind:     ExtraHandlers,
			FuncName: site.FuncName,
			Types:    extra,
			Span:     site.Span,
			CallSpan: site.CallSpan,
		})
	}

	return findings
}

// checkOptionSite: required is exactly {Some, Nothing}; option signatures
// declare no failure types, so any handled type at all is surplus.
func checkOptionSite(site model.HandlingSite) []Finding {
	var findings []Finding

	if !site.HasSome {
		findings = append(findings, Finding{
			Kind:     MissingSomeHandler,
			FuncName: site.FuncName,
			Span:     site.Span,
			CallSpan: site.CallSpan,
		})
	}
	if !site.HasNothing {
		findings = append(findings, Finding{
			Kind:     MissingNothingHandler,
			FuncName: site.FuncName,
			Span:     site.Span,
			CallSpan: site.CallSpan,
		})
	}
	if len(site.Handlers) > 0 {
		findings = append(findings, Finding{
			Kind:     ExtraHandlers,
			FuncName: site.FuncName,
			Types:    site.Handlers,
			Span:     site.Span,
			CallSpan: site.CallSpan,
		})
	}

	return findings
}
