package model

import (
	"encoding/json"

	"github.com/rotisserie/eris"
)

// SignatureKind classifies what a signature-bearing function returns.
type SignatureKind string

const (
	// KindRaises marks functions returning a success-or-failure result.
	KindRaises SignatureKind = "raises"
	// KindOption marks functions returning a present-or-absent value.
	KindOption SignatureKind = "option"
)

// HandlingKind classifies the syntactic form of a handling site.
type HandlingKind string

const (
	// HandlingStatement is a structural pattern-match statement.
	HandlingStatement HandlingKind = "statement"
	// HandlingFunctionCall is a functional match-combinator call.
	HandlingFunctionCall HandlingKind = "function_call"
)

// Signature is the declared contract of one annotated function: its kind and,
// for fallible functions, the exhaustive set of failure types it can produce.
type Signature struct {
	Name          string        `json:"name"`
	QualifiedName string        `json:"qualified_name,omitempty"`
	Declared      []FailureType `json:"declared_exceptions"`
	Kind          SignatureKind `json:"signature_type"`
	Span          Span          `json:"loc"`
	IsAsync       bool          `json:"is_async"`
}

// HandlingSite is a location that attempts to exhaustively dispatch on a
// call's outcomes.
type HandlingSite struct {
	FuncName   string        `json:"func_name"`
	Handlers   []FailureType `json:"handlers"`
	HasOk      bool          `json:"has_ok_handler"`
	HasSome    bool          `json:"has_some_handler,omitempty"`
	HasNothing bool          `json:"has_nothing_handler,omitempty"`
	Span       Span          `json:"loc"`
	CallSpan   *Span         `json:"call_loc,omitempty"`
	Kind       HandlingKind  `json:"kind"`
}

// UnhandledCall is a call to a signature-bearing function whose result never
// reaches a handling site.
type UnhandledCall struct {
	FuncName string        `json:"func_name"`
	Span     Span          `json:"loc"`
	Kind     SignatureKind `json:"signature_type"`
}

// Report is the canonical analysis input: everything the exhaustiveness
// checker consumes, independent of the source language that produced it.
type Report struct {
	Language   string          `json:"language"`
	Signatures []Signature     `json:"signatures"`
	Matches    []HandlingSite  `json:"matches"`
	Unhandled  []UnhandledCall `json:"unhandled_calls,omitempty"`
}

// DecodeReport parses the canonical wire form, applying schema defaults:
// language falls back to "unknown", absent arrays become empty, and a missing
// signature_type means raises.
func DecodeReport(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, eris.Wrap(err, "model: decode report")
	}
	r.ApplyDefaults()
	return &r, nil
}

// ApplyDefaults normalizes a decoded report in place.
func (r *Report) ApplyDefaults() {
	if r.Language == "" {
		r.Language = "unknown"
	}
	if r.Signatures == nil {
		r.Signatures = []Signature{}
	}
	if r.Matches == nil {
		r.Matches = []HandlingSite{}
	}
	if r.Unhandled == nil {
		r.Unhandled = []UnhandledCall{}
	}
	for i := range r.Signatures {
		if r.Signatures[i].Kind == "" {
			r.Signatures[i].Kind = KindRaises
		}
		if r.Signatures[i].Declared == nil {
			r.Signatures[i].Declared = []FailureType{}
		}
	}
	for i := range r.Matches {
		if r.Matches[i].Kind == "" {
			r.Matches[i].Kind = HandlingStatement
		}
		if r.Matches[i].Handlers == nil {
			r.Matches[i].Handlers = []FailureType{}
		}
	}
	for i := range r.Unhandled {
		if r.Unhandled[i].Kind == "" {
			r.Unhandled[i].Kind = KindRaises
		}
	}
}

// SignatureIndex resolves function names to signatures.
//
// Resolution is by unqualified name with last-registration-wins on duplicates.
// That is a known precision limitation (same-name shadowing across scopes is
// not resolved), kept behind this single type so a qualified-resolution
// strategy can replace it without touching the checker.
type SignatureIndex struct {
	byName map[string]Signature
}

// NewSignatureIndex builds an index over sigs in declaration order.
func NewSignatureIndex(sigs []Signature) *SignatureIndex {
	idx := &SignatureIndex{byName: make(map[string]Signature, len(sigs))}
	for _, s := range sigs {
		idx.byName[s.Name] = s
	}
	return idx
}

// Lookup returns the signature registered under name, if any.
func (idx *SignatureIndex) Lookup(name string) (Signature, bool) {
	s, ok := idx.byName[name]
	return s, ok
}
