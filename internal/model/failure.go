package model

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// FailureKind discriminates FailureType variants on the wire.
type FailureKind string

const (
	FailureName      FailureKind = "name"
	FailureQualified FailureKind = "qualified"
	FailureUnion     FailureKind = "union"
	FailureOk        FailureKind = "ok"
	FailureSome      FailureKind = "some"
	FailureNothing   FailureKind = "nothing"
)

// FailureType describes one outcome a call can produce: a named or
// module-qualified error, a union of such, or one of the success/optional
// markers (Ok, Some, Nothing).
type FailureType struct {
	Kind    FailureKind   `json:"kind"`
	Name    string        `json:"name,omitempty"`
	Module  string        `json:"module,omitempty"`
	Members []FailureType `json:"members,omitempty"` // union members
}

// NamedFailure builds a bare-name failure type.
func NamedFailure(name string) FailureType {
	return FailureType{Kind: FailureName, Name: name}
}

// QualifiedFailure builds a module-qualified failure type.
func QualifiedFailure(module, name string) FailureType {
	return FailureType{Kind: FailureQualified, Module: module, Name: name}
}

// UnionFailure builds a union of failure types.
func UnionFailure(members ...FailureType) FailureType {
	return FailureType{Kind: FailureUnion, Members: members}
}

// Marker constructors for the success/optional outcomes.
func OkMarker() FailureType      { return FailureType{Kind: FailureOk} }
func SomeMarker() FailureType    { return FailureType{Kind: FailureSome} }
func NothingMarker() FailureType { return FailureType{Kind: FailureNothing} }

// Matches reports whether two failure types denote the same outcome.
//
// Identity is deliberately lenient rather than structural: a static extractor
// often cannot tell whether two qualified references resolve to the same
// imported symbol, so the terminal name is treated as the reliable identity.
// Name(n) matches Qualified(_, n) in both directions, and two Qualified values
// match whenever their names agree even if their modules differ. All other
// pairs require exact structural equality. Set operations over failure types
// must go through this comparator, never through ==.
func (f FailureType) Matches(other FailureType) bool {
	switch f.Kind {
	case FailureName:
		switch other.Kind {
		case FailureName, FailureQualified:
			return f.Name == other.Name
		}
		return false
	case FailureQualified:
		switch other.Kind {
		case FailureName:
			return f.Name == other.Name
		case FailureQualified:
			return f.Name == other.Name
		}
		return false
	case FailureUnion:
		if other.Kind != FailureUnion || len(f.Members) != len(other.Members) {
			return false
		}
		for i := range f.Members {
			if !f.Members[i].equal(other.Members[i]) {
				return false
			}
		}
		return true
	default:
		return f.Kind == other.Kind
	}
}

// equal is strict structural equality, used inside union comparison.
func (f FailureType) equal(other FailureType) bool {
	if f.Kind != other.Kind || f.Name != other.Name || f.Module != other.Module {
		return false
	}
	if len(f.Members) != len(other.Members) {
		return false
	}
	for i := range f.Members {
		if !f.Members[i].equal(other.Members[i]) {
			return false
		}
	}
	return true
}

// ContainsFailure reports whether set holds a member matching f under the
// lenient comparator.
func ContainsFailure(set []FailureType, f FailureType) bool {
	for _, m := range set {
		if m.Matches(f) {
			return true
		}
	}
	return false
}

// DiffFailures returns the members of a that have no lenient match in b,
// deduplicated so two spellings of the same outcome report once.
func DiffFailures(a, b []FailureType) []FailureType {
	var out []FailureType
	for _, m := range a {
		if ContainsFailure(b, m) || ContainsFailure(out, m) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// String renders the type the way it would appear in source.
func (f FailureType) String() string {
	switch f.Kind {
	case FailureName:
		return f.Name
	case FailureQualified:
		return f.Module + "." + f.Name
	case FailureUnion:
		parts := make([]string, len(f.Members))
		for i, m := range f.Members {
			parts[i] = m.String()
		}
		return strings.Join(parts, " | ")
	case FailureOk:
		return "Ok"
	case FailureSome:
		return "Some"
	case FailureNothing:
		return "Nothing"
	default:
		return string(f.Kind)
	}
}

// UnmarshalJSON validates the kind discriminator so malformed documents fail
// at decode time instead of producing a zero-kind type.
func (f *FailureType) UnmarshalJSON(data []byte) error {
	type alias FailureType
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return eris.Wrap(err, "model: decode failure type")
	}
	switch a.Kind {
	case FailureName, FailureQualified, FailureUnion, FailureOk, FailureSome, FailureNothing:
	default:
		return eris.Errorf("model: unknown failure type kind %q", a.Kind)
	}
	*f = FailureType(a)
	return nil
}
