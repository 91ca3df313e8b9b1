package diagnostic

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
)

// Result is the JSON envelope the check command and the HTTP API return.
type Result struct {
	File        string       `json:"file,omitempty"`
	Language    string       `json:"language"`
	Diagnostics []Diagnostic `json:"diagnostics"`
	Errors      int          `json:"errors"`
	Warnings    int          `json:"warnings"`
}

// NewResult wraps diagnostics with their severity tallies.
func NewResult(file, language string, diags []Diagnostic) Result {
	r := Result{File: file, Language: language, Diagnostics: diags}
	if r.Diagnostics == nil {
		r.Diagnostics = []Diagnostic{}
	}
	for _, d := range diags {
		switch d.Severity {
		case SeverityWarning:
			r.Warnings++
		default:
			r.Errors++
		}
	}
	return r
}

// WriteText renders diagnostics one per line in the conventional
// file:line:col: severity [code] message format compilers use.
func WriteText(w io.Writer, r Result) error {
	for _, d := range r.Diagnostics {
		if _, err := fmt.Fprintf(w, "%s: %s [%s] %s\n", d.Span, d.Severity, d.Code, d.Message); err != nil {
			return eris.Wrap(err, "diagnostic: write text")
		}
	}
	if len(r.Diagnostics) == 0 {
		_, err := fmt.Fprintf(w, "%s: no exhaustiveness issues found\n", r.File)
		return eris.Wrap(err, "diagnostic: write text")
	}
	_, err := fmt.Fprintf(w, "%s: %d error(s), %d warning(s)\n", r.File, r.Errors, r.Warnings)
	return eris.Wrap(err, "diagnostic: write text")
}

// WriteJSON renders the result envelope as indented JSON.
func WriteJSON(w io.Writer, r Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(r), "diagnostic: write json")
}
