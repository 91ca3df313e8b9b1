package model

import "fmt"

// Span locates a syntax construct in a source file. Lines are 1-indexed and
// columns are 0-indexed, matching the conventions of Python's ast module.
type Span struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	EndLine int    `json:"end_line"`
	EndCol  int    `json:"end_col"`
}

// String renders the span as file:line:col for log output and diagnostics.
func (s Span) String() string {
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Col)
}

// IsZero reports whether the span carries no position information.
func (s Span) IsZero() bool {
	return s == Span{}
}
