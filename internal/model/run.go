package model

import (
	"encoding/json"
	"time"
)

// RunStatus represents the outcome of one analysis run.
type RunStatus string

const (
	// RunStatusClean means the document checked with no findings.
	RunStatusClean RunStatus = "clean"
	// RunStatusFindings means the check produced diagnostics.
	RunStatusFindings RunStatus = "findings"
	// RunStatusFailed means the document could not be decoded or parsed.
	RunStatusFailed RunStatus = "failed"
)

// AnalysisRun is one persisted check of one document. Diagnostics are kept
// as raw JSON so the store stays decoupled from the diagnostic schema.
type AnalysisRun struct {
	ID          string          `json:"id"`
	File        string          `json:"file"`
	Language    string          `json:"language"`
	Status      RunStatus       `json:"status"`
	Errors      int             `json:"errors"`
	Warnings    int             `json:"warnings"`
	Diagnostics json.RawMessage `json:"diagnostics,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
