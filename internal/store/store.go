// Package store persists analysis run history behind a driver-agnostic
// interface, with SQLite and PostgreSQL backends.
package store

import (
	"context"

	"github.com/4tyone/pyrethrum/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status   model.RunStatus `json:"status,omitempty"`
	File     string          `json:"file,omitempty"`
	Language string          `json:"language,omitempty"`
	Limit    int             `json:"limit,omitempty"`
	Offset   int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for analysis run history.
type Store interface {
	SaveRun(ctx context.Context, run model.AnalysisRun) (*model.AnalysisRun, error)
	GetRun(ctx context.Context, runID string) (*model.AnalysisRun, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.AnalysisRun, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
