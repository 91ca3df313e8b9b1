// Package pipeline wires the analysis stages together: document routing,
// parse/extract via the language registry, the exhaustiveness check, and
// diagnostic mapping under the active policy.
package pipeline

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/4tyone/pyrethrum/internal/checker"
	"github.com/4tyone/pyrethrum/internal/diagnostic"
	"github.com/4tyone/pyrethrum/internal/lang"
	"github.com/4tyone/pyrethrum/internal/model"
	"github.com/4tyone/pyrethrum/internal/policy"
	"github.com/4tyone/pyrethrum/internal/store"
)

// Pipeline runs the full analysis for one document at a time. It carries no
// per-document state, so one Pipeline serves concurrent callers.
type Pipeline struct {
	registry *lang.Registry
	policy   *policy.Policy
	store    store.Store // nil disables run persistence
}

// New creates a pipeline over the given language registry and policy.
func New(registry *lang.Registry, pol *policy.Policy, st store.Store) *Pipeline {
	return &Pipeline{registry: registry, policy: pol, store: st}
}

// Analyze checks one analysis document and returns the policy-filtered
// result. Structural failures (a document that cannot be decoded) surface
// as the returned error; exhaustiveness gaps are data in the result, never
// errors.
func (p *Pipeline) Analyze(ctx context.Context, data []byte) (diagnostic.Result, error) {
	doc, err := lang.ParseDocument(data)
	if err != nil {
		return diagnostic.Result{}, err
	}

	report, err := p.registry.Route(doc)
	if err != nil {
		return diagnostic.Result{}, err
	}

	findings := checker.Check(report)
	diags := p.policy.Filter(diagnostic.FromFindings(findings))
	result := diagnostic.NewResult(doc.File, report.Language, diags)

	zap.L().Debug("document analyzed",
		zap.String("file", doc.File),
		zap.String("language", report.Language),
		zap.Int("signatures", len(report.Signatures)),
		zap.Int("matches", len(report.Matches)),
		zap.Int("errors", result.Errors),
		zap.Int("warnings", result.Warnings),
	)

	if p.store != nil {
		if err := p.saveRun(ctx, result); err != nil {
			zap.L().Warn("failed to persist analysis run", zap.Error(err))
		}
	}
	return result, nil
}

// Fails reports whether the result fails the build under the pipeline's
// policy.
func (p *Pipeline) Fails(result diagnostic.Result) bool {
	return p.policy.Fails(result)
}

func (p *Pipeline) saveRun(ctx context.Context, result diagnostic.Result) error {
	status := model.RunStatusClean
	if len(result.Diagnostics) > 0 {
		status = model.RunStatusFindings
	}
	diags, err := json.Marshal(result.Diagnostics)
	if err != nil {
		return eris.Wrap(err, "pipeline: marshal diagnostics")
	}
	_, err = p.store.SaveRun(ctx, model.AnalysisRun{
		File:        result.File,
		Language:    result.Language,
		Status:      status,
		Errors:      result.Errors,
		Warnings:    result.Warnings,
		Diagnostics: diags,
	})
	return err
}

// SaveFailure records a document that could not be decoded at all.
func (p *Pipeline) SaveFailure(ctx context.Context, file string, cause error) {
	if p.store == nil {
		return
	}
	zap.L().Debug("recording failed run", zap.String("file", file), zap.Error(cause))
	_, err := p.store.SaveRun(ctx, model.AnalysisRun{
		File:     file,
		Language: "unknown",
		Status:   model.RunStatusFailed,
	})
	if err != nil {
		zap.L().Warn("failed to persist failed run", zap.Error(err))
	}
}
