package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/4tyone/pyrethrum/internal/lang"
	"github.com/4tyone/pyrethrum/internal/pipeline"
	"github.com/4tyone/pyrethrum/internal/policy"
	"github.com/4tyone/pyrethrum/internal/pysyntax"
	"github.com/4tyone/pyrethrum/internal/store"
)

// initStore opens the run-history store selected by config.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	case "sqlite", "":
		return store.NewSQLite(cfg.Store.Path)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// initRegistry builds the language registry with every bundled plugin.
func initRegistry() *lang.Registry {
	return lang.NewRegistry(pysyntax.NewPython())
}

// loadPolicy reads the policy file named by flag or config; an empty path
// means the default policy.
func loadPolicy(path string) (*policy.Policy, error) {
	if path == "" {
		path = cfg.Check.PolicyFile
	}
	if path == "" {
		return policy.Default(), nil
	}
	return policy.Load(path)
}

// initPipeline assembles the analysis pipeline, optionally with a store.
func initPipeline(ctx context.Context, policyPath string, withStore bool) (*pipeline.Pipeline, store.Store, error) {
	pol, err := loadPolicy(policyPath)
	if err != nil {
		return nil, nil, err
	}

	var st store.Store
	if withStore {
		st, err = initStore(ctx)
		if err != nil {
			return nil, nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, nil, eris.Wrap(err, "migrate store")
		}
	}

	return pipeline.New(initRegistry(), pol, st), st, nil
}
