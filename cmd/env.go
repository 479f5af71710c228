package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ecolyze/ecolyze/internal/dataset"
	"github.com/ecolyze/ecolyze/internal/fetcher"
	"github.com/ecolyze/ecolyze/internal/mirror"
	"github.com/ecolyze/ecolyze/internal/pipeline"
	"github.com/ecolyze/ecolyze/internal/store"
	"github.com/ecolyze/ecolyze/internal/warehouse"
)

// pipelineEnv holds the initialized clients and the pipeline needed by
// the run/forecast/serve commands.
type pipelineEnv struct {
	Store     store.Store
	Warehouse warehouse.Warehouse
	Mirror    mirror.Mirror
	Pipeline  *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close(ctx context.Context) {
	if pe.Mirror != nil {
		_ = pe.Mirror.Close(ctx)
	}
	if pe.Warehouse != nil {
		_ = pe.Warehouse.Close()
	}
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initStore opens the run-history store named by config.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	case "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// initPipeline sets up the loader, warehouse, mirror, and history
// store, and builds the Pipeline. The mirror client is only opened for
// the "analysis" group; forecast and sync never touch it. Callers
// should defer env.Close(ctx).
func initPipeline(ctx context.Context, group string) (*pipelineEnv, error) {
	if err := cfg.Validate(group); err != nil {
		return nil, err
	}

	env := &pipelineEnv{}

	st, err := initStore(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	env.Store = st

	wh, err := warehouse.NewBigQuery(ctx, cfg.Warehouse, cfg.Forecast)
	if err != nil {
		env.Close(ctx)
		return nil, err
	}
	env.Warehouse = wh

	if group == "analysis" {
		mir, err := mirror.NewMongo(ctx, cfg.Mirror)
		if err != nil {
			env.Close(ctx)
			return nil, err
		}
		env.Mirror = mir
		zap.L().Info("mirror connected",
			zap.String("database", cfg.Mirror.Database),
			zap.String("collection", cfg.Mirror.Collection),
		)
	}

	loader := dataset.New(
		fetcher.NewHTTPFetcher(fetcher.HTTPOptions{RateLimiters: fetcher.DefaultRateLimiters()}),
		dataset.Options{URL: cfg.Dataset.URL, MinYear: cfg.Dataset.MinYear},
	)

	env.Pipeline = pipeline.New(loader, env.Warehouse, env.Mirror, env.Store)
	return env, nil
}
