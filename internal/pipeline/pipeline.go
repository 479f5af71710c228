// Package pipeline orchestrates the analysis chain: dataset load,
// warehouse sync, aggregation, mirror replace, and forecast.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ecolyze/ecolyze/internal/dataset"
	"github.com/ecolyze/ecolyze/internal/mirror"
	"github.com/ecolyze/ecolyze/internal/model"
	"github.com/ecolyze/ecolyze/internal/store"
	"github.com/ecolyze/ecolyze/internal/warehouse"
)

// Pipeline wires the loader, warehouse, mirror, and run-history store.
// Each step blocks until the previous one completes; a step error
// aborts the run with earlier side effects left in place.
type Pipeline struct {
	loader    dataset.Loader
	warehouse warehouse.Warehouse
	mirror    mirror.Mirror
	store     store.Store // nil disables run history

	// syncGate: the warehouse sync executes at most once per process
	// until InvalidateSync.
	syncMu     sync.Mutex
	synced     bool
	rowsLoaded int64
}

// New creates a Pipeline. st may be nil.
func New(loader dataset.Loader, wh warehouse.Warehouse, mir mirror.Mirror, st store.Store) *Pipeline {
	return &Pipeline{loader: loader, warehouse: wh, mirror: mir, store: st}
}

// ensureSynced loads the dataset and syncs the warehouse table at most
// once per process. Failures are not latched; the next call retries.
func (p *Pipeline) ensureSynced(ctx context.Context) (int64, error) {
	p.syncMu.Lock()
	defer p.syncMu.Unlock()
	if p.synced {
		return p.rowsLoaded, nil
	}

	records, err := p.loader.Load(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "pipeline: load dataset")
	}
	if err := p.warehouse.EnsureDataset(ctx); err != nil {
		return 0, eris.Wrap(err, "pipeline: ensure dataset")
	}
	n, err := p.warehouse.LoadEmissions(ctx, records)
	if err != nil {
		return 0, eris.Wrap(err, "pipeline: warehouse load")
	}

	p.synced = true
	p.rowsLoaded = n
	return n, nil
}

// InvalidateSync clears the sync gate and the dataset cache so the
// next run refetches and reloads.
func (p *Pipeline) InvalidateSync() {
	p.syncMu.Lock()
	p.synced = false
	p.rowsLoaded = 0
	p.syncMu.Unlock()
	p.loader.Invalidate()
}

// Sync performs only the load-and-sync branch and returns the row count.
func (p *Pipeline) Sync(ctx context.Context) (int64, error) {
	return p.ensureSynced(ctx)
}

// Run executes the full analysis for one year: sync, aggregate, mirror
// replace, and (optionally) train-and-predict. The run is recorded in
// the history store when one is configured.
func (p *Pipeline) Run(ctx context.Context, year int, withForecast bool) (*model.AnalysisResult, error) {
	log := zap.L().With(zap.Int("year", year))
	log.Info("pipeline: starting analysis")
	start := time.Now()

	var runID string
	if p.store != nil {
		run, err := p.store.CreateRun(ctx, year)
		if err != nil {
			log.Warn("pipeline: failed to record run start", zap.Error(err))
		} else {
			runID = run.ID
		}
	}

	result, err := p.run(ctx, year, withForecast)
	if err != nil {
		p.finishRun(ctx, runID, model.RunStatusFailed, 0, 0, err.Error())
		return nil, err
	}
	result.RunID = runID

	p.finishRun(ctx, runID, model.RunStatusComplete, result.RowsLoaded, len(result.Summary), "")
	log.Info("pipeline: analysis complete",
		zap.Int64("rows_loaded", result.RowsLoaded),
		zap.Int("summary_rows", len(result.Summary)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

func (p *Pipeline) run(ctx context.Context, year int, withForecast bool) (*model.AnalysisResult, error) {
	rowsLoaded, err := p.ensureSynced(ctx)
	if err != nil {
		return nil, err
	}

	summary, err := p.warehouse.TopEmitters(ctx, year)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: aggregate year %d", year)
	}
	if summary == nil {
		summary = []model.SummaryRow{}
	}

	if err := p.mirror.Replace(ctx, summary); err != nil {
		return nil, eris.Wrap(err, "pipeline: mirror replace")
	}

	result := &model.AnalysisResult{
		Year:       year,
		RowsLoaded: rowsLoaded,
		Summary:    summary,
	}

	if withForecast {
		forecast, err := p.Forecast(ctx)
		if err != nil {
			return nil, err
		}
		result.Forecast = forecast
	}

	return result, nil
}

// Forecast recreates the warehouse regression model and returns its
// predictions. The model is retrained from scratch on every call.
func (p *Pipeline) Forecast(ctx context.Context) ([]model.ForecastRow, error) {
	if err := p.warehouse.TrainForecast(ctx); err != nil {
		return nil, eris.Wrap(err, "pipeline: train forecast")
	}
	rows, err := p.warehouse.PredictForecast(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: predict forecast")
	}
	return rows, nil
}

func (p *Pipeline) finishRun(ctx context.Context, runID string, status model.RunStatus, rowsLoaded int64, summaryRows int, runErr string) {
	if p.store == nil || runID == "" {
		return
	}
	if err := p.store.CompleteRun(ctx, runID, status, rowsLoaded, summaryRows, runErr); err != nil {
		zap.L().Warn("pipeline: failed to record run outcome", zap.String("run_id", runID), zap.Error(err))
	}
}
