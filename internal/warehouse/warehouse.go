// Package warehouse talks to BigQuery: dataset management, the
// truncate-load of the emissions table, the top-emitters aggregation,
// and the BigQuery ML forecast model.
package warehouse

import (
	"context"

	"github.com/ecolyze/ecolyze/internal/model"
)

// Warehouse defines the operations the pipeline needs from the
// external data warehouse.
type Warehouse interface {
	// EnsureDataset creates the destination dataset if it does not
	// exist. "Not found" is the only recovered error.
	EnsureDataset(ctx context.Context) error

	// LoadEmissions bulk-loads the records into the destination table,
	// replacing its prior contents, and blocks until the load job
	// completes. Returns the number of rows loaded.
	LoadEmissions(ctx context.Context, records []model.EmissionRecord) (int64, error)

	// TopEmitters returns up to five countries with the highest summed
	// CO₂ for the given year, descending. A year with no rows yields
	// an empty slice, not an error.
	TopEmitters(ctx context.Context, year int) ([]model.SummaryRow, error)

	// TrainForecast (re)creates the linear-regression model from the
	// configured country's rows and blocks until training completes.
	TrainForecast(ctx context.Context) error

	// PredictForecast runs ML.PREDICT for the configured country and
	// year lower bound, ordered by year.
	PredictForecast(ctx context.Context) ([]model.ForecastRow, error)

	// Close releases the underlying client.
	Close() error
}
