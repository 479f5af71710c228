package warehouse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/ecolyze/ecolyze/internal/config"
	"github.com/ecolyze/ecolyze/internal/model"
)

// emissionsSchema is the destination table schema. All four columns
// are REQUIRED: rows with missing values never leave the loader.
var emissionsSchema = bigquery.Schema{
	{Name: "country", Type: bigquery.StringFieldType, Required: true},
	{Name: "year", Type: bigquery.IntegerFieldType, Required: true},
	{Name: "co2", Type: bigquery.FloatFieldType, Required: true},
	{Name: "population", Type: bigquery.IntegerFieldType, Required: true},
}

// BigQueryClient implements Warehouse against Google BigQuery.
type BigQueryClient struct {
	bq       *bigquery.Client
	cfg      config.WarehouseConfig
	forecast config.ForecastConfig
	sql      *SQLBuilder
}

// NewBigQuery creates a BigQuery-backed Warehouse. Credentials come
// from the config (inline JSON, a file path, or application default
// credentials, in that order).
func NewBigQuery(ctx context.Context, whCfg config.WarehouseConfig, fcCfg config.ForecastConfig) (*BigQueryClient, error) {
	sqlb, err := NewSQLBuilder(whCfg.ProjectID, whCfg.Dataset, whCfg.Table, fcCfg.ModelName)
	if err != nil {
		return nil, err
	}

	var opts []option.ClientOption
	if whCfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(whCfg.Endpoint))
	}
	switch {
	case whCfg.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(whCfg.CredentialsJSON)))
	case whCfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(whCfg.CredentialsFile))
	}

	bq, err := bigquery.NewClient(ctx, whCfg.ProjectID, opts...)
	if err != nil {
		return nil, eris.Wrap(err, "warehouse: create bigquery client")
	}

	return &BigQueryClient{bq: bq, cfg: whCfg, forecast: fcCfg, sql: sqlb}, nil
}

// EnsureDataset implements Warehouse.
func (c *BigQueryClient) EnsureDataset(ctx context.Context) error {
	ds := c.bq.Dataset(c.cfg.Dataset)
	_, err := ds.Metadata(ctx)
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return eris.Wrapf(err, "warehouse: get dataset %s", c.cfg.Dataset)
	}

	zap.L().Info("creating warehouse dataset", zap.String("dataset", c.cfg.Dataset))
	md := &bigquery.DatasetMetadata{Location: c.cfg.Location}
	if err := ds.Create(ctx, md); err != nil {
		return eris.Wrapf(err, "warehouse: create dataset %s", c.cfg.Dataset)
	}
	return nil
}

// LoadEmissions implements Warehouse. The load uses WriteTruncate, so
// repeating it with unchanged data leaves the row count unchanged.
func (c *BigQueryClient) LoadEmissions(ctx context.Context, records []model.EmissionRecord) (int64, error) {
	start := time.Now()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return 0, eris.Wrap(err, "warehouse: encode record")
		}
	}

	src := bigquery.NewReaderSource(&buf)
	src.SourceFormat = bigquery.JSON
	src.Schema = emissionsSchema

	loader := c.bq.Dataset(c.cfg.Dataset).Table(c.cfg.Table).LoaderFrom(src)
	loader.WriteDisposition = bigquery.WriteTruncate

	job, err := loader.Run(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "warehouse: start load job")
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "warehouse: wait for load job")
	}
	if err := status.Err(); err != nil {
		return 0, eris.Wrap(err, "warehouse: load job failed")
	}

	zap.L().Info("warehouse load complete",
		zap.String("table", c.cfg.Table),
		zap.Int("rows", len(records)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return int64(len(records)), nil
}

// TopEmitters implements Warehouse.
func (c *BigQueryClient) TopEmitters(ctx context.Context, year int) ([]model.SummaryRow, error) {
	q := c.bq.Query(c.sql.TopEmittersQuery())
	q.Parameters = []bigquery.QueryParameter{{Name: "year", Value: year}}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, eris.Wrapf(err, "warehouse: top emitters for %d", year)
	}

	rows := make([]model.SummaryRow, 0, 5)
	for {
		var row model.SummaryRow
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "warehouse: read summary row")
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// TrainForecast implements Warehouse.
func (c *BigQueryClient) TrainForecast(ctx context.Context) error {
	start := time.Now()

	q := c.bq.Query(c.sql.CreateModelStmt(c.forecast.Country))
	job, err := q.Run(ctx)
	if err != nil {
		return eris.Wrap(err, "warehouse: start model training")
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return eris.Wrap(err, "warehouse: wait for model training")
	}
	if err := status.Err(); err != nil {
		return eris.Wrap(err, "warehouse: model training failed")
	}

	zap.L().Info("forecast model trained",
		zap.String("model", c.forecast.ModelName),
		zap.String("country", c.forecast.Country),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// PredictForecast implements Warehouse.
func (c *BigQueryClient) PredictForecast(ctx context.Context) ([]model.ForecastRow, error) {
	q := c.bq.Query(c.sql.PredictQuery(c.forecast.Country, c.forecast.MinYear))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "warehouse: predict")
	}

	var rows []model.ForecastRow
	for {
		var row model.ForecastRow
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "warehouse: read forecast row")
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Close implements Warehouse.
func (c *BigQueryClient) Close() error {
	return c.bq.Close()
}

// isNotFound reports whether err is a BigQuery 404.
func isNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == 404
}
