// Package model defines the domain types shared across the ETL,
// warehouse, mirror, and forecast components.
package model

import "time"

// EmissionRecord is one country-year row from the OWID CO₂ dataset,
// restricted to the four tracked columns. Records with any missing
// value are dropped at load time and never reach this type.
type EmissionRecord struct {
	Country    string  `json:"country" bigquery:"country"`
	Year       int     `json:"year" bigquery:"year"`
	CO2        float64 `json:"co2" bigquery:"co2"`
	Population int64   `json:"population" bigquery:"population"`
}

// SummaryRow is one row of the top-emitters aggregation for a single
// year: total CO₂ summed per country, descending, at most five rows.
type SummaryRow struct {
	Country  string  `json:"country" bigquery:"country" bson:"country"`
	TotalCO2 float64 `json:"total_co2" bigquery:"total_co2" bson:"total_co2"`
}

// ForecastRow is one predicted point from the warehouse regression
// model for the configured country.
type ForecastRow struct {
	Year         int     `json:"year" bigquery:"year"`
	PredictedCO2 float64 `json:"predicted_co2" bigquery:"predicted_co2"`
}

// AnalysisResult is the outcome of one full analysis run.
type AnalysisResult struct {
	RunID      string        `json:"run_id,omitempty"`
	Year       int           `json:"year"`
	RowsLoaded int64         `json:"rows_loaded"`
	Summary    []SummaryRow  `json:"summary"`
	Forecast   []ForecastRow `json:"forecast,omitempty"`
}

// RunStatus represents the current state of an analysis run.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one recorded analysis run in the history store.
type Run struct {
	ID          string     `json:"id"`
	Year        int        `json:"year"`
	Status      RunStatus  `json:"status"`
	RowsLoaded  int64      `json:"rows_loaded"`
	SummaryRows int        `json:"summary_rows"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	DurationMS  int64      `json:"duration_ms"`
}
