package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStatusValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status RunStatus
		want   string
	}{
		{RunStatusQueued, "queued"},
		{RunStatusRunning, "running"},
		{RunStatusComplete, "complete"},
		{RunStatusFailed, "failed"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, string(tt.status))
	}
}

func TestSummaryRowJSON(t *testing.T) {
	t.Parallel()

	row := SummaryRow{Country: "China", TotalCO2: 9000}
	data, err := json.Marshal(row)
	require.NoError(t, err)
	assert.JSONEq(t, `{"country":"China","total_co2":9000}`, string(data))
}

func TestAnalysisResultJSON_OmitsEmptyForecast(t *testing.T) {
	t.Parallel()

	res := AnalysisResult{Year: 2020, RowsLoaded: 12, Summary: []SummaryRow{}}
	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "forecast")
	assert.NotContains(t, string(data), "run_id")
}
