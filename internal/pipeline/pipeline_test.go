package pipeline

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ecolyze/ecolyze/internal/model"
)

var testRecords = []model.EmissionRecord{
	{Country: "India", Year: 2020, CO2: 2500, Population: 1380004385},
	{Country: "China", Year: 2020, CO2: 9000, Population: 1439323776},
}

var testSummary = []model.SummaryRow{
	{Country: "China", TotalCO2: 9000},
	{Country: "United States", TotalCO2: 5000},
	{Country: "India", TotalCO2: 2500},
	{Country: "Germany", TotalCO2: 600},
	{Country: "Brazil", TotalCO2: 400},
}

var testForecast = []model.ForecastRow{
	{Year: 2015, PredictedCO2: 2210.4},
	{Year: 2016, PredictedCO2: 2290.1},
}

type testEnv struct {
	loader    *mockLoader
	warehouse *mockWarehouse
	mirror    *mockMirror
	store     *mockStore
	pipeline  *Pipeline
}

func newTestEnv(withStore bool) *testEnv {
	env := &testEnv{
		loader:    &mockLoader{},
		warehouse: &mockWarehouse{},
		mirror:    &mockMirror{},
	}
	if withStore {
		env.store = &mockStore{}
		env.pipeline = New(env.loader, env.warehouse, env.mirror, env.store)
	} else {
		env.pipeline = New(env.loader, env.warehouse, env.mirror, nil)
	}
	return env
}

func (e *testEnv) assertExpectations(t *testing.T) {
	t.Helper()
	e.loader.AssertExpectations(t)
	e.warehouse.AssertExpectations(t)
	e.mirror.AssertExpectations(t)
	if e.store != nil {
		e.store.AssertExpectations(t)
	}
}

func TestRunFullChain(t *testing.T) {
	t.Parallel()

	env := newTestEnv(true)
	ctx := context.Background()

	var order []string
	step := func(name string) func(mock.Arguments) {
		return func(mock.Arguments) { order = append(order, name) }
	}

	env.store.On("CreateRun", mock.Anything, 2020).
		Return(&model.Run{ID: "run-1", Year: 2020, Status: model.RunStatusRunning}, nil)
	env.loader.On("Load", mock.Anything).Return(testRecords, nil).Run(step("load"))
	env.warehouse.On("EnsureDataset", mock.Anything).Return(nil).Run(step("ensure"))
	env.warehouse.On("LoadEmissions", mock.Anything, testRecords).Return(int64(2), nil).Run(step("sync"))
	env.warehouse.On("TopEmitters", mock.Anything, 2020).Return(testSummary, nil).Run(step("aggregate"))
	env.mirror.On("Replace", mock.Anything, testSummary).Return(nil).Run(step("mirror"))
	env.warehouse.On("TrainForecast", mock.Anything).Return(nil).Run(step("train"))
	env.warehouse.On("PredictForecast", mock.Anything).Return(testForecast, nil).Run(step("predict"))
	env.store.On("CompleteRun", mock.Anything, "run-1", model.RunStatusComplete, int64(2), 5, "").Return(nil)

	result, err := env.pipeline.Run(ctx, 2020, true)
	require.NoError(t, err)

	assert.Equal(t, "run-1", result.RunID)
	assert.Equal(t, int64(2), result.RowsLoaded)
	assert.Equal(t, testSummary, result.Summary)
	assert.Equal(t, testForecast, result.Forecast)
	assert.Equal(t, []string{"load", "ensure", "sync", "aggregate", "mirror", "train", "predict"}, order)
	env.assertExpectations(t)
}

func TestRunWithoutForecast(t *testing.T) {
	t.Parallel()

	env := newTestEnv(false)
	env.loader.On("Load", mock.Anything).Return(testRecords, nil)
	env.warehouse.On("EnsureDataset", mock.Anything).Return(nil)
	env.warehouse.On("LoadEmissions", mock.Anything, testRecords).Return(int64(2), nil)
	env.warehouse.On("TopEmitters", mock.Anything, 2020).Return(testSummary, nil)
	env.mirror.On("Replace", mock.Anything, testSummary).Return(nil)

	result, err := env.pipeline.Run(context.Background(), 2020, false)
	require.NoError(t, err)

	assert.Empty(t, result.Forecast)
	env.warehouse.AssertNotCalled(t, "TrainForecast", mock.Anything)
	env.assertExpectations(t)
}

func TestRunSyncsAtMostOnce(t *testing.T) {
	t.Parallel()

	env := newTestEnv(false)
	env.loader.On("Load", mock.Anything).Return(testRecords, nil).Once()
	env.warehouse.On("EnsureDataset", mock.Anything).Return(nil).Once()
	env.warehouse.On("LoadEmissions", mock.Anything, testRecords).Return(int64(2), nil).Once()
	env.warehouse.On("TopEmitters", mock.Anything, mock.Anything).Return(testSummary, nil)
	env.mirror.On("Replace", mock.Anything, testSummary).Return(nil)

	ctx := context.Background()
	_, err := env.pipeline.Run(ctx, 2019, false)
	require.NoError(t, err)
	_, err = env.pipeline.Run(ctx, 2020, false)
	require.NoError(t, err)

	env.assertExpectations(t)
}

func TestInvalidateSyncForcesResync(t *testing.T) {
	t.Parallel()

	env := newTestEnv(false)
	env.loader.On("Load", mock.Anything).Return(testRecords, nil).Twice()
	env.loader.On("Invalidate").Once()
	env.warehouse.On("EnsureDataset", mock.Anything).Return(nil).Twice()
	env.warehouse.On("LoadEmissions", mock.Anything, testRecords).Return(int64(2), nil).Twice()

	ctx := context.Background()
	_, err := env.pipeline.Sync(ctx)
	require.NoError(t, err)

	env.pipeline.InvalidateSync()

	_, err = env.pipeline.Sync(ctx)
	require.NoError(t, err)
	env.assertExpectations(t)
}

func TestSyncFailureIsNotLatched(t *testing.T) {
	t.Parallel()

	env := newTestEnv(false)
	env.loader.On("Load", mock.Anything).Return(testRecords, nil)
	env.warehouse.On("EnsureDataset", mock.Anything).Return(nil)
	env.warehouse.On("LoadEmissions", mock.Anything, testRecords).
		Return(int64(0), eris.New("quota exceeded")).Once()
	env.warehouse.On("LoadEmissions", mock.Anything, testRecords).Return(int64(2), nil).Once()

	ctx := context.Background()
	_, err := env.pipeline.Sync(ctx)
	require.Error(t, err)

	n, err := env.pipeline.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	env.assertExpectations(t)
}

func TestRunEmptyYearMirrorsEmpty(t *testing.T) {
	t.Parallel()

	env := newTestEnv(false)
	env.loader.On("Load", mock.Anything).Return(testRecords, nil)
	env.warehouse.On("EnsureDataset", mock.Anything).Return(nil)
	env.warehouse.On("LoadEmissions", mock.Anything, testRecords).Return(int64(2), nil)
	env.warehouse.On("TopEmitters", mock.Anything, 2003).Return([]model.SummaryRow(nil), nil)
	env.mirror.On("Replace", mock.Anything, []model.SummaryRow{}).Return(nil)

	result, err := env.pipeline.Run(context.Background(), 2003, false)
	require.NoError(t, err)
	assert.Empty(t, result.Summary)
	env.assertExpectations(t)
}

func TestRunAggregateFailureSkipsMirror(t *testing.T) {
	t.Parallel()

	env := newTestEnv(true)
	env.store.On("CreateRun", mock.Anything, 2020).
		Return(&model.Run{ID: "run-9"}, nil)
	env.loader.On("Load", mock.Anything).Return(testRecords, nil)
	env.warehouse.On("EnsureDataset", mock.Anything).Return(nil)
	env.warehouse.On("LoadEmissions", mock.Anything, testRecords).Return(int64(2), nil)
	env.warehouse.On("TopEmitters", mock.Anything, 2020).
		Return(nil, eris.New("syntax error at [2:1]"))
	env.store.On("CompleteRun", mock.Anything, "run-9", model.RunStatusFailed, int64(0), 0, mock.Anything).Return(nil)

	_, err := env.pipeline.Run(context.Background(), 2020, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "aggregate year 2020")

	env.mirror.AssertNotCalled(t, "Replace", mock.Anything, mock.Anything)
	env.warehouse.AssertNotCalled(t, "TrainForecast", mock.Anything)
	env.assertExpectations(t)
}

func TestRunMirrorFailureSkipsForecast(t *testing.T) {
	t.Parallel()

	env := newTestEnv(false)
	env.loader.On("Load", mock.Anything).Return(testRecords, nil)
	env.warehouse.On("EnsureDataset", mock.Anything).Return(nil)
	env.warehouse.On("LoadEmissions", mock.Anything, testRecords).Return(int64(2), nil)
	env.warehouse.On("TopEmitters", mock.Anything, 2020).Return(testSummary, nil)
	env.mirror.On("Replace", mock.Anything, testSummary).Return(eris.New("connection reset"))

	_, err := env.pipeline.Run(context.Background(), 2020, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mirror replace")
	env.warehouse.AssertNotCalled(t, "TrainForecast", mock.Anything)
	env.assertExpectations(t)
}

func TestForecastTrainsThenPredicts(t *testing.T) {
	t.Parallel()

	env := newTestEnv(false)
	env.warehouse.On("TrainForecast", mock.Anything).Return(nil)
	env.warehouse.On("PredictForecast", mock.Anything).Return(testForecast, nil)

	rows, err := env.pipeline.Forecast(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testForecast, rows)
	env.assertExpectations(t)
}

func TestForecastTrainFailureSkipsPredict(t *testing.T) {
	t.Parallel()

	env := newTestEnv(false)
	env.warehouse.On("TrainForecast", mock.Anything).Return(eris.New("model quota"))

	_, err := env.pipeline.Forecast(context.Background())
	require.Error(t, err)
	env.warehouse.AssertNotCalled(t, "PredictForecast", mock.Anything)
	env.assertExpectations(t)
}

func TestRunRecordsFailureEvenWhenStoreCreateFails(t *testing.T) {
	t.Parallel()

	env := newTestEnv(true)
	env.store.On("CreateRun", mock.Anything, 2020).Return(nil, eris.New("store down"))
	env.loader.On("Load", mock.Anything).Return(nil, eris.New("dns failure"))

	_, err := env.pipeline.Run(context.Background(), 2020, false)
	require.Error(t, err)
	// No run ID, so no CompleteRun call.
	env.store.AssertNotCalled(t, "CompleteRun", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	env.assertExpectations(t)
}
