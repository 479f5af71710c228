package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ecolyze/ecolyze/internal/model"
)

// --- Loader Mock ---

type mockLoader struct {
	mock.Mock
}

func (m *mockLoader) Load(ctx context.Context) ([]model.EmissionRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.EmissionRecord), args.Error(1)
}

func (m *mockLoader) Invalidate() {
	m.Called()
}

// --- Warehouse Mock ---

type mockWarehouse struct {
	mock.Mock
}

func (m *mockWarehouse) EnsureDataset(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockWarehouse) LoadEmissions(ctx context.Context, records []model.EmissionRecord) (int64, error) {
	args := m.Called(ctx, records)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockWarehouse) TopEmitters(ctx context.Context, year int) ([]model.SummaryRow, error) {
	args := m.Called(ctx, year)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SummaryRow), args.Error(1)
}

func (m *mockWarehouse) TrainForecast(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockWarehouse) PredictForecast(ctx context.Context) ([]model.ForecastRow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ForecastRow), args.Error(1)
}

func (m *mockWarehouse) Close() error {
	return m.Called().Error(0)
}

// --- Mirror Mock ---

type mockMirror struct {
	mock.Mock
}

func (m *mockMirror) Replace(ctx context.Context, rows []model.SummaryRow) error {
	return m.Called(ctx, rows).Error(0)
}

func (m *mockMirror) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateRun(ctx context.Context, year int) (*model.Run, error) {
	args := m.Called(ctx, year)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, rowsLoaded int64, summaryRows int, runErr string) error {
	return m.Called(ctx, runID, status, rowsLoaded, summaryRows, runErr).Error(0)
}

func (m *mockStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Run), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}
