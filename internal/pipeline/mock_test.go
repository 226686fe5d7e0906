package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/docval/internal/model"
)

// --- Sink Mock ---

type mockSink struct {
	mock.Mock
}

func (m *mockSink) InsertRecords(ctx context.Context, runID string, recs []model.StructuredRecord) (int64, error) {
	args := m.Called(ctx, runID, recs)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockSink) InsertDiscrepancies(ctx context.Context, runID string, discs []model.DiscrepancyRecord) (int64, error) {
	args := m.Called(ctx, runID, discs)
	return args.Get(0).(int64), args.Error(1)
}

// --- Source Mock ---

type mockSource struct {
	mock.Mock
}

func (m *mockSource) List(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockSource) Read(ctx context.Context, name string) ([]byte, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockSource) Close() error {
	return m.Called().Error(0)
}
