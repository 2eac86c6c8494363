package storagemock

import (
	"context"
	"time"

	"github.com/energylife/energylife/pkg/storage"
	"github.com/energylife/energylife/pkg/types"
	"github.com/stretchr/testify/mock"
)

type MockDatabase struct {
	mock.Mock
}

var _ storage.Database = (*MockDatabase)(nil)

func (m *MockDatabase) GetDraft(ctx context.Context, sessionID string) (types.Draft, error) {
	args := m.Called(ctx, sessionID)
	if len(args) > 0 {
		return args.Get(0).(types.Draft), args.Error(1)
	}
	return types.Draft{}, storage.ErrDraftNotFound
}

func (m *MockDatabase) SetDraft(ctx context.Context, draft types.Draft) error {
	args := m.Called(ctx, draft)
	return args.Error(0)
}

func (m *MockDatabase) DeleteDraft(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *MockDatabase) InsertFeedback(ctx context.Context, feedback types.Feedback) error {
	args := m.Called(ctx, feedback)
	return args.Error(0)
}

func (m *MockDatabase) ListFeedback(ctx context.Context, start, end time.Time) ([]types.Feedback, error) {
	args := m.Called(ctx, start, end)
	if len(args) > 0 {
		if fb := args.Get(0); fb != nil {
			return fb.([]types.Feedback), args.Error(1)
		}
		return nil, args.Error(1)
	}
	return nil, nil
}

func (m *MockDatabase) IncrementVisitors(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	if len(args) > 0 {
		return args.Int(0), args.Error(1)
	}
	return 0, nil
}

func (m *MockDatabase) Close() error {
	args := m.Called()
	return args.Error(0)
}
