package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"pilotage-service/internal/storage"
)

// MockReportStore is a mock implementation of storage.ReportStore.
type MockReportStore struct {
	mock.Mock
}

func (m *MockReportStore) Save(ctx context.Context, input storage.SaveInput) (string, error) {
	args := m.Called(ctx, input)
	return args.String(0), args.Error(1)
}

func (m *MockReportStore) Load(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
