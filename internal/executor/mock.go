package executor

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockExecutor is a testify mock of BulkExecutor for service tests.
type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Execute(ctx context.Context, ids []string, reason string) (Result, error) {
	args := m.Called(ctx, ids, reason)
	result, _ := args.Get(0).(Result)
	return result, args.Error(1)
}
