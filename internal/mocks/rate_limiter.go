package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/pageza/macrotrack/backend/internal/middleware"
)

// MockRateLimiter is a mock implementation of middleware.RateLimiter
type MockRateLimiter struct {
	mock.Mock
}

func (m *MockRateLimiter) TryAcquire(ctx context.Context, key string) (middleware.Decision, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(middleware.Decision), args.Error(1)
}
