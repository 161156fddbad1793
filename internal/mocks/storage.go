package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockPhotoStore is a mock implementation of storage.PhotoStore
type MockPhotoStore struct {
	mock.Mock
}

func (m *MockPhotoStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	args := m.Called(ctx, key, body, contentType)
	return args.Error(0)
}

func (m *MockPhotoStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockPhotoStore) URL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}
