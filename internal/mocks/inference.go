package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/pageza/macrotrack/backend/internal/nutrition"
)

// MockInferrer is a mock implementation of nutrition.Inferrer
type MockInferrer struct {
	mock.Mock
}

func (m *MockInferrer) Infer(ctx context.Context, apiKey string, prompt nutrition.PromptPair, maxTokens int) (string, error) {
	args := m.Called(ctx, apiKey, prompt, maxTokens)
	return args.String(0), args.Error(1)
}

// Prompts returns the prompt pairs the mock was called with, in order.
func (m *MockInferrer) Prompts() []nutrition.PromptPair {
	var prompts []nutrition.PromptPair
	for _, call := range m.Calls {
		if call.Method == "Infer" {
			prompts = append(prompts, call.Arguments.Get(2).(nutrition.PromptPair))
		}
	}
	return prompts
}
