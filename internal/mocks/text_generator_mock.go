// Package mocks содержит ручной testify-мок шлюза языковой модели.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"shorts-server/internal/ai"
)

// MockTextGenerator - мок ai.TextGenerator.
type MockTextGenerator struct {
	mock.Mock
}

var _ ai.TextGenerator = (*MockTextGenerator)(nil)

func (m *MockTextGenerator) Complete(ctx context.Context, req ai.CompletionRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}
