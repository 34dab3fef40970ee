// Package mocks содержит ручной testify-мок издателя событий.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"shorts-server/internal/messaging"
)

// MockStoryEventPublisher - мок messaging.StoryEventPublisher.
type MockStoryEventPublisher struct {
	mock.Mock
}

var _ messaging.StoryEventPublisher = (*MockStoryEventPublisher)(nil)

func (m *MockStoryEventPublisher) PublishStoryEvent(ctx context.Context, payload messaging.StoryEventPayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}
