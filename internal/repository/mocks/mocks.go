// Package mocks содержит ручные testify-моки репозиториев для юнит-тестов.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"shorts-server/internal/domain"
	"shorts-server/internal/repository"
)

// MockStoryRepository - мок repository.StoryRepository.
type MockStoryRepository struct {
	mock.Mock
}

var _ repository.StoryRepository = (*MockStoryRepository)(nil)

func (m *MockStoryRepository) Create(ctx context.Context, story *domain.Story) error {
	args := m.Called(ctx, story)
	return args.Error(0)
}

func (m *MockStoryRepository) Update(ctx context.Context, story *domain.Story) error {
	args := m.Called(ctx, story)
	return args.Error(0)
}

func (m *MockStoryRepository) GetByID(ctx context.Context, id, userID uuid.UUID) (*domain.Story, error) {
	args := m.Called(ctx, id, userID)
	if story, ok := args.Get(0).(*domain.Story); ok {
		return story, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStoryRepository) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.StoryListItem, error) {
	args := m.Called(ctx, userID, limit, offset)
	if items, ok := args.Get(0).([]domain.StoryListItem); ok {
		return items, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStoryRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

// MockSummaryRepository - мок repository.SummaryRepository.
type MockSummaryRepository struct {
	mock.Mock
}

var _ repository.SummaryRepository = (*MockSummaryRepository)(nil)

func (m *MockSummaryRepository) GetSummary(ctx context.Context, id, userID uuid.UUID) (string, error) {
	args := m.Called(ctx, id, userID)
	return args.String(0), args.Error(1)
}

// MockStoryLocker - мок repository.StoryLocker.
type MockStoryLocker struct {
	mock.Mock
}

var _ repository.StoryLocker = (*MockStoryLocker)(nil)

func (m *MockStoryLocker) Acquire(ctx context.Context, storyID uuid.UUID, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, storyID, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockStoryLocker) Release(ctx context.Context, storyID uuid.UUID) error {
	args := m.Called(ctx, storyID)
	return args.Error(0)
}
