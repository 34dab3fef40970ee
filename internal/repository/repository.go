// Package repository содержит доступ к хранилищам: PostgreSQL для агрегатов
// историй и исходных описаний, Redis для блокировок генерации.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"shorts-server/internal/domain"
)

// StoryRepository - хранилище агрегатов историй. Агрегат сохраняется целиком
// как JSONB-документ; частичных обновлений нет.
type StoryRepository interface {
	Create(ctx context.Context, story *domain.Story) error
	// Update сохраняет агрегат с проверкой версии. Если версия в базе
	// изменилась, возвращает domain.ErrVersionConflict.
	Update(ctx context.Context, story *domain.Story) error
	// GetByID загружает историю с обязательной проверкой владельца.
	// Чужая или несуществующая история - domain.ErrStoryNotFound.
	GetByID(ctx context.Context, id, userID uuid.UUID) (*domain.Story, error)
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.StoryListItem, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

// SummaryRepository - хранилище сохраненных описаний историй
// (путь создания истории по summary_id).
type SummaryRepository interface {
	GetSummary(ctx context.Context, id, userID uuid.UUID) (string, error)
}

// StoryLocker сериализует генерацию по истории. Acquire возвращает false,
// если блокировка уже занята.
type StoryLocker interface {
	Acquire(ctx context.Context, storyID uuid.UUID, ttl time.Duration) (bool, error)
	Release(ctx context.Context, storyID uuid.UUID) error
}
