package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Compile-time check
var _ StoryLocker = (*redisStoryLocker)(nil)

const storyLockKeyPrefix = "story_generation_lock:"

// redisStoryLocker сериализует генерацию глав по истории через
// SET NX с TTL. TTL страхует от зависших блокировок при падении процесса.
type redisStoryLocker struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisStoryLocker создает Redis-блокировку генерации.
func NewRedisStoryLocker(client *redis.Client, logger *zap.Logger) StoryLocker {
	return &redisStoryLocker{
		client: client,
		logger: logger.Named("RedisStoryLocker"),
	}
}

func lockKey(storyID uuid.UUID) string {
	return storyLockKeyPrefix + storyID.String()
}

func (l *redisStoryLocker) Acquire(ctx context.Context, storyID uuid.UUID, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, lockKey(storyID), time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		l.logger.Error("Failed to acquire story lock", zap.String("storyID", storyID.String()), zap.Error(err))
		return false, fmt.Errorf("ошибка получения блокировки истории %s: %w", storyID, err)
	}
	if !ok {
		l.logger.Debug("Story lock is busy", zap.String("storyID", storyID.String()))
	}
	return ok, nil
}

func (l *redisStoryLocker) Release(ctx context.Context, storyID uuid.UUID) error {
	if err := l.client.Del(ctx, lockKey(storyID)).Err(); err != nil {
		l.logger.Error("Failed to release story lock", zap.String("storyID", storyID.String()), zap.Error(err))
		return fmt.Errorf("ошибка снятия блокировки истории %s: %w", storyID, err)
	}
	return nil
}
