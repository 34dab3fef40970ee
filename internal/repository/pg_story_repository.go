package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"shorts-server/internal/domain"
)

// Compile-time check
var _ StoryRepository = (*pgStoryRepository)(nil)

// pgStoryRepository хранит историю как JSONB-документ в колонке data.
// Колонки id/user_id/title/status/total_chapters/version дублируются из
// агрегата для индексов, списков и оптимистической блокировки.
type pgStoryRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPgStoryRepository создает PostgreSQL-репозиторий историй.
func NewPgStoryRepository(pool *pgxpool.Pool, logger *zap.Logger) StoryRepository {
	return &pgStoryRepository{
		pool:   pool,
		logger: logger.Named("PgStoryRepo"),
	}
}

func (r *pgStoryRepository) Create(ctx context.Context, story *domain.Story) error {
	query := `
        INSERT INTO stories
            (id, user_id, title, status, total_chapters, version, data, created_at, updated_at)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `
	logFields := []zap.Field{
		zap.String("storyID", story.ID.String()),
		zap.String("userID", story.UserID.String()),
	}
	r.logger.Debug("Creating story", logFields...)

	data, err := json.Marshal(story)
	if err != nil {
		return fmt.Errorf("ошибка сериализации истории: %w", err)
	}

	story.Version = 1
	_, err = r.pool.Exec(ctx, query,
		story.ID,
		story.UserID,
		story.Title,
		story.Status,
		story.TotalChapters,
		story.Version,
		data,
		story.CreatedAt,
		story.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create story", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка создания истории: %w", err)
	}
	r.logger.Info("Story created successfully", logFields...)
	return nil
}

// Update перезаписывает документ целиком с проверкой версии. Ноль
// затронутых строк означает, что версия устарела (или история удалена) -
// вызывающая сторона должна перечитать агрегат и повторить.
func (r *pgStoryRepository) Update(ctx context.Context, story *domain.Story) error {
	query := `
        UPDATE stories
        SET title = $1, status = $2, version = version + 1, data = $3, updated_at = $4
        WHERE id = $5 AND user_id = $6 AND version = $7
    `
	logFields := []zap.Field{
		zap.String("storyID", story.ID.String()),
		zap.Int64("version", story.Version),
	}
	r.logger.Debug("Updating story", logFields...)

	data, err := json.Marshal(story)
	if err != nil {
		return fmt.Errorf("ошибка сериализации истории: %w", err)
	}

	tag, err := r.pool.Exec(ctx, query,
		story.Title,
		story.Status,
		data,
		story.UpdatedAt,
		story.ID,
		story.UserID,
		story.Version,
	)
	if err != nil {
		r.logger.Error("Failed to update story", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка обновления истории %s: %w", story.ID, err)
	}
	if tag.RowsAffected() == 0 {
		r.logger.Warn("Story version conflict on update", logFields...)
		return domain.ErrVersionConflict
	}
	story.Version++
	return nil
}

func (r *pgStoryRepository) GetByID(ctx context.Context, id, userID uuid.UUID) (*domain.Story, error) {
	query := `
        SELECT data, version
        FROM stories
        WHERE id = $1 AND user_id = $2
    `
	logFields := []zap.Field{zap.String("storyID", id.String()), zap.String("userID", userID.String())}
	r.logger.Debug("Getting story by ID", logFields...)

	var data []byte
	var version int64
	err := r.pool.QueryRow(ctx, query, id, userID).Scan(&data, &version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Warn("Story not found by ID for user", logFields...)
			return nil, domain.ErrStoryNotFound
		}
		r.logger.Error("Failed to get story by ID", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("ошибка получения истории %s: %w", id, err)
	}

	var story domain.Story
	if err := json.Unmarshal(data, &story); err != nil {
		return nil, fmt.Errorf("ошибка десериализации истории %s: %w", id, err)
	}
	story.Version = version
	return &story, nil
}

func (r *pgStoryRepository) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.StoryListItem, error) {
	query := `
        SELECT id, title, status, total_chapters,
               COALESCE(jsonb_array_length(data->'chapters'), 0) AS chapters_count,
               created_at, updated_at
        FROM stories
        WHERE user_id = $1
        ORDER BY updated_at DESC
        LIMIT $2 OFFSET $3
    `
	r.logger.Debug("Listing stories", zap.String("userID", userID.String()), zap.Int("limit", limit))

	items := []domain.StoryListItem{}
	if err := pgxscan.Select(ctx, r.pool, &items, query, userID, limit, offset); err != nil {
		r.logger.Error("Failed to list stories", zap.String("userID", userID.String()), zap.Error(err))
		return nil, fmt.Errorf("ошибка получения списка историй: %w", err)
	}
	return items, nil
}

func (r *pgStoryRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	query := `DELETE FROM stories WHERE id = $1 AND user_id = $2`
	logFields := []zap.Field{zap.String("storyID", id.String()), zap.String("userID", userID.String())}

	tag, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		r.logger.Error("Failed to delete story", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка удаления истории %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		r.logger.Warn("Story not found on delete", logFields...)
		return domain.ErrStoryNotFound
	}
	r.logger.Info("Story deleted", logFields...)
	return nil
}
