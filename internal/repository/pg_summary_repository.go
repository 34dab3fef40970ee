package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"shorts-server/internal/domain"
)

// Compile-time check
var _ SummaryRepository = (*pgSummaryRepository)(nil)

// pgSummaryRepository читает сохраненные описания историй из таблицы
// summaries. Запись создается вне этого сервиса.
type pgSummaryRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPgSummaryRepository создает PostgreSQL-репозиторий описаний.
func NewPgSummaryRepository(pool *pgxpool.Pool, logger *zap.Logger) SummaryRepository {
	return &pgSummaryRepository{
		pool:   pool,
		logger: logger.Named("PgSummaryRepo"),
	}
}

func (r *pgSummaryRepository) GetSummary(ctx context.Context, id, userID uuid.UUID) (string, error) {
	query := `SELECT text FROM summaries WHERE id = $1 AND user_id = $2`
	logFields := []zap.Field{zap.String("summaryID", id.String()), zap.String("userID", userID.String())}
	r.logger.Debug("Getting summary by ID", logFields...)

	var text string
	err := r.pool.QueryRow(ctx, query, id, userID).Scan(&text)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Warn("Summary not found by ID for user", logFields...)
			return "", domain.ErrSummaryNotFound
		}
		r.logger.Error("Failed to get summary", append(logFields, zap.Error(err))...)
		return "", fmt.Errorf("ошибка получения описания %s: %w", id, err)
	}
	return text, nil
}
