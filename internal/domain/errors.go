package domain

import "errors"

// Стандартные ошибки приложения. Ошибки "не найдено" намеренно не различают
// отсутствие ресурса и чужое владение, чтобы не раскрывать существование
// чужих историй.
var (
	ErrStoryNotFound   = errors.New("story not found")
	ErrSummaryNotFound = errors.New("summary not found")
	ErrChapterNotFound = errors.New("chapter not found")

	ErrChapterExists          = errors.New("chapter already exists")
	ErrPreviousChapterMissing = errors.New("previous chapter must be generated first")

	// ErrGenerationInProgress - генерация для этой истории уже идет
	// (per-story блокировка в Redis).
	ErrGenerationInProgress = errors.New("generation is already in progress for this story")

	// ErrVersionConflict - версия агрегата изменилась между загрузкой
	// и сохранением (оптимистическая блокировка).
	ErrVersionConflict = errors.New("story was modified concurrently")

	// Ошибки токенов для auth middleware.
	ErrTokenInvalid   = errors.New("token is invalid")
	ErrTokenExpired   = errors.New("token has expired")
	ErrTokenMalformed = errors.New("token is malformed")
)

// ValidationError представляет ошибку валидации входных данных.
type ValidationError struct {
	Message string
}

// Error возвращает сообщение об ошибке.
func (e ValidationError) Error() string {
	return e.Message
}

// NewValidationError создает новую ошибку валидации.
func NewValidationError(message string) ValidationError {
	return ValidationError{Message: message}
}

// IsValidationError сообщает, является ли ошибка ошибкой валидации.
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}
