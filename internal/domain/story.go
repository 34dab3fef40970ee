package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Константы статуса истории. Переходы только вперед:
// in_progress -> completed (после добавления последней главы).
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// Константы назначения главы в аутлайне. Используются генераторами
// для решения, оправдано ли сюжетом изменение деталей персонажа.
const (
	PurposeSetup      = "setup"
	PurposeRising     = "rising"
	PurposeClimax     = "climax"
	PurposeResolution = "resolution"
)

// Story - корневой агрегат истории. Принадлежит ровно одному пользователю.
// Все мутации (главы, промпты, детали персонажей, ассеты) проходят через него,
// сохранение всегда целиком (см. repository.StoryRepository).
type Story struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	Title         string    `json:"title"`
	Summary       string    `json:"summary"`                  // Исходное описание истории
	Tone          string    `json:"tone,omitempty"`           // Тон повествования из аутлайна
	Themes        []string  `json:"themes,omitempty"`         // Темы из аутлайна
	Settings      []string  `json:"settings,omitempty"`       // Локации из аутлайна
	TotalChapters int       `json:"total_chapters"`
	Status        string    `json:"status"`

	// Аутлайн фиксируется один раз при создании истории и больше не регенерируется.
	Outline []OutlineItem `json:"outline"`

	// Главы строго последовательны: глава N добавляется только после N-1,
	// номера уникальны. См. AppendChapter.
	Chapters []Chapter `json:"chapters"`

	// Канонические детали персонажей. Ключ - имя в нижнем регистре.
	CharacterDetails map[string]CharacterDetail `json:"character_details,omitempty"`

	// Промпты изображений по номерам глав. Регенерация главы заменяет
	// только её запись.
	ChapterImagePrompts map[int][]string `json:"chapter_image_prompts,omitempty"`

	// Сгенерированные YouTube-ассеты, каждый регенерируется независимо.
	YouTubeAssets YouTubeAssets `json:"youtube_assets"`

	// Версия для оптимистической блокировки на уровне документа.
	// Хранится в отдельной колонке, не в JSON агрегата.
	Version int64 `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OutlineItem - запланированная глава: её роль в сюжете и краткое описание.
type OutlineItem struct {
	Number      int    `json:"number"`
	Purpose     string `json:"purpose"` // setup | rising | climax | resolution
	Description string `json:"description"`
}

// Chapter - сгенерированная глава. Summary обязателен: следующая глава
// строится на нем, а не на полном тексте.
type Chapter struct {
	Number     int      `json:"number"`
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Summary    string   `json:"summary"`
	WordCount  int      `json:"word_count"`
	Paragraphs []string `json:"paragraphs"`
}

// CharacterDetail - каноническое визуальное/нарративное описание персонажа.
// Поля заполняются инкрементально; заполненное поле перезаписывается только
// при сюжетном обосновании (climax/resolution).
type CharacterDetail struct {
	Name               string `json:"name"`
	Age                string `json:"age,omitempty"`
	SkinTone           string `json:"skin_tone,omitempty"`
	Ethnicity          string `json:"ethnicity,omitempty"`
	Attire             string `json:"attire,omitempty"`
	FacialFeatures     string `json:"facial_features,omitempty"`
	PhysicalTraits     string `json:"physical_traits,omitempty"`
	OtherDetails       string `json:"other_details,omitempty"`
	LastUpdatedChapter int    `json:"last_updated_chapter,omitempty"`
	UpdateReason       string `json:"update_reason,omitempty"`
}

// YouTubeAssets - вспомогательные сгенерированные метаданные.
// Не зависят от состояния глав.
type YouTubeAssets struct {
	Titles          []string         `json:"titles,omitempty"`
	Description     string           `json:"description,omitempty"`
	Hashtags        []string         `json:"hashtags,omitempty"`
	Keywords        []string         `json:"keywords,omitempty"`
	ThumbnailPrompt *ThumbnailPrompt `json:"thumbnail_prompt,omitempty"`
	ShortsHooks     []string         `json:"shorts_hooks,omitempty"`
}

// ThumbnailPrompt - промпт для обложки. Error заполняется, когда ответ
// модели не удалось распарсить и prompt содержит сырой текст.
type ThumbnailPrompt struct {
	Prompt   string `json:"prompt"`
	MainText string `json:"main_text,omitempty"`
	Style    string `json:"style,omitempty"`
	Error    string `json:"error,omitempty"`
}

// StoryListItem - краткая информация об истории для списков.
type StoryListItem struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	Status        string    `json:"status"`
	TotalChapters int       `json:"total_chapters"`
	ChaptersCount int       `json:"chapters_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewStory создает историю со статусом in_progress и пустыми коллекциями.
func NewStory(userID uuid.UUID, title, summary string, totalChapters int) *Story {
	now := time.Now().UTC()
	return &Story{
		ID:                  uuid.New(),
		UserID:              userID,
		Title:               title,
		Summary:             summary,
		TotalChapters:       totalChapters,
		Status:              StatusInProgress,
		Chapters:            []Chapter{},
		CharacterDetails:    map[string]CharacterDetail{},
		ChapterImagePrompts: map[int][]string{},
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

// CharacterKey нормализует имя персонажа для использования в качестве ключа.
func CharacterKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Chapter возвращает главу с указанным номером.
func (s *Story) Chapter(number int) (Chapter, bool) {
	for _, ch := range s.Chapters {
		if ch.Number == number {
			return ch, true
		}
	}
	return Chapter{}, false
}

// HasChapter сообщает, существует ли глава с указанным номером.
func (s *Story) HasChapter(number int) bool {
	_, ok := s.Chapter(number)
	return ok
}

// OutlinePurpose возвращает назначение главы из аутлайна
// (пустая строка, если аутлайна для номера нет).
func (s *Story) OutlinePurpose(number int) string {
	for _, item := range s.Outline {
		if item.Number == number {
			return item.Purpose
		}
	}
	return ""
}

// AppendChapter добавляет главу, соблюдая инварианты агрегата:
// номер в диапазоне 1..TotalChapters, без дубликатов, строго после
// предыдущей главы и только с непустым summary. Если добавлена последняя
// глава, статус переводится в completed.
func (s *Story) AppendChapter(ch Chapter) error {
	if ch.Number < 1 || ch.Number > s.TotalChapters {
		return NewValidationError("chapter number is out of range")
	}
	if s.HasChapter(ch.Number) {
		return ErrChapterExists
	}
	if ch.Number > 1 && !s.HasChapter(ch.Number-1) {
		return ErrPreviousChapterMissing
	}
	if strings.TrimSpace(ch.Summary) == "" {
		return NewValidationError("chapter summary must not be empty")
	}

	s.Chapters = append(s.Chapters, ch)
	if ch.Number == s.TotalChapters {
		s.Status = StatusCompleted
	}
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// SetChapterImagePrompts заменяет промпты изображений только для одной главы.
func (s *Story) SetChapterImagePrompts(number int, prompts []string) {
	if s.ChapterImagePrompts == nil {
		s.ChapterImagePrompts = map[int][]string{}
	}
	s.ChapterImagePrompts[number] = prompts
	s.UpdatedAt = time.Now().UTC()
}
