// Package service содержит бизнес-логику генерации историй: движок
// непрерывности глав, трекер консистентности персонажей, генераторы
// промптов изображений и YouTube-ассетов.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"shorts-server/internal/ai"
	"shorts-server/internal/domain"
	"shorts-server/internal/messaging"
	"shorts-server/internal/parser"
	"shorts-server/internal/repository"
)

const (
	// TTL блокировки генерации. Дольше любого разумного запроса к модели
	// с учетом повторов.
	generationLockTTL = 10 * time.Minute

	// Число предложений при синтезе summary из текста главы.
	fallbackSummarySentences = 3

	defaultListLimit = 20
	maxListLimit     = 100
)

// StoryService реализует операции над историями.
type StoryService struct {
	generator ai.TextGenerator
	stories   repository.StoryRepository
	summaries repository.SummaryRepository
	locker    repository.StoryLocker
	publisher messaging.StoryEventPublisher
	logger    *zap.Logger
}

// NewStoryService создает сервис историй.
func NewStoryService(
	generator ai.TextGenerator,
	stories repository.StoryRepository,
	summaries repository.SummaryRepository,
	locker repository.StoryLocker,
	publisher messaging.StoryEventPublisher,
	logger *zap.Logger,
) *StoryService {
	return &StoryService{
		generator: generator,
		stories:   stories,
		summaries: summaries,
		locker:    locker,
		publisher: publisher,
		logger:    logger.Named("StoryService"),
	}
}

// outlineResponse - ответ модели на запрос аутлайна. Characters - сырой
// фрагмент: одиночный объект вместо массива нормализуется при декодировании.
type outlineResponse struct {
	Title      string               `json:"title"`
	Tone       string               `json:"tone"`
	Themes     []string             `json:"themes"`
	Settings   []string             `json:"settings"`
	Characters json.RawMessage      `json:"characters"`
	Outline    []outlineItemPayload `json:"outline"`
}

type outlineItemPayload struct {
	Number      int    `json:"number"`
	Purpose     string `json:"purpose"`
	Description string `json:"description"`
}

// chapterResponse - ответ модели на запрос главы.
type chapterResponse struct {
	Number     int             `json:"number"`
	Title      string          `json:"title"`
	Content    string          `json:"content"`
	Summary    string          `json:"summary"`
	Paragraphs []string        `json:"paragraphs"`
	WordCount  int             `json:"word_count"`
	Characters json.RawMessage `json:"characters,omitempty"`
}

// GenerateChapter - основная операция движка непрерывности: генерирует
// очередную главу и атомарно добавляет ее в агрегат. Частичных сохранений
// нет: либо глава с summary и обновленный агрегат, либо ошибка без
// изменений состояния.
func (s *StoryService) GenerateChapter(ctx context.Context, userID uuid.UUID, req *domain.GenerateChapterRequest) (*domain.Story, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var story *domain.Story
	isNew := req.IsNewStory()

	if isNew {
		summary, err := s.resolveSummary(ctx, userID, req)
		if err != nil {
			return nil, err
		}
		story = domain.NewStory(userID, "", summary, req.TotalChapters)
	} else {
		loaded, err := s.stories.GetByID(ctx, *req.StoryID, userID)
		if err != nil {
			return nil, err
		}
		story = loaded
		// Параметры продолжения проверяются против агрегата, а не запроса.
		if req.TotalChapters != story.TotalChapters {
			return nil, domain.NewValidationError("total_chapters does not match the story")
		}
		if story.HasChapter(req.ChapterNumber) {
			return nil, domain.ErrChapterExists
		}
		if req.ChapterNumber > 1 && !story.HasChapter(req.ChapterNumber-1) {
			return nil, domain.ErrPreviousChapterMissing
		}
	}

	// Сериализация генерации по истории. Повторный запрос во время
	// генерации получает 409, а не дубликат главы.
	acquired, err := s.locker.Acquire(ctx, story.ID, generationLockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, domain.ErrGenerationInProgress
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), story.ID); err != nil {
			s.logger.Warn("Failed to release generation lock", zap.String("storyID", story.ID.String()), zap.Error(err))
		}
	}()

	logFields := []zap.Field{
		zap.String("storyID", story.ID.String()),
		zap.String("userID", userID.String()),
		zap.Int("chapterNumber", req.ChapterNumber),
	}
	s.logger.Info("Generating chapter", logFields...)

	// Аутлайн создается один раз, на первой главе новой истории.
	if isNew {
		s.generateOutline(ctx, story)
	}

	chapter, chapterCharacters, err := s.generateChapterContent(ctx, story, req.ChapterNumber)
	if err != nil {
		s.logger.Error("Chapter generation failed", append(logFields, zap.Error(err))...)
		return nil, err
	}

	if story.CharacterDetails == nil {
		story.CharacterDetails = map[string]domain.CharacterDetail{}
	}
	purpose := story.OutlinePurpose(chapter.Number)
	mergeCharacterDetails(story.CharacterDetails, chapterCharacters, chapterPolicy(chapter.Number, purpose))

	if err := story.AppendChapter(chapter); err != nil {
		return nil, err
	}

	if isNew {
		if err := s.stories.Create(ctx, story); err != nil {
			return nil, err
		}
	} else {
		if err := s.stories.Update(ctx, story); err != nil {
			return nil, err
		}
	}
	s.logger.Info("Chapter generated and saved", append(logFields, zap.String("status", story.Status))...)

	s.publishChapterEvents(ctx, story, chapter.Number)
	return story, nil
}

// resolveSummary возвращает исходное описание для новой истории:
// либо текст из запроса, либо сохраненное описание по summary_id.
func (s *StoryService) resolveSummary(ctx context.Context, userID uuid.UUID, req *domain.GenerateChapterRequest) (string, error) {
	if req.Summary != "" {
		return req.Summary, nil
	}
	return s.summaries.GetSummary(ctx, *req.SummaryID, userID)
}

// generateOutline запрашивает скелет истории и заполняет агрегат.
// Ошибка модели или парсинга не срывает генерацию: применяется
// детерминированный запасной аутлайн.
func (s *StoryService) generateOutline(ctx context.Context, story *domain.Story) {
	raw, err := s.generator.Complete(ctx, ai.CompletionRequest{
		SystemPrompt: outlineSystemPrompt,
		UserPrompt:   buildOutlineUserPrompt(story.Summary, story.TotalChapters),
	})

	var resp outlineResponse
	if err == nil {
		err = parser.DecodeObject(raw, &resp)
	}
	if err != nil || len(resp.Outline) == 0 {
		s.logger.Warn("Outline generation failed, using fallback outline",
			zap.String("storyID", story.ID.String()), zap.Error(err))
		story.Outline = fallbackOutline(story.Summary, story.TotalChapters)
		if story.Title == "" {
			story.Title = parser.FirstSentences(story.Summary, 1)
		}
		return
	}

	if resp.Title != "" {
		story.Title = resp.Title
	} else if story.Title == "" {
		story.Title = parser.FirstSentences(story.Summary, 1)
	}
	story.Tone = resp.Tone
	story.Themes = resp.Themes
	story.Settings = resp.Settings

	outline := make([]domain.OutlineItem, 0, story.TotalChapters)
	for i, item := range resp.Outline {
		if i == story.TotalChapters {
			break
		}
		number := item.Number
		if number <= 0 {
			number = i + 1
		}
		outline = append(outline, domain.OutlineItem{
			Number:      number,
			Purpose:     normalizePurpose(item.Purpose, number, story.TotalChapters),
			Description: item.Description,
		})
	}
	// Аутлайн всегда длиной в totalChapters: недостающие записи дополняются
	// шаблонными, иначе у поздних глав не будет назначения.
	if len(outline) < story.TotalChapters {
		s.logger.Warn("Outline is shorter than total chapters, padding",
			zap.String("storyID", story.ID.String()),
			zap.Int("parsed", len(outline)),
			zap.Int("totalChapters", story.TotalChapters))
		snippet := outlineSnippet(story.Summary)
		for n := len(outline) + 1; n <= story.TotalChapters; n++ {
			outline = append(outline, fallbackOutlineItem(snippet, n, story.TotalChapters))
		}
	}
	story.Outline = outline

	mergeCharacterDetails(story.CharacterDetails, decodeCharacterList(resp.Characters), extractionPolicy())
}

// fallbackOutline - детерминированный аутлайн: первая глава - завязка,
// последняя - развязка, остальные - развитие. Описания шаблонные, из
// первых 100 символов описания истории.
func fallbackOutline(summary string, totalChapters int) []domain.OutlineItem {
	snippet := outlineSnippet(summary)
	outline := make([]domain.OutlineItem, 0, totalChapters)
	for n := 1; n <= totalChapters; n++ {
		outline = append(outline, fallbackOutlineItem(snippet, n, totalChapters))
	}
	return outline
}

func fallbackOutlineItem(snippet string, number, totalChapters int) domain.OutlineItem {
	purpose := domain.PurposeRising
	switch {
	case number == 1:
		purpose = domain.PurposeSetup
	case number == totalChapters:
		purpose = domain.PurposeResolution
	}
	return domain.OutlineItem{
		Number:      number,
		Purpose:     purpose,
		Description: fmt.Sprintf("Chapter %d of the story: %s", number, snippet),
	}
}

// outlineSnippet обрезает описание по рунам, не по байтам: срез посреди
// многобайтового символа оставил бы битую строку.
func outlineSnippet(summary string) string {
	runes := []rune(summary)
	if len(runes) > 100 {
		runes = runes[:100]
	}
	return string(runes)
}

// normalizePurpose приводит назначение главы к известному набору значений.
func normalizePurpose(purpose string, number, totalChapters int) string {
	switch strings.ToLower(strings.TrimSpace(purpose)) {
	case domain.PurposeSetup:
		return domain.PurposeSetup
	case domain.PurposeRising:
		return domain.PurposeRising
	case domain.PurposeClimax:
		return domain.PurposeClimax
	case domain.PurposeResolution:
		return domain.PurposeResolution
	}
	if number == 1 {
		return domain.PurposeSetup
	}
	if number == totalChapters {
		return domain.PurposeResolution
	}
	return domain.PurposeRising
}

// generateChapterContent запрашивает главу и разбирает ответ. Нечитаемый
// JSON не срывает операцию: глава собирается из сырого текста. Summary
// обязателен всегда - при отсутствии синтезируется из содержимого.
func (s *StoryService) generateChapterContent(ctx context.Context, story *domain.Story, chapterNumber int) (domain.Chapter, []characterPayload, error) {
	contextText := buildChapterContext(story, chapterNumber)
	raw, err := s.generator.Complete(ctx, ai.CompletionRequest{
		SystemPrompt: chapterSystemPrompt,
		UserPrompt:   buildChapterUserPrompt(story, chapterNumber, contextText),
	})
	if err != nil {
		return domain.Chapter{}, nil, err
	}

	var resp chapterResponse
	if parseErr := parser.DecodeObject(raw, &resp); parseErr != nil || strings.TrimSpace(resp.Content) == "" {
		s.logger.Warn("Chapter response is not parseable, building fallback chapter",
			zap.String("storyID", story.ID.String()),
			zap.Int("chapterNumber", chapterNumber),
			zap.Error(parseErr))
		return fallbackChapter(raw, chapterNumber), nil, nil
	}

	chapter := domain.Chapter{
		Number:     chapterNumber,
		Title:      resp.Title,
		Content:    resp.Content,
		Summary:    strings.TrimSpace(resp.Summary),
		WordCount:  resp.WordCount,
		Paragraphs: resp.Paragraphs,
	}
	if chapter.Title == "" {
		chapter.Title = fmt.Sprintf("Chapter %d", chapterNumber)
	}
	if len(chapter.Paragraphs) == 0 {
		chapter.Paragraphs = parser.SplitParagraphs(chapter.Content)
	}
	if chapter.WordCount <= 0 {
		chapter.WordCount = parser.WordCount(chapter.Content)
	}
	// Гарантия summary: глава без summary сломает контекст следующей.
	if chapter.Summary == "" {
		chapter.Summary = parser.FirstSentences(chapter.Content, fallbackSummarySentences)
	}
	return chapter, decodeCharacterList(resp.Characters), nil
}

// fallbackChapter собирает главу из сырого текста ответа модели.
func fallbackChapter(raw string, chapterNumber int) domain.Chapter {
	content := strings.TrimSpace(parser.StripCodeFences(raw))
	return domain.Chapter{
		Number:     chapterNumber,
		Title:      fmt.Sprintf("Chapter %d", chapterNumber),
		Content:    content,
		Summary:    parser.FirstSentences(content, fallbackSummarySentences),
		WordCount:  parser.WordCount(content),
		Paragraphs: []string{content},
	}
}

// publishChapterEvents отправляет события о сгенерированной главе.
// Ошибки публикации не влияют на результат операции.
func (s *StoryService) publishChapterEvents(ctx context.Context, story *domain.Story, chapterNumber int) {
	events := []string{messaging.EventChapterGenerated}
	if story.Status == domain.StatusCompleted {
		events = append(events, messaging.EventStoryCompleted)
	}
	for _, eventType := range events {
		payload := messaging.StoryEventPayload{
			EventType:     eventType,
			StoryID:       story.ID.String(),
			UserID:        story.UserID.String(),
			ChapterNumber: chapterNumber,
			TotalChapters: story.TotalChapters,
			Timestamp:     time.Now().UTC(),
		}
		if err := s.publisher.PublishStoryEvent(ctx, payload); err != nil {
			s.logger.Warn("Failed to publish story event",
				zap.String("storyID", story.ID.String()),
				zap.String("eventType", eventType),
				zap.Error(err))
		}
	}
}

// GetStory возвращает историю целиком с проверкой владельца.
func (s *StoryService) GetStory(ctx context.Context, userID, id uuid.UUID) (*domain.Story, error) {
	return s.stories.GetByID(ctx, id, userID)
}

// ListStories возвращает страницу историй пользователя.
func (s *StoryService) ListStories(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.StoryListItem, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.stories.List(ctx, userID, limit, offset)
}

// DeleteStory удаляет историю пользователя.
func (s *StoryService) DeleteStory(ctx context.Context, userID, id uuid.UUID) error {
	return s.stories.Delete(ctx, id, userID)
}
