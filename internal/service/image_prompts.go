package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"shorts-server/internal/ai"
	"shorts-server/internal/domain"
	"shorts-server/internal/parser"
)

type imagePromptsResponse struct {
	Prompts []string `json:"prompts"`
}

// GenerateImagePrompts генерирует по одному промпту изображения на абзац
// главы. Повторная генерация заменяет промпты только этой главы. После
// генерации из промптов извлекаются детали персонажей и дозаполняются
// в каноническом наборе.
func (s *StoryService) GenerateImagePrompts(ctx context.Context, userID, storyID uuid.UUID, chapterNumber int) ([]string, error) {
	story, err := s.stories.GetByID(ctx, storyID, userID)
	if err != nil {
		return nil, err
	}
	chapter, ok := story.Chapter(chapterNumber)
	if !ok {
		return nil, domain.ErrChapterNotFound
	}

	logFields := []zap.Field{
		zap.String("storyID", storyID.String()),
		zap.Int("chapterNumber", chapterNumber),
	}
	s.logger.Info("Generating image prompts", logFields...)

	raw, err := s.generator.Complete(ctx, ai.CompletionRequest{
		SystemPrompt: imagePromptsSystemPrompt,
		UserPrompt:   buildImagePromptsUserPrompt(story, chapter),
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка генерации промптов изображений: %w", err)
	}

	var resp imagePromptsResponse
	if parseErr := parser.DecodeObject(raw, &resp); parseErr != nil || len(resp.Prompts) == 0 {
		s.logger.Warn("Image prompts response is not parseable, using numbered list fallback",
			append(logFields, zap.Error(parseErr))...)
		resp.Prompts = parser.SplitNumberedList(parser.StripCodeFences(raw))
	}
	if len(resp.Prompts) == 0 {
		return nil, fmt.Errorf("модель не вернула промпты изображений")
	}

	story.SetChapterImagePrompts(chapterNumber, resp.Prompts)

	// Вычитываем детали персонажей обратно из промптов. Сбой извлечения
	// не срывает операцию.
	names := make([]string, 0, len(story.CharacterDetails))
	for _, d := range story.CharacterDetails {
		names = append(names, d.Name)
	}
	extracted, err := s.ExtractCharacterDetails(ctx, resp.Prompts, names)
	if err != nil {
		s.logger.Warn("Character extraction failed", append(logFields, zap.Error(err))...)
	} else if len(extracted) > 0 {
		if story.CharacterDetails == nil {
			story.CharacterDetails = map[string]domain.CharacterDetail{}
		}
		mergeCharacterDetails(story.CharacterDetails, detailsToPayload(extracted), extractionPolicy())
	}

	if err := s.stories.Update(ctx, story); err != nil {
		return nil, err
	}
	s.logger.Info("Image prompts generated", append(logFields, zap.Int("count", len(resp.Prompts)))...)
	return resp.Prompts, nil
}
