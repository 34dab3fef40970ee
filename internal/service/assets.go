package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"shorts-server/internal/ai"
	"shorts-server/internal/domain"
	"shorts-server/internal/parser"
)

// Генераторы YouTube-ассетов. Каждое поле регенерируется независимо и имеет
// собственную форму запасного разбора: заголовки и хуки - нумерованный
// список, описание - сырой текст, хэштеги - разбор строки, ключевые слова -
// пустой список, обложка - обертка сырого текста с пометкой об ошибке.

const titlesSystemPrompt = `You write YouTube titles for serialized short-form stories.
Given the story, produce 5 compelling clickable titles.
Respond with ONLY a JSON object: {"titles": ["...", ...]}`

const descriptionSystemPrompt = `You write YouTube video descriptions for serialized short-form stories.
Write an engaging description of 2-4 paragraphs with a hook in the first line.
Respond with the description text only, no JSON, no markdown.`

const hashtagsSystemPrompt = `You pick YouTube hashtags for serialized short-form stories.
Produce 10-15 relevant hashtags.
Respond with ONLY a JSON object: {"hashtags": ["#tag", ...]}`

const keywordsSystemPrompt = `You pick SEO keywords for YouTube videos of serialized short-form stories.
Produce 15-20 search keywords and phrases.
Respond with ONLY a JSON object: {"keywords": ["...", ...]}`

const thumbnailSystemPrompt = `You design YouTube thumbnails for serialized short-form stories.
Produce an image generation prompt for the thumbnail, a short overlay text
(3-5 words), and a style note.
Respond with ONLY a JSON object:
{"prompt": "...", "main_text": "...", "style": "..."}`

const shortsHooksSystemPrompt = `You write opening hooks for YouTube Shorts episodes of a serialized story.
Produce 5 hooks of one sentence each that stop the scroll in the first second.
Respond with ONLY a JSON object: {"hooks": ["...", ...]}`

func buildAssetUserPrompt(story *domain.Story) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Story: %s\n", story.Title)
	if story.Tone != "" {
		fmt.Fprintf(&b, "Tone: %s\n", story.Tone)
	}
	if len(story.Themes) > 0 {
		fmt.Fprintf(&b, "Themes: %s\n", strings.Join(story.Themes, ", "))
	}
	fmt.Fprintf(&b, "\nSummary:\n%s\n", story.Summary)
	if len(story.Chapters) > 0 {
		b.WriteString("\nChapter summaries:\n")
		for _, ch := range story.Chapters {
			fmt.Fprintf(&b, "%d. %s\n", ch.Number, ch.Summary)
		}
	}
	return b.String()
}

// generateForStory - общий каркас генерации ассета: загрузка истории с
// проверкой владельца, вызов модели, применение мутации, сохранение.
func (s *StoryService) generateForStory(
	ctx context.Context,
	userID, storyID uuid.UUID,
	systemPrompt string,
	apply func(story *domain.Story, raw string),
) (*domain.Story, error) {
	story, err := s.stories.GetByID(ctx, storyID, userID)
	if err != nil {
		return nil, err
	}

	raw, err := s.generator.Complete(ctx, ai.CompletionRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   buildAssetUserPrompt(story),
	})
	if err != nil {
		return nil, err
	}

	apply(story, raw)
	if err := s.stories.Update(ctx, story); err != nil {
		return nil, err
	}
	return story, nil
}

// GenerateTitles генерирует варианты заголовков видео.
func (s *StoryService) GenerateTitles(ctx context.Context, userID, storyID uuid.UUID) ([]string, error) {
	var titles []string
	_, err := s.generateForStory(ctx, userID, storyID, titlesSystemPrompt, func(story *domain.Story, raw string) {
		var resp struct {
			Titles []string `json:"titles"`
		}
		if parseErr := parser.DecodeObject(raw, &resp); parseErr != nil || len(resp.Titles) == 0 {
			s.logger.Warn("Titles response is not parseable, using numbered list fallback", zap.Error(parseErr))
			resp.Titles = parser.SplitNumberedList(parser.StripCodeFences(raw))
		}
		titles = resp.Titles
		story.YouTubeAssets.Titles = titles
	})
	if err != nil {
		return nil, err
	}
	return titles, nil
}

// GenerateDescription генерирует описание видео. Ответ модели используется
// как есть: это единственный ассет без структурированного формата.
func (s *StoryService) GenerateDescription(ctx context.Context, userID, storyID uuid.UUID) (string, error) {
	var description string
	_, err := s.generateForStory(ctx, userID, storyID, descriptionSystemPrompt, func(story *domain.Story, raw string) {
		description = strings.TrimSpace(parser.StripCodeFences(raw))
		story.YouTubeAssets.Description = description
	})
	if err != nil {
		return "", err
	}
	return description, nil
}

// GenerateHashtags генерирует хэштеги, нормализованные к виду "#tag".
func (s *StoryService) GenerateHashtags(ctx context.Context, userID, storyID uuid.UUID) ([]string, error) {
	var hashtags []string
	_, err := s.generateForStory(ctx, userID, storyID, hashtagsSystemPrompt, func(story *domain.Story, raw string) {
		var resp struct {
			Hashtags []string `json:"hashtags"`
		}
		if parseErr := parser.DecodeObject(raw, &resp); parseErr != nil || len(resp.Hashtags) == 0 {
			s.logger.Warn("Hashtags response is not parseable, splitting raw text", zap.Error(parseErr))
			resp.Hashtags = parser.SplitHashtags(parser.StripCodeFences(raw))
		}
		normalized := make([]string, 0, len(resp.Hashtags))
		for _, tag := range resp.Hashtags {
			tag = strings.TrimSpace(tag)
			if tag == "" {
				continue
			}
			if !strings.HasPrefix(tag, "#") {
				tag = "#" + tag
			}
			normalized = append(normalized, tag)
		}
		hashtags = normalized
		story.YouTubeAssets.Hashtags = hashtags
	})
	if err != nil {
		return nil, err
	}
	return hashtags, nil
}

// GenerateKeywords генерирует SEO-ключевые слова. При нечитаемом ответе
// сохраняется пустой список: мусор в ключевых словах хуже их отсутствия.
func (s *StoryService) GenerateKeywords(ctx context.Context, userID, storyID uuid.UUID) ([]string, error) {
	var keywords []string
	_, err := s.generateForStory(ctx, userID, storyID, keywordsSystemPrompt, func(story *domain.Story, raw string) {
		var resp struct {
			Keywords []string `json:"keywords"`
		}
		if parseErr := parser.DecodeObject(raw, &resp); parseErr != nil {
			s.logger.Warn("Keywords response is not parseable, storing empty list", zap.Error(parseErr))
			resp.Keywords = []string{}
		}
		keywords = resp.Keywords
		story.YouTubeAssets.Keywords = keywords
	})
	if err != nil {
		return nil, err
	}
	return keywords, nil
}

// GenerateThumbnailPrompt генерирует промпт обложки. Нечитаемый ответ
// оборачивается в объект с сырым текстом и пометкой об ошибке разбора.
func (s *StoryService) GenerateThumbnailPrompt(ctx context.Context, userID, storyID uuid.UUID) (*domain.ThumbnailPrompt, error) {
	var thumbnail *domain.ThumbnailPrompt
	_, err := s.generateForStory(ctx, userID, storyID, thumbnailSystemPrompt, func(story *domain.Story, raw string) {
		var resp domain.ThumbnailPrompt
		if parseErr := parser.DecodeObject(raw, &resp); parseErr != nil || resp.Prompt == "" {
			s.logger.Warn("Thumbnail response is not parseable, wrapping raw text", zap.Error(parseErr))
			resp = domain.ThumbnailPrompt{
				Prompt: strings.TrimSpace(parser.StripCodeFences(raw)),
				Error:  "failed to parse structured thumbnail response",
			}
		}
		thumbnail = &resp
		story.YouTubeAssets.ThumbnailPrompt = thumbnail
	})
	if err != nil {
		return nil, err
	}
	return thumbnail, nil
}

// GenerateShortsHooks генерирует хуки для Shorts.
func (s *StoryService) GenerateShortsHooks(ctx context.Context, userID, storyID uuid.UUID) ([]string, error) {
	var hooks []string
	_, err := s.generateForStory(ctx, userID, storyID, shortsHooksSystemPrompt, func(story *domain.Story, raw string) {
		var resp struct {
			Hooks []string `json:"hooks"`
		}
		if parseErr := parser.DecodeObject(raw, &resp); parseErr != nil || len(resp.Hooks) == 0 {
			s.logger.Warn("Shorts hooks response is not parseable, using numbered list fallback", zap.Error(parseErr))
			resp.Hooks = parser.SplitNumberedList(parser.StripCodeFences(raw))
		}
		hooks = resp.Hooks
		story.YouTubeAssets.ShortsHooks = hooks
	})
	if err != nil {
		return nil, err
	}
	return hooks, nil
}
