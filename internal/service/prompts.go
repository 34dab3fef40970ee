package service

import (
	"fmt"
	"strings"

	"shorts-server/internal/domain"
)

// Системные промпты генераторов. Все промпты требуют строгий JSON без
// markdown-ограждений; парсер все равно готов к нарушениям (см. internal/parser).

const outlineSystemPrompt = `You are a story architect for short-form serialized fiction.
Given a story premise and a chapter count, design the story skeleton.
Respond with ONLY a JSON object, no markdown fences, no commentary:
{
  "title": "story title",
  "tone": "overall narrative tone",
  "themes": ["theme", ...],
  "settings": ["location or setting", ...],
  "characters": [
    {"name": "", "age": "", "skin_tone": "", "ethnicity": "", "attire": "",
     "facial_features": "", "physical_traits": "", "other_details": ""}
  ],
  "outline": [
    {"number": 1, "purpose": "setup|rising|climax|resolution", "description": "one-sentence plan"}
  ]
}
The outline must contain exactly one entry per chapter, numbered from 1.`

const chapterSystemPrompt = `You are a fiction writer producing one chapter of a serialized short story.
Stay consistent with the story context you are given: continue from the previous
chapter summary, follow the outline entry for this chapter, and keep established
character details unchanged unless the chapter purpose justifies a change.
Respond with ONLY a JSON object, no markdown fences, no commentary:
{
  "number": <chapter number>,
  "title": "chapter title",
  "content": "full chapter text",
  "summary": "3-5 sentence summary of THIS chapter for continuing the story later",
  "paragraphs": ["paragraph 1", "paragraph 2", ...],
  "word_count": <integer>,
  "characters": [
    {"name": "", "age": "", "skin_tone": "", "ethnicity": "", "attire": "",
     "facial_features": "", "physical_traits": "", "other_details": ""}
  ]
}
Include in "characters" only characters that appear in this chapter.`

const imagePromptsSystemPrompt = `You generate image prompts for illustrating a story chapter.
For EACH paragraph of the chapter produce one self-contained image generation
prompt. Every prompt must restate the visual details of the characters present
(age, skin tone, ethnicity, attire, facial features) so the images stay
consistent without access to other prompts.
Respond with ONLY a JSON object, no markdown fences:
{"prompts": ["prompt for paragraph 1", "prompt for paragraph 2", ...]}`

const characterExtractionSystemPrompt = `You extract canonical character descriptions from image prompts.
Given a list of image prompts and the character names to look for, collect the
visual details mentioned for each character. Omit fields that are not mentioned.
Respond with ONLY a JSON object, no markdown fences:
{"characters": [
  {"name": "", "age": "", "skin_tone": "", "ethnicity": "", "attire": "",
   "facial_features": "", "physical_traits": "", "other_details": ""}
]}`

// buildOutlineUserPrompt строит пользовательский промпт для генерации аутлайна.
func buildOutlineUserPrompt(summary string, totalChapters int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Story premise:\n%s\n\n", summary)
	fmt.Fprintf(&b, "Total chapters: %d\n", totalChapters)
	return b.String()
}

// buildChapterUserPrompt строит контекст генерации главы. Полный текст
// предыдущих глав никогда не передается: только summary предыдущей главы
// и аутлайн целиком.
func buildChapterUserPrompt(story *domain.Story, chapterNumber int, contextText string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Story: %s\n", story.Title)
	if story.Tone != "" {
		fmt.Fprintf(&b, "Tone: %s\n", story.Tone)
	}
	if len(story.Themes) > 0 {
		fmt.Fprintf(&b, "Themes: %s\n", strings.Join(story.Themes, ", "))
	}
	fmt.Fprintf(&b, "Chapter to write: %d of %d\n\n", chapterNumber, story.TotalChapters)

	fmt.Fprintf(&b, "Context:\n%s\n\n", contextText)

	if len(story.Outline) > 0 {
		b.WriteString("Full outline:\n")
		for _, item := range story.Outline {
			fmt.Fprintf(&b, "%d. [%s] %s\n", item.Number, item.Purpose, item.Description)
		}
		b.WriteString("\n")
	}

	if len(story.CharacterDetails) > 0 {
		b.WriteString("Established character details (keep consistent):\n")
		for _, detail := range story.CharacterDetails {
			b.WriteString(formatCharacterDetail(detail))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// buildChapterContext выбирает контекст продолжения по правилам непрерывности.
func buildChapterContext(story *domain.Story, chapterNumber int) string {
	if chapterNumber == 1 {
		return "Initial story summary:\n" + story.Summary
	}
	if prev, ok := story.Chapter(chapterNumber - 1); ok && strings.TrimSpace(prev.Summary) != "" {
		return fmt.Sprintf("Summary of chapter %d:\n%s", prev.Number, prev.Summary)
	}
	// Защитный откат: summary предыдущей главы недоступен.
	return "Original story summary:\n" + story.Summary
}

func formatCharacterDetail(d domain.CharacterDetail) string {
	parts := []string{d.Name}
	appendPart := func(label, value string) {
		if value != "" {
			parts = append(parts, label+": "+value)
		}
	}
	appendPart("age", d.Age)
	appendPart("skin tone", d.SkinTone)
	appendPart("ethnicity", d.Ethnicity)
	appendPart("attire", d.Attire)
	appendPart("facial features", d.FacialFeatures)
	appendPart("physical traits", d.PhysicalTraits)
	appendPart("other", d.OtherDetails)
	return "- " + strings.Join(parts, "; ")
}

// buildImagePromptsUserPrompt строит запрос на промпты изображений главы.
func buildImagePromptsUserPrompt(story *domain.Story, ch domain.Chapter) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Story: %s\nChapter %d: %s\n\n", story.Title, ch.Number, ch.Title)
	if len(story.CharacterDetails) > 0 {
		b.WriteString("Character details to restate in every prompt:\n")
		for _, detail := range story.CharacterDetails {
			b.WriteString(formatCharacterDetail(detail))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	b.WriteString("Paragraphs:\n")
	for i, p := range ch.Paragraphs {
		fmt.Fprintf(&b, "%d. %s\n", i+1, p)
	}
	return b.String()
}

// buildCharacterExtractionUserPrompt строит запрос на извлечение деталей
// персонажей из готовых промптов.
func buildCharacterExtractionUserPrompt(prompts []string, names []string) string {
	var b strings.Builder
	if len(names) > 0 {
		fmt.Fprintf(&b, "Character names: %s\n\n", strings.Join(names, ", "))
	}
	b.WriteString("Image prompts:\n")
	for i, p := range prompts {
		fmt.Fprintf(&b, "%d. %s\n", i+1, p)
	}
	return b.String()
}
