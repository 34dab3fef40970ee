package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStory(totalChapters int) *Story {
	return NewStory(uuid.New(), "Тестовая история", "Описание тестовой истории.", totalChapters)
}

func chapterFixture(number int) Chapter {
	return Chapter{
		Number:  number,
		Title:   "Глава",
		Content: "Текст главы.",
		Summary: "Summary главы.",
	}
}

func TestNewStory(t *testing.T) {
	story := newTestStory(3)
	assert.Equal(t, StatusInProgress, story.Status)
	assert.NotEqual(t, uuid.Nil, story.ID)
	assert.Empty(t, story.Chapters)
	assert.NotNil(t, story.CharacterDetails)
}

func TestAppendChapter(t *testing.T) {
	t.Run("appends sequential chapters", func(t *testing.T) {
		story := newTestStory(3)
		require.NoError(t, story.AppendChapter(chapterFixture(1)))
		require.NoError(t, story.AppendChapter(chapterFixture(2)))
		assert.True(t, story.HasChapter(2))
		assert.Equal(t, StatusInProgress, story.Status)
	})

	t.Run("rejects chapter without previous", func(t *testing.T) {
		story := newTestStory(3)
		err := story.AppendChapter(chapterFixture(2))
		assert.ErrorIs(t, err, ErrPreviousChapterMissing)
	})

	t.Run("rejects duplicate chapter", func(t *testing.T) {
		story := newTestStory(3)
		require.NoError(t, story.AppendChapter(chapterFixture(1)))
		err := story.AppendChapter(chapterFixture(1))
		assert.ErrorIs(t, err, ErrChapterExists)
	})

	t.Run("rejects out of range number", func(t *testing.T) {
		story := newTestStory(3)
		assert.True(t, IsValidationError(story.AppendChapter(chapterFixture(0))))
		assert.True(t, IsValidationError(story.AppendChapter(chapterFixture(4))))
	})

	t.Run("rejects empty summary", func(t *testing.T) {
		story := newTestStory(3)
		ch := chapterFixture(1)
		ch.Summary = "   "
		assert.True(t, IsValidationError(story.AppendChapter(ch)))
	})

	t.Run("final chapter completes the story", func(t *testing.T) {
		story := newTestStory(2)
		require.NoError(t, story.AppendChapter(chapterFixture(1)))
		require.NoError(t, story.AppendChapter(chapterFixture(2)))
		assert.Equal(t, StatusCompleted, story.Status)
	})
}

func TestOutlinePurpose(t *testing.T) {
	story := newTestStory(3)
	story.Outline = []OutlineItem{
		{Number: 1, Purpose: PurposeSetup},
		{Number: 3, Purpose: PurposeResolution},
	}
	assert.Equal(t, PurposeSetup, story.OutlinePurpose(1))
	assert.Equal(t, "", story.OutlinePurpose(2))
	assert.Equal(t, PurposeResolution, story.OutlinePurpose(3))
}

func TestCharacterKey(t *testing.T) {
	assert.Equal(t, "мария", CharacterKey("  Мария "))
	assert.Equal(t, CharacterKey("ANNA"), CharacterKey("anna"))
}

func TestSetChapterImagePrompts(t *testing.T) {
	story := newTestStory(2)
	story.ChapterImagePrompts = nil // проверяем ленивую инициализацию
	story.SetChapterImagePrompts(1, []string{"prompt a"})
	story.SetChapterImagePrompts(2, []string{"prompt b"})
	story.SetChapterImagePrompts(1, []string{"prompt c"})

	assert.Equal(t, []string{"prompt c"}, story.ChapterImagePrompts[1])
	assert.Equal(t, []string{"prompt b"}, story.ChapterImagePrompts[2])
}

func TestGenerateChapterRequestValidate(t *testing.T) {
	storyID := uuid.New()

	t.Run("valid new story", func(t *testing.T) {
		req := &GenerateChapterRequest{Summary: "Описание", ChapterNumber: 1, TotalChapters: 3}
		assert.NoError(t, req.Validate())
	})

	t.Run("valid continuation", func(t *testing.T) {
		req := &GenerateChapterRequest{StoryID: &storyID, ChapterNumber: 2, TotalChapters: 3}
		assert.NoError(t, req.Validate())
	})

	t.Run("non-positive numbers", func(t *testing.T) {
		req := &GenerateChapterRequest{Summary: "Описание", ChapterNumber: 0, TotalChapters: 3}
		assert.True(t, IsValidationError(req.Validate()))

		req = &GenerateChapterRequest{Summary: "Описание", ChapterNumber: 1, TotalChapters: 0}
		assert.True(t, IsValidationError(req.Validate()))
	})

	t.Run("chapter number exceeds total", func(t *testing.T) {
		req := &GenerateChapterRequest{StoryID: &storyID, ChapterNumber: 4, TotalChapters: 3}
		assert.True(t, IsValidationError(req.Validate()))
	})

	t.Run("both story and summary", func(t *testing.T) {
		req := &GenerateChapterRequest{StoryID: &storyID, Summary: "Описание", ChapterNumber: 1, TotalChapters: 3}
		assert.True(t, IsValidationError(req.Validate()))
	})

	t.Run("neither story nor summary", func(t *testing.T) {
		req := &GenerateChapterRequest{ChapterNumber: 1, TotalChapters: 3}
		assert.True(t, IsValidationError(req.Validate()))
	})

	t.Run("new story must start with chapter one", func(t *testing.T) {
		req := &GenerateChapterRequest{Summary: "Описание", ChapterNumber: 2, TotalChapters: 3}
		err := req.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Chapter 1")
	})
}
