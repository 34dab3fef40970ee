package domain

import "github.com/google/uuid"

// GenerateChapterRequest представляет запрос на генерацию очередной главы.
// Либо продолжение существующей истории (StoryID), либо создание новой
// (Summary или SummaryID) - ровно один путь.
type GenerateChapterRequest struct {
	StoryID       *uuid.UUID `json:"story_id,omitempty"`
	SummaryID     *uuid.UUID `json:"summary_id,omitempty"`
	Summary       string     `json:"summary,omitempty"`
	ChapterNumber int        `json:"chapter_number"`
	TotalChapters int        `json:"total_chapters"`
}

// IsNewStory сообщает, создает ли запрос новую историю.
func (r *GenerateChapterRequest) IsNewStory() bool {
	return r.StoryID == nil
}

// Validate проверяет запрос на генерацию главы.
func (r *GenerateChapterRequest) Validate() error {
	if r.ChapterNumber <= 0 {
		return NewValidationError("chapter_number must be a positive integer")
	}
	if r.TotalChapters <= 0 {
		return NewValidationError("total_chapters must be a positive integer")
	}
	if r.ChapterNumber > r.TotalChapters {
		return NewValidationError("chapter_number cannot exceed total_chapters")
	}

	hasSummary := r.Summary != "" || r.SummaryID != nil
	if r.StoryID != nil && hasSummary {
		return NewValidationError("provide either story_id or a summary, not both")
	}
	if r.StoryID == nil && !hasSummary {
		return NewValidationError("either story_id or summary/summary_id is required")
	}
	if r.IsNewStory() && r.ChapterNumber != 1 {
		return NewValidationError("a new story must start with Chapter 1")
	}
	return nil
}
