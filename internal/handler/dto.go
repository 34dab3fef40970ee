package handler

import "shorts-server/internal/domain"

// Соглашение об ответах API: success-флаг и сообщение, данные в data.
// В ошибочных ответах error содержит отладочную строку исходной ошибки.

type successResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

type listStoriesResponse struct {
	Stories []domain.StoryListItem `json:"stories"`
	Limit   int                    `json:"limit"`
	Offset  int                    `json:"offset"`
}

type imagePromptsResponse struct {
	ChapterNumber int      `json:"chapter_number"`
	Prompts       []string `json:"prompts"`
}
