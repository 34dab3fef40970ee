// Package handler содержит HTTP-обработчики API историй.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"shorts-server/internal/domain"
	"shorts-server/internal/middleware"
)

// StoryServicePort - операции сервиса историй, нужные HTTP-слою.
type StoryServicePort interface {
	GenerateChapter(ctx context.Context, userID uuid.UUID, req *domain.GenerateChapterRequest) (*domain.Story, error)
	GetStory(ctx context.Context, userID, id uuid.UUID) (*domain.Story, error)
	ListStories(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.StoryListItem, error)
	DeleteStory(ctx context.Context, userID, id uuid.UUID) error
	GenerateImagePrompts(ctx context.Context, userID, storyID uuid.UUID, chapterNumber int) ([]string, error)
	GenerateTitles(ctx context.Context, userID, storyID uuid.UUID) ([]string, error)
	GenerateDescription(ctx context.Context, userID, storyID uuid.UUID) (string, error)
	GenerateHashtags(ctx context.Context, userID, storyID uuid.UUID) ([]string, error)
	GenerateKeywords(ctx context.Context, userID, storyID uuid.UUID) ([]string, error)
	GenerateThumbnailPrompt(ctx context.Context, userID, storyID uuid.UUID) (*domain.ThumbnailPrompt, error)
	GenerateShortsHooks(ctx context.Context, userID, storyID uuid.UUID) ([]string, error)
}

// StoryHandler обслуживает маршруты /api/stories.
type StoryHandler struct {
	service StoryServicePort
	logger  *zap.Logger
}

// NewStoryHandler создает обработчик API историй.
func NewStoryHandler(service StoryServicePort, logger *zap.Logger) *StoryHandler {
	return &StoryHandler{
		service: service,
		logger:  logger.Named("StoryHandler"),
	}
}

// RegisterRoutes вешает маршруты API на защищенную группу.
func (h *StoryHandler) RegisterRoutes(api *gin.RouterGroup) {
	stories := api.Group("/stories")
	{
		stories.POST("/chapters", h.generateChapter)
		stories.GET("", h.listStories)
		stories.GET("/:id", h.getStory)
		stories.DELETE("/:id", h.deleteStory)
		stories.POST("/:id/chapters/:number/image-prompts", h.generateImagePrompts)

		assets := stories.Group("/:id/assets")
		{
			assets.POST("/titles", h.generateTitles)
			assets.POST("/description", h.generateDescription)
			assets.POST("/hashtags", h.generateHashtags)
			assets.POST("/keywords", h.generateKeywords)
			assets.POST("/thumbnail", h.generateThumbnail)
			assets.POST("/shorts-hooks", h.generateShortsHooks)
		}
	}
}

// generateChapter - POST /api/stories/chapters
func (h *StoryHandler) generateChapter(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "user is not authenticated", nil)
		return
	}

	var req domain.GenerateChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	story, err := h.service.GenerateChapter(c.Request.Context(), userID, &req)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse{
		Success: true,
		Message: "chapter generated",
		Data:    story,
	})
}

// listStories - GET /api/stories
func (h *StoryHandler) listStories(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "user is not authenticated", nil)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	items, err := h.service.ListStories(c.Request.Context(), userID, limit, offset)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse{
		Success: true,
		Data:    listStoriesResponse{Stories: items, Limit: limit, Offset: offset},
	})
}

// getStory - GET /api/stories/:id
func (h *StoryHandler) getStory(c *gin.Context) {
	userID, storyID, ok := h.userAndStoryID(c)
	if !ok {
		return
	}

	story, err := h.service.GetStory(c.Request.Context(), userID, storyID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse{Success: true, Data: story})
}

// deleteStory - DELETE /api/stories/:id
func (h *StoryHandler) deleteStory(c *gin.Context) {
	userID, storyID, ok := h.userAndStoryID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteStory(c.Request.Context(), userID, storyID); err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse{Success: true, Message: "story deleted"})
}

// generateImagePrompts - POST /api/stories/:id/chapters/:number/image-prompts
func (h *StoryHandler) generateImagePrompts(c *gin.Context) {
	userID, storyID, ok := h.userAndStoryID(c)
	if !ok {
		return
	}
	chapterNumber, err := strconv.Atoi(c.Param("number"))
	if err != nil || chapterNumber < 1 {
		respondError(c, http.StatusBadRequest, "invalid chapter number", err)
		return
	}

	prompts, err := h.service.GenerateImagePrompts(c.Request.Context(), userID, storyID, chapterNumber)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse{
		Success: true,
		Message: "image prompts generated",
		Data:    imagePromptsResponse{ChapterNumber: chapterNumber, Prompts: prompts},
	})
}

func (h *StoryHandler) generateTitles(c *gin.Context) {
	h.generateAsset(c, "titles", func(ctx context.Context, userID, storyID uuid.UUID) (interface{}, error) {
		return h.service.GenerateTitles(ctx, userID, storyID)
	})
}

func (h *StoryHandler) generateDescription(c *gin.Context) {
	h.generateAsset(c, "description", func(ctx context.Context, userID, storyID uuid.UUID) (interface{}, error) {
		return h.service.GenerateDescription(ctx, userID, storyID)
	})
}

func (h *StoryHandler) generateHashtags(c *gin.Context) {
	h.generateAsset(c, "hashtags", func(ctx context.Context, userID, storyID uuid.UUID) (interface{}, error) {
		return h.service.GenerateHashtags(ctx, userID, storyID)
	})
}

func (h *StoryHandler) generateKeywords(c *gin.Context) {
	h.generateAsset(c, "keywords", func(ctx context.Context, userID, storyID uuid.UUID) (interface{}, error) {
		return h.service.GenerateKeywords(ctx, userID, storyID)
	})
}

func (h *StoryHandler) generateThumbnail(c *gin.Context) {
	h.generateAsset(c, "thumbnail prompt", func(ctx context.Context, userID, storyID uuid.UUID) (interface{}, error) {
		return h.service.GenerateThumbnailPrompt(ctx, userID, storyID)
	})
}

func (h *StoryHandler) generateShortsHooks(c *gin.Context) {
	h.generateAsset(c, "shorts hooks", func(ctx context.Context, userID, storyID uuid.UUID) (interface{}, error) {
		return h.service.GenerateShortsHooks(ctx, userID, storyID)
	})
}

// generateAsset - общий каркас обработчиков ассетов.
func (h *StoryHandler) generateAsset(c *gin.Context, name string, generate func(ctx context.Context, userID, storyID uuid.UUID) (interface{}, error)) {
	userID, storyID, ok := h.userAndStoryID(c)
	if !ok {
		return
	}
	data, err := generate(c.Request.Context(), userID, storyID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse{
		Success: true,
		Message: name + " generated",
		Data:    data,
	})
}

// userAndStoryID достает пользователя из контекста и storyID из пути.
// При ошибке сам пишет ответ и возвращает false.
func (h *StoryHandler) userAndStoryID(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "user is not authenticated", nil)
		return uuid.Nil, uuid.Nil, false
	}
	storyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid story id", err)
		return uuid.Nil, uuid.Nil, false
	}
	return userID, storyID, true
}

// respondServiceError переводит ошибки сервиса в HTTP-статусы:
// валидация и нарушения последовательности - 400, отсутствие ресурса - 404,
// занятая генерация - 409, конфликт версий и остальное - 500.
func (h *StoryHandler) respondServiceError(c *gin.Context, err error) {
	switch {
	case domain.IsValidationError(err),
		errors.Is(err, domain.ErrChapterExists),
		errors.Is(err, domain.ErrPreviousChapterMissing):
		respondError(c, http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, domain.ErrStoryNotFound),
		errors.Is(err, domain.ErrSummaryNotFound),
		errors.Is(err, domain.ErrChapterNotFound):
		respondError(c, http.StatusNotFound, err.Error(), err)
	case errors.Is(err, domain.ErrGenerationInProgress):
		respondError(c, http.StatusConflict, err.Error(), err)
	default:
		h.logger.Error("Unhandled service error", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "internal server error", err)
	}
}

func respondError(c *gin.Context, status int, message string, err error) {
	resp := errorResponse{Success: false, Message: message}
	if err != nil {
		resp.Error = err.Error()
	}
	c.JSON(status, resp)
}
