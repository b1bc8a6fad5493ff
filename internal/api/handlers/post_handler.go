package handlers

import (
	"log/slog"
	"time"

	"github.com/contentpilot/backend/internal/service"
	"github.com/gofiber/fiber/v2"
)

type PostHandler struct {
	s service.PublishService
}

func NewPostHandler(service service.PublishService) *PostHandler {
	return &PostHandler{s: service}
}

type publishRequest struct {
	ContentID    int64    `json:"content_id" validate:"required"`
	Platforms    []string `json:"platforms" validate:"required,min=1"`
	ScheduledFor string   `json:"scheduled_for"`
}

func (h *PostHandler) PublishContent(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var req publishRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "content_id and at least one platform are required",
		})
	}

	var scheduledFor *time.Time
	if req.ScheduledFor != "" {
		t, err := time.Parse(time.RFC3339, req.ScheduledFor)
		if err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": "scheduled_for must be RFC 3339",
			})
		}
		scheduledFor = &t
	}

	posts, err := h.s.Publish(c.Context(), userID, req.ContentID, req.Platforms, scheduledFor)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	userID := GetUserID(c)
	contentID := c.QueryInt("content_id", 0)

	if contentID != 0 {
		posts, err := h.s.ListByContent(c.Context(), userID, int64(contentID))
		if err != nil {
			return errorResponse(c, err)
		}
		return c.Status(fiber.StatusOK).JSON(posts)
	}

	posts, err := h.s.List(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to list posts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) RetryPost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)

	if err := h.s.Retry(c.Context(), userID, int64(postID)); err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Post queued for retry",
	})
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postID := c.QueryInt("id", 0)

	if err := h.s.Remove(c.Context(), userID, int64(postID)); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to remove post",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
