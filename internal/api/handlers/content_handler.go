package handlers

import (
	"log/slog"

	"github.com/contentpilot/backend/internal/service"
	"github.com/gofiber/fiber/v2"
)

type ContentHandler struct {
	s service.ContentService
}

func NewContentHandler(service service.ContentService) *ContentHandler {
	return &ContentHandler{s: service}
}

type generateContentRequest struct {
	Topic     string `json:"topic" validate:"required"`
	Intention string `json:"intention"`
}

func (h *ContentHandler) GenerateContent(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var req generateContentRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "topic is required",
		})
	}

	content, err := h.s.Generate(c.Context(), userID, req.Topic, req.Intention)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(content)
}

func (h *ContentHandler) ListContent(c *fiber.Ctx) error {
	userID := GetUserID(c)
	contentID := c.QueryInt("id", 0)

	if contentID != 0 {
		content, err := h.s.Get(c.Context(), userID, int64(contentID))
		if err != nil {
			return errorResponse(c, err)
		}
		return c.Status(fiber.StatusOK).JSON(content)
	}

	contentList, err := h.s.List(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to list content",
		})
	}

	return c.Status(fiber.StatusOK).JSON(contentList)
}

func (h *ContentHandler) ApproveContent(c *fiber.Ctx) error {
	userID := GetUserID(c)
	contentID := c.QueryInt("id", 0)

	if err := h.s.Approve(c.Context(), userID, int64(contentID)); err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Content approved",
	})
}

type rejectContentRequest struct {
	Feedback string `json:"feedback"`
}

func (h *ContentHandler) RejectContent(c *fiber.Ctx) error {
	userID := GetUserID(c)
	contentID := c.QueryInt("id", 0)

	var req rejectContentRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	if err := h.s.Reject(c.Context(), userID, int64(contentID), req.Feedback); err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Content rejected",
	})
}

func (h *ContentHandler) RegenerateCaptions(c *fiber.Ctx) error {
	userID := GetUserID(c)
	contentID := c.QueryInt("id", 0)

	content, err := h.s.RegenerateCaptions(c.Context(), userID, int64(contentID))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(content)
}

func (h *ContentHandler) RegenerateImage(c *fiber.Ctx) error {
	userID := GetUserID(c)
	contentID := c.QueryInt("id", 0)

	content, err := h.s.RegenerateImage(c.Context(), userID, int64(contentID))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(content)
}

func (h *ContentHandler) GenerateAudio(c *fiber.Ctx) error {
	userID := GetUserID(c)
	contentID := c.QueryInt("id", 0)

	content, err := h.s.GenerateAudio(c.Context(), userID, int64(contentID))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(content)
}

func (h *ContentHandler) RemoveContent(c *fiber.Ctx) error {
	userID := GetUserID(c)
	contentID := c.QueryInt("id", 0)

	if err := h.s.Remove(c.Context(), userID, int64(contentID)); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to remove content",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
