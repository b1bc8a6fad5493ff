package handlers

import (
	"log/slog"

	"github.com/contentpilot/backend/internal/workflow"
	"github.com/gofiber/fiber/v2"
)

// VideoHandler exposes stock-footage search and video analysis backed by the
// n8n workflow engine.
type VideoHandler struct {
	wf workflow.Client
}

func NewVideoHandler(wf workflow.Client) *VideoHandler {
	return &VideoHandler{wf: wf}
}

func (h *VideoHandler) SearchVideos(c *fiber.Ctx) error {
	query := c.Query("query")
	if query == "" {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "query is required",
		})
	}

	videos, err := h.wf.SearchVideos(c.Context(), query)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"videos": videos,
	})
}

type analyzeVideoRequest struct {
	VideoURL string `json:"video_url" validate:"required,url"`
}

func (h *VideoHandler) AnalyzeVideo(c *fiber.Ctx) error {
	var req analyzeVideoRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "a valid video_url is required",
		})
	}

	result, err := h.wf.AnalyzeVideo(c.Context(), req.VideoURL)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"result": result,
	})
}
