package handlers

import (
	"log/slog"

	config "github.com/contentpilot/backend/configs"
	"github.com/contentpilot/backend/internal/apperr"
	"github.com/contentpilot/backend/internal/service"
	"github.com/contentpilot/backend/internal/timeline"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// EditorHandler exposes the video timeline editor. Sessions live in memory,
// exports run through the shared transcoder handle and land in R2.
type EditorHandler struct {
	tm     *timeline.Manager
	handle *timeline.Handle
	media  *service.MediaService
	cfg    config.Config
}

func NewEditorHandler(cfg config.Config, tm *timeline.Manager, handle *timeline.Handle, media *service.MediaService) *EditorHandler {
	return &EditorHandler{
		tm:     tm,
		handle: handle,
		media:  media,
		cfg:    cfg,
	}
}

type sessionResponse struct {
	ID     uuid.UUID       `json:"id"`
	State  string          `json:"state"`
	Clips  []timeline.Clip `json:"clips"`
	Result *exportResponse `json:"result,omitempty"`
}

type exportResponse struct {
	URL      string  `json:"url,omitempty"`
	Duration float64 `json:"duration"`
}

func (h *EditorHandler) sessionJSON(s *timeline.Session, exportURL string) sessionResponse {
	resp := sessionResponse{
		ID:    s.ID,
		State: string(s.State()),
		Clips: s.Clips(),
	}
	if res := s.Result(); res != nil {
		resp.Result = &exportResponse{URL: exportURL, Duration: res.Duration}
	}
	return resp
}

func (h *EditorHandler) CreateSession(c *fiber.Ctx) error {
	session := h.tm.Create()
	return c.Status(fiber.StatusOK).JSON(h.sessionJSON(session, ""))
}

func (h *EditorHandler) session(c *fiber.Ctx) (*timeline.Session, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid session id",
		})
	}
	session, ok := h.tm.Get(id)
	if !ok {
		return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "session not found",
		})
	}
	return session, nil
}

type addClipRequest struct {
	URL string `json:"url" validate:"required"`
}

func (h *EditorHandler) AddClip(c *fiber.Ctx) error {
	session, err := h.session(c)
	if session == nil {
		return err
	}

	var req addClipRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "url is required",
		})
	}

	// Duration and dimensions come from ffprobe, never from the client.
	source, err := h.handle.Probe(c.Context(), req.URL)
	if err != nil {
		return errorResponse(c, apperr.Wrap(apperr.KindDomain, "could not inspect source video", err))
	}

	clip, err := session.AddClip(source)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(clip)
}

type trimRequest struct {
	ClipID string  `json:"clip_id" validate:"required"`
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
}

func (h *EditorHandler) TrimClip(c *fiber.Ctx) error {
	session, err := h.session(c)
	if session == nil {
		return err
	}

	var req trimRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	clipID, err := uuid.Parse(req.ClipID)
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "invalid clip id",
		})
	}

	// Invalid trim ranges are ignored, matching direct-manipulation UIs
	// where a slider can momentarily cross itself.
	session.UpdateTrim(clipID, req.Start, req.End)
	return c.Status(fiber.StatusOK).JSON(h.sessionJSON(session, ""))
}

type reorderRequest struct {
	DraggedID string `json:"dragged_id" validate:"required"`
	TargetID  string `json:"target_id" validate:"required"`
}

func (h *EditorHandler) ReorderClips(c *fiber.Ctx) error {
	session, err := h.session(c)
	if session == nil {
		return err
	}

	var req reorderRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	draggedID, err := uuid.Parse(req.DraggedID)
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "invalid clip id",
		})
	}
	targetID, err := uuid.Parse(req.TargetID)
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "invalid clip id",
		})
	}

	if err := session.Reorder(draggedID, targetID); err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(h.sessionJSON(session, ""))
}

func (h *EditorHandler) RemoveClip(c *fiber.Ctx) error {
	session, err := h.session(c)
	if session == nil {
		return err
	}

	clipID, err := uuid.Parse(c.Query("clip_id"))
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "invalid clip id",
		})
	}

	if err := session.RemoveClip(clipID); err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(h.sessionJSON(session, ""))
}

func (h *EditorHandler) ExportSession(c *fiber.Ctx) error {
	session, err := h.session(c)
	if session == nil {
		return err
	}

	result, err := session.Export(c.Context(), h.handle, h.cfg.Export.WorkDir, func(percent int, stage string) {
		slog.Info("export progress", "session_id", session.ID, "percent", percent, "stage", stage)
	})
	if err != nil {
		return errorResponse(c, err)
	}

	exportURL, err := h.media.Upload(c.Context(), result.Data)
	if err != nil {
		slog.Error(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "export finished but upload failed",
		})
	}

	return c.Status(fiber.StatusOK).JSON(h.sessionJSON(session, exportURL))
}

func (h *EditorHandler) RedoSession(c *fiber.Ctx) error {
	session, err := h.session(c)
	if session == nil {
		return err
	}

	if err := session.Redo(); err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(h.sessionJSON(session, ""))
}

func (h *EditorHandler) SessionStatus(c *fiber.Ctx) error {
	session, err := h.session(c)
	if session == nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(h.sessionJSON(session, ""))
}

func (h *EditorHandler) CloseSession(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid session id",
		})
	}
	h.tm.Close(id)
	return c.SendStatus(fiber.StatusOK)
}
