package handlers

import (
	"strconv"

	"github.com/contentpilot/backend/internal/apperr"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

func GetUserID(c *fiber.Ctx) int64 {
	userID, _ := strconv.Atoi(c.Locals("user_id").(string))
	return int64(userID)
}

// errorResponse translates service errors to HTTP responses. Validation
// failures are the caller's fault, format and transport failures mean an
// upstream collaborator misbehaved, and domain or state conflicts map to 409.
func errorResponse(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		status = fiber.StatusUnprocessableEntity
	case apperr.KindFormat, apperr.KindTransport:
		status = fiber.StatusBadGateway
	case apperr.KindDomain, apperr.KindInvalidState:
		status = fiber.StatusConflict
	}
	return c.Status(status).JSON(fiber.Map{
		"error": apperr.Message(err),
	})
}
